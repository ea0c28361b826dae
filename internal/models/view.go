package models

// Phase is the finite-state view over the panel flags.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseFileSelected Phase = "file_selected"
	PhaseUploading    Phase = "uploading"
	PhaseResolved     Phase = "resolved"
)

// Outcome describes what the current result holds.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Labels and placeholders rendered by the panel.
const (
	UploadLabelIdle    = "Upload & Extract"
	UploadLabelLoading = "Extracting..."
	NoDataPlaceholder  = "No data yet."
	NoFileNotice       = "Please select or drop a file."
	UploadFailedNotice = "Upload failed"
)

// View is a render snapshot of a panel.
type View struct {
	DragActive        bool    `json:"dragActive" msgpack:"dragActive"`
	FileName          string  `json:"fileName,omitempty" msgpack:"fileName,omitempty"`
	Loading           bool    `json:"loading" msgpack:"loading"`
	UploadLabel       string  `json:"uploadLabel" msgpack:"uploadLabel"`
	UploadEnabled     bool    `json:"uploadEnabled" msgpack:"uploadEnabled"`
	DownloadAvailable bool    `json:"downloadAvailable" msgpack:"downloadAvailable"`
	Output            string  `json:"output" msgpack:"output"`
	Phase             Phase   `json:"phase" msgpack:"phase"`
	Outcome           Outcome `json:"outcome,omitempty" msgpack:"outcome,omitempty"`
}
