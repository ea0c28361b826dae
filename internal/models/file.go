package models

// File is the opaque handle the panel holds for the file chosen by the user.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"-"`
}

// Size returns the byte length of the file content.
func (f *File) Size() int64 {
	return int64(len(f.Content))
}

// ErrorRecord is the result stored when an upload fails.
type ErrorRecord struct {
	Error string `json:"error"`
}

// Artifact is a downloadable serialization of the current result.
type Artifact struct {
	Name     string
	MIMEType string
	Content  []byte
}

const (
	ArtifactName     = "extracted.json"
	ArtifactMIMEType = "application/json"
)
