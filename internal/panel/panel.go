// Package panel holds the state of one upload panel: the selected file, the
// drag highlight, the in-flight flag and the last result.
package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smart-extractor/backend/internal/models"
)

var (
	// ErrNoFile is returned by Upload when nothing has been selected.
	ErrNoFile = errors.New(models.NoFileNotice)
	// ErrNoResult is returned by Download while there is no result.
	ErrNoResult = errors.New("no result to download")
)

// Extractor sends a file to the Extraction Service.
type Extractor interface {
	Extract(ctx context.Context, file *models.File) (json.RawMessage, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, file *models.File) (json.RawMessage, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, file *models.File) (json.RawMessage, error) {
	return f(ctx, file)
}

// ArtifactSink receives a finished download.
type ArtifactSink interface {
	Save(a *models.Artifact) error
}

const subscriberBuffer = 16

// Panel is the state container behind one drop target.
// ResultData is kept across uploads and only replaced when an upload settles.
type Panel struct {
	mu        sync.Mutex
	extractor Extractor
	logger    *slog.Logger

	file          *models.File
	dragActive    bool
	loading       bool
	result        json.RawMessage
	resultIsError bool

	subscribers map[int]chan models.View
	nextSubID   int
}

// New creates an idle panel.
func New(extractor Extractor, logger *slog.Logger) *Panel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Panel{
		extractor:   extractor,
		logger:      logger,
		subscribers: make(map[int]chan models.View),
	}
}

// Drag applies a drag event to the highlight flag.
func (p *Panel) Drag(kind DragKind) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.dragActive = kind == DragEnter || kind == DragOver
	p.publishLocked()
}

// DragEnter marks the drop target active.
func (p *Panel) DragEnter() { p.Drag(DragEnter) }

// DragOver marks the drop target active.
func (p *Panel) DragOver() { p.Drag(DragOver) }

// DragLeave clears the drop target highlight.
func (p *Panel) DragLeave() { p.Drag(DragLeave) }

// Drop clears the highlight and selects the first dropped file.
// An empty drop leaves the selection untouched.
func (p *Panel) Drop(files []*models.File) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.dragActive = false
	if len(files) > 0 && files[0] != nil {
		p.file = files[0]
	}
	p.publishLocked()
}

// Pick selects the first file chosen in the picker. A cancelled pick
// (no files) clears the selection.
func (p *Panel) Pick(files []*models.File) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(files) > 0 {
		p.file = files[0]
	} else {
		p.file = nil
	}
	p.publishLocked()
}

// Upload sends the selected file and stores the outcome as the result.
//
// ErrNoFile is the only error returned; service and transport failures are
// recorded as an {"error": ...} result. Loading is reset on every exit path.
// Concurrent calls are not rejected: each settles independently and the last
// one to finish owns the result.
func (p *Panel) Upload(ctx context.Context) error {
	p.mu.Lock()
	file := p.file
	if file == nil {
		p.mu.Unlock()
		return ErrNoFile
	}
	p.loading = true
	p.publishLocked()
	p.mu.Unlock()

	var (
		result  json.RawMessage
		isError bool
		settled bool
	)
	defer func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if settled {
			p.result = result
			p.resultIsError = isError
		}
		p.loading = false
		p.publishLocked()
	}()

	result, isError = p.run(ctx, file)
	settled = true
	return nil
}

// run calls the extractor and folds every failure into an error record.
func (p *Panel) run(ctx context.Context, file *models.File) (result json.RawMessage, isError bool) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprint(r)
			p.logger.Error("panel.upload.panic", "file", file.Name, "error", msg)
			result, isError = errorRecord(msg), true
		}
	}()

	body, err := p.extractor.Extract(ctx, file)
	if err != nil {
		p.logger.Error("panel.upload.failed", "file", file.Name, "error", err)
		return errorRecord(err.Error()), true
	}
	if isNull(body) {
		return nil, false
	}
	return body, false
}

// Artifact serializes the current result for download.
func (p *Panel) Artifact() (*models.Artifact, error) {
	p.mu.Lock()
	result := p.result
	p.mu.Unlock()

	if result == nil {
		return nil, ErrNoResult
	}
	content, err := Pretty(result)
	if err != nil {
		return nil, fmt.Errorf("format result: %w", err)
	}
	return &models.Artifact{
		Name:     models.ArtifactName,
		MIMEType: models.ArtifactMIMEType,
		Content:  content,
	}, nil
}

// Download hands the serialized result to sink.
func (p *Panel) Download(sink ArtifactSink) error {
	a, err := p.Artifact()
	if err != nil {
		return err
	}
	return sink.Save(a)
}

// SelectedFile returns the current selection, or nil.
func (p *Panel) SelectedFile() *models.File {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file
}

// Result returns the raw result, or nil when there is none.
func (p *Panel) Result() json.RawMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Loading reports whether an upload is in flight.
func (p *Panel) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Watched reports whether any subscriber is attached.
func (p *Panel) Watched() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers) > 0
}

// View returns a render snapshot.
func (p *Panel) View() models.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

// Subscribe streams a snapshot after every state change. The returned
// function unsubscribes and closes the channel. Slow readers lose the
// oldest pending snapshots.
func (p *Panel) Subscribe() (<-chan models.View, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSubID
	p.nextSubID++
	ch := make(chan models.View, subscriberBuffer)
	p.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subscribers, id)
			close(ch)
		})
	}
}

func (p *Panel) publishLocked() {
	if len(p.subscribers) == 0 {
		return
	}
	v := p.viewLocked()
	for _, ch := range p.subscribers {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

func (p *Panel) viewLocked() models.View {
	v := models.View{
		DragActive:        p.dragActive,
		Loading:           p.loading,
		UploadLabel:       models.UploadLabelIdle,
		UploadEnabled:     !p.loading,
		DownloadAvailable: p.result != nil,
		Output:            Render(p.result),
	}
	if p.file != nil {
		v.FileName = p.file.Name
	}
	if p.loading {
		v.UploadLabel = models.UploadLabelLoading
	}
	if p.result != nil {
		v.Outcome = models.OutcomeSuccess
		if p.resultIsError {
			v.Outcome = models.OutcomeError
		}
	}

	switch {
	case p.loading:
		v.Phase = models.PhaseUploading
	case p.result != nil:
		v.Phase = models.PhaseResolved
	case p.file != nil:
		v.Phase = models.PhaseFileSelected
	default:
		v.Phase = models.PhaseIdle
	}
	return v
}
