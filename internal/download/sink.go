// Package download writes panel artifacts to disk.
package download

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/smart-extractor/backend/internal/models"
)

// FileSink saves artifacts into Dir under their own name.
type FileSink struct {
	Dir string

	// Path of the last saved artifact.
	Path string
}

// NewFileSink creates a sink writing into dir, creating it if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}
	return &FileSink{Dir: dir}, nil
}

// Save replaces Dir/<name> atomically: the content goes to a temp file
// in the same directory that is renamed over the destination.
func (s *FileSink) Save(a *models.Artifact) error {
	dest := filepath.Join(s.Dir, filepath.Base(a.Name))
	if err := atomic.WriteFile(dest, bytes.NewReader(a.Content)); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	s.Path = dest
	return nil
}

// WriterSink streams artifacts to an io.Writer, e.g. stdout.
type WriterSink struct {
	W io.Writer
}

// Save writes the artifact content followed by a newline.
func (s WriterSink) Save(a *models.Artifact) error {
	if _, err := s.W.Write(a.Content); err != nil {
		return err
	}
	_, err := io.WriteString(s.W, "\n")
	return err
}
