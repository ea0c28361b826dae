// Package filesource turns files from disk or from a browser form into
// panel file handles. No type validation is applied; the content type is
// only a label for the upload part.
package filesource

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/smart-extractor/backend/internal/models"
)

const octetStream = "application/octet-stream"

// FromPath reads the file at path.
func FromPath(path string) (*models.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return FromBytes(filepath.Base(path), data, ""), nil
}

// FromReader reads r fully into a file handle.
func FromReader(name string, r io.Reader) (*models.File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return FromBytes(name, data, ""), nil
}

// FromBytes wraps data. A missing or generic content type is sniffed.
func FromBytes(name string, data []byte, contentType string) *models.File {
	if contentType == "" || contentType == octetStream {
		contentType = mimetype.Detect(data).String()
	}
	return &models.File{
		Name:        name,
		ContentType: contentType,
		Content:     data,
	}
}

// FromMultipart opens every file header in order.
func FromMultipart(headers []*multipart.FileHeader) ([]*models.File, error) {
	files := make([]*models.File, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", fh.Filename, err)
		}
		files = append(files, FromBytes(fh.Filename, data, fh.Header.Get("Content-Type")))
	}
	return files, nil
}
