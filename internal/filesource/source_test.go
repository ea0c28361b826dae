package filesource

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func TestFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, pdfBytes, 0644))

	f, err := FromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", f.Name)
	assert.Equal(t, "application/pdf", f.ContentType)
	assert.Equal(t, pdfBytes, f.Content)
	assert.Equal(t, int64(len(pdfBytes)), f.Size())
}

func TestFromPath_Missing(t *testing.T) {
	_, err := FromPath(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestFromBytes_KeepsGivenType(t *testing.T) {
	f := FromBytes("scan.png", []byte("not really a png"), "image/png")
	assert.Equal(t, "image/png", f.ContentType)

	f = FromBytes("notes.txt", []byte("plain words"), "application/octet-stream")
	assert.True(t, strings.HasPrefix(f.ContentType, "text/plain"), f.ContentType)
}

func TestFromReader(t *testing.T) {
	f, err := FromReader("a.pdf", bytes.NewReader(pdfBytes))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.ContentType)
}

func TestFromMultipart(t *testing.T) {
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="files"; filename="first.png"`)
	h.Set("Content-Type", "image/png")
	part, _ := w.CreatePart(h)
	part.Write([]byte("png-ish"))

	part, _ = w.CreateFormFile("files", "second.pdf")
	part.Write(pdfBytes)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	files, err := FromMultipart(req.MultipartForm.File["files"])
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "first.png", files[0].Name)
	assert.Equal(t, "image/png", files[0].ContentType)
	assert.Equal(t, "second.pdf", files[1].Name)
	assert.Equal(t, "application/pdf", files[1].ContentType)
}

func TestFromMultipart_Empty(t *testing.T) {
	files, err := FromMultipart(nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}
