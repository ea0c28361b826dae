package main

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/smart-extractor/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0644))
	return path
}

func TestRun_DownloadsResult(t *testing.T) {
	svc := testutil.NewFakeExtractionService(t, http.StatusOK, `{"total":3}`)
	out := t.TempDir()

	code := run([]string{"-endpoint", svc.Endpoint(), "-o", out, "-download", writeInput(t)})
	assert.Equal(t, 0, code)

	data, err := os.ReadFile(filepath.Join(out, "extracted.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"total\": 3\n}", string(data))

	uploads := svc.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "invoice.pdf", uploads[0].FileName)
	assert.Equal(t, "application/pdf", uploads[0].ContentType)
}

func TestRun_ServiceErrorExitsNonZero(t *testing.T) {
	svc := testutil.NewFakeExtractionService(t, http.StatusUnprocessableEntity, `{"error":"unreadable"}`)
	out := t.TempDir()

	code := run([]string{"-endpoint", svc.Endpoint(), "-o", out, "-download", writeInput(t)})
	assert.Equal(t, 1, code)

	data, err := os.ReadFile(filepath.Join(out, "extracted.json"))
	require.NoError(t, err, "error records are downloadable too")
	assert.Equal(t, "{\n  \"error\": \"unreadable\"\n}", string(data))
}

func TestRun_NoFile(t *testing.T) {
	svc := testutil.NewFakeExtractionService(t, http.StatusOK, `{}`)

	code := run([]string{"-endpoint", svc.Endpoint()})
	assert.Equal(t, 2, code)
	assert.Equal(t, 0, svc.RequestCount())
}

func TestRun_MissingFile(t *testing.T) {
	svc := testutil.NewFakeExtractionService(t, http.StatusOK, `{}`)

	code := run([]string{"-endpoint", svc.Endpoint(), filepath.Join(t.TempDir(), "nope.pdf")})
	assert.Equal(t, 1, code)
	assert.Equal(t, 0, svc.RequestCount())
}
