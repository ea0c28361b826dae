package download

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/smart-extractor/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func artifact(content string) *models.Artifact {
	return &models.Artifact{
		Name:     models.ArtifactName,
		MIMEType: models.ArtifactMIMEType,
		Content:  []byte(content),
	}
}

func TestFileSink_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink, err := NewFileSink(dir)
	require.NoError(t, err)

	require.NoError(t, sink.Save(artifact("{\n  \"a\": 1\n}")))

	assert.Equal(t, filepath.Join(dir, "extracted.json"), sink.Path)
	data, err := os.ReadFile(sink.Path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "extracted.json", entries[0].Name())
}

func TestFileSink_Overwrites(t *testing.T) {
	sink, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, sink.Save(artifact(`{"run":1}`)))
	require.NoError(t, sink.Save(artifact(`{"run":2}`)))

	data, err := os.ReadFile(sink.Path)
	require.NoError(t, err)
	assert.Equal(t, `{"run":2}`, string(data))
}

func TestFileSink_MissingDir(t *testing.T) {
	sink := &FileSink{Dir: filepath.Join(t.TempDir(), "gone")}
	err := sink.Save(artifact(`{}`))
	assert.Error(t, err)
	assert.Empty(t, sink.Path)
}

func TestWriterSink_Save(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriterSink{W: &buf}.Save(artifact(`{}`)))
	assert.Equal(t, "{}\n", buf.String())
}
