package docservice

import (
	"testing"

	"github.com/starford/mdstrip/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func TestSaveAsset(t *testing.T) {
	svc, store := newTestService(t)

	asset, err := svc.SaveAsset("assets", "diagram.png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "assets/diagram.png", asset.Path)
	assert.Equal(t, "![diagram](assets/diagram.png)", asset.MarkdownImage)
	assert.True(t, store.Exists("assets/diagram.png"))

	_, err = svc.SaveAsset("assets", "diagram.png", pngHeader)
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestSaveAsset_Rejects(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SaveAsset("assets", "notes.txt", []byte("hello"))
	assert.Error(t, err)

	_, err = svc.SaveAsset("assets", "fake.png", []byte("not an image"))
	assert.Error(t, err)

	_, err = svc.SaveAsset("assets", "x.svg", []byte("<html></html>"))
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "my_file.png", SanitizeFilename("my file.png"))
	assert.Equal(t, "b.png", SanitizeFilename(`a\b.png`))
	assert.NotEmpty(t, SanitizeFilename(""))
}
