package files

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// primaryFailFs rejects writes beneath one directory.
type primaryFailFs struct {
	afero.Fs
	blocked string
}

func (f primaryFailFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if len(name) >= len(f.blocked) && name[:len(f.blocked)] == f.blocked {
		return nil, os.ErrPermission
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func TestWritePrimary(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, "/docs", "/cache", zerolog.Nop())

	saved, err := w.Write(context.Background(), "insulin_history_2024-03-31.pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)
	assert.Equal(t, Saved{Path: "/docs/insulin_history_2024-03-31.pdf", Dir: "/docs"}, saved)

	data, err := afero.ReadFile(fs, saved.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))
}

func TestWriteFallsBack(t *testing.T) {
	fs := primaryFailFs{Fs: afero.NewMemMapFs(), blocked: "/docs"}
	w := NewWriter(fs, "/docs", "/cache", zerolog.Nop())

	saved, err := w.Write(context.Background(), "report.pdf", []byte("pdf"))
	require.NoError(t, err)
	assert.True(t, saved.Fallback)
	assert.Equal(t, "/cache/report.pdf", saved.Path)

	exists, err := afero.Exists(fs, "/docs/report.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWriteBothFail(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	w := NewWriter(fs, "/docs", "/cache", zerolog.Nop())

	_, err := w.Write(context.Background(), "report.pdf", []byte("pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/docs")
	assert.Contains(t, err.Error(), "/cache")
}

func TestWriteNoDirectory(t *testing.T) {
	_, err := NewWriter(afero.NewMemMapFs(), "", "", zerolog.Nop()).Write(context.Background(), "r.pdf", nil)
	assert.ErrorIs(t, err, ErrNoDirectory)
}

func TestWriteOnlyFallbackConfigured(t *testing.T) {
	w := NewWriter(afero.NewMemMapFs(), "", "/cache", zerolog.Nop())
	saved, err := w.Write(context.Background(), "../r.pdf", []byte("x"))
	require.NoError(t, err)
	assert.False(t, saved.Fallback)
	assert.Equal(t, "/cache/r.pdf", saved.Path)
}
