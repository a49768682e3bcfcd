// Package files writes exported reports to disk.
package files

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// ErrNoDirectory is returned when neither directory is configured.
var ErrNoDirectory = errors.New("files: no output directory configured")

// Saved describes where a file landed.
type Saved struct {
	Path     string
	Dir      string
	Fallback bool
}

// Writer stores files in a primary directory, retrying in a fallback
// directory when the primary write fails.
type Writer struct {
	fs       afero.Fs
	primary  string
	fallback string
	logger   zerolog.Logger
}

// NewWriter constructs a Writer. Either directory may be empty.
func NewWriter(fs afero.Fs, primary, fallback string, logger zerolog.Logger) *Writer {
	return &Writer{
		fs:       fs,
		primary:  primary,
		fallback: fallback,
		logger:   logger.With().Str("component", "files").Logger(),
	}
}

// Write stores data under name.
func (w *Writer) Write(ctx context.Context, name string, data []byte) (Saved, error) {
	if err := ctx.Err(); err != nil {
		return Saved{}, err
	}
	if w.primary == "" && w.fallback == "" {
		return Saved{}, ErrNoDirectory
	}

	var primaryErr error
	if w.primary != "" {
		path, err := w.writeIn(w.primary, name, data)
		if err == nil {
			w.logger.Info().Str("path", path).Int("bytes", len(data)).Msg("file saved")
			return Saved{Path: path, Dir: w.primary}, nil
		}
		primaryErr = err
		w.logger.Warn().Err(err).Str("dir", w.primary).Msg("could not save to primary directory; trying fallback")
	}

	if w.fallback == "" {
		return Saved{}, primaryErr
	}
	path, err := w.writeIn(w.fallback, name, data)
	if err != nil {
		return Saved{}, errors.Join(primaryErr, err)
	}
	w.logger.Info().Str("path", path).Int("bytes", len(data)).Msg("file saved to fallback directory")
	return Saved{Path: path, Dir: w.fallback, Fallback: w.primary != ""}, nil
}

func (w *Writer) writeIn(dir, name string, data []byte) (string, error) {
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := afero.WriteFile(w.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
