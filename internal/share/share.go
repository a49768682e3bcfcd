// Package share hands an exported file to the desktop.
package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

// ErrShareFailed wraps failures of the platform handler.
var ErrShareFailed = errors.New("share failed")

// Request describes a file to share.
type Request struct {
	Title       string
	Text        string
	DialogTitle string
	Path        string
}

// Sharer presents a saved file to the user.
type Sharer interface {
	Share(ctx context.Context, req Request) error
}

// DesktopSharer opens the file with the default application.
type DesktopSharer struct {
	open   func(path string) error
	logger zerolog.Logger
}

// NewDesktopSharer constructs a DesktopSharer.
func NewDesktopSharer(logger zerolog.Logger) *DesktopSharer {
	return &DesktopSharer{
		open:   browser.OpenFile,
		logger: logger.With().Str("component", "share").Logger(),
	}
}

// Share opens req.Path.
func (s *DesktopSharer) Share(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.Path == "" {
		return fmt.Errorf("%w: no file to share", ErrShareFailed)
	}
	if err := s.open(req.Path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrShareFailed, req.Path, err)
	}
	s.logger.Info().Str("path", req.Path).Str("dialog", req.DialogTitle).Msg(req.Text)
	return nil
}

// LogSharer only records where the file went; used when sharing is disabled.
type LogSharer struct {
	logger zerolog.Logger
}

// NewLogSharer constructs a LogSharer.
func NewLogSharer(logger zerolog.Logger) *LogSharer {
	return &LogSharer{logger: logger.With().Str("component", "share").Logger()}
}

// Share logs req.Path.
func (s *LogSharer) Share(_ context.Context, req Request) error {
	s.logger.Debug().Str("path", req.Path).Msg("sharing disabled; file left in place")
	return nil
}

var (
	_ Sharer = (*DesktopSharer)(nil)
	_ Sharer = (*LogSharer)(nil)
)
