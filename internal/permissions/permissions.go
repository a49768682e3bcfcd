// Package permissions decides whether reports may be written to the export
// directory.
package permissions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// State mirrors the storage permission states of mobile platforms.
type State string

const (
	Granted             State = "granted"
	Denied              State = "denied"
	Prompt              State = "prompt"
	PromptWithRationale State = "prompt-with-rationale"
	Limited             State = "limited"
)

const probeName = ".insulin-calc-probe"

// Result is the outcome of Ensure.
type Result struct {
	Granted             bool
	State               State
	ShouldShowRationale bool
}

// Checker probes a directory for write access.
type Checker struct {
	fs     afero.Fs
	dir    string
	logger zerolog.Logger
}

// NewChecker constructs a Checker for dir on fs.
func NewChecker(fs afero.Fs, dir string, logger zerolog.Logger) *Checker {
	return &Checker{fs: fs, dir: dir, logger: logger.With().Str("component", "permissions").Logger()}
}

// Check reports the current state without changing anything. A directory that
// does not exist yet is Prompt.
func (c *Checker) Check(ctx context.Context) State {
	if err := ctx.Err(); err != nil {
		return Prompt
	}
	info, err := c.fs.Stat(c.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn().Err(err).Str("dir", c.dir).Msg("stat export dir")
		}
		return Prompt
	}
	if !info.IsDir() {
		return Denied
	}
	if err := c.probe(); err != nil {
		c.logger.Debug().Err(err).Str("dir", c.dir).Msg("export dir not writable")
		return Denied
	}
	return Granted
}

// Request creates the directory when missing and verifies it is writable.
func (c *Checker) Request(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Result{State: Denied}
	}
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		c.logger.Warn().Err(err).Str("dir", c.dir).Msg("create export dir")
		return Result{State: Denied}
	}
	if err := c.probe(); err != nil {
		c.logger.Warn().Err(err).Str("dir", c.dir).Msg("export dir not writable")
		return Result{State: Denied}
	}
	return Result{Granted: true, State: Granted}
}

// Ensure checks and, when autoRequest is set and access is not yet granted,
// requests it.
func (c *Checker) Ensure(ctx context.Context, autoRequest bool) Result {
	state := c.Check(ctx)
	if state == Granted {
		return Result{Granted: true, State: state}
	}
	if !autoRequest {
		return Result{State: state, ShouldShowRationale: state == PromptWithRationale}
	}
	res := c.Request(ctx)
	res.ShouldShowRationale = res.State == PromptWithRationale
	c.logger.Debug().Str("state", string(res.State)).Bool("granted", res.Granted).Msg("storage permission requested")
	return res
}

func (c *Checker) probe() error {
	path := filepath.Join(c.dir, probeName)
	f, err := c.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("probe %s: %w", c.dir, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return c.fs.Remove(path)
}

// ErrorMessage is the user-facing explanation for a state that blocks export.
func ErrorMessage(state State) string {
	switch state {
	case Denied:
		return "Storage permission denied. Please enable it in your device settings to save files."
	case PromptWithRationale:
		return "Storage permission is needed to save PDF files to your device."
	case Limited:
		return "Limited storage access. Some features may not work properly."
	default:
		return "Unable to access storage. Please check your device settings."
	}
}

// SettingsGuidance is appended to the message for a permanent denial.
const SettingsGuidance = "To enable: make the export directory writable or set export.primary_dir to a writable location."
