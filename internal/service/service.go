// Package service orchestrates dose calculation, history and report export.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/semaphore"

	"insulin-calc/internal/calculator"
	"insulin-calc/internal/files"
	"insulin-calc/internal/history"
	"insulin-calc/internal/notify"
	"insulin-calc/internal/permissions"
	"insulin-calc/internal/report"
	"insulin-calc/internal/settings"
	"insulin-calc/internal/share"
)

// HistoryStore is the subset of *history.Store the service uses.
type HistoryStore interface {
	Append(ctx context.Context, inputs calculator.Inputs, result calculator.Result) ([]history.Item, error)
	All(ctx context.Context) []history.Item
	Clear(ctx context.Context) []history.Item
	Filter(items []history.Item, days int) []history.Item
}

// SettingsStore is the subset of *settings.Store the service uses.
type SettingsStore interface {
	Save(ctx context.Context, s settings.Settings)
	Load(ctx context.Context) (settings.Settings, bool)
}

// ReportBuilder renders a report document.
type ReportBuilder interface {
	Build(ctx context.Context, items []history.Item, rangeDays int) (*report.Document, error)
}

// FileWriter persists an exported document.
type FileWriter interface {
	Write(ctx context.Context, name string, data []byte) (files.Saved, error)
}

// PermissionChecker gates export on storage access.
type PermissionChecker interface {
	Ensure(ctx context.Context, autoRequest bool) permissions.Result
}

// Deps are the collaborators of a Service.
type Deps struct {
	History     HistoryStore
	Settings    SettingsStore
	Reports     ReportBuilder
	Files       FileWriter
	Permissions PermissionChecker
	Sharer      share.Sharer
	Notifier    notify.Notifier
	// Fs receives CSV companions; defaults to the OS filesystem.
	Fs afero.Fs
}

// Options tune service behaviour.
type Options struct {
	AllowedRanges    []int
	CheckPermissions bool
	Share            bool
}

// Service is the calculator's orchestrator.
type Service struct {
	history  HistoryStore
	settings SettingsStore
	reports  ReportBuilder
	files    FileWriter
	perms    PermissionChecker
	sharer   share.Sharer
	notifier notify.Notifier
	fs       afero.Fs
	opts     Options
	exports  *semaphore.Weighted
	logger   zerolog.Logger
}

// New constructs the service.
func New(deps Deps, opts Options, logger zerolog.Logger) *Service {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	return &Service{
		history:  deps.History,
		settings: deps.Settings,
		reports:  deps.Reports,
		files:    deps.Files,
		perms:    deps.Permissions,
		sharer:   deps.Sharer,
		notifier: deps.Notifier,
		fs:       deps.Fs,
		opts:     opts,
		exports:  semaphore.NewWeighted(1),
		logger:   logger.With().Str("component", "service").Logger(),
	}
}

// Calculation is a computed dose and the history after recording it.
type Calculation struct {
	Inputs  calculator.Inputs
	Result  calculator.Result
	History []history.Item
}

// Calculate fills blank fields from saved settings, computes the dose and
// records it. Invalid input yields (nil, nil): nothing is computed or stored.
// When the history write fails the calculation is still returned alongside
// the error.
func (s *Service) Calculate(ctx context.Context, raw calculator.RawInputs) (*Calculation, error) {
	if saved, ok := s.settings.Load(ctx); ok {
		raw = saved.Apply(raw)
	}

	inputs, err := raw.Parse()
	if err != nil {
		s.logger.Debug().Err(err).Msg("calculation skipped")
		return nil, nil
	}
	s.settings.Save(ctx, settings.FromInputs(inputs))

	result, err := calculator.Compute(inputs)
	if err != nil {
		s.logger.Debug().Err(err).Msg("calculation skipped")
		return nil, nil
	}

	calc := &Calculation{Inputs: inputs, Result: result}
	items, err := s.history.Append(ctx, inputs, result)
	if err != nil {
		s.logger.Error().Err(err).Str("outcome", history.OutcomeOf(err).String()).Msg("calculation not saved")
		s.status(ctx, notify.Error, saveFailureMessage(err), notify.Medium)
		return calc, err
	}
	calc.History = items

	s.logger.Info().
		Str("total", calculator.FormatDose(result.TotalDose)).
		Int("history", len(items)).
		Msg("calculation recorded")
	return calc, nil
}

// HistoryView is the history filtered to a range.
type HistoryView struct {
	Items     []history.Item
	Total     int
	RangeDays int
}

// History returns the entries of the last days days, newest first.
func (s *Service) History(ctx context.Context, days int) (HistoryView, error) {
	if err := s.checkRange(days); err != nil {
		return HistoryView{}, err
	}
	all := s.history.All(ctx)
	return HistoryView{
		Items:     s.history.Filter(all, days),
		Total:     len(all),
		RangeDays: days,
	}, nil
}

// ClearHistory removes every entry.
func (s *Service) ClearHistory(ctx context.Context) {
	s.history.Clear(ctx)
	s.logger.Info().Msg("history cleared")
	s.status(ctx, notify.Success, "History cleared", notify.Short)
}

// Settings returns the saved settings.
func (s *Service) Settings(ctx context.Context) (settings.Settings, bool) {
	return s.settings.Load(ctx)
}

// SaveSettings overwrites the saved settings.
func (s *Service) SaveSettings(ctx context.Context, st settings.Settings) {
	s.settings.Save(ctx, st)
}

// RequestPermission asks for storage access and reports the outcome.
func (s *Service) RequestPermission(ctx context.Context) permissions.Result {
	if !s.opts.CheckPermissions || s.perms == nil {
		return permissions.Result{Granted: true, State: permissions.Granted}
	}
	res := s.perms.Ensure(ctx, true)
	if res.Granted {
		s.status(ctx, notify.Success, "Storage permission granted!", notify.Short)
		return res
	}
	s.status(ctx, notify.Error, "Permission denied. "+permissions.SettingsGuidance, notify.Permission)
	return res
}

func (s *Service) checkRange(days int) error {
	if len(s.opts.AllowedRanges) > 0 && !slices.Contains(s.opts.AllowedRanges, days) {
		return fmt.Errorf("%w: %d days (allowed %v)", ErrInvalidRange, days, s.opts.AllowedRanges)
	}
	if days <= 0 {
		return fmt.Errorf("%w: %d days", ErrInvalidRange, days)
	}
	return nil
}

func (s *Service) status(ctx context.Context, kind notify.Kind, message string, timeout time.Duration) {
	if err := s.notifier.Notify(ctx, notify.Notification{Kind: kind, Message: message, Timeout: timeout}); err != nil {
		s.logger.Warn().Err(err).Msg("status message not delivered")
	}
}

func saveFailureMessage(err error) string {
	switch {
	case errors.Is(err, history.ErrHistoryTrimmed):
		return "Storage quota exceeded. Older history items were removed."
	case errors.Is(err, history.ErrStorageFull):
		return "Unable to save: storage is full. Please clear some history."
	default:
		return "Failed to save calculation. Please try clearing old history."
	}
}
