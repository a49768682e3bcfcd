package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"insulin-calc/internal/calculator"
	"insulin-calc/internal/files"
	"insulin-calc/internal/history"
	"insulin-calc/internal/notify"
	"insulin-calc/internal/permissions"
	"insulin-calc/internal/pipeline"
	"insulin-calc/internal/report"
	"insulin-calc/internal/share"
)

// Export stage names reported through ExportError.
const (
	StageReport = "report"
	StageSave   = "save"
	StageCSV    = "csv"
	StageShare  = "share"
)

var shareRequest = share.Request{
	Title:       "Save PDF",
	Text:        "Save your insulin dosage history",
	DialogTitle: "Save PDF to Files",
}

// ExportRequest selects what to export.
type ExportRequest struct {
	RangeDays int
	// NoShare skips handing the file to the desktop for this export.
	NoShare bool
	// CSVPath, when set, also writes the exported entries as CSV.
	CSVPath string
}

// ExportResult describes a finished export.
type ExportResult struct {
	ID        string
	Document  *report.Document
	Saved     files.Saved
	Entries   int
	RangeDays int
	CSVPath   string
}

// Export renders the entries of the selected range to a PDF, saves it and
// shares it. Only one export runs at a time; a concurrent call returns
// ErrExportInProgress immediately.
func (s *Service) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if !s.exports.TryAcquire(1) {
		s.logger.Debug().Msg("export already running; request ignored")
		return nil, ErrExportInProgress
	}
	defer s.exports.Release(1)

	if err := s.checkRange(req.RangeDays); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := s.logger.With().Str("export_id", id).Int("range_days", req.RangeDays).Logger()

	all := s.history.All(ctx)
	if len(all) == 0 {
		s.status(ctx, notify.Error, "No history to export", notify.Short)
		return nil, ErrNoHistory
	}

	if s.opts.CheckPermissions && s.perms != nil {
		res := s.perms.Ensure(ctx, true)
		if !res.Granted {
			message := permissions.ErrorMessage(res.State)
			if res.State == permissions.Denied {
				message += "\n\n" + permissions.SettingsGuidance
			}
			logger.Warn().Str("state", string(res.State)).Msg("export blocked by storage permission")
			s.status(ctx, notify.Error, message, notify.Permission)
			return nil, &PermissionError{State: res.State, Message: message}
		}
	}

	filtered := s.history.Filter(all, req.RangeDays)
	if len(filtered) == 0 {
		s.status(ctx, notify.Error, fmt.Sprintf("No data in the last %d days", req.RangeDays), notify.Short)
		return nil, fmt.Errorf("%w: last %d days", ErrNoData, req.RangeDays)
	}

	result := &ExportResult{ID: id, Entries: len(filtered), RangeDays: req.RangeDays}
	steps := []pipeline.Step{
		{Name: StageReport, Run: func(ctx context.Context) error {
			doc, err := s.reports.Build(ctx, filtered, req.RangeDays)
			if err != nil {
				return err
			}
			result.Document = doc
			return nil
		}},
		{Name: StageSave, Run: func(ctx context.Context) error {
			saved, err := s.files.Write(ctx, result.Document.FileName, result.Document.Data)
			if err != nil {
				return err
			}
			result.Saved = saved
			return nil
		}},
	}
	if req.CSVPath != "" {
		steps = append(steps, pipeline.Step{Name: StageCSV, Run: func(context.Context) error {
			if err := writeHistoryCSV(s.fs, req.CSVPath, filtered); err != nil {
				return err
			}
			result.CSVPath = req.CSVPath
			return nil
		}})
	}
	if s.opts.Share && !req.NoShare && s.sharer != nil {
		steps = append(steps, pipeline.Step{Name: StageShare, Run: func(ctx context.Context) error {
			r := shareRequest
			r.Path = result.Saved.Path
			return s.sharer.Share(ctx, r)
		}})
	}

	logger.Info().Int("entries", len(filtered)).Msg("export started")
	if err := pipeline.New(pipeline.Options{}, logger).Run(ctx, steps...); err != nil {
		exportErr := asExportError(err)
		logger.Error().Err(exportErr.Err).Str("stage", exportErr.Stage).Msg("export failed")
		s.status(ctx, notify.Error, exportFailureMessage(exportErr.Err), notify.Medium)
		return nil, exportErr
	}

	logger.Info().
		Str("path", result.Saved.Path).
		Bool("fallback", result.Saved.Fallback).
		Msg("export finished")
	s.status(ctx, notify.Success,
		fmt.Sprintf("PDF exported successfully! (%d entries from last %d days)", len(filtered), req.RangeDays),
		notify.Medium)
	return result, nil
}

func asExportError(err error) *ExportError {
	var stepErr *pipeline.StepError
	if errors.As(err, &stepErr) {
		return &ExportError{Stage: stepErr.Step, Err: stepErr.Err}
	}
	return &ExportError{Stage: "unknown", Err: err}
}

// exportFailureMessage maps an export failure to the message shown to the
// user.
func exportFailureMessage(err error) string {
	text := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, os.ErrPermission) || strings.Contains(text, "permission"):
		return "Permission denied. Please grant storage access in settings."
	case errors.Is(err, share.ErrShareFailed) || strings.Contains(text, "share"):
		return "Could not share file. Please try again."
	default:
		return "Export failed: " + err.Error()
	}
}

var csvHeader = []string{
	"timestamp", "current_bg", "target_bg", "carbs", "carb_ratio", "correction_factor",
	"unit", "correction_dose", "carb_dose", "total_dose",
}

// writeHistoryCSV writes items oldest first.
func writeHistoryCSV(fs afero.Fs, path string, items []history.Item) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	file, err := fs.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	chronological := slices.Clone(items)
	slices.Reverse(chronological)
	for _, item := range chronological {
		record := []string{
			item.Timestamp.UTC().Format(time.RFC3339),
			calculator.FormatValue(item.Inputs.CurrentBG),
			calculator.FormatValue(item.Inputs.TargetBG),
			calculator.FormatValue(item.Inputs.Carbs),
			calculator.FormatValue(item.Inputs.CarbRatio),
			calculator.FormatValue(item.Inputs.CorrectionFactor),
			string(item.Inputs.Unit),
			calculator.FormatDose(item.Result.CorrectionDose),
			calculator.FormatDose(item.Result.CarbDose),
			calculator.FormatDose(item.Result.TotalDose),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}
