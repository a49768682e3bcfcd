package service

import (
	"errors"
	"fmt"

	"insulin-calc/internal/permissions"
)

var (
	// ErrExportInProgress is returned when an export is requested while one
	// is still running. The request is dropped, not queued.
	ErrExportInProgress = errors.New("export already in progress")
	// ErrNoHistory is returned when there is nothing stored to export.
	ErrNoHistory = errors.New("no history to export")
	// ErrNoData is returned when the selected range holds no entries.
	ErrNoData = errors.New("no data in selected range")
	// ErrInvalidRange is returned for a day count outside the allowed set.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrPermissionDenied matches every *PermissionError.
	ErrPermissionDenied = errors.New("storage permission not granted")
)

// PermissionError reports that export was blocked before any work started.
type PermissionError struct {
	State   permissions.State
	Message string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("storage permission %s: %s", e.State, e.Message)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// ExportError reports the stage at which an export failed.
type ExportError struct {
	Stage string
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Stage, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
