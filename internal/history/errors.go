package history

import (
	"errors"
	"fmt"
)

var (
	// ErrHistoryTrimmed means the new item was not saved but older items were
	// dropped to make room; the next save is likely to succeed.
	ErrHistoryTrimmed = errors.New("storage quota exceeded; older history items were removed")
	// ErrStorageFull means even the trimmed history could not be stored.
	ErrStorageFull = errors.New("unable to save: storage is full; please clear some history")
)

// Outcome classifies a write after quota recovery.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeDegraded
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// AppendError reports a quota failure and what recovery achieved.
type AppendError struct {
	Outcome Outcome
	Err     error
}

func (e *AppendError) Error() string {
	return e.sentinel().Error()
}

func (e *AppendError) sentinel() error {
	if e.Outcome == OutcomeDegraded {
		return ErrHistoryTrimmed
	}
	return ErrStorageFull
}

// Is matches ErrHistoryTrimmed or ErrStorageFull depending on the outcome.
func (e *AppendError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *AppendError) Unwrap() error {
	return e.Err
}

// OutcomeOf extracts the recovery outcome from an Append error.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var appendErr *AppendError
	if errors.As(err, &appendErr) {
		return appendErr.Outcome
	}
	return OutcomeFatal
}
