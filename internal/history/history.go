// Package history keeps the newest-first log of dose calculations.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"insulin-calc/internal/calculator"
	"insulin-calc/internal/storage"
)

const (
	// DefaultKey is the record key the history array is stored under.
	DefaultKey = "insulin_calc_history"
	// DefaultMaxItems caps the number of retained calculations.
	DefaultMaxItems = 1000
)

// Item is one persisted calculation.
type Item struct {
	ID        int64             `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Inputs    calculator.Inputs `json:"inputs"`
	Result    calculator.Result `json:"result"`
}

// Options parameterise a Store.
type Options struct {
	Key      string
	MaxItems int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Store appends to and reads the history record.
type Store struct {
	kv     storage.KV
	key    string
	max    int
	now    func() time.Time
	logger zerolog.Logger
}

// New constructs a Store over kv.
func New(kv storage.KV, opts Options, logger zerolog.Logger) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		kv:     kv,
		key:    opts.Key,
		max:    opts.MaxItems,
		now:    opts.Now,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// MaxItems reports the capacity.
func (s *Store) MaxItems() int {
	return s.max
}

// All returns the stored history, newest first. Missing or corrupt data
// yields an empty slice.
func (s *Store) All(ctx context.Context) []Item {
	payload, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error().Err(err).Msg("read history")
		}
		return []Item{}
	}

	var items []Item
	if err := json.Unmarshal(payload, &items); err != nil {
		s.logger.Warn().Err(err).Int("bytes", len(payload)).Msg("history payload unreadable; treating as empty")
		return []Item{}
	}
	if items == nil {
		return []Item{}
	}
	return items
}

// Append records a calculation at the front of the history and returns the
// updated sequence. When storage is full it trims the existing history to
// half capacity and reports the outcome through an *AppendError.
func (s *Store) Append(ctx context.Context, inputs calculator.Inputs, result calculator.Result) ([]Item, error) {
	existing := s.All(ctx)

	now := s.now().UTC().Truncate(time.Millisecond)
	id := now.UnixMilli()
	if len(existing) > 0 && id <= existing[0].ID {
		id = existing[0].ID + 1
	}

	item := Item{ID: id, Timestamp: now, Inputs: inputs, Result: result}

	updated := make([]Item, 0, min(len(existing)+1, s.max))
	updated = append(updated, item)
	updated = append(updated, existing...)
	if len(updated) > s.max {
		updated = updated[:s.max]
	}

	err := s.persist(ctx, updated)
	if err == nil {
		s.logger.Debug().Int64("id", id).Int("items", len(updated)).Msg("history item saved")
		return updated, nil
	}
	if !errors.Is(err, storage.ErrQuotaExceeded) {
		return nil, fmt.Errorf("save history item: %w", err)
	}

	s.logger.Warn().Err(err).Int("items", len(existing)).Msg("history write rejected by quota; trimming")
	outcome := s.recoverQuota(ctx, existing)
	return nil, &AppendError{Outcome: outcome, Err: err}
}

// recoverQuota keeps the newest half of the capacity and tries to store it.
// A history already at or below half capacity has nothing to give back, so
// that case is fatal and the stored record is left alone.
func (s *Store) recoverQuota(ctx context.Context, existing []Item) Outcome {
	keep := s.max / 2
	if len(existing) <= keep {
		s.logger.Error().Int("items", len(existing)).Int("keep", keep).Msg("history too small to trim; storage is full")
		return OutcomeFatal
	}
	existing = existing[:keep]
	if err := s.persist(ctx, existing); err != nil {
		s.logger.Error().Err(err).Int("items", len(existing)).Msg("history trim could not be stored")
		return OutcomeFatal
	}
	s.logger.Warn().Int("items", len(existing)).Msg("history trimmed to recover space")
	return OutcomeDegraded
}

// Clear removes all history. It never fails; errors are logged.
func (s *Store) Clear(ctx context.Context) []Item {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.logger.Error().Err(err).Msg("clear history")
	}
	return []Item{}
}

// Filter is FilterByRange against the store clock.
func (s *Store) Filter(items []Item, days int) []Item {
	return FilterByRange(items, days, s.now())
}

func (s *Store) persist(ctx context.Context, items []Item) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	return s.kv.Put(ctx, s.key, payload)
}
