// Package settings persists the last used calculator parameters.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"insulin-calc/internal/calculator"
	"insulin-calc/internal/storage"
)

// DefaultKey is the record key settings are stored under.
const DefaultKey = "insulin_calc_settings"

// Settings are the last used unit and patient ratios. A zero field was never
// saved and is not stored.
type Settings struct {
	Unit             calculator.Unit `json:"unit,omitempty"`
	TargetBG         float64         `json:"targetBG,omitempty"`
	CarbRatio        float64         `json:"carbRatio,omitempty"`
	CorrectionFactor float64         `json:"correctionFactor,omitempty"`
}

// FromInputs takes the persisted subset of a calculation.
func FromInputs(in calculator.Inputs) Settings {
	return Settings{
		Unit:             in.Unit,
		TargetBG:         in.TargetBG,
		CarbRatio:        in.CarbRatio,
		CorrectionFactor: in.CorrectionFactor,
	}
}

// Apply fills blank fields of raw with the saved values. Fields without a
// saved value stay blank, so the calculation remains incomplete.
func (s Settings) Apply(raw calculator.RawInputs) calculator.RawInputs {
	raw.TargetBG = fill(raw.TargetBG, s.TargetBG)
	raw.CarbRatio = fill(raw.CarbRatio, s.CarbRatio)
	raw.CorrectionFactor = fill(raw.CorrectionFactor, s.CorrectionFactor)
	if raw.Unit == "" {
		raw.Unit = s.Unit
	}
	return raw
}

func fill(raw string, saved float64) string {
	if strings.TrimSpace(raw) != "" || !(saved > 0) {
		return raw
	}
	return calculator.FormatValue(saved)
}

// Store reads and writes the settings record.
type Store struct {
	kv     storage.KV
	key    string
	logger zerolog.Logger
}

// New constructs a Store. An empty key selects DefaultKey.
func New(kv storage.KV, key string, logger zerolog.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		kv:     kv,
		key:    key,
		logger: logger.With().Str("component", "settings").Logger(),
	}
}

// Save overwrites the record. Failures are logged, never returned.
func (s *Store) Save(ctx context.Context, settings Settings) {
	payload, err := json.Marshal(settings)
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal settings")
		return
	}
	if err := s.kv.Put(ctx, s.key, payload); err != nil {
		s.logger.Error().Err(err).Msg("save settings")
	}
}

// Load returns the saved settings, or false when none are stored or the
// record is unreadable.
func (s *Store) Load(ctx context.Context) (Settings, bool) {
	payload, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error().Err(err).Msg("read settings")
		}
		return Settings{}, false
	}

	var settings Settings
	if err := json.Unmarshal(payload, &settings); err != nil {
		s.logger.Warn().Err(err).Msg("settings payload unreadable; ignoring")
		return Settings{}, false
	}
	return settings, true
}
