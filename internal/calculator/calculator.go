// Package calculator computes bolus insulin doses from glucose and carbohydrate
// inputs. Everything here is pure.
package calculator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned when an input field is missing, non-numeric,
// non-finite, or a divisor is zero.
var ErrInvalidInput = errors.New("invalid dose input")

// Unit is the glucose unit the values were entered in.
type Unit string

const (
	UnitMgdl Unit = "mg/dL"
	UnitMmol Unit = "mmol/L"
)

// ParseUnit accepts the display form and common shorthands.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mg/dl", "mgdl":
		return UnitMgdl, nil
	case "mmol/l", "mmol":
		return UnitMmol, nil
	}
	return "", fmt.Errorf("unknown glucose unit %q", s)
}

// Inputs are the parsed calculator fields.
type Inputs struct {
	CurrentBG        float64 `json:"currentBG"`
	TargetBG         float64 `json:"targetBG"`
	Carbs            float64 `json:"carbs"`
	CarbRatio        float64 `json:"carbRatio"`
	CorrectionFactor float64 `json:"correctionFactor"`
	Unit             Unit    `json:"unit"`
}

// RawInputs are the fields as typed by the user.
type RawInputs struct {
	CurrentBG        string
	TargetBG         string
	Carbs            string
	CarbRatio        string
	CorrectionFactor string
	Unit             Unit
}

// Result is a dose breakdown in insulin units.
type Result struct {
	CorrectionDose float64 `json:"correctionDose"`
	CarbDose       float64 `json:"carbDose"`
	TotalDose      float64 `json:"totalDose"`
}

// Parse converts every field to a finite number.
func (r RawInputs) Parse() (Inputs, error) {
	in := Inputs{Unit: r.Unit}
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"currentBG", r.CurrentBG, &in.CurrentBG},
		{"targetBG", r.TargetBG, &in.TargetBG},
		{"carbs", r.Carbs, &in.Carbs},
		{"carbRatio", r.CarbRatio, &in.CarbRatio},
		{"correctionFactor", r.CorrectionFactor, &in.CorrectionFactor},
	}

	for _, f := range fields {
		v, err := parseNumber(f.raw)
		if err != nil {
			return Inputs{}, fmt.Errorf("%w: %s: %v", ErrInvalidInput, f.name, err)
		}
		*f.dst = v
	}
	if in.Unit == "" {
		in.Unit = UnitMgdl
	}
	return in, nil
}

func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errors.New("empty")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	if !isFinite(v) {
		return 0, fmt.Errorf("not finite: %q", raw)
	}
	return v, nil
}

// Compute applies the dose formula:
//
//	correction = max(0, (current - target) / correctionFactor)
//	carb       = max(0, carbs / carbRatio)
//	total      = max(0, correction + carb)
func Compute(in Inputs) (Result, error) {
	for _, v := range []float64{in.CurrentBG, in.TargetBG, in.Carbs, in.CarbRatio, in.CorrectionFactor} {
		if !isFinite(v) {
			return Result{}, ErrInvalidInput
		}
	}
	if in.CorrectionFactor == 0 {
		return Result{}, fmt.Errorf("%w: correctionFactor is zero", ErrInvalidInput)
	}
	if in.CarbRatio == 0 {
		return Result{}, fmt.Errorf("%w: carbRatio is zero", ErrInvalidInput)
	}

	correction := math.Max(0, (in.CurrentBG-in.TargetBG)/in.CorrectionFactor)
	carb := math.Max(0, in.Carbs/in.CarbRatio)

	return Result{
		CorrectionDose: correction,
		CarbDose:       carb,
		TotalDose:      math.Max(0, correction+carb),
	}, nil
}

// Calculate parses raw form input and computes the dose.
func Calculate(raw RawInputs) (Inputs, Result, error) {
	in, err := raw.Parse()
	if err != nil {
		return Inputs{}, Result{}, err
	}
	res, err := Compute(in)
	if err != nil {
		return Inputs{}, Result{}, err
	}
	return in, res, nil
}

// FormatNumber rounds to one decimal place, half away from zero. Rounding
// works on the shortest decimal form of v, so 7.65 becomes 7.7.
func FormatNumber(v float64) float64 {
	return round1(v).InexactFloat64()
}

// FormatDose renders a value with exactly one decimal ("5.0").
func FormatDose(v float64) string {
	return round1(v).StringFixed(1)
}

// FormatValue renders an entered value without trailing zeros ("5.5", "180").
func FormatValue(v float64) string {
	if !isFinite(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).String()
}

func round1(v float64) decimal.Decimal {
	if !isFinite(v) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(1)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
