package calculator

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBasicDose(t *testing.T) {
	res, err := Compute(Inputs{CurrentBG: 180, TargetBG: 100, CorrectionFactor: 50, Carbs: 60, CarbRatio: 10, Unit: UnitMgdl})
	require.NoError(t, err)
	assert.Equal(t, Result{CorrectionDose: 1.6, CarbDose: 6, TotalDose: 7.6}, res)
}

func TestComputeFloorsNegativeCorrection(t *testing.T) {
	res, err := Compute(Inputs{CurrentBG: 80, TargetBG: 100, CorrectionFactor: 50, Carbs: 0, CarbRatio: 10})
	require.NoError(t, err)
	assert.Zero(t, res.CorrectionDose)
	assert.Zero(t, res.CarbDose)
	assert.Zero(t, res.TotalDose)
}

func TestComputeCorrectionOnly(t *testing.T) {
	res, err := Compute(Inputs{CurrentBG: 150, TargetBG: 100, CorrectionFactor: 50, Carbs: 0, CarbRatio: 10})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.CarbDose)
	assert.Equal(t, 1.0, res.CorrectionDose)
	assert.Equal(t, 1.0, res.TotalDose)
}

func TestComputeMmol(t *testing.T) {
	res, err := Compute(Inputs{CurrentBG: 10, TargetBG: 5.5, CorrectionFactor: 2.8, Carbs: 60, CarbRatio: 10, Unit: UnitMmol})
	require.NoError(t, err)
	assert.Greater(t, res.TotalDose, 0.0)
}

func TestComputeNegativeCarbsClamp(t *testing.T) {
	res, err := Compute(Inputs{CurrentBG: 100, TargetBG: 100, CorrectionFactor: 50, Carbs: -30, CarbRatio: 10})
	require.NoError(t, err)
	assert.Zero(t, res.CarbDose)
	assert.Zero(t, res.TotalDose)
}

func TestComputeZeroDivisorsInvalid(t *testing.T) {
	_, err := Compute(Inputs{CurrentBG: 180, TargetBG: 100, CorrectionFactor: 0, Carbs: 60, CarbRatio: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Compute(Inputs{CurrentBG: 180, TargetBG: 100, CorrectionFactor: 50, Carbs: 60, CarbRatio: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestComputeNonFiniteInvalid(t *testing.T) {
	_, err := Compute(Inputs{CurrentBG: math.NaN(), TargetBG: 100, CorrectionFactor: 50, Carbs: 60, CarbRatio: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Compute(Inputs{CurrentBG: 180, TargetBG: math.Inf(1), CorrectionFactor: 50, Carbs: 60, CarbRatio: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestComputeTotalIsSumOfComponents(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		in := Inputs{
			CurrentBG:        rng.Float64()*400 - 50,
			TargetBG:         rng.Float64() * 200,
			Carbs:            rng.Float64()*200 - 20,
			CarbRatio:        rng.Float64()*30 - 5,
			CorrectionFactor: rng.Float64()*100 - 10,
		}
		if in.CarbRatio == 0 || in.CorrectionFactor == 0 {
			continue
		}
		res, err := Compute(in)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, res.CorrectionDose, 0.0)
		assert.GreaterOrEqual(t, res.CarbDose, 0.0)
		assert.Equal(t, res.CorrectionDose+res.CarbDose, res.TotalDose)

		again, err := Compute(in)
		require.NoError(t, err)
		assert.Equal(t, res, again)
	}
}

func TestCalculateParsesRawInputs(t *testing.T) {
	in, res, err := Calculate(RawInputs{
		CurrentBG:        " 180 ",
		TargetBG:         "100",
		Carbs:            "60",
		CarbRatio:        "10",
		CorrectionFactor: "50",
		Unit:             UnitMgdl,
	})
	require.NoError(t, err)
	assert.Equal(t, 180.0, in.CurrentBG)
	assert.Equal(t, UnitMgdl, in.Unit)
	assert.Equal(t, 7.6, res.TotalDose)
}

func TestCalculateRejectsInvalidFields(t *testing.T) {
	valid := RawInputs{CurrentBG: "180", TargetBG: "100", Carbs: "60", CarbRatio: "10", CorrectionFactor: "50"}

	tests := []struct {
		name   string
		mutate func(r *RawInputs)
	}{
		{"non-numeric current", func(r *RawInputs) { r.CurrentBG = "invalid" }},
		{"empty target", func(r *RawInputs) { r.TargetBG = "" }},
		{"blank carbs", func(r *RawInputs) { r.Carbs = "   " }},
		{"infinite ratio", func(r *RawInputs) { r.CarbRatio = "Inf" }},
		{"nan factor", func(r *RawInputs) { r.CorrectionFactor = "NaN" }},
		{"zero factor", func(r *RawInputs) { r.CorrectionFactor = "0" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := valid
			tt.mutate(&raw)
			_, _, err := Calculate(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestParseDefaultsUnit(t *testing.T) {
	in, err := RawInputs{CurrentBG: "1", TargetBG: "1", Carbs: "1", CarbRatio: "1", CorrectionFactor: "1"}.Parse()
	require.NoError(t, err)
	assert.Equal(t, UnitMgdl, in.Unit)
}

func TestParseUnit(t *testing.T) {
	tests := map[string]Unit{
		"mg/dL":  UnitMgdl,
		"MGDL":   UnitMgdl,
		"mmol/L": UnitMmol,
		"mmol":   UnitMmol,
	}
	for input, want := range tests {
		got, err := ParseUnit(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseUnit("grains")
	assert.Error(t, err)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, 7.7, FormatNumber(7.654))
	assert.Equal(t, 7.6, FormatNumber(7.634))
	assert.Equal(t, 7.7, FormatNumber(7.65))
	assert.Equal(t, 5.0, FormatNumber(5))
	assert.Equal(t, 0.0, FormatNumber(0))
	assert.Equal(t, -7.7, FormatNumber(-7.65))
}

func TestFormatDose(t *testing.T) {
	assert.Equal(t, "5.0", FormatDose(5))
	assert.Equal(t, "7.7", FormatDose(7.65))
	assert.Equal(t, "0.0", FormatDose(0))
	assert.Equal(t, "0.0", FormatDose(math.NaN()))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "180", FormatValue(180))
	assert.Equal(t, "5.5", FormatValue(5.5))
}
