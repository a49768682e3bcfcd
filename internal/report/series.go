package report

import (
	"fmt"
	"image/color"
	"time"

	"insulin-calc/internal/calculator"
	"insulin-calc/internal/charts"
	"insulin-calc/internal/history"
)

var (
	doseColor       = color.NRGBA{R: 79, G: 70, B: 229, A: 255}
	glucoseColor    = color.NRGBA{R: 239, G: 68, B: 68, A: 255}
	carbDoseColor   = color.NRGBA{R: 16, G: 185, B: 129, A: 204}
	correctionColor = color.NRGBA{R: 245, G: 158, B: 11, A: 204}
	carbIntakeColor = color.NRGBA{R: 139, G: 92, B: 246, A: 204}
)

type seriesData struct {
	labels          []string
	totalDoses      []float64
	glucose         []float64
	carbDoses       []float64
	correctionDoses []float64
	carbIntakes     []float64
	unit            calculator.Unit
}

// buildSeries extracts chart data from chronologically ordered items.
func buildSeries(items []history.Item, loc *time.Location) seriesData {
	n := len(items)
	d := seriesData{
		labels:          make([]string, n),
		totalDoses:      make([]float64, n),
		glucose:         make([]float64, n),
		carbDoses:       make([]float64, n),
		correctionDoses: make([]float64, n),
		carbIntakes:     make([]float64, n),
		unit:            calculator.UnitMgdl,
	}
	if n > 0 && items[0].Inputs.Unit != "" {
		d.unit = items[0].Inputs.Unit
	}

	for i, item := range items {
		d.labels[i] = item.Timestamp.In(loc).Format("Jan 2")
		d.totalDoses[i] = calculator.FormatNumber(item.Result.TotalDose)
		d.glucose[i] = item.Inputs.CurrentBG
		d.carbDoses[i] = calculator.FormatNumber(item.Result.CarbDose)
		d.correctionDoses[i] = calculator.FormatNumber(item.Result.CorrectionDose)
		d.carbIntakes[i] = item.Inputs.Carbs
	}
	return d
}

func chartSpecs(d seriesData) []charts.Spec {
	return []charts.Spec{
		{
			Kind:        charts.KindLine,
			Title:       "Total Insulin Dose Trend",
			YLabel:      "Units",
			BeginAtZero: true,
			Labels:      d.labels,
			Series:      []charts.Series{{Name: "Total Insulin Dose (units)", Values: d.totalDoses, Color: doseColor}},
		},
		{
			Kind:   charts.KindLine,
			Title:  "Blood Glucose Levels",
			YLabel: string(d.unit),
			Labels: d.labels,
			Series: []charts.Series{{Name: fmt.Sprintf("Blood Glucose (%s)", d.unit), Values: d.glucose, Color: glucoseColor}},
		},
		{
			Kind:        charts.KindStackedBar,
			Title:       "Dose Breakdown: Carb vs Correction",
			YLabel:      "Units",
			BeginAtZero: true,
			Labels:      d.labels,
			Series: []charts.Series{
				{Name: "Carb Dose", Values: d.carbDoses, Color: carbDoseColor},
				{Name: "Correction Dose", Values: d.correctionDoses, Color: correctionColor},
			},
		},
		{
			Kind:        charts.KindBar,
			Title:       "Carbohydrate Intake",
			YLabel:      "Grams",
			BeginAtZero: true,
			Labels:      d.labels,
			Series:      []charts.Series{{Name: "Carbohydrate Intake (grams)", Values: d.carbIntakes, Color: carbIntakeColor}},
		},
	}
}
