package charts

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const maxLineLabels = 12

func (r *Renderer) renderLine(spec Spec) (image.Image, error) {
	n := len(spec.Labels)

	xValues := make([]float64, n)
	for i := range xValues {
		xValues[i] = float64(i)
	}

	step := labelStep(n, maxLineLabels)
	ticks := []chart.Tick{{Value: -0.5, Label: ""}}
	for i := 0; i < n; i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: spec.Labels[i]})
	}
	ticks = append(ticks, chart.Tick{Value: float64(n) - 0.5, Label: ""})

	series := make([]chart.Series, 0, len(spec.Series))
	for _, s := range spec.Series {
		fill := s.Color
		fill.A = 26
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xValues,
			YValues: s.Values,
			Style: chart.Style{
				StrokeColor: toDrawing(s.Color),
				StrokeWidth: 2,
				FillColor:   toDrawing(fill),
				DotColor:    toDrawing(s.Color),
				DotWidth:    4,
			},
		})
	}

	minY, maxY := yBounds(spec)
	oneDecimal := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}

	graph := chart.Chart{
		Title:      spec.Title,
		TitleStyle: chart.Style{FontSize: 16},
		Width:      spec.Width,
		Height:     spec.Height,
		Background: chart.Style{
			FillColor: drawing.ColorWhite,
			Padding:   chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
		},
		Canvas: chart.Style{FillColor: drawing.ColorWhite},
		XAxis: chart.XAxis{
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(n) - 0.5},
		},
		YAxis: chart.YAxis{
			Name:           spec.YLabel,
			Range:          &chart.ContinuousRange{Min: minY, Max: maxY},
			ValueFormatter: oneDecimal,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return png.Decode(&buf)
}

// yBounds returns a non-empty value range covering every series, padded so
// points do not sit on the frame.
func yBounds(spec Spec) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range spec.Series {
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if spec.BeginAtZero {
		lo = math.Min(lo, 0)
		hi = math.Max(hi, 0)
	}
	if hi == lo {
		pad := math.Max(math.Abs(hi)*0.1, 1)
		if spec.BeginAtZero && lo == 0 {
			return 0, pad
		}
		return lo - pad, hi + pad
	}
	pad := (hi - lo) * 0.1
	if spec.BeginAtZero && lo == 0 {
		return 0, hi + pad
	}
	return lo - pad, hi + pad
}

func toDrawing(c color.NRGBA) drawing.Color {
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}
