package charts

import (
	"bytes"
	"image"
	"image/png"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// renderBarChart draws a single-series bar chart with go-chart.
func (r *Renderer) renderBarChart(spec Spec) (image.Image, error) {
	series := spec.Series[0]
	n := len(spec.Labels)

	labelEvery := labelStep(n, maxBarLabels)
	bars := make([]chart.Value, n)
	for i, v := range series.Values {
		label := ""
		if i%labelEvery == 0 {
			label = spec.Labels[i]
		}
		bars[i] = chart.Value{
			Label: label,
			Value: v,
			Style: chart.Style{
				FillColor:   toDrawing(series.Color),
				StrokeColor: toDrawing(series.Color),
				StrokeWidth: 1,
			},
		}
	}

	lo, hi := barExtent(spec, false)
	step := niceStep((hi - lo) / yTickCount)
	lo, hi = math.Floor(lo/step)*step, math.Ceil(hi/step)*step
	if hi == lo {
		hi = lo + step
	}

	// go-chart sizes bars in pixels; split the plot width between bars and gaps
	slot := float64(spec.Width-barChartMargin) / float64(n)
	barWidth := max(1, int(slot*0.7))
	spacing := max(1, int(slot)-barWidth)

	graph := chart.BarChart{
		Title:      spec.Title,
		TitleStyle: chart.Style{FontSize: 16},
		Font:       r.font,
		Width:      spec.Width,
		Height:     spec.Height,
		Background: chart.Style{
			FillColor: drawing.ColorWhite,
			Padding:   chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
		},
		Canvas:       chart.Style{FillColor: drawing.ColorWhite},
		BarWidth:     barWidth,
		BarSpacing:   spacing,
		UseBaseValue: true,
		BaseValue:    0,
		XAxis:        chart.Style{FontSize: 9},
		YAxis: chart.YAxis{
			Name:  spec.YLabel,
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return formatTick(f, step)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return png.Decode(&buf)
}
