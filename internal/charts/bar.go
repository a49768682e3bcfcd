package charts

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

const (
	maxBarLabels   = 16
	yTickCount     = 5
	barChartMargin = 120
)

var (
	axisColor = color.NRGBA{R: 102, G: 102, B: 102, A: 255}
	gridColor = color.NRGBA{R: 224, G: 224, B: 224, A: 255}
	textColor = color.NRGBA{R: 51, G: 51, B: 51, A: 255}
)

type plotArea struct {
	left, right, top, bottom float64
	lo, hi                   float64
}

func (p plotArea) y(v float64) float64 {
	return p.bottom - (v-p.lo)/(p.hi-p.lo)*(p.bottom-p.top)
}

// renderBars draws stacked or grouped bars with gg. go-chart's
// StackedBarChart scales every bar to 100% on a percent axis and has no
// legend, so it cannot show absolute doses per series.
func (r *Renderer) renderBars(spec Spec) (image.Image, error) {
	w, h := float64(spec.Width), float64(spec.Height)
	dc := gg.NewContext(spec.Width, spec.Height)
	dc.SetColor(color.White)
	dc.Clear()

	stacked := spec.Kind == KindStackedBar
	lo, hi := barExtent(spec, stacked)
	step := niceStep((hi - lo) / yTickCount)
	area := plotArea{
		left:   72,
		right:  w - 24,
		top:    72,
		bottom: h - 48,
		lo:     math.Floor(lo/step) * step,
		hi:     math.Ceil(hi/step) * step,
	}
	if area.hi == area.lo {
		area.hi = area.lo + step
	}

	r.drawTitle(dc, spec.Title, w)
	r.drawLegend(dc, spec.Series, w)
	r.drawYAxis(dc, area, step, spec.YLabel)

	n := len(spec.Labels)
	slot := (area.right - area.left) / float64(n)
	barWidth := slot * 0.7
	for i := 0; i < n; i++ {
		x := area.left + slot*float64(i) + (slot-barWidth)/2
		if stacked {
			var pos, neg float64
			for _, s := range spec.Series {
				v := s.Values[i]
				var from, to float64
				if v >= 0 {
					from, to = pos, pos+v
					pos = to
				} else {
					from, to = neg, neg+v
					neg = to
				}
				fillBar(dc, s.Color, x, barWidth, area.y(from), area.y(to))
			}
			continue
		}
		groupWidth := barWidth / float64(len(spec.Series))
		for j, s := range spec.Series {
			fillBar(dc, s.Color, x+groupWidth*float64(j), groupWidth, area.y(0), area.y(s.Values[i]))
		}
	}

	dc.SetFontFace(r.face(11))
	dc.SetColor(textColor)
	labelEvery := labelStep(n, maxBarLabels)
	for i := 0; i < n; i += labelEvery {
		cx := area.left + slot*float64(i) + slot/2
		dc.DrawStringAnchored(spec.Labels[i], cx, area.bottom+16, 0.5, 0.5)
	}

	dc.SetColor(axisColor)
	dc.SetLineWidth(1)
	dc.DrawLine(area.left, area.top, area.left, area.bottom)
	dc.DrawLine(area.left, area.y(clamp(0, area.lo, area.hi)), area.right, area.y(clamp(0, area.lo, area.hi)))
	dc.Stroke()

	return dc.Image(), nil
}

func (r *Renderer) face(size float64) font.Face {
	return truetype.NewFace(r.font, &truetype.Options{Size: size})
}

func (r *Renderer) drawTitle(dc *gg.Context, title string, w float64) {
	dc.SetFontFace(r.face(16))
	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, w/2, 22, 0.5, 0.5)
}

func (r *Renderer) drawLegend(dc *gg.Context, series []Series, w float64) {
	const swatch, gap, spacing = 12.0, 6.0, 18.0

	dc.SetFontFace(r.face(12))
	total := 0.0
	for i, s := range series {
		tw, _ := dc.MeasureString(s.Name)
		total += swatch + gap + tw
		if i > 0 {
			total += spacing
		}
	}

	x := (w - total) / 2
	const y = 48.0
	for _, s := range series {
		dc.SetColor(s.Color)
		dc.DrawRectangle(x, y-swatch/2, swatch, swatch)
		dc.Fill()
		x += swatch + gap

		dc.SetColor(textColor)
		dc.DrawStringAnchored(s.Name, x, y, 0, 0.5)
		tw, _ := dc.MeasureString(s.Name)
		x += tw + spacing
	}
}

func (r *Renderer) drawYAxis(dc *gg.Context, area plotArea, step float64, label string) {
	dc.SetFontFace(r.face(11))
	dc.SetLineWidth(1)
	for v := area.lo; v <= area.hi+step/2; v += step {
		y := area.y(v)
		dc.SetColor(gridColor)
		dc.DrawLine(area.left, y, area.right, y)
		dc.Stroke()
		dc.SetColor(textColor)
		dc.DrawStringAnchored(formatTick(v, step), area.left-8, y, 1, 0.5)
	}

	if label == "" {
		return
	}
	cy := (area.top + area.bottom) / 2
	dc.Push()
	dc.SetFontFace(r.face(12))
	dc.RotateAbout(gg.Radians(-90), 18, cy)
	dc.DrawStringAnchored(label, 18, cy, 0.5, 0.5)
	dc.Pop()
}

func fillBar(dc *gg.Context, c color.NRGBA, x, width, y0, y1 float64) {
	top, height := math.Min(y0, y1), math.Abs(y1-y0)
	if height == 0 {
		return
	}
	dc.SetColor(c)
	dc.DrawRectangle(x, top, width, height)
	dc.Fill()
}

// barExtent returns the data range including zero, using per-bar sums when
// stacked.
func barExtent(spec Spec, stacked bool) (float64, float64) {
	lo, hi := 0.0, 0.0
	for i := range spec.Labels {
		var pos, neg float64
		for _, s := range spec.Series {
			v := s.Values[i]
			if !stacked {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
				continue
			}
			if v >= 0 {
				pos += v
			} else {
				neg += v
			}
		}
		if stacked {
			lo, hi = math.Min(lo, neg), math.Max(hi, pos)
		}
	}
	if lo == hi {
		hi = lo + 1
	}
	return lo, hi
}

// niceStep rounds raw up to 1, 2 or 5 times a power of ten.
func niceStep(raw float64) float64 {
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(raw)))
	switch f := raw / exp; {
	case f <= 1:
		return exp
	case f <= 2:
		return 2 * exp
	case f <= 5:
		return 5 * exp
	default:
		return 10 * exp
	}
}

func formatTick(v, step float64) string {
	if step >= 1 {
		return strconv.FormatFloat(math.Round(v), 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
