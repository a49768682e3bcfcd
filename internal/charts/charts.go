// Package charts renders report charts to JPEG images.
package charts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/golang/freetype/truetype"
	"github.com/rs/zerolog"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	DefaultWidth   = 800
	DefaultHeight  = 400
	DefaultQuality = 95
)

// ErrInvalidSpec is returned for a chart with no points or mismatched series.
var ErrInvalidSpec = errors.New("invalid chart spec")

// Kind selects the chart type.
type Kind int

const (
	KindLine Kind = iota
	KindBar
	KindStackedBar
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindBar:
		return "bar"
	case KindStackedBar:
		return "stacked-bar"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Series is one named dataset. Values align with Spec.Labels.
type Series struct {
	Name   string
	Values []float64
	Color  color.NRGBA
}

// Spec describes one chart.
type Spec struct {
	Kind        Kind
	Title       string
	YLabel      string
	BeginAtZero bool
	Labels      []string
	Series      []Series
	Width       int
	Height      int
}

func (s Spec) validate() error {
	if len(s.Labels) == 0 {
		return fmt.Errorf("%w: %q has no points", ErrInvalidSpec, s.Title)
	}
	if len(s.Series) == 0 {
		return fmt.Errorf("%w: %q has no series", ErrInvalidSpec, s.Title)
	}
	for _, series := range s.Series {
		if len(series.Values) != len(s.Labels) {
			return fmt.Errorf("%w: %q series %q has %d values for %d labels",
				ErrInvalidSpec, s.Title, series.Name, len(series.Values), len(s.Labels))
		}
	}
	return nil
}

// Renderer draws line and single-series bar charts with go-chart, stacked
// and grouped bars with gg, and encodes all of them as JPEG on a white
// background.
type Renderer struct {
	font    *truetype.Font
	quality int
	logger  zerolog.Logger
}

// NewRenderer parses the embedded Go font shared by both backends.
func NewRenderer(logger zerolog.Logger) (*Renderer, error) {
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse chart font: %w", err)
	}
	return &Renderer{
		font:    font,
		quality: DefaultQuality,
		logger:  logger.With().Str("component", "charts").Logger(),
	}, nil
}

// Render draws spec and returns JPEG bytes.
func (r *Renderer) Render(ctx context.Context, spec Spec) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if spec.Width <= 0 {
		spec.Width = DefaultWidth
	}
	if spec.Height <= 0 {
		spec.Height = DefaultHeight
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}

	var (
		img image.Image
		err error
	)
	switch spec.Kind {
	case KindLine:
		img, err = r.renderLine(spec)
	case KindBar:
		if len(spec.Series) == 1 {
			img, err = r.renderBarChart(spec)
		} else {
			img, err = r.renderBars(spec)
		}
	case KindStackedBar:
		img, err = r.renderBars(spec)
	default:
		err = fmt.Errorf("%w: unsupported kind %s", ErrInvalidSpec, spec.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", spec.Title, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.quality}); err != nil {
		return nil, fmt.Errorf("encode %q: %w", spec.Title, err)
	}

	r.logger.Debug().
		Str("title", spec.Title).
		Str("kind", spec.Kind.String()).
		Int("points", len(spec.Labels)).
		Int("bytes", buf.Len()).
		Msg("chart rendered")
	return buf.Bytes(), nil
}

// labelStep thins x labels so that at most max are drawn.
func labelStep(n, max int) int {
	if n <= max || max <= 0 {
		return 1
	}
	return (n + max - 1) / max
}
