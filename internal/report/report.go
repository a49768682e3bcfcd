// Package report assembles the PDF history report.
package report

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"insulin-calc/internal/charts"
	"insulin-calc/internal/history"
	"insulin-calc/internal/pipeline"
)

var (
	// ErrNoEntries is returned when Build is called without items.
	ErrNoEntries = errors.New("report: no entries to export")
	// ErrExportFailed wraps every failure while building the document.
	ErrExportFailed = errors.New("report: export failed")
)

// ChartRenderer turns a chart description into JPEG bytes.
type ChartRenderer interface {
	Render(ctx context.Context, spec charts.Spec) ([]byte, error)
}

// Document is a finished report.
type Document struct {
	FileName    string
	Data        []byte
	Entries     int
	Pages       int
	RangeDays   int
	GeneratedAt time.Time
}

// Options tune the generator.
type Options struct {
	Location    *time.Location
	SettleDelay time.Duration
	Producer    string
	Now         func() time.Time
}

// Generator builds reports.
type Generator struct {
	charts   ChartRenderer
	runner   *pipeline.Runner
	loc      *time.Location
	producer string
	now      func() time.Time
	logger   zerolog.Logger
}

// NewGenerator constructs a Generator.
func NewGenerator(renderer ChartRenderer, opts Options, logger zerolog.Logger) *Generator {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger = logger.With().Str("component", "report").Logger()
	return &Generator{
		charts:   renderer,
		runner:   pipeline.New(pipeline.Options{SettleDelay: opts.SettleDelay}, logger),
		loc:      opts.Location,
		producer: opts.Producer,
		now:      opts.Now,
		logger:   logger,
	}
}

// FileName is the suggested name for a report generated at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("insulin_history_%s.pdf", t.Format(time.DateOnly))
}

// Build renders the charts and table for items, which are expected newest
// first as stored. Charts are drawn one at a time.
func (g *Generator) Build(ctx context.Context, items []history.Item, rangeDays int) (*Document, error) {
	if len(items) == 0 {
		return nil, ErrNoEntries
	}

	generatedAt := g.now().In(g.loc)
	chronological := slices.Clone(items)
	slices.Reverse(chronological)

	var (
		data   seriesData
		images = make([][]byte, 0, 4)
		specs  []charts.Spec
		doc    *layout
		out    []byte
	)

	steps := []pipeline.Step{
		{Name: "prepare", Run: func(context.Context) error {
			data = buildSeries(chronological, g.loc)
			specs = chartSpecs(data)
			return nil
		}},
	}
	for i := range 4 {
		steps = append(steps, pipeline.Step{
			Name:   fmt.Sprintf("chart %d", i+1),
			Settle: true,
			Run: func(ctx context.Context) error {
				img, err := g.charts.Render(ctx, specs[i])
				if err != nil {
					return err
				}
				images = append(images, img)
				return nil
			},
		})
	}
	steps = append(steps,
		pipeline.Step{Name: "layout", Run: func(context.Context) error {
			var err error
			doc, err = newLayout(g.producer, generatedAt)
			if err != nil {
				return err
			}
			return doc.compose(images, chronological, rangeDays, g.loc)
		}},
		pipeline.Step{Name: "serialize", Run: func(context.Context) error {
			var err error
			out, err = doc.bytes()
			return err
		}},
	)

	if err := g.runner.Run(ctx, steps...); err != nil {
		g.logger.Error().Err(err).Int("entries", len(items)).Msg("report build failed")
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}

	report := &Document{
		FileName:    FileName(generatedAt),
		Data:        out,
		Entries:     len(items),
		Pages:       doc.pages(),
		RangeDays:   rangeDays,
		GeneratedAt: generatedAt,
	}
	g.logger.Info().
		Str("file", report.FileName).
		Int("entries", report.Entries).
		Int("pages", report.Pages).
		Int("bytes", len(out)).
		Msg("report built")
	return report, nil
}
