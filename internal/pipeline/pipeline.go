// Package pipeline runs named steps strictly in order, pausing before the
// steps that ask for a settle delay.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// StepFunc performs one unit of work.
type StepFunc func(ctx context.Context) error

// Step is a named unit of work. Settle marks steps preceded by the runner's
// settle delay.
type Step struct {
	Name   string
	Run    StepFunc
	Settle bool
}

// StepError reports which step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Options tune runner behaviour.
type Options struct {
	SettleDelay time.Duration
}

// Runner executes steps one after another.
type Runner struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Runner.
func New(opts Options, logger zerolog.Logger) *Runner {
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	return &Runner{opts: opts, logger: logger.With().Str("component", "pipeline").Logger()}
}

// Run executes steps in order and stops at the first failure or when ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context, steps ...Step) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Step: step.Name, Err: err}
		}

		if step.Settle && r.opts.SettleDelay > 0 {
			if err := r.settle(ctx); err != nil {
				return &StepError{Step: step.Name, Err: err}
			}
		}

		started := time.Now()
		if err := step.Run(ctx); err != nil {
			r.logger.Debug().Err(err).Str("step", step.Name).Msg("step failed")
			return &StepError{Step: step.Name, Err: err}
		}
		r.logger.Debug().Str("step", step.Name).Dur("took", time.Since(started)).Msg("step complete")
	}
	return nil
}

func (r *Runner) settle(ctx context.Context) error {
	timer := time.NewTimer(r.opts.SettleDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
