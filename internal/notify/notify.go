// Package notify delivers short-lived status messages.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

// Kind classifies a message.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
)

// Display durations used by the calculator.
const (
	Short      = 3 * time.Second
	Medium     = 5 * time.Second
	Permission = 8 * time.Second
)

// Notification is one status message. Timeout is how long an interactive
// surface should keep it visible.
type Notification struct {
	Kind    Kind
	Message string
	Timeout time.Duration
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, note Notification) error
}

// ConsoleNotifier prints messages to a writer.
type ConsoleNotifier struct {
	out io.Writer
}

// NewConsoleNotifier constructs a ConsoleNotifier writing to out.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

// Notify prints the message with a status marker.
func (n *ConsoleNotifier) Notify(_ context.Context, note Notification) error {
	marker := "✓"
	if note.Kind == Error {
		marker = "⚠"
	}
	_, err := fmt.Fprintf(n.out, "%s %s\n", marker, note.Message)
	return err
}

// DesktopNotifier raises a system notification.
type DesktopNotifier struct {
	title  string
	send   func(title, message string) error
	logger zerolog.Logger
}

// NewDesktopNotifier constructs a DesktopNotifier with the given title.
func NewDesktopNotifier(title string, logger zerolog.Logger) *DesktopNotifier {
	return &DesktopNotifier{
		title: title,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		logger: logger.With().Str("component", "notify_desktop").Logger(),
	}
}

// Notify sends the message. Error messages get a warning title.
func (n *DesktopNotifier) Notify(ctx context.Context, note Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	title := n.title
	if note.Kind == Error {
		title = "⚠️ " + title
	}
	if err := n.send(title, note.Message); err != nil {
		return fmt.Errorf("desktop notification: %w", err)
	}
	n.logger.Debug().Str("kind", string(note.Kind)).Dur("timeout", note.Timeout).Msg("notification sent")
	return nil
}

// Multi fans out to several notifiers and joins their errors.
type Multi []Notifier

// Notify delivers note to every notifier.
func (m Multi) Notify(ctx context.Context, note Notification) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) error { return nil }

var (
	_ Notifier = (*ConsoleNotifier)(nil)
	_ Notifier = (*DesktopNotifier)(nil)
	_ Notifier = Multi(nil)
	_ Notifier = Nop{}
)
