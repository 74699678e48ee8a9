package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event names the terminal outcome a notification reports.
type Event string

const (
	EventDone   Event = "done"
	EventFailed Event = "failed"
)

// Notification describes one finished task.
type Notification struct {
	Event       Event
	TaskID      string
	Title       string
	Summary     string
	Attempts    int
	MaxAttempts int
	Time        time.Time
}

// Headline is the short form used as a notification title.
func (n Notification) Headline() string {
	switch n.Event {
	case EventDone:
		return "Task done"
	case EventFailed:
		return fmt.Sprintf("Task failed after %d attempts", n.Attempts)
	default:
		return "Task " + string(n.Event)
	}
}

// Text renders the single-line message used by chat webhooks.
func (n Notification) Text() string {
	return fmt.Sprintf("%s: %s", n.Headline(), n.Title)
}

// Notifier sends notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	Name() string
}

// NewDesktopNotifier returns a platform-specific desktop notification sender.
func NewDesktopNotifier() Notifier {
	return newPlatformNotifier()
}

// MultiNotifier sends notifications to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a MultiNotifier from the given notifiers.
func NewMultiNotifier(ns ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: ns}
}

// Len reports how many notifiers are registered.
func (m *MultiNotifier) Len() int { return len(m.notifiers) }

// Send dispatches the notification to all registered notifiers and joins
// their errors, each prefixed with the notifier name.
func (m *MultiNotifier) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Name returns the name of this notifier.
func (m *MultiNotifier) Name() string {
	names := make([]string, len(m.notifiers))
	for i, n := range m.notifiers {
		names[i] = n.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}
