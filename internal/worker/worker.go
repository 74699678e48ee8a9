package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskrelay/internal/agent"
	"taskrelay/internal/logging"
	"taskrelay/internal/notify"
	"taskrelay/internal/todoist"
)

// DefaultMaxRetries is the attempt ceiling per task.
const DefaultMaxRetries = 3

// TaskQueue is the remote to-do list the worker claims tasks from.
type TaskQueue interface {
	FindProject(ctx context.Context, name string) (string, error)
	ListTasks(ctx context.Context, projectID string) ([]todoist.Task, error)
	AddComment(ctx context.Context, taskID, content string) error
	SetLabels(ctx context.Context, taskID string, labels []string) error
}

// Options tunes how tasks are dispatched.
type Options struct {
	MaxRetries int           // attempt ceiling (default 3)
	Timeout    time.Duration // per-attempt wall clock limit, 0 for none
	Verbose    bool          // stream agent tool use into the log
}

// Worker runs poll cycles against one queue and dispatcher.
type Worker struct {
	queue      TaskQueue
	dispatcher agent.Dispatcher
	opts       Options
	logger     logging.Logger
	notifier   notify.Notifier
	metrics    *Metrics
	now        func() time.Time
	sleep      func(context.Context, time.Duration) error
}

// Option configures optional Worker collaborators.
type Option func(*Worker)

// WithLogger sets the worker's logger.
func WithLogger(l logging.Logger) Option {
	return func(w *Worker) { w.logger = logging.OrNop(l) }
}

// WithNotifier sends terminal outcomes to n.
func WithNotifier(n notify.Notifier) Option {
	return func(w *Worker) { w.notifier = n }
}

// WithMetrics records cycle and dispatch metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// New creates a Worker.
func New(queue TaskQueue, dispatcher agent.Dispatcher, opts Options, options ...Option) *Worker {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	w := &Worker{
		queue:      queue,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logging.Nop(),
		now:        time.Now,
		sleep:      sleepCtx,
	}
	for _, o := range options {
		o(w)
	}
	return w
}

// CycleSummary counts what one poll cycle did.
type CycleSummary struct {
	Listed    int // tasks returned by the queue
	Skipped   int // terminal or at the retry ceiling
	Succeeded int
	Retrying  int
	Failed    int
}

// Dispatched is the number of tasks handed to the agent.
func (s CycleSummary) Dispatched() int {
	return s.Succeeded + s.Retrying + s.Failed
}

// ResolveProject looks up a project ID by name.
func (w *Worker) ResolveProject(ctx context.Context, name string) (string, error) {
	return w.queue.FindProject(ctx, name)
}

// RunOnce lists the project's tasks and processes each eligible one in order.
// A listing failure or context cancellation ends the cycle with an error;
// failures writing comments or labels are logged and the cycle continues.
func (w *Worker) RunOnce(ctx context.Context, projectID string) (CycleSummary, error) {
	var sum CycleSummary

	tasks, err := w.queue.ListTasks(ctx, projectID)
	if err != nil {
		w.metrics.cycle("error")
		return sum, fmt.Errorf("list tasks: %w", err)
	}
	sum.Listed = len(tasks)
	if len(tasks) == 0 {
		w.logger.Info("No pending tasks.")
		w.metrics.cycle("empty")
		return sum, nil
	}

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			w.metrics.cycle("interrupted")
			return sum, err
		}

		status := ParseLabels(task.Labels)
		if status.State.Terminal() || status.Attempts >= w.opts.MaxRetries {
			sum.Skipped++
			continue
		}

		next, err := w.process(ctx, task, status)
		if err != nil {
			w.metrics.cycle("interrupted")
			return sum, err
		}
		switch next.State {
		case Done:
			sum.Succeeded++
		case Retrying:
			sum.Retrying++
		case Failed:
			sum.Failed++
		}
	}

	w.metrics.cycle("ok")
	return sum, nil
}

// process runs one attempt for task and records the outcome. The returned
// error is non-nil only when ctx ended during the dispatch.
func (w *Worker) process(ctx context.Context, task todoist.Task, status Status) (Status, error) {
	attempt := status.Attempts + 1
	retryInfo := ""
	if status.Attempts > 0 {
		retryInfo = fmt.Sprintf(" (attempt %d/%d)", attempt, w.opts.MaxRetries)
	}

	w.logger.Info("\nTask: %s%s", task.Content, retryInfo)
	w.comment(ctx, task.ID, "Working on it..."+retryInfo)

	res, err := w.dispatcher.Dispatch(ctx, agent.Request{
		Title:       task.Content,
		Description: task.Description,
		Verbose:     w.opts.Verbose,
		Timeout:     w.opts.Timeout,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return status, err
		}
		// Dispatchers only return errors for cancellation; treat anything
		// else as a failed attempt so the retry ceiling still applies.
		res = agent.Result{Summary: err.Error()}
	}
	w.metrics.observeDispatch(outcome(res), res.Duration)

	var next Status
	switch {
	case res.Success:
		next = Status{State: Done, Attempts: status.Attempts}
		w.logger.Info("  Done. Left open for review.")
		w.comment(ctx, task.ID, "Done. Ready for review.\n\n"+res.Summary)
	case attempt < w.opts.MaxRetries:
		next = Status{State: Retrying, Attempts: attempt}
		w.logger.Warn("  Failed (attempt %d/%d). Will retry next run.", attempt, w.opts.MaxRetries)
		w.comment(ctx, task.ID, fmt.Sprintf("Failed (attempt %d/%d). Will retry.\n\n%s",
			attempt, w.opts.MaxRetries, res.Summary))
	default:
		next = Status{State: Failed, Attempts: attempt}
		w.logger.Error("  Failed permanently after %d attempts.", w.opts.MaxRetries)
		w.comment(ctx, task.ID, fmt.Sprintf("Failed after %d attempts. Giving up.\n\n%s",
			w.opts.MaxRetries, res.Summary))
	}

	if err := w.queue.SetLabels(ctx, task.ID, next.Labels(task.Labels)); err != nil {
		w.metrics.queueError("labels")
		w.logger.Warn("  Warning: could not update labels: %v", err)
	}
	if next.State.Terminal() {
		w.notify(ctx, task, next, res.Summary)
	}
	return next, nil
}

func (w *Worker) comment(ctx context.Context, taskID, content string) {
	if err := w.queue.AddComment(ctx, taskID, content); err != nil {
		w.metrics.queueError("comment")
		w.logger.Warn("  Warning: could not post comment: %v", err)
	}
}

func (w *Worker) notify(ctx context.Context, task todoist.Task, st Status, summary string) {
	if w.notifier == nil {
		return
	}
	n := notify.Notification{
		Event:       notify.EventDone,
		TaskID:      task.ID,
		Title:       task.Content,
		Summary:     summary,
		Attempts:    st.Attempts,
		MaxAttempts: w.opts.MaxRetries,
		Time:        w.now(),
	}
	if st.State == Failed {
		n.Event = notify.EventFailed
	} else {
		n.Attempts = st.Attempts + 1
	}
	if err := w.notifier.Send(ctx, n); err != nil {
		w.logger.Warn("  Warning: notification failed: %v", err)
	}
}

func outcome(res agent.Result) string {
	switch {
	case res.Success:
		return outcomeSuccess
	case res.TimedOut:
		return outcomeTimeout
	default:
		return outcomeFailure
	}
}
