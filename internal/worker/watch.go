package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultInterval is the pause between successful watch cycles.
	DefaultInterval = 30 * time.Second
	// MaxErrorBackoff caps the pause after consecutive failed cycles.
	MaxErrorBackoff = 10 * time.Minute
)

// Pacer decides when the next watch cycle starts.
type Pacer interface {
	Next(now time.Time) time.Time
	String() string
}

// IntervalPacer starts cycles a fixed interval apart.
type IntervalPacer time.Duration

func (p IntervalPacer) Next(now time.Time) time.Time {
	return now.Add(time.Duration(p))
}

func (p IntervalPacer) String() string {
	return "every " + time.Duration(p).String()
}

// CronPacer starts cycles on a cron schedule.
type CronPacer struct {
	spec     string
	schedule cron.Schedule
}

// NewCronPacer parses a standard five-field cron expression (descriptors
// such as "@hourly" are accepted too).
func NewCronPacer(spec string) (*CronPacer, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &CronPacer{spec: spec, schedule: schedule}, nil
}

func (p *CronPacer) Next(now time.Time) time.Time {
	return p.schedule.Next(now)
}

func (p *CronPacer) String() string {
	return "on schedule " + p.spec
}

// errorBackoff doubles from twice the base interval up to MaxErrorBackoff,
// without jitter, so the nth consecutive failure waits min(base*2^n, max).
func errorBackoff(base time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = min(2*base, MaxErrorBackoff)
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = MaxErrorBackoff
	b.Reset()
	return b
}

// Watch runs cycles until ctx ends. Successful cycles are spaced by pacer;
// failed ones back off exponentially from interval. It returns ctx.Err().
func (w *Worker) Watch(ctx context.Context, projectID string, pacer Pacer, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if pacer == nil {
		pacer = IntervalPacer(interval)
	}
	failures := errorBackoff(interval)

	for {
		var wait time.Duration
		sum, err := w.RunOnce(ctx, projectID)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			wait = failures.NextBackOff()
			w.logger.Error("Poll failed: %v (retrying in %s)", err, wait)
		} else {
			failures.Reset()
			now := w.now()
			wait = pacer.Next(now).Sub(now)
			if sum.Dispatched() > 0 {
				w.logger.Debug("Cycle done: %d dispatched, %d skipped", sum.Dispatched(), sum.Skipped)
			}
		}

		if err := w.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
