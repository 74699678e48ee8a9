package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"taskrelay/internal/todoist"
)

// flakyQueue fails ListTasks according to a script of booleans.
type flakyQueue struct {
	*fakeQueue
	fail []bool
}

func (q *flakyQueue) ListTasks(ctx context.Context, projectID string) ([]todoist.Task, error) {
	if len(q.fail) > 0 {
		f := q.fail[0]
		q.fail = q.fail[1:]
		if f {
			return nil, errors.New("connection reset")
		}
	}
	return q.fakeQueue.ListTasks(ctx, projectID)
}

// recordSleeps replaces the worker's sleep, cancelling after n waits.
func recordSleeps(w *Worker, cancel context.CancelFunc, n int) *[]time.Duration {
	var waits []time.Duration
	w.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		if len(waits) >= n {
			cancel()
			return ctx.Err()
		}
		return nil
	}
	return &waits
}

func TestWatchBackoffSchedule(t *testing.T) {
	q := &flakyQueue{
		fakeQueue: newFakeQueue(),
		fail:      []bool{true, true, true, false, true, true, true, true, true, true, true},
	}
	w := New(q, &fakeDispatcher{}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	waits := recordSleeps(w, cancel, 11)

	err := w.Watch(ctx, "p1", nil, 30*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Watch = %v, want context.Canceled", err)
	}

	s := time.Second
	want := []time.Duration{
		// three failures
		60 * s, 120 * s, 240 * s,
		// success resets
		30 * s,
		// capped at 10m
		60 * s, 120 * s, 240 * s, 480 * s, 600 * s, 600 * s, 600 * s,
	}
	if !reflect.DeepEqual(*waits, want) {
		t.Errorf("waits = %v\nwant    %v", *waits, want)
	}
}

func TestWatchCronPacer(t *testing.T) {
	pacer, err := NewCronPacer("*/15 * * * *")
	if err != nil {
		t.Fatalf("NewCronPacer: %v", err)
	}
	w := New(newFakeQueue(), &fakeDispatcher{}, Options{})
	w.now = func() time.Time { return time.Date(2026, 10, 14, 9, 5, 0, 0, time.UTC) }
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	waits := recordSleeps(w, cancel, 1)

	if err := w.Watch(ctx, "p1", pacer, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("Watch = %v", err)
	}
	if len(*waits) != 1 || (*waits)[0] != 10*time.Minute {
		t.Errorf("waits = %v, want [10m]", *waits)
	}
}

func TestNewCronPacerInvalid(t *testing.T) {
	if _, err := NewCronPacer("every tuesday"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPacerString(t *testing.T) {
	if got := IntervalPacer(30 * time.Second).String(); got != "every 30s" {
		t.Errorf("IntervalPacer.String() = %q", got)
	}
	p, _ := NewCronPacer("@hourly")
	if got := p.String(); got != "on schedule @hourly" {
		t.Errorf("CronPacer.String() = %q", got)
	}
}

func TestWatchStopsPromptly(t *testing.T) {
	w := New(newFakeQueue(), &fakeDispatcher{}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	err := w.Watch(ctx, "p1", IntervalPacer(time.Hour), time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Watch = %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Watch took %v to stop", time.Since(start))
	}
}

func TestErrorBackoffLargeInterval(t *testing.T) {
	b := errorBackoff(8 * time.Minute)
	if got := b.NextBackOff(); got != MaxErrorBackoff {
		t.Errorf("first backoff = %v, want %v", got, MaxErrorBackoff)
	}
}

func TestInstanceLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.lock")
	first := NewInstanceLock(path)
	if err := first.TryLock(); err != nil {
		t.Fatalf("first TryLock: %v", err)
	}
	second := NewInstanceLock(path)
	if err := second.TryLock(); !errors.Is(err, ErrLocked) {
		t.Fatalf("second TryLock = %v, want ErrLocked", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := second.TryLock(); err != nil {
		t.Fatalf("TryLock after release: %v", err)
	}
	second.Unlock()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("lock file missing: %v", err)
	}
}
