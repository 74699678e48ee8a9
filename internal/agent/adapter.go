package agent

import (
	"context"
	"time"
)

// Dispatcher runs one agent attempt for a task.
//
// Dispatch reports the attempt's outcome in the Result. The returned error
// is non-nil only when ctx was cancelled (operator interrupt); by then the
// child process group has already been terminated.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (Result, error)
}

// Request describes a single dispatch attempt.
type Request struct {
	Title       string
	Description string
	Verbose     bool          // stream-json output with per-tool status lines
	Timeout     time.Duration // wall-clock limit; zero disables the watchdog
}

// Prompt joins title and description into the text handed to the agent.
func (r Request) Prompt() string {
	if r.Description == "" {
		return r.Title
	}
	return r.Title + "\n\n" + r.Description
}

// Result is the outcome of one attempt. It lives only until the caller has
// updated the task.
type Result struct {
	Success  bool
	Summary  string
	TimedOut bool
	ExitCode int
	CostUSD  float64
	Duration time.Duration
}
