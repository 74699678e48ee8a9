package worker

import (
	"fmt"
	"strconv"
	"strings"
)

// Label names used to persist task state on the remote queue.
const (
	LabelDone        = "agent-done"
	LabelFailed      = "agent-failed"
	LabelRetryPrefix = "agent-retry-"
)

// State is the worker's view of a task's lifecycle.
type State int

const (
	Pending State = iota
	Retrying
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Retrying:
		return "retrying"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether the task must never be dispatched again.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// Status is a task's state plus the number of failed attempts so far.
type Status struct {
	State    State
	Attempts int
}

// ParseLabels derives a Status from a task's labels. A terminal label wins
// over any retry label, and agent-failed wins over agent-done. Retry labels
// with a non-numeric suffix count as zero; with several retry labels the
// highest count is taken.
func ParseLabels(labels []string) Status {
	var st Status
	var done, failed bool
	for _, l := range labels {
		switch {
		case l == LabelDone:
			done = true
		case l == LabelFailed:
			failed = true
		default:
			if n, ok := retryCount(l); ok && n > st.Attempts {
				st.Attempts = n
			}
		}
	}
	switch {
	case failed:
		st.State = Failed
	case done:
		st.State = Done
	case st.Attempts > 0:
		st.State = Retrying
	default:
		st.State = Pending
	}
	return st
}

// Labels serializes s onto labels. Non-agent labels keep their order; every
// agent label is replaced by exactly the one s requires, if any.
func (s Status) Labels(labels []string) []string {
	out := make([]string, 0, len(labels)+1)
	for _, l := range labels {
		if !isAgentLabel(l) {
			out = append(out, l)
		}
	}
	switch s.State {
	case Done:
		out = append(out, LabelDone)
	case Failed:
		out = append(out, LabelFailed)
	case Retrying:
		if s.Attempts > 0 {
			out = append(out, LabelRetryPrefix+strconv.Itoa(s.Attempts))
		}
	}
	return out
}

func isAgentLabel(l string) bool {
	return l == LabelDone || l == LabelFailed || strings.HasPrefix(l, LabelRetryPrefix)
}

func retryCount(label string) (int, bool) {
	suffix, ok := strings.CutPrefix(label, LabelRetryPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
