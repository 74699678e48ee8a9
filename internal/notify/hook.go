package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const defaultHookTimeout = 30 * time.Second

// HookPayload is the JSON structure passed to hook scripts via stdin.
type HookPayload struct {
	Event       string `json:"event"`
	TaskID      string `json:"taskId"`
	Title       string `json:"title"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"maxAttempts,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// NewHookPayload converts a notification into the hook wire format.
func NewHookPayload(n Notification) HookPayload {
	ts := n.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return HookPayload{
		Event:       string(n.Event),
		TaskID:      n.TaskID,
		Title:       n.Title,
		Attempts:    n.Attempts,
		MaxAttempts: n.MaxAttempts,
		Summary:     n.Summary,
		Timestamp:   ts.UTC().Format(time.RFC3339),
	}
}

// HookNotifier executes a script with a JSON payload on stdin.
type HookNotifier struct {
	ScriptPath string
	Timeout    time.Duration
}

// NewHookNotifier creates a HookNotifier for the given script path.
func NewHookNotifier(scriptPath string) *HookNotifier {
	return &HookNotifier{ScriptPath: scriptPath, Timeout: defaultHookTimeout}
}

// Send runs the hook script, killing it after Timeout.
func (h *HookNotifier) Send(ctx context.Context, n Notification) error {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultHookTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := json.Marshal(NewHookPayload(n))
	if err != nil {
		return fmt.Errorf("hook marshal payload: %w", err)
	}

	cmd := exec.CommandContext(ctx, h.ScriptPath)
	cmd.Stdin = bytes.NewReader(data)
	cmd.WaitDelay = time.Second

	output, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("hook timed out after %s: %s", timeout, h.ScriptPath)
	}
	if err != nil {
		return fmt.Errorf("hook execution failed: %w (output: %s)", err, bytes.TrimSpace(output))
	}
	return nil
}

// Name returns the name of this notifier.
func (h *HookNotifier) Name() string { return "hook" }
