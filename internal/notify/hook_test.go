package notify

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("failed to create script: %v", err)
	}
	return path
}

func TestHookNotifier_Send(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on Windows")
	}

	outputFile := filepath.Join(t.TempDir(), "output.json")
	hook := NewHookNotifier(writeScript(t, "hook.sh", "cat > "+outputFile))

	n := Notification{
		Event:       EventFailed,
		TaskID:      "42",
		Title:       "Build the widget",
		Summary:     "Exit code 1",
		Attempts:    3,
		MaxAttempts: 3,
		Time:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := hook.Send(context.Background(), n); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("failed to read output file: %v", err)
	}
	var received HookPayload
	if err := json.Unmarshal(data, &received); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}

	if received.Event != "failed" {
		t.Errorf("Event = %q, want %q", received.Event, "failed")
	}
	if received.TaskID != "42" {
		t.Errorf("TaskID = %q, want %q", received.TaskID, "42")
	}
	if received.Title != "Build the widget" {
		t.Errorf("Title = %q", received.Title)
	}
	if received.Attempts != 3 || received.MaxAttempts != 3 {
		t.Errorf("Attempts = %d/%d", received.Attempts, received.MaxAttempts)
	}
	if received.Summary != "Exit code 1" {
		t.Errorf("Summary = %q", received.Summary)
	}
	if received.Timestamp != "2026-01-01T00:00:00Z" {
		t.Errorf("Timestamp = %q", received.Timestamp)
	}
}

func TestHookNotifier_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on Windows")
	}

	hook := NewHookNotifier(writeScript(t, "slow.sh", "exec sleep 60"))
	hook.Timeout = 200 * time.Millisecond

	err := hook.Send(context.Background(), doneNote)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error, got: %v", err)
	}
}

func TestHookNotifier_NonExistent(t *testing.T) {
	hook := NewHookNotifier("/nonexistent/path/hook.sh")
	if err := hook.Send(context.Background(), doneNote); err == nil {
		t.Fatal("expected error for non-existent script, got nil")
	}
}

func TestHookNotifier_ExitError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on Windows")
	}

	hook := NewHookNotifier(writeScript(t, "fail.sh", "echo nope; exit 1"))
	err := hook.Send(context.Background(), doneNote)
	if err == nil {
		t.Fatal("expected error for exit code 1, got nil")
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Errorf("error should carry script output: %v", err)
	}
}
