package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsole(&buf, LevelInfo)

	logger.Debug("hidden %d", 1)
	logger.Info("shown %d", 2)
	logger.Error("boom")

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("debug line should be filtered, got %q", got)
	}
	if !strings.Contains(got, "shown 2\n") {
		t.Errorf("expected info line, got %q", got)
	}
	if !strings.Contains(got, "boom\n") {
		t.Errorf("expected error line, got %q", got)
	}
}

func TestConsoleDoesNotStyleBuffers(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf, LevelDebug).Warn("careful")
	if buf.String() != "careful\n" {
		t.Errorf("got %q, want plain message", buf.String())
	}
}

func TestTimestampedFormat(t *testing.T) {
	var buf bytes.Buffer
	fixed := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	logger := newTimestamped(&buf, LevelDebug, func() time.Time { return fixed })

	logger.Info("\nTask: %s", "write post")

	want := "2026-10-14 09:30:00 INFO     Task: write post\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestNewFileWritesToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")
	logger, closer := NewFile(path, LevelDebug, FileOptions{})
	logger.Warn("disk %s", "ok")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "WARNING  disk ok") {
		t.Errorf("unexpected file contents %q", data)
	}
}

func TestMultiFansOut(t *testing.T) {
	var a, b bytes.Buffer
	logger := Multi(NewConsole(&a, LevelInfo), nil, NewConsole(&b, LevelError))

	logger.Info("info")
	logger.Error("error")

	if a.String() != "info\nerror\n" {
		t.Errorf("first sink got %q", a.String())
	}
	if b.String() != "error\n" {
		t.Errorf("second sink got %q", b.String())
	}
}

func TestMultiCollapses(t *testing.T) {
	if _, ok := Multi().(nopLogger); !ok {
		t.Error("Multi() should return a nop logger")
	}
	single := NewConsole(&bytes.Buffer{}, LevelInfo)
	if Multi(single) != single {
		t.Error("Multi with one logger should return it unchanged")
	}
}
