package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"taskrelay/internal/logging"
)

const (
	// SummaryLimit is the character budget for result and error text.
	SummaryLimit = 500

	defaultBinary    = "claude"
	defaultModel     = "sonnet"
	defaultKillGrace = 5 * time.Second

	// stderrLimit holds SummaryLimit+1 runes of any width, so a cut is
	// still detected after decoding.
	stderrLimit = 4 * (SummaryLimit + 1)
)

// DefaultStripEnv lists variables removed from the child's environment so the
// agent runs on its own login and cannot read the worker's credentials.
var DefaultStripEnv = []string{"CLAUDECODE", "ANTHROPIC_API_KEY", "TODOIST_API_TOKEN"}

// ClaudeConfig configures the Claude CLI dispatcher.
type ClaudeConfig struct {
	Binary       string        // executable name or path (default "claude")
	Model        string        // --model value (default "sonnet")
	WorkDir      string        // child working directory; also trimmed from status paths
	AllowedTools []string      // repeated --allowedTools flags
	StripEnv     []string      // environment variables hidden from the child
	KillGrace    time.Duration // SIGTERM to SIGKILL escalation delay
}

// ClaudeAdapter dispatches tasks to the Claude CLI in print mode.
type ClaudeAdapter struct {
	cfg    ClaudeConfig
	logger logging.Logger

	// onStart observes the child PID; used by tests.
	onStart func(pid int)
}

// NewClaudeAdapter fills defaults into cfg and returns an adapter.
func NewClaudeAdapter(cfg ClaudeConfig, logger logging.Logger) *ClaudeAdapter {
	if cfg.Binary == "" {
		cfg.Binary = defaultBinary
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.StripEnv == nil {
		cfg.StripEnv = DefaultStripEnv
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = defaultKillGrace
	}
	return &ClaudeAdapter{cfg: cfg, logger: logging.OrNop(logger)}
}

// Available checks if the agent CLI is installed and executable.
func (a *ClaudeAdapter) Available() bool {
	_, err := exec.LookPath(a.cfg.Binary)
	return err == nil
}

// Dispatch runs one attempt. See Dispatcher for the error contract.
func (a *ClaudeAdapter) Dispatch(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	cmd := exec.Command(a.cfg.Binary, a.buildArgs(req)...)
	cmd.Dir = a.cfg.WorkDir
	cmd.Env = filterEnv(os.Environ(), a.cfg.StripEnv)
	cmd.WaitDelay = a.cfg.KillGrace

	stderr := &cappedBuffer{max: stderrLimit}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return failure(fmt.Sprintf("stdout pipe: %v", err)), nil
	}

	a.logger.Info("  Dispatching to Claude Code...")
	started := time.Now()
	proc, err := startProcess(cmd, a.cfg.KillGrace)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return failure(fmt.Sprintf("'%s' command not found", a.cfg.Binary)), nil
		}
		return failure(fmt.Sprintf("start %s: %v", a.cfg.Binary, err)), nil
	}
	if a.onStart != nil {
		a.onStart(proc.PID())
	}

	stopInterrupt := context.AfterFunc(ctx, func() { proc.Cancel() })
	defer stopInterrupt()

	// The watchdog stays armed until the child is reaped: it must fire
	// whether the child stalls on stdout or closes it and keeps running.
	var watchdog *time.Timer
	if req.Timeout > 0 {
		watchdog = time.AfterFunc(req.Timeout, func() { proc.Expire() })
	}

	var resultText string
	var cost float64
	var readErr error
	if req.Verbose {
		resultText, cost, readErr = a.readStream(stdout)
	} else {
		var raw []byte
		raw, readErr = io.ReadAll(stdout)
		if text, c, ok := parseJSONOutput(raw); ok {
			resultText, cost = text, c
		}
	}
	if readErr != nil {
		a.logger.Warn("  Warning: could not read agent output: %v", readErr)
	}

	waitErr := proc.Wait()
	if watchdog != nil {
		watchdog.Stop()
	}
	res := Result{CostUSD: cost, Duration: time.Since(started), ExitCode: exitCode(waitErr)}

	if ctx.Err() != nil {
		a.logger.Info("\n  Interrupted, agent stopped.")
		return Result{}, ctx.Err()
	}
	if proc.TimedOut() {
		res.TimedOut = true
		res.Summary = fmt.Sprintf("Timed out after %s", formatTimeout(req.Timeout))
		a.logger.Error("  %s", res.Summary)
		return res, nil
	}

	if waitErr == nil {
		res.Success = true
		res.Summary = "Completed."
		if resultText != "" {
			res.Summary = truncate(resultText, SummaryLimit)
		}
		if cost > 0 {
			a.logger.Info("  Done. Cost: $%.4f", cost)
		} else {
			a.logger.Info("  Done.")
		}
		return res, nil
	}

	parts := []string{fmt.Sprintf("Exit code %d", res.ExitCode)}
	if errText := strings.TrimSpace(stderr.String()); errText != "" {
		parts = append(parts, "stderr: "+truncate(errText, SummaryLimit))
	}
	if resultText != "" {
		parts = append(parts, "output: "+truncate(resultText, SummaryLimit))
	}
	res.Summary = strings.Join(parts, "\n")
	a.logger.Error("  Failed:\n  %s", strings.ReplaceAll(res.Summary, "\n", "\n  "))
	return res, nil
}

// readStream consumes stream-json output, logging each distinct tool status
// once, and returns the text and cost of the final result event. The error
// is nil at a clean end of stream.
func (a *ClaudeAdapter) readStream(stdout io.Reader) (string, float64, error) {
	seen := make(map[string]bool)
	var result string
	var cost float64

	reader := bufio.NewReader(stdout)
	for {
		line, err := reader.ReadBytes('\n')
		if ev, ok := parseStreamLine(line); ok {
			for _, use := range ev.toolUses() {
				desc := describeToolUse(use.Name, use.Input, a.cfg.WorkDir)
				if desc != "" && !seen[desc] {
					seen[desc] = true
					a.logger.Info("  %s", desc)
				}
			}
			if ev.Type == "result" {
				result = ev.Result
				cost = ev.cost()
			}
		}
		if errors.Is(err, io.EOF) {
			return result, cost, nil
		}
		if err != nil {
			return result, cost, err
		}
	}
}

// buildArgs constructs the command-line arguments for claude.
func (a *ClaudeAdapter) buildArgs(req Request) []string {
	format := "json"
	if req.Verbose {
		format = "stream-json"
	}
	args := []string{"-p", req.Prompt(), "--model", a.cfg.Model, "--output-format", format}
	if req.Verbose {
		args = append(args, "--verbose")
	}
	for _, tool := range a.cfg.AllowedTools {
		args = append(args, "--allowedTools", tool)
	}
	return args
}

func filterEnv(env []string, strip []string) []string {
	if len(strip) == 0 {
		return env
	}
	drop := make(map[string]bool, len(strip))
	for _, name := range strip {
		drop[name] = true
	}
	out := make([]string, 0, len(env))
	for _, kv := range env {
		name, _, _ := strings.Cut(kv, "=")
		if !drop[name] {
			out = append(out, kv)
		}
	}
	return out
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func failure(summary string) Result {
	return Result{Summary: summary, ExitCode: -1}
}

// truncate cuts s to limit characters, marking the cut with "...".
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func formatTimeout(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int(d/time.Second))
	}
	return d.String()
}
