package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskrelay/internal/config"
	"taskrelay/internal/output"
	"taskrelay/internal/ui"
)

const defaultAgentBinary = "claude"

func init() {
	DoctorCmd.Flags().String("config", "", "Config file (default "+config.DefaultFile+")")
}

// RunDoctor checks everything the worker and the API commands depend on.
func RunDoctor(cmd *cobra.Command) error {
	out := ui.New(cmd.OutOrStdout())
	ctx := cmd.Context()

	out.Header("Running System Diagnostics")
	out.Blank()

	passCount := 0
	failCount := 0
	warnCount := 0

	// 1. Configuration
	out.Line("1. Checking configuration...")
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		out.Error("Failed to load config", err)
		cfg = &config.Config{}
		failCount++
	} else {
		if configPath == "" {
			configPath = config.DefaultFile
		}
		if _, statErr := os.Stat(configPath); statErr == nil {
			out.Success("Config loaded: %s", configPath)
		} else {
			out.Info("No %s; using defaults", configPath)
		}
		passCount++
	}
	if err := loadEnv(cmd); err != nil {
		out.Error("Failed to read .env", err)
		failCount++
	}
	out.Blank()

	// 2. Agent CLI
	out.Line("2. Checking agent CLI...")
	binary := cfg.Agent.Binary
	if binary == "" {
		binary = defaultAgentBinary
	}
	agentPath, err := exec.LookPath(binary)
	if err != nil {
		out.Error("'"+binary+"' command not found in PATH", nil)
		out.Info("Install with: npm install -g @anthropic-ai/claude-code")
		failCount++
	} else {
		out.Success("Agent CLI found: %s", agentPath)
		if version := agentVersion(ctx, agentPath); version != "" {
			out.Info("Version: %s", version)
		}
		passCount++
	}
	out.Blank()

	// 3. Credentials
	out.Line("3. Checking credentials...")
	for _, name := range config.Credentials {
		if strings.TrimSpace(os.Getenv(name)) != "" {
			out.Success("%s set", name)
			passCount++
			continue
		}
		if name == config.EnvTodoistToken {
			out.Error(name+" not set", nil)
			failCount++
			continue
		}
		out.Warning("%s not set", name)
		warnCount++
	}
	out.Blank()

	// 4. Todoist connectivity
	out.Line("4. Checking Todoist connectivity...")
	if token := strings.TrimSpace(os.Getenv(config.EnvTodoistToken)); token == "" {
		out.Warning("Skipping Todoist test (no token)")
		warnCount++
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		projects, err := newTodoistClient(token).ListProjects(pingCtx)
		cancel()
		if err != nil {
			out.Error("Todoist request failed", err)
			failCount++
		} else {
			out.Success("Todoist reachable: %d project(s)", len(projects))
			passCount++
		}
	}
	out.Blank()

	// 5. Log file location
	out.Line("5. Checking log location...")
	logFile := cfg.Log.File
	if logFile == "" {
		logFile = defaultLogFile
	}
	logDir, _ := filepath.Abs(filepath.Dir(logFile))
	if canWriteTo(logDir) {
		out.Success("Log directory writable: %s", logDir)
		passCount++
	} else {
		out.Error("Log directory not writable: "+logDir, nil)
		failCount++
	}
	out.Blank()

	out.Header("Diagnostic Summary")
	out.Success("Passed: %d", passCount)
	if warnCount > 0 {
		out.Warning("Warnings: %d", warnCount)
	}
	if failCount > 0 {
		out.Error(fmt.Sprintf("Failed: %d", failCount), nil)
	}
	out.Blank()

	if failCount > 0 {
		out.Error("System has critical issues", nil)
		return output.ErrReported
	}
	if warnCount > 0 {
		out.Warning("System has non-critical warnings")
	} else {
		out.Success("All checks passed!")
	}
	return nil
}

func agentVersion(ctx context.Context, path string) string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func canWriteTo(dir string) bool {
	f, err := os.CreateTemp(dir, ".taskrelay-write-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
