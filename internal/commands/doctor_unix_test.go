//go:build !windows

package commands

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskrelay/internal/output"
)

func TestDoctorReportsWarnings(t *testing.T) {
	bin := fakeClaude(t, `echo "2.0.1 (Claude Code)"`)
	newFakeTodoist(t, `{"results":[]}`)
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("taskrelay.yaml", []byte("agent:\n  binary: "+bin+"\n"), 0o644))
	t.Setenv("TODOIST_API_TOKEN", "tok")
	t.Setenv("AIRTABLE_API_KEY", "")
	t.Setenv("AIRTABLE_BASE_ID", "")
	t.Setenv("YOUTUBE_API_KEY", "")
	t.Setenv("SUPADATA_API_KEY", "")

	stdout, _, err := execute(t, DoctorCmd)
	require.NoError(t, err)
	assert.Contains(t, stdout, " ✓ Config loaded: taskrelay.yaml\n")
	assert.Contains(t, stdout, " ✓ Agent CLI found: "+bin+"\n")
	assert.Contains(t, stdout, " ℹ Version: 2.0.1 (Claude Code)\n")
	assert.Contains(t, stdout, " ✓ TODOIST_API_TOKEN set\n")
	assert.Contains(t, stdout, " ! YOUTUBE_API_KEY not set\n")
	assert.Contains(t, stdout, " ✓ Todoist reachable: 1 project(s)\n")
	assert.Contains(t, stdout, " ! Warnings: 4\n")
	assert.Contains(t, stdout, " ! System has non-critical warnings\n")
}

func TestDoctorFailsWithoutAgent(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("taskrelay.yaml", []byte("agent:\n  binary: no-such-agent-binary\n"), 0o644))
	t.Setenv("TODOIST_API_TOKEN", "")

	stdout, _, err := execute(t, DoctorCmd)
	assert.ErrorIs(t, err, output.ErrReported)
	assert.Contains(t, stdout, " ✗ 'no-such-agent-binary' command not found in PATH\n")
	assert.Contains(t, stdout, " ✗ TODOIST_API_TOKEN not set\n")
	assert.Contains(t, stdout, " ✗ System has critical issues\n")
}
