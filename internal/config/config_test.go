package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
agent:
  binary: /usr/local/bin/claude
  model: opus
  allowed_tools: [Read, Write, "Bash(uv run:*)"]
  kill_grace: 10s
worker:
  project: Agent
  interval: 1m
  timeout: 15m
  max_retries: 5
notify:
  hook: ./hooks/on-finish.sh
  webhooks:
    - url: https://hooks.slack.com/services/x
      format: slack
    - url: https://api.telegram.org/bot1/sendMessage
      format: telegram
      extra:
        chat_id: "42"
log:
  file: /var/log/taskrelay.log
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/claude", cfg.Agent.Binary)
	assert.Equal(t, "opus", cfg.Agent.Model)
	assert.Equal(t, []string{"Read", "Write", "Bash(uv run:*)"}, cfg.Agent.AllowedTools)
	assert.Equal(t, 10*time.Second, cfg.Agent.KillGrace)
	assert.Equal(t, "Agent", cfg.Worker.Project)
	assert.Equal(t, time.Minute, cfg.Worker.Interval)
	assert.Equal(t, 15*time.Minute, cfg.Worker.Timeout)
	assert.Equal(t, 5, cfg.Worker.MaxRetries)
	assert.Equal(t, "./hooks/on-finish.sh", cfg.Notify.Hook)
	require.Len(t, cfg.Notify.Webhooks, 2)
	assert.Equal(t, "42", cfg.Notify.Webhooks[1].Extra["chat_id"])
	assert.Equal(t, "/var/log/taskrelay.log", cfg.Log.File)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"negative retries": "worker:\n  max_retries: -1\n",
		"webhook no url":   "notify:\n  webhooks:\n    - format: slack\n",
		"unknown format":   "notify:\n  webhooks:\n    - url: http://x\n      format: irc\n",
		"custom no tmpl":   "notify:\n  webhooks:\n    - url: http://x\n      format: custom\n",
		"bad duration":     "worker:\n  interval: soon\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadDefaultMissingIsEmpty(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoadExplicitMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "opus", cfg.Agent.Model)
}
