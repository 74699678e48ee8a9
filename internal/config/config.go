// Package config loads the worker's optional YAML file and .env secrets.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no --config is given.
const DefaultFile = "taskrelay.yaml"

// Config is the on-disk configuration. Every field is optional; command-line
// flags take precedence over values set here.
type Config struct {
	Agent  AgentConfig  `yaml:"agent"`
	Worker WorkerConfig `yaml:"worker"`
	Notify NotifyConfig `yaml:"notify"`
	Log    LogConfig    `yaml:"log"`
}

// AgentConfig configures the agent CLI invocation.
type AgentConfig struct {
	Binary       string        `yaml:"binary"`
	Model        string        `yaml:"model"`
	WorkDir      string        `yaml:"workdir"`
	AllowedTools []string      `yaml:"allowed_tools"`
	StripEnv     []string      `yaml:"strip_env"`
	KillGrace    time.Duration `yaml:"kill_grace"`
}

// WorkerConfig holds defaults for the worker command's flags.
type WorkerConfig struct {
	Project     string        `yaml:"project"`
	Interval    time.Duration `yaml:"interval"`
	Schedule    string        `yaml:"schedule"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	MetricsAddr string        `yaml:"metrics_addr"`
}

// NotifyConfig lists where terminal task outcomes are announced.
type NotifyConfig struct {
	Desktop  bool            `yaml:"desktop"`
	Hook     string          `yaml:"hook"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig is one chat webhook endpoint.
type WebhookConfig struct {
	URL    string            `yaml:"url"`
	Format string            `yaml:"format"` // slack, feishu, dingtalk, telegram, custom
	Extra  map[string]string `yaml:"extra"`
}

// LogConfig configures the watch-mode log file.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Load reads the config file at path. An empty path means DefaultFile, which
// may be absent; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Worker.MaxRetries < 0 {
		return fmt.Errorf("worker.max_retries must not be negative")
	}
	if c.Worker.Interval < 0 || c.Worker.Timeout < 0 || c.Agent.KillGrace < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	for i, wh := range c.Notify.Webhooks {
		if wh.URL == "" {
			return fmt.Errorf("notify.webhooks[%d]: url is required", i)
		}
		switch wh.Format {
		case "", "slack", "feishu", "dingtalk", "telegram":
		case "custom":
			if wh.Extra["template"] == "" {
				return fmt.Errorf("notify.webhooks[%d]: custom format needs extra.template", i)
			}
		default:
			return fmt.Errorf("notify.webhooks[%d]: unknown format %q", i, wh.Format)
		}
	}
	return nil
}
