package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"taskrelay/internal/agent"
	"taskrelay/internal/config"
	"taskrelay/internal/logging"
	"taskrelay/internal/notify"
	"taskrelay/internal/output"
	"taskrelay/internal/todoist"
	"taskrelay/internal/worker"
)

const defaultLogFile = "taskrelay.log"

// newTodoistClient is replaced in tests to point at a local server.
var newTodoistClient = func(token string) *todoist.Client {
	return todoist.New(token)
}

// WorkerSettings is the worker command's flags merged over the config file.
type WorkerSettings struct {
	Project     string
	Watch       bool
	Interval    time.Duration
	Schedule    string
	Verbose     bool
	Timeout     time.Duration
	MaxRetries  int
	MetricsAddr string
}

// resolveWorkerSettings gives explicitly set flags precedence, then
// non-zero config values, then flag defaults.
func resolveWorkerSettings(fs *pflag.FlagSet, file config.WorkerConfig) WorkerSettings {
	s := WorkerSettings{}
	s.Project = pick(fs, "project", fs.GetString, file.Project)
	s.Watch, _ = fs.GetBool("watch")
	s.Verbose, _ = fs.GetBool("verbose")
	s.Interval = pick(fs, "interval", fs.GetDuration, file.Interval)
	s.Schedule = pick(fs, "schedule", fs.GetString, file.Schedule)
	s.Timeout = pick(fs, "timeout", fs.GetDuration, file.Timeout)
	s.MaxRetries = pick(fs, "max-retries", fs.GetInt, file.MaxRetries)
	s.MetricsAddr = pick(fs, "metrics-addr", fs.GetString, file.MetricsAddr)
	return s
}

func pick[T comparable](fs *pflag.FlagSet, name string, get func(string) (T, error), fromFile T) T {
	v, _ := get(name)
	var zero T
	if !fs.Changed(name) && fromFile != zero {
		return fromFile
	}
	return v
}

func runWorkerCmd(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
		return output.ErrReported
	}

	s := resolveWorkerSettings(cmd.Flags(), cfg.Worker)
	if s.Project == "" {
		return errors.New("--project is required (or set worker.project in the config file)")
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	envErr := loadEnv(cmd)
	return RunWorker(ctx, cmd.ErrOrStderr(), s, cfg, envErr)
}

// RunWorker runs one cycle, or polls until ctx ends in watch mode. Console
// logs go to console. Operator interrupt is a normal exit.
func RunWorker(ctx context.Context, console io.Writer, s WorkerSettings, cfg *config.Config, envErr error) error {
	level := logging.LevelInfo
	if s.Verbose {
		level = logging.LevelDebug
	}
	logger := logging.NewConsole(console, level)
	if s.Watch {
		path := cfg.Log.File
		if path == "" {
			path = defaultLogFile
		}
		fileLog, closer := logging.NewFile(path, logging.LevelDebug, logging.FileOptions{
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		})
		defer closer.Close()
		logger = logging.Multi(logger, fileLog)
	}

	if envErr != nil {
		logger.Error("Failed to read .env: %v", envErr)
		return output.ErrReported
	}
	token, err := config.Require(config.EnvTodoistToken)
	if err != nil {
		logger.Error("%v", err)
		return output.ErrReported
	}

	var pacer worker.Pacer
	if s.Schedule != "" {
		cronPacer, err := worker.NewCronPacer(s.Schedule)
		if err != nil {
			logger.Error("%v", err)
			return output.ErrReported
		}
		pacer = cronPacer
	} else {
		pacer = worker.IntervalPacer(s.Interval)
	}

	options := []worker.Option{worker.WithLogger(logger)}
	if n := buildNotifier(cfg.Notify); n.Len() > 0 {
		options = append(options, worker.WithNotifier(n))
	}
	if s.MetricsAddr != "" {
		metrics := worker.NewMetrics()
		options = append(options, worker.WithMetrics(metrics))
		shutdown := serveMetrics(s.MetricsAddr, metrics, logger)
		defer shutdown()
	}

	dispatcher := agent.NewClaudeAdapter(agent.ClaudeConfig{
		Binary:       cfg.Agent.Binary,
		Model:        cfg.Agent.Model,
		WorkDir:      cfg.Agent.WorkDir,
		AllowedTools: cfg.Agent.AllowedTools,
		StripEnv:     cfg.Agent.StripEnv,
		KillGrace:    cfg.Agent.KillGrace,
	}, logger)

	w := worker.New(newTodoistClient(token), dispatcher, worker.Options{
		MaxRetries: s.MaxRetries,
		Timeout:    s.Timeout,
		Verbose:    s.Verbose,
	}, options...)

	projectID, err := w.ResolveProject(ctx, s.Project)
	if err != nil {
		if errors.Is(err, todoist.ErrProjectNotFound) {
			logger.Error("No '%s' project found in Todoist.", s.Project)
		} else if ctx.Err() != nil {
			logger.Info("\nStopped.")
			return nil
		} else {
			logger.Error("Could not look up project: %v", err)
		}
		return output.ErrReported
	}

	logger.Info("Watching project: %s (id: %s)", s.Project, projectID)
	if s.Verbose {
		logger.Info("Verbose mode: streaming agent progress to terminal")
	}

	if s.Watch {
		lock := worker.NewInstanceLock(filepath.Join(os.TempDir(), "taskrelay-"+projectID+".lock"))
		if err := lock.TryLock(); err != nil {
			logger.Error("%v (lock %s)", err, lock.Path())
			return output.ErrReported
		}
		defer lock.Unlock()

		logger.Info("Polling %s. Ctrl+C to stop.\n", pacer)
		err = w.Watch(ctx, projectID, pacer, s.Interval)
	} else {
		_, err = w.RunOnce(ctx, projectID)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		logger.Info("\nStopped.")
		return nil
	default:
		logger.Error("Poll failed: %v", err)
		return output.ErrReported
	}
}

// buildNotifier assembles the notifiers named in the config file.
func buildNotifier(cfg config.NotifyConfig) *notify.MultiNotifier {
	var ns []notify.Notifier
	if cfg.Desktop {
		ns = append(ns, notify.NewDesktopNotifier())
	}
	if cfg.Hook != "" {
		ns = append(ns, notify.NewHookNotifier(cfg.Hook))
	}
	for _, wh := range cfg.Webhooks {
		ns = append(ns, notify.NewWebhookNotifier(wh.URL, wh.Format, wh.Extra))
	}
	return notify.NewMultiNotifier(ns...)
}

// serveMetrics exposes /metrics on addr until the returned func is called.
func serveMetrics(addr string, m *worker.Metrics, logger logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server: %v", err)
		}
	}()
	logger.Debug("Serving metrics on %s/metrics", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
