package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the minimum severity a sink emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// Logger defines a minimal, printf-style logging contract.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

var (
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// sink writes formatted lines at or above a level to a stdlib log.Logger.
type sink struct {
	out    *log.Logger
	level  Level
	format func(level Level, msg string) string
}

func (s *sink) emit(level Level, format string, args ...any) {
	if level < s.level {
		return
	}
	s.out.Print(s.format(level, fmt.Sprintf(format, args...)))
}

func (s *sink) Debug(format string, args ...any) { s.emit(LevelDebug, format, args...) }
func (s *sink) Info(format string, args ...any)  { s.emit(LevelInfo, format, args...) }
func (s *sink) Warn(format string, args ...any)  { s.emit(LevelWarn, format, args...) }
func (s *sink) Error(format string, args ...any) { s.emit(LevelError, format, args...) }

// NewConsole returns a logger that prints bare messages to w. When w is a
// terminal, warnings and errors are colored.
func NewConsole(w io.Writer, level Level) Logger {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &sink{
		out:   log.New(w, "", 0),
		level: level,
		format: func(level Level, msg string) string {
			if !styled {
				return msg
			}
			switch level {
			case LevelDebug:
				return debugStyle.Render(msg)
			case LevelWarn:
				return warnStyle.Render(msg)
			case LevelError:
				return errorStyle.Render(msg)
			}
			return msg
		},
	}
}

// FileOptions controls rotation of the file sink.
type FileOptions struct {
	MaxSizeMB  int
	MaxBackups int
}

// NewFile returns a logger that appends timestamped lines to path, rotating
// the file by size. The returned closer releases the file handle.
func NewFile(path string, level Level, opts FileOptions) (Logger, io.Closer) {
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 3
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}
	return newTimestamped(rotator, level, time.Now), rotator
}

func newTimestamped(w io.Writer, level Level, now func() time.Time) Logger {
	return &sink{
		out:   log.New(w, "", 0),
		level: level,
		format: func(level Level, msg string) string {
			// Leading blank lines are console spacing only.
			msg = strings.TrimLeft(msg, "\n")
			return fmt.Sprintf("%s %-8s %s", now().Format("2006-01-02 15:04:05"), level, msg)
		},
	}
}

type multiLogger struct {
	loggers []Logger
}

// Multi returns a logger fan-out that calls every non-nil logger in order.
func Multi(loggers ...Logger) Logger {
	flattened := make([]Logger, 0, len(loggers))
	for _, logger := range loggers {
		if logger == nil {
			continue
		}
		if ml, ok := logger.(*multiLogger); ok {
			flattened = append(flattened, ml.loggers...)
			continue
		}
		flattened = append(flattened, logger)
	}
	if len(flattened) == 0 {
		return Nop()
	}
	if len(flattened) == 1 {
		return flattened[0]
	}
	return &multiLogger{loggers: flattened}
}

func (l *multiLogger) Debug(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Debug(format, args...)
	}
}

func (l *multiLogger) Info(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Info(format, args...)
	}
}

func (l *multiLogger) Warn(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Warn(format, args...)
	}
}

func (l *multiLogger) Error(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Error(format, args...)
	}
}
