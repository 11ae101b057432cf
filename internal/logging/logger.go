package logging

// Levelled diagnostics for pccov. Everything goes to stderr (or the log
// file), never to the report output.

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelVerbose
	LogLevelDebug
)

var levelNames = map[string]LogLevel{
	"silent":  LogLevelSilent,
	"error":   LogLevelError,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"info":    LogLevelInfo,
	"verbose": LogLevelVerbose,
	"debug":   LogLevelDebug,
}

// ParseLevel maps a --log-level value to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return LogLevelInfo, fmt.Errorf("unknown log level %q (want silent, error, warn, info, verbose or debug)", s)
	}
	return lvl, nil
}

// String returns the lower-case level name.
func (l LogLevel) String() string {
	switch l {
	case LogLevelSilent:
		return "silent"
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelVerbose:
		return "verbose"
	case LogLevelDebug:
		return "debug"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Logger provides structured logging
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	format   string
	file     *os.File
	fileLog  *slog.Logger
	stderr   *slog.Logger
	warnOnce map[string]struct{}
}

// NewLogger creates a new logger writing to stderr and, if logFile is set,
// to that file in text format.
func NewLogger(level LogLevel, logFile string) (*Logger, error) {
	return NewLoggerWithOptions(level, logFile, "text")
}

// NewLoggerWithOptions creates a logger whose file sink uses the given
// format ("text" or "json").
func NewLoggerWithOptions(level LogLevel, logFile, format string) (*Logger, error) {
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("invalid log format %q; must be 'text' or 'json'", format)
	}

	l := &Logger{
		level:  level,
		format: format,
		stderr: slog.New(newStderrHandler(os.Stderr)),
	}

	if logFile != "" {
		file, err := os.Create(logFile)
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		l.file = file
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		if format == "json" {
			l.fileLog = slog.New(slog.NewJSONHandler(file, opts))
		} else {
			l.fileLog = slog.New(slog.NewTextHandler(file, opts))
		}
	}

	return l, nil
}

// NewLoggerTo creates a logger that writes plain text records to w only.
// Used by tests and by callers that capture diagnostics.
func NewLoggerTo(level LogLevel, w io.Writer) *Logger {
	return &Logger{
		level:  level,
		format: "text",
		stderr: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			ReplaceAttr: dropTime,
		})),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return NewLoggerTo(LogLevelSilent, io.Discard)
}

func newStderrHandler(w *os.File) slog.Handler {
	if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
		return tint.NewHandler(w, &tint.Options{
			Level:       slog.LevelDebug,
			ReplaceAttr: dropTime,
		})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: dropTime,
	})
}

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 {
		return slog.Attr{}
	}
	return a
}

// Close closes the logger and flushes all data
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.fileLog = nil
		return err
	}
	return nil
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.log(LogLevelError, slog.LevelError, format, v...)
}

// Warn logs a recoverable problem, such as a file that could not be backfilled.
func (l *Logger) Warn(format string, v ...interface{}) {
	l.log(LogLevelWarn, slog.LevelWarn, format, v...)
}

// WarnOnce logs a warning the first time key is seen.
func (l *Logger) WarnOnce(key, format string, v ...interface{}) {
	l.mu.Lock()
	if l.warnOnce == nil {
		l.warnOnce = make(map[string]struct{})
	}
	_, seen := l.warnOnce[key]
	l.warnOnce[key] = struct{}{}
	l.mu.Unlock()
	if !seen {
		l.Warn(format, v...)
	}
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.log(LogLevelInfo, slog.LevelInfo, format, v...)
}

// Verbose logs a verbose message
func (l *Logger) Verbose(format string, v ...interface{}) {
	l.log(LogLevelVerbose, slog.LevelInfo, format, v...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.log(LogLevelDebug, slog.LevelDebug, format, v...)
}

func (l *Logger) log(at LogLevel, sl slog.Level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.level < at {
		return
	}
	msg := fmt.Sprintf(format, v...)
	ctx := context.Background()
	if l.fileLog != nil {
		l.fileLog.Log(ctx, sl, msg)
	}
	l.stderr.Log(ctx, sl, msg)
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// LogStartup logs the run parameters.
func (l *Logger) LogStartup(input, output string, roots []string, shell string, jobs int) {
	l.Info("Starting pccov: %s -> %s", input, output)
	l.Verbose("  Sweep roots: %s", strings.Join(roots, ", "))
	if shell != "" {
		l.Verbose("  Disassembler: %s", shell)
	}
	l.Verbose("  Jobs: %d", jobs)
}
