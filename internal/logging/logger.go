package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// FormatJSON and FormatText select the handler encoding.
const (
	FormatJSON = "json"
	FormatText = "text"
)

var (
	defaultLogger *slog.Logger
	mu            sync.RWMutex

	// Current handler settings, so changing one keeps the others.
	curWriter io.Writer  = os.Stdout
	curFormat string     = FormatJSON
	curLevel  slog.Level = slog.LevelInfo
)

func init() {
	defaultLogger = slog.New(newHandler(curWriter, curFormat, curLevel))
}

// newHandler builds a redacting handler for the given destination,
// format and level. Every logger constructed by this package redacts
// secrets before they reach the sink.
func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	if format == FormatText {
		inner = slog.NewTextHandler(w, opts)
	} else {
		inner = slog.NewJSONHandler(w, opts)
	}
	return NewRedactingHandler(inner)
}

func rebuild() {
	defaultLogger = slog.New(newHandler(curWriter, curFormat, curLevel))
}

// Configure installs the destination, format and level in one step.
func Configure(w io.Writer, format string, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	curWriter = w
	curFormat = format
	curLevel = level
	rebuild()
}

// SetLogger sets the global logger
func SetLogger(logger *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

// SetOutput sets the output destination, keeping format and level.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	curWriter = w
	rebuild()
}

// SetLevel sets the logging level, keeping destination and format.
func SetLevel(level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	curLevel = level
	rebuild()
}

// SetTextOutput switches to human-readable debug output (for development)
func SetTextOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	curWriter = w
	curFormat = FormatText
	curLevel = slog.LevelDebug
	rebuild()
}

// Logger returns the default logger
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// With returns a logger with additional context
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Debug logs at debug level
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs at info level
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs at warn level
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs at error level
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// DebugContext logs at debug level with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	Logger().DebugContext(ctx, msg, args...)
}

// InfoContext logs at info level with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	Logger().InfoContext(ctx, msg, args...)
}

// WarnContext logs at warn level with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	Logger().WarnContext(ctx, msg, args...)
}

// ErrorContext logs at error level with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	Logger().ErrorContext(ctx, msg, args...)
}

// Common field helpers
func Service(name string) slog.Attr {
	return slog.String("service", name)
}

func Address(addr string) slog.Attr {
	return slog.String("address", addr)
}

func TxHash(hash string) slog.Attr {
	return slog.String("tx_hash", hash)
}

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}
