package logger

import (
	"context"
	"sync"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// loggerKey is the key used to store logger in context
var loggerKey = contextKey{}

// defaultLogger is used when no logger is found in context
var (
	defaultLogger   *Logger
	defaultLoggerMu sync.RWMutex
)

func init() {
	defaultLogger = New(nil)
}

// SetDefaultLogger replaces the process-wide default logger.
// Parameters:
//   - l: logger to install as the default.
// Returns: none.
func SetDefaultLogger(l *Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = l
}

func getDefaultLogger() *Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// IntoContext stores a logger in the context.
// Parameters:
//   - ctx: parent context.
//   - l: logger to store.
// Returns:
//   - context.Context: derived context carrying the logger.
func IntoContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from the context, falling back to the
// default logger when none is stored.
// Parameters:
//   - ctx: context to inspect.
// Returns:
//   - *Logger: context logger or default logger.
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*Logger); ok {
			return l
		}
	}
	return getDefaultLogger()
}

// WithFields derives a context whose logger carries the extra fields.
// Parameters:
//   - ctx: parent context.
//   - fields: structured fields to attach.
// Returns:
//   - context.Context: derived context with enriched logger.
func WithFields(ctx context.Context, fields Fields) context.Context {
	return IntoContext(ctx, FromContext(ctx).WithFields(fields))
}

// CtxInfo logs at Info level using the context logger.
func CtxInfo(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Infof(format, args...)
}

// CtxWarn logs at Warn level using the context logger.
func CtxWarn(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Warnf(format, args...)
}

// CtxError logs at Error level using the context logger.
func CtxError(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Errorf(format, args...)
}
