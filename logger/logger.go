// Package logger decouples the switchbox driver from any particular logging
// framework. The driver logs through the Logger interface; callers may plug
// in their own implementation or rely on the slog-backed default.
package logger

// Level indicates the logging severity level.
type Level = int8

const (
	// DebugLevel logs are voluminous (every wire line) and usually disabled
	// in production.
	DebugLevel Level = iota - 1
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs flag recoverable oddities, such as dropped relay
	// indices.
	WarnLevel
	// ErrorLevel logs are high-priority failures.
	ErrorLevel
)

// Logger is a leveled, structured logger with key-value pairs.
type Logger interface {
	// Debug logs a message at DebugLevel.
	Debug(msg string, keysAndValues ...any)
	// Info logs a message at InfoLevel.
	Info(msg string, keysAndValues ...any)
	// Warn logs a message at WarnLevel.
	Warn(msg string, keysAndValues ...any)
	// Error logs a message at ErrorLevel.
	Error(msg string, keysAndValues ...any)
	// With creates a child logger with additional structured context.
	With(keysAndValues ...any) Logger
	// SetLevel sets the minimum enabled level for this logger.
	SetLevel(level Level)
}

var defLogger = newSlog(InfoLevel)

// GetLogger returns the package default logger.
func GetLogger() Logger { return defLogger }

// SetLevel sets the minimum enabled level of the default logger.
func SetLevel(level Level) { defLogger.SetLevel(level) }

// With creates a child of the default logger with additional context.
func With(keysAndValues ...any) Logger { return defLogger.With(keysAndValues...) }
