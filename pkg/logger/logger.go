// Package logger provides the logging interface shared by the scheduler,
// the daemon and the CLI, together with its backends.
package logger

// Logger defines the printf-style logging interface used across deadline.
// Implementations may log to the console, JSON files or several sinks at once.
type Logger interface {
	// Debug logs a diagnostic message (e.g., "task 7 registered").
	Debug(format string, args ...interface{})

	// Info logs an informational message (e.g., "Scheduler stopped").
	Info(format string, args ...interface{})

	// Warning logs a warning message (e.g., "reply receiver gone").
	Warning(format string, args ...interface{})

	// Error logs an error message (e.g., "callback for task 3 panicked").
	Error(format string, args ...interface{})

	// Close releases resources held by the logger.
	// Safe to call multiple times. Returns nil for loggers without resources.
	Close() error
}

// NopLogger discards all messages.
type NopLogger struct{}

// NewNopLogger creates a logger that discards all messages.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Debug(format string, args ...interface{})   {}
func (n *NopLogger) Info(format string, args ...interface{})    {}
func (n *NopLogger) Warning(format string, args ...interface{}) {}
func (n *NopLogger) Error(format string, args ...interface{})   {}
func (n *NopLogger) Close() error                               { return nil }

var _ Logger = (*NopLogger)(nil)
