package logger

// MultiLogger fans every message out to several backends, e.g. the console
// and a JSON log file.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to all provided backends in
// order.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Debug(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Debug(format, args...)
	}
}

func (m *MultiLogger) Info(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Info(format, args...)
	}
}

func (m *MultiLogger) Warning(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Warning(format, args...)
	}
}

func (m *MultiLogger) Error(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Error(format, args...)
	}
}

// Close closes all backends and returns the first error encountered.
func (m *MultiLogger) Close() error {
	var firstErr error
	for _, l := range m.loggers {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ Logger = (*MultiLogger)(nil)
