package logger

import (
	"log"
	"strings"
)

// stdWriter feeds lines written through a *log.Logger into a Logger at a
// fixed level.
type stdWriter struct {
	log   Logger
	level string
}

func (w *stdWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	switch w.level {
	case "error":
		w.log.Error("%s", msg)
	case "warning":
		w.log.Warning("%s", msg)
	default:
		w.log.Info("%s", msg)
	}
	return len(p), nil
}

// ToStdErrorLogger adapts l to a *log.Logger for http.Server.ErrorLog. Every
// line is logged at error level.
func ToStdErrorLogger(l Logger) *log.Logger {
	return log.New(&stdWriter{log: l, level: "error"}, "", 0)
}
