package logger

import (
	"fmt"
	"strings"
	"sync"
)

// MockLogger records every call for verification in tests. Unlike a plain
// slice recorder it is safe to use from the scheduler goroutine while the
// test goroutine inspects it.
type MockLogger struct {
	mu           sync.Mutex
	debugCalls   []string
	infoCalls    []string
	warningCalls []string
	errorCalls   []string
	closed       bool
}

// NewMockLogger creates a new MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) record(dst *[]string, format string, args []interface{}) {
	m.mu.Lock()
	*dst = append(*dst, fmt.Sprintf(format, args...))
	m.mu.Unlock()
}

func (m *MockLogger) Debug(format string, args ...interface{}) {
	m.record(&m.debugCalls, format, args)
}

func (m *MockLogger) Info(format string, args ...interface{}) {
	m.record(&m.infoCalls, format, args)
}

func (m *MockLogger) Warning(format string, args ...interface{}) {
	m.record(&m.warningCalls, format, args)
}

func (m *MockLogger) Error(format string, args ...interface{}) {
	m.record(&m.errorCalls, format, args)
}

// Close records that Close was called.
func (m *MockLogger) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// DebugCalls returns a copy of the recorded debug messages.
func (m *MockLogger) DebugCalls() []string { return m.snapshot(&m.debugCalls) }

// InfoCalls returns a copy of the recorded info messages.
func (m *MockLogger) InfoCalls() []string { return m.snapshot(&m.infoCalls) }

// WarningCalls returns a copy of the recorded warning messages.
func (m *MockLogger) WarningCalls() []string { return m.snapshot(&m.warningCalls) }

// ErrorCalls returns a copy of the recorded error messages.
func (m *MockLogger) ErrorCalls() []string { return m.snapshot(&m.errorCalls) }

// CloseCalled reports whether Close was called.
func (m *MockLogger) CloseCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Contains reports whether any recorded message at any level contains substr.
func (m *MockLogger) Contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, calls := range [][]string{m.debugCalls, m.infoCalls, m.warningCalls, m.errorCalls} {
		for _, c := range calls {
			if strings.Contains(c, substr) {
				return true
			}
		}
	}
	return false
}

func (m *MockLogger) snapshot(src *[]string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(*src))
	copy(out, *src)
	return out
}

var _ Logger = (*MockLogger)(nil)
