package logging

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// captureLogger records calls for assertions.
type captureLogger struct {
	mu      sync.Mutex
	entries []string
	fields  Fields
}

func (c *captureLogger) record(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, msg)
}

func (c *captureLogger) Debug(msg string, fields ...Fields)            { c.record(msg) }
func (c *captureLogger) Info(msg string, fields ...Fields)             { c.record(msg) }
func (c *captureLogger) Warn(msg string, fields ...Fields)             { c.record(msg) }
func (c *captureLogger) Error(err error, msg string, fields ...Fields) { c.record(msg) }
func (c *captureLogger) WithFields(fields Fields) Logger {
	return &captureLogger{entries: c.entries, fields: fields}
}
func (c *captureLogger) SetLevel(level Level) {}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "INFO", InfoLevel.String())
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestGlobalLogger(t *testing.T) {
	orig := GetGlobalLogger()
	defer SetGlobalLogger(orig)

	capture := &captureLogger{}
	SetGlobalLogger(capture)

	Info("hello")
	Error(errors.New("boom"), "failed")

	assert.Equal(t, []string{"hello", "failed"}, capture.entries)
}

func TestSetGlobalLoggerNilFallsBackToNoOp(t *testing.T) {
	orig := GetGlobalLogger()
	defer SetGlobalLogger(orig)

	SetGlobalLogger(nil)
	assert.IsType(t, &NoOpLogger{}, GetGlobalLogger())

	// Must not panic.
	Info("into the void")
}

func TestDefaultLoggerWithFields(t *testing.T) {
	base := NewDefaultLogger()
	child := base.WithFields(Fields{"component": "extract"})

	// The child is an independent logger; mutating its level must not
	// touch the parent.
	child.SetLevel(DebugLevel)
	assert.NotSame(t, base, child)
}
