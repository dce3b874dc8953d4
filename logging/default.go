package logging

import (
	"fmt"
	"maps"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultLogger is a simple leveled logger writing to stderr
type DefaultLogger struct {
	mu     sync.Mutex
	level  Level
	fields Fields
}

// NewDefaultLogger creates a logger with Info level and no preset fields
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{level: InfoLevel}
}

func (d *DefaultLogger) log(level Level, msg string, err error, fields ...Fields) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if level < d.level {
		return
	}

	merged := make(Fields, len(d.fields))
	maps.Copy(merged, d.fields)
	for _, f := range fields {
		maps.Copy(merged, f)
	}
	if err != nil {
		merged["error"] = err.Error()
	}

	var sb strings.Builder
	sb.WriteString(time.Now().Format("2006-01-02T15:04:05.000Z07:00"))
	sb.WriteString(" [")
	sb.WriteString(level.String())
	sb.WriteString("] ")
	sb.WriteString(msg)

	if len(merged) > 0 {
		keys := make([]string, 0, len(merged))
		for k := range merged {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, merged[k])
		}
	}

	fmt.Fprintln(os.Stderr, sb.String())
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.log(DebugLevel, msg, nil, fields...)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.log(InfoLevel, msg, nil, fields...)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.log(WarnLevel, msg, nil, fields...)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.log(ErrorLevel, msg, err, fields...)
}

func (d *DefaultLogger) WithFields(fields Fields) Logger {
	d.mu.Lock()
	defer d.mu.Unlock()

	merged := make(Fields, len(d.fields)+len(fields))
	maps.Copy(merged, d.fields)
	maps.Copy(merged, fields)
	return &DefaultLogger{level: d.level, fields: merged}
}

func (d *DefaultLogger) SetLevel(level Level) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.level = level
}
