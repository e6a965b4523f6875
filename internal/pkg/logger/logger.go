// Package logger provides structured JSON logging with optional PII redaction.
//
// A *Logger is built once at startup and passed to every component that logs.
// Fields are given as alternating key/value pairs. A nil *Logger discards
// everything.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var zerologLevels = map[Level]zerolog.Level{
	DEBUG: zerolog.DebugLevel,
	INFO:  zerolog.InfoLevel,
	WARN:  zerolog.WarnLevel,
	ERROR: zerolog.ErrorLevel,
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level. Unknown
// names fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Options configures New.
type Options struct {
	Level     Level
	RedactPII bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// Logger provides structured JSON logging with optional PII redaction.
type Logger struct {
	zl        zerolog.Logger
	redactPII bool
	fields    []interface{}
}

// New creates a logger writing one JSON object per line.
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	zl := zerolog.New(out).
		Level(zerologLevels[opts.Level]).
		With().Timestamp().Logger()
	return &Logger{zl: zl, redactPII: opts.RedactPII}
}

// Nop returns a logger that never writes anything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a derived logger that adds the given key/value pairs to every entry.
func (l *Logger) With(fields ...interface{}) *Logger {
	if l == nil {
		return nil
	}
	cp := *l
	cp.fields = append(append([]interface{}(nil), l.fields...), fields...)
	return &cp
}

// Debug emits a DEBUG-level structured log entry.
func (l *Logger) Debug(msg string, fields ...interface{}) { l.log(zerolog.DebugLevel, msg, fields) }

// Info emits an INFO-level structured log entry.
func (l *Logger) Info(msg string, fields ...interface{}) { l.log(zerolog.InfoLevel, msg, fields) }

// Warn emits a WARN-level structured log entry.
func (l *Logger) Warn(msg string, fields ...interface{}) { l.log(zerolog.WarnLevel, msg, fields) }

// Error emits an ERROR-level structured log entry.
func (l *Logger) Error(msg string, fields ...interface{}) { l.log(zerolog.ErrorLevel, msg, fields) }

func (l *Logger) log(level zerolog.Level, msg string, fields []interface{}) {
	if l == nil {
		return
	}
	e := l.zl.WithLevel(level)
	if e == nil {
		return
	}
	l.apply(e, l.fields)
	l.apply(e, fields)
	e.Msg(msg)
}

func (l *Logger) apply(e *zerolog.Event, fields []interface{}) {
	// Parse key-value pairs from fields
	for i := 0; i < len(fields)-1; i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		switch v := fields[i+1].(type) {
		case error:
			e.Str(key, l.value(key, v.Error()))
		case int:
			e.Int(key, v)
		case bool:
			e.Bool(key, v)
		default:
			e.Str(key, l.value(key, fmt.Sprintf("%v", v)))
		}
	}
}

func (l *Logger) value(key, val string) string {
	if !l.redactPII {
		return val
	}
	return redactPIIValue(key, val)
}
