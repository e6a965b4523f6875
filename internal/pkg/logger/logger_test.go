package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: WARN, Output: &buf})

	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept", "attempt", 2)
	log.Error("kept too", "error", errors.New("boom"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, float64(2), lines[0]["attempt"])
	assert.Equal(t, "boom", lines[1]["error"])
}

func TestLogger_RedactsEmails(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: DEBUG, RedactPII: true, Output: &buf})

	log.Info("sent", "recipient", "john.doe@example.com", "detail", "bounce from ab@example.org today")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "jo***@example.com", lines[0]["recipient"])
	assert.Equal(t, "bounce from ***@example.org today", lines[0]["detail"])
}

func TestLogger_WithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Level: INFO, Output: &buf})
	child := base.With("component", "guard")

	child.Info("one")
	base.Info("two")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "guard", lines[0]["component"])
	assert.NotContains(t, lines[1], "component")
}

func TestLogger_NilAndNopAreSilent(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("nothing")
		l.With("k", "v").Error("nothing")
		Nop().Warn("nothing")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel(" error "))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ursula_le_guin@gmail.com", "ur***@gmail.com"},
		{"le@gmail.com", "***@gmail.com"},
		{"ñúñez@example.com", "ñú***@example.com"},
		{`"a@b"@example.com`, `"a***@example.com`},
		{"definitely-not-an-email", "***@***"},
		{"@example.com", "***@***"},
		{"ursula@", "***@***"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactEmail(tt.in))
		})
	}
}

func TestLogger_RedactsByKey(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: DEBUG, RedactPII: true, Output: &buf})

	log.Info("queued", "to", "ursula@example.com", "subscriber_email", "garbage@@x", "subject", "Hello")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ur***@example.com", lines[0]["to"])
	assert.Equal(t, "ga***@x", lines[0]["subscriber_email"])
	assert.Equal(t, "Hello", lines[0]["subject"])
}
