package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_FieldsSortedAndQuoted(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithOutput(&buf), WithColors(false), WithLevel(DEBUG)).WithPrefix("queue")

	l.WithFields(map[string]any{"zeta": 1, "alpha": "two words", "mid": "x"}).Info("persisted %d entries", 3)

	line := buf.String()
	assert.Contains(t, line, "[queue]")
	assert.Contains(t, line, "persisted 3 entries")
	assert.True(t, strings.HasSuffix(line, ` alpha="two words" mid=x zeta=1`+"\n"), line)
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(WithOutput(&buf), WithColors(false), WithLevel(WARN))

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "WARN  ")
	assert.False(t, l.Enabled(DEBUG))
	assert.True(t, l.Enabled(ERROR))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}

func TestContext(t *testing.T) {
	l := New(WithPrefix("req"))
	ctx := NewContext(context.Background(), l)

	assert.Same(t, l, FromContext(ctx))
	assert.Same(t, Default(), FromContext(context.Background()))
}

func TestLogger_DerivedLoggersShareOutput(t *testing.T) {
	var buf bytes.Buffer
	base := New(WithOutput(&buf))
	base.WithPrefix("a").Info("one")
	base.WithField("k", "v").Info("two")
	Info("not captured")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[a] ")
	assert.True(t, strings.HasSuffix(lines[1], "two k=v"), lines[1])
	assert.NotContains(t, buf.String(), "\033[", "buffers are not terminals")
}

func TestLogger_CallerIsLogSite(t *testing.T) {
	var buf bytes.Buffer
	New(WithOutput(&buf)).Warn("here")

	assert.Contains(t, buf.String(), "[logger_test.go:")
}
