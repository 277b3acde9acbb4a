package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"fatal", LevelFatal},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New("schemamap", "test")
	l.SetOutput(&buf)
	l.SetLevel(LevelWarn)

	l.Info("hidden %d", 1)
	l.Warn("visible %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible 2")
	assert.Contains(t, out, "WARN")
}

func TestLoggerFieldsAndSubscribers(t *testing.T) {
	var buf bytes.Buffer
	l := New("schemamap", "test")
	l.SetOutput(&buf)
	ch := l.Subscribe()

	l.WithFields(map[string]string{"tenant": "t1", "attempt": "2"}).Error("connect failed")

	entry := <-ch
	require.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "connect failed", entry.Message)
	assert.Equal(t, "t1", entry.Fields["tenant"])
	assert.Contains(t, buf.String(), "attempt=2 tenant=t1")
}

func TestLoggerDisableConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New("schemamap", "test")
	l.SetOutput(&buf)
	l.DisableConsoleOutput()

	l.Info("quiet")
	assert.Empty(t, buf.String())

	l.EnableConsoleOutput()
	l.Info("loud")
	assert.Contains(t, buf.String(), "loud")
}
