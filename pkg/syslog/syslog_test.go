package syslog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telehostca/chatbot-backend/pkg/logger"
)

func TestWriteFormatsEntry(t *testing.T) {
	var buf bytes.Buffer
	sink := NewFileSink(&buf, "schemamap")

	require.NoError(t, sink.Write(logger.LogEntry{
		Time:    time.Date(2026, 3, 2, 14, 5, 9, 120_000_000, time.UTC),
		Level:   "WARN",
		Message: "Tenant t1 connection degraded",
		Fields:  map[string]string{"request_id": "r1", "tenant": "t1"},
	}))

	assert.Equal(t, "[2026-03-02 14:05:09.120] [schemamap] [WARN] Tenant t1 connection degraded request_id=r1 tenant=t1\n", buf.String())
}

func TestRunDrainsSubscription(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "schemamap.log")
	sink, err := Open(path, "schemamap")
	require.NoError(t, err)

	lg := logger.New("schemamap", "test")
	lg.DisableConsoleOutput()
	entries := lg.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sink.Run(ctx, entries)
		close(done)
	}()

	lg.Info("Loaded %d mappings", 3)
	require.Eventually(t, func() bool {
		data, _ := os.ReadFile(path)
		return bytes.Contains(data, []byte("[INFO] Loaded 3 mappings"))
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
	require.NoError(t, sink.Close())
}
