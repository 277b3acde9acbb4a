package watcher

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/telehostca/chatbot-backend/pkg/logger"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/registry"
)

type recordingReloader struct {
	reloaded []string
	loads    int
	err      error
}

func (r *recordingReloader) Reload(ctx context.Context, tenantID string) error {
	r.reloaded = append(r.reloaded, tenantID)
	return r.err
}

func (r *recordingReloader) Load(ctx context.Context) error {
	r.loads++
	return r.err
}

func TestMappingSubscriberHandle(t *testing.T) {
	l := logger.New("schemamap-test", "test")
	l.SetOutput(io.Discard)

	tests := []struct {
		name    string
		payload string
		err     error
		want    []string
	}{
		{"tenant id", "tenant-1", nil, []string{"tenant-1"}},
		{"padded", "  tenant-2\n", nil, []string{"tenant-2"}},
		{"empty", "  ", nil, nil},
		{"reload failure is swallowed", "tenant-3", errors.New("store offline"), []string{"tenant-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recordingReloader{err: tt.err}
			s := NewMappingSubscriber(nil, r, l)
			s.Handle(context.Background(), tt.payload)
			assert.Equal(t, tt.want, r.reloaded)
		})
	}
}

func TestMappingSubscriberChannel(t *testing.T) {
	s := NewMappingSubscriber(nil, &recordingReloader{}, nil)
	assert.Equal(t, registry.ChangeChannel, s.channel)
}

func TestMappingSubscriberRetriesWhileRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := logger.New("schemamap-test", "test")
	l.DisableConsoleOutput()
	entries := l.Subscribe()

	r := &recordingReloader{}
	s := NewMappingSubscriber(client, r, l)
	s.backoff = 5 * time.Millisecond
	s.maxBackoff = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	retries := 0
	deadline := time.After(5 * time.Second)
	for retries < 3 {
		select {
		case e := <-entries:
			if e.Level == "WARN" && strings.Contains(e.Message, "retrying") {
				retries++
			}
		case <-deadline:
			t.Fatalf("saw %d retries before deadline", retries)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber did not stop after cancel")
	}
	assert.Zero(t, r.loads)
	assert.Empty(t, r.reloaded)
}
