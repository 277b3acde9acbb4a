package watcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/telehostca/chatbot-backend/pkg/logger"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/registry"
)

// Reloader re-reads mappings from the store. Load replaces every tenant and
// is used to catch up after the subscription was down.
type Reloader interface {
	Reload(ctx context.Context, tenantID string) error
	Load(ctx context.Context) error
}

// Subscription retry bounds.
const (
	DefaultRetryBackoff = time.Second
	MaxRetryBackoff     = 30 * time.Second
)

// MappingSubscriber keeps this instance's registry in step with mapping
// changes published by other instances.
type MappingSubscriber struct {
	client   redis.UniversalClient
	channel  string
	reloader Reloader
	logger   *logger.Logger

	backoff    time.Duration
	maxBackoff time.Duration
}

// NewMappingSubscriber subscribes on registry.ChangeChannel.
func NewMappingSubscriber(client redis.UniversalClient, reloader Reloader, log *logger.Logger) *MappingSubscriber {
	return &MappingSubscriber{
		client:     client,
		channel:    registry.ChangeChannel,
		reloader:   reloader,
		logger:     log,
		backoff:    DefaultRetryBackoff,
		maxBackoff: MaxRetryBackoff,
	}
}

func (s *MappingSubscriber) safeLog(level string, format string, args ...interface{}) {
	if s.logger == nil {
		return
	}
	switch level {
	case "info":
		s.logger.Info(format, args...)
	case "warn":
		s.logger.Warn(format, args...)
	case "debug":
		s.logger.Debug(format, args...)
	}
}

// Start consumes change messages until ctx is cancelled. While Redis is
// unreachable it retries with exponential backoff, and after a lost
// subscription it reloads every mapping since messages may have been missed.
func (s *MappingSubscriber) Start(ctx context.Context) {
	wait := s.backoff
	resync := false
	for {
		subscribed, err := s.listen(ctx, resync)
		if ctx.Err() != nil {
			return
		}
		if subscribed {
			wait = s.backoff
		}
		resync = true
		s.safeLog("warn", "Mapping subscription on %s lost, retrying in %s: %v", s.channel, wait, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if wait *= 2; wait > s.maxBackoff {
			wait = s.maxBackoff
		}
	}
}

// listen runs one subscription. subscribed reports whether it was established.
func (s *MappingSubscriber) listen(ctx context.Context, resync bool) (subscribed bool, err error) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	s.safeLog("info", "Mapping subscriber listening on %s", s.channel)

	if resync {
		if err := s.reloader.Load(ctx); err != nil {
			s.safeLog("warn", "Failed to resync mappings after resubscribe: %v", err)
		}
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return true, fmt.Errorf("subscription channel closed")
			}
			s.Handle(ctx, msg.Payload)
		}
	}
}

// Handle reloads the tenant named by one change message.
func (s *MappingSubscriber) Handle(ctx context.Context, payload string) {
	tenantID := strings.TrimSpace(payload)
	if tenantID == "" {
		return
	}
	if err := s.reloader.Reload(ctx, tenantID); err != nil {
		s.safeLog("warn", "Failed to reload mapping for tenant %s: %v", tenantID, err)
		return
	}
	s.safeLog("debug", "Reloaded mapping for tenant %s", tenantID)
}
