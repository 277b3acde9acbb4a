// Package watcher runs the background loops of the service: connection
// health checks and mapping change propagation.
package watcher

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/logger"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/database"
)

// DefaultInterval is used when no watcher.interval is configured.
const DefaultInterval = 30 * time.Second

// Connections is the part of the connection manager the health watcher drives.
type Connections interface {
	Snapshot() []database.Status
	Ping(ctx context.Context, tenantID string) error
	ReconnectIfNeeded(ctx context.Context, tenantID string) (adapter.Connection, error)
	Ensure(ctx context.Context, tenantID string, creds adapter.ConnectionConfig) (adapter.Connection, error)
	Close(tenantID string)
}

// EnabledSource lists the tenants whose external database is enabled.
type EnabledSource interface {
	EnabledExternalDBs(ctx context.Context) ([]adapter.ConnectionConfig, error)
}

// Report summarizes one health pass. Every slice is sorted.
type Report struct {
	Healthy     []string          `json:"healthy"`
	Recovered   []string          `json:"recovered"`
	Connected   []string          `json:"connected"`
	Closed      []string          `json:"closed"`
	Unreachable map[string]string `json:"unreachable"`
}

// HealthWatcher periodically pings tenant connections, recovers degraded
// ones and reconciles the tracked set against the enabled configurations.
type HealthWatcher struct {
	connections Connections
	enabled     EnabledSource
	interval    time.Duration
	logger      *logger.Logger
}

// NewHealthWatcher creates a watcher. enabled may be nil to skip reconciliation.
func NewHealthWatcher(connections Connections, enabled EnabledSource, interval time.Duration, log *logger.Logger) *HealthWatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &HealthWatcher{
		connections: connections,
		enabled:     enabled,
		interval:    interval,
		logger:      log,
	}
}

func (w *HealthWatcher) safeLog(level string, format string, args ...interface{}) {
	if w.logger == nil {
		return
	}
	switch level {
	case "info":
		w.logger.Info(format, args...)
	case "warn":
		w.logger.Warn(format, args...)
	case "error":
		w.logger.Error(format, args...)
	case "debug":
		w.logger.Debug(format, args...)
	}
}

// Start runs health passes until ctx is cancelled.
func (w *HealthWatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.safeLog("info", "Health watcher starting with interval %s", w.interval)
	defer w.safeLog("info", "Health watcher shutdown complete")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			w.Check(ctx)
		}
	}
}

// Check runs one health pass. Failures for one tenant are logged and never
// stop the pass.
func (w *HealthWatcher) Check(ctx context.Context) Report {
	report := Report{Unreachable: make(map[string]string)}

	var enabled map[string]adapter.ConnectionConfig
	if w.enabled != nil {
		list, err := w.enabled.EnabledExternalDBs(ctx)
		if err != nil {
			w.safeLog("warn", "Failed to load enabled external databases, skipping reconciliation: %v", err)
		} else {
			enabled = make(map[string]adapter.ConnectionConfig, len(list))
			for _, c := range list {
				enabled[c.TenantID] = c
			}
		}
	}

	tracked := make(map[string]bool)
	for _, st := range w.connections.Snapshot() {
		if ctx.Err() != nil {
			return report
		}
		tracked[st.TenantID] = true

		if enabled != nil {
			creds, ok := enabled[st.TenantID]
			if !ok {
				w.connections.Close(st.TenantID)
				report.Closed = append(report.Closed, st.TenantID)
				w.safeLog("info", "Closed connection for tenant %s: external database disabled", st.TenantID)
				continue
			}
			if creds.Engine != st.Engine || creds.Host != st.Host || creds.DatabaseName != st.Database {
				// Target changed since the connection was made.
				w.connections.Close(st.TenantID)
				tracked[st.TenantID] = false
				continue
			}
		}

		switch st.State {
		case database.StateReady:
			if err := w.connections.Ping(ctx, st.TenantID); err != nil {
				report.Unreachable[st.TenantID] = err.Error()
				w.safeLog("warn", "Tenant %s connection unhealthy: %v", st.TenantID, err)
				continue
			}
			report.Healthy = append(report.Healthy, st.TenantID)
		case database.StateDegraded:
			if _, err := w.connections.ReconnectIfNeeded(ctx, st.TenantID); err != nil {
				report.Unreachable[st.TenantID] = err.Error()
				w.safeLog("warn", "Tenant %s still unreachable: %v", st.TenantID, err)
				continue
			}
			report.Recovered = append(report.Recovered, st.TenantID)
		}
	}

	for id, creds := range enabled {
		if tracked[id] || ctx.Err() != nil {
			continue
		}
		if _, err := w.connections.Ensure(ctx, id, creds); err != nil {
			if !errors.Is(err, context.Canceled) {
				report.Unreachable[id] = err.Error()
				w.safeLog("warn", "Failed to connect tenant %s: %v", id, err)
			}
			continue
		}
		report.Connected = append(report.Connected, id)
	}

	sort.Strings(report.Healthy)
	sort.Strings(report.Recovered)
	sort.Strings(report.Connected)
	sort.Strings(report.Closed)
	w.safeLog("debug", "Health pass: %d healthy, %d recovered, %d connected, %d closed, %d unreachable",
		len(report.Healthy), len(report.Recovered), len(report.Connected), len(report.Closed), len(report.Unreachable))
	return report
}
