// Package database owns the per-tenant external database connections.
package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/dbcapabilities"
	"github.com/telehostca/chatbot-backend/pkg/logger"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/syncutil"
)

// Startup sweep settings.
const (
	StartupAttempts  = 5
	StartupBackoff   = 500 * time.Millisecond
	SweepConcurrency = 4
)

// State is the lifecycle state of a tenant connection.
type State string

const (
	StateAbsent       State = "absent"
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateDegraded     State = "degraded"
)

// CredentialSource loads a tenant's persisted external database credentials.
// ok is false when the tenant has none or they are disabled.
type CredentialSource interface {
	Credentials(ctx context.Context, tenantID string) (cfg adapter.ConnectionConfig, ok bool, err error)
}

// Status describes one tenant connection for admin and health reporting.
type Status struct {
	TenantID  string                    `json:"tenantId"`
	State     State                     `json:"state"`
	Engine    dbcapabilities.DatabaseID `json:"engine,omitempty"`
	Host      string                    `json:"host,omitempty"`
	Database  string                    `json:"database,omitempty"`
	LastError string                    `json:"lastError,omitempty"`
	Since     time.Time                 `json:"since"`
}

// SweepReport summarizes a startup sweep.
type SweepReport struct {
	Connected []string          `json:"connected"`
	Failed    map[string]string `json:"failed"`
}

type tenantConnection struct {
	conn      adapter.Connection
	config    adapter.ConnectionConfig
	state     State
	lastError string
	since     time.Time
}

// Manager keeps at most one pooled connection per tenant. Connection
// creation for a tenant is serialized; different tenants never block each
// other.
type Manager struct {
	adapters *adapter.Registry
	creds    CredentialSource
	logger   *logger.Logger

	mu    sync.RWMutex
	conns map[string]*tenantConnection
	locks *syncutil.KeyedMutex

	startupAttempts int
	startupBackoff  time.Duration
}

// NewManager creates a manager connecting through adapters. creds and log may be nil.
func NewManager(adapters *adapter.Registry, creds CredentialSource, log *logger.Logger) *Manager {
	return &Manager{
		adapters:        adapters,
		creds:           creds,
		logger:          log,
		conns:           make(map[string]*tenantConnection),
		locks:           syncutil.NewKeyedMutex(),
		startupAttempts: StartupAttempts,
		startupBackoff:  StartupBackoff,
	}
}

// SetStartupRetry overrides the sweep retry policy.
func (m *Manager) SetStartupRetry(attempts int, backoff time.Duration) {
	if attempts < 1 {
		attempts = 1
	}
	m.startupAttempts = attempts
	m.startupBackoff = backoff
}

func (m *Manager) safeLog(level string, format string, args ...interface{}) {
	if m.logger == nil {
		return
	}
	switch level {
	case "info":
		m.logger.Info(format, args...)
	case "warn":
		m.logger.Warn(format, args...)
	case "error":
		m.logger.Error(format, args...)
	case "debug":
		m.logger.Debug(format, args...)
	}
}

// Ensure returns the tenant's ready connection, creating it from creds when
// there is none.
func (m *Manager) Ensure(ctx context.Context, tenantID string, creds adapter.ConnectionConfig) (adapter.Connection, error) {
	unlock := m.locks.Lock(tenantID)
	defer unlock()
	return m.ensureLocked(ctx, tenantID, creds)
}

func (m *Manager) ensureLocked(ctx context.Context, tenantID string, creds adapter.ConnectionConfig) (adapter.Connection, error) {
	m.mu.Lock()
	tc, ok := m.conns[tenantID]
	if ok && tc.state == StateReady {
		m.mu.Unlock()
		return tc.conn, nil
	}
	var stale adapter.Connection
	if ok {
		stale = tc.conn
	}
	m.conns[tenantID] = &tenantConnection{config: creds, state: StateInitializing, since: time.Now()}
	m.mu.Unlock()

	if stale != nil {
		if err := stale.Close(); err != nil {
			m.safeLog("warn", "Error closing stale connection for tenant %s: %v", tenantID, err)
		}
	}

	creds.TenantID = tenantID
	m.safeLog("info", "Connecting tenant %s to %s at %s:%d", tenantID, creds.Engine, creds.Host, creds.Port)

	conn, err := m.adapters.Connect(ctx, creds)
	if err != nil {
		m.mu.Lock()
		delete(m.conns, tenantID)
		m.mu.Unlock()
		m.safeLog("warn", "Failed to connect tenant %s: %v", tenantID, err)
		return nil, fmt.Errorf("%w: tenant %s: %w", adapter.ErrConnectionUnavailable, tenantID, err)
	}

	m.mu.Lock()
	m.conns[tenantID] = &tenantConnection{conn: conn, config: conn.Config(), state: StateReady, since: time.Now()}
	m.mu.Unlock()

	m.safeLog("info", "Tenant %s connected", tenantID)
	return conn, nil
}

// ReconnectIfNeeded returns a usable connection for the tenant. A degraded
// connection is pinged first and replaced from the stored credentials when
// the ping fails. Without stored credentials the tenant becomes absent and
// ErrConnectionUnavailable is returned.
func (m *Manager) ReconnectIfNeeded(ctx context.Context, tenantID string) (adapter.Connection, error) {
	unlock := m.locks.Lock(tenantID)
	defer unlock()

	m.mu.RLock()
	tc, ok := m.conns[tenantID]
	var existing adapter.Connection
	var state State
	if ok {
		existing, state = tc.conn, tc.state
	}
	m.mu.RUnlock()

	if ok && state == StateReady {
		return existing, nil
	}

	if existing != nil {
		if err := existing.Ping(ctx); err == nil {
			m.setState(tenantID, existing, StateReady, "")
			m.safeLog("info", "Tenant %s connection recovered", tenantID)
			return existing, nil
		}
		m.drop(tenantID)
	}

	if m.creds == nil {
		return nil, fmt.Errorf("%w: no credential source for tenant %s", adapter.ErrConnectionUnavailable, tenantID)
	}
	creds, found, err := m.creds.Credentials(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading credentials for tenant %s: %w", adapter.ErrConnectionUnavailable, tenantID, err)
	}
	if !found {
		m.drop(tenantID)
		return nil, fmt.Errorf("%w: no external database configured for tenant %s", adapter.ErrConnectionUnavailable, tenantID)
	}
	return m.ensureLocked(ctx, tenantID, creds)
}

// Execute runs sql with args on the tenant's connection. Driver failures are
// returned as *adapter.QueryError; transport failures also mark the
// connection degraded so the next call reconnects.
func (m *Manager) Execute(ctx context.Context, tenantID, sql string, args ...interface{}) ([]adapter.Row, error) {
	conn, err := m.ReconnectIfNeeded(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		if adapter.IsTransportError(err) {
			m.setState(tenantID, conn, StateDegraded, err.Error())
			m.safeLog("warn", "Tenant %s connection degraded: %v", tenantID, err)
		}
		return nil, adapter.NewQueryError(conn.Type(), tenantID, err)
	}
	return rows, nil
}

// Ping checks a ready connection and marks it degraded when unreachable.
func (m *Manager) Ping(ctx context.Context, tenantID string) error {
	m.mu.RLock()
	tc, ok := m.conns[tenantID]
	var conn adapter.Connection
	if ok {
		conn = tc.conn
	}
	m.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("%w: tenant %s", adapter.ErrConnectionUnavailable, tenantID)
	}
	if err := conn.Ping(ctx); err != nil {
		m.setState(tenantID, conn, StateDegraded, err.Error())
		return err
	}
	return nil
}

// Close tears down the tenant's connection. Closing an absent tenant is a no-op.
func (m *Manager) Close(tenantID string) {
	unlock := m.locks.Lock(tenantID)
	defer unlock()
	m.drop(tenantID)
}

// CloseAll tears down every connection.
func (m *Manager) CloseAll() {
	for _, id := range m.Tenants() {
		m.Close(id)
	}
}

// drop removes and closes the tenant's connection. Callers hold the tenant lock.
func (m *Manager) drop(tenantID string) {
	m.mu.Lock()
	tc, ok := m.conns[tenantID]
	delete(m.conns, tenantID)
	m.mu.Unlock()

	if !ok || tc.conn == nil {
		return
	}
	if err := tc.conn.Close(); err != nil {
		m.safeLog("warn", "Error closing connection for tenant %s: %v", tenantID, err)
		return
	}
	m.safeLog("info", "Closed connection for tenant %s", tenantID)
}

// setState updates the state only if conn is still the tracked connection.
func (m *Manager) setState(tenantID string, conn adapter.Connection, state State, lastError string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tc, ok := m.conns[tenantID]
	if !ok || tc.conn != conn || tc.state == state {
		return
	}
	tc.state = state
	tc.lastError = lastError
	tc.since = time.Now()
}

// Sweep connects every tenant in creds, retrying each with exponential
// backoff. Failures are logged and reported but never stop the sweep.
func (m *Manager) Sweep(ctx context.Context, creds []adapter.ConnectionConfig) SweepReport {
	report := SweepReport{Failed: make(map[string]string)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(SweepConcurrency)
	for _, c := range creds {
		g.Go(func() error {
			err := m.ensureWithRetry(ctx, c)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[c.TenantID] = err.Error()
				m.safeLog("error", "Startup connection for tenant %s failed: %v", c.TenantID, err)
				return nil
			}
			report.Connected = append(report.Connected, c.TenantID)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.Connected)
	m.safeLog("info", "Startup sweep finished: %d connected, %d failed", len(report.Connected), len(report.Failed))
	return report
}

func (m *Manager) ensureWithRetry(ctx context.Context, creds adapter.ConnectionConfig) error {
	backoff := m.startupBackoff
	var err error
	for attempt := 1; attempt <= m.startupAttempts; attempt++ {
		if _, err = m.Ensure(ctx, creds.TenantID, creds); err == nil {
			return nil
		}
		if attempt == m.startupAttempts {
			break
		}
		m.safeLog("debug", "Tenant %s attempt %d/%d failed, retrying in %s", creds.TenantID, attempt, m.startupAttempts, backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// Probe opens a throwaway connection from creds, runs fn on it and always
// closes it afterwards. The connection is never tracked.
func (m *Manager) Probe(ctx context.Context, creds adapter.ConnectionConfig, fn func(ctx context.Context, conn adapter.Connection) error) error {
	conn, err := m.adapters.Connect(ctx, creds)
	if err != nil {
		return fmt.Errorf("%w: %w", adapter.ErrConnectionUnavailable, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			m.safeLog("warn", "Error closing probe connection to %s: %v", creds.Host, cerr)
		}
	}()

	if fn == nil {
		return nil
	}
	return fn(ctx, conn)
}

// Status reports the tenant's connection state.
func (m *Manager) Status(tenantID string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tc, ok := m.conns[tenantID]
	if !ok {
		return Status{TenantID: tenantID, State: StateAbsent}
	}
	return statusOf(tenantID, tc)
}

// Snapshot reports every tracked connection ordered by tenant id.
func (m *Manager) Snapshot() []Status {
	m.mu.RLock()
	out := make([]Status, 0, len(m.conns))
	for id, tc := range m.conns {
		out = append(out, statusOf(id, tc))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out
}

// Tenants lists the tenants with a tracked connection.
func (m *Manager) Tenants() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

func statusOf(tenantID string, tc *tenantConnection) Status {
	return Status{
		TenantID:  tenantID,
		State:     tc.state,
		Engine:    tc.config.Engine,
		Host:      tc.config.Host,
		Database:  tc.config.DatabaseName,
		LastError: tc.lastError,
		Since:     tc.since,
	}
}
