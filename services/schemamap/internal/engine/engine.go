// Package engine wires the schema-mapping components together and serves the
// admin HTTP API.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/telehostca/chatbot-backend/pkg/adapter"
	"github.com/telehostca/chatbot-backend/pkg/config"
	"github.com/telehostca/chatbot-backend/pkg/health"
	"github.com/telehostca/chatbot-backend/pkg/logger"
	tenantconfig "github.com/telehostca/chatbot-backend/services/schemamap/internal/config"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/database"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/database/mssql"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/database/mysql"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/database/oracle"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/database/postgres"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/introspect"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/query"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/registry"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/validator"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/watcher"
)

// ServiceName is reported by the health endpoint and used as the logger name.
const ServiceName = "schemamap"

// Dependencies are the resources the engine uses but does not own.
type Dependencies struct {
	Store tenantconfig.Store

	// Redis enables cross-instance mapping change propagation. Optional.
	Redis redis.UniversalClient

	// Adapters defaults to the mysql, postgres, mssql and oracle adapters.
	Adapters *adapter.Registry

	Logger *logger.Logger
}

// Engine owns every component of the service. Nothing is package-global.
type Engine struct {
	config *config.Config
	logger *logger.Logger
	store  tenantconfig.Store

	registry     *registry.Registry
	manager      *database.Manager
	queries      *query.Adapter
	validator    *validator.Validator
	introspector *introspect.Introspector
	health       *watcher.HealthWatcher
	subscriber   *watcher.MappingSubscriber

	server *http.Server
	checks *health.Checker

	state struct {
		sync.Mutex
		isRunning         bool
		ongoingOperations int32
		cancel            context.CancelFunc
		background        sync.WaitGroup
		addr              net.Addr
	}
	metrics struct {
		requestsProcessed int64
		errors            int64
	}
}

// NewEngine builds the component graph. Start must be called before serving.
func NewEngine(cfg *config.Config, deps Dependencies) *Engine {
	if cfg == nil {
		cfg = config.New()
	}
	cfg.SetRestartKeys([]string{
		"server.host",
		"server.port",
		"store.driver",
		"store.path",
		"database.host",
		"database.name",
		"redis.enabled",
		"keyring.backend",
	})
	adapters := deps.Adapters
	if adapters == nil {
		adapters = adapter.NewRegistry(mysql.NewAdapter(), postgres.NewAdapter(), mssql.NewAdapter(), oracle.NewAdapter())
	}

	var notifier registry.Notifier
	if deps.Redis != nil {
		notifier = registry.NewRedisNotifier(deps.Redis)
	}

	e := &Engine{
		config: cfg,
		logger: deps.Logger,
		store:  deps.Store,
		checks: health.NewChecker(),
	}
	e.registry = registry.New(deps.Store, notifier, deps.Logger)
	e.manager = database.NewManager(adapters, deps.Store, deps.Logger)
	e.queries = query.NewAdapter(e.registry)
	e.queries.SetLogger(deps.Logger)
	e.validator = validator.New(e.registry)
	e.introspector = introspect.New(e.manager, deps.Logger)
	e.health = watcher.NewHealthWatcher(e.manager, deps.Store, cfg.GetDuration("watcher.interval", watcher.DefaultInterval), deps.Logger)
	if deps.Redis != nil {
		e.subscriber = watcher.NewMappingSubscriber(deps.Redis, e.registry, deps.Logger)
	}
	return e
}

func (e *Engine) safeLog(level string, format string, args ...interface{}) {
	if e.logger == nil {
		return
	}
	switch level {
	case "info":
		e.logger.Info(format, args...)
	case "warn":
		e.logger.Warn(format, args...)
	case "error":
		e.logger.Error(format, args...)
	case "debug":
		e.logger.Debug(format, args...)
	}
}

// Start loads every mapping, connects the enabled tenant databases, starts
// the background watchers and the HTTP server.
func (e *Engine) Start(ctx context.Context) error {
	e.state.Lock()
	if e.state.isRunning {
		e.state.Unlock()
		return fmt.Errorf("engine is already running")
	}
	e.state.isRunning = true
	e.state.Unlock()

	e.safeLog("info", "Starting schemamap engine...")

	if err := e.store.EnsureSchema(ctx); err != nil {
		e.markStopped()
		return fmt.Errorf("failed to prepare config store: %w", err)
	}
	if err := e.registry.Load(ctx); err != nil {
		e.markStopped()
		return fmt.Errorf("failed to load mappings: %w", err)
	}

	creds, err := e.store.EnabledExternalDBs(ctx)
	if err != nil {
		e.safeLog("warn", "Failed to list external databases, skipping startup sweep: %v", err)
	} else if len(creds) > 0 {
		e.manager.Sweep(ctx, creds)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	e.state.Lock()
	e.state.cancel = cancel
	e.state.Unlock()

	e.state.background.Add(1)
	go func() {
		defer e.state.background.Done()
		e.health.Start(bgCtx)
	}()
	if e.subscriber != nil {
		e.state.background.Add(1)
		go func() {
			defer e.state.background.Done()
			e.subscriber.Start(bgCtx)
		}()
	}

	addr := net.JoinHostPort(e.config.GetDefault("server.host", ""), e.config.GetDefault("server.port", "8090"))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		cancel()
		e.state.background.Wait()
		e.markStopped()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	e.server = &http.Server{
		Handler:           NewServer(e),
		ReadHeaderTimeout: 10 * time.Second,
	}
	e.state.Lock()
	e.state.addr = listener.Addr()
	e.state.Unlock()

	go func() {
		if err := e.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.safeLog("error", "HTTP server error: %v", err)
			atomic.AddInt64(&e.metrics.errors, 1)
		}
	}()

	e.safeLog("info", "Schemamap engine started on %s with %d mappings", listener.Addr(), e.registry.Count())
	return nil
}

// Stop shuts the HTTP server down, stops the watchers and closes every
// tenant connection.
func (e *Engine) Stop(ctx context.Context) error {
	e.state.Lock()
	if !e.state.isRunning {
		e.state.Unlock()
		return nil
	}
	cancel := e.state.cancel
	e.state.Unlock()

	var shutdownErr error
	if e.server != nil {
		shutdownErr = e.server.Shutdown(ctx)
	}
	if cancel != nil {
		cancel()
	}
	e.state.background.Wait()
	e.manager.CloseAll()
	e.markStopped()

	e.safeLog("info", "Schemamap engine stopped")
	return shutdownErr
}

func (e *Engine) markStopped() {
	e.state.Lock()
	e.state.isRunning = false
	e.state.Unlock()
}

// Addr returns the address the HTTP server listens on, nil before Start.
func (e *Engine) Addr() net.Addr {
	e.state.Lock()
	defer e.state.Unlock()
	return e.state.addr
}

// Handler returns the admin API handler without starting a listener.
func (e *Engine) Handler() http.Handler {
	return NewServer(e)
}

// CheckHealth reports whether the engine is running.
func (e *Engine) CheckHealth() error {
	e.state.Lock()
	defer e.state.Unlock()

	if !e.state.isRunning {
		return fmt.Errorf("service not initialized")
	}
	return nil
}

func (e *Engine) GetMetrics() map[string]int64 {
	return map[string]int64{
		"requests_processed": atomic.LoadInt64(&e.metrics.requestsProcessed),
		"errors":             atomic.LoadInt64(&e.metrics.errors),
		"ongoing_operations": int64(atomic.LoadInt32(&e.state.ongoingOperations)),
	}
}

func (e *Engine) TrackOperation() {
	atomic.AddInt32(&e.state.ongoingOperations, 1)
	atomic.AddInt64(&e.metrics.requestsProcessed, 1)
}

func (e *Engine) UntrackOperation() {
	atomic.AddInt32(&e.state.ongoingOperations, -1)
}
