package engine

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/telehostca/chatbot-backend/pkg/health"
	"github.com/telehostca/chatbot-backend/services/schemamap/internal/database"
)

type Server struct {
	engine   *Engine
	router   *mux.Router
	mappings *MappingHandlers
	tenants  *TenantHandlers
}

func NewServer(engine *Engine) *Server {
	s := &Server{
		engine:   engine,
		router:   mux.NewRouter(),
		mappings: NewMappingHandlers(engine),
		tenants:  NewTenantHandlers(engine),
	}
	s.setupRoutes()
	s.setupMiddleware()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	s.router.Use(requestLogging(s.engine))
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Mapping endpoints
	mappings := api.PathPrefix("/mappings").Subrouter()
	mappings.HandleFunc("", s.mappings.ListMappings).Methods(http.MethodGet)
	mappings.HandleFunc("/{tenant_id}", s.mappings.GetMapping).Methods(http.MethodGet)
	mappings.HandleFunc("/{tenant_id}", s.mappings.PutMapping).Methods(http.MethodPut)
	mappings.HandleFunc("/{tenant_id}", s.mappings.DeleteMapping).Methods(http.MethodDelete)
	mappings.HandleFunc("/{tenant_id}/apply", s.mappings.ApplySuggested).Methods(http.MethodPost)
	mappings.HandleFunc("/{tenant_id}/context", s.mappings.AgentContext).Methods(http.MethodGet)
	mappings.HandleFunc("/{tenant_id}/render/{template}", s.mappings.Render).Methods(http.MethodPost)

	// Connection and introspection endpoints
	api.HandleFunc("/connections", s.tenants.ListConnections).Methods(http.MethodGet)
	api.HandleFunc("/connections/test", s.mappings.TestConnection).Methods(http.MethodPost)
	api.HandleFunc("/introspect", s.mappings.Introspect).Methods(http.MethodPost)

	// Tenant endpoints
	tenants := api.PathPrefix("/tenants/{tenant_id}").Subrouter()
	tenants.HandleFunc("/queries/{template}", s.tenants.RunQuery).Methods(http.MethodPost)
	tenants.HandleFunc("/search", s.tenants.Search).Methods(http.MethodPost)
	tenants.HandleFunc("/validate/{role}", s.tenants.Validate).Methods(http.MethodPost)
	tenants.HandleFunc("/config", s.tenants.GetConfig).Methods(http.MethodGet)
	tenants.HandleFunc("/config", s.tenants.PatchConfig).Methods(http.MethodPatch)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int)
	conns := s.engine.Connections()
	for _, c := range conns {
		counts[string(c.State)]++
	}

	s.engine.checks.RunCheck("engine", s.engine.CheckHealth)
	s.engine.checks.RunCheck("connections", func() error {
		down := len(conns) - counts[string(database.StateReady)]
		if down > 0 {
			return fmt.Errorf("%w: %d of %d tenant connections not ready", health.ErrDegraded, down, len(conns))
		}
		return nil
	})

	status := s.engine.checks.GetOverallStatus()
	code := http.StatusOK
	if status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	writeJSON(s.engine, w, code, map[string]interface{}{
		"status":      status,
		"service":     ServiceName,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"lastHealthy": s.engine.checks.GetLastHealthyTime().UTC().Format(time.RFC3339),
		"checks":      s.engine.checks.GetAllChecks(),
		"mappings":    s.engine.registry.Count(),
		"connections": counts,
		"metrics":     s.engine.GetMetrics(),
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
