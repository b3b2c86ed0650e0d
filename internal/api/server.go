// Package api exposes the HTTP interface of the page-processing service.
// The browser extension posts page snapshots here and receives the rewritten
// page plus the affordances to apply; captured document payloads arrive on a
// per-page message endpoint.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/openrecap/recapd/internal/capture"
	"github.com/openrecap/recapd/internal/config"
	"github.com/openrecap/recapd/internal/delegate"
	"github.com/openrecap/recapd/internal/metrics"
	"github.com/openrecap/recapd/internal/notifier"
	"github.com/openrecap/recapd/internal/progress"
	"github.com/openrecap/recapd/internal/store"
)

// Capture pipelines are page-scoped and short-lived; an armed pipeline that
// never receives its payload expires on its own.
const (
	pipelineTTL     = 30 * time.Minute
	pipelineCleanup = 5 * time.Minute
)

// Deps bundles the collaborators the server needs.
type Deps struct {
	Archive    delegate.Archive
	Tabs       store.TabStore
	Notifier   *notifier.Log
	CaseLookup delegate.CaseLookup
	Fetcher    capture.Fetcher
	Events     progress.Emitter
	Logger     *zap.Logger
}

// Server wires HTTP handlers to the page delegate and its ports.
type Server struct {
	router    chi.Router
	cfg       config.Config
	deps      Deps
	pipelines *gocache.Cache
	log       *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(cfg config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Events == nil {
		deps.Events = progress.NopEmitter{}
	}
	s := &Server{
		cfg:       cfg,
		deps:      deps,
		pipelines: gocache.New(pipelineTTL, pipelineCleanup),
		log:       deps.Logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(time.Duration(cfg.Server.TimeoutSeconds) * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/pages", s.processPage)
		r.Post("/pages/{page_id}/messages", s.pageMessage)
		r.Route("/tabs/{tab_id}", func(r chi.Router) {
			r.Get("/document", s.tabDocument)
			r.Delete("/", s.removeTab)
		})
		r.Get("/notifications", s.notifications)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The tab store is the only stateful dependency worth probing.
	if s.deps.Tabs != nil {
		if _, err := s.deps.Tabs.Get(r.Context(), "readyz-probe"); err != nil && err != store.ErrNotFound {
			writeError(w, http.StatusServiceUnavailable, "tab store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
