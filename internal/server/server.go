package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/kinship/internal/config"
	"github.com/dukerupert/kinship/internal/database"
	"github.com/dukerupert/kinship/internal/genealogy"
	"github.com/dukerupert/kinship/internal/handler"
	"github.com/dukerupert/kinship/internal/metrics"
	"github.com/dukerupert/kinship/internal/middleware"
	"github.com/dukerupert/kinship/internal/photo"
	"github.com/dukerupert/kinship/internal/store"
	"github.com/dukerupert/kinship/internal/treestate"
	ws "github.com/dukerupert/kinship/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const rateWindow = time.Minute

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	familyStore *store.FamilyStore
	trees       *treestate.Container
	familyH     *handler.FamilyHandler
	memberH     *handler.MemberHandler
	treeH       *handler.TreeHandler
	rateLimiter *middleware.RateLimiter
	rateLimit   int
	registry    *prometheus.Registry
	logger      *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	familyStore := store.NewFamilyStore(db)
	memberStore := store.NewMemberStore(db)

	builder := genealogy.NewBuilder(
		photo.NewResolver(cfg.PhotoBaseURL, cfg.UploadPrefix),
		m,
		logger.With("component", "genealogy"),
	)
	trees := treestate.NewContainer(memberStore, builder, treestate.Config{
		RefreshDelay: cfg.RefreshDelay,
		Recorder:     m,
		OnChange: func(s *treestate.Snapshot) {
			hub.Broadcast(ws.TreeUpdated(s.FamilyID, s.Version, s.Provisional))
		},
	}, logger.With("component", "treestate"))

	return &Server{
		db:          db,
		hub:         hub,
		familyStore: familyStore,
		trees:       trees,
		familyH:     handler.NewFamilyHandler(familyStore, trees, logger.With("component", "family")),
		memberH:     handler.NewMemberHandler(memberStore, trees, logger.With("component", "member")),
		treeH:       handler.NewTreeHandler(trees, logger.With("component", "tree")),
		rateLimiter: middleware.NewRateLimiter(),
		rateLimit:   cfg.RateLimit,
		registry:    registry,
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Trees returns the tree state container.
func (s *Server) Trees() *treestate.Container {
	return s.trees
}

// Warm builds the tree of every stored family.
func (s *Server) Warm(ctx context.Context) error {
	ids, err := s.familyStore.IDs()
	if err != nil {
		return err
	}
	return s.trees.Warm(ctx, ids)
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	mux.HandleFunc("GET /api/families", s.familyH.List)
	mux.Handle("POST /api/families", s.limited(http.HandlerFunc(s.familyH.Create)))

	// Family-scoped reads
	s.read(mux, "GET /api/families/{family_id}", s.familyH.Get)
	s.read(mux, "GET /api/families/{family_id}/members", s.memberH.List)
	s.read(mux, "GET /api/families/{family_id}/tree", s.treeH.Get)
	mux.Handle("POST /api/families/{family_id}/pin/verify",
		middleware.LoadFamily(s.familyStore, s.logger)(s.limited(http.HandlerFunc(s.familyH.VerifyPIN))))

	// Family-scoped mutations require the edit PIN when one is set
	s.write(mux, "PUT /api/families/{family_id}", s.familyH.Update)
	s.write(mux, "DELETE /api/families/{family_id}", s.familyH.Delete)
	s.write(mux, "POST /api/families/{family_id}/pin", s.familyH.SetPIN)
	s.write(mux, "DELETE /api/families/{family_id}/pin", s.familyH.ClearPIN)
	s.write(mux, "POST /api/families/{family_id}/members", s.memberH.Create)
	s.write(mux, "PUT /api/families/{family_id}/members/{id}", s.memberH.Update)
	s.write(mux, "DELETE /api/families/{family_id}/members/{id}", s.memberH.Delete)
	s.write(mux, "POST /api/families/{family_id}/tree/refresh", s.treeH.Refresh)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) read(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, middleware.LoadFamily(s.familyStore, s.logger)(h))
}

func (s *Server) write(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	chain := middleware.LoadFamily(s.familyStore, s.logger)(
		middleware.RequireFamilyUnlocked(s.limited(h)),
	)
	mux.Handle(pattern, chain)
}

func (s *Server) limited(h http.Handler) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.FamilyIPKey, s.rateLimit, rateWindow)(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	version, err := database.SchemaVersion(r.Context(), s.db)
	if err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "schema_version": version})
}
