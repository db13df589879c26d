// Package web is the JSON/HTTP API for the intake engine.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/generator"
	"github.com/JonMunkholm/intake/internal/web/middleware"
)

// Scheduler answers the schedule edit helpers once a timetable exists.
type Scheduler interface {
	ValidateEdit(ctx context.Context, slot json.RawMessage, ec generator.EditContext) *generator.EditValidation
	Alternatives(ctx context.Context, slot json.RawMessage, ec generator.EditContext) *generator.Alternatives
	SaveEdit(ctx context.Context, ec generator.EditContext) *generator.SaveResult
}

// Pinger reports whether the draft store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
	Name() string
}

// Server is the HTTP server for the intake API.
type Server struct {
	service   *core.Service
	scheduler Scheduler
	store     Pinger
	cfg       *config.Config
	router    *chi.Mux
	server    *http.Server

	generalLimiter *middleware.RateLimiter
	commitLimiter  *middleware.RateLimiter
}

// NewServer wires the routes. scheduler and store may be nil; the schedule
// routes then answer 503 and health skips the store check.
func NewServer(service *core.Service, scheduler Scheduler, store Pinger, cfg *config.Config) *Server {
	s := &Server{
		service:   service,
		scheduler: scheduler,
		store:     store,
		cfg:       cfg,
		router:    chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.generalLimiter = middleware.NewRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute)
		s.commitLimiter = middleware.NewRateLimiter(cfg.Rate.CommitLimit, time.Minute)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))
	s.router.Use(middleware.CORS(s.cfg.Security.AllowedOrigins))
	if s.generalLimiter != nil {
		s.router.Use(s.generalLimiter.Handler)
	}
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(&s.cfg.Security))

			r.Group(func(r chi.Router) {
				r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
				r.Get("/branches", s.handleListBranches)
				r.Get("/branches/{branchID}", s.handleGetBranch)
				r.Get("/history", s.handleHistory)
				r.Post("/sessions", s.handleCreateSession)
			})

			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Use(middleware.Session)

				// The progress stream outlives the request timeout.
				r.Get("/commit/stream", s.handleCommitStream)

				r.Group(func(r chi.Router) {
					r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

					r.Get("/", s.handleGetSession)
					r.Delete("/", s.handleEndSession)

					r.Post("/batches", s.handleMerge)
					r.Get("/validation", s.handleValidate)

					r.Post("/edit", s.handleBeginEdit)
					r.Post("/cancel", s.handleCancelEdit)
					r.Post("/save", s.handleSaveEdit)
					r.Post("/confirm", s.handleConfirm)
					r.Post("/edits", s.handleApplyEdit)

					r.Get("/draft", s.handleDraftOffer)
					r.Post("/draft/accept", s.handleAcceptDraft)
					r.Post("/draft/reject", s.handleRejectDraft)

					r.Get("/commit", s.handleCommitStatus)
					if s.commitLimiter != nil {
						r.With(s.commitLimiter.Handler).Post("/commit", s.handleStartCommit)
					} else {
						r.Post("/commit", s.handleStartCommit)
					}

					r.Post("/schedule/validate", s.handleScheduleValidate)
					r.Post("/schedule/alternatives", s.handleScheduleAlternatives)
					r.Post("/schedule/save", s.handleScheduleSave)
				})
			})
		})
	})
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       s.cfg.Server.IdleTimeout,
	}

	slog.Info("http server listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// RunLimiters sweeps rate limiter state until ctx is cancelled.
func (s *Server) RunLimiters(ctx context.Context) {
	if s.generalLimiter == nil {
		<-ctx.Done()
		return
	}
	go s.commitLimiter.Run(ctx)
	s.generalLimiter.Run(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status   string                   `json:"status"`
	Store    string                   `json:"store"`
	StoreOK  bool                     `json:"storeOk"`
	Sessions int                      `json:"sessions"`
	Commits  core.CommitLimiterStatus `json:"commits"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		StoreOK:  true,
		Sessions: s.service.SessionCount(),
		Commits:  s.service.LimiterStatus(),
	}
	status := http.StatusOK
	if s.store != nil {
		resp.Store = s.store.Name()
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			slog.Warn("health: store ping failed", "store", resp.Store, "error", err)
			resp.Status = "degraded"
			resp.StoreOK = false
			status = http.StatusServiceUnavailable
		}
	}
	writeJSONStatus(w, status, resp)
}
