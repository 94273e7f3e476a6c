// Package api exposes the intake flow over HTTP: session lifecycle, phase
// navigation, answers, the lock protocol for multi-tab coordination, and the
// clinician-facing triage endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BTreeMap/IntakePipe/internal/genai"
	"github.com/BTreeMap/IntakePipe/internal/intake"
	"github.com/BTreeMap/IntakePipe/internal/recovery"
	"github.com/BTreeMap/IntakePipe/internal/report"
	"github.com/BTreeMap/IntakePipe/internal/session"
	"github.com/BTreeMap/IntakePipe/internal/store"
	"github.com/BTreeMap/IntakePipe/internal/triage"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":8080"

// Opts holds server configuration.
type Opts struct {
	Addr      string
	LockStore session.LockStore
	Notes     *genai.Client
}

// Option configures Opts.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithLockStore enables the multi-tab lock endpoints.
func WithLockStore(ls session.LockStore) Option {
	return func(o *Opts) { o.LockStore = ls }
}

// WithNotes enables generated clinical notes on the report endpoint.
func WithNotes(c *genai.Client) Option {
	return func(o *Opts) { o.Notes = c }
}

// Server is the intake HTTP API.
type Server struct {
	addr     string
	store    store.Store
	orch     *intake.Orchestrator
	locks    session.LockStore
	engine   *triage.Engine
	recovery *recovery.Service
	notes    *genai.Client
	reports  *report.Generator
	now      func() time.Time

	httpSrv *http.Server
}

// NewServer wires the API over the given store and orchestrator.
func NewServer(st store.Store, orch *intake.Orchestrator, opts ...Option) *Server {
	o := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		addr:     o.Addr,
		store:    st,
		orch:     orch,
		locks:    o.LockStore,
		engine:   triage.NewEngine(),
		recovery: recovery.NewService(st),
		notes:    o.Notes,
		reports:  report.NewGenerator(),
		now:      time.Now,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.healthHandler)

		r.Post("/sessions", s.createSessionHandler)
		r.Route("/sessions/{patientID}", func(r chi.Router) {
			r.Get("/", s.getSessionHandler)
			r.Delete("/", s.deleteSessionHandler)
			r.Get("/questions", s.questionsHandler)
			r.Post("/screening", s.screeningHandler)
			r.Post("/complaint", s.complaintHandler)
			r.Post("/painpoints", s.painPointHandler)
			r.Post("/answers", s.answerHandler)
			r.Post("/advance", s.advanceHandler)
			r.Post("/back", s.backHandler)
		})

		r.Route("/accounts/{patientID}", func(r chi.Router) {
			r.Get("/", s.getAccountHandler)
			r.Put("/", s.updateAccountHandler)
		})

		r.Route("/locks/{patientID}", func(r chi.Router) {
			r.Post("/acquire", s.lockAcquireHandler)
			r.Post("/heartbeat", s.lockHeartbeatHandler)
			r.Post("/release", s.lockReleaseHandler)
		})

		r.Route("/encounters/{encounterID}", func(r chi.Router) {
			r.Post("/analyze", s.analyzeHandler)
			r.Get("/report", s.reportHandler)
		})
	})
	return r
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Start: listening", "addr", s.addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("Server.Start: shutting down")
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}
