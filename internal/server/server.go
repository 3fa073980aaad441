// Package server runs the simulation headless and exposes it over HTTP for
// control, frame download and Prometheus scraping.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/san-kum/nbodysim/internal/dynamo"
	"github.com/san-kum/nbodysim/internal/logger"
	"github.com/san-kum/nbodysim/internal/metrics"
	"github.com/san-kum/nbodysim/internal/telemetry"
	"github.com/san-kum/nbodysim/internal/tracing"
)

// Server owns a simulator and serialises every access to it. The step loop
// and the HTTP handlers share one mutex.
type Server struct {
	mu    sync.Mutex
	sim   *dynamo.Simulator
	dt    float64
	steps int

	router *mux.Router
	log    *slog.Logger
}

func New(sim *dynamo.Simulator, dt float64) *Server {
	s := &Server{
		sim: sim,
		dt:  dt,
		log: logger.WithComponent("server"),
	}
	s.routes()
	telemetry.Particles.Set(float64(sim.ParticleCount()))
	telemetry.SetPaused(sim.IsPaused())
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(countRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/params", s.handleGetParams).Methods(http.MethodGet)
	api.HandleFunc("/params", s.handleSetParams).Methods(http.MethodPut)
	api.HandleFunc("/particles", s.handleSetParticles).Methods(http.MethodPut)
	api.HandleFunc("/pause", s.handlePause).Methods(http.MethodPost)
	api.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	api.HandleFunc("/strategy", s.handleSetStrategy).Methods(http.MethodPut)
	api.HandleFunc("/frame", s.handleFrame).Methods(http.MethodGet)

	s.router = r
}

// Handler returns the router wrapped in panic recovery.
func (s *Server) Handler() http.Handler {
	return Recover(s.router)
}

// Step advances the simulation by one dt under the lock.
func (s *Server) Step(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sim.IsPaused() {
		return
	}
	strategy := s.sim.Strategy().String()
	_, span := tracing.StartSpan(ctx, "simulator.update",
		tracing.StepAttributes(s.steps, strategy, s.sim.ParticleCount(), s.dt))
	defer span.End()

	begin := time.Now()
	s.sim.Update(s.dt)
	telemetry.ObserveStep(strategy, time.Since(begin))
	s.steps++

	telemetry.KineticEnergy.Set(metrics.KineticEnergy(s.sim.Particles()))
	if ts := s.sim.TreeStats(); ts.Nodes > 0 {
		telemetry.OctreeNodes.Set(float64(ts.Nodes))
		telemetry.OctreeDepth.Set(float64(ts.MaxDepth))
	}
}

// Run steps the simulation at most fps times per second until ctx ends.
func (s *Server) Run(ctx context.Context, fps int) error {
	if fps < 1 {
		fps = 1
	}
	limiter := rate.NewLimiter(rate.Limit(fps), 1)
	s.log.Info("step loop started", "fps", fps, "dt", s.dt)
	for {
		// Wait only fails once ctx is done or its deadline falls before the
		// next token.
		if err := limiter.Wait(ctx); err != nil {
			<-ctx.Done()
			s.log.Info("step loop stopped", "steps", s.Steps())
			return nil
		}
		s.Step(ctx)
	}
}

// Steps reports how many steps the loop has taken.
func (s *Server) Steps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steps
}

// ListenAndServe serves the handler on addr until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type state struct {
	Strategy  string             `json:"strategy"`
	Paused    bool               `json:"paused"`
	Particles int                `json:"particles"`
	Workers   int                `json:"workers"`
	Steps     int                `json:"steps"`
	Params    map[string]float64 `json:"params"`
	Tree      *dynamo.TreeStats  `json:"tree,omitempty"`
}

// snapshot must be called with mu held.
func (s *Server) snapshot() state {
	st := state{
		Strategy:  s.sim.Strategy().String(),
		Paused:    s.sim.IsPaused(),
		Particles: s.sim.ParticleCount(),
		Workers:   s.sim.Workers(),
		Steps:     s.steps,
		Params:    s.sim.GetParams(),
	}
	if ts := s.sim.TreeStats(); ts.Nodes > 0 {
		st.Tree = &ts
	}
	return st
}
