package server

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/san-kum/nbodysim/internal/config"
	"github.com/san-kum/nbodysim/internal/dynamo"
	"github.com/san-kum/nbodysim/internal/metrics"
	"github.com/san-kum/nbodysim/internal/telemetry"
)

const maxBody = 1 << 16

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dynamo.ErrParameterBounds),
		errors.Is(err, dynamo.ErrUnknownParam),
		errors.Is(err, dynamo.ErrUnknownStrategy):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ps := s.sim.Particles()
	com := metrics.CenterOfMass(ps)
	n := len(ps)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"particles":      n,
		"center_of_mass": [3]float64{com.X, com.Y, com.Z},
	})
}

func (s *Server) handleGetParams(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := s.snapshot()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, st)
}

// handleSetParams applies every named value or none of them.
func (s *Server) handleSetParams(w http.ResponseWriter, r *http.Request) {
	var req map[string]float64
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.sim.Params()
	for name, v := range req {
		if err := s.sim.SetParam(name, v); err != nil {
			_ = s.sim.SetParams(old)
			writeError(w, statusFor(err), err)
			return
		}
	}
	s.log.Info("params updated", "count", len(req))
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleSetParticles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if req.Count > config.MaxParticles {
		err := &dynamo.ParamError{Name: "particle_count", Value: float64(req.Count), Wrapped: dynamo.ErrParameterBounds}
		writeError(w, statusFor(err), err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sim.SetParticleCount(req.Count); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	telemetry.Particles.Set(float64(req.Count))
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sim.TogglePause()
	telemetry.SetPaused(s.sim.IsPaused())
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sim.Reset()
	s.steps = 0
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleSetStrategy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Strategy string `json:"strategy"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	st, err := dynamo.ParseStrategy(req.Strategy)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sim.SetStrategy(st); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}

// handleFrame writes the render buffer as little-endian float32, nine values
// per particle: position, velocity, color.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	buf := s.sim.RenderBuffer()
	raw := make([]byte, 4*len(buf))
	for i, f := range buf {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(f))
	}
	s.mu.Unlock()

	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("X-Particle-Stride", strconv.Itoa(dynamo.RenderStride))
	h.Set("X-Particle-Count", strconv.Itoa(len(buf)/dynamo.RenderStride))
	h.Add("Vary", "Accept-Encoding")

	if !strings.Contains(r.Header.Get("Accept-Encoding"), "br") {
		h.Set("Content-Length", strconv.Itoa(len(raw)))
		_, _ = w.Write(raw)
		return
	}

	h.Set("Content-Encoding", "br")
	bw := brotli.NewWriterLevel(w, brotli.BestSpeed)
	if _, err := bw.Write(raw); err != nil {
		s.log.Warn("frame write failed", "error", err)
		return
	}
	if err := bw.Close(); err != nil {
		s.log.Warn("frame flush failed", "error", err)
	}
}
