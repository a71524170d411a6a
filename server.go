package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/argart/bklcr/meter"
	"github.com/argart/bklcr/scpi"
)

// Meter is the gateway's view of a connected LCR meter; both drivers
// are adapted onto it in main.go.
type Meter interface {
	Fetch(ctx context.Context) (scpi.Values, error)
	Identify(ctx context.Context) (meter.Identity, error)
	SetFrequency(ctx context.Context, hz float64) error
	Close() error
}

// ReadingPayload is the JSON shape of one meter reading, served over
// HTTP and published to MQTT.
type ReadingPayload struct {
	Values scpi.Values `json:"values"`
	At     time.Time   `json:"at"`
}

// Server handles incoming HTTP requests for interacting with the
// configured meter instance
type Server struct {
	Logger  *slog.Logger
	Meter   Meter
	Metrics *Metrics

	// Streaming is set when a publisher owns the connection; reading
	// requests are then served from the last streamed value instead of
	// a fresh FETCh, and no handler may touch the meter directly.
	Streaming bool

	// Identity is the *IDN? response captured before streaming began.
	// While streaming, /instrument serves this cached copy.
	Identity *meter.Identity

	// mu serializes direct meter access across handlers; the serial
	// link is strictly one command at a time.
	mu     sync.Mutex
	latest atomic.Pointer[ReadingPayload]
}

// SetLatest caches a streamed reading for the /reading endpoint.
func (s *Server) SetLatest(r *ReadingPayload) {
	s.latest.Store(r)
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /reading", s.handleReading)
	mux.HandleFunc("GET /instrument", s.handleInstrument)
	mux.HandleFunc("POST /frequency", s.handleFrequency)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleReading serves the current measurement: the last streamed
// reading when publishing, or a fresh FETCh otherwise.
func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) {
	if s.Streaming {
		reading := s.latest.Load()
		if reading == nil {
			s.sendError(w, "no reading received yet", http.StatusServiceUnavailable)
			return
		}
		s.sendJSON(w, reading)
		return
	}

	s.mu.Lock()
	values, err := s.fetchTimed(r.Context())
	s.mu.Unlock()
	if err != nil {
		s.Logger.Error("Fetch failed", "error", err)
		s.sendError(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.sendJSON(w, &ReadingPayload{Values: values, At: time.Now().UTC()})
}

func (s *Server) handleInstrument(w http.ResponseWriter, r *http.Request) {
	if s.Streaming {
		// The streaming goroutine owns the connection's read side; an
		// *IDN? here would race it for the response line.
		if s.Identity == nil {
			s.sendError(w, "identity unavailable while streaming", http.StatusServiceUnavailable)
			return
		}
		s.sendJSON(w, s.Identity)
		return
	}

	s.mu.Lock()
	id, err := s.Meter.Identify(r.Context())
	s.mu.Unlock()
	if err != nil {
		s.Logger.Error("Identify failed", "error", err)
		s.Metrics.CommandErrors.Inc()
		s.sendError(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.sendJSON(w, id)
}

// handleFrequency sets the test frequency from a JSON body:
// {"hertz": 1000}
func (s *Server) handleFrequency(w http.ResponseWriter, r *http.Request) {
	if s.Streaming {
		s.sendError(w, "settings are locked while streaming readings", http.StatusServiceUnavailable)
		return
	}

	type FrequencyRequest struct {
		Hertz float64 `json:"hertz"`
	}

	var req FrequencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	err := s.Meter.SetFrequency(r.Context(), req.Hertz)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, meter.ErrInvalidParam) {
			s.sendError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.Logger.Error("SetFrequency failed", "error", err, "hertz", req.Hertz)
		s.Metrics.CommandErrors.Inc()
		s.sendError(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.Logger.Info("Frequency set", "hertz", strconv.FormatFloat(req.Hertz, 'g', -1, 64))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fetchTimed(ctx context.Context) (scpi.Values, error) {
	start := time.Now()
	values, err := s.Meter.Fetch(ctx)
	s.Metrics.CommandDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.Metrics.CommandErrors.Inc()
		return nil, err
	}
	s.Metrics.Readings.Inc()
	return values, nil
}
