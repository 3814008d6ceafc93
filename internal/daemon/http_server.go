package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/timerd/internal/config"
	"git.home.luguber.info/inful/timerd/internal/logfields"
	"git.home.luguber.info/inful/timerd/internal/timer"
)

// HTTPServer exposes the timer control API and the metrics endpoint.
type HTTPServer struct {
	addr     string
	server   *http.Server
	registry *timer.Registry
}

// timerView is the JSON representation of a timer's current state.
type timerView struct {
	ID          string      `json:"id"`
	State       timer.State `json:"state"`
	Duration    string      `json:"duration"`
	Remaining   string      `json:"remaining,omitempty"`
	EndAt       *time.Time  `json:"end_at,omitempty"`
	Restore     bool        `json:"restore"`
	GracePeriod string      `json:"restore_grace_period,omitempty"`
}

// durationRequest is the optional body of start and change-duration calls.
type durationRequest struct {
	Duration string `json:"duration"`
}

// NewHTTPServer builds the server and its routes.
func NewHTTPServer(addr string, registry *timer.Registry, promReg *prom.Registry) *HTTPServer {
	s := &HTTPServer{addr: addr, registry: registry}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("GET /timers", s.handleListTimers)
	mux.HandleFunc("GET /timers/{id}", s.handleGetTimer)
	mux.HandleFunc("POST /timers/{id}/start", s.handleStart)
	mux.HandleFunc("POST /timers/{id}/pause", s.handlePause)
	mux.HandleFunc("POST /timers/{id}/cancel", s.handleCancel)
	mux.HandleFunc("POST /timers/{id}/finish", s.handleFinish)
	mux.HandleFunc("POST /timers/{id}/duration", s.handleChangeDuration)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the configured handler (used by tests).
func (s *HTTPServer) Handler() http.Handler { return s.server.Handler }

// Start starts the HTTP server and blocks until shutdown.
func (s *HTTPServer) Start() error {
	slog.Info("Starting HTTP server", slog.String("addr", s.addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleListTimers(w http.ResponseWriter, _ *http.Request) {
	timers := s.registry.Timers()
	views := make([]timerView, 0, len(timers))
	for _, t := range timers {
		views = append(views, viewOf(t))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *HTTPServer) handleGetTimer(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(t))
}

func (s *HTTPServer) handleStart(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}

	explicit, ok := s.readOptionalDuration(w, r)
	if !ok {
		return
	}

	s.runOperation(w, t, func() error { return t.Start(explicit) })
}

func (s *HTTPServer) handlePause(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.runOperation(w, t, t.Pause)
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.runOperation(w, t, t.Cancel)
}

func (s *HTTPServer) handleFinish(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.runOperation(w, t, t.Finish)
}

func (s *HTTPServer) handleChangeDuration(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}

	d, ok := s.readOptionalDuration(w, r)
	if !ok {
		return
	}
	if d == nil {
		writeError(w, http.StatusBadRequest, "duration is required")
		return
	}

	s.runOperation(w, t, func() error { return t.ChangeDuration(*d) })
}

func (s *HTTPServer) lookup(w http.ResponseWriter, r *http.Request) (*timer.Timer, bool) {
	id := r.PathValue("id")
	t, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown timer: "+id)
		return nil, false
	}
	return t, true
}

// readOptionalDuration parses a {"duration": "..."} body. An empty body yields
// nil. The boolean result is false when a response was already written.
func (s *HTTPServer) readOptionalDuration(w http.ResponseWriter, r *http.Request) (*time.Duration, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4096))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	if len(body) == 0 {
		return nil, true
	}

	var req durationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if req.Duration == "" {
		return nil, true
	}

	parsed, err := config.ParseDuration(req.Duration)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	d := parsed.Std()
	return &d, true
}

func (s *HTTPServer) runOperation(w http.ResponseWriter, t *timer.Timer, op func() error) {
	if err := op(); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, timer.ErrNotActive), errors.Is(err, timer.ErrAlreadyIdle):
			status = http.StatusConflict
		case errors.Is(err, timer.ErrNegativeDuration):
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, viewOf(t))
}

func viewOf(t *timer.Timer) timerView {
	v := timerView{
		ID:       t.ID(),
		State:    t.State(),
		Duration: config.Duration(t.Duration()).String(),
		Restore:  t.RestoreEnabled(),
	}
	if t.RestoreEnabled() {
		v.GracePeriod = config.Duration(t.GracePeriod()).String()
	}
	switch v.State {
	case timer.Active:
		if end, ok := t.EndAt(); ok {
			v.EndAt = &end
		}
		v.Remaining = config.Duration(t.Remaining()).String()
	case timer.Paused:
		v.Remaining = config.Duration(t.Remaining()).String()
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("Failed to encode response", logfields.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
