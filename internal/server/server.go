// Package server exposes the daemon's HTTP and WebSocket surface.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/glancelog/glance/internal/artifact"
	"github.com/glancelog/glance/internal/capture"
	apperrors "github.com/glancelog/glance/internal/errors"
	"github.com/glancelog/glance/internal/logbuf"
	"github.com/glancelog/glance/internal/store"
	"github.com/glancelog/glance/internal/synthesis"
	"github.com/glancelog/glance/internal/trace"
)

// rateLimiter tracks request timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a request is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitRequests {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections for the desktop shell.
type Server struct {
	store     *store.Store
	sched     *capture.Scheduler
	summaries *synthesis.Generator
	artifacts *artifact.Store
	logs      *logbuf.Buffer

	limiter rateLimiter

	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

// New creates a new server and starts the event broadcaster.
func New(st *store.Store, sched *capture.Scheduler, summaries *synthesis.Generator, artifacts *artifact.Store, logs *logbuf.Buffer) *Server {
	s := &Server{
		store:     st,
		sched:     sched,
		summaries: summaries,
		artifacts: artifacts,
		logs:      logs,
		conns:     make(map[*websocket.Conn]struct{}),
	}

	go s.broadcastEvents()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/capture/start", s.limit(s.handleCaptureStart))
	mux.HandleFunc("POST /api/capture/stop", s.limit(s.handleCaptureStop))
	mux.HandleFunc("POST /api/capture/trigger", s.limit(s.handleCaptureTrigger))
	mux.HandleFunc("GET /api/capture/status", s.handleCaptureStatus)
	mux.HandleFunc("POST /api/screenshot", s.limit(s.handleScreenshot))
	mux.HandleFunc("GET /api/records/today", s.handleRecordsToday)
	mux.HandleFunc("POST /api/notes", s.limit(s.handleNoteCreate))
	mux.HandleFunc("GET /api/settings", s.handleSettingsGet)
	mux.HandleFunc("PUT /api/settings", s.limit(s.handleSettingsPut))
	mux.HandleFunc("POST /api/summary", s.limit(s.handleSummaryGenerate))
	mux.HandleFunc("GET /api/summary/latest", s.handleSummaryLatest)
	mux.HandleFunc("GET /api/artifacts/{name}", s.handleArtifact)
	mux.HandleFunc("GET /api/logs", s.handleLogs)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// limit wraps a mutating handler with the shared rate limiter.
func (s *Server) limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps pipeline failures onto status codes: configuration and
// input problems read as 400, upstream service trouble as 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNoCredential),
		errors.Is(err, store.ErrEmptyContent),
		errors.Is(err, synthesis.ErrNoRecords):
		return http.StatusBadRequest
	case errors.Is(err, synthesis.ErrNoSummary):
		return http.StatusNotFound
	}

	var modalityErr *apperrors.UnsupportedModalityError
	if errors.As(err, &modalityErr) {
		return http.StatusBadRequest
	}

	var serviceErr *apperrors.ServiceError
	var transportErr *apperrors.TransportError
	var malformedErr *apperrors.MalformedResponseError
	if errors.As(err, &serviceErr) || errors.As(err, &transportErr) || errors.As(err, &malformedErr) {
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCaptureStart(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Start(r.Context()); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "capture_started"})
}

func (s *Server) handleCaptureStop(w http.ResponseWriter, r *http.Request) {
	s.sched.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "capture_stopped"})
}

func (s *Server) handleCaptureTrigger(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.sched.Trigger(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"outcome": outcome})
}

func (s *Server) handleCaptureStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.Status())
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	path, err := s.sched.Screenshot(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	uri, err := s.artifacts.DataURI(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"path": path, "data_uri": uri})
}

func (s *Server) handleRecordsToday(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.TodayRecords(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleNoteCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, err := s.store.AppendRecord(r.Context(), store.SourceManual, req.Content, "", "")
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.sched.EmitRecord(rec)

	log := trace.Logger(r.Context())
	log.Info("manual note recorded", "id", rec.ID)

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.Settings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	var in store.Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if in.ChangeThreshold < 0 || in.ChangeThreshold > 100 {
		writeError(w, http.StatusBadRequest, "change_threshold must be between 0 and 100")
		return
	}
	if in.CaptureIntervalMin < 1 {
		writeError(w, http.StatusBadRequest, "capture_interval_min must be at least 1")
		return
	}

	if err := s.store.SaveSettings(r.Context(), in); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log := trace.Logger(r.Context())
	log.Info("settings updated", "interval_min", in.CaptureIntervalMin, "auto_capture", in.AutoCaptureEnabled)

	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleSummaryGenerate(w http.ResponseWriter, r *http.Request) {
	path, err := s.summaries.Generate(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

func (s *Server) handleSummaryLatest(w http.ResponseWriter, r *http.Request) {
	path, content, err := s.summaries.Latest(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path, "content": content})
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	path, err := s.artifacts.Path(r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "no such artifact")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	lines := DefaultLogLines
	if v := r.URL.Query().Get("lines"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "lines must be a positive integer")
			return
		}
		lines = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"lines": s.logs.Tail(lines)})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// Push the current scheduler state so the shell can render immediately.
	status := s.sched.Status()
	_ = wsjson.Write(baseCtx, conn, capture.Event{Type: capture.EventStatus, Status: &status})

	// The shell only listens; drain inbound frames until the peer goes away.
	for {
		if _, _, err := conn.Read(baseCtx); err != nil {
			log.Debug("websocket closed", "error", err)
			return
		}
	}
}

func (s *Server) broadcastEvents() {
	for ev := range s.sched.Events() {
		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn, e capture.Event) {
				_ = wsjson.Write(context.Background(), c, e)
			}(conn, ev)
		}
		s.mu.RUnlock()
	}
}
