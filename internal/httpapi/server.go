// Package httpapi exposes the pagination engine over REST.
package httpapi

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"chart-pager/internal/logging"
	"chart-pager/internal/observability"
	"chart-pager/internal/pagination"
	"chart-pager/internal/session"
	"chart-pager/internal/validation"
)

// Error strings sent to clients.
const (
	msgChartNotFound   = "Chart not found"
	msgSeriesNotFound  = "Series not found"
	msgSessionNotFound = "Session not found"
)

const maxBodyBytes = 64 << 20

// Options configures a Server.
type Options struct {
	Backend *pagination.Service
	// Sessions enables the /sessions routes when set.
	Sessions *session.Manager
	Logger   *zap.Logger
	// DefaultCount is the history page size when the request omits count.
	DefaultCount int
}

// Server routes REST requests to a pagination service.
type Server struct {
	backend      *pagination.Service
	sessions     *session.Manager
	logger       *zap.Logger
	defaultCount int
	started      time.Time
	mux          *http.ServeMux
}

// NewServer creates a Server and registers its routes.
func NewServer(opts Options) *Server {
	defaultCount := opts.DefaultCount
	if defaultCount <= 0 {
		defaultCount = validation.DefaultHistoryCount
	}

	s := &Server{
		backend:      opts.Backend,
		sessions:     opts.Sessions,
		logger:       logging.OrNop(opts.Logger),
		defaultCount: defaultCount,
		started:      time.Now(),
		mux:          http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Handle("GET /metrics", observability.Handler())
	s.mux.HandleFunc("GET /status", s.handleStatus)

	s.registerChartRoutes("", session.Static(s.backend))
	if s.sessions != nil {
		s.mux.HandleFunc("POST /sessions", s.handleCreateSession)
		s.mux.HandleFunc("DELETE /sessions/{sessionId}", s.handleCloseSession)
		s.registerChartRoutes("/sessions/{sessionId}", s.sessions.Resolver("sessionId"))
	}

	return s
}

// Handle mounts an extra handler, e.g. the WebSocket endpoint.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()

	s.mux.ServeHTTP(rec, r)

	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	observability.RecordHTTPRequest(route, strconv.Itoa(rec.status))
	s.logger.Debug("http request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)),
	)
}

func (s *Server) registerChartRoutes(prefix string, resolve session.Resolver) {
	h := &chartHandlers{resolve: resolve, defaultCount: s.defaultCount, logger: s.logger}

	s.mux.HandleFunc("GET "+prefix+"/charts", h.listCharts)
	s.mux.HandleFunc("POST "+prefix+"/charts/{chartId}", h.createChart)
	s.mux.HandleFunc("GET "+prefix+"/charts/{chartId}", h.getChart)
	s.mux.HandleFunc("DELETE "+prefix+"/charts/{chartId}", h.deleteChart)
	s.mux.HandleFunc("POST "+prefix+"/charts/{chartId}/data/{seriesId}", h.setSeries)
	s.mux.HandleFunc("GET "+prefix+"/charts/{chartId}/data/{paneId}/{seriesId}", h.getSeries)
	s.mux.HandleFunc("GET "+prefix+"/charts/{chartId}/history/{paneId}/{seriesId}", h.getHistory)
	s.mux.HandleFunc("POST "+prefix+"/charts/{chartId}/history", h.postHistory)
	s.mux.HandleFunc("GET "+prefix+"/charts/{chartId}/range/{paneId}/{seriesId}", h.getRange)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Status: "running",
		Uptime: time.Since(s.started).Round(time.Second).String(),
		Charts: s.backend.ChartCount(),
	}
	if s.sessions != nil {
		resp.Sessions = s.sessions.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, SessionResponse{SessionID: s.sessions.Create()})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Close(r.PathValue("sessionId")) {
		writeError(w, http.StatusNotFound, msgSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeLookupError maps engine and session lookup errors to responses.
func writeLookupError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var verr *validation.Error
	switch {
	case errors.Is(err, pagination.ErrChartNotFound):
		writeError(w, http.StatusNotFound, msgChartNotFound)
	case errors.Is(err, pagination.ErrSeriesNotFound):
		writeError(w, http.StatusNotFound, msgSeriesNotFound)
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, msgSessionNotFound)
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
