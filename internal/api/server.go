// Package api provides the local HTTP control server.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"palmguard/internal/control"
	"palmguard/internal/monitor"
	"palmguard/internal/protocol"
	"palmguard/internal/selector"
)

// Controller is the part of the engine the API drives
type Controller interface {
	State() control.State
	Stats() selector.Stats
	Handle() selector.Handle
	Running() bool
	ToggleNow(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Reprobe(ctx context.Context, allowed []control.Kind) (control.Kind, error)
	Subscribe(fn func(protocol.Message)) func()
}

// Server provides the HTTP API for local control
type Server struct {
	ctrl   Controller
	token  string
	wsMgr  *WSManager
	logger *slog.Logger
}

// NewServer creates a new API server. An empty token disables auth.
func NewServer(ctrl Controller, token string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		ctrl:   ctrl,
		token:  token,
		logger: logger.With("component", "api"),
	}
	s.wsMgr = newWSManager(s)
	return s
}

// Handler returns the chi router with all routes mounted
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.recoverMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.originMiddleware)
		r.Use(s.authMiddleware)
		r.Get("/api/status", s.handleStatus)
		r.Post("/api/toggle", s.handleToggle)
		r.Post("/api/monitor/start", s.handleMonitorStart)
		r.Post("/api/monitor/stop", s.handleMonitorStop)
		r.Post("/api/reprobe", s.handleReprobe)
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/ws", s.wsMgr.handleWebSocket)
	})
	return r
}

// Start listens on addr until ctx is done
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	unsubscribe := s.ctrl.Subscribe(s.wsMgr.Broadcast)
	defer unsubscribe()

	wsCtx, cancelWS := context.WithCancel(ctx)
	defer cancelWS()
	go s.wsMgr.start(wsCtx)

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("API server listening", "addr", ln.Addr().String())
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("API server stopped", "error", err)
		return err
	}
	return nil
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("handler panic", "path", r.URL.Path, "panic", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// originMiddleware rejects browser requests from pages not served by
// this machine
func (s *Server) originMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !loopbackOrigin(r) {
			s.logger.Warn("request from foreign origin rejected", "origin", r.Header.Get("Origin"), "path", r.URL.Path)
			writeError(w, http.StatusForbidden, "origin not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loopbackOrigin reports whether the request has no Origin header or one
// naming a loopback host
func loopbackOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// authMiddleware checks the bearer token if configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()))

		if s.token != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			// browsers cannot set headers on websocket upgrades
			if got == "" {
				got = r.URL.Query().Get("token")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type statusResponse struct {
	State      control.State   `json:"state"`
	Monitoring bool            `json:"monitoring"`
	Handle     selector.Handle `json:"handle"`
	Stats      selector.Stats  `json:"stats"`
}

func (s *Server) status() statusResponse {
	return statusResponse{
		State:      s.ctrl.State(),
		Monitoring: s.ctrl.Running(),
		Handle:     s.ctrl.Handle(),
		Stats:      s.ctrl.Stats(),
	}
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

// handleToggle handles POST /api/toggle
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.ToggleNow(r.Context()); err != nil {
		s.logger.Warn("toggle failed", "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

// handleMonitorStart handles POST /api/monitor/start
func (s *Server) handleMonitorStart(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Start(r.Context()); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

// handleMonitorStop handles POST /api/monitor/stop
func (s *Server) handleMonitorStop(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Stop(r.Context()); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

// handleReprobe handles POST /api/reprobe?strategy=a,b
func (s *Server) handleReprobe(w http.ResponseWriter, r *http.Request) {
	var allowed []control.Kind
	if raw := r.URL.Query().Get("strategy"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			k, err := control.ParseKind(strings.TrimSpace(name))
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			allowed = append(allowed, k)
		}
	}

	if _, err := s.ctrl.Reprobe(r.Context(), allowed); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, monitor.ErrAlreadyRunning), errors.Is(err, monitor.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, control.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, control.ErrAmbiguousDevice):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
