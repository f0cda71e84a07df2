package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nft-curator/internal/domain"
)

// SessionReader exposes stored session state. repository.SessionStore satisfies it.
type SessionReader interface {
	Get(ctx context.Context, sender, key string) (string, bool, error)
	Keys(ctx context.Context, sender string) ([]string, error)
}

type Server struct {
	router    *chi.Mux
	port      int
	sessions  SessionReader
	connected func() bool
	logger    *slog.Logger
	http      *http.Server
}

// NewServer builds the HTTP surface. connected reports transport health and
// may be nil.
func NewServer(port int, sessions SessionReader, connected func() bool, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		sessions:  sessions,
		connected: connected,
		logger:    logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/curator/status", s.status)
	router.Get("/api/v1/sessions/{sender}", s.session)
	router.Get("/api/v1/sessions/{sender}/{key}", s.sessionValue)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	bus := "unknown"
	if s.connected != nil {
		bus = "disconnected"
		if s.connected() {
			bus = "connected"
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"agent": "nft-curator",
		"bus":   bus,
	})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	sender := chi.URLParam(r, "sender")
	keys, err := s.sessions.Keys(r.Context(), sender)
	if err != nil {
		s.logger.Error("list session keys failed", "sender", sender, "error", err)
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sender": sender,
		"state":  domain.DeriveState(keys).String(),
		"keys":   keys,
	})
}

func (s *Server) sessionValue(w http.ResponseWriter, r *http.Request) {
	sender := chi.URLParam(r, "sender")
	key := chi.URLParam(r, "key")
	if !domain.ReadableKey(key) {
		writeError(w, http.StatusNotFound, "unknown key")
		return
	}
	value, ok, err := s.sessions.Get(r.Context(), sender, key)
	if err != nil {
		s.logger.Error("read session value failed", "sender", sender, "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if !json.Valid([]byte(value)) {
		writeError(w, http.StatusUnprocessableEntity, "stored value is not JSON")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(value))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
