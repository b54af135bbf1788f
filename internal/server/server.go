// Package server exposes the operational HTTP surface: a service banner,
// a health summary and prometheus metrics. It serves operators, not
// customers; all commerce happens over the chat transport.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telemart/telemart/internal/logging"
	"github.com/telemart/telemart/pkg/commerce"
	"github.com/telemart/telemart/pkg/session"
)

// Version is stamped by the build.
var Version = "dev"

// Handler builds the ops router.
func Handler(svc *commerce.Service, sessions *session.Manager, reg *prometheus.Registry, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &server{svc: svc, sessions: sessions, logger: logger, started: time.Now()}

	r := chi.NewRouter()
	r.Get("/", s.banner)
	r.Get("/health", s.health)
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return r
}

type server struct {
	svc      *commerce.Service
	sessions *session.Manager
	logger   *slog.Logger
	started  time.Time
}

func (s *server) banner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "telemart",
		"version": Version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := s.counts(ctx)
	if err != nil {
		s.logger.Error("health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"counts": counts,
	})
}

func (s *server) counts(ctx context.Context) (map[string]int, error) {
	users, err := s.svc.Users(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := s.svc.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	liveSessions := 0
	if s.sessions != nil {
		ids, err := s.sessions.List(ctx)
		if err != nil {
			return nil, err
		}
		liveSessions = len(ids)
	}
	return map[string]int{
		"users":    len(users),
		"products": len(catalog),
		"sessions": liveSessions,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
