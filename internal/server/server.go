// Package server is the JSON boundary over the registry and runner. It
// trusts the reverse proxy in front of it to authenticate users and set
// the X-Remote-User header; everything else is denied.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/openbank/apitester/internal/config"
	"github.com/openbank/apitester/internal/core/profile"
	"github.com/openbank/apitester/internal/core/registry"
	"github.com/openbank/apitester/internal/runner"
	"github.com/openbank/apitester/internal/swagger"
)

type Server struct {
	cfg      config.Config
	profiles *profile.Store
	registry *registry.Service
	runner   *runner.Runner
	cache    *swagger.Cache
	logger   *slog.Logger
	router   *chi.Mux
}

func New(cfg config.Config, profiles *profile.Store, reg *registry.Service, run *runner.Runner, cache *swagger.Cache, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		profiles: profiles,
		registry: reg,
		runner:   run,
		cache:    cache,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLog)

	r.Route("/runtests", func(r chi.Router) {
		r.Get("/{profileID}", s.listOperations)
		r.Post("/{profileID}/{operationID}/{replicaID}/run", s.runOperation)
		r.Post("/save", s.saveOperation)
		r.Post("/copy", s.copyOperation)
		r.Post("/delete", s.deleteOperation)
	})
	r.Route("/testconfigs", func(r chi.Router) {
		r.Get("/", s.listConfigs)
		r.Post("/", s.createConfig)
		r.Get("/{id}", s.getConfig)
		r.Put("/{id}", s.updateConfig)
		r.Delete("/{id}", s.deleteConfig)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took_ms", time.Since(start).Milliseconds(),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// owner returns the authenticated user set by the proxy, empty when the
// request is anonymous.
func owner(r *http.Request) string {
	return r.Header.Get("X-Remote-User")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    http.StatusText(status),
			"code":    status,
		},
	})
}

// denial hides whether the target exists or is merely owned by someone
// else.
func denial(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "Access denied")
}

func isNotFound(err error) bool {
	return errors.Is(err, profile.ErrNotFound) || errors.Is(err, registry.ErrNotFound)
}
