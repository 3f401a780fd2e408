// Package server exposes the operational HTTP surface and runs the process
// until it receives a termination signal.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/qturkey/listmailer/pkg/health"
)

const realm = "listmailer"

// RouterConfig describes the routes to mount.
type RouterConfig struct {
	Metrics  http.Handler
	Checks   health.Checks
	Logger   *slog.Logger
	Username string
	Password string
}

// NewRouter mounts:
//
//	GET /healthz  liveness, behind basic auth; refused when no credentials are set
//	GET /readyz   readiness checks
//	GET /metrics  Prometheus exposition, when a handler is given
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		if cfg.Username == "" {
			r.Use(denyAll)
		} else {
			r.Use(middleware.BasicAuth(realm, map[string]string{cfg.Username: cfg.Password}))
		}
		r.Get("/healthz", health.LivenessHandler())
	})

	r.Get("/readyz", health.ReadinessHandler(cfg.Checks, health.WithLogger(cfg.Logger)))

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	return r
}

// denyAll answers every request with 401. Without configured credentials no
// request can authenticate.
func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	})
}
