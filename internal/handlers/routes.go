// internal/handlers/routes.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jason-s-yu/tactics-relay/internal/metrics"
	"github.com/jason-s-yu/tactics-relay/internal/middleware"
	"github.com/jason-s-yu/tactics-relay/internal/relay"
	"github.com/sirupsen/logrus"
)

// RouterConfig names the HTTP surface.
type RouterConfig struct {
	HealthPath string
	// StaticDir is served at the root when non-empty.
	StaticDir string
	// JWTSecret, when set, requires a signed token on the socket upgrade.
	JWTSecret string
	WS        WSConfig
}

// SetupRoutes mounts the relay socket, liveness probe, metrics and static bundle.
func SetupRoutes(logger *logrus.Logger, d *relay.Dispatcher, m *metrics.Metrics, cfg RouterConfig) http.Handler {
	if cfg.HealthPath == "" {
		cfg.HealthPath = "/healthz"
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer, middleware.LogMiddleware(logger))

	r.Get(cfg.HealthPath, Healthz)
	r.With(middleware.NewAuthMiddleware(logger, cfg.JWTSecret)).Get("/ws", RelayWSHandler(logger, d, cfg.WS))
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}
	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}
	return r
}

// Healthz reports liveness with an empty 200.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
