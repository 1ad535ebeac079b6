package serverhttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"kardex-service/internal/config"
	invHnd "kardex-service/internal/inventory/handler"
	"kardex-service/internal/middleware"
	"kardex-service/server/http/handlers"
)

func NewRouter(cfg config.Config, logger zerolog.Logger, inv *invHnd.Handler, metrics http.Handler) *chi.Mux {
	r := chi.NewRouter()

	// order matters: recover -> requestID -> logging -> cors -> limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(cfg.MaxUploadBytes()))

	r.Get("/health", handlers.Health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	inv.Routes(r)
	return r
}
