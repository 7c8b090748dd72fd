package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type RouterConfig struct {
	Service BookingService
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/hosts/{hostID}", func(r chi.Router) {
		r.Get("/availability", getProfileHandler(cfg.Service))
		r.Put("/availability", updateProfileHandler(cfg.Service))
		r.Put("/availability/overrides/{date}", upsertOverrideHandler(cfg.Service))
		r.Delete("/availability/overrides/{date}", removeOverrideHandler(cfg.Service))

		r.Get("/event-types/{eventTypeID}/slots", getSlotsHandler(cfg.Service))
		r.Post("/event-types/{eventTypeID}/reservations", reserveHandler(cfg.Service))
	})

	r.Get("/bookings/{id}", getBookingHandler(cfg.Service))

	return r
}
