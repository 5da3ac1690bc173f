package router

import (
	"database/sql"
	"net/http"

	"github.com/furniro/messaging/internal/handlers"
	"github.com/furniro/messaging/internal/middleware"
	"github.com/furniro/messaging/internal/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	JWTSecret         string
	JWTIssuer         string
	JWTAudience       string
	RateLimitRequests int
	RateLimitWindow   string
	ServiceName       string
}

func New(
	convH *handlers.ConversationHandler,
	msgH *handlers.MessageHandler,
	presenceH *handlers.PresenceHandler,
	socketH http.Handler,
	db *sql.DB,
	cfg Config,
) http.Handler {

	r := chi.NewRouter()

	r.Use(observability.MetricsMiddleware(cfg.ServiceName))
	r.Use(middleware.Recovery())
	r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

	r.Get("/health/live", observability.HealthLiveHandler)
	r.Get("/health/ready", observability.HealthReadyHandler(db))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(p chi.Router) {
		p.Use(middleware.JWT(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience))

		p.Post("/api/conversations", convH.CreateConversation)
		p.Get("/api/conversations", convH.ListConversations)
		p.Get("/api/conversations/{id}/messages", convH.ListMessages)

		p.Post("/api/messages", msgH.SendMessage)

		p.Get("/api/presence/active", presenceH.ActiveUsers)
		p.Post("/api/presence/heartbeat", presenceH.Heartbeat)

		p.Handle("/ws", socketH)
	})

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
