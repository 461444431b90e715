package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Metrics serves /metrics and observes every request.
type Metrics interface {
	RequestObserver
	Handler() http.Handler
}

type RouterConfig struct {
	Intents        IntentService
	Converter      Converter
	WebhookSecret  string
	Metrics        Metrics
	Health         map[string]HealthCheck
	AllowedOrigins []string
	Logger         zerolog.Logger
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(Recoverer(cfg.Logger))
	r.Use(RequestLogger(cfg.Logger))
	r.Use(Tracing)
	if cfg.Metrics != nil {
		r.Use(Instrument(cfg.Metrics))
	}
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", UserIDHeader, middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", HandleHealth(cfg.Health))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/order-intents", func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/", HandleCreateIntent(cfg.Intents))
		r.Get("/{intentID}", HandleGetIntent(cfg.Intents))
		r.Post("/{intentID}/cancel", HandleCancelIntent(cfg.Intents))
	})

	r.Post("/internal/payments/confirmations", HandlePaymentConfirmation(cfg.Converter, cfg.WebhookSecret))

	return r
}
