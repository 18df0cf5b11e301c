package handler

import (
	"net/http"

	"neurosim/internal/auth"
	"neurosim/internal/metrics"
	"neurosim/internal/service"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig holds everything the HTTP surface is built from
type RouterConfig struct {
	Network        *service.NetworkService
	Auth           *auth.Service
	Events         http.Handler
	Metrics        *metrics.Collector
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter configures all routes and middleware
func NewRouter(cfg RouterConfig) http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(Logger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(Metrics(cfg.Metrics))
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", healthCheck(cfg.Network, cfg.Logger))
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics.Handler())
	}

	authenticate := Authenticate(cfg.Auth.Tokens(), cfg.Logger)

	router.Route("/api", func(r chi.Router) {
		authHandler := NewAuthHandler(cfg.Auth, cfg.Logger)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			h := NewNetworkHandler(cfg.Network, cfg.Logger)
			r.Get("/network", h.GetNetwork)
			r.Delete("/network", h.ClearNetwork)
			r.Post("/neurons", h.AddNeuron)
			r.Get("/neurons/{id}", h.GetNeuron)
			r.Post("/connections", h.Connect)
			r.Post("/stimulate", h.Stimulate)
			r.Post("/auto-connect", h.AutoConnect)
			r.Get("/report", h.Report)
			r.Get("/export/{format}", h.Export)
			r.Post("/import/{format}", h.Import)
		})
	})

	if cfg.Events != nil {
		router.With(authenticate).Get("/events", cfg.Events.ServeHTTP)
	}

	return router
}

func healthCheck(svc *service.NetworkService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, map[string]interface{}{
			"status":   "healthy",
			"networks": svc.ResidentOwners(),
		}, http.StatusOK)
	}
}
