package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/huddlechat/huddle/internal/api/middleware"
	"github.com/huddlechat/huddle/internal/chat"
	"github.com/huddlechat/huddle/internal/config"
	"github.com/huddlechat/huddle/internal/handlers"
)

// NewRouter creates and configures the HTTP router. redisClient may be nil
// in development; rate limiting then passes everything through.
func NewRouter(logger zerolog.Logger, cfg *config.Config, h *handlers.Handler, hub *chat.Hub, redisClient *redis.Client) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting
	limiter := middleware.NewRateLimiter(redisClient, logger)
	r.Use(limiter.Middleware)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	auth := middleware.NewAuthMiddleware(h.Verifier())
	upgrader := chat.NewUpgrader(cfg.AllowedOrigins)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Static files: uploaded images and theme backgrounds
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	r.Handle("/themes/*", http.StripPrefix("/themes/", http.FileServer(http.Dir(cfg.ThemesDir))))

	// Realtime connection; the token travels in the handshake frame, not a
	// header, so the route itself is public.
	r.Get("/ws", hub.ServeWS(upgrader))

	// Public routes (no auth required)
	r.Get("/health", h.Health)
	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodySize(8 * 1024))
		r.Post("/api/register", h.Register)
		r.Post("/api/login", h.Login)
	})

	// Authenticated routes (require bearer token)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Post("/api/upload", h.Upload)

		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBodySize(8 * 1024))
			r.Get("/api/messages", h.Messages)
			r.Get("/api/group", h.GetGroup)
			r.Put("/api/group", h.UpdateGroup)
			r.Get("/api/themes", h.ListThemes)
			r.Post("/api/theme", h.SetTheme)
		})
	})

	return r
}
