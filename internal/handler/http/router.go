package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/health"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/middleware"
)

const serviceName = "projectverse"

// RouterConfig holds the dependencies of NewRouter.
type RouterConfig struct {
	Ledger  Ledger
	Access  Access
	Reviews Reviews
	Ratings Ratings
	Sales   Sales

	Health         *health.Handler
	TokenValidator middleware.TokenValidator
	CORS           middleware.CORSConfig
	// PaymentLimiter throttles order creation and payment verification per
	// client IP. Nil disables throttling.
	PaymentLimiter *middleware.RateLimiter
	PprofCIDRs     []string
	Logger         *slog.Logger
}

// NewRouter creates a chi router with all marketplace routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	orderHandler := NewOrderHandler(cfg.Ledger, logger)
	accessHandler := NewAccessHandler(cfg.Access, logger)
	reviewHandler := NewReviewHandler(cfg.Reviews, logger)
	adminHandler := NewAdminHandler(cfg.Sales, cfg.Reviews, cfg.Ratings, logger)

	authenticated := chi.Chain(
		middleware.Auth(cfg.TokenValidator),
		middleware.RequestLogger(logger),
	)
	limit := func(next http.Handler) http.Handler { return next }
	if cfg.PaymentLimiter != nil {
		limit = cfg.PaymentLimiter.Handler
	}

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(authenticated...)
		r.Use(middleware.NoStore)

		r.With(limit).Post("/", orderHandler.CreateOrder)
		r.With(limit).Post("/verify", orderHandler.VerifyPayment)
		r.Get("/mine", orderHandler.ListMyOrders)
		r.Get("/{id}", orderHandler.GetOrder)
	})

	r.Route("/api/v1/products/{productId}", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		r.With(middleware.CacheControl(60)).Get("/reviews", reviewHandler.ListProductReviews)

		r.Group(func(r chi.Router) {
			r.Use(authenticated...)
			r.Use(middleware.NoStore)

			r.Get("/entitlement", accessHandler.Entitlement)
			r.Get("/files", accessHandler.DownloadLinks)
			r.Get("/files/{fileType}", accessHandler.DownloadLink)
			r.Post("/reviews", reviewHandler.CreateReview)
		})
	})

	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(authenticated...)

		r.Patch("/{id}", reviewHandler.UpdateReview)
		r.Delete("/{id}", reviewHandler.DeleteReview)
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(authenticated...)
		r.Use(middleware.RequireRole(domain.RoleAdmin))
		r.Use(middleware.NoStore)

		r.Post("/orders/{id}/refund", orderHandler.Refund)
		r.Get("/dashboard", adminHandler.Dashboard)
		r.Get("/transactions", adminHandler.Transactions)
		r.Patch("/reviews/{id}/approval", adminHandler.SetReviewApproval)
		r.Delete("/reviews/{id}", reviewHandler.DeleteReview)
		r.Post("/products/{productId}/rating/recompute", adminHandler.RecomputeRating)
	})

	return r
}
