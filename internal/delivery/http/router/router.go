package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/scrapex-service/internal/delivery/http/handler"
	"github.com/user/scrapex-service/internal/delivery/http/middleware"
)

const requestTimeout = 120 * time.Second

// New wires every route. auth and limiter guard everything under /api/v1
// except the provider callback.
func New(h *handler.Handler, auth *middleware.Authenticator, limiter *middleware.RateLimiter, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/health", h.HandleHealthCheck)
	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))

		r.Post("/webhooks/retell", h.HandleRetellWebhook)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)
			r.Use(limiter.Middleware)

			r.Route("/jobs", func(r chi.Router) {
				r.Post("/", h.HandleSubmitJob)
				r.Get("/", h.HandleListJobs)
				r.Post("/bulk", h.HandleBulkSubmitJobs)
				r.Get("/{id}", h.HandleGetJob)
				r.Post("/{id}/rerun", h.HandleRerunJob)
			})

			r.Post("/scrape-facility", h.HandleScrapeFacility)
			r.Post("/audit-revenue", h.HandleAuditRevenue)
			r.Post("/predict-lead-score", h.HandlePredictLeadScore)
			r.Post("/bulk-predict-leads", h.HandleBulkPredictLeads)
			r.Post("/call-script", h.HandleCallScript)
			r.Post("/verify-email", h.HandleVerifyEmail)

			r.Post("/compliance/check", h.HandleComplianceCheck)
			r.Route("/calls", func(r chi.Router) {
				r.Post("/", h.HandleTriggerCall)
				r.Get("/", h.HandleCallHistory)
				r.Get("/statistics", h.HandleCallStatistics)
			})

			r.Route("/webhooks", func(r chi.Router) {
				r.Post("/", h.HandleCreateWebhook)
				r.Get("/", h.HandleListWebhooks)
				r.Post("/trigger", h.HandleTriggerWebhook)
			})

			r.Post("/crm/sync", h.HandleCRMSync)
			r.Post("/export/sheets", h.HandleExportSheets)

			r.Post("/checkout", h.HandleCheckout)
			r.Get("/payments", h.HandleListPayments)
			r.Post("/payments/{id}/verify", h.HandleVerifyPayment)

			r.Route("/api-keys", func(r chi.Router) {
				r.Post("/", h.HandleCreateAPIKey)
				r.Get("/", h.HandleListAPIKeys)
				r.Delete("/{id}", h.HandleRevokeAPIKey)
			})
		})
	})

	return r
}
