package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harborgate/site-api/internal/health"
	httpmiddleware "github.com/harborgate/site-api/internal/http/middleware"
	"github.com/harborgate/site-api/internal/leads"
	"github.com/harborgate/site-api/internal/uploads"
	"github.com/harborgate/site-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	LeadsHandler   *leads.Handler
	HealthHandler  *health.Handler
	UploadsHandler *uploads.Handler
	MetricsHandler http.Handler

	CORSAllowedOrigins []string
	ContactRateLimit   float64
	ContactRateBurst   int

	// Bearer-token secret for the upload and lead-administration routes.
	AuthSecret string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	rate := cfg.ContactRateLimit
	if rate <= 0 {
		rate = 1
	}
	burst := cfg.ContactRateBurst
	if burst <= 0 {
		burst = 5
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/api/health", cfg.HealthHandler.Check)
		public.With(httpmiddleware.RateLimit(rate, burst)).
			Post("/api/contact", cfg.LeadsHandler.SubmitContact)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Authenticated endpoints (uploads + lead administration)
	r.Group(func(authed chi.Router) {
		authed.Use(httpmiddleware.AuthJWT(cfg.AuthSecret))

		if cfg.UploadsHandler != nil {
			authed.Post("/api/upload", cfg.UploadsHandler.Upload)
		}

		authed.Route("/api/leads", func(r chi.Router) {
			r.Get("/", cfg.LeadsHandler.ListLeads)
			r.Get("/stats", cfg.LeadsHandler.LeadStats)
			r.Get("/{id}", cfg.LeadsHandler.GetLead)
			r.Patch("/{id}/status", cfg.LeadsHandler.UpdateLeadStatus)
			r.Delete("/{id}", cfg.LeadsHandler.DeleteLead)
		})
	})

	return r
}
