package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-scheduling-platform/internal/appointments"
	httpmiddleware "github.com/wolfman30/clinic-scheduling-platform/internal/http/middleware"
	"github.com/wolfman30/clinic-scheduling-platform/internal/reminders"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	RemindersHandler    *reminders.Handler
	AdminAuthSecret     string
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// Requests/sec and burst per tenant on booking endpoints. Zero disables
	// rate limiting.
	RateLimit      float64
	RateLimitBurst int
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

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Tenant-scoped scheduling API
	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.RequireTenant)
		if cfg.RateLimit > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimit, cfg.RateLimitBurst))
		}

		api.Route("/appointments", func(r chi.Router) {
			r.Post("/", cfg.AppointmentsHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.AppointmentsHandler.Get)
				r.Patch("/", cfg.AppointmentsHandler.Update)
				r.Post("/cancel", cfg.AppointmentsHandler.Cancel)
				r.Post("/status", cfg.AppointmentsHandler.UpdateStatus)
				if cfg.RemindersHandler != nil {
					r.Post("/reminders", cfg.RemindersHandler.Plan)
					r.Get("/reminders", cfg.RemindersHandler.List)
				}
			})
		})
		api.Get("/doctors/{doctorID}/appointments", cfg.AppointmentsHandler.ListByDoctor)
		api.Get("/patients/{patientID}/appointments", cfg.AppointmentsHandler.ListByPatient)
	})

	// Admin endpoints (JWT-protected)
	if cfg.RemindersHandler != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Post("/admin/reminders/process", cfg.RemindersHandler.ProcessDue)
		})
	}

	return r
}
