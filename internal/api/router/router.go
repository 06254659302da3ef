package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dentalcare-connect/portal/internal/http/handlers"
	httpmiddleware "github.com/dentalcare-connect/portal/internal/http/middleware"
	"github.com/dentalcare-connect/portal/internal/identity"
	"github.com/dentalcare-connect/portal/internal/webchat"
	"github.com/dentalcare-connect/portal/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	PortalHandler      *handlers.PortalHandler
	WebchatHandler     *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// ChatRatePerSecond throttles the conversational endpoints. Zero disables
	// the limiter.
	ChatRatePerSecond float64
	ChatBurst         int
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
		public.Get("/health", cfg.PortalHandler.HealthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Portal API
	r.Route("/api", func(api chi.Router) {
		api.Use(identity.Middleware)

		// Session bootstrap and static info need no role yet.
		api.Post("/session", cfg.PortalHandler.CreateSession)
		api.Get("/info", cfg.PortalHandler.Info)

		api.Route("/doctor", func(doctor chi.Router) {
			doctor.Use(identity.RequireRole(identity.RoleDoctor))
			doctor.Get("/bookings", cfg.PortalHandler.DoctorBookings)
			doctor.Delete("/bookings/{id}", cfg.PortalHandler.DoctorCancel)
		})

		api.Route("/patient", func(patient chi.Router) {
			patient.Use(identity.RequireRole(identity.RolePatient))
			if cfg.ChatRatePerSecond > 0 {
				patient.With(httpmiddleware.RateLimit(cfg.ChatRatePerSecond, cfg.ChatBurst)).
					Post("/chat", cfg.PortalHandler.PatientChat)
			} else {
				patient.Post("/chat", cfg.PortalHandler.PatientChat)
			}
			patient.Get("/chat/history", cfg.PortalHandler.ChatHistory)
			patient.Post("/bookings", cfg.PortalHandler.PatientBook)
			patient.Get("/bookings", cfg.PortalHandler.PatientBookings)
		})
	})

	// Embeddable chat widget
	if cfg.WebchatHandler != nil {
		r.Route("/webchat", func(wc chi.Router) {
			wc.Get("/ws", cfg.WebchatHandler.HandleWebSocket)
			if cfg.ChatRatePerSecond > 0 {
				wc.With(httpmiddleware.RateLimit(cfg.ChatRatePerSecond, cfg.ChatBurst)).
					Post("/message", cfg.WebchatHandler.HandleMessage)
			} else {
				wc.Post("/message", cfg.WebchatHandler.HandleMessage)
			}
		})
	}

	return r
}
