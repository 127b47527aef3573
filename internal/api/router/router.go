package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/palmerclinic/clinic-platform/internal/http/handlers"
	httpmiddleware "github.com/palmerclinic/clinic-platform/internal/http/middleware"
	"github.com/palmerclinic/clinic-platform/internal/session"
	"github.com/palmerclinic/clinic-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	PageHandler   *handlers.PageHandler
	StatusHandler *handlers.StatusHandler
	Sessions      *session.Store

	MetricsHandler http.Handler

	// WriteRate/WriteBurst throttle state-changing requests per IP. Zero
	// values keep the 60/min default.
	WriteRate  float64
	WriteBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(httpmiddleware.SecureHeaders)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.Sessions != nil {
		r.Use(httpmiddleware.LoadSession(cfg.Sessions, cfg.Logger))
	}

	writeRate := cfg.WriteRate
	if writeRate <= 0 {
		writeRate = 1 // 60 per minute
	}
	writeBurst := cfg.WriteBurst
	if writeBurst <= 0 {
		writeBurst = 10
	}
	r.Use(httpmiddleware.MutatingRateLimit(writeRate, writeBurst))

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.PageHandler != nil {
		r.Get("/appointments", cfg.PageHandler.Appointments)
		r.Get("/api/patients/search", cfg.PageHandler.SearchPatients)
	}
	if cfg.StatusHandler != nil {
		r.Post("/appointments/{appointmentID}/status", cfg.StatusHandler.ChangeStatus)
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
