package handlers

import (
	"context"
	_ "embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/palmerclinic/clinic-platform/internal/appointments"
	"github.com/palmerclinic/clinic-platform/internal/csrf"
	"github.com/palmerclinic/clinic-platform/internal/http/middleware"
	"github.com/palmerclinic/clinic-platform/internal/session"
	"github.com/palmerclinic/clinic-platform/pkg/logging"
)

//go:embed templates/appointments.html
var appointmentsTemplateSrc string

var appointmentsTemplate = template.Must(template.New("appointments").Parse(appointmentsTemplateSrc))

// PageStore reads the data the appointments page is seeded with.
type PageStore interface {
	ListWindow(ctx context.Context, from, to time.Time) ([]appointments.Appointment, error)
	ListPatients(ctx context.Context, limit int) ([]appointments.Patient, error)
	ListDoctors(ctx context.Context) ([]appointments.Doctor, error)
	SearchPatients(ctx context.Context, term string, limit int) ([]appointments.Patient, error)
}

// PageHandler renders the appointments page and serves the patient search
// endpoint backing its typeahead.
type PageHandler struct {
	store    PageStore
	sessions *session.Store
	tokens   *csrf.Service
	logger   *logging.Logger

	pastDays      int
	futureDays    int
	patientMax    int
	secureCookies bool
}

// PageOption configures a PageHandler.
type PageOption func(*PageHandler)

// WithSeedWindow bounds the rolling window of appointments the page loads.
func WithSeedWindow(pastDays, futureDays int) PageOption {
	return func(h *PageHandler) {
		h.pastDays = pastDays
		h.futureDays = futureDays
	}
}

// WithPatientCap bounds how many patients seed the page.
func WithPatientCap(max int) PageOption {
	return func(h *PageHandler) { h.patientMax = max }
}

// WithSecureCookies marks issued session cookies Secure.
func WithSecureCookies(secure bool) PageOption {
	return func(h *PageHandler) { h.secureCookies = secure }
}

// NewPageHandler creates the appointments page handler.
func NewPageHandler(store PageStore, sessions *session.Store, tokens *csrf.Service, logger *logging.Logger, opts ...PageOption) *PageHandler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &PageHandler{
		store:      store,
		sessions:   sessions,
		tokens:     tokens,
		logger:     logger,
		pastDays:   7,
		futureDays: 21,
		patientMax: 100,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type pageData struct {
	Seed      *appointments.PageSeed
	CSRFToken string
}

// Appointments renders the page with its three seed blobs. A session is
// created on first visit so the CSRF token has something to bind to.
func (h *PageHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess := middleware.SessionFromContext(ctx)
	if sess == nil {
		created, err := h.sessions.Create(ctx, "")
		if err != nil {
			h.logger.Error("session create failed", "error", err)
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		sess = created
		http.SetCookie(w, session.NewCookie(sess, h.secureCookies))
	}

	token, err := h.tokens.Issue(sess.ID)
	if err != nil {
		h.logger.Error("csrf issue failed", "error", err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	now := time.Now()
	from := now.AddDate(0, 0, -h.pastDays)
	to := now.AddDate(0, 0, h.futureDays)

	// A failing read degrades to an empty page rather than a hard error.
	appts, err := h.store.ListWindow(ctx, from, to)
	if err != nil {
		h.logger.Error("list appointments failed", "error", err)
	}
	patients, err := h.store.ListPatients(ctx, h.patientMax)
	if err != nil {
		h.logger.Error("list patients failed", "error", err)
	}
	doctors, err := h.store.ListDoctors(ctx)
	if err != nil {
		h.logger.Error("list doctors failed", "error", err)
	}

	seed, err := appointments.BuildPageSeed(appts, patients, doctors)
	if err != nil {
		h.logger.Error("build page seed failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := appointmentsTemplate.Execute(w, pageData{Seed: seed, CSRFToken: token}); err != nil {
		h.logger.Error("render appointments page failed", "error", err)
	}
}

type patientSearchResult struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FileNumber  string `json:"fileNumber"`
	PhoneNumber string `json:"phoneNumber"`
}

// SearchPatients backs the typeahead: GET /api/patients/search?q=. Queries
// under two characters return an empty list without touching the store.
func (h *PageHandler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		writeJSON(w, http.StatusOK, []patientSearchResult{})
		return
	}

	patients, err := h.store.SearchPatients(r.Context(), query, 10)
	if err != nil {
		h.logger.Error("patient search failed", "query", query, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	results := make([]patientSearchResult, 0, len(patients))
	for _, p := range patients {
		results = append(results, patientSearchResult{
			ID:          p.ID,
			Name:        p.FullName,
			FileNumber:  p.ShortID,
			PhoneNumber: p.Phone,
		})
	}
	writeJSON(w, http.StatusOK, results)
}
