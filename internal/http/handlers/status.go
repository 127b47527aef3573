package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/palmerclinic/clinic-platform/internal/appointments"
	"github.com/palmerclinic/clinic-platform/internal/csrf"
	"github.com/palmerclinic/clinic-platform/internal/http/middleware"
	"github.com/palmerclinic/clinic-platform/internal/observability/metrics"
	"github.com/palmerclinic/clinic-platform/pkg/logging"
)

// StatusUpdater persists a status transition and returns the confirmed value.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id string, next appointments.Status) (appointments.Status, error)
}

// StatusHandler handles POST /appointments/{appointmentID}/status. JSON
// clients get {"ok": true, "status": ...}; classic form posts get a redirect
// to the next form field or the appointments index.
type StatusHandler struct {
	store   StatusUpdater
	tokens  *csrf.Service
	metrics *metrics.StatusSyncMetrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewStatusHandler creates a status endpoint handler.
func NewStatusHandler(store StatusUpdater, tokens *csrf.Service, m *metrics.StatusSyncMetrics, logger *logging.Logger) *StatusHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatusHandler{
		store:   store,
		tokens:  tokens,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("clinic.internal.http.handlers"),
	}
}

type statusResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// ChangeStatus applies one status transition.
func (h *StatusHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := "error"
	defer func() {
		h.metrics.ObserveEndpoint(result, time.Since(start).Seconds())
	}()

	ctx, span := h.tracer.Start(r.Context(), "appointments.change_status")
	defer span.End()

	apptID := chi.URLParam(r, "appointmentID")
	if err := r.ParseForm(); err != nil {
		result = "bad_request"
		h.fail(w, r, http.StatusBadRequest, "bad_request")
		return
	}

	sess := middleware.SessionFromContext(ctx)
	sessionID := ""
	if sess != nil {
		sessionID = sess.ID
	}
	if err := h.tokens.Validate(csrf.TokenFromRequest(r), sessionID); err != nil {
		result = "csrf_rejected"
		h.logger.Warn("csrf validation failed", "appointment_id", apptID, "error", err)
		h.fail(w, r, http.StatusForbidden, "invalid_csrf")
		return
	}

	desired, err := appointments.ParseStatus(r.PostFormValue("status"))
	if err != nil {
		result = "invalid_status"
		h.fail(w, r, http.StatusBadRequest, "invalid_status")
		return
	}

	confirmed, err := h.store.UpdateStatus(ctx, apptID, desired)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			result = "not_found"
			h.fail(w, r, http.StatusNotFound, "not_found")
			return
		}
		result = "error"
		h.logger.Error("status update failed", "appointment_id", apptID, "error", err)
		h.fail(w, r, http.StatusInternalServerError, "server_error")
		return
	}

	result = "ok"
	h.logger.Info("appointment status changed",
		"appointment_id", apptID,
		"status", confirmed.String(),
	)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, statusResponse{OK: true, Status: confirmed.String()})
		return
	}
	http.Redirect(w, r, redirectTarget(r), http.StatusSeeOther)
}

func (h *StatusHandler) fail(w http.ResponseWriter, r *http.Request, code int, reason string) {
	if wantsJSON(r) {
		writeJSON(w, code, statusResponse{OK: false, Error: reason})
		return
	}
	// Classic form clients go back to the page; the flash there reports the
	// failure.
	http.Redirect(w, r, redirectTarget(r), http.StatusSeeOther)
}

func redirectTarget(r *http.Request) string {
	if next := r.PostFormValue("next"); next != "" && strings.HasPrefix(next, "/") {
		return next
	}
	return "/appointments"
}
