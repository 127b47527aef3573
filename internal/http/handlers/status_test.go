package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/palmerclinic/clinic-platform/internal/appointments"
	"github.com/palmerclinic/clinic-platform/internal/csrf"
	"github.com/palmerclinic/clinic-platform/internal/http/middleware"
	"github.com/palmerclinic/clinic-platform/internal/session"
)

type fakeUpdater struct {
	gotID     string
	gotStatus appointments.Status
	confirmed appointments.Status
	err       error
}

func (f *fakeUpdater) UpdateStatus(_ context.Context, id string, next appointments.Status) (appointments.Status, error) {
	f.gotID = id
	f.gotStatus = next
	if f.err != nil {
		return appointments.StatusScheduled, f.err
	}
	return f.confirmed, nil
}

type statusFixture struct {
	store  *fakeUpdater
	tokens *csrf.Service
	router *chi.Mux
	sess   *session.Session
}

func newStatusFixture(t *testing.T) *statusFixture {
	t.Helper()
	tokens, err := csrf.NewService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("csrf service: %v", err)
	}
	store := &fakeUpdater{confirmed: appointments.StatusDone}
	handler := NewStatusHandler(store, tokens, nil, nil)

	router := chi.NewRouter()
	router.Post("/appointments/{appointmentID}/status", handler.ChangeStatus)

	return &statusFixture{
		store:  store,
		tokens: tokens,
		router: router,
		sess:   &session.Session{ID: "sess-1"},
	}
}

func (fx *statusFixture) post(t *testing.T, apptID string, form url.Values, wantJSON bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/appointments/"+apptID+"/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if wantJSON {
		req.Header.Set("Accept", "application/json")
	}
	token, err := fx.tokens.Issue(fx.sess.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req.Header.Set("X-CSRFToken", token)
	req = req.WithContext(middleware.ContextWithSession(req.Context(), fx.sess))

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func decodeStatusResponse(t *testing.T, rec *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var body statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestChangeStatusJSONSuccess(t *testing.T) {
	fx := newStatusFixture(t)

	rec := fx.post(t, "appt-1", url.Values{"status": {"done"}}, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeStatusResponse(t, rec)
	if !body.OK || body.Status != "done" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if fx.store.gotID != "appt-1" || fx.store.gotStatus != appointments.StatusDone {
		t.Fatalf("store saw id=%s status=%s", fx.store.gotID, fx.store.gotStatus)
	}
}

func TestChangeStatusReportsConfirmedValue(t *testing.T) {
	fx := newStatusFixture(t)
	// The store may return a different value than requested; the response
	// carries what was actually persisted.
	fx.store.confirmed = appointments.StatusScheduled

	rec := fx.post(t, "appt-1", url.Values{"status": {"done"}}, true)

	body := decodeStatusResponse(t, rec)
	if body.Status != "scheduled" {
		t.Fatalf("expected confirmed value scheduled, got %q", body.Status)
	}
}

func TestChangeStatusFormClientRedirects(t *testing.T) {
	fx := newStatusFixture(t)

	rec := fx.post(t, "appt-1", url.Values{
		"status": {"done"},
		"next":   {"/appointments?day=2026-08-31"},
	}, false)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/appointments?day=2026-08-31" {
		t.Fatalf("unexpected redirect target %q", got)
	}
}

func TestChangeStatusRedirectDefaultsToIndex(t *testing.T) {
	fx := newStatusFixture(t)

	rec := fx.post(t, "appt-1", url.Values{"status": {"done"}}, false)

	if got := rec.Header().Get("Location"); got != "/appointments" {
		t.Fatalf("unexpected redirect target %q", got)
	}
}

func TestChangeStatusIgnoresOffsiteRedirect(t *testing.T) {
	fx := newStatusFixture(t)

	rec := fx.post(t, "appt-1", url.Values{
		"status": {"done"},
		"next":   {"https://evil.example/phish"},
	}, false)

	if got := rec.Header().Get("Location"); got != "/appointments" {
		t.Fatalf("offsite next must be ignored, got %q", got)
	}
}

func TestChangeStatusRejectsBadCSRF(t *testing.T) {
	fx := newStatusFixture(t)

	form := url.Values{"status": {"done"}}
	req := httptest.NewRequest(http.MethodPost, "/appointments/appt-1/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CSRFToken", "forged")
	req = req.WithContext(middleware.ContextWithSession(req.Context(), fx.sess))

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	body := decodeStatusResponse(t, rec)
	if body.OK || body.Error != "invalid_csrf" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if fx.store.gotID != "" {
		t.Fatal("store must not be touched on csrf failure")
	}
}

func TestChangeStatusRejectsForeignSessionToken(t *testing.T) {
	fx := newStatusFixture(t)

	token, err := fx.tokens.Issue("someone-else")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	form := url.Values{"status": {"done"}}
	req := httptest.NewRequest(http.MethodPost, "/appointments/appt-1/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CSRFToken", token)
	req = req.WithContext(middleware.ContextWithSession(req.Context(), fx.sess))

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestChangeStatusRejectsUnknownStatus(t *testing.T) {
	fx := newStatusFixture(t)

	rec := fx.post(t, "appt-1", url.Values{"status": {"checked_in"}}, true)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeStatusResponse(t, rec)
	if body.OK || body.Error != "invalid_status" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestChangeStatusUnknownAppointment(t *testing.T) {
	fx := newStatusFixture(t)
	fx.store.err = appointments.ErrNotFound

	rec := fx.post(t, "ghost", url.Values{"status": {"done"}}, true)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	body := decodeStatusResponse(t, rec)
	if body.Error != "not_found" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestChangeStatusStoreFailure(t *testing.T) {
	fx := newStatusFixture(t)
	fx.store.err = errors.New("connection reset")

	rec := fx.post(t, "appt-1", url.Values{"status": {"done"}}, true)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decodeStatusResponse(t, rec)
	if body.Error != "server_error" {
		t.Fatalf("unexpected body: %+v", body)
	}
}
