package statussync

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/palmerclinic/clinic-platform/internal/appointments"
)

// View receives the visual affordance changes the synchronizer applies:
// the saving indicator, the displayed status (label text and pressed state
// of choice buttons), and the transient error state.
type View interface {
	SetSaving(controlID string, saving bool)
	SetStatus(controlID string, status appointments.Status)
	SetError(controlID string, active bool)
}

// NopView discards all affordance changes.
type NopView struct{}

func (NopView) SetSaving(string, bool)                {}
func (NopView) SetStatus(string, appointments.Status) {}
func (NopView) SetError(string, bool)                 {}

// FormSubmitter performs the classic fallback form submission.
type FormSubmitter interface {
	Submit(ctx context.Context, form FallbackForm) error
}

// HTTPFormSubmitter submits the fallback form the way a browser would: a
// synchronous form-encoded request with no JSON accept hint, so the server
// answers with a redirect and a full re-render.
type HTTPFormSubmitter struct {
	httpClient *http.Client
}

func NewHTTPFormSubmitter(client *http.Client) *HTTPFormSubmitter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFormSubmitter{httpClient: client}
}

func (s *HTTPFormSubmitter) Submit(ctx context.Context, form FallbackForm) error {
	method := strings.ToUpper(form.Method)
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, form.Action, strings.NewReader(form.Fields.Encode()))
	if err != nil {
		return fmt.Errorf("statussync: create fallback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("statussync: fallback submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("statussync: fallback submission failed with status %d", resp.StatusCode)
	}
	return nil
}
