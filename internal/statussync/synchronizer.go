package statussync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/palmerclinic/clinic-platform/internal/appointments"
	"github.com/palmerclinic/clinic-platform/pkg/logging"
)

// Outcome is the result of one RequestStatusChange call. Transport-layer
// failures never escape the operation; the outcome and the observer events
// are the whole instrumentation surface.
type Outcome uint8

const (
	// OutcomeUnresolved means no endpoint could be derived, or the control
	// is unknown: silently ignored, no request sent.
	OutcomeUnresolved Outcome = iota
	// OutcomeNoChange means the requested status already matches the
	// displayed one: idempotent no-op, no request sent.
	OutcomeNoChange
	// OutcomeInFlight means a request for this control was already
	// outstanding: the interaction is dropped, not queued.
	OutcomeInFlight
	// OutcomeConfirmed means the server accepted the change and the control
	// was reconciled to the confirmed value.
	OutcomeConfirmed
	// OutcomeRecovered means the enhanced path failed: the control was
	// reverted and the classic fallback form was submitted.
	OutcomeRecovered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnresolved:
		return "unresolved"
	case OutcomeNoChange:
		return "no_change"
	case OutcomeInFlight:
		return "in_flight"
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeRecovered:
		return "recovered"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// TokenSource yields the page-level CSRF token. It is consulted fresh for
// every request, never cached, so late token rotation without a reload
// keeps working.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken returns a TokenSource that always yields the same token.
func StaticToken(token string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) { return token, nil })
}

// controlState is the per-control record owned by the synchronizer. The
// saving flag is the per-control mutex: at most one request in flight per
// control, independent across controls.
type controlState struct {
	status appointments.Status
	saving bool
}

// Synchronizer mediates every status-change interaction through the
// optimistic / confirm / fallback protocol, regardless of control variant.
type Synchronizer struct {
	endpointBase string
	tokens       TokenSource
	httpClient   *http.Client
	view         View
	forms        FormSubmitter
	observer     Observer
	logger       *logging.Logger
	flashFor     time.Duration

	mu       sync.Mutex
	controls map[string]*Control
	states   map[string]*controlState
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithHTTPClient sets the client used for the asynchronous status POST.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Synchronizer) { s.httpClient = client }
}

// WithView sets the affordance sink.
func WithView(view View) Option {
	return func(s *Synchronizer) { s.view = view }
}

// WithFormSubmitter sets the fallback submission mechanism.
func WithFormSubmitter(forms FormSubmitter) Option {
	return func(s *Synchronizer) { s.forms = forms }
}

// WithObserver sets the protocol event sink.
func WithObserver(observer Observer) Option {
	return func(s *Synchronizer) { s.observer = observer }
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Synchronizer) { s.logger = logger }
}

// WithErrorFlashDuration overrides how long the error visual stays on a
// control after a failed request.
func WithErrorFlashDuration(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.flashFor = d
		}
	}
}

// NewSynchronizer creates a synchronizer. endpointBase prefixes endpoints
// derived from appointment ids (it may be empty for same-origin paths);
// tokens is consulted fresh on every request.
func NewSynchronizer(endpointBase string, tokens TokenSource, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		endpointBase: strings.TrimRight(endpointBase, "/"),
		tokens:       tokens,
		httpClient:   &http.Client{},
		view:         NopView{},
		observer:     nopObserver{},
		logger:       logging.Default(),
		flashFor:     1500 * time.Millisecond,
		controls:     make(map[string]*Control),
		states:       make(map[string]*controlState),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.forms == nil {
		s.forms = NewHTTPFormSubmitter(s.httpClient)
	}
	return s
}

// Register tracks a rendered control and its currently displayed status.
// Controls rendered after initial page load are registered the same way;
// nothing else needs re-binding.
func (s *Synchronizer) Register(control *Control, displayed appointments.Status) error {
	if control == nil || control.ID == "" {
		return fmt.Errorf("statussync: control with id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls[control.ID] = control
	s.states[control.ID] = &controlState{status: displayed}
	return nil
}

// Unregister discards a control, e.g. when its page fragment is removed.
func (s *Synchronizer) Unregister(controlID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.controls, controlID)
	delete(s.states, controlID)
}

// Lookup resolves a registered control by id.
func (s *Synchronizer) Lookup(controlID string) (*Control, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	control, ok := s.controls[controlID]
	return control, ok
}

// DisplayedStatus reports the status a control currently shows.
func (s *Synchronizer) DisplayedStatus(controlID string) (appointments.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[controlID]
	if !ok {
		return appointments.StatusScheduled, false
	}
	return state.status, true
}

// Saving reports whether a request is in flight for the control.
func (s *Synchronizer) Saving(controlID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[controlID]
	return ok && state.saving
}

// RequestStatusChange runs the full protocol for one interaction. desired
// is nil for chips (implicit flip to the opposite of the displayed value)
// and set for toggle groups (explicit button choice). The call blocks for
// the single suspension point, the network request; it never panics and
// never returns a transport error.
func (s *Synchronizer) RequestStatusChange(ctx context.Context, control *Control, desired *appointments.Status) Outcome {
	if control == nil {
		return OutcomeUnresolved
	}
	endpoint := s.resolveEndpoint(control)
	if endpoint == "" {
		s.observe(EventResolutionFailed, control.ID, "")
		return OutcomeUnresolved
	}

	s.mu.Lock()
	state, tracked := s.states[control.ID]
	if !tracked {
		s.mu.Unlock()
		s.observe(EventResolutionFailed, control.ID, "")
		return OutcomeUnresolved
	}
	prev := state.status
	target := prev.Toggled()
	if desired != nil {
		if *desired == prev {
			s.mu.Unlock()
			s.observe(EventNoopTransition, control.ID, prev.String())
			return OutcomeNoChange
		}
		target = *desired
	}
	if state.saving {
		s.mu.Unlock()
		s.observe(EventDroppedInFlight, control.ID, target.String())
		return OutcomeInFlight
	}
	state.saving = true
	state.status = target
	s.mu.Unlock()

	// Optimistic apply happens before the request so the UI feels immediate.
	s.view.SetSaving(control.ID, true)
	s.view.SetStatus(control.ID, target)
	s.observe(EventOptimisticApplied, control.ID, target.String())

	defer func() {
		s.mu.Lock()
		state.saving = false
		s.mu.Unlock()
		s.view.SetSaving(control.ID, false)
	}()

	confirmed, ok := s.postStatus(ctx, endpoint, control, target)
	if !ok {
		s.mu.Lock()
		state.status = prev
		s.mu.Unlock()
		s.view.SetStatus(control.ID, prev)
		s.observe(EventReverted, control.ID, prev.String())
		s.flashError(control.ID)
		s.submitFallback(ctx, control, target)
		return OutcomeRecovered
	}

	final := target
	if confirmed != nil {
		final = *confirmed
	}
	s.mu.Lock()
	state.status = final
	s.mu.Unlock()
	s.view.SetStatus(control.ID, final)
	s.observe(EventConfirmed, control.ID, final.String())
	return OutcomeConfirmed
}

func (s *Synchronizer) resolveEndpoint(control *Control) string {
	if control.Endpoint != "" {
		return control.Endpoint
	}
	if control.AppointmentID == "" {
		return ""
	}
	return fmt.Sprintf("%s/appointments/%s/status", s.endpointBase, control.AppointmentID)
}

type statusResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// postStatus sends the asynchronous request. It returns the confirmed
// status when the server supplied one, and whether the request succeeded.
// All failure modes (transport error, non-2xx, ok:false) collapse into a
// single failure result.
func (s *Synchronizer) postStatus(ctx context.Context, endpoint string, control *Control, target appointments.Status) (*appointments.Status, bool) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		// A missing page token is not fatal here; the server rejects the
		// request and the generic failure path takes over.
		s.logger.Warn("status sync: token source failed", "control_id", control.ID, "error", err)
		token = ""
	}

	body := url.Values{}
	body.Set("status", target.String())
	body.Set("csrf_token", token)
	if control.RedirectHint != "" {
		body.Set("next", control.RedirectHint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.Encode()))
	if err != nil {
		s.logger.Error("status sync: create request", "control_id", control.ID, "error", err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	req.Header.Set("X-CSRFToken", token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("status sync: request failed", "control_id", control.ID, "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("status sync: rejected", "control_id", control.ID, "http_status", resp.StatusCode)
		return nil, false
	}

	var payload statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		// An HTTP-success body that is not JSON counts as success with no
		// confirmed status; the optimistic value stands.
		s.logger.Debug("status sync: unparsable success body", "control_id", control.ID, "error", err)
		return nil, true
	}
	if !payload.OK {
		s.logger.Warn("status sync: server reported failure", "control_id", control.ID, "server_error", payload.Error)
		return nil, false
	}
	if payload.Status == "" {
		return nil, true
	}
	confirmed, err := appointments.ParseStatus(payload.Status)
	if err != nil {
		s.logger.Warn("status sync: unrecognized confirmed status", "control_id", control.ID, "status", payload.Status)
		return nil, true
	}
	return &confirmed, true
}

// flashError applies the transient error visual and schedules its removal.
func (s *Synchronizer) flashError(controlID string) {
	s.view.SetError(controlID, true)
	time.AfterFunc(s.flashFor, func() {
		s.view.SetError(controlID, false)
	})
}

// submitFallback sets the enclosing form's hidden status field to the
// desired value and submits it synchronously, forcing a full round-trip
// that re-renders from server-authoritative state. Without an enclosing
// form the revert already restored a consistent display.
func (s *Synchronizer) submitFallback(ctx context.Context, control *Control, target appointments.Status) {
	if control.Form == nil {
		s.logger.Warn("status sync: no fallback form for control", "control_id", control.ID)
		return
	}
	form := *control.Form
	fields := url.Values{}
	for key, vals := range control.Form.Fields {
		fields[key] = append([]string(nil), vals...)
	}
	fields.Set("status", target.String())
	if control.RedirectHint != "" && fields.Get("next") == "" {
		fields.Set("next", control.RedirectHint)
	}
	form.Fields = fields

	if err := s.forms.Submit(ctx, form); err != nil {
		s.logger.Error("status sync: fallback submission failed", "control_id", control.ID, "error", err)
		return
	}
	s.observe(EventFallbackSubmitted, control.ID, target.String())
}

func (s *Synchronizer) observe(name, controlID, outcome string) {
	s.observer.ControlEvent(Event{Name: name, ControlID: controlID, Outcome: outcome})
}
