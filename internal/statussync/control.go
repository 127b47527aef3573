// Package statussync implements the appointment status synchronization
// protocol: an optimistic update against a tracked status control, a
// CSRF-protected asynchronous POST to the status endpoint, reconciliation
// to the server-confirmed value, and a degrade-to-classic-form-submission
// path when the asynchronous path fails.
package statussync

import (
	"net/url"
)

// ControlKind distinguishes the two status control variants.
type ControlKind uint8

const (
	// KindChip is a single-element control; a click implicitly flips the
	// status to its opposite.
	KindChip ControlKind = iota
	// KindToggle is a group of explicit choice buttons, one per status.
	KindToggle
)

func (k ControlKind) String() string {
	switch k {
	case KindChip:
		return "chip"
	case KindToggle:
		return "toggle"
	default:
		return "unknown"
	}
}

// FallbackForm is the classic HTML form enclosing a control. Submitting it
// forces a full page round-trip that re-renders from server state.
type FallbackForm struct {
	Action string
	Method string
	Fields url.Values
}

// Control describes one rendered status control. The appointment id is
// immutable for the control's lifetime; the endpoint, when empty, is
// derived from the appointment id at interaction time.
type Control struct {
	ID            string
	AppointmentID string
	Kind          ControlKind
	Endpoint      string
	RedirectHint  string
	Form          *FallbackForm
}
