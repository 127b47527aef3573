// Package appointments holds the clinic appointment domain: the status
// enumeration, the persistent models, and the pgx-backed store.
package appointments

import (
	"errors"
	"fmt"
)

// Status is the closed appointment status enumeration. Every branch on a
// Status must handle both values explicitly; unknown strings never parse.
type Status uint8

const (
	StatusScheduled Status = iota
	StatusDone
)

// ErrInvalidStatus is returned when a raw status string is not part of the
// enumeration.
var ErrInvalidStatus = errors.New("appointments: invalid status")

// String returns the wire/storage form of the status.
func (s Status) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusDone:
		return "done"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// DisplayLabel returns the label shown on the appointments page.
func (s Status) DisplayLabel() string {
	switch s {
	case StatusScheduled:
		return "Scheduled"
	case StatusDone:
		return "Done"
	default:
		return "Scheduled"
	}
}

// Toggled returns the opposite status. With a two-value enumeration this is
// the implicit target of a chip click.
func (s Status) Toggled() Status {
	switch s {
	case StatusScheduled:
		return StatusDone
	case StatusDone:
		return StatusScheduled
	default:
		return StatusScheduled
	}
}

// CanTransitionTo reports whether moving from s to next is a legal
// transition. Both directions are legal; a same-value transition is not a
// transition at all and is handled as a no-op upstream.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusScheduled:
		return next == StatusDone
	case StatusDone:
		return next == StatusScheduled
	default:
		return false
	}
}

// ParseStatus parses the strict wire form ("scheduled" or "done").
func ParseStatus(raw string) (Status, error) {
	switch raw {
	case "scheduled":
		return StatusScheduled, nil
	case "done":
		return StatusDone, nil
	default:
		return StatusScheduled, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// ParseStoredStatus parses a status read back from storage, folding legacy
// spellings left behind by earlier schema generations into the two-value
// enumeration.
func ParseStoredStatus(raw string) (Status, error) {
	switch raw {
	case "scheduled", "pending", "checked_in", "in_progress":
		return StatusScheduled, nil
	case "done", "complete":
		return StatusDone, nil
	default:
		return StatusScheduled, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// MarshalText implements encoding.TextMarshaler using the wire form.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using the strict parse.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
