package appointments

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Status
		wantErr bool
	}{
		{"scheduled", "scheduled", StatusScheduled, false},
		{"done", "done", StatusDone, false},
		{"empty", "", StatusScheduled, true},
		{"display label rejected", "Scheduled", StatusScheduled, true},
		{"legacy rejected by strict parse", "checked_in", StatusScheduled, true},
		{"garbage", "archived", StatusScheduled, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatus(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidStatus) {
					t.Fatalf("expected ErrInvalidStatus, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseStatus(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseStoredStatusFoldsLegacyValues(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"scheduled", StatusScheduled},
		{"pending", StatusScheduled},
		{"checked_in", StatusScheduled},
		{"in_progress", StatusScheduled},
		{"done", StatusDone},
		{"complete", StatusDone},
	}
	for _, tt := range tests {
		got, err := ParseStoredStatus(tt.raw)
		if err != nil {
			t.Fatalf("ParseStoredStatus(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseStoredStatus(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
	if _, err := ParseStoredStatus("cancelled"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus for cancelled, got %v", err)
	}
}

func TestToggledIsAnInvolution(t *testing.T) {
	for _, s := range []Status{StatusScheduled, StatusDone} {
		if s.Toggled() == s {
			t.Fatalf("Toggled() must flip %v", s)
		}
		if s.Toggled().Toggled() != s {
			t.Fatalf("double toggle must return to %v", s)
		}
	}
}

func TestCanTransitionTo(t *testing.T) {
	if !StatusScheduled.CanTransitionTo(StatusDone) {
		t.Error("scheduled -> done must be legal")
	}
	if !StatusDone.CanTransitionTo(StatusScheduled) {
		t.Error("done -> scheduled must be legal")
	}
	if StatusScheduled.CanTransitionTo(StatusScheduled) {
		t.Error("same-value change is not a transition")
	}
	if StatusDone.CanTransitionTo(StatusDone) {
		t.Error("same-value change is not a transition")
	}
}

func TestStatusTextRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusScheduled, StatusDone} {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("marshal %v: %v", s, err)
		}
		var back Status
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("unmarshal %q: %v", text, err)
		}
		if back != s {
			t.Fatalf("round trip changed %v to %v", s, back)
		}
	}
}
