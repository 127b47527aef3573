package statussync

// Protocol event names emitted through the Observer. Test harnesses and the
// metrics adapter assert on these instead of scraping log output.
const (
	EventResolutionFailed  = "resolution_failed"
	EventNoopTransition    = "noop_transition"
	EventDroppedInFlight   = "dropped_in_flight"
	EventOptimisticApplied = "optimistic_applied"
	EventConfirmed         = "confirmed"
	EventReverted          = "reverted"
	EventFallbackSubmitted = "fallback_submitted"
)

// Event is one protocol transition on one control.
type Event struct {
	Name      string
	ControlID string
	Outcome   string
}

// Observer receives protocol transitions as they happen.
type Observer interface {
	ControlEvent(ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev Event)

func (f ObserverFunc) ControlEvent(ev Event) { f(ev) }

type nopObserver struct{}

func (nopObserver) ControlEvent(Event) {}
