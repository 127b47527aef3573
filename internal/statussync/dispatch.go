package statussync

import (
	"context"

	"github.com/palmerclinic/clinic-platform/internal/appointments"
)

// Click is one user interaction, already resolved to the nearest enclosing
// control the way document-level delegation would: ControlID names the chip
// or toggle group the click landed in (empty when it landed outside any
// control), and Choice carries the explicit button value for toggle groups.
type Click struct {
	ControlID string
	Choice    *appointments.Status
}

type clickHandler func(ctx context.Context, control *Control, click Click) Outcome

// Dispatcher routes clicks to the synchronizer. The dispatch table mapping
// control variant to handler is built once at construction; controls
// registered later are picked up with no re-binding.
type Dispatcher struct {
	sync     *Synchronizer
	handlers map[ControlKind]clickHandler
}

// NewDispatcher builds the dispatch table over a synchronizer.
func NewDispatcher(sync *Synchronizer) *Dispatcher {
	d := &Dispatcher{sync: sync}
	d.handlers = map[ControlKind]clickHandler{
		KindChip: func(ctx context.Context, control *Control, _ Click) Outcome {
			// Implicit flip: no explicit desired value for chips.
			return d.sync.RequestStatusChange(ctx, control, nil)
		},
		KindToggle: func(ctx context.Context, control *Control, click Click) Outcome {
			if click.Choice == nil {
				// A click inside a toggle group but not on a choice button.
				return OutcomeUnresolved
			}
			return d.sync.RequestStatusChange(ctx, control, click.Choice)
		},
	}
	return d
}

// Dispatch resolves the click's control and invokes the matching handler.
// Clicks outside any registered control are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, click Click) Outcome {
	if click.ControlID == "" {
		return OutcomeUnresolved
	}
	control, ok := d.sync.Lookup(click.ControlID)
	if !ok {
		return OutcomeUnresolved
	}
	handler, ok := d.handlers[control.Kind]
	if !ok {
		return OutcomeUnresolved
	}
	return handler(ctx, control, click)
}
