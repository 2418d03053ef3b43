// Package scan models a barcode scan session as an explicit state machine.
//
// Transition is pure: it maps the current Machine and an Event to the next
// Machine and an Effect for the caller to perform, the same way a bubbletea
// model returns a command from Update. Session drives it against a real
// lookup client.
package scan

import (
	"strings"

	"github.com/unowned-ai/foodtracker/pkg/diary"
	"github.com/unowned-ai/foodtracker/pkg/nutrition"
	"github.com/unowned-ai/foodtracker/pkg/openfoodfacts"
)

type State int

const (
	// Idle is a live camera waiting for a barcode.
	Idle State = iota
	// Captured holds a decoded barcode that has not been looked up yet.
	Captured
	LookingUp
	Resolved
	// Failed means the lookup failed. The session is being closed.
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Captured:
		return "captured"
	case LookingUp:
		return "looking up"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Machine is the full session state. Detection is set from Captured through
// Resolved; Product only in Resolved; Err only in Failed.
type Machine struct {
	State     State
	Detection *Detection
	Product   openfoodfacts.Product
	Err       error
}

// Highlight returns the barcode box while its lookup is in flight.
func (m Machine) Highlight() (Bounds, bool) {
	if m.State != LookingUp || m.Detection == nil {
		return Bounds{}, false
	}
	return m.Detection.Bounds, true
}

// Open reports whether the session still reacts to input.
func (m Machine) Open() bool {
	return m.State != Failed && m.State != Closed
}

// Event is an input to Transition.
type Event interface{ isEvent() }

type BarcodeDetected struct{ Detection Detection }

type BeginLookup struct{}

type LookupSucceeded struct{ Product openfoodfacts.Product }

type LookupFailed struct{ Err error }

// Accept adds the resolved product to Meal.
type Accept struct{ Meal diary.MealType }

type Rescan struct{}

type Close struct{}

func (BarcodeDetected) isEvent() {}
func (BeginLookup) isEvent()     {}
func (LookupSucceeded) isEvent() {}
func (LookupFailed) isEvent()    {}
func (Accept) isEvent()          {}
func (Rescan) isEvent()          {}
func (Close) isEvent()           {}

// Effect is work the caller must perform after a transition. A nil Effect
// means nothing to do.
type Effect interface{ isEffect() }

// LookupEffect asks for exactly one barcode lookup.
type LookupEffect struct{ Barcode string }

// AcceptEffect hands the normalized entry to the diary.
type AcceptEffect struct{ Entry diary.FoodEntry }

// CloseEffect exits the scan flow. Err is set when a failed lookup caused it.
type CloseEffect struct{ Err error }

func (LookupEffect) isEffect() {}
func (AcceptEffect) isEffect() {}
func (CloseEffect) isEffect()  {}

// Transition applies ev to m. Events that do not apply in the current state
// leave m unchanged and produce no effect.
func Transition(m Machine, ev Event) (Machine, Effect) {
	if !m.Open() {
		if _, ok := ev.(Close); ok && m.State == Failed {
			return Machine{State: Closed, Err: m.Err}, nil
		}
		return m, nil
	}

	switch ev := ev.(type) {
	case Close:
		return Machine{State: Closed}, CloseEffect{}

	case BarcodeDetected:
		d := ev.Detection
		d.Data = strings.TrimSpace(d.Data)
		if m.State != Idle || d.Data == "" || !IsSupported(d.Type) {
			return m, nil
		}
		return Machine{State: Captured, Detection: &d}, nil

	case BeginLookup:
		if m.State != Captured {
			return m, nil
		}
		return Machine{State: LookingUp, Detection: m.Detection}, LookupEffect{Barcode: m.Detection.Data}

	case LookupSucceeded:
		if m.State != LookingUp || ev.Product == nil {
			return m, nil
		}
		return Machine{State: Resolved, Detection: m.Detection, Product: ev.Product}, nil

	case LookupFailed:
		if m.State != LookingUp {
			return m, nil
		}
		return Machine{State: Failed, Detection: m.Detection, Err: ev.Err}, CloseEffect{Err: ev.Err}

	case Accept:
		if m.State != Resolved {
			return m, nil
		}
		entry := nutrition.Normalize(m.Product, ev.Meal)
		return Machine{State: Closed}, AcceptEffect{Entry: entry}

	case Rescan:
		if m.State != Resolved {
			return m, nil
		}
		return Machine{State: Idle}, nil
	}
	return m, nil
}
