package scan

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unowned-ai/foodtracker/pkg/diary"
	"github.com/unowned-ai/foodtracker/pkg/openfoodfacts"
)

var (
	// ErrIgnored means the detection was dropped: unsupported format, empty
	// data, or a barcode already captured.
	ErrIgnored       = errors.New("detection ignored")
	ErrSessionClosed = errors.New("scan session is closed")
	ErrNotResolved   = errors.New("no resolved product to act on")
)

// Lookup resolves a barcode. *openfoodfacts.Client satisfies it.
type Lookup interface {
	LookupByBarcode(ctx context.Context, barcode string) (openfoodfacts.Product, error)
}

// Facing is the camera in use.
type Facing int

const (
	FacingBack Facing = iota
	FacingFront
)

func (f Facing) String() string {
	if f == FacingFront {
		return "front"
	}
	return "back"
}

// AcceptFunc receives the normalized entry when the user accepts a product.
type AcceptFunc func(ctx context.Context, entry diary.FoodEntry) error

// CloseFunc is called once when the session closes without an accept.
// err is the lookup failure that closed it, or nil when the user closed it.
type CloseFunc func(err error)

type SessionOption func(*Session)

func WithAcceptFunc(fn AcceptFunc) SessionOption {
	return func(s *Session) { s.onAccept = fn }
}

func WithCloseFunc(fn CloseFunc) SessionOption {
	return func(s *Session) { s.onClose = fn }
}

func WithLogger(log *zap.SugaredLogger) SessionOption {
	return func(s *Session) { s.log = log }
}

// Session drives one scan flow. The lock is never held across the network
// call, so Close may be called while a lookup is in flight; its late result
// is then dropped.
type Session struct {
	id       string
	lookup   Lookup
	log      *zap.SugaredLogger
	onAccept AcceptFunc
	onClose  CloseFunc

	mu      sync.Mutex
	machine Machine
	facing  Facing
}

func NewSession(lookup Lookup, opts ...SessionOption) *Session {
	s := &Session{
		id:     uuid.NewString(),
		lookup: lookup,
		log:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("scan_session", s.id)
	return s
}

func (s *Session) ID() string { return s.id }

// Snapshot returns the current machine state.
func (s *Session) Snapshot() Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine
}

func (s *Session) State() State { return s.Snapshot().State }

func (s *Session) Facing() Facing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facing
}

// ToggleFacing switches between the back and front camera.
func (s *Session) ToggleFacing() Facing {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.facing == FacingBack {
		s.facing = FacingFront
	} else {
		s.facing = FacingBack
	}
	return s.facing
}

// Detect feeds one camera detection into the session. The first supported
// detection in Idle triggers exactly one lookup, and Detect returns once it
// has resolved. A failed lookup closes the session and its error is returned.
func (s *Session) Detect(ctx context.Context, d Detection) (openfoodfacts.Product, error) {
	s.mu.Lock()
	if !s.machine.Open() {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	next, _ := Transition(s.machine, BarcodeDetected{Detection: d})
	if next.State != Captured {
		state := s.machine.State
		s.mu.Unlock()
		s.log.Debugw("ignoring detection", "type", d.Type, "state", state.String())
		return nil, ErrIgnored
	}
	next, eff := Transition(next, BeginLookup{})
	s.machine = next
	s.mu.Unlock()

	lookup := eff.(LookupEffect)
	s.log.Infow("looking up barcode", "barcode", lookup.Barcode, "type", d.Type)
	product, err := s.lookup.LookupByBarcode(ctx, lookup.Barcode)

	s.mu.Lock()
	if s.machine.State != LookingUp {
		s.mu.Unlock()
		s.log.Debugw("dropping late lookup result", "barcode", lookup.Barcode)
		return nil, ErrSessionClosed
	}
	if err != nil {
		s.machine, eff = Transition(s.machine, LookupFailed{Err: err})
		s.mu.Unlock()
		s.log.Warnw("barcode lookup failed, closing scan", "barcode", lookup.Barcode, "error", err)
		s.run(ctx, eff)
		return nil, err
	}
	s.machine, _ = Transition(s.machine, LookupSucceeded{Product: product})
	s.mu.Unlock()
	return product, nil
}

// Accept normalizes the resolved product into meal and hands it to the
// accept callback. The session is closed afterwards.
func (s *Session) Accept(ctx context.Context, meal diary.MealType) (diary.FoodEntry, error) {
	s.mu.Lock()
	if s.machine.State != Resolved {
		state := s.machine.State
		s.mu.Unlock()
		if state == Closed || state == Failed {
			return diary.FoodEntry{}, ErrSessionClosed
		}
		return diary.FoodEntry{}, ErrNotResolved
	}
	var eff Effect
	s.machine, eff = Transition(s.machine, Accept{Meal: meal})
	s.mu.Unlock()

	accepted := eff.(AcceptEffect)
	return accepted.Entry, s.run(ctx, eff)
}

// Rescan discards the resolved product and waits for a new barcode.
func (s *Session) Rescan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine.State != Resolved {
		if !s.machine.Open() {
			return ErrSessionClosed
		}
		return ErrNotResolved
	}
	s.machine, _ = Transition(s.machine, Rescan{})
	return nil
}

// Close ends the session. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	next, eff := Transition(s.machine, Close{})
	s.machine = next
	s.mu.Unlock()
	s.run(context.Background(), eff)
}

func (s *Session) run(ctx context.Context, eff Effect) error {
	switch eff := eff.(type) {
	case AcceptEffect:
		s.log.Infow("product accepted", "food", eff.Entry.FoodName, "meal", string(eff.Entry.MealType))
		if s.onAccept != nil {
			return s.onAccept(ctx, eff.Entry)
		}
	case CloseEffect:
		s.log.Debugw("scan session closed", "error", eff.Err)
		if s.onClose != nil {
			s.onClose(eff.Err)
		}
	}
	return nil
}
