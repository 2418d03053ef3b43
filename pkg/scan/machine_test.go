package scan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unowned-ai/foodtracker/pkg/diary"
	"github.com/unowned-ai/foodtracker/pkg/openfoodfacts"
)

func float(v float64) *float64 { return &v }

var (
	nutellaDetection = Detection{
		Type:   "ean13",
		Data:   "3017620422003",
		Bounds: Bounds{Origin: Point{X: 10, Y: 20}, Size: Size{Width: 120, Height: 40}},
	}
	nutella = openfoodfacts.PerServingProduct{
		ProductInfo: openfoodfacts.ProductInfo{Name: "Nutella", ServingQuantity: float(15), ServingQuantityUnit: "g"},
		Serving:     openfoodfacts.Nutrients{EnergyKcal: float(530)},
	}
)

func lookingUp(t *testing.T) Machine {
	t.Helper()
	m, _ := Transition(Machine{}, BarcodeDetected{Detection: nutellaDetection})
	m, _ = Transition(m, BeginLookup{})
	require.Equal(t, LookingUp, m.State)
	return m
}

func TestTransitionHappyPath(t *testing.T) {
	m, eff := Transition(Machine{}, BarcodeDetected{Detection: nutellaDetection})
	assert.Equal(t, Captured, m.State)
	assert.Nil(t, eff)
	_, ok := m.Highlight()
	assert.False(t, ok, "no highlight before the lookup starts")

	m, eff = Transition(m, BeginLookup{})
	assert.Equal(t, LookingUp, m.State)
	assert.Equal(t, LookupEffect{Barcode: "3017620422003"}, eff)
	bounds, ok := m.Highlight()
	assert.True(t, ok)
	assert.Equal(t, nutellaDetection.Bounds, bounds)

	m, eff = Transition(m, LookupSucceeded{Product: nutella})
	assert.Equal(t, Resolved, m.State)
	assert.Nil(t, eff)
	_, ok = m.Highlight()
	assert.False(t, ok)

	m, eff = Transition(m, Accept{Meal: diary.MealBreakfast})
	assert.Equal(t, Closed, m.State)
	require.IsType(t, AcceptEffect{}, eff)
	entry := eff.(AcceptEffect).Entry
	assert.Equal(t, "Nutella", entry.FoodName)
	assert.Equal(t, 530.0, entry.Calories)
	assert.Equal(t, "15g", entry.ServingSize)
	assert.Equal(t, diary.MealBreakfast, entry.MealType)
}

func TestTransitionSingleFlight(t *testing.T) {
	m, _ := Transition(Machine{}, BarcodeDetected{Detection: nutellaDetection})
	other := Detection{Type: "ean8", Data: "96385074"}

	next, eff := Transition(m, BarcodeDetected{Detection: other})
	assert.Equal(t, m, next)
	assert.Nil(t, eff)

	m = lookingUp(t)
	next, eff = Transition(m, BarcodeDetected{Detection: other})
	assert.Equal(t, m, next)
	assert.Nil(t, eff)

	next, eff = Transition(m, BeginLookup{})
	assert.Equal(t, m, next, "a second lookup is never issued")
	assert.Nil(t, eff)
}

func TestTransitionRejectsBadDetections(t *testing.T) {
	for name, d := range map[string]Detection{
		"Unsupported": {Type: "maxicode", Data: "123"},
		"Empty":       {Type: "ean13"},
		"Whitespace":  {Type: "ean13", Data: " \t\n"},
	} {
		t.Run(name, func(t *testing.T) {
			m, eff := Transition(Machine{}, BarcodeDetected{Detection: d})
			assert.Equal(t, Idle, m.State)
			assert.Nil(t, eff)
		})
	}
}

func TestTransitionTrimsDetectionData(t *testing.T) {
	m, _ := Transition(Machine{}, BarcodeDetected{Detection: Detection{Type: "ean13", Data: " 3017620422003\n"}})
	require.Equal(t, Captured, m.State)

	_, eff := Transition(m, BeginLookup{})
	assert.Equal(t, LookupEffect{Barcode: "3017620422003"}, eff)
}

func TestTransitionFailureCloses(t *testing.T) {
	lookupErr := &openfoodfacts.NetworkError{URL: "x", StatusCode: 502}
	for name, err := range map[string]error{
		"NotFound": openfoodfacts.ErrNotFound,
		"Network":  lookupErr,
	} {
		t.Run(name, func(t *testing.T) {
			m, eff := Transition(lookingUp(t), LookupFailed{Err: err})
			assert.Equal(t, Failed, m.State)
			assert.False(t, m.Open())
			assert.Equal(t, CloseEffect{Err: err}, eff)

			next, eff := Transition(m, Accept{Meal: diary.MealLunch})
			assert.Equal(t, m, next)
			assert.Nil(t, eff, "accept is never emitted after a failure")

			next, eff = Transition(m, Rescan{})
			assert.Equal(t, Failed, next.State)
			assert.Nil(t, eff)

			next, eff = Transition(m, Close{})
			assert.Equal(t, Closed, next.State)
			assert.Nil(t, eff, "the close already happened on failure")
			assert.True(t, errors.Is(next.Err, err))
		})
	}
}

func TestTransitionRescanClearsCapture(t *testing.T) {
	m, _ := Transition(lookingUp(t), LookupSucceeded{Product: nutella})
	m, eff := Transition(m, Rescan{})
	assert.Equal(t, Machine{State: Idle}, m)
	assert.Nil(t, eff)

	m, _ = Transition(m, BarcodeDetected{Detection: Detection{Type: "upc_a", Data: "012345678905"}})
	assert.Equal(t, Captured, m.State)
	assert.Equal(t, "012345678905", m.Detection.Data)
}

func TestTransitionClose(t *testing.T) {
	resolved, _ := Transition(lookingUp(t), LookupSucceeded{Product: nutella})
	for _, m := range []Machine{{}, lookingUp(t), resolved} {
		next, eff := Transition(m, Close{})
		assert.Equal(t, Machine{State: Closed}, next)
		assert.Equal(t, CloseEffect{}, eff)
	}

	closed := Machine{State: Closed}
	for _, ev := range []Event{Close{}, BarcodeDetected{Detection: nutellaDetection}, LookupSucceeded{Product: nutella}, Rescan{}} {
		next, eff := Transition(closed, ev)
		assert.Equal(t, closed, next)
		assert.Nil(t, eff)
	}
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("ean13"))
	assert.True(t, IsSupported("EAN-13"))
	assert.True(t, IsSupported("UPC_E"))
	assert.False(t, IsSupported("maxicode"))
	assert.False(t, IsSupported(""))
}

func TestGuessFormat(t *testing.T) {
	assert.Equal(t, "ean13", GuessFormat("3017620422003"))
	assert.Equal(t, "ean8", GuessFormat("96385074"))
	assert.Equal(t, "upc_a", GuessFormat("012345678905"))
	assert.Equal(t, "itf14", GuessFormat("10012345678902"))
	assert.Equal(t, "code128", GuessFormat("ABC-123"))
}
