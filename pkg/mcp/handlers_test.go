package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unowned-ai/foodtracker/pkg/diary"
	"github.com/unowned-ai/foodtracker/pkg/kv"
	"github.com/unowned-ai/foodtracker/pkg/openfoodfacts"
)

type fakeLookup struct {
	products map[string]openfoodfacts.Product
	search   openfoodfacts.SearchResults
	lastOpts openfoodfacts.SearchOptions
}

func (f *fakeLookup) LookupByBarcode(ctx context.Context, barcode string) (openfoodfacts.Product, error) {
	p, ok := f.products[barcode]
	if !ok {
		return nil, openfoodfacts.ErrNotFound
	}
	return p, nil
}

func (f *fakeLookup) LookupByName(ctx context.Context, query string, opts openfoodfacts.SearchOptions) (openfoodfacts.SearchResults, error) {
	f.lastOpts = opts
	return f.search, nil
}

func num(v float64) *float64 { return &v }

var today = time.Date(2024, time.March, 9, 18, 30, 0, 0, time.UTC)

func newTestTools(t *testing.T) (*Tools, *fakeLookup, *diary.Store) {
	t.Helper()
	lookup := &fakeLookup{products: map[string]openfoodfacts.Product{
		"3017620422003": openfoodfacts.PerServingProduct{
			ProductInfo: openfoodfacts.ProductInfo{Code: "3017620422003", Name: "Nutella", ServingQuantity: num(15), ServingQuantityUnit: "g"},
			Serving:     openfoodfacts.Nutrients{EnergyKcal: num(530)},
		},
	}}
	log := zap.NewNop().Sugar()
	store := diary.NewStore(kv.NewMemoryStore(), log)
	tools := NewTools(store, lookup, log, WithPageSize(25), WithClock(func() time.Time { return today }))
	return tools, lookup, store
}

type handlerFunc func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, h handlerFunc, args map[string]interface{}) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text, res.IsError
}

func TestPing(t *testing.T) {
	tools, _, _ := newTestTools(t)
	text, isErr := call(t, tools.handlePing, nil)
	assert.False(t, isErr)
	assert.Equal(t, "pong_foodtracker", text)
}

func TestLookupBarcodeTool(t *testing.T) {
	tools, _, _ := newTestTools(t)

	text, isErr := call(t, tools.handleLookupBarcode, map[string]interface{}{"barcode": "3017620422003"})
	require.False(t, isErr, text)
	var got struct {
		Variant   string `json:"variant"`
		Nutrition struct {
			Name    string `json:"name"`
			Heading string `json:"heading"`
		} `json:"nutrition"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, "per_serving", got.Variant)
	assert.Equal(t, "Nutella", got.Nutrition.Name)
	assert.Equal(t, "per serving 15g", got.Nutrition.Heading)

	text, isErr = call(t, tools.handleLookupBarcode, map[string]interface{}{"barcode": "000"})
	assert.True(t, isErr)
	assert.Contains(t, text, "No product found")

	_, isErr = call(t, tools.handleLookupBarcode, map[string]interface{}{})
	assert.True(t, isErr)
}

func TestSearchProductsTool(t *testing.T) {
	tools, lookup, _ := newTestTools(t)
	lookup.search = openfoodfacts.SearchResults{
		Source: "v2", Count: 1, Page: 2, PageSize: 25,
		Products: []openfoodfacts.Product{openfoodfacts.UnrecognizedProduct{ProductInfo: openfoodfacts.ProductInfo{Name: "Rice"}}},
	}

	text, isErr := call(t, tools.handleSearchProducts, map[string]interface{}{"query": "rice", "page": float64(2)})
	require.False(t, isErr, text)
	assert.Equal(t, openfoodfacts.SearchOptions{Page: 2, PageSize: 25}, lookup.lastOpts)
	assert.Contains(t, text, `"variant":"unrecognized"`)
	assert.Contains(t, text, `"source":"v2"`)
}

func TestAddEntryAndGetDiaryTools(t *testing.T) {
	tools, _, store := newTestTools(t)

	text, isErr := call(t, tools.handleAddEntry, map[string]interface{}{"meal": "breakfast", "barcode": "3017620422003"})
	require.False(t, isErr, text)
	var added diary.FoodEntry
	require.NoError(t, json.Unmarshal([]byte(text), &added))
	assert.Equal(t, 1, added.ID)
	assert.Equal(t, "15g", added.ServingSize)

	text, isErr = call(t, tools.handleAddEntry, map[string]interface{}{
		"meal": "snacks", "food_name": "Apple", "calories": float64(95), "carbs": float64(25),
	})
	require.False(t, isErr, text)

	entries := store.GetEntries(context.Background(), today)
	require.Len(t, entries, 2)
	assert.Equal(t, diary.MealSnack, entries[1].MealType)
	assert.Equal(t, 95.0, entries[1].Calories)

	text, isErr = call(t, tools.handleGetDiary, map[string]interface{}{"date": "2024-03-09"})
	require.False(t, isErr, text)
	var view diaryView
	require.NoError(t, json.Unmarshal([]byte(text), &view))
	assert.Equal(t, "2024-03-09", view.Date)
	assert.Equal(t, "Today", view.Label)
	assert.Equal(t, 625.0, view.TotalCalories)
	require.Len(t, view.Sections, 4)
	assert.Equal(t, "Breakfast", view.Sections[0].Title)
	assert.Len(t, view.Sections[0].Entries, 1)
	assert.Len(t, view.Sections[1].Entries, 0)
}

func TestAddEntryToolErrors(t *testing.T) {
	tools, _, _ := newTestTools(t)
	for name, args := range map[string]map[string]interface{}{
		"BadMeal":        {"meal": "brunch", "food_name": "Eggs"},
		"BadDate":        {"meal": "lunch", "food_name": "Eggs", "date": "09/03/2024"},
		"NoFood":         {"meal": "lunch"},
		"UnknownBarcode": {"meal": "lunch", "barcode": "000"},
	} {
		t.Run(name, func(t *testing.T) {
			_, isErr := call(t, tools.handleAddEntry, args)
			assert.True(t, isErr)
		})
	}
}

func TestListDaysAndResetTools(t *testing.T) {
	tools, _, store := newTestTools(t)
	ctx := context.Background()
	require.NoError(t, store.SaveEntries(ctx, today, []diary.FoodEntry{{ID: 1, FoodName: "Tea", MealType: diary.MealBreakfast}}))
	require.NoError(t, store.SaveEntries(ctx, today.AddDate(0, 0, -1), []diary.FoodEntry{{ID: 1, FoodName: "Toast", MealType: diary.MealBreakfast}}))

	text, isErr := call(t, tools.handleListDays, nil)
	require.False(t, isErr)
	assert.JSONEq(t, `["2024-03-08","2024-03-09"]`, text)

	_, isErr = call(t, tools.handleResetDiary, map[string]interface{}{"confirm": false})
	assert.True(t, isErr)

	text, isErr = call(t, tools.handleResetDiary, map[string]interface{}{"confirm": true})
	require.False(t, isErr)
	assert.Equal(t, "Deleted 2 diary day(s).", text)
	assert.Empty(t, store.GetEntries(ctx, today))
}
