package diary

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unowned-ai/foodtracker/pkg/kv"
)

func newTestController(t *testing.T, day time.Time) (*Controller, *Store) {
	t.Helper()
	store := NewStore(kv.NewMemoryStore(), zap.NewNop().Sugar())
	c := NewController(store, day, zap.NewNop().Sugar())
	c.now = func() time.Time { return time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC) }
	c.Reload(context.Background())
	return c, store
}

func TestMealSectionHelpers(t *testing.T) {
	empty := MealSection{Title: "Breakfast", MealType: MealBreakfast}
	assert.Equal(t, 1, empty.NextID())
	assert.Equal(t, "Add breakfast", empty.AddLabel())
	assert.Zero(t, empty.Calories())

	filled := MealSection{Title: "Snacks", MealType: MealSnack, Entries: []FoodEntry{
		{ID: 4, Calories: 100}, {ID: 2, Calories: 50.5}, {ID: 7, Calories: 1},
	}}
	assert.Equal(t, 8, filled.NextID())
	assert.Equal(t, "Add more", filled.AddLabel())
	assert.InDelta(t, 151.5, filled.Calories(), 1e-9)
}

func TestGroupByMealAndFlatten(t *testing.T) {
	entries := []FoodEntry{
		{ID: 1, FoodName: "Toast", MealType: MealBreakfast},
		{ID: 1, FoodName: "Crisps", MealType: MealSnack},
		{ID: 2, FoodName: "Eggs", MealType: MealBreakfast},
		{ID: 1, FoodName: "Pasta", MealType: MealDinner},
	}
	sections := GroupByMeal(entries)
	require.Len(t, sections, 4)

	titles := []string{}
	for _, s := range sections {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"Breakfast", "Lunch", "Dinner", "Snacks"}, titles)
	assert.Len(t, sections[0].Entries, 2)
	assert.Equal(t, "Toast", sections[0].Entries[0].FoodName)
	assert.Empty(t, sections[1].Entries)

	flat := Flatten(sections)
	names := []string{}
	for _, e := range flat {
		names = append(names, e.FoodName)
	}
	assert.Equal(t, []string{"Toast", "Eggs", "Pasta", "Crisps"}, names)
}

func TestParseMealType(t *testing.T) {
	for input, want := range map[string]MealType{
		"breakfast": MealBreakfast, "Lunch": MealLunch, " DINNER ": MealDinner, "snacks": MealSnack,
	} {
		got, err := ParseMealType(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}
	_, err := ParseMealType("brunch")
	assert.Error(t, err)
}

func TestControllerAddEntryAssignsSectionIDs(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 3, 4, 13, 0, 0, 0, time.UTC)
	c, store := newTestController(t, day)

	first, err := c.AddEntry(ctx, MealLunch, FoodEntry{FoodName: "Salad", Calories: 150})
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, MealLunch, first.MealType)
	assert.Equal(t, "2024-03-04T08:00:00Z", first.Timestamp)

	second, err := c.AddEntry(ctx, MealLunch, FoodEntry{FoodName: "Bread", Calories: 80})
	require.NoError(t, err)
	assert.Equal(t, 2, second.ID)

	// Ids are per section, so another meal starts again at 1.
	snack, err := c.AddEntry(ctx, MealSnack, FoodEntry{FoodName: "Nutella", Calories: 530, MealType: MealBreakfast})
	require.NoError(t, err)
	assert.Equal(t, 1, snack.ID)
	assert.Equal(t, MealSnack, snack.MealType)

	lunch := c.Section(MealLunch)
	require.Len(t, lunch.Entries, 2)
	assert.Equal(t, "Add more", lunch.AddLabel())
	assert.Equal(t, "Add breakfast", c.Section(MealBreakfast).AddLabel())
	assert.InDelta(t, 760, c.TotalCalories(), 1e-9)

	stored := store.GetEntries(ctx, day)
	require.Len(t, stored, 3)
	assert.Equal(t, "Salad", stored[0].FoodName)
	assert.Equal(t, "Nutella", stored[2].FoodName)
}

func TestControllerAddEntryUsesHighestSectionID(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 3, 4, 13, 0, 0, 0, time.UTC)
	c, store := newTestController(t, day)

	require.NoError(t, store.SaveEntries(ctx, day, []FoodEntry{
		{ID: 5, FoodName: "Oats", MealType: MealBreakfast},
		{ID: 9, FoodName: "Steak", MealType: MealDinner},
		{ID: 2, FoodName: "Juice", MealType: MealBreakfast},
	}))
	c.Reload(ctx)

	added, err := c.AddEntry(ctx, MealBreakfast, FoodEntry{FoodName: "Coffee", Calories: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, added.ID)
}

func TestControllerAddEntryKeepsUnrecognizedMeals(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 3, 4, 13, 0, 0, 0, time.UTC)
	nop := zap.NewNop().Sugar()

	kvs := kv.NewMemoryStore()
	require.NoError(t, kvs.Set(ctx, storageKey(day), `[
		{"id":1,"foodName":"Pancakes","calories":350,"mealType":"brunch"},
		{"id":1,"foodName":"Oats","calories":150,"mealType":"breakfast"}
	]`))
	store := NewStore(kvs, nop)
	c := NewController(store, day, nop)
	c.Reload(ctx)
	assert.InDelta(t, 150, c.TotalCalories(), 1e-9)

	added, err := c.AddEntry(ctx, MealBreakfast, FoodEntry{FoodName: "Coffee", Calories: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, added.ID)

	stored := store.GetEntries(ctx, day)
	require.Len(t, stored, 3)
	assert.Equal(t, "Oats", stored[0].FoodName)
	assert.Equal(t, "Coffee", stored[1].FoodName)
	assert.Equal(t, "Pancakes", stored[2].FoodName)
	assert.Equal(t, MealType("brunch"), stored[2].MealType)
	assert.Equal(t, []FoodEntry{stored[2]}, Unrecognized(stored))

	// New entries are still validated.
	err = store.SaveEntries(ctx, day, []FoodEntry{{FoodName: "Waffles", MealType: "brunch"}})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestControllerRejectsUnknownMeal(t *testing.T) {
	c, store := newTestController(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	_, err := c.AddEntry(context.Background(), "brunch", FoodEntry{FoodName: "Waffles"})
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.Empty(t, store.GetEntries(context.Background(), c.Day()))
}

func TestControllerSaveFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := NewStore(failingKV{}, zap.NewNop().Sugar())
	c := NewController(store, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), zap.NewNop().Sugar())

	_, err := c.AddEntry(ctx, MealDinner, FoodEntry{FoodName: "Curry", Calories: 600})
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Empty(t, c.Section(MealDinner).Entries)
	assert.Zero(t, c.TotalCalories())
}

func TestControllerDayNavigation(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	c, store := newTestController(t, today)

	require.NoError(t, store.SaveEntries(ctx, today.AddDate(0, 0, -1), []FoodEntry{
		{ID: 1, FoodName: "Pizza", Calories: 800, MealType: MealDinner},
	}))

	assert.Equal(t, "Today", c.DateLabel(today))
	assert.Equal(t, "March 4, 2024", c.FullDateLabel())
	assert.Zero(t, c.TotalCalories())

	c.PreviousDay(ctx)
	assert.Equal(t, "Yesterday", c.DateLabel(today))
	assert.InDelta(t, 800, c.TotalCalories(), 1e-9)
	assert.Len(t, c.Section(MealDinner).Entries, 1)

	c.NextDay(ctx)
	c.NextDay(ctx)
	assert.Equal(t, "Tomorrow", c.DateLabel(today))
	assert.Zero(t, c.TotalCalories())

	c.GoToDay(ctx, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "Monday, Mar 11", c.DateLabel(today))
}
