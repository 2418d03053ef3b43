package diary

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// EntryStore is the persistence capability the Controller needs.
type EntryStore interface {
	GetEntries(ctx context.Context, day time.Time) []FoodEntry
	Update(ctx context.Context, day time.Time, fn func([]FoodEntry) ([]FoodEntry, error)) error
}

// Controller holds the currently viewed day and its meal sections. The sections
// are a derived copy: every mutation goes through the store and is followed by
// a reload.
type Controller struct {
	store    EntryStore
	log      *zap.SugaredLogger
	now      func() time.Time
	day      time.Time
	sections []MealSection
	total    float64
}

// NewController starts on day without loading it; call Reload to populate.
func NewController(store EntryStore, day time.Time, log *zap.SugaredLogger) *Controller {
	return &Controller{
		store:    store,
		log:      log,
		now:      time.Now,
		day:      day,
		sections: GroupByMeal(nil),
	}
}

func (c *Controller) Day() time.Time { return c.day }

// Sections returns the four meal sections for the current day.
func (c *Controller) Sections() []MealSection {
	out := make([]MealSection, len(c.sections))
	copy(out, c.sections)
	return out
}

func (c *Controller) Section(meal MealType) MealSection {
	for _, s := range c.sections {
		if s.MealType == meal {
			return s
		}
	}
	return MealSection{Title: meal.Title(), MealType: meal, Entries: []FoodEntry{}}
}

func (c *Controller) TotalCalories() float64 { return c.total }

// Reload re-reads the current day and regroups it. Called on day change and on regaining focus.
func (c *Controller) Reload(ctx context.Context) {
	entries := c.store.GetEntries(ctx, c.day)
	c.sections = GroupByMeal(entries)
	c.total = TotalCalories(entries)
}

func (c *Controller) GoToDay(ctx context.Context, day time.Time) {
	c.day = day
	c.Reload(ctx)
}

func (c *Controller) NextDay(ctx context.Context) {
	c.GoToDay(ctx, c.day.AddDate(0, 0, 1))
}

func (c *Controller) PreviousDay(ctx context.Context) {
	c.GoToDay(ctx, c.day.AddDate(0, 0, -1))
}

// AddEntry appends entry to the meal's section with the section's next id,
// persists the whole day and reloads. The returned entry carries the assigned id.
func (c *Controller) AddEntry(ctx context.Context, meal MealType, entry FoodEntry) (FoodEntry, error) {
	meal, err := ParseMealType(string(meal))
	if err != nil {
		return FoodEntry{}, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	entry.MealType = meal
	if entry.Timestamp == "" {
		entry.Timestamp = c.now().Format(time.RFC3339)
	}

	err = c.store.Update(ctx, c.day, func(current []FoodEntry) ([]FoodEntry, error) {
		sections := GroupByMeal(current)
		for i := range sections {
			if sections[i].MealType == meal {
				entry.ID = sections[i].NextID()
				sections[i].Entries = append(sections[i].Entries, entry)
			}
		}
		// Entries this build cannot place are written back untouched.
		return append(Flatten(sections), Unrecognized(current)...), nil
	})
	if err != nil {
		c.log.Errorw("error saving diary entry", "day", DayKey(c.day), "meal", meal, "error", err)
		return FoodEntry{}, err
	}

	c.Reload(ctx)
	return entry, nil
}

// DateLabel names the current day relative to today, e.g. "Today" or "Monday, Mar 4".
func (c *Controller) DateLabel(today time.Time) string {
	switch DayKey(c.day) {
	case DayKey(today):
		return "Today"
	case DayKey(today.AddDate(0, 0, -1)):
		return "Yesterday"
	case DayKey(today.AddDate(0, 0, 1)):
		return "Tomorrow"
	}
	return c.day.Format("Monday, Jan 2")
}

// FullDateLabel is the long form, e.g. "March 4, 2024".
func (c *Controller) FullDateLabel() string {
	return c.day.Format("January 2, 2006")
}
