package diary

import (
	"fmt"
	"slices"
	"strings"
)

// MealType is the meal a FoodEntry was logged under. It never changes after creation.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// MealTypes lists meals in display order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack}

// ParseMealType accepts a meal name case-insensitively ("snacks" is accepted for snack).
func ParseMealType(s string) (MealType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "breakfast":
		return MealBreakfast, nil
	case "lunch":
		return MealLunch, nil
	case "dinner":
		return MealDinner, nil
	case "snack", "snacks":
		return MealSnack, nil
	}
	return "", fmt.Errorf("unknown meal type %q (want breakfast, lunch, dinner or snack)", s)
}

// Valid reports whether m is exactly one of MealTypes.
func (m MealType) Valid() bool {
	return slices.Contains(MealTypes, m)
}

// Title is the section heading for the meal.
func (m MealType) Title() string {
	switch m {
	case MealBreakfast:
		return "Breakfast"
	case MealLunch:
		return "Lunch"
	case MealDinner:
		return "Dinner"
	case MealSnack:
		return "Snacks"
	}
	return string(m)
}

// FoodEntry is one recorded consumption event.
type FoodEntry struct {
	ID          int      `json:"id" validate:"gte=0"`
	FoodName    string   `json:"foodName" validate:"required"`
	Calories    float64  `json:"calories" validate:"gte=0"`
	Protein     float64  `json:"protein" validate:"gte=0"`
	Carbs       float64  `json:"carbs" validate:"gte=0"`
	Fat         float64  `json:"fat" validate:"gte=0"`
	ServingSize string   `json:"servingSize"`
	MealType    MealType `json:"mealType" validate:"oneof=breakfast lunch dinner snack"`
	Timestamp   string   `json:"timestamp,omitempty"`
}

// DailyDiary is the persisted unit: one calendar day and its flat entry list.
type DailyDiary struct {
	Date    string      `json:"date"`
	Entries []FoodEntry `json:"entries"`
}

// MealSection groups a day's entries for one meal. It is derived on read and never stored.
type MealSection struct {
	Title    string      `json:"title"`
	MealType MealType    `json:"mealType"`
	Entries  []FoodEntry `json:"entries"`
}

func (s MealSection) Calories() float64 {
	var total float64
	for _, e := range s.Entries {
		total += e.Calories
	}
	return total
}

// NextID is one more than the highest id in the section, or 1 when it is empty.
func (s MealSection) NextID() int {
	highest := 0
	for _, e := range s.Entries {
		if e.ID > highest {
			highest = e.ID
		}
	}
	return highest + 1
}

// AddLabel is the add affordance shown under the section.
func (s MealSection) AddLabel() string {
	if len(s.Entries) == 0 {
		return "Add " + strings.ToLower(s.Title)
	}
	return "Add more"
}

// GroupByMeal splits entries into the four fixed sections, keeping stored order
// within each. Entries with an unrecognised meal type are left out; see Unrecognized.
func GroupByMeal(entries []FoodEntry) []MealSection {
	sections := make([]MealSection, len(MealTypes))
	index := make(map[MealType]int, len(MealTypes))
	for i, m := range MealTypes {
		sections[i] = MealSection{Title: m.Title(), MealType: m, Entries: []FoodEntry{}}
		index[m] = i
	}
	for _, e := range entries {
		if i, ok := index[e.MealType]; ok {
			sections[i].Entries = append(sections[i].Entries, e)
		}
	}
	return sections
}

// Flatten joins sections back into one ordered list, section by section.
func Flatten(sections []MealSection) []FoodEntry {
	entries := []FoodEntry{}
	for _, s := range sections {
		entries = append(entries, s.Entries...)
	}
	return entries
}

// Unrecognized returns the entries GroupByMeal leaves out, in stored order.
func Unrecognized(entries []FoodEntry) []FoodEntry {
	var out []FoodEntry
	for _, e := range entries {
		if !e.MealType.Valid() {
			out = append(out, e)
		}
	}
	return out
}

// TotalCalories sums calories across entries.
func TotalCalories(entries []FoodEntry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Calories
	}
	return total
}
