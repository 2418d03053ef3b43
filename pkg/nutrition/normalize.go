// Package nutrition turns decoded Open Food Facts products into diary entries.
package nutrition

import (
	"strconv"
	"strings"

	"github.com/unowned-ai/foodtracker/pkg/diary"
	"github.com/unowned-ai/foodtracker/pkg/openfoodfacts"
)

// UnknownProductName is used when a product carries neither a name nor brands.
const UnknownProductName = "Unknown Product"

// Normalize maps a product onto a FoodEntry for meal. Per-serving values win
// when the product has them; otherwise per-100g values are used. Tiers are
// never mixed and missing values become 0. The id is left for the diary to assign.
func Normalize(p openfoodfacts.Product, meal diary.MealType) diary.FoodEntry {
	info := p.Info()
	entry := diary.FoodEntry{
		FoodName: DisplayName(info),
		MealType: meal,
	}

	switch v := p.(type) {
	case openfoodfacts.PerServingProduct:
		applyNutrients(&entry, v.Serving)
		entry.ServingSize = servingSize(info)
	case openfoodfacts.Per100gProduct:
		applyNutrients(&entry, v.Per100g)
		entry.ServingSize = info.PreparedPer
	default:
		entry.ServingSize = info.PreparedPer
	}
	return entry
}

// DisplayName picks the product name, then the brands, then a placeholder.
func DisplayName(info openfoodfacts.ProductInfo) string {
	if name := strings.TrimSpace(info.Name); name != "" {
		return name
	}
	if brands := strings.TrimSpace(info.Brands); brands != "" {
		return brands
	}
	return UnknownProductName
}

func applyNutrients(entry *diary.FoodEntry, n openfoodfacts.Nutrients) {
	entry.Calories = valueOrZero(n.EnergyKcal)
	entry.Protein = valueOrZero(n.Proteins)
	entry.Carbs = valueOrZero(n.Carbohydrates)
	entry.Fat = valueOrZero(n.Fat)
}

// servingSize renders the serving quantity without trailing zeros followed by
// its unit, e.g. "15g". Without a quantity the free-text serving size is used.
func servingSize(info openfoodfacts.ProductInfo) string {
	if info.ServingQuantity == nil {
		return info.ServingSize
	}
	return FormatAmount(*info.ServingQuantity) + info.ServingQuantityUnit
}

// FormatAmount prints v with as few digits as needed ("15", "2.5").
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
