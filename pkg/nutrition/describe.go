package nutrition

import (
	"fmt"

	"github.com/unowned-ai/foodtracker/pkg/openfoodfacts"
)

// Row is one line of a nutrition panel. Present is false when the source did
// not report the value.
type Row struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Unit    string  `json:"unit"`
	Present bool    `json:"present"`
}

func (r Row) String() string {
	if !r.Present {
		return fmt.Sprintf("%s: n/a", r.Label)
	}
	return fmt.Sprintf("%s: %s %s", r.Label, FormatAmount(r.Value), r.Unit)
}

// NutritionInfo is what a scan or search result overlay shows before the
// product is added.
type NutritionInfo struct {
	Name    string `json:"name"`
	Brands  string `json:"brands,omitempty"`
	Code    string `json:"code,omitempty"`
	Heading string `json:"heading"`
	Rows    []Row  `json:"rows"`
}

// Describe builds the display panel for p, using the same tier Normalize would.
func Describe(p openfoodfacts.Product) NutritionInfo {
	info := p.Info()
	out := NutritionInfo{
		Name:   DisplayName(info),
		Brands: info.Brands,
		Code:   info.Code,
	}

	var n openfoodfacts.Nutrients
	switch v := p.(type) {
	case openfoodfacts.PerServingProduct:
		n = v.Serving
		out.Heading = "per serving"
		if size := servingSize(info); size != "" {
			out.Heading += " " + size
		}
	case openfoodfacts.Per100gProduct:
		n = v.Per100g
		out.Heading = "per 100g"
	default:
		out.Heading = "no nutrition data"
		return out
	}

	out.Rows = []Row{
		row("Calories", n.EnergyKcal, "kcal"),
		row("Fat", n.Fat, "g"),
		row("Carbs", n.Carbohydrates, "g"),
		row("Protein", n.Proteins, "g"),
		row("Sugars", n.Sugars, "g"),
	}
	return out
}

func row(label string, v *float64, unit string) Row {
	r := Row{Label: label, Unit: unit}
	if v != nil {
		r.Value, r.Present = *v, true
	}
	return r
}
