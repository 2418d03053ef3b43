package openfoodfacts

import (
	"encoding/json"
	"fmt"
)

// Product is one decoded product record. It is exactly one of
// PerServingProduct, Per100gProduct or UnrecognizedProduct.
type Product interface {
	Info() ProductInfo
	isProduct()
}

// ProductInfo holds the descriptive fields every variant carries.
type ProductInfo struct {
	Code                string   `json:"code"`
	Name                string   `json:"product_name,omitempty"`
	GenericName         string   `json:"generic_name,omitempty"`
	Brands              string   `json:"brands,omitempty"`
	Quantity            string   `json:"quantity,omitempty"`
	ServingQuantity     *float64 `json:"serving_quantity,omitempty"`
	ServingQuantityUnit string   `json:"serving_quantity_unit,omitempty"`
	ServingSize         string   `json:"serving_size,omitempty"`
	PreparedPer         string   `json:"nutrition_data_prepared_per,omitempty"`
}

// Nutrients is one tier of macro values. Nil means the source did not report it.
type Nutrients struct {
	EnergyKcal    *float64 `json:"energy_kcal,omitempty"`
	Proteins      *float64 `json:"proteins,omitempty"`
	Carbohydrates *float64 `json:"carbohydrates,omitempty"`
	Fat           *float64 `json:"fat,omitempty"`
	Sugars        *float64 `json:"sugars,omitempty"`
}

func (n Nutrients) empty() bool {
	return n.EnergyKcal == nil && n.Proteins == nil && n.Carbohydrates == nil && n.Fat == nil && n.Sugars == nil
}

// PerServingProduct reports a positive per-serving energy value.
type PerServingProduct struct {
	ProductInfo
	Serving Nutrients `json:"serving"`
}

// Per100gProduct has no per-serving energy but reports at least one per-100g value.
type Per100gProduct struct {
	ProductInfo
	Per100g Nutrients `json:"per_100g"`
}

// UnrecognizedProduct reports neither tier.
type UnrecognizedProduct struct {
	ProductInfo
}

func (p PerServingProduct) Info() ProductInfo   { return p.ProductInfo }
func (p Per100gProduct) Info() ProductInfo      { return p.ProductInfo }
func (p UnrecognizedProduct) Info() ProductInfo { return p.ProductInfo }

func (PerServingProduct) isProduct()   {}
func (Per100gProduct) isProduct()      {}
func (UnrecognizedProduct) isProduct() {}

type rawNutriments struct {
	EnergyKcalServing    flexFloat `json:"energy-kcal_serving"`
	ProteinsServing      flexFloat `json:"proteins_serving"`
	CarbohydratesServing flexFloat `json:"carbohydrates_serving"`
	FatServing           flexFloat `json:"fat_serving"`
	SugarsServing        flexFloat `json:"sugars_serving"`

	EnergyKcal100g    flexFloat `json:"energy-kcal_100g"`
	Proteins100g      flexFloat `json:"proteins_100g"`
	Carbohydrates100g flexFloat `json:"carbohydrates_100g"`
	Fat100g           flexFloat `json:"fat_100g"`
	Sugars100g        flexFloat `json:"sugars_100g"`
}

type rawProduct struct {
	Code                flexString     `json:"code"`
	ProductName         flexString     `json:"product_name"`
	GenericName         flexString     `json:"generic_name"`
	Brands              flexString     `json:"brands"`
	Quantity            flexString     `json:"quantity"`
	ServingQuantity     flexFloat      `json:"serving_quantity"`
	ServingQuantityUnit flexString     `json:"serving_quantity_unit"`
	ServingSize         flexString     `json:"serving_size"`
	PreparedPer         flexString     `json:"nutrition_data_prepared_per"`
	Nutriments          *rawNutriments `json:"nutriments"`
}

// DecodeProduct decodes a raw product object and picks its variant.
func DecodeProduct(data []byte) (Product, error) {
	var raw rawProduct
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: product: %v", ErrMalformedResponse, err)
	}

	info := ProductInfo{
		Code:                string(raw.Code),
		Name:                string(raw.ProductName),
		GenericName:         string(raw.GenericName),
		Brands:              string(raw.Brands),
		Quantity:            string(raw.Quantity),
		ServingQuantity:     raw.ServingQuantity.ptr(),
		ServingQuantityUnit: string(raw.ServingQuantityUnit),
		ServingSize:         string(raw.ServingSize),
		PreparedPer:         string(raw.PreparedPer),
	}
	if raw.Nutriments == nil {
		return UnrecognizedProduct{ProductInfo: info}, nil
	}
	n := raw.Nutriments

	if n.EnergyKcalServing.Valid && n.EnergyKcalServing.Value > 0 {
		return PerServingProduct{
			ProductInfo: info,
			Serving: Nutrients{
				EnergyKcal:    n.EnergyKcalServing.ptr(),
				Proteins:      n.ProteinsServing.ptr(),
				Carbohydrates: n.CarbohydratesServing.ptr(),
				Fat:           n.FatServing.ptr(),
				Sugars:        n.SugarsServing.ptr(),
			},
		}, nil
	}

	per100g := Nutrients{
		EnergyKcal:    n.EnergyKcal100g.ptr(),
		Proteins:      n.Proteins100g.ptr(),
		Carbohydrates: n.Carbohydrates100g.ptr(),
		Fat:           n.Fat100g.ptr(),
		Sugars:        n.Sugars100g.ptr(),
	}
	if per100g.empty() {
		return UnrecognizedProduct{ProductInfo: info}, nil
	}
	return Per100gProduct{ProductInfo: info, Per100g: per100g}, nil
}
