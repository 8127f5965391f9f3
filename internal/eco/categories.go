package eco

// WasteCategory defines EcoPoints, weight and CO₂ per item of a waste type.
type WasteCategory struct {
	Code     string  `json:"code"`
	EP       int     `json:"ep"`
	WeightKg float64 `json:"weight_kg"`
	CO2Kg    float64 `json:"co2_kg"`
}

// DefaultCategoryCode is the fallback for codes missing from the table.
// Unknown codes must not silently drop their items; mixed_waste is the
// catch-all row with middle-of-the-road coefficients.
const DefaultCategoryCode = "mixed_waste"

// WasteCategories is the process-wide constant lookup table. Loaded once,
// never mutated.
var WasteCategories = map[string]WasteCategory{
	"plastic_pet_1":   {Code: "plastic_pet_1", EP: 1, WeightKg: 0.025, CO2Kg: 0.082},
	"plastic_hdpe_2":  {Code: "plastic_hdpe_2", EP: 2, WeightKg: 0.04, CO2Kg: 0.06},
	"plastic_pvc_3":   {Code: "plastic_pvc_3", EP: 3, WeightKg: 0.05, CO2Kg: 0.08},
	"plastic_ldpe_4":  {Code: "plastic_ldpe_4", EP: 2, WeightKg: 0.008, CO2Kg: 0.033},
	"plastic_pp_5":    {Code: "plastic_pp_5", EP: 2, WeightKg: 0.02, CO2Kg: 0.04},
	"plastic_ps_6":    {Code: "plastic_ps_6", EP: 3, WeightKg: 0.01, CO2Kg: 0.06},
	"plastic_other_7": {Code: "plastic_other_7", EP: 3, WeightKg: 0.03, CO2Kg: 0.07},
	"plastic_bag":     {Code: "plastic_bag", EP: 3, WeightKg: 0.008, CO2Kg: 0.033},
	"paper_cardboard": {Code: "paper_cardboard", EP: 1, WeightKg: 0.01, CO2Kg: 0.025},
	"metal_waste":     {Code: "metal_waste", EP: 4, WeightKg: 0.015, CO2Kg: 0.042},
	"glass_waste":     {Code: "glass_waste", EP: 4, WeightKg: 0.35, CO2Kg: 0.06},
	"food_waste":      {Code: "food_waste", EP: 1, WeightKg: 0.05, CO2Kg: 0.01},
	"cigarette_waste": {Code: "cigarette_waste", EP: 5, WeightKg: 0.001, CO2Kg: 0.014},
	"mixed_waste":     {Code: "mixed_waste", EP: 3, WeightKg: 0.05, CO2Kg: 0.05},
}

// CategoryByCode looks up a waste category, falling back to mixed_waste for
// unknown codes.
func CategoryByCode(code string) WasteCategory {
	if c, ok := WasteCategories[code]; ok {
		return c
	}
	return WasteCategories[DefaultCategoryCode]
}
