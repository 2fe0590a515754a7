package domain

import "strings"

// Allergen is one of the nine major food allergens
type Allergen string

const (
	AllergenMilk      Allergen = "milk"
	AllergenEggs      Allergen = "eggs"
	AllergenFish      Allergen = "fish"
	AllergenShellfish Allergen = "shellfish"
	AllergenTreeNuts  Allergen = "tree nuts"
	AllergenPeanuts   Allergen = "peanuts"
	AllergenWheat     Allergen = "wheat"
	AllergenSoy       Allergen = "soy"
	AllergenSesame    Allergen = "sesame"
)

// MajorAllergens lists the nine majors in label order
var MajorAllergens = []Allergen{
	AllergenMilk, AllergenEggs, AllergenFish, AllergenShellfish, AllergenTreeNuts,
	AllergenPeanuts, AllergenWheat, AllergenSoy, AllergenSesame,
}

var allergenAliases = map[string]Allergen{
	"milk":                 AllergenMilk,
	"dairy":                AllergenMilk,
	"egg":                  AllergenEggs,
	"eggs":                 AllergenEggs,
	"fish":                 AllergenFish,
	"shellfish":            AllergenShellfish,
	"crustacean":           AllergenShellfish,
	"crustaceans":          AllergenShellfish,
	"crustacean shellfish": AllergenShellfish,
	"tree nut":             AllergenTreeNuts,
	"tree nuts":            AllergenTreeNuts,
	"treenuts":             AllergenTreeNuts,
	"peanut":               AllergenPeanuts,
	"peanuts":              AllergenPeanuts,
	"wheat":                AllergenWheat,
	"soy":                  AllergenSoy,
	"soya":                 AllergenSoy,
	"soybean":              AllergenSoy,
	"soybeans":             AllergenSoy,
	"sesame":               AllergenSesame,
	"sesame seed":          AllergenSesame,
	"sesame seeds":         AllergenSesame,
}

// ParseAllergen maps a label such as "Dairy" or "Tree Nut" to a major allergen.
// The second return value is false for anything outside the nine majors.
func ParseAllergen(label string) (Allergen, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.Trim(key, ".;:()")
	a, ok := allergenAliases[key]
	return a, ok
}

// Diet is a dietary regime the inferencer judges compliance for
type Diet string

const (
	DietVegan       Diet = "vegan"
	DietVegetarian  Diet = "vegetarian"
	DietPescatarian Diet = "pescatarian"
	DietGlutenFree  Diet = "gluten-free"
)

// SupportedDiets lists every diet the inferencer evaluates
var SupportedDiets = []Diet{DietVegan, DietVegetarian, DietPescatarian, DietGlutenFree}

// ParseDiet maps a free-form diet label to a supported Diet
func ParseDiet(label string) (Diet, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.ReplaceAll(key, "_", "-")
	key = strings.ReplaceAll(key, " ", "-")
	switch key {
	case "vegan":
		return DietVegan, true
	case "vegetarian":
		return DietVegetarian, true
	case "pescatarian", "pescetarian":
		return DietPescatarian, true
	case "gluten-free", "glutenfree":
		return DietGlutenFree, true
	}
	return "", false
}
