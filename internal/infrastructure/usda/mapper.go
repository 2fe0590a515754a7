package usda

import (
	"fmt"
	"strings"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

const (
	// SourceName labels USDA-backed sources in results
	SourceName = "USDA FoodData Central"
	// SourceDomain is the host USDA food detail pages live on
	SourceDomain = "fdc.nal.usda.gov"
	// databaseConfidence is below verbatim page extraction: USDA records lag label changes
	databaseConfidence = 85
)

// MapToSource converts a branded USDA record into a database source
func MapToSource(food *domain.USDAFood) *domain.Source {
	return &domain.Source{
		Name:             SourceName,
		URL:              fmt.Sprintf("https://%s/food-details/%d/details", SourceDomain, food.FdcID),
		Domain:           SourceDomain,
		ProductTitle:     productTitle(food),
		IngredientsText:  strings.TrimSpace(food.Ingredients),
		Confidence:       databaseConfidence,
		ExtractionMethod: domain.MethodDatabase,
		Validated:        true,
	}
}

// productTitle prefixes the description with the brand unless it already has it
func productTitle(food *domain.USDAFood) string {
	brand := food.BrandName
	if brand == "" {
		brand = food.BrandOwner
	}
	desc := strings.TrimSpace(food.Description)
	if brand == "" || strings.Contains(strings.ToLower(desc), strings.ToLower(brand)) {
		return desc
	}
	return strings.TrimSpace(brand + " " + desc)
}

// NormalizeGTIN strips everything but digits and leading zeros, so UPC-A,
// EAN-13 and GTIN-14 forms of the same code compare equal.
func NormalizeGTIN(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "0")
}
