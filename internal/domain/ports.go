package domain

import "context"

// PageFetcher retrieves the raw content of a product page
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*RawPage, error)
}

// SearchProvider finds pages for a product, optionally restricted to one retailer
type SearchProvider interface {
	Search(ctx context.Context, query string, retailer Retailer) ([]SearchHit, error)
	Method() DiscoveryMethod
}

// ExtractionRequest is the bounded excerpt handed to a TextExtractionService
type ExtractionRequest struct {
	Product ProductQuery
	URL     string
	Title   string
	Excerpt string
}

// AssistedExtraction is the untrusted structured answer of a TextExtractionService.
// Nothing in it is used until the extraction validator has checked it against the page.
type AssistedExtraction struct {
	ProductTitle               string                  `json:"productTitle"`
	IngredientsText            string                  `json:"ingredients"`
	ExplicitAllergenStatement  string                  `json:"allergenStatement"`
	CrossContaminationWarnings []string                `json:"crossContaminationWarnings"`
	Allergens                  []string                `json:"allergens"`
	DietaryCompliance          map[Diet]DietCompliance `json:"dietaryCompliance"`
}

// TextExtractionService pulls an ingredient list out of a page excerpt
type TextExtractionService interface {
	ExtractIngredients(ctx context.Context, req ExtractionRequest) (*AssistedExtraction, error)
}

// Adjudicator decides whether two ingredient lists describe the same formulation
type Adjudicator interface {
	SameFormulation(ctx context.Context, reference, candidate Source) (bool, error)
}

// DatabaseSource looks up an independently curated ingredient list by barcode
type DatabaseSource interface {
	LookupByBarcode(ctx context.Context, barcode string) (*Source, error)
}

// EventSink receives the ordered progress stream of a verification
type EventSink interface {
	Emit(event ProgressEvent)
}
