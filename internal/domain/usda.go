package domain

// USDAFood represents a branded food item from the USDA FoodData Central API
type USDAFood struct {
	FdcID                    int    `json:"fdcId"`
	Description              string `json:"description"`
	DataType                 string `json:"dataType"`
	BrandOwner               string `json:"brandOwner,omitempty"`
	BrandName                string `json:"brandName,omitempty"`
	GtinUpc                  string `json:"gtinUpc,omitempty"`
	Ingredients              string `json:"ingredients,omitempty"`
	BrandedFoodCategory      string `json:"brandedFoodCategory,omitempty"`
	PublishedDate            string `json:"publishedDate,omitempty"`
	PackageWeight            string `json:"packageWeight,omitempty"`
	MarketCountry            string `json:"marketCountry,omitempty"`
	HouseholdServingFullText string `json:"householdServingFullText,omitempty"`
}

// USDASearchResponse represents the response from USDA search API
type USDASearchResponse struct {
	Foods       []USDAFood `json:"foods"`
	TotalHits   int        `json:"totalHits"`
	CurrentPage int        `json:"currentPage"`
	TotalPages  int        `json:"totalPages"`
}
