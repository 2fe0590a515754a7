package domain

import (
	"strings"
	"time"
)

// ProductQuery identifies the packaged-food product to verify.
type ProductQuery struct {
	Barcode string `json:"barcode,omitempty" validate:"omitempty,numeric,min=8,max=14"`
	Brand   string `json:"brand,omitempty" validate:"max=120"`
	Name    string `json:"name" validate:"required,max=200"`
}

// DisplayName returns "Brand Name", or just the name when no brand is known.
func (q ProductQuery) DisplayName() string {
	if q.Brand == "" {
		return q.Name
	}
	if strings.Contains(strings.ToLower(q.Name), strings.ToLower(q.Brand)) {
		return q.Name
	}
	return q.Brand + " " + q.Name
}

// DiscoveryMethod records how a candidate URL was found
type DiscoveryMethod string

const (
	DiscoverySearchAPI       DiscoveryMethod = "search-api"
	DiscoveryReasoningSearch DiscoveryMethod = "reasoning-search"
)

// Retailer is a place the locator looks for product pages.
// An empty Domain means the general web.
type Retailer struct {
	Name   string `json:"name" mapstructure:"name"`
	Domain string `json:"domain,omitempty" mapstructure:"domain"`
}

// GeneralWeb is the catch-all retailer with no domain restriction
var GeneralWeb = Retailer{Name: "general web"}

// SearchHit is a raw result from a SearchProvider before the locator filters it
type SearchHit struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// CandidateURL is a product page the locator believes is worth fetching
type CandidateURL struct {
	Domain          string          `json:"domain"`
	URL             string          `json:"url"`
	DiscoveryMethod DiscoveryMethod `json:"discoveryMethod"`
	TitleGuess      string          `json:"titleGuess"`
	Retailer        string          `json:"retailer"`
}

// RawPage is the fetched content of a candidate URL. It is only used as
// ground truth for extraction and validation and is never persisted.
type RawPage struct {
	URL        string
	FetchedAt  time.Time
	Content    string
	Title      string
	StatusCode int
}
