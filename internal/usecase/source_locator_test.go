package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// MockSearchProvider is a mock implementation of domain.SearchProvider
type MockSearchProvider struct {
	mu      sync.Mutex
	hits    map[string][]domain.SearchHit // keyed by retailer name
	err     error
	queries []string
}

func (m *MockSearchProvider) Search(ctx context.Context, query string, retailer domain.Retailer) ([]domain.SearchHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return m.hits[retailer.Name], nil
}

func (m *MockSearchProvider) Method() domain.DiscoveryMethod {
	return domain.DiscoverySearchAPI
}

func TestIsSearchResultURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.amazon.com/s?k=cheez+it", true},
		{"https://www.walmart.com/search?q=cheez-it", true},
		{"https://www.target.com/s?searchTerm=cheez+it", true},
		{"https://example.com/products?q=crackers", true},
		{"https://www.walmart.com/ip/Cheez-It-Original/10292393", false},
		{"https://www.kroger.com/p/cheez-it-original/0002410010685", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := IsSearchResultURL(tt.url); got != tt.want {
				t.Errorf("IsSearchResultURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestIsHomepageURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.target.com", true},
		{"https://www.target.com/", true},
		{"https://www.target.com/index.html", true},
		{"https://www.target.com/p/cheez-it/-/A-12345", false},
	}

	for _, tt := range tests {
		if got := IsHomepageURL(tt.url); got != tt.want {
			t.Errorf("IsHomepageURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://www.kroger.com/p/item/1", "kroger.com"},
		{"https://kroger.com/p/item/2", "kroger.com"},
		{"http://WWW.Kroger.com:8080/x", "kroger.com"},
		{"www.kroger.com", "kroger.com"},
		{"https://shop.kroger.com/p", "shop.kroger.com"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeDomain(tt.input); got != tt.want {
				t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTitleMatchesProduct(t *testing.T) {
	tokens := ProductTokens("Cheez-It", "Original Crackers")

	tests := []struct {
		title string
		want  bool
	}{
		{"Cheez-It Original Baked Snack Crackers, 12.4 oz Box", true},
		{"Crackers Original by CHEEZ-IT", true},
		{"Cheez-It White Cheddar Crackers", false},
		{"Goldfish Original Crackers", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := TitleMatchesProduct(tt.title, tokens); got != tt.want {
				t.Errorf("TitleMatchesProduct(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestSourceLocator_Locate(t *testing.T) {
	query := domain.ProductQuery{Brand: "Cheez-It", Name: "Original Crackers"}
	walmart := domain.Retailer{Name: "Walmart", Domain: "walmart.com"}

	t.Run("filters search pages, homepages, wrong titles and foreign domains", func(t *testing.T) {
		search := &MockSearchProvider{hits: map[string][]domain.SearchHit{
			"Walmart": {
				{URL: "https://www.walmart.com/search?q=cheez-it", Title: "Cheez-It Original Crackers"},
				{URL: "https://www.walmart.com/", Title: "Cheez-It Original Crackers"},
				{URL: "https://www.walmart.com/ip/Cheez-It-White-Cheddar/1", Title: "Cheez-It White Cheddar Crackers"},
				{URL: "https://www.target.com/p/cheez-it/-/A-1", Title: "Cheez-It Original Crackers"},
				{URL: "https://www.walmart.com/ip/Cheez-It-Original/2", Title: "Cheez-It Original Crackers 12.4oz"},
				{URL: "https://walmart.com/ip/Cheez-It-Original/3", Title: "Cheez-It Original Crackers"},
			},
		}}
		locator := NewSourceLocator(search, LocatorConfig{})

		got := locator.Locate(context.Background(), query, walmart)
		if len(got) != 1 {
			t.Fatalf("len(candidates) = %d, want 1: %+v", len(got), got)
		}
		if got[0].URL != "https://www.walmart.com/ip/Cheez-It-Original/2" {
			t.Errorf("URL = %q", got[0].URL)
		}
		if got[0].Domain != "walmart.com" {
			t.Errorf("Domain = %q, want walmart.com", got[0].Domain)
		}
		if got[0].Retailer != "Walmart" {
			t.Errorf("Retailer = %q, want Walmart", got[0].Retailer)
		}
		if got[0].DiscoveryMethod != domain.DiscoverySearchAPI {
			t.Errorf("DiscoveryMethod = %q", got[0].DiscoveryMethod)
		}
	})

	t.Run("search failure yields empty set", func(t *testing.T) {
		search := &MockSearchProvider{err: errors.New("boom")}
		locator := NewSourceLocator(search, LocatorConfig{})

		got := locator.Locate(context.Background(), query, walmart)
		if len(got) != 0 {
			t.Errorf("len(candidates) = %d, want 0", len(got))
		}
	})

	t.Run("caps candidates per retailer", func(t *testing.T) {
		hits := []domain.SearchHit{
			{URL: "https://a.example.com/cheez-it", Title: "Cheez-It Original Crackers"},
			{URL: "https://b.example.com/cheez-it", Title: "Cheez-It Original Crackers"},
			{URL: "https://c.example.com/cheez-it", Title: "Cheez-It Original Crackers"},
		}
		search := &MockSearchProvider{hits: map[string][]domain.SearchHit{"general web": hits}}
		locator := NewSourceLocator(search, LocatorConfig{MaxCandidatesPerRetailer: 2})

		got := locator.Locate(context.Background(), query, domain.GeneralWeb)
		if len(got) != 2 {
			t.Errorf("len(candidates) = %d, want 2", len(got))
		}
	})
}
