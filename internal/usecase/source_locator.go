package usecase

import (
	"context"
	"log"
	"net"
	"net/url"
	"path"
	"strings"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// searchResultMarkers identify search and browse pages rather than product pages
var searchResultMarkers = []string{
	"/s?", "/search?", "/search/", "/search.", "?q=", "&q=", "?k=", "&k=",
	"searchterm=", "?query=", "&query=", "/browse/", "/b?",
}

// skippedExtensions are static assets that never carry a product page
var skippedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".svg": true, ".css": true, ".js": true, ".ico": true, ".mp4": true,
}

const defaultMaxCandidatesPerRetailer = 5

// LocatorConfig holds configuration for the source locator
type LocatorConfig struct {
	MaxCandidatesPerRetailer int
	EnableDebugLogging       bool
}

// SourceLocator finds candidate product pages and filters out anything that
// is not plausibly the requested product's own page.
type SourceLocator struct {
	search             domain.SearchProvider
	preprocessor       *QueryPreprocessor
	maxCandidates      int
	enableDebugLogging bool
}

// NewSourceLocator creates a locator on top of a search provider
func NewSourceLocator(search domain.SearchProvider, config LocatorConfig) *SourceLocator {
	maxCandidates := config.MaxCandidatesPerRetailer
	if maxCandidates <= 0 {
		maxCandidates = defaultMaxCandidatesPerRetailer
	}
	return &SourceLocator{
		search:             search,
		preprocessor:       NewQueryPreprocessor(config.EnableDebugLogging),
		maxCandidates:      maxCandidates,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Locate returns candidate URLs for the product at one retailer. Search
// failures yield an empty list rather than an error.
func (l *SourceLocator) Locate(ctx context.Context, query domain.ProductQuery, retailer domain.Retailer) []domain.CandidateURL {
	q := l.preprocessor.BuildSearchQuery(query, retailer)

	hits, err := l.search.Search(ctx, q, retailer)
	if err != nil {
		log.Printf("[LOCATOR] Search failed for %q at %s: %v", q, retailer.Name, err)
		searchFailures.WithLabelValues(string(l.search.Method())).Inc()
		return nil
	}

	productTokens := ProductTokens(query.Brand, query.Name)
	seen := make(map[string]bool)
	var candidates []domain.CandidateURL

	for _, hit := range hits {
		reason := rejectCandidate(hit, retailer, productTokens)
		if reason != "" {
			if l.enableDebugLogging {
				log.Printf("[LOCATOR] Rejected %s: %s", hit.URL, reason)
			}
			continue
		}

		d := NormalizeDomain(hit.URL)
		if seen[d] {
			continue
		}
		seen[d] = true

		candidates = append(candidates, domain.CandidateURL{
			Domain:          d,
			URL:             hit.URL,
			DiscoveryMethod: l.search.Method(),
			TitleGuess:      hit.Title,
			Retailer:        retailer.Name,
		})
		if len(candidates) >= l.maxCandidates {
			break
		}
	}

	if l.enableDebugLogging {
		log.Printf("[LOCATOR] %s: %d hits, %d candidates", retailer.Name, len(hits), len(candidates))
	}
	return candidates
}

// rejectCandidate returns a non-empty reason when a hit must not be fetched
func rejectCandidate(hit domain.SearchHit, retailer domain.Retailer, productTokens []string) string {
	u, err := url.Parse(strings.TrimSpace(hit.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "not an absolute http url"
	}
	if IsSearchResultURL(hit.URL) {
		return "search results page"
	}
	if IsHomepageURL(hit.URL) {
		return "homepage"
	}
	if skippedExtensions[strings.ToLower(path.Ext(u.Path))] {
		return "static asset"
	}
	if retailer.Domain != "" && !domainMatches(NormalizeDomain(hit.URL), retailer.Domain) {
		return "outside retailer " + retailer.Domain
	}
	if !TitleMatchesProduct(hit.Title, productTokens) {
		return "title does not name the product"
	}
	return ""
}

// IsSearchResultURL reports whether a URL is a search or browse listing
func IsSearchResultURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, marker := range searchResultMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsHomepageURL reports whether a URL points at a site root
func IsHomepageURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := strings.Trim(u.Path, "/")
	return p == "" || p == "index.html" || p == "index.php"
}

// TitleMatchesProduct reports whether every significant brand/product token
// appears in the title, in any order.
func TitleMatchesProduct(title string, productTokens []string) bool {
	if len(productTokens) == 0 {
		return false
	}
	titleTokens := ProductTokens("", title)
	matched, _ := findIntersection(titleTokens, productTokens)
	return matched == distinctCount(productTokens)
}

func distinctCount(tokens []string) int {
	return findUnion(tokens, nil)
}

// NormalizeDomain returns the lowercase host of a URL without port or "www."
func NormalizeDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := u.Host
	if host == "" {
		// tolerate bare hosts such as "www.kroger.com"
		host = strings.SplitN(u.Path, "/", 2)[0]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return strings.TrimPrefix(host, "www.")
}

// domainMatches reports whether host is the retailer domain or a subdomain of it
func domainMatches(host, retailerDomain string) bool {
	retailerDomain = strings.TrimPrefix(strings.ToLower(retailerDomain), "www.")
	return host == retailerDomain || strings.HasSuffix(host, "."+retailerDomain)
}
