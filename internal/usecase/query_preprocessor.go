package usecase

import (
	"log"
	"regexp"
	"strings"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// maxSearchQueryLength keeps queries inside what search APIs accept
const maxSearchQueryLength = 120

// Compiled regex patterns for query preprocessing
var (
	// Matches pack/count patterns like "12 pack", "pack of 6", "6-pack", "24 count"
	packCountPattern = regexp.MustCompile(`(?i)\b\d+[-\s]*(pack|pk|count|ct)\b|\bpack\s*of\s*\d+\b`)

	// Removes lone punctuation left behind after stripping sizes
	orphanedPunctuationPattern = regexp.MustCompile(`\s+[,\-;:|]+(\s+|$)|^[,\-;:|]+\s*|[,\-;:|]+\s*$`)
)

// queryNoiseWords are marketing terms that only dilute a search query
var queryNoiseWords = map[string]bool{
	"value": true, "family": true, "bonus": true, "new": true, "improved": true,
	"size": true, "party": true, "club": true, "mega": true, "pack": true,
	"package": true, "box": true, "bag": true, "bottle": true, "jar": true,
}

// QueryPreprocessor turns a product query into a focused search string
type QueryPreprocessor struct {
	enableDebugLogging bool
}

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor(enableDebugLogging bool) *QueryPreprocessor {
	return &QueryPreprocessor{
		enableDebugLogging: enableDebugLogging,
	}
}

// PreprocessQuery strips size, pack counts and marketing noise from a product
// name and prefixes the brand when the name does not already carry it.
func (p *QueryPreprocessor) PreprocessQuery(productName, brand string) string {
	if strings.TrimSpace(productName) == "" {
		return strings.TrimSpace(brand)
	}

	cleaned := sizePatternRegex.ReplaceAllString(productName, " ")
	cleaned = packCountPattern.ReplaceAllString(cleaned, " ")

	var kept []string
	for _, word := range strings.Fields(cleaned) {
		if queryNoiseWords[strings.ToLower(strings.Trim(word, ",.!?;:-'\""))] {
			continue
		}
		kept = append(kept, word)
	}
	cleaned = orphanedPunctuationPattern.ReplaceAllString(strings.Join(kept, " "), " ")
	cleaned = CollapseWhitespace(cleaned)

	if brand != "" && !strings.Contains(strings.ToLower(cleaned), strings.ToLower(brand)) {
		cleaned = brand + " " + cleaned
	}

	if len(cleaned) > maxSearchQueryLength {
		cleaned = cleaned[:maxSearchQueryLength]
		if lastSpace := strings.LastIndex(cleaned, " "); lastSpace > maxSearchQueryLength/2 {
			cleaned = cleaned[:lastSpace]
		}
	}

	if p.enableDebugLogging {
		log.Printf("[PREPROCESS] Input: %q -> Output: %q", productName, cleaned)
	}

	return cleaned
}

// BuildSearchQuery returns the query text sent to a SearchProvider. The
// barcode is only added for general-web searches, where manufacturer and
// database pages often print it.
func (p *QueryPreprocessor) BuildSearchQuery(query domain.ProductQuery, retailer domain.Retailer) string {
	q := p.PreprocessQuery(query.Name, query.Brand) + " ingredients"
	if retailer.Domain == "" && query.Barcode != "" {
		q += " " + query.Barcode
	}
	return q
}
