package usecase

import (
	"encoding/json"
	"log"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// Acceptance bounds for an extracted ingredient list
const (
	minIngredientsLength = 20
	maxIngredientsLength = 2000
	headingWindow        = 600
	statementWindow      = 800
)

// ExtractionStrategy names the verbatim strategy that produced a list
type ExtractionStrategy string

const (
	StrategyStructuredData ExtractionStrategy = "structured-data"
	StrategyHeading        ExtractionStrategy = "heading"
	StrategyContainer      ExtractionStrategy = "container"
)

// strategyConfidence is the confidence assigned per verbatim strategy
var strategyConfidence = map[ExtractionStrategy]int{
	StrategyStructuredData: 95,
	StrategyHeading:        92,
	StrategyContainer:      90,
}

var (
	ingredientHeadingRegex = regexp.MustCompile(`(?i)\bingredients?\b\s*[:：]?`)

	// sectionEndRegex marks where a label section that follows the list begins
	sectionEndRegex = regexp.MustCompile(`(?i)\b(?:allergens?\s*(?:information)?\s*:|contains\s*:|may contain\b|nutrition facts\b|directions\b|storage\b|warnings?\s*:|distributed by\b|manufactured (?:by|for|in)\b|produced (?:by|in)\b)|\.\s+contains\s+(?:milk|eggs?|fish|shellfish|crustacean|tree\s+nuts?|peanuts?|wheat|soy|sesame)\b`)

	allergenStatementRegex = regexp.MustCompile(`(?i)\b(?:allergens?|contains)\s*:?\s*([^.\n]{3,200})`)
	crossContactRegex      = regexp.MustCompile(`(?i)\b(?:may contain[^.\n]{3,200}|(?:processed|manufactured|made|produced|packaged) (?:in|on) (?:a )?(?:facility|plant|shared equipment|equipment)[^.\n]{0,200})`)
	marketingRegex         = regexp.MustCompile(`(?i)\b(?:you|your|our|we|us|delicious|perfect|enjoy|love|favorite)\b`)
)

// metadataMarkers indicate page chrome rather than a label
var metadataMarkers = []string{
	"http", "www.", "{", "}", "add to cart", "review", "see more", "nutrition facts",
	"sku", "item #", "shipping", "click", "javascript",
}

// structuredIngredientKeys are JSON keys that hold ingredient lists
var structuredIngredientKeys = map[string]bool{
	"ingredients": true, "ingredient": true, "ingredientstatement": true,
	"ingredientslist": true, "ingredients_text": true, "ingredientstext": true,
}

// VerbatimExtraction is an ingredient list copied from the page without rewriting
type VerbatimExtraction struct {
	Text                       string
	Strategy                   ExtractionStrategy
	Confidence                 int
	AllergenStatement          string
	CrossContaminationWarnings []string
}

// VerbatimExtractor pulls ingredient lists out of pages with deterministic
// patterns. It never calls a generative model.
type VerbatimExtractor struct {
	enableDebugLogging bool
}

// NewVerbatimExtractor creates a new verbatim extractor
func NewVerbatimExtractor(enableDebugLogging bool) *VerbatimExtractor {
	return &VerbatimExtractor{enableDebugLogging: enableDebugLogging}
}

// Extract tries structured data, then heading text, then labeled containers.
// Any returned text is a contiguous substring of PlainText(page.Content).
func (e *VerbatimExtractor) Extract(page *domain.RawPage) (*VerbatimExtraction, bool) {
	if page == nil || page.Content == "" {
		return nil, false
	}

	plain := PlainText(page.Content)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Content))
	if err != nil {
		log.Printf("[EXTRACT] Failed to parse %s: %v", page.URL, err)
		doc = nil
	}

	strategies := []struct {
		name ExtractionStrategy
		find func() []string
	}{
		{StrategyStructuredData, func() []string { return structuredCandidates(doc) }},
		{StrategyHeading, func() []string { return headingCandidates(plain) }},
		{StrategyContainer, func() []string { return containerCandidates(doc) }},
	}

	for _, strategy := range strategies {
		for _, candidate := range strategy.find() {
			candidate = CollapseWhitespace(candidate)
			if !PlausibleIngredients(candidate) || !VerbatimIn(plain, candidate) {
				continue
			}
			if e.enableDebugLogging {
				log.Printf("[EXTRACT] %s via %s: %q", page.URL, strategy.name, truncate(candidate, 80))
			}
			statement, warnings := findLabelStatements(plain, candidate)
			return &VerbatimExtraction{
				Text:                       candidate,
				Strategy:                   strategy.name,
				Confidence:                 strategyConfidence[strategy.name],
				AllergenStatement:          statement,
				CrossContaminationWarnings: warnings,
			}, true
		}
	}

	if e.enableDebugLogging {
		log.Printf("[EXTRACT] No verbatim ingredient list on %s", page.URL)
	}
	return nil, false
}

// structuredCandidates collects ingredient values from JSON script blocks
func structuredCandidates(doc *goquery.Document) []string {
	if doc == nil {
		return nil
	}
	var out []string
	doc.Find(`script[type="application/ld+json"], script#__NEXT_DATA__, script[type="application/json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		collectIngredientValues(v, &out)
	})
	return out
}

func collectIngredientValues(v any, out *[]string) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			val := t[k]
			if structuredIngredientKeys[strings.ToLower(k)] {
				switch iv := val.(type) {
				case string:
					*out = append(*out, stripInlineMarkup(iv))
					continue
				case []any:
					if joined, ok := joinStrings(iv); ok {
						*out = append(*out, joined)
						continue
					}
				}
			}
			collectIngredientValues(val, out)
		}
	case []any:
		for _, item := range t {
			collectIngredientValues(item, out)
		}
	}
}

// headingCandidates returns the lines that follow an "Ingredients" label
// within headingWindow characters.
func headingCandidates(plain string) []string {
	var out []string
	for _, loc := range ingredientHeadingRegex.FindAllStringIndex(plain, -1) {
		rest := plain[loc[1]:]
		offset := 0
		for _, line := range strings.Split(rest, "\n") {
			if offset > headingWindow {
				break
			}
			offset += len(line) + 1
			line = strings.TrimSpace(strings.TrimLeft(line, " :："))
			if line == "" {
				continue
			}
			out = append(out, cutAtSectionEnd(line))
			if utf8.RuneCountInString(line) >= minIngredientsLength {
				break
			}
		}
	}
	return out
}

// containerCandidates returns text lines of elements labeled as ingredients
func containerCandidates(doc *goquery.Document) []string {
	if doc == nil {
		return nil
	}
	var out []string
	doc.Find(`[class*="ngredient"], [id*="ngredient"], [itemprop="ingredients"], [data-testid*="ngredient"]`).Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "script" {
			return
		}
		html, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		for _, line := range strings.Split(PlainText(html), "\n") {
			line = StripIngredientLabel(line)
			if line != "" {
				out = append(out, cutAtSectionEnd(line))
			}
		}
	})
	return out
}

// cutAtSectionEnd drops label sections (allergen statement, directions...)
// that share a line with the list.
func cutAtSectionEnd(line string) string {
	if loc := sectionEndRegex.FindStringIndex(line); loc != nil && loc[0] > 0 {
		line = line[:loc[0]]
	}
	return strings.TrimRight(strings.TrimSpace(line), ",;")
}

// PlausibleIngredients reports whether text looks like an ingredient list
// rather than marketing copy or page chrome.
func PlausibleIngredients(text string) bool {
	n := utf8.RuneCountInString(text)
	if n < minIngredientsLength || n > maxIngredientsLength {
		return false
	}
	if !strings.Contains(text, ",") {
		return false
	}

	var letters, visible int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		visible++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if visible == 0 || float64(letters)/float64(visible) < 0.6 {
		return false
	}

	lower := strings.ToLower(text)
	for _, marker := range metadataMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	if marketingRegex.MatchString(lower) {
		return false
	}

	fragments := SplitIngredients(text)
	if len(fragments) < 2 {
		return false
	}
	words := 0
	for _, f := range fragments {
		words += len(strings.Fields(f))
	}
	return float64(words)/float64(len(fragments)) <= 6
}

// findLabelStatements looks for the allergen statement and cross-contact
// warnings printed right after the ingredient list.
func findLabelStatements(plain, ingredients string) (string, []string) {
	collapsed := CollapseWhitespace(plain)
	idx := strings.Index(collapsed, CollapseWhitespace(ingredients))
	if idx < 0 {
		return "", nil
	}
	start := idx + len(CollapseWhitespace(ingredients))
	end := start + statementWindow
	if end > len(collapsed) {
		end = len(collapsed)
	}
	window := collapsed[start:end]

	var statement string
	for _, m := range allergenStatementRegex.FindAllStringSubmatchIndex(window, -1) {
		if allergenList(window[m[2]:m[3]]) {
			statement = strings.TrimSpace(window[m[0]:m[1]])
			break
		}
	}

	seen := make(map[string]bool)
	var warnings []string
	for _, w := range crossContactRegex.FindAllString(window, -1) {
		w = strings.TrimSpace(w)
		if !seen[strings.ToLower(w)] {
			seen[strings.ToLower(w)] = true
			warnings = append(warnings, w)
		}
	}
	return statement, warnings
}

// allergenList reports whether text reads like "Milk, Soy and Wheat": the first
// item and at least half of all items must name a major allergen.
func allergenList(text string) bool {
	items := splitAllergenItems(text)
	if len(items) == 0 {
		return false
	}
	if _, ok := domain.ParseAllergen(items[0]); !ok {
		return false
	}
	parsed := 0
	for _, item := range items {
		if _, ok := domain.ParseAllergen(item); ok {
			parsed++
		}
	}
	return parsed*2 >= len(items)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
