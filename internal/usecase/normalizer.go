package usecase

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Package-level compiled regex patterns for performance
var (
	punctuationRegex     = regexp.MustCompile(`[^\w\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
	nonLetterRegex       = regexp.MustCompile(`[^\p{L}\s]+`)
	percentRegex         = regexp.MustCompile(`\(?\s*\d+(?:\.\d+)?\s*%\s*\)?`)
	ingredientLabelRegex = regexp.MustCompile(`(?i)^\s*ingredients?\s*[:：\-]?\s*`)
	fragmentSplitRegex   = regexp.MustCompile(`[,;()\[\]{}]|\.\s+|:\s+`)
)

// sizePatternRegex matches size/quantity patterns commonly found in product names
var sizePatternRegex = regexp.MustCompile(
	`(?i)\b\d+\.?\d*\s*(?:fl\s*oz|oz|ml|liters?|l|gallons?|gal|lbs?|pounds?|kg|grams?|g|ct|count|pk|pack|ea|each|qt|quart|pt|pint)\b`,
)

// qualifierPhrases are boilerplate label phrases that say nothing about formulation
var qualifierPhrases = []*regexp.Regexp{
	regexp.MustCompile(`contains\s+(?:\d+(?:\.\d+)?\s*%|two\s+percent)\s+or\s+less\s+of(?:\s+(?:each\s+of\s+)?the\s+following)?\s*:?`),
	regexp.MustCompile(`(?:contains\s+)?less\s+than\s+\d+(?:\.\d+)?\s*%\s+of(?:\s+(?:each\s+of\s+)?the\s+following)?\s*:?`),
	regexp.MustCompile(`\d+(?:\.\d+)?\s*%\s+or\s+less\s+of(?:\s+the\s+following)?\s*:?`),
	regexp.MustCompile(`contains\s+one\s+or\s+more\s+of\s+the\s+following\s*:?`),
	regexp.MustCompile(`\band\s*/\s*or\b`),
}

// qualifierWords are descriptors dropped before comparing ingredient lists
var qualifierWords = map[string]bool{
	"organic": true, "natural": true, "naturally": true, "fresh": true,
	"certified": true, "pure": true, "premium": true, "gmo": true, "non": true,
}

// ingredientStopWords are connective words inside ingredient lists
var ingredientStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "or": true, "of": true, "the": true,
	"with": true, "from": true, "for": true, "to": true, "in": true, "as": true,
	"by": true, "contains": true, "contain": true, "containing": true,
	"less": true, "than": true, "more": true, "following": true, "one": true,
	"each": true, "added": true, "made": true, "ingredient": true, "ingredients": true,
}

// extendedStopWords includes basic English stop words plus product-title noise
var extendedStopWords = map[string]bool{
	// Basic English stop words
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "from": true, "is": true,
	// Size/quantity units
	"oz": true, "fl": true, "lb": true, "lbs": true, "ml": true,
	"gallon": true, "quart": true, "pint": true, "liter": true, "liters": true,
	"gram": true, "grams": true, "kg": true, "ounce": true, "ounces": true,
	// Packaging terms
	"pack": true, "packs": true, "count": true, "ct": true, "pk": true,
	"box": true, "bag": true, "bottle": true, "bottles": true, "can": true,
	"cans": true, "carton": true, "container": true, "pouch": true, "jar": true,
	// Marketing/generic terms
	"size": true, "value": true, "family": true, "each": true, "per": true,
	"new": true, "improved": true, "product": true,
}

// StripAccents removes combining marks so "jalapeño" compares equal to "jalapeno".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CollapseWhitespace trims s and folds every whitespace run into one space
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(multipleSpacesRegex.ReplaceAllString(s, " "))
}

// NormalizeText lowercases, strips accents and collapses whitespace
func NormalizeText(s string) string {
	return CollapseWhitespace(StripAccents(strings.ToLower(s)))
}

// StripIngredientLabel removes a leading "Ingredients:" label
func StripIngredientLabel(s string) string {
	return strings.TrimSpace(ingredientLabelRegex.ReplaceAllString(s, ""))
}

// normalizeIngredientList folds case and accents and removes label boilerplate
// such as "contains 2% or less of" and percentages.
func normalizeIngredientList(list string) string {
	s := NormalizeText(StripIngredientLabel(list))
	for _, p := range qualifierPhrases {
		s = p.ReplaceAllString(s, " ")
	}
	s = percentRegex.ReplaceAllString(s, " ")
	return CollapseWhitespace(s)
}

// invariantWords end in s but have no singular form
var invariantWords = map[string]bool{
	"molasses": true,
	"species":  true,
	"series":   true,
	"swiss":    true,
}

// Singularize applies naive trailing-s removal. It only has to be consistent
// on both sides of a comparison, not linguistically correct.
func Singularize(word string) string {
	n := len(word)
	if n <= 3 || invariantWords[word] {
		return word
	}
	switch {
	case strings.HasSuffix(word, "sses"):
		return word
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "ies") && n > 4:
		return word[:n-3] + "y"
	case strings.HasSuffix(word, "oes"),
		strings.HasSuffix(word, "ches"),
		strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "xes"):
		return word[:n-2]
	case strings.HasSuffix(word, "s"):
		return word[:n-1]
	}
	return word
}

// SignificantWords returns the distinct normalized words of an ingredient list,
// in first-seen order, with connectives and qualifiers removed.
func SignificantWords(list string) []string {
	s := nonLetterRegex.ReplaceAllString(normalizeIngredientList(list), " ")

	seen := make(map[string]bool)
	var words []string
	for _, w := range strings.Fields(s) {
		if len(w) <= 1 || ingredientStopWords[w] || qualifierWords[w] {
			continue
		}
		w = Singularize(w)
		if seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

// SplitIngredients splits a list into its phrase fragments, breaking at commas,
// semicolons, brackets and sentence ends. Fragments keep their original text.
func SplitIngredients(list string) []string {
	list = StripIngredientLabel(list)
	parts := fragmentSplitRegex.Split(list, -1)

	fragments := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(CollapseWhitespace(p), " .*")
		if len(p) < 2 {
			continue
		}
		fragments = append(fragments, p)
	}
	return fragments
}

// IngredientTokens returns the normalized ingredient phrases of a list.
func IngredientTokens(list string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, fragment := range SplitIngredients(list) {
		words := SignificantWords(fragment)
		if len(words) == 0 {
			continue
		}
		token := strings.Join(words, " ")
		if seen[token] {
			continue
		}
		seen[token] = true
		tokens = append(tokens, token)
	}
	return tokens
}

// sameTokenSet reports whether two lists normalize to the same ingredient phrases
func sameTokenSet(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// ProductTokens returns the significant tokens of a brand and product name,
// used to check that a page title is about the requested product.
func ProductTokens(brand, name string) []string {
	text := StripAccents(brand + " " + name)
	text = sizePatternRegex.ReplaceAllString(text, " ")
	tokens := tokenize(text)
	for i, t := range tokens {
		tokens[i] = Singularize(t)
	}
	return tokens
}

// tokenize splits a string into normalized lowercase tokens.
// Removes punctuation, stop words, product noise, and pure numeric tokens.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 1 {
			continue
		}
		if extendedStopWords[word] {
			continue
		}
		if isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// findIntersection returns the count of common tokens and the list of matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}
	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}

// difference returns tokens of a that are absent from b
func difference(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, t := range b {
		set[t] = true
	}
	var out []string
	for _, t := range a {
		if !set[t] {
			out = append(out, t)
		}
	}
	return out
}
