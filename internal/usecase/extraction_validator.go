package usecase

import (
	"log"
	"strings"
	"unicode/utf8"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// Validator thresholds
const (
	validationPrefixLength  = 50
	validationTopPhrases    = 10
	validationMajority      = 0.6
	assistedConfidenceHigh  = 75
	assistedConfidenceLower = 65
)

// ValidationVerdict explains why an assisted extraction was accepted or rejected
type ValidationVerdict struct {
	Accepted    bool
	PrefixFound bool
	PhraseRatio float64
	WordRatio   float64
	Confidence  int
	Reason      string
}

// ExtractionValidator checks an untrusted extraction against the literal page
type ExtractionValidator struct {
	enableDebugLogging bool
}

// NewExtractionValidator creates a new extraction validator
func NewExtractionValidator(enableDebugLogging bool) *ExtractionValidator {
	return &ExtractionValidator{enableDebugLogging: enableDebugLogging}
}

// Validate accepts an extraction only if its opening characters appear in the
// page text and a majority of its phrases or significant words do too.
// Accepted extractions never score above assistedConfidenceHigh.
func (v *ExtractionValidator) Validate(extracted string, page *domain.RawPage) ValidationVerdict {
	if page == nil || strings.TrimSpace(extracted) == "" {
		return v.reject(ValidationVerdict{Reason: "nothing to validate"})
	}

	pageText := NormalizeText(PlainText(page.Content))
	text := NormalizeText(StripIngredientLabel(extracted))

	verdict := ValidationVerdict{
		PrefixFound: strings.Contains(pageText, prefixRunes(text, validationPrefixLength)),
		PhraseRatio: phraseRatio(text, pageText),
		WordRatio:   wordRatio(text, pageText),
	}

	strongPhrases := verdict.PhraseRatio >= validationMajority
	strongWords := verdict.WordRatio >= validationMajority

	switch {
	case !verdict.PrefixFound:
		verdict.Reason = "opening of list not found on page"
		return v.reject(verdict)
	case !strongPhrases && !strongWords:
		verdict.Reason = "most phrases and words not found on page"
		return v.reject(verdict)
	case strongPhrases && strongWords:
		verdict.Confidence = assistedConfidenceHigh
	default:
		verdict.Confidence = assistedConfidenceLower
	}

	verdict.Accepted = true
	validatorVerdicts.WithLabelValues("accepted").Inc()
	if v.enableDebugLogging {
		log.Printf("[VALIDATE] Accepted %s: phrases=%.2f words=%.2f confidence=%d",
			page.URL, verdict.PhraseRatio, verdict.WordRatio, verdict.Confidence)
	}
	return verdict
}

func (v *ExtractionValidator) reject(verdict ValidationVerdict) ValidationVerdict {
	verdict.Accepted = false
	validatorVerdicts.WithLabelValues("rejected").Inc()
	log.Printf("[VALIDATE] Rejected extraction: %s (phrases=%.2f words=%.2f)",
		verdict.Reason, verdict.PhraseRatio, verdict.WordRatio)
	return verdict
}

// prefixRunes returns the first n runes of s without splitting a character
func prefixRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// phraseRatio is the share of the first phrase fragments found verbatim
func phraseRatio(text, pageText string) float64 {
	fragments := SplitIngredients(text)
	if len(fragments) > validationTopPhrases {
		fragments = fragments[:validationTopPhrases]
	}
	if len(fragments) == 0 {
		return 0
	}
	found := 0
	for _, f := range fragments {
		if strings.Contains(pageText, f) {
			found++
		}
	}
	return float64(found) / float64(len(fragments))
}

// wordRatio is the share of significant words present as words on the page
func wordRatio(text, pageText string) float64 {
	words := SignificantWords(text)
	if len(words) == 0 {
		return 0
	}
	pageWords := make(map[string]bool)
	for _, w := range strings.Fields(nonLetterRegex.ReplaceAllString(pageText, " ")) {
		pageWords[Singularize(w)] = true
	}
	found := 0
	for _, w := range words {
		if pageWords[w] {
			found++
		}
	}
	return float64(found) / float64(len(words))
}
