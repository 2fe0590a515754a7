package usecase

import (
	"log"
)

// Default similarity thresholds
const (
	defaultShortListWordLimit = 15
	defaultShortListThreshold = 0.90
	defaultLongListThreshold  = 0.85
)

// SimilarityConfig holds configuration for the similarity matcher
type SimilarityConfig struct {
	ShortListWordLimit int
	ShortListThreshold float64
	LongListThreshold  float64
	EnableDebugLogging bool
}

// SimilarityMatcher decides whether two ingredient lists describe the same product
type SimilarityMatcher struct {
	shortListWordLimit int
	shortListThreshold float64
	longListThreshold  float64
	enableDebugLogging bool
}

// MatchScore explains a single comparison
type MatchScore struct {
	Ratio     float64
	Threshold float64
	Matched   []string
	// OnlyLeft and OnlyRight are significant words present on one side only
	OnlyLeft  []string
	OnlyRight []string
	// Identical is true when both lists normalize to the same ingredient phrases
	Identical bool
}

// Similar reports whether the ratio clears the applicable threshold
func (m MatchScore) Similar() bool {
	return m.Identical || (m.Ratio > 0 && m.Ratio >= m.Threshold)
}

// NewSimilarityMatcher creates a matcher, filling unset thresholds with defaults
func NewSimilarityMatcher(config SimilarityConfig) *SimilarityMatcher {
	limit := config.ShortListWordLimit
	if limit <= 0 {
		limit = defaultShortListWordLimit
	}
	short := config.ShortListThreshold
	if short <= 0 {
		short = defaultShortListThreshold
	}
	long := config.LongListThreshold
	if long <= 0 {
		long = defaultLongListThreshold
	}

	return &SimilarityMatcher{
		shortListWordLimit: limit,
		shortListThreshold: short,
		longListThreshold:  long,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Compare scores two ingredient lists by significant-word overlap
// (intersection over union). Short lists use the stricter threshold.
func (m *SimilarityMatcher) Compare(a, b string) MatchScore {
	wordsA := SignificantWords(a)
	wordsB := SignificantWords(b)

	threshold := m.longListThreshold
	if len(wordsA) <= m.shortListWordLimit || len(wordsB) <= m.shortListWordLimit {
		threshold = m.shortListThreshold
	}

	score := MatchScore{
		Threshold: threshold,
		OnlyLeft:  difference(wordsA, wordsB),
		OnlyRight: difference(wordsB, wordsA),
		Identical: sameTokenSet(IngredientTokens(a), IngredientTokens(b)),
	}

	if len(wordsA) == 0 || len(wordsB) == 0 {
		return score
	}

	matched, matchedWords := findIntersection(wordsA, wordsB)
	score.Matched = matchedWords
	score.Ratio = float64(matched) / float64(findUnion(wordsA, wordsB))

	if m.enableDebugLogging {
		log.Printf("[MATCH] ratio=%.2f threshold=%.2f identical=%v onlyLeft=%v onlyRight=%v",
			score.Ratio, score.Threshold, score.Identical, score.OnlyLeft, score.OnlyRight)
	}

	return score
}

// Match reports whether two ingredient lists are similar enough to group
func (m *SimilarityMatcher) Match(a, b string) bool {
	return m.Compare(a, b).Similar()
}
