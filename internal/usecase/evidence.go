package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/gowebpki/jcs"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// evidenceEntry is the part of a source that identifies the evidence itself
type evidenceEntry struct {
	URL              string `json:"url"`
	Ingredients      string `json:"ingredients"`
	ExtractionMethod string `json:"extractionMethod"`
	Validated        bool   `json:"validated"`
}

// EvidenceDigest returns the sha256 of the RFC 8785 canonical form of the
// sources' URLs and ingredient texts. Source order does not matter.
func EvidenceDigest(sources []domain.Source) (string, error) {
	if len(sources) == 0 {
		return "", nil
	}
	entries := make([]evidenceEntry, len(sources))
	for i, s := range sources {
		entries[i] = evidenceEntry{
			URL:              s.URL,
			Ingredients:      s.IngredientsText,
			ExtractionMethod: string(s.ExtractionMethod),
			Validated:        s.Validated,
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].URL != entries[j].URL {
			return entries[i].URL < entries[j].URL
		}
		return entries[i].Ingredients < entries[j].Ingredients
	})

	raw, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
