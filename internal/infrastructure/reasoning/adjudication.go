package reasoning

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

const adjudicationSystemPrompt = `You compare two ingredient lists printed for the same packaged food product and decide whether they describe the same formulation.
Differences in capitalization, punctuation, ordering of sub-ingredients in parentheses, "organic" prefixes or "contains 2% or less of" phrasing do not matter.
Any ingredient present in one list and absent from the other means the formulations are DIFFERENT.
Answer with a single JSON object: {"sameFormulation": bool, "differences": ["ingredient", ...]}.`

type adjudicationAnswer struct {
	SameFormulation bool     `json:"sameFormulation"`
	Differences     []string `json:"differences"`
}

// SameFormulation implements domain.Adjudicator
func (c *Client) SameFormulation(ctx context.Context, reference, candidate domain.Source) (bool, error) {
	user := fmt.Sprintf("List A (%s):\n%s\n\nList B (%s):\n%s",
		reference.Domain, reference.IngredientsText, candidate.Domain, candidate.IngredientsText)

	raw, err := c.complete(ctx, c.model, adjudicationSystemPrompt, user, true)
	if err != nil {
		return false, err
	}
	data, err := validated(c.adjudicationSchema, raw)
	if err != nil {
		return false, err
	}

	var answer adjudicationAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	// a listed difference overrides a contradictory verdict
	same := answer.SameFormulation && len(answer.Differences) == 0

	c.debugLog("Adjudicated %s vs %s: same=%v differences=%v",
		reference.Domain, candidate.Domain, same, answer.Differences)
	return same, nil
}
