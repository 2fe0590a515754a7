package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

const searchSystemPrompt = `You search the web for retail and manufacturer product pages of packaged foods.
Return only direct product detail pages, never search result pages, category pages or home pages.
Answer with a single JSON object: {"results": [{"url": "https://...", "title": "page title"}]}.`

type searchAnswer struct {
	Results []domain.SearchHit `json:"results"`
}

// Method implements domain.SearchProvider
func (c *Client) Method() domain.DiscoveryMethod {
	return domain.DiscoveryReasoningSearch
}

// Search implements domain.SearchProvider using the web-search model
func (c *Client) Search(ctx context.Context, query string, retailer domain.Retailer) ([]domain.SearchHit, error) {
	user := fmt.Sprintf("Find the product page for: %s", query)
	if retailer.Domain != "" {
		user += fmt.Sprintf("\nOnly return pages on %s (%s).", retailer.Domain, retailer.Name)
	}

	raw, err := c.complete(ctx, c.searchModel, searchSystemPrompt, user, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
	}
	data, err := validated(c.searchSchema, raw)
	if err != nil {
		log.Printf("[REASONING] Search answer for %q rejected: %v", query, err)
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchFailed, err)
	}

	var answer searchAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrSearchFailed, domain.ErrMalformedResponse, err)
	}

	hits := make([]domain.SearchHit, 0, len(answer.Results))
	for _, hit := range answer.Results {
		hit.URL = strings.TrimSpace(hit.URL)
		if hit.URL == "" {
			continue
		}
		hits = append(hits, hit)
	}
	c.debugLog("Search %q on %s returned %d hits", query, retailer.Name, len(hits))
	return hits, nil
}
