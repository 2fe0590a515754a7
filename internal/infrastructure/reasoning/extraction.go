package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

const extractionSystemPrompt = `You read food product pages and copy the ingredient list exactly as printed.
Rules:
- Copy the ingredient list VERBATIM from the excerpt. Do not summarize, reorder, translate, correct spelling or add anything.
- If the excerpt has no ingredient list for this product, return an empty "ingredients" string.
- "allergenStatement" is the literal "Contains ..." sentence if the page has one, else "".
- "crossContaminationWarnings" are literal "may contain" / "processed in a facility" sentences.
- "allergens" lists only allergens named on the page.
- "dietaryCompliance" maps vegan, vegetarian, pescatarian and gluten-free to {"compliant": bool, "reason": string, "causeIngredients": [..]}, naming the exact ingredient that breaks the diet.
Answer with a single JSON object with keys productTitle, ingredients, allergenStatement, crossContaminationWarnings, allergens, dietaryCompliance.`

// extractionAnswer mirrors the JSON contract with free-form diet keys
type extractionAnswer struct {
	ProductTitle               string                           `json:"productTitle"`
	Ingredients                string                           `json:"ingredients"`
	AllergenStatement          string                           `json:"allergenStatement"`
	CrossContaminationWarnings []string                         `json:"crossContaminationWarnings"`
	Allergens                  []string                         `json:"allergens"`
	DietaryCompliance          map[string]domain.DietCompliance `json:"dietaryCompliance"`
}

// ExtractIngredients implements domain.TextExtractionService
func (c *Client) ExtractIngredients(ctx context.Context, req domain.ExtractionRequest) (*domain.AssistedExtraction, error) {
	var user strings.Builder
	fmt.Fprintf(&user, "Product: %s\n", req.Product.DisplayName())
	if req.Product.Barcode != "" {
		fmt.Fprintf(&user, "Barcode: %s\n", req.Product.Barcode)
	}
	fmt.Fprintf(&user, "Page: %s\n", req.URL)
	if req.Title != "" {
		fmt.Fprintf(&user, "Page title: %s\n", req.Title)
	}
	user.WriteString("\nExcerpt:\n")
	user.WriteString(req.Excerpt)

	raw, err := c.complete(ctx, c.model, extractionSystemPrompt, user.String(), true)
	if err != nil {
		return nil, err
	}

	data, err := validated(c.extractionSchema, raw)
	if err != nil {
		log.Printf("[REASONING] Extraction answer for %s rejected: %v", req.URL, err)
		return nil, err
	}

	var answer extractionAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	out := &domain.AssistedExtraction{
		ProductTitle:               strings.TrimSpace(answer.ProductTitle),
		IngredientsText:            strings.TrimSpace(answer.Ingredients),
		ExplicitAllergenStatement:  strings.TrimSpace(answer.AllergenStatement),
		CrossContaminationWarnings: answer.CrossContaminationWarnings,
		Allergens:                  answer.Allergens,
	}
	if len(answer.DietaryCompliance) > 0 {
		out.DietaryCompliance = make(map[domain.Diet]domain.DietCompliance, len(answer.DietaryCompliance))
		for label, verdict := range answer.DietaryCompliance {
			diet, ok := domain.ParseDiet(label)
			if !ok {
				c.debugLog("Dropping unknown diet %q", label)
				continue
			}
			out.DietaryCompliance[diet] = verdict
		}
	}

	c.debugLog("Extracted %d chars of ingredients from %s", len(out.IngredientsText), req.URL)
	return out, nil
}
