package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// Excerpt bounds for assisted extraction
const (
	maxExcerptLength    = 12000
	maxStructuredLength = 4000
	fallbackWindow      = 1500
	minAssistedLength   = 10
)

// excerptKeywords score markdown sections for the excerpt
var excerptKeywords = []string{"ingredient", "contains", "allergen", "may contain", "facility"}

// AssistedExtractor asks a TextExtractionService to find the ingredient list in
// a bounded page excerpt. Its output is untrusted until validated.
type AssistedExtractor struct {
	service            domain.TextExtractionService
	enableDebugLogging bool
}

// NewAssistedExtractor creates a new assisted extractor
func NewAssistedExtractor(service domain.TextExtractionService, enableDebugLogging bool) *AssistedExtractor {
	return &AssistedExtractor{service: service, enableDebugLogging: enableDebugLogging}
}

// Extract returns the service's answer, or ErrNoIngredients when the page has
// nothing worth sending or the answer is too short to be a list.
func (a *AssistedExtractor) Extract(ctx context.Context, page *domain.RawPage, query domain.ProductQuery) (*domain.AssistedExtraction, error) {
	if a.service == nil {
		return nil, fmt.Errorf("%w: no extraction service configured", domain.ErrNoIngredients)
	}

	excerpt := BuildExcerpt(page)
	if excerpt == "" {
		return nil, fmt.Errorf("%w: page has no ingredient section", domain.ErrNoIngredients)
	}

	if a.enableDebugLogging {
		log.Printf("[EXTRACT] Assisted extraction for %s with %d-byte excerpt", page.URL, len(excerpt))
	}

	result, err := a.service.ExtractIngredients(ctx, domain.ExtractionRequest{
		Product: query,
		URL:     page.URL,
		Title:   page.Title,
		Excerpt: excerpt,
	})
	if err != nil {
		return nil, err
	}
	if result == nil || utf8.RuneCountInString(strings.TrimSpace(result.IngredientsText)) < minAssistedLength {
		return nil, fmt.Errorf("%w: assisted extraction returned no usable list", domain.ErrNoIngredients)
	}
	return result, nil
}

// BuildExcerpt assembles structured-data blocks that mention ingredients,
// followed by the markdown sections around the word "ingredient".
func BuildExcerpt(page *domain.RawPage) string {
	if page == nil || page.Content == "" {
		return ""
	}

	var b strings.Builder
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Content)); err == nil {
		doc.Find(`script[type="application/ld+json"], script#__NEXT_DATA__`).Each(func(_ int, s *goquery.Selection) {
			block := strings.TrimSpace(s.Text())
			if !strings.Contains(strings.ToLower(block), "ingredient") {
				return
			}
			if b.Len()+len(block) > maxStructuredLength {
				block = focusWindow(block, maxStructuredLength-b.Len())
			}
			if block == "" {
				return
			}
			b.WriteString(block)
			b.WriteString("\n\n")
		})
	}

	markdown, err := htmltomarkdown.ConvertString(page.Content)
	if err != nil {
		markdown = PlainText(page.Content)
	}
	sections := selectRelevantSections(markdown, maxExcerptLength-b.Len())
	if sections == "" {
		sections = focusWindow(PlainText(page.Content), fallbackWindow*2)
	}
	b.WriteString(sections)

	return strings.TrimSpace(b.String())
}

// selectRelevantSections keeps the markdown sections that mention label
// keywords, plus the section right after each one (a heading is usually its
// own section), in page order and within limit bytes.
func selectRelevantSections(markdown string, limit int) string {
	if limit <= 0 {
		return ""
	}
	sections := splitSections(markdown)

	selected := make(map[int]bool)
	total := 0
	pick := func(i int) {
		if i >= len(sections) || selected[i] || total+len(sections[i]) > limit {
			return
		}
		selected[i] = true
		total += len(sections[i])
	}
	for i, sec := range sections {
		lower := strings.ToLower(sec)
		score := 0
		for _, kw := range excerptKeywords {
			score += strings.Count(lower, kw)
		}
		if score == 0 {
			continue
		}
		pick(i)
		if strings.Contains(lower, "ingredient") {
			pick(i + 1)
		}
	}

	var parts []string
	for i, sec := range sections {
		if selected[i] {
			parts = append(parts, sec)
		}
	}
	return strings.Join(parts, "\n\n")
}

// splitSections splits markdown content into sections by headers (lines
// starting with #) or blank-line paragraph breaks.
func splitSections(content string) []string {
	var sections []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sections = append(sections, s)
		}
		current.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			flush()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	flush()
	return sections
}

// focusWindow returns up to size bytes of text centred on the first mention
// of "ingredient", or "" when there is none.
func focusWindow(text string, size int) string {
	if size <= 0 {
		return ""
	}
	idx := strings.Index(strings.ToLower(text), "ingredient")
	if idx < 0 {
		return ""
	}
	start := idx - size/2
	if start < 0 {
		start = 0
	}
	end := start + size
	if end > len(text) {
		end = len(text)
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start++
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end--
	}
	return text[start:end]
}
