package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// MockTextExtractionService is a mock implementation of domain.TextExtractionService
type MockTextExtractionService struct {
	result   *domain.AssistedExtraction
	err      error
	requests []domain.ExtractionRequest
}

func (m *MockTextExtractionService) ExtractIngredients(ctx context.Context, req domain.ExtractionRequest) (*domain.AssistedExtraction, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

const granolaPage = `<html><body>
	<nav><a href="/">Shop all departments</a></nav>
	<h2>Ingredients</h2>
	<p>Whole Grain Oats, Honey, Almonds, Canola Oil, Sea Salt</p>
	<h2>Reviews</h2>
	<p>Great stuff, would buy again</p>
	</body></html>`

func TestAssistedExtractor_Extract(t *testing.T) {
	query := domain.ProductQuery{Brand: "Acme", Name: "Honey Almond Granola"}
	page := &domain.RawPage{URL: "https://shop.example.com/granola", Title: "Acme Granola", Content: granolaPage}

	t.Run("returns service answer and sends a focused excerpt", func(t *testing.T) {
		svc := &MockTextExtractionService{result: &domain.AssistedExtraction{
			IngredientsText: "Whole Grain Oats, Honey, Almonds, Canola Oil, Sea Salt",
			Allergens:       []string{"tree nuts"},
		}}
		a := NewAssistedExtractor(svc, false)

		got, err := a.Extract(context.Background(), page, query)
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if got.IngredientsText != "Whole Grain Oats, Honey, Almonds, Canola Oil, Sea Salt" {
			t.Errorf("IngredientsText = %q", got.IngredientsText)
		}
		if len(svc.requests) != 1 {
			t.Fatalf("service called %d times, want 1", len(svc.requests))
		}
		req := svc.requests[0]
		if req.URL != page.URL || req.Title != page.Title || req.Product != query {
			t.Errorf("request = %+v", req)
		}
		if !strings.Contains(req.Excerpt, "Whole Grain Oats") {
			t.Errorf("excerpt does not contain the list: %q", req.Excerpt)
		}
		if strings.Contains(req.Excerpt, "would buy again") {
			t.Errorf("excerpt contains unrelated sections: %q", req.Excerpt)
		}
	})

	t.Run("no service configured", func(t *testing.T) {
		_, err := NewAssistedExtractor(nil, false).Extract(context.Background(), page, query)
		if !errors.Is(err, domain.ErrNoIngredients) {
			t.Errorf("error = %v, want ErrNoIngredients", err)
		}
	})

	t.Run("page without ingredient section skips the service", func(t *testing.T) {
		svc := &MockTextExtractionService{}
		blank := &domain.RawPage{URL: "https://shop.example.com/x", Content: "<p>Free shipping today</p>"}

		_, err := NewAssistedExtractor(svc, false).Extract(context.Background(), blank, query)
		if !errors.Is(err, domain.ErrNoIngredients) {
			t.Errorf("error = %v, want ErrNoIngredients", err)
		}
		if len(svc.requests) != 0 {
			t.Errorf("service called %d times, want 0", len(svc.requests))
		}
	})

	t.Run("too short answer", func(t *testing.T) {
		svc := &MockTextExtractionService{result: &domain.AssistedExtraction{IngredientsText: "Oats"}}
		_, err := NewAssistedExtractor(svc, false).Extract(context.Background(), page, query)
		if !errors.Is(err, domain.ErrNoIngredients) {
			t.Errorf("error = %v, want ErrNoIngredients", err)
		}
	})

	t.Run("service failure is passed through", func(t *testing.T) {
		svc := &MockTextExtractionService{err: fmt.Errorf("%w: upstream 500", domain.ErrReasoningFailure)}
		_, err := NewAssistedExtractor(svc, false).Extract(context.Background(), page, query)
		if !errors.Is(err, domain.ErrReasoningFailure) {
			t.Errorf("error = %v, want ErrReasoningFailure", err)
		}
	})
}

func TestBuildExcerpt_StructuredData(t *testing.T) {
	content := `<html><head>
		<script type="application/ld+json">{"@type":"Product","ingredients":"Oats, Honey"}</script>
		<script type="application/ld+json">{"@type":"BreadcrumbList"}</script>
		</head><body><p>Nothing else</p></body></html>`

	got := BuildExcerpt(&domain.RawPage{Content: content})
	if !strings.Contains(got, `"ingredients":"Oats, Honey"`) {
		t.Errorf("excerpt misses structured block: %q", got)
	}
	if strings.Contains(got, "BreadcrumbList") {
		t.Errorf("excerpt contains unrelated structured block: %q", got)
	}
}

func TestSplitSections(t *testing.T) {
	got := splitSections("# Title\nintro\n\n## Ingredients\n\nOats, Honey\n")
	want := []string{"# Title\nintro", "## Ingredients", "Oats, Honey"}
	if len(got) != len(want) {
		t.Fatalf("splitSections() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("section[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFocusWindow(t *testing.T) {
	text := strings.Repeat("x", 100) + "Ingredients: Oats" + strings.Repeat("y", 100)
	got := focusWindow(text, 40)
	if len(got) != 40 || !strings.Contains(got, "Ingredien") {
		t.Errorf("focusWindow() = %q", got)
	}
	if focusWindow("no list here", 40) != "" {
		t.Error("focusWindow() without a mention should be empty")
	}
}
