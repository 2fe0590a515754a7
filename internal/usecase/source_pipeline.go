package usecase

import (
	"context"
	"errors"
	"log"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

const defaultMaxBatches = 4

// DefaultRetailers are searched in order when no retailers are configured
var DefaultRetailers = []domain.Retailer{
	{Name: "Walmart", Domain: "walmart.com"},
	{Name: "Target", Domain: "target.com"},
	{Name: "Kroger", Domain: "kroger.com"},
	{Name: "Amazon", Domain: "amazon.com"},
	{Name: "Instacart", Domain: "instacart.com"},
	domain.GeneralWeb,
}

// PipelineConfig holds configuration for the source pipeline
type PipelineConfig struct {
	Retailers          []domain.Retailer
	MaxBatches         int
	EnableDebugLogging bool
}

// SourcePipeline turns candidate URLs into validated sources: fetch, verbatim
// extraction, assisted extraction as fallback, then validation.
type SourcePipeline struct {
	locator            *SourceLocator
	fetcher            domain.PageFetcher
	verbatim           *VerbatimExtractor
	assisted           *AssistedExtractor
	validator          *ExtractionValidator
	inferencer         *AllergenInferencer
	retailers          []domain.Retailer
	maxBatches         int
	enableDebugLogging bool
}

// NewSourcePipeline creates a pipeline from its stages
func NewSourcePipeline(
	locator *SourceLocator,
	fetcher domain.PageFetcher,
	verbatim *VerbatimExtractor,
	assisted *AssistedExtractor,
	validator *ExtractionValidator,
	inferencer *AllergenInferencer,
	config PipelineConfig,
) *SourcePipeline {
	retailers := config.Retailers
	if len(retailers) == 0 {
		retailers = DefaultRetailers
	}
	maxBatches := config.MaxBatches
	if maxBatches <= 0 {
		maxBatches = defaultMaxBatches
	}
	return &SourcePipeline{
		locator:            locator,
		fetcher:            fetcher,
		verbatim:           verbatim,
		assisted:           assisted,
		validator:          validator,
		inferencer:         inferencer,
		retailers:          retailers,
		maxBatches:         maxBatches,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// candidateResult is one goroutine's slot in a batch
type candidateResult struct {
	source   *domain.Source
	rejected *domain.Source
	err      error
}

// Acquire locates candidates on unseen domains and processes them in
// concurrent batches until need sources are found, candidates run out or the
// batch budget is spent. Failed candidates simply yield nothing.
func (p *SourcePipeline) Acquire(ctx context.Context, query domain.ProductQuery, need int, seen map[string]bool, sink domain.EventSink) Acquisition {
	events := newReporter(sink)
	var acq Acquisition
	if need <= 0 {
		return acq
	}

	candidates := p.locateAll(ctx, query, seen)
	events.logf("Located %d candidate pages for %s", len(candidates), query.DisplayName())

	next := 0
	for batch := 0; batch < p.maxBatches && len(acq.Sources) < need && next < len(candidates); batch++ {
		if ctx.Err() != nil {
			break
		}
		size := need - len(acq.Sources)
		if next+size > len(candidates) {
			size = len(candidates) - next
		}
		slice := candidates[next : next+size]
		next += size

		results := make([]candidateResult, len(slice))
		g, gctx := errgroup.WithContext(ctx)
		for i, cand := range slice {
			seen[cand.Domain] = true
			g.Go(func() error {
				results[i] = p.processCandidate(gctx, query, cand)
				return nil
			})
		}
		_ = g.Wait()

		for i, r := range results {
			switch {
			case r.source != nil:
				acq.Sources = append(acq.Sources, *r.source)
				events.logf("Found ingredients on %s (%s)", slice[i].Domain, r.source.ExtractionMethod)
			case r.rejected != nil:
				acq.Rejected = append(acq.Rejected, *r.rejected)
				events.logf("Discarded unverifiable extraction from %s", slice[i].Domain)
			case r.err != nil && p.enableDebugLogging:
				log.Printf("[FETCH] %s: %v", slice[i].URL, r.err)
			}
		}
	}
	return acq
}

// locateAll searches every retailer concurrently and merges the candidates in
// retailer order, keeping one candidate per unseen domain.
func (p *SourcePipeline) locateAll(ctx context.Context, query domain.ProductQuery, seen map[string]bool) []domain.CandidateURL {
	perRetailer := make([][]domain.CandidateURL, len(p.retailers))
	g, gctx := errgroup.WithContext(ctx)
	for i, retailer := range p.retailers {
		g.Go(func() error {
			perRetailer[i] = p.locator.Locate(gctx, query, retailer)
			return nil
		})
	}
	_ = g.Wait()

	taken := make(map[string]bool)
	var merged []domain.CandidateURL
	for _, cands := range perRetailer {
		for _, c := range cands {
			if c.Domain == "" || seen[c.Domain] || taken[c.Domain] {
				continue
			}
			taken[c.Domain] = true
			merged = append(merged, c)
		}
	}
	return merged
}

// processCandidate runs fetch -> extract -> validate for one URL
func (p *SourcePipeline) processCandidate(ctx context.Context, query domain.ProductQuery, cand domain.CandidateURL) candidateResult {
	ctx, span := tracer.Start(ctx, "usecase.SourcePipeline.processCandidate",
		trace.WithAttributes(attribute.String("url", cand.URL)))
	defer span.End()

	page, err := p.fetcher.Fetch(ctx, cand.URL)
	if err != nil {
		candidateOutcomes.WithLabelValues("fetch_failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return candidateResult{err: err}
	}

	base := domain.Source{
		Name:         sourceName(cand),
		URL:          cand.URL,
		Domain:       cand.Domain,
		ProductTitle: firstNonEmpty(page.Title, cand.TitleGuess),
	}

	if v, ok := p.verbatim.Extract(page); ok {
		src := base
		src.IngredientsText = v.Text
		src.ExplicitAllergenStatement = v.AllergenStatement
		src.CrossContaminationWarnings = v.CrossContaminationWarnings
		src.Confidence = v.Confidence
		src.ExtractionMethod = domain.MethodDirectPattern
		src.Validated = true
		src = p.inferencer.AnalyzeSource(src, nil, nil)

		candidateOutcomes.WithLabelValues("accepted").Inc()
		extractionMethods.WithLabelValues(string(domain.MethodDirectPattern)).Inc()
		return candidateResult{source: &src}
	}

	ext, err := p.assisted.Extract(ctx, page, query)
	if err != nil {
		outcome := "no_ingredients"
		if errors.Is(err, domain.ErrReasoningFailure) || errors.Is(err, domain.ErrMalformedResponse) {
			outcome = "reasoning_failed"
		}
		candidateOutcomes.WithLabelValues(outcome).Inc()
		span.RecordError(err)
		return candidateResult{err: err}
	}

	verdict := p.validator.Validate(ext.IngredientsText, page)
	pageText := NormalizeText(PlainText(page.Content))

	src := base
	src.IngredientsText = CollapseWhitespace(StripIngredientLabel(ext.IngredientsText))
	src.ExplicitAllergenStatement = tracedStatement(ext.ExplicitAllergenStatement, pageText)
	src.CrossContaminationWarnings = tracedStatements(ext.CrossContaminationWarnings, pageText)
	src.Confidence = verdict.Confidence
	src.ExtractionMethod = domain.MethodAssisted
	src.Validated = verdict.Accepted
	if ext.ProductTitle != "" && src.ProductTitle == "" {
		src.ProductTitle = ext.ProductTitle
	}
	src = p.inferencer.AnalyzeSource(src, ext.Allergens, ext.DietaryCompliance)

	if !verdict.Accepted {
		candidateOutcomes.WithLabelValues("rejected").Inc()
		return candidateResult{rejected: &src, err: domain.ErrExtractionRejected}
	}

	candidateOutcomes.WithLabelValues("accepted").Inc()
	extractionMethods.WithLabelValues(string(domain.MethodAssisted)).Inc()
	return candidateResult{source: &src}
}

// tracedStatement keeps a reported label statement only if the page prints it
func tracedStatement(statement, pageText string) string {
	statement = CollapseWhitespace(statement)
	if statement == "" || !strings.Contains(pageText, NormalizeText(statement)) {
		return ""
	}
	return statement
}

func tracedStatements(statements []string, pageText string) []string {
	var out []string
	for _, s := range statements {
		if s = tracedStatement(s, pageText); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sourceName(cand domain.CandidateURL) string {
	if cand.Retailer != "" && cand.Retailer != domain.GeneralWeb.Name {
		return cand.Retailer
	}
	return cand.Domain
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
