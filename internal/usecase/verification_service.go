package usecase

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

const (
	defaultOverallTimeout  = 90 * time.Second
	defaultDatabaseTimeout = 10 * time.Second
)

// VerificationConfig holds configuration for the verification service
type VerificationConfig struct {
	Policy             EscalationPolicy
	OverallTimeout     time.Duration
	DatabaseTimeout    time.Duration
	EnableDebugLogging bool
}

// VerificationService resolves one trustworthy ingredient list per product.
// It holds no per-request state; every call to Verify is independent.
type VerificationService struct {
	controller      *EscalationController
	inferencer      *AllergenInferencer
	database        domain.DatabaseSource
	validate        *validator.Validate
	policy          EscalationPolicy
	overallTimeout  time.Duration
	databaseTimeout time.Duration
}

// NewVerificationService creates a verification service. database may be nil.
func NewVerificationService(
	acquirer SourceAcquirer,
	grouper *ConsensusGrouper,
	matcher *SimilarityMatcher,
	inferencer *AllergenInferencer,
	database domain.DatabaseSource,
	config VerificationConfig,
) *VerificationService {
	overall := config.OverallTimeout
	if overall <= 0 {
		overall = defaultOverallTimeout
	}
	dbTimeout := config.DatabaseTimeout
	if dbTimeout <= 0 {
		dbTimeout = defaultDatabaseTimeout
	}
	policy := config.Policy.withDefaults()

	return &VerificationService{
		controller:      NewEscalationController(acquirer, grouper, matcher, policy, config.EnableDebugLogging),
		inferencer:      inferencer,
		database:        database,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		policy:          policy,
		overallTimeout:  overall,
		databaseTimeout: dbTimeout,
	}
}

// Verify runs the escalation engine for one product and streams progress to
// sink. Insufficient evidence is a result with RequiresManualEntry set, not an
// error. A cancelled or timed-out request returns ErrVerificationCancelled.
func (s *VerificationService) Verify(ctx context.Context, query domain.ProductQuery, sink domain.EventSink) (*domain.VerificationResult, error) {
	events := newReporter(sink)
	start := time.Now()

	if err := s.validate.Struct(query); err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
		events.failure(err)
		return nil, err
	}

	requestID := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, s.overallTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "usecase.VerificationService.Verify")
	defer span.End()
	span.SetAttributes(
		attribute.String("request_id", requestID),
		attribute.String("product", query.DisplayName()),
	)

	log.Printf("[VERIFY] %s: verifying %q (barcode %q)", requestID, query.DisplayName(), query.Barcode)
	events.logf("Verifying ingredients for %s", query.DisplayName())

	outcome, err := s.controller.Run(ctx, query, s.lookupDatabase(ctx, query), sink)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrVerificationCancelled, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")
		log.Printf("[VERIFY] %s: %v", requestID, err)
		events.failure(err)
		return nil, err
	}

	result := s.buildResult(requestID, query, outcome)
	verificationDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("sources_found", result.SourcesFound),
		attribute.Bool("requires_manual_entry", result.RequiresManualEntry),
	)

	log.Printf("[VERIFY] %s: done in %s, %d sources, consistency %.1f%%, manual=%v",
		requestID, time.Since(start).Round(time.Millisecond), result.SourcesFound,
		result.ConsistencyScore, result.RequiresManualEntry)
	events.result(result)
	return result, nil
}

// lookupDatabase starts the barcode lookup alongside phase one and returns a
// function that waits for it. It returns nil when no lookup applies.
func (s *VerificationService) lookupDatabase(ctx context.Context, query domain.ProductQuery) func() *domain.Source {
	if s.database == nil || query.Barcode == "" {
		return nil
	}

	ch := make(chan *domain.Source, 1)
	go func() {
		lookupCtx, cancel := context.WithTimeout(ctx, s.databaseTimeout)
		defer cancel()
		src, err := s.database.LookupByBarcode(lookupCtx, query.Barcode)
		if err != nil {
			log.Printf("[USDA] Lookup for %s failed: %v", query.Barcode, err)
			ch <- nil
			return
		}
		if src != nil {
			analyzed := s.inferencer.AnalyzeSource(*src, nil, nil)
			src = &analyzed
		}
		ch <- src
	}()

	return func() *domain.Source {
		select {
		case src := <-ch:
			return src
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *VerificationService) buildResult(requestID string, query domain.ProductQuery, out *EscalationOutcome) *domain.VerificationResult {
	result := &domain.VerificationResult{
		RequestID:       requestID,
		Product:         query,
		Sources:         []domain.Source{},
		Allergens:       []domain.Allergen{},
		Diets:           []domain.Diet{},
		SourcesFound:    len(out.Sources),
		MinimumRequired: s.policy.Phase1Target,
		Phase:           out.PhaseReached,
		DatabaseSource:  out.Database,
		DatabaseAgrees:  out.DatabaseAgrees,
		CompletedAt:     time.Now().UTC(),
	}
	if len(out.Sources) > 0 {
		ratio := float64(out.Largest.Size()) / float64(len(out.Sources)) * 100
		result.ConsistencyScore = math.Round(ratio*10) / 10
	}

	if out.State.Phase != domain.PhaseVerified {
		result.RequiresManualEntry = true
		result.TerminationReason = out.State.Reason
		result.PartialEvidence = append(append([]domain.Source{}, out.Sources...), out.Rejected...)
		if out.Largest.Size() > 0 {
			result.Sources = out.Largest.Members
		}
		result.EvidenceDigest = s.digest(requestID, result.PartialEvidence)
		return result
	}

	members := out.Largest.Members
	consolidated := s.inferencer.Consolidate(members)

	result.Sources = members
	result.Ingredients = preferredMember(members).IngredientsText
	result.Allergens = consolidated.Allergens
	result.AllergenOrigin = consolidated.Origin
	result.CrossContaminationWarnings = consolidated.CrossContaminationWarnings
	result.DietaryCompliance = consolidated.DietaryCompliance
	if consolidated.Diets != nil {
		result.Diets = consolidated.Diets
	}
	if result.Allergens == nil {
		result.Allergens = []domain.Allergen{}
	}
	result.EvidenceDigest = s.digest(requestID, members)
	return result
}

func (s *VerificationService) digest(requestID string, sources []domain.Source) string {
	d, err := EvidenceDigest(sources)
	if err != nil {
		log.Printf("[VERIFY] %s: evidence digest failed: %v", requestID, err)
	}
	return d
}

// preferredMember picks the consensus text: highest confidence, earliest on ties
func preferredMember(members []domain.Source) domain.Source {
	best := members[0]
	for _, m := range members[1:] {
		if m.Confidence > best.Confidence {
			best = m
		}
	}
	return best
}
