package usecase

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// Default escalation targets
const (
	defaultPhase1Target = 3
	defaultPhase2Extra  = 2
)

// EscalationState is a tagged state of the escalation state machine:
// phase1 -> verified | phase2 | terminated{reason}, phase2 -> verified | terminated{reason}.
type EscalationState struct {
	Phase  domain.Phase
	Reason string
}

// Terminal reports whether no further phase follows
func (s EscalationState) Terminal() bool {
	return s.Phase == domain.PhaseVerified || s.Phase == domain.PhaseTerminated
}

// Tally summarizes the evidence at the end of a phase
type Tally struct {
	Total             int
	Agreeing          int
	DatabaseDisagrees bool
}

// EscalationPolicy holds the guards of each phase transition
type EscalationPolicy struct {
	Phase1Target int
	Phase2Extra  int
}

// withDefaults fills unset targets
func (p EscalationPolicy) withDefaults() EscalationPolicy {
	if p.Phase1Target <= 0 {
		p.Phase1Target = defaultPhase1Target
	}
	if p.Phase2Extra <= 0 {
		p.Phase2Extra = defaultPhase2Extra
	}
	return p
}

// AfterPhaseOne decides what follows the first acquisition round.
// A unanimous trio verifies unless the database source disagrees with it.
func (p EscalationPolicy) AfterPhaseOne(t Tally) EscalationState {
	p = p.withDefaults()
	switch {
	case t.Total < p.Phase1Target:
		return EscalationState{
			Phase:  domain.PhaseTerminated,
			Reason: fmt.Sprintf("insufficient sources: found %d of %d required", t.Total, p.Phase1Target),
		}
	case t.Agreeing == t.Total && !t.DatabaseDisagrees:
		return EscalationState{Phase: domain.PhaseVerified}
	case t.Agreeing == t.Total:
		return EscalationState{
			Phase:  domain.PhaseTwo,
			Reason: "database ingredient list disagrees with the web sources",
		}
	default:
		return EscalationState{
			Phase:  domain.PhaseTwo,
			Reason: fmt.Sprintf("only %d of %d sources agree", t.Agreeing, t.Total),
		}
	}
}

// AfterPhaseTwo decides the final state once extra sources were sought.
// At most one source may dissent: 4 of 5, or 3 of 4 when only 4 were found.
func (p EscalationPolicy) AfterPhaseTwo(t Tally) EscalationState {
	p = p.withDefaults()
	if t.Total <= p.Phase1Target {
		return EscalationState{
			Phase:  domain.PhaseTerminated,
			Reason: fmt.Sprintf("no additional sources found; %d of %d agree", t.Agreeing, t.Total),
		}
	}
	required := p.RequiredMajority(t.Total)
	if t.Agreeing >= required {
		return EscalationState{Phase: domain.PhaseVerified}
	}
	return EscalationState{
		Phase:  domain.PhaseTerminated,
		Reason: fmt.Sprintf("no majority: %d of %d agree, %d required", t.Agreeing, t.Total, required),
	}
}

// RequiredMajority is the agreeing count needed among total phase-two sources
func (p EscalationPolicy) RequiredMajority(total int) int {
	return total - 1
}

// Acquisition is the outcome of one acquisition round
type Acquisition struct {
	Sources  []domain.Source
	Rejected []domain.Source
}

// SourceAcquirer finds up to need new sources on domains not yet in seen,
// recording every domain it tries in seen.
type SourceAcquirer interface {
	Acquire(ctx context.Context, query domain.ProductQuery, need int, seen map[string]bool, sink domain.EventSink) Acquisition
}

// EscalationOutcome is everything the controller learned in one run
type EscalationOutcome struct {
	State          EscalationState
	PhaseReached   domain.Phase
	Sources        []domain.Source
	Rejected       []domain.Source
	Groups         []domain.ConsensusGroup
	Largest        domain.ConsensusGroup
	Database       *domain.Source
	DatabaseAgrees *bool
}

// EscalationController drives acquisition and grouping through the phases,
// asking for more evidence only when the current evidence is ambiguous.
type EscalationController struct {
	acquirer           SourceAcquirer
	grouper            *ConsensusGrouper
	matcher            *SimilarityMatcher
	policy             EscalationPolicy
	enableDebugLogging bool
}

// NewEscalationController creates a controller
func NewEscalationController(acquirer SourceAcquirer, grouper *ConsensusGrouper, matcher *SimilarityMatcher, policy EscalationPolicy, enableDebugLogging bool) *EscalationController {
	return &EscalationController{
		acquirer:           acquirer,
		grouper:            grouper,
		matcher:            matcher,
		policy:             policy.withDefaults(),
		enableDebugLogging: enableDebugLogging,
	}
}

// Run executes phase one and, if its guard says so, phase two. The database
// callback may be nil; it is consulted once phase-one sources are grouped.
// A cancelled context returns its error and no outcome.
func (c *EscalationController) Run(ctx context.Context, query domain.ProductQuery, database func() *domain.Source, sink domain.EventSink) (*EscalationOutcome, error) {
	events := newReporter(sink)
	seen := make(map[string]bool)
	out := &EscalationOutcome{PhaseReached: domain.PhaseOne}

	phaseCtx, span := tracer.Start(ctx, "usecase.EscalationController.phase1")
	first := c.acquirer.Acquire(phaseCtx, query, c.policy.Phase1Target, seen, sink)
	span.SetAttributes(attribute.Int("sources", len(first.Sources)))
	span.End()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out.Sources = append(out.Sources, first.Sources...)
	out.Rejected = append(out.Rejected, first.Rejected...)
	events.progress(len(out.Sources), c.policy.Phase1Target)

	if err := c.regroup(ctx, out); err != nil {
		return nil, err
	}
	if database != nil {
		out.Database = database()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out.State = c.policy.AfterPhaseOne(c.tally(out))
	log.Printf("[ESCALATE] Phase 1 for %q: %d sources, largest group %d -> %s %s",
		query.DisplayName(), len(out.Sources), out.Largest.Size(), out.State.Phase, out.State.Reason)

	if out.State.Phase == domain.PhaseTwo {
		events.logf("Escalating to phase 2: %s", out.State.Reason)
		out.PhaseReached = domain.PhaseTwo

		phaseCtx, span := tracer.Start(ctx, "usecase.EscalationController.phase2")
		second := c.acquirer.Acquire(phaseCtx, query, c.policy.Phase2Extra, seen, sink)
		span.SetAttributes(attribute.Int("sources", len(second.Sources)))
		span.End()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out.Sources = append(out.Sources, second.Sources...)
		out.Rejected = append(out.Rejected, second.Rejected...)
		events.progress(len(out.Sources), c.policy.Phase1Target+c.policy.Phase2Extra)

		if err := c.regroup(ctx, out); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out.State = c.policy.AfterPhaseTwo(c.tally(out))
		log.Printf("[ESCALATE] Phase 2 for %q: %d sources, largest group %d -> %s %s",
			query.DisplayName(), len(out.Sources), out.Largest.Size(), out.State.Phase, out.State.Reason)
	}

	if out.Database != nil && out.Largest.Size() > 0 {
		agrees := c.matcher.Match(out.Database.IngredientsText, out.Largest.Representative.IngredientsText)
		out.DatabaseAgrees = &agrees
	}

	phaseOutcomes.WithLabelValues(string(out.State.Phase), string(out.PhaseReached)).Inc()
	return out, nil
}

func (c *EscalationController) regroup(ctx context.Context, out *EscalationOutcome) error {
	groups, err := c.grouper.Group(ctx, out.Sources)
	if err != nil {
		return err
	}
	out.Groups = groups
	out.Largest = LargestGroup(groups)
	return nil
}

func (c *EscalationController) tally(out *EscalationOutcome) Tally {
	t := Tally{Total: len(out.Sources), Agreeing: out.Largest.Size()}
	if out.Database != nil && out.Largest.Size() > 0 {
		t.DatabaseDisagrees = !c.matcher.Match(out.Database.IngredientsText, out.Largest.Representative.IngredientsText)
	}
	return t
}
