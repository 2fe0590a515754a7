package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// MockAcquirer is a mock implementation of SourceAcquirer that returns one
// scripted round per call.
type MockAcquirer struct {
	mu     sync.Mutex
	rounds []Acquisition
	needs  []int
	seen   []map[string]bool
}

func (m *MockAcquirer) Acquire(ctx context.Context, query domain.ProductQuery, need int, seen map[string]bool, sink domain.EventSink) Acquisition {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]bool, len(seen))
	for d := range seen {
		snapshot[d] = true
	}
	m.seen = append(m.seen, snapshot)
	m.needs = append(m.needs, need)

	call := len(m.needs) - 1
	if call >= len(m.rounds) {
		return Acquisition{}
	}
	round := m.rounds[call]
	for _, s := range round.Sources {
		seen[s.Domain] = true
	}
	return round
}

func (m *MockAcquirer) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.needs)
}

const (
	agreedList  = "Water, Barley, Malt, Hops, Yeast"
	otherList   = "Water, Rice, Corn, Hops"
	anotherList = "Peanuts, Sugar, Palm Oil, Salt"
)

func sourcesOf(lists ...string) []domain.Source {
	var out []domain.Source
	for i, l := range lists {
		out = append(out, testSource(string(rune('a'+i))+".example.com", l, 90))
	}
	return out
}

func newTestController(acq SourceAcquirer) *EscalationController {
	matcher := NewSimilarityMatcher(SimilarityConfig{})
	return NewEscalationController(acq, NewConsensusGrouper(matcher, nil, false), matcher, EscalationPolicy{}, false)
}

func TestEscalationPolicy(t *testing.T) {
	p := EscalationPolicy{}

	tests := []struct {
		name      string
		phaseTwo  bool
		tally     Tally
		wantPhase domain.Phase
	}{
		{"unanimous trio verifies", false, Tally{Total: 3, Agreeing: 3}, domain.PhaseVerified},
		{"too few sources terminate", false, Tally{Total: 2, Agreeing: 2}, domain.PhaseTerminated},
		{"split trio escalates", false, Tally{Total: 3, Agreeing: 2}, domain.PhaseTwo},
		{"database disagreement escalates", false, Tally{Total: 3, Agreeing: 3, DatabaseDisagrees: true}, domain.PhaseTwo},
		{"four of five verifies", true, Tally{Total: 5, Agreeing: 4}, domain.PhaseVerified},
		{"three of four verifies", true, Tally{Total: 4, Agreeing: 3}, domain.PhaseVerified},
		{"three of five terminates", true, Tally{Total: 5, Agreeing: 3}, domain.PhaseTerminated},
		{"no new sources terminates", true, Tally{Total: 3, Agreeing: 2}, domain.PhaseTerminated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got EscalationState
			if tt.phaseTwo {
				got = p.AfterPhaseTwo(tt.tally)
			} else {
				got = p.AfterPhaseOne(tt.tally)
			}
			if got.Phase != tt.wantPhase {
				t.Errorf("phase = %q, want %q (reason %q)", got.Phase, tt.wantPhase, got.Reason)
			}
			if got.Phase == domain.PhaseTerminated && got.Reason == "" {
				t.Error("terminated state has no reason")
			}
		})
	}
}

func TestEscalationPolicy_InsufficientReason(t *testing.T) {
	got := EscalationPolicy{}.AfterPhaseOne(Tally{Total: 1, Agreeing: 1})
	if !strings.Contains(got.Reason, "found 1 of 3") {
		t.Errorf("Reason = %q, want it to mention found 1 of 3", got.Reason)
	}
}

func TestEscalationController_Run(t *testing.T) {
	query := domain.ProductQuery{Brand: "Acme", Name: "Lager"}

	t.Run("unanimous phase one never starts phase two", func(t *testing.T) {
		acq := &MockAcquirer{rounds: []Acquisition{{Sources: sourcesOf(agreedList, agreedList, agreedList)}}}

		out, err := newTestController(acq).Run(context.Background(), query, nil, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if out.State.Phase != domain.PhaseVerified {
			t.Errorf("State = %+v, want verified", out.State)
		}
		if out.PhaseReached != domain.PhaseOne {
			t.Errorf("PhaseReached = %q, want phase1", out.PhaseReached)
		}
		if acq.calls() != 1 {
			t.Errorf("acquirer called %d times, want 1", acq.calls())
		}
		if acq.needs[0] != 3 {
			t.Errorf("phase one need = %d, want 3", acq.needs[0])
		}
	})

	t.Run("single source terminates with reason", func(t *testing.T) {
		acq := &MockAcquirer{rounds: []Acquisition{{Sources: sourcesOf(agreedList)}}}

		out, err := newTestController(acq).Run(context.Background(), query, nil, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if out.State.Phase != domain.PhaseTerminated || out.State.Reason == "" {
			t.Errorf("State = %+v, want terminated with reason", out.State)
		}
		if acq.calls() != 1 {
			t.Errorf("acquirer called %d times, want 1", acq.calls())
		}
	})

	t.Run("split trio resolved by phase two", func(t *testing.T) {
		acq := &MockAcquirer{rounds: []Acquisition{
			{Sources: sourcesOf(agreedList, agreedList, otherList)},
			{Sources: []domain.Source{
				testSource("d.example.com", agreedList, 90),
				testSource("e.example.com", agreedList, 90),
			}},
		}}

		out, err := newTestController(acq).Run(context.Background(), query, nil, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if out.State.Phase != domain.PhaseVerified {
			t.Errorf("State = %+v, want verified", out.State)
		}
		if out.PhaseReached != domain.PhaseTwo {
			t.Errorf("PhaseReached = %q, want phase2", out.PhaseReached)
		}
		if out.Largest.Size() != 4 || len(out.Sources) != 5 {
			t.Errorf("largest %d of %d, want 4 of 5", out.Largest.Size(), len(out.Sources))
		}
		if acq.needs[1] != 2 {
			t.Errorf("phase two need = %d, want 2", acq.needs[1])
		}
		for _, d := range []string{"a.example.com", "b.example.com", "c.example.com"} {
			if !acq.seen[1][d] {
				t.Errorf("phase two may retry %s", d)
			}
		}
	})

	t.Run("phase two without majority terminates", func(t *testing.T) {
		acq := &MockAcquirer{rounds: []Acquisition{
			{Sources: sourcesOf(agreedList, agreedList, otherList)},
			{Sources: []domain.Source{
				testSource("d.example.com", anotherList, 90),
				testSource("e.example.com", otherList, 90),
			}},
		}}

		out, err := newTestController(acq).Run(context.Background(), query, nil, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if out.State.Phase != domain.PhaseTerminated {
			t.Errorf("State = %+v, want terminated", out.State)
		}
	})

	t.Run("phase two with no new sources terminates", func(t *testing.T) {
		acq := &MockAcquirer{rounds: []Acquisition{
			{Sources: sourcesOf(agreedList, agreedList, otherList)},
		}}

		out, err := newTestController(acq).Run(context.Background(), query, nil, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if out.State.Phase != domain.PhaseTerminated {
			t.Errorf("State = %+v, want terminated", out.State)
		}
		if acq.calls() != 2 {
			t.Errorf("acquirer called %d times, want 2", acq.calls())
		}
	})

	t.Run("database disagreement forces phase two", func(t *testing.T) {
		acq := &MockAcquirer{rounds: []Acquisition{
			{Sources: sourcesOf(agreedList, agreedList, agreedList)},
			{Sources: []domain.Source{testSource("d.example.com", agreedList, 90)}},
		}}
		db := &domain.Source{Name: "USDA FoodData Central", IngredientsText: anotherList}

		out, err := newTestController(acq).Run(context.Background(), query, func() *domain.Source { return db }, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if out.PhaseReached != domain.PhaseTwo {
			t.Errorf("PhaseReached = %q, want phase2", out.PhaseReached)
		}
		if out.State.Phase != domain.PhaseVerified {
			t.Errorf("State = %+v, want verified", out.State)
		}
		if out.DatabaseAgrees == nil || *out.DatabaseAgrees {
			t.Errorf("DatabaseAgrees = %v, want false", out.DatabaseAgrees)
		}
	})

	t.Run("agreeing database does not escalate", func(t *testing.T) {
		acq := &MockAcquirer{rounds: []Acquisition{{Sources: sourcesOf(agreedList, agreedList, agreedList)}}}
		db := &domain.Source{IngredientsText: strings.ToUpper(agreedList)}

		out, err := newTestController(acq).Run(context.Background(), query, func() *domain.Source { return db }, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if acq.calls() != 1 {
			t.Errorf("acquirer called %d times, want 1", acq.calls())
		}
		if out.DatabaseAgrees == nil || !*out.DatabaseAgrees {
			t.Errorf("DatabaseAgrees = %v, want true", out.DatabaseAgrees)
		}
	})

	t.Run("cancelled context returns no outcome", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		acq := &MockAcquirer{rounds: []Acquisition{{Sources: sourcesOf(agreedList, agreedList, agreedList)}}}

		out, err := newTestController(acq).Run(ctx, query, nil, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if out != nil {
			t.Errorf("outcome = %+v, want nil", out)
		}
	})

	t.Run("progress events report found and required", func(t *testing.T) {
		acq := &MockAcquirer{rounds: []Acquisition{{Sources: sourcesOf(agreedList, agreedList)}}}
		var events []domain.ProgressEvent
		sink := domain.EventSinkFunc(func(e domain.ProgressEvent) { events = append(events, e) })

		if _, err := newTestController(acq).Run(context.Background(), query, nil, sink); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		var progress []domain.ProgressEvent
		for _, e := range events {
			if e.Type == domain.EventProgress {
				progress = append(progress, e)
			}
		}
		if len(progress) != 1 || progress[0].Found != 2 || progress[0].Required != 3 {
			t.Errorf("progress events = %+v, want one with 2 of 3", progress)
		}
	})

	t.Run("cancellation during phase two grouping returns no outcome", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		acq := &MockAcquirer{rounds: []Acquisition{
			{Sources: sourcesOf(beerList, beerList, anotherList)},
			{Sources: []domain.Source{
				testSource("d.example.com", beerPlusSugar, 90),
				testSource("e.example.com", beerPlusSugar, 90),
			}},
		}}
		adj := AdjudicatorFunc(func(ctx context.Context, reference, candidate domain.Source) (bool, error) {
			if acq.calls() >= 2 {
				cancel()
				return false, ctx.Err()
			}
			return true, nil
		})
		matcher := NewSimilarityMatcher(SimilarityConfig{})
		controller := NewEscalationController(acq, NewConsensusGrouper(matcher, adj, false), matcher, EscalationPolicy{}, false)

		out, err := controller.Run(ctx, query, nil, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if out != nil {
			t.Errorf("outcome = %+v, want nil", out)
		}
	})
}
