package usecase

import (
	"context"
	"log"
	"sort"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// borderlineMargin widens the similarity threshold for representative pairs
// that are close enough to be worth adjudicating.
const borderlineMargin = 0.15

// ConsensusGrouper clusters sources by formulation. A greedy lexical pass
// proposes groups; every pairing that is not a perfect lexical match is then
// confirmed or refuted by the adjudicator, and groups are rebuilt from the
// confirmed edges.
type ConsensusGrouper struct {
	matcher            *SimilarityMatcher
	adjudicator        domain.Adjudicator
	enableDebugLogging bool
}

// NewConsensusGrouper creates a grouper. A nil adjudicator keeps lexical verdicts.
func NewConsensusGrouper(matcher *SimilarityMatcher, adjudicator domain.Adjudicator, enableDebugLogging bool) *ConsensusGrouper {
	return &ConsensusGrouper{
		matcher:            matcher,
		adjudicator:        adjudicator,
		enableDebugLogging: enableDebugLogging,
	}
}

// unionFind is a disjoint-set forest over source indices
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

// union joins the sets of a and b, keeping the lower index as root so the
// earliest source stays representative.
func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
}

// Group partitions sources into disjoint consensus groups, largest first.
// Ties are broken by total confidence, then by earliest member. A context
// that ends during adjudication returns its error and no groups.
func (g *ConsensusGrouper) Group(ctx context.Context, sources []domain.Source) ([]domain.ConsensusGroup, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "usecase.ConsensusGrouper.Group")
	defer span.End()

	uf := newUnionFind(len(sources))

	// join the first lexically matching group the adjudicator confirms
	var reps []int
	for i, src := range sources {
		joined := false
		for _, r := range reps {
			if !g.matcher.Match(sources[r].IngredientsText, src.IngredientsText) {
				continue
			}
			same, err := g.confirm(ctx, sources[r], src, true)
			if err != nil {
				return nil, err
			}
			if same {
				uf.union(r, i)
				joined = true
				break
			}
		}
		if !joined {
			reps = append(reps, i)
		}
	}

	// adjudicate borderline representative pairs the lexical pass kept apart
	for x := 0; x < len(reps); x++ {
		for y := x + 1; y < len(reps); y++ {
			a, b := sources[reps[x]], sources[reps[y]]
			if uf.find(reps[x]) == uf.find(reps[y]) {
				continue
			}
			score := g.matcher.Compare(a.IngredientsText, b.IngredientsText)
			if score.Ratio < score.Threshold-borderlineMargin {
				continue
			}
			same, err := g.confirm(ctx, a, b, false)
			if err != nil {
				return nil, err
			}
			if same {
				uf.union(reps[x], reps[y])
			}
		}
	}

	return buildGroups(sources, uf), nil
}

// confirm asks the adjudicator about a pairing. Perfect lexical matches skip
// adjudication. Adjudicator failures fall back to the lexical verdict unless
// ctx itself has ended.
func (g *ConsensusGrouper) confirm(ctx context.Context, reference, candidate domain.Source, lexicalVerdict bool) (bool, error) {
	if g.matcher.Compare(reference.IngredientsText, candidate.IngredientsText).Identical {
		return true, nil
	}
	if g.adjudicator == nil {
		return lexicalVerdict, nil
	}

	same, err := g.adjudicator.SameFormulation(ctx, reference, candidate)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		log.Printf("[CONSENSUS] Adjudication failed for %s vs %s, keeping lexical verdict: %v",
			reference.Domain, candidate.Domain, err)
		return lexicalVerdict, nil
	}
	if g.enableDebugLogging || same != lexicalVerdict {
		log.Printf("[CONSENSUS] Adjudicated %s vs %s: same=%v (lexical=%v)",
			reference.Domain, candidate.Domain, same, lexicalVerdict)
	}
	return same, nil
}

func buildGroups(sources []domain.Source, uf *unionFind) []domain.ConsensusGroup {
	byRoot := make(map[int][]int)
	var roots []int
	for i := range sources {
		r := uf.find(i)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], i)
	}

	groups := make([]domain.ConsensusGroup, 0, len(roots))
	first := make([]int, 0, len(roots))
	for _, r := range roots {
		idx := byRoot[r]
		members := make([]domain.Source, len(idx))
		for j, i := range idx {
			members[j] = sources[i]
		}
		groups = append(groups, domain.ConsensusGroup{Members: members, Representative: members[0]})
		first = append(first, idx[0])
	}

	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ga, gb := groups[order[a]], groups[order[b]]
		if ga.Size() != gb.Size() {
			return ga.Size() > gb.Size()
		}
		ca, cb := totalConfidence(ga), totalConfidence(gb)
		if ca != cb {
			return ca > cb
		}
		return first[order[a]] < first[order[b]]
	})

	sorted := make([]domain.ConsensusGroup, len(groups))
	for i, o := range order {
		sorted[i] = groups[o]
	}
	return sorted
}

func totalConfidence(g domain.ConsensusGroup) int {
	total := 0
	for _, m := range g.Members {
		total += m.Confidence
	}
	return total
}

// LargestGroup returns the working consensus, or an empty group
func LargestGroup(groups []domain.ConsensusGroup) domain.ConsensusGroup {
	if len(groups) == 0 {
		return domain.ConsensusGroup{}
	}
	return groups[0]
}
