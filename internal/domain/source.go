package domain

import "time"

// ExtractionMethod records how a source's ingredient text was obtained
type ExtractionMethod string

const (
	MethodDirectPattern ExtractionMethod = "direct-pattern"
	MethodAssisted      ExtractionMethod = "assisted"
	MethodDatabase      ExtractionMethod = "database"
)

// DietCompliance is a per-diet verdict. Non-compliant verdicts name the
// ingredients responsible.
type DietCompliance struct {
	Compliant        bool     `json:"compliant"`
	Reason           string   `json:"reason,omitempty"`
	CauseIngredients []string `json:"causeIngredients,omitempty"`
}

// Source is one piece of evidence: an ingredient list traced to a single page
// or database record.
type Source struct {
	Name                       string                  `json:"name"`
	URL                        string                  `json:"url"`
	Domain                     string                  `json:"domain"`
	ProductTitle               string                  `json:"productTitle,omitempty"`
	IngredientsText            string                  `json:"ingredients"`
	ExplicitAllergenStatement  string                  `json:"explicitAllergenStatement,omitempty"`
	CrossContaminationWarnings []string                `json:"crossContaminationWarnings,omitempty"`
	Allergens                  []Allergen              `json:"allergens"`
	Diets                      []Diet                  `json:"diets"`
	DietaryCompliance          map[Diet]DietCompliance `json:"dietaryCompliance,omitempty"`
	Confidence                 int                     `json:"confidence"`
	ExtractionMethod           ExtractionMethod        `json:"extractionMethod"`
	Validated                  bool                    `json:"validated"`
}

// ConsensusGroup is a set of sources judged to describe the same formulation.
// Representative is always the first member.
type ConsensusGroup struct {
	Members        []Source `json:"members"`
	Representative Source   `json:"representative"`
}

// Size returns the number of members
func (g ConsensusGroup) Size() int {
	return len(g.Members)
}

// Phase names an escalation state as reported in results
type Phase string

const (
	PhaseOne        Phase = "phase1"
	PhaseTwo        Phase = "phase2"
	PhaseVerified   Phase = "verified"
	PhaseTerminated Phase = "terminated"
)

// AllergenOrigin says whether consolidated allergens came from a label statement
type AllergenOrigin string

const (
	AllergensExplicit AllergenOrigin = "explicit"
	AllergensInferred AllergenOrigin = "inferred"
)

// VerificationResult is the terminal output of one verification request.
// It is built once and not mutated after being returned.
type VerificationResult struct {
	RequestID                  string                  `json:"requestId"`
	Product                    ProductQuery            `json:"product"`
	Sources                    []Source                `json:"sources"`
	ConsistencyScore           float64                 `json:"consistencyScore"`
	Ingredients                string                  `json:"ingredients,omitempty"`
	Allergens                  []Allergen              `json:"allergens"`
	AllergenOrigin             AllergenOrigin          `json:"allergenOrigin,omitempty"`
	CrossContaminationWarnings []string                `json:"crossContaminationWarnings,omitempty"`
	Diets                      []Diet                  `json:"diets"`
	DietaryCompliance          map[Diet]DietCompliance `json:"dietaryCompliance,omitempty"`
	SourcesFound               int                     `json:"sourcesFound"`
	MinimumRequired            int                     `json:"minimumRequired"`
	RequiresManualEntry        bool                    `json:"requiresManualEntry"`
	Phase                      Phase                   `json:"phase"`
	TerminationReason          string                  `json:"terminationReason,omitempty"`
	PartialEvidence            []Source                `json:"partialEvidence,omitempty"`
	DatabaseSource             *Source                 `json:"databaseSource,omitempty"`
	DatabaseAgrees             *bool                   `json:"databaseAgrees,omitempty"`
	EvidenceDigest             string                  `json:"evidenceDigest,omitempty"`
	CompletedAt                time.Time               `json:"completedAt"`
}
