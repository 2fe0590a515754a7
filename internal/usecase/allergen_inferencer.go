package usecase

import (
	_ "embed"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

var (
	statementLabelRegex = regexp.MustCompile(`(?i)^\s*(?:allergens?(?:\s+information)?|contains)\s*:?\s*`)
	parentheticalRegex  = regexp.MustCompile(`\([^)]*\)`)
	allergenItemSplit   = regexp.MustCompile(`(?i)\s*(?:,|;|/|&|\band\b)\s*`)
)

// Lexicon holds trigger-word families for allergens and diets
type Lexicon struct {
	Allergens  map[string][]string `yaml:"allergens"`
	Exclusions map[string][]string `yaml:"exclusions"`
	Diets      map[string][]string `yaml:"diets"`
}

// ParseLexicon decodes and checks a YAML lexicon
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	for name := range lex.Allergens {
		if _, ok := domain.ParseAllergen(name); !ok {
			return nil, fmt.Errorf("lexicon allergen %q is not a major allergen", name)
		}
	}
	for name := range lex.Diets {
		if _, ok := domain.ParseDiet(name); !ok {
			return nil, fmt.Errorf("lexicon diet %q is not supported", name)
		}
	}
	return &lex, nil
}

// triggerMatcher matches one trigger word, ignoring phrases that neutralize it
type triggerMatcher struct {
	trigger    string
	pattern    *regexp.Regexp
	exclusions []*regexp.Regexp
}

func (m triggerMatcher) matches(normalized string) bool {
	for _, ex := range m.exclusions {
		normalized = ex.ReplaceAllString(normalized, " ")
	}
	return m.pattern.MatchString(normalized)
}

// TriggerMatch records which ingredient fragment fired which trigger word
type TriggerMatch struct {
	Trigger    string
	Ingredient string
}

// Consolidation is the allergen and diet classification across agreeing sources
type Consolidation struct {
	Allergens                  []domain.Allergen
	Origin                     domain.AllergenOrigin
	CrossContaminationWarnings []string
	DietaryCompliance          map[domain.Diet]domain.DietCompliance
	Diets                      []domain.Diet
}

// AllergenInferencer derives allergens and diet compliance from ingredient text
// and label statements.
type AllergenInferencer struct {
	allergens          map[domain.Allergen][]triggerMatcher
	diets              map[domain.Diet][]triggerMatcher
	enableDebugLogging bool
}

// NewAllergenInferencer builds an inferencer from the embedded lexicon
func NewAllergenInferencer(enableDebugLogging bool) (*AllergenInferencer, error) {
	lex, err := ParseLexicon(defaultLexicon)
	if err != nil {
		return nil, err
	}
	return NewAllergenInferencerWithLexicon(lex, enableDebugLogging), nil
}

// NewAllergenInferencerWithLexicon builds an inferencer from a parsed lexicon
func NewAllergenInferencerWithLexicon(lex *Lexicon, enableDebugLogging bool) *AllergenInferencer {
	inf := &AllergenInferencer{
		allergens:          make(map[domain.Allergen][]triggerMatcher),
		diets:              make(map[domain.Diet][]triggerMatcher),
		enableDebugLogging: enableDebugLogging,
	}
	for name, triggers := range lex.Allergens {
		a, _ := domain.ParseAllergen(name)
		inf.allergens[a] = compileTriggers(triggers, lex.Exclusions)
	}
	for name, triggers := range lex.Diets {
		d, _ := domain.ParseDiet(name)
		inf.diets[d] = compileTriggers(triggers, lex.Exclusions)
	}
	return inf
}

func compileTriggers(triggers []string, exclusions map[string][]string) []triggerMatcher {
	matchers := make([]triggerMatcher, 0, len(triggers))
	for _, t := range triggers {
		t = lexiconNormalize(t)
		m := triggerMatcher{
			trigger: t,
			pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(t) + `(?:s|es)?\b`),
		}
		for _, word := range strings.Fields(t) {
			for _, phrase := range exclusions[word] {
				m.exclusions = append(m.exclusions,
					regexp.MustCompile(`\b`+regexp.QuoteMeta(lexiconNormalize(phrase))+`\b`))
			}
		}
		matchers = append(matchers, m)
	}
	return matchers
}

// lexiconNormalize folds case, accents and hyphens so "Milk-Free" reads "milk free"
func lexiconNormalize(s string) string {
	s = strings.NewReplacer("-", " ", "’", "'").Replace(s)
	return NormalizeText(s)
}

// InferAllergens returns the major allergens whose trigger words appear in the list
func (a *AllergenInferencer) InferAllergens(ingredients string) map[domain.Allergen][]TriggerMatch {
	found := make(map[domain.Allergen][]TriggerMatch)
	fragments := SplitIngredients(ingredients)
	for _, allergen := range domain.MajorAllergens {
		for _, fragment := range fragments {
			if m, ok := firstMatch(a.allergens[allergen], fragment); ok {
				found[allergen] = append(found[allergen], m)
			}
		}
	}
	return found
}

// EvaluateDiets judges each supported diet from the list alone
func (a *AllergenInferencer) EvaluateDiets(ingredients string) map[domain.Diet]domain.DietCompliance {
	fragments := SplitIngredients(ingredients)
	result := make(map[domain.Diet]domain.DietCompliance, len(domain.SupportedDiets))

	for _, diet := range domain.SupportedDiets {
		var causes []string
		for _, fragment := range fragments {
			if m, ok := firstMatch(a.diets[diet], fragment); ok {
				causes = appendUnique(causes, m.Ingredient)
			}
		}
		if len(causes) == 0 {
			result[diet] = domain.DietCompliance{Compliant: true}
			continue
		}
		result[diet] = domain.DietCompliance{
			Compliant:        false,
			Reason:           "Contains " + strings.Join(causes, ", "),
			CauseIngredients: causes,
		}
	}
	return result
}

func firstMatch(matchers []triggerMatcher, fragment string) (TriggerMatch, bool) {
	normalized := lexiconNormalize(fragment)
	for _, m := range matchers {
		if m.matches(normalized) {
			return TriggerMatch{Trigger: m.trigger, Ingredient: fragment}, true
		}
	}
	return TriggerMatch{}, false
}

// ParseAllergenStatement maps a label statement such as "Contains: Milk, Soy"
// to major allergens. Labels outside the nine majors are dropped and logged.
func (a *AllergenInferencer) ParseAllergenStatement(statement string) []domain.Allergen {
	statement = statementLabelRegex.ReplaceAllString(statement, "")
	var out []domain.Allergen
	for _, item := range splitAllergenItems(statement) {
		allergen, ok := domain.ParseAllergen(item)
		if !ok {
			log.Printf("[ALLERGEN] Dropped non-major allergen %q from statement", item)
			continue
		}
		out = appendAllergen(out, allergen)
	}
	return out
}

func splitAllergenItems(text string) []string {
	text = parentheticalRegex.ReplaceAllString(text, " ")
	var items []string
	for _, item := range allergenItemSplit.Split(text, -1) {
		item = strings.TrimSpace(strings.Trim(item, " ."))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// AnalyzeSource fills a source's allergens, diets and compliance. Reported
// allergens without a label statement are accepted only when a trigger word
// for them appears in the ingredient text. Pattern-detected diet conflicts
// override a reported compliant verdict.
func (a *AllergenInferencer) AnalyzeSource(src domain.Source, reportedAllergens []string, reportedDiets map[domain.Diet]domain.DietCompliance) domain.Source {
	inferred := a.InferAllergens(src.IngredientsText)
	explicit := a.ParseAllergenStatement(src.ExplicitAllergenStatement)

	var allergens []domain.Allergen
	for _, al := range explicit {
		allergens = appendAllergen(allergens, al)
	}
	for al := range inferred {
		allergens = appendAllergen(allergens, al)
	}
	for _, label := range reportedAllergens {
		al, ok := domain.ParseAllergen(label)
		if !ok {
			log.Printf("[ALLERGEN] Dropped non-major allergen %q reported for %s", label, src.URL)
			continue
		}
		if _, ok := inferred[al]; !ok && !containsAllergen(explicit, al) {
			if a.enableDebugLogging {
				log.Printf("[ALLERGEN] Ignored %s for %s: no trigger word in ingredients", al, src.URL)
			}
			continue
		}
		allergens = appendAllergen(allergens, al)
	}
	src.Allergens = sortAllergens(allergens)

	compliance := a.EvaluateDiets(src.IngredientsText)
	for diet, reported := range reportedDiets {
		detected, ok := compliance[diet]
		if !ok || !detected.Compliant || reported.Compliant {
			continue
		}
		compliance[diet] = a.withSpecificCause(reported, src.IngredientsText)
	}
	src.DietaryCompliance = compliance
	src.Diets = compliantDiets(compliance)
	return src
}

// withSpecificCause makes sure a non-compliant verdict names ingredients from
// the list rather than a generic category.
func (a *AllergenInferencer) withSpecificCause(v domain.DietCompliance, ingredients string) domain.DietCompliance {
	if len(v.CauseIngredients) > 0 {
		return v
	}
	reason := strings.ToLower(v.Reason)
	for _, fragment := range SplitIngredients(ingredients) {
		if strings.Contains(reason, strings.ToLower(fragment)) {
			v.CauseIngredients = append(v.CauseIngredients, fragment)
		}
	}
	if v.Reason == "" {
		v.Reason = "Not compliant"
	}
	return v
}

// Consolidate merges the classification of agreeing sources. Allergens are the
// union; a diet is compliant only if every source marks it compliant. Sources
// that were never analyzed are classified from their own text first.
func (a *AllergenInferencer) Consolidate(sources []domain.Source) Consolidation {
	c := Consolidation{DietaryCompliance: make(map[domain.Diet]domain.DietCompliance)}
	if len(sources) == 0 {
		return c
	}

	analyzed := make([]domain.Source, len(sources))
	for i, src := range sources {
		if src.DietaryCompliance == nil {
			known := src.Allergens
			src = a.AnalyzeSource(src, nil, nil)
			for _, al := range known {
				src.Allergens = appendAllergen(src.Allergens, al)
			}
		}
		analyzed[i] = src
	}
	sources = analyzed

	var allergens []domain.Allergen
	explicit := false
	seenWarnings := make(map[string]bool)
	for _, src := range sources {
		for _, al := range src.Allergens {
			allergens = appendAllergen(allergens, al)
		}
		if src.ExplicitAllergenStatement != "" {
			explicit = true
		}
		for _, w := range src.CrossContaminationWarnings {
			key := strings.ToLower(strings.TrimSpace(w))
			if key != "" && !seenWarnings[key] {
				seenWarnings[key] = true
				c.CrossContaminationWarnings = append(c.CrossContaminationWarnings, w)
			}
		}
	}
	c.Allergens = sortAllergens(allergens)
	switch {
	case explicit:
		c.Origin = domain.AllergensExplicit
	case len(c.Allergens) > 0:
		c.Origin = domain.AllergensInferred
	}

	for _, diet := range domain.SupportedDiets {
		verdict := domain.DietCompliance{Compliant: true}
		var reasons []string
		for _, src := range sources {
			v, ok := src.DietaryCompliance[diet]
			if !ok || v.Compliant {
				continue
			}
			verdict.Compliant = false
			if v.Reason != "" {
				reasons = appendUnique(reasons, v.Reason)
			}
			for _, cause := range v.CauseIngredients {
				verdict.CauseIngredients = appendUnique(verdict.CauseIngredients, cause)
			}
		}
		verdict.Reason = strings.Join(reasons, "; ")
		c.DietaryCompliance[diet] = verdict
	}
	c.Diets = compliantDiets(c.DietaryCompliance)

	if a.enableDebugLogging {
		log.Printf("[ALLERGEN] Consolidated %d sources: allergens=%v (%s) diets=%v",
			len(sources), c.Allergens, c.Origin, c.Diets)
	}
	return c
}

func compliantDiets(compliance map[domain.Diet]domain.DietCompliance) []domain.Diet {
	var diets []domain.Diet
	for _, d := range domain.SupportedDiets {
		if v, ok := compliance[d]; ok && v.Compliant {
			diets = append(diets, d)
		}
	}
	return diets
}

func appendAllergen(list []domain.Allergen, a domain.Allergen) []domain.Allergen {
	if containsAllergen(list, a) {
		return list
	}
	return append(list, a)
}

func containsAllergen(list []domain.Allergen, a domain.Allergen) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

// sortAllergens orders allergens the way labels list the nine majors
func sortAllergens(list []domain.Allergen) []domain.Allergen {
	order := make(map[domain.Allergen]int, len(domain.MajorAllergens))
	for i, a := range domain.MajorAllergens {
		order[a] = i
	}
	out := append([]domain.Allergen{}, list...)
	sort.Slice(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })
	return out
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if strings.EqualFold(x, s) {
			return list
		}
	}
	return append(list, s)
}
