package usecase

import (
	"reflect"
	"strings"
	"testing"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

func newTestInferencer(t *testing.T) *AllergenInferencer {
	t.Helper()
	inf, err := NewAllergenInferencer(false)
	if err != nil {
		t.Fatalf("NewAllergenInferencer() error = %v", err)
	}
	return inf
}

func TestParseLexicon(t *testing.T) {
	if _, err := ParseLexicon(defaultLexicon); err != nil {
		t.Fatalf("embedded lexicon does not parse: %v", err)
	}
	if _, err := ParseLexicon([]byte("allergens:\n  mustard: [mustard]\n")); err == nil {
		t.Error("ParseLexicon() accepted a non-major allergen")
	}
	if _, err := ParseLexicon([]byte("diets:\n  keto: [sugar]\n")); err == nil {
		t.Error("ParseLexicon() accepted an unsupported diet")
	}
}

func TestAllergenInferencer_InferAllergens(t *testing.T) {
	inf := newTestInferencer(t)

	tests := []struct {
		name        string
		ingredients string
		want        []domain.Allergen
	}{
		{
			name:        "common majors",
			ingredients: "Enriched Wheat Flour, Milk, Eggs, Sesame Seeds",
			want:        []domain.Allergen{domain.AllergenMilk, domain.AllergenEggs, domain.AllergenWheat, domain.AllergenSesame},
		},
		{
			name:        "coconut milk is not dairy",
			ingredients: "Coconut Milk, Water, Guar Gum",
			want:        nil,
		},
		{
			name:        "peanut butter is peanuts but not dairy",
			ingredients: "Peanut Butter, Sugar, Salt",
			want:        []domain.Allergen{domain.AllergenPeanuts},
		},
		{
			name:        "cocoa butter and buckwheat are neutral",
			ingredients: "Cocoa Butter, Buckwheat Flour, Sugar",
			want:        nil,
		},
		{
			name:        "derived ingredients",
			ingredients: "Sugar, Whey, Soy Lecithin, Almonds, Anchovies, Shrimp",
			want: []domain.Allergen{domain.AllergenMilk, domain.AllergenFish, domain.AllergenShellfish,
				domain.AllergenTreeNuts, domain.AllergenSoy},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := inf.InferAllergens(tt.ingredients)
			var got []domain.Allergen
			for _, a := range domain.MajorAllergens {
				if _, ok := found[a]; ok {
					got = append(got, a)
				}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("InferAllergens(%q) = %v, want %v", tt.ingredients, got, tt.want)
			}
		})
	}
}

func TestAllergenInferencer_EvaluateDiets(t *testing.T) {
	inf := newTestInferencer(t)

	t.Run("honey breaks vegan only", func(t *testing.T) {
		got := inf.EvaluateDiets("Rolled Oats, Honey, Almonds")

		vegan := got[domain.DietVegan]
		if vegan.Compliant {
			t.Fatal("vegan should not be compliant")
		}
		if !reflect.DeepEqual(vegan.CauseIngredients, []string{"Honey"}) {
			t.Errorf("vegan CauseIngredients = %v, want [Honey]", vegan.CauseIngredients)
		}
		if vegan.Reason != "Contains Honey" {
			t.Errorf("vegan Reason = %q, want %q", vegan.Reason, "Contains Honey")
		}
		for _, d := range []domain.Diet{domain.DietVegetarian, domain.DietPescatarian, domain.DietGlutenFree} {
			if !got[d].Compliant {
				t.Errorf("%s should be compliant: %+v", d, got[d])
			}
		}
	})

	t.Run("gelatin breaks vegetarian", func(t *testing.T) {
		got := inf.EvaluateDiets("Sugar, Corn Syrup, Gelatin, Citric Acid")
		if got[domain.DietVegetarian].Compliant || got[domain.DietVegan].Compliant || got[domain.DietPescatarian].Compliant {
			t.Errorf("gelatin should break vegan, vegetarian and pescatarian: %+v", got)
		}
		if !got[domain.DietGlutenFree].Compliant {
			t.Error("gelatin should not break gluten-free")
		}
	})

	t.Run("barley malt breaks gluten-free", func(t *testing.T) {
		got := inf.EvaluateDiets("Rice, Sugar, Barley Malt Extract, Salt")
		gf := got[domain.DietGlutenFree]
		if gf.Compliant || !reflect.DeepEqual(gf.CauseIngredients, []string{"Barley Malt Extract"}) {
			t.Errorf("gluten-free = %+v", gf)
		}
	})
}

func TestAllergenInferencer_ParseAllergenStatement(t *testing.T) {
	inf := newTestInferencer(t)

	tests := []struct {
		statement string
		want      []domain.Allergen
	}{
		{"Contains: Milk, Soy and Wheat.", []domain.Allergen{domain.AllergenMilk, domain.AllergenSoy, domain.AllergenWheat}},
		{"Allergens: Milk, Mustard", []domain.Allergen{domain.AllergenMilk}},
		{"CONTAINS TREE NUTS (ALMONDS)", []domain.Allergen{domain.AllergenTreeNuts}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.statement, func(t *testing.T) {
			if got := inf.ParseAllergenStatement(tt.statement); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAllergenStatement(%q) = %v, want %v", tt.statement, got, tt.want)
			}
		})
	}
}

func TestAllergenInferencer_AnalyzeSource(t *testing.T) {
	inf := newTestInferencer(t)

	t.Run("reported allergens need a trigger word or statement", func(t *testing.T) {
		src := domain.Source{IngredientsText: "Water, Sugar, Salt"}
		got := inf.AnalyzeSource(src, []string{"sesame", "celery"}, nil)
		if len(got.Allergens) != 0 {
			t.Errorf("Allergens = %v, want none", got.Allergens)
		}
	})

	t.Run("explicit statement is trusted", func(t *testing.T) {
		src := domain.Source{IngredientsText: "Water, Lecithin, Sugar", ExplicitAllergenStatement: "Contains: Soy"}
		got := inf.AnalyzeSource(src, []string{"soy"}, nil)
		if !reflect.DeepEqual(got.Allergens, []domain.Allergen{domain.AllergenSoy}) {
			t.Errorf("Allergens = %v, want [soy]", got.Allergens)
		}
	})

	t.Run("reported non-compliance names specific ingredients", func(t *testing.T) {
		src := domain.Source{IngredientsText: "Oats, Natural Flavors, Sugar"}
		reported := map[domain.Diet]domain.DietCompliance{
			domain.DietVegan: {Compliant: false, Reason: "Natural Flavors may be derived from dairy"},
		}
		got := inf.AnalyzeSource(src, nil, reported)

		vegan := got.DietaryCompliance[domain.DietVegan]
		if vegan.Compliant {
			t.Fatal("vegan should not be compliant")
		}
		if !reflect.DeepEqual(vegan.CauseIngredients, []string{"Natural Flavors"}) {
			t.Errorf("CauseIngredients = %v, want [Natural Flavors]", vegan.CauseIngredients)
		}
		for _, d := range got.Diets {
			if d == domain.DietVegan {
				t.Error("Diets still lists vegan")
			}
		}
	})

	t.Run("detected conflict overrides reported compliance", func(t *testing.T) {
		src := domain.Source{IngredientsText: "Oats, Honey, Salt"}
		reported := map[domain.Diet]domain.DietCompliance{domain.DietVegan: {Compliant: true}}
		got := inf.AnalyzeSource(src, nil, reported)
		if got.DietaryCompliance[domain.DietVegan].Compliant {
			t.Error("vegan should not be compliant with honey")
		}
	})
}

func TestAllergenInferencer_Consolidate(t *testing.T) {
	inf := newTestInferencer(t)
	text := "Sugar, Milk, Cocoa Butter, Soy Lecithin"

	a := inf.AnalyzeSource(domain.Source{
		IngredientsText:            text,
		ExplicitAllergenStatement:  "Contains: Milk, Soy",
		CrossContaminationWarnings: []string{"May contain peanuts"},
	}, nil, nil)
	b := inf.AnalyzeSource(domain.Source{
		IngredientsText:            text,
		CrossContaminationWarnings: []string{"may contain peanuts"},
	}, nil, nil)

	got := inf.Consolidate([]domain.Source{a, b})

	if !reflect.DeepEqual(got.Allergens, []domain.Allergen{domain.AllergenMilk, domain.AllergenSoy}) {
		t.Errorf("Allergens = %v, want [milk soy]", got.Allergens)
	}
	if got.Origin != domain.AllergensExplicit {
		t.Errorf("Origin = %q, want explicit", got.Origin)
	}
	if len(got.CrossContaminationWarnings) != 1 {
		t.Errorf("CrossContaminationWarnings = %v, want one", got.CrossContaminationWarnings)
	}
	if got.DietaryCompliance[domain.DietVegan].Compliant {
		t.Error("vegan should not be compliant")
	}
	want := []domain.Diet{domain.DietVegetarian, domain.DietPescatarian, domain.DietGlutenFree}
	if !reflect.DeepEqual(got.Diets, want) {
		t.Errorf("Diets = %v, want %v", got.Diets, want)
	}
}

func TestAllergenInferencer_ConsolidateStrictestWins(t *testing.T) {
	inf := newTestInferencer(t)
	lenient := inf.AnalyzeSource(domain.Source{IngredientsText: "Oats, Natural Flavors, Sugar"}, nil, nil)
	strict := inf.AnalyzeSource(domain.Source{IngredientsText: "Oats, Natural Flavors, Sugar"}, nil,
		map[domain.Diet]domain.DietCompliance{domain.DietVegan: {Reason: "Natural Flavors from milk"}})

	got := inf.Consolidate([]domain.Source{lenient, strict})
	if got.DietaryCompliance[domain.DietVegan].Compliant {
		t.Error("one non-compliant source should make the diet non-compliant")
	}
	if got.Origin != "" {
		t.Errorf("Origin = %q, want empty without allergens", got.Origin)
	}
}

func TestAllergenInferencer_ConsolidateSingleDissent(t *testing.T) {
	inf := newTestInferencer(t)
	compliant := map[domain.Diet]domain.DietCompliance{domain.DietVegan: {Compliant: true}}
	withHoney := map[domain.Diet]domain.DietCompliance{
		domain.DietVegan: {Compliant: false, Reason: "Contains Honey", CauseIngredients: []string{"Honey"}},
	}

	got := inf.Consolidate([]domain.Source{
		{Domain: "walmart.com", IngredientsText: "Rolled Oats, Honey, Almonds", DietaryCompliance: compliant},
		{Domain: "target.com", IngredientsText: "Rolled Oats, Honey, Almonds", DietaryCompliance: withHoney},
		{Domain: "kroger.com", IngredientsText: "Rolled Oats, Honey, Almonds", DietaryCompliance: compliant},
	})

	vegan := got.DietaryCompliance[domain.DietVegan]
	if vegan.Compliant {
		t.Error("vegan should not be compliant when one source says otherwise")
	}
	if !strings.Contains(vegan.Reason, "Honey") {
		t.Errorf("vegan Reason = %q, want it to mention Honey", vegan.Reason)
	}
	for _, d := range got.Diets {
		if d == domain.DietVegan {
			t.Error("Diets still lists vegan")
		}
	}
}

func TestAllergenInferencer_ConsolidateUnanalyzedSources(t *testing.T) {
	inf := newTestInferencer(t)

	got := inf.Consolidate([]domain.Source{
		{Domain: "walmart.com", IngredientsText: "Rolled Oats, Honey, Almonds"},
		{Domain: "target.com", IngredientsText: "Rolled Oats, Honey, Almonds", Allergens: []domain.Allergen{domain.AllergenSesame}},
	})

	want := []domain.Allergen{domain.AllergenTreeNuts, domain.AllergenSesame}
	if !reflect.DeepEqual(got.Allergens, want) {
		t.Errorf("Allergens = %v, want %v", got.Allergens, want)
	}
	if got.Origin != domain.AllergensInferred {
		t.Errorf("Origin = %q, want inferred", got.Origin)
	}
	if got.DietaryCompliance[domain.DietVegan].Compliant {
		t.Error("vegan should not be compliant with honey")
	}
}
