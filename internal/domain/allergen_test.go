package domain

import "testing"

func TestParseAllergen(t *testing.T) {
	tests := []struct {
		label  string
		want   Allergen
		wantOK bool
	}{
		{"Milk", AllergenMilk, true},
		{"dairy", AllergenMilk, true},
		{" Egg ", AllergenEggs, true},
		{"Tree Nut", AllergenTreeNuts, true},
		{"crustacean shellfish", AllergenShellfish, true},
		{"Soybeans.", AllergenSoy, true},
		{"Sesame Seeds", AllergenSesame, true},
		{"mustard", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := ParseAllergen(tt.label)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseAllergen(%q) = (%q, %v), want (%q, %v)", tt.label, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseDiet(t *testing.T) {
	tests := []struct {
		label  string
		want   Diet
		wantOK bool
	}{
		{"Vegan", DietVegan, true},
		{"gluten free", DietGlutenFree, true},
		{"gluten_free", DietGlutenFree, true},
		{"pescetarian", DietPescatarian, true},
		{"keto", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := ParseDiet(tt.label)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseDiet(%q) = (%q, %v), want (%q, %v)", tt.label, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestProductQuery_DisplayName(t *testing.T) {
	if got := (ProductQuery{Brand: "Cheez-It", Name: "Original"}).DisplayName(); got != "Cheez-It Original" {
		t.Errorf("DisplayName() = %q, want %q", got, "Cheez-It Original")
	}
	if got := (ProductQuery{Name: "Original"}).DisplayName(); got != "Original" {
		t.Errorf("DisplayName() = %q, want %q", got, "Original")
	}
}
