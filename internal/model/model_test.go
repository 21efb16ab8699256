package model

import (
	"testing"
)

func TestAssociations(t *testing.T) {
	got := Associations("g1", []TipID{"t1", "t3", "t2"})
	want := []Association{
		{GuideID: "g1", TipID: "t1", Ordinal: 1},
		{GuideID: "g1", TipID: "t3", Ordinal: 2},
		{GuideID: "g1", TipID: "t2", Ordinal: 3},
	}

	if len(got) != len(want) {
		t.Fatalf("Expected %d associations, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Association %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	if len(Associations("g1", nil)) != 0 {
		t.Error("Expected no associations for an empty list")
	}
}

func TestCategories(t *testing.T) {
	tests := []struct {
		category Category
		tip      bool
		guide    bool
	}{
		{"Restaurantes", true, true},
		{"Hotéis", true, false},
		{"Roteiro", false, true},
		{"Vida Noturna", false, true},
		{"restaurantes", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			if got := IsTipCategory(tt.category); got != tt.tip {
				t.Errorf("IsTipCategory(%q) = %v, want %v", tt.category, got, tt.tip)
			}
			if got := IsGuideCategory(tt.category); got != tt.guide {
				t.Errorf("IsGuideCategory(%q) = %v, want %v", tt.category, got, tt.guide)
			}
		})
	}
}

func TestParseEdgeKind(t *testing.T) {
	for _, s := range []string{"like", "save", "follow"} {
		if k, err := ParseEdgeKind(s); err != nil || string(k) != s {
			t.Errorf("ParseEdgeKind(%q) = %q, %v", s, k, err)
		}
	}
	if _, err := ParseEdgeKind("share"); err == nil {
		t.Error("Expected error for unknown kind")
	}
}
