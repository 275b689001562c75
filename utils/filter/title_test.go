package filter

import (
	"testing"

	"oriontv/models"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Breaking Bad  ", "Breaking Bad"},
		{"Ｘ档案", "X档案"},
		{"ＡＢＣ１２３", "ABC123"},
		{"狂飙", "狂飙"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Fatalf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTitlesEqual(t *testing.T) {
	if !TitlesEqual("Ｘ档案 ", "X档案") {
		t.Fatal("fullwidth and halfwidth forms should compare equal")
	}
	if TitlesEqual("狂飙", "狂飙2") {
		t.Fatal("distinct titles should not compare equal")
	}
}

func TestExactTitle(t *testing.T) {
	results := []models.SearchResult{
		{SourceKey: "a", Title: "狂飙"},
		{SourceKey: "b", Title: "狂飙 第二季"},
		{SourceKey: "c", Title: " 狂飙 "},
		{SourceKey: "d", Title: "别的剧"},
	}
	got := ExactTitle(results, "狂飙")
	if len(got) != 2 {
		t.Fatalf("expected 2 exact matches, got %d", len(got))
	}
	if got[0].SourceKey != "a" || got[1].SourceKey != "c" {
		t.Fatalf("unexpected matches: %q, %q", got[0].SourceKey, got[1].SourceKey)
	}
}

func TestExactTitleEmpty(t *testing.T) {
	if got := ExactTitle(nil, "anything"); got != nil {
		t.Fatalf("expected nil for no input, got %v", got)
	}
}
