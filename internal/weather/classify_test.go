package weather

import (
	"testing"

	"github.com/kjstillabower/deskclock/internal/models"
)

// TestClassify verifies the vendor condition-code table at range boundaries
// and that codes outside every range map to Unknown.
func TestClassify(t *testing.T) {
	tests := []struct {
		code int
		want models.Description
	}{
		{1000, models.Clear},
		{1003, models.Cloudy},
		{1006, models.Cloudy},
		{1009, models.Cloudy},
		{1030, models.Foggy},
		{1063, models.Rainy},
		{1066, models.Snowy},
		{1069, models.Snowy},
		{1072, models.Rainy},
		{1087, models.Stormy},
		{1117, models.Snowy},
		{1135, models.Foggy},
		{1147, models.Foggy},
		{1150, models.Rainy},
		{1195, models.Rainy},
		{1201, models.Rainy},
		{1204, models.Snowy},
		{1237, models.Snowy},
		{1243, models.Rainy},
		{1258, models.Snowy},
		{1276, models.Stormy},
		{1282, models.Stormy},
		{0, models.Unknown},
		{-1, models.Unknown},
		{999, models.Unknown},
		{1001, models.Unknown},
		{1283, models.Unknown},
		{800, models.Unknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.code); got != tt.want {
			t.Errorf("Classify(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

// TestClassify_TotalAndDeterministic checks every code in the documented
// domain yields a defined description, and the same one on repeat calls.
func TestClassify_TotalAndDeterministic(t *testing.T) {
	valid := map[models.Description]bool{
		models.Clear: true, models.Cloudy: true, models.Rainy: true, models.Foggy: true,
		models.Snowy: true, models.Stormy: true, models.Unknown: true,
	}
	for code := 900; code <= 1400; code++ {
		first := Classify(code)
		if !valid[first] {
			t.Fatalf("Classify(%d) = %d, not a defined description", code, first)
		}
		if again := Classify(code); again != first {
			t.Fatalf("Classify(%d) not deterministic: %v then %v", code, first, again)
		}
	}
}

// TestConditionTable_Ordered guards the table against overlapping or
// out-of-order ranges, which would make first-match-wins ambiguous.
func TestConditionTable_Ordered(t *testing.T) {
	prev := -1 << 31
	for i, r := range conditionTable {
		if r.lo > r.hi {
			t.Errorf("range %d: lo %d > hi %d", i, r.lo, r.hi)
		}
		if r.lo <= prev {
			t.Errorf("range %d starts at %d, overlaps previous end %d", i, r.lo, prev)
		}
		prev = r.hi
	}
}
