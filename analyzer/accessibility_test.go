package analyzer

import "testing"

func TestScoreFromIssues_CapsPerCategory(t *testing.T) {
	cases := []struct {
		name                      string
		errors, warnings, notices int
		want                      int
	}{
		{"none", 0, 0, 0, 100},
		{"one error", 1, 0, 0, 98},
		{"errors cap at 20", 20, 0, 0, 80},
		{"warnings cap at 10", 0, 50, 0, 90},
		{"notices cap at 5", 0, 0, 50, 95},
		{"all three capped", 20, 50, 50, 65},
	}
	for _, c := range cases {
		if got := scoreFromIssues(c.errors, c.warnings, c.notices); got != c.want {
			t.Errorf("%s: scoreFromIssues(%d,%d,%d) = %d, want %d", c.name, c.errors, c.warnings, c.notices, got, c.want)
		}
	}
}

func TestScoreFromCoarseCounters(t *testing.T) {
	cases := []struct {
		name                                                                  string
		errors, warnings, imagesWithoutAlt, buttonsWithoutLabel, headingsCount int
		want                                                                  int
	}{
		{"clean page", 0, 0, 0, 0, 3, 100},
		{"no headings", 0, 0, 0, 0, 0, 80},
		{"one error one image", 1, 0, 1, 0, 3, 82},
		{"everything bad clamps at zero", 10, 10, 10, 10, 0, 0},
	}
	for _, c := range cases {
		got := scoreFromCoarseCounters(c.errors, c.warnings, c.imagesWithoutAlt, c.buttonsWithoutLabel, c.headingsCount)
		if got != c.want {
			t.Errorf("%s: scoreFromCoarseCounters(...) = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestClampScore_NeverOutOfBounds(t *testing.T) {
	if got := clampScore(-5); got != 0 {
		t.Errorf("clampScore(-5) = %d, want 0", got)
	}
	if got := clampScore(150); got != 100 {
		t.Errorf("clampScore(150) = %d, want 100", got)
	}
	if got := clampScore(42); got != 42 {
		t.Errorf("clampScore(42) = %d, want 42", got)
	}
}
