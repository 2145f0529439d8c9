package analyzer

import (
	"context"
	"testing"

	"github.com/use-agent/webauditor/model"
)

func TestContentWeight_UnderBudgetScoresMax(t *testing.T) {
	cw := &ContentWeight{}
	out, err := cw.Run(context.Background(), PageContext{
		DocumentHTML: "<html>hello world</html>",
		ResourceBytes: model.ResourceBytes{
			HTML: 10_000, CSS: 20_000, JavaScript: 50_000, Images: 100_000,
		},
		Options: model.RunOptions{BudgetTemplate: model.BudgetDefault},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	section := out.Section.(*model.ContentWeightSection)
	if section.Score != 100 {
		t.Errorf("Score = %d, want 100 for a page well under budget", section.Score)
	}
}

func TestContentWeight_OverBudgetLowersScore(t *testing.T) {
	cw := &ContentWeight{}
	out, err := cw.Run(context.Background(), PageContext{
		ResourceBytes: model.ResourceBytes{
			Images:     5_000_000,
			JavaScript: 2_000_000,
		},
		Options: model.RunOptions{BudgetTemplate: model.BudgetDefault},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	section := out.Section.(*model.ContentWeightSection)
	if section.Score >= 100 {
		t.Errorf("Score = %d, want a penalized score for a page well over budget", section.Score)
	}
	if section.Score < 0 {
		t.Errorf("Score = %d, must never go below 0", section.Score)
	}
}

func TestContentWeight_TotalBytesSumsAllResourceClasses(t *testing.T) {
	cw := &ContentWeight{}
	bytes := model.ResourceBytes{HTML: 1, CSS: 2, JavaScript: 3, Images: 4, Fonts: 5, Other: 6}
	out, _ := cw.Run(context.Background(), PageContext{
		ResourceBytes: bytes,
		Options:       model.RunOptions{BudgetTemplate: model.BudgetDefault},
	})
	section := out.Section.(*model.ContentWeightSection)
	if section.TotalBytes != 21 {
		t.Errorf("TotalBytes = %d, want 21", section.TotalBytes)
	}
}

func TestBudgetFor_UnknownTemplateFallsBackToDefault(t *testing.T) {
	if budgetFor("nonexistent") != budgetFor(model.BudgetDefault) {
		t.Error("budgetFor should fall back to the default template for an unrecognized one")
	}
}

func TestRateAgainst(t *testing.T) {
	cases := []struct {
		value, good, poor float64
		want              model.Rating
	}{
		{1.0, 2.5, 4.0, model.RatingGood},
		{2.5, 2.5, 4.0, model.RatingGood},
		{3.0, 2.5, 4.0, model.RatingNeedsImprovement},
		{4.0, 2.5, 4.0, model.RatingNeedsImprovement},
		{5.0, 2.5, 4.0, model.RatingPoor},
	}
	for _, c := range cases {
		if got := rateAgainst(c.value, c.good, c.poor); got != c.want {
			t.Errorf("rateAgainst(%v, %v, %v) = %q, want %q", c.value, c.good, c.poor, got, c.want)
		}
	}
}
