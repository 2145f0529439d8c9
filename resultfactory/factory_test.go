package resultfactory

import (
	"errors"
	"testing"
	"time"

	"github.com/use-agent/webauditor/model"
	"github.com/use-agent/webauditor/redirect"
)

func TestCreateRedirectSkip_OmitsAllSections(t *testing.T) {
	r := CreateRedirectSkip(redirect.Info{
		OriginalURL: "https://example.com/old",
		FinalURL:    "https://example.com/new",
	}, 50*time.Millisecond)

	if r.Status != model.StatusSkippedRedirect {
		t.Errorf("Status = %q, want skipped-redirect", r.Status)
	}
	if r.URL == r.FinalURL {
		t.Errorf("expected FinalURL to differ from URL for a redirect skip")
	}
	if r.Accessibility != nil || r.Performance != nil || r.SEO != nil || r.ContentWeight != nil || r.Mobile != nil {
		t.Error("expected every analyzer section to be nil for a redirect skip")
	}
}

func TestCreateHTTPError_MessageByStatusClass(t *testing.T) {
	cases := []struct {
		code int
		want string
	}{
		{404, "client error"},
		{500, "server error"},
		{503, "server error"},
		{200, "unexpected status"},
	}
	for _, c := range cases {
		r := CreateHTTPError("https://example.com", c.code, time.Second)
		if r.Error != c.want {
			t.Errorf("status %d -> Error = %q, want %q", c.code, r.Error, c.want)
		}
		if r.Status != model.StatusHTTPError {
			t.Errorf("status %d -> Status = %q, want http-error", c.code, r.Status)
		}
	}
}

func TestCreateCrash_CarriesErrorMessage(t *testing.T) {
	r := CreateCrash("https://example.com", errors.New("navigation timed out"), time.Second)
	if r.Status != model.StatusCrashed {
		t.Errorf("Status = %q, want crashed", r.Status)
	}
	if r.Error != "navigation timed out" {
		t.Errorf("Error = %q, want the wrapped error's message", r.Error)
	}
}

func TestCreateCrash_NilErrorLeavesEmptyMessage(t *testing.T) {
	r := CreateCrash("https://example.com", nil, time.Second)
	if r.Error != "" {
		t.Errorf("Error = %q, want empty for a nil error", r.Error)
	}
}

func TestCreateOk_CompositeScoreIsWeightedAverage(t *testing.T) {
	r := CreateOk("https://example.com", "https://example.com", "Title", model.StatusPassed, Sections{
		Accessibility: &model.AccessibilitySection{Score: 100},
		Performance:   &model.PerformanceSection{Score: 100},
		SEO:           &model.SEOSection{Score: 100},
		ContentWeight: &model.ContentWeightSection{Score: 100},
		Mobile:        &model.MobileSection{Score: 100},
	}, time.Second)

	if r.CompositeScore == nil || *r.CompositeScore != 100 {
		t.Fatalf("CompositeScore = %v, want 100", r.CompositeScore)
	}
	if r.CompositeGrade != model.GradeA {
		t.Errorf("CompositeGrade = %q, want A", r.CompositeGrade)
	}
}

func TestCreateOk_MissingSectionsRenormalizeWeight(t *testing.T) {
	// Only accessibility ran (e.g. every other analyzer was disabled):
	// its own score should become the full composite, not diluted by
	// the weight of sections that never ran.
	r := CreateOk("https://example.com", "https://example.com", "Title", model.StatusPassed, Sections{
		Accessibility: &model.AccessibilitySection{Score: 80},
	}, time.Second)

	if r.CompositeScore == nil || *r.CompositeScore != 80 {
		t.Fatalf("CompositeScore = %v, want 80", r.CompositeScore)
	}
	if r.CompositeGrade != model.GradeB {
		t.Errorf("CompositeGrade = %q, want B", r.CompositeGrade)
	}
}

func TestCreateOk_NoSectionsLeavesCompositeScoreNil(t *testing.T) {
	r := CreateOk("https://example.com", "https://example.com", "Title", model.StatusFailed, Sections{}, time.Second)

	if r.CompositeScore != nil {
		t.Errorf("CompositeScore = %v, want nil when no sections ran", r.CompositeScore)
	}
	if r.CompositeGrade != "" {
		t.Errorf("CompositeGrade = %q, want empty when no sections ran", r.CompositeGrade)
	}
}

func TestGradeFor_Boundaries(t *testing.T) {
	cases := []struct {
		score int
		want  model.Grade
	}{
		{100, model.GradeA}, {90, model.GradeA},
		{89, model.GradeB}, {80, model.GradeB},
		{79, model.GradeC}, {70, model.GradeC},
		{69, model.GradeD}, {60, model.GradeD},
		{59, model.GradeF}, {0, model.GradeF},
	}
	for _, c := range cases {
		if got := gradeFor(c.score); got != c.want {
			t.Errorf("gradeFor(%d) = %q, want %q", c.score, got, c.want)
		}
	}
}
