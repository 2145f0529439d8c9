package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/use-agent/webauditor/model"
)

func outSection(t *testing.T, out Output) *model.SEOSection {
	t.Helper()
	section, ok := out.Section.(*model.SEOSection)
	if !ok {
		t.Fatalf("Output.Section is %T, want *model.SEOSection", out.Section)
	}
	return section
}

func wordsHTML(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("word ")
	}
	return b.String()
}

func TestSEO_Run_ScoresPenalizeMissingSignals(t *testing.T) {
	seo := &SEO{}
	out, err := seo.Run(context.Background(), PageContext{DocumentHTML: "<html><head></head><body></body></html>", URL: "https://example.com/"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	section := outSection(t, out)
	if section.Score >= 50 {
		t.Errorf("Score = %d, want a heavily penalized score for a bare page with no title/description/h1/content", section.Score)
	}
}

func TestSEO_Run_WellFormedPageScoresHigh(t *testing.T) {
	html := `<html><head>
<title>A Perfectly Reasonable Page Title</title>
<meta name="description" content="A description that is long enough to clear the minimum length threshold for scoring purposes here today.">
<meta property="og:title" content="shared title">
</head><body><h1>Main Heading</h1><p>` + wordsHTML(350) + `</p></body></html>`

	seo := &SEO{}
	out, err := seo.Run(context.Background(), PageContext{DocumentHTML: html, URL: "https://example.com/page"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	section := outSection(t, out)
	if section.Score < 80 {
		t.Errorf("Score = %d, want a high score for a well-formed page", section.Score)
	}
	if !section.Title.Present || !section.Description.Present {
		t.Error("expected title and description to be detected as present")
	}
	if section.HeadingCounts["h1"] != 1 {
		t.Errorf("h1 count = %d, want 1", section.HeadingCounts["h1"])
	}
	if !section.Social.OpenGraphPresent {
		t.Error("expected OpenGraphPresent to be true")
	}
}

func TestSEO_Run_DuplicateSignalLowersScore(t *testing.T) {
	html := `<html><head>
<title>A Perfectly Reasonable Page Title</title>
<meta name="description" content="A description that is long enough to clear the minimum length threshold for scoring purposes here today.">
<meta property="og:title" content="shared title">
</head><body><h1>Main Heading</h1><p>` + wordsHTML(350) + `</p></body></html>`

	withoutDup := &SEO{}
	outA, _ := withoutDup.Run(context.Background(), PageContext{DocumentHTML: html, URL: "https://example.com/page"})

	withDup := &SEO{DuplicateSignal: func(url, text string) (string, int, bool) {
		return "https://example.com/other", 95, true
	}}
	outB, _ := withDup.Run(context.Background(), PageContext{DocumentHTML: html, URL: "https://example.com/page"})

	scoreA := outSection(t, outA).Score
	scoreB := outSection(t, outB).Score
	if scoreB >= scoreA {
		t.Errorf("duplicate-flagged score (%d) should be lower than the non-duplicate score (%d)", scoreB, scoreA)
	}
}
