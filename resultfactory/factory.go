// Package resultfactory is the single constructor surface for terminal
// Page Result shapes, so the orchestrator and the work queue's error paths
// produce byte-identical records for equivalent conditions.
package resultfactory

import (
	"time"

	"github.com/use-agent/webauditor/model"
	"github.com/use-agent/webauditor/redirect"
)

// CreateMinimal builds a bare identity-only record with status failed and
// no sections. The work queue does not use it for cancelled tasks; it
// builds its own cancelled record.
func CreateMinimal(url, title string) *model.PageResult {
	return &model.PageResult{
		URL:       url,
		FinalURL:  url,
		Title:     title,
		Status:    model.StatusFailed,
		Timestamp: time.Now(),
	}
}

// CreateRedirectSkip builds the result for a URL short-circuited as a real
// redirect. Per the data model invariant, all analyzer sections are
// omitted and finalUrl differs from url.
func CreateRedirectSkip(info redirect.Info, duration time.Duration) *model.PageResult {
	return &model.PageResult{
		URL:        info.OriginalURL,
		FinalURL:   info.FinalURL,
		Status:     model.StatusSkippedRedirect,
		DurationMs: duration.Milliseconds(),
		Timestamp:  time.Now(),
	}
}

// CreateHTTPError builds the result for a navigation response >= 400.
func CreateHTTPError(url string, statusCode int, duration time.Duration) *model.PageResult {
	return &model.PageResult{
		URL:        url,
		FinalURL:   url,
		Status:     model.StatusHTTPError,
		DurationMs: duration.Milliseconds(),
		Timestamp:  time.Now(),
		Error:      httpErrorMessage(statusCode),
	}
}

// CreateCrash builds the result for a navigation error, browser crash, or
// any other failure that never reached the analyzer stage. All analyzer
// sections are omitted, per the data model invariant.
func CreateCrash(url string, err error, duration time.Duration) *model.PageResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &model.PageResult{
		URL:        url,
		FinalURL:   url,
		Status:     model.StatusCrashed,
		DurationMs: duration.Milliseconds(),
		Timestamp:  time.Now(),
		Error:      msg,
	}
}

// Sections bundles whichever analyzer outputs the orchestrator collected;
// nil fields are sections that did not run, were disabled, or timed out.
type Sections struct {
	Accessibility *model.AccessibilitySection
	Performance   *model.PerformanceSection
	SEO           *model.SEOSection
	ContentWeight *model.ContentWeightSection
	Mobile        *model.MobileSection
}

// weights mirror the composite score table: accessibility 25, performance
// 25, seo 25, content 15, mobile 10.
const (
	weightAccessibility = 25.0
	weightPerformance   = 25.0
	weightSEO           = 25.0
	weightContentWeight = 15.0
	weightMobile        = 10.0
)

// CreateOk builds the composite record for a page that was fully navigated
// and analyzed. status is "passed" unless the caller determiend the page
// should be reported as failed (e.g. the overall deadline fired before the
// accessibility section completed).
func CreateOk(url, finalURL, title string, status model.Status, sections Sections, duration time.Duration) *model.PageResult {
	r := &model.PageResult{
		URL:           url,
		FinalURL:      finalURL,
		Title:         title,
		Status:        status,
		DurationMs:    duration.Milliseconds(),
		Timestamp:     time.Now(),
		Accessibility: sections.Accessibility,
		Performance:   sections.Performance,
		SEO:           sections.SEO,
		ContentWeight: sections.ContentWeight,
		Mobile:        sections.Mobile,
	}

	var weighted, totalWeight float64
	if sections.Accessibility != nil {
		weighted += float64(sections.Accessibility.Score) * weightAccessibility
		totalWeight += weightAccessibility
	}
	if sections.Performance != nil {
		weighted += float64(sections.Performance.Score) * weightPerformance
		totalWeight += weightPerformance
	}
	if sections.SEO != nil {
		weighted += float64(sections.SEO.Score) * weightSEO
		totalWeight += weightSEO
	}
	if sections.ContentWeight != nil {
		weighted += float64(sections.ContentWeight.Score) * weightContentWeight
		totalWeight += weightContentWeight
	}
	if sections.Mobile != nil {
		weighted += float64(sections.Mobile.Score) * weightMobile
		totalWeight += weightMobile
	}

	if totalWeight > 0 {
		composite := int(weighted/totalWeight + 0.5)
		r.CompositeScore = &composite
		r.CompositeGrade = gradeFor(composite)
	}

	return r
}

func gradeFor(score int) model.Grade {
	switch {
	case score >= 90:
		return model.GradeA
	case score >= 80:
		return model.GradeB
	case score >= 70:
		return model.GradeC
	case score >= 60:
		return model.GradeD
	default:
		return model.GradeF
	}
}

func httpErrorMessage(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "server error"
	case statusCode >= 400:
		return "client error"
	default:
		return "unexpected status"
	}
}
