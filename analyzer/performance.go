package analyzer

import (
	"context"
	"fmt"

	"github.com/use-agent/webauditor/model"
)

// Performance reads the Core Web Vitals and navigation-timing metrics the
// browser itself already buffered for the page (via
// performance.getEntriesByType over the navigation, paint,
// largest-contentful-paint, layout-shift and longtask entries), rather than
// attaching a CDP trace collector: the orchestrator has already let the
// page settle before any analyzer runs, so the buffered entries are
// complete by the time this analyzer reads them.
type Performance struct{}

func (p *Performance) Name() Id             { return IDPerformance }
func (p *Performance) DefaultTimeoutMs() int { return 10_000 }

func (p *Performance) Run(ctx context.Context, pc PageContext) (Output, error) {
	res, err := pc.Page.Context(ctx).Eval(vitalsJS)
	if err != nil {
		return Output{}, fmt.Errorf("performance: vitals read failed: %w", err)
	}

	var raw struct {
		LCP  float64 `json:"lcp"`
		FCP  float64 `json:"fcp"`
		CLS  float64 `json:"cls"`
		TTFB float64 `json:"ttfb"`
		TBT  float64 `json:"tbt"`
		SI   float64 `json:"si"`
	}
	if err := res.Value.Unmarshal(&raw); err != nil {
		return Output{}, fmt.Errorf("performance: decode vitals: %w", err)
	}

	b := budgetFor(pc.Options.BudgetTemplate)

	section := &model.PerformanceSection{
		LCP:  model.VitalMetric{Value: raw.LCP, Rating: rateAgainst(raw.LCP, b.GoodLCPMs, b.PoorLCPMs)},
		FCP:  model.VitalMetric{Value: raw.FCP, Rating: rateAgainst(raw.FCP, 1800, 3000)},
		CLS:  model.VitalMetric{Value: raw.CLS, Rating: rateAgainst(raw.CLS, b.GoodCLS, b.PoorCLS)},
		TTFB: model.VitalMetric{Value: raw.TTFB, Rating: rateAgainst(raw.TTFB, 800, 1800)},
		TBT:  model.VitalMetric{Value: raw.TBT, Rating: rateAgainst(raw.TBT, 200, 600)},
		SI:   model.VitalMetric{Value: raw.SI, Rating: rateAgainst(raw.SI, 3400, 5800)},
	}
	// INP and FID require real user interaction to measure; a scripted
	// audit run never interacts with the page, so both are marked
	// explicitly unavailable rather than reporting a fabricated
	// measurement or leaving Rating as an ambiguous zero value.
	section.INP = model.VitalMetric{Rating: model.RatingUnavailable}
	section.FID = model.VitalMetric{Rating: model.RatingUnavailable}

	section.Score = scorePerformance(section)
	section.Grade = gradeForScore(section.Score)

	return Output{Section: section}, nil
}

func scorePerformance(s *model.PerformanceSection) int {
	weights := map[model.Rating]int{
		model.RatingGood:             100,
		model.RatingNeedsImprovement: 60,
		model.RatingPoor:             20,
	}
	metrics := []model.VitalMetric{s.LCP, s.FCP, s.CLS, s.TTFB, s.TBT, s.SI}
	total := 0
	for _, m := range metrics {
		total += weights[m.Rating]
	}
	return total / len(metrics)
}

func gradeForScore(score int) model.Grade {
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

// vitalsJS reads whatever Performance API entries the browser has already
// buffered, with one synchronous performance.getEntriesByType read per
// entry type after the page has settled; no PerformanceObserver is
// registered.
const vitalsJS = `() => {
	const nav = performance.getEntriesByType('navigation')[0];
	const ttfb = nav ? nav.responseStart - nav.requestStart : 0;

	const paintEntries = performance.getEntriesByType('paint');
	const fcpEntry = paintEntries.find(e => e.name === 'first-contentful-paint');
	const fcp = fcpEntry ? fcpEntry.startTime : 0;

	let lcp = 0;
	const lcpEntries = performance.getEntriesByType('largest-contentful-paint');
	if (lcpEntries.length > 0) {
		lcp = lcpEntries[lcpEntries.length - 1].startTime;
	}

	let cls = 0;
	const shiftEntries = performance.getEntriesByType('layout-shift');
	for (const entry of shiftEntries) {
		if (!entry.hadRecentInput) {
			cls += entry.value;
		}
	}

	let tbt = 0;
	const longTasks = performance.getEntriesByType('longtask');
	for (const task of longTasks) {
		const blocking = task.duration - 50;
		if (blocking > 0) tbt += blocking;
	}

	// Speed index approximation: time to the visually largest paint we
	// observed, since true frame-by-frame visual-progress sampling needs a
	// CDP trace this analyzer deliberately avoids attaching.
	const si = lcp > 0 ? lcp : fcp;

	return { lcp, fcp, cls, ttfb, tbt, si };
}`
