package analyzer

import (
	"context"
	"fmt"

	"github.com/use-agent/webauditor/model"
)

// Accessibility is always on: it has no toggle in AnalyzerToggles. When no
// external rule engine is configured it falls back to an in-page heuristic
// scan, set UsedFallback so callers can tell the difference.
type Accessibility struct {
	// RuleEngine, when set, delegates to an external accessibility rule
	// engine (e.g. an axe-core-backed service) instead of the built-in
	// heuristic scan. Nil means "use the heuristic fallback".
	RuleEngine func(ctx context.Context, html, standard string) (*model.AccessibilitySection, error)
}

func (a *Accessibility) Name() Id               { return IDAccessibility }
func (a *Accessibility) DefaultTimeoutMs() int   { return 15_000 }

func (a *Accessibility) Run(ctx context.Context, pc PageContext) (Output, error) {
	if a.RuleEngine != nil {
		section, err := a.RuleEngine(ctx, pc.DocumentHTML, string(pc.Options.PA11yStandard))
		if err == nil {
			section.Score = scoreFromIssues(len(section.Errors), len(section.Warnings), len(section.Notices))
			return Output{Section: section}, nil
		}
		// Fall through to the heuristic scan on rule engine failure, rather
		// than failing the whole analyzer: a degraded signal beats none.
	}

	res, err := pc.Page.Context(ctx).Eval(heuristicScanJS)
	if err != nil {
		return Output{}, fmt.Errorf("accessibility: heuristic scan failed: %w", err)
	}

	var scan struct {
		ImagesWithoutAlt    int `json:"imagesWithoutAlt"`
		ButtonsWithoutLabel int `json:"buttonsWithoutLabel"`
		HeadingsCount       int `json:"headingsCount"`
		MissingFormLabels   int `json:"missingFormLabels"`
		LowContrastCount    int `json:"lowContrastCount"`
		MissingLangAttr     bool `json:"missingLangAttr"`
	}
	if err := res.Value.Unmarshal(&scan); err != nil {
		return Output{}, fmt.Errorf("accessibility: decode heuristic scan: %w", err)
	}

	var errs, warns, notices []model.AccessibilityIssue
	if scan.ImagesWithoutAlt > 0 {
		errs = append(errs, model.AccessibilityIssue{
			Code: "img-alt", Message: fmt.Sprintf("%d images missing alt text", scan.ImagesWithoutAlt),
			Severity: model.SeverityError, Selector: "img",
		})
	}
	if scan.ButtonsWithoutLabel > 0 {
		errs = append(errs, model.AccessibilityIssue{
			Code: "button-name", Message: fmt.Sprintf("%d buttons without an accessible label", scan.ButtonsWithoutLabel),
			Severity: model.SeverityError, Selector: "button",
		})
	}
	if scan.MissingFormLabels > 0 {
		warns = append(warns, model.AccessibilityIssue{
			Code: "label", Message: fmt.Sprintf("%d form fields missing a label", scan.MissingFormLabels),
			Severity: model.SeverityWarning, Selector: "input,select,textarea",
		})
	}
	if scan.LowContrastCount > 0 {
		warns = append(warns, model.AccessibilityIssue{
			Code: "color-contrast", Message: fmt.Sprintf("%d elements with likely low contrast text", scan.LowContrastCount),
			Severity: model.SeverityWarning,
		})
	}
	if scan.MissingLangAttr {
		notices = append(notices, model.AccessibilityIssue{
			Code: "html-has-lang", Message: "document element has no lang attribute",
			Severity: model.SeverityNotice, Selector: "html",
		})
	}

	var all []model.AccessibilityIssue
	all = append(all, errs...)
	all = append(all, warns...)
	all = append(all, notices...)

	section := &model.AccessibilitySection{
		Errors:              errs,
		Warnings:            warns,
		Notices:             notices,
		Issues:              all,
		ImagesWithoutAlt:    scan.ImagesWithoutAlt,
		ButtonsWithoutLabel: scan.ButtonsWithoutLabel,
		HeadingsCount:       scan.HeadingsCount,
		UsedFallback:        true,
		Score: scoreFromCoarseCounters(len(errs), len(warns),
			scan.ImagesWithoutAlt, scan.ButtonsWithoutLabel, scan.HeadingsCount),
	}
	return Output{Section: section}, nil
}

// scoreFromIssues is the primary scoring rule: start at 100, subtract 2.5
// per error (capped at 20 from errors), 1 per warning (capped 10), 0.5 per
// notice (capped 5), rounded to the nearest integer.
func scoreFromIssues(errors, warnings, notices int) int {
	errDeduct := 2.5 * float64(errors)
	if errDeduct > 20 {
		errDeduct = 20
	}
	warnDeduct := 1.0 * float64(warnings)
	if warnDeduct > 10 {
		warnDeduct = 10
	}
	noticeDeduct := 0.5 * float64(notices)
	if noticeDeduct > 5 {
		noticeDeduct = 5
	}
	return clampScore(int(100 - errDeduct - warnDeduct - noticeDeduct + 0.5))
}

// scoreFromCoarseCounters is the fallback rule used when no rule engine
// produced a structured issues list: errors and buttonsWithoutLabel weigh
// heaviest, a fully heading-less page takes a flat penalty.
func scoreFromCoarseCounters(errors, warnings, imagesWithoutAlt, buttonsWithoutLabel, headingsCount int) int {
	score := 100 - errors*15 - warnings*5 - imagesWithoutAlt*3 - buttonsWithoutLabel*5
	if headingsCount == 0 {
		score -= 20
	}
	return clampScore(score)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// heuristicScanJS runs entirely in-page: it counts the most common WCAG
// failure patterns without requiring an external rule engine dependency.
const heuristicScanJS = `() => {
	const imgs = Array.from(document.querySelectorAll('img'));
	const imagesWithoutAlt = imgs.filter(i => !i.hasAttribute('alt') || i.getAttribute('alt').trim() === '').length;

	const buttons = Array.from(document.querySelectorAll('button, [role="button"]'));
	const buttonsWithoutLabel = buttons.filter(b => {
		const text = (b.innerText || '').trim();
		const aria = b.getAttribute('aria-label');
		return text === '' && (!aria || aria.trim() === '');
	}).length;

	const headingsCount = document.querySelectorAll('h1, h2, h3, h4, h5, h6').length;

	const fields = Array.from(document.querySelectorAll('input, select, textarea'));
	const missingFormLabels = fields.filter(f => {
		if (f.type === 'hidden' || f.type === 'submit' || f.type === 'button') return false;
		const id = f.getAttribute('id');
		const labelled = id && document.querySelector('label[for="' + id + '"]');
		return !labelled && !f.getAttribute('aria-label') && !f.getAttribute('aria-labelledby');
	}).length;

	let lowContrastCount = 0;
	const sample = Array.from(document.querySelectorAll('p, span, a, li')).slice(0, 200);
	for (const el of sample) {
		const style = window.getComputedStyle(el);
		const size = parseFloat(style.fontSize) || 16;
		if (style.color === style.backgroundColor && size < 24) {
			lowContrastCount++;
		}
	}

	const missingLangAttr = !document.documentElement.getAttribute('lang');

	return {
		imagesWithoutAlt, buttonsWithoutLabel, headingsCount,
		missingFormLabels, lowContrastCount, missingLangAttr,
	};
}`
