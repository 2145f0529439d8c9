package analyzer

import (
	"context"
	"fmt"

	"github.com/use-agent/webauditor/model"
)

// Mobile checks viewport configuration, touch-target sizing, text
// legibility, and horizontal overflow against the run's configured
// viewport, scrolling the page once first the same way the action
// runner's scroll helper does, so lazy-rendered layout has settled before
// measurement.
type Mobile struct{}

func (m *Mobile) Name() Id             { return IDMobile }
func (m *Mobile) DefaultTimeoutMs() int { return 8_000 }

func (m *Mobile) Run(ctx context.Context, pc PageContext) (Output, error) {
	p := pc.Page.Context(ctx)

	// One scroll pass so below-the-fold, lazily-sized elements have laid
	// out before the measurement script runs.
	if _, err := p.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		return Output{}, fmt.Errorf("mobile: scroll failed: %w", err)
	}
	if _, err := p.Eval(`() => window.scrollTo(0, 0)`); err != nil {
		return Output{}, fmt.Errorf("mobile: scroll reset failed: %w", err)
	}

	res, err := p.Eval(mobileCheckJS)
	if err != nil {
		return Output{}, fmt.Errorf("mobile: measurement failed: %w", err)
	}

	var raw struct {
		ViewportPresent     bool    `json:"viewportPresent"`
		TouchTargetsOKRatio float64 `json:"touchTargetsOkRatio"`
		SmallTextFraction   float64 `json:"smallTextFraction"`
		ContentFitsViewport bool    `json:"contentFitsViewport"`
		HorizontalOverflow  bool    `json:"horizontalOverflow"`
	}
	if err := res.Value.Unmarshal(&raw); err != nil {
		return Output{}, fmt.Errorf("mobile: decode measurement: %w", err)
	}

	section := &model.MobileSection{
		ViewportPresent:     raw.ViewportPresent,
		TouchTargetsOKRatio: raw.TouchTargetsOKRatio,
		SmallTextFraction:   raw.SmallTextFraction,
		ContentFitsViewport: raw.ContentFitsViewport,
		HorizontalOverflow:  raw.HorizontalOverflow,
	}
	section.Score = scoreMobile(section)

	return Output{Section: section}, nil
}

func scoreMobile(s *model.MobileSection) int {
	score := 100
	if !s.ViewportPresent {
		score -= 25
	}
	if !s.ContentFitsViewport {
		score -= 15
	}
	if s.HorizontalOverflow {
		score -= 15
	}
	score -= int((1 - s.TouchTargetsOKRatio) * 25)
	score -= int(s.SmallTextFraction * 20)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

const mobileCheckJS = `() => {
	const viewportMeta = document.querySelector('meta[name="viewport"]');
	const viewportPresent = !!viewportMeta && /width\s*=\s*device-width/.test(viewportMeta.content || '');

	const clickable = Array.from(document.querySelectorAll('a, button, input, select, textarea, [role="button"]'));
	let okCount = 0;
	for (const el of clickable) {
		const rect = el.getBoundingClientRect();
		if (rect.width >= 44 && rect.height >= 44) okCount++;
	}
	const touchTargetsOkRatio = clickable.length > 0 ? okCount / clickable.length : 1;

	const textEls = Array.from(document.querySelectorAll('p, span, li, a, div')).slice(0, 300);
	let smallCount = 0;
	let measured = 0;
	for (const el of textEls) {
		const text = (el.innerText || '').trim();
		if (text.length === 0) continue;
		measured++;
		const size = parseFloat(window.getComputedStyle(el).fontSize) || 16;
		if (size < 12) smallCount++;
	}
	const smallTextFraction = measured > 0 ? smallCount / measured : 0;

	const contentFitsViewport = document.documentElement.scrollWidth <= window.innerWidth + 5;
	const horizontalOverflow = document.documentElement.scrollWidth > window.innerWidth + 5;

	return {
		viewportPresent, touchTargetsOkRatio: touchTargetsOkRatio,
		smallTextFraction, contentFitsViewport, horizontalOverflow,
	};
}`
