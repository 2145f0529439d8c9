package model

import "time"

// BudgetTemplate names a content/performance threshold profile.
type BudgetTemplate string

const (
	BudgetDefault   BudgetTemplate = "default"
	BudgetEcommerce BudgetTemplate = "ecommerce"
	BudgetBlog      BudgetTemplate = "blog"
	BudgetCorporate BudgetTemplate = "corporate"
)

// PA11yStandard names an accessibility rule-set profile. The engine does
// not implement distinct rule sets itself (the rule engine is an external
// black box per the engine's external-interface contract); the standard is
// passed through to whichever runner is wired in.
type PA11yStandard string

const (
	StandardWCAG2A    PA11yStandard = "WCAG2A"
	StandardWCAG2AA   PA11yStandard = "WCAG2AA"
	StandardWCAG2AAA  PA11yStandard = "WCAG2AAA"
	StandardSection508 PA11yStandard = "Section508"
)

// Viewport overrides the orchestrator's default 1920x1080 viewport.
type Viewport struct {
	Width  int
	Height int
}

// AnalyzerToggles enables or disables individual analyzers. Accessibility
// has no toggle: it is always on. Fields are pointers so that "unset"
// (nil, defaults to enabled) is distinguishable from an explicit "disabled"
// (--no-performance etc. at the CLI boundary) — the same trick the CLI's
// enclosing program uses for its own optional booleans.
type AnalyzerToggles struct {
	Performance   *bool
	SEO           *bool
	ContentWeight *bool
	Mobile        *bool
}

func enabled(p *bool) bool { return p == nil || *p }

// Enabled reports whether each analyzer should run, applying the
// nil-means-enabled default.
func (t AnalyzerToggles) PerformanceEnabled() bool   { return enabled(t.Performance) }
func (t AnalyzerToggles) SEOEnabled() bool           { return enabled(t.SEO) }
func (t AnalyzerToggles) ContentWeightEnabled() bool { return enabled(t.ContentWeight) }
func (t AnalyzerToggles) MobileEnabled() bool        { return enabled(t.Mobile) }

// RunOptions is the Engine Facade's input, per the facade's option table.
type RunOptions struct {
	SitemapURL          string
	MaxPages            int
	MaxConcurrent       int
	TimeoutMs           int
	PA11yStandard       PA11yStandard
	Analyzers           AnalyzerToggles
	SkipRedirects       bool
	BudgetTemplate      BudgetTemplate
	Viewport            Viewport
	UserAgent           string
	CaptureScreenshots  bool

	MaxRetries          int
	RetryBackoffBaseMs  int
	ProgressInterval    time.Duration
	SoftMemCeilingMB    float64
	SoftCPUCeilingPct   float64
}

// Defaults fills unset fields with the engine's documented defaults.
func (o *RunOptions) Defaults() {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 4
	}
	if o.TimeoutMs <= 0 {
		o.TimeoutMs = 30_000
	}
	if o.PA11yStandard == "" {
		o.PA11yStandard = StandardWCAG2AA
	}
	if o.BudgetTemplate == "" {
		o.BudgetTemplate = BudgetDefault
	}
	if o.Viewport.Width == 0 {
		o.Viewport = Viewport{Width: 1920, Height: 1080}
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryBackoffBaseMs <= 0 {
		o.RetryBackoffBaseMs = 2000
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = 2 * time.Second
	}
	if o.SoftMemCeilingMB <= 0 {
		o.SoftMemCeilingMB = 512
	}
	if o.SoftCPUCeilingPct <= 0 {
		o.SoftCPUCeilingPct = 80
	}
	// Accessibility is always on. The rest default to enabled via the nil
	// semantics of AnalyzerToggles; nothing to fill in here.
}
