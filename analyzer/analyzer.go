// Package analyzer implements the fixed set of per-page analyzers
// (accessibility, performance, SEO, content weight, mobile-friendliness)
// behind one uniform interface the orchestrator drives identically for
// each.
package analyzer

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/use-agent/webauditor/model"
)

// Id names one of the fixed analyzers. The set is closed: no plugin
// mechanism, no user-defined analyzers.
type Id string

const (
	IDAccessibility Id = "accessibility"
	IDPerformance   Id = "performance"
	IDSEO           Id = "seo"
	IDContentWeight Id = "content-weight"
	IDMobile        Id = "mobile"
)

// PageContext is everything an analyzer needs about the page it was
// handed: the already-navigated, already-settled rod page, the URL that
// was actually loaded (post-redirect), and the run's options (viewport,
// pa11y standard, budget template, and so on).
type PageContext struct {
	Page    *rod.Page
	URL     string
	Options model.RunOptions

	// DocumentHTML is the fully rendered document's outer HTML, captured
	// once by the orchestrator and shared across analyzers that only need
	// to parse markup (SEO, content weight) so they never re-fetch it.
	DocumentHTML string

	// ResourceBytes is populated by the orchestrator from the page's
	// network log, shared by any analyzer that partitions bytes by
	// resource type (content weight).
	ResourceBytes model.ResourceBytes
}

// Output is an analyzer's result: exactly one of the five section types,
// boxed as `any` so the interface stays uniform. The orchestrator type
// -asserts it back into the right PageResult field by Id.
type Output struct {
	Section any
}

// Analyzer is the uniform contract every one of the five fixed analyzers
// implements. Run must respect ctx's deadline: the orchestrator applies a
// per-analyzer timeout of DefaultTimeoutMs on top of the overall per-page
// deadline.
type Analyzer interface {
	Name() Id
	DefaultTimeoutMs() int
	Run(ctx context.Context, pc PageContext) (Output, error)
}
