// Package orchestrator drives one URL's full audit lifecycle: acquiring a
// browsing context, navigating, consulting the redirect detector, running
// the fixed analyzer set with isolation, and synthesizing the composite
// result.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/webauditor/analyzer"
	"github.com/use-agent/webauditor/auditerr"
	"github.com/use-agent/webauditor/browserpool"
	"github.com/use-agent/webauditor/httpfetch"
	"github.com/use-agent/webauditor/model"
	"github.com/use-agent/webauditor/redirect"
	"github.com/use-agent/webauditor/resultfactory"
)

// EventSink receives lifecycle notices the orchestrator cannot emit
// itself without creating an import cycle with the event bus (the queue
// is the one that actually owns url-started/url-completed/url-failed;
// the orchestrator only emits analyzer-warning, since that is scoped to
// a single page's analyzer run).
type EventSink interface {
	Publish(model.Event)
}

// Orchestrator runs the single-URL audit protocol.
type Orchestrator struct {
	Pool     *browserpool.Pool
	Preflight *httpfetch.Client
	Analyzers []analyzer.Analyzer // accessibility first, then the rest
	Events    EventSink

	// OverallDeadline bounds one URL's entire orchestration, including
	// lease wait, navigation, and every analyzer. Defaults to 75s.
	OverallDeadline time.Duration
}

// New builds an orchestrator with the fixed analyzer set, gated by the
// run's toggles (accessibility is unconditional).
func New(pool *browserpool.Pool, preflight *httpfetch.Client, events EventSink, toggles model.AnalyzerToggles, extra struct {
	Accessibility *analyzer.Accessibility
	Performance   *analyzer.Performance
	SEO           *analyzer.SEO
	ContentWeight *analyzer.ContentWeight
	Mobile        *analyzer.Mobile
}) *Orchestrator {
	analyzers := []analyzer.Analyzer{extra.Accessibility}
	if toggles.PerformanceEnabled() {
		analyzers = append(analyzers, extra.Performance)
	}
	if toggles.SEOEnabled() {
		analyzers = append(analyzers, extra.SEO)
	}
	if toggles.ContentWeightEnabled() {
		analyzers = append(analyzers, extra.ContentWeight)
	}
	if toggles.MobileEnabled() {
		analyzers = append(analyzers, extra.Mobile)
	}
	return &Orchestrator{
		Pool:            pool,
		Preflight:       preflight,
		Analyzers:       analyzers,
		Events:          events,
		OverallDeadline: 75 * time.Second,
	}
}

// AuditURL runs the full ordered protocol for one URL and always returns a
// PageResult, never an error the caller must special-case: every failure
// path is already folded into the result's status/error fields. The
// returned bool reports whether the failure (if any) should be retried by
// the work queue.
func (o *Orchestrator) AuditURL(ctx context.Context, rawURL string, opts model.RunOptions) (*model.PageResult, bool) {
	start := time.Now()

	deadline := o.OverallDeadline
	if opts.TimeoutMs > 0 && time.Duration(opts.TimeoutMs)*time.Millisecond > deadline {
		deadline = time.Duration(opts.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	// ── 1. Acquire lease ──────────────────────────────────────────────
	lease, err := o.Pool.Acquire(ctx)
	if err != nil {
		return resultfactory.CreateCrash(rawURL, err, time.Since(start)), isRetriable(err)
	}
	success := false
	defer func() { lease.ReleaseFn(success) }()

	page := lease.Page

	// ── 2. Configure the page before navigation ──────────────────────
	if err := configurePage(page, opts); err != nil {
		slog.Warn("orchestrator: page configuration failed, continuing with defaults", "url", rawURL, "error", err)
	}
	tracker := newResourceTracker(page, opts.Analyzers.ContentWeightEnabled())
	defer tracker.stop()

	perURLTimeout := time.Duration(opts.TimeoutMs) * time.Millisecond
	if perURLTimeout <= 0 {
		perURLTimeout = 30 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(ctx, perURLTimeout)
	defer navCancel()

	p := page.Context(navCtx)

	// ── 3. Navigate ───────────────────────────────────────────────────
	if err := p.Navigate(rawURL); err != nil {
		return resultfactory.CreateCrash(rawURL, categorize(err), time.Since(start)), true
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("orchestrator: DOM did not stabilize, proceeding", "url", rawURL, "error", err)
	}

	statusCode := navigationStatus(p)
	finalURL := evalString(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = rawURL
	}
	title := evalString(p, `() => document.title`)

	// Redirect reconciliation: the navigation listener approach the
	// teacher's own scraper abandoned (it conflicts with the hijack
	// router's Fetch-domain interception on recent Chromium) is replaced
	// here by an independent, non-blocking HTTP preflight that supplies
	// the redirect chain half of the detector's OR-condition.
	var preflightChain []string
	if o.Preflight != nil {
		if res, perr := o.Preflight.Probe(ctx, rawURL); perr == nil {
			preflightChain = res.Chain
		}
	}
	info := redirect.Detect(redirect.Input{
		OriginalURL:          rawURL,
		FinalURL:             finalURL,
		StatusCode:           statusCode,
		ObservedHTTPRedirect: false,
		PreflightChain:       preflightChain,
	})

	// ── 4. Short-circuit on HTTP error or real redirect ──────────────
	if statusCode >= 400 {
		success = true
		// 408 (request timeout) and 429 (rate limited) are transient;
		// every other 4xx/5xx is terminal.
		retriable := statusCode == 408 || statusCode == 429
		return resultfactory.CreateHTTPError(rawURL, statusCode, time.Since(start)), retriable
	}
	if info.IsRedirect && opts.SkipRedirects {
		success = true
		return resultfactory.CreateRedirectSkip(info, time.Since(start)), false
	}

	html, err := p.HTML()
	if err != nil {
		return resultfactory.CreateCrash(rawURL, categorize(err), time.Since(start)), true
	}

	pc := analyzer.PageContext{
		Page:          page,
		URL:           finalURL,
		Options:       opts,
		DocumentHTML:  html,
		ResourceBytes: tracker.snapshot(),
	}

	// ── 5. Run analyzers: accessibility first and sequentially (it runs
	// on the shared page and must finish before later in-page injections
	// from other analyzers could invalidate its execution context), then
	// the rest concurrently with allSettled semantics.
	sections := resultfactory.Sections{}
	accessibilityOK := false

	if len(o.Analyzers) > 0 {
		out, err := o.runOne(ctx, o.Analyzers[0], pc, rawURL)
		if err == nil {
			if sec, ok := out.Section.(*model.AccessibilitySection); ok {
				sections.Accessibility = sec
				accessibilityOK = true
			}
		}
	}

	if len(o.Analyzers) > 1 {
		o.runConcurrent(ctx, o.Analyzers[1:], pc, rawURL, &sections)
	}

	status := model.StatusPassed
	if !accessibilityOK {
		status = model.StatusFailed
	}

	result := resultfactory.CreateOk(rawURL, finalURL, title, status, sections, time.Since(start))
	if opts.CaptureScreenshots {
		result.Screenshots = captureScreenshots(page, opts)
	}

	success = true
	return result, false
}

// runOne runs a single analyzer under its own timeout, containing any
// panic or error so it never aborts the caller.
func (o *Orchestrator) runOne(ctx context.Context, a analyzer.Analyzer, pc analyzer.PageContext, url string) (out analyzer.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzer %s panicked: %v", a.Name(), r)
		}
	}()

	timeout := time.Duration(a.DefaultTimeoutMs()) * time.Millisecond
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err = a.Run(actx, pc)
	if err != nil {
		o.warn(url, string(a.Name()), err)
	}
	return out, err
}

// runConcurrent runs every remaining analyzer in its own goroutine and
// waits for all of them, Promise.allSettled-style: one analyzer's failure
// or timeout never prevents the others' sections from being collected.
func (o *Orchestrator) runConcurrent(ctx context.Context, analyzers []analyzer.Analyzer, pc analyzer.PageContext, url string, sections *resultfactory.Sections) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, a := range analyzers {
		wg.Add(1)
		go func(a analyzer.Analyzer) {
			defer wg.Done()
			out, err := o.runOne(ctx, a, pc, url)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch sec := out.Section.(type) {
			case *model.PerformanceSection:
				sections.Performance = sec
			case *model.SEOSection:
				sections.SEO = sec
			case *model.ContentWeightSection:
				sections.ContentWeight = sec
			case *model.MobileSection:
				sections.Mobile = sec
			}
		}(a)
	}
	wg.Wait()
}

func (o *Orchestrator) warn(url, analyzerName string, err error) {
	if o.Events == nil {
		return
	}
	o.Events.Publish(model.Event{
		Type:      model.EventAnalyzerWarning,
		Timestamp: time.Now(),
		Payload: model.AnalyzerWarningPayload{
			URL:      url,
			Analyzer: analyzerName,
			Err:      err,
		},
	})
}

func configurePage(page *rod.Page, opts model.RunOptions) error {
	width, height := 1920, 1080
	if opts.Viewport.Width > 0 {
		width, height = opts.Viewport.Width, opts.Viewport.Height
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  width,
		Height: height,
	}); err != nil {
		return err
	}
	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			return err
		}
	}
	return nil
}

// mobileScreenshotViewport is a common phone viewport, used only for the
// mobile capture; the desktop capture reuses whatever viewport the run
// already configured.
var mobileScreenshotViewport = proto.EmulationSetDeviceMetricsOverride{Width: 375, Height: 667, Mobile: true}

// captureScreenshots takes a desktop-viewport PNG followed by a
// mobile-viewport PNG, restoring the original viewport afterward. A
// failure on either capture leaves that field nil rather than failing
// the whole audit.
func captureScreenshots(page *rod.Page, opts model.RunOptions) *model.ScreenshotSet {
	set := &model.ScreenshotSet{}

	if png, err := page.Screenshot(true, nil); err == nil {
		set.DesktopPNG = png
	} else {
		slog.Debug("orchestrator: desktop screenshot failed", "error", err)
	}

	if err := page.SetViewport(&mobileScreenshotViewport); err == nil {
		if png, err := page.Screenshot(true, nil); err == nil {
			set.MobilePNG = png
		} else {
			slog.Debug("orchestrator: mobile screenshot failed", "error", err)
		}
		width, height := 1920, 1080
		if opts.Viewport.Width > 0 {
			width, height = opts.Viewport.Width, opts.Viewport.Height
		}
		_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: width, Height: height})
	}

	return set
}

func navigationStatus(p *rod.Page) int {
	res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 200;
		} catch (e) {}
		return 200;
	}`)
	if err != nil {
		return 200
	}
	return res.Value.Int()
}

func evalString(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func categorize(err error) error {
	return auditerr.New(auditerr.CodeNavigation, "navigation failed", err)
}

func isRetriable(err error) bool {
	var ae *auditerr.Error
	if e, ok := err.(*auditerr.Error); ok {
		ae = e
	}
	if ae == nil {
		return false
	}
	return ae.Retriable()
}
