// Package audit is the Engine Facade: it wires the sitemap collaborator,
// browser pool, preflight redirect detector, analyzer set, orchestrator,
// work queue, and event bus into the single `Run(options) -> RunResult`
// entry point the CLI and API server both call.
package audit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/use-agent/webauditor/analyzer"
	"github.com/use-agent/webauditor/browserpool"
	"github.com/use-agent/webauditor/dupcontent"
	"github.com/use-agent/webauditor/eventbus"
	"github.com/use-agent/webauditor/httpfetch"
	"github.com/use-agent/webauditor/llmsignal"
	"github.com/use-agent/webauditor/model"
	"github.com/use-agent/webauditor/orchestrator"
	"github.com/use-agent/webauditor/queue"
	"github.com/use-agent/webauditor/sitemap"
	"github.com/use-agent/webauditor/webhookbus"
)

// WebhookConfig, if set, attaches an outbound delivery subscriber to the
// facade's event bus at construction time.
type WebhookConfig struct {
	URL    string
	Secret string
}

// Config builds one Facade. BrowserPool and HTTPFetchTimeout size the
// resources shared across every Run call; LLM and Webhook are optional
// extended signals.
type Config struct {
	BrowserPool          browserpool.Config
	HTTPFetchTimeout     time.Duration
	LLM                  *llmsignal.Params
	Webhook              *WebhookConfig
	SuppressDeprecations bool
}

// Facade owns the long-lived resources (browser pool, HTTP clients, event
// bus) that every Run call shares; only the per-run analyzer wiring
// (duplicate-content tracker, SEO extended signals) is rebuilt per call.
type Facade struct {
	pool      *browserpool.Pool
	preflight *httpfetch.Client
	bus       *eventbus.Bus
	llm       *llmsignal.Client
}

// New constructs a Facade. Call Shutdown when done to release browser
// processes.
func New(cfg Config) (*Facade, error) {
	pool, err := browserpool.New(cfg.BrowserPool)
	if err != nil {
		return nil, fmt.Errorf("audit: build browser pool: %w", err)
	}

	timeout := cfg.HTTPFetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	bus := eventbus.New(cfg.SuppressDeprecations)

	if cfg.Webhook != nil && cfg.Webhook.URL != "" {
		webhookbus.New(cfg.Webhook.URL, cfg.Webhook.Secret, nil).Attach(bus)
	}

	var llm *llmsignal.Client
	if cfg.LLM != nil && cfg.LLM.APIKey != "" {
		llm = llmsignal.New(&http.Client{Timeout: 20 * time.Second}, *cfg.LLM)
	}

	return &Facade{
		pool:      pool,
		preflight: httpfetch.New(timeout),
		bus:       bus,
		llm:       llm,
	}, nil
}

// PoolMetrics exposes the browser pool's point-in-time utilization, for
// the status API's health probe.
func (f *Facade) PoolMetrics() browserpool.Metrics { return f.pool.Metrics() }

// Events exposes the canonical event bus for subscriptions
// (eventCallbacks in the facade's option table) and legacy-callback
// adaptation.
func (f *Facade) Events() *eventbus.Bus { return f.bus }

// Shutdown releases every pooled browser process, waiting up to grace
// for in-flight leases to finish.
func (f *Facade) Shutdown(grace time.Duration) {
	f.pool.Shutdown(grace)
}

// Run discovers URLs from sitemapURL, audits up to opts.MaxPages of them
// through the work queue, and returns the aggregated result. It never
// returns a partial RunResult and an error together: a sitemap-discovery
// failure is the only error path, since every per-URL failure is already
// folded into that URL's PageResult by the orchestrator.
func (f *Facade) Run(ctx context.Context, sitemapURL string, opts model.RunOptions) (*model.RunResult, error) {
	opts.SitemapURL = sitemapURL

	urls, err := sitemap.Parse(sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("audit: discover urls: %w", err)
	}

	// Over-cap URLs are simply outside this run, not a skip outcome: they
	// are never dispatched, so they must not appear in SkippedURLs either,
	// or |results|+|skippedUrls| would overcount min(|inputUrls|,maxPages).
	if opts.MaxPages > 0 && len(urls) > opts.MaxPages {
		urls = urls[:opts.MaxPages]
	}

	return f.runURLs(ctx, sitemapURL, urls, nil, opts)
}

// RunURLs audits an explicit URL set, bypassing sitemap discovery. Used
// by --resume to re-audit only a saved run's still-pending URLs, without
// re-crawling the whole sitemap.
func (f *Facade) RunURLs(ctx context.Context, sitemapURL string, urls []string, opts model.RunOptions) (*model.RunResult, error) {
	return f.runURLs(ctx, sitemapURL, urls, nil, opts)
}

func (f *Facade) runURLs(ctx context.Context, sitemapURL string, urls []string, skipped []string, opts model.RunOptions) (*model.RunResult, error) {
	start := time.Now()
	opts.Defaults()

	dup := dupcontent.New()
	seo := &analyzer.SEO{DuplicateSignal: dup.Check}
	if f.llm != nil {
		seo.LLMSignal = f.llm.Analyze
	}

	orch := orchestrator.New(f.pool, f.preflight, f.bus, opts.Analyzers, struct {
		Accessibility *analyzer.Accessibility
		Performance   *analyzer.Performance
		SEO           *analyzer.SEO
		ContentWeight *analyzer.ContentWeight
		Mobile        *analyzer.Mobile
	}{
		Accessibility: &analyzer.Accessibility{},
		Performance:   &analyzer.Performance{},
		SEO:           seo,
		ContentWeight: &analyzer.ContentWeight{},
		Mobile:        &analyzer.Mobile{},
	})

	q := queue.New(queue.Config{
		MaxConcurrent:      opts.MaxConcurrent,
		MaxRetries:         opts.MaxRetries,
		RetryBackoffBaseMs: opts.RetryBackoffBaseMs,
		PerTaskTimeoutMs:   opts.TimeoutMs,
		ProgressInterval:   opts.ProgressInterval,
		SoftMemCeilingMB:   opts.SoftMemCeilingMB,
		SoftCPUCeilingPct:  opts.SoftCPUCeilingPct,
	}, func(taskCtx context.Context, url string) (*model.PageResult, bool) {
		return orch.AuditURL(taskCtx, url, opts)
	}, f.bus)

	pages := q.Run(ctx, urls)

	return &model.RunResult{
		Summary:     summarize(pages),
		Pages:       pages,
		SkippedURLs: skipped,
		DurationMs:  time.Since(start).Milliseconds(),
		Metadata: map[string]string{
			"sitemapUrl":     sitemapURL,
			"budgetTemplate": string(opts.BudgetTemplate),
		},
	}, nil
}

func summarize(pages []*model.PageResult) model.Summary {
	var s model.Summary
	var scoreSum, scoreCount float64

	for _, p := range pages {
		if p == nil {
			continue
		}
		s.TotalPages++
		switch p.Status {
		case model.StatusPassed:
			s.Passed++
		case model.StatusCrashed:
			s.Crashed++
		case model.StatusSkippedRedirect:
			s.SkippedRedirects++
		case model.StatusHTTPError:
			s.HTTPErrors++
		default:
			s.Failed++
		}
		if p.CompositeScore != nil {
			scoreSum += float64(*p.CompositeScore)
			scoreCount++
		}
	}
	if scoreCount > 0 {
		s.AverageScore = scoreSum / scoreCount
	}
	return s
}
