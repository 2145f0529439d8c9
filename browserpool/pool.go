// Package browserpool owns a bounded set of headless-browser processes and
// hands out isolated browsing contexts, recycling them on fault or age.
package browserpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/stealth"
	"github.com/use-agent/webauditor/auditerr"
	"github.com/use-agent/webauditor/model"
)

// Config enumerates the pool's tunables, per the engine's browser-pool
// component design.
type Config struct {
	MaxBrowsers        int           // default 2-4
	MaxPagesPerBrowser int           // default 5
	BrowserKind        string        // "chromium" (only supported kind; see DESIGN.md)
	WarmUpCount        int
	MaxIdleMs          int
	MaxBrowserAgeMs    int
	Headless           bool
	LaunchArgs         []string
	NoSandbox          bool
	BrowserBin         string
	DefaultProxy       string
}

func (c *Config) defaults() {
	if c.MaxBrowsers <= 0 {
		c.MaxBrowsers = 3
	}
	if c.MaxPagesPerBrowser <= 0 {
		c.MaxPagesPerBrowser = 5
	}
	if c.MaxBrowserAgeMs <= 0 {
		c.MaxBrowserAgeMs = 50 * 60 * 1000
	}
}

// Metrics is a point-in-time snapshot of pool activity.
type Metrics struct {
	Active     int
	Idle       int
	Created    int64
	Reused     int64
	Efficiency float64
}

type instance struct {
	id      string
	browser *rod.Browser
	handle  *instanceHandle
	pagesOut int
}

// Lease pairs the engine's data-only BrowserLease with the live *rod.Page
// the orchestrator navigates. It is exclusively owned by the caller until
// Release is invoked.
type Lease struct {
	model.BrowserLease
	Page *rod.Page
}

// Pool supplies isolated browsing contexts (Chrome incognito pages) drawn
// from a bounded set of Chrome processes.
type Pool struct {
	cfg Config

	mu        sync.Mutex
	instances []*instance
	shutDown  bool

	sem chan struct{} // capacity = MaxBrowsers * MaxPagesPerBrowser

	created atomic.Int64
	reused  atomic.Int64
	totalReq atomic.Int64

	wg sync.WaitGroup // outstanding leases, for graceful shutdown
}

// New constructs a pool and launches WarmUpCount browsers eagerly.
func New(cfg Config) (*Pool, error) {
	cfg.defaults()
	p := &Pool{
		cfg: cfg,
		sem: make(chan struct{}, cfg.MaxBrowsers*cfg.MaxPagesPerBrowser),
	}
	for i := 0; i < cfg.MaxBrowsers*cfg.MaxPagesPerBrowser; i++ {
		p.sem <- struct{}{}
	}
	if cfg.WarmUpCount > 0 {
		if err := p.WarmUp(cfg.WarmUpCount); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// WarmUp launches up to n browsers preemptively. Launch failures are
// retried up to 3x with exponential backoff; a persistent failure is
// reported as ResourceExhausted.
func (p *Pool) WarmUp(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < n && len(p.instances) < p.cfg.MaxBrowsers; i++ {
		inst, err := p.launchWithRetry()
		if err != nil {
			return err
		}
		p.instances = append(p.instances, inst)
	}
	return nil
}

func (p *Pool) launchWithRetry() (*instance, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<attempt) * 200 * time.Millisecond)
		}
		inst, err := p.launch()
		if err == nil {
			return inst, nil
		}
		lastErr = err
		slog.Warn("browserpool: launch attempt failed", "attempt", attempt+1, "error", err)
	}
	return nil, auditerr.New(auditerr.CodeResourceExhausted, "failed to launch browser after retries", lastErr)
}

func (p *Pool) launch() (*instance, error) {
	if p.cfg.BrowserKind != "" && p.cfg.BrowserKind != "chromium" {
		slog.Warn("browserpool: non-chromium browserKind requested, falling back to chromium",
			"requested", p.cfg.BrowserKind)
	}

	l := launcher.New().
		Headless(p.cfg.Headless).
		NoSandbox(p.cfg.NoSandbox)

	if p.cfg.BrowserBin != "" {
		l = l.Bin(p.cfg.BrowserBin)
	}
	if p.cfg.DefaultProxy != "" {
		l = l.Proxy(p.cfg.DefaultProxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))
	for _, arg := range p.cfg.LaunchArgs {
		l.Set(flags.Flag(arg))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	id := fmt.Sprintf("browser-%d", p.created.Add(1))
	slog.Info("browserpool: launched browser", "id", id, "controlURL", controlURL)
	return &instance{id: id, browser: browser, handle: newInstanceHandle()}, nil
}

// Acquire returns a fresh, isolated lease. It blocks until a slot is
// available under MaxBrowsers*MaxPagesPerBrowser, or returns
// ResourceExhausted if the pool is shutting down or ctx is cancelled first.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	p.mu.Lock()
	if p.shutDown {
		p.mu.Unlock()
		return nil, auditerr.New(auditerr.CodeResourceExhausted, "pool is shutting down", nil)
	}
	p.mu.Unlock()

	select {
	case <-p.sem:
	case <-ctx.Done():
		return nil, auditerr.New(auditerr.CodeResourceExhausted, "timed out waiting for a browser lease", ctx.Err())
	}

	p.wg.Add(1)
	p.totalReq.Add(1)

	inst, err := p.pickOrLaunchInstance()
	if err != nil {
		p.sem <- struct{}{}
		p.wg.Done()
		return nil, err
	}

	page, err := inst.browser.IncognitoPage()
	if err != nil {
		p.retireInstance(inst, false)
		p.sem <- struct{}{}
		p.wg.Done()
		return nil, auditerr.New(auditerr.CodeBrowserCrash, "failed to open isolated context", err)
	}
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("browserpool: stealth injection failed, proceeding without it", "error", err)
	}

	p.mu.Lock()
	inst.pagesOut++
	p.mu.Unlock()

	contextID := fmt.Sprintf("%s-ctx-%d", inst.id, inst.handle.served()+1)
	released := atomic.Bool{}

	lease := &Lease{
		Page: page,
		BrowserLease: model.BrowserLease{
			BrowserID:  inst.id,
			ContextID:  contextID,
			AcquiredAt: time.Now(),
		},
	}
	lease.ReleaseFn = func(success bool) {
		if !released.CompareAndSwap(false, true) {
			return // idempotent: a second Release is a no-op
		}
		_ = page.Close()
		p.mu.Lock()
		inst.pagesOut--
		p.mu.Unlock()
		p.retireInstance(inst, success)
		p.sem <- struct{}{}
		p.wg.Done()
	}
	return lease, nil
}

// pickOrLaunchInstance returns an instance with spare capacity, launching a
// new one if under MaxBrowsers and none qualifies.
func (p *Pool) pickOrLaunchInstance() (*instance, error) {
	p.mu.Lock()
	for _, inst := range p.instances {
		if inst.handle.shouldRetire(p.cfg.MaxPagesPerBrowser, time.Duration(p.cfg.MaxBrowserAgeMs)*time.Millisecond) {
			continue
		}
		if inst.pagesOut < p.cfg.MaxPagesPerBrowser {
			p.reused.Add(1)
			p.mu.Unlock()
			return inst, nil
		}
	}
	canLaunch := len(p.instances) < p.cfg.MaxBrowsers
	p.mu.Unlock()

	if canLaunch {
		inst, err := p.launchWithRetry()
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.instances = append(p.instances, inst)
		p.mu.Unlock()
		return inst, nil
	}

	// At capacity with every instance either full or due for retirement:
	// fall back to the least-loaded instance rather than blocking forever,
	// since the semaphore already bounds total outstanding leases.
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.instances) == 0 {
		return nil, auditerr.New(auditerr.CodeResourceExhausted, "no browser instances available", nil)
	}
	best := p.instances[0]
	for _, inst := range p.instances[1:] {
		if inst.pagesOut < best.pagesOut {
			best = inst
		}
	}
	return best, nil
}

// retireInstance records the outcome and, if the instance has crossed a
// retirement threshold, closes it and drops it from the pool. The pool
// keeps no minimum instance count: a replacement is created lazily on the
// next Acquire.
func (p *Pool) retireInstance(inst *instance, success bool) {
	if success {
		inst.handle.recordSuccess()
	} else {
		inst.handle.recordFailure()
	}

	if !inst.handle.shouldRetire(p.cfg.MaxPagesPerBrowser, time.Duration(p.cfg.MaxBrowserAgeMs)*time.Millisecond) {
		return
	}

	p.mu.Lock()
	idx := -1
	for i, cand := range p.instances {
		if cand == inst {
			idx = i
			break
		}
	}
	if idx == -1 {
		p.mu.Unlock()
		return // already retired by a concurrent release
	}
	if inst.pagesOut > 0 {
		p.mu.Unlock()
		return // still serving other leases; retire on its next free release
	}
	p.instances = append(p.instances[:idx], p.instances[idx+1:]...)
	p.mu.Unlock()

	slog.Info("browserpool: retiring browser", "id", inst.id)
	go inst.browser.MustClose()
}

// Metrics returns a snapshot of pool activity.
func (p *Pool) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	active, idle := 0, 0
	for _, inst := range p.instances {
		active += inst.pagesOut
		idle += p.cfg.MaxPagesPerBrowser - inst.pagesOut
	}
	total := p.totalReq.Load()
	var efficiency float64
	if total > 0 {
		efficiency = float64(p.reused.Load()) / float64(total)
	}
	return Metrics{
		Active:     active,
		Idle:       idle,
		Created:    p.created.Load(),
		Reused:     p.reused.Load(),
		Efficiency: efficiency,
	}
}

// Shutdown stops accepting new acquires, waits up to grace for outstanding
// leases to release, then force-disposes every browser.
func (p *Pool) Shutdown(grace time.Duration) {
	p.mu.Lock()
	p.shutDown = true
	instances := p.instances
	p.instances = nil
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		slog.Warn("browserpool: shutdown grace period elapsed with leases outstanding")
	}

	for _, inst := range instances {
		inst.browser.MustClose()
	}
}
