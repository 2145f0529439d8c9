package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/webauditor/apiserver"
	"github.com/use-agent/webauditor/audit"
	"github.com/use-agent/webauditor/browserpool"
	"github.com/use-agent/webauditor/config"
	"github.com/use-agent/webauditor/llmsignal"
	"github.com/use-agent/webauditor/model"
	"github.com/use-agent/webauditor/state"
)

const (
	cliName = "webauditor"
	version = "v1.0"
)

// flags mirrors the CLI surface onto plain fields cobra can bind to.
type flags struct {
	maxPages           int
	format             string
	outputDir          string
	budget             string
	expert             bool
	nonInteractive     bool
	quietDeprecations  bool
	verbose            bool
	noPerformance      bool
	noSEO              bool
	noContentWeight    bool
	noMobile           bool
	resume             string
	saveState          bool
	listStates         bool
}

func main() {
	f := &flags{}

	root := &cobra.Command{
		Use:   cliName + " <sitemapUrl>",
		Short: "Audit every page in a site's sitemap for accessibility, performance, SEO, content weight, and mobile friendliness",
		Long:  fmt.Sprintf("%s %s - headless audit crawler", cliName, version),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f, args)
		},
	}

	root.Flags().IntVar(&f.maxPages, "max-pages", 0, "Maximum pages to audit (0 = no limit)")
	root.Flags().StringVar(&f.format, "format", "json", "Output format: json or text")
	root.Flags().StringVar(&f.outputDir, "output-dir", "", "Directory to write the run's result JSON to (default: stdout only)")
	root.Flags().StringVar(&f.budget, "budget", "", "Budget template: default, ecommerce, blog, corporate")
	root.Flags().BoolVar(&f.expert, "expert", false, "Skip the summary walkthrough and print raw results only")
	root.Flags().BoolVar(&f.nonInteractive, "non-interactive", false, "Never prompt; fail instead of asking")
	root.Flags().BoolVar(&f.quietDeprecations, "quiet-deprecations", false, "Suppress legacy-callback deprecation warnings")
	root.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Debug-level logging")
	root.Flags().BoolVar(&f.noPerformance, "no-performance", false, "Disable the performance analyzer")
	root.Flags().BoolVar(&f.noSEO, "no-seo", false, "Disable the SEO analyzer")
	root.Flags().BoolVar(&f.noContentWeight, "no-content-weight", false, "Disable the content-weight analyzer")
	root.Flags().BoolVar(&f.noMobile, "no-mobile", false, "Disable the mobile analyzer")
	root.Flags().StringVar(&f.resume, "resume", "", "Resume a saved run by state ID, re-auditing only its pending URLs")
	root.Flags().BoolVar(&f.saveState, "save-state", false, "Save the completed run to the state directory for later --resume")
	root.Flags().BoolVar(&f.listStates, "list-states", false, "List saved runs and exit")
	root.Flags().SortFlags = false

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, f *flags, args []string) error {
	cfg := config.Load()
	if f.quietDeprecations {
		cfg.State.SuppressDeprecations = true
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
	initLogger(cfg.Log)

	if f.listStates {
		return listStates(cfg.State.Dir)
	}

	facade, err := buildFacade(cfg)
	if err != nil {
		slog.Error("failed to build audit engine", "error", err)
		os.Exit(1)
	}
	defer facade.Shutdown(5 * time.Second)

	if cfg.Server.Enabled {
		return serve(ctx, facade, cfg)
	}

	if len(args) == 0 && f.resume == "" {
		return fmt.Errorf("webauditor: a sitemap URL is required unless --resume or --list-states is given")
	}

	opts := optionsFromFlags(f, cfg)

	var (
		sitemapURL string
		result     *model.RunResult
	)

	if f.resume != "" {
		snap, err := state.Load(cfg.State.Dir, f.resume)
		if err != nil {
			slog.Error("failed to load saved run", "error", err)
			os.Exit(1)
		}
		sitemapURL = snap.SitemapURL
		pending := state.PendingURLs(snap)
		if len(pending) == 0 {
			slog.Info("nothing pending in saved run, it already completed cleanly", "id", f.resume)
			result = &snap.Result
		} else {
			slog.Info("resuming saved run", "id", f.resume, "pending", len(pending))
			result, err = facade.RunURLs(ctx, sitemapURL, pending, snap.Options)
			if err != nil {
				slog.Error("resumed run failed", "error", err)
				os.Exit(1)
			}
			result.Pages = append(mergeSettled(snap.Result.Pages, pending), result.Pages...)
			result.Summary = recomputeSummary(result.Pages)
		}
	} else {
		sitemapURL = args[0]
		result, err = facade.Run(ctx, sitemapURL, opts)
		if err != nil {
			slog.Error("run failed", "error", err)
			os.Exit(1)
		}
	}

	if err := render(result, f); err != nil {
		slog.Error("failed to render result", "error", err)
		os.Exit(1)
	}

	if f.saveState {
		snap := state.Snapshot{
			CreatedAt:  time.Now(),
			SitemapURL: sitemapURL,
			Options:    opts,
			Result:     *result,
		}
		path, err := state.Save(cfg.State.Dir, snap)
		if err != nil {
			slog.Error("failed to save run state", "error", err)
		} else {
			slog.Info("saved run state", "path", path)
		}
	}

	if result.Summary.Crashed > 0 {
		os.Exit(1)
	}
	return nil
}

// buildFacade wires configuration into the long-lived audit.Facade.
func buildFacade(cfg *config.Config) (*audit.Facade, error) {
	var llm *llmsignal.Params
	if cfg.LLM.APIKey != "" {
		llm = &llmsignal.Params{APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model, BaseURL: cfg.LLM.BaseURL}
	}
	var webhook *audit.WebhookConfig
	if cfg.Webhook.URL != "" {
		webhook = &audit.WebhookConfig{URL: cfg.Webhook.URL, Secret: cfg.Webhook.Secret}
	}

	return audit.New(audit.Config{
		BrowserPool: browserpool.Config{
			MaxBrowsers:        cfg.Browser.MaxBrowsers,
			MaxPagesPerBrowser: cfg.Browser.MaxPagesPerBrowser,
			WarmUpCount:        cfg.Browser.WarmUpCount,
			MaxIdleMs:          cfg.Browser.MaxIdleMs,
			MaxBrowserAgeMs:    cfg.Browser.MaxBrowserAgeMs,
			Headless:           cfg.Browser.Headless,
			NoSandbox:          cfg.Browser.NoSandbox,
			BrowserBin:         cfg.Browser.BrowserBin,
			DefaultProxy:       cfg.Browser.DefaultProxy,
		},
		HTTPFetchTimeout:     cfg.Browser.HTTPFetchTimeout,
		LLM:                  llm,
		Webhook:              webhook,
		SuppressDeprecations: cfg.State.SuppressDeprecations,
	})
}

func optionsFromFlags(f *flags, cfg *config.Config) model.RunOptions {
	opts := model.RunOptions{
		MaxPages:      f.maxPages,
		MaxConcurrent: cfg.Queue.MaxConcurrent,
		TimeoutMs:     cfg.Queue.PerTaskTimeoutMs,
		PA11yStandard: model.PA11yStandard(cfg.Analyzers.PA11yStandard),
		SkipRedirects: cfg.Analyzers.SkipRedirects,
		BudgetTemplate: model.BudgetTemplate(cfg.Analyzers.BudgetTemplate),

		MaxRetries:         cfg.Queue.MaxRetries,
		RetryBackoffBaseMs: cfg.Queue.RetryBackoffBaseMs,
		ProgressInterval:   cfg.Queue.ProgressInterval,
		SoftMemCeilingMB:   cfg.Queue.SoftMemCeilingMB,
		SoftCPUCeilingPct:  cfg.Queue.SoftCPUCeilingPct,
	}
	if f.budget != "" {
		opts.BudgetTemplate = model.BudgetTemplate(f.budget)
	}
	if f.noPerformance {
		no := false
		opts.Analyzers.Performance = &no
	}
	if f.noSEO {
		no := false
		opts.Analyzers.SEO = &no
	}
	if f.noContentWeight {
		no := false
		opts.Analyzers.ContentWeight = &no
	}
	if f.noMobile {
		no := false
		opts.Analyzers.Mobile = &no
	}
	opts.Defaults()
	return opts
}

// render writes the run's result to stdout and, if --output-dir is set,
// to a result.json file there too. Full HTML/Markdown report generation
// is out of scope for the core engine; this is a thin summary/dump, not
// a report pipeline.
func render(result *model.RunResult, f *flags) error {
	if f.format == "text" && !f.expert {
		fmt.Printf("audited %d pages: %d passed, %d failed, %d crashed, %d skipped-redirect, %d http-error (avg score %.1f)\n",
			result.Summary.TotalPages, result.Summary.Passed, result.Summary.Failed,
			result.Summary.Crashed, result.Summary.SkippedRedirects, result.Summary.HTTPErrors,
			result.Summary.AverageScore,
		)
		if len(result.SkippedURLs) > 0 {
			fmt.Printf("skipped %d urls\n", len(result.SkippedURLs))
		}
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("webauditor: marshal result: %w", err)
	}

	if f.format != "text" || f.expert {
		fmt.Println(string(data))
	}

	if f.outputDir != "" {
		if err := os.MkdirAll(f.outputDir, 0o755); err != nil {
			return fmt.Errorf("webauditor: create output dir: %w", err)
		}
		path := filepath.Join(f.outputDir, "result.json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("webauditor: write result file: %w", err)
		}
		slog.Info("wrote result", "path", path)
	}
	return nil
}

// mergeSettled returns the saved pages whose URL is not in the pending
// set re-audited by a resume, so the merged result covers every URL
// from the original run exactly once.
func mergeSettled(pages []*model.PageResult, pending []string) []*model.PageResult {
	stillPending := make(map[string]bool, len(pending))
	for _, u := range pending {
		stillPending[u] = true
	}
	var settled []*model.PageResult
	for _, p := range pages {
		if p != nil && !stillPending[p.URL] {
			settled = append(settled, p)
		}
	}
	return settled
}

func recomputeSummary(pages []*model.PageResult) model.Summary {
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

func listStates(dir string) error {
	summaries, err := state.List(dir)
	if err != nil {
		return fmt.Errorf("webauditor: list states: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Println("no saved runs")
		return nil
	}
	for _, s := range summaries {
		fmt.Printf("%s\t%s\t%s\t%d pages (%d passed, %d failed)\n",
			s.ID, s.CreatedAt.Format(time.RFC3339), s.SitemapURL, s.TotalPages, s.Passed, s.Failed)
	}
	return nil
}

// serve runs the optional status/control API instead of a one-shot CLI
// audit, with the same signal-driven graceful shutdown as the engine's
// scraping predecessor.
func serve(ctx context.Context, facade *audit.Facade, cfg *config.Config) error {
	startTime := time.Now()
	router := apiserver.NewRouter(facade, apiserver.Config{
		Mode:              cfg.Server.Mode,
		APIKeys:           cfg.Server.APIKeys,
		RequestsPerSecond: cfg.Server.RateLimitRPS,
		Burst:             cfg.Server.RateLimitBurst,
	}, startTime)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	return nil
}

// initLogger configures slog based on the LogConfig, same shape as the
// scraping engine's own logger setup.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
