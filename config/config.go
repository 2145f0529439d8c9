// Package config loads the CLI/API boundary's configuration from
// environment variables, with sane defaults for everything.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every environment-derived setting the CLI and API server
// boundary need to construct an audit.Facade and, optionally, an
// apiserver router.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Queue     QueueConfig
	Analyzers AnalyzersConfig
	LLM       LLMConfig
	Webhook   WebhookConfig
	Log       LogConfig
	State     StateConfig
}

// ServerConfig controls the optional status/control API.
type ServerConfig struct {
	Enabled        bool
	Host           string // default: "0.0.0.0"
	Port           int    // default: 8080
	Mode           string // "debug", "release", "test"; default: "release"
	APIKeys        []string
	RateLimitRPS   float64 // default: 5
	RateLimitBurst int     // default: 10
}

// BrowserConfig controls the browser pool.
type BrowserConfig struct {
	Headless           bool // default: true
	MaxBrowsers        int  // default: 3
	MaxPagesPerBrowser int  // default: 5
	WarmUpCount        int  // default: 1
	MaxIdleMs          int  // default: 60000
	MaxBrowserAgeMs    int  // default: 3000000 (50min)
	NoSandbox          bool
	BrowserBin         string
	DefaultProxy       string
	HTTPFetchTimeout   time.Duration // default: 10s
}

// QueueConfig controls the work queue.
type QueueConfig struct {
	MaxConcurrent      int // default: 4
	MaxRetries         int // default: 3
	RetryBackoffBaseMs int // default: 2000
	PerTaskTimeoutMs   int // default: 30000
	ProgressInterval   time.Duration
	SoftMemCeilingMB   float64
	SoftCPUCeilingPct  float64
}

// AnalyzersConfig controls which analyzers run and against which
// budget/accessibility profile.
type AnalyzersConfig struct {
	EnablePerformance   bool
	EnableSEO           bool
	EnableContentWeight bool
	EnableMobile        bool
	BudgetTemplate      string // default, ecommerce, blog, corporate
	PA11yStandard       string // WCAG2A, WCAG2AA, WCAG2AAA, Section508
	SkipRedirects       bool   // default: true
}

// LLMConfig is the optional BYOK extended SEO signal.
type LLMConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// WebhookConfig is the optional outbound event delivery endpoint.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// StateConfig controls save-state/resume snapshot storage.
type StateConfig struct {
	Dir                  string // default: "./.webauditor-state"
	SuppressDeprecations bool
}

// Load reads configuration from environment variables with sane
// defaults. CI, NODE_ENV=production and AUDITMYSITE_SUPPRESS_DEPRECATIONS
// also suppress deprecation notices, per the CLI surface's documented
// suppression signals.
func Load() *Config {
	suppressDeprecations := envBoolOr("WEBAUDITOR_QUIET_DEPRECATIONS", false) ||
		envBoolOr("AUDITMYSITE_SUPPRESS_DEPRECATIONS", false) ||
		os.Getenv("CI") != "" ||
		os.Getenv("NODE_ENV") == "production"

	return &Config{
		Server: ServerConfig{
			Enabled:        envBoolOr("WEBAUDITOR_API_ENABLED", false),
			Host:           envOr("WEBAUDITOR_HOST", "0.0.0.0"),
			Port:           envIntOr("WEBAUDITOR_PORT", 8080),
			Mode:           envOr("WEBAUDITOR_MODE", "release"),
			APIKeys:        envSliceOr("WEBAUDITOR_API_KEYS", nil),
			RateLimitRPS:   envFloatOr("WEBAUDITOR_RATE_RPS", 5.0),
			RateLimitBurst: envIntOr("WEBAUDITOR_RATE_BURST", 10),
		},
		Browser: BrowserConfig{
			Headless:           envBoolOr("WEBAUDITOR_HEADLESS", true),
			MaxBrowsers:        envIntOr("WEBAUDITOR_MAX_BROWSERS", 3),
			MaxPagesPerBrowser: envIntOr("WEBAUDITOR_MAX_PAGES_PER_BROWSER", 5),
			WarmUpCount:        envIntOr("WEBAUDITOR_WARMUP_COUNT", 1),
			MaxIdleMs:          envIntOr("WEBAUDITOR_MAX_IDLE_MS", 60_000),
			MaxBrowserAgeMs:    envIntOr("WEBAUDITOR_MAX_BROWSER_AGE_MS", 50*60*1000),
			NoSandbox:          envBoolOr("WEBAUDITOR_NO_SANDBOX", false),
			BrowserBin:         os.Getenv("WEBAUDITOR_BROWSER_BIN"),
			DefaultProxy:       os.Getenv("WEBAUDITOR_PROXY"),
			HTTPFetchTimeout:   envDurationOr("WEBAUDITOR_HTTP_FETCH_TIMEOUT", 10*time.Second),
		},
		Queue: QueueConfig{
			MaxConcurrent:      envIntOr("WEBAUDITOR_MAX_CONCURRENT", 4),
			MaxRetries:         envIntOr("WEBAUDITOR_MAX_RETRIES", 3),
			RetryBackoffBaseMs: envIntOr("WEBAUDITOR_RETRY_BACKOFF_BASE_MS", 2000),
			PerTaskTimeoutMs:   envIntOr("WEBAUDITOR_PER_TASK_TIMEOUT_MS", 30_000),
			ProgressInterval:   envDurationOr("WEBAUDITOR_PROGRESS_INTERVAL", 2*time.Second),
			SoftMemCeilingMB:   envFloatOr("WEBAUDITOR_SOFT_MEM_CEILING_MB", 512),
			SoftCPUCeilingPct:  envFloatOr("WEBAUDITOR_SOFT_CPU_CEILING_PCT", 80),
		},
		Analyzers: AnalyzersConfig{
			EnablePerformance:   envBoolOr("WEBAUDITOR_ENABLE_PERFORMANCE", true),
			EnableSEO:           envBoolOr("WEBAUDITOR_ENABLE_SEO", true),
			EnableContentWeight: envBoolOr("WEBAUDITOR_ENABLE_CONTENT_WEIGHT", true),
			EnableMobile:        envBoolOr("WEBAUDITOR_ENABLE_MOBILE", true),
			BudgetTemplate:      envOr("WEBAUDITOR_BUDGET_TEMPLATE", "default"),
			PA11yStandard:       envOr("WEBAUDITOR_PA11Y_STANDARD", "WCAG2AA"),
			SkipRedirects:       envBoolOr("WEBAUDITOR_SKIP_REDIRECTS", true),
		},
		LLM: LLMConfig{
			APIKey:  os.Getenv("WEBAUDITOR_LLM_API_KEY"),
			Model:   envOr("WEBAUDITOR_LLM_MODEL", "gpt-4o-mini"),
			BaseURL: envOr("WEBAUDITOR_LLM_BASE_URL", "https://api.openai.com/v1"),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("WEBAUDITOR_WEBHOOK_URL"),
			Secret: os.Getenv("WEBAUDITOR_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("WEBAUDITOR_LOG_LEVEL", "info"),
			Format: envOr("WEBAUDITOR_LOG_FORMAT", "json"),
		},
		State: StateConfig{
			Dir:                  envOr("WEBAUDITOR_STATE_DIR", "./.webauditor-state"),
			SuppressDeprecations: suppressDeprecations,
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
