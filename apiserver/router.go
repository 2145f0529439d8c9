// Package apiserver is the optional gin-based status/control surface
// over the engine facade: submit an audit run, poll its status, and
// check pool health.
package apiserver

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webauditor/apiserver/handler"
	"github.com/use-agent/webauditor/apiserver/middleware"
	"github.com/use-agent/webauditor/audit"
)

// Config carries the optional auth/rate-limit settings. Zero value
// disables auth and applies a generous default rate limit.
type Config struct {
	Mode              string // gin.DebugMode / gin.ReleaseMode / gin.TestMode
	APIKeys           []string
	RequestsPerSecond float64
	Burst             int
}

func (c *Config) defaults() {
	if c.Mode == "" {
		c.Mode = gin.ReleaseMode
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 5
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
}

// NewRouter builds a configured gin engine.
//
// Middleware chain:
//
//	Global: Recovery -> Logger
//	API:    Auth (if configured) -> RateLimit
//
// Health is intentionally outside auth so monitoring probes always work.
func NewRouter(f *audit.Facade, cfg Config, startTime time.Time) *gin.Engine {
	cfg.defaults()
	gin.SetMode(cfg.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(f, startTime))

	protected := v1.Group("")
	if len(cfg.APIKeys) > 0 {
		protected.Use(middleware.Auth(cfg.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RequestsPerSecond, cfg.Burst))

	protected.POST("/audits", handler.PostAudit(f))
	protected.GET("/audits/:id", handler.GetAudit())

	return r
}
