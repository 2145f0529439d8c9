package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webauditor/audit"
)

// HealthResponse is the GET /api/v1/health body.
type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Version   string `json:"version"`
	Pool      any    `json:"pool"`
}

// Health returns a handler for GET /api/v1/health. Reports pool
// utilization and degrades status when the pool's active share exceeds
// 80%, mirroring the teacher's own pool-saturation health heuristic.
func Health(f *audit.Facade, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics := f.PoolMetrics()

		status := "healthy"
		capacity := metrics.Active + metrics.Idle
		if capacity > 0 && float64(metrics.Active) > float64(capacity)*0.8 {
			status = "degraded"
		}

		c.JSON(http.StatusOK, HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: "0.1.0",
			Pool:    metrics,
		})
	}
}
