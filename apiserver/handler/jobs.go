// Package handler holds the apiserver's route handlers: submitting an
// audit run as a background job and polling its status/result, plus the
// health probe.
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webauditor/audit"
	"github.com/use-agent/webauditor/model"
)

// Job is one submitted audit run's in-memory state.
type Job struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"` // "processing" | "completed" | "failed"
	CreatedAt int64            `json:"createdAt"`
	Error     string           `json:"error,omitempty"`
	Result    *model.RunResult `json:"result,omitempty"`
}

// jobStore holds every submitted job, evicted after 1 hour.
var jobStore sync.Map

func init() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			jobStore.Range(func(key, value any) bool {
				if value.(*Job).CreatedAt < cutoff {
					jobStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// SubmitRequest is the POST /api/v1/audits request body.
type SubmitRequest struct {
	SitemapURL string           `json:"sitemapUrl" binding:"required"`
	Options    model.RunOptions `json:"options"`
}

// PostAudit returns a handler for POST /api/v1/audits: it starts a run in
// the background and immediately returns a job ID to poll.
func PostAudit(f *audit.Facade) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubmitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		jobID := randomID()
		job := &Job{ID: jobID, Status: "processing", CreatedAt: time.Now().Unix()}
		jobStore.Store(jobID, job)

		go runJob(f, job, req.SitemapURL, req.Options)

		c.JSON(http.StatusAccepted, gin.H{"id": jobID, "status": job.Status})
	}
}

// GetAudit returns a handler for GET /api/v1/audits/:id.
func GetAudit() gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := jobStore.Load(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "audit job not found"})
			return
		}
		c.JSON(http.StatusOK, val.(*Job))
	}
}

func runJob(f *audit.Facade, job *Job, sitemapURL string, opts model.RunOptions) {
	// A status API run has no natural caller deadline; bound it generously
	// so a stuck browser process cannot pin the job "processing" forever.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	result, err := f.Run(ctx, sitemapURL, opts)
	if err != nil {
		job.Status = "failed"
		job.Error = err.Error()
		slog.Error("apiserver: audit job failed", "id", job.ID, "error", err)
		return
	}
	job.Status = "completed"
	job.Result = result
}

func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
