package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/webauditor/model"
)

func okResult(url string) *model.PageResult {
	return &model.PageResult{URL: url, FinalURL: url, Status: model.StatusPassed}
}

func TestQueue_RunReturnsOneResultPerURLInOrder(t *testing.T) {
	urls := []string{"https://a.example", "https://b.example", "https://c.example"}

	q := New(Config{MaxConcurrent: 2, ProgressInterval: time.Hour}, func(ctx context.Context, url string) (*model.PageResult, bool) {
		return okResult(url), false
	}, nil)

	results := q.Run(context.Background(), urls)

	if len(results) != len(urls) {
		t.Fatalf("got %d results, want %d", len(results), len(urls))
	}
	for i, u := range urls {
		if results[i] == nil || results[i].URL != u {
			t.Errorf("result[%d] = %+v, want URL %q", i, results[i], u)
		}
	}
}

func TestQueue_RunDrainsAndReturnsWithoutCancel(t *testing.T) {
	// Regression test: dequeue's drained check once required Cancel to
	// have been called, so a normal completed run would hang forever.
	done := make(chan struct{})
	go func() {
		q := New(Config{MaxConcurrent: 3, ProgressInterval: time.Hour}, func(ctx context.Context, url string) (*model.PageResult, bool) {
			return okResult(url), false
		}, nil)
		q.Run(context.Background(), []string{"https://a.example", "https://b.example"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return within 3s on a normal (non-cancelled) completion")
	}
}

func TestQueue_RetriesRetriableFailuresUpToMaxRetries(t *testing.T) {
	var attempts atomic.Int64

	q := New(Config{
		MaxConcurrent:      1,
		MaxRetries:         2,
		RetryBackoffBaseMs: 1,
		ProgressInterval:   time.Hour,
	}, func(ctx context.Context, url string) (*model.PageResult, bool) {
		n := attempts.Add(1)
		if n <= 2 {
			return &model.PageResult{URL: url, Status: model.StatusFailed}, true
		}
		return okResult(url), false
	}, nil)

	results := q.Run(context.Background(), []string{"https://a.example"})

	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3 (1 initial + 2 retries)", attempts.Load())
	}
	if results[0] == nil || results[0].Status != model.StatusPassed {
		t.Errorf("final result = %+v, want a passed result after retries succeed", results[0])
	}
}

func TestQueue_RetriableHTTPErrorIsRetriedThenCompleted(t *testing.T) {
	// Regression test: a 408/429-class StatusHTTPError result used to be
	// treated as non-terminal unconditionally, so it could never be
	// retried even when the handler reported retriable=true.
	var attempts atomic.Int64

	q := New(Config{
		MaxConcurrent:      1,
		MaxRetries:         2,
		RetryBackoffBaseMs: 1,
		ProgressInterval:   time.Hour,
	}, func(ctx context.Context, url string) (*model.PageResult, bool) {
		n := attempts.Add(1)
		if n <= 1 {
			return &model.PageResult{URL: url, Status: model.StatusHTTPError}, true
		}
		return &model.PageResult{URL: url, Status: model.StatusHTTPError}, false
	}, nil)

	results := q.Run(context.Background(), []string{"https://a.example"})

	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2 (1 initial + 1 retry before the handler stops reporting retriable)", attempts.Load())
	}
	if results[0] == nil || results[0].Status != model.StatusHTTPError {
		t.Errorf("final result = %+v, want a settled http-error result", results[0])
	}
	task, ok := q.Task("https://a.example")
	if !ok || task.State != model.StateCompleted {
		t.Errorf("task state = %+v, want completed (a terminal HTTP error is still a settled page, not a queue failure)", task)
	}
}

func TestQueue_NonRetriableFailureIsNotRetried(t *testing.T) {
	var attempts atomic.Int64

	q := New(Config{MaxConcurrent: 1, ProgressInterval: time.Hour}, func(ctx context.Context, url string) (*model.PageResult, bool) {
		attempts.Add(1)
		return &model.PageResult{URL: url, Status: model.StatusCrashed}, false
	}, nil)

	results := q.Run(context.Background(), []string{"https://a.example"})

	if attempts.Load() != 1 {
		t.Errorf("attempts = %d, want 1 (no retry for a non-retriable failure)", attempts.Load())
	}
	if results[0].Status != model.StatusCrashed {
		t.Errorf("result.Status = %q, want crashed", results[0].Status)
	}
}

func TestQueue_StatsReflectCompletion(t *testing.T) {
	q := New(Config{MaxConcurrent: 2, ProgressInterval: time.Hour}, func(ctx context.Context, url string) (*model.PageResult, bool) {
		return okResult(url), false
	}, nil)

	q.Run(context.Background(), []string{"https://a.example", "https://b.example"})

	stats := q.Stats()
	if stats.Completed != 2 {
		t.Errorf("stats.Completed = %d, want 2", stats.Completed)
	}
	if stats.Pending != 0 || stats.InFlight != 0 {
		t.Errorf("expected queue fully drained, got %+v", stats)
	}
	if stats.ProgressPercent != 100 {
		t.Errorf("stats.ProgressPercent = %v, want 100", stats.ProgressPercent)
	}
}

func TestQueue_TaskLooksUpByURL(t *testing.T) {
	q := New(Config{MaxConcurrent: 1, ProgressInterval: time.Hour}, func(ctx context.Context, url string) (*model.PageResult, bool) {
		return okResult(url), false
	}, nil)

	q.Run(context.Background(), []string{"https://a.example"})

	task, ok := q.Task("https://a.example")
	if !ok {
		t.Fatal("Task: expected a record for a known URL")
	}
	if task.State != model.StateCompleted {
		t.Errorf("task.State = %q, want completed", task.State)
	}

	if _, ok := q.Task("https://unknown.example"); ok {
		t.Error("Task: expected no record for an unknown URL")
	}
}
