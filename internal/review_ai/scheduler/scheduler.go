package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"review-ai/internal/review_ai/model"
	"review-ai/internal/review_ai/processor"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 15 * time.Second
)

// Job is one step of a cycle. A returned error means the step may succeed if
// tried again later.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Worker runs its jobs in order on every interval boundary, counted from
// local midnight in Location.
type Worker struct {
	Log         *zap.Logger
	Jobs        []Job
	Every       time.Duration
	Location    *time.Location
	RunAtStart  bool
	MaxAttempts int
	BaseDelay   time.Duration
	Now         func() time.Time
}

// nextSlot returns the first boundary at or after now. Boundaries restart at
// every local midnight.
func nextSlot(now time.Time, loc *time.Location, every time.Duration) time.Time {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	tomorrow := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	if every > 0 {
		for t := midnight; t.Before(tomorrow); t = t.Add(every) {
			if !t.Before(local) {
				return t.UTC()
			}
		}
	}
	return tomorrow.UTC()
}

func (w *Worker) Run(ctx context.Context) {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	now := w.Now
	if now == nil {
		now = time.Now
	}
	w.Log.Info("Scheduler started", zap.Duration("every", w.Every), zap.String("location", loc.String()))

	if w.RunAtStart {
		w.runOnce(ctx)
	}
	for {
		next := nextSlot(now(), loc, w.Every)
		sleep := time.Until(next)
		if sleep < 0 {
			sleep = 0
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.Log.Info("Scheduler stopped")
			return
		case <-timer.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce runs each job once, retrying a failed job before moving on so the
// storefront and the LLM provider never see overlapping cycles.
func (w *Worker) runOnce(ctx context.Context) {
	for _, j := range w.Jobs {
		if ctx.Err() != nil {
			return
		}
		w.runWithRetry(ctx, j)
	}
}

// retryDelay is 15s * 2^(n-1) for the n-th retry.
func (w *Worker) retryDelay(retry int) time.Duration {
	delay := w.BaseDelay
	if delay <= 0 {
		delay = DefaultBaseDelay
	}
	for i := 1; i < retry; i++ {
		delay *= 2
	}
	return delay
}

func (w *Worker) runWithRetry(ctx context.Context, j Job) bool {
	maxAttempts := w.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := w.retryDelay(attempt - 1)
			w.Log.Info("Retry scheduled",
				zap.String("job", j.Name),
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", maxAttempts),
				zap.Duration("delay", delay),
			)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				w.Log.Info("Context cancelled, stopping retries", zap.String("job", j.Name), zap.Int("attempt", attempt))
				return false
			case <-timer.C:
			}
		}

		err := j.Run(ctx)
		if err == nil {
			if attempt > 1 {
				w.Log.Info("Retry succeeded", zap.String("job", j.Name), zap.Int("attempt", attempt))
			}
			return true
		}
		w.Log.Error("Job failed", zap.String("job", j.Name), zap.Int("attempt", attempt), zap.Error(err))
	}
	w.Log.Error("Retry max attempts exceeded, giving up", zap.String("job", j.Name), zap.Int("maxAttempts", maxAttempts))
	return false
}

// retryable lists the failure reasons that another attempt can fix.
func retryable(reason string) bool {
	switch reason {
	case model.ReasonStorage, model.ReasonSession:
		return true
	}
	return false
}

// ScrapeJob wraps a scrape cycle. Empty states and missing configuration are
// logged and not retried.
func ScrapeJob(log *zap.Logger, s *processor.Scraper) Job {
	return Job{Name: "scrape", Run: func(ctx context.Context) error {
		res := s.Run(ctx)
		log.Info("Scheduled scrape finished",
			zap.Bool("success", res.Success),
			zap.Int("reviewsScraped", res.ReviewsScraped),
			zap.String("reason", res.Reason),
		)
		if !res.Success && retryable(res.Reason) {
			return errors.New(res.Error)
		}
		return nil
	}}
}

// SummaryJob wraps a bulk summary run.
func SummaryJob(log *zap.Logger, b *processor.BulkSummarizer) Job {
	return Job{Name: "summaries", Run: func(ctx context.Context) error {
		res := b.Run(ctx)
		log.Info("Scheduled summaries finished",
			zap.Bool("success", res.Success),
			zap.Int("generatedFor", res.GeneratedFor),
			zap.Int("totalProducts", res.TotalProducts),
			zap.String("reason", res.Reason),
		)
		if !res.Success && retryable(res.Reason) {
			return errors.New(res.Error)
		}
		return nil
	}}
}
