package processor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"review-ai/internal/review_ai/model"
	"review-ai/internal/review_ai/store"
)

// DefaultSummaryDelay spaces LLM-backed generations to stay under provider
// rate limits.
const DefaultSummaryDelay = 800 * time.Millisecond

type reviewSummarizer interface {
	Generate(ctx context.Context, productID string) model.SummaryResult
}

// BulkSummarizer regenerates the review summary of every product that has at
// least one stored review, one product at a time.
type BulkSummarizer struct {
	Log       *zap.Logger
	Reviews   *store.ReviewStore
	Generator reviewSummarizer
	Delay     time.Duration
}

func (b *BulkSummarizer) Run(ctx context.Context) model.BulkResult[model.SummaryResult] {
	ids, err := b.Reviews.ProductIDs(ctx)
	if err != nil {
		b.Log.Error("Failed to list reviewed products", zap.Error(err))
		return model.BulkResult[model.SummaryResult]{Error: "list products: " + err.Error(), Reason: model.ReasonStorage}
	}
	if len(ids) == 0 {
		return model.BulkResult[model.SummaryResult]{
			Error:  "No reviews found in database. Scrape reviews first.",
			Reason: model.ReasonNoReviews,
		}
	}

	b.Log.Info("Generating review summaries", zap.Int("products", len(ids)))
	res := runPaced(ctx, b.Log, ids, b.Delay,
		b.Generator.Generate,
		func(r model.SummaryResult) bool { return r.Success },
	)
	b.Log.Info("Review summaries finished",
		zap.Int("generatedFor", res.GeneratedFor),
		zap.Int("totalProducts", res.TotalProducts),
	)
	return res
}

// runPaced calls fn for each id in order with delay between calls. A failed
// item is recorded and the loop moves on; only cancellation stops it early,
// and then the partial results are returned.
func runPaced[T any](ctx context.Context, log *zap.Logger, ids []string, delay time.Duration,
	fn func(context.Context, string) T, ok func(T) bool) model.BulkResult[T] {
	res := model.BulkResult[T]{
		Success:       true,
		TotalProducts: len(ids),
		Results:       make([]T, 0, len(ids)),
	}
	for i, id := range ids {
		var err error
		if i > 0 {
			err = sleepCtx(ctx, delay)
		} else {
			err = ctx.Err()
		}
		if err != nil {
			log.Warn("Bulk run cancelled",
				zap.Int("done", i),
				zap.Int("total", len(ids)),
				zap.Error(err),
			)
			res.Success = false
			res.Reason = model.ReasonCancelled
			res.Error = "cancelled: " + err.Error()
			return res
		}

		r := fn(ctx, id)
		res.Results = append(res.Results, r)
		if ok(r) {
			res.GeneratedFor++
		}
	}
	return res
}
