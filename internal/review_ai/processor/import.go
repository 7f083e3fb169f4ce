package processor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"review-ai/internal/review_ai/metrics"
	"review-ai/internal/review_ai/model"
	"review-ai/internal/review_ai/store"
)

// Importer stores review payloads pushed in from outside, such as a Judge.me
// API export, through the same normalize and upsert path as scraped reviews.
type Importer struct {
	Log        *zap.Logger
	Reviews    *store.ReviewStore
	Normalizer *Normalizer
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

func (im *Importer) Import(ctx context.Context, payloads []map[string]any) model.ImportResult {
	raws := make([]model.RawReview, 0, len(payloads))
	for _, p := range payloads {
		raws = append(raws, model.RawReview{Kind: model.RawFromPayload, Payload: p})
	}

	now := im.Now
	if now == nil {
		now = time.Now
	}
	imported, rejectedCount := upsertAll(ctx, im.Log, im.Reviews, im.Normalizer, im.Metrics, now, raws)

	res := model.ImportResult{
		Success:  true,
		Received: len(payloads),
		Imported: imported,
		Rejected: rejectedCount,
	}
	if err := ctx.Err(); err != nil {
		res.Success = false
		res.Error = "import cancelled: " + err.Error()
	}
	im.Log.Info("Review import finished",
		zap.Int("received", res.Received),
		zap.Int("imported", res.Imported),
		zap.Int("rejected", res.Rejected),
	)
	return res
}
