package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"review-ai/internal/review_ai/metrics"
	"review-ai/internal/review_ai/model"
	"review-ai/internal/review_ai/scraper"
	"review-ai/internal/review_ai/store"
)

// DefaultMaxProducts bounds how many catalog products one cycle visits.
const DefaultMaxProducts = 20

// Catalog lists the products a scrape cycle should visit, in catalog order.
type Catalog interface {
	ListCandidates(ctx context.Context, limit int) ([]model.CandidateProduct, error)
}

// Pinger reports whether storage is reachable at all.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Scraper runs one scrape cycle: log into the storefront, read the review
// widget of each candidate product, then normalize and upsert what was found.
// Products are visited one at a time with Delay between page fetches.
type Scraper struct {
	Log         *zap.Logger
	Reviews     *store.ReviewStore
	Storage     Pinger
	Catalog     Catalog
	Normalizer  *Normalizer
	Extractor   *scraper.Extractor
	Metrics     *metrics.Metrics
	Shop        scraper.SessionOptions
	MaxProducts int
	Delay       time.Duration
	Now         func() time.Time
}

// Run never returns per-product problems as a failure; only missing
// configuration, unreachable storage, a failed login or cancellation do.
func (s *Scraper) Run(ctx context.Context) model.ScrapeResult {
	res := s.run(ctx)
	switch {
	case res.Success:
		s.Metrics.Cycle("success")
	case res.Reason != "":
		s.Metrics.Cycle(res.Reason)
	default:
		s.Metrics.Cycle("error")
	}
	return res
}

func (s *Scraper) run(ctx context.Context) model.ScrapeResult {
	if s.Shop.Domain == "" {
		return model.ScrapeResult{
			Error:             "Shop domain not configured. Set SHOP_DOMAIN or SHOP_CUSTOM_DOMAIN.",
			Reason:            model.ReasonNotConfigured,
			NeedsJudgeMeSetup: true,
		}
	}
	if s.Shop.Password == "" {
		return model.ScrapeResult{
			Error:             "Storefront password not configured. Set SHOP_PASSWORD so the scraper can log in.",
			Reason:            model.ReasonNotConfigured,
			NeedsJudgeMeSetup: true,
		}
	}

	if err := s.Storage.Ping(ctx); err != nil {
		s.Log.Error("Storage unreachable, aborting scrape", zap.Error(err))
		return model.ScrapeResult{Error: "storage unreachable: " + err.Error(), Reason: model.ReasonStorage}
	}

	limit := s.MaxProducts
	if limit <= 0 {
		limit = DefaultMaxProducts
	}
	products, err := s.Catalog.ListCandidates(ctx, limit)
	if err != nil {
		s.Log.Error("Failed to list products", zap.Error(err))
		return model.ScrapeResult{Error: "list products: " + err.Error(), Reason: model.ReasonStorage}
	}
	if len(products) == 0 {
		return model.ScrapeResult{
			Error:         "No products found in database. Please sync products first.",
			Reason:        model.ReasonNoProducts,
			NeedsProducts: true,
		}
	}
	s.Log.Info("Starting review scrape", zap.Int("products", len(products)))

	sess, err := scraper.Establish(ctx, s.Log, s.Shop)
	if err != nil {
		s.Log.Error("Storefront login failed", zap.Error(err))
		reason := model.ReasonSession
		if errors.Is(err, scraper.ErrNotConfigured) {
			reason = model.ReasonNotConfigured
		}
		return model.ScrapeResult{Error: "storefront session: " + err.Error(), Reason: reason}
	}

	var (
		raws       []model.RawReview
		challenged bool
		fetched    int
	)
	for _, p := range products {
		if p.URLSlug == "" {
			s.Log.Info("Skipping product without handle",
				zap.String("productId", p.ID),
				zap.String("title", p.DisplayName),
			)
			continue
		}
		if fetched > 0 {
			if err := sleepCtx(ctx, s.Delay); err != nil {
				return cancelledScrape(len(raws), err)
			}
		} else if err := ctx.Err(); err != nil {
			return cancelledScrape(len(raws), err)
		}
		fetched++

		page, ok := s.scrapeProduct(ctx, sess, p)
		if !ok {
			continue
		}
		challenged = challenged || page.Challenged
		raws = append(raws, page.Reviews...)
	}

	if len(raws) == 0 {
		s.Log.Info("No reviews found in product pages")
		return model.ScrapeResult{
			Success:      true,
			Message:      "No reviews found in product HTML even after login. Check that the Judge.me widget and reviews are visible on product pages.",
			NeedsReviews: true,
			Challenged:   challenged,
		}
	}

	persisted, rejectedCount := s.persist(ctx, raws)
	s.Log.Info("Review scrape finished",
		zap.Int("raw", len(raws)),
		zap.Int("persisted", persisted),
		zap.Int("rejected", rejectedCount),
		zap.Bool("challenged", challenged),
	)
	return model.ScrapeResult{
		Success:        true,
		ReviewsScraped: persisted,
		RawCount:       len(raws),
		Rejected:       rejectedCount,
		Message:        fmt.Sprintf("Scraped %d reviews from %d products", persisted, len(products)),
		Challenged:     challenged,
	}
}

func (s *Scraper) scrapeProduct(ctx context.Context, sess *scraper.Session, p model.CandidateProduct) (scraper.ExtractResult, bool) {
	u := sess.ProductURL(p.URLSlug)
	s.Log.Debug("Scraping product page", zap.String("url", u), zap.String("productId", p.ID))

	html, err := sess.FetchPage(ctx, u)
	if err != nil {
		s.Log.Error("Failed to fetch product page",
			zap.String("url", u),
			zap.String("productId", p.ID),
			zap.Error(err),
		)
		return scraper.ExtractResult{}, false
	}
	page, err := s.Extractor.Extract(html, p)
	if err != nil {
		s.Log.Error("Failed to parse product page",
			zap.String("url", u),
			zap.String("productId", p.ID),
			zap.Error(err),
		)
		return scraper.ExtractResult{}, false
	}
	for i := 0; i < page.Skipped; i++ {
		s.Metrics.Review(metrics.OutcomeSkipped)
	}
	s.Log.Debug("Extracted reviews",
		zap.String("productId", p.ID),
		zap.Int("found", len(page.Reviews)),
		zap.Int("skipped", page.Skipped),
	)
	return page, true
}

// persist normalizes and upserts each raw review, counting what was stored.
func (s *Scraper) persist(ctx context.Context, raws []model.RawReview) (persisted, rejectedCount int) {
	return upsertAll(ctx, s.Log, s.Reviews, s.Normalizer, s.Metrics, s.now, raws)
}

func (s *Scraper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func upsertAll(ctx context.Context, log *zap.Logger, reviews *store.ReviewStore, n *Normalizer,
	m *metrics.Metrics, now func() time.Time, raws []model.RawReview) (persisted, rejectedCount int) {
	for _, raw := range raws {
		out := n.Normalize(raw)
		if !out.OK() {
			rejectedCount++
			m.Review(metrics.OutcomeRejected)
			f, _ := fieldsOf(raw)
			log.Warn("Rejected review",
				zap.String("reviewId", f.id),
				zap.String("productId", f.productID),
				zap.String("reason", out.Reason),
			)
			continue
		}
		if _, err := reviews.Upsert(ctx, out.Review, now()); err != nil {
			m.Review(metrics.OutcomeFailed)
			log.Error("Failed to save review",
				zap.String("id", out.Review.ID),
				zap.Error(err),
			)
			continue
		}
		m.Review(metrics.OutcomePersisted)
		persisted++
	}
	return persisted, rejectedCount
}

func cancelledScrape(raw int, err error) model.ScrapeResult {
	return model.ScrapeResult{
		RawCount: raw,
		Error:    "scrape cancelled: " + err.Error(),
		Reason:   model.ReasonCancelled,
	}
}

// sleepCtx waits for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
