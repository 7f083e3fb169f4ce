package store

import (
	"context"
	"fmt"
	"time"

	"review-ai/internal/review_ai/model"
)

// ReviewStore is the review side of the persistence layer: idempotent
// upserts plus paged, newest-first listings.
type ReviewStore struct {
	Backend ReviewBackend
}

func NewReviewStore(b ReviewBackend) *ReviewStore {
	return &ReviewStore{Backend: b}
}

// Upsert writes r under its identity key. Re-writing the same review
// refreshes its content and UpdatedAt and keeps CreatedAt.
func (s *ReviewStore) Upsert(ctx context.Context, r model.Review, now time.Time) (UpsertResult, error) {
	if r.ReviewID == "" || r.Source == "" {
		return 0, fmt.Errorf("%w: review id and source are required", ErrInvalidArgument)
	}
	r.ID = model.IdentityKey(r.ReviewID, r.Source)
	res, err := s.Backend.UpsertReview(ctx, r, now)
	if err != nil {
		return 0, fmt.Errorf("upsert review %s: %w", r.ID, err)
	}
	return res, nil
}

func (s *ReviewStore) List(ctx context.Context, limit, page int) (model.Page[model.Review], error) {
	var out model.Page[model.Review]
	skip, err := pageWindow(limit, page)
	if err != nil {
		return out, err
	}
	items, err := s.Backend.FindReviews(ctx, skip, int64(limit))
	if err != nil {
		return out, fmt.Errorf("list reviews: %w", err)
	}
	total, err := s.Backend.CountReviews(ctx)
	if err != nil {
		return out, fmt.Errorf("count reviews: %w", err)
	}
	out.Items = items
	out.Pagination = model.NewPagination(page, limit, total)
	return out, nil
}

// Delete removes a review by document id; ErrNotFound when absent.
func (s *ReviewStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}
	return s.Backend.DeleteReview(ctx, id)
}

func (s *ReviewStore) ByProduct(ctx context.Context, productID string, limit int) ([]model.Review, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidArgument)
	}
	return s.Backend.FindReviewsByProduct(ctx, productID, int64(limit))
}

// ProductIDs lists every product that has at least one stored review.
func (s *ReviewStore) ProductIDs(ctx context.Context) ([]string, error) {
	return s.Backend.DistinctReviewProducts(ctx)
}

func pageWindow(limit, page int) (int64, error) {
	if limit < 1 || page < 1 {
		return 0, fmt.Errorf("%w: page and limit must be positive", ErrInvalidArgument)
	}
	return int64(page-1) * int64(limit), nil
}
