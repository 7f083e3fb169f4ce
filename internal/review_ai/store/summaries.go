package store

import (
	"context"
	"fmt"
	"time"

	"review-ai/internal/review_ai/model"
)

// SummaryStore keeps at most one review summary and one product summary
// per product id.
type SummaryStore struct {
	Backend SummaryBackend
}

func NewSummaryStore(b SummaryBackend) *SummaryStore {
	return &SummaryStore{Backend: b}
}

func (s *SummaryStore) UpsertReviewSummary(ctx context.Context, sum model.ReviewSummary, now time.Time) (UpsertResult, error) {
	if sum.ProductID == "" {
		return 0, fmt.Errorf("%w: product id is required", ErrInvalidArgument)
	}
	res, err := s.Backend.UpsertReviewSummary(ctx, sum, now)
	if err != nil {
		return 0, fmt.Errorf("upsert review summary %s: %w", sum.ProductID, err)
	}
	return res, nil
}

func (s *SummaryStore) ListReviewSummaries(ctx context.Context, limit, page int) (model.Page[model.ReviewSummary], error) {
	var out model.Page[model.ReviewSummary]
	skip, err := pageWindow(limit, page)
	if err != nil {
		return out, err
	}
	items, err := s.Backend.FindReviewSummaries(ctx, skip, int64(limit))
	if err != nil {
		return out, fmt.Errorf("list review summaries: %w", err)
	}
	total, err := s.Backend.CountReviewSummaries(ctx)
	if err != nil {
		return out, fmt.Errorf("count review summaries: %w", err)
	}
	out.Items = items
	out.Pagination = model.NewPagination(page, limit, total)
	return out, nil
}

func (s *SummaryStore) ReviewSummary(ctx context.Context, productID string) (*model.ReviewSummary, error) {
	return s.Backend.FindReviewSummary(ctx, productID)
}

func (s *SummaryStore) ReviewSummaryByName(ctx context.Context, productName string) (*model.ReviewSummary, error) {
	if productName == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidArgument)
	}
	return s.Backend.FindReviewSummaryByName(ctx, productName)
}

func (s *SummaryStore) UpsertProductSummary(ctx context.Context, sum model.ProductSummary, now time.Time) (UpsertResult, error) {
	if sum.ProductID == "" {
		return 0, fmt.Errorf("%w: product id is required", ErrInvalidArgument)
	}
	res, err := s.Backend.UpsertProductSummary(ctx, sum, now)
	if err != nil {
		return 0, fmt.Errorf("upsert product summary %s: %w", sum.ProductID, err)
	}
	return res, nil
}

func (s *SummaryStore) ListProductSummaries(ctx context.Context, limit, page int) (model.Page[model.ProductSummary], error) {
	var out model.Page[model.ProductSummary]
	skip, err := pageWindow(limit, page)
	if err != nil {
		return out, err
	}
	items, err := s.Backend.FindProductSummaries(ctx, skip, int64(limit))
	if err != nil {
		return out, fmt.Errorf("list product summaries: %w", err)
	}
	total, err := s.Backend.CountProductSummaries(ctx)
	if err != nil {
		return out, fmt.Errorf("count product summaries: %w", err)
	}
	out.Items = items
	out.Pagination = model.NewPagination(page, limit, total)
	return out, nil
}

func (s *SummaryStore) ProductSummaryByName(ctx context.Context, productName string) (*model.ProductSummary, error) {
	if productName == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidArgument)
	}
	return s.Backend.FindProductSummaryByName(ctx, productName)
}
