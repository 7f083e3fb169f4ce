package store

import (
	"context"
	"errors"
	"time"

	"review-ai/internal/review_ai/model"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// UpsertResult tells the caller whether an upsert inserted or replaced.
type UpsertResult int

const (
	Created UpsertResult = iota + 1
	Updated
)

func (r UpsertResult) String() string {
	switch r {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

// ReviewBackend persists canonical reviews keyed by their identity key.
// Listings are sorted by review date, newest first.
type ReviewBackend interface {
	UpsertReview(ctx context.Context, r model.Review, now time.Time) (UpsertResult, error)
	FindReviews(ctx context.Context, skip, limit int64) ([]model.Review, error)
	CountReviews(ctx context.Context) (int64, error)
	DeleteReview(ctx context.Context, id string) error
	// FindReviewsByProduct returns every review when limit is 0.
	FindReviewsByProduct(ctx context.Context, productID string, limit int64) ([]model.Review, error)
	DistinctReviewProducts(ctx context.Context) ([]string, error)
}

// SummaryBackend persists review and product summaries keyed by product id.
// Listings are sorted by last update, newest first. Name lookups are
// case-insensitive exact matches.
type SummaryBackend interface {
	UpsertReviewSummary(ctx context.Context, s model.ReviewSummary, now time.Time) (UpsertResult, error)
	FindReviewSummaries(ctx context.Context, skip, limit int64) ([]model.ReviewSummary, error)
	CountReviewSummaries(ctx context.Context) (int64, error)
	FindReviewSummary(ctx context.Context, productID string) (*model.ReviewSummary, error)
	FindReviewSummaryByName(ctx context.Context, productName string) (*model.ReviewSummary, error)

	UpsertProductSummary(ctx context.Context, s model.ProductSummary, now time.Time) (UpsertResult, error)
	FindProductSummaries(ctx context.Context, skip, limit int64) ([]model.ProductSummary, error)
	CountProductSummaries(ctx context.Context) (int64, error)
	FindProductSummaryByName(ctx context.Context, productName string) (*model.ProductSummary, error)
}

// ProductBackend holds the mirrored catalog. Products are listed in catalog
// order; FindProducts returns everything when limit is 0.
type ProductBackend interface {
	FindProducts(ctx context.Context, limit int64) ([]model.Product, error)
	FindProduct(ctx context.Context, id string) (*model.Product, error)
	// UpsertProduct matches on ShopifyID and never changes an existing document id.
	UpsertProduct(ctx context.Context, p model.Product, now time.Time) (UpsertResult, error)
}

// Backend is the storage capability the pipeline is built on. Implementations
// are chosen at construction time; see NewMongoBackend and NewMemoryBackend.
type Backend interface {
	ReviewBackend
	SummaryBackend
	ProductBackend

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
