package catalog

import (
	"context"
	"fmt"

	"review-ai/internal/review_ai/model"
	"review-ai/internal/review_ai/store"
)

// Catalog is the read side of the mirrored product collection.
type Catalog struct {
	Products store.ProductBackend
}

func New(products store.ProductBackend) *Catalog {
	return &Catalog{Products: products}
}

// ListCandidates returns up to limit products in catalog order as scrape
// targets. Products without a handle are kept; the scraper skips them.
func (c *Catalog) ListCandidates(ctx context.Context, limit int) ([]model.CandidateProduct, error) {
	products, err := c.Products.FindProducts(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	out := make([]model.CandidateProduct, 0, len(products))
	for _, p := range products {
		out = append(out, p.Candidate())
	}
	return out, nil
}

// List returns the whole catalog.
func (c *Catalog) List(ctx context.Context) ([]model.Product, error) {
	return c.Products.FindProducts(ctx, 0)
}
