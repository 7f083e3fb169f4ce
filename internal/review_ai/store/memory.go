package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"review-ai/internal/review_ai/model"
)

// MemoryBackend keeps everything in process. It is meant for tests and local
// runs without a database.
type MemoryBackend struct {
	mu sync.RWMutex

	reviews          map[string]model.Review
	reviewSummaries  map[string]model.ReviewSummary
	productSummaries map[string]model.ProductSummary
	products         []model.Product
	nextProductID    int
	closed           bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		reviews:          make(map[string]model.Review),
		reviewSummaries:  make(map[string]model.ReviewSummary),
		productSummaries: make(map[string]model.ProductSummary),
	}
}

func (m *MemoryBackend) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("memory backend closed")
	}
	return nil
}

func (m *MemoryBackend) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// -------- reviews --------

func (m *MemoryBackend) UpsertReview(_ context.Context, r model.Review, now time.Time) (UpsertResult, error) {
	if r.ID == "" {
		return 0, fmt.Errorf("%w: review id is required", ErrInvalidArgument)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	result := Created
	r.CreatedAt = now
	if prev, ok := m.reviews[r.ID]; ok {
		r.CreatedAt = prev.CreatedAt
		result = Updated
	}
	r.UpdatedAt = now
	m.reviews[r.ID] = r
	return result, nil
}

func (m *MemoryBackend) FindReviews(_ context.Context, skip, limit int64) ([]model.Review, error) {
	m.mu.RLock()
	all := make([]model.Review, 0, len(m.reviews))
	for _, r := range m.reviews {
		all = append(all, r)
	}
	m.mu.RUnlock()

	sortReviews(all)
	return window(all, skip, limit), nil
}

func (m *MemoryBackend) CountReviews(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.reviews)), nil
}

func (m *MemoryBackend) DeleteReview(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return ErrNotFound
	}
	delete(m.reviews, id)
	return nil
}

func (m *MemoryBackend) FindReviewsByProduct(_ context.Context, productID string, limit int64) ([]model.Review, error) {
	m.mu.RLock()
	var out []model.Review
	for _, r := range m.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	m.mu.RUnlock()

	sortReviews(out)
	return window(out, 0, limit), nil
}

func (m *MemoryBackend) DistinctReviewProducts(_ context.Context) ([]string, error) {
	m.mu.RLock()
	seen := make(map[string]struct{})
	for _, r := range m.reviews {
		seen[r.ProductID] = struct{}{}
	}
	m.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// -------- summaries --------

func (m *MemoryBackend) UpsertReviewSummary(_ context.Context, s model.ReviewSummary, now time.Time) (UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := Created
	s.CreatedAt = now
	if prev, ok := m.reviewSummaries[s.ProductID]; ok {
		s.CreatedAt = prev.CreatedAt
		result = Updated
	}
	s.UpdatedAt = now
	m.reviewSummaries[s.ProductID] = s
	return result, nil
}

func (m *MemoryBackend) FindReviewSummaries(_ context.Context, skip, limit int64) ([]model.ReviewSummary, error) {
	m.mu.RLock()
	all := make([]model.ReviewSummary, 0, len(m.reviewSummaries))
	for _, s := range m.reviewSummaries {
		all = append(all, s)
	}
	m.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].ProductID < all[j].ProductID
	})
	return window(all, skip, limit), nil
}

func (m *MemoryBackend) CountReviewSummaries(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.reviewSummaries)), nil
}

func (m *MemoryBackend) FindReviewSummary(_ context.Context, productID string) (*model.ReviewSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.reviewSummaries[productID]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryBackend) FindReviewSummaryByName(_ context.Context, productName string) (*model.ReviewSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.reviewSummaries {
		if strings.EqualFold(s.ProductName, productName) {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryBackend) UpsertProductSummary(_ context.Context, s model.ProductSummary, now time.Time) (UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := Created
	s.CreatedAt = now
	if prev, ok := m.productSummaries[s.ProductID]; ok {
		s.CreatedAt = prev.CreatedAt
		result = Updated
	}
	s.UpdatedAt = now
	m.productSummaries[s.ProductID] = s
	return result, nil
}

func (m *MemoryBackend) FindProductSummaries(_ context.Context, skip, limit int64) ([]model.ProductSummary, error) {
	m.mu.RLock()
	all := make([]model.ProductSummary, 0, len(m.productSummaries))
	for _, s := range m.productSummaries {
		all = append(all, s)
	}
	m.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].ProductID < all[j].ProductID
	})
	return window(all, skip, limit), nil
}

func (m *MemoryBackend) CountProductSummaries(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.productSummaries)), nil
}

func (m *MemoryBackend) FindProductSummaryByName(_ context.Context, productName string) (*model.ProductSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.productSummaries {
		if strings.EqualFold(s.ProductName, productName) {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

// -------- products --------

func (m *MemoryBackend) FindProducts(_ context.Context, limit int64) ([]model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Product, len(m.products))
	copy(out, m.products)
	return window(out, 0, limit), nil
}

func (m *MemoryBackend) FindProduct(_ context.Context, id string) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.products {
		if p.ID == id || (p.ShopifyID != "" && p.ShopifyID == id) {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryBackend) UpsertProduct(_ context.Context, p model.Product, now time.Time) (UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p.SyncDate = now
	for i, prev := range m.products {
		if prev.ShopifyID != "" && prev.ShopifyID == p.ShopifyID {
			p.ID = prev.ID
			m.products[i] = p
			return Updated, nil
		}
	}
	if p.ID == "" {
		m.nextProductID++
		p.ID = "product-" + strconv.Itoa(m.nextProductID)
	}
	m.products = append(m.products, p)
	return Created, nil
}

// -------- helpers --------

func sortReviews(rs []model.Review) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].ReviewDate.Equal(rs[j].ReviewDate) {
			return rs[i].ReviewDate.After(rs[j].ReviewDate)
		}
		return rs[i].ID < rs[j].ID
	})
}

func window[T any](items []T, skip, limit int64) []T {
	n := int64(len(items))
	if skip > n {
		skip = n
	}
	end := n
	if limit > 0 && skip+limit < n {
		end = skip + limit
	}
	return items[skip:end]
}
