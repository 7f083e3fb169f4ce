package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"review-ai/internal/review_ai/catalog"
	"review-ai/internal/review_ai/llm"
	"review-ai/internal/review_ai/metrics"
	"review-ai/internal/review_ai/model"
	"review-ai/internal/review_ai/processor"
	"review-ai/internal/review_ai/scraper"
	"review-ai/internal/review_ai/store"
)

type cannedLLM struct{ text string }

func (c cannedLLM) Name() string { return "canned" }
func (c cannedLLM) Complete(context.Context, llm.Request) (string, error) {
	return c.text, nil
}

type fixture struct {
	llm     *cannedLLM
	backend *store.MemoryBackend
	srv     *Server
	router  *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	b := store.NewMemoryBackend()
	reviews := store.NewReviewStore(b)
	sums := store.NewSummaryStore(b)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	provider := &cannedLLM{text: "Customers love it."}

	gen := processor.NewSummaryGenerator(log, reviews, sums, provider)
	gen.Metrics = m
	products := processor.NewProductSummarizer(log, b, sums, provider)
	products.Delay = 0

	srv := &Server{
		Log:       log,
		Storage:   b,
		Reviews:   reviews,
		Summaries: sums,
		Catalog:   catalog.New(b),
		Sync:      &catalog.ShopifySync{Log: log, Products: b},
		Scraper: &processor.Scraper{
			Log: log, Reviews: reviews, Storage: b, Catalog: catalog.New(b),
			Normalizer: processor.NewNormalizer(nil), Extractor: scraper.NewExtractor(log), Metrics: m,
		},
		Importer:  &processor.Importer{Log: log, Reviews: reviews, Normalizer: processor.NewNormalizer(nil), Metrics: m},
		Generator: gen,
		Bulk:      &processor.BulkSummarizer{Log: log, Reviews: reviews, Generator: gen},
		Products:  products,
		Gatherer:  reg,
	}
	return &fixture{llm: provider, backend: b, srv: srv, router: srv.Router()}
}

func (f *fixture) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (f *fixture) seedReviews(t *testing.T, productID string, n int) {
	t.Helper()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := f.srv.Reviews.Upsert(context.Background(), model.Review{
			ReviewID:     fmt.Sprintf("%s-%d", productID, i),
			ProductID:    productID,
			ProductName:  "Linen Shirt",
			ReviewerName: "Buyer",
			Rating:       4,
			ReviewText:   "Comfortable and light",
			ReviewDate:   now.Add(time.Duration(i) * time.Hour),
			Source:       model.DefaultSource,
		}, now)
		require.NoError(t, err)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w, body := f.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])

	require.NoError(t, f.backend.Close(context.Background()))
	w, _ = f.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListReviews_PaginationDefaults(t *testing.T) {
	f := newFixture(t)
	f.seedReviews(t, "p1", 45)

	w, body := f.do(t, http.MethodGet, "/api/reviews?page=3&limit=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["reviews"], 5)
	pg := body["pagination"].(map[string]any)
	assert.EqualValues(t, 3, pg["totalPages"])
	assert.EqualValues(t, 45, pg["total"])

	_, body = f.do(t, http.MethodGet, "/api/reviews?page=abc&limit=-4", "")
	pg = body["pagination"].(map[string]any)
	assert.EqualValues(t, 1, pg["page"])
	assert.EqualValues(t, 20, pg["limit"])

	_, body = f.do(t, http.MethodGet, "/api/reviews?limit=5000", "")
	pg = body["pagination"].(map[string]any)
	assert.EqualValues(t, 100, pg["limit"])
}

func TestDeleteReview(t *testing.T) {
	f := newFixture(t)
	f.seedReviews(t, "p1", 1)

	w, _ := f.do(t, http.MethodDelete, "/api/reviews/judge.me:p1-0", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, body := f.do(t, http.MethodDelete, "/api/reviews/judge.me:p1-0", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestImportReviews(t *testing.T) {
	f := newFixture(t)
	w, body := f.do(t, http.MethodPost, "/api/reviews/import",
		`{"reviews":[{"id":"1","product_id":"p1","score":5,"body":"Great"},{"id":"2","score":8,"body":"Bad score"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["imported"])
	assert.EqualValues(t, 1, body["rejected"])

	w, _ = f.do(t, http.MethodPost, "/api/reviews/import", `{"reviews":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = f.do(t, http.MethodPost, "/api/reviews/import", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScrape_NotConfigured(t *testing.T) {
	f := newFixture(t)
	w, body := f.do(t, http.MethodPost, "/api/reviews/scrape", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["needsJudgeMeSetup"])
}

func TestReviewSummaryRoutes(t *testing.T) {
	f := newFixture(t)
	f.seedReviews(t, "p1", 3)

	_, body := f.do(t, http.MethodGet, "/api/review-summaries/p1", "")
	assert.Equal(t, false, body["found"])

	w, body := f.do(t, http.MethodPost, "/api/review-summaries/generate/p1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Customers love it.", body["summary"])

	w, body = f.do(t, http.MethodPost, "/api/review-summaries/generate/ghost", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["hasReviews"])

	_, body = f.do(t, http.MethodGet, "/api/review-summaries/p1", "")
	assert.Equal(t, true, body["found"])

	_, body = f.do(t, http.MethodPost, "/api/review-summaries/generate-all", "")
	assert.EqualValues(t, 1, body["generatedFor"])

	_, body = f.do(t, http.MethodGet, "/api/review-summaries", "")
	assert.Len(t, body["summaries"], 1)
}

func TestProductSummaryRoutes(t *testing.T) {
	f := newFixture(t)
	_, err := f.backend.UpsertProduct(context.Background(), model.Product{ShopifyID: "gid://1", Title: "Wool Hat", Handle: "wool-hat"}, time.Now())
	require.NoError(t, err)

	w, body := f.do(t, http.MethodPost, "/api/product-summaries/generate/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["found"])

	_, body = f.do(t, http.MethodPost, "/api/product-summaries/generate-all", "")
	assert.EqualValues(t, 1, body["generatedFor"])

	_, body = f.do(t, http.MethodGet, "/api/product-summaries", "")
	assert.Len(t, body["summaries"], 1)

	_, body = f.do(t, http.MethodGet, "/api/products", "")
	assert.EqualValues(t, 1, body["count"])
}

func TestAISummaryProxy(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodGet, "/apps/ai-summary", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, err := f.srv.Summaries.UpsertProductSummary(context.Background(),
		model.ProductSummary{ProductID: "x", ProductName: "Wool Hat", Summary: "Warm hat."}, time.Now())
	require.NoError(t, err)

	w, body := f.do(t, http.MethodGet, "/apps/ai-summary?product=wool%20hat", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))
	assert.Equal(t, "Warm hat.", body["summary"])

	_, body = f.do(t, http.MethodGet, "/apps/ai-summary?product=WOOL%20HAT", "")
	assert.Equal(t, "Warm hat.", body["summary"])

	w, body = f.do(t, http.MethodGet, "/apps/ai-summary?product=Scarf", "")
	assert.Equal(t, false, body["success"])
	assert.Empty(t, w.Header().Get("Cache-Control"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAISummaryProxy_FreshAfterGenerate(t *testing.T) {
	f := newFixture(t)
	f.seedReviews(t, "p1", 3)

	_, body := f.do(t, http.MethodGet, "/apps/ai-summary?product=Linen%20Shirt", "")
	assert.Equal(t, false, body["success"])

	f.do(t, http.MethodPost, "/api/review-summaries/generate/p1", "")
	_, body = f.do(t, http.MethodGet, "/apps/ai-summary?product=Linen%20Shirt", "")
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Customers love it.", body["summary"])

	f.llm.text = "Runs a little small."
	f.do(t, http.MethodPost, "/api/review-summaries/generate-all", "")
	_, body = f.do(t, http.MethodGet, "/apps/ai-summary?product=linen%20shirt", "")
	assert.Equal(t, "Runs a little small.", body["summary"])
}

func TestAISummaryProxy_FreshAfterProductSummary(t *testing.T) {
	f := newFixture(t)
	_, err := f.backend.UpsertProduct(context.Background(), model.Product{ShopifyID: "gid://1", Title: "Wool Hat", Handle: "wool-hat"}, time.Now())
	require.NoError(t, err)

	_, body := f.do(t, http.MethodGet, "/apps/ai-summary?product=Wool%20Hat", "")
	assert.Equal(t, false, body["success"])

	f.do(t, http.MethodPost, "/api/product-summaries/generate-all", "")
	_, body = f.do(t, http.MethodGet, "/apps/ai-summary?product=Wool%20Hat", "")
	assert.Equal(t, "Customers love it.", body["summary"])

	f.llm.text = "Itchy but warm."
	f.do(t, http.MethodPost, "/api/product-summaries/generate/product-1", "")
	_, body = f.do(t, http.MethodGet, "/apps/ai-summary?product=Wool%20Hat", "")
	assert.Equal(t, "Itchy but warm.", body["summary"])
}

func TestAISummaryProxy_PrefersReviewSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.srv.Summaries.UpsertProductSummary(ctx, model.ProductSummary{ProductID: "x", ProductName: "Wool Hat", Summary: "Catalog."}, time.Now())
	require.NoError(t, err)
	_, err = f.srv.Summaries.UpsertReviewSummary(ctx, model.ReviewSummary{ProductID: "x", ProductName: "Wool Hat", Summary: "Reviews."}, time.Now())
	require.NoError(t, err)

	_, body := f.do(t, http.MethodGet, "/apps/ai-summary?product=Wool%20Hat", "")
	assert.Equal(t, "Reviews.", body["summary"])
}

func TestSyncProducts_NotConfigured(t *testing.T) {
	f := newFixture(t)
	w, body := f.do(t, http.MethodPost, "/api/products/sync", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.ReasonNotConfigured, body["reason"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.seedReviews(t, "p1", 1)
	f.do(t, http.MethodPost, "/api/review-summaries/generate/p1", "")

	w, _ := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `review_ai_summaries_total{kind="review",outcome="success"} 1`)
}
