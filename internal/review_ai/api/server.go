package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"review-ai/internal/middleware/logger"
	"review-ai/internal/review_ai/catalog"
	"review-ai/internal/review_ai/model"
	"review-ai/internal/review_ai/processor"
	"review-ai/internal/review_ai/store"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100

	proxyCacheSize = 512
	proxyCacheTTL  = time.Hour
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP surface. Handlers only translate requests and map
// result envelopes to status codes; the work happens in the processors.
type Server struct {
	Log       *zap.Logger
	Storage   Pinger
	Reviews   *store.ReviewStore
	Summaries *store.SummaryStore
	Catalog   *catalog.Catalog
	Sync      *catalog.ShopifySync
	Scraper   *processor.Scraper
	Importer  *processor.Importer
	Generator *processor.SummaryGenerator
	Bulk      *processor.BulkSummarizer
	Products  *processor.ProductSummarizer
	Gatherer  prometheus.Gatherer

	proxyCache *expirable.LRU[string, gin.H]
}

func (s *Server) Router() *gin.Engine {
	s.proxyCache = expirable.NewLRU[string, gin.H](proxyCacheSize, nil, proxyCacheTTL)
	if s.Generator != nil {
		s.Generator.OnSaved = s.forgetSummary
	}
	if s.Products != nil {
		s.Products.OnSaved = s.forgetSummary
	}

	r := gin.New()
	r.Use(logger.Gin(s.Log))

	api := r.Group("/api")
	api.GET("/health", s.health)

	api.POST("/reviews/scrape", s.scrapeReviews)
	api.POST("/reviews/import", s.importReviews)
	api.GET("/reviews", s.listReviews) // ?page=1&limit=20
	api.DELETE("/reviews/:id", s.deleteReview)

	api.POST("/review-summaries/generate/:productId", s.generateReviewSummary)
	api.POST("/review-summaries/generate-all", s.generateAllReviewSummaries)
	api.GET("/review-summaries", s.listReviewSummaries)
	api.GET("/review-summaries/:productId", s.getReviewSummary)

	api.POST("/product-summaries/generate/:productId", s.generateProductSummary)
	api.POST("/product-summaries/generate-all", s.generateAllProductSummaries)
	api.GET("/product-summaries", s.listProductSummaries)

	api.GET("/products", s.listProducts)
	api.POST("/products/sync", s.syncProducts)

	r.GET("/apps/ai-summary", s.aiSummaryProxy) // ?product=<title>

	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return r
}

// statusFor maps a failure reason to an HTTP status. Empty states are not
// errors for the caller; they come back 200 with success false and a flag.
func statusFor(success bool, reason string) int {
	if success {
		return http.StatusOK
	}
	switch reason {
	case model.ReasonNoProducts, model.ReasonNoReviews, model.ReasonNotConfigured:
		return http.StatusOK
	case model.ReasonNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// pageParams reads page and limit, falling back to the defaults on anything
// that is not a positive integer.
func pageParams(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page <= 0 {
		page = defaultPage
	}
	limit, err = strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.Log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func (s *Server) health(c *gin.Context) {
	if err := s.Storage.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok", "timestamp": time.Now().UTC()})
}

// -------- reviews --------

func (s *Server) scrapeReviews(c *gin.Context) {
	res := s.Scraper.Run(c.Request.Context())
	c.JSON(statusFor(res.Success, res.Reason), res)
}

func (s *Server) importReviews(c *gin.Context) {
	var body struct {
		Reviews []map[string]any `json:"reviews"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if len(body.Reviews) == 0 {
		s.fail(c, http.StatusBadRequest, errors.New("reviews must be a non-empty array"))
		return
	}
	res := s.Importer.Import(c.Request.Context(), body.Reviews)
	c.JSON(statusFor(res.Success, ""), res)
}

func (s *Server) listReviews(c *gin.Context) {
	page, limit := pageParams(c)
	out, err := s.Reviews.List(c.Request.Context(), limit, page)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviews": out.Items, "pagination": out.Pagination})
}

func (s *Server) deleteReview(c *gin.Context) {
	id := c.Param("id")
	err := s.Reviews.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Review not found"})
	case errors.Is(err, store.ErrInvalidArgument):
		s.fail(c, http.StatusBadRequest, err)
	case err != nil:
		s.fail(c, http.StatusInternalServerError, err)
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Review deleted successfully"})
	}
}

// -------- review summaries --------

func (s *Server) generateReviewSummary(c *gin.Context) {
	res := s.Generator.Generate(c.Request.Context(), c.Param("productId"))
	c.JSON(statusFor(res.Success, res.Reason), res)
}

func (s *Server) generateAllReviewSummaries(c *gin.Context) {
	res := s.Bulk.Run(c.Request.Context())
	c.JSON(statusFor(res.Success, res.Reason), res)
}

func (s *Server) listReviewSummaries(c *gin.Context) {
	page, limit := pageParams(c)
	out, err := s.Summaries.ListReviewSummaries(c.Request.Context(), limit, page)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summaries": out.Items, "pagination": out.Pagination})
}

func (s *Server) getReviewSummary(c *gin.Context) {
	sum, err := s.Summaries.ReviewSummary(c.Request.Context(), c.Param("productId"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"success": true, "summary": nil, "found": false})
		return
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": sum, "found": true})
}

// -------- product summaries --------

func (s *Server) generateProductSummary(c *gin.Context) {
	res := s.Products.Generate(c.Request.Context(), c.Param("productId"))
	c.JSON(statusFor(res.Success, res.Reason), res)
}

func (s *Server) generateAllProductSummaries(c *gin.Context) {
	res := s.Products.GenerateAll(c.Request.Context())
	c.JSON(statusFor(res.Success, res.Reason), res)
}

func (s *Server) listProductSummaries(c *gin.Context) {
	page, limit := pageParams(c)
	out, err := s.Summaries.ListProductSummaries(c.Request.Context(), limit, page)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summaries": out.Items, "pagination": out.Pagination})
}

// -------- products --------

func (s *Server) listProducts(c *gin.Context) {
	products, err := s.Catalog.List(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": products, "count": len(products)})
}

func (s *Server) syncProducts(c *gin.Context) {
	res := s.Sync.Sync(c.Request.Context())
	c.JSON(statusFor(res.Success, res.Reason), res)
}

// -------- storefront proxy --------

// aiSummaryProxy serves the storefront widget. The review summary wins; the
// catalog summary is the fallback. Only hits are cached, and a stored summary
// drops the cache.
func (s *Server) aiSummaryProxy(c *gin.Context) {
	title := strings.TrimSpace(c.Query("product"))
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Product title required"})
		return
	}
	key := strings.ToLower(title)
	if body, ok := s.proxyCache.Get(key); ok {
		writeProxyHit(c, body)
		return
	}

	ctx := c.Request.Context()
	var body gin.H
	rs, err := s.Summaries.ReviewSummaryByName(ctx, title)
	switch {
	case err == nil:
		body = gin.H{
			"success":     true,
			"productName": rs.ProductName,
			"summary":     rs.Summary,
			"suggestions": rs.Suggestions,
			"rating":      rs.AverageRating,
			"reviewCount": rs.ReviewCount,
		}
	case !errors.Is(err, store.ErrNotFound):
		s.fail(c, http.StatusInternalServerError, err)
		return
	default:
		ps, err := s.Summaries.ProductSummaryByName(ctx, title)
		switch {
		case err == nil:
			body = gin.H{"success": true, "productName": ps.ProductName, "summary": ps.Summary}
		case errors.Is(err, store.ErrNotFound):
			c.Header("Access-Control-Allow-Origin", "*")
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "No AI summary found for this product"})
			return
		default:
			s.fail(c, http.StatusInternalServerError, err)
			return
		}
	}

	s.proxyCache.Add(key, body)
	writeProxyHit(c, body)
}

// forgetSummary drops every cached proxy answer once a summary is stored.
func (s *Server) forgetSummary(productName string) {
	if s.proxyCache == nil {
		return
	}
	s.proxyCache.Purge()
	s.Log.Debug("Proxy cache cleared", zap.String("productName", productName))
}

func writeProxyHit(c *gin.Context, body gin.H) {
	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("Access-Control-Allow-Origin", "*")
	c.JSON(http.StatusOK, body)
}
