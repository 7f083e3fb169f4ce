package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"review-ai/internal/review_ai/llm"
	"review-ai/internal/review_ai/metrics"
	"review-ai/internal/review_ai/model"
	"review-ai/internal/review_ai/store"
)

const productSystemPrompt = `You are an AI assistant that creates compelling product summaries for e-commerce.
Generate an engaging, informative summary that highlights the key features, benefits, and appeal of the product.
Keep it concise (100-150 words) and persuasive for potential customers.
Do not use bullet points, just write natural flowing text.`

// ProductSummarizer writes catalog-based product summaries. It reads the
// mirrored catalog, never the reviews.
type ProductSummarizer struct {
	Log       *zap.Logger
	Products  store.ProductBackend
	Summaries *store.SummaryStore
	LLM       llm.Provider
	Metrics   *metrics.Metrics
	Delay     time.Duration
	Now       func() time.Time
	// OnSaved runs after a summary is stored.
	OnSaved func(productName string)

	validate *validator.Validate
}

func NewProductSummarizer(log *zap.Logger, products store.ProductBackend, summaries *store.SummaryStore, provider llm.Provider) *ProductSummarizer {
	return &ProductSummarizer{
		Log:       log,
		Products:  products,
		Summaries: summaries,
		LLM:       provider,
		Delay:     DefaultSummaryDelay,
		Now:       time.Now,
		validate:  validator.New(),
	}
}

func (ps *ProductSummarizer) Generate(ctx context.Context, productID string) model.ProductSummaryResult {
	res := ps.generate(ctx, productID)
	outcome := "success"
	if !res.Success {
		outcome = res.Reason
	}
	ps.Metrics.Summary(metrics.KindProduct, outcome)
	return res
}

func (ps *ProductSummarizer) generate(ctx context.Context, productID string) model.ProductSummaryResult {
	fail := func(reason, msg string) model.ProductSummaryResult {
		return model.ProductSummaryResult{ProductID: productID, Reason: reason, Error: msg}
	}
	if ps.LLM == nil {
		return fail(model.ReasonNotConfigured, "LLM provider not configured. Set the LLM API key.")
	}

	p, err := ps.Products.FindProduct(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		res := fail(model.ReasonNotFound, "Product not found")
		found := false
		res.Found = &found
		return res
	}
	if err != nil {
		ps.Log.Error("Failed to load product", zap.String("productId", productID), zap.Error(err))
		return fail(model.ReasonStorage, "load product: "+err.Error())
	}

	name := p.Title
	if name == "" {
		name = "Unknown Product"
	}
	user := fmt.Sprintf("Create a product summary for:\n\n%s\n\nFocus on making this product appealing to customers and highlighting its key selling points.",
		productInfo(name, p))

	text, err := completeClean(ctx, ps.LLM, ps.Metrics, llm.Request{
		System:      productSystemPrompt,
		User:        user,
		MaxTokens:   400,
		Temperature: 0.7,
	})
	if err != nil {
		ps.Log.Error("Product summary generation failed", zap.String("productId", productID), zap.Error(err))
		return fail(model.ReasonLLM, "generate product summary: "+err.Error())
	}

	// keyed on the catalog id, whichever id form the caller used
	doc := model.ProductSummary{ProductID: p.ID, ProductName: name, Summary: text}
	if ps.validate == nil {
		ps.validate = validator.New()
	}
	if err := ps.validate.Struct(doc); err != nil {
		return fail(model.ReasonValidation, "Generated summary failed validation")
	}
	now := time.Now
	if ps.Now != nil {
		now = ps.Now
	}
	if _, err := ps.Summaries.UpsertProductSummary(ctx, doc, now()); err != nil {
		ps.Log.Error("Failed to save product summary", zap.String("productId", p.ID), zap.Error(err))
		return fail(model.ReasonStorage, "save product summary: "+err.Error())
	}
	if ps.OnSaved != nil {
		ps.OnSaved(name)
	}

	ps.Log.Info("Product summary generated", zap.String("productId", p.ID), zap.String("requestedId", productID))
	return model.ProductSummaryResult{Success: true, ProductID: p.ID, ProductName: name, Summary: text}
}

// GenerateAll summarizes every catalog product with the same pacing as the
// review bulk run.
func (ps *ProductSummarizer) GenerateAll(ctx context.Context) model.BulkResult[model.ProductSummaryResult] {
	products, err := ps.Products.FindProducts(ctx, 0)
	if err != nil {
		ps.Log.Error("Failed to list products", zap.Error(err))
		return model.BulkResult[model.ProductSummaryResult]{Error: "list products: " + err.Error(), Reason: model.ReasonStorage}
	}
	if len(products) == 0 {
		return model.BulkResult[model.ProductSummaryResult]{
			Error:  "No products found in database.",
			Reason: model.ReasonNoProducts,
		}
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return runPaced(ctx, ps.Log, ids, ps.Delay,
		ps.Generate,
		func(r model.ProductSummaryResult) bool { return r.Success },
	)
}

func productInfo(name string, p *model.Product) string {
	return fmt.Sprintf("Product Name: %s\nDescription: %s\nTags: %s\nProduct Type: %s\nVendor: %s",
		name, Sanitize(p.BodyHTML), strings.Join(p.Tags, ", "), p.ProductType, p.Vendor)
}
