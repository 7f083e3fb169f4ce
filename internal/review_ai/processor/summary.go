package processor

import (
	"context"
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

const (
	DefaultMaxReviews     = 100
	DefaultMaxPromptChars = 24000
)

const summarySystemPrompt = `You summarize customer reviews for a single product.
Return ONE plain English paragraph (80-120 words) describing overall sentiment.
Do NOT use bullet points.
Do NOT return JSON or code blocks.
Return only normal human-readable text.`

const suggestionsSystemPrompt = `You are an AI assistant that analyzes customer reviews and generates concise product recommendations.
Based on the reviews, describe what type of user or customer this product is best suited for.
Keep your response to 2-3 sentences maximum.
Focus on who would benefit most from this product based on the reviews.
Do NOT use bullet points or markdown formatting.
Return only plain English text.`

// SummaryGenerator writes the review summary of one product from its most
// recent stored reviews.
type SummaryGenerator struct {
	Log            *zap.Logger
	Reviews        *store.ReviewStore
	Summaries      *store.SummaryStore
	LLM            llm.Provider
	Metrics        *metrics.Metrics
	MaxReviews     int
	MaxPromptChars int
	Now            func() time.Time
	// OnSaved runs after a summary is stored.
	OnSaved func(productName string)

	validate *validator.Validate
}

func NewSummaryGenerator(log *zap.Logger, reviews *store.ReviewStore, summaries *store.SummaryStore, provider llm.Provider) *SummaryGenerator {
	return &SummaryGenerator{
		Log:            log,
		Reviews:        reviews,
		Summaries:      summaries,
		LLM:            provider,
		MaxReviews:     DefaultMaxReviews,
		MaxPromptChars: DefaultMaxPromptChars,
		Now:            time.Now,
		validate:       validator.New(),
	}
}

// Generate never returns an error: every failure is a result with a reason,
// so a bulk run can carry on with the next product.
func (g *SummaryGenerator) Generate(ctx context.Context, productID string) model.SummaryResult {
	res := g.generate(ctx, productID)
	outcome := "success"
	if !res.Success {
		outcome = res.Reason
	}
	g.Metrics.Summary(metrics.KindReview, outcome)
	return res
}

func (g *SummaryGenerator) generate(ctx context.Context, productID string) model.SummaryResult {
	fail := func(reason, msg string) model.SummaryResult {
		return model.SummaryResult{ProductID: productID, Reason: reason, Error: msg}
	}
	if g.LLM == nil {
		return fail(model.ReasonNotConfigured, "LLM provider not configured. Set the LLM API key.")
	}

	limit := g.MaxReviews
	if limit <= 0 {
		limit = DefaultMaxReviews
	}
	reviews, err := g.Reviews.ByProduct(ctx, productID, limit)
	if err != nil {
		g.Log.Error("Failed to load reviews", zap.String("productId", productID), zap.Error(err))
		return fail(model.ReasonStorage, "load reviews: "+err.Error())
	}
	if len(reviews) == 0 {
		res := fail(model.ReasonNoReviews, "No reviews found for this product")
		noReviews := false
		res.HasReviews = &noReviews
		return res
	}

	productName := reviews[0].ProductName
	if productName == "" {
		productName = "Unknown Product"
	}
	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))

	userPrompt := buildUserPrompt(productName, avg, len(reviews), g.reviewsText(reviews))

	summary, err := g.complete(ctx, llm.Request{System: summarySystemPrompt, User: userPrompt, MaxTokens: 400, Temperature: 0.4})
	if err != nil {
		g.Log.Error("Summary generation failed", zap.String("productId", productID), zap.Error(err))
		return fail(model.ReasonLLM, "generate summary: "+err.Error())
	}
	suggestions, err := g.complete(ctx, llm.Request{
		System:      suggestionsSystemPrompt,
		User:        userPrompt + "\n\nBased on these reviews, who is this product best suited for?",
		MaxTokens:   200,
		Temperature: 0.4,
	})
	if err != nil {
		g.Log.Error("Suggestions generation failed", zap.String("productId", productID), zap.Error(err))
		return fail(model.ReasonLLM, "generate suggestions: "+err.Error())
	}

	doc := model.ReviewSummary{
		ProductID:     productID,
		ProductName:   productName,
		ReviewCount:   len(reviews),
		AverageRating: avg,
		Summary:       summary,
		Suggestions:   suggestions,
	}
	if err := g.validator().Struct(doc); err != nil {
		g.Log.Warn("Generated summary failed validation", zap.String("productId", productID), zap.Error(err))
		return fail(model.ReasonValidation, "Generated summary failed validation")
	}

	if _, err := g.Summaries.UpsertReviewSummary(ctx, doc, g.now()); err != nil {
		g.Log.Error("Failed to save summary", zap.String("productId", productID), zap.Error(err))
		return fail(model.ReasonStorage, "save summary: "+err.Error())
	}
	if g.OnSaved != nil {
		g.OnSaved(productName)
	}

	g.Log.Info("Review summary generated",
		zap.String("productId", productID),
		zap.Int("reviewCount", len(reviews)),
		zap.Float64("averageRating", avg),
	)
	return model.SummaryResult{
		Success:       true,
		ProductID:     productID,
		ProductName:   productName,
		ReviewCount:   len(reviews),
		AverageRating: avg,
		Summary:       summary,
		Suggestions:   suggestions,
	}
}

// complete calls the provider, times it and cleans the answer.
func (g *SummaryGenerator) complete(ctx context.Context, req llm.Request) (string, error) {
	return completeClean(ctx, g.LLM, g.Metrics, req)
}

func completeClean(ctx context.Context, p llm.Provider, m *metrics.Metrics, req llm.Request) (string, error) {
	start := time.Now()
	raw, err := p.Complete(ctx, req)
	m.LLM(p.Name(), time.Since(start), err)
	if err != nil {
		return "", err
	}
	return llm.CleanText(raw), nil
}

func (g *SummaryGenerator) validator() *validator.Validate {
	if g.validate == nil {
		g.validate = validator.New()
	}
	return g.validate
}

func (g *SummaryGenerator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// reviewsText renders reviews as numbered blocks, newest first, stopping
// before the text would pass MaxPromptChars. The first block is always kept,
// cut to the cap if needed.
func (g *SummaryGenerator) reviewsText(reviews []model.Review) string {
	capChars := g.MaxPromptChars
	if capChars <= 0 {
		capChars = DefaultMaxPromptChars
	}
	const sep = "\n\n---\n\n"

	var b strings.Builder
	for i, r := range reviews {
		block := reviewBlock(i+1, r)
		if i == 0 {
			if len(block) > capChars {
				block = truncateUTF8(block, capChars)
			}
			b.WriteString(block)
			continue
		}
		if b.Len()+len(sep)+len(block) > capChars {
			break
		}
		b.WriteString(sep)
		b.WriteString(block)
	}
	return b.String()
}

func reviewBlock(n int, r model.Review) string {
	name := r.ReviewerName
	if name == "" {
		name = anonymous
	}
	rating := "N/A"
	if r.Rating > 0 {
		rating = fmt.Sprint(r.Rating)
	}
	date := "Unknown date"
	if !r.ReviewDate.IsZero() {
		date = r.ReviewDate.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("#%d\nReviewer: %s\nRating: %s/5\nDate: %s\nReview: %s",
		n, name, rating, date, Sanitize(r.ReviewText))
}

func buildUserPrompt(productName string, avg float64, count int, reviewsText string) string {
	return fmt.Sprintf("Product name: %s\nExisting rating: %.1f/5 from %d review(s).\n\nCustomer reviews:\n\n\"\"\"\n%s\n\"\"\"",
		productName, avg, count, reviewsText)
}

func truncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := 0
	for i := range s {
		if i > maxBytes {
			break
		}
		cut = i
	}
	return s[:cut]
}
