package model

// Failure reasons carried next to the human readable error so callers can
// branch on empty states without parsing messages.
const (
	ReasonNotConfigured = "not_configured"
	ReasonNoProducts    = "no_products"
	ReasonNoReviews     = "no_reviews"
	ReasonNotFound      = "not_found"
	ReasonLLM           = "llm_error"
	ReasonValidation    = "validation"
	ReasonStorage       = "storage"
	ReasonSession       = "session"
	ReasonCancelled     = "cancelled"
)

// Pagination is the envelope returned with every paged listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination computes the envelope; an empty set still reports one page.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 1
	if limit > 0 && total > 0 {
		totalPages = int(total / int64(limit))
		if total%int64(limit) > 0 {
			totalPages++
		}
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}

// ScrapeResult reports one scrape cycle.
type ScrapeResult struct {
	Success           bool   `json:"success"`
	ReviewsScraped    int    `json:"reviewsScraped"`
	RawCount          int    `json:"rawCount"`
	Rejected          int    `json:"rejected"`
	Message           string `json:"message,omitempty"`
	Error             string `json:"error,omitempty"`
	Reason            string `json:"reason,omitempty"`
	NeedsJudgeMeSetup bool   `json:"needsJudgeMeSetup,omitempty"`
	NeedsProducts     bool   `json:"needsProducts,omitempty"`
	NeedsReviews      bool   `json:"needsReviews,omitempty"`
	Challenged        bool   `json:"challenged,omitempty"`
}

// ImportResult reports a batch of imported review payloads.
type ImportResult struct {
	Success  bool   `json:"success"`
	Received int    `json:"received"`
	Imported int    `json:"imported"`
	Rejected int    `json:"rejected"`
	Error    string `json:"error,omitempty"`
}

// SummaryResult reports one review summary generation.
type SummaryResult struct {
	Success       bool    `json:"success"`
	ProductID     string  `json:"productId"`
	ProductName   string  `json:"productName,omitempty"`
	ReviewCount   int     `json:"reviewCount,omitempty"`
	AverageRating float64 `json:"averageRating,omitempty"`
	Summary       string  `json:"summary,omitempty"`
	Suggestions   string  `json:"suggestions,omitempty"`
	Error         string  `json:"error,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	HasReviews    *bool   `json:"hasReviews,omitempty"`
}

// ProductSummaryResult reports one catalog summary generation.
type ProductSummaryResult struct {
	Success     bool   `json:"success"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Error       string `json:"error,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Found       *bool  `json:"found,omitempty"`
}

// BulkResult aggregates per-product outcomes of a paced batch run.
type BulkResult[T any] struct {
	Success       bool   `json:"success"`
	GeneratedFor  int    `json:"generatedFor"`
	TotalProducts int    `json:"totalProducts"`
	Results       []T    `json:"results"`
	Error         string `json:"error,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// SyncResult reports one catalog sync from the Shopify Admin API.
type SyncResult struct {
	Success   bool   `json:"success"`
	Synced    int    `json:"synced"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	// Truncated is set when the page cap was hit with more products left.
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
