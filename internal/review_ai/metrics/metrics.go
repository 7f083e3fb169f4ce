package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Review outcomes of a scrape or import.
const (
	OutcomePersisted = "persisted"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Summary kinds.
const (
	KindReview  = "review"
	KindProduct = "product"
)

// Metrics groups the pipeline instruments. A nil *Metrics records nothing.
type Metrics struct {
	ScrapeReviews *prometheus.CounterVec
	ScrapeCycles  *prometheus.CounterVec
	Summaries     *prometheus.CounterVec
	LLMRequest    *prometheus.HistogramVec
}

// New registers the instruments with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ScrapeReviews: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "review_ai_scrape_reviews_total",
				Help: "Reviews seen by scrape and import runs, by outcome",
			},
			[]string{"outcome"},
		),
		ScrapeCycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "review_ai_scrape_cycles_total",
				Help: "Scrape cycles, by result",
			},
			[]string{"result"},
		),
		Summaries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "review_ai_summaries_total",
				Help: "Summary generations, by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		LLMRequest: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "review_ai_llm_request_seconds",
				Help:    "LLM completion latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "status"},
		),
	}
}

func (m *Metrics) Review(outcome string) {
	if m == nil {
		return
	}
	m.ScrapeReviews.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Cycle(result string) {
	if m == nil {
		return
	}
	m.ScrapeCycles.WithLabelValues(result).Inc()
}

func (m *Metrics) Summary(kind, outcome string) {
	if m == nil {
		return
	}
	m.Summaries.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) LLM(provider string, took time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.LLMRequest.WithLabelValues(provider, status).Observe(took.Seconds())
}
