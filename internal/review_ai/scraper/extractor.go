package scraper

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"review-ai/internal/review_ai/model"
)

// SourceWidgetHTML tags reviews read from the rendered Judge.me widget.
const SourceWidgetHTML = "judge.me_html"

// MinBodyLength is the shortest review body, in characters, worth keeping.
const MinBodyLength = 5

// Judge.me widget markup.
const (
	selReview    = ".jdgm-rev"
	selRating    = ".jdgm-rev__rating"
	selBody      = ".jdgm-rev__body"
	selAuthor    = ".jdgm-rev__author"
	selTimestamp = ".jdgm-rev__timestamp"
	selVerified  = ".jdgm-rev__badge--verified-buyer"
)

type ExtractResult struct {
	Reviews []model.RawReview
	Skipped int
	// Challenged is set when the page is still the password gate; anything
	// extracted from it is suspect.
	Challenged bool
}

type Extractor struct {
	Log *zap.Logger
	Now func() time.Time
}

func NewExtractor(log *zap.Logger) *Extractor {
	return &Extractor{Log: log, Now: time.Now}
}

// Extract reads every review node on one product page. A node that cannot be
// read is logged and skipped; it never fails the page.
func (e *Extractor) Extract(html string, product model.CandidateProduct) (ExtractResult, error) {
	var res ExtractResult
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return res, fmt.Errorf("parse product page: %w", err)
	}

	if IsChallenge(html) {
		res.Challenged = true
		e.Log.Warn("password page detected while scraping, login may have failed",
			zap.String("productId", product.ID))
	}

	doc.Find(selReview).Each(func(i int, node *goquery.Selection) {
		raw, err := e.readNode(i, node, product)
		if err != nil {
			res.Skipped++
			e.Log.Debug("skip review node",
				zap.String("productId", product.ID), zap.Int("index", i), zap.Error(err))
			return
		}
		res.Reviews = append(res.Reviews, raw)
	})
	return res, nil
}

func (e *Extractor) readNode(i int, node *goquery.Selection, product model.CandidateProduct) (raw model.RawReview, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic reading node: %v", r)
		}
	}()

	body := strings.TrimSpace(node.Find(selBody).First().Text())
	if utf8.RuneCountInString(body) < MinBodyLength {
		return raw, fmt.Errorf("body shorter than %d characters", MinBodyLength)
	}

	score, _ := node.Find(selRating).First().Attr("data-score")

	author := strings.TrimSpace(node.Find(selAuthor).First().Text())
	if author == "" {
		author = "Anonymous"
	}

	ts := node.Find(selTimestamp).First()
	timestamp, _ := ts.Attr("datetime")
	if timestamp == "" {
		timestamp = strings.TrimSpace(ts.Text())
	}
	if timestamp == "" {
		timestamp = e.Now().UTC().Format(time.RFC3339)
	}

	id, _ := node.Attr("data-review-id")
	if id == "" {
		// only stable within one pass over the page
		id = product.ID + "_" + strconv.Itoa(i)
	}

	return model.RawReview{
		Kind:         model.RawFromWidget,
		ExternalID:   id,
		ProductID:    product.ID,
		ProductName:  product.DisplayName,
		ReviewerName: author,
		Rating:       parseScore(score),
		Body:         body,
		Timestamp:    timestamp,
		Verified:     node.Find(selVerified).Length() > 0,
		Source:       SourceWidgetHTML,
	}, nil
}

// parseScore reads the leading integer of a data-score value; 0 when none.
func parseScore(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}
