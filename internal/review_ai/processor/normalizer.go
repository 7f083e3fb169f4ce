package processor

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"review-ai/internal/review_ai/model"
)

// DefaultRating is used when a raw review carries no usable rating.
const DefaultRating = 5

const anonymous = "Anonymous"

var (
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	spaceRe  = regexp.MustCompile(`\s+`)
	entities = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">")
)

// Sanitize strips tags, decodes the common entities, collapses whitespace
// and trims, in that order.
func Sanitize(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	s = entities.Replace(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Outcome is the result of normalizing one raw review: a canonical Review
// when Reason is empty, a rejection otherwise.
type Outcome struct {
	Review model.Review
	Reason string
}

func (o Outcome) OK() bool { return o.Reason == "" }

func accepted(r model.Review) Outcome { return Outcome{Review: r} }
func rejected(reason string) Outcome  { return Outcome{Reason: reason} }

// Normalizer maps raw reviews of either kind onto model.Review.
type Normalizer struct {
	Now      func() time.Time
	validate *validator.Validate
}

func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{Now: now, validate: validator.New()}
}

// Normalize never fails the caller; an invalid record comes back rejected.
func (n *Normalizer) Normalize(raw model.RawReview) Outcome {
	f, err := fieldsOf(raw)
	if err != nil {
		return rejected(err.Error())
	}

	rating, err := coerceRating(f.rating)
	if err != nil {
		return rejected(err.Error())
	}

	r := model.Review{
		ReviewID:         strings.TrimSpace(f.id),
		ProductID:        f.productID,
		ProductName:      f.productName,
		ReviewerName:     strings.TrimSpace(f.reviewer),
		Rating:           rating,
		ReviewText:       Sanitize(f.body),
		ReviewDate:       n.parseDate(f.date),
		VerifiedPurchase: f.verified,
		Source:           strings.TrimSpace(f.source),
	}
	if r.ReviewerName == "" {
		r.ReviewerName = anonymous
	}
	if r.Source == "" {
		r.Source = model.DefaultSource
	}

	if err := n.validate.Struct(r); err != nil {
		return rejected(describe(err))
	}
	r.ID = model.IdentityKey(r.ReviewID, r.Source)
	return accepted(r)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func (n *Normalizer) parseDate(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		if !t.IsZero() {
			return t.UTC()
		}
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d.UTC()
			}
		}
	}
	return n.Now().UTC()
}

// coerceRating takes the integer part of a number or numeric string. Missing,
// zero and non-numeric values fall back to DefaultRating; anything else
// outside 1..5 is an error.
func coerceRating(v any) (int, error) {
	var n int
	switch t := v.(type) {
	case nil:
		return DefaultRating, nil
	case int:
		n = t
	case int32:
		n = int(t)
	case int64:
		n = int(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return DefaultRating, nil
		}
		n = int(t)
	case string:
		s := strings.TrimSpace(t)
		if i, err := strconv.Atoi(s); err == nil {
			n = i
		} else if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			n = int(f)
		} else {
			return DefaultRating, nil
		}
	default:
		return DefaultRating, nil
	}
	if n == 0 {
		return DefaultRating, nil
	}
	if n < 1 || n > 5 {
		return 0, fmt.Errorf("rating %d out of range", n)
	}
	return n, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "ReviewID":
			parts = append(parts, "missing review id")
		case "ReviewText":
			parts = append(parts, "empty review body")
		case "Rating":
			parts = append(parts, "rating out of range")
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// rawFields is the single place every accepted alternate key is resolved.
type rawFields struct {
	id, productID, productName, reviewer, body, source string
	rating, date                                       any
	verified                                           bool
}

func fieldsOf(raw model.RawReview) (rawFields, error) {
	switch raw.Kind {
	case model.RawFromWidget:
		var rating any
		if raw.Rating != 0 {
			rating = raw.Rating
		}
		return rawFields{
			id:          raw.ExternalID,
			productID:   raw.ProductID,
			productName: raw.ProductName,
			reviewer:    raw.ReviewerName,
			body:        raw.Body,
			source:      raw.Source,
			rating:      rating,
			date:        raw.Timestamp,
			verified:    raw.Verified,
		}, nil
	case model.RawFromPayload:
		p := raw.Payload
		if p == nil {
			return rawFields{}, errors.New("empty payload")
		}
		f := rawFields{
			id:          str(first(p, "id", "reviewId")),
			productID:   str(first(p, "product_id", "productId")),
			productName: str(first(p, "product_title", "productName")),
			body:        str(first(p, "body", "content", "reviewText")),
			source:      str(p["source"]),
			rating:      first(p, "score", "rating"),
			date:        first(p, "created_at", "createdAt", "reviewDate"),
			verified:    verifiedOf(p),
		}
		if rv, ok := p["reviewer"].(map[string]any); ok {
			f.reviewer = str(rv["name"])
		}
		if f.reviewer == "" {
			f.reviewer = str(first(p, "author_name", "name"))
		}
		return f, nil
	default:
		return rawFields{}, fmt.Errorf("unknown raw review kind %q", raw.Kind)
	}
}

func first(p map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := p[k]; ok && v != nil && v != "" {
			return v
		}
	}
	return nil
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

func verifiedOf(p map[string]any) bool {
	switch v := p["verified"].(type) {
	case string:
		if v == "ok" {
			return true
		}
	case bool:
		if v {
			return true
		}
	}
	b, _ := p["verifiedPurchase"].(bool)
	return b
}
