package model

import "time"

// DefaultSource tags reviews that carry no source of their own.
const DefaultSource = "judge.me"

// Review is a canonical stored review. Its document id is the identity key
// built from (ReviewID, Source), so two sources may reuse the same ReviewID.
type Review struct {
	ID               string    `bson:"_id" json:"id"`
	ReviewID         string    `bson:"reviewId" json:"reviewId" validate:"required"`
	ProductID        string    `bson:"productId" json:"productId"`
	ProductName      string    `bson:"productName" json:"productName"`
	ReviewerName     string    `bson:"reviewerName" json:"reviewerName"`
	Rating           int       `bson:"rating" json:"rating" validate:"gte=1,lte=5"`
	ReviewText       string    `bson:"reviewText" json:"reviewText" validate:"required"`
	ReviewDate       time.Time `bson:"reviewDate" json:"reviewDate"`
	VerifiedPurchase bool      `bson:"verifiedPurchase" json:"verifiedPurchase"`
	Source           string    `bson:"source" json:"source" validate:"required"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IdentityKey returns the composite key used as the review document id.
func IdentityKey(reviewID, source string) string {
	return source + ":" + reviewID
}

// RawKind tags where a RawReview came from.
type RawKind string

const (
	// RawFromWidget is a review scraped from a storefront review widget.
	RawFromWidget RawKind = "widget"
	// RawFromPayload is a loosely shaped JSON payload (review API export or import).
	RawFromPayload RawKind = "payload"
)

// RawReview is one review before normalization. Widget reviews use the typed
// fields; payload reviews keep the decoded object in Payload.
type RawReview struct {
	Kind         RawKind
	ExternalID   string
	ProductID    string
	ProductName  string
	ReviewerName string
	Rating       int // 0 when the widget carried no parsable score
	Body         string
	Timestamp    string
	Verified     bool
	Source       string

	Payload map[string]any
}
