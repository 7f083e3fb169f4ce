package model

import "time"

// ReviewSummary is the generated digest of one product's reviews.
// At most one exists per ProductID.
type ReviewSummary struct {
	ProductID     string    `bson:"productId" json:"productId" validate:"required"`
	ProductName   string    `bson:"productName" json:"productName"`
	ReviewCount   int       `bson:"reviewCount" json:"reviewCount"`
	AverageRating float64   `bson:"averageRating" json:"averageRating"`
	Summary       string    `bson:"summary" json:"summary" validate:"required"`
	Suggestions   string    `bson:"suggestions" json:"suggestions"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ProductSummary is generated from catalog metadata rather than reviews.
type ProductSummary struct {
	ProductID   string    `bson:"productId" json:"productId" validate:"required"`
	ProductName string    `bson:"productName" json:"productName"`
	Summary     string    `bson:"summary" json:"summary" validate:"required"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}
