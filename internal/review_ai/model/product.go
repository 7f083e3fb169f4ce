package model

import "time"

// Product is a catalog entry mirrored from the Shopify Admin API.
type Product struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	ShopifyID   string    `bson:"shopifyId" json:"shopifyId"`
	Title       string    `bson:"title" json:"title"`
	Handle      string    `bson:"handle" json:"handle"`
	BodyHTML    string    `bson:"bodyHtml" json:"bodyHtml"`
	Vendor      string    `bson:"vendor" json:"vendor"`
	ProductType string    `bson:"productType" json:"productType"`
	Tags        []string  `bson:"tags" json:"tags"`
	Status      string    `bson:"status,omitempty" json:"status,omitempty"`
	SyncDate    time.Time `bson:"syncDate" json:"syncDate"`
}

// CandidateProduct is what the scraper needs to visit a product page.
type CandidateProduct struct {
	ID          string
	DisplayName string
	URLSlug     string
}

// Candidate projects a catalog product onto a scrape target.
func (p Product) Candidate() CandidateProduct {
	return CandidateProduct{ID: p.ID, DisplayName: p.Title, URLSlug: p.Handle}
}
