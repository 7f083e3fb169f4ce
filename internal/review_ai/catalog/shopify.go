package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"review-ai/internal/review_ai/model"
	"review-ai/internal/review_ai/store"
)

const (
	DefaultAPIVersion = "2024-10"
	pageSize          = 250
	maxPages          = 40
)

var ErrNotConfigured = errors.New("shop domain and admin access token must both be set")

type GraphQLError struct {
	Message    string `json:"message"`
	Path       []any  `json:"path,omitempty"`
	Extensions struct {
		Code string `json:"code,omitempty"`
	} `json:"extensions,omitempty"`
}

type GraphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

// PostGraphQL sends one Admin API GraphQL request. shopDomain may carry a
// scheme; a bare host gets https.
func PostGraphQL[T any](ctx context.Context, client *http.Client, shopDomain, apiVersion, accessToken, query string, variables any) (*GraphQLResponse[T], int, error) {
	base := strings.TrimRight(shopDomain, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	endpoint := fmt.Sprintf("%s/admin/api/%s/graphql.json", base, apiVersion)

	b, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	res, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, res.StatusCode, err
	}
	var out GraphQLResponse[T]
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, res.StatusCode, err
	}
	return &out, res.StatusCode, nil
}

const productsQuery = `query Products($first: Int!, $after: String) {
  products(first: $first, after: $after) {
    pageInfo { hasNextPage endCursor }
    nodes { id title handle descriptionHtml vendor productType tags status }
  }
}`

type productsData struct {
	Products struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Nodes []struct {
			ID              string   `json:"id"`
			Title           string   `json:"title"`
			Handle          string   `json:"handle"`
			DescriptionHTML string   `json:"descriptionHtml"`
			Vendor          string   `json:"vendor"`
			ProductType     string   `json:"productType"`
			Tags            []string `json:"tags"`
			Status          string   `json:"status"`
		} `json:"nodes"`
	} `json:"products"`
}

// ShopifySync mirrors the store's products into the catalog. Existing
// documents are matched on Shopify id so their ids, which stored reviews
// point at, never change.
type ShopifySync struct {
	Log         *zap.Logger
	Products    store.ProductBackend
	HTTPClient  *http.Client
	ShopDomain  string
	APIVersion  string
	AccessToken string
	Now         func() time.Time
	// MaxPages caps how many product pages one sync reads; zero means 40.
	MaxPages    int
}

func (s *ShopifySync) Sync(ctx context.Context) model.SyncResult {
	if s.ShopDomain == "" || s.AccessToken == "" {
		return model.SyncResult{Error: ErrNotConfigured.Error(), Reason: model.ReasonNotConfigured}
	}
	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	version := s.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	limit := s.MaxPages
	if limit <= 0 {
		limit = maxPages
	}

	var res model.SyncResult
	var after *string
	for page := 0; page < limit; page++ {
		vars := map[string]any{"first": pageSize, "after": after}
		out, status, err := PostGraphQL[productsData](ctx, client, s.ShopDomain, version, s.AccessToken, productsQuery, vars)
		if err != nil {
			s.Log.Error("Shopify products query failed", zap.Int("status", status), zap.Error(err))
			res.Error = "shopify: " + err.Error()
			return res
		}
		if status < 200 || status >= 300 {
			res.Error = fmt.Sprintf("shopify: unexpected status %d", status)
			return res
		}
		if len(out.Errors) > 0 {
			res.Error = "shopify: " + out.Errors[0].Message
			return res
		}

		for _, n := range out.Data.Products.Nodes {
			p := model.Product{
				ShopifyID:   n.ID,
				Title:       n.Title,
				Handle:      n.Handle,
				BodyHTML:    n.DescriptionHTML,
				Vendor:      n.Vendor,
				ProductType: n.ProductType,
				Tags:        n.Tags,
				Status:      strings.ToLower(n.Status),
			}
			r, err := s.Products.UpsertProduct(ctx, p, now())
			if err != nil {
				s.Log.Error("Failed to save product", zap.String("shopifyId", n.ID), zap.Error(err))
				continue
			}
			res.Synced++
			if r == store.Created {
				res.Created++
			} else {
				res.Updated++
			}
		}

		pi := out.Data.Products.PageInfo
		if !pi.HasNextPage || pi.EndCursor == "" {
			break
		}
		if page == limit-1 {
			res.Truncated = true
			s.Log.Warn("Product sync stopped at page cap, catalog is incomplete",
				zap.Int("pages", limit),
				zap.Int("synced", res.Synced),
			)
			break
		}
		cursor := pi.EndCursor
		after = &cursor
	}

	res.Success = true
	s.Log.Info("Product sync finished",
		zap.Int("synced", res.Synced),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Bool("truncated", res.Truncated),
	)
	return res
}
