package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"review-ai/internal/review_ai/model"
)

const (
	CollReviews          = "reviews"
	CollReviewSummaries  = "review_summaries"
	CollProductSummaries = "product_summaries"
	CollProducts         = "products"
)

// MongoOptions selects the deployment. URI wins over Host when both are set.
type MongoOptions struct {
	URI        string
	Host       string
	Database   string
	Username   string
	Password   string
	AuthSource string
}

type MongoBackend struct {
	Client           *mongo.Client
	DB               *mongo.Database
	Reviews          *mongo.Collection
	ReviewSummaries  *mongo.Collection
	ProductSummaries *mongo.Collection
	Products         *mongo.Collection
}

// NewMongoBackend connects, pings and makes sure the indexes exist.
func NewMongoBackend(ctx context.Context, o MongoOptions) (*MongoBackend, error) {
	clientOpts := options.Client()
	if o.URI != "" {
		clientOpts.ApplyURI(o.URI)
	} else {
		clientOpts.ApplyURI("mongodb://" + o.Host)
	}
	if o.Username != "" {
		clientOpts.SetAuth(options.Credential{
			Username:   o.Username,
			Password:   o.Password,
			AuthSource: o.AuthSource,
		})
	}

	cli, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err = cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	dbname := o.Database
	if dbname == "" {
		dbname = databaseFromURI(o.URI)
	}
	if dbname == "" {
		_ = cli.Disconnect(ctx)
		return nil, errors.New("mongo: database name is required")
	}

	db := cli.Database(dbname)
	b := &MongoBackend{
		Client:           cli,
		DB:               db,
		Reviews:          db.Collection(CollReviews),
		ReviewSummaries:  db.Collection(CollReviewSummaries),
		ProductSummaries: db.Collection(CollProductSummaries),
		Products:         db.Collection(CollProducts),
	}
	if err = b.ensureIndexes(ctx); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	return b, nil
}

func databaseFromURI(uri string) string {
	if uri == "" {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

func (b *MongoBackend) ensureIndexes(ctx context.Context) error {
	// reviews: queried by product and date; (reviewId, source) is unique
	if _, err := b.Reviews.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "productId", Value: 1}}},
		{Keys: bson.D{{Key: "reviewDate", Value: -1}}},
		{
			Keys:    bson.D{{Key: "reviewId", Value: 1}, {Key: "source", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}); err != nil {
		return fmt.Errorf("reviews indexes: %w", err)
	}
	for _, c := range []*mongo.Collection{b.ReviewSummaries, b.ProductSummaries} {
		if _, err := c.Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "productId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
		}); err != nil {
			return fmt.Errorf("%s indexes: %w", c.Name(), err)
		}
	}
	if _, err := b.Products.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "shopifyId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	}); err != nil {
		return fmt.Errorf("products indexes: %w", err)
	}
	return nil
}

func (b *MongoBackend) Ping(ctx context.Context) error {
	return b.Client.Ping(ctx, nil)
}

func (b *MongoBackend) Close(ctx context.Context) error {
	return b.Client.Disconnect(ctx)
}

// upsert runs an upsert and retries once on a duplicate key, which is what a
// concurrent insert of the same key looks like.
func upsert(ctx context.Context, c *mongo.Collection, filter, update bson.M) (UpsertResult, error) {
	opts := options.Update().SetUpsert(true)
	res, err := c.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		res, err = c.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return 0, err
	}
	if res.UpsertedCount > 0 {
		return Created, nil
	}
	return Updated, nil
}

// -------- reviews --------

func (b *MongoBackend) UpsertReview(ctx context.Context, r model.Review, now time.Time) (UpsertResult, error) {
	if r.ID == "" {
		return 0, fmt.Errorf("%w: review id is required", ErrInvalidArgument)
	}
	update := bson.M{
		"$set": bson.M{
			"reviewId":         r.ReviewID,
			"productId":        r.ProductID,
			"productName":      r.ProductName,
			"reviewerName":     r.ReviewerName,
			"rating":           r.Rating,
			"reviewText":       r.ReviewText,
			"reviewDate":       r.ReviewDate,
			"verifiedPurchase": r.VerifiedPurchase,
			"source":           r.Source,
			"updatedAt":        now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	return upsert(ctx, b.Reviews, bson.M{"_id": r.ID}, update)
}

func (b *MongoBackend) FindReviews(ctx context.Context, skip, limit int64) ([]model.Review, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "reviewDate", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return findAll[model.Review](ctx, b.Reviews, bson.M{}, opts)
}

func (b *MongoBackend) CountReviews(ctx context.Context) (int64, error) {
	return b.Reviews.CountDocuments(ctx, bson.M{})
}

func (b *MongoBackend) DeleteReview(ctx context.Context, id string) error {
	res, err := b.Reviews.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (b *MongoBackend) FindReviewsByProduct(ctx context.Context, productID string, limit int64) ([]model.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "reviewDate", Value: -1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return findAll[model.Review](ctx, b.Reviews, bson.M{"productId": productID}, opts)
}

func (b *MongoBackend) DistinctReviewProducts(ctx context.Context) ([]string, error) {
	vals, err := b.Reviews.Distinct(ctx, "productId", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

// -------- summaries --------

func (b *MongoBackend) UpsertReviewSummary(ctx context.Context, s model.ReviewSummary, now time.Time) (UpsertResult, error) {
	update := bson.M{
		"$set": bson.M{
			"productName":   s.ProductName,
			"reviewCount":   s.ReviewCount,
			"averageRating": s.AverageRating,
			"summary":       s.Summary,
			"suggestions":   s.Suggestions,
			"updatedAt":     now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	return upsert(ctx, b.ReviewSummaries, bson.M{"productId": s.ProductID}, update)
}

func (b *MongoBackend) FindReviewSummaries(ctx context.Context, skip, limit int64) ([]model.ReviewSummary, error) {
	return findAll[model.ReviewSummary](ctx, b.ReviewSummaries, bson.M{}, newestFirst(skip, limit))
}

func (b *MongoBackend) CountReviewSummaries(ctx context.Context) (int64, error) {
	return b.ReviewSummaries.CountDocuments(ctx, bson.M{})
}

func (b *MongoBackend) FindReviewSummary(ctx context.Context, productID string) (*model.ReviewSummary, error) {
	return findOne[model.ReviewSummary](ctx, b.ReviewSummaries, bson.M{"productId": productID}, nil)
}

func (b *MongoBackend) FindReviewSummaryByName(ctx context.Context, productName string) (*model.ReviewSummary, error) {
	return findOne[model.ReviewSummary](ctx, b.ReviewSummaries, bson.M{"productName": productName}, caseInsensitive())
}

func (b *MongoBackend) UpsertProductSummary(ctx context.Context, s model.ProductSummary, now time.Time) (UpsertResult, error) {
	update := bson.M{
		"$set": bson.M{
			"productName": s.ProductName,
			"summary":     s.Summary,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	return upsert(ctx, b.ProductSummaries, bson.M{"productId": s.ProductID}, update)
}

func (b *MongoBackend) FindProductSummaries(ctx context.Context, skip, limit int64) ([]model.ProductSummary, error) {
	return findAll[model.ProductSummary](ctx, b.ProductSummaries, bson.M{}, newestFirst(skip, limit))
}

func (b *MongoBackend) CountProductSummaries(ctx context.Context) (int64, error) {
	return b.ProductSummaries.CountDocuments(ctx, bson.M{})
}

func (b *MongoBackend) FindProductSummaryByName(ctx context.Context, productName string) (*model.ProductSummary, error) {
	return findOne[model.ProductSummary](ctx, b.ProductSummaries, bson.M{"productName": productName}, caseInsensitive())
}

// -------- products --------

func (b *MongoBackend) FindProducts(ctx context.Context, limit int64) ([]model.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return findAll[model.Product](ctx, b.Products, bson.M{}, opts)
}

// FindProduct accepts either the hex form of an ObjectID or a plain string id.
func (b *MongoBackend) FindProduct(ctx context.Context, id string) (*model.Product, error) {
	ids := bson.A{id}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		ids = append(ids, oid)
	}
	return findOne[model.Product](ctx, b.Products, bson.M{"_id": bson.M{"$in": ids}}, nil)
}

func (b *MongoBackend) UpsertProduct(ctx context.Context, p model.Product, now time.Time) (UpsertResult, error) {
	if p.ShopifyID == "" {
		return 0, fmt.Errorf("%w: shopify id is required", ErrInvalidArgument)
	}
	update := bson.M{
		"$set": bson.M{
			"title":       p.Title,
			"handle":      p.Handle,
			"bodyHtml":    p.BodyHTML,
			"vendor":      p.Vendor,
			"productType": p.ProductType,
			"tags":        p.Tags,
			"status":      p.Status,
			"syncDate":    now,
		},
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
	}
	return upsert(ctx, b.Products, bson.M{"shopifyId": p.ShopifyID}, update)
}

// -------- helpers --------

func newestFirst(skip, limit int64) *options.FindOptions {
	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "productId", Value: 1}}).
		SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return opts
}

func caseInsensitive() *options.FindOneOptions {
	return options.FindOne().SetCollation(&options.Collation{Locale: "en", Strength: 2})
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	if err = cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func findOne[T any](ctx context.Context, c *mongo.Collection, filter bson.M, opts *options.FindOneOptions) (*T, error) {
	var out T
	var err error
	if opts != nil {
		err = c.FindOne(ctx, filter, opts).Decode(&out)
	} else {
		err = c.FindOne(ctx, filter).Decode(&out)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
