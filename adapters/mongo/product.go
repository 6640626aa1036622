package mongo

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lborres/storefront/core"
)

func (a *Adapter) CreateProduct(ctx context.Context, product *core.Product) error {
	now := time.Now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now
	if product.Reviews == nil {
		product.Reviews = []core.Review{}
	}

	doc, err := productFromCore(product)
	if err != nil {
		return err
	}

	res, err := a.products.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	product.ID = insertedID(res)
	return nil
}

func (a *Adapter) GetProductByID(ctx context.Context, id string) (*core.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc productDoc
	if err := a.products.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFound(err, core.ErrProductNotFound)
	}
	return doc.toCore(), nil
}

func (a *Adapter) findProducts(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]*core.Product, error) {
	cursor, err := a.products.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	products := make([]*core.Product, 0, len(docs))
	for i := range docs {
		products = append(products, docs[i].toCore())
	}
	return products, nil
}

func (a *Adapter) ListProducts(ctx context.Context) ([]*core.Product, error) {
	return a.findProducts(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// ListProductsBySeller returns newest first. ObjectIDs sort by creation time.
func (a *Adapter) ListProductsBySeller(ctx context.Context, sellerID string) ([]*core.Product, error) {
	seller, err := objectID(sellerID)
	if err != nil {
		return nil, err
	}
	return a.findProducts(ctx, bson.M{"seller": seller}, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
}

// productFilter matches the category as a case-insensitive substring and the
// price within the given bounds.
func productFilter(f core.ProductFilter) bson.M {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Category), Options: "i"}
	}

	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	return filter
}

func (a *Adapter) FindProducts(ctx context.Context, f core.ProductFilter, skip, limit int) ([]*core.Product, int, error) {
	filter := productFilter(f)

	count, err := a.products.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))
	products, err := a.findProducts(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return products, int(count), nil
}

func (a *Adapter) Categories(ctx context.Context) ([]string, error) {
	values, err := a.products.Distinct(ctx, "category", bson.D{})
	if err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			categories = append(categories, s)
		}
	}
	return categories, nil
}

func (a *Adapter) CountByCategory(ctx context.Context) ([]core.CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := a.products.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Category string `bson:"_id"`
		Count    int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make([]core.CategoryCount, 0, len(rows))
	for _, r := range rows {
		counts = append(counts, core.CategoryCount{Category: r.Category, Count: r.Count})
	}
	return counts, nil
}

func (a *Adapter) UpdateProduct(ctx context.Context, product *core.Product) error {
	oid, err := objectID(product.ID)
	if err != nil {
		return err
	}

	product.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"name":         product.Name,
		"description":  product.Description,
		"category":     product.Category,
		"price":        product.Price,
		"countInStock": product.CountInStock,
		"sellerName":   product.SellerName,
		"updatedAt":    product.UpdatedAt,
	}}

	res, err := a.products.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return core.ErrProductNotFound
	}
	return nil
}

func (a *Adapter) DeleteProduct(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := a.products.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return core.ErrProductNotFound
	}
	return nil
}

// AddReview pushes r unless the product already holds a review by the same
// name. The check and the push are one atomic update.
func (a *Adapter) AddReview(ctx context.Context, productID string, r core.Review) error {
	oid, err := objectID(productID)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": oid, "reviews.name": bson.M{"$ne": r.Name}}
	update := bson.M{
		"$push": bson.M{"reviews": reviewDoc(r)},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}

	res, err := a.products.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := a.products.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrProductNotFound
	}
	return core.ErrReviewExists
}

func (a *Adapter) ClearReviews(ctx context.Context, productID string) error {
	oid, err := objectID(productID)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{"reviews": bson.A{}, "updatedAt": time.Now().UTC()}}
	res, err := a.products.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return core.ErrProductNotFound
	}
	return nil
}
