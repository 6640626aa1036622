package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lborres/storefront/core"
)

func (a *Adapter) CreateOrder(ctx context.Context, order *core.Order) error {
	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now

	doc, err := orderFromCore(order)
	if err != nil {
		return err
	}

	res, err := a.orders.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	order.ID = insertedID(res)
	return nil
}

func (a *Adapter) ListOrdersByUser(ctx context.Context, userID string) ([]*core.Order, error) {
	user, err := objectID(userID)
	if err != nil {
		return nil, err
	}

	cursor, err := a.orders.Find(ctx, bson.M{"user": user}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	orders := make([]*core.Order, 0, len(docs))
	for i := range docs {
		orders = append(orders, docs[i].toCore())
	}
	return orders, nil
}

// OrderTotals sums every order in one $group stage.
func (a *Adapter) OrderTotals(ctx context.Context) (core.OrderTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "numOrders", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalSales", Value: bson.D{{Key: "$sum", Value: "$totalPrice"}}},
		}}},
	}

	cursor, err := a.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return core.OrderTotals{}, err
	}

	var rows []struct {
		NumOrders  int     `bson:"numOrders"`
		TotalSales float64 `bson:"totalSales"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return core.OrderTotals{}, err
	}
	if len(rows) == 0 {
		return core.OrderTotals{}, nil
	}
	return core.OrderTotals{NumOrders: rows[0].NumOrders, TotalSales: rows[0].TotalSales}, nil
}

func (a *Adapter) DeleteOrder(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	res, err := a.orders.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return core.ErrOrderNotFound
	}
	return nil
}
