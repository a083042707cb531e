package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/storefront-labs/checkout-api/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id bson.ObjectID) (*model.Order, error)
	List(ctx context.Context) ([]model.Order, error)
	Count(ctx context.Context) (int64, error)

	TotalItemsPurchased(ctx context.Context) (int64, error)
	TotalPurchaseAmount(ctx context.Context) (decimal.Decimal, error)
	TotalDiscountedPrice(ctx context.Context) (decimal.Decimal, error)
	DistinctDiscountCodes(ctx context.Context) ([]string, error)
}

type mongoOrderRepo struct{ coll *mongo.Collection }

func NewOrderRepository(store *Store) OrderRepository {
	return &mongoOrderRepo{coll: store.db.Collection(collOrders)}
}

func (r *mongoOrderRepo) Create(ctx context.Context, order *model.Order) error {
	now := time.Now().UTC()
	order.ID = bson.NewObjectID()
	order.CreatedAt = now
	order.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *mongoOrderRepo) GetByID(ctx context.Context, id bson.ObjectID) (*model.Order, error) {
	order := &model.Order{}
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (r *mongoOrderRepo) List(ctx context.Context) ([]model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []model.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (r *mongoOrderRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// TotalItemsPurchased sums cart item quantities across all orders by
// walking order → cart → cart item references.
func (r *mongoOrderRepo) TotalItemsPurchased(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: collCarts},
			{Key: "localField", Value: "cart"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "cart_doc"},
		}}},
		bson.D{{Key: "$unwind", Value: "$cart_doc"}},
		bson.D{{Key: "$unwind", Value: "$cart_doc.items"}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: collCartItems},
			{Key: "localField", Value: "cart_doc.items"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "item_doc"},
		}}},
		bson.D{{Key: "$unwind", Value: "$item_doc"}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$item_doc.quantity"}}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("aggregate items purchased: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("decode items purchased: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func (r *mongoOrderRepo) TotalPurchaseAmount(ctx context.Context) (decimal.Decimal, error) {
	return r.sumField(ctx, "$total_price")
}

func (r *mongoOrderRepo) TotalDiscountedPrice(ctx context.Context) (decimal.Decimal, error) {
	return r.sumField(ctx, "$discounted_price")
}

func (r *mongoOrderRepo) sumField(ctx context.Context, field string) (decimal.Decimal, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: field}}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, fmt.Errorf("aggregate %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total decimal.Decimal `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return decimal.Zero, fmt.Errorf("decode %s: %w", field, err)
	}
	if len(results) == 0 {
		return decimal.Zero, nil
	}
	return results[0].Total, nil
}

func (r *mongoOrderRepo) DistinctDiscountCodes(ctx context.Context) ([]string, error) {
	filter := bson.D{{Key: "discount_code", Value: bson.D{{Key: "$ne", Value: nil}}}}
	var codes []string
	if err := r.coll.Distinct(ctx, "discount_code", filter).Decode(&codes); err != nil {
		return nil, fmt.Errorf("distinct discount codes: %w", err)
	}
	return codes, nil
}
