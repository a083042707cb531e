package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/storefront-labs/checkout-api/internal/model"
)

type CartRepository interface {
	Create(ctx context.Context, cart *model.Cart) error
	GetByID(ctx context.Context, id bson.ObjectID) (*model.Cart, error)
	GetActive(ctx context.Context) (*model.Cart, error)
	Update(ctx context.Context, cart *model.Cart) error

	GetItems(ctx context.Context, cartID bson.ObjectID) ([]model.CartItem, error)
	GetItem(ctx context.Context, itemID bson.ObjectID) (*model.CartItem, error)
	FindItemByProduct(ctx context.Context, cartID, productID bson.ObjectID, status string) (*model.CartItem, error)
	CreateItem(ctx context.Context, item *model.CartItem) error
	UpdateItem(ctx context.Context, item *model.CartItem) error
	DeleteItem(ctx context.Context, itemID bson.ObjectID) error
	SetItemStatuses(ctx context.Context, itemIDs []bson.ObjectID, status string) error
}

type mongoCartRepo struct {
	carts *mongo.Collection
	items *mongo.Collection
}

func NewCartRepository(store *Store) CartRepository {
	return &mongoCartRepo{
		carts: store.db.Collection(collCarts),
		items: store.db.Collection(collCartItems),
	}
}

func (r *mongoCartRepo) Create(ctx context.Context, cart *model.Cart) error {
	now := time.Now().UTC()
	cart.ID = bson.NewObjectID()
	cart.CreatedAt = now
	cart.UpdatedAt = now
	cart.Version = 1
	if cart.ItemIDs == nil {
		cart.ItemIDs = []bson.ObjectID{}
	}
	if _, err := r.carts.InsertOne(ctx, cart); err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (r *mongoCartRepo) GetByID(ctx context.Context, id bson.ObjectID) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.carts.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// GetActive returns the single cart whose status is not completed, or nil.
func (r *mongoCartRepo) GetActive(ctx context.Context) (*model.Cart, error) {
	cart := &model.Cart{}
	filter := bson.D{{Key: "status", Value: bson.D{{Key: "$ne", Value: model.CartStatusCompleted}}}}
	err := r.carts.FindOne(ctx, filter).Decode(cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active cart: %w", err)
	}
	return cart, nil
}

// Update persists the cart guarded by its version stamp and increments the
// stamp. Returns ErrCartConflict when the stored version has moved on.
func (r *mongoCartRepo) Update(ctx context.Context, cart *model.Cart) error {
	res, err := r.carts.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: cart.ID},
			{Key: "version", Value: cart.Version},
		},
		bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "items", Value: cart.ItemIDs},
				{Key: "total_price", Value: cart.TotalPrice},
				{Key: "status", Value: cart.Status},
				{Key: "updated_at", Value: time.Now().UTC()},
			}},
			{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
		},
	)
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrCartConflict
	}
	cart.Version++
	return nil
}

func (r *mongoCartRepo) GetItems(ctx context.Context, cartID bson.ObjectID) ([]model.CartItem, error) {
	cursor, err := r.items.Find(ctx, bson.D{{Key: "cart", Value: cartID}})
	if err != nil {
		return nil, fmt.Errorf("find cart items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []model.CartItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	return items, nil
}

func (r *mongoCartRepo) GetItem(ctx context.Context, itemID bson.ObjectID) (*model.CartItem, error) {
	item := &model.CartItem{}
	err := r.items.FindOne(ctx, bson.D{{Key: "_id", Value: itemID}}).Decode(item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return item, nil
}

func (r *mongoCartRepo) FindItemByProduct(ctx context.Context, cartID, productID bson.ObjectID, status string) (*model.CartItem, error) {
	item := &model.CartItem{}
	err := r.items.FindOne(ctx, bson.D{
		{Key: "cart", Value: cartID},
		{Key: "product", Value: productID},
		{Key: "status", Value: status},
	}).Decode(item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find cart item by product: %w", err)
	}
	return item, nil
}

func (r *mongoCartRepo) CreateItem(ctx context.Context, item *model.CartItem) error {
	now := time.Now().UTC()
	item.ID = bson.NewObjectID()
	item.CreatedAt = now
	item.UpdatedAt = now
	if _, err := r.items.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

func (r *mongoCartRepo) UpdateItem(ctx context.Context, item *model.CartItem) error {
	item.UpdatedAt = time.Now().UTC()
	res, err := r.items.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: item.ID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "quantity", Value: item.Quantity},
			{Key: "purchase_price", Value: item.PurchasePrice},
			{Key: "total_price", Value: item.TotalPrice},
			{Key: "status", Value: item.Status},
			{Key: "updated_at", Value: item.UpdatedAt},
		}}},
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoCartRepo) DeleteItem(ctx context.Context, itemID bson.ObjectID) error {
	res, err := r.items.DeleteOne(ctx, bson.D{{Key: "_id", Value: itemID}})
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoCartRepo) SetItemStatuses(ctx context.Context, itemIDs []bson.ObjectID, status string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	_, err := r.items.UpdateMany(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: itemIDs}}}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: status},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("update cart item statuses: %w", err)
	}
	return nil
}
