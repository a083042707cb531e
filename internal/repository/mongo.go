package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names.
const (
	collProducts      = "products"
	collCarts         = "carts"
	collCartItems     = "cart_items"
	collDiscountCodes = "discount_codes"
	collOrders        = "orders"
)

// ErrCartConflict is returned when an optimistic version check fails on a
// cart update. The caller should re-read and resubmit.
var ErrCartConflict = errors.New("cart was modified concurrently")

// TxnRunner executes fn inside a single multi-document transaction. All
// repository calls made with the callback context join that transaction.
type TxnRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store holds the mongo client and database handle shared by the
// per-collection repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials mongo with the decimal-aware registry, pings the server,
// and returns a Store.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetRegistry(Registry()).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// WithTransaction runs fn in a mongo session transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, fn(ctx)
	})
	return err
}

// EnsureIndexes creates the indexes the services rely on. Safe to call on
// every startup; mongo treats existing identical indexes as a no-op.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collDiscountCodes: {
			{
				Keys:    bson.D{{Key: "code", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("idx_discount_code_unique"),
			},
		},
		collCarts: {
			{
				Keys:    bson.D{{Key: "status", Value: 1}},
				Options: options.Index().SetName("idx_cart_status"),
			},
		},
		collCartItems: {
			{
				Keys: bson.D{
					{Key: "cart", Value: 1},
					{Key: "product", Value: 1},
				},
				Options: options.Index().SetName("idx_cart_item_cart_product"),
			},
		},
		collOrders: {
			{
				Keys:    bson.D{{Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_order_created_at"),
			},
		},
	}

	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", coll, err)
		}
	}
	return nil
}
