package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/storefront-labs/checkout-api/internal/model"
)

// ErrDuplicateCode is returned when a minted code collides with the
// unique index; the caller retries with a fresh suffix.
var ErrDuplicateCode = errors.New("discount code already exists")

type DiscountRepository interface {
	Create(ctx context.Context, code *model.DiscountCode) error
	FindByCode(ctx context.Context, code string) (*model.DiscountCode, error)
	// ClaimUnused atomically flips an unused code to used. Returns nil
	// (no error) when the code is absent or already used.
	ClaimUnused(ctx context.Context, code string) (*model.DiscountCode, error)
}

type mongoDiscountRepo struct{ coll *mongo.Collection }

func NewDiscountRepository(store *Store) DiscountRepository {
	return &mongoDiscountRepo{coll: store.db.Collection(collDiscountCodes)}
}

func (r *mongoDiscountRepo) Create(ctx context.Context, code *model.DiscountCode) error {
	code.ID = bson.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, code); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("insert discount code: %w", err)
	}
	return nil
}

func (r *mongoDiscountRepo) FindByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	dc := &model.DiscountCode{}
	err := r.coll.FindOne(ctx, bson.D{{Key: "code", Value: code}}).Decode(dc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find discount code: %w", err)
	}
	return dc, nil
}

func (r *mongoDiscountRepo) ClaimUnused(ctx context.Context, code string) (*model.DiscountCode, error) {
	dc := &model.DiscountCode{}
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{
			{Key: "code", Value: code},
			{Key: "used", Value: false},
		},
		bson.D{{Key: "$set", Value: bson.D{{Key: "used", Value: true}}}},
	).Decode(dc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim discount code: %w", err)
	}
	dc.Used = true
	return dc, nil
}
