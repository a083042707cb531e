package model

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Cart statuses. A cart is created active, becomes completed at checkout,
// and may be abandoned by external tooling.
const (
	CartStatusActive    = "active"
	CartStatusCompleted = "completed"
	CartStatusAbandoned = "abandoned"
)

// Cart item statuses. Checkout moves items straight to Delivered; the
// intermediate states exist for manual fulfillment flows.
const (
	ItemStatusNotProcessed = "Not_processed"
	ItemStatusProcessing   = "Processing"
	ItemStatusShipped      = "Shipped"
	ItemStatusDelivered    = "Delivered"
	ItemStatusCancelled    = "Cancelled"
)

// OrderStatusCompleted is the only status checkout produces; orders are
// append-only snapshots.
const OrderStatusCompleted = "Completed"

type Product struct {
	ID          bson.ObjectID   `bson:"_id,omitempty"`
	Name        string          `bson:"name"`
	Description string          `bson:"description,omitempty"`
	Price       decimal.Decimal `bson:"price"`
	CreatedAt   time.Time       `bson:"created_at"`
	UpdatedAt   time.Time       `bson:"updated_at"`
}

// Cart is the mutable aggregate of line items awaiting checkout. ItemIDs
// preserves insertion order; Items is hydrated by the service layer and
// never persisted on the cart document itself.
type Cart struct {
	ID         bson.ObjectID   `bson:"_id,omitempty"`
	ItemIDs    []bson.ObjectID `bson:"items"`
	TotalPrice decimal.Decimal `bson:"total_price"`
	Status     string          `bson:"status"`
	Version    int64           `bson:"version"`
	CreatedAt  time.Time       `bson:"created_at"`
	UpdatedAt  time.Time       `bson:"updated_at"`

	Items []CartItem `bson:"-"`
}

// CartItem is one product line within a cart. PurchasePrice is the unit
// price snapshot taken when the line was created.
type CartItem struct {
	ID            bson.ObjectID   `bson:"_id,omitempty"`
	CartID        bson.ObjectID   `bson:"cart"`
	ProductID     bson.ObjectID   `bson:"product"`
	Quantity      int             `bson:"quantity"`
	PurchasePrice decimal.Decimal `bson:"purchase_price"`
	TotalPrice    decimal.Decimal `bson:"total_price"`
	Status        string          `bson:"status"`
	CreatedAt     time.Time       `bson:"created_at"`
	UpdatedAt     time.Time       `bson:"updated_at"`

	Product *Product `bson:"-"`
}

// RecalculateTotal sets TotalPrice to PurchasePrice × Quantity.
func (ci *CartItem) RecalculateTotal() {
	ci.TotalPrice = ci.PurchasePrice.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// SumItemTotals re-sums line totals from scratch. Cart totals are always
// recomputed this way rather than by incremental deltas.
func SumItemTotals(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}
	return total
}

type DiscountCode struct {
	ID   bson.ObjectID `bson:"_id,omitempty"`
	Code string        `bson:"code"`
	Used bool          `bson:"used"`
}

// Order is the immutable snapshot of a completed checkout. TotalPrice is
// the pre-discount cart total; DiscountCode is nil unless a discount was
// actually applied.
type Order struct {
	ID              bson.ObjectID   `bson:"_id,omitempty"`
	CartID          bson.ObjectID   `bson:"cart"`
	TotalPrice      decimal.Decimal `bson:"total_price"`
	DiscountCode    *string         `bson:"discount_code"`
	Discount        decimal.Decimal `bson:"discount"`
	DiscountedPrice decimal.Decimal `bson:"discounted_price"`
	Status          string          `bson:"status"`
	CreatedAt       time.Time       `bson:"created_at"`
	UpdatedAt       time.Time       `bson:"updated_at"`
}

// OrderMessage is published to RabbitMQ after a checkout commits.
type OrderMessage struct {
	OrderID bson.ObjectID `json:"order_id"`
	CartID  bson.ObjectID `json:"cart_id"`
}
