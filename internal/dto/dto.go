package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// --- Product ---

type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

type ProductResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// --- Cart ---

// AddCartItemRequest omits purchase_price to snapshot the product's
// current price at add time.
type AddCartItemRequest struct {
	ProductID     string           `json:"product_id" binding:"required"`
	Quantity      int              `json:"quantity" binding:"required,min=1"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type CartResponse struct {
	ID         string             `json:"id"`
	Status     string             `json:"status"`
	TotalPrice decimal.Decimal    `json:"total_price"`
	Items      []CartItemResponse `json:"items"`
}

type CartItemResponse struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name,omitempty"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Status        string          `json:"status"`
}

// --- Checkout ---

type CheckoutRequest struct {
	CartID       string `json:"cart_id" binding:"required"`
	DiscountCode string `json:"discount_code"`
}

type CheckoutResponse struct {
	OrderID         string          `json:"order_id"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Discount        decimal.Decimal `json:"discount"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	Message         string          `json:"message"`
}

// --- Order ---

type OrderResponse struct {
	ID              string          `json:"id"`
	CartID          string          `json:"cart_id"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	DiscountCode    *string         `json:"discount_code"`
	Discount        decimal.Decimal `json:"discount"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

// --- Admin ---

type AdminStatsResponse struct {
	TotalItemsPurchased  int64           `json:"total_items_purchased"`
	TotalPurchaseAmount  decimal.Decimal `json:"total_purchase_amount"`
	TotalDiscountAmount  decimal.Decimal `json:"total_discount_amount"`
	TotalDiscountedPrice decimal.Decimal `json:"total_discounted_price"`
	DiscountCodes        []string        `json:"discount_codes"`
}

type DiscountCodeResponse struct {
	Code string `json:"code"`
}
