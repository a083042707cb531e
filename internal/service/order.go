package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/storefront-labs/checkout-api/internal/model"
	"github.com/storefront-labs/checkout-api/internal/repository"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrCartNotActive means checkout was attempted on a completed or
	// abandoned cart. The caller must fetch fresh state, not retry.
	ErrCartNotActive = errors.New("cart is not active")
)

// CheckoutResult is what a successful checkout reports back.
type CheckoutResult struct {
	OrderID         bson.ObjectID
	TotalPrice      decimal.Decimal
	Discount        decimal.Decimal
	DiscountedPrice decimal.Decimal
	Message         string
}

type OrderService struct {
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	discounts *DiscountService
	txn       repository.TxnRunner
	amqpCh    *amqp.Channel
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	discounts *DiscountService,
	txn repository.TxnRunner,
	amqpCh *amqp.Channel,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		discounts: discounts,
		txn:       txn,
		amqpCh:    amqpCh,
	}
}

// Checkout finalizes the cart: it verifies the cart is active, decides
// discount eligibility from the prior order count, marks every line
// Delivered, writes the order snapshot, and completes the cart, all in
// one transaction so a failed step leaves no partial state behind.
func (s *OrderService) Checkout(ctx context.Context, cartID bson.ObjectID, discountCode string) (*CheckoutResult, error) {
	var order *model.Order
	var result *CheckoutResult

	err := s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.cartRepo.GetByID(ctx, cartID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrCartNotFound
		}
		if cart.Status != model.CartStatusActive {
			return ErrCartNotActive
		}

		priorOrders, err := s.orderRepo.Count(ctx)
		if err != nil {
			return err
		}

		total := cart.TotalPrice
		discount := decimal.Zero
		var appliedCode *string

		// Only the Nth order in sequence may redeem a code; otherwise
		// any supplied code is ignored and stays unconsumed.
		if s.discounts.IsEligible(priorOrders) {
			redemption, err := s.discounts.Redeem(ctx, discountCode)
			if err != nil {
				return err
			}
			if redemption.Applied {
				discount = total.Mul(redemption.Percent).Div(decimal.NewFromInt(100)).Round(2)
				code := redemption.Code
				appliedCode = &code
			}
		}

		if err := s.cartRepo.SetItemStatuses(ctx, cart.ItemIDs, model.ItemStatusDelivered); err != nil {
			return err
		}

		order = &model.Order{
			CartID:          cart.ID,
			TotalPrice:      total,
			DiscountCode:    appliedCode,
			Discount:        discount,
			DiscountedPrice: total.Sub(discount),
			Status:          model.OrderStatusCompleted,
		}
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return err
		}

		cart.Status = model.CartStatusCompleted
		if err := s.cartRepo.Update(ctx, cart); err != nil {
			return err
		}

		message := "order placed successfully"
		if discount.IsPositive() {
			message = "order placed successfully, discount applied"
		}
		result = &CheckoutResult{
			OrderID:         order.ID,
			TotalPrice:      order.TotalPrice,
			Discount:        order.Discount,
			DiscountedPrice: order.DiscountedPrice,
			Message:         message,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	s.publishCompleted(ctx, order)
	return result, nil
}

// publishCompleted emits the order-completed event after the transaction
// commits. Best effort: the order is already durable.
func (s *OrderService) publishCompleted(ctx context.Context, order *model.Order) {
	if s.amqpCh == nil {
		return
	}
	msg, err := json.Marshal(model.OrderMessage{OrderID: order.ID, CartID: order.CartID})
	if err != nil {
		return
	}
	_ = s.amqpCh.PublishWithContext(ctx, "", "orders", false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         msg,
		DeliveryMode: amqp.Persistent,
	})
}

func (s *OrderService) GetByID(ctx context.Context, orderID bson.ObjectID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context) ([]model.Order, error) {
	return s.orderRepo.List(ctx)
}
