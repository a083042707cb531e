package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/storefront-labs/checkout-api/internal/model"
)

type mockOrderRepo struct {
	orders []*model.Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{}
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	order.ID = bson.NewObjectID()
	stored := *order
	m.orders = append(m.orders, &stored)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id bson.ObjectID) (*model.Order, error) {
	for _, o := range m.orders {
		if o.ID == id {
			copied := *o
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepo) List(_ context.Context) ([]model.Order, error) {
	orders := make([]model.Order, 0, len(m.orders))
	for _, o := range m.orders {
		orders = append(orders, *o)
	}
	return orders, nil
}

func (m *mockOrderRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.orders)), nil
}

func (m *mockOrderRepo) TotalItemsPurchased(_ context.Context) (int64, error) {
	return 0, nil
}

func (m *mockOrderRepo) TotalPurchaseAmount(_ context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range m.orders {
		total = total.Add(o.TotalPrice)
	}
	return total, nil
}

func (m *mockOrderRepo) TotalDiscountedPrice(_ context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range m.orders {
		total = total.Add(o.DiscountedPrice)
	}
	return total, nil
}

func (m *mockOrderRepo) DistinctDiscountCodes(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var codes []string
	for _, o := range m.orders {
		if o.DiscountCode != nil && !seen[*o.DiscountCode] {
			seen[*o.DiscountCode] = true
			codes = append(codes, *o.DiscountCode)
		}
	}
	return codes, nil
}

// checkoutFixture wires an order service over a cart holding one line of
// qty×price, plus nPrior already-completed orders.
func checkoutFixture(t *testing.T, nPrior int, qty int, price int64) (*OrderService, *mockCartRepo, *mockOrderRepo, *mockDiscountRepo, bson.ObjectID) {
	t.Helper()

	cartRepo := newMockCartRepo()
	orderRepo := newMockOrderRepo()
	discountRepo := newMockDiscountRepo()
	productRepo := newMockProductRepo()
	pid := seedProduct(productRepo, price)

	cartSvc := NewCartService(cartRepo, productRepo, mockTxn{})
	_, cart, err := cartSvc.AddItem(context.Background(), pid, qty, nil)
	require.NoError(t, err)

	for i := 0; i < nPrior; i++ {
		require.NoError(t, orderRepo.Create(context.Background(), &model.Order{
			CartID:          bson.NewObjectID(),
			TotalPrice:      decimal.NewFromInt(10),
			DiscountedPrice: decimal.NewFromInt(10),
			Status:          model.OrderStatusCompleted,
		}))
	}

	discountSvc := NewDiscountService(discountRepo, 5, 10)
	orderSvc := NewOrderService(orderRepo, cartRepo, discountSvc, mockTxn{}, nil)
	return orderSvc, cartRepo, orderRepo, discountRepo, cart.ID
}

func TestCheckout_CartNotFound(t *testing.T) {
	svc, _, _, _, _ := checkoutFixture(t, 0, 1, 10)
	_, err := svc.Checkout(context.Background(), bson.NewObjectID(), "")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestCheckout_NotEligible_CodeIgnored(t *testing.T) {
	// 0 prior orders, N=5: order #1 is not eligible.
	svc, cartRepo, orderRepo, discountRepo, cartID := checkoutFixture(t, 0, 2, 50)
	discountRepo.codes["DISCOUNT-ABC"] = &model.DiscountCode{Code: "DISCOUNT-ABC"}

	result, err := svc.Checkout(context.Background(), cartID, "DISCOUNT-ABC")
	require.NoError(t, err)

	assert.True(t, result.Discount.IsZero())
	assert.True(t, result.DiscountedPrice.Equal(decimal.NewFromInt(100)))
	// The code was not consumed.
	assert.False(t, discountRepo.codes["DISCOUNT-ABC"].Used)

	require.Len(t, orderRepo.orders, 1)
	assert.Nil(t, orderRepo.orders[0].DiscountCode)
	assert.Equal(t, model.CartStatusCompleted, cartRepo.carts[cartID].Status)
}

func TestCheckout_Eligible_DiscountMath(t *testing.T) {
	// 4 prior orders, N=5: this is the 5th order.
	svc, _, orderRepo, discountRepo, cartID := checkoutFixture(t, 4, 5, 50)
	discountRepo.codes["DISCOUNT-ABC"] = &model.DiscountCode{Code: "DISCOUNT-ABC"}

	result, err := svc.Checkout(context.Background(), cartID, "DISCOUNT-ABC")
	require.NoError(t, err)

	// T=250: discount exactly 25, discounted price exactly 225.
	assert.True(t, result.TotalPrice.Equal(decimal.NewFromInt(250)))
	assert.True(t, result.Discount.Equal(decimal.NewFromInt(25)))
	assert.True(t, result.DiscountedPrice.Equal(decimal.NewFromInt(225)))
	assert.True(t, discountRepo.codes["DISCOUNT-ABC"].Used)

	require.Len(t, orderRepo.orders, 5)
	order := orderRepo.orders[4]
	require.NotNil(t, order.DiscountCode)
	assert.Equal(t, "DISCOUNT-ABC", *order.DiscountCode)
	assert.Equal(t, model.OrderStatusCompleted, order.Status)
}

func TestCheckout_Eligible_BadCodeFailsOpen(t *testing.T) {
	// Eligible checkout with an unknown code: no discount, order still
	// created with no code attached.
	svc, _, orderRepo, _, cartID := checkoutFixture(t, 4, 2, 50)

	result, err := svc.Checkout(context.Background(), cartID, "BADCODE")
	require.NoError(t, err)

	assert.True(t, result.Discount.IsZero())
	assert.True(t, result.DiscountedPrice.Equal(result.TotalPrice))
	require.Len(t, orderRepo.orders, 5)
	assert.Nil(t, orderRepo.orders[4].DiscountCode)
}

func TestCheckout_ItemsDelivered(t *testing.T) {
	svc, cartRepo, _, _, cartID := checkoutFixture(t, 0, 1, 10)

	_, err := svc.Checkout(context.Background(), cartID, "")
	require.NoError(t, err)

	for _, item := range cartRepo.items {
		assert.Equal(t, model.ItemStatusDelivered, item.Status)
	}
}

func TestCheckout_SecondCallFailsWithoutNewOrder(t *testing.T) {
	svc, _, orderRepo, _, cartID := checkoutFixture(t, 0, 1, 10)
	ctx := context.Background()

	_, err := svc.Checkout(ctx, cartID, "")
	require.NoError(t, err)
	require.Len(t, orderRepo.orders, 1)

	_, err = svc.Checkout(ctx, cartID, "")
	assert.ErrorIs(t, err, ErrCartNotActive)
	assert.Len(t, orderRepo.orders, 1)
}

func TestCheckout_EligibilityLaw(t *testing.T) {
	// For every prior order count up to 11, an order must be discounted
	// iff its sequence number is a multiple of 5.
	for prior := 0; prior <= 11; prior++ {
		svc, _, orderRepo, discountRepo, cartID := checkoutFixture(t, prior, 1, 100)
		discountRepo.codes["DISCOUNT-SEQ"] = &model.DiscountCode{Code: "DISCOUNT-SEQ"}

		result, err := svc.Checkout(context.Background(), cartID, "DISCOUNT-SEQ")
		require.NoError(t, err, "prior=%d", prior)

		eligible := (prior+1)%5 == 0
		if eligible {
			assert.True(t, result.Discount.Equal(decimal.NewFromInt(10)), "prior=%d", prior)
			assert.NotNil(t, orderRepo.orders[prior].DiscountCode, "prior=%d", prior)
		} else {
			assert.True(t, result.Discount.IsZero(), "prior=%d", prior)
			assert.Nil(t, orderRepo.orders[prior].DiscountCode, "prior=%d", prior)
		}
	}
}

func TestOrderService_GetByID_NotFound(t *testing.T) {
	svc := NewOrderService(newMockOrderRepo(), newMockCartRepo(), NewDiscountService(newMockDiscountRepo(), 5, 10), mockTxn{}, nil)
	_, err := svc.GetByID(context.Background(), bson.NewObjectID())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_List(t *testing.T) {
	orderRepo := newMockOrderRepo()
	require.NoError(t, orderRepo.Create(context.Background(), &model.Order{
		CartID:     bson.NewObjectID(),
		TotalPrice: decimal.NewFromInt(42),
		Status:     model.OrderStatusCompleted,
	}))

	svc := NewOrderService(orderRepo, newMockCartRepo(), NewDiscountService(newMockDiscountRepo(), 5, 10), mockTxn{}, nil)
	orders, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
