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

// mockTxn runs the callback directly; the mocks below mutate in-memory
// maps, so there is nothing to roll back.
type mockTxn struct{}

func (mockTxn) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockCartRepo struct {
	carts map[bson.ObjectID]*model.Cart
	items map[bson.ObjectID]*model.CartItem
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{
		carts: make(map[bson.ObjectID]*model.Cart),
		items: make(map[bson.ObjectID]*model.CartItem),
	}
}

func (m *mockCartRepo) Create(_ context.Context, cart *model.Cart) error {
	cart.ID = bson.NewObjectID()
	cart.Version = 1
	if cart.ItemIDs == nil {
		cart.ItemIDs = []bson.ObjectID{}
	}
	stored := *cart
	m.carts[cart.ID] = &stored
	return nil
}

func (m *mockCartRepo) GetByID(_ context.Context, id bson.ObjectID) (*model.Cart, error) {
	if cart, ok := m.carts[id]; ok {
		copied := *cart
		return &copied, nil
	}
	return nil, nil
}

func (m *mockCartRepo) GetActive(_ context.Context) (*model.Cart, error) {
	for _, cart := range m.carts {
		if cart.Status != model.CartStatusCompleted {
			copied := *cart
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockCartRepo) Update(_ context.Context, cart *model.Cart) error {
	cart.Version++
	stored := *cart
	m.carts[cart.ID] = &stored
	return nil
}

func (m *mockCartRepo) GetItems(_ context.Context, cartID bson.ObjectID) ([]model.CartItem, error) {
	var items []model.CartItem
	for _, item := range m.items {
		if item.CartID == cartID {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (m *mockCartRepo) GetItem(_ context.Context, itemID bson.ObjectID) (*model.CartItem, error) {
	if item, ok := m.items[itemID]; ok {
		copied := *item
		return &copied, nil
	}
	return nil, nil
}

func (m *mockCartRepo) FindItemByProduct(_ context.Context, cartID, productID bson.ObjectID, status string) (*model.CartItem, error) {
	for _, item := range m.items {
		if item.CartID == cartID && item.ProductID == productID && item.Status == status {
			copied := *item
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockCartRepo) CreateItem(_ context.Context, item *model.CartItem) error {
	item.ID = bson.NewObjectID()
	stored := *item
	m.items[item.ID] = &stored
	return nil
}

func (m *mockCartRepo) UpdateItem(_ context.Context, item *model.CartItem) error {
	stored := *item
	m.items[item.ID] = &stored
	return nil
}

func (m *mockCartRepo) DeleteItem(_ context.Context, itemID bson.ObjectID) error {
	delete(m.items, itemID)
	return nil
}

func (m *mockCartRepo) SetItemStatuses(_ context.Context, itemIDs []bson.ObjectID, status string) error {
	for _, id := range itemIDs {
		if item, ok := m.items[id]; ok {
			item.Status = status
		}
	}
	return nil
}

// assertTotalInvariant checks cart.TotalPrice == Σ item.TotalPrice over
// the items the cart references.
func assertTotalInvariant(t *testing.T, repo *mockCartRepo, cartID bson.ObjectID) {
	t.Helper()
	cart := repo.carts[cartID]
	require.NotNil(t, cart)
	sum := decimal.Zero
	for _, id := range cart.ItemIDs {
		item, ok := repo.items[id]
		require.True(t, ok, "cart references missing item %s", id.Hex())
		sum = sum.Add(item.TotalPrice)
	}
	assert.True(t, cart.TotalPrice.Equal(sum),
		"cart total %s != item sum %s", cart.TotalPrice, sum)
}

func seedProduct(repo *mockProductRepo, price int64) bson.ObjectID {
	product := &model.Product{ID: bson.NewObjectID(), Name: "P", Price: decimal.NewFromInt(price)}
	repo.products[product.ID] = product
	return product.ID
}

func TestCartService_AddItem_UnknownProduct(t *testing.T) {
	svc := NewCartService(newMockCartRepo(), newMockProductRepo(), mockTxn{})
	price := decimal.NewFromInt(10)
	_, _, err := svc.AddItem(context.Background(), bson.NewObjectID(), 1, &price)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_AddItem_CreatesCartLazily(t *testing.T) {
	cartRepo := newMockCartRepo()
	productRepo := newMockProductRepo()
	pid := seedProduct(productRepo, 50)
	svc := NewCartService(cartRepo, productRepo, mockTxn{})

	price := decimal.NewFromInt(50)
	item, cart, err := svc.AddItem(context.Background(), pid, 2, &price)
	require.NoError(t, err)

	assert.Equal(t, model.CartStatusActive, cart.Status)
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(100)))
	assert.Len(t, cart.ItemIDs, 1)
	assertTotalInvariant(t, cartRepo, cart.ID)
}

func TestCartService_AddItem_MergesSameProductLine(t *testing.T) {
	cartRepo := newMockCartRepo()
	productRepo := newMockProductRepo()
	pid := seedProduct(productRepo, 50)
	svc := NewCartService(cartRepo, productRepo, mockTxn{})

	price := decimal.NewFromInt(50)
	_, _, err := svc.AddItem(context.Background(), pid, 2, &price)
	require.NoError(t, err)

	item, cart, err := svc.AddItem(context.Background(), pid, 3, &price)
	require.NoError(t, err)

	// Same line, not a new one: qty 5, total 250.
	assert.Equal(t, 5, item.Quantity)
	assert.True(t, item.TotalPrice.Equal(decimal.NewFromInt(250)))
	assert.Len(t, cart.ItemIDs, 1)
	assert.Len(t, cartRepo.items, 1)
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(250)))
	assertTotalInvariant(t, cartRepo, cart.ID)
}

func TestCartService_AddItem_DefaultsToProductPrice(t *testing.T) {
	cartRepo := newMockCartRepo()
	productRepo := newMockProductRepo()
	pid := seedProduct(productRepo, 30)
	svc := NewCartService(cartRepo, productRepo, mockTxn{})

	item, cart, err := svc.AddItem(context.Background(), pid, 1, nil)
	require.NoError(t, err)
	assert.True(t, item.PurchasePrice.Equal(decimal.NewFromInt(30)))
	assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(30)))
}

func TestCartService_AddItem_RejectsBadInput(t *testing.T) {
	productRepo := newMockProductRepo()
	pid := seedProduct(productRepo, 10)
	svc := NewCartService(newMockCartRepo(), productRepo, mockTxn{})

	_, _, err := svc.AddItem(context.Background(), pid, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	negative := decimal.NewFromInt(-1)
	_, _, err = svc.AddItem(context.Background(), pid, 1, &negative)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestCartService_UpdateItemQuantity(t *testing.T) {
	cartRepo := newMockCartRepo()
	productRepo := newMockProductRepo()
	pid := seedProduct(productRepo, 20)
	svc := NewCartService(cartRepo, productRepo, mockTxn{})

	_, cart, err := svc.AddItem(context.Background(), pid, 2, nil)
	require.NoError(t, err)
	itemID := cart.ItemIDs[0]

	item, err := svc.UpdateItemQuantity(context.Background(), cart.ID, itemID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	assert.True(t, item.TotalPrice.Equal(decimal.NewFromInt(100)))
	assertTotalInvariant(t, cartRepo, cart.ID)
}

func TestCartService_UpdateItemQuantity_NotFound(t *testing.T) {
	cartRepo := newMockCartRepo()
	productRepo := newMockProductRepo()
	pid := seedProduct(productRepo, 20)
	svc := NewCartService(cartRepo, productRepo, mockTxn{})

	_, err := svc.UpdateItemQuantity(context.Background(), bson.NewObjectID(), bson.NewObjectID(), 2)
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, cart, err := svc.AddItem(context.Background(), pid, 1, nil)
	require.NoError(t, err)

	_, err = svc.UpdateItemQuantity(context.Background(), cart.ID, bson.NewObjectID(), 2)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_RemoveItem_LastItemLeavesCartActive(t *testing.T) {
	cartRepo := newMockCartRepo()
	productRepo := newMockProductRepo()
	pid := seedProduct(productRepo, 40)
	svc := NewCartService(cartRepo, productRepo, mockTxn{})

	_, cart, err := svc.AddItem(context.Background(), pid, 1, nil)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(context.Background(), cart.ID, cart.ItemIDs[0]))

	stored := cartRepo.carts[cart.ID]
	assert.True(t, stored.TotalPrice.IsZero())
	assert.Empty(t, stored.ItemIDs)
	assert.Equal(t, model.CartStatusActive, stored.Status)
	assert.Empty(t, cartRepo.items)
}

func TestCartService_TotalInvariantAcrossMutations(t *testing.T) {
	cartRepo := newMockCartRepo()
	productRepo := newMockProductRepo()
	p1 := seedProduct(productRepo, 10)
	p2 := seedProduct(productRepo, 25)
	svc := NewCartService(cartRepo, productRepo, mockTxn{})
	ctx := context.Background()

	_, cart, err := svc.AddItem(ctx, p1, 3, nil)
	require.NoError(t, err)
	assertTotalInvariant(t, cartRepo, cart.ID)

	_, cart, err = svc.AddItem(ctx, p2, 2, nil)
	require.NoError(t, err)
	assertTotalInvariant(t, cartRepo, cart.ID)

	_, err = svc.UpdateItemQuantity(ctx, cart.ID, cart.ItemIDs[0], 7)
	require.NoError(t, err)
	assertTotalInvariant(t, cartRepo, cart.ID)

	require.NoError(t, svc.RemoveItem(ctx, cart.ID, cart.ItemIDs[1]))
	assertTotalInvariant(t, cartRepo, cart.ID)
}

func TestCartService_GetActiveCart_NoneActive(t *testing.T) {
	svc := NewCartService(newMockCartRepo(), newMockProductRepo(), mockTxn{})
	cart, err := svc.GetActiveCart(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cart)
}

func TestCartService_GetActiveCart_HydratesProducts(t *testing.T) {
	cartRepo := newMockCartRepo()
	productRepo := newMockProductRepo()
	pid := seedProduct(productRepo, 15)
	svc := NewCartService(cartRepo, productRepo, mockTxn{})

	_, _, err := svc.AddItem(context.Background(), pid, 1, nil)
	require.NoError(t, err)

	cart, err := svc.GetActiveCart(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cart)
	require.Len(t, cart.Items, 1)
	require.NotNil(t, cart.Items[0].Product)
	assert.Equal(t, pid, cart.Items[0].Product.ID)
}
