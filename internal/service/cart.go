package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/storefront-labs/checkout-api/internal/model"
	"github.com/storefront-labs/checkout-api/internal/repository"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrWrongCart        = errors.New("item does not belong to this cart")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrInvalidPrice     = errors.New("purchase price must not be negative")
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	txn         repository.TxnRunner
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, txn repository.TxnRunner) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, txn: txn}
}

// GetActiveCart returns the single non-completed cart with its items and
// their products hydrated, or nil when no cart is active. It never
// creates a cart; only AddItem does that.
func (s *CartService) GetActiveCart(ctx context.Context) (*model.Cart, error) {
	cart, err := s.cartRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("get active cart: %w", err)
	}
	if cart == nil {
		return nil, nil
	}
	if err := s.hydrate(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem puts quantity units of a product into the active cart, creating
// the cart if none exists. An existing unprocessed line for the same
// product is merged rather than duplicated. The cart total is re-summed
// from its lines inside the same transaction.
func (s *CartService) AddItem(ctx context.Context, productID bson.ObjectID, quantity int, purchasePrice *decimal.Decimal) (*model.CartItem, *model.Cart, error) {
	if quantity < 1 {
		return nil, nil, ErrInvalidQuantity
	}
	if purchasePrice != nil && purchasePrice.IsNegative() {
		return nil, nil, ErrInvalidPrice
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, nil, ErrProductNotFound
	}

	price := product.Price
	if purchasePrice != nil {
		price = *purchasePrice
	}

	var item *model.CartItem
	var cart *model.Cart

	err = s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err = s.cartRepo.GetActive(ctx)
		if err != nil {
			return err
		}
		if cart == nil {
			cart = &model.Cart{
				TotalPrice: decimal.Zero,
				Status:     model.CartStatusActive,
			}
			if err := s.cartRepo.Create(ctx, cart); err != nil {
				return err
			}
		}

		item, err = s.cartRepo.FindItemByProduct(ctx, cart.ID, productID, model.ItemStatusNotProcessed)
		if err != nil {
			return err
		}

		if item != nil {
			item.Quantity += quantity
			item.RecalculateTotal()
			if err := s.cartRepo.UpdateItem(ctx, item); err != nil {
				return err
			}
		} else {
			item = &model.CartItem{
				CartID:        cart.ID,
				ProductID:     productID,
				Quantity:      quantity,
				PurchasePrice: price,
				Status:        model.ItemStatusNotProcessed,
			}
			item.RecalculateTotal()
			if err := s.cartRepo.CreateItem(ctx, item); err != nil {
				return err
			}
			cart.ItemIDs = append(cart.ItemIDs, item.ID)
		}

		return s.resumTotal(ctx, cart)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("add item to cart: %w", err)
	}
	return item, cart, nil
}

// UpdateItemQuantity replaces a line's quantity and re-sums the cart.
func (s *CartService) UpdateItemQuantity(ctx context.Context, cartID, itemID bson.ObjectID, quantity int) (*model.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var item *model.CartItem
	err := s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.cartRepo.GetByID(ctx, cartID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrCartNotFound
		}

		item, err = s.cartRepo.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrCartItemNotFound
		}
		if item.CartID != cartID {
			return ErrWrongCart
		}

		item.Quantity = quantity
		item.RecalculateTotal()
		if err := s.cartRepo.UpdateItem(ctx, item); err != nil {
			return err
		}

		return s.resumTotal(ctx, cart)
	})
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return item, nil
}

// RemoveItem deletes a line, drops its reference from the cart, and
// re-sums the cart total. The cart stays active even when emptied.
func (s *CartService) RemoveItem(ctx context.Context, cartID, itemID bson.ObjectID) error {
	err := s.txn.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.cartRepo.GetByID(ctx, cartID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrCartNotFound
		}

		item, err := s.cartRepo.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrCartItemNotFound
		}
		if item.CartID != cartID {
			return ErrWrongCart
		}

		if err := s.cartRepo.DeleteItem(ctx, itemID); err != nil {
			return err
		}

		kept := cart.ItemIDs[:0]
		for _, id := range cart.ItemIDs {
			if id != itemID {
				kept = append(kept, id)
			}
		}
		cart.ItemIDs = kept

		return s.resumTotal(ctx, cart)
	})
	if err != nil {
		if isDomainErr(err) {
			return err
		}
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

// resumTotal recomputes the cart total from its stored lines and persists
// the cart. Full re-summation keeps the total equal to the sum of line
// totals under concurrent edits where incremental deltas would drift.
func (s *CartService) resumTotal(ctx context.Context, cart *model.Cart) error {
	items, err := s.cartRepo.GetItems(ctx, cart.ID)
	if err != nil {
		return err
	}
	cart.TotalPrice = model.SumItemTotals(items)
	cart.Items = orderByRef(cart.ItemIDs, items)
	return s.cartRepo.Update(ctx, cart)
}

func (s *CartService) hydrate(ctx context.Context, cart *model.Cart) error {
	items, err := s.cartRepo.GetItems(ctx, cart.ID)
	if err != nil {
		return fmt.Errorf("get cart items: %w", err)
	}
	cart.Items = orderByRef(cart.ItemIDs, items)

	if len(cart.Items) == 0 {
		return nil
	}

	ids := make([]bson.ObjectID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("get cart products: %w", err)
	}

	byID := make(map[bson.ObjectID]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for i := range cart.Items {
		cart.Items[i].Product = byID[cart.Items[i].ProductID]
	}
	return nil
}

// orderByRef arranges fetched items in the cart's reference order, which
// is the display order.
func orderByRef(refs []bson.ObjectID, items []model.CartItem) []model.CartItem {
	byID := make(map[bson.ObjectID]model.CartItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	ordered := make([]model.CartItem, 0, len(items))
	for _, id := range refs {
		if item, ok := byID[id]; ok {
			ordered = append(ordered, item)
		}
	}
	return ordered
}

func isDomainErr(err error) bool {
	return errors.Is(err, ErrCartNotFound) ||
		errors.Is(err, ErrCartItemNotFound) ||
		errors.Is(err, ErrWrongCart)
}
