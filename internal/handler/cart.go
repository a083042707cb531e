package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/storefront-labs/checkout-api/internal/dto"
	"github.com/storefront-labs/checkout-api/internal/model"
	"github.com/storefront-labs/checkout-api/internal/service"
)

type CartHandler struct {
	cartSvc  *service.CartService
	orderSvc *service.OrderService
}

func NewCartHandler(cartSvc *service.CartService, orderSvc *service.OrderService) *CartHandler {
	return &CartHandler{cartSvc: cartSvc, orderSvc: orderSvc}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.cartSvc.GetActiveCart(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if cart == nil {
		respondError(c, http.StatusNotFound, "no active cart")
		return
	}
	respond(c, http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	productID, err := bson.ObjectIDFromHex(req.ProductID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid product id")
		return
	}

	item, cart, err := h.cartSvc.AddItem(c.Request.Context(), productID, req.Quantity, req.PurchasePrice)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			respondError(c, http.StatusNotFound, "product not found")
		case errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrInvalidPrice):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respond(c, http.StatusCreated, gin.H{
		"item": toCartItemResponse(*item),
		"cart": toCartResponse(cart),
	})
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	cartID, itemID, ok := cartItemIDs(c)
	if !ok {
		return
	}
	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.cartSvc.UpdateItemQuantity(c.Request.Context(), cartID, itemID, req.Quantity)
	if err != nil {
		respondCartErr(c, err)
		return
	}
	respond(c, http.StatusOK, toCartItemResponse(*item))
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	cartID, itemID, ok := cartItemIDs(c)
	if !ok {
		return
	}
	if err := h.cartSvc.RemoveItem(c.Request.Context(), cartID, itemID); err != nil {
		respondCartErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "item removed from cart"})
}

func (h *CartHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	cartID, err := bson.ObjectIDFromHex(req.CartID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid cart id")
		return
	}

	result, err := h.orderSvc.Checkout(c.Request.Context(), cartID, req.DiscountCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCartNotFound):
			respondError(c, http.StatusNotFound, "cart not found")
		case errors.Is(err, service.ErrCartNotActive):
			respondError(c, http.StatusBadRequest, "cart is not active")
		default:
			respondError(c, http.StatusInternalServerError, "checkout failed: "+err.Error())
		}
		return
	}

	respond(c, http.StatusCreated, dto.CheckoutResponse{
		OrderID:         result.OrderID.Hex(),
		TotalPrice:      result.TotalPrice,
		Discount:        result.Discount,
		DiscountedPrice: result.DiscountedPrice,
		Message:         result.Message,
	})
}

func cartItemIDs(c *gin.Context) (cartID, itemID bson.ObjectID, ok bool) {
	cartID, err := bson.ObjectIDFromHex(c.Param("cartId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid cart id")
		return cartID, itemID, false
	}
	itemID, err = bson.ObjectIDFromHex(c.Param("itemId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid cart item id")
		return cartID, itemID, false
	}
	return cartID, itemID, true
}

func respondCartErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCartNotFound):
		respondError(c, http.StatusNotFound, "cart not found")
	case errors.Is(err, service.ErrCartItemNotFound), errors.Is(err, service.ErrWrongCart):
		respondError(c, http.StatusNotFound, "cart item not found")
	case errors.Is(err, service.ErrInvalidQuantity):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

func toCartResponse(cart *model.Cart) dto.CartResponse {
	items := make([]dto.CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, toCartItemResponse(item))
	}
	return dto.CartResponse{
		ID:         cart.ID.Hex(),
		Status:     cart.Status,
		TotalPrice: cart.TotalPrice,
		Items:      items,
	}
}

func toCartItemResponse(item model.CartItem) dto.CartItemResponse {
	resp := dto.CartItemResponse{
		ID:            item.ID.Hex(),
		ProductID:     item.ProductID.Hex(),
		Quantity:      item.Quantity,
		PurchasePrice: item.PurchasePrice,
		TotalPrice:    item.TotalPrice,
		Status:        item.Status,
	}
	if item.Product != nil {
		resp.ProductName = item.Product.Name
	}
	return resp
}
