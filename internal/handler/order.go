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

type OrderHandler struct {
	orderSvc *service.OrderService
}

func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.orderSvc.List(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	respond(c, http.StatusOK, dto.OrderListResponse{Orders: items, Total: len(items)})
}

func (h *OrderHandler) GetByID(c *gin.Context) {
	orderID, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orderSvc.GetByID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, http.StatusNotFound, "order not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respond(c, http.StatusOK, toOrderResponse(order))
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:              order.ID.Hex(),
		CartID:          order.CartID.Hex(),
		TotalPrice:      order.TotalPrice,
		DiscountCode:    order.DiscountCode,
		Discount:        order.Discount,
		DiscountedPrice: order.DiscountedPrice,
		Status:          order.Status,
		CreatedAt:       order.CreatedAt,
	}
}
