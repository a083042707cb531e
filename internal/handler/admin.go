package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storefront-labs/checkout-api/internal/dto"
	"github.com/storefront-labs/checkout-api/internal/service"
)

type AdminHandler struct {
	svc *service.AdminService
}

func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respond(c, http.StatusOK, stats)
}

// GenerateDiscountCode is the legacy nth-order helper, triggered manually
// by an operator rather than by checkout.
func (h *AdminHandler) GenerateDiscountCode(c *gin.Context) {
	code, minted, err := h.svc.GenerateNthOrderCode(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if !minted {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "no discount code available"})
		return
	}
	respond(c, http.StatusCreated, dto.DiscountCodeResponse{Code: code})
}
