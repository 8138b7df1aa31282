package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/storefront-api/internal/checkout"
	"github.com/flicky/storefront-api/internal/middleware"
	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/service"
)

type CheckoutHandler struct {
	svc *service.CheckoutService
}

func NewCheckoutHandler(svc *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

func (h *CheckoutHandler) State(c *gin.Context) {
	state, err := h.svc.State(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCheckoutResponse(state))
}

func (h *CheckoutHandler) SubmitAddress(c *gin.Context) {
	var addr model.Address
	if err := c.ShouldBindJSON(&addr); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state, err := h.svc.SubmitAddress(c.Request.Context(), middleware.GetSessionID(c), addr)
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCheckoutResponse(state))
}

func (h *CheckoutHandler) SubmitPayment(c *gin.Context) {
	var p checkout.Payment
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state, err := h.svc.SubmitPayment(c.Request.Context(), middleware.GetSessionID(c), p)
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCheckoutResponse(state))
}

func (h *CheckoutHandler) Back(c *gin.Context) {
	state, err := h.svc.Back(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCheckoutResponse(state))
}

func (h *CheckoutHandler) Cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Request.Context(), middleware.GetSessionID(c)); err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CheckoutHandler) Confirm(c *gin.Context) {
	order, err := h.svc.PlaceOrder(c.Request.Context(), middleware.GetSessionID(c), middleware.GetUserID(c))
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func writeCheckoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, checkout.ErrInvalidAddress), errors.Is(err, checkout.ErrInvalidPayment):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
	case errors.Is(err, checkout.ErrStepOutOfOrder):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "order submission already in progress"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
