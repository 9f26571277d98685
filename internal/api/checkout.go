package api

import (
	"errors"
	"net/http"
	"strings"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

// checkoutCart handles cart checkout requests
func (h *Handler) checkoutCart(c *gin.Context) {
	session := cartSession(c)

	result, err := h.deps.Checkout.CheckoutCart(c.Request.Context(), session, idempotencyKey(c))
	if err != nil {
		h.checkoutFailed(c, err)
		return
	}

	h.logger.Info("Cart checked out",
		zap.String("order_id", result.OrderID),
		zap.String("request_id", c.GetString(requestIDKey)))
	c.JSON(http.StatusCreated, result)
}

// buyNow handles single product checkout requests
func (h *Handler) buyNow(c *gin.Context) {
	var req service.BuyNowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}
	if req.Category == "" {
		req.Category = models.CategoryMattress
	}
	category, ok := models.ParseCategory(string(req.Category))
	if !ok {
		badRequest(c, "Unknown category", nil)
		return
	}
	req.Category = category
	req.Session = cartSession(c)

	result, err := h.deps.Checkout.BuyNow(c.Request.Context(), &req, idempotencyKey(c))
	if err != nil {
		h.checkoutFailed(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// checkoutFailed reports a failed attempt. No deep link is ever returned here.
func (h *Handler) checkoutFailed(c *gin.Context, err error) {
	var cerr *service.CheckoutError
	if !errors.As(err, &cerr) {
		h.respondError(c, err)
		return
	}

	status, msg := http.StatusBadGateway, "Failed to place order. Please try again."
	if cerr.Kind == service.ErrDeepLink {
		msg = "Failed to open WhatsApp. Please try again."
	}

	h.logger.Error("Checkout failed",
		zap.String("stage", string(cerr.Stage)),
		zap.String("order_id", cerr.OrderID),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(cerr.Err))

	c.JSON(status, gin.H{
		"error":   msg,
		"details": err.Error(),
		"orderId": cerr.OrderID,
		"states":  cerr.States,
	})
}

func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(idempotencyHeader))
}
