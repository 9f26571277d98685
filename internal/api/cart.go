package api

import (
	"net/http"
	"strings"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/pricing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	cartSessionHeader = "X-Cart-Session"
	cartSessionCookie = "cart_session"
	cartCookieMaxAge  = 30 * 24 * 60 * 60
)

// AddCartItemRequest represents a request to add a product variant to the cart
type AddCartItemRequest struct {
	SKU               string        `json:"sku" binding:"required"`
	Title             string        `json:"title" binding:"required"`
	Price             pricing.Price `json:"price"`
	Quantity          int           `json:"quantity"`
	SelectedSize      string        `json:"selectedSize"`
	SelectedThickness string        `json:"selectedThickness"`
	Image             string        `json:"image"`
}

type cartResponse struct {
	Session        string                `json:"session"`
	Items          []models.CartLineItem `json:"items"`
	Count          int                   `json:"count"`
	Total          string                `json:"total"`
	FormattedTotal string                `json:"formattedTotal"`
}

func newCartResponse(session string, c *cart.Cart) cartResponse {
	items := c.Items()
	if items == nil {
		items = []models.CartLineItem{}
	}
	return cartResponse{
		Session:        session,
		Items:          items,
		Count:          c.Count(),
		Total:          c.Total().String(),
		FormattedTotal: pricing.Format(c.Total()),
	}
}

// cartSession resolves the caller's cart session, minting one when absent
func cartSession(c *gin.Context) string {
	if s := strings.TrimSpace(c.GetHeader(cartSessionHeader)); s != "" {
		return s
	}
	if s, err := c.Cookie(cartSessionCookie); err == nil && s != "" {
		return s
	}

	s := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cartSessionCookie, s, cartCookieMaxAge, "/", "", false, true)
	c.Header(cartSessionHeader, s)
	return s
}

// getCart handles cart retrieval requests
func (h *Handler) getCart(c *gin.Context) {
	session := cartSession(c)
	crt := h.deps.Carts.Get(c.Request.Context(), session)
	c.JSON(http.StatusOK, newCartResponse(session, crt))
}

// addCartItem handles add-to-cart requests
func (h *Handler) addCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	session := cartSession(c)
	crt, err := h.deps.Carts.Add(c.Request.Context(), session, models.CartLineItem{
		ProductSKU:        strings.TrimSpace(req.SKU),
		Title:             req.Title,
		UnitPrice:         req.Price.Decimal,
		Quantity:          req.Quantity,
		SelectedSize:      req.SelectedSize,
		SelectedThickness: req.SelectedThickness,
		ImageRef:          req.Image,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newCartResponse(session, crt))
}

// removeCartItem handles remove-from-cart requests
func (h *Handler) removeCartItem(c *gin.Context) {
	session := cartSession(c)
	crt := h.deps.Carts.Remove(c.Request.Context(), session, c.Param("sku"))
	c.JSON(http.StatusOK, newCartResponse(session, crt))
}

// clearCart handles cart reset requests
func (h *Handler) clearCart(c *gin.Context) {
	session := cartSession(c)
	crt := h.deps.Carts.Clear(c.Request.Context(), session)
	c.JSON(http.StatusOK, newCartResponse(session, crt))
}
