package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/report"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const claimsKey = "admin_claims"

// LoginRequest represents the back-office login form
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateStatusRequest represents an order status change
type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// VideoRequest represents a video to embed
type VideoRequest struct {
	URL string `json:"url" binding:"required"`
}

// login exchanges admin credentials for a bearer token
func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	token, expires, err := h.deps.Auth.Login(req.Username, req.Password)
	if err != nil {
		h.logger.Warn("Admin login rejected", zap.String("username", req.Username), zap.String("client_ip", c.ClientIP()))
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": expires.Format(time.RFC3339),
	})
}

// requireAdmin rejects requests without a valid admin bearer token.
// Browsers cannot set headers on websocket upgrades, so ?token= is accepted too.
func (h *Handler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := h.deps.Auth.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"details": err.Error(),
			})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

func orderListRequest(c *gin.Context) service.OrderListRequest {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	return service.OrderListRequest{
		Status: models.OrderStatus(c.Query("status")),
		Search: c.Query("search"),
		Page:   page,
	}
}

// listOrders handles back-office order list requests
func (h *Handler) listOrders(c *gin.Context) {
	page, err := h.deps.Orders.List(c.Request.Context(), orderListRequest(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// getOrder handles order retrieval requests
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.deps.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// updateOrderStatus handles order status changes
func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	orderID := c.Param("id")
	if err := h.deps.Orders.UpdateStatus(c.Request.Context(), orderID, req.Status); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderId": orderID, "status": req.Status})
}

// updateOrderCustomer handles customer detail edits
func (h *Handler) updateOrderCustomer(c *gin.Context) {
	var req models.Customer
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	customer, err := h.deps.Orders.UpdateCustomer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderId": c.Param("id"), "customer": customer})
}

// deleteOrder handles order removal
func (h *Handler) deleteOrder(c *gin.Context) {
	if err := h.deps.Orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// overview handles dashboard summary requests
func (h *Handler) overview(c *gin.Context) {
	ov, err := h.deps.Orders.Overview(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

// exportOrders streams the filtered order list as an Excel workbook
func (h *Handler) exportOrders(c *gin.Context) {
	filename := report.Filename("orders", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", report.ContentTypeXLSX)

	if err := h.deps.Orders.Export(c.Request.Context(), orderListRequest(c), c.Writer); err != nil {
		c.Header("Content-Disposition", "")
		c.Header("Content-Type", "")
		h.respondError(c, err)
		return
	}
}

// saveSlider creates or replaces a home page slider
func (h *Handler) saveSlider(c *gin.Context) {
	var req models.Slider
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}
	if id := c.Param("id"); id != "" {
		req.ID = id
	}

	saved, err := h.deps.Content.SaveSlider(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// deleteSlider handles slider removal
func (h *Handler) deleteSlider(c *gin.Context) {
	if err := h.deps.Content.DeleteSlider(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// listSliders handles public slider requests
func (h *Handler) listSliders(c *gin.Context) {
	sliders, err := h.deps.Content.Sliders(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sliders)
}

// listVideos handles public video requests
func (h *Handler) listVideos(c *gin.Context) {
	videos, err := h.deps.Content.Videos(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}
	c.JSON(http.StatusOK, videos)
}

// addVideo handles video embedding
func (h *Handler) addVideo(c *gin.Context) {
	var req VideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	video, err := h.deps.Content.AddVideo(c.Request.Context(), req.URL)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, video)
}

// deleteVideo handles video removal
func (h *Handler) deleteVideo(c *gin.Context) {
	if err := h.deps.Content.DeleteVideo(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
