package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/content"
	"storefront/internal/live"
	"storefront/internal/models"
	"storefront/internal/order"
	"storefront/internal/pricing"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CartService is the per-session cart store
type CartService interface {
	Get(ctx context.Context, session string) *cart.Cart
	Add(ctx context.Context, session string, item models.CartLineItem) (*cart.Cart, error)
	Remove(ctx context.Context, session, sku string) *cart.Cart
	Clear(ctx context.Context, session string) *cart.Cart
	Subscribe(session string) (<-chan live.Message, func())
}

// CheckoutService places WhatsApp orders
type CheckoutService interface {
	CheckoutCart(ctx context.Context, session, idempotencyKey string) (*service.CheckoutResult, error)
	BuyNow(ctx context.Context, req *service.BuyNowRequest, idempotencyKey string) (*service.CheckoutResult, error)
}

// CatalogService serves and edits products
type CatalogService interface {
	GetBySKU(ctx context.Context, category models.Category, sku string) (*models.Product, error)
	List(ctx context.Context, category models.Category, q catalog.Query) (catalog.Page, error)
	Create(ctx context.Context, category models.Category, p models.Product) (*models.Product, error)
	Update(ctx context.Context, category models.Category, id string, p models.Product) (*models.Product, error)
	Delete(ctx context.Context, category models.Category, id string) error
}

// ContentService manages sliders, videos and media
type ContentService interface {
	Sliders(ctx context.Context) ([]models.Slider, error)
	SaveSlider(ctx context.Context, s models.Slider) (models.Slider, error)
	DeleteSlider(ctx context.Context, id string) error
	Videos(ctx context.Context) ([]models.Video, error)
	AddVideo(ctx context.Context, rawURL string) (models.Video, error)
	DeleteVideo(ctx context.Context, id string) error
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (*models.Media, error)
	Open(ctx context.Context, id string) (io.ReadCloser, *models.Media, error)
	DeleteMedia(ctx context.Context, id string) error
}

// OrderAdmin is the back-office order service
type OrderAdmin interface {
	List(ctx context.Context, req service.OrderListRequest) (*service.OrderPage, error)
	Get(ctx context.Context, orderID string) (*models.OrderRecord, error)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) error
	UpdateCustomer(ctx context.Context, orderID string, customer models.Customer) (models.Customer, error)
	Delete(ctx context.Context, orderID string) error
	Overview(ctx context.Context) (*models.OrderOverview, error)
	Export(ctx context.Context, req service.OrderListRequest, w io.Writer) error
}

// Authenticator issues and checks admin tokens
type Authenticator interface {
	Login(username, password string) (string, time.Time, error)
	Verify(token string) (*auth.Claims, error)
}

// LiveFeed hands out topic subscriptions
type LiveFeed interface {
	Subscribe(topic string) (<-chan live.Message, func())
}

// Deps are the services the HTTP layer routes to
type Deps struct {
	Carts       CartService
	Checkout    CheckoutService
	Catalog     CatalogService
	Content     ContentService
	Orders      OrderAdmin
	Auth        Authenticator
	Feed        LiveFeed
	Checks      map[string]func(context.Context) error
	CORSOrigins []string
}

// Handler contains HTTP handlers
type Handler struct {
	deps     Deps
	upgrader *websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		deps:     deps,
		upgrader: newUpgrader(deps.CORSOrigins),
		logger:   util.Named("api"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(corsMiddleware(h.deps.CORSOrigins))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/media/:id", h.getMedia)
	router.GET("/ws/cart", h.cartFeed)
	router.GET("/ws/catalog/:category", h.catalogFeed)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products/:category", h.listProducts)
		v1.GET("/products/:category/:sku", h.getProduct)

		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addCartItem)
		v1.DELETE("/cart/items/:sku", h.removeCartItem)
		v1.DELETE("/cart", h.clearCart)

		v1.POST("/checkout", h.checkoutCart)
		v1.POST("/checkout/buy-now", h.buyNow)

		v1.GET("/sliders", h.listSliders)
		v1.GET("/videos", h.listVideos)

		v1.POST("/admin/login", h.login)
	}

	admin := v1.Group("/admin", h.requireAdmin())
	{
		admin.POST("/products/:category", h.createProduct)
		admin.PUT("/products/:category/:id", h.updateProduct)
		admin.DELETE("/products/:category/:id", h.deleteProduct)
		admin.POST("/sku", h.generateSKU)

		admin.GET("/orders", h.listOrders)
		admin.GET("/orders/export", h.exportOrders)
		admin.GET("/orders/:id", h.getOrder)
		admin.PATCH("/orders/:id/status", h.updateOrderStatus)
		admin.PATCH("/orders/:id/customer", h.updateOrderCustomer)
		admin.DELETE("/orders/:id", h.deleteOrder)
		admin.GET("/overview", h.overview)

		admin.PUT("/sliders", h.saveSlider)
		admin.PUT("/sliders/:id", h.saveSlider)
		admin.DELETE("/sliders/:id", h.deleteSlider)
		admin.POST("/videos", h.addVideo)
		admin.DELETE("/videos/:id", h.deleteVideo)
		admin.POST("/media", h.uploadMedia)
		admin.DELETE("/media/:id", h.deleteMedia)

		admin.GET("/ws/orders", h.orderFeed)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every backing store
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.deps.Checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": failed,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps domain errors onto status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error"

	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		status, msg = http.StatusNotFound, "Product not found"
	case errors.Is(err, store.ErrOrderNotFound):
		status, msg = http.StatusNotFound, "Order not found"
	case errors.Is(err, models.ErrNotFound):
		status, msg = http.StatusNotFound, "Not found"
	case errors.Is(err, order.ErrEmptyCart):
		status, msg = http.StatusBadRequest, "Cart is empty"
	case errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidItem),
		errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, content.ErrInvalidVideoURL),
		errors.Is(err, content.ErrInvalidSlider),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrPhoneRequired),
		errors.Is(err, pricing.ErrInvalidPrice):
		status, msg = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, service.ErrCheckoutInProgress):
		status, msg = http.StatusConflict, "Checkout already in progress"
	case errors.Is(err, service.ErrOrderWrite):
		status, msg = http.StatusBadGateway, "Failed to place order. Please try again."
	case errors.Is(err, service.ErrDeepLink):
		status, msg = http.StatusBadGateway, "Failed to open WhatsApp. Please try again."
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		status, msg = http.StatusUnauthorized, "Unauthorized"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

func badRequest(c *gin.Context, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

func categoryParam(c *gin.Context) (models.Category, bool) {
	cat, ok := models.ParseCategory(c.Param("category"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown category"})
	}
	return cat, ok
}

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestIDMiddleware tags every request with an id, reusing the caller's
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", cartSessionHeader, idempotencyHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", cartSessionHeader, requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
		}
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = origins
		if len(origins) == 0 {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
		}
	}
	return cors.New(cfg)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
