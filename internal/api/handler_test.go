package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/live"
	"storefront/internal/models"
	"storefront/internal/order"
	"storefront/internal/redisclient"
	"storefront/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	CatalogService
	products map[string]models.Product
}

func (s stubCatalog) GetBySKU(ctx context.Context, category models.Category, sku string) (*models.Product, error) {
	p, ok := s.products[sku]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

type stubCheckout struct {
	result *service.CheckoutResult
	err    error
	calls  int
}

func (s *stubCheckout) CheckoutCart(ctx context.Context, session, idempotencyKey string) (*service.CheckoutResult, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubCheckout) BuyNow(ctx context.Context, req *service.BuyNowRequest, idempotencyKey string) (*service.CheckoutResult, error) {
	s.calls++
	return s.result, s.err
}

type stubOrders struct {
	OrderAdmin
}

func (stubOrders) List(ctx context.Context, req service.OrderListRequest) (*service.OrderPage, error) {
	return &service.OrderPage{Orders: []models.OrderRecord{}, Page: req.Page, PageSize: 10}, nil
}

type fixture struct {
	router   *gin.Engine
	checkout *stubCheckout
	checks   map[string]func(context.Context) error
}

func setupRouter(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rc := redisclient.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	authn, err := auth.NewAuthenticator("admin", hash, "test-secret", time.Hour)
	require.NoError(t, err)

	f := &fixture{
		checkout: &stubCheckout{},
		checks:   map[string]func(context.Context) error{},
	}
	h := NewHandler(Deps{
		Carts:    cart.NewService(rc, nil),
		Checkout: f.checkout,
		Catalog:  stubCatalog{products: map[string]models.Product{"ORTHO": {SKU: "ORTHO", Title: "Ortho"}}},
		Orders:   stubOrders{},
		Auth:     authn,
		Feed:     live.NewFeed(),
		Checks:   f.checks,
	})
	f.router = gin.New()
	h.SetupRoutes(f.router)
	return f
}

func (f *fixture) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthAndReadiness(t *testing.T) {
	f := setupRouter(t)

	w := f.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	f.checks["postgres"] = func(context.Context) error { return nil }
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/ready", nil, nil).Code)

	f.checks["mongo"] = func(context.Context) error { return errors.New("no reachable servers") }
	w = f.do(http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "no reachable servers")
}

func TestGetProduct(t *testing.T) {
	f := setupRouter(t)

	w := f.do(http.MethodGet, "/api/v1/products/mattress/ORTHO", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ortho", decode(t, w)["title"])

	w = f.do(http.MethodGet, "/api/v1/products/mattress/NOPE", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", decode(t, w)["error"])

	w = f.do(http.MethodGet, "/api/v1/products/sofa/ORTHO", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCart_AddMergesBySKU(t *testing.T) {
	f := setupRouter(t)
	session := map[string]string{cartSessionHeader: "sess-1"}

	w := f.do(http.MethodPost, "/api/v1/cart/items", gin.H{"sku": "A", "title": "Ortho", "price": "₹1,000", "quantity": 2}, session)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/api/v1/cart/items", gin.H{"sku": "A", "title": "Ortho", "price": 1000}, session)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "sess-1", body["session"])
	assert.Equal(t, float64(3), body["count"])
	assert.Equal(t, "3000", body["total"])
	assert.Equal(t, "₹3,000", body["formattedTotal"])
	assert.Len(t, body["items"], 1)

	w = f.do(http.MethodDelete, "/api/v1/cart/items/A", nil, session)
	assert.Equal(t, float64(0), decode(t, w)["count"])
}

func TestCart_RejectsBadInput(t *testing.T) {
	f := setupRouter(t)
	session := map[string]string{cartSessionHeader: "sess-2"}

	w := f.do(http.MethodPost, "/api/v1/cart/items", gin.H{"sku": "A", "title": "Ortho", "price": "free"}, session)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/v1/cart/items", gin.H{"sku": "A", "title": "Ortho", "price": 10, "quantity": -1}, session)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCart_RejectsMissingOrZeroPrice(t *testing.T) {
	f := setupRouter(t)
	session := map[string]string{cartSessionHeader: "sess-price"}

	w := f.do(http.MethodPost, "/api/v1/cart/items", gin.H{"sku": "A", "title": "Ortho"}, session)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/v1/cart/items", gin.H{"sku": "A", "title": "Ortho", "price": "₹0"}, session)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/v1/cart", nil, session)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, "0", body["total"])
}

func TestCart_MintsSessionCookie(t *testing.T) {
	f := setupRouter(t)

	w := f.do(http.MethodGet, "/api/v1/cart", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	minted := w.Header().Get(cartSessionHeader)
	assert.NotEmpty(t, minted)
	assert.Contains(t, w.Header().Get("Set-Cookie"), cartSessionCookie+"="+minted)
	assert.Equal(t, minted, decode(t, w)["session"])
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := setupRouter(t)
	f.checkout.err = order.ErrEmptyCart

	w := f.do(http.MethodPost, "/api/v1/checkout", nil, map[string]string{cartSessionHeader: "s"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cart is empty", decode(t, w)["error"])
}

func TestCheckout_WriteFailureReturnsNoLink(t *testing.T) {
	f := setupRouter(t)
	f.checkout.err = &service.CheckoutError{
		Stage:  service.StateWriting,
		Kind:   service.ErrOrderWrite,
		Err:    errors.New("connection refused"),
		States: []service.State{service.StateIdle, service.StateWriting, service.StateFailure, service.StateIdle},
	}

	w := f.do(http.MethodPost, "/api/v1/checkout", nil, map[string]string{cartSessionHeader: "s"})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	body := decode(t, w)
	assert.Equal(t, "Failed to place order. Please try again.", body["error"])
	assert.NotContains(t, body, "deepLink")
	assert.Len(t, body["states"], 4)
}

func TestCheckout_Success(t *testing.T) {
	f := setupRouter(t)
	f.checkout.result = &service.CheckoutResult{OrderID: "WA-1", DeepLink: "https://wa.me/91?text=hi"}

	w := f.do(http.MethodPost, "/api/v1/checkout/buy-now", gin.H{"category": "mattress", "sku": "ORTHO"}, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "https://wa.me/91?text=hi", decode(t, w)["deepLink"])

	w = f.do(http.MethodPost, "/api/v1/checkout/buy-now", gin.H{"category": "sofa", "sku": "ORTHO"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, f.checkout.calls)
}

func TestAdmin_RequiresToken(t *testing.T) {
	f := setupRouter(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/admin/orders", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		f.do(http.MethodGet, "/api/v1/admin/orders", nil, map[string]string{"Authorization": "Bearer junk"}).Code)

	w := f.do(http.MethodPost, "/api/v1/admin/login", gin.H{"username": "admin", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/api/v1/admin/login", gin.H{"username": "admin", "password": "s3cret"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)

	w = f.do(http.MethodGet, "/api/v1/admin/orders?page=2", nil, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["page"])
}

func TestAdmin_ForgedTokenRejectedWhenLoginDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authn, err := auth.NewAuthenticator("admin", "", "change-me", time.Hour)
	require.NoError(t, err)

	router := gin.New()
	NewHandler(Deps{Orders: stubOrders{}, Auth: authn, Feed: live.NewFeed()}).SetupRoutes(router)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Role: auth.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "attacker",
			Issuer:    "storefront",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("change-me"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_GenerateSKU(t *testing.T) {
	f := setupRouter(t)

	w := f.do(http.MethodPost, "/api/v1/admin/login", gin.H{"username": "admin", "password": "s3cret"}, nil)
	token, _ := decode(t, w)["token"].(string)

	w = f.do(http.MethodPost, "/api/v1/admin/sku",
		gin.H{"title": "Ortho Memory Foam", "type": "Mattress", "price": "12000", "stock": "5", "size": "King", "thickness": "8 inch"},
		map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ortho-memory-foam-mattress-p12000-s5-szking-t8inch", decode(t, w)["sku"])
}
