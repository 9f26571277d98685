package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/order"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	ErrOrderWrite         = errors.New("failed to save order")
	ErrDeepLink           = errors.New("failed to build WhatsApp link")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// State is a step of a single checkout attempt.
type State string

const (
	StateIdle    State = "idle"
	StateWriting State = "writing"
	StateSuccess State = "success"
	StateOpened  State = "opened"
	StateFailure State = "failure"
)

// CheckoutError reports which step of an attempt failed. It matches both
// its kind (ErrOrderWrite, ErrDeepLink) and the underlying cause.
type CheckoutError struct {
	Stage   State
	OrderID string
	Kind    error
	Err     error
	States  []State
}

func (e *CheckoutError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("%v (order %s): %v", e.Kind, e.OrderID, e.Err)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *CheckoutError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// OrderWriter persists order records
type OrderWriter interface {
	CreateOrder(ctx context.Context, order *models.OrderRecord) error
}

// OrderEvents publishes order lifecycle events
type OrderEvents interface {
	PublishOrderPlaced(ctx context.Context, rec *models.OrderRecord) error
	PublishOrderStatusChanged(ctx context.Context, orderID string, from, to models.OrderStatus) error
	PublishOrderUpdated(ctx context.Context, orderID string, customer models.Customer) error
	PublishOrderDeleted(ctx context.Context, orderID string) error
}

// Locker guards a key across instances
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// IdempotencyStore remembers the outcome of a request key
type IdempotencyStore interface {
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetIdempotencyKey(ctx context.Context, key string) ([]byte, bool, error)
}

// CartStore is the part of the cart service checkout needs
type CartStore interface {
	Get(ctx context.Context, session string) *cart.Cart
	Clear(ctx context.Context, session string) *cart.Cart
}

// ProductLookup resolves a product by category and sku
type ProductLookup interface {
	GetBySKU(ctx context.Context, category models.Category, sku string) (*models.Product, error)
}

// LinkBuilder turns a message into a WhatsApp deep link
type LinkBuilder interface {
	Build(message string) (string, error)
}

// CheckoutOptions tunes CheckoutService
type CheckoutOptions struct {
	LockTTL        time.Duration
	IdempotencyTTL time.Duration
	ClearCart      bool
}

// CheckoutService writes the order record and hands back the deep link
type CheckoutService struct {
	orders   OrderWriter
	events   OrderEvents
	locker   Locker
	idem     IdempotencyStore
	carts    CartStore
	products ProductLookup
	links    LinkBuilder
	builder  *order.Builder
	opts     CheckoutOptions
	logger   *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	orders OrderWriter,
	events OrderEvents,
	locker Locker,
	idem IdempotencyStore,
	carts CartStore,
	products ProductLookup,
	links LinkBuilder,
	builder *order.Builder,
	opts CheckoutOptions,
) *CheckoutService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &CheckoutService{
		orders:   orders,
		events:   events,
		locker:   locker,
		idem:     idem,
		carts:    carts,
		products: products,
		links:    links,
		builder:  builder,
		opts:     opts,
		logger:   util.GetLogger(),
	}
}

// CheckoutResult is returned to the client, which opens DeepLink
type CheckoutResult struct {
	OrderID   string          `json:"orderId"`
	InvoiceID string          `json:"invoiceId"`
	ItemCount int             `json:"itemCount"`
	Total     decimal.Decimal `json:"total"`
	Message   string          `json:"message"`
	DeepLink  string          `json:"deepLink"`
	States    []State         `json:"states"`
}

// BuyNowRequest checks out a single product without touching the cart
type BuyNowRequest struct {
	Category  models.Category `json:"category"`
	SKU       string          `json:"sku" binding:"required"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size"`
	Thickness string          `json:"thickness"`
	Session   string          `json:"-"`
}

type attempt struct {
	states []State
}

func newAttempt() *attempt {
	return &attempt{states: []State{StateIdle}}
}

func (a *attempt) to(s State) {
	a.states = append(a.states, s)
}

// Checkout writes rec and then builds the deep link carrying msg. A write
// failure is not retried and produces no link. A link failure after a
// successful write is reported as one failure; the record stays written.
func (s *CheckoutService) Checkout(ctx context.Context, rec *models.OrderRecord, msg string) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", rec.OrderID))

	start := time.Now()
	a := newAttempt()

	a.to(StateWriting)
	if err := s.orders.CreateOrder(ctx, rec); err != nil {
		a.to(StateFailure)
		a.to(StateIdle)
		util.CheckoutFailedTotal.WithLabelValues("write").Inc()
		s.logger.Error("Order write failed", zap.String("order_id", rec.OrderID), zap.Error(err))
		return nil, util.RecordError(span, &CheckoutError{Stage: StateWriting, Kind: ErrOrderWrite, Err: err, States: a.states})
	}
	a.to(StateSuccess)
	util.OrdersCreatedTotal.Inc()

	link, err := s.links.Build(msg)
	if err != nil {
		a.to(StateFailure)
		a.to(StateIdle)
		util.CheckoutFailedTotal.WithLabelValues("link").Inc()
		s.logger.Warn("Order written but deep link failed",
			zap.String("order_id", rec.OrderID),
			zap.Error(err))
		return nil, util.RecordError(span, &CheckoutError{Stage: StateSuccess, OrderID: rec.OrderID, Kind: ErrDeepLink, Err: err, States: a.states})
	}
	a.to(StateOpened)
	util.CheckoutLatency.Observe(time.Since(start).Seconds())

	if s.events != nil {
		if err := s.events.PublishOrderPlaced(ctx, rec); err != nil {
			s.logger.Warn("Failed to publish OrderPlaced event", zap.String("order_id", rec.OrderID), zap.Error(err))
		}
	}

	s.logger.Info("Checkout completed",
		zap.String("order_id", rec.OrderID),
		zap.Int("item_count", rec.ItemCount),
		zap.String("total", rec.Total.String()))

	return &CheckoutResult{
		OrderID:   rec.OrderID,
		InvoiceID: rec.InvoiceID,
		ItemCount: rec.ItemCount,
		Total:     rec.Total,
		Message:   msg,
		DeepLink:  link,
		States:    a.states,
	}, nil
}

// CheckoutCart checks out the session's cart. An empty cart is rejected
// before anything is written.
func (s *CheckoutService) CheckoutCart(ctx context.Context, session, idempotencyKey string) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CheckoutCart")
	defer span.End()

	util.CheckoutAttemptsTotal.WithLabelValues("cart").Inc()

	scope := "cart:" + session
	if res, ok := s.replay(ctx, scope, idempotencyKey); ok {
		return res, nil
	}

	release, err := s.lock(ctx, "checkout:"+session)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	defer release()

	c := s.carts.Get(ctx, session)
	if c.IsEmpty() {
		util.CheckoutFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, order.ErrEmptyCart
	}

	rec, err := s.builder.FromCart(c.Items())
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues("invalid_cart").Inc()
		return nil, util.RecordError(span, err)
	}

	res, err := s.Checkout(ctx, rec, s.builder.Message(rec))
	if err != nil {
		return nil, err
	}

	if s.opts.ClearCart {
		s.carts.Clear(ctx, session)
	}
	s.remember(ctx, scope, idempotencyKey, res)
	return res, nil
}

// BuyNow checks out a single product
func (s *CheckoutService) BuyNow(ctx context.Context, req *BuyNowRequest, idempotencyKey string) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.BuyNow")
	defer span.End()

	util.CheckoutAttemptsTotal.WithLabelValues("buy_now").Inc()

	scope := "buy-now:" + req.Session + ":" + string(req.Category) + ":" + req.SKU
	if res, ok := s.replay(ctx, scope, idempotencyKey); ok {
		return res, nil
	}

	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := s.products.GetBySKU(ctx, req.Category, req.SKU)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	rec, err := s.builder.FromProduct(*product, req.Quantity, req.Size, req.Thickness)
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	res, err := s.Checkout(ctx, rec, s.builder.Message(rec))
	if err != nil {
		return nil, err
	}
	s.remember(ctx, scope, idempotencyKey, res)
	return res, nil
}

func (s *CheckoutService) lock(ctx context.Context, key string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	ok, err := s.locker.AcquireLock(ctx, key, s.opts.LockTTL)
	if err != nil {
		// Redis outages degrade to an unguarded checkout.
		s.logger.Warn("Failed to acquire checkout lock", zap.String("key", key), zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		util.CheckoutFailedTotal.WithLabelValues("in_progress").Inc()
		return nil, ErrCheckoutInProgress
	}

	return func() {
		if err := s.locker.ReleaseLock(context.Background(), key); err != nil {
			s.logger.Warn("Failed to release checkout lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// resultKey namespaces a client key by the caller and route it was sent
// with, so equal keys from different sessions never share a result.
func resultKey(scope, key string) string {
	return "checkout-result:" + scope + ":" + key
}

func (s *CheckoutService) replay(ctx context.Context, scope, key string) (*CheckoutResult, bool) {
	if key == "" || s.idem == nil {
		return nil, false
	}

	data, found, err := s.idem.GetIdempotencyKey(ctx, resultKey(scope, key))
	if err != nil || !found {
		return nil, false
	}

	var res CheckoutResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false
	}

	s.logger.Info("Duplicate checkout request detected",
		zap.String("idempotency_key", key),
		zap.String("order_id", res.OrderID))
	return &res, true
}

func (s *CheckoutService) remember(ctx context.Context, scope, key string, res *CheckoutResult) {
	if key == "" || s.idem == nil {
		return
	}

	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.idem.SetIdempotencyKey(ctx, resultKey(scope, key), data, s.opts.IdempotencyTTL); err != nil {
		s.logger.Warn("Failed to store idempotency key", zap.String("idempotency_key", key), zap.Error(err))
	}
}
