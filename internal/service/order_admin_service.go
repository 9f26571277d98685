package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"storefront/internal/models"
	"storefront/internal/report"
	"storefront/internal/util"

	"go.uber.org/zap"
)

var (
	ErrInvalidStatus = errors.New("invalid order status")
	ErrPhoneRequired = errors.New("customer phone is required")
)

const defaultOrdersPage = 10

// OrderRepository is the back-office view of the order ledger
type OrderRepository interface {
	GetOrder(ctx context.Context, orderID string) (*models.OrderRecord, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.OrderRecord, int, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (models.OrderStatus, error)
	UpdateOrderCustomer(ctx context.Context, orderID string, customer models.Customer) error
	DeleteOrder(ctx context.Context, orderID string) error
	GetOverview(ctx context.Context) (*models.OrderOverview, error)
}

// OrderAdminService handles back-office order management
type OrderAdminService struct {
	orders   OrderRepository
	events   OrderEvents
	pageSize int
	logger   *zap.Logger
}

// NewOrderAdminService creates a new order admin service
func NewOrderAdminService(orders OrderRepository, events OrderEvents, pageSize int) *OrderAdminService {
	if pageSize <= 0 {
		pageSize = defaultOrdersPage
	}
	return &OrderAdminService{
		orders:   orders,
		events:   events,
		pageSize: pageSize,
		logger:   util.Named("order-admin"),
	}
}

// OrderListRequest is a back-office list query
type OrderListRequest struct {
	Status models.OrderStatus
	Search string
	Page   int
}

// OrderPage is one page of the order list
type OrderPage struct {
	Orders     []models.OrderRecord `json:"orders"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	TotalPages int                  `json:"totalPages"`
}

// List returns orders newest first, filtered and paginated
func (s *OrderAdminService) List(ctx context.Context, req OrderListRequest) (*OrderPage, error) {
	ctx, span := util.StartSpan(ctx, "OrderAdminService.List")
	defer span.End()

	if req.Status != "" && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}
	if req.Page < 1 {
		req.Page = 1
	}

	orders, total, err := s.orders.ListOrders(ctx, models.OrderFilter{
		Status: req.Status,
		Search: strings.TrimSpace(req.Search),
		Limit:  s.pageSize,
		Offset: (req.Page - 1) * s.pageSize,
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	return &OrderPage{
		Orders:     orders,
		Total:      total,
		Page:       req.Page,
		PageSize:   s.pageSize,
		TotalPages: (total + s.pageSize - 1) / s.pageSize,
	}, nil
}

// Get returns a single order
func (s *OrderAdminService) Get(ctx context.Context, orderID string) (*models.OrderRecord, error) {
	return s.orders.GetOrder(ctx, orderID)
}

// UpdateStatus moves an order to status and announces the change
func (s *OrderAdminService) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	ctx, span := util.StartSpan(ctx, "OrderAdminService.UpdateStatus")
	defer span.End()

	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	previous, err := s.orders.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		return util.RecordError(span, err)
	}
	util.OrderStatusUpdatesTotal.WithLabelValues(string(status)).Inc()

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)))

	if s.events != nil && previous != status {
		if err := s.events.PublishOrderStatusChanged(ctx, orderID, previous, status); err != nil {
			s.logger.Warn("Failed to publish OrderStatusChanged event", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return nil
}

// UpdateCustomer stores the buyer's contact details. Phone is required;
// blank name and address are recorded as "Not Provided".
func (s *OrderAdminService) UpdateCustomer(ctx context.Context, orderID string, customer models.Customer) (models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "OrderAdminService.UpdateCustomer")
	defer span.End()

	customer.Phone = strings.TrimSpace(customer.Phone)
	if customer.Phone == "" {
		return models.Customer{}, ErrPhoneRequired
	}
	customer.Name = orNotProvided(customer.Name)
	customer.Address = orNotProvided(customer.Address)

	if err := s.orders.UpdateOrderCustomer(ctx, orderID, customer); err != nil {
		return models.Customer{}, util.RecordError(span, err)
	}

	if s.events != nil {
		if err := s.events.PublishOrderUpdated(ctx, orderID, customer); err != nil {
			s.logger.Warn("Failed to publish OrderUpdated event", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return customer, nil
}

// Delete removes an order
func (s *OrderAdminService) Delete(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "OrderAdminService.Delete")
	defer span.End()

	if err := s.orders.DeleteOrder(ctx, orderID); err != nil {
		return util.RecordError(span, err)
	}
	s.logger.Info("Order deleted", zap.String("order_id", orderID))

	if s.events != nil {
		if err := s.events.PublishOrderDeleted(ctx, orderID); err != nil {
			s.logger.Warn("Failed to publish OrderDeleted event", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return nil
}

// Overview aggregates the order ledger
func (s *OrderAdminService) Overview(ctx context.Context) (*models.OrderOverview, error) {
	return s.orders.GetOverview(ctx)
}

// Export writes every order matching req (ignoring its page) as a workbook
func (s *OrderAdminService) Export(ctx context.Context, req OrderListRequest, w io.Writer) error {
	ctx, span := util.StartSpan(ctx, "OrderAdminService.Export")
	defer span.End()

	if req.Status != "" && !req.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}

	orders, _, err := s.orders.ListOrders(ctx, models.OrderFilter{
		Status: req.Status,
		Search: strings.TrimSpace(req.Search),
	})
	if err != nil {
		return util.RecordError(span, err)
	}
	return report.WriteOrders(w, orders)
}

func orNotProvided(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return models.NotProvided
	}
	return s
}
