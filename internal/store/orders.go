package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

var ErrOrderNotFound = errors.New("order not found")

const orderColumns = `id, order_id, invoice_id, items, item_count, total, customer, status, source, created_at, updated_at`

// CreateOrder inserts the order record written at checkout
func (s *Store) CreateOrder(ctx context.Context, order *models.OrderRecord) error {
	query := `
		INSERT INTO whatsapp_orders (order_id, invoice_id, items, item_count, total, customer, status, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	return s.db.GetContext(ctx, &order.ID, query,
		order.OrderID, order.InvoiceID, order.Items, order.ItemCount, order.Total,
		order.Customer, order.Status, order.Source, order.CreatedAt, order.UpdatedAt)
}

// GetOrder retrieves an order by its public order id
func (s *Store) GetOrder(ctx context.Context, orderID string) (*models.OrderRecord, error) {
	var order models.OrderRecord
	err := s.db.GetContext(ctx, &order,
		"SELECT "+orderColumns+" FROM whatsapp_orders WHERE order_id = $1", orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns one page of orders, newest first, and the total matching count
func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.OrderRecord, int, error) {
	where, args := buildOrderFilter(filter)

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM whatsapp_orders"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := "SELECT " + orderColumns + " FROM whatsapp_orders" + where + " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	orders := []models.OrderRecord{}
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// buildOrderFilter renders the WHERE clause shared by the list and count queries
func buildOrderFilter(f models.OrderFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(order_id ILIKE $%[1]d
			OR customer->>'name' ILIKE $%[1]d
			OR customer->>'phone' ILIKE $%[1]d
			OR EXISTS (SELECT 1 FROM jsonb_array_elements(items) it WHERE it->>'title' ILIKE $%[1]d))`, n))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// UpdateOrderStatus updates order status and returns the previous one
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (models.OrderStatus, error) {
	var previous models.OrderStatus
	err := s.db.GetContext(ctx, &previous, `
		UPDATE whatsapp_orders o SET status = $1, updated_at = NOW()
		FROM (SELECT id, status FROM whatsapp_orders WHERE order_id = $2 FOR UPDATE) prev
		WHERE o.id = prev.id
		RETURNING prev.status`, status, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return previous, err
}

// UpdateOrderCustomer replaces the customer details of an order
func (s *Store) UpdateOrderCustomer(ctx context.Context, orderID string, customer models.Customer) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE whatsapp_orders SET customer = $1, updated_at = NOW() WHERE order_id = $2",
		customer, orderID)
	if err != nil {
		return err
	}
	return expectOneRow(res, orderID)
}

// DeleteOrder removes an order
func (s *Store) DeleteOrder(ctx context.Context, orderID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM whatsapp_orders WHERE order_id = $1", orderID)
	if err != nil {
		return err
	}
	return expectOneRow(res, orderID)
}

// GetOverview aggregates order counts and sales for the dashboard
func (s *Store) GetOverview(ctx context.Context) (*models.OrderOverview, error) {
	var rows []struct {
		Status models.OrderStatus  `db:"status"`
		Count  int                 `db:"count"`
		Sales  decimal.NullDecimal `db:"sales"`
	}
	err := s.db.SelectContext(ctx, &rows,
		"SELECT status, COUNT(*) AS count, SUM(total) AS sales FROM whatsapp_orders GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate orders: %w", err)
	}

	overview := &models.OrderOverview{ByStatus: make(map[models.OrderStatus]int)}
	for _, r := range rows {
		overview.TotalOrders += r.Count
		overview.ByStatus[r.Status] = r.Count
		if r.Sales.Valid {
			overview.TotalSales = overview.TotalSales.Add(r.Sales.Decimal)
		}
	}
	return overview, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}

func expectOneRow(res sql.Result, orderID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return nil
}
