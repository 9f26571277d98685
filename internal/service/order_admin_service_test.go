package service

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

type memoryLedger struct {
	mu         sync.Mutex
	orders     map[string]*models.OrderRecord
	lastFilter models.OrderFilter
}

func newMemoryLedger(orders ...models.OrderRecord) *memoryLedger {
	l := &memoryLedger{orders: make(map[string]*models.OrderRecord)}
	for i := range orders {
		o := orders[i]
		l.orders[o.OrderID] = &o
	}
	return l
}

func (l *memoryLedger) GetOrder(ctx context.Context, orderID string) (*models.OrderRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[orderID]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	c := *o
	return &c, nil
}

func (l *memoryLedger) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.OrderRecord, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastFilter = f

	var out []models.OrderRecord
	for _, o := range l.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(o.OrderID, f.Search) {
			continue
		}
		out = append(out, *o)
	}
	total := len(out)
	if f.Offset < len(out) {
		out = out[f.Offset:]
	} else {
		out = nil
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (l *memoryLedger) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (models.OrderStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[orderID]
	if !ok {
		return "", store.ErrOrderNotFound
	}
	prev := o.Status
	o.Status = status
	return prev, nil
}

func (l *memoryLedger) UpdateOrderCustomer(ctx context.Context, orderID string, customer models.Customer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[orderID]
	if !ok {
		return store.ErrOrderNotFound
	}
	o.Customer = customer
	return nil
}

func (l *memoryLedger) DeleteOrder(ctx context.Context, orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.orders[orderID]; !ok {
		return store.ErrOrderNotFound
	}
	delete(l.orders, orderID)
	return nil
}

func (l *memoryLedger) GetOverview(ctx context.Context) (*models.OrderOverview, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ov := &models.OrderOverview{ByStatus: map[models.OrderStatus]int{}}
	for _, o := range l.orders {
		ov.TotalOrders++
		ov.TotalSales = ov.TotalSales.Add(o.Total)
		ov.ByStatus[o.Status]++
	}
	return ov, nil
}

func sampleOrder(id string, status models.OrderStatus) models.OrderRecord {
	return models.OrderRecord{
		OrderID:   id,
		InvoiceID: "INV-" + id,
		Items:     models.OrderItems{{SKU: "A", Title: "Ortho", Price: "₹1,000", Quantity: 1}},
		ItemCount: 1,
		Total:     decimal.NewFromInt(1000),
		Status:    status,
		Source:    models.OrderSourceWhatsApp,
		CreatedAt: time.Now(),
	}
}

func TestOrderAdmin_ListPaginates(t *testing.T) {
	var orders []models.OrderRecord
	for i := 0; i < 12; i++ {
		orders = append(orders, sampleOrder("WA-"+string(rune('a'+i)), models.OrderStatusPending))
	}
	ledger := newMemoryLedger(orders...)
	svc := NewOrderAdminService(ledger, nil, 0)

	page, err := svc.List(context.Background(), OrderListRequest{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, 10, ledger.lastFilter.Offset)

	_, err = svc.List(context.Background(), OrderListRequest{Status: "Shipped"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOrderAdmin_UpdateStatus(t *testing.T) {
	ledger := newMemoryLedger(sampleOrder("WA-1", models.OrderStatusPending))
	events := &recordingEvents{}
	svc := NewOrderAdminService(ledger, events, 10)
	ctx := context.Background()

	require.NoError(t, svc.UpdateStatus(ctx, "WA-1", models.OrderStatusConfirmed))
	assert.Equal(t, []models.OrderStatus{models.OrderStatusConfirmed}, events.changed)

	// same status: nothing to announce
	require.NoError(t, svc.UpdateStatus(ctx, "WA-1", models.OrderStatusConfirmed))
	assert.Len(t, events.changed, 1)

	assert.ErrorIs(t, svc.UpdateStatus(ctx, "WA-1", "Lost"), ErrInvalidStatus)
	assert.ErrorIs(t, svc.UpdateStatus(ctx, "WA-404", models.OrderStatusCancelled), store.ErrOrderNotFound)
}

func TestOrderAdmin_UpdateCustomer(t *testing.T) {
	ledger := newMemoryLedger(sampleOrder("WA-1", models.OrderStatusPending))
	svc := NewOrderAdminService(ledger, &recordingEvents{}, 10)
	ctx := context.Background()

	_, err := svc.UpdateCustomer(ctx, "WA-1", models.Customer{Name: "Asha"})
	assert.ErrorIs(t, err, ErrPhoneRequired)

	c, err := svc.UpdateCustomer(ctx, "WA-1", models.Customer{Phone: " 98765 43210 "})
	require.NoError(t, err)
	assert.Equal(t, models.NotProvided, c.Name)
	assert.Equal(t, models.NotProvided, c.Address)
	assert.Equal(t, "98765 43210", c.Phone)

	o, err := svc.Get(ctx, "WA-1")
	require.NoError(t, err)
	assert.Equal(t, c, o.Customer)
}

func TestOrderAdmin_DeleteAndOverview(t *testing.T) {
	ledger := newMemoryLedger(
		sampleOrder("WA-1", models.OrderStatusPending),
		sampleOrder("WA-2", models.OrderStatusConfirmed),
	)
	events := &recordingEvents{}
	svc := NewOrderAdminService(ledger, events, 10)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, "WA-1"))
	assert.Equal(t, []string{"WA-1"}, events.deleted)
	assert.ErrorIs(t, svc.Delete(ctx, "WA-1"), store.ErrOrderNotFound)

	ov, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ov.TotalOrders)
	assert.Equal(t, "1000", ov.TotalSales.String())
	assert.Equal(t, 1, ov.ByStatus[models.OrderStatusConfirmed])
}

func TestOrderAdmin_ExportIgnoresPagination(t *testing.T) {
	var orders []models.OrderRecord
	for i := 0; i < 15; i++ {
		orders = append(orders, sampleOrder("WA-"+string(rune('a'+i)), models.OrderStatusPending))
	}
	svc := NewOrderAdminService(newMemoryLedger(orders...), nil, 10)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), OrderListRequest{Page: 3}, &buf))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, file.Sheets[0].Rows, 16)
}
