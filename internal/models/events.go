package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeOrderUpdated       = "ORDER_UPDATED"
	EventTypeOrderDeleted       = "ORDER_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published once the order record is written and the deep link issued
type OrderPlacedEvent struct {
	BaseEvent
	OrderID   string          `json:"order_id"`
	InvoiceID string          `json:"invoice_id"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	Items     []OrderItem     `json:"items"`
	Source    string          `json:"source"`
}

// OrderStatusChangedEvent published by the back-office
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID string      `json:"order_id"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}

// OrderUpdatedEvent published when customer details are edited
type OrderUpdatedEvent struct {
	BaseEvent
	OrderID  string   `json:"order_id"`
	Customer Customer `json:"customer"`
}

// OrderDeletedEvent published when an admin removes an order
type OrderDeletedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
}
