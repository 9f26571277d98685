// Package cart holds the per-session shopping cart, its durable snapshot and
// the change notifications other parts of the storefront subscribe to.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"
	"storefront/internal/pricing"

	"github.com/shopspring/decimal"
)

var ErrInvalidItem = errors.New("invalid cart item")

// Cart is an ordered list of line items with at most one entry per sku.
type Cart struct {
	items []models.CartLineItem
}

// New builds a cart from a snapshot, collapsing any duplicate skus.
func New(items ...models.CartLineItem) *Cart {
	return &Cart{items: pricing.MergeBySKU(items)}
}

// Add appends the item, or adds its quantity to the existing line with the same sku.
func (c *Cart) Add(item models.CartLineItem) error {
	item.ProductSKU = strings.TrimSpace(item.ProductSKU)
	if item.ProductSKU == "" {
		return fmt.Errorf("%w: missing sku", ErrInvalidItem)
	}
	if item.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidItem, item.Quantity)
	}
	if !item.UnitPrice.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", ErrInvalidItem, item.UnitPrice)
	}

	for i := range c.items {
		if c.items[i].ProductSKU == item.ProductSKU {
			c.items[i].Quantity += item.Quantity
			return nil
		}
	}
	c.items = append(c.items, item)
	return nil
}

// Remove drops the line for sku. Removing an absent sku is a no-op.
func (c *Cart) Remove(sku string) bool {
	for i := range c.items {
		if c.items[i].ProductSKU == sku {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []models.CartLineItem {
	out := make([]models.CartLineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int { return len(c.items) }

func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

// Count is the number of units across all lines.
func (c *Cart) Count() int { return pricing.Quantity(c.items) }

func (c *Cart) Total() decimal.Decimal { return pricing.Total(c.items) }

// MarshalJSON writes the snapshot as a bare array of line items.
func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Items())
}

func (c *Cart) UnmarshalJSON(b []byte) error {
	var items []models.CartLineItem
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	c.items = pricing.MergeBySKU(items)
	return nil
}
