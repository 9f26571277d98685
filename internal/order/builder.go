// Package order turns a cart or a single product into an order record and
// the WhatsApp message that accompanies it.
package order

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/pricing"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Builder creates order records. Identifiers are derived from the clock.
type Builder struct {
	storeName string
	now       func() time.Time
	intn      func(n int) int
}

// NewBuilder creates a builder whose messages are signed with storeName.
func NewBuilder(storeName string) *Builder {
	return &Builder{
		storeName: storeName,
		now:       time.Now,
		intn:      rand.Intn,
	}
}

// FromCart snapshots the cart lines into a pending order.
func (b *Builder) FromCart(items []models.CartLineItem) (*models.OrderRecord, error) {
	items = pricing.MergeBySKU(items)
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("%w: sku %s", ErrInvalidQuantity, it.ProductSKU)
		}
	}

	now := b.now()
	ms := now.UnixMilli()

	record := &models.OrderRecord{
		OrderID:   fmt.Sprintf("WA-%d-%d", ms, b.intn(1000)),
		InvoiceID: fmt.Sprintf("INV-%d", ms),
		Items:     make(models.OrderItems, 0, len(items)),
		ItemCount: pricing.Quantity(items),
		Total:     pricing.Total(items),
		Status:    models.OrderStatusPending,
		Source:    models.OrderSourceWhatsApp,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, it := range items {
		record.Items = append(record.Items, models.OrderItem{
			SKU:       it.ProductSKU,
			Title:     it.Title,
			Price:     pricing.Format(it.UnitPrice),
			Quantity:  it.Quantity,
			Size:      it.SelectedSize,
			Thickness: it.SelectedThickness,
			Image:     it.ImageRef,
		})
	}

	return record, nil
}

// FromProduct builds a "buy now" order for a single product variant.
func (b *Builder) FromProduct(p models.Product, quantity int, size, thickness string) (*models.OrderRecord, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if size == "" && len(p.Sizes) > 0 {
		size = p.Sizes[0]
	}
	if thickness == "" && len(p.Thicknesses) > 0 {
		thickness = p.Thicknesses[0]
	}

	return b.FromCart([]models.CartLineItem{{
		ProductSKU:        p.SKU,
		Title:             p.Title,
		UnitPrice:         p.Price,
		Quantity:          quantity,
		SelectedSize:      size,
		SelectedThickness: thickness,
		ImageRef:          p.PrimaryImage(),
	}})
}

// Message renders the order for the messaging channel.
func (b *Builder) Message(record *models.OrderRecord) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "🛒 *New Order from %s*\n\n", b.storeName)
	fmt.Fprintf(&sb, "📋 *Order ID:* %s\n", record.OrderID)
	fmt.Fprintf(&sb, "🧾 *Invoice:* %s\n", record.InvoiceID)

	for i, it := range record.Items {
		sb.WriteString("\n")
		if len(record.Items) > 1 {
			fmt.Fprintf(&sb, "*Item %d*\n", i+1)
		}
		fmt.Fprintf(&sb, "📦 *Product:* %s\n", it.Title)
		fmt.Fprintf(&sb, "📏 *Size:* %s\n", orNA(it.Size))
		fmt.Fprintf(&sb, "📐 *Thickness:* %s\n", orNA(it.Thickness))
		fmt.Fprintf(&sb, "🔢 *Quantity:* %d\n", it.Quantity)
		fmt.Fprintf(&sb, "💵 *Price:* %s\n", it.Price)
	}

	fmt.Fprintf(&sb, "\n💰 *Total:* %s\n\n", pricing.Format(record.Total))
	sb.WriteString("I would like to proceed with this order.")

	return sb.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
