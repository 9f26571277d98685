package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category selects the product collection a record lives in.
type Category string

const (
	CategoryMattress Category = "mattress"
	CategoryPillow   Category = "pillow"
)

// ParseCategory accepts both the route form ("mattress") and the plural used in links.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "mattress", "mattresses":
		return CategoryMattress, true
	case "pillow", "pillows":
		return CategoryPillow, true
	}
	return "", false
}

// Collection returns the document collection holding this category.
func (c Category) Collection() string {
	switch c {
	case CategoryPillow:
		return "pillowProducts"
	default:
		return "mattressProducts"
	}
}

// Product is the canonical catalog entry. Every inbound record is normalized
// into this shape before business logic sees it.
type Product struct {
	ID          string          `json:"id"`
	Category    Category        `json:"category"`
	SKU         string          `json:"sku"`
	Title       string          `json:"title"`
	Brand       string          `json:"brand,omitempty"`
	Type        string          `json:"type,omitempty"`
	Firmness    string          `json:"firmness,omitempty"`
	Material    string          `json:"material,omitempty"`
	Description string          `json:"description,omitempty"`
	Warranty    string          `json:"warranty,omitempty"`
	Price       decimal.Decimal `json:"price"`
	OldPrice    decimal.Decimal `json:"oldPrice"`
	InStock     bool            `json:"inStock"`
	Stock       int             `json:"stock"`
	Sizes       []string        `json:"sizes"`
	Thicknesses []string        `json:"thicknesses"`
	Images      []string        `json:"images"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// DiscountPercent is the rounded saving against the old price, 0 when there is none.
func (p Product) DiscountPercent() int {
	if p.OldPrice.LessThanOrEqual(p.Price) || p.OldPrice.IsZero() {
		return 0
	}
	return int(p.OldPrice.Sub(p.Price).Div(p.OldPrice).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// PrimaryImage returns the first image or an empty string.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// RawProduct is a product document as stored by the back-office. Field types
// vary between records (price as "₹12,000" or 12000, size as a string or a list).
type RawProduct struct {
	ID           string    `json:"id,omitempty" bson:"-"`
	SKU          string    `json:"sku" bson:"sku"`
	Title        string    `json:"title" bson:"title"`
	Brand        string    `json:"brand,omitempty" bson:"brand,omitempty"`
	Type         string    `json:"type,omitempty" bson:"type,omitempty"`
	Firmness     string    `json:"firmness,omitempty" bson:"firmness,omitempty"`
	Material     string    `json:"material,omitempty" bson:"material,omitempty"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty"`
	Warranty     string    `json:"warranty,omitempty" bson:"warranty,omitempty"`
	Price        any       `json:"price" bson:"price"`
	NumericPrice any       `json:"numericPrice,omitempty" bson:"numericPrice,omitempty"`
	OldPrice     any       `json:"oldPrice,omitempty" bson:"oldPrice,omitempty"`
	LegacyOld    any       `json:"oldprice,omitempty" bson:"oldprice,omitempty"`
	InStock      any       `json:"instock,omitempty" bson:"instock,omitempty"`
	Stock        any       `json:"stock,omitempty" bson:"stock,omitempty"`
	Size         any       `json:"size,omitempty" bson:"size,omitempty"`
	Thickness    any       `json:"thickness,omitempty" bson:"thickness,omitempty"`
	Images       []string  `json:"images,omitempty" bson:"images,omitempty"`
	Image        string    `json:"image,omitempty" bson:"image,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// CartLineItem is one product variant in a cart. SKU is unique within a cart.
type CartLineItem struct {
	ProductSKU        string          `json:"sku"`
	Title             string          `json:"title"`
	UnitPrice         decimal.Decimal `json:"price"`
	Quantity          int             `json:"quantity"`
	SelectedSize      string          `json:"selectedSize,omitempty"`
	SelectedThickness string          `json:"selectedThickness,omitempty"`
	ImageRef          string          `json:"image,omitempty"`
}

// OrderStatus values
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusConfirmed OrderStatus = "Confirmed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderSourceWhatsApp tags orders placed through the messaging checkout.
const OrderSourceWhatsApp = "WhatsApp"

// NotProvided fills customer fields the back-office left blank.
const NotProvided = "Not Provided"

// OrderItem is the snapshot of a cart line stored on the order, with the
// price already rendered for display.
type OrderItem struct {
	SKU       string `json:"sku"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Thickness string `json:"thickness,omitempty"`
	Image     string `json:"image,omitempty"`
}

// OrderItems is stored as a JSONB column.
type OrderItems []OrderItem

func (o OrderItems) Value() (driver.Value, error) {
	if o == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

func (o *OrderItems) Scan(src any) error {
	return scanJSON(src, o)
}

// Customer is filled in by the back-office after the buyer makes contact.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (c Customer) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *Customer) Scan(src any) error {
	return scanJSON(src, c)
}

// OrderRecord is the durable representation of a checkout attempt.
type OrderRecord struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   string          `db:"order_id" json:"orderId"`
	InvoiceID string          `db:"invoice_id" json:"invoiceId"`
	Items     OrderItems      `db:"items" json:"items"`
	ItemCount int             `db:"item_count" json:"itemCount"`
	Total     decimal.Decimal `db:"total" json:"total"`
	Customer  Customer        `db:"customer" json:"customer"`
	Status    OrderStatus     `db:"status" json:"status"`
	Source    string          `db:"source" json:"orderSource"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// OrderFilter narrows the back-office order list.
type OrderFilter struct {
	Status OrderStatus
	Search string
	Limit  int
	Offset int
}

// OrderOverview aggregates the order collection for the dashboard.
type OrderOverview struct {
	TotalOrders int                 `json:"totalOrders"`
	TotalSales  decimal.Decimal     `json:"totalSales"`
	ByStatus    map[OrderStatus]int `json:"byStatus"`
}

// Slider is a hero banner on the home page.
type Slider struct {
	ID            string    `json:"id" bson:"-"`
	Image         string    `json:"image" bson:"image"`
	Title         string    `json:"title" bson:"title"`
	Description   string    `json:"description" bson:"description"`
	ButtonText    string    `json:"buttonText" bson:"buttonText"`
	OfferTitle    string    `json:"offerTitle" bson:"offerTitle"`
	DiscountText  string    `json:"discountText" bson:"discountText"`
	CountdownDate string    `json:"countdownDate" bson:"countdownDate"`
	Position      int       `json:"position" bson:"position"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// Video is an embedded YouTube video shown on the storefront.
type Video struct {
	ID        string    `json:"id" bson:"-"`
	URL       string    `json:"url" bson:"url"`
	VideoID   string    `json:"videoId" bson:"videoId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Media describes an uploaded binary and where it can be fetched from.
type Media struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// CatalogChange is one live update on a product collection.
type CatalogChange struct {
	Category  Category    `json:"category"`
	Operation string      `json:"operation"`
	ID        string      `json:"id"`
	Product   *RawProduct `json:"-"`
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}

// ErrNotFound is returned by repositories when a document does not exist.
var ErrNotFound = errors.New("not found")
