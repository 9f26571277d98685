// Package catalog holds the product rules of the storefront: normalizing
// stored records, filtering and sorting listings, and generating SKUs.
package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"storefront/internal/models"
	"storefront/internal/pricing"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
	ErrUnknownCategory = errors.New("unknown category")
)

// Normalize converts a stored record into the canonical product shape.
func Normalize(raw models.RawProduct, category models.Category) (models.Product, error) {
	p := models.Product{
		ID:          raw.ID,
		Category:    category,
		SKU:         strings.TrimSpace(raw.SKU),
		Title:       strings.TrimSpace(raw.Title),
		Brand:       raw.Brand,
		Type:        raw.Type,
		Firmness:    raw.Firmness,
		Material:    raw.Material,
		Description: raw.Description,
		Warranty:    raw.Warranty,
		Sizes:       stringList(raw.Size),
		Thicknesses: stringList(raw.Thickness),
		CreatedAt:   raw.CreatedAt,
	}

	price, err := resolvePrice(raw)
	if err != nil {
		return models.Product{}, fmt.Errorf("%w: sku %q: %v", ErrInvalidProduct, raw.SKU, err)
	}
	p.Price = price

	if old := firstPresent(raw.OldPrice, raw.LegacyOld); old != nil {
		if d, err := pricing.Parse(old); err == nil {
			p.OldPrice = d
		}
	}

	p.Stock = intValue(raw.Stock)
	p.InStock = stockFlag(raw.InStock, raw.Stock)

	p.Images = make([]string, 0, len(raw.Images)+1)
	for _, img := range raw.Images {
		if img = strings.TrimSpace(img); img != "" {
			p.Images = append(p.Images, img)
		}
	}
	if len(p.Images) == 0 && strings.TrimSpace(raw.Image) != "" {
		p.Images = append(p.Images, strings.TrimSpace(raw.Image))
	}

	return p, nil
}

// ToRaw converts a canonical product into the stored shape. Prices are
// written as numbers so later reads take the fast path.
func ToRaw(p models.Product) models.RawProduct {
	raw := models.RawProduct{
		ID:          p.ID,
		SKU:         p.SKU,
		Title:       p.Title,
		Brand:       p.Brand,
		Type:        p.Type,
		Firmness:    p.Firmness,
		Material:    p.Material,
		Description: p.Description,
		Warranty:    p.Warranty,
		Price:       p.Price.InexactFloat64(),
		InStock:     p.InStock,
		Stock:       p.Stock,
		Images:      p.Images,
		CreatedAt:   p.CreatedAt,
	}
	if !p.OldPrice.IsZero() {
		raw.OldPrice = p.OldPrice.InexactFloat64()
	}
	if len(p.Sizes) > 0 {
		raw.Size = p.Sizes
	}
	if len(p.Thicknesses) > 0 {
		raw.Thickness = p.Thicknesses
	}
	return raw
}

// Validate checks the fields the back-office must always supply.
func Validate(p models.Product) error {
	switch {
	case strings.TrimSpace(p.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidProduct)
	case strings.TrimSpace(p.SKU) == "":
		return fmt.Errorf("%w: sku is required", ErrInvalidProduct)
	case !p.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidProduct)
	}
	return nil
}

func resolvePrice(raw models.RawProduct) (decimal.Decimal, error) {
	if raw.NumericPrice != nil {
		if d, err := pricing.Parse(raw.NumericPrice); err == nil && d.IsPositive() {
			return d, nil
		}
	}
	return pricing.Parse(raw.Price)
}

func firstPresent(vals ...any) any {
	for _, v := range vals {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

// stringList accepts a single value, a comma separated string or any slice.
func stringList(v any) []string {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if s := strings.TrimSpace(fmt.Sprint(rv.Index(i).Interface())); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{fmt.Sprint(v)}
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(strings.TrimSpace(n))
		return i
	}
	return 0
}

func stockFlag(flag, stock any) bool {
	switch f := flag.(type) {
	case bool:
		return f
	case string:
		s := strings.ToLower(strings.TrimSpace(f))
		return s == "true" || s == "yes" || s == "in stock" || s == "instock"
	}
	if stock != nil {
		return intValue(stock) > 0
	}
	return true
}
