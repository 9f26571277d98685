package catalog

import (
	"sort"
	"strings"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// Sort orders
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortAlpha     = "alpha"
)

// DefaultPageSize matches the listing grid of the category pages.
const DefaultPageSize = 9

// Availability filter values
const (
	AvailabilityAll        = ""
	AvailabilityInStock    = "in_stock"
	AvailabilityOutOfStock = "out_of_stock"
)

// Query describes a category listing request.
type Query struct {
	Availability string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Firmness     []string
	Sizes        []string
	Types        []string
	Search       string
	Sort         string
	Page         int
	PageSize     int
}

// Page is one window of a filtered listing.
type Page struct {
	Products   []models.Product `json:"products"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
	PriceRange PriceRange       `json:"priceRange"`
}

// PriceRange is the span of prices across the unfiltered listing.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Apply filters, sorts and paginates products. The input slice is not modified.
func Apply(products []models.Product, q Query) Page {
	matched := make([]models.Product, 0, len(products))
	for _, p := range products {
		if q.matches(p) {
			matched = append(matched, p)
		}
	}

	sortProducts(matched, q.Sort)

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}

	totalPages := (len(matched) + size - 1) / size
	start := (page - 1) * size
	end := start + size
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	return Page{
		Products:   matched[start:end],
		Total:      len(matched),
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
		PriceRange: priceRange(products),
	}
}

func (q Query) matches(p models.Product) bool {
	switch q.Availability {
	case AvailabilityInStock:
		if !p.InStock {
			return false
		}
	case AvailabilityOutOfStock:
		if p.InStock {
			return false
		}
	}

	if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
		return false
	}
	if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
		return false
	}
	if len(q.Firmness) > 0 && !containsFold(q.Firmness, p.Firmness) {
		return false
	}
	if len(q.Types) > 0 && !containsFold(q.Types, p.Type) {
		return false
	}
	if len(q.Sizes) > 0 && !anyFold(q.Sizes, p.Sizes) {
		return false
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		s = strings.ToLower(s)
		if !strings.Contains(strings.ToLower(p.Title), s) &&
			!strings.Contains(strings.ToLower(p.Brand), s) &&
			!strings.Contains(strings.ToLower(p.SKU), s) {
			return false
		}
	}
	return true
}

func sortProducts(ps []models.Product, order string) {
	switch order {
	case SortPriceAsc:
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Price.LessThan(ps[j].Price) })
	case SortPriceDesc:
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Price.GreaterThan(ps[j].Price) })
	case SortAlpha:
		sort.SliceStable(ps, func(i, j int) bool {
			return strings.ToLower(ps[i].Title) < strings.ToLower(ps[j].Title)
		})
	default:
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].CreatedAt.After(ps[j].CreatedAt) })
	}
}

func priceRange(ps []models.Product) PriceRange {
	var r PriceRange
	for i, p := range ps {
		if i == 0 || p.Price.LessThan(r.Min) {
			r.Min = p.Price
		}
		if i == 0 || p.Price.GreaterThan(r.Max) {
			r.Max = p.Price
		}
	}
	return r
}

func containsFold(options []string, v string) bool {
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

func anyFold(options, values []string) bool {
	for _, v := range values {
		if containsFold(options, v) {
			return true
		}
	}
	return false
}

// FindBySKU returns the product with sku from a listing.
func FindBySKU(products []models.Product, sku string) (models.Product, bool) {
	for _, p := range products {
		if strings.EqualFold(p.SKU, sku) {
			return p, true
		}
	}
	return models.Product{}, false
}
