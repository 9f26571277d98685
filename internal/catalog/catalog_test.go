package catalog

import (
	"strings"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_MixedShapes(t *testing.T) {
	raw := models.RawProduct{
		ID:        "abc",
		SKU:       " ORTHO-1 ",
		Title:     "Ortho Mattress",
		Price:     "₹12,999",
		LegacyOld: "₹15,999",
		InStock:   "In Stock",
		Size:      "King, Queen",
		Thickness: []any{"6 inch", int32(8)},
		Image:     "/media/img1",
	}

	p, err := Normalize(raw, models.CategoryMattress)
	require.NoError(t, err)

	assert.Equal(t, "ORTHO-1", p.SKU)
	assert.True(t, decimal.NewFromInt(12999).Equal(p.Price))
	assert.True(t, decimal.NewFromInt(15999).Equal(p.OldPrice))
	assert.True(t, p.InStock)
	assert.Equal(t, []string{"King", "Queen"}, p.Sizes)
	assert.Equal(t, []string{"6 inch", "8"}, p.Thicknesses)
	assert.Equal(t, []string{"/media/img1"}, p.Images)
	assert.Equal(t, 19, p.DiscountPercent())
}

func TestNormalize_NumericPricePreferred(t *testing.T) {
	p, err := Normalize(models.RawProduct{SKU: "P", Price: "call us", NumericPrice: 899.0, Stock: 0.0}, models.CategoryPillow)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(899).Equal(p.Price))
	assert.False(t, p.InStock)
	assert.Equal(t, models.CategoryPillow, p.Category)
}

func TestNormalize_InvalidPrice(t *testing.T) {
	_, err := Normalize(models.RawProduct{SKU: "X", Price: "TBD"}, models.CategoryPillow)
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestToRaw_RoundTrip(t *testing.T) {
	p := models.Product{
		SKU: "A", Title: "Latex", Price: decimal.NewFromInt(5000), OldPrice: decimal.NewFromInt(6000),
		InStock: true, Stock: 4, Sizes: []string{"Single"}, Images: []string{"/media/1"},
	}

	back, err := Normalize(ToRaw(p), models.CategoryMattress)
	require.NoError(t, err)

	assert.True(t, p.Price.Equal(back.Price))
	assert.True(t, p.OldPrice.Equal(back.OldPrice))
	assert.Equal(t, p.Sizes, back.Sizes)
	assert.Equal(t, p.Images, back.Images)
	assert.True(t, back.InStock)
}

func sampleProducts() []models.Product {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(sku, title string, price int64, inStock bool, firm, typ string, age int) models.Product {
		return models.Product{
			SKU: sku, Title: title, Price: decimal.NewFromInt(price), InStock: inStock,
			Firmness: firm, Type: typ, Sizes: []string{"Standard"}, CreatedAt: base.Add(time.Duration(age) * time.Hour),
		}
	}
	return []models.Product{
		mk("p1", "Cloud Pillow", 900, true, "Soft", "Memory Foam", 1),
		mk("p2", "Alpine Pillow", 1500, false, "Medium", "Latex", 2),
		mk("p3", "Bamboo Pillow", 600, true, "Firm", "Fibre", 3),
		mk("p4", "Duo Pillow", 2500, true, "Medium", "Latex", 4),
	}
}

func TestApply_FiltersAndSorts(t *testing.T) {
	min := decimal.NewFromInt(700)
	page := Apply(sampleProducts(), Query{
		Availability: AvailabilityInStock,
		MinPrice:     &min,
		Sort:         SortPriceAsc,
	})

	require.Equal(t, 2, page.Total)
	assert.Equal(t, "p1", page.Products[0].SKU)
	assert.Equal(t, "p4", page.Products[1].SKU)
	assert.True(t, decimal.NewFromInt(600).Equal(page.PriceRange.Min))
	assert.True(t, decimal.NewFromInt(2500).Equal(page.PriceRange.Max))
}

func TestApply_TypeAndFirmness(t *testing.T) {
	page := Apply(sampleProducts(), Query{Types: []string{"latex"}, Firmness: []string{"medium"}, Sort: SortAlpha})

	require.Equal(t, 2, page.Total)
	assert.Equal(t, "Alpine Pillow", page.Products[0].Title)
	assert.Equal(t, "Duo Pillow", page.Products[1].Title)
}

func TestApply_NewestFirstAndPaging(t *testing.T) {
	page := Apply(sampleProducts(), Query{PageSize: 3, Page: 2})

	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "p1", page.Products[0].SKU)

	beyond := Apply(sampleProducts(), Query{PageSize: 3, Page: 5})
	assert.Empty(t, beyond.Products)
}

func TestApply_DefaultPageSize(t *testing.T) {
	var ps []models.Product
	for i := 0; i < 20; i++ {
		ps = append(ps, models.Product{SKU: strings.Repeat("x", i+1), Price: decimal.NewFromInt(1)})
	}
	page := Apply(ps, Query{})
	assert.Len(t, page.Products, DefaultPageSize)
	assert.Equal(t, 3, page.TotalPages)
}

func TestGenerateSKU(t *testing.T) {
	sku := GenerateSKU(SKUDraft{
		Title:     "Ortho Memory Foam Mattress",
		Type:      "Mattress Firm",
		Price:     "₹12,000",
		Stock:     "5",
		Size:      "King",
		Thickness: "8 inch",
	})
	assert.Equal(t, "ortho-memory-foam-mattress-p12000-s5-szking-t8inch", sku)

	assert.Equal(t, "pillow-p500", GenerateSKU(SKUDraft{Title: "Pillow", Price: "500"}))
	assert.Equal(t, "orthopedi", GenerateSKU(SKUDraft{Title: "Orthopedic!!"}))
}

func TestLoadSeed(t *testing.T) {
	doc := `
category: pillows
products:
  - title: Cloud Pillow
    type: Memory Foam
    price: "₹1,299"
    stock: 10
    sizes: [Standard]
  - sku: LATEX-P
    title: Latex Pillow
    price: 1899
    inStock: false
`
	category, products, err := LoadSeed(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, models.CategoryPillow, category)
	require.Len(t, products, 2)
	assert.Equal(t, "cloud-pillow-memory-p1299-s10-szstandar", products[0].SKU)
	assert.True(t, decimal.NewFromInt(1299).Equal(products[0].Price))
	assert.Equal(t, "LATEX-P", products[1].SKU)
	assert.False(t, products[1].InStock)
}

func TestLoadSeed_StockDefaults(t *testing.T) {
	doc := `
category: mattresses
products:
  - sku: NO-STOCK-INFO
    title: Ortho Mattress
    price: 12000
  - sku: SOLD-OUT
    title: Spring Mattress
    price: 9000
    stock: 0
  - sku: FLAGGED
    title: Latex Mattress
    price: 15000
    stock: 0
    inStock: true
`
	_, products, err := LoadSeed(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, products, 3)

	assert.True(t, products[0].InStock)
	assert.False(t, products[1].InStock)
	assert.True(t, products[2].InStock)
}

func TestLoadSeed_UnknownCategory(t *testing.T) {
	_, _, err := LoadSeed(strings.NewReader("category: sofas\nproducts: []\n"))
	assert.ErrorIs(t, err, ErrUnknownCategory)
}
