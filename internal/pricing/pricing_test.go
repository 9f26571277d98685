package pricing

import (
	"encoding/json"
	"testing"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"rupee with separators", "₹1,200", "1200"},
		{"rupee with space and paise", "₹ 949.00", "949"},
		{"rs prefix", "Rs. 12,999", "12999"},
		{"whole rupee suffix", "₹1,200/-", "1200"},
		{"indian grouping", "₹1,20,000", "120000"},
		{"plain string", "500", "500"},
		{"float", 499.5, "499.5"},
		{"int", 1500, "1500"},
		{"int64", int64(75000), "75000"},
		{"json number", json.Number("2500"), "2500"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.in)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "got %s", got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []any{nil, "", "₹", "call for price", -10, []string{"1"}} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidPrice, "input %v", in)
	}
}

func TestPrice_UnmarshalJSON(t *testing.T) {
	var body struct {
		A Price `json:"a"`
		B Price `json:"b"`
	}
	err := json.Unmarshal([]byte(`{"a":"₹1,000","b":500}`), &body)
	require.NoError(t, err)

	assert.True(t, body.A.Equal(decimal.NewFromInt(1000)))
	assert.True(t, body.B.Equal(decimal.NewFromInt(500)))

	err = json.Unmarshal([]byte(`{"a":"free"}`), &body)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestTotal_MixedRepresentations(t *testing.T) {
	items := []models.CartLineItem{
		{ProductSKU: "A", UnitPrice: MustParse("₹1,000"), Quantity: 2},
		{ProductSKU: "B", UnitPrice: MustParse(500), Quantity: 1},
	}

	assert.True(t, decimal.NewFromInt(2500).Equal(Total(items)))
	assert.Equal(t, 3, Quantity(items))
}

func TestMergeBySKU(t *testing.T) {
	items := []models.CartLineItem{
		{ProductSKU: "A", Quantity: 1, Title: "first"},
		{ProductSKU: "B", Quantity: 4},
		{ProductSKU: "A", Quantity: 2, Title: "second"},
	}

	merged := MergeBySKU(items)

	require.Len(t, merged, 2)
	assert.Equal(t, "A", merged[0].ProductSKU)
	assert.Equal(t, 3, merged[0].Quantity)
	assert.Equal(t, "first", merged[0].Title)
	assert.Equal(t, "B", merged[1].ProductSKU)
	assert.Equal(t, 4, merged[1].Quantity)
}

func TestFormat(t *testing.T) {
	cases := map[string]string{
		"0":         "₹0",
		"500":       "₹500",
		"2500":      "₹2,500",
		"120000":    "₹1,20,000",
		"12345678":  "₹1,23,45,678",
		"120000000": "₹12,00,00,000",
		"-2500":     "-₹2,500",
		"949.5":     "₹949.50",
		"1999.999":  "₹2,000",
		"100000.25": "₹1,00,000.25",
	}

	for in, want := range cases {
		assert.Equal(t, want, Format(decimal.RequireFromString(in)), in)
	}
}
