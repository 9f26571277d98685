// Package pricing turns the mixed price representations found in product
// records and cart payloads into decimals, and renders them back for display.
package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySymbol prefixes every formatted amount.
const CurrencySymbol = "₹"

var ErrInvalidPrice = errors.New("invalid price")

// en-IN groups the last three digits, then every two: 1,20,00,000.
var indian = message.NewPrinter(language.MustParse("en-IN"))

var currencyTokens = []string{"₹", "INR", "Rs.", "Rs", "rs.", "rs", "$"}

// Parse converts a display string ("₹1,200", "Rs. 949.00") or a number into a decimal.
func Parse(v any) (decimal.Decimal, error) {
	var d decimal.Decimal

	switch p := v.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("%w: missing value", ErrInvalidPrice)
	case decimal.Decimal:
		d = p
	case string:
		parsed, err := parseString(p)
		if err != nil {
			return decimal.Zero, err
		}
		d = parsed
	case json.Number:
		parsed, err := decimal.NewFromString(p.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, p.String())
		}
		d = parsed
	case float64:
		d = decimal.NewFromFloat(p)
	case float32:
		d = decimal.NewFromFloat32(p)
	case int:
		d = decimal.NewFromInt(int64(p))
	case int32:
		d = decimal.NewFromInt32(p)
	case int64:
		d = decimal.NewFromInt(p)
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidPrice, v)
	}

	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative amount %s", ErrInvalidPrice, d)
	}
	return d, nil
}

func parseString(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	for _, tok := range currencyTokens {
		cleaned = strings.ReplaceAll(cleaned, tok, "")
	}
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '\u00a0', '\t':
			return -1
		}
		return r
	}, cleaned)
	// "₹1,200/-" is a common way of writing whole rupees.
	cleaned = strings.TrimSuffix(cleaned, "/-")

	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	return d, nil
}

// MustParse is Parse for literals in tests and defaults.
func MustParse(v any) decimal.Decimal {
	d, err := Parse(v)
	if err != nil {
		panic(err)
	}
	return d
}

// Price accepts either a JSON string or a JSON number.
type Price struct {
	decimal.Decimal
}

func (p *Price) UnmarshalJSON(b []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, string(b))
	}
	d, err := Parse(raw)
	if err != nil {
		return err
	}
	p.Decimal = d
	return nil
}

// LineTotal is price × quantity.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// Total sums price × quantity over every line.
func Total(items []models.CartLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(LineTotal(it.UnitPrice, it.Quantity))
	}
	return total
}

// Quantity sums the quantities of every line.
func Quantity(items []models.CartLineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// MergeBySKU collapses lines sharing a sku into the first occurrence, summing
// quantities. Order of first appearance is kept.
func MergeBySKU(items []models.CartLineItem) []models.CartLineItem {
	merged := make([]models.CartLineItem, 0, len(items))
	index := make(map[string]int, len(items))

	for _, it := range items {
		if i, ok := index[it.ProductSKU]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductSKU] = len(merged)
		merged = append(merged, it)
	}
	return merged
}

// Format renders an amount with the rupee symbol and Indian digit grouping,
// e.g. 120000 -> "₹1,20,000". Fractions are shown only when non-zero.
func Format(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	d = d.Round(2)

	whole := d.Truncate(0)
	out := sign + CurrencySymbol + indian.Sprintf("%d", whole.IntPart())

	if frac := d.Sub(whole); !frac.IsZero() {
		fixed := d.StringFixed(2)
		out += fixed[len(fixed)-3:]
	}
	return out
}
