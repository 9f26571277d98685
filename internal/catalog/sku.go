package catalog

import (
	"strings"
	"unicode"
)

const skuSegmentLen = 9

// SKUDraft carries the admin form fields a SKU is derived from.
type SKUDraft struct {
	Title     string `json:"title"`
	Type      string `json:"type"`
	Price     string `json:"price"`
	Stock     string `json:"stock"`
	Size      string `json:"size"`
	Thickness string `json:"thickness"`
}

// GenerateSKU builds a readable SKU such as
// "ortho-memory-foam-mattress-p12000-s5-szking-t8inch".
func GenerateSKU(d SKUDraft) string {
	var parts []string

	words := strings.Fields(d.Title)
	if len(words) > 3 {
		words = words[:3]
	}
	for _, w := range words {
		parts = append(parts, segment(w))
	}

	if typeWords := strings.Fields(d.Type); len(typeWords) > 0 {
		parts = append(parts, segment(typeWords[0]))
	}
	parts = append(parts,
		prefixed("p", digitsOnly(d.Price)),
		prefixed("s", digitsOnly(d.Stock)),
		prefixed("sz", d.Size),
		prefixed("t", d.Thickness),
	)

	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "-")
}

func prefixed(prefix, v string) string {
	v = segment(v)
	if v == "" {
		return ""
	}
	return segment(prefix + v)
}

// segment lowercases v, keeps letters and digits, joins words with '-' and
// truncates to the segment length.
func segment(v string) string {
	var sb strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(v)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastDash = false
		case unicode.IsSpace(r) && !lastDash && sb.Len() > 0:
			sb.WriteRune('-')
			lastDash = true
		}
	}

	s := strings.TrimRight(sb.String(), "-")
	if r := []rune(s); len(r) > skuSegmentLen {
		s = strings.TrimRight(string(r[:skuSegmentLen]), "-")
	}
	return s
}

func digitsOnly(v string) string {
	var sb strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		} else if r == '.' {
			break
		}
	}
	return sb.String()
}
