// Package whatsapp builds click-to-chat deep links.
package whatsapp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrInvalidPhone   = errors.New("invalid whatsapp phone number")
	ErrInvalidBaseURL = errors.New("invalid whatsapp base url")
	ErrEmptyMessage   = errors.New("empty whatsapp message")
)

// LinkBuilder produces https://wa.me/<phone>?text=<message> links.
type LinkBuilder struct {
	base  *url.URL
	phone string
}

// NewLinkBuilder validates the destination once so every Build call is cheap.
func NewLinkBuilder(baseURL, phone string) (*LinkBuilder, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	digits := strings.TrimPrefix(strings.ReplaceAll(phone, " ", ""), "+")
	if digits == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
		}
	}

	return &LinkBuilder{base: u, phone: digits}, nil
}

// Build returns the deep link carrying message. Spaces are encoded as %20
// since some clients render '+' literally.
func (b *LinkBuilder) Build(message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	u := *b.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + b.phone
	u.RawQuery = "text=" + strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return u.String(), nil
}

// Phone is the normalized destination number.
func (b *LinkBuilder) Phone() string {
	return b.phone
}
