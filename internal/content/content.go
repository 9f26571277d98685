// Package content covers the editorial parts of the storefront: hero sliders
// and embedded YouTube videos.
package content

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"storefront/internal/models"
)

var (
	ErrInvalidVideoURL = errors.New("invalid YouTube URL")
	ErrInvalidSlider   = errors.New("invalid slider")
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?(?:[^#\s]*&)?v=([^&#\s]+)`),
	regexp.MustCompile(`youtu\.be/([^?&#\s]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^?&#\s]+)`),
	regexp.MustCompile(`youtube\.com/shorts/([^?&#\s]+)`),
	regexp.MustCompile(`youtube\.com/live/([^?&#\s]+)`),
}

var videoIDChars = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)

// ExtractVideoID returns the video id of a watch, short, embed, shorts or live URL.
func ExtractVideoID(rawURL string) (string, error) {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidVideoURL)
	}

	for _, re := range videoIDPatterns {
		m := re.FindStringSubmatch(u)
		if len(m) == 2 && videoIDChars.MatchString(m[1]) {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVideoURL, rawURL)
}

// EmbedURL is the iframe source for a video id.
func EmbedURL(videoID string) string {
	return "https://www.youtube.com/embed/" + videoID
}

// DefaultSlider is shown when no slider has been configured.
func DefaultSlider() models.Slider {
	return models.Slider{
		ID:            "default",
		Image:         "/static/hero-mattress.jpg",
		Title:         "Sleep Better Every Night",
		Description:   "Orthopedic and memory foam mattresses made for Indian homes.",
		ButtonText:    "Shop Mattresses",
		OfferTitle:    "Festive Offer",
		DiscountText:  "Up to 40% off",
		CountdownDate: "",
	}
}

// ValidateSlider checks the fields the home page cannot render without.
func ValidateSlider(s models.Slider) error {
	if strings.TrimSpace(s.Image) == "" {
		return fmt.Errorf("%w: image is required", ErrInvalidSlider)
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidSlider)
	}
	return nil
}
