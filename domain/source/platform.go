package source

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Platform identifies the video site a URL belongs to
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
)

var (
	// ErrURLRequired is returned when no URL was supplied
	ErrURLRequired = errors.New("video URL is required")

	// ErrInvalidURL is returned when the URL is not an absolute http(s) URL
	ErrInvalidURL = errors.New("invalid URL format")

	// ErrUnsupportedPlatform is returned when the host is not a supported site
	ErrUnsupportedPlatform = errors.New("unsupported platform; provide a YouTube, Instagram, or TikTok URL")
)

// urlPattern matches http and https URLs with a non-empty remainder
var urlPattern = regexp.MustCompile(`^https?://.+`)

// platformHosts maps registrable domains to their platform
var platformHosts = []struct {
	domain   string
	platform Platform
}{
	{"youtube.com", PlatformYouTube},
	{"youtu.be", PlatformYouTube},
	{"instagram.com", PlatformInstagram},
	{"tiktok.com", PlatformTikTok},
}

// String returns the platform tag
func (p Platform) String() string {
	return string(p)
}

// Validate checks that raw is a well-formed http(s) URL
func Validate(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrURLRequired
	}
	if !urlPattern.MatchString(raw) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}

// Detect validates raw and returns the platform it belongs to
func Detect(raw string) (Platform, error) {
	u, err := Validate(raw)
	if err != nil {
		return "", err
	}

	host := strings.ToLower(u.Hostname())
	for _, ph := range platformHosts {
		if host == ph.domain || strings.HasSuffix(host, "."+ph.domain) {
			return ph.platform, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, host)
}

// Referer returns the HTTP referer some platforms require for media requests
func (p Platform) Referer() string {
	if p == PlatformTikTok {
		return "https://www.tiktok.com/"
	}
	return ""
}
