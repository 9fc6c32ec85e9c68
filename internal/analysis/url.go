package analysis

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrEmptyURL is returned when no URL was supplied.
var ErrEmptyURL = errors.New("url is required")

// NormalizeURL prefixes https:// to URLs that carry neither http:// nor https://.
// URLs with one of those schemes are returned as given.
func NormalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", ErrEmptyURL
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed, nil
	}
	return "https://" + trimmed, nil
}

// Hostname returns the host portion of a normalized URL, without port or userinfo.
func Hostname(normalized string) (string, error) {
	u, err := url.Parse(normalized)
	if err == nil && u.Hostname() != "" {
		return strings.ToLower(u.Hostname()), nil
	}
	// Fall back to the text between "//" and the next "/" for URLs that
	// net/url refuses to parse.
	_, rest, found := strings.Cut(normalized, "//")
	if !found {
		return "", fmt.Errorf("no host in url %q", normalized)
	}
	host, _, _ := strings.Cut(rest, "/")
	if host == "" {
		return "", fmt.Errorf("no host in url %q", normalized)
	}
	return strings.ToLower(host), nil
}
