package utils

import (
	"net/url"
	"strings"
)

// IsValidURL checks if a string is an absolute http(s) URL with a host
func IsValidURL(str string) bool {
	u, err := url.Parse(strings.TrimSpace(str))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}

// StripQuery removes the query string and fragment from a URL
func StripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
