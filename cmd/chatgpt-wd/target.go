package main

import (
	"fmt"
	"net/url"
	"strings"
)

const searchURL = "https://duckduckgo.com/html/?q="

// resolveTarget returns the page to load for a command-line argument.
// Absolute http and https URLs are used as given. Anything else is treated
// as a search query.
func resolveTarget(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("a URL or search query is required")
	}

	if u, err := url.Parse(arg); err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https") {
		return u.String(), nil
	}
	return searchURL + url.QueryEscape(arg), nil
}
