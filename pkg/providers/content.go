package providers

import (
	"fmt"
	"strings"
)

// ParseDataURL splits a data URL of the form data:<mime>;base64,<payload>
// into its media type and base64 payload.
func ParseDataURL(url string) (mediaType, data string, err error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", "", fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", fmt.Errorf("malformed data URL: missing comma")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", "", fmt.Errorf("malformed data URL: not base64-encoded")
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}
	return mediaType, payload, nil
}

// IsDataURL reports whether url is a data URL.
func IsDataURL(url string) bool {
	return strings.HasPrefix(url, "data:")
}

// IsHTTPURL reports whether url is an http(s) URL.
func IsHTTPURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
