// Package security checks user-supplied values before they reach a page.
package security

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrUnsafeURL = errors.New("unsafe URL")

// linkSchemes are the schemes a link target may use. Relative URLs and
// fragments have no scheme and are always allowed.
var linkSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
	"tel":    true,
}

// ValidateLinkURL rejects link targets that would run script or load
// something other than a page when followed, such as javascript: or data:.
func ValidateLinkURL(raw string) error {
	u, err := parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "" && !linkSchemes[u.Scheme] {
		return fmt.Errorf("%w: scheme %q not allowed for links", ErrUnsafeURL, u.Scheme)
	}
	return nil
}

// ValidateImageURL is ValidateLinkURL for image sources. Inline data:image/
// URLs are allowed; mailto: and tel: are not.
func ValidateImageURL(raw string) error {
	u, err := parse(raw)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "", "http", "https":
		return nil
	case "data":
		if strings.HasPrefix(strings.ToLower(u.Opaque), "image/") {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not an image source", ErrUnsafeURL, raw)
}

func parse(raw string) (*url.URL, error) {
	// Browsers ignore leading whitespace and control characters, so
	// " javascript:" must be caught too.
	trimmed := strings.TrimLeftFunc(raw, func(r rune) bool { return r <= ' ' })
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	return u, nil
}
