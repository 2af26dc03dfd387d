package client

import (
	"net/url"
	"strings"
)

// AbsoluteURL resolves a server-returned object location against the API
// base. Absolute URLs are returned unchanged, scheme-relative ones inherit the
// base scheme and plain paths are appended to the base.
func AbsoluteURL(base, raw string) string {
	if raw == "" {
		return raw
	}
	if u, err := url.Parse(raw); err == nil && u.IsAbs() {
		return raw
	}
	if strings.HasPrefix(raw, "//") {
		if b, err := url.Parse(base); err == nil && b.Scheme != "" {
			return b.Scheme + ":" + raw
		}
		return "https:" + raw
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(raw, "/")
}

func endpoint(base, path string, query url.Values) string {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
