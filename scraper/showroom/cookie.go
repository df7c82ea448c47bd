package showroom

import (
	"net/http"
	"strings"
)

// ParseCookieString splits a "k1=v1; k2=v2" header value into cookies.
// Pairs without '=' are ignored; values may themselves contain '='.
func ParseCookieString(s string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, pair := range strings.Split(s, ";") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: key, Value: strings.TrimSpace(value)})
	}
	return cookies
}
