package middleware

import (
	"net"
	"net/http"
	"strings"
)

// forwardedForSeparators are the delimiters accepted between hops of an
// X-Forwarded-For chain.
const forwardedForSeparators = ",;"

// NormalizeForwardedFor rewrites X-Forwarded-For to a single address and
// returns it. The leftmost hop of the chain wins. When the header is absent
// or its first hop is blank the transport peer address is used instead.
func NormalizeForwardedFor(r *http.Request) string {
	client := firstHop(r.Header.Get(HeaderXForwardedFor))
	if client == "" {
		client = stripPort(r.RemoteAddr)
	}
	if client != "" {
		r.Header.Set(HeaderXForwardedFor, client)
	}
	return client
}

// ClientIP returns the client address of r without modifying it.
func ClientIP(r *http.Request) string {
	if client := firstHop(r.Header.Get(HeaderXForwardedFor)); client != "" {
		return client
	}
	return stripPort(r.RemoteAddr)
}

// firstHop returns the trimmed leftmost hop of xff. A blank leftmost hop
// yields "" so callers fall back to the peer address; an empty client
// address is never written back into the header.
func firstHop(xff string) string {
	if i := strings.IndexAny(xff, forwardedForSeparators); i >= 0 {
		xff = xff[:i]
	}
	return strings.TrimSpace(xff)
}

// stripPort removes the port from an address string.
// Handles both IPv4 ("192.168.1.1:8080") and IPv6 ("[::1]:8080") formats.
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		// No port present or invalid format, return as-is
		return addr
	}
	return host
}
