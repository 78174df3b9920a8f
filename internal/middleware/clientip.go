package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client address: first X-Forwarded-For entry, then
// X-Real-IP, then the connection address with any IPv4-mapped-IPv6 prefix
// stripped.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return stripMappedPrefix(ip)
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return stripMappedPrefix(realIP)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return stripMappedPrefix(r.RemoteAddr)
	}
	return stripMappedPrefix(host)
}

// stripMappedPrefix removes the IPv4-mapped-IPv6 prefix in any case form,
// matching the geo resolver's normalization.
func stripMappedPrefix(ip string) string {
	const mapped = "::ffff:"
	if len(ip) >= len(mapped) && strings.EqualFold(ip[:len(mapped)], mapped) {
		return ip[len(mapped):]
	}
	return ip
}
