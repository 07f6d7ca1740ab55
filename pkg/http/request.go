package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig controls how much the resolver trusts forwarded headers.
//
// With an empty TrustedProxies list, forwarded headers are trusted
// unconditionally; this is only safe behind a reverse proxy that overwrites
// or strips them before forwarding. When CIDR ranges are configured,
// forwarded headers are honored only if the direct peer is inside one of
// them; otherwise the socket address wins.
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies
}

// proxyHeaders are consulted in priority order; the first header that
// yields a non-empty value wins.
var proxyHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"CF-Connecting-IP",
	"X-Client-IP",
}

// ResolveClientIP extracts a single client IP from the request.
//
// X-Forwarded-For is a comma-separated chain ("client, proxy1, proxy2");
// the left-most entry is the original client. The chosen value is
// normalized before being returned.
func ResolveClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := remoteAddr(r)

	if config == nil || len(config.TrustedProxies) == 0 || isTrustedProxy(remoteIP, config.TrustedProxies) {
		for _, header := range proxyHeaders {
			value := r.Header.Get(header)
			if header == "X-Forwarded-For" {
				value, _, _ = strings.Cut(value, ",")
			}
			if strings.TrimSpace(value) != "" {
				return NormalizeIP(value)
			}
		}
	}

	return NormalizeIP(remoteIP)
}

// NormalizeIP canonicalizes a client address: IPv4-mapped-IPv6 values are
// unwrapped to plain IPv4, the IPv6 loopback becomes 127.0.0.1, and empty
// input becomes the literal "unknown".
func NormalizeIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return "unknown"
	}
	if strings.HasPrefix(ip, "::ffff:") {
		return strings.TrimPrefix(ip, "::ffff:")
	}
	if ip == "::1" {
		return "127.0.0.1"
	}
	return ip
}

// remoteAddr extracts the IP address from RemoteAddr, removing the port if
// present.
func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return ""
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

// isTrustedProxy checks if an IP address is within any of the trusted proxy
// CIDR ranges.
func isTrustedProxy(ip string, trustedProxies []string) bool {
	peer := net.ParseIP(ip)
	if peer == nil {
		return false
	}

	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue // Skip invalid CIDR ranges
		}
		if ipNet.Contains(peer) {
			return true
		}
	}

	return false
}
