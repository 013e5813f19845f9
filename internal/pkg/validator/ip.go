package validator

import (
	"net"
	"strings"
)

// IsValidIP reports whether ip parses as an IPv4 or IPv6 address.
func IsValidIP(ip string) bool {
	if ip == "" {
		return false
	}
	return net.ParseIP(ip) != nil
}

// NormalizeIP strips an IPv6 zone identifier (fe80::1%eth0 -> fe80::1)
// so the same host maps to one rate-limit key.
func NormalizeIP(ip string) string {
	if idx := strings.IndexByte(ip, '%'); idx != -1 {
		return ip[:idx]
	}
	return ip
}

// ClientKey normalizes ip for use as a rate-limit key, falling back to
// fallback when ip is unparseable.
func ClientKey(ip, fallback string) string {
	normalized := NormalizeIP(ip)
	if IsValidIP(normalized) {
		return normalized
	}
	return fallback
}
