// Package utils holds request helpers shared by the HTTP middlewares.
package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// hostOnly strips the port from "ip:port" or "[v6]:port".
func hostOnly(s string) string {
	s = strings.TrimSpace(s)
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return s
}

// ClientIP resolves the caller address. Forwarding headers are only read
// when trustProxy is set: CF-Connecting-IP, then the left-most
// X-Forwarded-For entry, then X-Real-IP.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		candidates := []string{
			r.Header.Get("CF-Connecting-IP"),
			strings.Split(r.Header.Get("X-Forwarded-For"), ",")[0],
			r.Header.Get("X-Real-IP"),
		}
		for _, c := range candidates {
			if ip := hostOnly(c); ip != "" {
				return ip
			}
		}
	}
	return hostOnly(r.RemoteAddr)
}

// IPMatcher matches addresses against single IPs and CIDR prefixes.
type IPMatcher struct {
	prefixes []netip.Prefix
}

// NewIPMatcher parses list. Invalid entries are skipped.
func NewIPMatcher(list []string) *IPMatcher {
	m := &IPMatcher{}
	for _, raw := range list {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			m.prefixes = append(m.prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(s); err == nil {
			m.prefixes = append(m.prefixes, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
		}
	}
	return m
}

// IsEmpty reports whether no rule was parsed.
func (m *IPMatcher) IsEmpty() bool { return len(m.prefixes) == 0 }

// Allow reports whether ip matches a rule.
func (m *IPMatcher) Allow(ip string) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range m.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
