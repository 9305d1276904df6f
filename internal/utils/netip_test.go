package utils

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", remote: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "headers ignored without trust", remote: "192.0.2.1:5555", headers: map[string]string{"X-Forwarded-For": "10.0.0.1"}, want: "192.0.2.1"},
		{name: "cloudflare first", remote: "127.0.0.1:1", headers: map[string]string{"CF-Connecting-IP": "203.0.113.9", "X-Forwarded-For": "10.0.0.1"}, trustProxy: true, want: "203.0.113.9"},
		{name: "left-most forwarded", remote: "127.0.0.1:1", headers: map[string]string{"X-Forwarded-For": " 10.0.0.1 , 10.0.0.2"}, trustProxy: true, want: "10.0.0.1"},
		{name: "real ip", remote: "127.0.0.1:1", headers: map[string]string{"X-Real-IP": "10.0.0.3"}, trustProxy: true, want: "10.0.0.3"},
		{name: "ipv6", remote: "[2001:db8::1]:443", want: "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", " 192.0.2.7 ", "not-an-ip", "", "2001:db8::/32"})
	if m.IsEmpty() {
		t.Fatal("matcher should hold rules")
	}

	allowed := []string{"10.1.2.3", "192.0.2.7", "::ffff:10.0.0.1", "2001:db8::42"}
	for _, ip := range allowed {
		if !m.Allow(ip) {
			t.Errorf("Allow(%q) = false", ip)
		}
	}
	denied := []string{"192.0.2.8", "11.0.0.1", "garbage", ""}
	for _, ip := range denied {
		if m.Allow(ip) {
			t.Errorf("Allow(%q) = true", ip)
		}
	}

	if !NewIPMatcher(nil).IsEmpty() {
		t.Error("nil list should be empty")
	}
}
