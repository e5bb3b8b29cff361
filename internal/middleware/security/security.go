// Package security provides response hardening headers and proxy-aware
// client IP extraction for the webhook server.
package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// HeadersConfig lists the headers stamped on every response. The server
// only ever serves JSON, so there is no CSP to speak of.
type HeadersConfig struct {
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	CacheControl        string
}

func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "no-referrer",
		CacheControl:        "no-store",
	}
}

// Headers returns middleware applying the configured headers.
func Headers(config HeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.XFrameOptions != "" {
				w.Header().Set("X-Frame-Options", config.XFrameOptions)
			}
			if config.XContentTypeOptions != "" {
				w.Header().Set("X-Content-Type-Options", config.XContentTypeOptions)
			}
			if config.ReferrerPolicy != "" {
				w.Header().Set("Referrer-Policy", config.ReferrerPolicy)
			}
			if config.CacheControl != "" {
				w.Header().Set("Cache-Control", config.CacheControl)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPExtractor resolves the real client address behind trusted proxies.
type IPExtractor struct {
	trustedProxies []*net.IPNet
}

func NewIPExtractor() *IPExtractor {
	return &IPExtractor{
		trustedProxies: []*net.IPNet{
			mustCIDR("127.0.0.0/8"),
			mustCIDR("10.0.0.0/8"),
			mustCIDR("172.16.0.0/12"),
			mustCIDR("192.168.0.0/16"),
		},
	}
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// ClientIP returns the first X-Forwarded-For hop when the immediate peer
// is a trusted proxy, otherwise the peer address itself. Forwarded
// headers from untrusted peers are ignored, they are trivially spoofed.
func (e *IPExtractor) ClientIP(r *http.Request) string {
	peer := stripPort(r.RemoteAddr)

	if e.isTrustedProxy(peer) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
		if real := r.Header.Get("X-Real-IP"); real != "" && net.ParseIP(real) != nil {
			return real
		}
	}
	return peer
}

func (e *IPExtractor) isTrustedProxy(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, network := range e.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
