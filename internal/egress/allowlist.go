package egress

import (
	"net"
	"net/http"
	"strings"

	"github.com/dev-razz/Typerra/internal/llm"
)

// AllowlistRoundTripper restricts engine traffic to the configured backend
// hosts. Plain http is accepted only for loopback hosts, which is how local
// model servers are usually exposed.
type AllowlistRoundTripper struct {
	Base      http.RoundTripper
	Allowlist map[string]bool
}

func NewAllowlistRoundTripper(base http.RoundTripper, hosts []string) *AllowlistRoundTripper {
	allowlist := make(map[string]bool, len(hosts))
	for _, host := range hosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			allowlist[host] = true
		}
	}
	return &AllowlistRoundTripper{Base: base, Allowlist: allowlist}
}

func (rt *AllowlistRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL == nil {
		return nil, llm.ErrEgressBlocked
	}
	host := strings.ToLower(req.URL.Hostname())
	if host == "" || !rt.Allowlist[host] {
		return nil, llm.ErrEgressBlocked
	}
	switch req.URL.Scheme {
	case "https":
		if ip := net.ParseIP(host); ip != nil && !ip.IsLoopback() {
			return nil, llm.ErrEgressBlocked
		}
	case "http":
		if !IsLoopback(host) {
			return nil, llm.ErrEgressBlocked
		}
	default:
		return nil, llm.ErrEgressBlocked
	}
	base := rt.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func IsLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
