package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"academy-quiz-service/internal/auth"
)

type sessionKey struct{}

// requireAdmin rejects requests without a valid admin bearer token.
func (h *APIHandler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := h.gate.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	}
}

func sessionFrom(ctx context.Context) (auth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(auth.Session)
	return s, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// TrustProxies sets the proxies allowed to report the client address through
// X-Forwarded-For. Entries are addresses or CIDR prefixes.
func (h *APIHandler) TrustProxies(entries []string) error {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, raw := range entries {
		raw = strings.TrimSpace(raw)
		if p, err := netip.ParsePrefix(raw); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	h.trusted = prefixes
	return nil
}

// clientIP is the peer address, or the first forwarded address when the peer
// is a trusted proxy.
func (h *APIHandler) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	fwd := r.Header.Get("X-Forwarded-For")
	if fwd == "" || !h.trustedPeer(host) {
		return host
	}
	if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
		return first
	}
	return host
}

func (h *APIHandler) trustedPeer(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range h.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
