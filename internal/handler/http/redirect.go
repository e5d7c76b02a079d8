package http

import (
	"Taglink-Backend/internal/analytics"
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/redirect"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Resolver turns a (host, code) pair into a redirect target.
type Resolver interface {
	Resolve(ctx context.Context, host, code string) (*redirect.Target, error)
	IsDefaultHost(host string) bool
}

// ClickSubmitter accepts clicks for asynchronous recording.
type ClickSubmitter interface {
	Submit(job analytics.Job) bool
}

// RedirectHandler serves short links.
type RedirectHandler struct {
	resolver Resolver
	clicks   ClickSubmitter
	trusted  []netip.Prefix
	log      *zap.Logger
}

// NewRedirectHandler creates a redirect handler. Forwarding headers are only read on
// connections from a trusted proxy.
func NewRedirectHandler(resolver Resolver, clicks ClickSubmitter, trusted []netip.Prefix, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		resolver: resolver,
		clicks:   clicks,
		trusted:  trusted,
		log:      log,
	}
}

// ParseTrustedProxies accepts bare addresses and CIDRs.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// HandleRedirect redirects to the link's tagged destination
//
//	@Summary		Follow a short link
//	@Description	Resolves the code for the request host and redirects. Unknown codes, unknown hosts and unverified domains all return a plain 404.
//	@Tags			Redirect
//	@Param			code	path	string	true	"Short code"
//	@Success		302		"Redirect to destination"
//	@Failure		404		"Not found"
//	@Router			/r/{code} [get]
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	occurredAt := time.Now()

	target, err := h.resolver.Resolve(r.Context(), r.Host, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.log.Debug("short code not found", zap.String("host", r.Host), zap.String("code", code))
			http.NotFound(w, r)
			return
		}
		h.log.Error("failed to resolve short code", zap.String("host", r.Host), zap.String("code", code), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, target.URL, http.StatusFound)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	// The response is committed; recording never delays or fails it.
	h.clicks.Submit(analytics.Job{
		LinkID:     target.LinkID,
		UserAgent:  r.UserAgent(),
		Referrer:   r.Referer(),
		IP:         h.clientIP(r),
		OccurredAt: occurredAt,
	})
}

// clientIP returns the client address for geo lookup. It is never logged.
// X-Forwarded-For is walked from the right, skipping trusted hops, so entries the client
// wrote itself are never picked over the address the outermost proxy saw.
func (h *RedirectHandler) clientIP(r *http.Request) string {
	peer, ok := parseIP(r.RemoteAddr)
	if !ok {
		return r.RemoteAddr
	}
	if !h.isTrusted(peer) {
		return peer.String()
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(v, ",")...)
	}
	if len(hops) > 0 {
		client := peer
		for i := len(hops) - 1; i >= 0; i-- {
			addr, ok := parseIP(hops[i])
			if !ok {
				break
			}
			client = addr
			if !h.isTrusted(addr) {
				break
			}
		}
		return client.String()
	}

	if addr, ok := parseIP(r.Header.Get("X-Real-IP")); ok {
		return addr.String()
	}
	return peer.String()
}

func (h *RedirectHandler) isTrusted(addr netip.Addr) bool {
	for _, p := range h.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// parseIP accepts a bare address or host:port.
func parseIP(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
