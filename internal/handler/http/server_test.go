package http

import (
	"Taglink-Backend/internal/analytics"
	"Taglink-Backend/internal/auth"
	"Taglink-Backend/internal/dnscheck"
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/quota"
	"Taglink-Backend/internal/redirect"
	"Taglink-Backend/internal/repository/memory"
	"Taglink-Backend/internal/service"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testDefaultDomain = "tag.link"

type fakeDNS struct {
	err error
}

func (f *fakeDNS) Verify(context.Context, string, string) error { return f.err }
func (f *fakeDNS) TXTName(hostname string) string               { return "_taglink-verify." + hostname }
func (f *fakeDNS) CNAMETarget() string                          { return "redirect.tag.link" }

type recordingClicks struct {
	mu   sync.Mutex
	jobs []analytics.Job
}

func (c *recordingClicks) Submit(job analytics.Job) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs = append(c.jobs, job)
	return true
}

func (c *recordingClicks) Jobs() []analytics.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]analytics.Job(nil), c.jobs...)
}

type testServer struct {
	handler http.Handler
	store   *memory.MemStorage
	dns     *fakeDNS
	clicks  *recordingClicks
	jwt     *auth.JWTService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	store := memory.New()
	alloc := service.NewAllocator(8, 5)
	enforcer := quota.NewEnforcer(store, quota.DefaultLimits(2))
	dns := &fakeDNS{}
	clicks := &recordingClicks{}
	jwtService := auth.NewJWTService("test-secret", "taglink")

	links := service.NewLinkService(store, enforcer, alloc, nil, testDefaultDomain, log)
	domains := service.NewDomainService(store, dns, alloc, nil, "token-secret", time.Second, testDefaultDomain, log)
	resolver := redirect.NewResolver(store, nil, testDefaultDomain, log)
	aggregator := analytics.NewAggregator(store, 2*time.Second, 5*time.Second, log)
	// httptest requests arrive from 192.0.2.1.
	trusted, err := ParseTrustedProxies([]string{"192.0.2.1", "10.0.0.0/8"})
	require.NoError(t, err)

	srv := NewServer(
		NewLinksHandler(links, "https", log),
		NewDomainsHandler(domains, log),
		NewAnalyticsHandler(links, aggregator, log),
		NewQuotaHandler(enforcer, log),
		NewRedirectHandler(resolver, clicks, trusted, log),
		NewHealthHandler(store, nil, "test", log),
		auth.NewMiddleware(jwtService, log),
		resolver,
		ServerOptions{AllowedOrigins: []string{"https://app.tag.link"}, MetricsEnabled: true},
		log,
	)

	return &testServer{
		handler: srv.SetupRoutes(),
		store:   store,
		dns:     dns,
		clicks:  clicks,
		jwt:     jwtService,
	}
}

func (s *testServer) token(t *testing.T, acc domain.Account) string {
	t.Helper()
	tok, err := s.jwt.GenerateAccessToken(acc, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, url, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var (
	alice = domain.Account{ID: "alice", Plan: domain.PlanFree, Teams: []string{"growth"}}
	bob   = domain.Account{ID: "bob", Plan: domain.PlanFree}
)

func (s *testServer) createShortLink(t *testing.T, token string, extra map[string]interface{}) LinkResponse {
	t.Helper()
	body := map[string]interface{}{
		"destination_url": "https://example.com/landing?ref=1",
		"utm_source":      "newsletter",
		"utm_campaign":    "spring sale",
		"short":           true,
	}
	for k, v := range extra {
		body[k] = v
	}
	rec := s.do(t, http.MethodPost, "http://tag.link/links", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[LinkResponse](t, rec)
}

func TestAPI_RequiresAuth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "http://tag.link/links", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "http://tag.link/links", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLinks_CreateAndList(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, alice)

	link := s.createShortLink(t, tok, nil)
	assert.Len(t, link.ShortCode, 8)
	assert.Equal(t, "https://tag.link/r/"+link.ShortCode, link.ShortURL)
	assert.Equal(t, "https://example.com/landing?ref=1&utm_source=newsletter&utm_campaign=spring%20sale", link.TaggedURL)

	rec := s.do(t, http.MethodPost, "http://tag.link/links", tok, map[string]interface{}{
		"destination_url": "https://example.com/plain",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	plain := decode[LinkResponse](t, rec)
	assert.Empty(t, plain.ShortCode)
	assert.Empty(t, plain.ShortURL)

	rec = s.do(t, http.MethodGet, "http://tag.link/links", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[ListLinksResponse](t, rec)
	assert.Len(t, list.Links, 2)
}

func TestLinks_InvalidDestination(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "http://tag.link/links", s.token(t, alice), map[string]interface{}{
		"destination_url": "not a url",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decode[ErrorResponse](t, rec).Error)
}

func TestLinks_QuotaExceeded(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, alice)

	s.createShortLink(t, tok, nil)
	s.createShortLink(t, tok, nil)

	rec := s.do(t, http.MethodPost, "http://tag.link/links", tok, map[string]interface{}{
		"destination_url": "https://example.com/third",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decode[QuotaExceededResponse](t, rec)
	assert.Equal(t, QuotaExceededResponse{Error: "quota_exceeded", Current: 2, Limit: 2}, body)

	// Team links are not counted against the personal quota.
	s.createShortLink(t, tok, map[string]interface{}{"team_id": "growth"})
}

func TestLinks_Ownership(t *testing.T) {
	s := newTestServer(t)
	link := s.createShortLink(t, s.token(t, alice), nil)
	path := fmt.Sprintf("http://tag.link/links/%d", link.ID)

	rec := s.do(t, http.MethodDelete, path, s.token(t, bob), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, path, s.token(t, alice), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, path, s.token(t, alice), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "http://tag.link/links/abc", s.token(t, alice), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLinks_TeamMembersShareLinks(t *testing.T) {
	s := newTestServer(t)
	carol := domain.Account{ID: "carol", Plan: domain.PlanPro, Teams: []string{"growth"}}

	link := s.createShortLink(t, s.token(t, alice), map[string]interface{}{"team_id": "growth"})

	rec := s.do(t, http.MethodGet, fmt.Sprintf("http://tag.link/links/%d", link.ID), s.token(t, carol), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "http://tag.link/links", s.token(t, bob), map[string]interface{}{
		"destination_url": "https://example.com",
		"team_id":         "growth",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRedirect_DefaultDomain(t *testing.T) {
	s := newTestServer(t)
	link := s.createShortLink(t, s.token(t, alice), nil)

	req := httptest.NewRequest(http.MethodGet, "http://tag.link/r/"+link.ShortCode, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)")
	req.Header.Set("Referer", "https://news.example.org/post")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, link.TaggedURL, rec.Header().Get("Location"))

	jobs := s.clicks.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, link.ID, jobs[0].LinkID)
	assert.Equal(t, "203.0.113.9", jobs[0].IP)
	assert.Equal(t, "https://news.example.org/post", jobs[0].Referrer)
	assert.Contains(t, jobs[0].UserAgent, "iPhone")
	assert.False(t, jobs[0].OccurredAt.IsZero())
}

func TestRedirect_ClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"192.0.2.1", "10.0.0.0/8", "2001:db8::/32"})
	require.NoError(t, err)
	h := NewRedirectHandler(nil, nil, trusted, zap.NewNop())

	tests := []struct {
		name       string
		remoteAddr string
		xff        []string
		realIP     string
		want       string
	}{
		{name: "direct client", remoteAddr: "198.51.100.4:5000", want: "198.51.100.4"},
		{name: "spoofed forwarded for from untrusted peer", remoteAddr: "198.51.100.4:5000", xff: []string{"203.0.113.9"}, want: "198.51.100.4"},
		{name: "spoofed real ip from untrusted peer", remoteAddr: "198.51.100.4:5000", realIP: "203.0.113.9", want: "198.51.100.4"},
		{name: "trusted proxy", remoteAddr: "192.0.2.1:443", xff: []string{"203.0.113.9"}, want: "203.0.113.9"},
		{name: "client prepended a fake hop", remoteAddr: "192.0.2.1:443", xff: []string{"1.2.3.4, 203.0.113.9, 10.0.0.1"}, want: "203.0.113.9"},
		{name: "hops across header lines", remoteAddr: "192.0.2.1:443", xff: []string{"1.2.3.4", "203.0.113.9", "10.0.0.1"}, want: "203.0.113.9"},
		{name: "every hop trusted", remoteAddr: "192.0.2.1:443", xff: []string{"10.1.1.1, 10.0.0.1"}, want: "10.1.1.1"},
		{name: "garbage hop stops the walk", remoteAddr: "192.0.2.1:443", xff: []string{"203.0.113.9, unknown, 10.0.0.1"}, want: "10.0.0.1"},
		{name: "real ip behind trusted proxy", remoteAddr: "192.0.2.1:443", realIP: "203.0.113.9", want: "203.0.113.9"},
		{name: "invalid real ip", remoteAddr: "192.0.2.1:443", realIP: "nope", want: "192.0.2.1"},
		{name: "ipv6 proxy", remoteAddr: "[2001:db8::1]:443", xff: []string{"2001:db8:ffff::2, 203.0.113.9"}, want: "203.0.113.9"},
		{name: "mapped ipv4 peer", remoteAddr: "[::ffff:192.0.2.1]:443", xff: []string{"203.0.113.9"}, want: "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://tag.link/r/abc", nil)
			req.RemoteAddr = tt.remoteAddr
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, h.clientIP(req))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := ParseTrustedProxies([]string{" 10.0.0.0/8 ", "192.0.2.7", "", "2001:db8::1"})
	require.NoError(t, err)
	require.Len(t, prefixes, 3)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.0.2.7/32", prefixes[1].String())
	assert.Equal(t, "2001:db8::1/128", prefixes[2].String())

	_, err = ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)
}

func TestRedirect_NotFoundIsPlain(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "http://tag.link/r/nope1234", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Header().Get("Content-Type"), "json")

	rec = s.do(t, http.MethodGet, "http://unknown.example.net/nope1234", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, s.clicks.Jobs())
}

func TestRedirect_CustomDomain(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, alice)

	rec := s.do(t, http.MethodPost, "http://tag.link/domains", tok, RegisterDomainRequest{Hostname: "Go.Example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	registered := decode[DomainResponse](t, rec)
	assert.Equal(t, "go.example.com", registered.Domain.Hostname)
	assert.Equal(t, "_taglink-verify.go.example.com", registered.Instructions.TXTName)
	assert.Equal(t, registered.Domain.VerificationToken, registered.Instructions.TXTValue)

	link := s.createShortLink(t, tok, map[string]interface{}{"domain_id": registered.Domain.ID})
	assert.Equal(t, "https://go.example.com/"+link.ShortCode, link.ShortURL)

	// Unverified domains do not serve.
	rec = s.do(t, http.MethodGet, "http://go.example.com/"+link.ShortCode, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, fmt.Sprintf("http://tag.link/domains/%d/verify", registered.Domain.ID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[VerifyDomainResponse](t, rec).Verified)

	rec = s.do(t, http.MethodGet, "http://go.example.com/"+link.ShortCode, "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, link.TaggedURL, rec.Header().Get("Location"))

	rec = s.do(t, http.MethodGet, "http://go.example.com/r/"+link.ShortCode, "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)

	// The code is not reachable through the default domain.
	rec = s.do(t, http.MethodGet, "http://tag.link/r/"+link.ShortCode, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Custom hosts never expose the API.
	rec = s.do(t, http.MethodGet, "http://go.example.com/links", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDomains_VerifyOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		dnsErr   error
		status   int
		verified bool
		pending  bool
		message  string
	}{
		{name: "pending on timeout", dnsErr: &dnscheck.RecordError{Type: "TXT", Name: "_taglink-verify.links.example.com", Err: dnscheck.ErrLookupTimeout}, status: http.StatusAccepted, pending: true},
		{
			name:    "token missing",
			dnsErr:  &dnscheck.RecordError{Type: "TXT", Name: "_taglink-verify.links.example.com", Err: dnscheck.ErrTokenMismatch},
			status:  http.StatusOK,
			message: "TXT record _taglink-verify.links.example.com does not contain taglink-verify-",
		},
		{
			name:    "txt record absent",
			dnsErr:  &dnscheck.RecordError{Type: "TXT", Name: "_taglink-verify.links.example.com", Err: dnscheck.ErrRecordNotFound},
			status:  http.StatusOK,
			message: "TXT record _taglink-verify.links.example.com not found",
		},
		{
			name:    "cname elsewhere",
			dnsErr:  &dnscheck.RecordError{Type: "CNAME", Name: "links.example.com", Got: "parked.registrar.net", Err: dnscheck.ErrCNAMEMismatch},
			status:  http.StatusOK,
			message: "CNAME record links.example.com points at parked.registrar.net, expected redirect.tag.link",
		},
		{name: "dns outage", dnsErr: dnscheck.ErrLookupTemporary, status: http.StatusServiceUnavailable},
		{name: "verified", status: http.StatusOK, verified: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			tok := s.token(t, alice)
			rec := s.do(t, http.MethodPost, "http://tag.link/domains", tok, RegisterDomainRequest{Hostname: "links.example.com"})
			require.Equal(t, http.StatusCreated, rec.Code)
			id := decode[DomainResponse](t, rec).Domain.ID

			s.dns.err = tt.dnsErr
			rec = s.do(t, http.MethodPut, fmt.Sprintf("http://tag.link/domains/%d/verify", id), tok, nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusServiceUnavailable {
				return
			}
			resp := decode[VerifyDomainResponse](t, rec)
			assert.Equal(t, tt.verified, resp.Verified)
			assert.Equal(t, tt.pending, resp.Pending)
			if tt.message != "" {
				assert.Contains(t, resp.Message, tt.message)
			}
		})
	}
}

func TestDomains_ClaimConflictAndOwnership(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "http://tag.link/domains", s.token(t, alice), RegisterDomainRequest{Hostname: "go.example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	d := decode[DomainResponse](t, rec).Domain

	rec = s.do(t, http.MethodPost, "http://tag.link/domains", s.token(t, bob), RegisterDomainRequest{Hostname: "go.example.com."})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("http://tag.link/domains/%d", d.ID), s.token(t, bob), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "http://tag.link/domains", s.token(t, bob), RegisterDomainRequest{Hostname: "not a host"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDomains_RegenerateAndDelete(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, alice)

	rec := s.do(t, http.MethodPost, "http://tag.link/domains", tok, RegisterDomainRequest{Hostname: "go.example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	d := decode[DomainResponse](t, rec).Domain
	link := s.createShortLink(t, tok, map[string]interface{}{"domain_id": d.ID})

	rec = s.do(t, http.MethodPost, fmt.Sprintf("http://tag.link/domains/%d/token", d.ID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, d.VerificationToken, decode[DomainResponse](t, rec).Domain.VerificationToken)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("http://tag.link/domains/%d", d.ID), tok, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "http://tag.link/domains", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[ListDomainsResponse](t, rec).Domains)

	// The link now lives on the default domain.
	rec = s.do(t, http.MethodGet, fmt.Sprintf("http://tag.link/links/%d", link.ID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	moved := decode[LinkResponse](t, rec)
	assert.Nil(t, moved.DomainID)
	assert.True(t, strings.HasPrefix(moved.ShortURL, "https://tag.link/r/"))
}

func TestAnalytics_LinkReport(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, alice)
	link := s.createShortLink(t, tok, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.store.RecordClick(context.Background(), &domain.ClickEvent{
			LinkID:      link.ID,
			OccurredAt:  time.Now().UTC().Add(-time.Minute),
			DeviceClass: domain.DeviceMobile,
			Browser:     "Safari",
			OS:          "iOS",
		}))
	}

	rec := s.do(t, http.MethodGet, fmt.Sprintf("http://tag.link/analytics?linkId=%d&window=14", link.ID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[analytics.Report](t, rec)
	assert.Equal(t, 14, report.Window)
	assert.EqualValues(t, 3, report.Total)
	assert.Len(t, report.TimeSeries, 14)
	assert.Equal(t, []domain.GroupCount{{Value: domain.DeviceMobile, Count: 3}}, report.ByDevice)

	rec = s.do(t, http.MethodGet, "http://tag.link/analytics", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode[analytics.Report](t, rec).Total)
}

func TestAnalytics_Errors(t *testing.T) {
	s := newTestServer(t)
	link := s.createShortLink(t, s.token(t, alice), nil)

	rec := s.do(t, http.MethodGet, "http://tag.link/analytics?window=3", s.token(t, alice), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "http://tag.link/analytics?timeout=soon", s.token(t, alice), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("http://tag.link/analytics?linkId=%d", link.ID), s.token(t, bob), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "http://tag.link/analytics?linkId=999", s.token(t, alice), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuota_Usage(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, alice)
	s.createShortLink(t, tok, nil)

	rec := s.do(t, http.MethodGet, "http://tag.link/quota", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	usage := decode[quota.Usage](t, rec)
	assert.Equal(t, domain.PlanFree, usage.Plan)
	assert.EqualValues(t, 1, usage.Current)
	require.NotNil(t, usage.Limit)
	assert.EqualValues(t, 2, *usage.Limit)

	pro := domain.Account{ID: "pat", Plan: domain.PlanPro}
	rec = s.do(t, http.MethodGet, "http://tag.link/quota", s.token(t, pro), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[quota.Usage](t, rec).Limit)
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "http://tag.link/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[HealthResponse](t, rec).Status)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "http://go.example.com/ready", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestCORS_Preflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "http://tag.link/links", nil)
	req.Header.Set("Origin", "https://app.tag.link")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.tag.link", rec.Header().Get("Access-Control-Allow-Origin"))
}
