package service

import (
	"Taglink-Backend/internal/dnscheck"
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/quota"
	"Taglink-Backend/internal/repository"
	"Taglink-Backend/internal/repository/memory"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const defaultDomain = "tag.link"

func strPtr(s string) *string { return &s }

// sequence returns a generator that yields codes in order and then repeats the last one.
func sequence(codes ...string) func(int) (string, error) {
	i := 0
	return func(int) (string, error) {
		c := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return c, nil
	}
}

type invalidation struct{ host, code string }

type recordingCache struct {
	invalidated []invalidation
}

func (c *recordingCache) Invalidate(_ context.Context, host, code string) {
	c.invalidated = append(c.invalidated, invalidation{host, code})
}

type mockDNS struct {
	mock.Mock
}

func (m *mockDNS) Verify(ctx context.Context, hostname, token string) error {
	return m.Called(ctx, hostname, token).Error(0)
}

func (m *mockDNS) TXTName(hostname string) string { return "_taglink-verify." + hostname }
func (m *mockDNS) CNAMETarget() string            { return "redirect.tag.link" }

var (
	owner    = domain.Account{ID: "acc-1", Plan: domain.PlanFree, Teams: []string{"team-a"}}
	stranger = domain.Account{ID: "acc-2", Plan: domain.PlanPro}
)

func TestAllocator_WithRetry(t *testing.T) {
	t.Run("retries collisions", func(t *testing.T) {
		a := NewAllocator(8, 5)
		a.generate = sequence("aaaaaaaa", "bbbbbbbb")

		var tried []string
		err := a.WithRetry(func(code string) error {
			tried = append(tried, code)
			if code == "aaaaaaaa" {
				return repository.ErrCodeTaken
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"aaaaaaaa", "bbbbbbbb"}, tried)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		a := NewAllocator(8, 3)
		a.generate = sequence("aaaaaaaa")

		calls := 0
		err := a.WithRetry(func(string) error {
			calls++
			return repository.ErrCodeTaken
		})
		assert.ErrorIs(t, err, domain.ErrAllocationExhausted)
		assert.Equal(t, 3, calls)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		a := NewAllocator(8, 5)
		boom := errors.New("boom")

		calls := 0
		err := a.WithRetry(func(string) error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})
}

func TestAllocator_SourceIsBounded(t *testing.T) {
	a := NewAllocator(6, 2)
	src := a.Source()

	for i := 0; i < 2; i++ {
		code, err := src()
		require.NoError(t, err)
		assert.Len(t, code, 6)
	}
	_, err := src()
	assert.ErrorIs(t, err, domain.ErrAllocationExhausted)
}

type linkFixture struct {
	store *memory.MemStorage
	alloc *Allocator
	cache *recordingCache
	svc   *LinkService
}

func newLinkFixture(freeLimit int64) *linkFixture {
	store := memory.New()
	alloc := NewAllocator(8, 5)
	cache := &recordingCache{}
	enforcer := quota.NewEnforcer(store, quota.DefaultLimits(freeLimit))
	return &linkFixture{
		store: store,
		alloc: alloc,
		cache: cache,
		svc:   NewLinkService(store, enforcer, alloc, cache, defaultDomain, zap.NewNop()),
	}
}

func TestLinkService_CreateRetriesCollidingCode(t *testing.T) {
	f := newLinkFixture(50)
	ctx := context.Background()
	require.NoError(t, f.store.CreateLink(ctx, &domain.Link{OwnerID: "x", DestinationURL: "https://x.com", ShortCode: strPtr("aaaaaaaa")}, nil))
	f.alloc.generate = sequence("aaaaaaaa", "bbbbbbbb")

	link, err := f.svc.Create(ctx, owner, CreateLinkInput{DestinationURL: "https://example.com", Short: true})
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbb", link.Code())
}

func TestLinkService_CreateExhausted(t *testing.T) {
	f := newLinkFixture(50)
	ctx := context.Background()
	require.NoError(t, f.store.CreateLink(ctx, &domain.Link{OwnerID: "x", DestinationURL: "https://x.com", ShortCode: strPtr("aaaaaaaa")}, nil))
	f.alloc.generate = sequence("aaaaaaaa")

	_, err := f.svc.Create(ctx, owner, CreateLinkInput{DestinationURL: "https://example.com", Short: true})
	assert.ErrorIs(t, err, domain.ErrAllocationExhausted)
}

func TestLinkService_CreateValidation(t *testing.T) {
	f := newLinkFixture(50)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    CreateLinkInput
		field string
	}{
		{"missing destination", CreateLinkInput{}, "destination_url"},
		{"non web scheme", CreateLinkInput{DestinationURL: "ftp://example.com/file"}, "destination_url"},
		{"relative url", CreateLinkInput{DestinationURL: "/path"}, "destination_url"},
		{"domain without short", CreateLinkInput{DestinationURL: "https://example.com", DomainID: new(int64)}, "domain_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, owner, tt.in)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestLinkService_CreateOnDomain(t *testing.T) {
	f := newLinkFixture(50)
	ctx := context.Background()
	d := &domain.Domain{OwnerID: owner.ID, Hostname: "go.example.com", VerificationToken: "tok"}
	require.NoError(t, f.store.CreateDomain(ctx, d))

	link, err := f.svc.Create(ctx, owner, CreateLinkInput{DestinationURL: "https://example.com", Short: true, DomainID: &d.ID})
	require.NoError(t, err)
	assert.Equal(t, d.ID, *link.BoundDomainID)
	assert.Equal(t, "go.example.com", f.svc.Host(ctx, link))

	_, err = f.svc.Create(ctx, stranger, CreateLinkInput{DestinationURL: "https://example.com", Short: true, DomainID: &d.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	missing := int64(999)
	_, err = f.svc.Create(ctx, owner, CreateLinkInput{DestinationURL: "https://example.com", Short: true, DomainID: &missing})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLinkService_QuotaAndTeams(t *testing.T) {
	f := newLinkFixture(1)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, owner, CreateLinkInput{DestinationURL: "https://example.com"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, owner, CreateLinkInput{DestinationURL: "https://example.com"})
	var qe *domain.QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, domain.QuotaExceededError{Current: 1, Limit: 1}, *qe)

	team, err := f.svc.Create(ctx, owner, CreateLinkInput{DestinationURL: "https://example.com", TeamID: "team-a"})
	require.NoError(t, err)
	assert.Equal(t, "team-a", *team.TeamID)

	_, err = f.svc.Create(ctx, owner, CreateLinkInput{DestinationURL: "https://example.com", TeamID: "team-b"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	links, err := f.svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

type domainLookupCounter struct {
	*memory.MemStorage
	lookups int
}

func (c *domainLookupCounter) GetDomain(ctx context.Context, id int64) (*domain.Domain, error) {
	c.lookups++
	return c.MemStorage.GetDomain(ctx, id)
}

func TestLinkService_ListedLinksResolveHostWithoutLookups(t *testing.T) {
	store := &domainLookupCounter{MemStorage: memory.New()}
	svc := NewLinkService(store, quota.NewEnforcer(store, quota.DefaultLimits(50)), NewAllocator(8, 5), nil, defaultDomain, zap.NewNop())
	ctx := context.Background()

	first := &domain.Domain{OwnerID: owner.ID, Hostname: "go.example.com", VerificationToken: "tok"}
	second := &domain.Domain{OwnerID: owner.ID, Hostname: "links.example.org", VerificationToken: "tok"}
	require.NoError(t, store.CreateDomain(ctx, first))
	require.NoError(t, store.CreateDomain(ctx, second))
	for _, d := range []*domain.Domain{first, first, second} {
		_, err := svc.Create(ctx, owner, CreateLinkInput{DestinationURL: "https://example.com", Short: true, DomainID: &d.ID})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, owner, CreateLinkInput{DestinationURL: "https://example.com", Short: true})
	require.NoError(t, err)

	links, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, links, 4)

	store.lookups = 0
	hosts := map[string]int{}
	for _, link := range links {
		hosts[svc.Host(ctx, link)]++
	}
	assert.Zero(t, store.lookups)
	assert.Equal(t, map[string]int{"go.example.com": 2, "links.example.org": 1, defaultDomain: 1}, hosts)
}

func TestLinkService_DeleteInvalidatesCache(t *testing.T) {
	f := newLinkFixture(50)
	ctx := context.Background()

	link, err := f.svc.Create(ctx, owner, CreateLinkInput{DestinationURL: "https://example.com", Short: true})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, stranger, link.ID), domain.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, owner, link.ID))
	assert.Equal(t, []invalidation{{defaultDomain, link.Code()}}, f.cache.invalidated)

	assert.ErrorIs(t, f.svc.Delete(ctx, owner, link.ID), domain.ErrNotFound)
}

type domainFixture struct {
	store *memory.MemStorage
	dns   *mockDNS
	cache *recordingCache
	svc   *DomainService
}

func newDomainFixture() *domainFixture {
	store := memory.New()
	dns := new(mockDNS)
	cache := &recordingCache{}
	return &domainFixture{
		store: store,
		dns:   dns,
		cache: cache,
		svc:   NewDomainService(store, dns, NewAllocator(8, 5), cache, "secret", time.Second, defaultDomain, zap.NewNop()),
	}
}

func TestDomainService_Register(t *testing.T) {
	f := newDomainFixture()
	ctx := context.Background()

	d, err := f.svc.Register(ctx, owner, "Go.Example.COM.")
	require.NoError(t, err)
	assert.Equal(t, "go.example.com", d.Hostname)
	assert.False(t, d.Verified)
	assert.NotEmpty(t, d.VerificationToken)

	again, err := f.svc.Register(ctx, owner, "go.example.com")
	require.NoError(t, err)
	assert.Equal(t, d.ID, again.ID)

	_, err = f.svc.Register(ctx, stranger, "go.example.com")
	assert.ErrorIs(t, err, domain.ErrDomainAlreadyClaimed)

	var ve *domain.ValidationError
	_, err = f.svc.Register(ctx, owner, defaultDomain)
	assert.ErrorAs(t, err, &ve)
	_, err = f.svc.Register(ctx, owner, "bad host!")
	assert.ErrorAs(t, err, &ve)

	ins := f.svc.Instructions(d)
	assert.Equal(t, DNSInstructions{
		CNAMEName:   "go.example.com",
		CNAMETarget: "redirect.tag.link",
		TXTName:     "_taglink-verify.go.example.com",
		TXTValue:    d.VerificationToken,
	}, ins)
}

func TestDomainService_TokenIsBoundToOwnerAndGeneration(t *testing.T) {
	f := newDomainFixture()

	a := f.svc.token(&domain.Domain{Hostname: "go.example.com", OwnerID: "acc-1"})
	assert.Equal(t, a, f.svc.token(&domain.Domain{Hostname: "go.example.com", OwnerID: "acc-1"}))
	assert.NotEqual(t, a, f.svc.token(&domain.Domain{Hostname: "go.example.com", OwnerID: "acc-2"}))
	assert.NotEqual(t, a, f.svc.token(&domain.Domain{Hostname: "go.example.com", OwnerID: "acc-1", TokenGeneration: 1}))
}

func TestDomainService_Verify(t *testing.T) {
	tests := []struct {
		name     string
		dnsErr   error
		want     error
		verified bool
	}{
		{name: "verified", verified: true},
		{name: "pending", dnsErr: dnscheck.ErrLookupTimeout, want: domain.ErrVerificationPending},
		{name: "record missing", dnsErr: dnscheck.ErrRecordNotFound, want: domain.ErrVerificationFailed},
		{name: "cname mismatch", dnsErr: dnscheck.ErrCNAMEMismatch, want: domain.ErrVerificationFailed},
		{name: "dns outage", dnsErr: dnscheck.ErrLookupTemporary, want: domain.ErrTransientDependency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDomainFixture()
			ctx := context.Background()
			d, err := f.svc.Register(ctx, owner, "go.example.com")
			require.NoError(t, err)

			f.dns.On("Verify", mock.Anything, "go.example.com", d.VerificationToken).Return(tt.dnsErr).Once()

			got, err := f.svc.Verify(ctx, owner, d.ID)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			} else {
				require.NoError(t, err)
			}

			stored, err := f.store.GetDomain(ctx, d.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.verified, stored.Verified)
			if tt.verified {
				assert.NotNil(t, got.VerifiedAt)
				// Verified domains are not looked up again.
				_, err := f.svc.Verify(ctx, owner, d.ID)
				require.NoError(t, err)
			}
			f.dns.AssertExpectations(t)
		})
	}
}

func TestDomainService_RegenerateKeepsVerification(t *testing.T) {
	f := newDomainFixture()
	ctx := context.Background()
	d, err := f.svc.Register(ctx, owner, "go.example.com")
	require.NoError(t, err)
	f.dns.On("Verify", mock.Anything, "go.example.com", d.VerificationToken).Return(nil).Once()
	_, err = f.svc.Verify(ctx, owner, d.ID)
	require.NoError(t, err)

	regenerated, err := f.svc.RegenerateToken(ctx, owner, d.ID)
	require.NoError(t, err)
	assert.NotEqual(t, d.VerificationToken, regenerated.VerificationToken)
	assert.True(t, regenerated.Verified)

	_, err = f.svc.RegenerateToken(ctx, stranger, d.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestDomainService_DeleteDemotesLinks(t *testing.T) {
	f := newDomainFixture()
	ctx := context.Background()
	d, err := f.svc.Register(ctx, owner, "go.example.com")
	require.NoError(t, err)

	bound := &domain.Link{OwnerID: owner.ID, DestinationURL: "https://a.com", ShortCode: strPtr("dup00001"), BoundDomainID: &d.ID}
	require.NoError(t, f.store.CreateLink(ctx, bound, nil))
	require.NoError(t, f.store.CreateLink(ctx, &domain.Link{OwnerID: "x", DestinationURL: "https://b.com", ShortCode: strPtr("dup00001")}, nil))

	assert.ErrorIs(t, f.svc.Delete(ctx, stranger, d.ID), domain.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, owner, d.ID))

	moved, err := f.store.GetLink(ctx, bound.ID)
	require.NoError(t, err)
	assert.Nil(t, moved.BoundDomainID)
	assert.NotEqual(t, "dup00001", moved.Code())
	assert.Len(t, moved.Code(), 8)

	assert.Equal(t, []invalidation{{"go.example.com", "dup00001"}}, f.cache.invalidated)

	_, err = f.svc.Get(ctx, owner, d.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
