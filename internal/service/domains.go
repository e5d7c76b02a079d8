package service

import (
	"Taglink-Backend/internal/dnscheck"
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/metrics"
	"Taglink-Backend/internal/repository"
	"Taglink-Backend/internal/validation"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// DNSChecker verifies that DNS records prove control of a hostname.
type DNSChecker interface {
	Verify(ctx context.Context, hostname, token string) error
	TXTName(hostname string) string
	CNAMETarget() string
}

// DNSInstructions tells the domain owner which records to publish.
type DNSInstructions struct {
	CNAMEName   string `json:"cname_name"`
	CNAMETarget string `json:"cname_target"`
	TXTName     string `json:"txt_name"`
	TXTValue    string `json:"txt_value"`
}

type DomainService struct {
	storage       repository.Storage
	dns           DNSChecker
	alloc         *Allocator
	cache         RedirectCache
	tokenKey      []byte
	verifyTimeout time.Duration
	defaultDomain string
	now           func() time.Time
	log           *zap.Logger
}

func NewDomainService(
	storage repository.Storage,
	dns DNSChecker,
	alloc *Allocator,
	cache RedirectCache,
	tokenSecret string,
	verifyTimeout time.Duration,
	defaultDomain string,
	log *zap.Logger,
) *DomainService {
	if cache == nil {
		cache = nopCache{}
	}
	// blake2b keys are capped at 64 bytes; longer secrets are compressed first.
	key := []byte(tokenSecret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &DomainService{
		storage:       storage,
		dns:           dns,
		alloc:         alloc,
		cache:         cache,
		tokenKey:      key,
		verifyTimeout: verifyTimeout,
		defaultDomain: domain.NormalizeHostname(defaultDomain),
		now:           time.Now,
		log:           log,
	}
}

// Register claims hostname for acc. Registering a hostname the account already holds returns
// the existing domain; a hostname held by anyone else fails with ErrDomainAlreadyClaimed.
func (s *DomainService) Register(ctx context.Context, acc domain.Account, hostname string) (*domain.Domain, error) {
	host := domain.NormalizeHostname(hostname)
	if err := validation.Var("hostname", host, "required,fqdn,max=253"); err != nil {
		return nil, err
	}
	if host == s.defaultDomain {
		return nil, domain.NewValidationError("hostname", "is reserved")
	}

	d := &domain.Domain{OwnerID: acc.ID, Hostname: host}
	d.VerificationToken = s.token(d)

	err := s.storage.CreateDomain(ctx, d)
	if errors.Is(err, repository.ErrHostnameTaken) {
		existing, getErr := s.storage.GetDomainByHostname(ctx, host)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load claimed domain: %w", getErr)
		}
		if existing.OwnerID != acc.ID {
			return nil, domain.ErrDomainAlreadyClaimed
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to register domain: %w", err)
	}

	s.log.Info("domain registered", zap.Int64("domain_id", d.ID), zap.String("hostname", host), zap.String("owner_id", acc.ID))
	return d, nil
}

// Instructions returns the DNS records the owner must publish for d.
func (s *DomainService) Instructions(d *domain.Domain) DNSInstructions {
	return DNSInstructions{
		CNAMEName:   d.Hostname,
		CNAMETarget: s.dns.CNAMETarget(),
		TXTName:     s.dns.TXTName(d.Hostname),
		TXTValue:    d.VerificationToken,
	}
}

// Get returns a domain owned by acc.
func (s *DomainService) Get(ctx context.Context, acc domain.Account, id int64) (*domain.Domain, error) {
	d, err := s.storage.GetDomain(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}
	if d.OwnerID != acc.ID {
		return nil, domain.ErrForbidden
	}
	return d, nil
}

// List returns the account's domains.
func (s *DomainService) List(ctx context.Context, acc domain.Account) ([]*domain.Domain, error) {
	domains, err := s.storage.ListDomains(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	return domains, nil
}

// RegenerateToken issues a new verification token for the domain. The token is a keyed hash
// over the domain and a generation counter, so it only changes when regenerated.
func (s *DomainService) RegenerateToken(ctx context.Context, acc domain.Account, id int64) (*domain.Domain, error) {
	d, err := s.Get(ctx, acc, id)
	if err != nil {
		return nil, err
	}

	d.TokenGeneration++
	d.VerificationToken = s.token(d)
	if err := s.storage.UpdateDomain(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to update domain: %w", err)
	}
	return d, nil
}

// Verify checks the domain's DNS records. It is a no-op for verified domains. A lookup that
// exceeds the verify timeout yields ErrVerificationPending so the caller can retry later.
func (s *DomainService) Verify(ctx context.Context, acc domain.Account, id int64) (*domain.Domain, error) {
	d, err := s.Get(ctx, acc, id)
	if err != nil {
		return nil, err
	}
	if d.Verified {
		return d, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	defer cancel()

	if err := s.dns.Verify(lookupCtx, d.Hostname, d.VerificationToken); err != nil {
		switch {
		case errors.Is(err, dnscheck.ErrLookupTimeout):
			metrics.DomainVerifications.WithLabelValues("pending").Inc()
			return d, domain.ErrVerificationPending
		case errors.Is(err, dnscheck.ErrLookupTemporary):
			metrics.DomainVerifications.WithLabelValues("error").Inc()
			s.log.Warn("dns lookup failed", zap.String("hostname", d.Hostname), zap.Error(err))
			return d, fmt.Errorf("%w: %v", domain.ErrTransientDependency, err)
		default:
			metrics.DomainVerifications.WithLabelValues("failed").Inc()
			return d, fmt.Errorf("%w: %w", domain.ErrVerificationFailed, err)
		}
	}

	now := s.now().UTC()
	d.Verified = true
	d.VerifiedAt = &now
	if err := s.storage.UpdateDomain(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to mark domain verified: %w", err)
	}

	metrics.DomainVerifications.WithLabelValues("verified").Inc()
	s.log.Info("domain verified", zap.Int64("domain_id", d.ID), zap.String("hostname", d.Hostname))
	return d, nil
}

// Delete removes the domain. Its links fall back to the default domain; any whose code is
// already taken there receive a new one.
func (s *DomainService) Delete(ctx context.Context, acc domain.Account, id int64) error {
	d, err := s.Get(ctx, acc, id)
	if err != nil {
		return err
	}

	demoted, err := s.storage.DeleteDomain(ctx, id, s.alloc.Source())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound
		}
		if errors.Is(err, domain.ErrAllocationExhausted) {
			s.log.Error("short code allocation exhausted while demoting links", zap.Int64("domain_id", id))
			return err
		}
		return fmt.Errorf("failed to delete domain: %w", err)
	}

	for _, link := range demoted {
		if link.IsShort() {
			s.cache.Invalidate(ctx, d.Hostname, link.Code())
		}
	}

	s.log.Info("domain deleted", zap.Int64("domain_id", id), zap.Int("demoted_links", len(demoted)))
	return nil
}

func (s *DomainService) token(d *domain.Domain) string {
	mac, err := blake2b.New256(s.tokenKey)
	if err != nil {
		// Only reachable with an oversized key, which the constructor rules out.
		panic(err)
	}
	mac.Write([]byte(d.Hostname))
	mac.Write([]byte{0})
	mac.Write([]byte(d.OwnerID))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.Itoa(d.TokenGeneration)))
	return "taglink-verify-" + hex.EncodeToString(mac.Sum(nil))
}
