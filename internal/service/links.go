package service

import (
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/metrics"
	"Taglink-Backend/internal/quota"
	"Taglink-Backend/internal/repository"
	"Taglink-Backend/internal/validation"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// CreateLinkInput is the validated form input for a new link.
type CreateLinkInput struct {
	DestinationURL string     `json:"destination_url" validate:"required,max=2048,weburl"`
	UTM            domain.UTM `json:"utm"`
	// Short requests a short code; without it the link is UTM-only.
	Short    bool   `json:"short"`
	TeamID   string `json:"team_id,omitempty" validate:"max=64"`
	DomainID *int64 `json:"domain_id,omitempty"`
}

type LinkService struct {
	storage       repository.Storage
	quota         *quota.Enforcer
	alloc         *Allocator
	cache         RedirectCache
	defaultDomain string
	log           *zap.Logger
}

func NewLinkService(
	storage repository.Storage,
	enforcer *quota.Enforcer,
	alloc *Allocator,
	cache RedirectCache,
	defaultDomain string,
	log *zap.Logger,
) *LinkService {
	if cache == nil {
		cache = nopCache{}
	}
	return &LinkService{
		storage:       storage,
		quota:         enforcer,
		alloc:         alloc,
		cache:         cache,
		defaultDomain: defaultDomain,
		log:           log,
	}
}

// Create stores a new link for acc. Short links get a code allocated with bounded retries;
// personal links are admitted by the quota enforcer in the same transaction as the insert.
func (s *LinkService) Create(ctx context.Context, acc domain.Account, in CreateLinkInput) (*domain.Link, error) {
	if err := validateLinkInput(in); err != nil {
		return nil, err
	}

	link := &domain.Link{
		OwnerID:        acc.ID,
		DestinationURL: in.DestinationURL,
		UTM:            in.UTM,
	}

	if in.TeamID != "" {
		if !acc.MemberOf(in.TeamID) {
			return nil, domain.ErrForbidden
		}
		team := in.TeamID
		link.TeamID = &team
	}

	if in.DomainID != nil {
		if !in.Short {
			return nil, domain.NewValidationError("domain_id", "requires a short link")
		}
		d, err := s.storage.GetDomain(ctx, *in.DomainID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get domain: %w", err)
		}
		if d.OwnerID != acc.ID {
			return nil, domain.ErrForbidden
		}
		link.BoundDomainID = &d.ID
	}

	var err error
	if in.Short {
		err = s.alloc.WithRetry(func(code string) error {
			link.ShortCode = &code
			return s.quota.CheckAndReserve(ctx, acc.Plan, link)
		})
	} else {
		err = s.quota.CheckAndReserve(ctx, acc.Plan, link)
	}

	if err != nil {
		var qe *domain.QuotaExceededError
		switch {
		case errors.As(err, &qe):
			metrics.LinkCreations.WithLabelValues("quota_exceeded").Inc()
			s.log.Info("link creation denied by quota",
				zap.String("owner_id", acc.ID),
				zap.Int64("current", qe.Current),
				zap.Int64("limit", qe.Limit))
			return nil, err
		case errors.Is(err, domain.ErrAllocationExhausted):
			metrics.LinkCreations.WithLabelValues("allocation_exhausted").Inc()
			s.log.Error("short code allocation exhausted", zap.String("owner_id", acc.ID))
			return nil, err
		default:
			metrics.LinkCreations.WithLabelValues("error").Inc()
			s.log.Error("failed to create link", zap.String("owner_id", acc.ID), zap.Error(err))
			return nil, fmt.Errorf("failed to create link: %w", err)
		}
	}

	metrics.LinkCreations.WithLabelValues("created").Inc()
	s.log.Info("link created",
		zap.Int64("link_id", link.ID),
		zap.String("owner_id", acc.ID),
		zap.Bool("short", link.IsShort()))
	return link, nil
}

// Get returns a link the account may manage.
func (s *LinkService) Get(ctx context.Context, acc domain.Account, id int64) (*domain.Link, error) {
	link, err := s.storage.GetLink(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	if !link.ManageableBy(acc) {
		return nil, domain.ErrForbidden
	}
	return link, nil
}

// Delete removes a link owned by acc or by one of acc's teams.
func (s *LinkService) Delete(ctx context.Context, acc domain.Account, id int64) error {
	link, err := s.Get(ctx, acc, id)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteLink(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to delete link: %w", err)
	}

	if link.IsShort() {
		s.cache.Invalidate(ctx, s.Host(ctx, link), link.Code())
	}

	s.log.Info("link deleted", zap.Int64("link_id", id), zap.String("requester", acc.ID))
	return nil
}

// List returns the account's personal links and its teams' links, newest first.
func (s *LinkService) List(ctx context.Context, acc domain.Account) ([]*domain.Link, error) {
	links, err := s.storage.ListLinks(ctx, acc.ID, acc.Teams)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// Host returns the hostname a short link is served from. Links from List carry their bound
// domain already; others cost one lookup.
func (s *LinkService) Host(ctx context.Context, link *domain.Link) string {
	if link.BoundDomainID == nil {
		return s.defaultDomain
	}
	if link.BoundDomain != nil && link.BoundDomain.ID == *link.BoundDomainID {
		return link.BoundDomain.Hostname
	}
	d, err := s.storage.GetDomain(ctx, *link.BoundDomainID)
	if err != nil {
		s.log.Warn("failed to load bound domain", zap.Int64("domain_id", *link.BoundDomainID), zap.Error(err))
		return s.defaultDomain
	}
	return d.Hostname
}

func validateLinkInput(in CreateLinkInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	fields := []struct{ name, value string }{
		{"utm_source", in.UTM.Source},
		{"utm_medium", in.UTM.Medium},
		{"utm_campaign", in.UTM.Campaign},
		{"utm_term", in.UTM.Term},
		{"utm_content", in.UTM.Content},
	}
	for _, f := range fields {
		if err := validation.Var(f.name, f.value, "max=255"); err != nil {
			return err
		}
	}
	return nil
}
