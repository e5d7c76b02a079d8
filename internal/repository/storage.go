package repository

import (
	"Taglink-Backend/internal/domain"
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrCodeTaken     = errors.New("short code already taken")
	ErrHostnameTaken = errors.New("hostname already registered")
)

// QuotaGuard is evaluated inside the link creation transaction with the owner's current
// personal link count. A non-nil error aborts the insert.
type QuotaGuard func(current int64) error

// CodeSource supplies fresh short codes when a stored code must be replaced.
type CodeSource func() (string, error)

type LinkRepository interface {
	// CreateLink inserts the link atomically with the guard check. A nil guard skips the check.
	CreateLink(ctx context.Context, link *domain.Link, guard QuotaGuard) error
	GetLink(ctx context.Context, id int64) (*domain.Link, error)
	DeleteLink(ctx context.Context, id int64) error
	// ListLinks returns links owned by ownerID plus links of the given teams, newest first,
	// with BoundDomain populated for bound links.
	ListLinks(ctx context.Context, ownerID string, teams []string) ([]*domain.Link, error)
	CountPersonalLinks(ctx context.Context, ownerID string) (int64, error)
}

type DomainRepository interface {
	CreateDomain(ctx context.Context, d *domain.Domain) error
	GetDomain(ctx context.Context, id int64) (*domain.Domain, error)
	GetDomainByHostname(ctx context.Context, hostname string) (*domain.Domain, error)
	ListDomains(ctx context.Context, ownerID string) ([]*domain.Domain, error)
	UpdateDomain(ctx context.Context, d *domain.Domain) error
	// DeleteDomain removes the domain and moves its links to the default domain. Links whose
	// code is already used there get a replacement from codes. The demoted links are returned
	// with their original codes.
	DeleteDomain(ctx context.Context, id int64, codes CodeSource) ([]*domain.Link, error)
}

type RedirectRepository interface {
	ResolveDefault(ctx context.Context, code string) (*domain.Link, error)
	// ResolveOnDomain only matches links bound to a verified domain with the given hostname.
	ResolveOnDomain(ctx context.Context, hostname, code string) (*domain.Link, error)
}

// ClickReader answers aggregate queries over the click log.
type ClickReader interface {
	CountClicks(ctx context.Context, scope domain.ClickScope) (int64, error)
	ClicksByDevice(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error)
	ClicksByBrowser(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error)
	ClicksByOS(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error)
	ClicksByCountry(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error)
	ClicksByCity(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error)
	ClicksByReferrer(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error)
	ClicksByDay(ctx context.Context, scope domain.ClickScope) ([]domain.DayCount, error)
}

type ClickRepository interface {
	// RecordClick appends the event and bumps the link's clicks total in one transaction.
	RecordClick(ctx context.Context, ev *domain.ClickEvent) error

	ClickReader

	// ReadSnapshot calls fn with a reader whose queries all see the same committed state,
	// so clicks written while fn runs appear in none of them. The reader is safe for
	// concurrent use and is only valid until fn returns.
	ReadSnapshot(ctx context.Context, fn func(ClickReader) error) error
}

type Storage interface {
	LinkRepository
	DomainRepository
	RedirectRepository
	ClickRepository

	Ping(ctx context.Context) error
}

// Group labels used when a dimension has no value.
const (
	UnknownValue = domain.Unknown
	DirectValue  = "Direct"
)
