package postgres

import (
	"Taglink-Backend/internal/database"
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/repository"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolation = "23505"

// PostgresStorage implements repository.Storage on PostgreSQL. Click queries issued on it
// directly read from the pool; ReadSnapshot gives a consistent view across queries.
type PostgresStorage struct {
	clickReader

	db  *gorm.DB
	log *zap.Logger
}

// New creates a PostgreSQL-backed storage.
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		clickReader: clickReader{log: log, conn: poolConn(db)},
		db:          db,
		log:         log,
	}
}

// Ping checks that the database answers.
func (s *PostgresStorage) Ping(ctx context.Context) error {
	return database.Ping(ctx, s.db)
}

// --- Link Methods ---

// CreateLink inserts a link. When a guard is given, the owner's row count is read and the
// insert is performed under a per-owner transaction-scoped advisory lock, so concurrent
// creations for the same owner are serialized and can never jointly pass the guard.
func (s *PostgresStorage) CreateLink(ctx context.Context, link *domain.Link, guard repository.QuotaGuard) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if guard != nil {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", link.OwnerID).Error; err != nil {
				return fmt.Errorf("failed to lock owner quota: %w", err)
			}

			var current int64
			err := tx.Model(&domain.Link{}).
				Where("owner_id = ? AND team_id IS NULL", link.OwnerID).
				Count(&current).Error
			if err != nil {
				return fmt.Errorf("failed to count links: %w", err)
			}
			if err := guard(current); err != nil {
				return err
			}
		}

		return tx.Omit(clause.Associations).Create(link).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrCodeTaken
		}
		return err
	}

	s.log.Debug("saved new link", zap.Int64("link_id", link.ID), zap.String("owner_id", link.OwnerID))
	return nil
}

// GetLink returns a link by id.
func (s *PostgresStorage) GetLink(ctx context.Context, id int64) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.Int64("link_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

// DeleteLink removes a link. Its click events go with it through the foreign key cascade.
func (s *PostgresStorage) DeleteLink(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Link{})
	if result.Error != nil {
		s.log.Error("failed to delete link", zap.Int64("link_id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to delete link: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListLinks returns the owner's links and the links of the owner's teams. Bound domains are
// loaded in one extra query.
func (s *PostgresStorage) ListLinks(ctx context.Context, ownerID string, teams []string) ([]*domain.Link, error) {
	var links []*domain.Link

	q := s.db.WithContext(ctx)
	if len(teams) > 0 {
		q = q.Where("owner_id = ? OR team_id IN ?", ownerID, teams)
	} else {
		q = q.Where("owner_id = ?", ownerID)
	}

	if err := q.Preload("BoundDomain").Order("created_at DESC, id DESC").Find(&links).Error; err != nil {
		s.log.Error("failed to list links", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	return links, nil
}

// CountPersonalLinks counts links that count against the owner's quota.
func (s *PostgresStorage) CountPersonalLinks(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Link{}).
		Where("owner_id = ? AND team_id IS NULL", ownerID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}

// --- Domain Methods ---

// CreateDomain inserts a domain; the hostname unique index arbitrates concurrent claims.
func (s *PostgresStorage) CreateDomain(ctx context.Context, d *domain.Domain) error {
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		if isUniqueViolation(err) {
			return repository.ErrHostnameTaken
		}
		s.log.Error("failed to create domain", zap.String("hostname", d.Hostname), zap.Error(err))
		return fmt.Errorf("failed to create domain: %w", err)
	}
	return nil
}

// GetDomain returns a domain by id.
func (s *PostgresStorage) GetDomain(ctx context.Context, id int64) (*domain.Domain, error) {
	var d domain.Domain
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}
	return &d, nil
}

// GetDomainByHostname returns a domain by its hostname.
func (s *PostgresStorage) GetDomainByHostname(ctx context.Context, hostname string) (*domain.Domain, error) {
	var d domain.Domain
	err := s.db.WithContext(ctx).Where("hostname = ?", hostname).Take(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}
	return &d, nil
}

// ListDomains returns the owner's domains ordered by hostname.
func (s *PostgresStorage) ListDomains(ctx context.Context, ownerID string) ([]*domain.Domain, error) {
	var domains []*domain.Domain
	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("hostname").Find(&domains).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	return domains, nil
}

// UpdateDomain persists token and verification state changes.
func (s *PostgresStorage) UpdateDomain(ctx context.Context, d *domain.Domain) error {
	result := s.db.WithContext(ctx).Model(&domain.Domain{}).Where("id = ?", d.ID).Updates(map[string]interface{}{
		"verification_token": d.VerificationToken,
		"token_generation":   d.TokenGeneration,
		"verified":           d.Verified,
		"verified_at":        d.VerifiedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update domain: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteDomain demotes the domain's links to the default domain and deletes the domain,
// all in one transaction.
func (s *PostgresStorage) DeleteDomain(ctx context.Context, id int64, codes repository.CodeSource) ([]*domain.Link, error) {
	var demoted []*domain.Link

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d domain.Domain
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&d).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock domain: %w", err)
		}

		if err := tx.Where("bound_domain_id = ?", id).Order("id").Find(&demoted).Error; err != nil {
			return fmt.Errorf("failed to load bound links: %w", err)
		}

		for _, link := range demoted {
			code := link.ShortCode
			if link.IsShort() {
				free, err := freeDefaultCode(tx, *link.ShortCode, codes)
				if err != nil {
					return err
				}
				code = &free
			}
			err := tx.Model(&domain.Link{}).Where("id = ?", link.ID).Updates(map[string]interface{}{
				"bound_domain_id": nil,
				"short_code":      code,
			}).Error
			if err != nil {
				return fmt.Errorf("failed to demote link %d: %w", link.ID, err)
			}
		}

		return tx.Delete(&d).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrCodeTaken
		}
		return nil, err
	}

	s.log.Info("deleted domain", zap.Int64("domain_id", id), zap.Int("demoted_links", len(demoted)))
	return demoted, nil
}

// freeDefaultCode returns code when it is unused in the default scope, otherwise the first
// unused code drawn from codes.
func freeDefaultCode(tx *gorm.DB, code string, codes repository.CodeSource) (string, error) {
	for {
		var taken int64
		err := tx.Model(&domain.Link{}).
			Where("short_code = ? AND bound_domain_id IS NULL", code).
			Count(&taken).Error
		if err != nil {
			return "", fmt.Errorf("failed to check default scope: %w", err)
		}
		if taken == 0 {
			return code, nil
		}
		if code, err = codes(); err != nil {
			return "", err
		}
	}
}

// --- Redirect Methods ---

// ResolveDefault finds a short link on the default domain.
func (s *PostgresStorage) ResolveDefault(ctx context.Context, code string) (*domain.Link, error) {
	var link domain.Link
	err := s.db.WithContext(ctx).
		Where("short_code = ? AND bound_domain_id IS NULL", code).
		Take(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve code: %w", err)
	}
	return &link, nil
}

// ResolveOnDomain finds a short link through a verified custom domain in one indexed join.
func (s *PostgresStorage) ResolveOnDomain(ctx context.Context, hostname, code string) (*domain.Link, error) {
	var link domain.Link
	err := s.db.WithContext(ctx).
		Joins("JOIN domains ON domains.id = links.bound_domain_id").
		Where("domains.hostname = ? AND domains.verified = ? AND links.short_code = ?", hostname, true, code).
		Take(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve code on domain: %w", err)
	}
	return &link, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
