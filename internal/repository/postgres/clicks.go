package postgres

import (
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/repository"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Grouping expressions. Each dimension query picks one of these constants; nothing caller
// supplied ever reaches the SQL text.
const (
	deviceExpr   = "click_events.device_class"
	browserExpr  = "click_events.browser"
	osExpr       = "click_events.os"
	countryExpr  = "COALESCE(click_events.country, '" + repository.UnknownValue + "')"
	cityExpr     = "COALESCE(click_events.city, '" + repository.UnknownValue + "')"
	referrerExpr = "COALESCE(click_events.referrer_host, '" + repository.DirectValue + "')"
)

// Snapshot transactions only read, and must be at least REPEATABLE READ to import an
// exported snapshot.
var snapshotTx = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// Snapshot ids look like 00000003-0000001B-1. SET TRANSACTION SNAPSHOT takes no bind
// parameters, so the id is checked before it is spliced into the statement.
var snapshotID = regexp.MustCompile(`^[0-9A-F]+-[0-9A-F]+-[0-9]+$`)

// RecordClick appends a click event and increments the link's clicks column together.
func (s *PostgresStorage) RecordClick(ctx context.Context, ev *domain.ClickEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Link{}).
			Where("id = ?", ev.LinkID).
			Update("clicks", gorm.Expr("clicks + 1"))
		if result.Error != nil {
			return fmt.Errorf("failed to update click count: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return repository.ErrNotFound
		}

		if err := tx.Omit(clause.Associations).Create(ev).Error; err != nil {
			return fmt.Errorf("failed to create click event: %w", err)
		}
		return nil
	})
}

// ReadSnapshot exports the snapshot of a read-only transaction and hands fn a reader whose
// queries each run in their own transaction importing it. Queries can therefore run in
// parallel on separate connections and still agree with each other. The exporting
// transaction stays open until fn returns.
func (s *PostgresStorage) ReadSnapshot(ctx context.Context, fn func(repository.ClickReader) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var id string
		if err := tx.Raw("SELECT pg_export_snapshot()").Scan(&id).Error; err != nil {
			return fmt.Errorf("failed to export snapshot: %w", err)
		}
		if !snapshotID.MatchString(id) {
			return fmt.Errorf("unexpected snapshot id %q", id)
		}
		return fn(clickReader{log: s.log, conn: s.inSnapshot(id)})
	}, snapshotTx)
}

func (s *PostgresStorage) inSnapshot(id string) connFunc {
	return func(ctx context.Context, fn func(*gorm.DB) error) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec("SET TRANSACTION SNAPSHOT '" + id + "'").Error; err != nil {
				return fmt.Errorf("failed to import snapshot: %w", err)
			}
			return fn(tx)
		}, snapshotTx)
	}
}

// connFunc runs fn against a database handle: the pool itself, or a transaction pinned to
// an exported snapshot.
type connFunc func(ctx context.Context, fn func(*gorm.DB) error) error

func poolConn(db *gorm.DB) connFunc {
	return func(ctx context.Context, fn func(*gorm.DB) error) error {
		return fn(db.WithContext(ctx))
	}
}

// clickReader implements repository.ClickReader over a connFunc.
type clickReader struct {
	log  *zap.Logger
	conn connFunc
}

// CountClicks counts the events in scope.
func (r clickReader) CountClicks(ctx context.Context, scope domain.ClickScope) (int64, error) {
	var total int64
	err := r.conn(ctx, func(db *gorm.DB) error {
		return scoped(db, scope).Count(&total).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return total, nil
}

// ClicksByDevice groups events in scope by device class.
func (r clickReader) ClicksByDevice(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error) {
	return r.groupBy(ctx, scope, deviceExpr)
}

// ClicksByBrowser groups events in scope by browser family.
func (r clickReader) ClicksByBrowser(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error) {
	return r.groupBy(ctx, scope, browserExpr)
}

// ClicksByOS groups events in scope by operating system.
func (r clickReader) ClicksByOS(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error) {
	return r.groupBy(ctx, scope, osExpr)
}

// ClicksByCountry groups events in scope by country; missing geo data counts as Unknown.
func (r clickReader) ClicksByCountry(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error) {
	return r.groupBy(ctx, scope, countryExpr)
}

// ClicksByCity groups events in scope by city; missing geo data counts as Unknown.
func (r clickReader) ClicksByCity(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error) {
	return r.groupBy(ctx, scope, cityExpr)
}

// ClicksByReferrer groups events in scope by referrer host; no referrer counts as Direct.
func (r clickReader) ClicksByReferrer(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error) {
	return r.groupBy(ctx, scope, referrerExpr)
}

// ClicksByDay counts events in scope per UTC calendar day. Days without events are absent.
func (r clickReader) ClicksByDay(ctx context.Context, scope domain.ClickScope) ([]domain.DayCount, error) {
	var rows []domain.DayCount
	err := r.conn(ctx, func(db *gorm.DB) error {
		return scoped(db, scope).
			Select("date_trunc('day', click_events.occurred_at AT TIME ZONE 'UTC') AS day, count(*) AS count").
			Group("day").
			Order("day").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count clicks by day: %w", err)
	}
	return rows, nil
}

func (r clickReader) groupBy(ctx context.Context, scope domain.ClickScope, expr string) ([]domain.GroupCount, error) {
	var rows []domain.GroupCount
	err := r.conn(ctx, func(db *gorm.DB) error {
		return scoped(db, scope).
			Select(expr + " AS value, count(*) AS count").
			Group("value").
			Scan(&rows).Error
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		r.log.Error("failed to group clicks", zap.String("dimension", expr), zap.Error(err))
		return nil, fmt.Errorf("failed to group clicks: %w", err)
	}
	return rows, nil
}

// scoped narrows click events to a single link or to every link visible to an owner.
func scoped(db *gorm.DB, scope domain.ClickScope) *gorm.DB {
	q := db.Model(&domain.ClickEvent{}).
		Where("click_events.occurred_at >= ?", scope.Since)
	if !scope.Until.IsZero() {
		q = q.Where("click_events.occurred_at <= ?", scope.Until)
	}

	if scope.LinkID != nil {
		return q.Where("click_events.link_id = ?", *scope.LinkID)
	}

	q = q.Joins("JOIN links ON links.id = click_events.link_id")
	if len(scope.Teams) > 0 {
		return q.Where("(links.owner_id = ? OR links.team_id IN ?)", scope.OwnerID, scope.Teams)
	}
	return q.Where("links.owner_id = ?", scope.OwnerID)
}
