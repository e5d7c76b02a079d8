package database

import (
	"Taglink-Backend/internal/domain"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Short codes are unique per scope: the default domain (no bound domain) and each bound domain.
// GORM tags cannot express partial indexes, so they are created with raw DDL.
var indexStatements = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uk_links_default_code
		ON links (short_code)
		WHERE bound_domain_id IS NULL AND short_code IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uk_links_domain_code
		ON links (bound_domain_id, short_code)
		WHERE bound_domain_id IS NOT NULL AND short_code IS NOT NULL`,
}

// AutoMigrate creates or updates the schema for all domain models.
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("starting database auto-migration")

	// Order matters because of foreign keys.
	models := []interface{}{
		&domain.Domain{},
		&domain.Link{},
		&domain.ClickEvent{},
	}

	for i, model := range models {
		modelName := fmt.Sprintf("%T", model)
		log.Info("migrating model",
			zap.String("model", modelName),
			zap.Int("step", i+1),
			zap.Int("total", len(models)))

		if err := db.AutoMigrate(model); err != nil {
			log.Error("failed to migrate model",
				zap.String("model", modelName),
				zap.Error(err))
			return fmt.Errorf("failed to migrate model %s: %w", modelName, err)
		}
	}

	for _, stmt := range indexStatements {
		if err := db.Exec(stmt).Error; err != nil {
			log.Error("failed to create index", zap.Error(err))
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Info("database auto-migration completed successfully", zap.Int("migrated_models", len(models)))
	return nil
}
