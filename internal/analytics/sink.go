package analytics

import (
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
)

// Sink is where enriched click events go.
type Sink interface {
	Write(ctx context.Context, ev *domain.ClickEvent) error
}

// StoreSink persists clicks directly through the click repository.
type StoreSink struct {
	repo repository.ClickRepository
}

func NewStoreSink(repo repository.ClickRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Write(ctx context.Context, ev *domain.ClickEvent) error {
	if err := s.repo.RecordClick(ctx, ev); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("link %d no longer exists: %w", ev.LinkID, err)
		}
		return fmt.Errorf("failed to record click: %w", err)
	}
	return nil
}
