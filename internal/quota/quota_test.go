package quota

import (
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/repository/memory"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestEnforcer_Check(t *testing.T) {
	e := NewEnforcer(memory.New(), DefaultLimits(50))

	tests := []struct {
		name    string
		plan    domain.Plan
		current int64
		denied  bool
	}{
		{"free under limit", domain.PlanFree, 49, false},
		{"free at limit", domain.PlanFree, 50, true},
		{"pro unlimited", domain.PlanPro, 10_000, false},
		{"team unlimited", domain.PlanTeam, 10_000, false},
		{"business unlimited", domain.PlanBusiness, 10_000, false},
		{"unknown plan treated as free", domain.Plan("legacy"), 50, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Check(tt.plan, tt.current)
			if !tt.denied {
				assert.NoError(t, err)
				return
			}
			var qe *domain.QuotaExceededError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tt.current, qe.Current)
			assert.Equal(t, int64(50), qe.Limit)
		})
	}
}

func TestEnforcer_CheckAndReserve_Concurrent(t *testing.T) {
	store := memory.New()
	e := NewEnforcer(store, DefaultLimits(50))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		denied  int
		unknown int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := e.CheckAndReserve(context.Background(), domain.PlanFree, &domain.Link{
				OwnerID:        "acc-1",
				DestinationURL: "https://example.com",
			})
			var qe *domain.QuotaExceededError
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.As(err, &qe):
				denied++
			default:
				unknown++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, ok)
	assert.Equal(t, 50, denied)
	assert.Zero(t, unknown)

	n, err := store.CountPersonalLinks(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), n)
}

func TestEnforcer_TeamLinksExempt(t *testing.T) {
	store := memory.New()
	e := NewEnforcer(store, DefaultLimits(1))
	ctx := context.Background()

	require.NoError(t, e.CheckAndReserve(ctx, domain.PlanFree, &domain.Link{OwnerID: "a", DestinationURL: "https://x.com"}))
	require.Error(t, e.CheckAndReserve(ctx, domain.PlanFree, &domain.Link{OwnerID: "a", DestinationURL: "https://x.com"}))
	require.NoError(t, e.CheckAndReserve(ctx, domain.PlanFree, &domain.Link{OwnerID: "a", TeamID: strPtr("t1"), DestinationURL: "https://x.com"}))

	usage, err := e.Usage(ctx, domain.Account{ID: "a", Plan: domain.PlanFree})
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage.Current)
	require.NotNil(t, usage.Limit)
	assert.Equal(t, int64(1), *usage.Limit)
}

func TestEnforcer_UsageUnlimited(t *testing.T) {
	e := NewEnforcer(memory.New(), DefaultLimits(50))
	usage, err := e.Usage(context.Background(), domain.Account{ID: "a", Plan: domain.PlanPro})
	require.NoError(t, err)
	assert.Nil(t, usage.Limit)
	assert.Equal(t, domain.PlanPro, usage.Plan)
}
