// Package quota gates personal link creation by plan tier.
package quota

import (
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/repository"
	"context"
	"fmt"
)

// Limits maps a plan to its maximum number of personal links. A nil limit is unlimited.
type Limits map[domain.Plan]*int64

// DefaultLimits returns the standard tier table with the given free tier cap.
func DefaultLimits(freeLimit int64) Limits {
	return Limits{
		domain.PlanFree:     &freeLimit,
		domain.PlanPro:      nil,
		domain.PlanTeam:     nil,
		domain.PlanBusiness: nil,
	}
}

// Usage describes how much of its quota an account has consumed.
type Usage struct {
	Plan    domain.Plan `json:"plan"`
	Current int64       `json:"current"`
	Limit   *int64      `json:"limit"`
}

// Enforcer performs quota checks together with the link insert they guard.
type Enforcer struct {
	links  repository.LinkRepository
	limits Limits
}

func NewEnforcer(links repository.LinkRepository, limits Limits) *Enforcer {
	return &Enforcer{links: links, limits: limits}
}

// Limit returns the plan's cap and whether the plan is capped at all. Plans missing from the
// table get the free tier cap.
func (e *Enforcer) Limit(plan domain.Plan) (int64, bool) {
	limit, ok := e.limits[plan]
	if !ok {
		limit = e.limits[domain.PlanFree]
	}
	if limit == nil {
		return 0, false
	}
	return *limit, true
}

// Check is the pure admission rule: a capped plan admits a new link while current < limit.
func (e *Enforcer) Check(plan domain.Plan, current int64) error {
	limit, capped := e.Limit(plan)
	if capped && current >= limit {
		return &domain.QuotaExceededError{Current: current, Limit: limit}
	}
	return nil
}

// CheckAndReserve inserts the link if the owner's plan admits it. The count and the insert
// run as one storage transaction, so concurrent callers cannot jointly exceed the cap.
// Team-scoped links are not counted against personal quotas.
func (e *Enforcer) CheckAndReserve(ctx context.Context, plan domain.Plan, link *domain.Link) error {
	var guard repository.QuotaGuard
	if _, capped := e.Limit(plan); capped && !link.IsTeamScoped() {
		guard = func(current int64) error {
			return e.Check(plan, current)
		}
	}
	return e.links.CreateLink(ctx, link, guard)
}

// Usage reports the account's current personal link count against its plan.
func (e *Enforcer) Usage(ctx context.Context, acc domain.Account) (*Usage, error) {
	current, err := e.links.CountPersonalLinks(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}
	u := &Usage{Plan: acc.Plan, Current: current}
	if limit, capped := e.Limit(acc.Plan); capped {
		u.Limit = &limit
	}
	return u, nil
}
