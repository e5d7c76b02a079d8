package domain

import "slices"

// Plan is the billing tier supplied by the external billing collaborator.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanPro      Plan = "pro"
	PlanTeam     Plan = "team"
	PlanBusiness Plan = "business"
)

// ParsePlan maps a tier string to a Plan. Unknown tiers fall back to free so an
// unexpected billing value can never widen a quota.
func ParsePlan(s string) Plan {
	switch Plan(s) {
	case PlanPro, PlanTeam, PlanBusiness:
		return Plan(s)
	default:
		return PlanFree
	}
}

// Account is the authenticated caller as supplied by the session layer.
type Account struct {
	ID    string
	Plan  Plan
	Teams []string
}

// MemberOf reports whether the account belongs to the given team.
func (a Account) MemberOf(team string) bool {
	return slices.Contains(a.Teams, team)
}
