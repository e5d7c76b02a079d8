package memory

import (
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/repository"
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemStorage is an in-process repository.Storage. A single mutex makes every operation
// atomic, which mirrors the transactional guarantees of the SQL implementation.
type MemStorage struct {
	mu      sync.RWMutex
	links   map[int64]*domain.Link
	domains map[int64]*domain.Domain
	clicks  []*domain.ClickEvent

	linkSeq   int64
	domainSeq int64
	clickSeq  int64

	now func() time.Time
}

func New() *MemStorage {
	return &MemStorage{
		links:   make(map[int64]*domain.Link),
		domains: make(map[int64]*domain.Domain),
		now:     time.Now,
	}
}

func (s *MemStorage) Ping(_ context.Context) error {
	return nil
}

// --- Link Methods ---

func (s *MemStorage) CreateLink(_ context.Context, link *domain.Link, guard repository.QuotaGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if guard != nil {
		if err := guard(s.countPersonal(link.OwnerID)); err != nil {
			return err
		}
	}
	if link.IsShort() && s.codeTaken(link.BoundDomainID, *link.ShortCode) {
		return repository.ErrCodeTaken
	}

	s.linkSeq++
	link.ID = s.linkSeq
	if link.CreatedAt.IsZero() {
		link.CreatedAt = s.now()
	}
	stored := *link
	s.links[link.ID] = &stored
	return nil
}

func (s *MemStorage) GetLink(_ context.Context, id int64) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *link
	return &cp, nil
}

func (s *MemStorage) DeleteLink(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.links, id)

	kept := s.clicks[:0]
	for _, ev := range s.clicks {
		if ev.LinkID != id {
			kept = append(kept, ev)
		}
	}
	s.clicks = kept
	return nil
}

func (s *MemStorage) ListLinks(_ context.Context, ownerID string, teams []string) ([]*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Link
	for _, link := range s.links {
		if visible(link, ownerID, teams) {
			cp := *link
			if link.BoundDomainID != nil {
				if d, ok := s.domains[*link.BoundDomainID]; ok {
					dc := *d
					cp.BoundDomain = &dc
				}
			}
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemStorage) CountPersonalLinks(_ context.Context, ownerID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countPersonal(ownerID), nil
}

func (s *MemStorage) countPersonal(ownerID string) int64 {
	var n int64
	for _, link := range s.links {
		if link.OwnerID == ownerID && !link.IsTeamScoped() {
			n++
		}
	}
	return n
}

func (s *MemStorage) codeTaken(domainID *int64, code string) bool {
	for _, link := range s.links {
		if link.Code() == code && sameDomain(link.BoundDomainID, domainID) {
			return true
		}
	}
	return false
}

// --- Domain Methods ---

func (s *MemStorage) CreateDomain(_ context.Context, d *domain.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.domains {
		if existing.Hostname == d.Hostname {
			return repository.ErrHostnameTaken
		}
	}
	s.domainSeq++
	d.ID = s.domainSeq
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	stored := *d
	s.domains[d.ID] = &stored
	return nil
}

func (s *MemStorage) GetDomain(_ context.Context, id int64) (*domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.domains[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemStorage) GetDomainByHostname(_ context.Context, hostname string) (*domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.domains {
		if d.Hostname == hostname {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *MemStorage) ListDomains(_ context.Context, ownerID string) ([]*domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Domain
	for _, d := range s.domains {
		if d.OwnerID == ownerID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hostname < out[j].Hostname })
	return out, nil
}

func (s *MemStorage) UpdateDomain(_ context.Context, d *domain.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.domains[d.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.VerificationToken = d.VerificationToken
	stored.TokenGeneration = d.TokenGeneration
	stored.Verified = d.Verified
	stored.VerifiedAt = d.VerifiedAt
	return nil
}

func (s *MemStorage) DeleteDomain(_ context.Context, id int64, codes repository.CodeSource) ([]*domain.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.domains[id]; !ok {
		return nil, repository.ErrNotFound
	}

	var bound []*domain.Link
	for _, link := range s.links {
		if link.BoundDomainID != nil && *link.BoundDomainID == id {
			bound = append(bound, link)
		}
	}
	sort.Slice(bound, func(i, j int) bool { return bound[i].ID < bound[j].ID })

	// Work out every replacement code before touching state so a failure leaves nothing half done.
	replacements := make(map[int64]string)
	claimed := make(map[string]bool)
	for _, link := range bound {
		if !link.IsShort() {
			continue
		}
		code := link.Code()
		for s.codeTaken(nil, code) || claimed[code] {
			next, err := codes()
			if err != nil {
				return nil, err
			}
			code = next
		}
		claimed[code] = true
		replacements[link.ID] = code
	}

	demoted := make([]*domain.Link, 0, len(bound))
	for _, link := range bound {
		demoted = append(demoted, copyLink(link))
		link.BoundDomainID = nil
		if code, ok := replacements[link.ID]; ok {
			link.ShortCode = &code
		}
	}
	delete(s.domains, id)
	return demoted, nil
}

// --- Redirect Methods ---

func (s *MemStorage) ResolveDefault(_ context.Context, code string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, link := range s.links {
		if link.BoundDomainID == nil && link.Code() == code && code != "" {
			return copyLink(link), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *MemStorage) ResolveOnDomain(_ context.Context, hostname, code string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var d *domain.Domain
	for _, candidate := range s.domains {
		if candidate.Hostname == hostname {
			d = candidate
			break
		}
	}
	if d == nil || !d.Verified || code == "" {
		return nil, repository.ErrNotFound
	}
	for _, link := range s.links {
		if link.BoundDomainID != nil && *link.BoundDomainID == d.ID && link.Code() == code {
			return copyLink(link), nil
		}
	}
	return nil, repository.ErrNotFound
}

// --- Click Methods ---

func (s *MemStorage) RecordClick(_ context.Context, ev *domain.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[ev.LinkID]
	if !ok {
		return repository.ErrNotFound
	}
	link.Clicks++
	s.clickSeq++
	ev.ID = s.clickSeq
	stored := *ev
	s.clicks = append(s.clicks, &stored)
	return nil
}

func (s *MemStorage) CountClicks(ctx context.Context, scope domain.ClickScope) (int64, error) {
	var n int64
	err := s.eachInScope(ctx, scope, func(*domain.ClickEvent) { n++ })
	return n, err
}

func (s *MemStorage) ClicksByDevice(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error) {
	return s.groupBy(ctx, scope, func(ev *domain.ClickEvent) string { return ev.DeviceClass })
}

func (s *MemStorage) ClicksByBrowser(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error) {
	return s.groupBy(ctx, scope, func(ev *domain.ClickEvent) string { return ev.Browser })
}

func (s *MemStorage) ClicksByOS(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error) {
	return s.groupBy(ctx, scope, func(ev *domain.ClickEvent) string { return ev.OS })
}

func (s *MemStorage) ClicksByCountry(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error) {
	return s.groupBy(ctx, scope, func(ev *domain.ClickEvent) string {
		return valueOr(ev.Country, repository.UnknownValue)
	})
}

func (s *MemStorage) ClicksByCity(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error) {
	return s.groupBy(ctx, scope, func(ev *domain.ClickEvent) string {
		return valueOr(ev.City, repository.UnknownValue)
	})
}

func (s *MemStorage) ClicksByReferrer(ctx context.Context, scope domain.ClickScope) ([]domain.GroupCount, error) {
	return s.groupBy(ctx, scope, func(ev *domain.ClickEvent) string {
		return valueOr(ev.ReferrerHost, repository.DirectValue)
	})
}

func (s *MemStorage) ClicksByDay(ctx context.Context, scope domain.ClickScope) ([]domain.DayCount, error) {
	counts := make(map[time.Time]int64)
	err := s.eachInScope(ctx, scope, func(ev *domain.ClickEvent) {
		t := ev.OccurredAt.UTC()
		counts[time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)]++
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.DayCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, domain.DayCount{Day: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (s *MemStorage) groupBy(ctx context.Context, scope domain.ClickScope, key func(*domain.ClickEvent) string) ([]domain.GroupCount, error) {
	counts := make(map[string]int64)
	if err := s.eachInScope(ctx, scope, func(ev *domain.ClickEvent) { counts[key(ev)]++ }); err != nil {
		return nil, err
	}
	out := make([]domain.GroupCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, domain.GroupCount{Value: v, Count: n})
	}
	return out, nil
}

func (s *MemStorage) eachInScope(ctx context.Context, scope domain.ClickScope, fn func(*domain.ClickEvent)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.clicks {
		if ev.OccurredAt.Before(scope.Since) {
			continue
		}
		if !scope.Until.IsZero() && ev.OccurredAt.After(scope.Until) {
			continue
		}
		if scope.LinkID != nil {
			if ev.LinkID != *scope.LinkID {
				continue
			}
		} else {
			link, ok := s.links[ev.LinkID]
			if !ok || !visible(link, scope.OwnerID, scope.Teams) {
				continue
			}
		}
		fn(ev)
	}
	return nil
}

// ReadSnapshot hands fn a frozen copy of links and clicks; writes made while fn runs do not
// reach it.
func (s *MemStorage) ReadSnapshot(ctx context.Context, fn func(repository.ClickReader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	frozen := New()
	for id, link := range s.links {
		frozen.links[id] = copyLink(link)
	}
	frozen.clicks = make([]*domain.ClickEvent, 0, len(s.clicks))
	for _, ev := range s.clicks {
		cp := *ev
		frozen.clicks = append(frozen.clicks, &cp)
	}
	s.mu.RUnlock()
	return fn(frozen)
}

// Clicks returns a snapshot of stored click events.
func (s *MemStorage) Clicks() []domain.ClickEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ClickEvent, 0, len(s.clicks))
	for _, ev := range s.clicks {
		out = append(out, *ev)
	}
	return out
}

func visible(link *domain.Link, ownerID string, teams []string) bool {
	if link.OwnerID == ownerID {
		return true
	}
	return link.IsTeamScoped() && slices.Contains(teams, *link.TeamID)
}

func sameDomain(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func valueOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}

func copyLink(link *domain.Link) *domain.Link {
	cp := *link
	return &cp
}
