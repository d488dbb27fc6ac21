package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"badgehub/internal/award"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
)

type grantKey struct {
	user  id.UserID
	award id.AwardID
}

// InMemory keeps award templates and grants in maps.
type InMemory struct {
	mu     sync.RWMutex
	awards map[id.AwardID]*award.Award
	grants map[grantKey]award.UserAward
}

func NewInMemory() *InMemory {
	return &InMemory{
		awards: make(map[id.AwardID]*award.Award),
		grants: make(map[grantKey]award.UserAward),
	}
}

func (s *InMemory) Create(_ context.Context, a *award.Award) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.awards[a.ID]; ok {
		return fmt.Errorf("award %s exists: %w", a.ID, sentinel.ErrAlreadyUsed)
	}
	cp := *a
	s.awards[a.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, awardID id.AwardID) (*award.Award, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.awards[awardID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// Update replaces the mutable fields of an existing award.
func (s *InMemory) Update(_ context.Context, a *award.Award) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.awards[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	cp := *a
	cp.CreatedAt = cur.CreatedAt
	s.awards[a.ID] = &cp
	return nil
}

// Delete removes an award nobody holds.
func (s *InMemory) Delete(_ context.Context, awardID id.AwardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.awards[awardID]; !ok {
		return sentinel.ErrNotFound
	}
	for key := range s.grants {
		if key.award == awardID {
			return fmt.Errorf("award %s has grants: %w", awardID, sentinel.ErrConflict)
		}
	}
	delete(s.awards, awardID)
	return nil
}

// CountGrants returns how many users hold the award.
func (s *InMemory) CountGrants(_ context.Context, awardID id.AwardID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for key := range s.grants {
		if key.award == awardID {
			n++
		}
	}
	return n, nil
}

// List returns every award ordered by creation time.
func (s *InMemory) List(_ context.Context) ([]*award.Award, error) {
	return s.filter(func(*award.Award) bool { return true }), nil
}

// ListNotGranted returns awards the user does not hold yet.
func (s *InMemory) ListNotGranted(_ context.Context, userID id.UserID) ([]*award.Award, error) {
	return s.filter(func(a *award.Award) bool {
		_, held := s.grants[grantKey{userID, a.ID}]
		return !held
	}), nil
}

// GrantIfAbsent records g unless the user already holds the award and
// reports whether it inserted.
func (s *InMemory) GrantIfAbsent(_ context.Context, g award.UserAward) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.awards[g.AwardID]; !ok {
		return false, sentinel.ErrNotFound
	}
	key := grantKey{g.UserID, g.AwardID}
	if _, ok := s.grants[key]; ok {
		return false, nil
	}
	s.grants[key] = g
	return true, nil
}

// ListForUser returns the user's awards, oldest grant first.
func (s *InMemory) ListForUser(_ context.Context, userID id.UserID) ([]award.Granted, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []award.Granted
	for key, g := range s.grants {
		if key.user != userID {
			continue
		}
		if a, ok := s.awards[key.award]; ok {
			out = append(out, award.Granted{Award: *a, AwardedAt: g.AwardedAt})
		}
	}
	slices.SortFunc(out, func(a, b award.Granted) int {
		if c := a.AwardedAt.Compare(b.AwardedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Award.ID.String(), b.Award.ID.String())
	})
	return out, nil
}

// Grants returns a snapshot of every grant.
func (s *InMemory) Grants() []award.UserAward {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]award.UserAward, 0, len(s.grants))
	for _, g := range s.grants {
		out = append(out, g)
	}
	return out
}

func (s *InMemory) filter(keep func(*award.Award) bool) []*award.Award {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*award.Award{}
	for _, a := range s.awards {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *award.Award) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out
}
