package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"badgehub/internal/checkin/models"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
)

// InMemory keeps checkins in insertion order. Admission serializes on the
// sharded runner, so the store only guards its own maps.
type InMemory struct {
	mu      sync.RWMutex
	all     []*models.Checkin
	byBadge map[id.BadgeID][]*models.Checkin
}

func NewInMemory() *InMemory {
	return &InMemory{byBadge: make(map[id.BadgeID][]*models.Checkin)}
}

func (s *InMemory) Insert(_ context.Context, c *models.Checkin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.all {
		if existing.ID == c.ID {
			return fmt.Errorf("checkin %s exists: %w", c.ID, sentinel.ErrAlreadyUsed)
		}
	}
	cp := *c
	s.all = append(s.all, &cp)
	s.byBadge[c.BadgeID] = append(s.byBadge[c.BadgeID], &cp)
	return nil
}

// LastForBadge returns the badge's most recent checkin by checkin time.
func (s *InMemory) LastForBadge(_ context.Context, badgeID id.BadgeID) (*models.Checkin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last *models.Checkin
	for _, c := range s.byBadge[badgeID] {
		if last == nil || c.CheckinTime.After(last.CheckinTime) {
			last = c
		}
	}
	if last == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *last
	return &cp, nil
}

func (s *InMemory) CountForBadge(_ context.Context, badgeID id.BadgeID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byBadge[badgeID]), nil
}

func (s *InMemory) DeleteForBadge(_ context.Context, badgeID id.BadgeID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.byBadge[badgeID])
	delete(s.byBadge, badgeID)
	s.all = slices.DeleteFunc(s.all, func(c *models.Checkin) bool { return c.BadgeID == badgeID })
	return n, nil
}

func (s *InMemory) ListForEvent(_ context.Context, eventID id.EventID, page models.Page) ([]*models.Checkin, error) {
	return s.list(page, func(c *models.Checkin) bool { return c.EventID == eventID }), nil
}

func (s *InMemory) ListForUser(_ context.Context, userID id.UserID, page models.Page) ([]*models.Checkin, error) {
	return s.list(page, func(c *models.Checkin) bool { return c.UserID == userID }), nil
}

// CountForUser counts every checkin of the user across badges.
func (s *InMemory) CountForUser(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.all {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

// CountEventsAttended counts distinct events the user checked in to.
func (s *InMemory) CountEventsAttended(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[id.EventID]struct{})
	for _, c := range s.all {
		if c.UserID == userID {
			seen[c.EventID] = struct{}{}
		}
	}
	return len(seen), nil
}

// All returns a snapshot of every checkin in insertion order.
func (s *InMemory) All() []models.Checkin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Checkin, len(s.all))
	for i, c := range s.all {
		out[i] = *c
	}
	return out
}

func (s *InMemory) list(page models.Page, keep func(*models.Checkin) bool) []*models.Checkin {
	page = page.Normalize()
	s.mu.RLock()
	var matched []*models.Checkin
	for _, c := range s.all {
		if keep(c) {
			cp := *c
			matched = append(matched, &cp)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b *models.Checkin) int {
		if c := a.CheckinTime.Compare(b.CheckinTime); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	if page.Offset >= len(matched) {
		return []*models.Checkin{}
	}
	end := min(page.Offset+page.Limit, len(matched))
	return matched[page.Offset:end]
}
