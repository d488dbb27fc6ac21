package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"badgehub/internal/badge/models"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
)

// InMemory keeps badges in maps guarded by one RWMutex. Unique keys mirror
// the PostgreSQL indexes: code, enrollment (enrollment scope) and user
// (person scope).
type InMemory struct {
	mu           sync.RWMutex
	badges       map[id.BadgeID]*models.Badge
	byCode       map[string]id.BadgeID
	byEnrollment map[id.EnrollmentID]id.BadgeID
	byPerson     map[id.UserID]id.BadgeID
}

func NewInMemory() *InMemory {
	return &InMemory{
		badges:       make(map[id.BadgeID]*models.Badge),
		byCode:       make(map[string]id.BadgeID),
		byEnrollment: make(map[id.EnrollmentID]id.BadgeID),
		byPerson:     make(map[id.UserID]id.BadgeID),
	}
}

func (s *InMemory) Insert(_ context.Context, b *models.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byCode[b.Code]; ok {
		return models.ErrCodeTaken
	}
	switch b.Scope {
	case models.ScopeEnrollment:
		if _, ok := s.byEnrollment[b.EnrollmentID]; ok {
			return models.ErrAlreadyIssued
		}
		s.byEnrollment[b.EnrollmentID] = b.ID
	case models.ScopePerson:
		if _, ok := s.byPerson[b.UserID]; ok {
			return models.ErrAlreadyIssued
		}
		s.byPerson[b.UserID] = b.ID
	default:
		return fmt.Errorf("unknown badge scope %q", b.Scope)
	}
	s.byCode[b.Code] = b.ID
	s.badges[b.ID] = b.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(badgeID)
}

// LockByID is FindByID; the in-memory runner's shard lock serializes callers.
func (s *InMemory) LockByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	return s.FindByID(ctx, badgeID)
}

func (s *InMemory) FindByCode(_ context.Context, code string) (*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	badgeID, ok := s.byCode[code]
	if !ok {
		return nil, fmt.Errorf("badge code not found: %w", sentinel.ErrNotFound)
	}
	return s.get(badgeID)
}

func (s *InMemory) FindByEnrollment(_ context.Context, enrollmentID id.EnrollmentID) (*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	badgeID, ok := s.byEnrollment[enrollmentID]
	if !ok {
		return nil, fmt.Errorf("enrollment badge not found: %w", sentinel.ErrNotFound)
	}
	return s.get(badgeID)
}

func (s *InMemory) FindPersonBadge(_ context.Context, userID id.UserID) (*models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	badgeID, ok := s.byPerson[userID]
	if !ok {
		return nil, fmt.Errorf("person badge not found: %w", sentinel.ErrNotFound)
	}
	return s.get(badgeID)
}

func (s *InMemory) HasPersonBadge(_ context.Context, userID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byPerson[userID]
	return ok, nil
}

func (s *InMemory) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byCode[code]
	return ok, nil
}

func (s *InMemory) UpdateCredential(_ context.Context, badgeID id.BadgeID, payload string, issuedAt time.Time, qrPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.badges[badgeID]
	if !ok {
		return fmt.Errorf("badge not found: %w", sentinel.ErrNotFound)
	}
	b.Payload = payload
	b.IssuedAt = issuedAt
	b.QRPath = qrPath
	return nil
}

func (s *InMemory) Delete(_ context.Context, badgeID id.BadgeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.badges[badgeID]
	if !ok {
		return fmt.Errorf("badge not found: %w", sentinel.ErrNotFound)
	}
	delete(s.byCode, b.Code)
	switch b.Scope {
	case models.ScopeEnrollment:
		delete(s.byEnrollment, b.EnrollmentID)
	case models.ScopePerson:
		delete(s.byPerson, b.UserID)
	}
	delete(s.badges, badgeID)
	return nil
}

// All returns a snapshot of every badge.
func (s *InMemory) All() []*models.Badge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Badge, 0, len(s.badges))
	for _, b := range s.badges {
		out = append(out, b.Clone())
	}
	return out
}

func (s *InMemory) get(badgeID id.BadgeID) (*models.Badge, error) {
	b, ok := s.badges[badgeID]
	if !ok {
		return nil, fmt.Errorf("badge not found: %w", sentinel.ErrNotFound)
	}
	return b.Clone(), nil
}
