package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"badgehub/internal/directory/models"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
)

// PersonBadgeChecker reports which users already hold a person badge.
// The in-memory directory consults the badge store through it.
type PersonBadgeChecker interface {
	HasPersonBadge(ctx context.Context, userID id.UserID) (bool, error)
}

// InMemory is a seeded, read-mostly directory for tests and dev mode.
type InMemory struct {
	mu          sync.RWMutex
	users       map[id.UserID]*models.User
	userOrder   []id.UserID
	events      map[id.EventID]*models.Event
	enrollments map[id.EnrollmentID]*models.Enrollment
	badges      PersonBadgeChecker
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:       make(map[id.UserID]*models.User),
		events:      make(map[id.EventID]*models.Event),
		enrollments: make(map[id.EnrollmentID]*models.Enrollment),
	}
}

// UseBadgeChecker links the directory to the badge store for
// ListWithoutPersonBadge.
func (s *InMemory) UseBadgeChecker(c PersonBadgeChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badges = c
}

func (s *InMemory) PutUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		s.userOrder = append(s.userOrder, u.ID)
	}
	cp := *u
	s.users[u.ID] = &cp
}

func (s *InMemory) PutEvent(e *models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.events[e.ID] = &cp
}

// PutEnrollment stores e, replacing any enrollment for the same
// (user, event) pair.
func (s *InMemory) PutEnrollment(e *models.Enrollment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, existing := range s.enrollments {
		if existing.UserID == e.UserID && existing.EventID == e.EventID && key != e.ID {
			delete(s.enrollments, key)
		}
	}
	cp := *e
	s.enrollments[e.ID] = &cp
}

// Users returns the UserReader view.
func (s *InMemory) Users() *InMemoryUsers { return &InMemoryUsers{s} }

// Events returns the EventReader view.
func (s *InMemory) Events() *InMemoryEvents { return &InMemoryEvents{s} }

// Enrollments returns the EnrollmentReader view.
func (s *InMemory) Enrollments() *InMemoryEnrollments { return &InMemoryEnrollments{s} }

type InMemoryUsers struct{ s *InMemory }

func (v *InMemoryUsers) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	u, ok := v.s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (v *InMemoryUsers) CountWithoutPersonBadge(ctx context.Context) (int, error) {
	users, err := v.ListWithoutPersonBadge(ctx, 0)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// ListWithoutPersonBadge returns up to limit users lacking a person badge,
// in insertion order. A limit of 0 means no limit.
func (v *InMemoryUsers) ListWithoutPersonBadge(ctx context.Context, limit int) ([]*models.User, error) {
	v.s.mu.RLock()
	order := slices.Clone(v.s.userOrder)
	checker := v.s.badges
	v.s.mu.RUnlock()

	var out []*models.User
	for _, userID := range order {
		if limit > 0 && len(out) >= limit {
			break
		}
		if checker != nil {
			has, err := checker.HasPersonBadge(ctx, userID)
			if err != nil {
				return nil, err
			}
			if has {
				continue
			}
		}
		u, err := v.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

type InMemoryEvents struct{ s *InMemory }

func (v *InMemoryEvents) FindByID(_ context.Context, eventID id.EventID) (*models.Event, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	e, ok := v.s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event not found: %w", sentinel.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

type InMemoryEnrollments struct{ s *InMemory }

func (v *InMemoryEnrollments) FindByID(_ context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	e, ok := v.s.enrollments[enrollmentID]
	if !ok {
		return nil, fmt.Errorf("enrollment not found: %w", sentinel.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (v *InMemoryEnrollments) FindByUserAndEvent(_ context.Context, userID id.UserID, eventID id.EventID) (*models.Enrollment, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, e := range v.s.enrollments {
		if e.UserID == userID && e.EventID == eventID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("enrollment not found: %w", sentinel.ErrNotFound)
}

func (v *InMemoryEnrollments) CountApprovedByUser(_ context.Context, userID id.UserID) (int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	n := 0
	for _, e := range v.s.enrollments {
		if e.UserID == userID && e.IsApproved() {
			n++
		}
	}
	return n, nil
}

func (v *InMemoryEnrollments) CountApprovedByEvent(_ context.Context, eventID id.EventID) (int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	n := 0
	for _, e := range v.s.enrollments {
		if e.EventID == eventID && e.IsApproved() {
			n++
		}
	}
	return n, nil
}

// Seed creates one user, event and approved enrollment with random ids.
// Intended for dev mode and tests.
func (s *InMemory) Seed(name string, event models.Event) (*models.User, *models.Event, *models.Enrollment) {
	u := &models.User{ID: id.UserID(uuid.New()), Name: name}
	if event.ID.IsNil() {
		event.ID = id.EventID(uuid.New())
	}
	e := &models.Enrollment{
		ID:      id.EnrollmentID(uuid.New()),
		UserID:  u.ID,
		EventID: event.ID,
		Status:  models.EnrollmentApproved,
	}
	s.PutUser(u)
	s.PutEvent(&event)
	s.PutEnrollment(e)
	return u, &event, e
}
