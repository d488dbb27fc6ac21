package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"badgehub/internal/directory"
	"badgehub/internal/directory/models"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
)

var (
	_ directory.UserReader       = (*InMemoryUsers)(nil)
	_ directory.EventReader      = (*InMemoryEvents)(nil)
	_ directory.EnrollmentReader = (*InMemoryEnrollments)(nil)
	_ directory.UserReader       = (*PostgresUsers)(nil)
	_ directory.EventReader      = (*PostgresEvents)(nil)
	_ directory.EnrollmentReader = (*PostgresEnrollments)(nil)
)

type stubBadgeChecker map[id.UserID]bool

func (s stubBadgeChecker) HasPersonBadge(_ context.Context, userID id.UserID) (bool, error) {
	return s[userID], nil
}

type DirectoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestDirectoryStoreSuite(t *testing.T) {
	suite.Run(t, new(DirectoryStoreSuite))
}

func (s *DirectoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *DirectoryStoreSuite) TestLookups() {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	user, event, enrollment := s.store.Seed("Ada Lovelace", models.Event{Title: "Meetup", StartDate: start, EndDate: start.Add(time.Hour)})

	s.Run("finds seeded records", func() {
		u, err := s.store.Users().FindByID(s.ctx, user.ID)
		s.Require().NoError(err)
		s.Equal("Ada Lovelace", u.Name)

		e, err := s.store.Events().FindByID(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal("Meetup", e.Title)

		en, err := s.store.Enrollments().FindByUserAndEvent(s.ctx, user.ID, event.ID)
		s.Require().NoError(err)
		s.Equal(enrollment.ID, en.ID)
	})

	s.Run("returns ErrNotFound for unknown ids", func() {
		_, err := s.store.Users().FindByID(s.ctx, id.UserID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.Events().FindByID(s.ctx, id.EventID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.Enrollments().FindByID(s.ctx, id.EnrollmentID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned records are copies", func() {
		u, err := s.store.Users().FindByID(s.ctx, user.ID)
		s.Require().NoError(err)
		u.Name = "mutated"
		again, _ := s.store.Users().FindByID(s.ctx, user.ID)
		s.Equal("Ada Lovelace", again.Name)
	})
}

func (s *DirectoryStoreSuite) TestCountsApprovedOnly() {
	user, event, _ := s.store.Seed("Grace Hopper", models.Event{})
	other := &models.Event{ID: id.EventID(uuid.New())}
	s.store.PutEvent(other)
	s.store.PutEnrollment(&models.Enrollment{
		ID: id.EnrollmentID(uuid.New()), UserID: user.ID, EventID: other.ID, Status: models.EnrollmentPending,
	})

	n, err := s.store.Enrollments().CountApprovedByUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = s.store.Enrollments().CountApprovedByEvent(s.ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *DirectoryStoreSuite) TestListWithoutPersonBadge() {
	first, _, _ := s.store.Seed("First", models.Event{})
	second, _, _ := s.store.Seed("Second", models.Event{})
	third, _, _ := s.store.Seed("Third", models.Event{})
	s.store.UseBadgeChecker(stubBadgeChecker{second.ID: true})

	users, err := s.store.Users().ListWithoutPersonBadge(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal(first.ID, users[0].ID)
	s.Equal(third.ID, users[1].ID)

	users, err = s.store.Users().ListWithoutPersonBadge(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(users, 1)

	n, err := s.store.Users().CountWithoutPersonBadge(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
}
