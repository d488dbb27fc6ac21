package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"badgehub/internal/badge/models"
	"badgehub/internal/badge/service"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
)

var (
	_ service.Store = (*InMemory)(nil)
	_ service.Store = (*Postgres)(nil)
)

type BadgeStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestBadgeStoreSuite(t *testing.T) {
	suite.Run(t, new(BadgeStoreSuite))
}

func (s *BadgeStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
}

func (s *BadgeStoreSuite) enrollmentBadge(code string) *models.Badge {
	return &models.Badge{
		ID:           id.BadgeID(uuid.New()),
		Scope:        models.ScopeEnrollment,
		UserID:       id.UserID(uuid.New()),
		EnrollmentID: id.EnrollmentID(uuid.New()),
		EventID:      id.EventID(uuid.New()),
		Code:         code,
		IssuedAt:     s.now,
		CreatedAt:    s.now,
	}
}

func (s *BadgeStoreSuite) personBadge(userID id.UserID, code string) *models.Badge {
	return &models.Badge{
		ID:        id.BadgeID(uuid.New()),
		Scope:     models.ScopePerson,
		UserID:    userID,
		Code:      code,
		IssuedAt:  s.now,
		CreatedAt: s.now,
	}
}

func (s *BadgeStoreSuite) TestUniqueKeys() {
	first := s.enrollmentBadge("ADA-LOVELACE-1000")
	s.Require().NoError(s.store.Insert(s.ctx, first))

	s.Run("code is globally unique", func() {
		err := s.store.Insert(s.ctx, s.personBadge(id.UserID(uuid.New()), first.Code))
		s.ErrorIs(err, models.ErrCodeTaken)
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("one badge per enrollment", func() {
		dup := s.enrollmentBadge("ADA-LOVELACE-2000")
		dup.EnrollmentID = first.EnrollmentID
		err := s.store.Insert(s.ctx, dup)
		s.ErrorIs(err, models.ErrAlreadyIssued)
		exists, err := s.store.CodeExists(s.ctx, dup.Code)
		s.Require().NoError(err)
		s.False(exists)
	})

	s.Run("one person badge per user", func() {
		userID := id.UserID(uuid.New())
		s.Require().NoError(s.store.Insert(s.ctx, s.personBadge(userID, "ADA-1000")))
		err := s.store.Insert(s.ctx, s.personBadge(userID, "ADA-1001"))
		s.ErrorIs(err, models.ErrAlreadyIssued)
	})
}

func (s *BadgeStoreSuite) TestLookups() {
	b := s.enrollmentBadge("GRACE-HOPPER-1234")
	userID := id.UserID(uuid.New())
	p := s.personBadge(userID, "GRACE-HOPPER-5678")
	s.Require().NoError(s.store.Insert(s.ctx, b))
	s.Require().NoError(s.store.Insert(s.ctx, p))

	got, err := s.store.FindByID(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(b.Code, got.Code)

	got, err = s.store.FindByCode(s.ctx, "GRACE-HOPPER-5678")
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)

	got, err = s.store.FindByEnrollment(s.ctx, b.EnrollmentID)
	s.Require().NoError(err)
	s.Equal(b.ID, got.ID)

	got, err = s.store.FindPersonBadge(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)

	has, err := s.store.HasPersonBadge(s.ctx, userID)
	s.Require().NoError(err)
	s.True(has)

	_, err = s.store.FindByID(s.ctx, id.BadgeID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindPersonBadge(s.ctx, b.UserID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *BadgeStoreSuite) TestReturnsCopies() {
	b := s.enrollmentBadge("ALAN-TURING-1000")
	s.Require().NoError(s.store.Insert(s.ctx, b))
	b.Code = "MUTATED"

	got, err := s.store.FindByID(s.ctx, b.ID)
	s.Require().NoError(err)
	got.Payload = "tampered"

	again, err := s.store.FindByID(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal("ALAN-TURING-1000", again.Code)
	s.Empty(again.Payload)
}

func (s *BadgeStoreSuite) TestUpdateCredentialAndDelete() {
	b := s.enrollmentBadge("ROB-PIKE-1000")
	s.Require().NoError(s.store.Insert(s.ctx, b))

	later := s.now.Add(time.Hour)
	s.Require().NoError(s.store.UpdateCredential(s.ctx, b.ID, "payload-2", later, "mem://new.png"))
	got, err := s.store.FindByID(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal("payload-2", got.Payload)
	s.True(got.IssuedAt.Equal(later))
	s.Equal("ROB-PIKE-1000", got.Code)

	s.Require().NoError(s.store.Delete(s.ctx, b.ID))
	_, err = s.store.FindByCode(s.ctx, b.Code)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, b.ID), sentinel.ErrNotFound)
	s.ErrorIs(s.store.UpdateCredential(s.ctx, b.ID, "x", later, ""), sentinel.ErrNotFound)

	// the freed enrollment slot can be reissued
	s.Require().NoError(s.store.Insert(s.ctx, s.enrollmentBadge(b.Code)))
}
