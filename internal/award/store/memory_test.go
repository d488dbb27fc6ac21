package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"badgehub/internal/award"
	"badgehub/internal/award/service"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
)

var (
	_ service.Store = (*InMemory)(nil)
	_ service.Store = (*Postgres)(nil)
)

type AwardStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemory
	now   time.Time
}

func TestAwardStoreSuite(t *testing.T) {
	suite.Run(t, new(AwardStoreSuite))
}

func (s *AwardStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
	s.now = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
}

func (s *AwardStoreSuite) create(name string, offset time.Duration) *award.Award {
	a := &award.Award{
		ID:        id.AwardID(uuid.New()),
		Name:      name,
		Criteria:  award.Criteria{Metric: award.MetricCheckins, Threshold: 1},
		CreatedAt: s.now.Add(offset),
	}
	s.Require().NoError(s.store.Create(s.ctx, a))
	return a
}

func (s *AwardStoreSuite) TestCreateAndFind() {
	a := s.create("Regular", 0)

	found, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal("Regular", found.Name)

	found.Name = "mutated"
	again, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal("Regular", again.Name)

	_, err = s.store.FindByID(s.ctx, id.AwardID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Create(s.ctx, a), sentinel.ErrAlreadyUsed)
}

func (s *AwardStoreSuite) TestListOrderAndNotGranted() {
	later := s.create("Later", time.Hour)
	earlier := s.create("Earlier", 0)
	user := id.UserID(uuid.New())

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(earlier.ID, all[0].ID)
	s.Equal(later.ID, all[1].ID)

	ok, err := s.store.GrantIfAbsent(s.ctx, award.UserAward{UserID: user, AwardID: earlier.ID, AwardedAt: s.now})
	s.Require().NoError(err)
	s.True(ok)

	pending, err := s.store.ListNotGranted(s.ctx, user)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(later.ID, pending[0].ID)

	other, err := s.store.ListNotGranted(s.ctx, id.UserID(uuid.New()))
	s.Require().NoError(err)
	s.Len(other, 2)
}

func (s *AwardStoreSuite) TestGrantIfAbsent() {
	a := s.create("Regular", 0)
	user := id.UserID(uuid.New())

	_, err := s.store.GrantIfAbsent(s.ctx, award.UserAward{UserID: user, AwardID: id.AwardID(uuid.New()), AwardedAt: s.now})
	s.ErrorIs(err, sentinel.ErrNotFound)

	var (
		wg       sync.WaitGroup
		inserted atomic.Int32
	)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.store.GrantIfAbsent(s.ctx, award.UserAward{UserID: user, AwardID: a.ID, AwardedAt: s.now.Add(time.Duration(i) * time.Second)})
			s.NoError(err)
			if ok {
				inserted.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), inserted.Load())

	held, err := s.store.ListForUser(s.ctx, user)
	s.Require().NoError(err)
	s.Require().Len(held, 1)
	s.Equal(a.ID, held[0].Award.ID)
}

func (s *AwardStoreSuite) TestListForUserOrder() {
	first := s.create("First", 0)
	second := s.create("Second", time.Minute)
	user := id.UserID(uuid.New())

	_, err := s.store.GrantIfAbsent(s.ctx, award.UserAward{UserID: user, AwardID: second.ID, AwardedAt: s.now})
	s.Require().NoError(err)
	_, err = s.store.GrantIfAbsent(s.ctx, award.UserAward{UserID: user, AwardID: first.ID, AwardedAt: s.now.Add(time.Hour)})
	s.Require().NoError(err)

	held, err := s.store.ListForUser(s.ctx, user)
	s.Require().NoError(err)
	s.Require().Len(held, 2)
	s.Equal(second.ID, held[0].Award.ID)
	s.Equal(first.ID, held[1].Award.ID)
	s.Len(s.store.Grants(), 2)
}

func (s *AwardStoreSuite) TestUpdateAndDelete() {
	a := s.create("Regular", 0)
	user := id.UserID(uuid.New())

	next := *a
	next.Name = "Devoted"
	next.Criteria.Threshold = 4
	next.CreatedAt = s.now.Add(time.Hour)
	s.Require().NoError(s.store.Update(s.ctx, &next))

	found, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal("Devoted", found.Name)
	s.Equal(4, found.Criteria.Threshold)
	s.True(found.CreatedAt.Equal(s.now))

	missing := next
	missing.ID = id.AwardID(uuid.New())
	s.ErrorIs(s.store.Update(s.ctx, &missing), sentinel.ErrNotFound)

	_, err = s.store.GrantIfAbsent(s.ctx, award.UserAward{UserID: user, AwardID: a.ID, AwardedAt: s.now})
	s.Require().NoError(err)
	n, err := s.store.CountGrants(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.ErrorIs(s.store.Delete(s.ctx, a.ID), sentinel.ErrConflict)

	unheld := s.create("Unheld", time.Minute)
	s.Require().NoError(s.store.Delete(s.ctx, unheld.ID))
	s.ErrorIs(s.store.Delete(s.ctx, unheld.ID), sentinel.ErrNotFound)
}
