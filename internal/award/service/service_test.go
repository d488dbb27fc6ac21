package service_test

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,ActivitySource

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"badgehub/internal/award"
	"badgehub/internal/award/service"
	"badgehub/internal/award/service/mocks"
	"badgehub/internal/award/store"
	checkinModels "badgehub/internal/checkin/models"
	checkinStore "badgehub/internal/checkin/store"
	dirModels "badgehub/internal/directory/models"
	dirStore "badgehub/internal/directory/store"
	"badgehub/internal/outbox"
	outboxStore "badgehub/internal/outbox/store"
	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
	"badgehub/pkg/platform/sentinel"
	"badgehub/pkg/platform/tx"
	"badgehub/pkg/testutil"
)

type AwardServiceSuite struct {
	suite.Suite
	now      time.Time
	ctx      context.Context
	awards   *store.InMemory
	checkins *checkinStore.InMemory
	dir      *dirStore.InMemory
	outbox   *outboxStore.InMemory
	service  *service.Service
	user     *dirModels.User
}

func TestAwardServiceSuite(t *testing.T) {
	suite.Run(t, new(AwardServiceSuite))
}

func (s *AwardServiceSuite) SetupTest() {
	s.now = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = testutil.At(s.now)
	s.awards = store.NewInMemory()
	s.checkins = checkinStore.NewInMemory()
	s.dir = dirStore.NewInMemory()
	s.outbox = outboxStore.NewInMemory()
	s.service = service.New(service.Deps{
		Awards:      s.awards,
		Activity:    s.checkins,
		Enrollments: s.dir.Enrollments(),
		Outbox:      s.outbox,
		Tx:          tx.NewSharded(),
	})
	s.user, _, _ = s.dir.Seed("Ada Lovelace", dirModels.Event{Title: "GopherCon"})
}

func (s *AwardServiceSuite) create(name string, metric award.Metric, threshold int) *award.Award {
	a, err := s.service.CreateAward(s.ctx, service.CreateAwardInput{
		Name:     name,
		Criteria: award.Criteria{Metric: metric, Threshold: threshold},
	})
	s.Require().NoError(err)
	return a
}

func (s *AwardServiceSuite) checkin(eventID id.EventID, at time.Time) {
	s.Require().NoError(s.checkins.Insert(context.Background(), &checkinModels.Checkin{
		ID:          id.CheckinID(uuid.New()),
		BadgeID:     id.BadgeID(uuid.New()),
		UserID:      s.user.ID,
		EventID:     eventID,
		CheckinTime: at,
	}))
}

func (s *AwardServiceSuite) TestCreateAward() {
	s.Run("rejects invalid templates", func() {
		cases := []service.CreateAwardInput{
			{Name: "  ", Criteria: award.Criteria{Metric: award.MetricCheckins, Threshold: 1}},
			{Name: "Regular", Criteria: award.Criteria{Metric: "karma", Threshold: 1}},
			{Name: "Regular", Criteria: award.Criteria{Metric: award.MetricCheckins, Threshold: 0}},
		}
		for _, in := range cases {
			_, err := s.service.CreateAward(s.ctx, in)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "input %+v", in)
		}
	})

	s.Run("stores and lists", func() {
		a := s.create("First Steps", award.MetricCheckins, 1)
		s.True(a.CreatedAt.Equal(s.now))

		all, err := s.service.ListAwards(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(all, 1)
		s.Equal(a.ID, all[0].ID)
	})
}

func (s *AwardServiceSuite) TestEvaluateAndGrant() {
	regular := s.create("Regular", award.MetricCheckins, 2)
	event := id.EventID(uuid.New())

	s.checkin(event, s.now.Add(-time.Hour))
	granted, err := s.service.EvaluateAndGrant(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Empty(granted)

	s.checkin(event, s.now.Add(-time.Minute))
	granted, err = s.service.EvaluateAndGrant(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Require().Len(granted, 1)
	s.Equal(regular.ID, granted[0].AwardID)
	s.True(granted[0].AwardedAt.Equal(s.now))

	again, err := s.service.EvaluateAndGrant(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Empty(again)

	events := s.outbox.ByType(outbox.EventAwardGranted)
	s.Require().Len(events, 1)
	s.Equal(s.user.ID.String(), events[0].AggregateID)

	held, err := s.service.ListUserAwards(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Require().Len(held, 1)
	s.Equal("Regular", held[0].Award.Name)
}

func (s *AwardServiceSuite) TestMetricKinds() {
	traveller := s.create("Traveller", award.MetricEventsAttended, 2)
	s.create("Committed", award.MetricApprovedEnrollments, 2)
	enrolled := s.create("Enrolled", award.MetricApprovedEnrollments, 1)

	first, second := id.EventID(uuid.New()), id.EventID(uuid.New())
	s.checkin(first, s.now.Add(-3*time.Hour))
	s.checkin(first, s.now.Add(-2*time.Hour))

	granted, err := s.service.EvaluateAndGrant(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Require().Len(granted, 1)
	s.Equal(enrolled.ID, granted[0].AwardID)

	s.checkin(second, s.now.Add(-time.Hour))
	granted, err = s.service.EvaluateAndGrant(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Require().Len(granted, 1)
	s.Equal(traveller.ID, granted[0].AwardID)

	ms, err := s.service.Metrics(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Equal(award.Metrics{Checkins: 3, ApprovedEnrollments: 1, EventsAttended: 2}, ms)
}

func (s *AwardServiceSuite) TestConcurrentEvaluationGrantsOnce() {
	s.create("First Steps", award.MetricCheckins, 1)
	s.checkin(id.EventID(uuid.New()), s.now.Add(-time.Minute))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted, err := s.service.EvaluateAndGrant(s.ctx, s.user.ID)
			s.NoError(err)
			mu.Lock()
			total += len(granted)
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Equal(1, total)
	s.Len(s.awards.Grants(), 1)
	s.Len(s.outbox.ByType(outbox.EventAwardGranted), 1)
}

func (s *AwardServiceSuite) TestGrant() {
	a := s.create("Speaker", award.MetricCheckins, 100)

	_, err := s.service.Grant(s.ctx, s.user.ID, id.AwardID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	g, err := s.service.Grant(s.ctx, s.user.ID, a.ID)
	s.Require().NoError(err)
	s.Equal(a.ID, g.AwardID)

	_, err = s.service.Grant(s.ctx, s.user.ID, a.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	granted, err := s.service.EvaluateAndGrant(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Empty(granted)
}

func (s *AwardServiceSuite) TestUpdateAward() {
	a := s.create("Regular", award.MetricCheckins, 3)

	s.Run("replaces the template and keeps creation time", func() {
		later := testutil.At(s.now.Add(time.Hour))
		updated, err := s.service.UpdateAward(later, a.ID, service.UpdateAwardInput{
			Name:        "  Devoted ",
			Description: "Came five times",
			Criteria:    award.Criteria{Metric: award.MetricEventsAttended, Threshold: 5},
		})
		s.Require().NoError(err)
		s.Equal("Devoted", updated.Name)
		s.Equal(award.MetricEventsAttended, updated.Criteria.Metric)
		s.True(updated.CreatedAt.Equal(s.now))

		stored, err := s.awards.FindByID(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Equal("Came five times", stored.Description)
		s.Equal(5, stored.Criteria.Threshold)
	})

	s.Run("rejects invalid criteria", func() {
		_, err := s.service.UpdateAward(s.ctx, a.ID, service.UpdateAwardInput{
			Name:     "Devoted",
			Criteria: award.Criteria{Metric: award.MetricCheckins, Threshold: 0},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown award", func() {
		_, err := s.service.UpdateAward(s.ctx, id.AwardID(uuid.New()), service.UpdateAwardInput{
			Name:     "Ghost",
			Criteria: award.Criteria{Metric: award.MetricCheckins, Threshold: 1},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *AwardServiceSuite) TestDeleteAward() {
	s.Run("removes an award nobody holds", func() {
		a := s.create("Unclaimed", award.MetricCheckins, 10)
		s.Require().NoError(s.service.DeleteAward(s.ctx, a.ID))
		_, err := s.awards.FindByID(s.ctx, a.ID)
		s.Error(err)
	})

	s.Run("refuses once granted", func() {
		a := s.create("Pioneer", award.MetricCheckins, 1)
		_, err := s.service.Grant(s.ctx, s.user.ID, a.ID)
		s.Require().NoError(err)

		err = s.service.DeleteAward(s.ctx, a.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		_, err = s.awards.FindByID(s.ctx, a.ID)
		s.NoError(err)
	})

	s.Run("unknown award", func() {
		err := s.service.DeleteAward(s.ctx, id.AwardID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("grant racing the delete is reported as a conflict", func() {
		ctrl := gomock.NewController(s.T())
		awards := mocks.NewMockStore(ctrl)
		svc := service.New(service.Deps{Awards: awards, Outbox: s.outbox, Tx: tx.NewSharded()})
		awardID := id.AwardID(uuid.New())

		awards.EXPECT().FindByID(gomock.Any(), awardID).Return(&award.Award{ID: awardID}, nil)
		awards.EXPECT().CountGrants(gomock.Any(), awardID).Return(0, nil)
		awards.EXPECT().Delete(gomock.Any(), awardID).Return(sentinel.ErrConflict)

		err := svc.DeleteAward(s.ctx, awardID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *AwardServiceSuite) TestStorageFailures() {
	ctrl := gomock.NewController(s.T())
	awards := mocks.NewMockStore(ctrl)
	activity := mocks.NewMockActivitySource(ctrl)
	svc := service.New(service.Deps{
		Awards:      awards,
		Activity:    activity,
		Enrollments: s.dir.Enrollments(),
		Outbox:      s.outbox,
		Tx:          tx.NewSharded(),
	})

	s.Run("candidate listing", func() {
		awards.EXPECT().ListNotGranted(gomock.Any(), s.user.ID).Return(nil, errors.New("connection reset"))
		_, err := svc.EvaluateAndGrant(s.ctx, s.user.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeStorageUnavailable))
	})

	s.Run("activity counters", func() {
		awards.EXPECT().ListNotGranted(gomock.Any(), s.user.ID).Return([]*award.Award{{
			ID:       id.AwardID(uuid.New()),
			Criteria: award.Criteria{Metric: award.MetricCheckins, Threshold: 1},
		}}, nil)
		activity.EXPECT().CountForUser(gomock.Any(), s.user.ID).Return(0, errors.New("timeout"))
		_, err := svc.EvaluateAndGrant(s.ctx, s.user.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeStorageUnavailable))
	})

	s.Run("nothing to evaluate skips the counters", func() {
		awards.EXPECT().ListNotGranted(gomock.Any(), s.user.ID).Return(nil, nil)
		granted, err := svc.EvaluateAndGrant(s.ctx, s.user.ID)
		s.NoError(err)
		s.Empty(granted)
	})
}
