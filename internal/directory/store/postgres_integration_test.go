//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"badgehub/internal/directory/models"
	"badgehub/internal/directory/store"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
	"badgehub/pkg/testutil/containers"
)

type PostgresDirectorySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresDirectorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresDirectorySuite))
}

func (s *PostgresDirectorySuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresDirectorySuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), containers.AllTables...))
}

func (s *PostgresDirectorySuite) TestReads() {
	ctx := context.Background()
	userID, eventID, enrollmentID := uuid.New(), uuid.New(), uuid.New()
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	s.Require().NoError(s.postgres.InsertUser(ctx, userID, "Ada Lovelace"))
	s.Require().NoError(s.postgres.InsertEvent(ctx, eventID, start, start.Add(2*time.Hour), "Hall A"))
	s.Require().NoError(s.postgres.InsertEnrollment(ctx, enrollmentID, userID, eventID, "APPROVED"))

	u, err := s.store.Users().FindByID(ctx, id.UserID(userID))
	s.Require().NoError(err)
	s.Equal("Ada Lovelace", u.Name)

	ev, err := s.store.Events().FindByID(ctx, id.EventID(eventID))
	s.Require().NoError(err)
	s.True(ev.StartDate.Equal(start))
	s.Equal("Hall A", ev.Location)

	en, err := s.store.Enrollments().FindByUserAndEvent(ctx, id.UserID(userID), id.EventID(eventID))
	s.Require().NoError(err)
	s.Equal(models.EnrollmentApproved, en.Status)

	n, err := s.store.Enrollments().CountApprovedByEvent(ctx, id.EventID(eventID))
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.store.Enrollments().FindByID(ctx, id.EnrollmentID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)

	users, err := s.store.Users().ListWithoutPersonBadge(ctx, 0)
	s.Require().NoError(err)
	s.Len(users, 1)

	missing, err := s.store.Users().CountWithoutPersonBadge(ctx)
	s.Require().NoError(err)
	s.Equal(1, missing)
}
