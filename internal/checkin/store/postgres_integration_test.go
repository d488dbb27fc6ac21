//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"badgehub/internal/checkin/models"
	"badgehub/internal/checkin/store"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
	"badgehub/pkg/testutil/containers"
)

type PostgresCheckinSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	now      time.Time
}

func TestPostgresCheckinSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresCheckinSuite))
}

func (s *PostgresCheckinSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.now = time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
}

func (s *PostgresCheckinSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), containers.AllTables...))
}

// seedBadge inserts the rows a checkin references.
func (s *PostgresCheckinSuite) seedBadge(ctx context.Context, code string) (badgeID, userID, eventID uuid.UUID) {
	badgeID, userID, eventID = uuid.New(), uuid.New(), uuid.New()
	enrollmentID := uuid.New()
	s.Require().NoError(s.postgres.InsertUser(ctx, userID, "Ada Lovelace"))
	s.Require().NoError(s.postgres.InsertEvent(ctx, eventID, s.now, s.now.Add(time.Hour), "Hall A"))
	s.Require().NoError(s.postgres.InsertEnrollment(ctx, enrollmentID, userID, eventID, "APPROVED"))
	_, err := s.postgres.Exec(ctx, `
		INSERT INTO badges (id, scope, user_id, enrollment_id, event_id, code, payload, issued_at, created_at, qr_path)
		VALUES ($1, 'enrollment', $2, $3, $4, $5, '{}', $6, $6, '')
	`, badgeID, userID, enrollmentID, eventID, code, s.now)
	s.Require().NoError(err)
	return badgeID, userID, eventID
}

func (s *PostgresCheckinSuite) insert(badgeID, userID, eventID uuid.UUID, at time.Time) *models.Checkin {
	c := &models.Checkin{
		ID:          id.CheckinID(uuid.New()),
		BadgeID:     id.BadgeID(badgeID),
		UserID:      id.UserID(userID),
		EventID:     id.EventID(eventID),
		CheckinTime: at,
		Location:    "Hall A",
		Scanner:     "Firefox 128 on Linux",
		Operator:    "door-1",
	}
	s.Require().NoError(s.store.Insert(context.Background(), c))
	return c
}

func (s *PostgresCheckinSuite) TestRoundTripAndQueries() {
	ctx := context.Background()
	badgeID, userID, eventID := s.seedBadge(ctx, "ADA-LOVELACE-1000")

	_, err := s.store.LastForBadge(ctx, id.BadgeID(badgeID))
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.insert(badgeID, userID, eventID, s.now)
	last := s.insert(badgeID, userID, eventID, s.now.Add(10*time.Minute))

	got, err := s.store.LastForBadge(ctx, id.BadgeID(badgeID))
	s.Require().NoError(err)
	s.Equal(last.ID, got.ID)
	s.Equal("Firefox 128 on Linux", got.Scanner)
	s.Equal("door-1", got.Operator)

	n, err := s.store.CountEventsAttended(ctx, id.UserID(userID))
	s.Require().NoError(err)
	s.Equal(1, n)
	n, err = s.store.CountForUser(ctx, id.UserID(userID))
	s.Require().NoError(err)
	s.Equal(2, n)

	list, err := s.store.ListForEvent(ctx, id.EventID(eventID), models.Page{Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(last.ID, list[0].ID)

	removed, err := s.store.DeleteForBadge(ctx, id.BadgeID(badgeID))
	s.Require().NoError(err)
	s.Equal(2, removed)
	n, err = s.store.CountForBadge(ctx, id.BadgeID(badgeID))
	s.Require().NoError(err)
	s.Zero(n)
}
