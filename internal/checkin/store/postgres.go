package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"badgehub/internal/checkin/models"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
	"badgehub/pkg/platform/tx"
)

// Postgres persists checkins in the checkins table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const checkinColumns = `id, badge_id, user_id, event_id, checkin_time, location, scanner, operator`

func scanCheckin(row interface{ Scan(...any) error }) (*models.Checkin, error) {
	var (
		c                                   models.Checkin
		checkinID, badgeID, userID, eventID uuid.UUID
	)
	if err := row.Scan(&checkinID, &badgeID, &userID, &eventID, &c.CheckinTime, &c.Location, &c.Scanner, &c.Operator); err != nil {
		return nil, err
	}
	c.ID = id.CheckinID(checkinID)
	c.BadgeID = id.BadgeID(badgeID)
	c.UserID = id.UserID(userID)
	c.EventID = id.EventID(eventID)
	c.CheckinTime = c.CheckinTime.UTC()
	return &c, nil
}

func (s *Postgres) Insert(ctx context.Context, c *models.Checkin) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO checkins (`+checkinColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(c.ID), uuid.UUID(c.BadgeID), uuid.UUID(c.UserID), uuid.UUID(c.EventID),
		c.CheckinTime, c.Location, c.Scanner, c.Operator,
	)
	if err != nil {
		return fmt.Errorf("insert checkin: %w", err)
	}
	return nil
}

func (s *Postgres) LastForBadge(ctx context.Context, badgeID id.BadgeID) (*models.Checkin, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+checkinColumns+`
		FROM checkins
		WHERE badge_id = $1
		ORDER BY checkin_time DESC
		LIMIT 1
	`, uuid.UUID(badgeID))
	c, err := scanCheckin(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find last checkin: %w", err)
	}
	return c, nil
}

func (s *Postgres) CountForBadge(ctx context.Context, badgeID id.BadgeID) (int, error) {
	return s.count(ctx, "badge checkins", `SELECT COUNT(*) FROM checkins WHERE badge_id = $1`, uuid.UUID(badgeID))
}

func (s *Postgres) DeleteForBadge(ctx context.Context, badgeID id.BadgeID) (int, error) {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM checkins WHERE badge_id = $1`, uuid.UUID(badgeID))
	if err != nil {
		return 0, fmt.Errorf("delete badge checkins: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (s *Postgres) ListForEvent(ctx context.Context, eventID id.EventID, page models.Page) ([]*models.Checkin, error) {
	return s.list(ctx, `event_id = $1`, uuid.UUID(eventID), page)
}

func (s *Postgres) ListForUser(ctx context.Context, userID id.UserID, page models.Page) ([]*models.Checkin, error) {
	return s.list(ctx, `user_id = $1`, uuid.UUID(userID), page)
}

func (s *Postgres) CountForUser(ctx context.Context, userID id.UserID) (int, error) {
	return s.count(ctx, "user checkins", `SELECT COUNT(*) FROM checkins WHERE user_id = $1`, uuid.UUID(userID))
}

func (s *Postgres) CountEventsAttended(ctx context.Context, userID id.UserID) (int, error) {
	return s.count(ctx, "events attended", `SELECT COUNT(DISTINCT event_id) FROM checkins WHERE user_id = $1`, uuid.UUID(userID))
}

func (s *Postgres) count(ctx context.Context, what, query string, arg any) (int, error) {
	var n int
	if err := tx.Conn(ctx, s.db).QueryRowContext(ctx, query, arg).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", what, err)
	}
	return n, nil
}

func (s *Postgres) list(ctx context.Context, where string, arg any, page models.Page) ([]*models.Checkin, error) {
	page = page.Normalize()
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT `+checkinColumns+`
		FROM checkins
		WHERE `+where+`
		ORDER BY checkin_time, id
		LIMIT $2 OFFSET $3
	`, arg, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	defer rows.Close()

	out := []*models.Checkin{}
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkin: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkins: %w", err)
	}
	return out, nil
}
