package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"badgehub/internal/ranking/models"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/tx"
)

// Postgres answers leaderboard queries with one aggregating statement each.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const leaderColumns = `
	SELECT counts.user_id, COALESCE(u.name, ''), counts.n, fb.first_badge
	FROM counts
	LEFT JOIN users u ON u.id = counts.user_id
	LEFT JOIN (
		SELECT user_id, MIN(created_at) AS first_badge FROM badges GROUP BY user_id
	) fb ON fb.user_id = counts.user_id
	ORDER BY counts.n DESC, fb.first_badge ASC NULLS LAST, counts.user_id ASC
	LIMIT $1
`

const checkinLeadersQuery = `
	WITH counts AS (
		SELECT c.user_id, COUNT(*) AS n
		FROM checkins c
		GROUP BY c.user_id
	)` + leaderColumns

const punctualLeadersQuery = `
	WITH counts AS (
		SELECT c.user_id, COUNT(*) AS n
		FROM checkins c
		JOIN events e ON e.id = c.event_id
		WHERE c.checkin_time < e.start_date
		GROUP BY c.user_id
	)` + leaderColumns

func (s *Postgres) CheckinLeaders(ctx context.Context, limit int) ([]models.Entry, error) {
	return s.checkinLeaders(ctx, checkinLeadersQuery, limit)
}

func (s *Postgres) PunctualLeaders(ctx context.Context, limit int) ([]models.Entry, error) {
	return s.checkinLeaders(ctx, punctualLeadersQuery, limit)
}

func (s *Postgres) checkinLeaders(ctx context.Context, query string, limit int) ([]models.Entry, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("rank checkins: %w", err)
	}
	defer rows.Close()

	out := []models.Entry{}
	for rows.Next() {
		var (
			e      models.Entry
			userID uuid.UUID
			first  sql.NullTime
		)
		if err := rows.Scan(&userID, &e.Name, &e.Count, &first); err != nil {
			return nil, fmt.Errorf("scan ranking row: %w", err)
		}
		e.UserID = id.UserID(userID)
		if first.Valid {
			e.FirstBadgeAt = first.Time.UTC()
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranking rows: %w", err)
	}
	return out, nil
}

func (s *Postgres) AwardLeaders(ctx context.Context, limit int) ([]models.AwardEntry, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT ua.user_id, COALESCE(u.name, ''), COUNT(*) AS n, MIN(ua.awarded_at) AS first_award
		FROM user_awards ua
		LEFT JOIN users u ON u.id = ua.user_id
		GROUP BY ua.user_id, u.name
		ORDER BY n DESC, first_award ASC, ua.user_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("rank awards: %w", err)
	}
	defer rows.Close()

	out := []models.AwardEntry{}
	for rows.Next() {
		var (
			e      models.AwardEntry
			userID uuid.UUID
		)
		if err := rows.Scan(&userID, &e.Name, &e.Count, &e.FirstAwardAt); err != nil {
			return nil, fmt.Errorf("scan award ranking row: %w", err)
		}
		e.UserID = id.UserID(userID)
		e.FirstAwardAt = e.FirstAwardAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate award ranking rows: %w", err)
	}
	return out, nil
}

func (s *Postgres) EventStats(ctx context.Context, eventID id.EventID) (*models.EventStats, error) {
	conn := tx.Conn(ctx, s.db)
	stats := &models.EventStats{EventID: eventID, Daily: []models.DayCount{}}
	err := conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM enrollments WHERE event_id = $1 AND status = 'APPROVED'),
			(SELECT COUNT(DISTINCT user_id) FROM checkins WHERE event_id = $1),
			(SELECT COUNT(*) FROM checkins WHERE event_id = $1)
	`, uuid.UUID(eventID)).Scan(&stats.ApprovedEnrollments, &stats.UniqueAttendees, &stats.TotalCheckins)
	if err != nil {
		return nil, fmt.Errorf("event totals: %w", err)
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT to_char(checkin_time AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM checkins
		WHERE event_id = $1
		GROUP BY day
		ORDER BY day
	`, uuid.UUID(eventID))
	if err != nil {
		return nil, fmt.Errorf("event daily counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d models.DayCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		stats.Daily = append(stats.Daily, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily counts: %w", err)
	}
	return stats, nil
}
