package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"badgehub/internal/directory/models"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
	"badgehub/pkg/platform/tx"
)

// Postgres reads collaborator tables. Queries join the caller's
// transaction when one is in context.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Users() *PostgresUsers             { return &PostgresUsers{s} }
func (s *Postgres) Events() *PostgresEvents           { return &PostgresEvents{s} }
func (s *Postgres) Enrollments() *PostgresEnrollments { return &PostgresEnrollments{s} }

type PostgresUsers struct{ s *Postgres }

func (v *PostgresUsers) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	var u models.User
	var rawID uuid.UUID
	err := tx.Conn(ctx, v.s.db).QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE id = $1`,
		uuid.UUID(userID),
	).Scan(&rawID, &u.Name, &u.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	u.ID = id.UserID(rawID)
	return &u, nil
}

func (v *PostgresUsers) CountWithoutPersonBadge(ctx context.Context) (int, error) {
	var n int
	err := tx.Conn(ctx, v.s.db).QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM users u
		WHERE NOT EXISTS (
			SELECT 1 FROM badges b WHERE b.scope = 'person' AND b.user_id = u.id
		)
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users without person badge: %w", err)
	}
	return n, nil
}

func (v *PostgresUsers) ListWithoutPersonBadge(ctx context.Context, limit int) ([]*models.User, error) {
	rows, err := tx.Conn(ctx, v.s.db).QueryContext(ctx, `
		SELECT u.id, u.name, u.email
		FROM users u
		WHERE NOT EXISTS (
			SELECT 1 FROM badges b WHERE b.scope = 'person' AND b.user_id = u.id
		)
		ORDER BY u.created_at, u.id
		LIMIT NULLIF($1::int, 0)
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list users without person badge: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		var u models.User
		var rawID uuid.UUID
		if err := rows.Scan(&rawID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.ID = id.UserID(rawID)
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

type PostgresEvents struct{ s *Postgres }

func (v *PostgresEvents) FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	var e models.Event
	var rawID uuid.UUID
	err := tx.Conn(ctx, v.s.db).QueryRowContext(ctx,
		`SELECT id, title, start_date, end_date, location FROM events WHERE id = $1`,
		uuid.UUID(eventID),
	).Scan(&rawID, &e.Title, &e.StartDate, &e.EndDate, &e.Location)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	e.ID = id.EventID(rawID)
	e.StartDate = e.StartDate.UTC()
	e.EndDate = e.EndDate.UTC()
	return &e, nil
}

type PostgresEnrollments struct{ s *Postgres }

const enrollmentColumns = `id, user_id, event_id, status, created_at`

func scanEnrollment(row interface{ Scan(...any) error }) (*models.Enrollment, error) {
	var e models.Enrollment
	var rawID, userID, eventID uuid.UUID
	var status string
	if err := row.Scan(&rawID, &userID, &eventID, &status, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.ID = id.EnrollmentID(rawID)
	e.UserID = id.UserID(userID)
	e.EventID = id.EventID(eventID)
	e.Status = models.EnrollmentStatus(status)
	return &e, nil
}

func (v *PostgresEnrollments) FindByID(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	row := tx.Conn(ctx, v.s.db).QueryRowContext(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`,
		uuid.UUID(enrollmentID),
	)
	e, err := scanEnrollment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find enrollment by id: %w", err)
	}
	return e, nil
}

func (v *PostgresEnrollments) FindByUserAndEvent(ctx context.Context, userID id.UserID, eventID id.EventID) (*models.Enrollment, error) {
	row := tx.Conn(ctx, v.s.db).QueryRowContext(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE user_id = $1 AND event_id = $2`,
		uuid.UUID(userID), uuid.UUID(eventID),
	)
	e, err := scanEnrollment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find enrollment by user and event: %w", err)
	}
	return e, nil
}

func (v *PostgresEnrollments) CountApprovedByUser(ctx context.Context, userID id.UserID) (int, error) {
	var n int
	err := tx.Conn(ctx, v.s.db).QueryRowContext(ctx,
		`SELECT count(*) FROM enrollments WHERE user_id = $1 AND status = 'APPROVED'`,
		uuid.UUID(userID),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count approved enrollments by user: %w", err)
	}
	return n, nil
}

func (v *PostgresEnrollments) CountApprovedByEvent(ctx context.Context, eventID id.EventID) (int, error) {
	var n int
	err := tx.Conn(ctx, v.s.db).QueryRowContext(ctx,
		`SELECT count(*) FROM enrollments WHERE event_id = $1 AND status = 'APPROVED'`,
		uuid.UUID(eventID),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count approved enrollments by event: %w", err)
	}
	return n, nil
}
