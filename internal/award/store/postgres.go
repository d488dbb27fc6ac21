package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"badgehub/internal/award"
	"badgehub/internal/platform/postgres"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
	"badgehub/pkg/platform/tx"
)

// Postgres persists awards and grants in the awards and user_awards tables.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const awardColumns = `a.id, a.name, a.description, a.metric, a.threshold, a.image_url, a.created_at`

func scanAward(row interface{ Scan(...any) error }, extra ...any) (*award.Award, error) {
	var (
		a      award.Award
		rawID  uuid.UUID
		metric string
	)
	dest := append([]any{&rawID, &a.Name, &a.Description, &metric, &a.Criteria.Threshold, &a.ImageURL, &a.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	a.ID = id.AwardID(rawID)
	a.Criteria.Metric = award.Metric(metric)
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func (s *Postgres) Create(ctx context.Context, a *award.Award) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO awards (id, name, description, metric, threshold, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(a.ID), a.Name, a.Description, string(a.Criteria.Metric), a.Criteria.Threshold, a.ImageURL, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert award: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, awardID id.AwardID) (*award.Award, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx, `SELECT `+awardColumns+` FROM awards a WHERE a.id = $1`, uuid.UUID(awardID))
	a, err := scanAward(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find award: %w", err)
	}
	return a, nil
}

// Update rewrites the mutable columns. created_at is kept.
func (s *Postgres) Update(ctx context.Context, a *award.Award) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE awards
		SET name = $2, description = $3, metric = $4, threshold = $5, image_url = $6
		WHERE id = $1
	`, uuid.UUID(a.ID), a.Name, a.Description, string(a.Criteria.Metric), a.Criteria.Threshold, a.ImageURL)
	if err != nil {
		return fmt.Errorf("update award: %w", err)
	}
	return requireRow(res)
}

// Delete removes the award. The user_awards foreign key refuses it once the
// award has been granted.
func (s *Postgres) Delete(ctx context.Context, awardID id.AwardID) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM awards WHERE id = $1`, uuid.UUID(awardID))
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("award %s has grants: %w", awardID, sentinel.ErrConflict)
		}
		return fmt.Errorf("delete award: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) CountGrants(ctx context.Context, awardID id.AwardID) (int, error) {
	var n int
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM user_awards WHERE award_id = $1`, uuid.UUID(awardID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count award grants: %w", err)
	}
	return n, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]*award.Award, error) {
	return s.query(ctx, `SELECT `+awardColumns+` FROM awards a ORDER BY a.created_at, a.id`)
}

func (s *Postgres) ListNotGranted(ctx context.Context, userID id.UserID) ([]*award.Award, error) {
	return s.query(ctx, `
		SELECT `+awardColumns+`
		FROM awards a
		WHERE NOT EXISTS (
			SELECT 1 FROM user_awards ua WHERE ua.award_id = a.id AND ua.user_id = $1
		)
		ORDER BY a.created_at, a.id
	`, uuid.UUID(userID))
}

// GrantIfAbsent inserts the grant and reports whether a row was written.
// An existing (user, award) row is left untouched.
func (s *Postgres) GrantIfAbsent(ctx context.Context, g award.UserAward) (bool, error) {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO user_awards (user_id, award_id, awarded_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, award_id) DO NOTHING
	`, uuid.UUID(g.UserID), uuid.UUID(g.AwardID), g.AwardedAt)
	if err != nil {
		return false, fmt.Errorf("grant award: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *Postgres) ListForUser(ctx context.Context, userID id.UserID) ([]award.Granted, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT `+awardColumns+`, ua.awarded_at
		FROM user_awards ua
		JOIN awards a ON a.id = ua.award_id
		WHERE ua.user_id = $1
		ORDER BY ua.awarded_at, a.id
	`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list user awards: %w", err)
	}
	defer rows.Close()

	var out []award.Granted
	for rows.Next() {
		var g award.Granted
		a, err := scanAward(rows, &g.AwardedAt)
		if err != nil {
			return nil, fmt.Errorf("scan user award: %w", err)
		}
		g.Award = *a
		g.AwardedAt = g.AwardedAt.UTC()
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user awards: %w", err)
	}
	return out, nil
}

func (s *Postgres) query(ctx context.Context, query string, args ...any) ([]*award.Award, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list awards: %w", err)
	}
	defer rows.Close()

	out := []*award.Award{}
	for rows.Next() {
		a, err := scanAward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan award: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate awards: %w", err)
	}
	return out, nil
}
