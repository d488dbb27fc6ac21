package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"badgehub/internal/badge/models"
	"badgehub/internal/platform/postgres"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
	"badgehub/pkg/platform/tx"
)

// Postgres persists badges in the badges table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const badgeColumns = `id, scope, user_id, enrollment_id, event_id, code, payload, issued_at, created_at, valid_until, qr_path`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBadge(row rowScanner) (*models.Badge, error) {
	var (
		b            models.Badge
		rawID        uuid.UUID
		scope        string
		userID       uuid.UUID
		enrollmentID uuid.NullUUID
		eventID      uuid.NullUUID
		validUntil   sql.NullTime
	)
	if err := row.Scan(&rawID, &scope, &userID, &enrollmentID, &eventID, &b.Code, &b.Payload, &b.IssuedAt, &b.CreatedAt, &validUntil, &b.QRPath); err != nil {
		return nil, err
	}
	b.ID = id.BadgeID(rawID)
	b.Scope = models.Scope(scope)
	b.UserID = id.UserID(userID)
	if enrollmentID.Valid {
		b.EnrollmentID = id.EnrollmentID(enrollmentID.UUID)
	}
	if eventID.Valid {
		b.EventID = id.EventID(eventID.UUID)
	}
	b.IssuedAt = b.IssuedAt.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	if validUntil.Valid {
		v := validUntil.Time.UTC()
		b.ValidUntil = &v
	}
	return &b, nil
}

func nullableUUID(u uuid.UUID, valid bool) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: valid}
}

func (s *Postgres) Insert(ctx context.Context, b *models.Badge) error {
	enrollment := b.Scope == models.ScopeEnrollment
	var validUntil sql.NullTime
	if b.ValidUntil != nil {
		validUntil = sql.NullTime{Time: *b.ValidUntil, Valid: true}
	}
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO badges (`+badgeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		uuid.UUID(b.ID),
		string(b.Scope),
		uuid.UUID(b.UserID),
		nullableUUID(uuid.UUID(b.EnrollmentID), enrollment),
		nullableUUID(uuid.UUID(b.EventID), enrollment),
		b.Code,
		b.Payload,
		b.IssuedAt,
		b.CreatedAt,
		validUntil,
		b.QRPath,
	)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err, "badges_code_key"):
			return models.ErrCodeTaken
		case postgres.IsUniqueViolation(err, "badges_enrollment_key", "badges_person_key"):
			return models.ErrAlreadyIssued
		}
		return fmt.Errorf("insert badge: %w", err)
	}
	return nil
}

func (s *Postgres) findOne(ctx context.Context, what, where string, args ...any) (*models.Badge, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx, `SELECT `+badgeColumns+` FROM badges WHERE `+where, args...)
	b, err := scanBadge(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find badge by %s: %w", what, err)
	}
	return b, nil
}

func (s *Postgres) FindByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	return s.findOne(ctx, "id", `id = $1`, uuid.UUID(badgeID))
}

// LockByID reads the badge and holds its row lock until the surrounding
// transaction ends. Must be called inside RunInTx.
func (s *Postgres) LockByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	return s.findOne(ctx, "id for update", `id = $1 FOR UPDATE`, uuid.UUID(badgeID))
}

func (s *Postgres) FindByCode(ctx context.Context, code string) (*models.Badge, error) {
	return s.findOne(ctx, "code", `code = $1`, code)
}

func (s *Postgres) FindByEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Badge, error) {
	return s.findOne(ctx, "enrollment", `scope = 'enrollment' AND enrollment_id = $1`, uuid.UUID(enrollmentID))
}

func (s *Postgres) FindPersonBadge(ctx context.Context, userID id.UserID) (*models.Badge, error) {
	return s.findOne(ctx, "person", `scope = 'person' AND user_id = $1`, uuid.UUID(userID))
}

func (s *Postgres) HasPersonBadge(ctx context.Context, userID id.UserID) (bool, error) {
	var exists bool
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM badges WHERE scope = 'person' AND user_id = $1)`,
		uuid.UUID(userID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check person badge: %w", err)
	}
	return exists, nil
}

func (s *Postgres) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM badges WHERE code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check badge code: %w", err)
	}
	return exists, nil
}

func (s *Postgres) UpdateCredential(ctx context.Context, badgeID id.BadgeID, payload string, issuedAt time.Time, qrPath string) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE badges SET payload = $2, issued_at = $3, qr_path = $4 WHERE id = $1`,
		uuid.UUID(badgeID), payload, issuedAt, qrPath,
	)
	if err != nil {
		return fmt.Errorf("update badge credential: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) Delete(ctx context.Context, badgeID id.BadgeID) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM badges WHERE id = $1`, uuid.UUID(badgeID))
	if err != nil {
		return fmt.Errorf("delete badge: %w", err)
	}
	return requireRow(res)
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
