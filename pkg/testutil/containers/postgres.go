//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"badgehub/internal/platform/postgres"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// badgehub schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
}

func startPostgres() (*PostgresContainer, error) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("badgehub"),
		tcpostgres.WithUsername("badgehub"),
		tcpostgres.WithPassword("badgehub"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("postgres connection string: %w", err)
	}

	db, err := postgres.Open(ctx, url, postgres.Options{MaxOpenConns: 20})
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &PostgresContainer{Container: container, URL: url, DB: db}, nil
}

// TruncateTables empties the named tables. Use in SetupTest for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE")
	return err
}

// Exec runs a statement against the test database.
func (p *PostgresContainer) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.DB.ExecContext(ctx, query, args...)
}

// AllTables lists every badgehub table in truncation order.
var AllTables = []string{"outbox", "user_awards", "awards", "checkins", "badges", "enrollments", "events", "users"}

// InsertUser seeds a collaborator user row.
func (p *PostgresContainer) InsertUser(ctx context.Context, userID uuid.UUID, name string) error {
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO users (id, name, email) VALUES ($1, $2, $3)`,
		userID, name, strings.ToLower(strings.ReplaceAll(name, " ", "."))+"@example.test",
	)
	return err
}

// InsertEvent seeds a collaborator event row.
func (p *PostgresContainer) InsertEvent(ctx context.Context, eventID uuid.UUID, start, end time.Time, location string) error {
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO events (id, title, start_date, end_date, location) VALUES ($1, $2, $3, $4, $5)`,
		eventID, "event "+eventID.String()[:8], start, end, location,
	)
	return err
}

// InsertEnrollment seeds a collaborator enrollment row.
func (p *PostgresContainer) InsertEnrollment(ctx context.Context, enrollmentID, userID, eventID uuid.UUID, status string) error {
	_, err := p.DB.ExecContext(ctx,
		`INSERT INTO enrollments (id, user_id, event_id, status) VALUES ($1, $2, $3, $4)`,
		enrollmentID, userID, eventID, status,
	)
	return err
}
