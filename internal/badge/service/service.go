// Package service issues, regenerates and retires badges.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"badgehub/internal/badge/code"
	"badgehub/internal/badge/metrics"
	"badgehub/internal/badge/models"
	"badgehub/internal/directory"
	"badgehub/internal/outbox"
	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
	"badgehub/pkg/platform/sentinel"
	"badgehub/pkg/platform/tx"
)

const (
	defaultMaxAttempts         = 10
	defaultBackfillConcurrency = 8
)

var tracer = otel.Tracer("badgehub/badge")

// Store persists badges. Insert returns models.ErrCodeTaken or
// models.ErrAlreadyIssued on unique-key conflicts; lookups return
// sentinel.ErrNotFound. LockByID holds the badge row until the surrounding
// transaction ends.
type Store interface {
	Insert(ctx context.Context, b *models.Badge) error
	FindByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error)
	LockByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error)
	FindByCode(ctx context.Context, code string) (*models.Badge, error)
	FindByEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Badge, error)
	FindPersonBadge(ctx context.Context, userID id.UserID) (*models.Badge, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	UpdateCredential(ctx context.Context, badgeID id.BadgeID, payload string, issuedAt time.Time, qrPath string) error
	Delete(ctx context.Context, badgeID id.BadgeID) error
}

// ArtifactStore renders and removes QR images.
type ArtifactStore interface {
	Render(ctx context.Context, name, payload string) (string, error)
	Delete(ctx context.Context, path string) error
}

// CheckinRemover lets deletion inspect and cascade to a badge's checkins.
type CheckinRemover interface {
	CountForBadge(ctx context.Context, badgeID id.BadgeID) (int, error)
	DeleteForBadge(ctx context.Context, badgeID id.BadgeID) (int, error)
}

// CodeGenerator produces candidate badge codes from a holder name.
type CodeGenerator interface {
	Generate(name string) string
}

// Service issues and manages badges.
type Service struct {
	badges      Store
	artifacts   ArtifactStore
	checkins    CheckinRemover
	enrollments directory.EnrollmentReader
	events      directory.EventReader
	users       directory.UserReader
	outbox      outbox.Appender
	tx          tx.Runner

	codes               CodeGenerator
	maxAttempts         int
	backfillConcurrency int
	logger              *slog.Logger
	metrics             *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithCodeGenerator(g CodeGenerator) Option {
	return func(s *Service) { s.codes = g }
}

// WithMaxAttempts bounds code generation retries.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBackfillConcurrency bounds parallel issuance during backfill.
func WithBackfillConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.backfillConcurrency = n
		}
	}
}

// Deps groups the collaborators New requires.
type Deps struct {
	Badges      Store
	Artifacts   ArtifactStore
	Checkins    CheckinRemover
	Enrollments directory.EnrollmentReader
	Events      directory.EventReader
	Users       directory.UserReader
	Outbox      outbox.Appender
	Tx          tx.Runner
}

func New(deps Deps, opts ...Option) *Service {
	s := &Service{
		badges:              deps.Badges,
		artifacts:           deps.Artifacts,
		checkins:            deps.Checkins,
		enrollments:         deps.Enrollments,
		events:              deps.Events,
		users:               deps.Users,
		outbox:              deps.Outbox,
		tx:                  deps.Tx,
		codes:               code.NewGenerator(nil),
		maxAttempts:         defaultMaxAttempts,
		backfillConcurrency: defaultBackfillConcurrency,
		logger:              slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// badgeEvent is the outbox payload for badge lifecycle events.
type badgeEvent struct {
	BadgeID      string     `json:"badge_id"`
	Scope        string     `json:"scope"`
	UserID       string     `json:"user_id"`
	EnrollmentID string     `json:"enrollment_id,omitempty"`
	EventID      string     `json:"event_id,omitempty"`
	Code         string     `json:"code"`
	IssuedAt     time.Time  `json:"issued_at"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
	QRPath       string     `json:"qr_path,omitempty"`
}

func (s *Service) appendEvent(ctx context.Context, b *models.Badge, eventType string, now time.Time) error {
	payload := badgeEvent{
		BadgeID:    b.ID.String(),
		Scope:      string(b.Scope),
		UserID:     b.UserID.String(),
		Code:       b.Code,
		IssuedAt:   b.IssuedAt,
		ValidUntil: b.ValidUntil,
		QRPath:     b.QRPath,
	}
	if b.Scope == models.ScopeEnrollment {
		payload.EnrollmentID = b.EnrollmentID.String()
		payload.EventID = b.EventID.String()
	}
	entry, err := outbox.NewEntry(outbox.AggregateBadge, b.ID.String(), eventType, payload, now)
	if err != nil {
		return err
	}
	return s.outbox.Append(ctx, entry)
}

// artifactName keys QR files by code and issue instant so a regenerated
// badge never overwrites the file its previous payload lives in.
func artifactName(code string, issuedAt time.Time) string {
	return code + "-" + strconv.FormatInt(issuedAt.UnixMicro(), 36)
}

// issueTime is the request instant at the precision PostgreSQL stores, so a
// payload's issuedAt compares equal to the persisted value.
func issueTime(now time.Time) time.Time {
	return now.UTC().Truncate(time.Microsecond)
}

func (s *Service) discardArtifact(ctx context.Context, path string) {
	if err := s.artifacts.Delete(context.WithoutCancel(ctx), path); err != nil {
		s.logger.WarnContext(ctx, "failed to delete badge artifact",
			"qr_path", path,
			"error", err,
		)
	}
}

func notFoundOr(err error, code dErrors.Code, notFound, storage string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, code, notFound)
	}
	return dErrors.Storage(err, storage)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
