// Package service evaluates award criteria against user activity and keeps
// the award catalogue.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"badgehub/internal/award"
	"badgehub/internal/award/metrics"
	"badgehub/internal/directory"
	"badgehub/internal/outbox"
	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
	"badgehub/pkg/platform/sentinel"
	"badgehub/pkg/platform/tx"
	"badgehub/pkg/requestcontext"
)

const (
	sourceEvaluation = "evaluation"
	sourceManual     = "manual"
)

var tracer = otel.Tracer("badgehub/award")

// Store persists award templates and grants. GrantIfAbsent reports false
// when the user already holds the award. Delete returns sentinel.ErrConflict
// while grants reference the award.
type Store interface {
	Create(ctx context.Context, a *award.Award) error
	Update(ctx context.Context, a *award.Award) error
	Delete(ctx context.Context, awardID id.AwardID) error
	CountGrants(ctx context.Context, awardID id.AwardID) (int, error)
	FindByID(ctx context.Context, awardID id.AwardID) (*award.Award, error)
	List(ctx context.Context) ([]*award.Award, error)
	ListNotGranted(ctx context.Context, userID id.UserID) ([]*award.Award, error)
	GrantIfAbsent(ctx context.Context, g award.UserAward) (bool, error)
	ListForUser(ctx context.Context, userID id.UserID) ([]award.Granted, error)
}

// ActivitySource counts a user's admissions.
type ActivitySource interface {
	CountForUser(ctx context.Context, userID id.UserID) (int, error)
	CountEventsAttended(ctx context.Context, userID id.UserID) (int, error)
}

// Service grants awards whose criteria a user meets.
type Service struct {
	awards      Store
	activity    ActivitySource
	enrollments directory.EnrollmentReader
	outbox      outbox.Appender
	tx          tx.Runner

	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Deps groups the collaborators New requires.
type Deps struct {
	Awards      Store
	Activity    ActivitySource
	Enrollments directory.EnrollmentReader
	Outbox      outbox.Appender
	Tx          tx.Runner
}

func New(deps Deps, opts ...Option) *Service {
	s := &Service{
		awards:      deps.Awards,
		activity:    deps.Activity,
		enrollments: deps.Enrollments,
		outbox:      deps.Outbox,
		tx:          deps.Tx,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAwardInput describes a new award template.
type CreateAwardInput struct {
	Name        string
	Description string
	Criteria    award.Criteria
	ImageURL    string
}

// CreateAward validates the criteria and stores a new template.
func (s *Service) CreateAward(ctx context.Context, in CreateAwardInput) (*award.Award, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "award name is required")
	}
	if err := in.Criteria.Validate(); err != nil {
		return nil, err
	}
	a := &award.Award{
		ID:          id.AwardID(uuid.New()),
		Name:        name,
		Description: in.Description,
		Criteria:    in.Criteria,
		ImageURL:    in.ImageURL,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.awards.Create(ctx, a); err != nil {
		return nil, dErrors.Storage(err, "failed to create award")
	}
	s.logger.InfoContext(ctx, "award created",
		"request_id", requestcontext.RequestID(ctx),
		"award_id", a.ID.String(),
		"metric", string(a.Criteria.Metric),
		"threshold", a.Criteria.Threshold,
	)
	return a, nil
}

// UpdateAwardInput replaces an award's name, description, criteria and
// image. Users who already hold the award keep it.
type UpdateAwardInput struct {
	Name        string
	Description string
	Criteria    award.Criteria
	ImageURL    string
}

func (s *Service) UpdateAward(ctx context.Context, awardID id.AwardID, in UpdateAwardInput) (*award.Award, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "award name is required")
	}
	if err := in.Criteria.Validate(); err != nil {
		return nil, err
	}

	var updated *award.Award
	err := s.tx.RunInTx(tx.WithLockKey(ctx, awardLockKey(awardID)), func(ctx context.Context) error {
		cur, err := s.awards.FindByID(ctx, awardID)
		if err != nil {
			return err
		}
		next := *cur
		next.Name = name
		next.Description = in.Description
		next.Criteria = in.Criteria
		next.ImageURL = in.ImageURL
		if err := s.awards.Update(ctx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, awardNotFoundOr(err, "failed to update award")
	}
	s.logger.InfoContext(ctx, "award updated",
		"request_id", requestcontext.RequestID(ctx),
		"award_id", awardID.String(),
		"metric", string(updated.Criteria.Metric),
		"threshold", updated.Criteria.Threshold,
	)
	return updated, nil
}

// DeleteAward removes an award template. An award that has been granted is
// kept and the call fails with CodeConflict.
func (s *Service) DeleteAward(ctx context.Context, awardID id.AwardID) error {
	err := s.tx.RunInTx(tx.WithLockKey(ctx, awardLockKey(awardID)), func(ctx context.Context) error {
		if _, err := s.awards.FindByID(ctx, awardID); err != nil {
			return err
		}
		held, err := s.awards.CountGrants(ctx, awardID)
		if err != nil {
			return err
		}
		if held > 0 {
			return dErrors.New(dErrors.CodeConflict, "award has been granted and cannot be deleted")
		}
		return s.awards.Delete(ctx, awardID)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "award has been granted and cannot be deleted")
		}
		return awardNotFoundOr(err, "failed to delete award")
	}
	s.logger.InfoContext(ctx, "award deleted",
		"request_id", requestcontext.RequestID(ctx),
		"award_id", awardID.String(),
	)
	return nil
}

func awardLockKey(awardID id.AwardID) string {
	return "award:" + awardID.String()
}

func awardNotFoundOr(err error, storage string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "award not found")
	}
	return dErrors.Storage(err, storage)
}

func (s *Service) ListAwards(ctx context.Context) ([]*award.Award, error) {
	out, err := s.awards.List(ctx)
	if err != nil {
		return nil, dErrors.Storage(err, "failed to list awards")
	}
	return out, nil
}

func (s *Service) ListUserAwards(ctx context.Context, userID id.UserID) ([]award.Granted, error) {
	out, err := s.awards.ListForUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Storage(err, "failed to list user awards")
	}
	return out, nil
}

// Metrics gathers the counters criteria are evaluated against.
func (s *Service) Metrics(ctx context.Context, userID id.UserID) (award.Metrics, error) {
	var (
		ms  award.Metrics
		err error
	)
	if ms.Checkins, err = s.activity.CountForUser(ctx, userID); err != nil {
		return ms, dErrors.Storage(err, "failed to count checkins")
	}
	if ms.EventsAttended, err = s.activity.CountEventsAttended(ctx, userID); err != nil {
		return ms, dErrors.Storage(err, "failed to count attended events")
	}
	if ms.ApprovedEnrollments, err = s.enrollments.CountApprovedByUser(ctx, userID); err != nil {
		return ms, dErrors.Storage(err, "failed to count approved enrollments")
	}
	return ms, nil
}

// EvaluateAndGrant grants every award the user qualifies for and does not
// hold yet. It returns only the grants made by this call, so concurrent
// evaluations for one user never report the same award twice.
func (s *Service) EvaluateAndGrant(ctx context.Context, userID id.UserID) (granted []award.UserAward, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "award.EvaluateAndGrant")
	span.SetAttributes(attribute.String("user_id", userID.String()))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.SetAttributes(attribute.Int("granted", len(granted)))
		span.End()
		s.metrics.ObserveEvaluation(time.Since(start))
	}()

	candidates, err := s.awards.ListNotGranted(ctx, userID)
	if err != nil {
		return nil, dErrors.Storage(err, "failed to list candidate awards")
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	ms, err := s.Metrics(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	for _, a := range candidates {
		if !a.Criteria.Satisfied(ms) {
			continue
		}
		g := award.UserAward{UserID: userID, AwardID: a.ID, AwardedAt: now}
		ok, err := s.grant(ctx, g)
		if err != nil {
			return granted, err
		}
		if !ok {
			continue
		}
		granted = append(granted, g)
		s.metrics.IncGranted(sourceEvaluation)
		s.logger.InfoContext(ctx, "award granted",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"award_id", a.ID.String(),
			"metric", string(a.Criteria.Metric),
			"value", ms.Value(a.Criteria.Metric),
		)
	}
	return granted, nil
}

// Grant gives an award to a user regardless of criteria.
func (s *Service) Grant(ctx context.Context, userID id.UserID, awardID id.AwardID) (*award.UserAward, error) {
	if _, err := s.awards.FindByID(ctx, awardID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "award not found")
		}
		return nil, dErrors.Storage(err, "failed to load award")
	}
	g := award.UserAward{UserID: userID, AwardID: awardID, AwardedAt: requestcontext.Now(ctx)}
	ok, err := s.grant(ctx, g)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeConflict, "user already holds the award")
	}
	s.metrics.IncGranted(sourceManual)
	s.logger.InfoContext(ctx, "award granted manually",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID.String(),
		"award_id", awardID.String(),
	)
	return &g, nil
}

// awardEvent is the outbox payload for award.granted.
type awardEvent struct {
	UserID    string    `json:"user_id"`
	AwardID   string    `json:"award_id"`
	AwardedAt time.Time `json:"awarded_at"`
}

// grant inserts g and its outbox entry in one unit of work.
func (s *Service) grant(ctx context.Context, g award.UserAward) (bool, error) {
	var inserted bool
	lockKey := "award:" + g.UserID.String() + ":" + g.AwardID.String()
	err := s.tx.RunInTx(tx.WithLockKey(ctx, lockKey), func(ctx context.Context) error {
		ok, err := s.awards.GrantIfAbsent(ctx, g)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeNotFound, "award not found")
			}
			return dErrors.Storage(err, "failed to grant award")
		}
		if !ok {
			return nil
		}
		entry, err := outbox.NewEntry(outbox.AggregateUser, g.UserID.String(), outbox.EventAwardGranted, awardEvent{
			UserID:    g.UserID.String(),
			AwardID:   g.AwardID.String(),
			AwardedAt: g.AwardedAt,
		}, g.AwardedAt)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode award event")
		}
		if err := s.outbox.Append(ctx, entry); err != nil {
			return dErrors.Storage(err, "failed to record award event")
		}
		inserted = true
		return nil
	})
	return inserted, err
}
