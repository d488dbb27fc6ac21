// Package service admits or rejects badge scans at event entry.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"badgehub/internal/award"
	"badgehub/internal/badge/code"
	badgeModels "badgehub/internal/badge/models"
	"badgehub/internal/checkin/metrics"
	"badgehub/internal/checkin/models"
	"badgehub/internal/credential"
	"badgehub/internal/directory"
	dirModels "badgehub/internal/directory/models"
	"badgehub/internal/outbox"
	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
	"badgehub/pkg/platform/sentinel"
	"badgehub/pkg/platform/tx"
	"badgehub/pkg/requestcontext"
)

const (
	defaultSuppressionWindow = 5 * time.Minute
	outcomeAdmitted          = "admitted"
)

var tracer = otel.Tracer("badgehub/checkin")

// BadgeReader resolves badges. LockByID must hold the badge row until the
// surrounding transaction ends.
type BadgeReader interface {
	FindByEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) (*badgeModels.Badge, error)
	FindByCode(ctx context.Context, code string) (*badgeModels.Badge, error)
	LockByID(ctx context.Context, badgeID id.BadgeID) (*badgeModels.Badge, error)
}

// Store persists checkins. LastForBadge returns sentinel.ErrNotFound when the
// badge has none.
type Store interface {
	Insert(ctx context.Context, c *models.Checkin) error
	LastForBadge(ctx context.Context, badgeID id.BadgeID) (*models.Checkin, error)
	ListForEvent(ctx context.Context, eventID id.EventID, page models.Page) ([]*models.Checkin, error)
	ListForUser(ctx context.Context, userID id.UserID, page models.Page) ([]*models.Checkin, error)
}

// AwardEvaluator re-evaluates a user's awards after an admission.
type AwardEvaluator interface {
	EvaluateAndGrant(ctx context.Context, userID id.UserID) ([]award.UserAward, error)
}

// Request is one scan presented at the door.
type Request struct {
	Credential string
	Kind       credential.Kind
	EventID    id.EventID
	Location   string
}

// Service runs the admission state machine.
type Service struct {
	badges      BadgeReader
	checkins    Store
	enrollments directory.EnrollmentReader
	events      directory.EventReader
	outbox      outbox.Appender
	tx          tx.Runner
	awards      AwardEvaluator

	window      time.Duration
	opensBefore time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAwardEvaluator enables award evaluation after each admission.
func WithAwardEvaluator(a AwardEvaluator) Option {
	return func(s *Service) { s.awards = a }
}

// WithSuppressionWindow sets the minimum spacing between two admissions of
// the same badge.
func WithSuppressionWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithOpensBefore admits holders this long before the event start.
func WithOpensBefore(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.opensBefore = d
		}
	}
}

// Deps groups the collaborators New requires.
type Deps struct {
	Badges      BadgeReader
	Checkins    Store
	Enrollments directory.EnrollmentReader
	Events      directory.EventReader
	Outbox      outbox.Appender
	Tx          tx.Runner
}

func New(deps Deps, opts ...Option) *Service {
	s := &Service{
		badges:      deps.Badges,
		checkins:    deps.Checkins,
		enrollments: deps.Enrollments,
		events:      deps.Events,
		outbox:      deps.Outbox,
		tx:          deps.Tx,
		window:      defaultSuppressionWindow,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// admission is the state carried through one evaluation.
type admission struct {
	badge    *badgeModels.Badge
	cred     *credential.Credential
	eventID  id.EventID
	location string
	now      time.Time
}

// Checkin verifies a scanned credential and records the admission.
//
// Rejections are evaluated in a fixed order and the first failure wins:
// credential decoding, badge resolution, identity match, badge expiry,
// enrollment approval, event window, duplicate suppression.
func (s *Service) Checkin(ctx context.Context, req Request) (checkin *models.Checkin, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "checkin.Checkin", trace.WithAttributes(
		attribute.String("credential_kind", req.Kind.String()),
	))
	defer func() { s.finish(ctx, span, start, err) }()

	cred, err := credential.Decode(req.Credential, req.Kind)
	if err != nil {
		return nil, err
	}

	var b *badgeModels.Badge
	if cred.Kind == credential.KindPerson {
		b, err = s.badges.FindByCode(ctx, cred.BadgeCode)
	} else {
		b, err = s.badges.FindByEnrollment(ctx, cred.EnrollmentID)
	}
	if err != nil {
		return nil, credentialNotFoundOr(err)
	}
	span.SetAttributes(attribute.String("badge_id", b.ID.String()))

	return s.admit(ctx, admission{
		badge:    b,
		cred:     &cred,
		eventID:  req.EventID,
		location: req.Location,
		now:      requestcontext.Now(ctx),
	})
}

// CheckinByCode admits the holder of a printed badge code entered by hand.
// There is no payload, so the identity comparison is skipped.
func (s *Service) CheckinByCode(ctx context.Context, badgeCode string, eventID id.EventID, location string) (checkin *models.Checkin, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "checkin.CheckinByCode")
	defer func() { s.finish(ctx, span, start, err) }()

	b, err := s.badges.FindByCode(ctx, code.Normalize(badgeCode))
	if err != nil {
		return nil, credentialNotFoundOr(err)
	}
	span.SetAttributes(attribute.String("badge_id", b.ID.String()))

	return s.admit(ctx, admission{
		badge:    b,
		eventID:  eventID,
		location: location,
		now:      requestcontext.Now(ctx),
	})
}

// admit runs the locked part of admission and, after commit, award
// evaluation.
func (s *Service) admit(ctx context.Context, a admission) (*models.Checkin, error) {
	var admitted *models.Checkin
	err := s.tx.RunInTx(tx.WithLockKey(ctx, a.badge.ID.String()), func(ctx context.Context) error {
		locked, err := s.badges.LockByID(ctx, a.badge.ID)
		if err != nil {
			return credentialNotFoundOr(err)
		}
		a.badge = locked

		event, err := s.evaluate(ctx, a)
		if err != nil {
			return err
		}

		last, err := s.checkins.LastForBadge(ctx, locked.ID)
		switch {
		case err == nil:
			if a.now.Sub(last.CheckinTime) < s.window {
				return models.NewDuplicateError(last)
			}
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Storage(err, "failed to load last checkin")
		}

		location := a.location
		if location == "" {
			location = event.Location
		}
		c := &models.Checkin{
			ID:          id.CheckinID(uuid.New()),
			BadgeID:     locked.ID,
			UserID:      locked.UserID,
			EventID:     event.ID,
			CheckinTime: a.now,
			Location:    location,
			Scanner:     requestcontext.Scanner(ctx),
		}
		if op, ok := requestcontext.OperatorFrom(ctx); ok {
			c.Operator = op.Subject
		}
		if err := s.checkins.Insert(ctx, c); err != nil {
			return dErrors.Storage(err, "failed to store checkin")
		}
		if err := s.appendAdmitted(ctx, c, locked); err != nil {
			return dErrors.Storage(err, "failed to record checkin event")
		}
		admitted = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "checkin admitted",
		"request_id", requestcontext.RequestID(ctx),
		"checkin_id", admitted.ID.String(),
		"badge_id", admitted.BadgeID.String(),
		"user_id", admitted.UserID.String(),
		"event_id", admitted.EventID.String(),
	)
	s.evaluateAwards(ctx, admitted.UserID)
	return admitted, nil
}

// evaluate runs the checks between badge resolution and duplicate
// suppression: identity, expiry, enrollment and the event window. It
// returns the event the admission is for.
func (s *Service) evaluate(ctx context.Context, a admission) (*dirModels.Event, error) {
	eventID, err := s.verifyIdentity(a)
	if err != nil {
		return nil, err
	}
	if a.badge.Expired(a.now) {
		return nil, dErrors.New(dErrors.CodeCredentialExpired, "badge has expired")
	}
	event, err := s.verifyEnrollment(ctx, a.badge, eventID)
	if err != nil {
		return nil, err
	}
	if event.NotStarted(a.now, s.opensBefore) {
		return nil, dErrors.New(dErrors.CodeEventNotStarted, "event has not started")
	}
	if event.Ended(a.now) {
		return nil, dErrors.New(dErrors.CodeEventEnded, "event has ended")
	}
	return event, nil
}

// verifyIdentity compares the presented credential with the locked record
// and resolves the event the admission is for.
func (s *Service) verifyIdentity(a admission) (id.EventID, error) {
	b := a.badge
	if a.cred != nil && !b.Matches(*a.cred) {
		return id.EventID{}, dErrors.New(dErrors.CodeCredentialMismatch, "credential does not match the badge on record")
	}
	if b.Scope == badgeModels.ScopeEnrollment {
		if !a.eventID.IsNil() && a.eventID != b.EventID {
			return id.EventID{}, dErrors.New(dErrors.CodeCredentialMismatch, "badge belongs to a different event")
		}
		return b.EventID, nil
	}
	if a.eventID.IsNil() {
		if a.cred != nil {
			return id.EventID{}, dErrors.New(dErrors.CodeIncompleteCredential, "event id is required for person badges")
		}
		return id.EventID{}, dErrors.New(dErrors.CodeInvalidInput, "event id is required for person badges")
	}
	return a.eventID, nil
}

// verifyEnrollment requires an approved enrollment linking the badge holder
// to the event and returns the event.
func (s *Service) verifyEnrollment(ctx context.Context, b *badgeModels.Badge, eventID id.EventID) (*dirModels.Event, error) {
	var (
		enrollment *dirModels.Enrollment
		err        error
	)
	if b.Scope == badgeModels.ScopeEnrollment {
		enrollment, err = s.enrollments.FindByID(ctx, b.EnrollmentID)
	} else {
		enrollment, err = s.enrollments.FindByUserAndEvent(ctx, b.UserID, eventID)
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeEnrollmentNotApproved, "holder is not enrolled in the event")
	case err != nil:
		return nil, dErrors.Storage(err, "failed to load enrollment")
	case !enrollment.IsApproved():
		return nil, dErrors.New(dErrors.CodeEnrollmentNotApproved, "enrollment is not approved")
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Storage(err, "failed to load event")
	}
	return event, nil
}

func (s *Service) evaluateAwards(ctx context.Context, userID id.UserID) {
	if s.awards == nil {
		return
	}
	granted, err := s.awards.EvaluateAndGrant(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "award evaluation after checkin failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		return
	}
	if len(granted) > 0 {
		s.logger.InfoContext(ctx, "awards granted after checkin",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"count", len(granted),
		)
	}
}

// ListForEvent returns an event's checkins in checkin time order.
func (s *Service) ListForEvent(ctx context.Context, eventID id.EventID, page models.Page) ([]*models.Checkin, error) {
	out, err := s.checkins.ListForEvent(ctx, eventID, page.Normalize())
	if err != nil {
		return nil, dErrors.Storage(err, "failed to list event checkins")
	}
	return out, nil
}

// ListForUser returns a user's checkins in checkin time order.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID, page models.Page) ([]*models.Checkin, error) {
	out, err := s.checkins.ListForUser(ctx, userID, page.Normalize())
	if err != nil {
		return nil, dErrors.Storage(err, "failed to list user checkins")
	}
	return out, nil
}

// checkinEvent is the outbox payload for checkin.admitted.
type checkinEvent struct {
	CheckinID   string    `json:"checkin_id"`
	BadgeID     string    `json:"badge_id"`
	BadgeCode   string    `json:"badge_code"`
	Scope       string    `json:"scope"`
	UserID      string    `json:"user_id"`
	EventID     string    `json:"event_id"`
	CheckinTime time.Time `json:"checkin_time"`
	Location    string    `json:"location"`
	Scanner     string    `json:"scanner,omitempty"`
	Operator    string    `json:"operator,omitempty"`
}

func (s *Service) appendAdmitted(ctx context.Context, c *models.Checkin, b *badgeModels.Badge) error {
	entry, err := outbox.NewEntry(outbox.AggregateCheckin, c.ID.String(), outbox.EventCheckinAdmitted, checkinEvent{
		CheckinID:   c.ID.String(),
		BadgeID:     b.ID.String(),
		BadgeCode:   b.Code,
		Scope:       string(b.Scope),
		UserID:      c.UserID.String(),
		EventID:     c.EventID.String(),
		CheckinTime: c.CheckinTime,
		Location:    c.Location,
		Scanner:     c.Scanner,
		Operator:    c.Operator,
	}, c.CheckinTime)
	if err != nil {
		return err
	}
	return s.outbox.Append(ctx, entry)
}

func (s *Service) finish(ctx context.Context, span trace.Span, start time.Time, err error) {
	outcome := outcomeAdmitted
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.logger.InfoContext(ctx, "checkin rejected",
			"request_id", requestcontext.RequestID(ctx),
			"reason", outcome,
		)
	}
	span.End()
	s.metrics.IncOutcome(outcome)
	s.metrics.ObserveDuration(time.Since(start))
}

func credentialNotFoundOr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeCredentialNotFound, "no badge matches the credential")
	}
	return dErrors.Storage(err, "failed to load badge")
}
