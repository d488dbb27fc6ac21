package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"badgehub/internal/badge/models"
	"badgehub/internal/credential"
	dirmodels "badgehub/internal/directory/models"
	"badgehub/internal/outbox"
	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
	"badgehub/pkg/platform/sentinel"
	"badgehub/pkg/platform/tx"
	"badgehub/pkg/requestcontext"

	"github.com/google/uuid"
)

// issueRequest describes the badge to mint once preconditions hold.
type issueRequest struct {
	scope      models.Scope
	user       *dirmodels.User
	enrollment *dirmodels.Enrollment
	validUntil *time.Time
	lockKey    string
}

// Issue returns the badge of an approved enrollment, minting it on first
// call. Repeated calls return the same badge unchanged.
func (s *Service) Issue(ctx context.Context, enrollmentID id.EnrollmentID) (badge *models.Badge, err error) {
	ctx, span := startSpan(ctx, "badge.Issue", attribute.String("enrollment_id", enrollmentID.String()))
	defer func() { endSpan(span, err) }()

	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, notFoundOr(err, dErrors.CodeNotFound, "enrollment not found", "failed to load enrollment")
	}
	if !enrollment.IsApproved() {
		return nil, dErrors.New(dErrors.CodeEnrollmentNotApproved, "enrollment is not approved")
	}

	existing, err := s.badges.FindByEnrollment(ctx, enrollmentID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Storage(err, "failed to load badge")
	}

	user, err := s.users.FindByID(ctx, enrollment.UserID)
	if err != nil {
		return nil, notFoundOr(err, dErrors.CodeNotFound, "user not found", "failed to load user")
	}
	event, err := s.events.FindByID(ctx, enrollment.EventID)
	if err != nil {
		return nil, notFoundOr(err, dErrors.CodeNotFound, "event not found", "failed to load event")
	}
	validUntil := event.EndDate.UTC()

	return s.issue(ctx, issueRequest{
		scope:      models.ScopeEnrollment,
		user:       user,
		enrollment: enrollment,
		validUntil: &validUntil,
		lockKey:    "enrollment:" + enrollmentID.String(),
	})
}

// IssuePersonBadge returns the user's event-independent badge, minting it
// on first call.
func (s *Service) IssuePersonBadge(ctx context.Context, userID id.UserID) (badge *models.Badge, err error) {
	ctx, span := startSpan(ctx, "badge.IssuePersonBadge", attribute.String("user_id", userID.String()))
	defer func() { endSpan(span, err) }()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, dErrors.CodeNotFound, "user not found", "failed to load user")
	}

	existing, err := s.badges.FindPersonBadge(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Storage(err, "failed to load badge")
	}

	return s.issue(ctx, issueRequest{
		scope:   models.ScopePerson,
		user:    user,
		lockKey: "person:" + userID.String(),
	})
}

// issue runs the bounded code-generation loop. The QR artifact is rendered
// before the insert and removed whenever the insert does not commit, so a
// committed badge always has its artifact and a failed one leaves none.
func (s *Service) issue(ctx context.Context, req issueRequest) (*models.Badge, error) {
	start := time.Now()
	now := issueTime(requestcontext.Now(ctx))

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		candidate := s.codes.Generate(req.user.Name)
		taken, err := s.badges.CodeExists(ctx, candidate)
		if err != nil {
			return nil, dErrors.Storage(err, "failed to check badge code")
		}
		if taken {
			s.metrics.IncCodeCollision()
			continue
		}

		b := &models.Badge{
			ID:         id.BadgeID(uuid.New()),
			Scope:      req.scope,
			UserID:     req.user.ID,
			Code:       candidate,
			IssuedAt:   now,
			CreatedAt:  now,
			ValidUntil: req.validUntil,
		}
		if req.enrollment != nil {
			b.EnrollmentID = req.enrollment.ID
			b.EventID = req.enrollment.EventID
		}

		b.Payload, err = credential.Encode(b.Credential())
		if err != nil {
			return nil, err
		}
		b.QRPath, err = s.artifacts.Render(ctx, artifactName(b.Code, now), b.Payload)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render badge QR code")
		}

		err = s.tx.RunInTx(tx.WithLockKey(ctx, req.lockKey), func(ctx context.Context) error {
			if err := s.badges.Insert(ctx, b); err != nil {
				return err
			}
			return s.appendEvent(ctx, b, outbox.EventBadgeIssued, now)
		})
		if err == nil {
			s.metrics.IncIssued(string(b.Scope))
			s.metrics.ObserveIssueDuration(time.Since(start))
			s.logger.InfoContext(ctx, "badge issued",
				"request_id", requestcontext.RequestID(ctx),
				"badge_id", b.ID.String(),
				"scope", string(b.Scope),
				"user_id", b.UserID.String(),
				"code", b.Code,
				"attempt", attempt,
			)
			return b, nil
		}

		s.discardArtifact(ctx, b.QRPath)
		switch {
		case errors.Is(err, models.ErrCodeTaken):
			s.metrics.IncCodeCollision()
			continue
		case errors.Is(err, models.ErrAlreadyIssued):
			return s.winner(ctx, req)
		default:
			return nil, dErrors.Storage(err, "failed to store badge")
		}
	}

	s.logger.ErrorContext(ctx, "badge code generation exhausted",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", req.user.ID.String(),
		"scope", string(req.scope),
		"attempts", s.maxAttempts,
	)
	return nil, dErrors.New(dErrors.CodeCodeGenerationExhausted, "could not generate a unique badge code")
}

// winner loads the badge a concurrent issuance committed first.
func (s *Service) winner(ctx context.Context, req issueRequest) (*models.Badge, error) {
	var (
		b   *models.Badge
		err error
	)
	if req.scope == models.ScopePerson {
		b, err = s.badges.FindPersonBadge(ctx, req.user.ID)
	} else {
		b, err = s.badges.FindByEnrollment(ctx, req.enrollment.ID)
	}
	if err != nil {
		return nil, dErrors.Storage(err, "failed to load concurrently issued badge")
	}
	return b, nil
}
