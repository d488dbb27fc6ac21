package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"badgehub/internal/badge/code"
	badgeModels "badgehub/internal/badge/models"
	"badgehub/internal/checkin/models"
	"badgehub/internal/credential"
	dirModels "badgehub/internal/directory/models"
	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
	"badgehub/pkg/platform/sentinel"
	"badgehub/pkg/requestcontext"
)

// Verification is the outcome of a scan that would be admitted.
// LastCheckin is nil when the badge has never been admitted.
type Verification struct {
	Badge       *badgeModels.Badge
	Event       *dirModels.Event
	LastCheckin *models.Checkin
}

// Verify runs every admission check except duplicate suppression and
// records nothing. It fails with the same codes Checkin would.
func (s *Service) Verify(ctx context.Context, req Request) (*Verification, error) {
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
	return s.verify(ctx, "checkin.Verify", admission{
		badge:   b,
		cred:    &cred,
		eventID: req.EventID,
		now:     requestcontext.Now(ctx),
	})
}

// VerifyByCode is Verify for a printed badge code.
func (s *Service) VerifyByCode(ctx context.Context, badgeCode string, eventID id.EventID) (*Verification, error) {
	b, err := s.badges.FindByCode(ctx, code.Normalize(badgeCode))
	if err != nil {
		return nil, credentialNotFoundOr(err)
	}
	return s.verify(ctx, "checkin.VerifyByCode", admission{
		badge:   b,
		eventID: eventID,
		now:     requestcontext.Now(ctx),
	})
}

func (s *Service) verify(ctx context.Context, name string, a admission) (v *Verification, err error) {
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(attribute.String("badge_id", a.badge.ID.String()))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
	}()

	event, err := s.evaluate(ctx, a)
	if err != nil {
		s.logger.InfoContext(ctx, "badge verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"badge_id", a.badge.ID.String(),
			"reason", string(dErrors.CodeOf(err)),
		)
		return nil, err
	}

	v = &Verification{Badge: a.badge, Event: event}
	last, err := s.checkins.LastForBadge(ctx, a.badge.ID)
	switch {
	case err == nil:
		v.LastCheckin = last
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Storage(err, "failed to load last checkin")
	}
	return v, nil
}
