package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"badgehub/internal/badge/code"
	"badgehub/internal/badge/models"
	"badgehub/internal/credential"
	"badgehub/internal/outbox"
	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
	"badgehub/pkg/platform/tx"
	"badgehub/pkg/requestcontext"
)

func (s *Service) Get(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	b, err := s.badges.FindByID(ctx, badgeID)
	if err != nil {
		return nil, notFoundOr(err, dErrors.CodeNotFound, "badge not found", "failed to load badge")
	}
	return b, nil
}

// GetByCode looks a badge up by its printed code, ignoring case and
// surrounding whitespace.
func (s *Service) GetByCode(ctx context.Context, badgeCode string) (*models.Badge, error) {
	normalized := code.Normalize(badgeCode)
	if normalized == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "badge code is required")
	}
	b, err := s.badges.FindByCode(ctx, normalized)
	if err != nil {
		return nil, notFoundOr(err, dErrors.CodeNotFound, "badge not found", "failed to load badge")
	}
	return b, nil
}

func (s *Service) GetForEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Badge, error) {
	b, err := s.badges.FindByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, notFoundOr(err, dErrors.CodeNotFound, "badge not found", "failed to load badge")
	}
	return b, nil
}

func (s *Service) GetPersonBadge(ctx context.Context, userID id.UserID) (*models.Badge, error) {
	b, err := s.badges.FindPersonBadge(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, dErrors.CodeNotFound, "badge not found", "failed to load badge")
	}
	return b, nil
}

// Regenerate re-issues the credential of an existing badge. The code is
// kept; the payload, issue instant and QR artifact are replaced, so payloads
// scanned from the previous artifact stop matching the record.
func (s *Service) Regenerate(ctx context.Context, badgeID id.BadgeID) (badge *models.Badge, err error) {
	ctx, span := startSpan(ctx, "badge.Regenerate", attribute.String("badge_id", badgeID.String()))
	defer func() { endSpan(span, err) }()

	current, err := s.Get(ctx, badgeID)
	if err != nil {
		return nil, err
	}

	now := issueTime(requestcontext.Now(ctx))
	if !now.After(current.IssuedAt) {
		now = current.IssuedAt.Add(time.Microsecond)
	}

	next := current.Clone()
	next.IssuedAt = now
	next.Payload, err = credential.Encode(next.Credential())
	if err != nil {
		return nil, err
	}
	next.QRPath, err = s.artifacts.Render(ctx, artifactName(next.Code, now), next.Payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render badge QR code")
	}

	err = s.tx.RunInTx(tx.WithLockKey(ctx, badgeID.String()), func(ctx context.Context) error {
		if err := s.badges.UpdateCredential(ctx, badgeID, next.Payload, next.IssuedAt, next.QRPath); err != nil {
			return err
		}
		return s.appendEvent(ctx, next, outbox.EventBadgeRegenerated, now)
	})
	if err != nil {
		s.discardArtifact(ctx, next.QRPath)
		return nil, notFoundOr(err, dErrors.CodeNotFound, "badge not found", "failed to regenerate badge")
	}
	if current.QRPath != "" && current.QRPath != next.QRPath {
		s.discardArtifact(ctx, current.QRPath)
	}

	s.logger.InfoContext(ctx, "badge regenerated",
		"request_id", requestcontext.RequestID(ctx),
		"badge_id", badgeID.String(),
		"code", next.Code,
	)
	return next, nil
}

// Delete removes a badge. A badge with checkins is only removed when cascade
// is set, in which case its checkins go in the same transaction.
//
// The badge row is locked before checkins are counted so a concurrent
// admission either commits first and is counted or waits for the delete.
func (s *Service) Delete(ctx context.Context, badgeID id.BadgeID, cascade bool) error {
	now := requestcontext.Now(ctx)

	var (
		b       *models.Badge
		removed int
	)
	err := s.tx.RunInTx(tx.WithLockKey(ctx, badgeID.String()), func(ctx context.Context) error {
		locked, err := s.badges.LockByID(ctx, badgeID)
		if err != nil {
			return err
		}
		b = locked

		count, err := s.checkins.CountForBadge(ctx, badgeID)
		if err != nil {
			return err
		}
		if count > 0 {
			if !cascade {
				return dErrors.New(dErrors.CodeConflict, "badge has checkins; delete with cascade to remove them")
			}
			if removed, err = s.checkins.DeleteForBadge(ctx, badgeID); err != nil {
				return err
			}
		}
		if err := s.badges.Delete(ctx, badgeID); err != nil {
			return err
		}
		return s.appendEvent(ctx, b, outbox.EventBadgeDeleted, now)
	})
	if err != nil {
		return notFoundOr(err, dErrors.CodeNotFound, "badge not found", "failed to delete badge")
	}
	if b.QRPath != "" {
		s.discardArtifact(ctx, b.QRPath)
	}

	s.logger.InfoContext(ctx, "badge deleted",
		"request_id", requestcontext.RequestID(ctx),
		"badge_id", badgeID.String(),
		"checkins_removed", removed,
	)
	return nil
}
