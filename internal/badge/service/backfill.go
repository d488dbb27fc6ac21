package service

import (
	"context"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"badgehub/internal/badge/models"
	dErrors "badgehub/pkg/domain-errors"
)

// CountMissingPersonBadges reports how many users a backfill would issue to.
func (s *Service) CountMissingPersonBadges(ctx context.Context) (int, error) {
	n, err := s.users.CountWithoutPersonBadge(ctx)
	if err != nil {
		return 0, dErrors.Storage(err, "failed to count users without person badge")
	}
	return n, nil
}

// BackfillPersonBadges issues a person badge to every user lacking one.
// Individual failures are counted and logged; only a failure to list users
// or a cancelled context aborts the run.
func (s *Service) BackfillPersonBadges(ctx context.Context) (models.BackfillResult, error) {
	users, err := s.users.ListWithoutPersonBadge(ctx, 0)
	if err != nil {
		return models.BackfillResult{}, dErrors.Storage(err, "failed to list users without person badge")
	}

	var issued, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.backfillConcurrency)
	for _, u := range users {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, err := s.IssuePersonBadge(ctx, u.ID); err != nil {
				failed.Add(1)
				s.logger.WarnContext(ctx, "person badge backfill failed",
					"user_id", u.ID.String(),
					"reason", string(dErrors.CodeOf(err)),
					"error", err,
				)
				return nil
			}
			issued.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result := models.BackfillResult{
		Scanned: len(users),
		Issued:  int(issued.Load()),
		Failed:  int(failed.Load()),
	}
	s.metrics.AddBackfillFailures(result.Failed)
	s.logger.InfoContext(ctx, "person badge backfill finished",
		"scanned", result.Scanned,
		"issued", result.Issued,
		"failed", result.Failed,
	)
	if err := ctx.Err(); err != nil {
		return result, dErrors.Wrap(err, dErrors.CodeTimeout, "backfill interrupted")
	}
	return result, nil
}

// ScheduleBackfill registers the backfill on a cron schedule. The returned
// scheduler is not started.
func (s *Service) ScheduleBackfill(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := s.BackfillPersonBadges(ctx); err != nil {
			s.logger.ErrorContext(ctx, "scheduled person badge backfill failed", "error", err)
		}
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid backfill schedule")
	}
	return c, nil
}
