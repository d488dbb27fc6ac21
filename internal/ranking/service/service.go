// Package service serves leaderboards and attendance statistics.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"

	"badgehub/internal/directory"
	"badgehub/internal/ranking/metrics"
	"badgehub/internal/ranking/models"
	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
	"badgehub/pkg/platform/sentinel"
	"badgehub/pkg/requestcontext"
)

// Store runs the aggregating queries. Each leaderboard comes back ordered and
// truncated to limit; Rank is assigned by the service.
type Store interface {
	CheckinLeaders(ctx context.Context, limit int) ([]models.Entry, error)
	PunctualLeaders(ctx context.Context, limit int) ([]models.Entry, error)
	AwardLeaders(ctx context.Context, limit int) ([]models.AwardEntry, error)
	EventStats(ctx context.Context, eventID id.EventID) (*models.EventStats, error)
}

// Cache holds recently computed results.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}

// Service is read-only.
type Service struct {
	store  Store
	events directory.EventReader
	cache  Cache

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

// WithCache enables result caching.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func New(store Store, events directory.EventReader, opts ...Option) *Service {
	s := &Service{
		store:  store,
		events: events,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rank returns the check-in leaderboard. Repeated calls over unchanged data
// return the same order, ties included.
func (s *Service) Rank(ctx context.Context, q models.Query) ([]models.Entry, error) {
	q = q.Normalize()
	kind := "checkins"
	if q.PunctualOnly {
		kind = "punctual"
	}
	key := kind + ":" + strconv.Itoa(q.Limit)

	var out []models.Entry
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	var err error
	if q.PunctualOnly {
		out, err = s.store.PunctualLeaders(ctx, q.Limit)
	} else {
		out, err = s.store.CheckinLeaders(ctx, q.Limit)
	}
	if err != nil {
		return nil, dErrors.Storage(err, "failed to compute ranking")
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	s.remember(ctx, key, out)
	return out, nil
}

// AwardRanking orders users by the number of awards they hold.
func (s *Service) AwardRanking(ctx context.Context, limit int) ([]models.AwardEntry, error) {
	limit = models.NormalizeLimit(limit)
	key := "awards:" + strconv.Itoa(limit)

	var out []models.AwardEntry
	if s.cached(ctx, key, &out) {
		return out, nil
	}
	out, err := s.store.AwardLeaders(ctx, limit)
	if err != nil {
		return nil, dErrors.Storage(err, "failed to compute award ranking")
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	s.remember(ctx, key, out)
	return out, nil
}

// EventStats summarises attendance for an existing event.
func (s *Service) EventStats(ctx context.Context, eventID id.EventID) (*models.EventStats, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Storage(err, "failed to load event")
	}

	key := "stats:" + eventID.String()
	var cached models.EventStats
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}

	stats, err := s.store.EventStats(ctx, eventID)
	if err != nil {
		return nil, dErrors.Storage(err, "failed to compute event stats")
	}
	stats.AttendanceRate = AttendanceRate(stats.UniqueAttendees, stats.ApprovedEnrollments)
	s.remember(ctx, key, stats)
	return stats, nil
}

// AttendanceRate is attendees over approved as a percentage with two
// decimals. No approved enrollments yields zero.
func AttendanceRate(attendees, approved int) float64 {
	if approved <= 0 {
		return 0
	}
	return math.Round(float64(attendees)/float64(approved)*10000) / 100
}

// cached reports a hit. Cache failures are logged and treated as misses.
func (s *Service) cached(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Get(ctx, key, dst)
	switch {
	case err != nil:
		s.metrics.IncCacheLookup("error")
		s.logger.WarnContext(ctx, "ranking cache read failed",
			"request_id", requestcontext.RequestID(ctx),
			"key", key,
			"error", err,
		)
		return false
	case found:
		s.metrics.IncCacheLookup("hit")
		return true
	}
	s.metrics.IncCacheLookup("miss")
	return false
}

func (s *Service) remember(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.WarnContext(ctx, "ranking cache write failed",
			"request_id", requestcontext.RequestID(ctx),
			"key", key,
			"error", err,
		)
	}
}
