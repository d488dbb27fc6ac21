package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"badgehub/internal/award"
	badgeModels "badgehub/internal/badge/models"
	checkinModels "badgehub/internal/checkin/models"
	"badgehub/internal/directory"
	"badgehub/internal/ranking/models"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
)

// Sources are the in-memory stores the leaderboards aggregate over.
type Sources struct {
	Checkins    interface{ All() []checkinModels.Checkin }
	Badges      interface{ All() []*badgeModels.Badge }
	Grants      interface{ Grants() []award.UserAward }
	Users       directory.UserReader
	Events      directory.EventReader
	Enrollments directory.EnrollmentReader
}

// InMemory computes leaderboards from snapshots of the in-memory stores.
// It orders results exactly as the Postgres store does.
type InMemory struct {
	src Sources
}

func NewInMemory(src Sources) *InMemory {
	return &InMemory{src: src}
}

type tally struct {
	count int
	first time.Time
}

func (s *InMemory) CheckinLeaders(ctx context.Context, limit int) ([]models.Entry, error) {
	return s.checkinLeaders(ctx, limit, func(checkinModels.Checkin) (bool, error) { return true, nil })
}

// PunctualLeaders counts only checkins made before the event start.
func (s *InMemory) PunctualLeaders(ctx context.Context, limit int) ([]models.Entry, error) {
	starts := make(map[id.EventID]time.Time)
	return s.checkinLeaders(ctx, limit, func(c checkinModels.Checkin) (bool, error) {
		start, ok := starts[c.EventID]
		if !ok {
			event, err := s.src.Events.FindByID(ctx, c.EventID)
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return false, nil
			case err != nil:
				return false, fmt.Errorf("load event: %w", err)
			}
			start = event.StartDate
			starts[c.EventID] = start
		}
		return c.CheckinTime.Before(start), nil
	})
}

func (s *InMemory) checkinLeaders(ctx context.Context, limit int, keep func(checkinModels.Checkin) (bool, error)) ([]models.Entry, error) {
	counts := make(map[id.UserID]int)
	for _, c := range s.src.Checkins.All() {
		ok, err := keep(c)
		if err != nil {
			return nil, err
		}
		if ok {
			counts[c.UserID]++
		}
	}

	firstBadge := make(map[id.UserID]time.Time)
	for _, b := range s.src.Badges.All() {
		if first, ok := firstBadge[b.UserID]; !ok || b.CreatedAt.Before(first) {
			firstBadge[b.UserID] = b.CreatedAt
		}
	}

	tallies := make(map[id.UserID]tally, len(counts))
	for userID, n := range counts {
		tallies[userID] = tally{count: n, first: firstBadge[userID]}
	}
	top := leaders(tallies, limit)

	out := make([]models.Entry, 0, len(top))
	for _, userID := range top {
		name, err := s.name(ctx, userID)
		if err != nil {
			return nil, err
		}
		t := tallies[userID]
		out = append(out, models.Entry{UserID: userID, Name: name, Count: t.count, FirstBadgeAt: t.first})
	}
	return out, nil
}

func (s *InMemory) AwardLeaders(ctx context.Context, limit int) ([]models.AwardEntry, error) {
	tallies := make(map[id.UserID]tally)
	for _, g := range s.src.Grants.Grants() {
		t := tallies[g.UserID]
		if t.count == 0 || g.AwardedAt.Before(t.first) {
			t.first = g.AwardedAt
		}
		t.count++
		tallies[g.UserID] = t
	}
	top := leaders(tallies, limit)

	out := make([]models.AwardEntry, 0, len(top))
	for _, userID := range top {
		name, err := s.name(ctx, userID)
		if err != nil {
			return nil, err
		}
		t := tallies[userID]
		out = append(out, models.AwardEntry{UserID: userID, Name: name, Count: t.count, FirstAwardAt: t.first})
	}
	return out, nil
}

// EventStats returns raw counts for the event. AttendanceRate is left to the
// caller.
func (s *InMemory) EventStats(ctx context.Context, eventID id.EventID) (*models.EventStats, error) {
	approved, err := s.src.Enrollments.CountApprovedByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count approved enrollments: %w", err)
	}
	stats := &models.EventStats{EventID: eventID, ApprovedEnrollments: approved, Daily: []models.DayCount{}}
	attendees := make(map[id.UserID]struct{})
	days := make(map[string]int)
	for _, c := range s.src.Checkins.All() {
		if c.EventID != eventID {
			continue
		}
		stats.TotalCheckins++
		attendees[c.UserID] = struct{}{}
		days[c.CheckinTime.UTC().Format(models.DayFormat)]++
	}
	stats.UniqueAttendees = len(attendees)
	for day, n := range days {
		stats.Daily = append(stats.Daily, models.DayCount{Day: day, Count: n})
	}
	slices.SortFunc(stats.Daily, func(a, b models.DayCount) int { return strings.Compare(a.Day, b.Day) })
	return stats, nil
}

func (s *InMemory) name(ctx context.Context, userID id.UserID) (string, error) {
	u, err := s.src.Users.FindByID(ctx, userID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("load user: %w", err)
	}
	return u.Name, nil
}

// leaders orders users by count desc, first time asc (unknown last), user id
// asc and keeps the first limit.
func leaders(tallies map[id.UserID]tally, limit int) []id.UserID {
	users := make([]id.UserID, 0, len(tallies))
	for userID := range tallies {
		users = append(users, userID)
	}
	slices.SortFunc(users, func(a, b id.UserID) int {
		ta, tb := tallies[a], tallies[b]
		if c := cmp.Compare(tb.count, ta.count); c != 0 {
			return c
		}
		if c := compareFirst(ta.first, tb.first); c != 0 {
			return c
		}
		return strings.Compare(a.String(), b.String())
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users
}

func compareFirst(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return a.Compare(b)
}
