// Package models holds leaderboard and attendance statistics read models.
package models

import (
	"time"

	id "badgehub/pkg/domain"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query selects a check-in leaderboard.
type Query struct {
	Limit int
	// PunctualOnly counts only checkins made before the event started.
	PunctualOnly bool
}

// Normalize applies the default limit and the cap.
func (q Query) Normalize() Query {
	q.Limit = NormalizeLimit(q.Limit)
	return q
}

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Entry is one row of a check-in leaderboard. Ties on Count are broken by
// FirstBadgeAt, then by UserID.
type Entry struct {
	Rank         int
	UserID       id.UserID
	Name         string
	Count        int
	FirstBadgeAt time.Time
}

// AwardEntry is one row of the award leaderboard. Ties on Count are broken by
// FirstAwardAt, then by UserID.
type AwardEntry struct {
	Rank         int
	UserID       id.UserID
	Name         string
	Count        int
	FirstAwardAt time.Time
}

// DayCount is the number of checkins on one UTC day.
type DayCount struct {
	Day   string
	Count int
}

// EventStats summarises attendance for one event.
type EventStats struct {
	EventID             id.EventID
	ApprovedEnrollments int
	UniqueAttendees     int
	TotalCheckins       int
	// AttendanceRate is UniqueAttendees over ApprovedEnrollments as a
	// percentage rounded to two decimals.
	AttendanceRate float64
	Daily          []DayCount
}

// DayFormat is the layout of DayCount.Day.
const DayFormat = "2006-01-02"
