package models

import (
	"time"

	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
)

// Checkin records one admission. Checkins are never updated.
type Checkin struct {
	ID          id.CheckinID
	BadgeID     id.BadgeID
	UserID      id.UserID
	EventID     id.EventID
	CheckinTime time.Time
	Location    string
	Scanner     string
	Operator    string
}

// DuplicateError rejects a scan inside the suppression window and carries
// the admission that opened it.
type DuplicateError struct {
	Prior *Checkin
	err   error
}

func NewDuplicateError(prior *Checkin) *DuplicateError {
	return &DuplicateError{
		Prior: prior,
		err:   dErrors.New(dErrors.CodeDuplicateCheckin, "badge was already checked in recently"),
	}
}

func (e *DuplicateError) Error() string { return e.err.Error() }

func (e *DuplicateError) Unwrap() error { return e.err }

// Page bounds list reads.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Normalize applies the default limit and clamps to the maximum.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
