// Package models holds the collaborator records badgehub reads but does not
// own: users, events and enrollments.
package models

import (
	"time"

	id "badgehub/pkg/domain"
)

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "PENDING"
	EnrollmentApproved  EnrollmentStatus = "APPROVED"
	EnrollmentCancelled EnrollmentStatus = "CANCELLED"
)

// IsValid reports whether s is a known status.
func (s EnrollmentStatus) IsValid() bool {
	switch s {
	case EnrollmentPending, EnrollmentApproved, EnrollmentCancelled:
		return true
	}
	return false
}

// Enrollment pairs a user with an event. Unique per (UserID, EventID).
type Enrollment struct {
	ID        id.EnrollmentID
	UserID    id.UserID
	EventID   id.EventID
	Status    EnrollmentStatus
	CreatedAt time.Time
}

// IsApproved reports whether the holder may be admitted.
func (e *Enrollment) IsApproved() bool {
	return e.Status == EnrollmentApproved
}

// Event is a scheduled occurrence with an admission window.
type Event struct {
	ID        id.EventID
	Title     string
	StartDate time.Time
	EndDate   time.Time
	Location  string
}

// NotStarted reports whether now is before the start, allowing entry
// opensBefore ahead of it.
func (e *Event) NotStarted(now time.Time, opensBefore time.Duration) bool {
	return now.Before(e.StartDate.Add(-opensBefore))
}

// Ended reports whether now is past the end.
func (e *Event) Ended(now time.Time) bool {
	return now.After(e.EndDate)
}

// User is a badge holder. Name feeds the human-readable badge code.
type User struct {
	ID    id.UserID
	Name  string
	Email string
}
