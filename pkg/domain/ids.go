// Package domain holds the typed identifiers shared across modules.
//
// Each identifier is a distinct named UUID type so a BadgeID can never be
// passed where an EnrollmentID is expected. Construct them from external
// input only through the Parse functions, which reject empty, malformed and
// nil UUIDs with CodeInvalidInput.
package domain

import (
	"github.com/google/uuid"

	dErrors "badgehub/pkg/domain-errors"
)

type (
	UserID       uuid.UUID
	EventID      uuid.UUID
	EnrollmentID uuid.UUID
	BadgeID      uuid.UUID
	CheckinID    uuid.UUID
	AwardID      uuid.UUID
)

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return parsed, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event id")
	return EventID(u), err
}

func ParseEnrollmentID(s string) (EnrollmentID, error) {
	u, err := parseUUID(s, "enrollment id")
	return EnrollmentID(u), err
}

func ParseBadgeID(s string) (BadgeID, error) {
	u, err := parseUUID(s, "badge id")
	return BadgeID(u), err
}

func ParseCheckinID(s string) (CheckinID, error) {
	u, err := parseUUID(s, "checkin id")
	return CheckinID(u), err
}

func ParseAwardID(s string) (AwardID, error) {
	u, err := parseUUID(s, "award id")
	return AwardID(u), err
}

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id EventID) String() string      { return uuid.UUID(id).String() }
func (id EnrollmentID) String() string { return uuid.UUID(id).String() }
func (id BadgeID) String() string      { return uuid.UUID(id).String() }
func (id CheckinID) String() string    { return uuid.UUID(id).String() }
func (id AwardID) String() string      { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id EnrollmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id BadgeID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id CheckinID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AwardID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
