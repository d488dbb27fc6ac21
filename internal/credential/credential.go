// Package credential encodes and decodes the payload carried by a badge's QR
// code. It performs no I/O.
package credential

import (
	"time"

	id "badgehub/pkg/domain"
)

// Kind tags which repository a credential is verified against.
type Kind string

const (
	KindEnrollment Kind = "enrollment"
	KindPerson     Kind = "person"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return k == KindEnrollment || k == KindPerson
}

func (k Kind) String() string {
	return string(k)
}

// Credential is the decoded form of a QR payload.
//
// Enrollment credentials carry EnrollmentID, UserID and EventID. Person
// credentials carry UserID and BadgeCode. Both carry IssuedAt, which changes
// whenever the badge is regenerated.
type Credential struct {
	Kind         Kind
	EnrollmentID id.EnrollmentID
	UserID       id.UserID
	EventID      id.EventID
	BadgeCode    string
	IssuedAt     time.Time
}

// ForEnrollment builds an enrollment credential.
func ForEnrollment(enrollmentID id.EnrollmentID, userID id.UserID, eventID id.EventID, issuedAt time.Time) Credential {
	return Credential{
		Kind:         KindEnrollment,
		EnrollmentID: enrollmentID,
		UserID:       userID,
		EventID:      eventID,
		IssuedAt:     issuedAt.UTC(),
	}
}

// ForPerson builds a person credential.
func ForPerson(userID id.UserID, badgeCode string, issuedAt time.Time) Credential {
	return Credential{
		Kind:      KindPerson,
		UserID:    userID,
		BadgeCode: badgeCode,
		IssuedAt:  issuedAt.UTC(),
	}
}
