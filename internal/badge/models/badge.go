package models

import (
	"fmt"
	"time"

	"badgehub/internal/credential"
	id "badgehub/pkg/domain"
	"badgehub/pkg/platform/sentinel"
)

// Scope tags which kind of holder a badge belongs to.
type Scope string

const (
	ScopeEnrollment Scope = "enrollment"
	ScopePerson     Scope = "person"
)

// Kind returns the credential kind encoded on badges of this scope.
func (s Scope) Kind() credential.Kind {
	if s == ScopePerson {
		return credential.KindPerson
	}
	return credential.KindEnrollment
}

// Store errors distinguishing the two unique keys an insert can hit.
var (
	ErrCodeTaken     = fmt.Errorf("badge code taken: %w", sentinel.ErrAlreadyUsed)
	ErrAlreadyIssued = fmt.Errorf("badge already issued: %w", sentinel.ErrConflict)
)

// Badge is the unified credential record for both scopes.
//
// Invariants:
//   - Code is globally unique and never changes once issued
//   - At most one enrollment badge per EnrollmentID
//   - At most one person badge per UserID
//   - EnrollmentID and EventID are set exactly when Scope is enrollment
//   - Only Payload, IssuedAt and QRPath change, and only on regeneration
type Badge struct {
	ID           id.BadgeID
	Scope        Scope
	UserID       id.UserID
	EnrollmentID id.EnrollmentID
	EventID      id.EventID
	Code         string
	Payload      string
	IssuedAt     time.Time
	CreatedAt    time.Time
	ValidUntil   *time.Time
	QRPath       string
}

// Expired reports whether the badge has a validity bound and now is past it.
func (b *Badge) Expired(now time.Time) bool {
	return b.ValidUntil != nil && now.After(*b.ValidUntil)
}

// Credential returns the credential this badge's payload encodes.
func (b *Badge) Credential() credential.Credential {
	if b.Scope == ScopePerson {
		return credential.ForPerson(b.UserID, b.Code, b.IssuedAt)
	}
	return credential.ForEnrollment(b.EnrollmentID, b.UserID, b.EventID, b.IssuedAt)
}

// Matches reports whether c names this badge exactly, including the issue
// instant, so payloads superseded by regeneration no longer match.
func (b *Badge) Matches(c credential.Credential) bool {
	if c.Kind != b.Scope.Kind() || c.UserID != b.UserID || !c.IssuedAt.Equal(b.IssuedAt) {
		return false
	}
	if b.Scope == ScopePerson {
		return c.BadgeCode == b.Code
	}
	return c.EnrollmentID == b.EnrollmentID && c.EventID == b.EventID
}

// Clone returns a deep copy.
func (b *Badge) Clone() *Badge {
	cp := *b
	if b.ValidUntil != nil {
		v := *b.ValidUntil
		cp.ValidUntil = &v
	}
	return &cp
}

// BackfillResult summarizes a person-badge backfill run.
type BackfillResult struct {
	Scanned int
	Issued  int
	Failed  int
}
