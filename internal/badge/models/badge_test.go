package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"badgehub/internal/credential"
	id "badgehub/pkg/domain"
)

func TestBadgeMatches(t *testing.T) {
	issued := time.Date(2025, 6, 1, 9, 0, 0, 123, time.UTC)
	b := &Badge{
		Scope:        ScopeEnrollment,
		UserID:       id.UserID(uuid.New()),
		EnrollmentID: id.EnrollmentID(uuid.New()),
		EventID:      id.EventID(uuid.New()),
		Code:         "ADA-LOVELACE-1234",
		IssuedAt:     issued,
	}

	assert.True(t, b.Matches(b.Credential()))

	stale := b.Credential()
	stale.IssuedAt = issued.Add(-time.Second)
	assert.False(t, b.Matches(stale))

	otherEvent := b.Credential()
	otherEvent.EventID = id.EventID(uuid.New())
	assert.False(t, b.Matches(otherEvent))

	person := &Badge{Scope: ScopePerson, UserID: b.UserID, Code: "ADA-LOVELACE-1234", IssuedAt: issued}
	assert.True(t, person.Matches(credential.ForPerson(b.UserID, "ADA-LOVELACE-1234", issued)))
	assert.False(t, person.Matches(credential.ForPerson(b.UserID, "ADA-LOVELACE-9999", issued)))
	assert.False(t, person.Matches(b.Credential()))
}

func TestBadgeExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := &Badge{}
	assert.False(t, b.Expired(now))

	until := now
	b.ValidUntil = &until
	assert.False(t, b.Expired(now))
	assert.True(t, b.Expired(now.Add(time.Second)))

	cp := b.Clone()
	*cp.ValidUntil = now.Add(time.Hour)
	assert.True(t, b.ValidUntil.Equal(now))
}
