package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventWindow(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	ev := &Event{StartDate: start, EndDate: start.Add(8 * time.Hour)}

	assert.True(t, ev.NotStarted(start.Add(-time.Minute), 0))
	assert.False(t, ev.NotStarted(start, 0))
	assert.False(t, ev.NotStarted(start.Add(-20*time.Minute), 30*time.Minute))
	assert.True(t, ev.NotStarted(start.Add(-31*time.Minute), 30*time.Minute))

	assert.False(t, ev.Ended(ev.EndDate))
	assert.True(t, ev.Ended(ev.EndDate.Add(time.Nanosecond)))
}

func TestEnrollmentStatus(t *testing.T) {
	assert.True(t, EnrollmentApproved.IsValid())
	assert.False(t, EnrollmentStatus("approved").IsValid())
	assert.True(t, (&Enrollment{Status: EnrollmentApproved}).IsApproved())
	assert.False(t, (&Enrollment{Status: EnrollmentPending}).IsApproved())
}
