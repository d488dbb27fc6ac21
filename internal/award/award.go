// Package award defines award templates and the structured criteria that
// decide when a user earns one.
package award

import (
	"strings"
	"time"

	id "badgehub/pkg/domain"
	dErrors "badgehub/pkg/domain-errors"
)

// Metric names a per-user counter a criterion compares against.
type Metric string

const (
	MetricCheckins            Metric = "checkins"
	MetricApprovedEnrollments Metric = "approved_enrollments"
	MetricEventsAttended      Metric = "events_attended"
)

// ParseMetric accepts the metric names case-insensitively.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown award metric "+s)
	}
	return m, nil
}

func (m Metric) IsValid() bool {
	switch m {
	case MetricCheckins, MetricApprovedEnrollments, MetricEventsAttended:
		return true
	}
	return false
}

// Metrics are a user's counters at evaluation time.
type Metrics struct {
	Checkins            int
	ApprovedEnrollments int
	EventsAttended      int
}

// Value returns the counter named by m.
func (ms Metrics) Value(m Metric) int {
	switch m {
	case MetricCheckins:
		return ms.Checkins
	case MetricApprovedEnrollments:
		return ms.ApprovedEnrollments
	case MetricEventsAttended:
		return ms.EventsAttended
	}
	return 0
}

// Criteria is satisfied when the named metric reaches Threshold.
type Criteria struct {
	Metric    Metric
	Threshold int
}

func (c Criteria) Validate() error {
	if !c.Metric.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown award metric "+string(c.Metric))
	}
	if c.Threshold < 1 {
		return dErrors.New(dErrors.CodeValidation, "award threshold must be at least 1")
	}
	return nil
}

// Satisfied reports whether ms meets the criteria. Invalid criteria are
// never satisfied.
func (c Criteria) Satisfied(ms Metrics) bool {
	if c.Validate() != nil {
		return false
	}
	return ms.Value(c.Metric) >= c.Threshold
}

// Award is an admin-defined recognition template.
type Award struct {
	ID          id.AwardID
	Name        string
	Description string
	Criteria    Criteria
	ImageURL    string
	CreatedAt   time.Time
}

// UserAward records that a user holds an award. Unique per (UserID, AwardID).
type UserAward struct {
	UserID    id.UserID
	AwardID   id.AwardID
	AwardedAt time.Time
}

// Granted is an award as held by a user.
type Granted struct {
	Award     Award
	AwardedAt time.Time
}
