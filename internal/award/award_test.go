package award

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "badgehub/pkg/domain-errors"
)

func TestCriteriaSatisfied(t *testing.T) {
	ms := Metrics{Checkins: 5, ApprovedEnrollments: 2, EventsAttended: 3}

	tests := []struct {
		name     string
		criteria Criteria
		want     bool
	}{
		{"checkins at threshold", Criteria{MetricCheckins, 5}, true},
		{"checkins below threshold", Criteria{MetricCheckins, 6}, false},
		{"approved enrollments", Criteria{MetricApprovedEnrollments, 2}, true},
		{"events attended", Criteria{MetricEventsAttended, 4}, false},
		{"zero threshold never satisfied", Criteria{MetricCheckins, 0}, false},
		{"unknown metric never satisfied", Criteria{Metric("karma"), 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.Satisfied(ms))
		})
	}
}

func TestCriteriaValidate(t *testing.T) {
	assert.NoError(t, Criteria{MetricEventsAttended, 1}.Validate())
	assert.True(t, dErrors.HasCode(Criteria{MetricCheckins, 0}.Validate(), dErrors.CodeValidation))
	assert.True(t, dErrors.HasCode(Criteria{Metric("visits"), 3}.Validate(), dErrors.CodeValidation))
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric(" Events_Attended ")
	require.NoError(t, err)
	assert.Equal(t, MetricEventsAttended, m)

	_, err = ParseMetric("checkin")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
