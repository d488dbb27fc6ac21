package kafka

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"badgehub/internal/outbox"
)

func TestToRecord(t *testing.T) {
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	e := outbox.Entry{
		ID:            uuid.New(),
		AggregateType: outbox.AggregateBadge,
		AggregateID:   "badge-1",
		EventType:     outbox.EventBadgeIssued,
		Payload:       []byte(`{"code":"ADA-LOVELACE-1234"}`),
		CreatedAt:     created,
	}

	rec := ToRecord("badgehub.events", e)
	assert.Equal(t, "badgehub.events", rec.Topic)
	assert.Equal(t, []byte("badge-1"), rec.Key)
	assert.Equal(t, e.Payload, rec.Value)
	assert.True(t, rec.Timestamp.Equal(created))

	headers := map[string]string{}
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, e.ID.String(), headers["event_id"])
	assert.Equal(t, outbox.EventBadgeIssued, headers["event_type"])
}

func TestNewPublisherRequiresBrokers(t *testing.T) {
	_, err := NewPublisher(nil, "badgehub.events")
	require.Error(t, err)
}
