// Package outbox implements the transactional outbox: domain events are
// appended in the same unit of work as the state change that produced them
// and relayed to Kafka afterwards, at least once.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Aggregate types.
const (
	AggregateBadge   = "badge"
	AggregateCheckin = "checkin"
	AggregateUser    = "user"
)

// Event types published on the events topic.
const (
	EventBadgeIssued      = "badge.issued"
	EventBadgeRegenerated = "badge.regenerated"
	EventBadgeDeleted     = "badge.deleted"
	EventCheckinAdmitted  = "checkin.admitted"
	EventAwardGranted     = "award.granted"
)

// Entry is one pending or published domain event.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// IsPublished reports whether the relay has delivered the entry.
func (e *Entry) IsPublished() bool {
	return e.PublishedAt != nil
}

// NewEntry marshals payload into a fresh entry.
func NewEntry(aggregateType, aggregateID, eventType string, payload any, now time.Time) (Entry, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       b,
		CreatedAt:     now,
	}, nil
}

// Appender writes entries. Implementations join the transaction in ctx.
type Appender interface {
	Append(ctx context.Context, entry Entry) error
}

// Store is the relay's view of the outbox table.
type Store interface {
	Appender
	FetchPending(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Publisher delivers entries to the message broker.
type Publisher interface {
	Publish(ctx context.Context, entries []Entry) error
}
