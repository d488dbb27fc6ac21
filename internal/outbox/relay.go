package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"badgehub/internal/outbox/metrics"
)

// ErrCircuitOpen is returned by ProcessOnce while the broker is considered
// unavailable.
var ErrCircuitOpen = errors.New("outbox relay circuit open")

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// Relay moves pending entries to the publisher in creation order.
type Relay struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int
	breaker   *breaker
	now       func() time.Time
}

type RelayOption func(*Relay)

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithBreaker tunes the failure threshold and cooldown.
func WithBreaker(threshold int, cooldown time.Duration) RelayOption {
	return func(r *Relay) { r.breaker = newBreaker(threshold, cooldown) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) RelayOption {
	return func(r *Relay) { r.now = now }
}

func NewRelay(store Store, publisher Publisher, opts ...RelayOption) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		logger:    slog.Default(),
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		breaker:   newBreaker(0, 0),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled. Errors are logged and retried on the
// next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := r.ProcessOnce(ctx)
				if err != nil {
					if !errors.Is(err, ErrCircuitOpen) && ctx.Err() == nil {
						r.logger.WarnContext(ctx, "outbox relay batch failed", "error", err)
					}
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// ProcessOnce publishes one batch and returns how many entries were
// delivered. A publish failure leaves the whole batch pending.
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	if !r.breaker.allow(r.now()) {
		return 0, ErrCircuitOpen
	}

	entries, err := r.store.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	if err := r.publisher.Publish(ctx, entries); err != nil {
		r.breaker.failure(r.now())
		r.metrics.IncPublishFailure()
		return 0, err
	}
	r.breaker.success()

	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := r.store.MarkPublished(ctx, ids, r.now()); err != nil {
		// Entries will be published again; consumers dedupe on entry id.
		return 0, err
	}

	r.metrics.AddPublished(len(entries))
	r.logger.DebugContext(ctx, "outbox batch published", "count", len(entries))
	return len(entries), nil
}
