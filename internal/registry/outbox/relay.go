// Package outbox delivers committed registry events to the event log.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ledgerreg/internal/platform/kafka"
	"ledgerreg/internal/registry/metrics"
	"ledgerreg/internal/registry/store"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// Publisher hands a batch of events to the event log. A nil error means every
// entry in the batch was accepted.
type Publisher interface {
	Publish(ctx context.Context, entries []store.OutboxEntry) error
}

// Relay polls one or more outboxes and publishes what it finds. Entries are
// marked published only after the publisher accepted them, so delivery is at
// least once and consumers key on the entry id.
type Relay struct {
	sources   []store.OutboxReader
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func NewRelay(publisher Publisher, sources []store.OutboxReader, opts ...Option) *Relay {
	r := &Relay{
		sources:   sources,
		publisher: publisher,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drains the outboxes every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.Drain(ctx); err != nil {
			r.logger.WarnContext(ctx, "outbox drain failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Drain publishes pending entries batch by batch until every source is empty.
// A failing source is logged and skipped so the others still deliver; Drain
// then returns the first such error along with the number of entries published.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	total := 0
	var firstErr error
	for i, src := range r.sources {
		n, err := r.drainSource(ctx, src)
		total += n
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return total, ctxErr
		}
		r.logger.WarnContext(ctx, "outbox source failed", "source", i, "published", n, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return total, firstErr
}

func (r *Relay) drainSource(ctx context.Context, src store.OutboxReader) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := r.drainBatch(ctx, src)
		total += n
		if err != nil {
			return total, err
		}
		if n < r.batchSize {
			return total, nil
		}
	}
}

func (r *Relay) drainBatch(ctx context.Context, src store.OutboxReader) (int, error) {
	entries, err := src.Pending(ctx, r.batchSize)
	if err != nil || len(entries) == 0 {
		return 0, err
	}
	if err := r.publisher.Publish(ctx, entries); err != nil {
		r.metrics.IncOutboxPublishFailure()
		return 0, err
	}

	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := src.MarkPublished(ctx, ids); err != nil {
		return 0, err
	}
	r.metrics.AddOutboxPublished(len(entries))
	return len(entries), nil
}

// KafkaPublisher produces each entry keyed by record id, so all events about
// one record land on one partition.
type KafkaPublisher struct {
	producer *kafka.Producer
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, entries []store.OutboxEntry) error {
	return p.producer.Produce(ctx, toMessages(entries)...)
}

func toMessages(entries []store.OutboxEntry) []kafka.Message {
	msgs := make([]kafka.Message, len(entries))
	for i, e := range entries {
		msgs[i] = kafka.Message{
			Key:   e.Key,
			Value: e.Payload,
			Headers: map[string]string{
				"event_id":   e.ID.String(),
				"event_type": e.EventType,
				"kind":       string(e.Kind),
			},
		}
	}
	return msgs
}

// LogPublisher writes entries to the log. It stands in for Kafka when no
// brokers are configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, entries []store.OutboxEntry) error {
	for _, e := range entries {
		p.logger.InfoContext(ctx, "registry event",
			"event_id", e.ID,
			"event_type", e.EventType,
			"key", e.Key,
			"payload", string(e.Payload),
		)
	}
	return nil
}
