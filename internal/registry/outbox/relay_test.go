package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"ledgerreg/internal/registry/metrics"
	"ledgerreg/internal/registry/models"
	"ledgerreg/internal/registry/store"
	"ledgerreg/pkg/domain"
)

type recordingPublisher struct {
	batches [][]store.OutboxEntry
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, entries []store.OutboxEntry) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, entries)
	return nil
}

// brokenSource is an outbox whose storage cannot be read.
type brokenSource struct {
	err error
}

func (b brokenSource) Pending(context.Context, int) ([]store.OutboxEntry, error) {
	return nil, b.err
}

func (b brokenSource) MarkPublished(context.Context, []uuid.UUID) error {
	return b.err
}

type RelaySuite struct {
	suite.Suite
	ctx       context.Context
	store     *store.InMemory[string]
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	relay     *Relay
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory[string]()
	s.publisher = &recordingPublisher{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.relay = NewRelay(s.publisher, []store.OutboxReader{s.store},
		WithBatchSize(2),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
}

func (s *RelaySuite) admit(ids ...string) {
	for _, id := range ids {
		rec := models.NewRecord(models.RecordParams[string]{
			ID:          models.RecordID(id),
			Owner:       domain.AccountFromSeed(id),
			ContentHash: domain.ContentHashFromUint64(7),
		}, time.Unix(0, 0).UTC())
		err := s.store.RunInTx(s.ctx, rec.ID, func(ctx context.Context, tx store.Tx[string]) error {
			if err := tx.Insert(ctx, rec); err != nil {
				return err
			}
			return tx.Emit(ctx, models.RecordRegistered{Kind: models.KindSchema, ID: rec.ID})
		})
		s.Require().NoError(err)
	}
}

func (s *RelaySuite) TestDrainPublishesInBatches() {
	s.admit("S1", "S2", "S3")

	n, err := s.relay.Drain(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, n)
	s.Require().Len(s.publisher.batches, 2)
	s.Len(s.publisher.batches[0], 2)
	s.Equal("S3", s.publisher.batches[1][0].Key)

	pending, err := s.store.Pending(s.ctx, 0)
	s.Require().NoError(err)
	s.Empty(pending)
	s.Equal(3.0, testutil.ToFloat64(s.metrics.OutboxPublished))
}

func (s *RelaySuite) TestFailedPublishKeepsEntriesPending() {
	s.admit("S1")
	s.publisher.err = errors.New("broker unavailable")

	n, err := s.relay.Drain(s.ctx)
	s.Error(err)
	s.Zero(n)

	pending, err := s.store.Pending(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(pending, 1)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.OutboxPublishFailure))

	s.publisher.err = nil
	n, err = s.relay.Drain(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *RelaySuite) TestFailingSourceDoesNotBlockOthers() {
	s.admit("S1", "S2", "S3")
	down := errors.New("connection reset")
	relay := NewRelay(s.publisher, []store.OutboxReader{brokenSource{err: down}, s.store, brokenSource{err: errors.New("later")}},
		WithBatchSize(2),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	n, err := relay.Drain(s.ctx)
	s.ErrorIs(err, down)
	s.Equal(3, n)

	pending, err := s.store.Pending(s.ctx, 0)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *RelaySuite) TestRunStopsOnCancel() {
	s.admit("S1")
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.relay.Run(ctx) }()

	s.Eventually(func() bool {
		pending, err := s.store.Pending(s.ctx, 0)
		return err == nil && len(pending) == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.Fail("relay did not stop")
	}
}

func (s *RelaySuite) TestKafkaMessagesCarryEventHeaders() {
	s.admit("S1")
	pending, err := s.store.Pending(s.ctx, 0)
	s.Require().NoError(err)

	msgs := toMessages(pending)
	s.Require().Len(msgs, 1)
	s.Equal("S1", msgs[0].Key)
	s.Equal("schema_registered", msgs[0].Headers["event_type"])
	s.Equal(pending[0].ID.String(), msgs[0].Headers["event_id"])
	s.JSONEq(string(pending[0].Payload), string(msgs[0].Value))
}
