package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ledgerreg/internal/registry/models"
	"ledgerreg/internal/registry/store"
	"ledgerreg/pkg/domain"
	"ledgerreg/pkg/platform/sentinel"
)

type label struct {
	Text string `json:"text"`
}

type backend interface {
	RunInTx(ctx context.Context, id models.RecordID, fn func(ctx context.Context, tx store.Tx[label]) error) error
	FindByID(ctx context.Context, id models.RecordID) (*models.Record[label], error)
	ListByOwner(ctx context.Context, owner domain.Account) ([]models.RecordID, error)
	OwnerOf(ctx context.Context, id models.RecordID) (domain.Account, error)
	ListByHash(ctx context.Context, hash domain.ContentHash) ([]models.RecordID, error)
	store.OutboxReader
}

var (
	alice     = domain.AccountFromSeed("alice")
	bob       = domain.AccountFromSeed("bob")
	hashA     = domain.ContentHashFromUint64(1)
	hashB     = domain.ContentHashFromUint64(2)
	fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

// backendSuite is run against every backend. Implementations set newBackend
// and reset their state in SetupTest.
type backendSuite struct {
	suite.Suite
	ctx        context.Context
	newBackend func() backend
	store      backend
}

func (s *backendSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newBackend()
}

func newLabelRecord(id string, owner domain.Account, hash domain.ContentHash, props []label) *models.Record[label] {
	return models.NewRecord(models.RecordParams[label]{
		ID:          models.RecordID(id),
		Owner:       owner,
		ContentHash: hash,
		Properties:  props,
	}, fixedTime)
}

func (s *backendSuite) register(rec *models.Record[label]) error {
	return s.store.RunInTx(s.ctx, rec.ID, func(ctx context.Context, tx store.Tx[label]) error {
		if err := tx.Insert(ctx, rec); err != nil {
			return err
		}
		return tx.Emit(ctx, models.RecordRegistered{
			Kind:         models.KindCredential,
			Signer:       rec.Owner,
			ID:           rec.ID,
			ContentHash:  rec.ContentHash,
			RegisteredAt: rec.RegisteredAt,
		})
	})
}

func (s *backendSuite) TestInsertAndLookups() {
	rec := newLabelRecord("00012345600012", alice, hashA, []label{{Text: "s1"}})
	s.Require().NoError(s.register(rec))

	found, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.ID, found.ID)
	s.Equal(alice, found.Owner)
	s.Equal(hashA, found.ContentHash)
	s.Equal([]label{{Text: "s1"}}, found.Properties)
	s.True(fixedTime.Equal(found.RegisteredAt))

	owner, err := s.store.OwnerOf(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(alice, owner)

	ids, err := s.store.ListByOwner(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal([]models.RecordID{rec.ID}, ids)

	ids, err = s.store.ListByHash(s.ctx, hashA)
	s.Require().NoError(err)
	s.Equal([]models.RecordID{rec.ID}, ids)
}

func (s *backendSuite) TestAbsentPropertiesStayAbsent() {
	rec := newLabelRecord("no-props", alice, hashA, nil)
	s.Require().NoError(s.register(rec))

	found, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Nil(found.Properties)
}

func (s *backendSuite) TestRegisteredAtReadsBackAsWritten() {
	rec := models.NewRecord(models.RecordParams[label]{
		ID:          "precise",
		Owner:       alice,
		ContentHash: hashA,
	}, time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC))
	s.Equal(123456000, rec.RegisteredAt.Nanosecond())
	s.Require().NoError(s.register(rec))

	found, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.RegisteredAt, found.RegisteredAt)

	pending, err := s.store.Pending(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	var event models.RecordRegistered
	s.Require().NoError(json.Unmarshal(pending[0].Payload, &event))
	s.True(found.RegisteredAt.Equal(event.RegisteredAt))
}

func (s *backendSuite) TestIndexOrderFollowsInsertion() {
	s.Require().NoError(s.register(newLabelRecord("C1", alice, hashA, nil)))
	s.Require().NoError(s.register(newLabelRecord("C2", alice, hashA, nil)))
	s.Require().NoError(s.register(newLabelRecord("C3", bob, hashB, nil)))

	ids, err := s.store.ListByOwner(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal([]models.RecordID{"C1", "C2"}, ids)

	ids, err = s.store.ListByHash(s.ctx, hashA)
	s.Require().NoError(err)
	s.Equal([]models.RecordID{"C1", "C2"}, ids)

	ids, err = s.store.ListByOwner(s.ctx, bob)
	s.Require().NoError(err)
	s.Equal([]models.RecordID{"C3"}, ids)
}

func (s *backendSuite) TestUnknownKeys() {
	_, err := s.store.FindByID(s.ctx, "missing")
	s.ErrorIs(err, store.ErrNotFound)

	_, err = s.store.OwnerOf(s.ctx, "missing")
	s.ErrorIs(err, store.ErrNotFound)

	ids, err := s.store.ListByOwner(s.ctx, bob)
	s.Require().NoError(err)
	s.Empty(ids)

	ids, err = s.store.ListByHash(s.ctx, hashB)
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *backendSuite) TestDuplicateInsertLeavesIndicesUnchanged() {
	s.Require().NoError(s.register(newLabelRecord("dup", alice, hashA, nil)))

	err := s.register(newLabelRecord("dup", bob, hashB, []label{{Text: "x"}}))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	owner, err := s.store.OwnerOf(s.ctx, "dup")
	s.Require().NoError(err)
	s.Equal(alice, owner)

	ids, err := s.store.ListByOwner(s.ctx, bob)
	s.Require().NoError(err)
	s.Empty(ids)

	ids, err = s.store.ListByHash(s.ctx, hashB)
	s.Require().NoError(err)
	s.Empty(ids)

	pending, err := s.store.Pending(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(pending, 1)
}

func (s *backendSuite) TestFailedUnitOfWorkCommitsNothing() {
	boom := errors.New("boom")
	rec := newLabelRecord("rolled-back", alice, hashA, nil)

	err := s.store.RunInTx(s.ctx, rec.ID, func(ctx context.Context, tx store.Tx[label]) error {
		s.Require().NoError(tx.Insert(ctx, rec))
		exists, err := tx.Exists(ctx, rec.ID)
		s.Require().NoError(err)
		s.True(exists)
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.FindByID(s.ctx, rec.ID)
	s.ErrorIs(err, store.ErrNotFound)

	ids, err := s.store.ListByOwner(s.ctx, alice)
	s.Require().NoError(err)
	s.Empty(ids)

	pending, err := s.store.Pending(s.ctx, 0)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *backendSuite) TestOutbox() {
	s.Require().NoError(s.register(newLabelRecord("E1", alice, hashA, nil)))
	s.Require().NoError(s.register(newLabelRecord("E2", bob, hashB, nil)))

	pending, err := s.store.Pending(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("E1", pending[0].Key)
	s.Equal("credential_registered", pending[0].EventType)

	var event models.RecordRegistered
	s.Require().NoError(json.Unmarshal(pending[0].Payload, &event))
	s.Equal(models.RecordID("E1"), event.ID)
	s.Equal(alice, event.Signer)

	s.Require().NoError(s.store.MarkPublished(s.ctx, []uuid.UUID{pending[0].ID}))

	pending, err = s.store.Pending(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("E2", pending[0].Key)
}

func (s *backendSuite) TestConcurrentRegistrationsOfOneID() {
	const writers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			owner := domain.AccountFromSeed(string(rune('a' + i)))
			if err := s.register(newLabelRecord("race", owner, hashA, nil)); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, admitted)
	ids, err := s.store.ListByHash(s.ctx, hashA)
	s.Require().NoError(err)
	s.Equal([]models.RecordID{"race"}, ids)
}
