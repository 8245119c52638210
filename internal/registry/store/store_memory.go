package store

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"ledgerreg/internal/registry/models"
	"ledgerreg/pkg/domain"
	"ledgerreg/pkg/platform/sentinel"
)

// InMemory keeps one registry in process memory. Units of work stage their
// writes and apply them under the store lock, so readers never see a partial
// registration.
type InMemory[P any] struct {
	locks shardedLocks

	mu      sync.RWMutex
	byID    map[models.RecordID]*models.Record[P]
	byOwner map[domain.Account][]models.RecordID
	ownerOf map[models.RecordID]domain.Account
	byHash  map[domain.ContentHash][]models.RecordID
	outbox  []OutboxEntry
}

func NewInMemory[P any]() *InMemory[P] {
	return &InMemory[P]{
		byID:    make(map[models.RecordID]*models.Record[P]),
		byOwner: make(map[domain.Account][]models.RecordID),
		ownerOf: make(map[models.RecordID]domain.Account),
		byHash:  make(map[domain.ContentHash][]models.RecordID),
	}
}

// RunInTx runs fn with the lock of id held and commits its staged writes if fn
// returns nil.
func (s *InMemory[P]) RunInTx(ctx context.Context, id models.RecordID, fn func(ctx context.Context, tx Tx[P]) error) error {
	return s.locks.run(ctx, string(id), func(ctx context.Context) error {
		tx := &memoryTx[P]{store: s}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return s.commit(tx)
	})
}

func (s *InMemory[P]) commit(tx *memoryTx[P]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range tx.records {
		if _, ok := s.byID[rec.ID]; ok {
			return sentinel.ErrAlreadyUsed
		}
	}
	for _, rec := range tx.records {
		s.byID[rec.ID] = rec
		s.byOwner[rec.Owner] = append(s.byOwner[rec.Owner], rec.ID)
		s.ownerOf[rec.ID] = rec.Owner
		s.byHash[rec.ContentHash] = append(s.byHash[rec.ContentHash], rec.ID)
	}
	s.outbox = append(s.outbox, tx.events...)
	return nil
}

func (s *InMemory[P]) FindByID(_ context.Context, id models.RecordID) (*models.Record[P], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.byID[id]; ok {
		return rec.Clone(), nil
	}
	return nil, ErrNotFound
}

func (s *InMemory[P]) ListByOwner(_ context.Context, owner domain.Account) ([]models.RecordID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.RecordID{}, s.byOwner[owner]...), nil
}

func (s *InMemory[P]) OwnerOf(_ context.Context, id models.RecordID) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if owner, ok := s.ownerOf[id]; ok {
		return owner, nil
	}
	return domain.Account{}, ErrNotFound
}

func (s *InMemory[P]) ListByHash(_ context.Context, hash domain.ContentHash) ([]models.RecordID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.RecordID{}, s.byHash[hash]...), nil
}

func (s *InMemory[P]) Pending(_ context.Context, limit int) ([]OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.outbox)
	if limit > 0 {
		n = min(limit, n)
	}
	return slices.Clone(s.outbox[:n]), nil
}

func (s *InMemory[P]) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = slices.DeleteFunc(s.outbox, func(e OutboxEntry) bool {
		return slices.Contains(ids, e.ID)
	})
	return nil
}

type memoryTx[P any] struct {
	store   *InMemory[P]
	records []*models.Record[P]
	events  []OutboxEntry
}

func (tx *memoryTx[P]) Exists(_ context.Context, id models.RecordID) (bool, error) {
	if tx.staged(id) {
		return true, nil
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	_, ok := tx.store.byID[id]
	return ok, nil
}

func (tx *memoryTx[P]) Insert(ctx context.Context, rec *models.Record[P]) error {
	exists, err := tx.Exists(ctx, rec.ID)
	if err != nil {
		return err
	}
	if exists {
		return sentinel.ErrAlreadyUsed
	}
	tx.records = append(tx.records, rec.Clone())
	return nil
}

func (tx *memoryTx[P]) Emit(_ context.Context, event models.RecordRegistered) error {
	entry, err := newOutboxEntry(event)
	if err != nil {
		return err
	}
	tx.events = append(tx.events, entry)
	return nil
}

func (tx *memoryTx[P]) staged(id models.RecordID) bool {
	return slices.ContainsFunc(tx.records, func(r *models.Record[P]) bool {
		return r.ID == id
	})
}
