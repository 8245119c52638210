// Package store keeps the registry indices: records by id, ids by owner, owner
// by id, and ids by content hash, plus the outbox of emitted events.
//
// Every backend commits a registration's four index writes and its outbox event
// as one unit: either all of them become visible or none do.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledgerreg/internal/registry/models"
	"ledgerreg/pkg/domain"
	"ledgerreg/pkg/platform/sentinel"
)

// ErrNotFound is returned by lookups for unknown keys.
var ErrNotFound = sentinel.ErrNotFound

// Tx is the write view handed to a unit of work. Writes are staged and become
// visible only when the callback returns nil and the backend commits.
type Tx[P any] interface {
	// Exists reports whether id is registered, including writes staged in this unit.
	Exists(ctx context.Context, id models.RecordID) (bool, error)
	// Insert stages the record and its index updates. It returns
	// sentinel.ErrAlreadyUsed if id is taken.
	Insert(ctx context.Context, rec *models.Record[P]) error
	// Emit stages an event for the outbox.
	Emit(ctx context.Context, event models.RecordRegistered) error
}

// OutboxEntry is a committed event waiting to be published.
type OutboxEntry struct {
	ID        uuid.UUID   `json:"id"`
	Kind      models.Kind `json:"kind"`
	EventType string      `json:"event_type"`
	Key       string      `json:"key"`
	Payload   []byte      `json:"payload"`
	CreatedAt time.Time   `json:"created_at"`
}

// OutboxReader is drained by the outbox relay.
type OutboxReader interface {
	Pending(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

func newOutboxEntry(event models.RecordRegistered) (OutboxEntry, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}
	return OutboxEntry{
		ID:        uuid.New(),
		Kind:      event.Kind,
		EventType: event.EventType(),
		Key:       string(event.ID),
		Payload:   payload,
		CreatedAt: event.RegisteredAt,
	}, nil
}

// Ledger is one registry kind's storage: a per-id unit of work, the four index
// lookups and the outbox.
type Ledger[P any] interface {
	// RunInTx runs fn while no other unit of work for id can run, and commits
	// everything fn staged if it returns nil.
	RunInTx(ctx context.Context, id models.RecordID, fn func(ctx context.Context, tx Tx[P]) error) error

	FindByID(ctx context.Context, id models.RecordID) (*models.Record[P], error)
	ListByOwner(ctx context.Context, owner domain.Account) ([]models.RecordID, error)
	OwnerOf(ctx context.Context, id models.RecordID) (domain.Account, error)
	ListByHash(ctx context.Context, hash domain.ContentHash) ([]models.RecordID, error)

	OutboxReader
}

var (
	_ Ledger[struct{}] = (*InMemory[struct{}])(nil)
	_ Ledger[struct{}] = (*Postgres[struct{}])(nil)
	_ Ledger[struct{}] = (*Redis[struct{}])(nil)
)
