package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ledgerreg/internal/registry/models"
	"ledgerreg/pkg/domain"
	"ledgerreg/pkg/platform/sentinel"
	txcontext "ledgerreg/pkg/platform/tx"
)

// Postgres keeps one registry kind in PostgreSQL. All kinds share the tables and
// are told apart by the kind column.
type Postgres[P any] struct {
	db      *sql.DB
	kind    models.Kind
	timeout time.Duration
}

// NewPostgres constructs a PostgreSQL-backed registry for kind.
func NewPostgres[P any](db *sql.DB, kind models.Kind) *Postgres[P] {
	return &Postgres[P]{db: db, kind: kind}
}

// RunInTx opens a SQL transaction, takes a transaction-scoped advisory lock on
// (kind, id) and commits if fn returns nil.
func (s *Postgres[P]) RunInTx(ctx context.Context, id models.RecordID, fn func(ctx context.Context, tx Tx[P]) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	timeout := s.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registry transaction: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if _, err := sqlTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, string(s.kind)+":"+string(id)); err != nil {
		return fmt.Errorf("lock registry id: %w", err)
	}

	txCtx := txcontext.WithTx(ctx, sqlTx)
	if err := fn(txCtx, &postgresTx[P]{store: s}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit registry transaction: %w", err)
	}
	return nil
}

func (s *Postgres[P]) FindByID(ctx context.Context, id models.RecordID) (*models.Record[P], error) {
	var (
		owner, hash []byte
		props       []byte
		rec         models.Record[P]
	)
	err := txcontext.Use(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, owner, content_hash, version, properties, registered_at
		FROM registry_records
		WHERE kind = $1 AND id = $2
	`, s.kind, id).Scan(&rec.ID, &owner, &hash, &rec.Version, &props, &rec.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find %s by id: %w", s.kind, err)
	}
	rec.Owner = domain.AccountFromBytes(owner)
	rec.ContentHash = domain.ContentHashFromBytes(hash)
	rec.RegisteredAt = rec.RegisteredAt.UTC()
	if props != nil {
		if err := json.Unmarshal(props, &rec.Properties); err != nil {
			return nil, fmt.Errorf("unmarshal %s properties: %w", s.kind, err)
		}
	}
	return &rec, nil
}

func (s *Postgres[P]) ListByOwner(ctx context.Context, owner domain.Account) ([]models.RecordID, error) {
	return s.listIDs(ctx, `
		SELECT id FROM registry_owner_index
		WHERE kind = $1 AND owner = $2
		ORDER BY seq
	`, owner.Bytes())
}

func (s *Postgres[P]) OwnerOf(ctx context.Context, id models.RecordID) (domain.Account, error) {
	var owner []byte
	err := txcontext.Use(ctx, s.db).QueryRowContext(ctx,
		`SELECT owner FROM registry_owner_of WHERE kind = $1 AND id = $2`, s.kind, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("find owner of %s: %w", s.kind, err)
	}
	return domain.AccountFromBytes(owner), nil
}

func (s *Postgres[P]) ListByHash(ctx context.Context, hash domain.ContentHash) ([]models.RecordID, error) {
	return s.listIDs(ctx, `
		SELECT id FROM registry_hash_index
		WHERE kind = $1 AND content_hash = $2
		ORDER BY seq
	`, hash.Bytes())
}

func (s *Postgres[P]) listIDs(ctx context.Context, query string, key []byte) ([]models.RecordID, error) {
	rows, err := txcontext.Use(ctx, s.db).QueryContext(ctx, query, s.kind, key)
	if err != nil {
		return nil, fmt.Errorf("list %s ids: %w", s.kind, err)
	}
	defer rows.Close()

	ids := []models.RecordID{}
	for rows.Next() {
		var id models.RecordID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", s.kind, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Postgres[P]) Pending(ctx context.Context, limit int) ([]OutboxEntry, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, event_type, event_key, payload, created_at
		FROM registry_outbox
		WHERE kind = $1 AND published_at IS NULL
		ORDER BY seq
		LIMIT $2
	`, s.kind, lim)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.EventType, &e.Key, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Postgres[P]) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE registry_outbox SET published_at = now() WHERE id = ANY($1::uuid[])`, pq.Array(keys))
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

type postgresTx[P any] struct {
	store *Postgres[P]
}

func (tx *postgresTx[P]) Exists(ctx context.Context, id models.RecordID) (bool, error) {
	var exists bool
	err := txcontext.Use(ctx, tx.store.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registry_records WHERE kind = $1 AND id = $2)`,
		tx.store.kind, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s exists: %w", tx.store.kind, err)
	}
	return exists, nil
}

func (tx *postgresTx[P]) Insert(ctx context.Context, rec *models.Record[P]) error {
	kind := tx.store.kind
	q := txcontext.Use(ctx, tx.store.db)

	// lib/pq sends []byte as bytea, so JSON goes over as text. nil stays NULL.
	var props any
	if rec.Properties != nil {
		raw, err := json.Marshal(rec.Properties)
		if err != nil {
			return fmt.Errorf("marshal %s properties: %w", kind, err)
		}
		props = string(raw)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO registry_records (kind, id, owner, content_hash, version, properties, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (kind, id) DO NOTHING
	`, kind, rec.ID, rec.Owner.Bytes(), rec.ContentHash.Bytes(), rec.Version, props, rec.RegisteredAt)
	if err != nil {
		return fmt.Errorf("insert %s: %w", kind, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrAlreadyUsed
	}

	if _, err := q.ExecContext(ctx,
		`INSERT INTO registry_owner_index (kind, owner, id) VALUES ($1, $2, $3)`,
		kind, rec.Owner.Bytes(), rec.ID); err != nil {
		return fmt.Errorf("append %s owner index: %w", kind, err)
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO registry_owner_of (kind, id, owner) VALUES ($1, $2, $3)`,
		kind, rec.ID, rec.Owner.Bytes()); err != nil {
		return fmt.Errorf("set %s owner: %w", kind, err)
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO registry_hash_index (kind, content_hash, id) VALUES ($1, $2, $3)`,
		kind, rec.ContentHash.Bytes(), rec.ID); err != nil {
		return fmt.Errorf("append %s hash index: %w", kind, err)
	}
	return nil
}

func (tx *postgresTx[P]) Emit(ctx context.Context, event models.RecordRegistered) error {
	entry, err := newOutboxEntry(event)
	if err != nil {
		return err
	}
	_, err = txcontext.Use(ctx, tx.store.db).ExecContext(ctx, `
		INSERT INTO registry_outbox (id, kind, event_type, event_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.Kind, entry.EventType, entry.Key, string(entry.Payload), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}
