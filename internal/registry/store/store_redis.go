package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ledgerreg/internal/registry/models"
	"ledgerreg/pkg/domain"
	"ledgerreg/pkg/platform/sentinel"
)

const redisKeyPrefix = "ledgerreg:"

// Redis keeps one registry kind in Redis. Writers are serialized per id in this
// process, and every commit runs in MULTI/EXEC under a WATCH on the staged ids,
// so a concurrent writer from another process aborts the commit instead of
// overwriting a record.
type Redis[P any] struct {
	client *redis.Client
	kind   models.Kind
	locks  shardedLocks
}

// NewRedis constructs a Redis-backed registry for kind.
func NewRedis[P any](client *redis.Client, kind models.Kind) *Redis[P] {
	return &Redis[P]{client: client, kind: kind}
}

func (s *Redis[P]) key(parts ...string) string {
	k := redisKeyPrefix + string(s.kind)
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (s *Redis[P]) recordKey(id models.RecordID) string    { return s.key("record", string(id)) }
func (s *Redis[P]) ownerKey(owner domain.Account) string   { return s.key("owner", owner.String()) }
func (s *Redis[P]) ownerOfKey(id models.RecordID) string   { return s.key("owner_of", string(id)) }
func (s *Redis[P]) hashKey(hash domain.ContentHash) string { return s.key("hash", hash.String()) }
func (s *Redis[P]) outboxPendingKey() string               { return s.key("outbox", "pending") }
func (s *Redis[P]) outboxEntriesKey() string               { return s.key("outbox", "entries") }

// RunInTx stages fn's writes and commits them in one MULTI/EXEC.
func (s *Redis[P]) RunInTx(ctx context.Context, id models.RecordID, fn func(ctx context.Context, tx Tx[P]) error) error {
	return s.locks.run(ctx, string(id), func(ctx context.Context) error {
		tx := &redisTx[P]{store: s}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return s.commit(ctx, tx)
	})
}

func (s *Redis[P]) commit(ctx context.Context, stx *redisTx[P]) error {
	if len(stx.records) == 0 && len(stx.events) == 0 {
		return nil
	}

	watched := make([]string, len(stx.records))
	for i, rec := range stx.records {
		watched[i] = s.recordKey(rec.ID)
	}

	err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
		if len(watched) > 0 {
			n, err := rtx.Exists(ctx, watched...).Result()
			if err != nil {
				return fmt.Errorf("check %s exists: %w", s.kind, err)
			}
			if n > 0 {
				return sentinel.ErrAlreadyUsed
			}
		}

		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, rec := range stx.records {
				pipe.Set(ctx, s.recordKey(rec.ID), stx.encoded[i], 0)
				pipe.RPush(ctx, s.ownerKey(rec.Owner), string(rec.ID))
				pipe.Set(ctx, s.ownerOfKey(rec.ID), rec.Owner.String(), 0)
				pipe.RPush(ctx, s.hashKey(rec.ContentHash), string(rec.ID))
			}
			for _, e := range stx.events {
				raw, err := json.Marshal(e)
				if err != nil {
					return fmt.Errorf("marshal outbox entry: %w", err)
				}
				pipe.HSet(ctx, s.outboxEntriesKey(), e.ID.String(), raw)
				pipe.RPush(ctx, s.outboxPendingKey(), e.ID.String())
			}
			return nil
		})
		return err
	}, watched...)

	if errors.Is(err, redis.TxFailedErr) {
		return sentinel.ErrConflict
	}
	if err != nil && !errors.Is(err, sentinel.ErrAlreadyUsed) {
		return fmt.Errorf("commit %s: %w", s.kind, err)
	}
	return err
}

func (s *Redis[P]) FindByID(ctx context.Context, id models.RecordID) (*models.Record[P], error) {
	raw, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s by id: %w", s.kind, err)
	}
	var rec models.Record[P]
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.kind, err)
	}
	return &rec, nil
}

func (s *Redis[P]) ListByOwner(ctx context.Context, owner domain.Account) ([]models.RecordID, error) {
	return s.listIDs(ctx, s.ownerKey(owner))
}

func (s *Redis[P]) OwnerOf(ctx context.Context, id models.RecordID) (domain.Account, error) {
	raw, err := s.client.Get(ctx, s.ownerOfKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Account{}, ErrNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("find owner of %s: %w", s.kind, err)
	}
	return domain.ParseAccount(raw)
}

func (s *Redis[P]) ListByHash(ctx context.Context, hash domain.ContentHash) ([]models.RecordID, error) {
	return s.listIDs(ctx, s.hashKey(hash))
}

func (s *Redis[P]) listIDs(ctx context.Context, key string) ([]models.RecordID, error) {
	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s ids: %w", s.kind, err)
	}
	ids := make([]models.RecordID, len(raw))
	for i, id := range raw {
		ids[i] = models.RecordID(id)
	}
	return ids, nil
}

func (s *Redis[P]) Pending(ctx context.Context, limit int) ([]OutboxEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := s.client.LRange(ctx, s.outboxPendingKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending outbox: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	raws, err := s.client.HMGet(ctx, s.outboxEntriesKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load outbox entries: %w", err)
	}

	entries := make([]OutboxEntry, 0, len(raws))
	for _, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			continue
		}
		var e OutboxEntry
		if err := json.Unmarshal([]byte(str), &e); err != nil {
			return nil, fmt.Errorf("decode outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Redis[P]) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.LRem(ctx, s.outboxPendingKey(), 1, id.String())
			pipe.HDel(ctx, s.outboxEntriesKey(), id.String())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

type redisTx[P any] struct {
	store   *Redis[P]
	records []*models.Record[P]
	encoded [][]byte
	events  []OutboxEntry
}

func (tx *redisTx[P]) Exists(ctx context.Context, id models.RecordID) (bool, error) {
	for _, rec := range tx.records {
		if rec.ID == id {
			return true, nil
		}
	}
	n, err := tx.store.client.Exists(ctx, tx.store.recordKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check %s exists: %w", tx.store.kind, err)
	}
	return n > 0, nil
}

func (tx *redisTx[P]) Insert(ctx context.Context, rec *models.Record[P]) error {
	exists, err := tx.Exists(ctx, rec.ID)
	if err != nil {
		return err
	}
	if exists {
		return sentinel.ErrAlreadyUsed
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", tx.store.kind, err)
	}
	tx.records = append(tx.records, rec.Clone())
	tx.encoded = append(tx.encoded, raw)
	return nil
}

func (tx *redisTx[P]) Emit(_ context.Context, event models.RecordRegistered) error {
	entry, err := newOutboxEntry(event)
	if err != nil {
		return err
	}
	tx.events = append(tx.events, entry)
	return nil
}
