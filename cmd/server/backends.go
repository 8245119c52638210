package main

import (
	"context"
	"fmt"

	"ledgerreg/internal/platform/config"
	"ledgerreg/internal/platform/postgres"
	"ledgerreg/internal/platform/redis"
	"ledgerreg/internal/registry/credential"
	"ledgerreg/internal/registry/models"
	"ledgerreg/internal/registry/schema"
	"ledgerreg/internal/registry/store"
)

// backends holds one store per record kind on the configured backend.
type backends struct {
	credentials store.Ledger[credential.Property]
	schemas     store.Ledger[schema.Property]
	health      func(ctx context.Context) error
	close       func()
}

func openBackends(ctx context.Context, cfg config.Server) (*backends, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &backends{
			credentials: store.NewPostgres[credential.Property](db, models.KindCredential),
			schemas:     store.NewPostgres[schema.Property](db, models.KindSchema),
			health:      db.PingContext,
			close:       func() { _ = db.Close() },
		}, nil

	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return &backends{
			credentials: store.NewRedis[credential.Property](client.Client, models.KindCredential),
			schemas:     store.NewRedis[schema.Property](client.Client, models.KindSchema),
			health:      client.Health,
			close:       func() { _ = client.Close() },
		}, nil

	case config.BackendMemory:
		return &backends{
			credentials: store.NewInMemory[credential.Property](),
			schemas:     store.NewInMemory[schema.Property](),
			health:      func(context.Context) error { return nil },
			close:       func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}
