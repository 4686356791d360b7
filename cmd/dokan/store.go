package main

import (
	"context"
	"fmt"

	"dokan/internal/adapters/kv/file"
	"dokan/internal/adapters/kv/memory"
	"dokan/internal/adapters/kv/postgres"
	"dokan/internal/adapters/kv/redis"
	"dokan/internal/adapters/kv/sqlite"
	"dokan/internal/config"
	"dokan/internal/ports"
)

// openStore returns the session key-value backend named by cfg.Store.
func openStore(ctx context.Context, cfg *config.SessionConfig) (ports.KeyValueStore, error) {
	switch cfg.Store {
	case "memory":
		return memory.NewStore(), nil
	case "file", "":
		return file.NewStore(cfg.FilePath)
	case "sqlite":
		return sqlite.Open(cfg.SQLitePath)
	case "redis":
		return redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Namespace)
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("SESSION_PG_DSN is required for the postgres store")
		}
		return postgres.Open(ctx, cfg.PostgresDSN, cfg.Namespace)
	default:
		return nil, fmt.Errorf("unknown session store %q (memory, file, sqlite, redis, postgres)", cfg.Store)
	}
}
