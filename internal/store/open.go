package store

import (
	"context"
	"fmt"

	"upasthiti/internal/config"
)

// Open returns the KV backend selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg config.App) (KV, error) {
	switch cfg.StoreBackend {
	case "memory":
		return NewMemory(), nil
	case "sqlite", "":
		return NewSQLite(cfg.SQLitePath)
	case "postgres":
		db, err := NewDB(cfg.DatabaseURL)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	case "redis":
		r := NewRedis(cfg.RedisAddr)
		if !r.Healthy(ctx) {
			_ = r.Close()
			return nil, fmt.Errorf("redis not reachable at %s", cfg.RedisAddr)
		}
		return r, nil
	case "mongo":
		return NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
