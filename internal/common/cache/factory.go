package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"menu-advisor/internal/common/config"
	"menu-advisor/internal/common/database"
	"menu-advisor/internal/common/logger"
)

// Open builds the backend named by cfg.Cache.Backend. The returned close
// function releases the underlying connection.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (Cache, func() error, error) {
	ttl := time.Duration(cfg.Cache.TTL) * time.Second
	noop := func() error { return nil }

	switch cfg.Cache.Backend {
	case "", "none":
		return NopCache{}, noop, nil

	case "redis":
		rdb := database.NewRedis(cfg.Database.Redis)
		if err := database.PingRedis(ctx, rdb); err != nil {
			_ = rdb.Close()
			return nil, noop, err
		}
		return NewRedisCache(rdb, ttl, log), rdb.Close, nil

	case database.DialectSQLite, database.DialectPostgres:
		db, err := openSQL(cfg)
		if err != nil {
			return nil, noop, err
		}
		c, err := NewSQLCache(db, cfg.Cache.Backend, ttl, log)
		if err == nil {
			err = c.InitSchema(ctx)
		}
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return c, db.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}

func openSQL(cfg *config.Config) (*sql.DB, error) {
	if cfg.Cache.Backend == database.DialectPostgres {
		return database.NewPostgres(cfg.Database.Postgres)
	}
	return database.NewSQLite(cfg.Cache.SQLitePath)
}
