package store

import (
	"context"
	"fmt"
	"log/slog"

	"footpicks_go/internal/bankroll"
	"footpicks_go/internal/config"
	"footpicks_go/internal/picks"
	"footpicks_go/internal/store/redisstore"
	"footpicks_go/internal/store/sqlstore"

	"github.com/redis/go-redis/v9"
)

// Store holds daily picks and bankroll entries.
type Store interface {
	picks.Store
	bankroll.Store
}

// Open returns the backend named by cfg.Driver and a func that releases it.
// The redis backend shares rdb and closes nothing.
func Open(ctx context.Context, cfg config.StoreConfig, rdb *redis.Client) (Store, func() error, error) {
	switch cfg.Driver {
	case "", "redis":
		slog.Info("store: using redis")
		return redisstore.New(rdb), func() error { return nil }, nil
	case sqlstore.DriverPostgres, sqlstore.DriverSQLite:
		s, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
		}
		slog.Info("store: using sql", "driver", cfg.Driver)
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
