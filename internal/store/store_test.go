package store

import (
	"context"
	"testing"

	"footpicks_go/internal/config"
	"footpicks_go/internal/store/redisstore"
	"footpicks_go/internal/store/sqlstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	ctx := context.Background()

	s, closeFn, err := Open(ctx, config.StoreConfig{Driver: "redis"}, rdb)
	if err != nil {
		t.Fatalf("Open(redis): %v", err)
	}
	if _, ok := s.(*redisstore.Store); !ok {
		t.Errorf("Open(redis) = %T; want *redisstore.Store", s)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close redis: %v", err)
	}

	s, closeFn, err = Open(ctx, config.StoreConfig{Driver: "sqlite", DSN: ":memory:"}, rdb)
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	if _, ok := s.(*sqlstore.Store); !ok {
		t.Errorf("Open(sqlite) = %T; want *sqlstore.Store", s)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close sqlite: %v", err)
	}

	if _, _, err := Open(ctx, config.StoreConfig{Driver: "mongo"}, rdb); err == nil {
		t.Error("Open(mongo) succeeded; want error")
	}
}
