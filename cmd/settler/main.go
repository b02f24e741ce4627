package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"footpicks_go/internal/config"
	"footpicks_go/internal/footballdata"
	"footpicks_go/internal/settlement"
	"footpicks_go/internal/store"
	"footpicks_go/internal/store/redisstore"
	"footpicks_go/internal/stream"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("redis ping failed", "error", err)
		os.Exit(1)
	}

	st, closeStore, err := store.Open(ctx, cfg.Store, rdb)
	if err != nil {
		slog.Error("store open failed", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	settler := settlement.NewSettler(settlement.Config{
		Store:        st,
		Fixtures:     footballdata.NewClient(cfg.FootballData.BaseURL, cfg.FootballData.Token, cfg.FootballData.Timeout),
		Snapshots:    redisstore.New(rdb),
		Publisher:    stream.NewProducer(rdb),
		LookupDelay:  cfg.Settlement.LookupDelay,
		LookbackDays: cfg.Settlement.LookbackDays,
	})
	slog.Info("settler started", "interval", cfg.Settlement.Interval, "lookup_delay", cfg.Settlement.LookupDelay)

	run := func() {
		ctx, cancel := context.WithTimeout(ctx, cfg.Settlement.Interval)
		defer cancel()
		rep, err := settler.Run(ctx)
		if err != nil {
			slog.Warn("settler: pass failed", "error", err)
			return
		}
		slog.Info("settler: pass complete",
			"checked", rep.Checked,
			"won", rep.Won,
			"lost", rep.Lost,
			"void", rep.Void,
			"unresolvable", rep.Unresolvable,
			"raced", rep.Raced,
			"errors", rep.Errors,
		)
	}

	run()
	ticker := time.NewTicker(cfg.Settlement.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("settler shutting down", "reason", ctx.Err())
			return
		case <-ticker.C:
			run()
		}
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
