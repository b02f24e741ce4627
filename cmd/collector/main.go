package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"footpicks_go/internal/config"
	"footpicks_go/internal/footballdata"
	"footpicks_go/internal/strength"

	"github.com/redis/go-redis/v9"
)

// standingsDelay spaces competition requests under the free-tier rate limit.
const standingsDelay = 6 * time.Second

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

	fd := footballdata.NewClient(cfg.FootballData.BaseURL, cfg.FootballData.Token, cfg.FootballData.Timeout)
	w := strength.NewWriter(rdb)

	run := func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		updated := 0
		for i, code := range cfg.FootballData.Competitions {
			if i > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(standingsDelay):
				}
			}
			s, err := fd.Standings(ctx, code)
			if errors.Is(err, footballdata.ErrRateLimited) {
				slog.Warn("collector: rate limited; stopping this run", "competition", code)
				break
			}
			if err != nil {
				slog.Warn("collector: standings fetch failed", "competition", code, "error", err)
				continue
			}
			t := strength.FromStandings(s, time.Now())
			if err := w.WriteTable(ctx, t); err != nil {
				slog.Warn("collector: write strength table failed", "competition", code, "error", err)
				continue
			}
			updated++
			slog.Info("collector: strength table updated", "competition", code, "teams", len(t.Teams), "avg_goals", t.AvgGoals)
		}
		slog.Info("collector: run complete", "updated", updated, "competitions", len(cfg.FootballData.Competitions))
	}

	run()
	ticker := time.NewTicker(cfg.Collector.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("collector shutting down", "reason", ctx.Err())
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
