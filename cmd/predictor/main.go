package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"footpicks_go/internal/accumulator"
	"footpicks_go/internal/api"
	"footpicks_go/internal/cache"
	"footpicks_go/internal/config"
	"footpicks_go/internal/footballdata"
	"footpicks_go/internal/market"
	"footpicks_go/internal/model"
	"footpicks_go/internal/picks"
	"footpicks_go/internal/prediction"
	"footpicks_go/internal/settlement"
	"footpicks_go/internal/store"
	"footpicks_go/internal/store/redisstore"
	"footpicks_go/internal/strength"
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

	fd := footballdata.NewClient(cfg.FootballData.BaseURL, cfg.FootballData.Token, cfg.FootballData.Timeout)
	snapshots := redisstore.New(rdb)
	producer := stream.NewProducer(rdb)

	engine := model.NewEngine(model.Options{Seed: cfg.Predictor.Seed, Trials: cfg.Predictor.Trials})
	svc := prediction.NewService(prediction.ServiceConfig{
		Fixtures:     fd,
		Strengths:    strength.NewReader(rdb),
		Snapshots:    snapshots,
		Assembler:    prediction.NewAssembler(engine, market.NewGenerator(cfg.Predictor.Margin)),
		Cache:        cache.New[string, []prediction.MatchPrediction](cfg.Predictor.CacheTTL),
		Competitions: cfg.FootballData.Competitions,
		WindowDays:   cfg.Predictor.WindowDays,
	})

	settler := settlement.NewSettler(settlement.Config{
		Store:        st,
		Fixtures:     fd,
		Snapshots:    snapshots,
		Publisher:    producer,
		LookupDelay:  cfg.Settlement.LookupDelay,
		LookbackDays: cfg.Settlement.LookbackDays,
	})

	hour, minute, _ := cfg.PicksRunAt()
	gen := picks.NewGenerator(svc, st, producer, cfg.Picks.Count)
	go gen.Run(ctx, hour, minute)
	slog.Info("predictor: picks scheduler started", "run_at", cfg.Picks.RunAt, "count", cfg.Picks.Count)

	handler := api.NewHandler(api.Config{
		Predictions: svc,
		Picks:       st,
		Bankroll:    st,
		Settler:     settler,
		Accumulator: accumulator.Options{TargetLegs: cfg.Accumulator.TargetLegs, WindowDays: cfg.Accumulator.WindowDays},
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("predictor: http listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	// Warm the cache so the first request does not pay for a full cycle.
	go func() {
		preds, err := svc.Predictions(ctx)
		if err != nil {
			slog.Warn("predictor: initial predictions failed", "error", err)
			return
		}
		slog.Info("predictor: predictions ready", "count", len(preds))
	}()

	<-ctx.Done()
	slog.Info("predictor shutting down", "reason", ctx.Err())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown failed", "error", err)
	}
	handler.Wait()
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
