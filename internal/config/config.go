package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is shared by every service binary. Fields left empty in the YAML file keep
// the defaults from Default; environment variables override both.
type Config struct {
	LogLevel     string             `yaml:"log_level"`
	Redis        RedisConfig        `yaml:"redis"`
	Store        StoreConfig        `yaml:"store"`
	FootballData FootballDataConfig `yaml:"football_data"`
	HTTP         HTTPConfig         `yaml:"http"`
	Predictor    PredictorConfig    `yaml:"predictor"`
	Picks        PicksConfig        `yaml:"picks"`
	Accumulator  AccumulatorConfig  `yaml:"accumulator"`
	Settlement   SettlementConfig   `yaml:"settlement"`
	Collector    CollectorConfig    `yaml:"collector"`
	Discord      DiscordConfig      `yaml:"discord"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StoreConfig selects where daily picks and bankroll entries live.
// Driver is "redis", "postgres" or "sqlite".
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type FootballDataConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Token        string        `yaml:"token"`
	Competitions []string      `yaml:"competitions"`
	Timeout      time.Duration `yaml:"timeout"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type PredictorConfig struct {
	CacheTTL   time.Duration `yaml:"cache_ttl"`
	WindowDays int           `yaml:"window_days"`
	Trials     int           `yaml:"trials"`
	Seed       int64         `yaml:"seed"` // 0 reseeds per prediction
	Margin     float64       `yaml:"margin"`
}

type PicksConfig struct {
	Count int    `yaml:"count"`
	RunAt string `yaml:"run_at"` // HH:MM, UTC
}

type AccumulatorConfig struct {
	TargetLegs int `yaml:"target_legs"`
	WindowDays int `yaml:"window_days"`
}

type SettlementConfig struct {
	Interval     time.Duration `yaml:"interval"`
	LookupDelay  time.Duration `yaml:"lookup_delay"`
	LookbackDays int           `yaml:"lookback_days"`
}

type CollectorConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
	GuildID   string `yaml:"guild_id"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Redis:    RedisConfig{Addr: "redis:6379"},
		Store:    StoreConfig{Driver: "redis"},
		FootballData: FootballDataConfig{
			BaseURL:      "https://api.football-data.org/v4",
			Competitions: []string{"PL", "PD", "BL1", "SA", "FL1"},
			Timeout:      15 * time.Second,
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Predictor: PredictorConfig{
			CacheTTL:   5 * time.Minute,
			WindowDays: 7,
			Trials:     5000,
			Margin:     0.06,
		},
		Picks:       PicksConfig{Count: 5, RunAt: "06:00"},
		Accumulator: AccumulatorConfig{TargetLegs: 25, WindowDays: 7},
		Settlement: SettlementConfig{
			Interval:     15 * time.Minute,
			LookupDelay:  6 * time.Second,
			LookbackDays: 3,
		},
		Collector: CollectorConfig{Interval: 6 * time.Hour},
	}
}

// Load reads the YAML file at path on top of Default and then applies environment
// overrides. A missing file is not an error; services can run from env alone.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.DSN = getEnv("STORE_DSN", c.Store.DSN)
	c.FootballData.BaseURL = getEnv("FOOTBALL_DATA_URL", c.FootballData.BaseURL)
	c.FootballData.Token = getEnv("FOOTBALL_DATA_TOKEN", c.FootballData.Token)
	if v := os.Getenv("FOOTBALL_DATA_COMPETITIONS"); v != "" {
		c.FootballData.Competitions = splitList(v)
	}
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.Predictor.CacheTTL = getDurationEnv("PREDICTION_CACHE_TTL", c.Predictor.CacheTTL)
	c.Predictor.Seed = getInt64Env("PREDICTION_SEED", c.Predictor.Seed)
	c.Picks.RunAt = getEnv("PICKS_RUN_AT", c.Picks.RunAt)
	c.Settlement.Interval = getDurationEnv("SETTLE_INTERVAL", c.Settlement.Interval)
	c.Settlement.LookupDelay = getDurationEnv("SETTLE_LOOKUP_DELAY", c.Settlement.LookupDelay)
	c.Collector.Interval = getDurationEnv("COLLECTOR_INTERVAL", c.Collector.Interval)
	c.Discord.Token = getEnv("DISCORD_BOT_TOKEN", c.Discord.Token)
	c.Discord.ChannelID = getEnv("DISCORD_ANNOUNCE_CHANNEL_ID", c.Discord.ChannelID)
	c.Discord.GuildID = getEnv("DISCORD_GUILD_ID", c.Discord.GuildID)
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "redis":
	case "postgres", "sqlite":
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver %s requires a dsn", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Picks.Count <= 0 {
		return fmt.Errorf("picks count must be positive, got %d", c.Picks.Count)
	}
	if _, _, err := c.PicksRunAt(); err != nil {
		return err
	}
	if c.Accumulator.WindowDays < 7 {
		return fmt.Errorf("accumulator window must span at least 7 days, got %d", c.Accumulator.WindowDays)
	}
	if c.Predictor.Margin < 0 || c.Predictor.Margin >= 0.5 {
		return fmt.Errorf("predictor margin out of range: %v", c.Predictor.Margin)
	}
	return nil
}

// PicksRunAt parses Picks.RunAt into an hour and minute (UTC).
func (c *Config) PicksRunAt() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.Picks.RunAt)
	if err != nil {
		return 0, 0, fmt.Errorf("picks run_at %q: %w", c.Picks.RunAt, err)
	}
	return t.Hour(), t.Minute(), nil
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getInt64Env(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
