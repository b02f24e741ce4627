package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"footpicks_go/internal/config"
	"footpicks_go/internal/consumer"
	"footpicks_go/internal/discord"
	"footpicks_go/internal/picks"
	"footpicks_go/internal/store"
	"footpicks_go/internal/store/redisstore"
	"footpicks_go/internal/stream"

	"github.com/bwmarrin/discordgo"
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

	c := consumer.NewConsumer(rdb)
	if err := c.EnsureGroups(ctx); err != nil {
		slog.Warn("consumer group ensure", "group", consumer.ConsumerGroup, "error", err)
	}
	slog.Info("announcer started",
		"streams", []string{stream.PicksStreamKey, stream.SettlementsStreamKey},
		"group", consumer.ConsumerGroup)

	var bot *discord.Bot
	if cfg.Discord.Token != "" {
		bot, err = discord.NewBot(discord.Config{Token: cfg.Discord.Token, AnnounceChannelID: cfg.Discord.ChannelID})
		if err != nil {
			slog.Error("discord bot create failed", "error", err)
			os.Exit(1)
		}
		commands := &discord.Commands{Picks: st, Bankroll: st, Predictions: redisstore.New(rdb)}
		bot.AddInteractionHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			if i.Type != discordgo.InteractionApplicationCommand {
				return
			}
			name := i.ApplicationCommandData().Name
			if name == "ping" {
				respond(s, i, commands.Reply(ctx, name))
				return
			}
			// Store reads can be slow; defer then follow up.
			deferRespond(s, i, func() string {
				rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
				defer cancel()
				return commands.Reply(rctx, name)
			})
		})
		bot.Session().AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
			slog.Info("discord connected", "user", r.User.Username, "id", r.User.ID)
		})
		slog.Info("connecting to Discord gateway...")
		if err := bot.Session().Open(); err != nil {
			slog.Error("discord open failed", "error", err)
			os.Exit(1)
		}
		defer bot.Session().Close()
		registered, err := bot.RegisterSlashCommands(cfg.Discord.GuildID)
		if err != nil {
			slog.Warn("discord register commands failed", "error", err)
		} else {
			slog.Info("discord slash commands registered", "count", len(registered), "guild_id", cfg.Discord.GuildID)
		}
		go runStatusUpdates(ctx, bot, st)
	} else {
		slog.Info("DISCORD_BOT_TOKEN not set; Discord announcements and commands disabled")
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down announcer", "reason", ctx.Err())
			return
		default:
			m, err := c.Read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("read messages failed", "error", err)
					time.Sleep(time.Second)
				}
				continue
			}
			for _, e := range m.Picks {
				slog.Info("picks announcement", "date", e.Date, "count", len(e.Picks))
				if bot != nil {
					if err := bot.PostPicks(ctx, e.Date, e.Picks); err != nil {
						slog.Warn("discord post picks failed", "date", e.Date, "error", err)
					}
				}
			}
			for _, e := range m.Settlements {
				slog.Info("settlement announcement", "entry_id", e.Entry.ID, "result", e.Entry.Result)
				if bot != nil {
					if err := bot.PostSettlement(ctx, e.Entry); err != nil {
						slog.Warn("discord post settlement failed", "entry_id", e.Entry.ID, "error", err)
					}
				}
			}
			if !m.Empty() {
				if err := c.Ack(ctx, m); err != nil {
					slog.Warn("ack failed", "error", err)
				}
			}
		}
	}
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         content,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	})
	if err != nil {
		slog.Warn("discord respond failed", "error", err)
	}
}

// deferRespond acknowledges with "thinking" then sends fn's result as a followup.
func deferRespond(s *discordgo.Session, i *discordgo.InteractionCreate, fn func() string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{},
	})
	if err != nil {
		slog.Warn("discord defer respond failed", "error", err)
		return
	}
	content := fn()
	if content == "" {
		content = "Unknown command."
	}
	_, err = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	if err != nil {
		slog.Warn("discord followup failed", "error", err)
	}
}

// runStatusUpdates keeps the "Watching" activity in line with today's pick count.
func runStatusUpdates(ctx context.Context, bot *discord.Bot, reader discord.PicksReader) {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()
	update := func() {
		ps, err := reader.Picks(ctx, picks.DateKey(time.Now()))
		if err != nil {
			slog.Warn("status update: load picks failed", "error", err)
			return
		}
		if err := bot.SetWatchingStatus(len(ps)); err != nil {
			slog.Warn("status update failed", "error", err)
		}
	}
	update()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
