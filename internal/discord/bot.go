package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"footpicks_go/internal/bankroll"
	"footpicks_go/internal/market"
	"footpicks_go/internal/picks"

	"github.com/bwmarrin/discordgo"
)

const (
	embedColor = 0x1E8C45
	wonColor   = 0x2ECC71
	lostColor  = 0xE74C3C
	voidColor  = 0x95A5A6
)

// Bot wraps a Discord session and the announce channel.
type Bot struct {
	session   *discordgo.Session
	channelID string
	mu        sync.Mutex
}

// Config for the Discord bot.
type Config struct {
	Token             string
	AnnounceChannelID string
}

// NewBot creates a Discord bot. Token must be non-empty.
func NewBot(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token required")
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return &Bot{session: s, channelID: cfg.AnnounceChannelID}, nil
}

// Session returns the discordgo session (for registering handlers and opening).
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// PicksDescription renders a day's shortlist as embed text.
func PicksDescription(ps []picks.Pick) string {
	if len(ps) == 0 {
		return "No picks today."
	}
	var sb strings.Builder
	for _, p := range ps {
		fmt.Fprintf(&sb, "**%d. %s**\n%s: **%s** · %d%% (%s) · @ %.2f\n", p.Rank, p.Label(), p.Market, p.Pick,
			p.Confidence, market.Tier(p.Confidence), p.Odds)
		if !p.Kickoff.IsZero() {
			fmt.Fprintf(&sb, "Kickoff <t:%d:f>\n", p.Kickoff.Unix())
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// PicksEmbed is the daily announcement.
func PicksEmbed(date string, ps []picks.Pick) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "⚽ Picks of the day · " + date,
		Description: PicksDescription(ps),
		Color:       embedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Model picks · not betting advice"},
	}
}

// SettlementDescription renders a settled entry as embed text.
func SettlementDescription(e bankroll.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**\n%s: %s\n", e.MatchLabel, e.Market, e.Pick)
	fmt.Fprintf(&sb, "Result: **%s**", strings.ToUpper(string(e.Result)))
	if e.Result != bankroll.Lost {
		fmt.Fprintf(&sb, " · payout %s", e.Payout.StringFixed(2))
	}
	return sb.String()
}

// SettlementEmbed announces a settled entry.
func SettlementEmbed(e bankroll.Entry) *discordgo.MessageEmbed {
	color := voidColor
	switch e.Result {
	case bankroll.Won:
		color = wonColor
	case bankroll.Lost:
		color = lostColor
	}
	embed := &discordgo.MessageEmbed{
		Title:       "Bet settled",
		Description: SettlementDescription(e),
		Color:       color,
	}
	if e.SettledAt != nil {
		embed.Timestamp = e.SettledAt.Format(time.RFC3339)
	}
	return embed
}

// PostPicks sends the daily shortlist to the announce channel.
func (b *Bot) PostPicks(ctx context.Context, date string, ps []picks.Pick) error {
	return b.send(PicksEmbed(date, ps))
}

// PostSettlement sends a settled entry to the announce channel.
func (b *Bot) PostSettlement(ctx context.Context, e bankroll.Entry) error {
	return b.send(SettlementEmbed(e))
}

func (b *Bot) send(embed *discordgo.MessageEmbed) error {
	if b.channelID == "" {
		return nil
	}
	b.mu.Lock()
	s := b.session
	b.mu.Unlock()
	if s == nil {
		return nil
	}
	if _, err := s.ChannelMessageSendEmbed(b.channelID, embed); err != nil {
		return fmt.Errorf("send embed: %w", err)
	}
	slog.Info("discord: embed sent", "channel", b.channelID, "title", embed.Title)
	return nil
}

// RegisterSlashCommands registers /picks, /bankroll, /acca and /ping. Call after Open() so State is ready.
func (b *Bot) RegisterSlashCommands(guildID string) ([]*discordgo.ApplicationCommand, error) {
	appID := b.session.State.User.ID
	commands := []*discordgo.ApplicationCommand{
		{Name: "picks", Description: "Today's top picks"},
		{Name: "bankroll", Description: "Bankroll record and profit"},
		{Name: "acca", Description: "This week's longshot accumulator"},
		{Name: "ping", Description: "Ping the bot to check if it's online"},
	}
	var registered []*discordgo.ApplicationCommand
	for _, cmd := range commands {
		created, err := b.session.ApplicationCommandCreate(appID, guildID, cmd)
		if err != nil {
			return registered, fmt.Errorf("create command %s: %w", cmd.Name, err)
		}
		registered = append(registered, created)
	}
	return registered, nil
}

// AddInteractionHandler registers the handler for slash commands.
func (b *Bot) AddInteractionHandler(handler func(s *discordgo.Session, i *discordgo.InteractionCreate)) {
	b.session.AddHandler(handler)
}

// StatusName is the "Watching" activity text.
func StatusName(picksToday int) string {
	switch picksToday {
	case 0:
		return "the fixtures"
	case 1:
		return "1 pick today"
	default:
		return fmt.Sprintf("%d picks today", picksToday)
	}
}

// SetWatchingStatus sets the bot's activity.
func (b *Bot) SetWatchingStatus(picksToday int) error {
	b.mu.Lock()
	s := b.session
	b.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status:     "online",
		Activities: []*discordgo.Activity{{Type: discordgo.ActivityTypeWatching, Name: StatusName(picksToday)}},
	})
}
