package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"footpicks_go/internal/accumulator"
	"footpicks_go/internal/bankroll"
	"footpicks_go/internal/picks"
	"footpicks_go/internal/prediction"
)

// PicksReader returns stored picks for a date.
type PicksReader interface {
	Picks(ctx context.Context, date string) ([]picks.Pick, error)
}

// EntryLister returns every bankroll entry.
type EntryLister interface {
	Entries(ctx context.Context) ([]bankroll.Entry, error)
}

// SnapshotLoader returns the last published prediction list.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context) ([]prediction.MatchPrediction, error)
}

// Commands answers slash commands from the stores.
type Commands struct {
	Picks       PicksReader
	Bankroll    EntryLister
	Predictions SnapshotLoader
	Now         func() time.Time
}

// Reply returns the response text for a command name; unknown commands get "".
func (c *Commands) Reply(ctx context.Context, name string) string {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	switch name {
	case "ping":
		return "⚽ **Pong!** Footpicks is online."
	case "picks":
		date := picks.DateKey(now())
		ps, err := c.Picks.Picks(ctx, date)
		if err != nil {
			return "❌ Could not load picks: " + err.Error()
		}
		if len(ps) == 0 {
			return "No picks yet for " + date + "."
		}
		return fmt.Sprintf("**Picks for %s**\n\n%s", date, PicksDescription(ps))
	case "bankroll":
		entries, err := c.Bankroll.Entries(ctx)
		if err != nil {
			return "❌ Could not load bankroll: " + err.Error()
		}
		return BankrollSummary(bankroll.Summarize(entries))
	case "acca":
		preds, err := c.Predictions.LoadSnapshot(ctx)
		if err != nil && !errors.Is(err, prediction.ErrNotFound) {
			return "❌ Could not load predictions: " + err.Error()
		}
		return AccumulatorSummary(accumulator.Build(preds, accumulator.Options{Now: now()}))
	}
	return ""
}

// BankrollSummary renders a Summary for chat.
func BankrollSummary(s bankroll.Summary) string {
	if s.Total == 0 {
		return "No bets logged yet."
	}
	streak := "none"
	switch {
	case s.Streak > 0:
		streak = fmt.Sprintf("W%d", s.Streak)
	case s.Streak < 0:
		streak = fmt.Sprintf("L%d", -s.Streak)
	}
	return fmt.Sprintf("📒 **Bankroll**\nRecord: %d-%d-%d (W-L-V), %d pending\nStaked %s · Returned %s · Profit **%s**\nStreak: %s",
		s.Won, s.Lost, s.Void, s.Pending, s.Staked.StringFixed(2), s.Returned.StringFixed(2), s.Profit.StringFixed(2), streak)
}

// AccumulatorSummary renders the longshot accumulator for chat.
func AccumulatorSummary(a *accumulator.Accumulator) string {
	if len(a.Legs) == 0 {
		return "No upcoming fixtures for an accumulator."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎯 **Longshot accumulator** · %d legs · %d leagues · %d days\nCombined odds: **%s**\n",
		len(a.Legs), a.LeagueCount, a.DaySpread, a.Display())
	for i, l := range a.Legs {
		if i == maxAccaLines {
			fmt.Fprintf(&sb, "…and %d more", len(a.Legs)-i)
			break
		}
		fmt.Fprintf(&sb, "%s vs %s: %s @ %.2f\n", l.HomeTeam, l.AwayTeam, l.Pick, l.Odds)
	}
	return strings.TrimRight(sb.String(), "\n")
}

const maxAccaLines = 10
