package bankroll

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"footpicks_go/internal/market"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Result is the lifecycle state of an entry.
type Result string

const (
	Pending Result = "pending"
	Won     Result = "won"
	Lost    Result = "lost"
	Void    Result = "void"
)

// Terminal reports whether r is a settled state.
func (r Result) Terminal() bool {
	return r == Won || r == Lost || r == Void
}

var (
	ErrNotFound     = errors.New("bankroll entry not found")
	ErrInvalidEntry = errors.New("invalid bankroll entry")
)

// Entry is a logged pick. It moves from pending to exactly one terminal result.
type Entry struct {
	ID         string              `json:"id"`
	FixtureID  int64               `json:"fixtureId,omitempty"`
	MatchLabel string              `json:"matchLabel"`
	HomeTeam   string              `json:"homeTeam,omitempty"`
	AwayTeam   string              `json:"awayTeam,omitempty"`
	Kickoff    *time.Time          `json:"kickoff,omitempty"`
	Market     string              `json:"market"`
	Pick       string              `json:"pick"`
	Selection  *market.Selection   `json:"selection,omitempty"`
	Stake      decimal.NullDecimal `json:"stake"`
	Odds       decimal.NullDecimal `json:"odds"`
	Result     Result              `json:"result"`
	Payout     decimal.Decimal     `json:"payout"`
	CreatedAt  time.Time           `json:"createdAt"`
	SettledAt  *time.Time          `json:"settledAt,omitempty"`
}

// NewEntry returns a pending entry with a fresh id. Teams are taken from label
// ("Home vs Away") when not given.
func NewEntry(e Entry, now time.Time) (*Entry, error) {
	if strings.TrimSpace(e.Market) == "" || strings.TrimSpace(e.Pick) == "" {
		return nil, errors.Join(ErrInvalidEntry, errors.New("market and pick are required"))
	}
	if e.MatchLabel == "" && e.HomeTeam != "" && e.AwayTeam != "" {
		e.MatchLabel = e.HomeTeam + " vs " + e.AwayTeam
	}
	if e.MatchLabel == "" && e.FixtureID == 0 {
		return nil, errors.Join(ErrInvalidEntry, errors.New("fixture id or match label is required"))
	}
	if e.HomeTeam == "" || e.AwayTeam == "" {
		e.HomeTeam, e.AwayTeam = SplitLabel(e.MatchLabel)
	}
	if e.Stake.Valid && !e.Stake.Decimal.IsPositive() {
		return nil, errors.Join(ErrInvalidEntry, errors.New("stake must be positive"))
	}
	if e.Odds.Valid && e.Odds.Decimal.LessThan(decimal.NewFromInt(1)) {
		return nil, errors.Join(ErrInvalidEntry, errors.New("odds must be at least 1"))
	}
	e.ID = uuid.NewString()
	e.Result = Pending
	e.Payout = decimal.Zero
	e.CreatedAt = now.UTC()
	e.SettledAt = nil
	return &e, nil
}

// SplitLabel splits "Home vs Away"; it returns empty strings when label has another shape.
func SplitLabel(label string) (home, away string) {
	for _, sep := range []string{" vs ", " vs. ", " v "} {
		if h, a, ok := strings.Cut(label, sep); ok {
			return strings.TrimSpace(h), strings.TrimSpace(a)
		}
	}
	return "", ""
}

// Payout is stake × odds when won, the stake back when void, and zero otherwise.
// A missing stake counts as one unit; missing odds pay even money.
func Payout(r Result, stake, odds decimal.NullDecimal) decimal.Decimal {
	s := decimal.NewFromInt(1)
	if stake.Valid {
		s = stake.Decimal
	}
	switch r {
	case Won:
		o := decimal.NewFromInt(2)
		if odds.Valid {
			o = odds.Decimal
		}
		return s.Mul(o).Round(2)
	case Void:
		return s.Round(2)
	default:
		return decimal.Zero
	}
}

// DayStats counts settled outcomes by the UTC date they were settled on.
type DayStats struct {
	Date string `json:"date"`
	Won  int    `json:"won"`
	Lost int    `json:"lost"`
	Void int    `json:"void"`
}

// Store persists entries. Settle must change an entry only while it is pending and
// report whether it did.
type Store interface {
	CreateEntry(ctx context.Context, e *Entry) error
	Entry(ctx context.Context, id string) (*Entry, error)
	Entries(ctx context.Context) ([]Entry, error)
	PendingEntries(ctx context.Context) ([]Entry, error)
	Settle(ctx context.Context, id string, r Result, payout decimal.Decimal, at time.Time) (bool, error)
	RecordOutcome(ctx context.Context, date string, r Result) error
	DayStats(ctx context.Context, date string) (DayStats, error)
}

// Summary aggregates a list of entries.
type Summary struct {
	Total    int             `json:"total"`
	Pending  int             `json:"pending"`
	Won      int             `json:"won"`
	Lost     int             `json:"lost"`
	Void     int             `json:"void"`
	Staked   decimal.Decimal `json:"staked"`
	Returned decimal.Decimal `json:"returned"`
	Profit   decimal.Decimal `json:"profit"`
	// Streak is the current run of wins (positive) or losses (negative); voids are skipped.
	Streak int `json:"streak"`
}

// Summarize totals entries. Only settled entries count toward staked and returned.
func Summarize(entries []Entry) Summary {
	s := Summary{Total: len(entries), Staked: decimal.Zero, Returned: decimal.Zero}
	settled := make([]Entry, 0, len(entries))
	for _, e := range entries {
		switch e.Result {
		case Pending:
			s.Pending++
			continue
		case Won:
			s.Won++
		case Lost:
			s.Lost++
		case Void:
			s.Void++
		}
		stake := decimal.NewFromInt(1)
		if e.Stake.Valid {
			stake = e.Stake.Decimal
		}
		s.Staked = s.Staked.Add(stake)
		s.Returned = s.Returned.Add(e.Payout)
		settled = append(settled, e)
	}
	s.Profit = s.Returned.Sub(s.Staked)

	sort.SliceStable(settled, func(i, j int) bool { return settledAt(settled[i]).After(settledAt(settled[j])) })
	for _, e := range settled {
		if e.Result == Void {
			continue
		}
		switch {
		case e.Result == Won && s.Streak >= 0:
			s.Streak++
		case e.Result == Lost && s.Streak <= 0:
			s.Streak--
		default:
			return s
		}
	}
	return s
}

func settledAt(e Entry) time.Time {
	if e.SettledAt != nil {
		return *e.SettledAt
	}
	return e.CreatedAt
}
