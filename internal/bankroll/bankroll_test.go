package bankroll

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestPayout(t *testing.T) {
	cases := []struct {
		r     Result
		stake decimal.NullDecimal
		odds  decimal.NullDecimal
		want  string
	}{
		{Won, dec("10"), dec("1.85"), "18.5"},
		{Void, dec("10"), dec("1.85"), "10"},
		{Lost, dec("10"), dec("1.85"), "0"},
		{Pending, dec("10"), dec("1.85"), "0"},
		{Won, decimal.NullDecimal{}, dec("3"), "3"},
		{Won, dec("5"), decimal.NullDecimal{}, "10"},
	}
	for _, tc := range cases {
		if got := Payout(tc.r, tc.stake, tc.odds); !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("Payout(%s) = %s; want %s", tc.r, got, tc.want)
		}
	}
}

func TestNewEntry(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e, err := NewEntry(Entry{MatchLabel: "Arsenal vs Chelsea", Market: "1X2", Pick: "Arsenal Win", Stake: dec("10")}, now)
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	if e.ID == "" || e.Result != Pending || !e.Payout.IsZero() {
		t.Errorf("entry = %+v; want pending with id", e)
	}
	if e.HomeTeam != "Arsenal" || e.AwayTeam != "Chelsea" {
		t.Errorf("teams = %q, %q; want split from label", e.HomeTeam, e.AwayTeam)
	}

	bad := []Entry{
		{MatchLabel: "A vs B", Pick: "x"},
		{Market: "1X2", Pick: "A Win"},
		{MatchLabel: "A vs B", Market: "1X2", Pick: "A Win", Stake: dec("0")},
		{MatchLabel: "A vs B", Market: "1X2", Pick: "A Win", Odds: dec("0.5")},
	}
	for i, b := range bad {
		if _, err := NewEntry(b, now); !errors.Is(err, ErrInvalidEntry) {
			t.Errorf("case %d: err = %v; want ErrInvalidEntry", i, err)
		}
	}
}

func TestSplitLabel(t *testing.T) {
	if h, a := SplitLabel("Man City vs Liverpool"); h != "Man City" || a != "Liverpool" {
		t.Errorf("SplitLabel = %q, %q", h, a)
	}
	if h, a := SplitLabel("no separator"); h != "" || a != "" {
		t.Errorf("SplitLabel(bad) = %q, %q; want empty", h, a)
	}
}

func TestSummarize(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	at := func(h int) *time.Time { v := t0.Add(time.Duration(h) * time.Hour); return &v }
	entries := []Entry{
		{Result: Won, Stake: dec("10"), Payout: decimal.RequireFromString("20"), SettledAt: at(1)},
		{Result: Lost, Stake: dec("10"), Payout: decimal.Zero, SettledAt: at(2)},
		{Result: Won, Stake: dec("10"), Payout: decimal.RequireFromString("15"), SettledAt: at(3)},
		{Result: Void, Stake: dec("10"), Payout: decimal.RequireFromString("10"), SettledAt: at(4)},
		{Result: Won, Stake: dec("10"), Payout: decimal.RequireFromString("18"), SettledAt: at(5)},
		{Result: Pending, Stake: dec("10")},
	}
	s := Summarize(entries)
	if s.Total != 6 || s.Pending != 1 || s.Won != 3 || s.Lost != 1 || s.Void != 1 {
		t.Errorf("counts = %+v", s)
	}
	if !s.Staked.Equal(decimal.NewFromInt(50)) || !s.Returned.Equal(decimal.NewFromInt(63)) || !s.Profit.Equal(decimal.NewFromInt(13)) {
		t.Errorf("money = staked %s returned %s profit %s", s.Staked, s.Returned, s.Profit)
	}
	if s.Streak != 2 {
		t.Errorf("Streak = %d; want 2 (void skipped)", s.Streak)
	}
}
