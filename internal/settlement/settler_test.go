package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"footpicks_go/internal/bankroll"
	"footpicks_go/internal/footballdata"
	"footpicks_go/internal/prediction"

	"github.com/shopspring/decimal"
)

type memStore struct {
	mu       sync.Mutex
	entries  []*bankroll.Entry
	outcomes map[string]bankroll.DayStats
	refuse   bool
}

func newMemStore(es ...bankroll.Entry) *memStore {
	s := &memStore{outcomes: map[string]bankroll.DayStats{}}
	for i := range es {
		e := es[i]
		e.Result = bankroll.Pending
		s.entries = append(s.entries, &e)
	}
	return s
}

func (s *memStore) CreateEntry(_ context.Context, e *bankroll.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *memStore) Entry(_ context.Context, id string) (*bankroll.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			c := *e
			return &c, nil
		}
	}
	return nil, bankroll.ErrNotFound
}

func (s *memStore) Entries(context.Context) ([]bankroll.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bankroll.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out, nil
}

func (s *memStore) PendingEntries(context.Context) ([]bankroll.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []bankroll.Entry
	for _, e := range s.entries {
		if e.Result == bankroll.Pending {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *memStore) Settle(_ context.Context, id string, r bankroll.Result, payout decimal.Decimal, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refuse {
		return false, nil
	}
	for _, e := range s.entries {
		if e.ID == id {
			if e.Result != bankroll.Pending {
				return false, nil
			}
			e.Result, e.Payout, e.SettledAt = r, payout, &at
			return true, nil
		}
	}
	return false, bankroll.ErrNotFound
}

func (s *memStore) RecordOutcome(_ context.Context, date string, r bankroll.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.outcomes[date]
	d.Date = date
	switch r {
	case bankroll.Won:
		d.Won++
	case bankroll.Lost:
		d.Lost++
	case bankroll.Void:
		d.Void++
	}
	s.outcomes[date] = d
	return nil
}

func (s *memStore) DayStats(_ context.Context, date string) (bankroll.DayStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcomes[date], nil
}

func (s *memStore) get(id string) bankroll.Entry {
	e, _ := s.Entry(context.Background(), id)
	return *e
}

type fakeFixtures struct {
	byID         map[int64]footballdata.Fixture
	recent       []footballdata.Fixture
	lookups      []int64
	batchLookups int
}

func (f *fakeFixtures) Fixture(_ context.Context, id int64) (*footballdata.Fixture, error) {
	f.lookups = append(f.lookups, id)
	fx, ok := f.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &fx, nil
}

func (f *fakeFixtures) Fixtures(_ context.Context, _, _ time.Time, _ []string) (*footballdata.Batch, error) {
	f.batchLookups++
	return &footballdata.Batch{Fixtures: f.recent}, nil
}

type fakeSnapshot []prediction.MatchPrediction

func (s fakeSnapshot) LoadSnapshot(context.Context) ([]prediction.MatchPrediction, error) {
	return s, nil
}

type fakePublisher struct{ got []bankroll.Entry }

func (p *fakePublisher) PublishSettlement(_ context.Context, e bankroll.Entry) error {
	p.got = append(p.got, e)
	return nil
}

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func fixture(id int64, home, away string, status footballdata.Status, score *footballdata.Score, kickoff time.Time) footballdata.Fixture {
	return footballdata.Fixture{
		ID:       id,
		HomeTeam: footballdata.Team{ID: id * 10, Name: home},
		AwayTeam: footballdata.Team{ID: id*10 + 1, Name: away},
		Kickoff:  kickoff,
		Status:   status,
		Score:    score,
	}
}

func TestSettler_Run(t *testing.T) {
	now := time.Date(2026, 3, 8, 22, 0, 0, 0, time.UTC)
	earlier := now.Add(-5 * time.Hour)
	later := now.Add(24 * time.Hour)

	store := newMemStore(
		bankroll.Entry{ID: "snap", FixtureID: 10, MatchLabel: "Arsenal vs Chelsea", Market: "1X2", Pick: "Arsenal Win",
			Stake: dec("10"), Odds: dec("1.85"), Kickoff: &earlier},
		bankroll.Entry{ID: "live", FixtureID: 11, MatchLabel: "Leeds vs Fulham", Market: "No Bet (Draw No Bet)", Pick: "Leeds",
			Stake: dec("4"), Kickoff: &earlier},
		bankroll.Entry{ID: "inplay", FixtureID: 12, MatchLabel: "Wolves vs Brentford", Market: "1X2", Pick: "Draw", Kickoff: &earlier},
		bankroll.Entry{ID: "label", MatchLabel: "Spurs  vs everton", Market: "1X2", Pick: "Everton Win"},
		bankroll.Entry{ID: "halftime", FixtureID: 10, MatchLabel: "Arsenal vs Chelsea", Market: "Halftime Result", Pick: "Arsenal"},
		bankroll.Entry{ID: "future", FixtureID: 13, MatchLabel: "Leeds vs Spurs", Market: "1X2", Pick: "Draw", Kickoff: &later},
	)
	fixtures := &fakeFixtures{
		byID: map[int64]footballdata.Fixture{
			11: fixture(11, "Leeds", "Fulham", footballdata.StatusFinished, &footballdata.Score{Home: 1, Away: 1}, earlier),
			12: fixture(12, "Wolves", "Brentford", footballdata.StatusInPlay, &footballdata.Score{Home: 0, Away: 0}, earlier),
		},
		recent: []footballdata.Fixture{
			fixture(14, "Spurs", "Everton", footballdata.StatusFinished, &footballdata.Score{Home: 0, Away: 2}, earlier),
		},
	}
	snapshot := fakeSnapshot{{
		FixtureID: 10, HomeTeam: "Arsenal", AwayTeam: "Chelsea", Kickoff: earlier,
		Status: footballdata.StatusFinished, Score: &footballdata.Score{Home: 2, Away: 1},
	}}
	pub := &fakePublisher{}

	s := NewSettler(Config{Store: store, Fixtures: fixtures, Snapshots: snapshot, Publisher: pub, LookupDelay: time.Second})
	s.now = func() time.Time { return now }
	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := Report{Checked: 6, Won: 2, Void: 1, Unresolvable: 3}
	if rep != want {
		t.Errorf("report = %+v; want %+v", rep, want)
	}

	checks := []struct {
		id     string
		result bankroll.Result
		payout string
	}{
		{"snap", bankroll.Won, "18.5"},
		{"live", bankroll.Void, "4"},
		{"inplay", bankroll.Pending, "0"},
		{"label", bankroll.Won, "2"},
		{"halftime", bankroll.Pending, "0"},
		{"future", bankroll.Pending, "0"},
	}
	for _, c := range checks {
		e := store.get(c.id)
		if e.Result != c.result || !e.Payout.Equal(decimal.RequireFromString(c.payout)) {
			t.Errorf("%s = %s / %s; want %s / %s", c.id, e.Result, e.Payout, c.result, c.payout)
		}
		if c.result == bankroll.Pending && e.SettledAt != nil {
			t.Errorf("%s: pending entry has settledAt", c.id)
		}
	}

	if len(fixtures.lookups) != 2 || fixtures.lookups[0] != 11 || fixtures.lookups[1] != 12 {
		t.Errorf("live lookups = %v; want [11 12]", fixtures.lookups)
	}
	if fixtures.batchLookups != 1 {
		t.Errorf("batch lookups = %d; want 1", fixtures.batchLookups)
	}
	if len(slept) != 2 || slept[0] != time.Second {
		t.Errorf("slept = %v; want two 1s gaps between three upstream calls", slept)
	}

	stats, _ := store.DayStats(context.Background(), "2026-03-08")
	if stats.Won != 2 || stats.Void != 1 || stats.Lost != 0 {
		t.Errorf("day stats = %+v", stats)
	}
	if len(pub.got) != 3 {
		t.Errorf("published %d settlements; want 3", len(pub.got))
	}
	for _, e := range pub.got {
		if !e.Result.Terminal() || e.SettledAt == nil {
			t.Errorf("published %s in state %s", e.ID, e.Result)
		}
	}

	// A second pass only revisits what is still pending.
	rep, err = s.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if rep.Checked != 3 || rep.Won+rep.Lost+rep.Void != 0 {
		t.Errorf("second report = %+v; want 3 checked, none settled", rep)
	}
	if len(pub.got) != 3 {
		t.Errorf("second pass published again: %d", len(pub.got))
	}
}

func TestSettler_LostRaceIsNotCounted(t *testing.T) {
	now := time.Date(2026, 3, 8, 22, 0, 0, 0, time.UTC)
	store := newMemStore(bankroll.Entry{ID: "a", FixtureID: 10, MatchLabel: "Arsenal vs Chelsea", Market: "1X2", Pick: "Arsenal Win"})
	store.refuse = true
	snapshot := fakeSnapshot{{
		FixtureID: 10, HomeTeam: "Arsenal", AwayTeam: "Chelsea",
		Status: footballdata.StatusFinished, Score: &footballdata.Score{Home: 2, Away: 1},
	}}
	pub := &fakePublisher{}
	s := NewSettler(Config{Store: store, Snapshots: snapshot, Publisher: pub})
	s.now = func() time.Time { return now }

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Raced != 1 || rep.Won != 0 {
		t.Errorf("report = %+v; want one raced", rep)
	}
	if stats, _ := store.DayStats(context.Background(), "2026-03-08"); stats.Won != 0 {
		t.Errorf("raced entry recorded: %+v", stats)
	}
	if len(pub.got) != 0 {
		t.Errorf("raced entry published")
	}
}

func TestSettler_ConcurrentRunsSettleOnce(t *testing.T) {
	store := newMemStore(
		bankroll.Entry{ID: "a", FixtureID: 10, MatchLabel: "Arsenal vs Chelsea", Market: "1X2", Pick: "Arsenal Win"},
		bankroll.Entry{ID: "b", FixtureID: 10, MatchLabel: "Arsenal vs Chelsea", Market: "Correct Score", Pick: "2-1"},
	)
	snapshot := fakeSnapshot{{
		FixtureID: 10, HomeTeam: "Arsenal", AwayTeam: "Chelsea",
		Status: footballdata.StatusFinished, Score: &footballdata.Score{Home: 2, Away: 1},
	}}

	var wg sync.WaitGroup
	reps := make([]Report, 4)
	for i := range reps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := NewSettler(Config{Store: store, Snapshots: snapshot})
			reps[i], _ = s.Run(context.Background())
		}(i)
	}
	wg.Wait()

	won := 0
	for _, r := range reps {
		won += r.Won
	}
	if won != 2 {
		t.Errorf("settled %d times across runs; want 2", won)
	}
	total := 0
	for _, d := range store.outcomes {
		total += d.Won
	}
	if total != 2 {
		t.Errorf("recorded %d wins; want 2", total)
	}
}

func TestSettler_NothingPending(t *testing.T) {
	fixtures := &fakeFixtures{}
	s := NewSettler(Config{Store: newMemStore(), Fixtures: fixtures})
	rep, err := s.Run(context.Background())
	if err != nil || rep.Checked != 0 {
		t.Errorf("Run = %+v, %v", rep, err)
	}
	if len(fixtures.lookups) != 0 || fixtures.batchLookups != 0 {
		t.Errorf("upstream called with nothing pending")
	}
}
