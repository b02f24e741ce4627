package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"footpicks_go/internal/bankroll"
	"footpicks_go/internal/footballdata"
	"footpicks_go/internal/prediction"
)

// DefaultLookupDelay spaces live fixture lookups to respect the upstream rate limit.
const DefaultLookupDelay = 6 * time.Second

// FixtureSource is the live match-data source.
type FixtureSource interface {
	Fixture(ctx context.Context, id int64) (*footballdata.Fixture, error)
	Fixtures(ctx context.Context, from, to time.Time, competitions []string) (*footballdata.Batch, error)
}

// SnapshotSource returns the last stored prediction list.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context) ([]prediction.MatchPrediction, error)
}

// Publisher announces settled entries.
type Publisher interface {
	PublishSettlement(ctx context.Context, e bankroll.Entry) error
}

// Report summarises one settlement pass.
type Report struct {
	Checked      int `json:"checked"`
	Won          int `json:"won"`
	Lost         int `json:"lost"`
	Void         int `json:"void"`
	Unresolvable int `json:"unresolvable"`
	// Raced counts entries another pass settled first.
	Raced  int `json:"raced"`
	Errors int `json:"errors"`
}

// Settler grades pending bankroll entries against finished fixtures.
type Settler struct {
	store        bankroll.Store
	fixtures     FixtureSource
	snapshots    SnapshotSource
	publisher    Publisher
	delay        time.Duration
	lookbackDays int
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

// Config wires a Settler. Snapshots and Publisher are optional.
type Config struct {
	Store        bankroll.Store
	Fixtures     FixtureSource
	Snapshots    SnapshotSource
	Publisher    Publisher
	LookupDelay  time.Duration
	LookbackDays int
}

// NewSettler returns a Settler.
func NewSettler(cfg Config) *Settler {
	if cfg.LookupDelay < 0 {
		cfg.LookupDelay = DefaultLookupDelay
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 3
	}
	return &Settler{
		store:        cfg.Store,
		fixtures:     cfg.Fixtures,
		snapshots:    cfg.Snapshots,
		publisher:    cfg.Publisher,
		delay:        cfg.LookupDelay,
		lookbackDays: cfg.LookbackDays,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// pass holds the fixtures resolved during one Run.
type pass struct {
	byID      map[int64]*footballdata.Fixture
	byLabel   map[string]*footballdata.Fixture
	lookups   int
	batchDone bool
}

// Run settles every pending entry it can. It is safe to run concurrently with
// itself: the store only moves entries that are still pending.
func (s *Settler) Run(ctx context.Context) (Report, error) {
	var rep Report
	pending, err := s.store.PendingEntries(ctx)
	if err != nil {
		return rep, fmt.Errorf("read pending entries: %w", err)
	}
	if len(pending) == 0 {
		return rep, nil
	}
	p := &pass{byID: map[int64]*footballdata.Fixture{}, byLabel: map[string]*footballdata.Fixture{}}
	s.loadSnapshot(ctx, p)

	for _, e := range pending {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		rep.Checked++
		f := s.resolve(ctx, p, e)
		v := GradeFixture(f, e.Market, e.Pick, e.Selection)
		if v == Unresolvable {
			rep.Unresolvable++
			slog.Info("settlement: unresolvable, leaving pending", "entry_id", e.ID, "market", e.Market, "pick", e.Pick, "fixture_found", f != nil)
			continue
		}

		result := toResult(v)
		payout := bankroll.Payout(result, e.Stake, e.Odds)
		at := s.now().UTC()
		changed, err := s.store.Settle(ctx, e.ID, result, payout, at)
		if err != nil {
			rep.Errors++
			slog.Warn("settlement: settle failed", "entry_id", e.ID, "error", err)
			continue
		}
		if !changed {
			rep.Raced++
			slog.Info("settlement: entry already settled", "entry_id", e.ID)
			continue
		}
		switch result {
		case bankroll.Won:
			rep.Won++
		case bankroll.Lost:
			rep.Lost++
		case bankroll.Void:
			rep.Void++
		}
		slog.Info("settlement: entry settled", "entry_id", e.ID, "result", result, "payout", payout.String(), "score", f.Score.String())
		if err := s.store.RecordOutcome(ctx, at.Format(time.DateOnly), result); err != nil {
			slog.Warn("settlement: record outcome failed", "entry_id", e.ID, "error", err)
		}
		if s.publisher != nil {
			e.Result, e.Payout, e.SettledAt = result, payout, &at
			if err := s.publisher.PublishSettlement(ctx, e); err != nil {
				slog.Warn("settlement: publish failed", "entry_id", e.ID, "error", err)
			}
		}
	}
	slog.Info("settlement: pass complete", "checked", rep.Checked, "won", rep.Won, "lost", rep.Lost,
		"void", rep.Void, "unresolvable", rep.Unresolvable, "raced", rep.Raced, "errors", rep.Errors)
	return rep, nil
}

func toResult(v Verdict) bankroll.Result {
	switch v {
	case Won:
		return bankroll.Won
	case Lost:
		return bankroll.Lost
	case Void:
		return bankroll.Void
	}
	return bankroll.Pending
}

func (s *Settler) loadSnapshot(ctx context.Context, p *pass) {
	if s.snapshots == nil {
		return
	}
	preds, err := s.snapshots.LoadSnapshot(ctx)
	if err != nil {
		slog.Warn("settlement: snapshot unavailable", "error", err)
		return
	}
	for _, mp := range preds {
		f := &footballdata.Fixture{
			ID:          mp.FixtureID,
			Competition: footballdata.Competition{Code: mp.Competition, Name: mp.CompetitionName},
			HomeTeam:    footballdata.Team{ID: mp.HomeTeamID, Name: mp.HomeTeam},
			AwayTeam:    footballdata.Team{ID: mp.AwayTeamID, Name: mp.AwayTeam},
			Kickoff:     mp.Kickoff,
			Status:      mp.Status,
			Score:       mp.Score,
		}
		p.remember(f)
	}
}

func (p *pass) remember(f *footballdata.Fixture) {
	if prev, ok := p.byID[f.ID]; ok && prev.Settled() && !f.Settled() {
		return
	}
	p.byID[f.ID] = f
	p.byLabel[labelKey(f.Label())] = f
}

// resolve finds a finished fixture for e: the snapshot first, then the live source.
func (s *Settler) resolve(ctx context.Context, p *pass, e bankroll.Entry) *footballdata.Fixture {
	if e.FixtureID != 0 {
		if f, ok := p.byID[e.FixtureID]; ok && f.Settled() {
			return f
		}
		if e.Kickoff != nil && e.Kickoff.After(s.now()) {
			return nil
		}
		if s.fixtures == nil {
			return nil
		}
		if p.lookups > 0 {
			if err := s.sleep(ctx, s.delay); err != nil {
				return nil
			}
		}
		p.lookups++
		f, err := s.fixtures.Fixture(ctx, e.FixtureID)
		if err != nil {
			slog.Warn("settlement: fixture lookup failed", "fixture_id", e.FixtureID, "error", err)
			return nil
		}
		p.remember(f)
		if !f.Settled() {
			return nil
		}
		return f
	}

	key := labelKey(e.MatchLabel)
	if f, ok := p.byLabel[key]; ok && f.Settled() {
		return f
	}
	if s.fixtures == nil || p.batchDone {
		return nil
	}
	// entries logged without a fixture id are matched by label against recent results
	p.batchDone = true
	if p.lookups > 0 {
		if err := s.sleep(ctx, s.delay); err != nil {
			return nil
		}
	}
	p.lookups++
	now := s.now().UTC()
	b, err := s.fixtures.Fixtures(ctx, now.AddDate(0, 0, -s.lookbackDays), now, nil)
	if err != nil {
		slog.Warn("settlement: recent fixtures lookup failed", "error", err)
		return nil
	}
	for i := range b.Fixtures {
		p.remember(&b.Fixtures[i])
	}
	if f, ok := p.byLabel[key]; ok && f.Settled() {
		return f
	}
	return nil
}

func labelKey(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}
