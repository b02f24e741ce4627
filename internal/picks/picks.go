package picks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"footpicks_go/internal/market"
	"footpicks_go/internal/prediction"

	"github.com/google/uuid"
)

// DefaultCount is the size of the daily shortlist.
const DefaultCount = 5

// Pick is one entry of a day's shortlist. Fixture fields are copied at selection
// time so later fixture changes cannot alter a published day.
type Pick struct {
	ID          string           `json:"id"`
	Date        string           `json:"date"`
	Rank        int              `json:"rank"`
	FixtureID   int64            `json:"fixtureId"`
	HomeTeam    string           `json:"homeTeam"`
	AwayTeam    string           `json:"awayTeam"`
	Competition string           `json:"competition"`
	Kickoff     time.Time        `json:"kickoff"`
	Market      string           `json:"market"`
	Pick        string           `json:"pick"`
	Confidence  int              `json:"confidence"`
	Odds        float64          `json:"odds"`
	Selection   market.Selection `json:"selection"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Label is "Home vs Away".
func (p Pick) Label() string { return p.HomeTeam + " vs " + p.AwayTeam }

// Select takes each prediction's top market, ranks them by confidence and returns
// at most n, one per fixture.
func Select(preds []prediction.MatchPrediction, n int) []Pick {
	if n <= 0 {
		return nil
	}
	cands := make([]Pick, 0, len(preds))
	for _, p := range preds {
		top, ok := p.Top()
		if !ok {
			continue
		}
		cands = append(cands, Pick{
			FixtureID:   p.FixtureID,
			HomeTeam:    p.HomeTeam,
			AwayTeam:    p.AwayTeam,
			Competition: p.Competition,
			Kickoff:     p.Kickoff,
			Market:      top.Market,
			Pick:        top.Pick,
			Confidence:  top.Confidence,
			Odds:        top.Odds,
			Selection:   top.Selection,
		})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Confidence > cands[j].Confidence })

	out := make([]Pick, 0, n)
	seen := make(map[int64]bool, n)
	for _, c := range cands {
		if seen[c.FixtureID] {
			continue
		}
		seen[c.FixtureID] = true
		c.Rank = len(out) + 1
		out = append(out, c)
		if len(out) == n {
			break
		}
	}
	return out
}

// Store persists daily picks. SavePicks must store at most one set per date and
// report false when a set already existed.
type Store interface {
	HasPicks(ctx context.Context, date string) (bool, error)
	SavePicks(ctx context.Context, date string, picks []Pick) (bool, error)
	Picks(ctx context.Context, date string) ([]Pick, error)
}

// PredictionSource supplies the current predictions.
type PredictionSource interface {
	Predictions(ctx context.Context) ([]prediction.MatchPrediction, error)
}

// Publisher announces a freshly generated day.
type Publisher interface {
	PublishPicks(ctx context.Context, date string, picks []Pick) error
}

// Generator produces and stores the daily shortlist.
type Generator struct {
	source    PredictionSource
	store     Store
	publisher Publisher
	count     int
	now       func() time.Time
}

// NewGenerator returns a Generator. publisher may be nil.
func NewGenerator(source PredictionSource, store Store, publisher Publisher, count int) *Generator {
	if count <= 0 {
		count = DefaultCount
	}
	return &Generator{source: source, store: store, publisher: publisher, count: count, now: time.Now}
}

// DateKey is the UTC calendar date used as the picks key.
func DateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// GenerateForDay builds picks for the UTC day containing day. It does nothing when
// the store already holds picks for that date. Only fixtures that have not started
// and kick off that day are eligible.
func (g *Generator) GenerateForDay(ctx context.Context, day time.Time) (bool, error) {
	date := DateKey(day)
	exists, err := g.store.HasPicks(ctx, date)
	if err != nil {
		return false, fmt.Errorf("check picks %s: %w", date, err)
	}
	if exists {
		slog.Info("picks: already generated", "date", date)
		return false, nil
	}

	preds, err := g.source.Predictions(ctx)
	if err != nil {
		return false, fmt.Errorf("load predictions: %w", err)
	}
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)
	eligible := make([]prediction.MatchPrediction, 0, len(preds))
	for _, p := range preds {
		if p.Status.Finished() || p.Score != nil {
			continue
		}
		if p.Kickoff.Before(start) || !p.Kickoff.Before(end) {
			continue
		}
		eligible = append(eligible, p)
	}
	selected := Select(eligible, g.count)
	if len(selected) == 0 {
		slog.Info("picks: no eligible fixtures", "date", date, "predictions", len(preds))
		return false, nil
	}
	created := g.now().UTC()
	for i := range selected {
		selected[i].ID = uuid.NewString()
		selected[i].Date = date
		selected[i].CreatedAt = created
	}

	saved, err := g.store.SavePicks(ctx, date, selected)
	if err != nil {
		return false, fmt.Errorf("save picks %s: %w", date, err)
	}
	if !saved {
		slog.Info("picks: another run saved this date first", "date", date)
		return false, nil
	}
	slog.Info("picks: generated", "date", date, "count", len(selected), "top_confidence", selected[0].Confidence)
	if g.publisher != nil {
		if err := g.publisher.PublishPicks(ctx, date, selected); err != nil {
			slog.Warn("picks: publish failed", "date", date, "error", err)
		}
	}
	return true, nil
}

// NextRun returns the first hour:minute UTC strictly after now.
func NextRun(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run generates once immediately to catch up on a missed slot, then at hour:minute
// UTC every day until ctx is done.
func (g *Generator) Run(ctx context.Context, hour, minute int) {
	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if _, err := g.GenerateForDay(runCtx, g.now()); err != nil {
			slog.Warn("picks: generation failed", "error", err)
		}
	}
	run()
	timer := time.NewTimer(time.Until(NextRun(g.now(), hour, minute)))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			run()
			timer.Reset(time.Until(NextRun(g.now(), hour, minute)))
		}
	}
}
