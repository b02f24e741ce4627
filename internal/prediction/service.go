package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"footpicks_go/internal/cache"
	"footpicks_go/internal/footballdata"
	"footpicks_go/internal/strength"
)

const defaultKey = "default"

// FixtureSource lists fixtures for a date range.
type FixtureSource interface {
	Fixtures(ctx context.Context, from, to time.Time, competitions []string) (*footballdata.Batch, error)
}

// StrengthSource supplies the latest strength tables.
type StrengthSource interface {
	ReadTables(ctx context.Context) (strength.Tables, error)
}

// SnapshotStore persists the last good default prediction list.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, preds []MatchPrediction) error
	LoadSnapshot(ctx context.Context) ([]MatchPrediction, error)
}

// Service produces predictions. The default window is cached; explicit ranges are not.
type Service struct {
	fixtures     FixtureSource
	strengths    StrengthSource
	snapshots    SnapshotStore
	assembler    *Assembler
	cache        *cache.TTL[string, []MatchPrediction]
	competitions []string
	windowDays   int
	now          func() time.Time
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Fixtures     FixtureSource
	Strengths    StrengthSource
	Snapshots    SnapshotStore // optional
	Assembler    *Assembler
	Cache        *cache.TTL[string, []MatchPrediction]
	Competitions []string
	WindowDays   int
	Now          func() time.Time
}

// NewService returns a Service. A nil Cache disables caching of the default window.
func NewService(cfg ServiceConfig) *Service {
	if cfg.WindowDays < 1 {
		cfg.WindowDays = 7
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		fixtures:     cfg.Fixtures,
		strengths:    cfg.Strengths,
		snapshots:    cfg.Snapshots,
		assembler:    cfg.Assembler,
		cache:        cfg.Cache,
		competitions: cfg.Competitions,
		windowDays:   cfg.WindowDays,
		now:          cfg.Now,
	}
}

// DefaultWindow is yesterday 00:00 UTC through today + windowDays. Yesterday is
// included so recently finished fixtures remain visible for settlement.
func (s *Service) DefaultWindow() (time.Time, time.Time) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	return today.AddDate(0, 0, -1), today.AddDate(0, 0, s.windowDays)
}

// Predictions returns the default-window predictions, served from cache within its TTL.
func (s *Service) Predictions(ctx context.Context) ([]MatchPrediction, error) {
	if s.cache == nil {
		return s.loadDefault(ctx)
	}
	return s.cache.Get(ctx, defaultKey, s.loadDefault)
}

// Range generates predictions for an explicit range, uncached.
func (s *Service) Range(ctx context.Context, from, to time.Time) ([]MatchPrediction, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s before %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	return s.Generate(ctx, from, to)
}

// Find returns the default-window prediction for a fixture.
func (s *Service) Find(ctx context.Context, fixtureID int64) (*MatchPrediction, error) {
	preds, err := s.Predictions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range preds {
		if preds[i].FixtureID == fixtureID {
			return &preds[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *Service) loadDefault(ctx context.Context) ([]MatchPrediction, error) {
	from, to := s.DefaultWindow()
	preds, err := s.Generate(ctx, from, to)
	if err != nil {
		if s.snapshots == nil {
			return nil, err
		}
		snap, serr := s.snapshots.LoadSnapshot(ctx)
		if serr != nil || len(snap) == 0 {
			return nil, errors.Join(err, serr)
		}
		slog.Warn("prediction: fixture source unavailable, serving snapshot", "error", err, "count", len(snap))
		return snap, nil
	}
	if s.snapshots != nil && len(preds) > 0 {
		if err := s.snapshots.SaveSnapshot(ctx, preds); err != nil {
			slog.Warn("prediction: save snapshot failed", "error", err)
		}
	}
	return preds, nil
}

// Generate fetches fixtures and assembles a prediction for each, one at a time.
// A fixture that fails is logged and skipped.
func (s *Service) Generate(ctx context.Context, from, to time.Time) ([]MatchPrediction, error) {
	batch, err := s.fixtures.Fixtures(ctx, from, to, s.competitions)
	if err != nil {
		return nil, fmt.Errorf("fetch fixtures: %w", err)
	}
	tables, err := s.strengths.ReadTables(ctx)
	if err != nil {
		slog.Warn("prediction: strength tables unavailable, using league averages", "error", err)
		tables = strength.Tables{}
	}

	out := make([]MatchPrediction, 0, len(batch.Fixtures))
	for _, f := range batch.Fixtures {
		p, err := s.assembler.Assemble(f, tables)
		if err != nil {
			slog.Warn("prediction: fixture skipped", "fixture_id", f.ID, "error", err)
			continue
		}
		out = append(out, *p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Kickoff.Before(out[j].Kickoff) })
	slog.Info("prediction: generated", "fixtures", len(batch.Fixtures), "predictions", len(out), "quarantined", len(batch.Quarantined))
	return out, nil
}
