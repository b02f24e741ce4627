package prediction

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"footpicks_go/internal/footballdata"
	"footpicks_go/internal/market"
	"footpicks_go/internal/model"
	"footpicks_go/internal/strength"
)

// ErrNotFound is returned when no prediction exists for a fixture.
var ErrNotFound = errors.New("prediction not found")

// MatchPrediction is the assembled output for one fixture. It is never mutated;
// the next cycle replaces it.
type MatchPrediction struct {
	FixtureID         int64                     `json:"fixtureId"`
	HomeTeamID        int64                     `json:"homeTeamId"`
	AwayTeamID        int64                     `json:"awayTeamId"`
	HomeTeam          string                    `json:"homeTeam"`
	AwayTeam          string                    `json:"awayTeam"`
	Competition       string                    `json:"competition"`
	CompetitionName   string                    `json:"competitionName,omitempty"`
	Kickoff           time.Time                 `json:"kickoff"`
	Status            footballdata.Status       `json:"status"`
	Score             *footballdata.Score       `json:"score,omitempty"`
	HomeWinPct        int                       `json:"homeWinPct"`
	DrawPct           int                       `json:"drawPct"`
	AwayWinPct        int                       `json:"awayWinPct"`
	HomeXG            float64                   `json:"homeXg"`
	AwayXG            float64                   `json:"awayXg"`
	Markets           []market.PredictionMarket `json:"markets"`
	Summary           string                    `json:"aiSummary"`
	OverallConfidence string                    `json:"overallConfidence"`
	GeneratedAt       time.Time                 `json:"generatedAt"`
}

// Label is "Home vs Away".
func (p MatchPrediction) Label() string {
	return p.HomeTeam + " vs " + p.AwayTeam
}

// Top returns the highest-confidence market.
func (p MatchPrediction) Top() (market.PredictionMarket, bool) {
	if len(p.Markets) == 0 {
		return market.PredictionMarket{}, false
	}
	return p.Markets[0], true
}

// Market returns the named market.
func (p MatchPrediction) Market(name string) (market.PredictionMarket, bool) {
	for _, m := range p.Markets {
		if m.Market == name {
			return m, true
		}
	}
	return market.PredictionMarket{}, false
}

// Finished reports whether the fixture has a final score.
func (p MatchPrediction) Finished() bool {
	return p.Status.Finished() && p.Score != nil
}

// Assembler combines the probability engine and market generator into predictions.
type Assembler struct {
	engine  *model.Engine
	markets *market.Generator
	now     func() time.Time
}

// NewAssembler returns an Assembler.
func NewAssembler(engine *model.Engine, markets *market.Generator) *Assembler {
	return &Assembler{engine: engine, markets: markets, now: time.Now}
}

// Assemble builds the prediction for one fixture. Teams missing from tables get
// league-average strength.
func (a *Assembler) Assemble(f footballdata.Fixture, tables strength.Tables) (*MatchPrediction, error) {
	if f.HomeTeam.ID != 0 && f.HomeTeam.ID == f.AwayTeam.ID {
		return nil, fmt.Errorf("fixture %d: home and away are the same team", f.ID)
	}
	homeName, awayName := f.HomeTeam.DisplayName(), f.AwayTeam.DisplayName()
	home, avg := tables.Lookup(f.Competition.Code, f.HomeTeam.ID, homeName)
	away, _ := tables.Lookup(f.Competition.Code, f.AwayTeam.ID, awayName)

	d := a.engine.Predict(home, away, model.DefaultVenue(avg))
	hp, dp, ap := d.Percentages()
	ms := a.markets.Build(d, market.Teams{Home: homeName, Away: awayName})

	p := &MatchPrediction{
		FixtureID:         f.ID,
		HomeTeamID:        f.HomeTeam.ID,
		AwayTeamID:        f.AwayTeam.ID,
		HomeTeam:          homeName,
		AwayTeam:          awayName,
		Competition:       f.Competition.Code,
		CompetitionName:   f.Competition.Name,
		Kickoff:           f.Kickoff,
		Status:            f.Status,
		Score:             f.Score,
		HomeWinPct:        hp,
		DrawPct:           dp,
		AwayWinPct:        ap,
		HomeXG:            d.HomeXG,
		AwayXG:            d.AwayXG,
		Markets:           ms,
		OverallConfidence: market.OverallConfidence(ms),
		GeneratedAt:       a.now().UTC(),
	}
	h, aw, _ := d.MostLikelyScore()
	p.Summary = summarize(p, h, aw, home.Default || away.Default)
	return p, nil
}

func summarize(p *MatchPrediction, h, a int, estimated bool) string {
	var b strings.Builder
	switch {
	case p.HomeWinPct >= p.AwayWinPct+15:
		fmt.Fprintf(&b, "%s are favourites at home against %s (%d%%).", p.HomeTeam, p.AwayTeam, p.HomeWinPct)
	case p.AwayWinPct >= p.HomeWinPct+15:
		fmt.Fprintf(&b, "%s are favoured away at %s (%d%%).", p.AwayTeam, p.HomeTeam, p.AwayWinPct)
	default:
		fmt.Fprintf(&b, "%s vs %s looks evenly balanced (%d/%d/%d).", p.HomeTeam, p.AwayTeam, p.HomeWinPct, p.DrawPct, p.AwayWinPct)
	}
	fmt.Fprintf(&b, " Expected goals %.1f-%.1f, most likely score %d-%d.", p.HomeXG, p.AwayXG, h, a)
	if top, ok := p.Top(); ok {
		fmt.Fprintf(&b, " Top pick: %s %s (%d%%).", top.Market, top.Pick, top.Confidence)
	}
	if estimated {
		b.WriteString(" Team ratings are estimated from league averages.")
	}
	return b.String()
}
