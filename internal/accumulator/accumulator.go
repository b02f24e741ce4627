package accumulator

import (
	"encoding/json"
	"sort"
	"time"

	"footpicks_go/internal/footballdata"
	"footpicks_go/internal/market"
	"footpicks_go/internal/prediction"

	"github.com/shopspring/decimal"
)

const (
	DefaultTargetLegs = 25
	MinWindowDays     = 7
	// CapDisplay is shown instead of combined odds above DisplayCap.
	CapDisplay = "over 999,999"
)

// DisplayCap is the largest combined price shown as a number.
var DisplayCap = decimal.NewFromInt(999999)

// Leg is one fixture's selection.
type Leg struct {
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
}

// Accumulator is a multi-leg combination built fresh on every request.
type Accumulator struct {
	Legs         []Leg
	CombinedOdds decimal.Decimal
	DaySpread    int
	LeagueCount  int
	From         time.Time
	To           time.Time
}

// Options control eligibility. WindowDays below MinWindowDays is raised to it.
type Options struct {
	TargetLegs int
	WindowDays int
	Now        time.Time
}

// Build takes one leg per upcoming fixture in [Now, Now+WindowDays], in kickoff
// order, until TargetLegs is reached. Zero eligible fixtures give an empty
// accumulator with combined odds 0.
func Build(preds []prediction.MatchPrediction, opts Options) *Accumulator {
	if opts.TargetLegs <= 0 {
		opts.TargetLegs = DefaultTargetLegs
	}
	if opts.WindowDays < MinWindowDays {
		opts.WindowDays = MinWindowDays
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	from := opts.Now.UTC()
	to := from.AddDate(0, 0, opts.WindowDays)

	eligible := make([]prediction.MatchPrediction, 0, len(preds))
	for _, p := range preds {
		if !upcoming(p.Status) || p.Kickoff.Before(from) || p.Kickoff.After(to) {
			continue
		}
		eligible = append(eligible, p)
	}
	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].Kickoff.Before(eligible[j].Kickoff) })

	acc := &Accumulator{From: from, To: to, CombinedOdds: decimal.Zero}
	seen := make(map[int64]bool)
	days := make(map[string]bool)
	leagues := make(map[string]bool)
	for _, p := range eligible {
		if len(acc.Legs) == opts.TargetLegs {
			break
		}
		if seen[p.FixtureID] {
			continue
		}
		top, ok := p.Top()
		if !ok || top.Odds <= 0 {
			continue
		}
		seen[p.FixtureID] = true
		acc.Legs = append(acc.Legs, Leg{
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
		days[p.Kickoff.UTC().Format(time.DateOnly)] = true
		leagues[p.Competition] = true
	}
	acc.CombinedOdds = CombinedOdds(acc.Legs)
	acc.DaySpread = len(days)
	acc.LeagueCount = len(leagues)
	return acc
}

// CombinedOdds is the product of leg odds, or 0 for no legs.
func CombinedOdds(legs []Leg) decimal.Decimal {
	if len(legs) == 0 {
		return decimal.Zero
	}
	total := decimal.NewFromInt(1)
	for _, l := range legs {
		total = total.Mul(decimal.NewFromFloat(l.Odds))
	}
	return total
}

// PotentialReturn is stake × combined odds, rounded to cents.
func (a *Accumulator) PotentialReturn(stake decimal.Decimal) decimal.Decimal {
	return stake.Mul(a.CombinedOdds).Round(2)
}

// Display formats the combined odds, capping astronomically large prices.
func (a *Accumulator) Display() string {
	switch {
	case len(a.Legs) == 0:
		return "-"
	case a.CombinedOdds.GreaterThan(DisplayCap):
		return CapDisplay
	default:
		return a.CombinedOdds.StringFixed(2)
	}
}

// MarshalJSON adds the display string and the unit-stake return.
func (a *Accumulator) MarshalJSON() ([]byte, error) {
	legs := a.Legs
	if legs == nil {
		legs = []Leg{}
	}
	return json.Marshal(struct {
		Legs            []Leg     `json:"legs"`
		LegCount        int       `json:"legCount"`
		CombinedOdds    string    `json:"combinedOdds"`
		Display         string    `json:"display"`
		PotentialReturn string    `json:"potentialReturn"`
		DaySpread       int       `json:"daySpread"`
		LeagueCount     int       `json:"leagueCount"`
		From            time.Time `json:"from"`
		To              time.Time `json:"to"`
	}{
		Legs:            legs,
		LegCount:        len(a.Legs),
		CombinedOdds:    a.CombinedOdds.StringFixed(2),
		Display:         a.Display(),
		PotentialReturn: a.PotentialReturn(decimal.NewFromInt(1)).StringFixed(2),
		DaySpread:       a.DaySpread,
		LeagueCount:     a.LeagueCount,
		From:            a.From,
		To:              a.To,
	})
}

func upcoming(s footballdata.Status) bool {
	return s == footballdata.StatusScheduled || s == footballdata.StatusTimed
}
