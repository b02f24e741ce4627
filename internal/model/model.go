package model

import (
	"math"
	"math/rand"
	"time"

	"footpicks_go/internal/strength"
)

const (
	// MaxGoals bounds the score matrix per side; simulated goals above it land in the last bucket.
	MaxGoals      = 6
	DefaultTrials = 5000
	// Rho is the Dixon-Coles low-score correlation.
	Rho = -0.1

	HomeFactor = 1.12
	AwayFactor = 0.90
	// formWeight scales the [-1,1] form signal into a goal-rate multiplier.
	formWeight = 0.08
	// venueSplitWeight is how much of a team's attack/defense comes from its home or away split.
	venueSplitWeight = 0.6
	lambdaMin        = 0.2
	lambdaMax        = 4.5
	// FirstHalfShare of expected goals scored before half-time.
	FirstHalfShare = 0.45
	// simWeight is the Monte Carlo share of the blended matrix.
	simWeight = 0.5
)

// VenueAdjustment carries the home-field multipliers and the competition's goal rate.
type VenueAdjustment struct {
	HomeFactor float64
	AwayFactor float64
	// AvgGoals is goals per team per match in the competition; 0 uses strength.LeagueAvgGoals.
	AvgGoals float64
}

// DefaultVenue is a normal home fixture in a competition averaging avgGoals.
func DefaultVenue(avgGoals float64) VenueAdjustment {
	return VenueAdjustment{HomeFactor: HomeFactor, AwayFactor: AwayFactor, AvgGoals: avgGoals}
}

// NeutralVenue removes home advantage (cup finals and the like).
func NeutralVenue(avgGoals float64) VenueAdjustment {
	return VenueAdjustment{HomeFactor: 1, AwayFactor: 1, AvgGoals: avgGoals}
}

// Options configures an Engine. Seed 0 reseeds from the clock on every call.
type Options struct {
	Seed   int64
	Trials int
}

// Engine turns two team strengths into an OutcomeDistribution. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	seed   int64
	trials int
}

// NewEngine returns an Engine. Trials <= 0 uses DefaultTrials.
func NewEngine(opts Options) *Engine {
	if opts.Trials <= 0 {
		opts.Trials = DefaultTrials
	}
	return &Engine{seed: opts.Seed, trials: opts.Trials}
}

// ExpectedGoals returns the clamped goal rates for both sides.
func ExpectedGoals(home, away strength.TeamStrength, venue VenueAdjustment) (float64, float64) {
	avg := venue.AvgGoals
	if avg <= 0 {
		avg = strength.LeagueAvgGoals
	}
	hf, af := venue.HomeFactor, venue.AwayFactor
	if hf <= 0 {
		hf = 1
	}
	if af <= 0 {
		af = 1
	}
	homeAtt := blend(home.HomeAttack, home.Attack)
	homeDef := blend(home.HomeDefense, home.Defense)
	awayAtt := blend(away.AwayAttack, away.Attack)
	awayDef := blend(away.AwayDefense, away.Defense)

	lh := avg * homeAtt * awayDef * hf * (1 + formWeight*home.Form)
	la := avg * awayAtt * homeDef * af * (1 + formWeight*away.Form)
	return clampLambda(lh), clampLambda(la)
}

// Predict builds the outcome distribution for a fixture.
func (e *Engine) Predict(home, away strength.TeamStrength, venue VenueAdjustment) *OutcomeDistribution {
	lh, la := ExpectedGoals(home, away, venue)
	closed := scoreMatrix(lh, la, Rho)
	d := e.simulate(lh, la)
	d.HomeXG, d.AwayXG = lh, la
	for h := 0; h <= MaxGoals; h++ {
		for a := 0; a <= MaxGoals; a++ {
			d.Matrix[h][a] = (1-simWeight)*closed[h][a] + simWeight*d.Matrix[h][a]
		}
	}
	d.HomeWin, d.Draw, d.AwayWin = d.Matrix.Outcomes()
	return d
}

// simulate plays the fixture half by half. The returned Matrix holds simulated
// full-time frequencies; half-time figures come only from here.
func (e *Engine) simulate(lh, la float64) *OutcomeDistribution {
	seed := e.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	d := &OutcomeDistribution{Trials: e.trials}
	w := 1 / float64(e.trials)
	for i := 0; i < e.trials; i++ {
		h1 := poissonSample(rng, FirstHalfShare*lh)
		a1 := poissonSample(rng, FirstHalfShare*la)
		h2 := poissonSample(rng, (1-FirstHalfShare)*lh)
		a2 := poissonSample(rng, (1-FirstHalfShare)*la)
		ft := [2]int{h1 + h2, a1 + a2}

		d.Matrix[bucket(ft[0])][bucket(ft[1])] += w
		d.HalfTime[bucket(h1)][bucket(a1)] += w
		d.HTFT[resultIndex(h1, a1)][resultIndex(ft[0], ft[1])] += w
		switch first, second := h1+a1, h2+a2; {
		case first > second:
			d.HighestHalf[HalfFirst] += w
		case second > first:
			d.HighestHalf[HalfSecond] += w
		default:
			d.HighestHalf[HalfEqual] += w
		}
	}
	return d
}

func blend(split, overall float64) float64 {
	if split <= 0 {
		split = 1
	}
	if overall <= 0 {
		overall = 1
	}
	return venueSplitWeight*split + (1-venueSplitWeight)*overall
}

func clampLambda(l float64) float64 {
	if math.IsNaN(l) || l < lambdaMin {
		return lambdaMin
	}
	if l > lambdaMax {
		return lambdaMax
	}
	return l
}

func bucket(goals int) int {
	if goals > MaxGoals {
		return MaxGoals
	}
	return goals
}
