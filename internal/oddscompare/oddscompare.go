package oddscompare

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"footpicks_go/internal/market"
)

const (
	// MaxJitter is the largest relative move applied to the canonical price.
	MaxJitter = 0.12
	// MaxDeviation bounds every quote around the canonical price.
	MaxDeviation = 0.15
	MinOdds      = 1.01
)

// Bookmakers quoted, in a fixed order before sorting.
var Bookmakers = []string{"Bet365", "William Hill", "Paddy Power", "Betfair", "Unibet"}

// Quote is one bookmaker's synthetic price.
type Quote struct {
	Bookmaker string  `json:"bookmaker"`
	Odds      float64 `json:"odds"`
	Best      bool    `json:"best"`
}

// Synthesize fans a market's canonical odds out across Bookmakers. Quotes are
// sorted ascending and the first is flagged Best. A nil rng uses a time-seeded one.
func Synthesize(m market.PredictionMarket, rng *rand.Rand) []Quote {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	canonical := m.Odds
	if canonical < MinOdds {
		canonical = MinOdds
	}
	// band edges rounded inward to whole cents
	lo := math.Ceil(math.Max(MinOdds, canonical*(1-MaxDeviation))*100-1e-9) / 100
	hi := math.Floor(canonical*(1+MaxDeviation)*100+1e-9) / 100

	quotes := make([]Quote, 0, len(Bookmakers))
	for _, b := range Bookmakers {
		j := (rng.Float64()*2 - 1) * MaxJitter
		o := math.Round(canonical*(1+j)*100) / 100
		o = math.Min(math.Max(o, lo), hi)
		quotes = append(quotes, Quote{Bookmaker: b, Odds: o})
	}
	sort.SliceStable(quotes, func(i, j int) bool { return quotes[i].Odds < quotes[j].Odds })
	quotes[0].Best = true
	return quotes
}
