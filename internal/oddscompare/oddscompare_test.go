package oddscompare

import (
	"math/rand"
	"testing"

	"footpicks_go/internal/market"
)

func TestSynthesize_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, canonical := range []float64{1.01, 1.05, 1.5, 1.89, 3.4, 12.5, 18.87} {
		for i := 0; i < 200; i++ {
			qs := Synthesize(market.PredictionMarket{Market: "1X2", Odds: canonical}, rng)
			if len(qs) != len(Bookmakers) {
				t.Fatalf("len(quotes) = %d; want %d", len(qs), len(Bookmakers))
			}
			for k, q := range qs {
				if q.Odds < MinOdds {
					t.Errorf("canonical %v: quote %v below %v", canonical, q.Odds, MinOdds)
				}
				if dev := (q.Odds - canonical) / canonical; dev > MaxDeviation+1e-9 || dev < -MaxDeviation-1e-9 {
					t.Errorf("canonical %v: quote %v deviates %.3f", canonical, q.Odds, dev)
				}
				if k > 0 && qs[k-1].Odds > q.Odds {
					t.Errorf("quotes not ascending: %v", qs)
				}
			}
		}
	}
}

func TestSynthesize_BestFlag(t *testing.T) {
	qs := Synthesize(market.PredictionMarket{Odds: 2.5}, rand.New(rand.NewSource(4)))
	best := 0
	for _, q := range qs {
		if q.Best {
			best++
		}
	}
	if best != 1 || !qs[0].Best {
		t.Errorf("Best flags = %+v; want exactly index 0", qs)
	}
	names := map[string]bool{}
	for _, q := range qs {
		names[q.Bookmaker] = true
	}
	if len(names) != len(Bookmakers) {
		t.Errorf("bookmakers = %v; want %d distinct", names, len(Bookmakers))
	}
}

func TestSynthesize_BelowMinimumCanonical(t *testing.T) {
	qs := Synthesize(market.PredictionMarket{Odds: 0}, nil)
	for _, q := range qs {
		if q.Odds < MinOdds {
			t.Errorf("quote %v below minimum", q.Odds)
		}
	}
}
