package market

import (
	"strings"
	"testing"

	"footpicks_go/internal/model"
	"footpicks_go/internal/strength"
)

func distribution(t *testing.T, home, away strength.TeamStrength) *model.OutcomeDistribution {
	t.Helper()
	return model.NewEngine(model.Options{Seed: 11, Trials: 3000}).Predict(home, away, model.DefaultVenue(0))
}

func TestCatalog(t *testing.T) {
	if len(Catalog) < 23 {
		t.Fatalf("len(Catalog) = %d; want >= 23", len(Catalog))
	}
	seen := map[string]bool{}
	for _, d := range Catalog {
		if seen[d.Name] {
			t.Errorf("duplicate catalog name %q", d.Name)
		}
		seen[d.Name] = true
		if got, ok := Lookup(d.ID); !ok || got.Name != d.Name {
			t.Errorf("Lookup(%q) = %+v, %v", d.ID, got, ok)
		}
		if got, ok := ByName(d.Name); !ok || got.ID != d.ID {
			t.Errorf("ByName(%q) = %+v, %v", d.Name, got, ok)
		}
	}
}

func TestBuild_EveryMarketOnceSorted(t *testing.T) {
	d := distribution(t, strength.Average(1, "Arsenal"), strength.Average(2, "Chelsea"))
	ms := Build(d, Teams{Home: "Arsenal", Away: "Chelsea"})
	if len(ms) != len(Catalog) {
		t.Fatalf("len(markets) = %d; want %d", len(ms), len(Catalog))
	}
	seen := map[string]int{}
	for i, m := range ms {
		seen[m.Market]++
		if i > 0 && ms[i-1].Confidence < m.Confidence {
			t.Errorf("markets not sorted at %d: %d then %d", i, ms[i-1].Confidence, m.Confidence)
		}
		if m.Confidence < MinConfidence || m.Confidence > MaxConfidence {
			t.Errorf("%s confidence = %d; want within [5,95]", m.Market, m.Confidence)
		}
		if m.Odds < MinOdds {
			t.Errorf("%s odds = %v; want >= %v", m.Market, m.Odds, MinOdds)
		}
		if m.Pick == "" || m.Selection.Market == "" {
			t.Errorf("%s has empty pick or selection: %+v", m.Market, m)
		}
	}
	for _, def := range Catalog {
		if seen[def.Name] != 1 {
			t.Errorf("market %q emitted %d times; want 1", def.Name, seen[def.Name])
		}
	}
}

func TestBuild_ConfidenceInverseToOdds(t *testing.T) {
	d := distribution(t, strength.Average(1, "A"), strength.Average(2, "B"))
	ms := Build(d, Teams{Home: "A", Away: "B"})
	for i := range ms {
		for j := range ms {
			if ms[i].Confidence > ms[j].Confidence && ms[i].Odds > ms[j].Odds {
				t.Errorf("%s (%d%%, %.2f) priced above %s (%d%%, %.2f)",
					ms[i].Market, ms[i].Confidence, ms[i].Odds, ms[j].Market, ms[j].Confidence, ms[j].Odds)
			}
		}
	}
}

func TestBuild_NilDistributionStillComplete(t *testing.T) {
	ms := Build(nil, Teams{Home: "A", Away: "B"})
	if len(ms) != len(Catalog) {
		t.Fatalf("len(markets) = %d; want %d", len(ms), len(Catalog))
	}
	for _, m := range ms {
		if m.Confidence < MinConfidence {
			t.Errorf("%s confidence = %d; want clamped to %d", m.Market, m.Confidence, MinConfidence)
		}
	}
}

func TestBuild_StrongHomeSelections(t *testing.T) {
	home := strength.TeamStrength{TeamName: "Arsenal", Attack: 2, Defense: 0.5, HomeAttack: 2.2, HomeDefense: 0.4, AwayAttack: 1.8, AwayDefense: 0.6, Form: 1}
	away := strength.TeamStrength{TeamName: "Chelsea", Attack: 0.5, Defense: 2, HomeAttack: 0.6, HomeDefense: 1.8, AwayAttack: 0.4, AwayDefense: 2.2, Form: -1}
	ms := Build(distribution(t, home, away), Teams{Home: "Arsenal", Away: "Chelsea"})
	byName := map[string]PredictionMarket{}
	for _, m := range ms {
		byName[m.Market] = m
	}
	if m := byName["1X2"]; m.Pick != "Arsenal Win" || m.Selection.Side != SideHome {
		t.Errorf("1X2 = %+v; want Arsenal Win / home", m)
	}
	if m := byName["No Bet (Draw No Bet)"]; m.Pick != "Arsenal" {
		t.Errorf("DNB pick = %q; want Arsenal", m.Pick)
	}
	if m := byName["Over/Under 1.5"]; m.Pick != "Over 1.5" || m.Selection.Threshold != 1.5 {
		t.Errorf("O/U 1.5 = %+v", m)
	}
	cs := byName["Correct Score"]
	if cs.Selection.Score == nil || cs.Selection.Score.Home <= cs.Selection.Score.Away {
		t.Errorf("Correct Score selection = %+v; want home win scoreline", cs.Selection)
	}
	if m := byName["1X2 + Over/Under 2.5"]; !strings.HasPrefix(m.Pick, "Arsenal & ") || m.Selection.Secondary == nil {
		t.Errorf("combo = %+v", m)
	}
	if m := byName["Asian Handicap -1.5"]; m.Pick != "Arsenal -1.5" {
		t.Errorf("AH -1.5 pick = %q; want Arsenal -1.5", m.Pick)
	}
	if got := OverallConfidence(ms); got != TierHigh {
		t.Errorf("OverallConfidence = %q; want High", got)
	}
}

func TestOdds(t *testing.T) {
	g := NewGenerator(0.06)
	cases := []struct {
		p    float64
		want float64
	}{
		{0.5, 1.89},
		{0.25, 3.77},
		{0.95, 1.01},
		{0.01, 18.87},
	}
	for _, tc := range cases {
		if got := g.Odds(tc.p); got != tc.want {
			t.Errorf("Odds(%v) = %v; want %v", tc.p, got, tc.want)
		}
	}
	if NewGenerator(-1).margin != DefaultMargin {
		t.Error("negative margin should fall back to default")
	}
}

func TestConfidenceAndTier(t *testing.T) {
	cases := []struct {
		p    float64
		conf int
		tier string
	}{
		{0.999, 95, TierHigh},
		{0.60, 60, TierHigh},
		{0.594, 59, TierMid},
		{0.40, 40, TierMid},
		{0.39, 39, TierLow},
		{0.001, 5, TierLow},
	}
	for _, tc := range cases {
		c := Confidence(tc.p)
		if c != tc.conf {
			t.Errorf("Confidence(%v) = %d; want %d", tc.p, c, tc.conf)
		}
		if got := Tier(c); got != tc.tier {
			t.Errorf("Tier(%d) = %q; want %q", c, got, tc.tier)
		}
	}
	if got := OverallConfidence(nil); got != TierLow {
		t.Errorf("OverallConfidence(nil) = %q; want Low", got)
	}
}

func TestGoalRange(t *testing.T) {
	if !(GoalRange{3, -1}).Contains(7) || (GoalRange{0, 1}).Contains(2) {
		t.Error("GoalRange.Contains mismatch")
	}
	if rangeLabel(GoalRange{4, -1}) != "4+" || rangeLabel(GoalRange{2, 3}) != "2-3" || rangeLabel(GoalRange{0, 0}) != "0" {
		t.Error("rangeLabel mismatch")
	}
}
