package market

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"footpicks_go/internal/model"
)

const (
	// DefaultMargin is the bookmaker overround applied to fair odds.
	DefaultMargin = 0.06
	MinConfidence = 5
	MaxConfidence = 95
	MinOdds       = 1.01

	HighTierMin = 60
	MidTierMin  = 40
)

// Tier names for overallConfidence.
const (
	TierHigh = "High"
	TierMid  = "Mid"
	TierLow  = "Low"
)

// PredictionMarket is one market's pick for a fixture.
type PredictionMarket struct {
	Market     string    `json:"market"`
	Pick       string    `json:"pick"`
	Confidence int       `json:"confidence"`
	Odds       float64   `json:"odds"`
	Selection  Selection `json:"selection"`
}

// Teams are the display names used in pick text.
type Teams struct {
	Home string
	Away string
}

// Generator maps outcome distributions to markets.
type Generator struct {
	margin float64
}

// NewGenerator returns a Generator with the given margin (e.g. 0.06). Values outside
// [0, 0.5) use DefaultMargin.
func NewGenerator(margin float64) *Generator {
	if margin < 0 || margin >= 0.5 {
		margin = DefaultMargin
	}
	return &Generator{margin: margin}
}

// Build uses DefaultMargin.
func Build(d *model.OutcomeDistribution, teams Teams) []PredictionMarket {
	return NewGenerator(DefaultMargin).Build(d, teams)
}

type outcome struct {
	pick string
	sel  Selection
	p    float64
}

// Build returns every catalog market exactly once, sorted by confidence descending
// (catalog order breaks ties).
func (g *Generator) Build(d *model.OutcomeDistribution, teams Teams) []PredictionMarket {
	if d == nil {
		d = &model.OutcomeDistribution{}
	}
	out := make([]PredictionMarket, 0, len(Catalog))
	for _, def := range Catalog {
		best := argmax(outcomes(def, d, teams))
		p := clampProb(best.p)
		out = append(out, PredictionMarket{
			Market:     def.Name,
			Pick:       best.pick,
			Confidence: Confidence(best.p),
			Odds:       g.Odds(p),
			Selection:  best.sel,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// Odds converts a probability to decimal odds with the margin folded into the
// implied probability, rounded to two decimals and floored at MinOdds.
func (g *Generator) Odds(p float64) float64 {
	p = clampProb(p)
	o := math.Round(100/(p*(1+g.margin))) / 100
	if o < MinOdds {
		return MinOdds
	}
	return o
}

// Confidence is round(100p) clamped to [MinConfidence, MaxConfidence].
func Confidence(p float64) int {
	c := int(math.Round(p * 100))
	if math.IsNaN(p) || c < MinConfidence {
		return MinConfidence
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// Tier maps a confidence to High, Mid or Low.
func Tier(confidence int) string {
	switch {
	case confidence >= HighTierMin:
		return TierHigh
	case confidence >= MidTierMin:
		return TierMid
	default:
		return TierLow
	}
}

// OverallConfidence is the tier of the top-ranked market.
func OverallConfidence(markets []PredictionMarket) string {
	if len(markets) == 0 {
		return TierLow
	}
	return Tier(markets[0].Confidence)
}

func clampProb(p float64) float64 {
	lo, hi := float64(MinConfidence)/100, float64(MaxConfidence)/100
	if math.IsNaN(p) || p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}

// argmax picks the likeliest outcome; the first listed wins ties.
func argmax(os []outcome) outcome {
	best := os[0]
	for _, o := range os[1:] {
		if o.p > best.p {
			best = o
		}
	}
	return best
}

func outcomes(def Definition, d *model.OutcomeDistribution, t Teams) []outcome {
	home, away := t.Home, t.Away
	sel := func(s Side) Selection { return Selection{Market: def.ID, Side: s} }
	line := formatLine(def.Threshold)

	switch def.ID {
	case Match1X2:
		return []outcome{
			{home + " Win", sel(SideHome), d.HomeWin},
			{"Draw", sel(SideDraw), d.Draw},
			{away + " Win", sel(SideAway), d.AwayWin},
		}
	case DoubleChance:
		return []outcome{
			{home + " or Draw", sel(SideHomeOrDraw), d.HomeWin + d.Draw},
			{away + " or Draw", sel(SideAwayOrDraw), d.AwayWin + d.Draw},
			{home + " or " + away, sel(SideHomeOrAway), d.HomeWin + d.AwayWin},
		}
	case DrawNoBet:
		ph, pa := 0.5, 0.5
		if n := d.HomeWin + d.AwayWin; n > 0 {
			ph, pa = d.HomeWin/n, d.AwayWin/n
		}
		return []outcome{
			{home, sel(SideHome), ph},
			{away, sel(SideAway), pa},
		}
	case BTTS:
		yes := d.Prob(func(h, a int) bool { return h > 0 && a > 0 })
		return []outcome{
			{"Yes (GG)", sel(SideYes), yes},
			{"No (NG)", sel(SideNo), 1 - yes},
		}
	case OverUnder15, OverUnder25, OverUnder35, OverUnder45:
		over := d.Total(func(n int) bool { return float64(n) > def.Threshold })
		return []outcome{
			{"Over " + line, thresholdSel(def, SideOver), over},
			{"Under " + line, thresholdSel(def, SideUnder), 1 - over},
		}
	case AsianHandicap05, AsianHandicap15:
		ph := d.Prob(func(h, a int) bool { return float64(h-a) > def.Threshold })
		pa := d.Prob(func(h, a int) bool { return float64(a-h) > def.Threshold })
		return []outcome{
			{home + " -" + line, thresholdSel(def, SideHome), ph},
			{away + " -" + line, thresholdSel(def, SideAway), pa},
		}
	case CorrectScore:
		h, a, p := d.MostLikelyScore()
		s := Selection{Market: def.ID, Score: &Score{Home: h, Away: a}}
		return []outcome{{fmt.Sprintf("%d-%d", h, a), s, p}}
	case HalftimeResult:
		return []outcome{
			{home, sel(SideHome), d.HalfTimeProb(func(h, a int) bool { return h > a })},
			{"Draw", sel(SideDraw), d.HalfTimeProb(func(h, a int) bool { return h == a })},
			{away, sel(SideAway), d.HalfTimeProb(func(h, a int) bool { return h < a })},
		}
	case HalftimeFulltime:
		sides := [3]Side{SideHome, SideDraw, SideAway}
		names := [3]string{home, "Draw", away}
		os := make([]outcome, 0, 9)
		for ht := 0; ht < 3; ht++ {
			for ft := 0; ft < 3; ft++ {
				s := Selection{Market: def.ID, HalfTime: sides[ht], Side: sides[ft]}
				os = append(os, outcome{names[ht] + "/" + names[ft], s, d.HTFT[ht][ft]})
			}
		}
		return os
	case HomeOverUnder05, HomeOverUnder15:
		over := d.Prob(func(h, _ int) bool { return float64(h) > def.Threshold })
		return []outcome{
			{home + " Over " + line, thresholdSel(def, SideOver), over},
			{home + " Under " + line, thresholdSel(def, SideUnder), 1 - over},
		}
	case AwayOverUnder05, AwayOverUnder15:
		over := d.Prob(func(_, a int) bool { return float64(a) > def.Threshold })
		return []outcome{
			{away + " Over " + line, thresholdSel(def, SideOver), over},
			{away + " Under " + line, thresholdSel(def, SideUnder), 1 - over},
		}
	case OddEven:
		odd := d.Total(func(n int) bool { return n%2 == 1 })
		return []outcome{
			{"Odd", sel(SideOdd), odd},
			{"Even", sel(SideEven), 1 - odd},
		}
	case WinningMargin:
		return marginOutcomes(def, d, t)
	case ResultOverUnder:
		return comboOutcomes(def, d, t, []comboLeg{
			{"Over " + line, Selection{Market: OverUnder25, Side: SideOver, Threshold: def.Threshold},
				func(h, a int) bool { return float64(h+a) > def.Threshold }},
			{"Under " + line, Selection{Market: OverUnder25, Side: SideUnder, Threshold: def.Threshold},
				func(h, a int) bool { return float64(h+a) < def.Threshold }},
		})
	case ResultBTTS:
		return comboOutcomes(def, d, t, []comboLeg{
			{"GG", Selection{Market: BTTS, Side: SideYes}, func(h, a int) bool { return h > 0 && a > 0 }},
			{"NG", Selection{Market: BTTS, Side: SideNo}, func(h, a int) bool { return h == 0 || a == 0 }},
		})
	case WinToNil:
		ph := d.Prob(func(h, a int) bool { return h > 0 && a == 0 })
		pa := d.Prob(func(h, a int) bool { return a > 0 && h == 0 })
		return []outcome{
			{home + " to win to nil", sel(SideHome), ph},
			{away + " to win to nil", sel(SideAway), pa},
			{"No win to nil", sel(SideNo), 1 - ph - pa},
		}
	case GoalsRange:
		ranges := []GoalRange{{0, 1}, {2, 3}, {4, -1}}
		os := make([]outcome, 0, len(ranges))
		for _, r := range ranges {
			r := r
			os = append(os, outcome{rangeLabel(r), Selection{Market: def.ID, Range: &r}, d.Total(r.Contains)})
		}
		return os
	case ExactTotalGoals:
		os := make([]outcome, 0, model.MaxGoals+1)
		for n := 0; n <= model.MaxGoals; n++ {
			r := GoalRange{n, n}
			if n == model.MaxGoals {
				r.Max = -1
			}
			os = append(os, outcome{rangeLabel(r), Selection{Market: def.ID, Range: &r}, d.Total(r.Contains)})
		}
		return os
	case HighestHalf:
		return []outcome{
			{"1st Half", sel(SideFirstHalf), d.HighestHalf[model.HalfFirst]},
			{"2nd Half", sel(SideSecondHalf), d.HighestHalf[model.HalfSecond]},
			{"Equal", sel(SideEqual), d.HighestHalf[model.HalfEqual]},
		}
	}
	return []outcome{{"-", sel(""), 0}}
}

func thresholdSel(def Definition, s Side) Selection {
	return Selection{Market: def.ID, Side: s, Threshold: def.Threshold}
}

func marginOutcomes(def Definition, d *model.OutcomeDistribution, t Teams) []outcome {
	buckets := []GoalRange{{1, 1}, {2, 2}, {3, -1}}
	os := make([]outcome, 0, 7)
	for _, side := range []Side{SideHome, SideAway} {
		name := t.Home
		if side == SideAway {
			name = t.Away
		}
		for _, b := range buckets {
			b := b
			p := d.Prob(func(h, a int) bool {
				m := h - a
				if side == SideAway {
					m = a - h
				}
				return b.Contains(m)
			})
			label := fmt.Sprintf("%s by %d", name, b.Min)
			if b.Max < 0 {
				label += "+"
			}
			os = append(os, outcome{label, Selection{Market: def.ID, Side: side, Range: &b}, p})
		}
	}
	os = append(os, outcome{"Draw", Selection{Market: def.ID, Side: SideDraw}, d.Draw})
	return os
}

type comboLeg struct {
	label string
	sel   Selection
	pred  func(h, a int) bool
}

func comboOutcomes(def Definition, d *model.OutcomeDistribution, t Teams, legs []comboLeg) []outcome {
	results := []struct {
		label string
		side  Side
		pred  func(h, a int) bool
	}{
		{t.Home, SideHome, func(h, a int) bool { return h > a }},
		{"Draw", SideDraw, func(h, a int) bool { return h == a }},
		{t.Away, SideAway, func(h, a int) bool { return h < a }},
	}
	os := make([]outcome, 0, len(results)*len(legs))
	for _, r := range results {
		for _, l := range legs {
			r, l := r, l
			second := l.sel
			os = append(os, outcome{
				pick: r.label + " & " + l.label,
				sel:  Selection{Market: def.ID, Side: r.side, Threshold: def.Threshold, Secondary: &second},
				p:    d.Prob(func(h, a int) bool { return r.pred(h, a) && l.pred(h, a) }),
			})
		}
	}
	return os
}

func rangeLabel(r GoalRange) string {
	switch {
	case r.Max < 0:
		return strconv.Itoa(r.Min) + "+"
	case r.Min == r.Max:
		return strconv.Itoa(r.Min)
	default:
		return fmt.Sprintf("%d-%d", r.Min, r.Max)
	}
}

func formatLine(t float64) string {
	return strconv.FormatFloat(t, 'f', 1, 64)
}
