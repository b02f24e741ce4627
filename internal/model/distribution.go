package model

import (
	"math"
	"sort"
)

// Result indices used by HTFT and the 1X2 helpers.
const (
	ResultHome = 0
	ResultDraw = 1
	ResultAway = 2
)

// Half indices for HighestHalf.
const (
	HalfFirst  = 0
	HalfSecond = 1
	HalfEqual  = 2
)

// Matrix is P(home=h, away=a) for h, a in 0..MaxGoals.
type Matrix [MaxGoals + 1][MaxGoals + 1]float64

// Prob sums the cells matching pred.
func (m *Matrix) Prob(pred func(h, a int) bool) float64 {
	var p float64
	for h := 0; h <= MaxGoals; h++ {
		for a := 0; a <= MaxGoals; a++ {
			if pred(h, a) {
				p += m[h][a]
			}
		}
	}
	return p
}

// Outcomes returns P(home win), P(draw), P(away win).
func (m *Matrix) Outcomes() (home, draw, away float64) {
	for h := 0; h <= MaxGoals; h++ {
		for a := 0; a <= MaxGoals; a++ {
			switch {
			case h > a:
				home += m[h][a]
			case h == a:
				draw += m[h][a]
			default:
				away += m[h][a]
			}
		}
	}
	return home, draw, away
}

// OutcomeDistribution is the engine's view of one fixture.
type OutcomeDistribution struct {
	HomeXG  float64
	AwayXG  float64
	HomeWin float64
	Draw    float64
	AwayWin float64
	// Matrix is the blended full-time score distribution.
	Matrix Matrix
	// HalfTime is the simulated half-time score distribution.
	HalfTime Matrix
	// HTFT is [half-time result][full-time result].
	HTFT [3][3]float64
	// HighestHalf is P(first half has more goals), P(second), P(equal).
	HighestHalf [3]float64
	Trials      int
}

// Prob sums the full-time matrix over scores matching pred.
func (d *OutcomeDistribution) Prob(pred func(h, a int) bool) float64 {
	return d.Matrix.Prob(pred)
}

// Total is the probability that total goals satisfy pred.
func (d *OutcomeDistribution) Total(pred func(total int) bool) float64 {
	return d.Matrix.Prob(func(h, a int) bool { return pred(h + a) })
}

// HalfTimeProb sums the half-time matrix over scores matching pred.
func (d *OutcomeDistribution) HalfTimeProb(pred func(h, a int) bool) float64 {
	return d.HalfTime.Prob(pred)
}

// MostLikelyScore returns the modal full-time score. Ties go to the lower total, then the home side.
func (d *OutcomeDistribution) MostLikelyScore() (home, away int, p float64) {
	p = -1
	for h := 0; h <= MaxGoals; h++ {
		for a := 0; a <= MaxGoals; a++ {
			v := d.Matrix[h][a]
			if v > p || (v == p && h+a < home+away) {
				home, away, p = h, a, v
			}
		}
	}
	return home, away, p
}

// Percentages returns home/draw/away as integers summing to exactly 100
// (largest-remainder rounding).
func (d *OutcomeDistribution) Percentages() (home, draw, away int) {
	ps := [3]float64{d.HomeWin, d.Draw, d.AwayWin}
	sum := ps[0] + ps[1] + ps[2]
	if sum <= 0 || math.IsNaN(sum) {
		return 34, 33, 33
	}
	var out [3]int
	rem := make([]struct {
		i    int
		frac float64
	}, 3)
	total := 0
	for i, p := range ps {
		v := p / sum * 100
		out[i] = int(math.Floor(v))
		total += out[i]
		rem[i].i = i
		rem[i].frac = v - math.Floor(v)
	}
	sort.SliceStable(rem, func(a, b int) bool { return rem[a].frac > rem[b].frac })
	for k := 0; total < 100; k++ {
		out[rem[k%3].i]++
		total++
	}
	return out[0], out[1], out[2]
}

func resultIndex(h, a int) int {
	switch {
	case h > a:
		return ResultHome
	case h < a:
		return ResultAway
	default:
		return ResultDraw
	}
}
