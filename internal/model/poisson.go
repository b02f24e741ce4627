package model

import (
	"math"
	"math/rand"
)

// poissonProb is P(X = k) for X ~ Poisson(lambda), computed in log space.
func poissonProb(lambda float64, k int) float64 {
	if k < 0 {
		return 0
	}
	if lambda <= 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	return math.Exp(float64(k)*math.Log(lambda) - lambda - logFactorial(k))
}

// poissonSample draws from Poisson(lambda) using the given source.
func poissonSample(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	if lambda < 12 {
		l := math.Exp(-lambda)
		k := 0
		p := 1.0
		for p > l {
			k++
			p *= rng.Float64()
		}
		return k - 1
	}
	return int(math.Max(0, rng.NormFloat64()*math.Sqrt(lambda)+lambda+0.5))
}

func logFactorial(n int) float64 {
	if n <= 1 {
		return 0
	}
	r := 0.0
	for i := 2; i <= n; i++ {
		r += math.Log(float64(i))
	}
	return r
}

// dixonColes corrects the independence assumption for the four low scores.
func dixonColes(h, a int, rho float64) float64 {
	switch {
	case h == 0 && a == 0, h == 1 && a == 1:
		return 1 - rho
	case h == 1 && a == 0, h == 0 && a == 1:
		return 1 + rho
	default:
		return 1
	}
}

// scoreMatrix is the renormalised Dixon-Coles matrix of P(home=h, away=a), 0..MaxGoals each.
func scoreMatrix(lambdaHome, lambdaAway, rho float64) Matrix {
	var m Matrix
	var total float64
	for h := 0; h <= MaxGoals; h++ {
		ph := poissonProb(lambdaHome, h)
		for a := 0; a <= MaxGoals; a++ {
			p := ph * poissonProb(lambdaAway, a) * dixonColes(h, a, rho)
			m[h][a] = p
			total += p
		}
	}
	if total > 0 {
		for h := range m {
			for a := range m[h] {
				m[h][a] /= total
			}
		}
	}
	return m
}
