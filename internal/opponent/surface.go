package opponent

import "math"

// #region surfaces

const minSpread = 1e-9

// clampedErf saturates at |x|>6 and never leaves [-1,1].
func clampedErf(x float64) float64 {
	if x > 6 {
		return 1
	}
	if x < -6 {
		return -1
	}
	return math.Max(-1, math.Min(1, math.Erf(x)))
}

// survival is P(X >= u) for X ~ N(mu, s^2/2).
func survival(u, mu, s float64) float64 {
	return 1 - 0.5*(1+clampedErf((u-mu)/s))
}

func utilitySurface(utils, times []float64, risk, discount float64) [][]float64 {
	rMin, rMax := math.Pow(0, risk), math.Pow(1, risk)
	out := make([][]float64, len(utils))
	for i, u := range utils {
		val := u
		if r := rMax - rMin; r != 0 {
			val = (math.Pow(u, risk) - rMin) / r
		}
		out[i] = make([]float64, len(times))
		for j, t := range times {
			out[i][j] = val * math.Pow(discount, t)
		}
	}
	return out
}

// firstFutureColumn is the first time index strictly after t, or the last index.
func firstFutureColumn(times []float64, t float64) int {
	for i, ts := range times {
		if ts > t {
			return i
		}
	}
	return len(times) - 1
}

// acceptanceSurfaces returns the probability and cumulative grids, indexed [row][col],
// of the opponent offering each utility sample at each future time sample.
func acceptanceSurfaces(utils, times, means, variances []float64, t float64) (prob, cum [][]float64) {
	m := len(utils)
	prob = make([][]float64, m)
	cum = make([][]float64, m)
	for i := range prob {
		prob[i] = make([]float64, len(times))
		cum[i] = make([]float64, len(times))
	}
	interval := 1 / float64(m)
	for col := firstFutureColumn(times, t); col < len(times); col++ {
		s := math.Max(math.Sqrt(2*math.Max(0, variances[col])), minSpread)
		mu := means[col]
		minp := survival(utils[0]+interval/2, mu, s)
		maxp := survival(utils[m-1]-interval/2, mu, s)
		span := maxp - minp
		if span == 0 {
			continue
		}
		for row, u := range utils {
			p := survival(u, mu, s)
			p1 := survival(u-interval/2, mu, s)
			p2 := survival(u+interval/2, mu, s)
			cum[row][col] = (p - minp) / span
			prob[row][col] = (p1 - p2) / span
		}
	}
	return prob, cum
}

// expectedBestAgreement picks the future column with the largest expected utility
// mass (last one on ties) and the row with the best cumulative expectation there.
func expectedBestAgreement(prob, cum, utility [][]float64, utils, times []float64, t float64) (bestTime, bestUtil float64) {
	start := firstFutureColumn(times, t)
	bestCol, bestColSum := start, 0.0
	for col := start; col < len(times); col++ {
		var sum float64
		for row := range prob {
			sum += prob[row][col] * utility[row][col]
		}
		if sum >= bestColSum {
			bestColSum = sum
			bestCol = col
		}
	}
	bestRow, bestRowVal := 0, 0.0
	for row := range cum {
		if v := cum[row][bestCol] * utility[row][bestCol]; v > bestRowVal {
			bestRowVal = v
			bestRow = row
		}
	}
	return times[bestCol], utils[bestRow]
}

// #endregion surfaces
