package surveillance

import (
	"math"
	"sort"
)

// mean calculates the arithmetic average of values
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// weightedMean calculates sum(v*w)/sum(w); ok is false when the weight
// mass is not positive
func weightedMean(values, weights []float64) (float64, bool) {
	if len(values) == 0 || len(values) != len(weights) {
		return 0, false
	}
	var num, den float64
	for i := range values {
		num += values[i] * weights[i]
		den += weights[i]
	}
	if den <= 0 {
		return 0, false
	}
	return num / den, true
}

// sampleStdDev calculates the sample standard deviation (N-1 denominator).
// Returns 0 for fewer than two observations.
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// sortedCopy returns an ascending copy, leaving the input untouched
func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// quantile reads the q-th quantile from an ascending slice using linear
// interpolation between closest ranks (the same convention pandas and
// numpy default to, so cleaned numbers line up with the source analysis)
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 || q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	h := q * float64(n-1)
	lo := int(math.Floor(h))
	frac := h - float64(lo)
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// median calculates the middle value of the series
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return quantile(sortedCopy(values), 0.5)
}

// averageRanks assigns 1-based ranks with ties receiving the average of
// the rank positions they occupy
func averageRanks(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		// positions i..j share the average of ranks i+1..j+1
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// pearson calculates the Pearson correlation coefficient; ok is false when
// either series has zero variance or fewer than two points
func pearson(x, y []float64) (float64, bool) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, false
	}
	mx, my := mean(x), mean(y)
	var sxy, sxx, syy float64
	for i := range x {
		dx := x[i] - mx
		dy := y[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	return sxy / math.Sqrt(sxx*syy), true
}

// spearman calculates the rank correlation coefficient (Pearson over
// average ranks)
func spearman(x, y []float64) (float64, bool) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, false
	}
	return pearson(averageRanks(x), averageRanks(y))
}

// olsFit fits y = intercept + slope*x by ordinary least squares; ok is
// false when x has zero variance or fewer than two points. A series fit
// perfectly (zero total variance in y) reports an R-squared of 1.
func olsFit(x, y []float64) (intercept, slope, r2 float64, ok bool) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, 0, 0, false
	}
	mx, my := mean(x), mean(y)
	var sxx, sxy float64
	for i := range x {
		dx := x[i] - mx
		sxx += dx * dx
		sxy += dx * (y[i] - my)
	}
	if sxx == 0 {
		return 0, 0, 0, false
	}
	slope = sxy / sxx
	intercept = my - slope*mx

	var ssRes, ssTot float64
	for i := range x {
		pred := intercept + slope*x[i]
		ssRes += (y[i] - pred) * (y[i] - pred)
		ssTot += (y[i] - my) * (y[i] - my)
	}
	if ssTot == 0 {
		r2 = 1
	} else {
		r2 = 1 - ssRes/ssTot
	}
	return intercept, slope, r2, true
}

// cagr calculates the compound annual growth rate over the series span as
// a fraction per year; ok is false when the start value is not positive or
// the series covers fewer than two years
func cagr(start, end float64, years int) (float64, bool) {
	if years < 2 || start <= 0 || end < 0 {
		return 0, false
	}
	g := math.Pow(end/start, 1/float64(years-1)) - 1
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return 0, false
	}
	return g, true
}

// floatPtr returns a pointer to v for optional statistic fields
func floatPtr(v float64) *float64 {
	return &v
}
