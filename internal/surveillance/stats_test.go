package surveillance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"empty", nil, 0},
		{"single value", []float64{7.5}, 7.5},
		{"simple series", []float64{1, 2, 3, 4}, 2.5},
		{"negative values", []float64{-2, 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, mean(tt.values), 1e-12)
		})
	}
}

func TestWeightedMean(t *testing.T) {
	t.Run("weights shift the average", func(t *testing.T) {
		got, ok := weightedMean([]float64{10, 20}, []float64{3, 1})
		require.True(t, ok)
		assert.InDelta(t, 12.5, got, 1e-12)
	})

	t.Run("equal weights match the unweighted mean", func(t *testing.T) {
		values := []float64{8.2, 9.7, 11.3, 10.1}
		weights := []float64{1000000, 1000000, 1000000, 1000000}
		got, ok := weightedMean(values, weights)
		require.True(t, ok)
		assert.InDelta(t, mean(values), got, 1e-9)
	})

	t.Run("zero weight mass is undefined", func(t *testing.T) {
		_, ok := weightedMean([]float64{1, 2}, []float64{0, 0})
		assert.False(t, ok)
	})

	t.Run("length mismatch is undefined", func(t *testing.T) {
		_, ok := weightedMean([]float64{1, 2}, []float64{1})
		assert.False(t, ok)
	})
}

func TestSampleStdDev(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"empty", nil, 0},
		{"single point uses the zero convention", []float64{42}, 0},
		{"two points", []float64{2, 4}, math.Sqrt(2)},
		{"known series", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 2.138089935},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, sampleStdDev(tt.values), 1e-6)
		})
	}
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	tests := []struct {
		name     string
		q        float64
		expected float64
	}{
		{"minimum", 0, 1},
		{"first quartile interpolates", 0.25, 1.75},
		{"median interpolates", 0.5, 2.5},
		{"third quartile interpolates", 0.75, 3.25},
		{"maximum", 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, quantile(sorted, tt.q), 1e-12)
		})
	}

	t.Run("single element", func(t *testing.T) {
		assert.Equal(t, 5.0, quantile([]float64{5}, 0.75))
	})
}

func TestMedian(t *testing.T) {
	t.Run("odd count", func(t *testing.T) {
		assert.InDelta(t, 3.0, median([]float64{5, 1, 3}), 1e-12)
	})
	t.Run("even count averages the middle pair", func(t *testing.T) {
		assert.InDelta(t, 2.5, median([]float64{4, 1, 3, 2}), 1e-12)
	})
	t.Run("input is left unsorted", func(t *testing.T) {
		values := []float64{9, 1, 5}
		median(values)
		assert.Equal(t, []float64{9, 1, 5}, values)
	})
}

func TestAverageRanks(t *testing.T) {
	t.Run("distinct values", func(t *testing.T) {
		assert.Equal(t, []float64{2, 1, 3}, averageRanks([]float64{20, 10, 30}))
	})
	t.Run("ties share the average rank", func(t *testing.T) {
		// 10 and 10 occupy ranks 1 and 2, both get 1.5
		assert.Equal(t, []float64{1.5, 1.5, 3}, averageRanks([]float64{10, 10, 30}))
	})
}

func TestPearson(t *testing.T) {
	x := []float64{9.5, 10.2, 11.8, 8.4, 12.1, 10.9}

	t.Run("self correlation is exactly one", func(t *testing.T) {
		r, ok := pearson(x, x)
		require.True(t, ok)
		assert.InDelta(t, 1.0, r, 1e-9)
	})

	t.Run("negated series is exactly minus one", func(t *testing.T) {
		neg := make([]float64, len(x))
		for i, v := range x {
			neg[i] = -v
		}
		r, ok := pearson(x, neg)
		require.True(t, ok)
		assert.InDelta(t, -1.0, r, 1e-9)
	})

	t.Run("zero variance is undefined", func(t *testing.T) {
		_, ok := pearson(x, []float64{5, 5, 5, 5, 5, 5})
		assert.False(t, ok)
	})

	t.Run("fewer than two points is undefined", func(t *testing.T) {
		_, ok := pearson([]float64{1}, []float64{2})
		assert.False(t, ok)
	})
}

func TestSpearman(t *testing.T) {
	t.Run("monotonic nonlinear series is exactly one", func(t *testing.T) {
		x := []float64{1, 2, 3, 4, 5}
		y := []float64{1, 4, 9, 16, 25}
		rho, ok := spearman(x, y)
		require.True(t, ok)
		assert.InDelta(t, 1.0, rho, 1e-9)
	})

	t.Run("reversed series is exactly minus one", func(t *testing.T) {
		x := []float64{1, 2, 3, 4}
		y := []float64{8, 6, 4, 2}
		rho, ok := spearman(x, y)
		require.True(t, ok)
		assert.InDelta(t, -1.0, rho, 1e-9)
	})

	t.Run("ties use average ranks", func(t *testing.T) {
		x := []float64{1, 2, 2, 4}
		y := []float64{3, 5, 5, 9}
		rho, ok := spearman(x, y)
		require.True(t, ok)
		assert.InDelta(t, 1.0, rho, 1e-9)
	})
}

func TestOLSFit(t *testing.T) {
	t.Run("obesity versus diabetes fixture", func(t *testing.T) {
		x := []float64{30, 35, 40}
		y := []float64{9.6, 11.0, 12.4}
		intercept, slope, r2, ok := olsFit(x, y)
		require.True(t, ok)
		assert.InDelta(t, 0.28, slope, 1e-9)
		assert.InDelta(t, 1.2, intercept, 1e-9)
		assert.Greater(t, r2, 0.99)
	})

	t.Run("perfect line has r squared one", func(t *testing.T) {
		x := []float64{0, 1, 2, 3}
		y := []float64{1, 3, 5, 7}
		_, slope, r2, ok := olsFit(x, y)
		require.True(t, ok)
		assert.InDelta(t, 2.0, slope, 1e-12)
		assert.InDelta(t, 1.0, r2, 1e-12)
	})

	t.Run("constant predictor is undefined", func(t *testing.T) {
		_, _, _, ok := olsFit([]float64{2, 2, 2}, []float64{1, 2, 3})
		assert.False(t, ok)
	})
}

func TestCAGR(t *testing.T) {
	t.Run("round trip recovers the growth rate", func(t *testing.T) {
		const r = 0.021
		start := 10.0
		years := 8
		end := start * math.Pow(1+r, float64(years-1))
		got, ok := cagr(start, end, years)
		require.True(t, ok)
		assert.InDelta(t, r, got, 1e-9)
	})

	t.Run("declining series is negative", func(t *testing.T) {
		got, ok := cagr(12.0, 10.0, 5)
		require.True(t, ok)
		assert.Less(t, got, 0.0)
	})

	t.Run("nonpositive start is undefined", func(t *testing.T) {
		_, ok := cagr(0, 10, 5)
		assert.False(t, ok)
	})

	t.Run("single year is undefined", func(t *testing.T) {
		_, ok := cagr(10, 12, 1)
		assert.False(t, ok)
	})
}
