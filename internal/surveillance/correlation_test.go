package surveillance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brfsspulse/pkg/contracts/domain"
)

// corrSummary builds a state summary carrying just the values the engine
// reads: pooled means and latest-year values per metric
func corrSummary(state string, mean, latest map[domain.Metric]float64) StateSummary {
	metrics := make(map[domain.Metric]MetricStats, len(domain.Metrics()))
	for _, m := range domain.Metrics() {
		metrics[m] = MetricStats{Mean: mean[m], Latest: latest[m]}
	}
	return StateSummary{State: state, Metrics: metrics}
}

// linearFixture builds summaries where diabetes tracks obesity exactly as
// diabetes = 1.24 + 0.278 * obesity
func linearFixture(obesity []float64) []StateSummary {
	states := States()
	out := make([]StateSummary, 0, len(obesity))
	for i, o := range obesity {
		v := map[domain.Metric]float64{
			domain.MetricDiabetes:     1.24 + 0.278*o,
			domain.MetricObesity:      o,
			domain.MetricHeartDisease: 6.0,
			domain.MetricInactivity:   20.0 + float64(i),
		}
		out = append(out, corrSummary(states[i].Name, v, v))
	}
	return out
}

func TestCorrelationEnginePairs(t *testing.T) {
	e := NewCorrelationEngine(nil, testLogger())

	results, err := e.Correlate(context.Background(), linearFixture([]float64{25, 30, 35, 40}))
	require.NoError(t, err)
	require.Len(t, results, 6, "four metrics give six unordered pairs")

	t.Run("pairs follow canonical metric order", func(t *testing.T) {
		expected := [][2]domain.Metric{
			{domain.MetricDiabetes, domain.MetricObesity},
			{domain.MetricDiabetes, domain.MetricHeartDisease},
			{domain.MetricDiabetes, domain.MetricInactivity},
			{domain.MetricObesity, domain.MetricHeartDisease},
			{domain.MetricObesity, domain.MetricInactivity},
			{domain.MetricHeartDisease, domain.MetricInactivity},
		}
		for i, pair := range expected {
			assert.Equal(t, pair[0], results[i].X)
			assert.Equal(t, pair[1], results[i].Y)
		}
	})

	t.Run("perfect linear relation", func(t *testing.T) {
		r := results[0]
		require.NotNil(t, r.Pearson)
		require.NotNil(t, r.Spearman)
		assert.InDelta(t, 1.0, *r.Pearson, 1e-9)
		assert.InDelta(t, 1.0, *r.Spearman, 1e-9)
		assert.Equal(t, 4, r.N)
	})

	t.Run("constant series reports zero variance", func(t *testing.T) {
		// heart disease is flat in the fixture
		r := results[1]
		assert.Nil(t, r.Pearson)
		assert.Nil(t, r.Spearman)
		assert.Equal(t, "zero_variance", r.Reason)
	})
}

func TestCorrelationEngineRegression(t *testing.T) {
	e := NewCorrelationEngine(nil, testLogger())

	results, err := e.Correlate(context.Background(), linearFixture([]float64{25, 30, 35, 40}))
	require.NoError(t, err)

	t.Run("obesity predicts diabetes", func(t *testing.T) {
		fit := results[0].Regression
		require.NotNil(t, fit)
		assert.Equal(t, domain.MetricObesity, fit.Predictor)
		assert.Equal(t, domain.MetricDiabetes, fit.Response)
		assert.InDelta(t, 0.278, fit.Slope, 1e-9)
		assert.InDelta(t, 1.24, fit.Intercept, 1e-9)
		assert.Greater(t, fit.RSquared, 0.99)
		assert.Equal(t, 4, fit.N)
	})

	t.Run("other pairs carry no fit", func(t *testing.T) {
		for _, r := range results[1:] {
			assert.Nil(t, r.Regression)
		}
	})
}

func TestCorrelationEngineInsufficientSample(t *testing.T) {
	e := NewCorrelationEngine(nil, testLogger())

	results, err := e.Correlate(context.Background(), linearFixture([]float64{25, 30}))
	require.NoError(t, err)

	for _, r := range results {
		assert.Nil(t, r.Pearson)
		assert.Nil(t, r.Spearman)
		assert.Nil(t, r.Regression)
		assert.Equal(t, "insufficient_sample", r.Reason)
		assert.Equal(t, 2, r.N)
	}
}

func TestCorrelationEngineValueSource(t *testing.T) {
	// latest-year values correlate positively while pooled means correlate
	// negatively, so the flag is observable
	states := States()
	summaries := make([]StateSummary, 0, 4)
	for i := 0; i < 4; i++ {
		o := 25.0 + 5*float64(i)
		mean := map[domain.Metric]float64{
			domain.MetricDiabetes:     20.0 - float64(i),
			domain.MetricObesity:      o,
			domain.MetricHeartDisease: 6.0,
			domain.MetricInactivity:   22.0,
		}
		latest := map[domain.Metric]float64{
			domain.MetricDiabetes:     8.0 + float64(i),
			domain.MetricObesity:      o,
			domain.MetricHeartDisease: 6.0,
			domain.MetricInactivity:   22.0,
		}
		summaries = append(summaries, corrSummary(states[i].Name, mean, latest))
	}

	t.Run("pooled means by default", func(t *testing.T) {
		e := NewCorrelationEngine(nil, testLogger())
		results, err := e.Correlate(context.Background(), summaries)
		require.NoError(t, err)
		require.NotNil(t, results[0].Pearson)
		assert.Less(t, *results[0].Pearson, 0.0)
	})

	t.Run("latest values when configured", func(t *testing.T) {
		e := NewCorrelationEngine(&CorrelationParams{UseLatest: true, MinPoints: 3}, testLogger())
		results, err := e.Correlate(context.Background(), summaries)
		require.NoError(t, err)
		require.NotNil(t, results[0].Pearson)
		assert.Greater(t, *results[0].Pearson, 0.0)
	})
}

func TestCorrelationEngineInvalidParams(t *testing.T) {
	e := NewCorrelationEngine(&CorrelationParams{MinPoints: 1}, testLogger())
	_, err := e.Correlate(context.Background(), linearFixture([]float64{25, 30, 35}))
	assert.Error(t, err)
}
