package quant

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdesk/quantdesk-go/internal/models"
)

// returnSeriesFixture builds three aligned deterministic return series long
// enough for covariance estimation.
func returnSeriesFixture(n int) []*models.ReturnSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	timestamps := make([]time.Time, n)
	for i := range timestamps {
		timestamps[i] = start.AddDate(0, 0, i)
	}
	mk := func(symbol string, phase, scale float64) *models.ReturnSeries {
		values := make([]float64, n)
		for i := range values {
			values[i] = scale * math.Sin(float64(i)/3+phase)
		}
		return &models.ReturnSeries{Symbol: symbol, Kind: models.SimpleReturns, Timestamps: timestamps, Values: values}
	}
	return []*models.ReturnSeries{
		mk("A", 0, 0.01),
		mk("B", 1.3, 0.02),
		mk("C", 2.9, 0.015),
	}
}

func TestEqualWeights(t *testing.T) {
	w := EqualWeights(4)
	require.Len(t, w, 4)
	sum := 0.0
	for _, v := range w {
		assert.Equal(t, 0.25, v)
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-12)
}

func TestNormalizeWeights(t *testing.T) {
	t.Run("rescales to one and clips negatives", func(t *testing.T) {
		w, err := NormalizeWeights([]float64{2, -1, 2})
		require.NoError(t, err)
		assert.InDelta(t, 0.5, w[0], 1e-12)
		assert.Equal(t, 0.0, w[1])
		assert.InDelta(t, 0.5, w[2], 1e-12)
	})

	t.Run("all non-positive fails", func(t *testing.T) {
		_, err := NormalizeWeights([]float64{-1, 0})
		assert.Error(t, err)
	})
}

func TestPortfolioReturns(t *testing.T) {
	series := returnSeriesFixture(60)

	t.Run("equal weights average the assets", func(t *testing.T) {
		port, err := PortfolioReturns(series, EqualWeights(3))
		require.NoError(t, err)
		require.Equal(t, 60, port.Len())
		for i := range port.Values {
			want := (series[0].Values[i] + series[1].Values[i] + series[2].Values[i]) / 3
			assert.InDelta(t, want, port.Values[i], 1e-12)
		}
	})

	t.Run("weight count mismatch fails", func(t *testing.T) {
		_, err := PortfolioReturns(series, []float64{0.5, 0.5})
		var dataErr *DataError
		require.ErrorAs(t, err, &dataErr)
	})
}

func TestRebalancedReturns(t *testing.T) {
	series := returnSeriesFixture(60)
	target := EqualWeights(3)

	t.Run("first period matches the fixed-weight portfolio", func(t *testing.T) {
		fixed, err := PortfolioReturns(series, target)
		require.NoError(t, err)
		drifted, err := RebalancedReturns(series, target, "none")
		require.NoError(t, err)
		assert.InDelta(t, fixed.Values[0], drifted.Values[0], 1e-12)
	})

	t.Run("weekly rebalance differs from pure drift", func(t *testing.T) {
		drifted, err := RebalancedReturns(series, target, "none")
		require.NoError(t, err)
		weekly, err := RebalancedReturns(series, target, "weekly")
		require.NoError(t, err)

		diff := 0.0
		for i := range drifted.Values {
			diff += math.Abs(drifted.Values[i] - weekly.Values[i])
		}
		assert.Greater(t, diff, 0.0)
	})
}

func TestCovarianceAndCorrelation(t *testing.T) {
	series := returnSeriesFixture(120)

	t.Run("covariance diagonal is the variance", func(t *testing.T) {
		cov, err := CovarianceMatrix(series)
		require.NoError(t, err)
		n, _ := cov.Dims()
		require.Equal(t, 3, n)
		for i := 0; i < n; i++ {
			assert.Greater(t, cov.At(i, i), 0.0)
		}
		assert.Equal(t, cov.At(0, 1), cov.At(1, 0))
	})

	t.Run("correlation is symmetric with unit diagonal", func(t *testing.T) {
		corr, err := CorrelationMatrix(series)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			assert.InDelta(t, 1, corr.At(i, i), 1e-9)
			for j := 0; j < 3; j++ {
				assert.Equal(t, corr.At(i, j), corr.At(j, i))
				assert.LessOrEqual(t, math.Abs(corr.At(i, j)), 1.0+1e-9)
			}
		}
	})
}

func TestPortfolioVolatility(t *testing.T) {
	series := returnSeriesFixture(120)
	cov, err := CovarianceMatrix(series)
	require.NoError(t, err)

	vol, err := PortfolioVolatility(EqualWeights(3), cov, 252)
	require.NoError(t, err)
	assert.Greater(t, vol, 0.0)

	_, err = PortfolioVolatility([]float64{1}, cov, 252)
	assert.Error(t, err)
}

func TestOptimizeMinVariance(t *testing.T) {
	series := returnSeriesFixture(120)
	cov, err := CovarianceMatrix(series)
	require.NoError(t, err)
	mu := MeanReturns(series)

	t.Run("weights sum to one and are non-negative", func(t *testing.T) {
		w, err := OptimizeMinVariance(cov, mu, nil)
		require.NoError(t, err)
		require.Len(t, w, 3)
		sum := 0.0
		for _, v := range w {
			assert.GreaterOrEqual(t, v, -1e-12)
			sum += v
		}
		assert.InDelta(t, 1, sum, 1e-9)
	})

	t.Run("no long-only portfolio beats the optimum", func(t *testing.T) {
		w, err := OptimizeMinVariance(cov, mu, nil)
		require.NoError(t, err)
		optVol, err := PortfolioVolatility(w, cov, 1)
		require.NoError(t, err)

		candidates := [][]float64{
			EqualWeights(3),
			{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
			{0.5, 0.5, 0}, {0.5, 0, 0.5}, {0, 0.5, 0.5},
		}
		for _, c := range candidates {
			vol, err := PortfolioVolatility(c, cov, 1)
			require.NoError(t, err)
			assert.LessOrEqual(t, optVol, vol+1e-9)
		}
	})

	t.Run("achievable target return is honored", func(t *testing.T) {
		lo, hi := mu[0], mu[0]
		for _, m := range mu {
			lo, hi = math.Min(lo, m), math.Max(hi, m)
		}
		target := (lo + hi) / 2
		w, err := OptimizeMinVariance(cov, mu, &target)
		require.NoError(t, err)

		got := 0.0
		for i, v := range w {
			got += v * mu[i]
		}
		assert.InDelta(t, target, got, 1e-9)
	})

	t.Run("unreachable target fails typed", func(t *testing.T) {
		target := 10.0
		_, err := OptimizeMinVariance(cov, mu, &target)
		var optErr *OptimizationError
		require.ErrorAs(t, err, &optErr)
	})

	t.Run("too few assets fails", func(t *testing.T) {
		small, err := CovarianceMatrix(series[:2])
		require.NoError(t, err)
		_, err = OptimizeMinVariance(small, mu[:2], nil)
		var optErr *OptimizationError
		require.ErrorAs(t, err, &optErr)
	})
}
