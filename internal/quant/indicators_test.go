package quant

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	t.Run("computes tail-aligned averages", func(t *testing.T) {
		out, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.InDelta(t, 2, out[0], 1e-9)
		assert.InDelta(t, 3, out[1], 1e-9)
		assert.InDelta(t, 4, out[2], 1e-9)
	})

	t.Run("window larger than series fails typed", func(t *testing.T) {
		_, err := SMA([]float64{1, 2, 3}, 5)
		var insuffErr *InsufficientDataError
		require.ErrorAs(t, err, &insuffErr)
		assert.Equal(t, 5, insuffErr.Need)
		assert.Equal(t, 3, insuffErr.Got)
	})

	t.Run("non-positive window fails", func(t *testing.T) {
		_, err := SMA([]float64{1, 2, 3}, 0)
		assert.Error(t, err)
	})
}

func TestEMA(t *testing.T) {
	t.Run("constant input gives constant output", func(t *testing.T) {
		values := make([]float64, 10)
		for i := range values {
			values[i] = 7
		}
		out, err := EMA(values, 4)
		require.NoError(t, err)
		require.Len(t, out, 7)
		for _, v := range out {
			assert.InDelta(t, 7, v, 1e-9)
		}
	})

	t.Run("tracks the level faster than the simple average", func(t *testing.T) {
		// Step change: the exponential average of the tail sits closer to
		// the new level than the simple average over the same window.
		values := []float64{10, 10, 10, 10, 10, 10, 20, 20, 20, 20}
		ema, err := EMA(values, 6)
		require.NoError(t, err)
		sma, err := SMA(values, 6)
		require.NoError(t, err)
		require.Len(t, ema, len(sma))
		last := len(ema) - 1
		assert.Greater(t, ema[last], sma[last])
	})

	t.Run("window larger than series fails typed", func(t *testing.T) {
		_, err := EMA([]float64{1, 2, 3}, 5)
		var insuffErr *InsufficientDataError
		require.ErrorAs(t, err, &insuffErr)
	})
}

func TestADX(t *testing.T) {
	closes := trendingCloses(120, 100, 0.5)
	high := make([]float64, len(closes))
	low := make([]float64, len(closes))
	for i, c := range closes {
		high[i] = c * 1.01
		low[i] = c * 0.99
	}

	t.Run("outputs bounded and aligned", func(t *testing.T) {
		di, err := ADX(high, low, closes, 14)
		require.NoError(t, err)
		require.Len(t, di.ADX, len(closes))
		require.Len(t, di.DIPlus, len(closes))
		require.Len(t, di.DIMinus, len(closes))
		for i := range di.ADX {
			assert.GreaterOrEqual(t, di.ADX[i], 0.0)
			assert.LessOrEqual(t, di.ADX[i], 100.0)
			assert.GreaterOrEqual(t, di.DIPlus[i], 0.0)
			assert.LessOrEqual(t, di.DIPlus[i], 100.0)
		}
	})

	t.Run("uptrend favors positive directional movement", func(t *testing.T) {
		di, err := ADX(high, low, closes, 14)
		require.NoError(t, err)
		last := len(closes) - 1
		assert.Greater(t, di.DIPlus[last], di.DIMinus[last])
	})

	t.Run("short history fails typed", func(t *testing.T) {
		_, err := ADX(high[:20], low[:20], closes[:20], 14)
		var insuffErr *InsufficientDataError
		require.ErrorAs(t, err, &insuffErr)
		assert.Equal(t, 28, insuffErr.Need)
	})

	t.Run("mismatched lengths fail", func(t *testing.T) {
		_, err := ADX(high[:50], low, closes, 14)
		assert.Error(t, err)
	})
}

func TestWilderSmooth(t *testing.T) {
	// Seeded with the first value, then alpha = 1/period recursion.
	out := wilderSmooth([]float64{10, 20, 30}, 10)
	assert.InDelta(t, 10, out[0], 1e-9)
	assert.InDelta(t, 0.1*20+0.9*10, out[1], 1e-9)
	assert.InDelta(t, 0.1*30+0.9*out[1], out[2], 1e-9)
}

func TestRiskMetricsFromReturns(t *testing.T) {
	// Closes 100, 102, 101, 105, 103: the canonical small worked example.
	returns := []float64{0.02, 101.0/102.0 - 1, 105.0/101.0 - 1, 103.0/105.0 - 1}

	t.Run("annualized volatility", func(t *testing.T) {
		vol, err := AnnualizedVolatility(returns, 252)
		require.NoError(t, err)
		assert.Greater(t, vol, 0.0)
	})

	t.Run("volatility needs two observations", func(t *testing.T) {
		_, err := AnnualizedVolatility([]float64{0.01}, 252)
		var insuffErr *InsufficientDataError
		require.ErrorAs(t, err, &insuffErr)
	})

	t.Run("max drawdown matches hand computation", func(t *testing.T) {
		index := CumulativeIndex(returns)
		// Peak at 105 (index 1.05), trough at the final 103: 103/105 - 1.
		assert.InDelta(t, 103.0/105.0-1, MaxDrawdown(index), 1e-9)
	})

	t.Run("cumulative return matches closes", func(t *testing.T) {
		index := CumulativeIndex(returns)
		assert.InDelta(t, 0.03, CumulativeReturn(index), 1e-9)
	})

	t.Run("monotone series has zero drawdown", func(t *testing.T) {
		assert.Equal(t, 0.0, MaxDrawdown([]float64{1, 1.1, 1.2, 1.3}))
	})
}

func TestSharpeRatio(t *testing.T) {
	t.Run("zero variance yields zero", func(t *testing.T) {
		s, err := SharpeRatio([]float64{0.01, 0.01, 0.01}, 0, 252)
		require.NoError(t, err)
		assert.Equal(t, 0.0, s)
	})

	t.Run("positive for positive excess returns", func(t *testing.T) {
		s, err := SharpeRatio([]float64{0.01, 0.02, 0.005, 0.015}, 0, 252)
		require.NoError(t, err)
		assert.Greater(t, s, 0.0)
	})

	t.Run("sensitive to the risk-free rate", func(t *testing.T) {
		returns := []float64{0.01, 0.02, 0.005, 0.015}
		low, err := SharpeRatio(returns, 0.02, 252)
		require.NoError(t, err)
		high, err := SharpeRatio(returns, 0, 252)
		require.NoError(t, err)
		assert.Less(t, low, high)
	})
}

func TestSortinoRatio(t *testing.T) {
	t.Run("no downside returns positive infinity", func(t *testing.T) {
		s, err := SortinoRatio([]float64{0.01, 0.02, 0.015}, 0, 252)
		require.NoError(t, err)
		assert.True(t, math.IsInf(s, 1))
	})

	t.Run("finite with mixed returns", func(t *testing.T) {
		s, err := SortinoRatio([]float64{0.02, -0.01, 0.03, -0.02, 0.01}, 0, 252)
		require.NoError(t, err)
		assert.False(t, math.IsInf(s, 0))
		assert.False(t, math.IsNaN(s))
	})
}

func TestAnnualizedReturn(t *testing.T) {
	t.Run("constant daily return compounds to the annual rate", func(t *testing.T) {
		daily := math.Pow(1.10, 1.0/252.0) - 1
		returns := make([]float64, 252)
		for i := range returns {
			returns[i] = daily
		}
		assert.InDelta(t, 0.10, AnnualizedReturn(returns, 252), 1e-9)
	})

	t.Run("total loss floors at -1", func(t *testing.T) {
		assert.Equal(t, -1.0, AnnualizedReturn([]float64{-1, 0.5}, 252))
	})
}

func TestKaufmanEfficiencyRatio(t *testing.T) {
	t.Run("straight line is perfectly efficient", func(t *testing.T) {
		closes := make([]float64, 40)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}
		er, err := KaufmanEfficiencyRatio(closes, 30)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, er, 1e-9)
	})

	t.Run("oscillation is inefficient", func(t *testing.T) {
		closes := make([]float64, 40)
		for i := range closes {
			closes[i] = 100 + math.Mod(float64(i), 2)
		}
		er, err := KaufmanEfficiencyRatio(closes, 30)
		require.NoError(t, err)
		assert.Less(t, er, 0.1)
	})

	t.Run("short series fails typed", func(t *testing.T) {
		_, err := KaufmanEfficiencyRatio([]float64{1, 2, 3}, 30)
		var insuffErr *InsufficientDataError
		require.ErrorAs(t, err, &insuffErr)
	})
}

func TestHurstExponent(t *testing.T) {
	t.Run("persistent series above one half", func(t *testing.T) {
		// Accelerating trend: lagged-difference dispersion grows linearly with
		// the lag, which the estimator reads as strong persistence.
		closes := make([]float64, 200)
		for i := range closes {
			closes[i] = 100 + float64(i)*float64(i)/10
		}
		assert.Greater(t, HurstExponent(closes, 20), 0.5)
	})

	t.Run("degenerate input falls back to one half", func(t *testing.T) {
		assert.Equal(t, 0.5, HurstExponent([]float64{1, 2, 3}, 20))
		flat := make([]float64, 100)
		for i := range flat {
			flat[i] = 50
		}
		assert.Equal(t, 0.5, HurstExponent(flat, 20))
	})
}

func TestDeterminism(t *testing.T) {
	// The same input must produce bit-identical output on repeated runs.
	closes := trendingCloses(150, 100, 0.3)
	first, err := SMA(closes, 20)
	require.NoError(t, err)
	second, err := SMA(closes, 20)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	high := make([]float64, len(closes))
	low := make([]float64, len(closes))
	for i, c := range closes {
		high[i], low[i] = c*1.01, c*0.99
	}
	a, err := ADX(high, low, closes, 14)
	require.NoError(t, err)
	b, err := ADX(high, low, closes, 14)
	require.NoError(t, err)
	assert.Equal(t, a.ADX, b.ADX)
}
