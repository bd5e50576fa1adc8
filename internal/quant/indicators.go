package quant

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"gonum.org/v1/gonum/stat"
)

// SMA computes the simple moving average of values with the given window.
// The result is aligned to the end of the input: output length equals
// len(values) - window + 1.
func SMA(values []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, &DataError{Reason: "moving average window must be positive"}
	}
	if len(values) < window {
		return nil, &InsufficientDataError{Op: "sma", Need: window, Got: len(values)}
	}
	sma := trend.NewSmaWithPeriod[float64](window)
	return helper.ChanToSlice(sma.Compute(helper.SliceToChan(values))), nil
}

// EMA computes the exponential moving average with the given window, aligned
// like SMA.
func EMA(values []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, &DataError{Reason: "moving average window must be positive"}
	}
	if len(values) < window {
		return nil, &InsufficientDataError{Op: "ema", Need: window, Got: len(values)}
	}
	ema := trend.NewEmaWithPeriod[float64](window)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(values))), nil
}

// DirectionalIndex holds the ADX trend-strength output and its directional
// components, aligned 1:1 with the input series.
type DirectionalIndex struct {
	ADX     []float64
	DIPlus  []float64
	DIMinus []float64
}

// wilderSmooth applies Wilder's modified exponential smoothing
// (alpha = 1/period, seeded with the first value).
func wilderSmooth(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 1.0 / float64(period)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// ADX computes the Average Directional Index and the +DI/-DI components from
// high/low/close series using Wilder's smoothing. All three outputs are in
// [0, 100] and aligned with the input. It requires 2*window observations:
// one window to seed the smoothing and one to smooth the DX itself.
func ADX(high, low, close []float64, window int) (*DirectionalIndex, error) {
	n := len(close)
	if len(high) != n || len(low) != n {
		return nil, &DataError{Reason: "high/low/close lengths differ"}
	}
	if window < 1 {
		return nil, &DataError{Reason: "adx window must be positive"}
	}
	if n < 2*window {
		return nil, &InsufficientDataError{Op: "adx", Need: 2 * window, Got: n}
	}

	tr := make([]float64, n)
	dmPlus := make([]float64, n)
	dmMinus := make([]float64, n)
	tr[0] = high[0] - low[0]
	for i := 1; i < n; i++ {
		tr[i] = math.Max(high[i]-low[i],
			math.Max(math.Abs(high[i]-close[i-1]), math.Abs(low[i]-close[i-1])))

		upMove := high[i] - high[i-1]
		downMove := low[i-1] - low[i]
		if upMove > 0 && upMove > downMove {
			dmPlus[i] = upMove
		}
		if downMove > 0 && downMove > upMove {
			dmMinus[i] = downMove
		}
	}

	trS := wilderSmooth(tr, window)
	dmPlusS := wilderSmooth(dmPlus, window)
	dmMinusS := wilderSmooth(dmMinus, window)

	diPlus := make([]float64, n)
	diMinus := make([]float64, n)
	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		if trS[i] > 0 {
			diPlus[i] = dmPlusS[i] / trS[i] * 100
			diMinus[i] = dmMinusS[i] / trS[i] * 100
		}
		if sum := diPlus[i] + diMinus[i]; sum > 0 {
			dx[i] = math.Abs(diPlus[i]-diMinus[i]) / sum * 100
		}
	}

	return &DirectionalIndex{
		ADX:     wilderSmooth(dx, window),
		DIPlus:  diPlus,
		DIMinus: diMinus,
	}, nil
}

// AnnualizedVolatility is the sample standard deviation of per-period returns
// scaled by sqrt(periodsPerYear).
func AnnualizedVolatility(returns []float64, periodsPerYear float64) (float64, error) {
	if len(returns) < 2 {
		return 0, &InsufficientDataError{Op: "volatility", Need: 2, Got: len(returns)}
	}
	return stat.StdDev(returns, nil) * math.Sqrt(periodsPerYear), nil
}

// SharpeRatio is the annualized excess mean return over its standard
// deviation. A zero-variance window yields 0, not an error.
func SharpeRatio(returns []float64, riskFreeRate, periodsPerYear float64) (float64, error) {
	if len(returns) < 2 {
		return 0, &InsufficientDataError{Op: "sharpe", Need: 2, Got: len(returns)}
	}
	sd := stat.StdDev(returns, nil)
	if sd == 0 {
		return 0, nil
	}
	return (stat.Mean(returns, nil) - riskFreeRate) / sd * math.Sqrt(periodsPerYear), nil
}

// SortinoRatio is like Sharpe but its denominator is the standard deviation of
// negative returns only. A window with no downside returns +Inf; that is a
// reportable value, not an error.
func SortinoRatio(returns []float64, riskFreeRate, periodsPerYear float64) (float64, error) {
	if len(returns) < 2 {
		return 0, &InsufficientDataError{Op: "sortino", Need: 2, Got: len(returns)}
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return math.Inf(1), nil
	}
	sd := stat.StdDev(downside, nil)
	if sd == 0 {
		return math.Inf(1), nil
	}
	return (stat.Mean(returns, nil) - riskFreeRate) / sd * math.Sqrt(periodsPerYear), nil
}

// CumulativeIndex compounds per-period returns into a value index with base 1.
func CumulativeIndex(returns []float64) []float64 {
	out := make([]float64, len(returns))
	value := 1.0
	for i, r := range returns {
		value *= 1 + r
		out[i] = value
	}
	return out
}

// MaxDrawdown is the deepest decline from a running peak of a value series,
// expressed as a non-positive fraction. A monotonically increasing series
// yields exactly 0; the floor is -1 for positive-valued series.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if dd := v/peak - 1; dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// CumulativeReturn is the total return of a value series: last/first - 1.
func CumulativeReturn(values []float64) float64 {
	if len(values) == 0 || values[0] == 0 {
		return 0
	}
	return values[len(values)-1]/values[0] - 1
}

// AnnualizedReturn compounds per-period returns into a yearly growth rate.
func AnnualizedReturn(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	if growth <= 0 {
		return -1
	}
	return math.Pow(growth, periodsPerYear/float64(len(returns))) - 1
}

// KaufmanEfficiencyRatio measures market noise over the trailing period:
// net price change divided by the sum of absolute per-period changes.
// Values near 1 indicate trend, near 0 indicate noise.
func KaufmanEfficiencyRatio(closes []float64, period int) (float64, error) {
	if len(closes) < period+1 {
		return 0, &InsufficientDataError{Op: "efficiency_ratio", Need: period + 1, Got: len(closes)}
	}
	n := len(closes)
	change := math.Abs(closes[n-1] - closes[n-1-period])
	noise := 0.0
	for i := n - period; i < n; i++ {
		noise += math.Abs(closes[i] - closes[i-1])
	}
	if noise == 0 {
		return 0, nil
	}
	return change / noise, nil
}

// HurstExponent estimates the Hurst exponent of a price series from the
// scaling of lagged standard deviations. Below 0.5 suggests mean reversion,
// above 0.5 a trending series. Degenerate inputs fall back to the
// random-walk value 0.5.
func HurstExponent(closes []float64, maxLag int) float64 {
	if maxLag < 3 || len(closes) <= maxLag {
		return 0.5
	}
	var logLags, logTau []float64
	for lag := 2; lag < maxLag; lag++ {
		diffs := make([]float64, len(closes)-lag)
		for i := lag; i < len(closes); i++ {
			diffs[i-lag] = closes[i] - closes[i-lag]
		}
		// Population standard deviation, matching the classic estimator.
		mean := stat.Mean(diffs, nil)
		ss := 0.0
		for _, d := range diffs {
			ss += (d - mean) * (d - mean)
		}
		tau := math.Sqrt(math.Sqrt(ss / float64(len(diffs))))
		if tau <= 0 {
			return 0.5
		}
		logLags = append(logLags, math.Log(float64(lag)))
		logTau = append(logTau, math.Log(tau))
	}
	_, slope := stat.LinearRegression(logLags, logTau, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 0.5
	}
	return slope * 2
}
