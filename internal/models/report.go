package models

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Ratio is a float64 metric that may legitimately be infinite, such as the
// Sortino ratio of a window with no negative returns. Standard JSON has no
// encoding for infinities, so those are marshaled as quoted strings.
type Ratio float64

// MarshalJSON encodes infinities as "+Inf"/"-Inf" and finite values as numbers.
func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	if math.IsInf(f, 1) {
		return []byte(`"+Inf"`), nil
	}
	if math.IsInf(f, -1) {
		return []byte(`"-Inf"`), nil
	}
	if math.IsNaN(f) {
		return []byte(`"NaN"`), nil
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts both the quoted infinity forms and plain numbers.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "+Inf", "Inf":
			*r = Ratio(math.Inf(1))
		case "-Inf":
			*r = Ratio(math.Inf(-1))
		case "NaN":
			*r = Ratio(math.NaN())
		default:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			*r = Ratio(f)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

// RiskMetrics bundles the risk statistics computed over one date range.
// Values are immutable once computed; a new range produces a new bundle.
type RiskMetrics struct {
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	AnnualizedReturn     float64 `json:"annualized_return"`
	SharpeRatio          Ratio   `json:"sharpe_ratio"`
	SortinoRatio         Ratio   `json:"sortino_ratio"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	CumulativeReturn     float64 `json:"cumulative_return"`
	Observations         int     `json:"observations"`
}

// ForecastResult is an n-step-ahead price forecast with a symmetric
// confidence interval per horizon. It is tied to the series it was fit on
// and becomes stale if that series changes.
type ForecastResult struct {
	Symbol     string      `json:"symbol"`
	Order      [3]int      `json:"order"` // p, d, q
	Horizon    int         `json:"horizon"`
	Confidence float64     `json:"confidence"`
	Timestamps []time.Time `json:"timestamps"`
	Point      []float64   `json:"point"`
	Lower      []float64   `json:"lower"`
	Upper      []float64   `json:"upper"`
}

// MarketRegime summarizes the noise/trend character of a series.
type MarketRegime struct {
	EfficiencyRatio     float64 `json:"efficiency_ratio"`
	HurstExponent       float64 `json:"hurst_exponent"`
	RecommendedStrategy string  `json:"recommended_strategy"`
}

// StrategyPerformance compares a signal-driven strategy against buy and hold
// over the same window.
type StrategyPerformance struct {
	Strategy   RiskMetrics `json:"strategy"`
	BuyAndHold RiskMetrics `json:"buy_and_hold"`
}

// SingleAssetReport is the engine output for one instrument.
type SingleAssetReport struct {
	Symbol       string               `json:"symbol"`
	Interval     string               `json:"interval"`
	LastClose    float64              `json:"last_close"`
	Metrics      RiskMetrics          `json:"metrics"`
	LatestSignal string               `json:"latest_signal"`
	Regime       MarketRegime         `json:"regime"`
	Performance  *StrategyPerformance `json:"performance,omitempty"`
	Forecast     *ForecastResult      `json:"forecast,omitempty"`
	ComputedAt   time.Time            `json:"computed_at"`
}

// PortfolioReport is the engine output for a multi-asset portfolio.
type PortfolioReport struct {
	Symbols        []string    `json:"symbols"`
	Weights        []float64   `json:"weights"`
	OptimalWeights []float64   `json:"optimal_weights,omitempty"`
	Metrics        RiskMetrics `json:"metrics"`
	Correlation    [][]float64 `json:"correlation"`
	Covariance     [][]float64 `json:"covariance"`
	Observations   int         `json:"observations"`
	ComputedAt     time.Time   `json:"computed_at"`
}

// DailyReport is a stored, rendered daily report run.
type DailyReport struct {
	ID          string    `json:"id"`
	ReportDate  time.Time `json:"report_date"`
	Symbols     []string  `json:"symbols"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generated_at"`
}
