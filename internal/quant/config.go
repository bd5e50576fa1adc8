package quant

import "github.com/quantdesk/quantdesk-go/internal/models"

// Config enumerates every option the analytics engine recognizes for one
// analysis request. Zero values are filled in by Normalize, so callers can
// set only the fields they care about.
type Config struct {
	ShortWindow  int     `json:"short_window" mapstructure:"short_window"`
	LongWindow   int     `json:"long_window" mapstructure:"long_window"`
	ADXWindow    int     `json:"adx_window" mapstructure:"adx_window"`
	ADXThreshold float64 `json:"adx_threshold" mapstructure:"adx_threshold"`
	// ADXFilter gates crossover signals on trend strength. A pointer keeps
	// "not set" distinct from an explicit false, so partial overrides
	// inherit the configured default instead of silently disabling it.
	ADXFilter *bool `json:"adx_filter,omitempty" mapstructure:"adx_filter"`
	// MAKind selects the crossover moving average: "sma" or "ema".
	MAKind          string            `json:"ma_kind" mapstructure:"ma_kind"`
	ReturnKind      models.ReturnKind `json:"return_kind" mapstructure:"return_kind"`
	PeriodsPerYear  float64           `json:"periods_per_year" mapstructure:"periods_per_year"`
	RiskFreeRate    float64           `json:"risk_free_rate" mapstructure:"risk_free_rate"`
	ForecastHorizon int               `json:"forecast_horizon" mapstructure:"forecast_horizon"`
	Confidence      float64           `json:"confidence" mapstructure:"confidence"`
	ARIMAOrder      [3]int            `json:"arima_order" mapstructure:"arima_order"`
	// Optimize requests Markowitz minimum-variance weights in portfolio
	// reports.
	Optimize bool `json:"optimize" mapstructure:"optimize"`
	// TargetReturn, when set, asks the optimizer for the minimum-variance
	// portfolio achieving that annualized expected return.
	TargetReturn *float64 `json:"target_return,omitempty" mapstructure:"target_return"`
	// Rebalance selects the portfolio return model: "none" holds the target
	// weights fixed at every period, "weekly" and "monthly" backtest with
	// natural drift between rebalance dates.
	Rebalance string `json:"rebalance" mapstructure:"rebalance"`
}

func boolPtr(b bool) *bool { return &b }

// DefaultConfig returns the engine defaults: 20/100 moving averages, a 14
// period ADX with threshold 25, simple daily returns and a 7 day ARIMA(5,1,0)
// forecast at 95% confidence.
func DefaultConfig() Config {
	return Config{
		ShortWindow:     20,
		LongWindow:      100,
		ADXWindow:       14,
		ADXThreshold:    25,
		ADXFilter:       boolPtr(true),
		MAKind:          "sma",
		ReturnKind:      models.SimpleReturns,
		PeriodsPerYear:  252,
		RiskFreeRate:    0,
		ForecastHorizon: 7,
		Confidence:      0.95,
		ARIMAOrder:      [3]int{5, 1, 0},
		Rebalance:       "none",
	}
}

// Normalize fills unset fields from the defaults and returns the result.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.ShortWindow <= 0 {
		c.ShortWindow = def.ShortWindow
	}
	if c.LongWindow <= 0 {
		c.LongWindow = def.LongWindow
	}
	if c.LongWindow <= c.ShortWindow {
		c.LongWindow = c.ShortWindow + 10
	}
	if c.ADXWindow <= 0 {
		c.ADXWindow = def.ADXWindow
	}
	if c.ADXThreshold <= 0 {
		c.ADXThreshold = def.ADXThreshold
	}
	if c.ADXFilter == nil {
		c.ADXFilter = def.ADXFilter
	}
	switch c.MAKind {
	case "sma", "ema":
	default:
		c.MAKind = def.MAKind
	}
	if c.ReturnKind != models.LogReturns {
		c.ReturnKind = models.SimpleReturns
	}
	if c.PeriodsPerYear <= 0 {
		c.PeriodsPerYear = def.PeriodsPerYear
	}
	if c.ForecastHorizon <= 0 {
		c.ForecastHorizon = def.ForecastHorizon
	}
	if c.Confidence <= 0 || c.Confidence >= 1 {
		c.Confidence = def.Confidence
	}
	if c.ARIMAOrder[0] <= 0 && c.ARIMAOrder[1] <= 0 && c.ARIMAOrder[2] <= 0 {
		c.ARIMAOrder = def.ARIMAOrder
	}
	switch c.Rebalance {
	case "none", "weekly", "monthly":
	default:
		c.Rebalance = def.Rebalance
	}
	return c
}
