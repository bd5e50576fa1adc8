package quant

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quantdesk/quantdesk-go/internal/models"
)

// efficiencyTrendThreshold splits trending from noisy markets when
// recommending a strategy from the Kaufman efficiency ratio.
const efficiencyTrendThreshold = 0.3

const (
	efficiencyPeriod = 30
	hurstMaxLag      = 20
)

// Engine is the stateless analytics facade. Every computation runs from the
// supplied series alone, so independent requests may be evaluated
// concurrently without coordination.
type Engine struct {
	logger *logrus.Logger
	tracer trace.Tracer
}

// NewEngine creates an analytics engine.
func NewEngine(logger *logrus.Logger) *Engine {
	return &Engine{
		logger: logger,
		tracer: otel.Tracer("quantdesk/quant"),
	}
}

// ComputeSingleAssetReport runs the full single-asset pipeline: risk metrics,
// the latest trading signal, the market-regime summary, the strategy vs
// buy-and-hold comparison and the price forecast.
func (e *Engine) ComputeSingleAssetReport(ctx context.Context, ps *models.PriceSeries, cfg Config) (*models.SingleAssetReport, error) {
	cfg = cfg.Normalize()
	_, span := e.tracer.Start(ctx, "engine.single_asset",
		trace.WithAttributes(attribute.String("symbol", ps.Symbol)))
	defer span.End()

	if err := ValidatePriceSeries(ps); err != nil {
		return nil, err
	}
	if ps.Len() < cfg.LongWindow+1 {
		return nil, &InsufficientDataError{Op: "single_asset_report", Need: cfg.LongWindow + 1, Got: ps.Len()}
	}

	rs, err := Returns(ps, cfg.ReturnKind)
	if err != nil {
		return nil, err
	}
	closes := ps.Closes()

	metrics, err := e.riskMetrics(rs.Values, CumulativeIndex(rs.Values), cfg)
	if err != nil {
		return nil, err
	}

	signals, err := GenerateSignals(ps.Highs(), ps.Lows(), closes, cfg)
	if err != nil {
		return nil, err
	}

	report := &models.SingleAssetReport{
		Symbol:       ps.Symbol,
		Interval:     ps.Interval,
		LastClose:    closes[len(closes)-1],
		Metrics:      *metrics,
		LatestSignal: signals[len(signals)-1].String(),
		Regime:       e.marketRegime(closes),
		ComputedAt:   time.Now().UTC(),
	}

	stratReturns, err := StrategyReturns(rs.Values, signals)
	if err != nil {
		return nil, err
	}
	stratMetrics, err := e.riskMetrics(stratReturns, CumulativeIndex(stratReturns), cfg)
	if err != nil {
		return nil, err
	}
	report.Performance = &models.StrategyPerformance{
		Strategy:   *stratMetrics,
		BuyAndHold: *metrics,
	}

	forecast, err := e.forecast(ps, cfg)
	if err != nil {
		return nil, err
	}
	report.Forecast = forecast

	e.logger.WithFields(logrus.Fields{
		"symbol":       ps.Symbol,
		"observations": ps.Len(),
		"signal":       report.LatestSignal,
	}).Info("Single-asset report computed")
	return report, nil
}

// ComputePortfolioReport aggregates aligned per-asset series into
// portfolio-level metrics, the correlation/covariance matrices and, when the
// configuration asks for it, the Markowitz minimum-variance weights.
func (e *Engine) ComputePortfolioReport(ctx context.Context, series []*models.PriceSeries, weights []float64, cfg Config) (*models.PortfolioReport, error) {
	cfg = cfg.Normalize()
	_, span := e.tracer.Start(ctx, "engine.portfolio",
		trace.WithAttributes(attribute.Int("assets", len(series))))
	defer span.End()

	aligned, err := AlignedReturns(series, cfg.ReturnKind, cfg.LongWindow+1)
	if err != nil {
		return nil, err
	}

	if weights == nil {
		weights = EqualWeights(len(aligned))
	} else {
		weights, err = NormalizeWeights(weights)
		if err != nil {
			return nil, err
		}
		if len(weights) != len(aligned) {
			return nil, &DataError{Reason: "weight vector does not match asset count"}
		}
	}

	// Weights are fixed over the window by default; the drift backtest only
	// runs under an explicit rebalancing schedule.
	var portReturns *models.ReturnSeries
	switch cfg.Rebalance {
	case "weekly", "monthly":
		portReturns, err = RebalancedReturns(aligned, weights, cfg.Rebalance)
	default:
		portReturns, err = PortfolioReturns(aligned, weights)
	}
	if err != nil {
		return nil, err
	}

	cov, err := CovarianceMatrix(aligned)
	if err != nil {
		return nil, err
	}
	corr, err := CorrelationMatrix(aligned)
	if err != nil {
		return nil, err
	}

	metrics, err := e.riskMetrics(portReturns.Values, CumulativeIndex(portReturns.Values), cfg)
	if err != nil {
		return nil, err
	}
	if vol, err := PortfolioVolatility(weights, cov, cfg.PeriodsPerYear); err == nil {
		metrics.AnnualizedVolatility = vol
	}

	report := &models.PortfolioReport{
		Symbols:      symbolsOf(aligned),
		Weights:      weights,
		Metrics:      *metrics,
		Correlation:  matrixRows(corr),
		Covariance:   matrixRows(cov),
		Observations: portReturns.Len(),
		ComputedAt:   time.Now().UTC(),
	}

	if cfg.Optimize || cfg.TargetReturn != nil {
		if portReturns.Len() <= len(aligned) {
			return nil, &OptimizationError{Reason: "fewer independent return observations than assets"}
		}
		var target *float64
		if cfg.TargetReturn != nil {
			// The configuration target is annualized; the optimizer works on
			// per-period expected returns.
			perPeriod := *cfg.TargetReturn / cfg.PeriodsPerYear
			target = &perPeriod
		}
		optimal, err := OptimizeMinVariance(cov, MeanReturns(aligned), target)
		if err != nil {
			return nil, err
		}
		report.OptimalWeights = optimal
	}

	e.logger.WithFields(logrus.Fields{
		"assets":       len(aligned),
		"observations": portReturns.Len(),
	}).Info("Portfolio report computed")
	return report, nil
}

func (e *Engine) riskMetrics(returns, index []float64, cfg Config) (*models.RiskMetrics, error) {
	vol, err := AnnualizedVolatility(returns, cfg.PeriodsPerYear)
	if err != nil {
		return nil, err
	}
	sharpe, err := SharpeRatio(returns, cfg.RiskFreeRate, cfg.PeriodsPerYear)
	if err != nil {
		return nil, err
	}
	sortino, err := SortinoRatio(returns, cfg.RiskFreeRate, cfg.PeriodsPerYear)
	if err != nil {
		return nil, err
	}
	return &models.RiskMetrics{
		AnnualizedVolatility: vol,
		AnnualizedReturn:     AnnualizedReturn(returns, cfg.PeriodsPerYear),
		SharpeRatio:          models.Ratio(sharpe),
		SortinoRatio:         models.Ratio(sortino),
		MaxDrawdown:          MaxDrawdown(index),
		CumulativeReturn:     CumulativeReturn(index),
		Observations:         len(returns),
	}, nil
}

func (e *Engine) marketRegime(closes []float64) models.MarketRegime {
	er, err := KaufmanEfficiencyRatio(closes, efficiencyPeriod)
	if err != nil {
		er = 0
	}
	regime := models.MarketRegime{
		EfficiencyRatio:     er,
		HurstExponent:       HurstExponent(closes, hurstMaxLag),
		RecommendedStrategy: "adx",
	}
	if er > efficiencyTrendThreshold {
		regime.RecommendedStrategy = "momentum"
	}
	return regime
}

func (e *Engine) forecast(ps *models.PriceSeries, cfg Config) (*models.ForecastResult, error) {
	model, err := FitARIMA(ps.Closes(), cfg.ARIMAOrder)
	if err != nil {
		return nil, err
	}
	point, lower, upper, err := model.Forecast(cfg.ForecastHorizon, cfg.Confidence)
	if err != nil {
		return nil, err
	}

	last := ps.Candles[ps.Len()-1].Timestamp
	step := intervalStep(ps.Interval)
	timestamps := make([]time.Time, cfg.ForecastHorizon)
	for i := range timestamps {
		timestamps[i] = last.Add(time.Duration(i+1) * step)
	}

	return &models.ForecastResult{
		Symbol:     ps.Symbol,
		Order:      model.Order,
		Horizon:    cfg.ForecastHorizon,
		Confidence: cfg.Confidence,
		Timestamps: timestamps,
		Point:      point,
		Lower:      lower,
		Upper:      upper,
	}, nil
}

func intervalStep(interval string) time.Duration {
	switch interval {
	case "1h":
		return time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func symbolsOf(series []*models.ReturnSeries) []string {
	out := make([]string, len(series))
	for i, rs := range series {
		out[i] = rs.Symbol
	}
	return out
}
