package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quantdesk/quantdesk-go/internal/marketdata"
	"github.com/quantdesk/quantdesk-go/internal/quant"
)

const dateLayout = "2006-01-02"

// AnalysisHandler serves the single-asset and portfolio report endpoints.
type AnalysisHandler struct {
	engine     *quant.Engine
	marketData *marketdata.Service
	defaults   quant.Config
	logger     *logrus.Logger
}

// NewAnalysisHandler creates the analysis handler.
func NewAnalysisHandler(engine *quant.Engine, marketData *marketdata.Service, defaults quant.Config, logger *logrus.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		engine:     engine,
		marketData: marketData,
		defaults:   defaults.Normalize(),
		logger:     logger,
	}
}

// SingleAssetRequest is the payload for POST /analysis/single.
type SingleAssetRequest struct {
	Symbol   string        `json:"symbol" binding:"required"`
	Start    string        `json:"start"`
	End      string        `json:"end"`
	Interval string        `json:"interval"`
	Config   *quant.Config `json:"config"`
}

// PortfolioRequest is the payload for POST /analysis/portfolio.
type PortfolioRequest struct {
	Symbols  []string      `json:"symbols" binding:"required"`
	Weights  []float64     `json:"weights"`
	Start    string        `json:"start"`
	End      string        `json:"end"`
	Interval string        `json:"interval"`
	Config   *quant.Config `json:"config"`
}

// SingleAsset handles POST /analysis/single.
func (h *AnalysisHandler) SingleAsset(c *gin.Context) {
	var req SingleAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, end, interval, err := parseRange(req.Start, req.End, req.Interval)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	series, err := h.marketData.GetSeries(c.Request.Context(), req.Symbol, start, end, interval)
	if err != nil {
		h.respondError(c, err)
		return
	}

	report, err := h.engine.ComputeSingleAssetReport(c.Request.Context(), series, h.requestConfig(req.Config))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Portfolio handles POST /analysis/portfolio.
func (h *AnalysisHandler) Portfolio(c *gin.Context) {
	var req PortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Symbols) < quant.MinPortfolioAssets {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "portfolio analysis requires at least 3 symbols",
		})
		return
	}

	start, end, interval, err := parseRange(req.Start, req.End, req.Interval)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	series, err := h.marketData.GetSeriesBatch(c.Request.Context(), req.Symbols, start, end, interval)
	if err != nil {
		h.respondError(c, err)
		return
	}

	report, err := h.engine.ComputePortfolioReport(c.Request.Context(), series, req.Weights, h.requestConfig(req.Config))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// requestConfig overlays per-request options on the configured defaults.
func (h *AnalysisHandler) requestConfig(override *quant.Config) quant.Config {
	if override == nil {
		return h.defaults
	}
	cfg := *override
	if cfg.ShortWindow == 0 {
		cfg.ShortWindow = h.defaults.ShortWindow
	}
	if cfg.LongWindow == 0 {
		cfg.LongWindow = h.defaults.LongWindow
	}
	if cfg.ADXWindow == 0 {
		cfg.ADXWindow = h.defaults.ADXWindow
	}
	if cfg.ADXThreshold == 0 {
		cfg.ADXThreshold = h.defaults.ADXThreshold
	}
	// Omitted in the payload means "use the server default"; only an
	// explicit true/false overrides it.
	if cfg.ADXFilter == nil {
		cfg.ADXFilter = h.defaults.ADXFilter
	}
	if cfg.MAKind == "" {
		cfg.MAKind = h.defaults.MAKind
	}
	if cfg.ReturnKind == "" {
		cfg.ReturnKind = h.defaults.ReturnKind
	}
	if cfg.PeriodsPerYear == 0 {
		cfg.PeriodsPerYear = h.defaults.PeriodsPerYear
	}
	if cfg.RiskFreeRate == 0 {
		cfg.RiskFreeRate = h.defaults.RiskFreeRate
	}
	if cfg.ForecastHorizon == 0 {
		cfg.ForecastHorizon = h.defaults.ForecastHorizon
	}
	if cfg.Confidence == 0 {
		cfg.Confidence = h.defaults.Confidence
	}
	return cfg.Normalize()
}

func parseRange(startStr, endStr, interval string) (time.Time, time.Time, string, error) {
	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)
	var err error
	if endStr != "" {
		if end, err = time.Parse(dateLayout, endStr); err != nil {
			return time.Time{}, time.Time{}, "", err
		}
	}
	if startStr != "" {
		if start, err = time.Parse(dateLayout, startStr); err != nil {
			return time.Time{}, time.Time{}, "", err
		}
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, "", errors.New("start date must precede end date")
	}
	if interval == "" {
		interval = "1d"
	}
	return start, end, interval, nil
}

// respondError maps the engine error taxonomy onto HTTP statuses, exposing
// the error kind and the specific unmet precondition.
func (h *AnalysisHandler) respondError(c *gin.Context, err error) {
	var (
		dataErr    *quant.DataError
		insuffErr  *quant.InsufficientDataError
		fitErr     *quant.FitError
		optErr     *quant.OptimizationError
		timeoutErr *quant.DataSourceTimeoutError
	)
	switch {
	case errors.As(err, &timeoutErr):
		c.JSON(http.StatusGatewayTimeout, gin.H{"kind": "data_source_timeout", "error": err.Error()})
	case errors.As(err, &insuffErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"kind": "insufficient_data", "error": err.Error()})
	case errors.As(err, &dataErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"kind": "data_error", "error": err.Error()})
	case errors.As(err, &fitErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"kind": "fit_error", "error": err.Error()})
	case errors.As(err, &optErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"kind": "optimization_error", "error": err.Error()})
	default:
		h.logger.WithError(err).Error("Analysis request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
