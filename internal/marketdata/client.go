package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quantdesk/quantdesk-go/internal/config"
	"github.com/quantdesk/quantdesk-go/internal/models"
	"github.com/quantdesk/quantdesk-go/internal/quant"
)

// Client is the HTTP client for the external price-data service. The service
// returns split/dividend-adjusted daily candles; the engine never normalizes
// prices itself.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// candlesResponse is the wire format of the price-data service.
type candlesResponse struct {
	Symbol   string          `json:"symbol"`
	Interval string          `json:"interval"`
	Candles  []models.Candle `json:"candles"`
}

// NewClient creates a price-data client from configuration.
func NewClient(cfg *config.MarketDataConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.ServiceURL, "/"),
		timeout:    timeout,
	}
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchSeries retrieves the OHLCV history for one symbol over an inclusive
// date range. A deadline exceeded on the caller's context or the client
// timeout surfaces as DataSourceTimeoutError; no partial series is returned.
func (c *Client) FetchSeries(ctx context.Context, symbol string, start, end time.Time, interval string) (*models.PriceSeries, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("start", start.Format("2006-01-02"))
	params.Set("end", end.Format("2006-01-02"))
	params.Set("interval", interval)

	endpoint := fmt.Sprintf("%s/api/v1/ohlcv?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &quant.DataSourceTimeoutError{Symbol: symbol}
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", symbol, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &quant.DataError{Reason: fmt.Sprintf("symbol %s not found", symbol)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("data source returned status %d for %s", resp.StatusCode, symbol)
	}

	var payload candlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response for %s: %w", symbol, err)
	}
	if len(payload.Candles) == 0 {
		return nil, &quant.DataError{Reason: fmt.Sprintf("no data for %s in requested range", symbol)}
	}

	series := &models.PriceSeries{
		Symbol:   symbol,
		Interval: payload.Interval,
		Candles:  payload.Candles,
	}
	if series.Interval == "" {
		series.Interval = interval
	}
	return series, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
