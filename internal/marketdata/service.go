package marketdata

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quantdesk/quantdesk-go/internal/models"
)

// Fetcher retrieves a price series for one symbol and inclusive date range.
type Fetcher interface {
	FetchSeries(ctx context.Context, symbol string, start, end time.Time, interval string) (*models.PriceSeries, error)
}

// SeriesCache fronts the fetcher with a keyed, TTL-bounded cache.
type SeriesCache interface {
	Get(ctx context.Context, symbol string, start, end time.Time, interval string) (*models.PriceSeries, bool)
	Set(ctx context.Context, symbol string, start, end time.Time, interval string, series *models.PriceSeries)
}

// Service is the data-source collaborator: cache-first fetch of adjusted
// price series. Errors from the fetcher pass through untouched; the service
// never retries.
type Service struct {
	fetcher Fetcher
	cache   SeriesCache
	logger  *logrus.Logger
}

// NewService creates a market-data service. cache may be nil, in which case
// every request goes to the fetcher.
func NewService(fetcher Fetcher, cache SeriesCache, logger *logrus.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger,
	}
}

// GetSeries returns the price series for a symbol, serving from cache when
// possible.
func (s *Service) GetSeries(ctx context.Context, symbol string, start, end time.Time, interval string) (*models.PriceSeries, error) {
	if s.cache != nil {
		if series, ok := s.cache.Get(ctx, symbol, start, end, interval); ok {
			s.logger.WithFields(logrus.Fields{"symbol": symbol, "interval": interval}).Debug("Series cache hit")
			return series, nil
		}
	}

	series, err := s.fetcher.FetchSeries(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, symbol, start, end, interval, series)
	}
	return series, nil
}

// GetSeriesBatch fetches several symbols over the same range. It fails on
// the first error so callers never see a partially aligned portfolio.
func (s *Service) GetSeriesBatch(ctx context.Context, symbols []string, start, end time.Time, interval string) ([]*models.PriceSeries, error) {
	out := make([]*models.PriceSeries, 0, len(symbols))
	for _, symbol := range symbols {
		series, err := s.GetSeries(ctx, symbol, start, end, interval)
		if err != nil {
			return nil, err
		}
		out = append(out, series)
	}
	return out, nil
}
