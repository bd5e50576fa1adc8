package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quantdesk/quantdesk-go/internal/config"
	"github.com/quantdesk/quantdesk-go/internal/models"
	"github.com/quantdesk/quantdesk-go/internal/quant"
)

const separatorWidth = 70

// SeriesProvider supplies aligned price histories for the report symbols.
type SeriesProvider interface {
	GetSeriesBatch(ctx context.Context, symbols []string, start, end time.Time, interval string) ([]*models.PriceSeries, error)
}

// Store persists rendered reports; satisfied by database.ReportStore.
type Store interface {
	Save(ctx context.Context, report *models.DailyReport) error
}

// Assembler renders the fixed-format daily report from engine outputs. It
// owns file naming and persistence; the analytics engine knows nothing about
// either.
type Assembler struct {
	provider SeriesProvider
	store    Store
	cfg      config.ReportConfig
	quantCfg quant.Config
	logger   *logrus.Logger
	now      func() time.Time
}

// NewAssembler creates a report assembler. store may be nil when persistence
// is disabled; files are still written to the output directory.
func NewAssembler(provider SeriesProvider, store Store, cfg config.ReportConfig, quantCfg quant.Config, logger *logrus.Logger) *Assembler {
	return &Assembler{
		provider: provider,
		store:    store,
		cfg:      cfg,
		quantCfg: quantCfg.Normalize(),
		logger:   logger,
		now:      time.Now,
	}
}

// Generate fetches the configured symbols, computes the per-asset and
// equal-weight portfolio risk metrics and writes one report file named by
// date. The rendered report is also persisted when a store is configured.
func (a *Assembler) Generate(ctx context.Context) (*models.DailyReport, error) {
	end := a.now()
	start := end.Add(-a.cfg.LookbackDuration())

	series, err := a.provider.GetSeriesBatch(ctx, a.cfg.Symbols, start, end, a.cfg.Interval)
	if err != nil {
		return nil, fmt.Errorf("failed to load report data: %w", err)
	}

	aligned, err := quant.AlignSeries(series, 2)
	if err != nil {
		return nil, err
	}

	content, err := a.render(aligned)
	if err != nil {
		return nil, err
	}

	report := &models.DailyReport{
		ID:          uuid.NewString(),
		ReportDate:  time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC),
		Symbols:     a.cfg.Symbols,
		Content:     content,
		GeneratedAt: end.UTC(),
	}

	if err := a.writeFile(report); err != nil {
		return nil, err
	}
	if a.store != nil {
		if err := a.store.Save(ctx, report); err != nil {
			return nil, err
		}
	}

	a.logger.WithFields(logrus.Fields{
		"date":    report.ReportDate.Format("2006-01-02"),
		"symbols": strings.Join(a.cfg.Symbols, ","),
	}).Info("Daily report generated")
	return report, nil
}

func (a *Assembler) render(series []*models.PriceSeries) (string, error) {
	var b strings.Builder
	rule := strings.Repeat("=", separatorWidth)
	thin := strings.Repeat("-", separatorWidth)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "DAILY FINANCIAL REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Generated: %s\n", a.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Tickers: %s\n", strings.Join(symbolsOf(series), ", "))
	first := series[0].Candles[0].Timestamp
	last := series[0].Candles[series[0].Len()-1].Timestamp
	fmt.Fprintf(&b, "Data window: %s -> %s\n\n", first.Format("2006-01-02"), last.Format("2006-01-02"))

	fmt.Fprintln(&b, thin)
	fmt.Fprintln(&b, "OPEN / CLOSE (latest trading day)")
	fmt.Fprintln(&b, thin)
	fmt.Fprintf(&b, "Last date: %s\n\n", last.Format("2006-01-02"))
	for _, ps := range series {
		opens, closes := ps.Opens(), ps.Closes()
		open, closePx := opens[len(opens)-1], closes[len(closes)-1]
		change := 0.0
		if open != 0 {
			change = closePx/open - 1
		}
		fmt.Fprintf(&b, "%-6s | Open: %10.4f | Close: %10.4f | Day: %+7.2f%%\n", ps.Symbol, open, closePx, change*100)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, thin)
	fmt.Fprintln(&b, "RISK METRICS (based on daily returns)")
	fmt.Fprintln(&b, thin)
	var returnSeries []*models.ReturnSeries
	for _, ps := range series {
		rs, err := quant.Returns(ps, a.quantCfg.ReturnKind)
		if err != nil {
			return "", err
		}
		returnSeries = append(returnSeries, rs)
		vol, err := quant.AnnualizedVolatility(rs.Values, a.quantCfg.PeriodsPerYear)
		if err != nil {
			return "", err
		}
		mdd := quant.MaxDrawdown(quant.CumulativeIndex(rs.Values))
		fmt.Fprintf(&b, "%-6s | Vol (ann.): %7.2f%% | Max Drawdown: %7.2f%%\n", ps.Symbol, vol*100, mdd*100)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, thin)
	fmt.Fprintln(&b, "EQUAL-WEIGHT PORTFOLIO")
	fmt.Fprintln(&b, thin)
	portReturns, err := quant.PortfolioReturns(returnSeries, quant.EqualWeights(len(returnSeries)))
	if err != nil {
		return "", err
	}
	vol, err := quant.AnnualizedVolatility(portReturns.Values, a.quantCfg.PeriodsPerYear)
	if err != nil {
		return "", err
	}
	mdd := quant.MaxDrawdown(quant.CumulativeIndex(portReturns.Values))
	fmt.Fprintf(&b, "Portfolio | Vol (ann.): %7.2f%% | Max Drawdown: %7.2f%%\n", vol*100, mdd*100)

	return b.String(), nil
}

func (a *Assembler) writeFile(report *models.DailyReport) error {
	if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	name := fmt.Sprintf("daily_report_%s.txt", report.ReportDate.Format("2006-01-02"))
	path := filepath.Join(a.cfg.OutputDir, name)
	if err := os.WriteFile(path, []byte(report.Content), 0o644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

func symbolsOf(series []*models.PriceSeries) []string {
	out := make([]string, len(series))
	for i, ps := range series {
		out[i] = ps.Symbol
	}
	return out
}
