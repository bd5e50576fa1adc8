package quant

import (
	"fmt"
	"math"
	"time"

	"github.com/quantdesk/quantdesk-go/internal/models"
)

// MinPortfolioAssets is the smallest portfolio the engine accepts.
const MinPortfolioAssets = 3

// ValidatePriceSeries checks the structural invariants of a raw series:
// strictly increasing timestamps, no duplicates and no non-positive prices.
func ValidatePriceSeries(ps *models.PriceSeries) error {
	if ps == nil || len(ps.Candles) == 0 {
		return &DataError{Reason: "empty price series"}
	}
	for i, c := range ps.Candles {
		if !c.Close.IsPositive() || !c.Open.IsPositive() || !c.High.IsPositive() || !c.Low.IsPositive() {
			return &DataError{Reason: fmt.Sprintf("%s: non-positive price at index %d", ps.Symbol, i)}
		}
		if i > 0 && !c.Timestamp.After(ps.Candles[i-1].Timestamp) {
			return &DataError{Reason: fmt.Sprintf("%s: timestamps not strictly increasing at index %d", ps.Symbol, i)}
		}
	}
	return nil
}

// Returns derives the per-period return series from consecutive closes.
// The result has length len(ps)-1 and starts at the second source timestamp.
func Returns(ps *models.PriceSeries, kind models.ReturnKind) (*models.ReturnSeries, error) {
	if err := ValidatePriceSeries(ps); err != nil {
		return nil, err
	}
	if ps.Len() < 2 {
		return nil, &DataError{Reason: fmt.Sprintf("%s: need at least 2 observations to derive returns, got %d", ps.Symbol, ps.Len())}
	}

	closes := ps.Closes()
	values := make([]float64, len(closes)-1)
	timestamps := make([]time.Time, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		switch kind {
		case models.LogReturns:
			values[i-1] = math.Log(closes[i] / closes[i-1])
		default:
			values[i-1] = closes[i]/closes[i-1] - 1
		}
		timestamps[i-1] = ps.Candles[i].Timestamp
	}

	return &models.ReturnSeries{
		Symbol:     ps.Symbol,
		Kind:       kind,
		Timestamps: timestamps,
		Values:     values,
	}, nil
}

// AlignSeries inner-joins multiple price series on their common timestamps.
// All returned series share an identical, strictly increasing timestamp axis.
// It fails when fewer than two overlapping observations remain or when the
// aligned history is shorter than minLen.
func AlignSeries(series []*models.PriceSeries, minLen int) ([]*models.PriceSeries, error) {
	if len(series) == 0 {
		return nil, &DataError{Reason: "no price series supplied"}
	}
	for _, ps := range series {
		if err := ValidatePriceSeries(ps); err != nil {
			return nil, err
		}
	}

	// Count timestamp occurrences across series; a timestamp present in every
	// series survives the join. Timestamps within one series are unique, so a
	// plain counter is enough.
	counts := make(map[int64]int)
	for _, ps := range series {
		for _, c := range ps.Candles {
			counts[c.Timestamp.UnixNano()]++
		}
	}

	aligned := make([]*models.PriceSeries, len(series))
	for i, ps := range series {
		out := &models.PriceSeries{Symbol: ps.Symbol, Interval: ps.Interval}
		for _, c := range ps.Candles {
			if counts[c.Timestamp.UnixNano()] == len(series) {
				out.Candles = append(out.Candles, c)
			}
		}
		aligned[i] = out
	}

	overlap := aligned[0].Len()
	if overlap < 2 {
		return nil, &DataError{Reason: fmt.Sprintf("only %d overlapping observations across %d series", overlap, len(series))}
	}
	if overlap < minLen {
		return nil, &InsufficientDataError{Op: "align", Need: minLen, Got: overlap}
	}
	return aligned, nil
}

// AlignedReturns validates, aligns and converts a set of price series into
// return series sharing one timestamp axis. Portfolio mode requires at least
// MinPortfolioAssets distinct series.
func AlignedReturns(series []*models.PriceSeries, kind models.ReturnKind, minLen int) ([]*models.ReturnSeries, error) {
	if len(series) < MinPortfolioAssets {
		return nil, &DataError{Reason: fmt.Sprintf("portfolio mode requires at least %d assets, got %d", MinPortfolioAssets, len(series))}
	}
	seen := make(map[string]bool, len(series))
	for _, ps := range series {
		if ps != nil && seen[ps.Symbol] {
			return nil, &DataError{Reason: fmt.Sprintf("duplicate asset %s in portfolio", ps.Symbol)}
		}
		if ps != nil {
			seen[ps.Symbol] = true
		}
	}

	aligned, err := AlignSeries(series, minLen)
	if err != nil {
		return nil, err
	}

	out := make([]*models.ReturnSeries, len(aligned))
	for i, ps := range aligned {
		rs, err := Returns(ps, kind)
		if err != nil {
			return nil, err
		}
		out[i] = rs
	}
	return out, nil
}
