package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents a single OHLCV observation for one instrument.
type Candle struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// PriceSeries is an ordered OHLCV history for one instrument. Timestamps are
// strictly increasing with no duplicates; the analytics engine never mutates it.
type PriceSeries struct {
	Symbol   string   `json:"symbol"`
	Interval string   `json:"interval"`
	Candles  []Candle `json:"candles"`
}

// Len returns the number of observations.
func (p *PriceSeries) Len() int {
	return len(p.Candles)
}

// Closes returns the close prices as float64 values for numeric work.
func (p *PriceSeries) Closes() []float64 {
	out := make([]float64, len(p.Candles))
	for i, c := range p.Candles {
		out[i], _ = c.Close.Float64()
	}
	return out
}

// Opens returns the open prices as float64 values.
func (p *PriceSeries) Opens() []float64 {
	out := make([]float64, len(p.Candles))
	for i, c := range p.Candles {
		out[i], _ = c.Open.Float64()
	}
	return out
}

// Highs returns the high prices as float64 values.
func (p *PriceSeries) Highs() []float64 {
	out := make([]float64, len(p.Candles))
	for i, c := range p.Candles {
		out[i], _ = c.High.Float64()
	}
	return out
}

// Lows returns the low prices as float64 values.
func (p *PriceSeries) Lows() []float64 {
	out := make([]float64, len(p.Candles))
	for i, c := range p.Candles {
		out[i], _ = c.Low.Float64()
	}
	return out
}

// Timestamps returns the observation timestamps in order.
func (p *PriceSeries) Timestamps() []time.Time {
	out := make([]time.Time, len(p.Candles))
	for i, c := range p.Candles {
		out[i] = c.Timestamp
	}
	return out
}

// ReturnKind selects how per-period returns are derived from closes.
type ReturnKind string

const (
	// SimpleReturns computes r_t = close_t/close_{t-1} - 1.
	SimpleReturns ReturnKind = "simple"
	// LogReturns computes r_t = ln(close_t/close_{t-1}).
	LogReturns ReturnKind = "log"
)

// ReturnSeries holds per-period returns derived from consecutive closes of a
// PriceSeries. Its length is one less than the source series and the first
// element corresponds to the second source timestamp.
type ReturnSeries struct {
	Symbol     string      `json:"symbol"`
	Kind       ReturnKind  `json:"kind"`
	Timestamps []time.Time `json:"timestamps"`
	Values     []float64   `json:"values"`
}

// Len returns the number of return observations.
func (r *ReturnSeries) Len() int {
	return len(r.Values)
}
