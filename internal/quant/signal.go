package quant

import "math"

// Signal is the discrete trading state at one timestamp.
type Signal int

const (
	SignalFlat Signal = iota
	SignalLong
	SignalShort
)

// String renders the signal for reports and JSON payloads.
func (s Signal) String() string {
	switch s {
	case SignalLong:
		return "LONG"
	case SignalShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Position maps the signal onto a portfolio exposure of -1, 0 or +1.
func (s Signal) Position() float64 {
	switch s {
	case SignalLong:
		return 1
	case SignalShort:
		return -1
	default:
		return 0
	}
}

// GenerateSignals runs the moving-average crossover state machine over a close
// series, optionally gated by the ADX trend filter. The output is aligned 1:1
// with the input and every value at index t depends only on data up to t.
// The state stays FLAT until both moving-average windows have filled.
func GenerateSignals(high, low, close []float64, cfg Config) ([]Signal, error) {
	cfg = cfg.Normalize()
	n := len(close)
	if n < cfg.LongWindow+1 {
		return nil, &InsufficientDataError{Op: "signals", Need: cfg.LongWindow + 1, Got: n}
	}

	shortMA, err := movingAverage(close, cfg.ShortWindow, cfg.MAKind)
	if err != nil {
		return nil, err
	}
	longMA, err := movingAverage(close, cfg.LongWindow, cfg.MAKind)
	if err != nil {
		return nil, err
	}

	// Re-align the moving averages onto the close index; NaN before the
	// window fills.
	alignedShort := alignTail(shortMA, n)
	alignedLong := alignTail(longMA, n)

	var di *DirectionalIndex
	if *cfg.ADXFilter {
		di, err = ADX(high, low, close, cfg.ADXWindow)
		if err != nil {
			return nil, err
		}
	}

	signals := make([]Signal, n)
	state := SignalFlat
	for t := 0; t < n; t++ {
		if !math.IsNaN(alignedShort[t]) && !math.IsNaN(alignedLong[t]) &&
			t > 0 && !math.IsNaN(alignedShort[t-1]) && !math.IsNaN(alignedLong[t-1]) {
			crossedUp := alignedShort[t-1] <= alignedLong[t-1] && alignedShort[t] > alignedLong[t]
			crossedDown := alignedShort[t-1] >= alignedLong[t-1] && alignedShort[t] < alignedLong[t]
			switch {
			case crossedUp:
				state = SignalLong
			case crossedDown:
				state = SignalShort
			}
		}

		signals[t] = state
		// A non-trending market overrides the crossover state without
		// discarding it: the position is flat while ADX stays below the
		// threshold.
		if di != nil && di.ADX[t] < cfg.ADXThreshold {
			signals[t] = SignalFlat
		}
	}
	return signals, nil
}

// movingAverage dispatches on the configured average kind.
func movingAverage(values []float64, window int, kind string) ([]float64, error) {
	if kind == "ema" {
		return EMA(values, window)
	}
	return SMA(values, window)
}

// alignTail pads values with leading NaNs so they share an index with a
// series of length n.
func alignTail(values []float64, n int) []float64 {
	out := make([]float64, n)
	offset := n - len(values)
	for i := 0; i < offset; i++ {
		out[i] = math.NaN()
	}
	copy(out[offset:], values)
	return out
}

// StrategyReturns applies close-aligned signals to per-period returns.
// returns[i] covers the period ending at close i+1, so the position earning
// it is the one decided at close i: there is no lookahead. signals must be
// aligned with the close series the returns were derived from.
func StrategyReturns(returns []float64, signals []Signal) ([]float64, error) {
	if len(signals) != len(returns)+1 {
		return nil, &DataError{Reason: "signals must be aligned with the source close series"}
	}
	out := make([]float64, len(returns))
	for i := range returns {
		out[i] = returns[i] * signals[i].Position()
	}
	return out, nil
}
