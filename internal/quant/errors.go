package quant

import "fmt"

// DataError reports malformed, misaligned, or otherwise unusable input series.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error: %s", e.Reason)
}

// InsufficientDataError reports a lookback window larger than the available
// history. Need and Got let callers render the unmet precondition.
type InsufficientDataError struct {
	Op   string
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: need >= %d observations, got %d", e.Op, e.Need, e.Got)
}

// FitError reports a forecasting model that failed to converge or a series
// too short to fit.
type FitError struct {
	Reason string
}

func (e *FitError) Error() string {
	return fmt.Sprintf("fit error: %s", e.Reason)
}

// OptimizationError reports an infeasible or singular portfolio optimization.
type OptimizationError struct {
	Reason string
}

func (e *OptimizationError) Error() string {
	return fmt.Sprintf("optimization error: %s", e.Reason)
}

// DataSourceTimeoutError reports that the external price fetch exceeded the
// caller-supplied timeout. No partial results accompany it.
type DataSourceTimeoutError struct {
	Symbol string
}

func (e *DataSourceTimeoutError) Error() string {
	return fmt.Sprintf("data source timeout fetching %s", e.Symbol)
}
