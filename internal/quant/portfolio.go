package quant

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/quantdesk/quantdesk-go/internal/models"
)

// EqualWeights returns the 1/n weight vector.
func EqualWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

// NormalizeWeights clips negative entries to zero and rescales the rest to
// sum to one, keeping the portfolio long-only.
func NormalizeWeights(weights []float64) ([]float64, error) {
	out := make([]float64, len(weights))
	sum := 0.0
	for i, w := range weights {
		if w > 0 {
			out[i] = w
			sum += w
		}
	}
	if sum <= 0 {
		return nil, &DataError{Reason: "weights must contain at least one positive entry"}
	}
	for i := range out {
		out[i] /= sum
	}
	return out, nil
}

// returnsMatrix stacks aligned return series into a T x N observation matrix.
func returnsMatrix(series []*models.ReturnSeries) (*mat.Dense, error) {
	if len(series) == 0 {
		return nil, &DataError{Reason: "no return series supplied"}
	}
	T := series[0].Len()
	for _, rs := range series {
		if rs.Len() != T {
			return nil, &DataError{Reason: "return series are not aligned"}
		}
	}
	m := mat.NewDense(T, len(series), nil)
	for j, rs := range series {
		for i, v := range rs.Values {
			m.Set(i, j, v)
		}
	}
	return m, nil
}

// PortfolioReturns collapses aligned per-asset returns into one portfolio
// return series under fixed weights; there is no rebalancing inside the
// window.
func PortfolioReturns(series []*models.ReturnSeries, weights []float64) (*models.ReturnSeries, error) {
	if len(weights) != len(series) {
		return nil, &DataError{Reason: fmt.Sprintf("%d weights for %d assets", len(weights), len(series))}
	}
	obs, err := returnsMatrix(series)
	if err != nil {
		return nil, err
	}
	T, _ := obs.Dims()
	values := make([]float64, T)
	for t := 0; t < T; t++ {
		for j, w := range weights {
			values[t] += w * obs.At(t, j)
		}
	}
	return &models.ReturnSeries{
		Symbol:     "portfolio",
		Kind:       series[0].Kind,
		Timestamps: series[0].Timestamps,
		Values:     values,
	}, nil
}

// RebalancedReturns backtests the portfolio with the target weights
// re-applied at the start of each rebalance period ("weekly" or "monthly")
// and natural drift in between. Unlike PortfolioReturns the weights move
// with relative performance between rebalance dates; a schedule that never
// fires drifts from a single initial allocation.
func RebalancedReturns(series []*models.ReturnSeries, target []float64, schedule string) (*models.ReturnSeries, error) {
	if len(target) != len(series) {
		return nil, &DataError{Reason: fmt.Sprintf("%d weights for %d assets", len(target), len(series))}
	}
	obs, err := returnsMatrix(series)
	if err != nil {
		return nil, err
	}
	T, n := obs.Dims()
	timestamps := series[0].Timestamps

	current := append([]float64(nil), target...)
	values := make([]float64, T)
	for t := 0; t < T; t++ {
		if t > 0 && rebalanceBoundary(timestamps[t-1], timestamps[t], schedule) {
			current = append(current[:0], target...)
		}
		rp := 0.0
		for j := 0; j < n; j++ {
			rp += current[j] * obs.At(t, j)
		}
		values[t] = rp
		// Drift: each sleeve grows with its own return relative to the
		// portfolio.
		if 1+rp != 0 {
			for j := 0; j < n; j++ {
				current[j] *= (1 + obs.At(t, j)) / (1 + rp)
			}
		}
	}
	return &models.ReturnSeries{
		Symbol:     "portfolio",
		Kind:       series[0].Kind,
		Timestamps: timestamps,
		Values:     values,
	}, nil
}

func rebalanceBoundary(prev, cur time.Time, schedule string) bool {
	switch schedule {
	case "weekly":
		py, pw := prev.ISOWeek()
		cy, cw := cur.ISOWeek()
		return py != cy || pw != cw
	case "monthly":
		return prev.Month() != cur.Month() || prev.Year() != cur.Year()
	default:
		return false
	}
}

// CovarianceMatrix computes the pairwise sample covariance of aligned return
// series.
func CovarianceMatrix(series []*models.ReturnSeries) (*mat.SymDense, error) {
	obs, err := returnsMatrix(series)
	if err != nil {
		return nil, err
	}
	if T, _ := obs.Dims(); T < 2 {
		return nil, &InsufficientDataError{Op: "covariance", Need: 2, Got: T}
	}
	cov := mat.NewSymDense(len(series), nil)
	stat.CovarianceMatrix(cov, obs, nil)
	return cov, nil
}

// CorrelationMatrix computes the pairwise Pearson correlation of aligned
// return series: symmetric, unit diagonal, off-diagonals in [-1, 1].
func CorrelationMatrix(series []*models.ReturnSeries) (*mat.SymDense, error) {
	obs, err := returnsMatrix(series)
	if err != nil {
		return nil, err
	}
	if T, _ := obs.Dims(); T < 2 {
		return nil, &InsufficientDataError{Op: "correlation", Need: 2, Got: T}
	}
	corr := mat.NewSymDense(len(series), nil)
	stat.CorrelationMatrix(corr, obs, nil)
	return corr, nil
}

// PortfolioVolatility is sqrt(w' S w) annualized by sqrt(periodsPerYear).
func PortfolioVolatility(weights []float64, cov *mat.SymDense, periodsPerYear float64) (float64, error) {
	n, _ := cov.Dims()
	if len(weights) != n {
		return 0, &DataError{Reason: fmt.Sprintf("%d weights for %dx%d covariance", len(weights), n, n)}
	}
	w := mat.NewVecDense(n, weights)
	var sw mat.VecDense
	sw.MulVec(cov, w)
	variance := mat.Dot(w, &sw)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance) * math.Sqrt(periodsPerYear), nil
}

// OptimizeMinVariance solves the long-only Markowitz problem:
// minimize w' S w subject to sum(w) = 1, w >= 0 and, when targetReturn is
// set, mu'w = targetReturn (per-period expected returns mu). It uses an
// active-set scheme on the nonnegativity constraints: solve the
// equality-constrained KKT system over the free assets, pin the most
// negative weight to zero, repeat.
func OptimizeMinVariance(cov *mat.SymDense, mu []float64, targetReturn *float64) ([]float64, error) {
	n, _ := cov.Dims()
	if n < MinPortfolioAssets {
		return nil, &OptimizationError{Reason: fmt.Sprintf("need at least %d assets, got %d", MinPortfolioAssets, n)}
	}
	if targetReturn != nil {
		if len(mu) != n {
			return nil, &OptimizationError{Reason: "expected returns do not match covariance dimension"}
		}
		lo, hi := mu[0], mu[0]
		for _, m := range mu {
			lo = math.Min(lo, m)
			hi = math.Max(hi, m)
		}
		if *targetReturn < lo-1e-12 || *targetReturn > hi+1e-12 {
			return nil, &OptimizationError{Reason: fmt.Sprintf("target return %.6f outside achievable range [%.6f, %.6f]", *targetReturn, lo, hi)}
		}
	}

	free := make([]int, n)
	for i := range free {
		free[i] = i
	}

	for iter := 0; iter <= n; iter++ {
		w, err := solveKKT(cov, mu, targetReturn, free, n)
		if err != nil {
			return nil, err
		}

		// Pin the most negative free weight and resolve.
		worst, worstIdx := -1e-10, -1
		for k, idx := range free {
			if w[idx] < worst {
				worst = w[idx]
				worstIdx = k
			}
		}
		if worstIdx < 0 {
			for i := range w {
				if w[i] < 0 {
					w[i] = 0
				}
			}
			return w, nil
		}
		free = append(free[:worstIdx], free[worstIdx+1:]...)
		if len(free) == 0 || (targetReturn != nil && len(free) < 2) {
			return nil, &OptimizationError{Reason: "constraint set infeasible under long-only weights"}
		}
	}
	return nil, &OptimizationError{Reason: "active-set iteration did not converge"}
}

// solveKKT solves the equality-constrained minimum-variance system over the
// free index set, with pinned weights fixed at zero.
func solveKKT(cov *mat.SymDense, mu []float64, targetReturn *float64, free []int, n int) ([]float64, error) {
	k := len(free)
	nc := 1
	if targetReturn != nil {
		nc = 2
	}
	dim := k + nc
	A := mat.NewDense(dim, dim, nil)
	b := mat.NewVecDense(dim, nil)

	for i, fi := range free {
		for j, fj := range free {
			A.Set(i, j, 2*cov.At(fi, fj))
		}
		A.Set(i, k, 1) // budget constraint gradient
		A.Set(k, i, 1)
		if targetReturn != nil {
			A.Set(i, k+1, mu[fi])
			A.Set(k+1, i, mu[fi])
		}
	}
	b.SetVec(k, 1)
	if targetReturn != nil {
		b.SetVec(k+1, *targetReturn)
	}

	var lu mat.LU
	lu.Factorize(A)
	var sol mat.VecDense
	if err := lu.SolveVecTo(&sol, false, b); err != nil {
		return nil, &OptimizationError{Reason: fmt.Sprintf("covariance matrix is singular: %v", err)}
	}

	w := make([]float64, n)
	for i, fi := range free {
		v := sol.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &OptimizationError{Reason: "covariance matrix is singular"}
		}
		w[fi] = v
	}
	return w, nil
}

// matrixRows flattens a symmetric matrix into row slices for JSON payloads.
func matrixRows(m *mat.SymDense) [][]float64 {
	n, _ := m.Dims()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}

// MeanReturns is the per-asset sample mean of aligned return series.
func MeanReturns(series []*models.ReturnSeries) []float64 {
	out := make([]float64, len(series))
	for i, rs := range series {
		out[i] = stat.Mean(rs.Values, nil)
	}
	return out
}
