package quant

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinForecastObservations is the shortest series the forecaster will fit.
const MinForecastObservations = 30

// ARIMAModel holds the parameters of a fitted autoregressive integrated
// moving average model. A model is tied to the series it was fit on and is
// refit from scratch on every request; there is no online update.
type ARIMAModel struct {
	Order  [3]int
	Phi    []float64
	Theta  []float64
	Mu     float64
	Sigma2 float64

	series []float64
	z      []float64 // differenced, mean-centered working series
	resid  []float64
}

// FitARIMA fits an ARIMA(p,d,q) model to a price series by conditional sum
// of squares. Pure AR models are solved in closed form by least squares;
// models with moving-average terms are minimized with Nelder-Mead.
func FitARIMA(series []float64, order [3]int) (*ARIMAModel, error) {
	p, d, q := order[0], order[1], order[2]
	if p < 0 || q < 0 || d < 0 || d > 2 {
		return nil, &FitError{Reason: fmt.Sprintf("unsupported order (%d,%d,%d)", p, d, q)}
	}
	if len(series) < MinForecastObservations {
		return nil, &FitError{Reason: fmt.Sprintf("need >= %d observations, got %d", MinForecastObservations, len(series))}
	}

	w := append([]float64(nil), series...)
	for i := 0; i < d; i++ {
		w = difference(w)
	}
	// The AR regression needs at least as many equations as coefficients,
	// len(w)-p rows against p columns, or the QR factorization cannot run.
	if len(w) <= p+q+1 || len(w)-p < p {
		return nil, &FitError{Reason: fmt.Sprintf("need more than %d observations after differencing for order (%d,%d,%d), got %d", max(p+q+1, 2*p-1), p, d, q, len(w))}
	}

	m := &ARIMAModel{
		Order:  order,
		Phi:    make([]float64, p),
		Theta:  make([]float64, q),
		series: series,
	}

	// The mean is only estimated for stationary fits; differencing absorbs
	// any drift otherwise.
	if d == 0 {
		m.Mu = stat.Mean(w, nil)
	}
	z := make([]float64, len(w))
	for i, v := range w {
		z[i] = v - m.Mu
	}
	m.z = z

	// A constant series has nothing to fit and nothing to fail on: zero
	// coefficients, zero innovation variance.
	if isConstant(z) {
		m.resid = make([]float64, len(z))
		return m, nil
	}

	switch {
	case p == 0 && q == 0:
		m.resid = append([]float64(nil), z...)
	case q == 0:
		phi, err := fitARLeastSquares(z, p)
		if err != nil {
			return nil, err
		}
		m.Phi = phi
	default:
		params, err := fitARMACss(z, p, q)
		if err != nil {
			return nil, err
		}
		m.Phi = params[:p]
		m.Theta = params[p:]
	}

	if m.resid == nil {
		m.resid = armaResiduals(z, m.Phi, m.Theta)
	}
	dof := len(z) - p - q
	if dof < 1 {
		dof = len(z)
	}
	ss := 0.0
	for _, e := range m.resid {
		ss += e * e
	}
	m.Sigma2 = ss / float64(dof)
	return m, nil
}

// Forecast produces point forecasts and a symmetric confidence interval for
// the next horizon periods on the original (undifferenced) scale.
func (m *ARIMAModel) Forecast(horizon int, confidence float64) (point, lower, upper []float64, err error) {
	if horizon < 1 {
		return nil, nil, nil, &FitError{Reason: "forecast horizon must be positive"}
	}
	if confidence <= 0 || confidence >= 1 {
		return nil, nil, nil, &FitError{Reason: fmt.Sprintf("confidence level %v outside (0, 1)", confidence)}
	}

	p, d, q := m.Order[0], m.Order[1], m.Order[2]

	// Forecast the stationary component by recursion, with future
	// innovations at their zero expectation.
	zExt := append([]float64(nil), m.z...)
	eExt := append([]float64(nil), m.resid...)
	zf := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		t := len(zExt)
		v := 0.0
		for i := 1; i <= p; i++ {
			if t-i >= 0 {
				v += m.Phi[i-1] * zExt[t-i]
			}
		}
		for j := 1; j <= q; j++ {
			if t-j >= 0 && t-j < len(eExt) {
				v += m.Theta[j-1] * eExt[t-j]
			}
		}
		zf[h] = v
		zExt = append(zExt, v)
	}

	// Undo mean-centering and integrate d times back to price levels.
	wf := make([]float64, horizon)
	for i, v := range zf {
		wf[i] = v + m.Mu
	}
	point = integrate(m.series, wf, d)

	// Psi weights give the forecast-error variance; integration turns them
	// into cumulative sums, one pass per difference.
	psi := psiWeights(m.Phi, m.Theta, horizon)
	for i := 0; i < d; i++ {
		psi = cumulativeSums(psi)
	}
	zq := distuv.Normal{Mu: 0, Sigma: 1}.Quantile((1 + confidence) / 2)

	lower = make([]float64, horizon)
	upper = make([]float64, horizon)
	acc := 0.0
	for h := 0; h < horizon; h++ {
		acc += psi[h] * psi[h]
		se := math.Sqrt(m.Sigma2 * acc)
		lower[h] = point[h] - zq*se
		upper[h] = point[h] + zq*se
	}
	return point, lower, upper, nil
}

func difference(values []float64) []float64 {
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i] - values[i-1]
	}
	return out
}

func integrate(series, forecasts []float64, d int) []float64 {
	if d == 0 {
		return append([]float64(nil), forecasts...)
	}
	// Rebuild the chain of last observed values at each integration level.
	levels := make([][]float64, d+1)
	levels[0] = series
	for i := 1; i <= d; i++ {
		levels[i] = difference(levels[i-1])
	}
	out := append([]float64(nil), forecasts...)
	for lvl := d - 1; lvl >= 0; lvl-- {
		last := levels[lvl][len(levels[lvl])-1]
		for i := range out {
			last += out[i]
			out[i] = last
		}
	}
	return out
}

func isConstant(values []float64) bool {
	for _, v := range values {
		if math.Abs(v-values[0]) > 1e-12 {
			return false
		}
	}
	return true
}

// fitARLeastSquares solves the AR(p) regression z_t ~ z_{t-1}..z_{t-p} by QR.
func fitARLeastSquares(z []float64, p int) ([]float64, error) {
	rows := len(z) - p
	if rows < p {
		return nil, &FitError{Reason: fmt.Sprintf("%d observations cannot identify %d autoregressive terms", len(z), p)}
	}
	X := mat.NewDense(rows, p, nil)
	y := mat.NewVecDense(rows, nil)
	for t := p; t < len(z); t++ {
		for i := 0; i < p; i++ {
			X.Set(t-p, i, z[t-1-i])
		}
		y.SetVec(t-p, z[t])
	}

	var qr mat.QR
	qr.Factorize(X)
	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, y); err != nil {
		return nil, &FitError{Reason: fmt.Sprintf("autoregressive design matrix is singular: %v", err)}
	}
	phi := make([]float64, p)
	for i := range phi {
		phi[i] = coef.AtVec(i)
		if math.IsNaN(phi[i]) || math.IsInf(phi[i], 0) {
			return nil, &FitError{Reason: "autoregressive fit produced non-finite coefficients"}
		}
	}
	return phi, nil
}

// fitARMACss minimizes the conditional sum of squares over (phi, theta)
// jointly, warm-started from the pure AR least-squares solution.
func fitARMACss(z []float64, p, q int) ([]float64, error) {
	init := make([]float64, p+q)
	if p > 0 {
		if phi, err := fitARLeastSquares(z, p); err == nil {
			copy(init, phi)
		}
	}

	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			resid := armaResiduals(z, params[:p], params[p:])
			ss := 0.0
			for _, e := range resid {
				ss += e * e
			}
			return ss
		},
	}
	result, err := optimize.Minimize(problem, init, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, &FitError{Reason: fmt.Sprintf("optimizer did not converge: %v", err)}
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &FitError{Reason: "optimizer produced non-finite parameters"}
		}
	}
	return result.X, nil
}

// armaResiduals runs the innovation recursion with zero pre-sample values.
func armaResiduals(z, phi, theta []float64) []float64 {
	resid := make([]float64, len(z))
	for t := range z {
		v := z[t]
		for i := 1; i <= len(phi); i++ {
			if t-i >= 0 {
				v -= phi[i-1] * z[t-i]
			}
		}
		for j := 1; j <= len(theta); j++ {
			if t-j >= 0 {
				v -= theta[j-1] * resid[t-j]
			}
		}
		resid[t] = v
	}
	return resid
}

// psiWeights expands the ARMA transfer function into its MA(inf)
// representation, truncated at n weights.
func psiWeights(phi, theta []float64, n int) []float64 {
	psi := make([]float64, n)
	if n == 0 {
		return psi
	}
	psi[0] = 1
	for j := 1; j < n; j++ {
		v := 0.0
		if j <= len(theta) {
			v = theta[j-1]
		}
		for i := 1; i <= len(phi) && i <= j; i++ {
			v += phi[i-1] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}

func cumulativeSums(values []float64) []float64 {
	out := make([]float64, len(values))
	acc := 0.0
	for i, v := range values {
		acc += v
		out[i] = acc
	}
	return out
}
