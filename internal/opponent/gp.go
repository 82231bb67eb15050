package opponent

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// #region gp

// ErrRegression is returned when the covariance matrix cannot be factorized.
var ErrRegression = errors.New("regression failed")

const (
	gpJitter     = 1e-6
	fallbackVar  = 1.0
	maternFactor = 1.7320508075688772 // sqrt(3)
)

// Length-scale and noise candidates searched when fitting, log spaced.
var (
	lengthScaleGrid = logGrid(1e-2, 1e2, 17)
	noiseGrid       = logGrid(1e-5, 1e0, 11)
)

// GPFit is a Gaussian process fitted to one-dimensional samples.
type GPFit struct {
	LengthScale float64
	Noise       float64
	LogML       float64

	x     []float64
	alpha *mat.VecDense
	chol  *mat.Cholesky
}

// maternKernel is Matern with nu=1.5 and unit amplitude.
func maternKernel(a, b, lengthScale float64) float64 {
	r := maternFactor * math.Abs(a-b) / lengthScale
	return (1 + r) * math.Exp(-r)
}

// FitGP fits a zero-mean GP with Matern(1.5)+White kernel, picking hyperparameters
// that maximize the log marginal likelihood over a fixed grid.
func FitGP(x, y []float64) (*GPFit, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("fit gp: %d inputs, %d targets: %w", len(x), len(y), ErrRegression)
	}
	var best *GPFit
	for _, ls := range lengthScaleGrid {
		for _, noise := range noiseGrid {
			fit, err := fitWith(x, y, ls, noise)
			if err != nil {
				continue
			}
			if best == nil || fit.LogML > best.LogML {
				best = fit
			}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("fit gp: no factorizable covariance: %w", ErrRegression)
	}
	return best, nil
}

func fitWith(x, y []float64, lengthScale, noise float64) (*GPFit, error) {
	n := len(x)
	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := maternKernel(x[i], x[j], lengthScale)
			if i == j {
				v += noise + gpJitter
			}
			k.SetSym(i, j, v)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(k); !ok {
		return nil, ErrRegression
	}
	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	alpha := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alpha, yv); err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	logML := -0.5*mat.Dot(yv, alpha) - 0.5*chol.LogDet() - 0.5*float64(n)*math.Log(2*math.Pi)
	if math.IsNaN(logML) || math.IsInf(logML, 0) {
		return nil, ErrRegression
	}
	return &GPFit{
		LengthScale: lengthScale,
		Noise:       noise,
		LogML:       logML,
		x:           append([]float64(nil), x...),
		alpha:       alpha,
		chol:        &chol,
	}, nil
}

// Predict returns the posterior mean and variance at xs. Variance includes the
// white noise term and is never negative.
func (g *GPFit) Predict(xs []float64) (mean, variance []float64) {
	n := len(g.x)
	mean = make([]float64, len(xs))
	variance = make([]float64, len(xs))
	kstar := mat.NewVecDense(n, nil)
	v := mat.NewVecDense(n, nil)
	for i, xq := range xs {
		for j := 0; j < n; j++ {
			kstar.SetVec(j, maternKernel(xq, g.x[j], g.LengthScale))
		}
		mean[i] = mat.Dot(kstar, g.alpha)
		if err := g.chol.SolveVecTo(v, kstar); err != nil {
			variance[i] = fallbackVar
			continue
		}
		variance[i] = math.Max(0, 1+g.Noise-mat.Dot(kstar, v))
	}
	return mean, variance
}

func logGrid(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (math.Log(hi) - math.Log(lo)) / float64(n-1)
	for i := range out {
		out[i] = math.Exp(math.Log(lo) + float64(i)*step)
	}
	return out
}

// #endregion gp
