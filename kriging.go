package gridder

import (
	"context"
	"errors"
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"gonum.org/v1/gonum/mat"
)

// LargeSampleWarning is the sample count above which kriging becomes slow
// enough that callers should warn about it. The system is dense and solved
// per node.
const LargeSampleWarning = 2000

const (
	maxLags       = 30
	rangeSteps    = 20
	ridgeAlpha    = 100.0
	zeroDistRatio = 1e-12
)

var errTooFewPoints = errors.New("not enough points")

type KrigingModel func(h, nugget, range_, sill, A float64) float64

func krigingGaussian(h, nugget, range_, sill, A float64) float64 {
	x := -(1.0 / A) * pow2(h/range_)
	return nugget + (sill-nugget)*(1.0-exp(x))
}

func krigingExponential(h, nugget, range_, sill, A float64) float64 {
	x := -(1.0 / A) * (h / range_)
	return nugget + (sill-nugget)*(1.0-exp(x))
}

func krigingSpherical(h, nugget, range_, sill, A float64) float64 {
	if h > range_ {
		return sill
	}
	x := h / range_
	return nugget + (sill-nugget)*(1.5*x-0.5*pow3(x))
}

func modelFunc(model ModelType) KrigingModel {
	switch model {
	case Gaussian:
		return krigingGaussian
	case Exponential:
		return krigingExponential
	}
	return krigingSpherical
}

// OrdinaryKriging estimates values as weighted means of the samples with
// weights from a fitted variogram. Train factorizes the kriging system and
// Predict solves it for one location.
type OrdinaryKriging struct {
	pos []vec3d.T

	Nugget float64 `json:"nugget"`
	Range  float64 `json:"range"`
	Sill   float64 `json:"sill"`
	A      float64 `json:"A"`
	N      int     `json:"n"`

	model KrigingModel
	lu    *mat.LU
	rhs   []float64
	scale float64
}

func NewOrdinaryKriging(pos []vec3d.T) *OrdinaryKriging {
	return &OrdinaryKriging{pos: pos}
}

// lagBins groups sample pairs into at most maxLags equal-width distance
// bins and returns the mean distance and mean semivariance of every
// non-empty bin.
func lagBins(pos []vec3d.T) (lag, semi []float64, maxDist float64) {
	n := len(pos)
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			maxDist = math.Max(maxDist, dist(pos[i][0], pos[i][1], pos[j][0], pos[j][1]))
		}
	}
	pairs := (n*n - n) / 2
	if pairs == 0 || maxDist == 0 {
		return nil, nil, maxDist
	}
	lags := maxLags
	if pairs < lags {
		lags = pairs
	}
	tolerance := maxDist / float64(lags)

	sumLag := make([]float64, lags)
	sumSemi := make([]float64, lags)
	count := make([]int, lags)
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			h := dist(pos[i][0], pos[i][1], pos[j][0], pos[j][1])
			l := int(h / tolerance)
			if l >= lags {
				l = lags - 1
			}
			sumLag[l] += h
			sumSemi[l] += 0.5 * pow2(pos[i][2]-pos[j][2])
			count[l]++
		}
	}
	for l := 0; l < lags; l++ {
		if count[l] > 0 {
			lag = append(lag, sumLag[l]/float64(count[l]))
			semi = append(semi, sumSemi[l]/float64(count[l]))
		}
	}
	return lag, semi, maxDist
}

// fitLinear regresses y on [1, x] with a ridge of 1/alpha, keeping the
// intercept (nugget) and slope (partial sill) non-negative.
func fitLinear(x, y []float64, alpha float64) (nugget, psill float64, ok bool) {
	var sx, sxx, sy, sxy float64
	n := float64(len(x))
	for i := range x {
		sx += x[i]
		sxx += x[i] * x[i]
		sy += y[i]
		sxy += x[i] * y[i]
	}
	z, ok := matrixInverse([]float64{n + 1/alpha, sx, sx, sxx + 1/alpha}, 2)
	if !ok {
		return 0, 0, false
	}
	nugget = z[0]*sy + z[1]*sxy
	psill = z[2]*sy + z[3]*sxy
	if nugget < 0 {
		if sxx == 0 {
			return 0, 0, false
		}
		nugget, psill = 0, sxy/sxx
	}
	return nugget, psill, psill > 0
}

// Train fits the variogram model to the binned semivariances and prepares
// the kriging system. It fails when the system is singular, which is what
// coincident samples produce.
func (kri *OrdinaryKriging) Train(model ModelType, alpha float64) error {
	n := len(kri.pos)
	if n == 0 {
		return errTooFewPoints
	}
	kri.A = float64(1) / float64(3)
	kri.N = n
	kri.model = modelFunc(model)

	lag, semi, maxDist := lagBins(kri.pos)
	if maxDist == 0 && n > 1 {
		return errTooFewPoints
	}
	kri.scale = maxDist

	best := math.Inf(1)
	x := make([]float64, len(lag))
	for k := 1; len(lag) >= 2 && k <= rangeSteps; k++ {
		range_ := 1.5 * lag[len(lag)-1] * float64(k) / rangeSteps
		for i := range lag {
			x[i] = kri.model(lag[i], 0, range_, 1, kri.A)
		}
		nugget, psill, ok := fitLinear(x, semi, alpha)
		if !ok {
			continue
		}
		var sse float64
		for i := range lag {
			sse += pow2(nugget + psill*x[i] - semi[i])
		}
		if sse < best {
			best = sse
			kri.Nugget, kri.Range, kri.Sill = nugget, range_, nugget+psill
		}
	}
	if math.IsInf(best, 1) {
		// Too few lags to fit, or a flat surface. A pure sill over the
		// whole extent keeps the system well-posed.
		kri.Nugget, kri.Range, kri.Sill = 0, math.Max(maxDist, 1), 1
		var mean float64
		for _, s := range semi {
			mean += s
		}
		if len(semi) > 0 && mean > 0 {
			kri.Sill = mean / float64(len(semi))
		}
	}

	a := mat.NewDense(n+1, n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			v := kri.variogram(dist(kri.pos[i][0], kri.pos[i][1], kri.pos[j][0], kri.pos[j][1]))
			a.Set(i, j, v)
			a.Set(j, i, v)
		}
		a.Set(i, n, 1)
		a.Set(n, i, 1)
	}
	lu, err := factorize(a)
	if err != nil {
		return err
	}
	kri.lu = lu
	kri.rhs = make([]float64, n+1)
	return nil
}

// variogram is zero at zero lag so the estimator honours the samples.
func (kri *OrdinaryKriging) variogram(h float64) float64 {
	if h <= zeroDistRatio*kri.scale {
		return 0
	}
	return kri.model(h, kri.Nugget, kri.Range, kri.Sill, kri.A)
}

func (kri *OrdinaryKriging) Predict(x, y float64) (float64, error) {
	n := kri.N
	for i := 0; i < n; i++ {
		kri.rhs[i] = kri.variogram(dist(x, y, kri.pos[i][0], kri.pos[i][1]))
	}
	kri.rhs[n] = 1
	w, err := solveWith(kri.lu, kri.rhs)
	if err != nil {
		return math.NaN(), err
	}
	var v float64
	for i := 0; i < n; i++ {
		v += w[i] * kri.pos[i][2]
	}
	return v, nil
}

// KrigingInterpolator runs ordinary kriging with a fitted variogram. It
// extrapolates outside the hull.
type KrigingInterpolator struct {
	Model ModelType
}

func (p *KrigingInterpolator) Interpolate(ctx context.Context, pos []vec3d.T, mesh *Mesh) (*Grid, error) {
	kri := NewOrdinaryKriging(pos)
	if err := kri.Train(p.Model, ridgeAlpha); err != nil {
		return nil, &InterpolationError{Method: Kriging, Err: err}
	}
	grid := mesh.NewGrid()
	for r, y := range mesh.Ys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for c, x := range mesh.Xs {
			v, err := kri.Predict(x, y)
			if err != nil {
				return nil, &InterpolationError{Method: Kriging, Err: err}
			}
			grid.Set(r, c, v)
		}
	}
	return grid, nil
}
