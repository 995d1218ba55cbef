package gridder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultSmoothing   = 1e-3
	minSplineSamples   = 16
	maxSplineKnots     = 20
	splineMaxCondition = 1e12
)

var errNotPositiveDefinite = errors.New("spline system is not positive definite")

// bspline is a clamped cubic B-spline basis on [lo, hi] with uniformly
// spaced interior knots.
type bspline struct {
	knots  []float64
	n      int
	lo, hi float64
}

func newBSpline(lo, hi float64, interior int) *bspline {
	b := &bspline{n: interior + 4, lo: lo, hi: hi}
	for i := 0; i < 4; i++ {
		b.knots = append(b.knots, lo)
	}
	for i := 1; i <= interior; i++ {
		b.knots = append(b.knots, lo+(hi-lo)*float64(i)/float64(interior+1))
	}
	for i := 0; i < 4; i++ {
		b.knots = append(b.knots, hi)
	}
	return b
}

func (b *bspline) span(u float64) int {
	if u >= b.hi {
		return b.n - 1
	}
	s := sort.Search(len(b.knots), func(j int) bool { return b.knots[j] > u }) - 1
	if s < 3 {
		s = 3
	}
	if s > b.n-1 {
		s = b.n - 1
	}
	return s
}

// basis returns the knot span holding u and the four cubic basis values
// that are non-zero there, for functions span-3 .. span.
func (b *bspline) basis(u float64) (int, [4]float64) {
	u = math.Min(math.Max(u, b.lo), b.hi)
	s := b.span(u)
	var nb [4]float64
	var left, right [4]float64
	nb[0] = 1
	for j := 1; j <= 3; j++ {
		left[j] = u - b.knots[s+1-j]
		right[j] = b.knots[s+j] - u
		saved := 0.0
		for r := 0; r < j; r++ {
			tmp := nb[r] / (right[r+1] + left[j-r])
			nb[r] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		nb[j] = saved
	}
	return s, nb
}

// SplineInterpolator fits a smoothing bicubic tensor-product spline by
// penalised least squares, with a second-difference roughness penalty on
// the coefficients weighted by Smoothing. It needs at least 16 samples and
// fails when the normal equations are ill-conditioned.
type SplineInterpolator struct {
	Smoothing float64
}

type splineFit struct {
	bx, by *bspline
	coef   []float64
}

func splineKnots(n int) int {
	k := int(math.Sqrt(float64(n))) / 2
	if k < 1 {
		k = 1
	}
	if k > maxSplineKnots {
		k = maxSplineKnots
	}
	return k
}

func addSym(s *mat.SymDense, i, j int, v float64) {
	if i > j {
		i, j = j, i
	}
	s.SetSym(i, j, s.At(i, j)+v)
}

// addDifference adds the outer product of a second difference over the
// coefficients at i, j, k.
func addDifference(s *mat.SymDense, i, j, k int) {
	idx := [3]int{i, j, k}
	w := [3]float64{1, -2, 1}
	for a := 0; a < 3; a++ {
		for b := a; b < 3; b++ {
			addSym(s, idx[a], idx[b], w[a]*w[b])
		}
	}
}

func fitSpline(pos []vec3d.T, smoothing float64) (*splineFit, error) {
	if len(pos) < minSplineSamples {
		return nil, fmt.Errorf("need at least %d samples, got %d", minSplineSamples, len(pos))
	}
	bbox := BBox(pos)
	if !(bbox.Max[0] > bbox.Min[0]) || !(bbox.Max[1] > bbox.Min[1]) {
		return nil, errCollinear
	}
	k := splineKnots(len(pos))
	f := &splineFit{
		bx: newBSpline(bbox.Min[0], bbox.Max[0], k),
		by: newBSpline(bbox.Min[1], bbox.Max[1], k),
	}
	mx, my := f.bx.n, f.by.n
	m := mx * my

	ata := mat.NewSymDense(m, nil)
	atz := make([]float64, m)
	var idx [16]int
	var val [16]float64
	for _, p := range pos {
		sx, vx := f.bx.basis(p[0])
		sy, vy := f.by.basis(p[1])
		for a := 0; a < 4; a++ {
			for b := 0; b < 4; b++ {
				idx[a*4+b] = (sx-3+a)*my + sy - 3 + b
				val[a*4+b] = vx[a] * vy[b]
			}
		}
		for i := 0; i < 16; i++ {
			atz[idx[i]] += val[i] * p[2]
			for j := i; j < 16; j++ {
				addSym(ata, idx[i], idx[j], val[i]*val[j])
			}
		}
	}

	pen := mat.NewSymDense(m, nil)
	for j := 0; j < my; j++ {
		for i := 0; i+2 < mx; i++ {
			addDifference(pen, i*my+j, (i+1)*my+j, (i+2)*my+j)
		}
	}
	for i := 0; i < mx; i++ {
		for j := 0; j+2 < my; j++ {
			addDifference(pen, i*my+j, i*my+j+1, i*my+j+2)
		}
	}
	pen.ScaleSym(smoothing*mat.Trace(ata)/mat.Trace(pen), pen)
	ata.AddSym(ata, pen)

	var chol mat.Cholesky
	if ok := chol.Factorize(ata); !ok {
		return nil, errNotPositiveDefinite
	}
	if c := chol.Cond(); c > splineMaxCondition || math.IsNaN(c) {
		return nil, fmt.Errorf("%w (condition number %g)", errSingular, c)
	}
	var coef mat.VecDense
	if err := chol.SolveVecTo(&coef, mat.NewVecDense(m, atz)); err != nil {
		return nil, fmt.Errorf("%w: %v", errSingular, err)
	}
	f.coef = coef.RawVector().Data
	return f, nil
}

func (f *splineFit) eval(x, y float64) float64 {
	sx, vx := f.bx.basis(x)
	sy, vy := f.by.basis(y)
	my := f.by.n
	var v float64
	for a := 0; a < 4; a++ {
		for b := 0; b < 4; b++ {
			v += vx[a] * vy[b] * f.coef[(sx-3+a)*my+sy-3+b]
		}
	}
	return v
}

func (p *SplineInterpolator) Interpolate(ctx context.Context, pos []vec3d.T, mesh *Mesh) (*Grid, error) {
	fit, err := fitSpline(pos, p.Smoothing)
	if err != nil {
		return nil, &InterpolationError{Method: Biharmonic, Err: err}
	}
	return eachNode(ctx, mesh, fit.eval)
}
