package gridder

import (
	"context"
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"gonum.org/v1/gonum/mat"
)

func thinPlate(r float64) float64 {
	if r == 0 {
		return 0
	}
	return r * r * math.Log(r)
}

// ThinPlateInterpolator fits a thin-plate spline (r² log r kernel plus an
// affine term) through every sample and evaluates it at each node. It
// extrapolates outside the hull. Coincident or collinear samples make the
// system singular and fail the fit.
type ThinPlateInterpolator struct{}

type thinPlateFit struct {
	cx, cy, s float64
	xs, ys    []float64
	w         []float64
	a         [3]float64
}

func fitThinPlate(pos []vec3d.T) (*thinPlateFit, error) {
	n := len(pos)
	if n < 3 {
		return nil, errCollinear
	}
	bbox := BBox(pos)
	f := &thinPlateFit{
		cx: (bbox.Min[0] + bbox.Max[0]) / 2,
		cy: (bbox.Min[1] + bbox.Max[1]) / 2,
		s:  math.Max(bbox.Max[0]-bbox.Min[0], bbox.Max[1]-bbox.Min[1]),
		xs: make([]float64, n),
		ys: make([]float64, n),
	}
	if !(f.s > 0) {
		return nil, errCollinear
	}
	for i := range pos {
		f.xs[i] = (pos[i][0] - f.cx) / f.s
		f.ys[i] = (pos[i][1] - f.cy) / f.s
	}

	m := n + 3
	a := mat.NewDense(m, m, nil)
	rhs := make([]float64, m)
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			v := thinPlate(dist(f.xs[i], f.ys[i], f.xs[j], f.ys[j]))
			a.Set(i, j, v)
			a.Set(j, i, v)
		}
		a.Set(i, n, 1)
		a.Set(i, n+1, f.xs[i])
		a.Set(i, n+2, f.ys[i])
		a.Set(n, i, 1)
		a.Set(n+1, i, f.xs[i])
		a.Set(n+2, i, f.ys[i])
		rhs[i] = pos[i][2]
	}

	sol, err := solveSystem(a, rhs)
	if err != nil {
		return nil, err
	}
	f.w = sol[:n]
	copy(f.a[:], sol[n:])
	return f, nil
}

func (f *thinPlateFit) eval(x, y float64) float64 {
	x = (x - f.cx) / f.s
	y = (y - f.cy) / f.s
	v := f.a[0] + f.a[1]*x + f.a[2]*y
	for i := range f.w {
		v += f.w[i] * thinPlate(dist(x, y, f.xs[i], f.ys[i]))
	}
	return v
}

func (p *ThinPlateInterpolator) Interpolate(ctx context.Context, pos []vec3d.T, mesh *Mesh) (*Grid, error) {
	fit, err := fitThinPlate(pos)
	if err != nil {
		return nil, &InterpolationError{Method: ThinPlate, Err: err}
	}
	return eachNode(ctx, mesh, fit.eval)
}
