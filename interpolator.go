package gridder

import (
	"context"
	"errors"
	"fmt"
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

const DefaultPower = 2.0

// Params carries the method-specific knobs. Zero values select defaults.
type Params struct {
	// Power is the IDW distance exponent.
	Power float64
	// Variogram is the kriging model.
	Variogram ModelType
	// Smoothing weights the roughness penalty of the biharmonic spline
	// relative to the data misfit.
	Smoothing float64
}

func DefaultParams() Params {
	return Params{Power: DefaultPower, Variogram: Spherical, Smoothing: defaultSmoothing}
}

func (p Params) withDefaults() Params {
	if p.Power == 0 {
		p.Power = DefaultPower
	}
	if p.Variogram == "" {
		p.Variogram = Spherical
	}
	if p.Smoothing == 0 {
		p.Smoothing = defaultSmoothing
	}
	return p
}

// Interpolator estimates a value for every mesh node from scattered
// samples. Nodes it cannot estimate are NaN.
type Interpolator interface {
	Interpolate(ctx context.Context, pos []vec3d.T, mesh *Mesh) (*Grid, error)
}

func NewInterpolator(m Method, params Params) (Interpolator, error) {
	params = params.withDefaults()
	switch m {
	case Nearest:
		return &NearestInterpolator{}, nil
	case Linear, NaturalNeighbor, Delaunay:
		return &TriInterpolator{method: m}, nil
	case Cubic:
		return &TriInterpolator{method: m, cubic: true}, nil
	case IDW:
		if !(params.Power > 0) || math.IsInf(params.Power, 0) {
			return nil, interpolationFailed(m, "power must be positive, got %v", params.Power)
		}
		return &IDWInterpolator{Power: params.Power}, nil
	case ThinPlate:
		return &ThinPlateInterpolator{}, nil
	case Biharmonic:
		if !(params.Smoothing > 0) {
			return nil, interpolationFailed(m, "smoothing must be positive, got %v", params.Smoothing)
		}
		return &SplineInterpolator{Smoothing: params.Smoothing}, nil
	case Kriging:
		if _, err := ParseModel(string(params.Variogram)); err != nil {
			return nil, &InterpolationError{Method: m, Err: err}
		}
		return &KrigingInterpolator{Model: params.Variogram}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
}

// Interpolate runs one method over the mesh. It never reads or writes state
// outside its arguments. Non-finite estimates come back as NaN; numerical
// failures come back as *InterpolationError.
func Interpolate(ctx context.Context, pos []vec3d.T, mesh *Mesh, m Method, params Params) (*Grid, error) {
	if len(pos) == 0 {
		return nil, ErrEmptyDataset
	}
	ip, err := NewInterpolator(m, params)
	if err != nil {
		return nil, err
	}
	grid, err := ip.Interpolate(ctx, pos, mesh)
	if err != nil {
		var ie *InterpolationError
		if errors.As(err, &ie) || Canceled(err) {
			return nil, err
		}
		return nil, &InterpolationError{Method: m, Err: err}
	}
	for i, v := range grid.Values {
		if !isFinite(v) {
			grid.Values[i] = math.NaN()
		}
	}
	return grid, nil
}

// eachNode evaluates fn at every node, checking ctx once per row.
func eachNode(ctx context.Context, mesh *Mesh, fn func(x, y float64) float64) (*Grid, error) {
	grid := mesh.NewGrid()
	for r, y := range mesh.Ys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for c, x := range mesh.Xs {
			grid.Set(r, c, fn(x, y))
		}
	}
	return grid, nil
}

// IDWInterpolator weights every sample by 1/d^Power.
type IDWInterpolator struct {
	Power float64
}

func (p *IDWInterpolator) Interpolate(ctx context.Context, pos []vec3d.T, mesh *Mesh) (*Grid, error) {
	half := p.Power / 2
	d2s := make([]float64, len(pos))
	return eachNode(ctx, mesh, func(x, y float64) float64 {
		nearest := 0
		for i := range pos {
			d2s[i] = dist2(x, y, pos[i][0], pos[i][1])
			if d2s[i] < d2s[nearest] {
				nearest = i
			}
		}
		near := d2s[nearest]
		if near == 0 {
			return pos[nearest][2]
		}
		// Weights are relative to the nearest sample and lie in (0, 1].
		var num, den float64
		for i := range pos {
			w := math.Pow(d2s[i]/near, -half)
			num += w * pos[i][2]
			den += w
		}
		return num / den
	})
}

// TriInterpolator interpolates over a Delaunay triangulation, linearly or
// with the Clough-Tocher cubic scheme.
type TriInterpolator struct {
	method Method
	cubic  bool
}

func (p *TriInterpolator) Interpolate(ctx context.Context, pos []vec3d.T, mesh *Mesh) (*Grid, error) {
	tri, err := Triangulate(pos)
	if err != nil {
		return nil, &InterpolationError{Method: p.method, Err: err}
	}
	if p.cubic {
		ct, err := NewCloughTocher(tri)
		if err != nil {
			return nil, &InterpolationError{Method: p.method, Err: err}
		}
		return eachNode(ctx, mesh, ct.Eval)
	}
	return eachNode(ctx, mesh, tri.Linear)
}
