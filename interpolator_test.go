package gridder

import (
	"context"
	"math"
	"testing"

	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interpolate(t *testing.T, pos []vec3d.T, cellSize float64, m Method) (*Mesh, *Grid) {
	t.Helper()
	mesh, err := BuildMesh(pos, cellSize, true)
	require.NoError(t, err)
	grid, err := Interpolate(context.Background(), pos, mesh, m, DefaultParams())
	require.NoError(t, err, "method %s", m)
	require.Equal(t, mesh.Len(), len(grid.Values))
	return mesh, grid
}

// hullDistance is the distance from p to the nearest hull edge.
func hullDistance(c *Convex, p vec2d.T) float64 {
	d := math.Inf(1)
	for _, e := range c.Edges() {
		ab := Subtract(e.End, e.Start)
		ap := Subtract(p, e.Start)
		t := math.Max(0, math.Min(1, (ab[0]*ap[0]+ab[1]*ap[1])/(ab[0]*ab[0]+ab[1]*ab[1])))
		d = math.Min(d, math.Hypot(ap[0]-t*ab[0], ap[1]-t*ab[1]))
	}
	return d
}

func TestNearestSquare(t *testing.T) {
	_, grid := interpolate(t, square, 1, Nearest)
	assert.Equal(t, []float64{1, 2, 3, 4}, grid.Values)
}

func TestNearestTies(t *testing.T) {
	a := assert.New(t)

	mesh := &Mesh{Xs: []float64{1}, Ys: []float64{0}}
	grid, err := Interpolate(context.Background(), []vec3d.T{{0, 0, 5}, {2, 0, 7}}, mesh, Nearest, Params{})
	require.NoError(t, err)
	a.Equal(5.0, grid.Values[0])

	grid, err = Interpolate(context.Background(), []vec3d.T{{2, 0, 7}, {0, 0, 5}}, mesh, Nearest, Params{})
	require.NoError(t, err)
	a.Equal(7.0, grid.Values[0])

	grid, err = Interpolate(context.Background(), []vec3d.T{{3, 0, 1}, {2, 0, 7}, {0, 0, 5}}, mesh, Nearest, Params{})
	require.NoError(t, err)
	a.Equal(7.0, grid.Values[0])
}

func TestNeverUndefined(t *testing.T) {
	pos := randomSamples(3, 50, 20, bowl)
	for _, m := range []Method{Nearest, IDW, ThinPlate, Biharmonic, Kriging} {
		_, grid := interpolate(t, pos, 0.7, m)
		assert.Zero(t, grid.Undefined(), "method %s", m)
	}
}

func TestIDWCoincident(t *testing.T) {
	a := assert.New(t)

	pos := []vec3d.T{{0, 0, 10}, {2, 0, 20}, {0, 2, 30}, {0, 0, 99}}
	mesh := &Mesh{Xs: []float64{0, 2, 1}, Ys: []float64{0}}
	grid, err := Interpolate(context.Background(), pos, mesh, IDW, DefaultParams())
	require.NoError(t, err)
	a.Equal(10.0, grid.Values[0])
	a.Equal(20.0, grid.Values[1])
	a.Greater(grid.Values[2], 10.0)
	a.Less(grid.Values[2], 99.0)
}

func TestIDWPower(t *testing.T) {
	a := assert.New(t)

	pos := []vec3d.T{{0, 0, 0}, {3, 0, 1}}
	mesh := &Mesh{Xs: []float64{1}, Ys: []float64{0}}

	grid, err := Interpolate(context.Background(), pos, mesh, IDW, Params{Power: 1})
	require.NoError(t, err)
	a.InDelta(1.0/3, grid.Values[0], 1e-12)

	grid, err = Interpolate(context.Background(), pos, mesh, IDW, Params{Power: 2})
	require.NoError(t, err)
	a.InDelta(0.2, grid.Values[0], 1e-12)

	_, err = Interpolate(context.Background(), pos, mesh, IDW, Params{Power: -1})
	a.ErrorIs(err, ErrInterpolationFailed)
}

func TestTriangulatedUndefinedOutsideHull(t *testing.T) {
	pos := randomSamples(11, 40, 10, bowl)
	hull := NewConvex(pos)
	scale := 10.0
	for _, m := range []Method{Linear, Cubic, NaturalNeighbor, Delaunay} {
		mesh, grid := interpolate(t, pos, 0.37, m)
		for r := 0; r < mesh.Rows(); r++ {
			for c := 0; c < mesh.Cols(); c++ {
				p := mesh.Node(r, c)
				if hullDistance(hull, p) < 1e-6*scale {
					continue
				}
				assert.Equal(t, hull.InHull(p), !math.IsNaN(grid.Value(r, c)),
					"method %s node (%v, %v)", m, p[0], p[1])
			}
		}
		assert.Positive(t, grid.Undefined(), "method %s", m)
	}
}

func TestLinearReproducesPlane(t *testing.T) {
	pos := randomSamples(5, 30, 10, plane)
	for _, m := range []Method{Linear, NaturalNeighbor, Delaunay, Cubic} {
		mesh, grid := interpolate(t, pos, 0.5, m)
		tol := 1e-9
		if m == Cubic {
			tol = 1e-3
		}
		for r := 0; r < mesh.Rows(); r++ {
			for c := 0; c < mesh.Cols(); c++ {
				v := grid.Value(r, c)
				if math.IsNaN(v) {
					continue
				}
				assert.InDelta(t, plane(mesh.Xs[c], mesh.Ys[r]), v, tol, "method %s", m)
			}
		}
	}
}

func TestCubicHonoursSamples(t *testing.T) {
	pos := latticeSamples(6, bowl)
	mesh, grid := interpolate(t, pos, 1, Cubic)
	require.Zero(t, grid.Undefined())
	for r := range mesh.Ys {
		for c := range mesh.Xs {
			assert.InDelta(t, bowl(mesh.Xs[c], mesh.Ys[r]), grid.Value(r, c), 1e-9)
		}
	}
}

func TestTriangulatedCollinearFails(t *testing.T) {
	pos := []vec3d.T{{0, 0, 0}, {1, 1, 1}, {2, 2, 2}}
	mesh := &Mesh{Xs: []float64{0, 1}, Ys: []float64{0, 1}}
	for _, m := range []Method{Linear, Cubic, Delaunay, ThinPlate} {
		_, err := Interpolate(context.Background(), pos, mesh, m, DefaultParams())
		assert.ErrorIs(t, err, ErrInterpolationFailed, "method %s", m)
	}
}

func TestThinPlate(t *testing.T) {
	a := assert.New(t)

	pos := latticeSamples(5, bowl)
	mesh, grid := interpolate(t, pos, 1, ThinPlate)
	for r := range mesh.Ys {
		for c := range mesh.Xs {
			a.InDelta(bowl(mesh.Xs[c], mesh.Ys[r]), grid.Value(r, c), 1e-6)
		}
	}

	_, grid = interpolate(t, randomSamples(2, 30, 10, plane), 0.5, ThinPlate)
	for i, n := range grid.Mesh().Coordinates() {
		a.InDelta(plane(n[0], n[1]), grid.Values[i], 1e-6)
	}
}

func TestThinPlateDuplicatesFail(t *testing.T) {
	pos := append(latticeSamples(3, plane), vec3d.T{1, 1, 42})
	mesh, err := BuildMesh(pos, 1, true)
	require.NoError(t, err)
	_, err = Interpolate(context.Background(), pos, mesh, ThinPlate, DefaultParams())
	assert.ErrorIs(t, err, ErrInterpolationFailed)

	var ie *InterpolationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ThinPlate, ie.Method)
}

func TestBiharmonic(t *testing.T) {
	a := assert.New(t)

	mesh := &Mesh{Xs: []float64{0, 1}, Ys: []float64{0, 1}}
	_, err := Interpolate(context.Background(), latticeSamples(3, plane), mesh, Biharmonic, DefaultParams())
	a.ErrorIs(err, ErrInterpolationFailed)

	pos := randomSamples(9, 200, 10, plane)
	_, grid := interpolate(t, pos, 0.5, Biharmonic)
	min, max := grid.Range()
	for i, n := range grid.Mesh().Coordinates() {
		a.InDelta(plane(n[0], n[1]), grid.Values[i], 0.05*(max-min))
	}

	// Collinear samples leave the fit rank deficient.
	line := make([]vec3d.T, 20)
	for i := range line {
		line[i] = vec3d.T{float64(i), float64(i), float64(i)}
	}
	_, err = Interpolate(context.Background(), line, mesh, Biharmonic, DefaultParams())
	a.ErrorIs(err, ErrInterpolationFailed)
}

func TestKriging(t *testing.T) {
	a := assert.New(t)

	pos := latticeSamples(5, bowl)
	for _, model := range []ModelType{Spherical, Exponential} {
		mesh, err := BuildMesh(pos, 1, true)
		require.NoError(t, err)
		grid, err := Interpolate(context.Background(), pos, mesh, Kriging, Params{Variogram: model})
		require.NoError(t, err, "model %s", model)
		for r := range mesh.Ys {
			for c := range mesh.Xs {
				a.InDelta(bowl(mesh.Xs[c], mesh.Ys[r]), grid.Value(r, c), 1e-6, "model %s", model)
			}
		}
	}

	// Estimates between samples stay within the data range.
	pos = randomSamples(4, 40, 10, bowl)
	_, grid := interpolate(t, pos, 0.5, Kriging)
	var zmin, zmax = math.Inf(1), math.Inf(-1)
	for _, p := range pos {
		zmin, zmax = math.Min(zmin, p[2]), math.Max(zmax, p[2])
	}
	min, max := grid.Range()
	spread := zmax - zmin
	a.GreaterOrEqual(min, zmin-0.5*spread)
	a.LessOrEqual(max, zmax+0.5*spread)
}

func TestKrigingCoincidentFails(t *testing.T) {
	pos := append(latticeSamples(3, plane), vec3d.T{2, 2, 7})
	mesh := &Mesh{Xs: []float64{0.5}, Ys: []float64{0.5}}
	_, err := Interpolate(context.Background(), pos, mesh, Kriging, DefaultParams())
	assert.ErrorIs(t, err, ErrInterpolationFailed)
}

func TestKrigingFlatSurface(t *testing.T) {
	pos := latticeSamples(4, func(x, y float64) float64 { return 3 })
	_, grid := interpolate(t, pos, 0.5, Kriging)
	for _, v := range grid.Values {
		assert.InDelta(t, 3, v, 1e-9)
	}
}

func TestInterpolateErrors(t *testing.T) {
	a := assert.New(t)

	mesh := &Mesh{Xs: []float64{0}, Ys: []float64{0}}
	_, err := Interpolate(context.Background(), nil, mesh, Linear, DefaultParams())
	a.ErrorIs(err, ErrEmptyDataset)

	_, err = Interpolate(context.Background(), square, mesh, Method("spline9"), DefaultParams())
	a.ErrorIs(err, ErrUnknownMethod)

	_, err = Interpolate(context.Background(), square, mesh, Kriging, Params{Variogram: "linear"})
	a.ErrorIs(err, ErrInterpolationFailed)
}

func TestInterpolateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pos := latticeSamples(5, bowl)
	mesh, err := BuildMesh(pos, 1, true)
	require.NoError(t, err)
	for _, m := range Methods {
		_, err := Interpolate(ctx, pos, mesh, m, DefaultParams())
		assert.ErrorIs(t, err, context.Canceled, "method %s", m)
		assert.NotErrorIs(t, err, ErrInterpolationFailed, "method %s", m)
	}
}

func TestParseMethod(t *testing.T) {
	a := assert.New(t)

	m, err := ParseMethod(" Thin_Plate ")
	require.NoError(t, err)
	a.Equal(ThinPlate, m)

	_, err = ParseMethod("bilinear")
	a.ErrorIs(err, ErrUnknownMethod)

	a.True(Cubic.Triangulated())
	a.False(IDW.Triangulated())
	a.True(Kriging.Global())
}

func TestIDWLargePower(t *testing.T) {
	a := assert.New(t)

	pos := []vec3d.T{{0, 0, 1}, {4000, 0, 2}, {0, 4000, 3}, {4000, 4000, 4}}
	mesh, err := BuildMesh(pos, 1000, false)
	require.NoError(t, err)
	grid, err := Interpolate(context.Background(), pos, mesh, IDW, Params{Power: 200})
	require.NoError(t, err)

	a.Zero(grid.Undefined())
	a.InDelta(1, grid.Value(0, 1), 1e-9)
	a.InDelta(1.5, grid.Value(0, 2), 1e-9)
	a.InDelta(4, grid.Value(3, 3), 1e-9)
}
