package gridder

import (
	"math"
	"testing"

	vec3d "github.com/flywave/go3d/float64/vec3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArange(t *testing.T) {
	a := assert.New(t)

	a.Equal([]float64{0, 3, 6, 9}, Arange(0, 10, 3))
	a.Equal([]float64{0}, Arange(0, 1, 1))
	a.Equal([]float64{0, 2, 4}, Arange(0, 6, 2))
	a.Nil(Arange(1, 1, 1))
	a.Nil(Arange(0, 1, 0))
}

func TestBuildMeshCounts(t *testing.T) {
	a := assert.New(t)

	pos := []vec3d.T{{0, 0, 1}, {10, 5, 2}, {3, 4, 3}}
	mesh, err := BuildMesh(pos, 2, false)
	require.NoError(t, err)
	a.Equal(5, mesh.Cols())
	a.Equal(3, mesh.Rows())
	a.Equal(15, mesh.Len())
	a.Equal(int(math.Ceil(10.0/2)), mesh.Cols())
	a.Equal(int(math.Ceil(5.0/2)), mesh.Rows())

	bbox := BBox(pos)
	for _, n := range mesh.Coordinates() {
		a.True(n[0] >= bbox.Min[0] && n[0] <= bbox.Max[0])
		a.True(n[1] >= bbox.Min[1] && n[1] <= bbox.Max[1])
	}
}

func TestBuildMeshClosed(t *testing.T) {
	a := assert.New(t)

	mesh, err := BuildMesh(square, 1, true)
	require.NoError(t, err)
	a.Equal([]float64{0, 1}, mesh.Xs)
	a.Equal([]float64{0, 1}, mesh.Ys)
	a.Equal(4, mesh.Len())

	// Off-lattice maxima are not added.
	mesh, err = BuildMesh([]vec3d.T{{0, 0, 0}, {2.5, 2.5, 0}}, 1, true)
	require.NoError(t, err)
	a.Equal([]float64{0, 1, 2}, mesh.Xs)

	// Rounding on the last node still closes the axis.
	mesh, err = BuildMesh([]vec3d.T{{0, 0, 0}, {0.3, 0.3, 0}}, 0.1, true)
	require.NoError(t, err)
	a.Len(mesh.Xs, 4)
	a.Equal(0.3, mesh.Xs[3])
}

func TestBuildMeshErrors(t *testing.T) {
	a := assert.New(t)

	for _, cs := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := BuildMesh(square, cs, false)
		a.ErrorIs(err, ErrInvalidCellSize, "cell size %v", cs)
	}

	_, err := BuildMesh(nil, 0, false)
	a.ErrorIs(err, ErrInvalidCellSize)

	_, err = BuildMesh(nil, 1, false)
	a.ErrorIs(err, ErrEmptyDataset)

	_, err = BuildMesh([]vec3d.T{{1, 0, 0}, {1, 5, 0}}, 1, false)
	a.ErrorIs(err, ErrDegenerateAxis)

	_, err = BuildMesh([]vec3d.T{{0, 2, 0}, {5, 2, 0}}, 1, false)
	a.ErrorIs(err, ErrDegenerateAxis)
}

func TestGrid(t *testing.T) {
	a := assert.New(t)

	mesh := &Mesh{Xs: []float64{0, 1, 2}, Ys: []float64{10, 20}}
	g := mesh.NewGrid()
	a.Equal(6, g.Undefined())

	g.Set(1, 2, 7)
	g.Set(0, 0, -3)
	a.Equal(7.0, g.Value(1, 2))
	a.Equal(7.0, g.Z(2, 1))
	c, r := g.Dims()
	a.Equal(3, c)
	a.Equal(2, r)
	a.Equal(20.0, g.Y(1))
	a.Equal(vec3d.T{2, 20, 7}, g.Node(1, 2))
	a.Equal(4, g.Undefined())

	min, max := g.Range()
	a.Equal(-3.0, min)
	a.Equal(7.0, max)
}

func TestBlank(t *testing.T) {
	a := assert.New(t)

	mesh := &Mesh{Xs: []float64{0, 1}, Ys: []float64{0, 1}}
	g := mesh.NewGrid()
	g.Set(0, 1, 4)

	b := Blank(g, -9999)
	a.Equal([]float64{-9999, 4, -9999, -9999}, b.Values)
	a.Equal(3, g.Undefined(), "input is not modified")

	b = Blank(g, math.NaN())
	a.Equal(3, b.Undefined())
}
