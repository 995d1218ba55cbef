package gridder

import (
	"fmt"
	"math"

	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
)

// closeTolerance is the fraction of a cell within which the last node of a
// closed axis counts as already reaching the maximum.
const closeTolerance = 1e-9

// Arange returns min, min+step, ... for every value below max. The length is
// ceil((max-min)/step), matching numpy.arange.
func Arange(min, max, step float64) []float64 {
	if !(max > min) || !(step > 0) {
		return nil
	}
	n := int(math.Ceil((max - min) / step))
	ret := make([]float64, 0, n+1)
	for i := 0; i < n; i++ {
		v := min + float64(i)*step
		if v >= max {
			break
		}
		ret = append(ret, v)
	}
	return ret
}

// closedAxis extends an Arange axis so that it ends exactly on max when max
// lies on (or within rounding of) the step lattice.
func closedAxis(min, max, step float64) []float64 {
	axis := Arange(min, max, step)
	next := min + float64(len(axis))*step
	if math.Abs(next-max) <= closeTolerance*step {
		axis = append(axis, max)
	}
	return axis
}

// Mesh is a rectangular grid of nodes. Node (r, c) sits at (Xs[c], Ys[r]).
type Mesh struct {
	Xs []float64
	Ys []float64
}

func (m *Mesh) Rows() int { return len(m.Ys) }
func (m *Mesh) Cols() int { return len(m.Xs) }
func (m *Mesh) Len() int  { return len(m.Xs) * len(m.Ys) }

func (m *Mesh) Node(row, col int) vec2d.T {
	return vec2d.T{m.Xs[col], m.Ys[row]}
}

// Coordinates returns every node in row-major order.
func (m *Mesh) Coordinates() []vec2d.T {
	ret := make([]vec2d.T, 0, m.Len())
	for r := range m.Ys {
		for c := range m.Xs {
			ret = append(ret, m.Node(r, c))
		}
	}
	return ret
}

func (m *Mesh) Rect() vec2d.Rect {
	r := vec2d.Rect{Min: vec2d.MaxVal, Max: vec2d.MinVal}
	for _, p := range []vec2d.T{
		{m.Xs[0], m.Ys[0]},
		{m.Xs[len(m.Xs)-1], m.Ys[len(m.Ys)-1]},
	} {
		r.Extend(&p)
	}
	return r
}

// NewGrid allocates an estimated grid over the mesh with every node undefined.
func (m *Mesh) NewGrid() *Grid {
	g := &Grid{Xs: m.Xs, Ys: m.Ys, Values: make([]float64, m.Len())}
	for i := range g.Values {
		g.Values[i] = math.NaN()
	}
	return g
}

// BBox returns the XY bounding box of the samples.
func BBox(pos []vec3d.T) vec2d.Rect {
	r := vec2d.Rect{Min: vec2d.MaxVal, Max: vec2d.MinVal}
	for i := range pos {
		p := vec2d.T{pos[i][0], pos[i][1]}
		r.Extend(&p)
	}
	return r
}

// CheckCellSize fails with ErrInvalidCellSize unless cellSize is positive
// and finite.
func CheckCellSize(cellSize float64) error {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidCellSize, cellSize)
	}
	return nil
}

// BuildMesh spans the samples' bounding box with nodes every cellSize along
// both axes. With closed set the maximum of each axis is included when it
// falls on the lattice.
func BuildMesh(pos []vec3d.T, cellSize float64, closed bool) (*Mesh, error) {
	if err := CheckCellSize(cellSize); err != nil {
		return nil, err
	}
	if len(pos) == 0 {
		return nil, ErrEmptyDataset
	}
	bbox := BBox(pos)
	if !(bbox.Max[0] > bbox.Min[0]) {
		return nil, fmt.Errorf("%w: x = %v", ErrDegenerateAxis, bbox.Min[0])
	}
	if !(bbox.Max[1] > bbox.Min[1]) {
		return nil, fmt.Errorf("%w: y = %v", ErrDegenerateAxis, bbox.Min[1])
	}

	axis := Arange
	if closed {
		axis = closedAxis
	}
	return &Mesh{
		Xs: axis(bbox.Min[0], bbox.Max[0], cellSize),
		Ys: axis(bbox.Min[1], bbox.Max[1], cellSize),
	}, nil
}

// Grid holds one estimate per mesh node in row-major order. NaN marks an
// undefined node until Blank runs.
type Grid struct {
	Xs     []float64
	Ys     []float64
	Values []float64
}

func (g *Grid) Rows() int { return len(g.Ys) }
func (g *Grid) Cols() int { return len(g.Xs) }

func (g *Grid) Value(row, column int) float64 {
	return g.Values[row*len(g.Xs)+column]
}

func (g *Grid) Set(row, column int, v float64) {
	g.Values[row*len(g.Xs)+column] = v
}

// Dims, Z, X and Y satisfy gonum's plotter.GridXYZ.
func (g *Grid) Dims() (c, r int)   { return len(g.Xs), len(g.Ys) }
func (g *Grid) Z(c, r int) float64 { return g.Value(r, c) }
func (g *Grid) X(c int) float64    { return g.Xs[c] }
func (g *Grid) Y(r int) float64    { return g.Ys[r] }
func (g *Grid) Mesh() *Mesh        { return &Mesh{Xs: g.Xs, Ys: g.Ys} }
func (g *Grid) Defined(i int) bool { return !math.IsNaN(g.Values[i]) }
func (g *Grid) Node(row, col int) vec3d.T {
	return vec3d.T{g.Xs[col], g.Ys[row], g.Value(row, col)}
}

// Undefined counts nodes without an estimate.
func (g *Grid) Undefined() int {
	n := 0
	for i := range g.Values {
		if !g.Defined(i) {
			n++
		}
	}
	return n
}

// Range returns the minimum and maximum defined value.
func (g *Grid) Range() (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range g.Values {
		if math.IsNaN(v) {
			continue
		}
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	return min, max
}
