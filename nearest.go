package gridder

import (
	"context"
	"math"
	"sort"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// samplePoint is a sample position that remembers its input index.
type samplePoint struct {
	X, Y  float64
	Index int
}

func (p samplePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(samplePoint)
	if d == 0 {
		return p.X - q.X
	}
	return p.Y - q.Y
}

func (p samplePoint) Dims() int { return 2 }

func (p samplePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(samplePoint)
	return dist2(p.X, p.Y, q.X, q.Y)
}

type samplePoints []samplePoint

func (p samplePoints) Index(i int) kdtree.Comparable { return p[i] }
func (p samplePoints) Len() int                      { return len(p) }
func (p samplePoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

func (p samplePoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(samplePlane{samplePoints: p, Dim: d}, kdtree.MedianOfMedians(samplePlane{samplePoints: p, Dim: d}))
}

type samplePlane struct {
	samplePoints
	kdtree.Dim
}

func (p samplePlane) Less(i, j int) bool {
	if p.Dim == 0 {
		return p.samplePoints[i].X < p.samplePoints[j].X
	}
	return p.samplePoints[i].Y < p.samplePoints[j].Y
}

func (p samplePlane) Slice(start, end int) kdtree.SortSlicer {
	return samplePlane{samplePoints: p.samplePoints[start:end], Dim: p.Dim}
}

func (p samplePlane) Swap(i, j int) {
	p.samplePoints[i], p.samplePoints[j] = p.samplePoints[j], p.samplePoints[i]
}

var _ sort.Interface = samplePlane{}

// NearestInterpolator takes the value of the closest sample. When several
// samples are equally close the one that came first in the input wins.
type NearestInterpolator struct{}

func (p *NearestInterpolator) Interpolate(ctx context.Context, pos []vec3d.T, mesh *Mesh) (*Grid, error) {
	pts := make(samplePoints, len(pos))
	for i := range pos {
		pts[i] = samplePoint{X: pos[i][0], Y: pos[i][1], Index: i}
	}
	tree := kdtree.New(pts, false)

	return eachNode(ctx, mesh, func(x, y float64) float64 {
		q := samplePoint{X: x, Y: y}
		_, d := tree.Nearest(q)
		keeper := kdtree.NewDistKeeper(d)
		tree.NearestSet(keeper, q)
		best := -1
		for _, c := range keeper.Heap {
			if c.Comparable == nil {
				continue
			}
			if i := c.Comparable.(samplePoint).Index; best < 0 || i < best {
				best = i
			}
		}
		if best < 0 {
			return math.NaN()
		}
		return pos[best][2]
	})
}
