package gridder

import (
	"math"

	vec2d "github.com/flywave/go3d/float64/vec2"
)

const (
	gradientTolerance = 1e-6
	gradientMaxIter   = 400
	degenerateArea    = 1e-12
)

// Linear interpolates barycentrically inside the triangle holding (x, y).
// Outside the convex hull it returns NaN.
func (tri *Triangulation) Linear(x, y float64) float64 {
	t, b := tri.Locate(vec2d.T{x, y})
	if t < 0 {
		return math.NaN()
	}
	v := tri.Triangles[t]
	return b[0]*tri.Values[v[0]] + b[1]*tri.Values[v[1]] + b[2]*tri.Values[v[2]]
}

// CloughTocher is a C1 piecewise cubic interpolant. Each triangle is split
// at its centroid into three cubic Bezier patches.
type CloughTocher struct {
	tri   *Triangulation
	grad  []vec2d.T
	scale float64
}

func NewCloughTocher(tri *Triangulation) (*CloughTocher, error) {
	rect := tri.index.rect
	scale := math.Max(rect.Max[0]-rect.Min[0], rect.Max[1]-rect.Min[1])
	return &CloughTocher{tri: tri, grad: estimateGradients(tri), scale: scale}, nil
}

// estimateGradients finds vertex gradients that minimise the curvature of
// the piecewise cubic along triangulation edges, iterating per vertex until
// the largest relative change drops below gradientTolerance.
func estimateGradients(tri *Triangulation) []vec2d.T {
	grad := make([]vec2d.T, len(tri.Points))
	adj := tri.VertexNeighbors()
	for iter := 0; iter < gradientMaxIter; iter++ {
		maxChange := 0.0
		for i, nbs := range adj {
			var q0, q1, q3, s0, s1 float64
			for _, j := range nbs {
				ex := tri.Points[j][0] - tri.Points[i][0]
				ey := tri.Points[j][1] - tri.Points[i][1]
				l := math.Sqrt(ex*ex + ey*ey)
				l3 := l * l * l
				f1 := tri.Values[i]
				f2 := tri.Values[j]
				df2 := -ex*grad[j][0] - ey*grad[j][1]

				q0 += 4 * ex * ex / l3
				q1 += 4 * ex * ey / l3
				q3 += 4 * ey * ey / l3
				s0 += (6*(f1-f2) - 2*df2) * ex / l3
				s1 += (6*(f1-f2) - 2*df2) * ey / l3
			}
			det := q0*q3 - q1*q1
			if det == 0 || !isFinite(det) {
				continue
			}
			r0 := (q3*s0 - q1*s1) / det
			r1 := (-q1*s0 + q0*s1) / det

			change := math.Max(math.Abs(grad[i][0]+r0), math.Abs(grad[i][1]+r1))
			grad[i] = vec2d.T{-r0, -r1}
			change /= math.Max(1, math.Max(math.Abs(r0), math.Abs(r1)))
			maxChange = math.Max(maxChange, change)
		}
		if maxChange < gradientTolerance {
			break
		}
	}
	return grad
}

func dot(a, b vec2d.T) float64 {
	return a[0]*b[0] + a[1]*b[1]
}

// edgeControl returns the interior control point next to edge AB in the
// patch with apex P4. It makes the cross-edge derivative at the edge
// midpoint equal the mean of the vertex gradients, which both triangles
// sharing the edge agree on.
func edgeControl(pa, pb, p4 vec2d.T, fa, fb float64, ga, gb vec2d.T, ca, cb, ca4, cb4 float64) float64 {
	e := vec2d.T{pb[0] - pa[0], pb[1] - pa[1]}
	m := vec2d.T{(pa[0] + pb[0]) / 2, (pa[1] + pb[1]) / 2}
	u := vec2d.T{p4[0] - m[0], p4[1] - m[1]}
	g := vec2d.T{(ga[0] + gb[0]) / 2, (ga[1] + gb[1]) / 2}

	ee := dot(e, e)
	ue := dot(u, e) / ee
	tangent := 3 * ((ca-fa)/4 + (cb-ca)/2 + (fb-cb)/4)
	normal := vec2d.T{u[0] - ue*e[0], u[1] - ue*e[1]}
	target := tangent*ue + dot(g, normal)

	rest := (-fa/2-ca/2+ca4)/4 + (-ca/2-cb/2)/2 + (-cb/2-fb/2+cb4)/4
	return 2 * (target/3 - rest)
}

// Eval returns the interpolated value at (x, y), NaN outside the hull or
// inside a degenerate triangle.
func (ct *CloughTocher) Eval(x, y float64) float64 {
	tri := ct.tri
	t, b := tri.Locate(vec2d.T{x, y})
	if t < 0 {
		return math.NaN()
	}
	v := tri.Triangles[t]
	p1, p2, p3 := tri.Points[v[0]], tri.Points[v[1]], tri.Points[v[2]]
	if math.Abs(orient(p1, p2, p3)) <= degenerateArea*ct.scale*ct.scale {
		return math.NaN()
	}
	p4 := vec2d.T{(p1[0] + p2[0] + p3[0]) / 3, (p1[1] + p2[1] + p3[1]) / 3}
	f1, f2, f3 := tri.Values[v[0]], tri.Values[v[1]], tri.Values[v[2]]
	g1, g2, g3 := ct.grad[v[0]], ct.grad[v[1]], ct.grad[v[2]]

	e12 := vec2d.T{p2[0] - p1[0], p2[1] - p1[1]}
	e23 := vec2d.T{p3[0] - p2[0], p3[1] - p2[1]}
	e31 := vec2d.T{p1[0] - p3[0], p1[1] - p3[1]}

	df12 := dot(g1, e12)
	df21 := -dot(g2, e12)
	df23 := dot(g2, e23)
	df32 := -dot(g3, e23)
	df31 := dot(g3, e31)
	df13 := -dot(g1, e31)

	c3000 := f1
	c2100 := f1 + df12/3
	c2010 := f1 + df13/3
	c0300 := f2
	c1200 := f2 + df21/3
	c0210 := f2 + df23/3
	c0030 := f3
	c1020 := f3 + df31/3
	c0120 := f3 + df32/3

	c2001 := (c2100 + c2010 + c3000) / 3
	c0201 := (c1200 + c0300 + c0210) / 3
	c0021 := (c1020 + c0120 + c0030) / 3

	c0111 := edgeControl(p2, p3, p4, f2, f3, g2, g3, c0210, c0120, c0201, c0021)
	c1011 := edgeControl(p3, p1, p4, f3, f1, g3, g1, c1020, c2010, c0021, c2001)
	c1101 := edgeControl(p1, p2, p4, f1, f2, g1, g2, c2100, c1200, c2001, c0201)

	c1002 := (c1101 + c1011 + c2001) / 3
	c0102 := (c1101 + c0111 + c0201) / 3
	c0012 := (c1011 + c0111 + c0021) / 3

	c0003 := (c1002 + c0102 + c0012) / 3

	minval := math.Min(b[0], math.Min(b[1], b[2]))
	b1 := b[0] - minval
	b2 := b[1] - minval
	b3 := b[2] - minval
	b4 := 3 * minval

	switch minval {
	case b[0]:
		return pow3(b2)*c0300 + 3*b2*b2*b3*c0210 + 3*b2*b2*b4*c0201 +
			3*b2*b3*b3*c0120 + 6*b2*b3*b4*c0111 + 3*b2*b4*b4*c0102 +
			pow3(b3)*c0030 + 3*b3*b3*b4*c0021 + 3*b3*b4*b4*c0012 +
			pow3(b4)*c0003
	case b[1]:
		return pow3(b1)*c3000 + 3*b1*b1*b3*c2010 + 3*b1*b1*b4*c2001 +
			3*b1*b3*b3*c1020 + 6*b1*b3*b4*c1011 + 3*b1*b4*b4*c1002 +
			pow3(b3)*c0030 + 3*b3*b3*b4*c0021 + 3*b3*b4*b4*c0012 +
			pow3(b4)*c0003
	default:
		return pow3(b1)*c3000 + 3*b1*b1*b2*c2100 + 3*b1*b1*b4*c2001 +
			3*b1*b2*b2*c1200 + 6*b1*b2*b4*c1101 + 3*b1*b4*b4*c1002 +
			pow3(b2)*c0300 + 3*b2*b2*b4*c0201 + 3*b2*b4*b4*c0102 +
			pow3(b4)*c0003
	}
}
