package gridder

import (
	"math"

	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
)

// hullEpsilon scales the tolerance used to count points on a hull edge as inside.
const hullEpsilon = 1e-9

type Convex struct {
	vertices []vec3d.T
	hull     []vec2d.T
	edges    []Edge
}

type Edge struct {
	Start  vec2d.T
	End    vec2d.T
	Normal vec2d.T
}

func NewConvex(vertices []vec3d.T) *Convex {
	c := Convex{vertices, nil, nil}
	return &c
}

func (c *Convex) Rect() vec2d.Rect {
	r := vec2d.Rect{Min: vec2d.MaxVal, Max: vec2d.MinVal}
	for i := range c.Hull() {
		r.Extend(&c.hull[i])
	}
	return r
}

func (c *Convex) Hull() []vec2d.T {
	if c.hull == nil {
		if len(c.vertices) == 0 {
			c.hull = []vec2d.T{}
			return c.hull
		}
		minX, maxX := c.getExtremePoints()
		c.hull = append(c.quickHull(c.vertices, maxX, minX), c.quickHull(c.vertices, minX, maxX)...)
	}

	return c.hull
}

func (c *Convex) Edges() []Edge {
	if c.edges == nil {
		hull := c.Hull()
		for i, start := range hull {
			nextIndex := i + 1
			if len(hull) <= nextIndex {
				nextIndex = 0
			}
			end := hull[nextIndex]
			d := vec2d.Sub(&start, &end)
			normal := vec2d.T{-d[1], d[0]}
			normal.Normalize()
			c.edges = append(c.edges, Edge{
				start,
				end,
				normal})
		}
	}
	return c.edges
}

// Area is the signed area of the hull polygon.
func (c *Convex) Area() float64 {
	hull := c.Hull()
	a := 0.0
	for i := range hull {
		j := (i + 1) % len(hull)
		a += Cross(hull[i], hull[j])
	}
	return a / 2
}

func (c *Convex) quickHull(points []vec3d.T, start, end vec2d.T) []vec2d.T {
	pointDistanceIndicators := c.getLhsPointDistanceIndicatorMap(points, start, end)
	if len(pointDistanceIndicators) == 0 {
		return []vec2d.T{end}
	}

	farthestPoint := c.getFarthestPoint(pointDistanceIndicators)

	newPoints := make([]vec3d.T, 0, len(pointDistanceIndicators))
	for point := range pointDistanceIndicators {
		newPoints = append(newPoints, point)
	}

	return append(
		c.quickHull(newPoints, farthestPoint, end),
		c.quickHull(newPoints, start, farthestPoint)...)
}

func Subtract(lhs vec2d.T, rhs vec2d.T) vec2d.T {
	return vec2d.T{lhs[0] - rhs[0], lhs[1] - rhs[1]}
}

func OnTheRight(v vec2d.T, o vec2d.T) bool {
	return Cross(v, o) < 0
}

// InHull reports whether point lies inside the hull or on its boundary.
// Degenerate hulls (fewer than three vertices, or zero area) contain nothing.
func (c *Convex) InHull(point vec2d.T) bool {
	area := c.Area()
	if len(c.Hull()) < 3 || area == 0 {
		return false
	}
	sign := 1.0
	if area < 0 {
		sign = -1
	}
	rect := c.Rect()
	scale := math.Max(rect.Max[0]-rect.Min[0], rect.Max[1]-rect.Min[1])
	eps := hullEpsilon * scale * scale
	for _, edge := range c.Edges() {
		if sign*Cross(Subtract(edge.End, edge.Start), Subtract(point, edge.Start)) < -eps {
			return false
		}
	}
	return true
}

func (c *Convex) getExtremePoints() (minX, maxX vec2d.T) {
	minX = vec2d.T{math.MaxFloat64, 0}
	maxX = vec2d.T{-math.MaxFloat64, 0}

	for _, p := range c.vertices {
		if p[0] < minX[0] || (p[0] == minX[0] && p[1] < minX[1]) {
			minX = vec2d.T{p[0], p[1]}
		}

		if maxX[0] < p[0] || (p[0] == maxX[0] && p[1] > maxX[1]) {
			maxX = vec2d.T{p[0], p[1]}
		}
	}

	return minX, maxX
}

func (c *Convex) getLhsPointDistanceIndicatorMap(points []vec3d.T, start, end vec2d.T) map[vec3d.T]float64 {
	pointDistanceIndicatorMap := make(map[vec3d.T]float64)

	for _, point := range points {
		// z is irrelevant to the hull; dropping it merges coincident samples.
		point[2] = 0
		distanceIndicator := c.getDistanceIndicator(point, start, end)
		if distanceIndicator > 0 {
			pointDistanceIndicatorMap[point] = distanceIndicator
		}
	}

	return pointDistanceIndicatorMap
}

func Cross(lhs, rhs vec2d.T) float64 {
	return (lhs[0] * rhs[1]) - (lhs[1] * rhs[0])
}

func (c *Convex) getDistanceIndicator(point vec3d.T, start, end vec2d.T) float64 {
	point2d := vec2d.T{point[0], point[1]}
	vLine := vec2d.Sub(&end, &start)

	vPoint := vec2d.Sub(&point2d, &start)

	return Cross(vLine, vPoint)
}

func (c *Convex) getFarthestPoint(pointDistanceIndicatorMap map[vec3d.T]float64) (farthestPoint vec2d.T) {
	maxDistanceIndicator := -math.MaxFloat64
	for point, distanceIndicator := range pointDistanceIndicatorMap {
		if maxDistanceIndicator < distanceIndicator ||
			(maxDistanceIndicator == distanceIndicator && lexLess(point, farthestPoint)) {
			maxDistanceIndicator = distanceIndicator
			farthestPoint = vec2d.T{point[0], point[1]}
		}
	}

	return farthestPoint
}

func lexLess(p vec3d.T, q vec2d.T) bool {
	if p[0] == q[0] {
		return p[1] < q[1]
	}
	return p[0] < q[0]
}
