package gridder

import (
	"errors"
	"math"

	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
)

var errCollinear = errors.New("need at least three non-collinear points")

const (
	superScale       = 1e3
	barycentricSlack = 1e-10
)

// Triangulation is a Delaunay triangulation of the unique sample positions.
// Triangles are counter-clockwise; Neighbors[t][k] is the triangle across the
// edge opposite vertex k, or -1 on the hull.
type Triangulation struct {
	Points    []vec2d.T
	Values    []float64
	Triangles [][3]int
	Neighbors [][3]int

	index *triIndex
}

type triangle struct {
	v     [3]int
	n     [3]int
	alive bool
}

func orient(a, b, c vec2d.T) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// inCircle is positive when d lies inside the circumcircle of the
// counter-clockwise triangle abc.
func inCircle(a, b, c, d vec2d.T) float64 {
	adx, ady := a[0]-d[0], a[1]-d[1]
	bdx, bdy := b[0]-d[0], b[1]-d[1]
	cdx, cdy := c[0]-d[0], c[1]-d[1]
	ad := adx*adx + ady*ady
	bd := bdx*bdx + bdy*bdy
	cd := cdx*cdx + cdy*cdy
	return adx*(bdy*cd-bd*cdy) - ady*(bdx*cd-bd*cdx) + ad*(bdx*cdy-bdy*cdx)
}

type builder struct {
	pts  []vec2d.T
	tris []triangle
}

func (b *builder) contains(t int, p vec2d.T) (bool, int) {
	tr := &b.tris[t]
	onEdge := -1
	for k := 0; k < 3; k++ {
		o := orient(b.pts[tr.v[(k+1)%3]], b.pts[tr.v[(k+2)%3]], p)
		if o < 0 {
			return false, -1
		}
		if o == 0 {
			onEdge = k
		}
	}
	return true, onEdge
}

// locate walks from hint towards p and falls back to a scan of every live
// triangle when the walk leaves the mesh.
func (b *builder) locate(p vec2d.T, hint int) (int, int) {
	t := hint
	for steps := 0; steps < len(b.tris) && t >= 0 && b.tris[t].alive; steps++ {
		tr := &b.tris[t]
		next := -2
		for k := 0; k < 3; k++ {
			if orient(b.pts[tr.v[(k+1)%3]], b.pts[tr.v[(k+2)%3]], p) < 0 {
				next = tr.n[k]
				break
			}
		}
		if next == -2 {
			_, edge := b.contains(t, p)
			return t, edge
		}
		t = next
	}
	for t := len(b.tris) - 1; t >= 0; t-- {
		if !b.tris[t].alive {
			continue
		}
		if ok, edge := b.contains(t, p); ok {
			return t, edge
		}
	}
	return -1, -1
}

type boundaryEdge struct {
	a, b  int
	owner int
	outer int
}

func (b *builder) cavityBoundary(bad map[int]bool) []boundaryEdge {
	var edges []boundaryEdge
	for t := range bad {
		tr := &b.tris[t]
		for k := 0; k < 3; k++ {
			if nb := tr.n[k]; nb < 0 || !bad[nb] {
				edges = append(edges, boundaryEdge{a: tr.v[(k+1)%3], b: tr.v[(k+2)%3], owner: t, outer: nb})
			}
		}
	}
	return edges
}

// reachable keeps only the bad triangles connected to start.
func (b *builder) reachable(start int, bad map[int]bool) map[int]bool {
	seen := map[int]bool{start: true}
	queue := []int{start}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for _, nb := range b.tris[t].n {
			if nb >= 0 && bad[nb] && !seen[nb] {
				seen[nb] = true
				queue = append(queue, nb)
			}
		}
	}
	return seen
}

func (b *builder) insert(pi int) bool {
	p := b.pts[pi]
	t0, onEdge := b.locate(p, len(b.tris)-1)
	if t0 < 0 {
		return false
	}

	bad := map[int]bool{t0: true}
	if onEdge >= 0 {
		if nb := b.tris[t0].n[onEdge]; nb >= 0 {
			bad[nb] = true
		}
	}
	queue := make([]int, 0, 8)
	for t := range bad {
		queue = append(queue, t)
	}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for _, nb := range b.tris[t].n {
			if nb < 0 || bad[nb] {
				continue
			}
			v := b.tris[nb].v
			if inCircle(b.pts[v[0]], b.pts[v[1]], b.pts[v[2]], p) > 0 {
				bad[nb] = true
				queue = append(queue, nb)
			}
		}
	}

	var edges []boundaryEdge
	for {
		edges = b.cavityBoundary(bad)
		failed := -1
		for _, e := range edges {
			if orient(b.pts[e.a], b.pts[e.b], p) <= 0 {
				failed = e.owner
				if e.owner == t0 && e.outer >= 0 && !bad[e.outer] {
					failed = -2
					bad[e.outer] = true
				}
				break
			}
		}
		if failed == -1 {
			break
		}
		if failed == t0 {
			return false
		}
		if failed >= 0 {
			delete(bad, failed)
			bad = b.reachable(t0, bad)
		}
	}

	for t := range bad {
		b.tris[t].alive = false
	}

	start := make(map[int]int, len(edges))
	end := make(map[int]int, len(edges))
	for _, e := range edges {
		nt := len(b.tris)
		b.tris = append(b.tris, triangle{v: [3]int{e.a, e.b, pi}, n: [3]int{-1, -1, e.outer}, alive: true})
		start[e.a] = nt
		end[e.b] = nt
		if e.outer >= 0 {
			on := &b.tris[e.outer]
			for k := 0; k < 3; k++ {
				if on.n[k] == e.owner && on.v[(k+1)%3] == e.b && on.v[(k+2)%3] == e.a {
					on.n[k] = nt
				}
			}
		}
	}
	for _, e := range edges {
		nt := start[e.a]
		b.tris[nt].n[0] = start[e.b]
		b.tris[nt].n[1] = end[e.a]
	}
	return true
}

// Triangulate builds the Delaunay triangulation of the samples' XY
// positions. Coincident positions keep the first sample.
func Triangulate(pos []vec3d.T) (*Triangulation, error) {
	if len(pos) < 3 {
		return nil, errCollinear
	}
	bbox := BBox(pos)
	extent := math.Max(bbox.Max[0]-bbox.Min[0], bbox.Max[1]-bbox.Min[1])
	if !(extent > 0) {
		return nil, errCollinear
	}
	_, e := math.Frexp(extent)

	type key [2]float64
	seen := make(map[key]bool, len(pos))
	tri := &Triangulation{}
	norm := make([]vec2d.T, 0, len(pos)+3)
	for _, p := range pos {
		q := vec2d.T{math.Ldexp(p[0]-bbox.Min[0], -e), math.Ldexp(p[1]-bbox.Min[1], -e)}
		if seen[key(q)] {
			continue
		}
		seen[key(q)] = true
		norm = append(norm, q)
		tri.Points = append(tri.Points, vec2d.T{p[0], p[1]})
		tri.Values = append(tri.Values, p[2])
	}
	n := len(norm)
	if n < 3 {
		return nil, errCollinear
	}

	norm = append(norm,
		vec2d.T{0.5 - 2*superScale, -superScale},
		vec2d.T{0.5 + 2*superScale, -superScale},
		vec2d.T{0.5, 2 * superScale},
	)
	b := &builder{pts: norm}
	b.tris = append(b.tris, triangle{v: [3]int{n, n + 1, n + 2}, n: [3]int{-1, -1, -1}, alive: true})
	for i := 0; i < n; i++ {
		b.insert(i)
	}

	for _, t := range b.tris {
		if !t.alive || t.v[0] >= n || t.v[1] >= n || t.v[2] >= n {
			continue
		}
		tri.Triangles = append(tri.Triangles, t.v)
	}
	if len(tri.Triangles) == 0 {
		return nil, errCollinear
	}
	tri.fillHull(norm[:n])
	tri.linkNeighbors()
	tri.index = newTriIndex(tri)
	return tri, nil
}

// fillHull closes the pockets left where triangles touching the super
// triangle were dropped, so the triangles cover the convex hull.
func (tri *Triangulation) fillHull(pts []vec2d.T) {
	for {
		next := make(map[int]int)
		for _, t := range tri.boundary() {
			next[t[0]] = t[1]
		}
		if len(next) == 0 {
			return
		}
		var loop []int
		first := -1
		for v := range next {
			if first < 0 || v < first {
				first = v
			}
		}
		for v := first; ; {
			loop = append(loop, v)
			v = next[v]
			if v == first || len(loop) > len(next) {
				break
			}
		}

		added := false
		m := len(loop)
		for i := 0; i < m && m > 3; i++ {
			p, q, r := loop[i], loop[(i+1)%m], loop[(i+2)%m]
			if orient(pts[p], pts[q], pts[r]) >= 0 {
				continue
			}
			ear := true
			for _, v := range loop {
				if v == p || v == q || v == r {
					continue
				}
				if orient(pts[p], pts[r], pts[v]) >= 0 && orient(pts[r], pts[q], pts[v]) >= 0 && orient(pts[q], pts[p], pts[v]) >= 0 {
					ear = false
					break
				}
			}
			if ear {
				tri.Triangles = append(tri.Triangles, [3]int{p, r, q})
				added = true
				break
			}
		}
		if !added {
			return
		}
	}
}

type edgeKey struct{ a, b int }

// boundary returns directed hull edges with the triangulation on their left.
func (tri *Triangulation) boundary() [][2]int {
	edges := make(map[edgeKey]bool, 3*len(tri.Triangles))
	for _, t := range tri.Triangles {
		for k := 0; k < 3; k++ {
			edges[edgeKey{t[k], t[(k+1)%3]}] = true
		}
	}
	var ret [][2]int
	for _, t := range tri.Triangles {
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			if !edges[edgeKey{b, a}] {
				ret = append(ret, [2]int{a, b})
			}
		}
	}
	return ret
}

func (tri *Triangulation) linkNeighbors() {
	owner := make(map[edgeKey]int, 3*len(tri.Triangles))
	for i, t := range tri.Triangles {
		for k := 0; k < 3; k++ {
			owner[edgeKey{t[(k+1)%3], t[(k+2)%3]}] = i
		}
	}
	tri.Neighbors = make([][3]int, len(tri.Triangles))
	for i, t := range tri.Triangles {
		for k := 0; k < 3; k++ {
			tri.Neighbors[i][k] = -1
			if j, ok := owner[edgeKey{t[(k+2)%3], t[(k+1)%3]}]; ok {
				tri.Neighbors[i][k] = j
			}
		}
	}
}

// Barycentric returns the coordinates of p with respect to triangle t.
func (tri *Triangulation) Barycentric(t int, p vec2d.T) (b [3]float64, ok bool) {
	v := tri.Triangles[t]
	p0, p1, p2 := tri.Points[v[0]], tri.Points[v[1]], tri.Points[v[2]]
	det := orient(p0, p1, p2)
	if det == 0 {
		return b, false
	}
	b[0] = orient(p, p1, p2) / det
	b[1] = orient(p0, p, p2) / det
	b[2] = orient(p0, p1, p) / det
	return b, true
}

// Locate finds the triangle containing p. Points on an edge belong to the
// lowest-indexed triangle sharing it.
func (tri *Triangulation) Locate(p vec2d.T) (int, [3]float64) {
	for _, t := range tri.index.candidates(p) {
		b, ok := tri.Barycentric(t, p)
		if !ok {
			continue
		}
		if b[0] >= -barycentricSlack && b[1] >= -barycentricSlack && b[2] >= -barycentricSlack {
			return t, b
		}
	}
	return -1, [3]float64{}
}

// VertexNeighbors lists, for every point, the points sharing an edge with it.
func (tri *Triangulation) VertexNeighbors() [][]int {
	ret := make([][]int, len(tri.Points))
	seen := make(map[edgeKey]bool, 3*len(tri.Triangles))
	for _, t := range tri.Triangles {
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			if seen[edgeKey{a, b}] {
				continue
			}
			seen[edgeKey{a, b}] = true
			ret[a] = append(ret[a], b)
			ret[b] = append(ret[b], a)
		}
	}
	return ret
}

// triIndex buckets triangles by bounding box on a uniform grid.
type triIndex struct {
	rect    vec2d.Rect
	nx, ny  int
	dx, dy  float64
	buckets [][]int
}

func newTriIndex(tri *Triangulation) *triIndex {
	idx := &triIndex{rect: vec2d.Rect{Min: vec2d.MaxVal, Max: vec2d.MinVal}}
	for i := range tri.Points {
		idx.rect.Extend(&tri.Points[i])
	}
	side := int(math.Ceil(math.Sqrt(float64(len(tri.Triangles)) / 2)))
	if side < 1 {
		side = 1
	}
	if side > 1024 {
		side = 1024
	}
	idx.nx, idx.ny = side, side
	idx.dx = (idx.rect.Max[0] - idx.rect.Min[0]) / float64(side)
	idx.dy = (idx.rect.Max[1] - idx.rect.Min[1]) / float64(side)
	idx.buckets = make([][]int, side*side)
	for t, v := range tri.Triangles {
		r := vec2d.Rect{Min: vec2d.MaxVal, Max: vec2d.MinVal}
		for _, k := range v {
			r.Extend(&tri.Points[k])
		}
		x0, y0 := idx.cell(r.Min)
		x1, y1 := idx.cell(r.Max)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				idx.buckets[y*idx.nx+x] = append(idx.buckets[y*idx.nx+x], t)
			}
		}
	}
	return idx
}

func clampCell(v float64, n int) int {
	i := int(math.Floor(v))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (idx *triIndex) cell(p vec2d.T) (int, int) {
	x, y := 0, 0
	if idx.dx > 0 {
		x = clampCell((p[0]-idx.rect.Min[0])/idx.dx, idx.nx)
	}
	if idx.dy > 0 {
		y = clampCell((p[1]-idx.rect.Min[1])/idx.dy, idx.ny)
	}
	return x, y
}

func (idx *triIndex) candidates(p vec2d.T) []int {
	span := math.Max(idx.rect.Max[0]-idx.rect.Min[0], idx.rect.Max[1]-idx.rect.Min[1])
	slack := barycentricSlack * span
	if p[0] < idx.rect.Min[0]-slack || p[0] > idx.rect.Max[0]+slack ||
		p[1] < idx.rect.Min[1]-slack || p[1] > idx.rect.Max[1]+slack {
		return nil
	}
	x, y := idx.cell(p)
	return idx.buckets[y*idx.nx+x]
}
