package gridder

import "math"

// Blank returns a copy of grid with every undefined node set to sentinel.
// The sentinel may be NaN itself.
func Blank(grid *Grid, sentinel float64) *Grid {
	out := &Grid{Xs: grid.Xs, Ys: grid.Ys, Values: make([]float64, len(grid.Values))}
	for i, v := range grid.Values {
		if math.IsNaN(v) {
			v = sentinel
		}
		out.Values[i] = v
	}
	return out
}
