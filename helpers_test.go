package gridder

import (
	"math"
	"math/rand"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

func nan() float64 { return math.NaN() }
func inf() float64 { return math.Inf(1) }

// randomSamples returns n samples in [0, size)² with z from fn.
func randomSamples(seed int64, n int, size float64, fn func(x, y float64) float64) []vec3d.T {
	rnd := rand.New(rand.NewSource(seed))
	pos := make([]vec3d.T, n)
	for i := range pos {
		x, y := rnd.Float64()*size, rnd.Float64()*size
		pos[i] = vec3d.T{x, y, fn(x, y)}
	}
	return pos
}

// latticeSamples returns samples on the integer lattice [0, n)².
func latticeSamples(n int, fn func(x, y float64) float64) []vec3d.T {
	pos := make([]vec3d.T, 0, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			x, y := float64(i), float64(j)
			pos = append(pos, vec3d.T{x, y, fn(x, y)})
		}
	}
	return pos
}

func plane(x, y float64) float64 { return 2*x - 3*y + 1 }

func bowl(x, y float64) float64 { return math.Sin(x/3) + math.Cos(y/4) + 0.1*x*y }
