package gridder

import (
	"math"
)

func exp(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Exp(x)
}

func pow2(x float64) float64 {
	return x * x
}

func pow3(x float64) float64 {
	return x * x * x
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func dist2(ax, ay, bx, by float64) float64 {
	return pow2(ax-bx) + pow2(ay-by)
}

func dist(ax, ay, bx, by float64) float64 {
	return math.Sqrt(dist2(ax, ay, bx, by))
}
