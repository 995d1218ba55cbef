package gridder

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// maxCondition bounds the condition number of systems we are willing to
// trust. Past it the solution is dominated by rounding.
const maxCondition = 1e13

var errSingular = errors.New("matrix is singular or ill-conditioned")

func matrixInverse(x []float64, n int) ([]float64, bool) {
	a := mat.NewDense(n, n, x)
	var ia mat.Dense

	err := ia.Inverse(a)
	if err != nil {
		return ia.RawMatrix().Data, false
	}

	return ia.RawMatrix().Data, true
}

// factorize LU-decomposes a and rejects it when ill-conditioned.
func factorize(a *mat.Dense) (*mat.LU, error) {
	var lu mat.LU
	lu.Factorize(a)
	if c := lu.Cond(); math.IsInf(c, 1) || math.IsNaN(c) || c > maxCondition {
		return nil, fmt.Errorf("%w (condition number %g)", errSingular, c)
	}
	return &lu, nil
}

func solveWith(lu *mat.LU, b []float64) ([]float64, error) {
	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, mat.NewVecDense(len(b), b)); err != nil {
		return nil, fmt.Errorf("%w: %v", errSingular, err)
	}
	return x.RawVector().Data, nil
}

func solveSystem(a *mat.Dense, b []float64) ([]float64, error) {
	lu, err := factorize(a)
	if err != nil {
		return nil, err
	}
	return solveWith(lu, b)
}
