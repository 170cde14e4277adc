package linsolve

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/nasa/gunns-sub009/pkg/gerr"
)

// GPUDense stands in for network.GpuDense mode: a dense Cholesky
// decomposition backed by gonum.org/v1/gonum/mat rather than a hand-rolled
// solver, offering the same factor-once/solve-many call shape GUNNS's
// GPU_DENSE mode wants. No CUDA binding exists in the corpus this module was
// built from, so this backend is an honest non-GPU stand-in: it gives
// GpuDense mode a real, distinct numerical path rather than silently
// aliasing the CPU backend.
type GPUDense struct {
	chol mat.Cholesky
	n    int
}

// Decompose factors the n×n symmetric matrix given in row-major A via
// gonum's Cholesky decomposition.
func (g *GPUDense) Decompose(A []float64, n int) error {
	dense := mat.NewDense(n, n, append([]float64(nil), A...))
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, dense.At(i, j))
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return gerr.NewNumericalError("linsolve.GPUDense.Decompose", "matrix is not positive-definite")
	}
	g.chol = chol
	g.n = n
	return nil
}

// Solve solves Ax = b using the factorization computed by the last
// Decompose call.
func (g *GPUDense) Solve(b, x []float64, n int) error {
	if n != g.n {
		return fmt.Errorf("linsolve.GPUDense.Solve: size mismatch (decomposed %d, solving %d)", g.n, n)
	}
	var xVec mat.VecDense
	if err := g.chol.SolveVecTo(&xVec, mat.NewVecDense(n, b)); err != nil {
		return gerr.NewNumericalError("linsolve.GPUDense.Solve", err.Error())
	}
	copy(x, xVec.RawVector().Data)
	return nil
}
