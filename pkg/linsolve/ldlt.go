// Package linsolve implements the orchestrator's three decomposition/solve
// backends (dense CPU, dense GPU stand-in, sparse GPU) plus an optional SOR
// pre-pass, dispatched by network.GpuMode. The CPU backend is a direct port
// of original_source/ms-utils/math/linear_algebra/CholeskyLdu.cpp: in-place
// symmetric LDLT decomposition operating on a flat row-major buffer, with
// the same underflow guard and non-positive-pivot failure as the original.
package linsolve

import (
	"fmt"

	"github.com/nasa/gunns-sub009/internal/consts"
	"github.com/nasa/gunns-sub009/pkg/gerr"
)

// CPU is the dense CPU backend: in-place symmetric LDLT decomposition and
// forward/diagonal/backward substitution solve, operating on a flat
// row-major n*n buffer exactly as CholeskyLdu.cpp does.
type CPU struct{}

// Decompose factors the n×n symmetric positive-definite matrix A (row-major,
// length n*n) in place into its LDLT factors, replacing A's lower triangle
// with L, diagonal with D, and upper triangle with L's transpose. Products
// of two operands both smaller in magnitude than consts.UnderflowFloor are
// skipped, and accumulated terms smaller than the floor are snapped to zero,
// matching the original's Trick-underflow workaround.
func (CPU) Decompose(A []float64, n int) error {
	limit := -consts.UnderflowFloor

	for i := 1; i < n; i++ {
		pi := i * n

		for j := 0; j < i; j++ {
			pj := j * n
			for k := 0; k < j; k++ {
				if A[pi+k] < limit || A[pi+k] > -limit || A[pj+k] < limit || A[pj+k] > -limit {
					A[pi+j] -= A[pi+k] * A[pj+k]
				}
			}
			if A[pi+j] > limit && A[pi+j] < -limit {
				A[pi+j] = 0.0
			}
		}

		for k := 0; k < i; k++ {
			pk := k * n
			ld := A[pi+k] / A[pk+k]
			A[pi+i] -= A[pi+k] * ld
			A[pi+k] = ld
			A[pk+i] = ld
		}

		if A[pi+i] <= 0.0 {
			return gerr.NewNumericalError("linsolve.CPU.Decompose", fmt.Sprintf("failed at row %d", i))
		}
	}
	return nil
}

// Solve computes x for LDUx = b given the LDU factors produced by Decompose,
// by solving Ly = b, then Dz = y, then Ux = z in sequence.
func (CPU) Solve(ldu, b, x []float64, n int) error {
	solveUnitLowerTriangular(ldu, b, x, n)

	for k := 0; k < n; k++ {
		d := ldu[k*n+k]
		if d == 0.0 {
			return gerr.NewNumericalError("linsolve.CPU.Solve", fmt.Sprintf("failed at row %d", k))
		}
		x[k] /= d
	}

	solveUnitUpperTriangular(ldu, x, x, n)
	return nil
}

// solveUnitLowerTriangular solves Lx = b for x, where L is the unit lower
// triangular part of ldu (diagonal assumed 1).
func solveUnitLowerTriangular(ldu, b, x []float64, n int) {
	x[0] = b[0]
	for k := 1; k < n; k++ {
		row := k * n
		x[k] = b[k]
		for i := 0; i < k; i++ {
			x[k] -= x[i] * ldu[row+i]
		}
	}
}

// solveUnitUpperTriangular solves Ux = b for x, where U is the unit upper
// triangular part of ldu (diagonal assumed 1). b and x may alias.
func solveUnitUpperTriangular(ldu, b, x []float64, n int) {
	x[n-1] = b[n-1]
	for k := n - 2; k >= 0; k-- {
		row := k * n
		v := b[k]
		for i := k + 1; i < n; i++ {
			v -= x[i] * ldu[row+i]
		}
		x[k] = v
	}
}
