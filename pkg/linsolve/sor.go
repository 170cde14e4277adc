package linsolve

import (
	"math"

	"github.com/nasa/gunns-sub009/internal/consts"
)

// sorCondition is the diagonal floor IsPositiveDefinite checks against,
// chosen because the orchestrator conditions its matrix with a minimum
// value of DblEpsilon*1e-15, matching Sor::condition.
var sorCondition = consts.DblEpsilon * consts.DblEpsilon

// SOR is the optional successive-over-relaxation pre-pass ported from
// original_source/ms-utils/math/linear_algebra/Sor.cpp. It is gated by
// network configuration and used as a cheaper first try before falling back
// to the dense LDLT backend.
type SOR struct{}

// IsPositiveDefinite checks every diagonal of A (row-major, n*n) against
// sorCondition. This is NOT the correct definition of positive-definiteness
// (a matrix with A[i][i] above the floor but negative eigenvalues would
// still pass); it only protects Solve from dividing by a near-zero pivot,
// exactly as the original's own doc comment admits.
func (SOR) IsPositiveDefinite(A []float64, n int) bool {
	for i := 0; i < n; i++ {
		if A[i*n+i] < sorCondition {
			return false
		}
	}
	return true
}

// Solve runs successive over-relaxation on [A]{x}={B} starting from the
// caller-supplied x, for at most maxIter-1 iterations with relaxation factor w
// (0 < w <= 1; w == 1 reduces to Gauss-Seidel) and convergence threshold
// convg. Returns the iteration count on convergence, or -1 if maxIter was
// reached without converging (x holds the last unconverged iterate in that
// case; the caller must fall back to another solve).
func (SOR) Solve(x, A, b []float64, n int, w float64, maxIter int, convg float64) int {
	k := 1
	for k < maxIter {
		esum := 0.0
		for i := 0; i < n; i++ {
			row := i * n
			lterm, hterm := 0.0, 0.0
			for j := 0; j < i; j++ {
				lterm += A[row+j] * x[j]
			}
			for j := i + 1; j < n; j++ {
				hterm += A[row+j] * x[j]
			}
			eterm := (1.0-w)*x[i] + (w/A[row+i])*(-lterm-hterm+b[i])
			esum += math.Abs(eterm - x[i])
			x[i] = eterm
		}
		if esum < convg*float64(n) {
			return k
		}
		k++
	}
	return -1
}
