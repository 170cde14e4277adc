package linsolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUDenseDecomposeAndSolveMatchesKnownSolution(t *testing.T) {
	A := []float64{4, 2, 2, 3}
	b := []float64{6, 5}
	x := make([]float64, 2)

	var g GPUDense
	require.NoError(t, g.Decompose(A, 2))
	require.NoError(t, g.Solve(b, x, 2))

	assert.InDelta(t, 1.0, x[0], 1e-9)
	assert.InDelta(t, 1.0, x[1], 1e-9)
}

func TestGPUDenseDecomposeRejectsNonPositiveDefiniteMatrix(t *testing.T) {
	A := []float64{1, 2, 2, 1}
	var g GPUDense
	assert.Error(t, g.Decompose(A, 2))
}

func TestGPUDenseSolveRejectsSizeMismatch(t *testing.T) {
	A := []float64{4, 2, 2, 3}
	var g GPUDense
	require.NoError(t, g.Decompose(A, 2))

	b := []float64{1, 1, 1}
	x := make([]float64, 3)
	assert.Error(t, g.Solve(b, x, 3))
}
