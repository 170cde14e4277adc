package linsolve

import (
	"fmt"

	"github.com/edp1096/sparse"

	"github.com/nasa/gunns-sub009/pkg/gerr"
)

// Sparse is network.GpuSparse mode's backend: a sparse LU factor-and-solve
// via github.com/edp1096/sparse, grounded on edp1096-toy-spice's
// pkg/matrix.CircuitMatrix. Like the teacher's own CircuitMatrix, this
// backend re-factors from scratch on every Solve call rather than reusing a
// prior factorization, matching the teacher's AddElement/AddRHS-then-Solve
// contract exactly.
type Sparse struct {
	n      int
	matrix *sparse.Matrix
	rhs    []float64
}

// NewSparse allocates a sparse n×n system.
func NewSparse(n int) (*Sparse, error) {
	config := &sparse.Configuration{
		Real:           true,
		Expandable:     true,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
	}
	m, err := sparse.Create(int64(n), config)
	if err != nil {
		return nil, fmt.Errorf("linsolve.Sparse: %w", err)
	}
	return &Sparse{
		n:      n,
		matrix: m,
		rhs:    make([]float64, n+1),
	}, nil
}

// Reset clears the matrix and RHS for the next minor step's assembly.
func (s *Sparse) Reset() {
	s.matrix.Clear()
	for i := range s.rhs {
		s.rhs[i] = 0
	}
}

// AddElement accumulates value into A[i][j] (0-based).
func (s *Sparse) AddElement(i, j int, value float64) {
	s.matrix.GetElement(int64(i+1), int64(j+1)).Real += value
}

// AddRHS accumulates value into b[i] (0-based).
func (s *Sparse) AddRHS(i int, value float64) {
	s.rhs[i+1] += value
}

// Solve factors and solves the system in one call, following the teacher's
// Solve contract, and writes the solution into x (0-based, length n).
func (s *Sparse) Solve(x []float64) error {
	if err := s.matrix.Factor(); err != nil {
		return gerr.NewNumericalError("linsolve.Sparse.Solve", fmt.Sprintf("factorization failed: %v", err))
	}
	solution, err := s.matrix.Solve(s.rhs)
	if err != nil {
		return gerr.NewNumericalError("linsolve.Sparse.Solve", fmt.Sprintf("solve failed: %v", err))
	}
	for i := 0; i < s.n; i++ {
		x[i] = solution[i+1]
	}
	return nil
}
