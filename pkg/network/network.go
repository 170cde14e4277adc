// Package network implements the central orchestrator: the per-major-frame
// build/solve/converge loop, admittance-matrix assembly from link
// contributions, island partitioning, the decomposition/solve pipeline, and
// the non-linear link acceptance protocol. Grounded on
// original_source/core/Gunns.cpp (Gunns::step, iterateMinorSteps,
// buildAndSolveSystem and their helpers), restructured around Go's explicit
// error returns in place of the original's thrown Ts*Exception hierarchy,
// in the same spirit edp1096-toy-spice's pkg/circuit.Circuit drives
// pkg/device and pkg/matrix.
package network

import (
	"fmt"
	"math"
	"time"

	"github.com/nasa/gunns-sub009/internal/consts"
	"github.com/nasa/gunns-sub009/pkg/eventsink"
	"github.com/nasa/gunns-sub009/pkg/flow"
	"github.com/nasa/gunns-sub009/pkg/gerr"
	"github.com/nasa/gunns-sub009/pkg/link"
	"github.com/nasa/gunns-sub009/pkg/linsolve"
	"github.com/nasa/gunns-sub009/pkg/node"
)

// SolverMode selects how the orchestrator treats the solution each step.
type SolverMode int

const (
	Normal SolverMode = iota
	Dummy
	Slave
)

func (m SolverMode) String() string {
	switch m {
	case Normal:
		return "NORMAL"
	case Dummy:
		return "DUMMY"
	case Slave:
		return "SLAVE"
	default:
		return "UNKNOWN"
	}
}

// IslandMode selects whether and how the network is partitioned for solving.
type IslandMode int

const (
	IslandOff IslandMode = iota
	IslandFind
	IslandSolve
)

func (m IslandMode) String() string {
	switch m {
	case IslandOff:
		return "OFF"
	case IslandFind:
		return "FIND"
	case IslandSolve:
		return "SOLVE"
	default:
		return "UNKNOWN"
	}
}

// RunMode gates whether Step does anything at all.
type RunMode int

const (
	Run RunMode = iota
	Pause
)

func (m RunMode) String() string {
	if m == Pause {
		return "PAUSE"
	}
	return "RUN"
}

// GpuMode selects the dense/sparse decomposition backend.
type GpuMode int

const (
	NoGPU GpuMode = iota
	GpuDense
	GpuSparse
)

// Config is the network's construction-time configuration.
type Config struct {
	Name string

	ConvergenceTolerance      float64
	MinLinearizationPotential float64
	MinorStepLimit            int
	DecompositionLimit        int

	// SOR pre-pass, tried before the dense/sparse solve on every minor step.
	SORActive    bool
	SORWeight    float64
	SORMaxIter   int
	SORTolerance float64

	GpuEnabled       bool
	GpuSizeThreshold int

	// WorstCaseTiming forces a full rebuild+decompose every minor step,
	// used to measure worst-case CPU rather than for normal operation.
	WorstCaseTiming bool
}

func (c Config) validate() error {
	if c.ConvergenceTolerance <= 0 {
		return gerr.NewInitializationError(c.Name, "convergence tolerance must be positive")
	}
	if c.MinLinearizationPotential <= 0 {
		return gerr.NewInitializationError(c.Name, "minimum linearisation potential must be positive")
	}
	if c.MinorStepLimit < 1 {
		return gerr.NewInitializationError(c.Name, "minor step limit must be at least 1")
	}
	if c.DecompositionLimit < 1 {
		return gerr.NewInitializationError(c.Name, "decomposition limit must be at least 1")
	}
	return nil
}

// StepEntry records one minor step's outcome for post-run inspection,
// standing in for the original's Trick-specific debug-slice recording.
type StepEntry struct {
	MinorStep           int
	Result              string
	DecompositionCount  int
	Potential           []float64
}

// StepLog accumulates StepEntry records across a run.
type StepLog struct {
	Entries []StepEntry
}

func (s *StepLog) record(minorStep int, result string, decompositions int, p []float64) {
	s.Entries = append(s.Entries, StepEntry{
		MinorStep:          minorStep,
		Result:             result,
		DecompositionCount: decompositions,
		Potential:          append([]float64(nil), p...),
	})
}

type islandFactor struct {
	size int
	ldu  []float64
}

// Network is the orchestrator: it owns the dense admittance matrix, source
// and potential vectors, island partition state, and dispatches to the
// configured linear-solve backend.
type Network struct {
	config Config
	sink   eventsink.Sink

	links []link.Link
	nodes []node.Node
	n     int // network size = len(nodes) - 1; the last node is ground

	initialized bool

	solverMode, lastSolverMode SolverMode
	islandMode, lastIslandMode IslandMode
	runMode, lastRunMode       RunMode
	gpuMode                    GpuMode

	A                    []float64
	decomposedA          []float64
	b                    []float64
	p                    []float64
	pMinor               []float64
	pMajor               []float64
	slaveP               []float64
	netCapDeltaPotential []float64

	islandNumbers []int
	islandVectors [][]int
	islandFactors map[int]*islandFactor
	islandMaxSize int
	islandCount   int

	cpu      linsolve.CPU
	sor      linsolve.SOR
	gpuDense *linsolve.GPUDense
	sparse   *linsolve.Sparse

	needDecomposition bool
	flowOrchestrator  flow.Orchestrator

	MajorStepCount         int
	ConvergenceFailCount   int
	LinkResetStepFailCount int
	SolveTime              time.Duration
	StepTime               time.Duration
	StepLog                StepLog

	// MinorStepCount/DecompositionCount are the most recent major frame's
	// counts; the Max* counterparts track the worst case seen across every
	// frame run so far, mirroring Gunns::step's mNumMinorSteps/
	// mMaxMinorStepCount bookkeeping (original_source/core/Gunns.cpp).
	MinorStepCount        int
	MaxMinorStepCount     int
	DecompositionCount    int
	MaxDecompositionCount int

	// SorLastIteration is the iteration count the SOR pre-pass reported on
	// its most recent attempt; SorFailCount counts how many times it was
	// tried and failed to converge before falling back to the decomposed
	// solve.
	SorLastIteration int
	SorFailCount     int
}

// New constructs a network over the given links. Nodes are supplied
// separately via InitializeNodes/InitializeFluidNodes.
func New(config Config, links []link.Link) (*Network, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(links))
	for _, l := range links {
		if !l.Initialized() {
			return nil, gerr.NewInitializationError(config.Name, fmt.Sprintf("link %q has not completed its own initialization", l.Name()))
		}
		if seen[l.Name()] {
			return nil, gerr.NewInitializationError(config.Name, fmt.Sprintf("link %q appears more than once in the link set", l.Name()))
		}
		seen[l.Name()] = true
	}
	return &Network{
		config: config,
		sink:   eventsink.Discard{},
		links:  links,
	}, nil
}

// SetEventSink overrides the default discard sink.
func (net *Network) SetEventSink(s eventsink.Sink) {
	if s != nil {
		net.sink = s
	}
}

// SetFlowOrchestrator overrides the post-convergence flow dispatch. If
// never called, InitializeNodes installs flow.NewDefault.
func (net *Network) SetFlowOrchestrator(o flow.Orchestrator) {
	net.flowOrchestrator = o
}

// SetGpuOptions configures the GPU decomposition backend. enabled gates
// whether GPU modes are honored at all; checkStepInputs downgrades silently
// to NoGPU when the network is smaller than sizeThreshold or not enabled.
func (net *Network) SetGpuOptions(mode GpuMode, sizeThreshold int, enabled bool) {
	net.gpuMode = mode
	net.config.GpuSizeThreshold = sizeThreshold
	net.config.GpuEnabled = enabled
}

func (net *Network) SetSolverMode(m SolverMode) { net.solverMode = m }
func (net *Network) SetIslandMode(m IslandMode) { net.islandMode = m }
func (net *Network) SetRunMode(m RunMode)       { net.runMode = m }

func (net *Network) SolverModeValue() SolverMode { return net.solverMode }
func (net *Network) IslandModeValue() IslandMode { return net.islandMode }
func (net *Network) RunModeValue() RunMode       { return net.runMode }

// SetSlavePotentialVector supplies the externally-driven potential vector
// used when SolverMode is Slave. Length must equal the network size.
func (net *Network) SetSlavePotentialVector(v []float64) error {
	if len(v) != net.n {
		return gerr.NewOutOfBoundsError(net.config.Name, fmt.Sprintf("slave potential vector length %d does not match network size %d", len(v), net.n))
	}
	copy(net.slaveP, v)
	return nil
}

// InitializeNodes attaches the node set, allocates matrix/vector state sized
// to N = len(nodes) - 1, wires each node's capacitance delta-potential
// slice, and marks the ground node's potential to zero. May only be called
// once; a second call is an initialization error.
func (net *Network) InitializeNodes(nodes []node.Node) error {
	if net.nodes != nil {
		return gerr.NewInitializationError(net.config.Name, "nodes have already been initialized")
	}
	if len(nodes) < 2 {
		return gerr.NewInitializationError(net.config.Name, "network requires at least one participating node plus ground")
	}
	for i, n := range nodes {
		if !n.Initialized() {
			return gerr.NewInitializationError(net.config.Name, fmt.Sprintf("node %d has not been initialized", i))
		}
	}

	net.nodes = nodes
	net.n = len(nodes) - 1
	n := net.n
	size := n * n

	net.A = make([]float64, size)
	net.decomposedA = make([]float64, size)
	net.b = make([]float64, n)
	net.p = make([]float64, n)
	net.pMinor = make([]float64, n)
	net.pMajor = make([]float64, n)
	net.slaveP = make([]float64, n)
	net.netCapDeltaPotential = make([]float64, size)
	net.islandNumbers = make([]int, n)
	net.islandVectors = make([][]int, n)
	net.islandFactors = make(map[int]*islandFactor)

	for i := 0; i < n; i++ {
		row := i * n
		nodes[i].SetNetCapDeltaPotential(net.netCapDeltaPotential[row : row+n])
	}
	nodes[n].SetPotential(0)

	sparseBackend, err := linsolve.NewSparse(n)
	if err != nil {
		return fmt.Errorf("network %q: %w", net.config.Name, err)
	}
	net.sparse = sparseBackend
	net.gpuDense = &linsolve.GPUDense{}

	if net.flowOrchestrator == nil {
		net.flowOrchestrator = flow.NewDefault(nodes[:n], net.links)
	}

	net.needDecomposition = true
	net.initialized = true
	return nil
}

// FluidNodeSlice adapts a concrete []*node.Fluid slice to []node.Node for
// InitializeNodes.
func FluidNodeSlice(nodes []*node.Fluid) []node.Node {
	out := make([]node.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

// InitializeFluidNodes is a convenience wrapper over InitializeNodes for an
// all-fluid-node network.
func (net *Network) InitializeFluidNodes(nodes []*node.Fluid) error {
	return net.InitializeNodes(FluidNodeSlice(nodes))
}

// NetworkSize returns N, the number of participating (non-ground) nodes.
func (net *Network) NetworkSize() int { return net.n }

func (net *Network) IslandCount() int   { return net.islandCount }
func (net *Network) IslandMaxSize() int { return net.islandMaxSize }

// Potential returns the current potential at node i (0 <= i < N).
func (net *Network) Potential(i int) (float64, error) {
	if i < 0 || i >= net.n {
		return 0, gerr.NewOutOfBoundsError(net.config.Name, fmt.Sprintf("node index %d out of bounds", i))
	}
	return net.p[i], nil
}

// Restart recomputes derived link state after a checkpoint load and forces
// a matrix rebuild on the following step.
func (net *Network) Restart() error {
	if !net.initialized {
		return gerr.NewInitializationError(net.config.Name, "cannot restart before initialization")
	}
	for _, l := range net.links {
		if r, ok := l.(link.Restartable); ok {
			r.Restart()
		}
	}
	net.needDecomposition = true
	return nil
}

// Step advances the network one major frame.
func (net *Network) Step(dt float64) error {
	if !net.initialized {
		return gerr.NewInitializationError(net.config.Name, "network has not been initialized")
	}
	net.checkStepInputs()
	if net.runMode == Pause {
		return nil
	}

	start := time.Now()
	net.MajorStepCount++

	for _, l := range net.links {
		l.ProcessInputs()
	}
	for i := 0; i < net.n; i++ {
		net.nodes[i].ResetFlows()
	}

	converged, err := net.iterateMinorSteps(dt)
	if err != nil {
		net.StepLog.record(net.MinorStepCount, "MATH_FAIL", net.DecompositionCount, net.p)
		return err
	}

	if converged {
		if net.flowOrchestrator != nil {
			if err := net.flowOrchestrator.Update(dt); err != nil {
				return err
			}
		}
		for i := len(net.links) - 1; i >= 0; i-- {
			net.links[i].ProcessOutputs()
		}
		copy(net.pMajor, net.p)
	} else {
		copy(net.p, net.pMajor)
		net.overridePotential()
		net.outputPotentialVector()
		net.ConvergenceFailCount++
		net.sink.Emit(eventsink.Warning, net.config.Name,
			fmt.Sprintf("failed to converge within %d minor steps", net.config.MinorStepLimit))
	}

	net.StepTime = time.Since(start)
	return nil
}

// checkStepInputs detects mode transitions (emitting an informational event
// and forcing a rebuild) and silently downgrades an invalid GPU mode.
func (net *Network) checkStepInputs() {
	if net.lastSolverMode != net.solverMode {
		net.lastSolverMode = net.solverMode
		net.sink.Emit(eventsink.Info, net.config.Name, "solver mode changed to "+net.solverMode.String())
		net.needDecomposition = true
	}
	if net.lastIslandMode != net.islandMode {
		net.lastIslandMode = net.islandMode
		net.sink.Emit(eventsink.Info, net.config.Name, "island mode changed to "+net.islandMode.String())
		net.needDecomposition = true
	}
	if net.lastRunMode != net.runMode {
		net.lastRunMode = net.runMode
		net.sink.Emit(eventsink.Info, net.config.Name, "run mode changed to "+net.runMode.String())
	}

	if net.gpuMode != NoGPU {
		if !net.config.GpuEnabled {
			net.gpuMode = NoGPU
			net.sink.Emit(eventsink.Warning, net.config.Name, "gpu mode downgraded to NoGPU because this network isn't gpu-enabled")
		} else if net.config.GpuSizeThreshold > net.n {
			net.gpuMode = NoGPU
			net.sink.Emit(eventsink.Warning, net.config.Name, "gpu mode downgraded to NoGPU because the network is smaller than the gpu threshold")
		}
		if net.config.GpuSizeThreshold < 2 {
			net.config.GpuSizeThreshold = 2
			net.sink.Emit(eventsink.Warning, net.config.Name, "gpu size threshold reset to the minimum operating value of 2")
		}
	}
}

// iterateMinorSteps runs the minor-step loop described in spec §4.1.1 and
// returns whether the system converged within the configured step limit.
func (net *Network) iterateMinorSteps(dt float64) (bool, error) {
	convergedStep := 0
	lastResult := link.Confirm
	decompositionCount := 0

	for k := 1; k <= net.config.MinorStepLimit; k++ {
		net.MinorStepCount = k
		if k > net.MaxMinorStepCount {
			net.MaxMinorStepCount = k
		}
		if lastResult != link.Delay {
			for _, l := range net.links {
				if k == 1 {
					if err := l.Step(dt); err != nil {
						return false, err
					}
				} else if nl, ok := l.(link.NonLinear); ok {
					if err := nl.MinorStep(dt, k); err != nil {
						return false, err
					}
				}
			}
			if net.config.WorstCaseTiming || net.anyLinkNeedsAdmittanceUpdate() {
				net.needDecomposition = true
			}

			net.buildSourceVector()

			if net.needDecomposition {
				net.buildAdmittanceMatrix()
				decompositionCount++
				net.DecompositionCount = decompositionCount
				if decompositionCount > net.MaxDecompositionCount {
					net.MaxDecompositionCount = decompositionCount
				}
				if decompositionCount > net.config.DecompositionLimit {
					return false, gerr.NewNumericalError(net.config.Name,
						fmt.Sprintf("exceeded decomposition limit of %d within one major step", net.config.DecompositionLimit))
				}
				if err := net.decomposeSystem(); err != nil {
					return false, err
				}
				net.needDecomposition = false
			}

			if net.solverMode == Normal {
				if err := net.perturbNetworkCapacitances(); err != nil {
					return false, err
				}
			}
			if err := net.solve(); err != nil {
				return false, err
			}
			if net.solverMode == Normal {
				net.computeNetworkCapacitances(dt)
			}
		}

		net.overridePotential()
		net.outputPotentialVector()

		if net.config.MinorStepLimit <= 1 || net.solverMode != Normal {
			return true, nil
		}

		converged := net.checkSystemConvergence()
		if lastResult == link.Delay || converged {
			convergedStep++
		} else {
			convergedStep = 0
		}

		result := net.confirmSolutionAcceptance(convergedStep, k)
		net.StepLog.record(k, result.String(), decompositionCount, net.p)

		switch result {
		case link.Reject:
			net.resetLinksToMinorStep(convergedStep, k)
			copy(net.p, net.pMinor)
			net.overridePotential()
			net.outputPotentialVector()
			convergedStep = 0
			lastResult = link.Reject
		default: // Confirm or Delay
			copy(net.pMinor, net.p)
			if result == link.Confirm && convergedStep > 0 {
				return true, nil
			}
			lastResult = result
		}
	}
	return false, nil
}

// buildSourceVector assembles b from each link's per-port source
// contribution, skipping ports mapped to ground or out of range.
func (net *Network) buildSourceVector() {
	n := net.n
	for i := range net.b {
		net.b[i] = 0
	}
	for _, l := range net.links {
		src := l.Source()
		for port := 0; port < l.NumPorts(); port++ {
			nodeIdx := l.PortNode(port)
			if nodeIdx >= 0 && nodeIdx < n {
				net.b[nodeIdx] += src[port]
			}
		}
	}
}

// anyLinkNeedsAdmittanceUpdate polls every link and returns true if any one
// of them reports a changed admittance contribution since the last
// assembly, sparing buildAdmittanceMatrix/decomposeSystem when none did.
func (net *Network) anyLinkNeedsAdmittanceUpdate() bool {
	for _, l := range net.links {
		if l.NeedAdmittanceUpdate() {
			return true
		}
	}
	return false
}

// buildAdmittanceMatrix assembles A from each link's compressed admittance
// contribution, conditions it, and rebuilds the island partition if enabled.
func (net *Network) buildAdmittanceMatrix() {
	n := net.n
	for i := range net.A {
		net.A[i] = 0
	}
	for _, l := range net.links {
		for _, e := range l.Admittance() {
			rowNode := l.PortNode(e.Row)
			colNode := l.PortNode(e.Col)
			if rowNode < 0 || rowNode >= n || colNode < 0 || colNode >= n {
				continue
			}
			net.A[rowNode*n+colNode] += e.Value
		}
	}
	net.conditionAdmittanceMatrix()
	if net.islandMode != IslandOff {
		net.buildIslands()
	}
}

// conditionAdmittanceMatrix adds a negligible diagonal nudge to any row
// whose sum is near zero, preventing a singular matrix from an isolated
// non-capacitive node (spec §4.1.2).
func (net *Network) conditionAdmittanceMatrix() {
	n := net.n
	for row := 0; row < n; row++ {
		base := row * n
		rowSum := 0.0
		for col := 0; col < n; col++ {
			rowSum += net.A[base+col]
		}
		if math.Abs(rowSum) < consts.DblEpsilon {
			diag := base + row
			floor := net.A[diag]
			if floor < consts.DblEpsilon {
				floor = consts.DblEpsilon
			}
			net.A[diag] += floor * consts.ConditioningFactor
		}
	}
}

// buildIslands partitions node indices into islands such that every
// off-diagonal non-zero of A connects only nodes in the same island (spec
// §4.1.3), by a single upper-triangle sweep with minimum-island merging.
func (net *Network) buildIslands() {
	n := net.n
	for i := range net.islandNumbers {
		net.islandNumbers[i] = i
	}

	for row := 0; row < n-1; row++ {
		for col := row + 1; col < n; col++ {
			if net.A[row*n+col] == 0.0 {
				continue
			}
			minNum := net.islandNumbers[col]
			if net.islandNumbers[row] < minNum {
				minNum = net.islandNumbers[row]
			}
			for row2 := row + 1; row2 < col; row2++ {
				if net.A[row2*n+col] != 0.0 && net.islandNumbers[row2] < minNum {
					minNum = net.islandNumbers[row2]
				}
			}
			for row2 := row + 1; row2 < col; row2++ {
				if net.A[row2*n+col] != 0.0 {
					net.mergeIslands(net.islandNumbers[row2], minNum)
				}
			}
			net.mergeIslands(net.islandNumbers[row], minNum)
			net.mergeIslands(net.islandNumbers[col], minNum)
		}
	}

	for i := range net.islandVectors {
		net.islandVectors[i] = net.islandVectors[i][:0]
	}
	for i := 0; i < n; i++ {
		isl := net.islandNumbers[i]
		net.islandVectors[isl] = append(net.islandVectors[isl], i)
	}
	for i := 0; i < n; i++ {
		net.nodes[i].SetIslandVector(net.islandVectors[net.islandNumbers[i]])
	}

	net.islandMaxSize = 0
	net.islandCount = 0
	for _, v := range net.islandVectors {
		if len(v) > 0 {
			net.islandCount++
			if len(v) > net.islandMaxSize {
				net.islandMaxSize = len(v)
			}
		}
	}
}

func (net *Network) mergeIslands(from, to int) {
	if from == to {
		return
	}
	for i := range net.islandNumbers {
		if net.islandNumbers[i] == from {
			net.islandNumbers[i] = to
		}
	}
}

// decomposeSystem factors the current admittance matrix for reuse across the
// capacitance probing solves and the nominal solve that follow it. Island
// decomposition is only attempted on the CPU backend: combining per-island
// decomposition with a GPU backend would require caching a factorization
// object per island per backend, which no SPEC_FULL component exercises, so
// that combination silently falls back to whole-matrix decomposition, the
// same downgrade idiom checkStepInputs already applies to GPU mode.
func (net *Network) decomposeSystem() error {
	if net.islandMode == IslandSolve && net.gpuMode == NoGPU {
		return net.decomposeIslands()
	}
	return net.decomposeWhole()
}

func (net *Network) decomposeWhole() error {
	n := net.n
	switch net.gpuMode {
	case GpuDense:
		return net.gpuDense.Decompose(net.A, n)
	case GpuSparse:
		return nil // the sparse backend factors at solve time; nothing to cache.
	default:
		copy(net.decomposedA, net.A)
		return net.cpu.Decompose(net.decomposedA, n)
	}
}

func (net *Network) decomposeIslands() error {
	n := net.n
	for k := range net.islandFactors {
		delete(net.islandFactors, k)
	}
	for isl, vec := range net.islandVectors {
		size := len(vec)
		if size <= 1 {
			continue
		}
		sub := make([]float64, size*size)
		for i, ni := range vec {
			for j, nj := range vec {
				sub[i*size+j] = net.A[ni*n+nj]
			}
		}
		if err := net.cpu.Decompose(sub, size); err != nil {
			return fmt.Errorf("network %q island %d: %w", net.config.Name, isl, err)
		}
		net.islandFactors[isl] = &islandFactor{size: size, ldu: sub}
	}
	return nil
}

// solve tries the SOR pre-pass (if active and its incomplete
// positive-definiteness heuristic passes), falling back to the cached
// decomposition otherwise. Used for the nominal per-minor-step solve only:
// perturbNetworkCapacitances calls solveDecomposed directly for its probing
// solves, matching the original's distinct solveCholesky path, so probes
// never use the SOR pre-pass.
func (net *Network) solve() error {
	if net.config.SORActive && net.sor.IsPositiveDefinite(net.A, net.n) {
		copy(net.p, net.pMinor)
		iters := net.sor.Solve(net.p, net.A, net.b, net.n,
			net.config.SORWeight, net.config.SORMaxIter, net.config.SORTolerance)
		net.SorLastIteration = iters
		if iters > 0 {
			net.cleanPotentialVector(net.p, net.n)
			return nil
		}
		net.SorFailCount++
	}
	return net.solveDecomposed(net.b, net.p)
}

// solveDecomposed solves A·x = b against the cached decomposition, honoring
// island mode the same way decomposeSystem did.
func (net *Network) solveDecomposed(b, p []float64) error {
	if net.islandMode == IslandSolve && net.gpuMode == NoGPU {
		return net.solveIslands(b, p)
	}
	n := net.n
	start := time.Now()
	var err error
	switch net.gpuMode {
	case GpuDense:
		err = net.gpuDense.Solve(b, p, n)
	case GpuSparse:
		net.sparse.Reset()
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if v := net.A[i*n+j]; v != 0 {
					net.sparse.AddElement(i, j, v)
				}
			}
			net.sparse.AddRHS(i, b[i])
		}
		err = net.sparse.Solve(p)
	default:
		err = net.cpu.Solve(net.decomposedA, b, p, n)
	}
	net.SolveTime += time.Since(start)
	if err != nil {
		return err
	}
	net.cleanPotentialVector(p, n)
	return nil
}

func (net *Network) solveIslands(b, p []float64) error {
	n := net.n
	start := time.Now()
	for isl, vec := range net.islandVectors {
		size := len(vec)
		if size == 0 {
			continue
		}
		if size == 1 {
			ni := vec[0]
			diag := net.A[ni*n+ni]
			if diag == 0 {
				net.SolveTime += time.Since(start)
				return gerr.NewNumericalError(net.config.Name, fmt.Sprintf("island %d: singular single-node island", isl))
			}
			p[ni] = b[ni] / diag
			continue
		}
		fac, ok := net.islandFactors[isl]
		if !ok {
			net.SolveTime += time.Since(start)
			return gerr.NewNumericalError(net.config.Name, fmt.Sprintf("island %d: no decomposition cached", isl))
		}
		subB := make([]float64, size)
		subP := make([]float64, size)
		for i, ni := range vec {
			subB[i] = b[ni]
		}
		if err := net.cpu.Solve(fac.ldu, subB, subP, size); err != nil {
			net.SolveTime += time.Since(start)
			return fmt.Errorf("network %q island %d: %w", net.config.Name, isl, err)
		}
		for i, ni := range vec {
			p[ni] = subP[i]
		}
	}
	net.SolveTime += time.Since(start)
	net.cleanPotentialVector(p, n)
	return nil
}

func (net *Network) cleanPotentialVector(p []float64, n int) {
	for i := 0; i < n; i++ {
		if math.Abs(p[i]) < consts.DblEpsilon {
			p[i] = 0
		}
	}
}

// perturbNetworkCapacitances is the first half of network-capacitance
// probing (spec §4.1.5): for each node requesting its capacitance, perturb
// b, solve against the cached decomposition, and record the perturbed
// potential; nodes not requesting have their capacitance cleared.
func (net *Network) perturbNetworkCapacitances() error {
	n := net.n
	for i := 0; i < n; i++ {
		q := net.nodes[i].NetworkCapacitanceRequest()
		if q <= consts.DblEpsilon {
			net.nodes[i].SetNetworkCapacitance(0)
			continue
		}
		saved := net.b[i]
		net.b[i] += q
		err := net.solveDecomposed(net.b, net.p)
		net.b[i] = saved
		if err != nil {
			return err
		}
		net.nodes[i].SetNetworkCapacitance(net.p[i])
		row := i * n
		copy(net.netCapDeltaPotential[row:row+n], net.p)
	}
	return nil
}

// computeNetworkCapacitances is the second half (spec §4.1.5): after the
// nominal solve, derive each requesting node's capacitance from the
// difference between its perturbed and final potential.
func (net *Network) computeNetworkCapacitances(dt float64) {
	n := net.n
	for i := 0; i < n; i++ {
		q := net.nodes[i].NetworkCapacitanceRequest()
		if q <= consts.DblEpsilon {
			continue
		}
		deltaPotential := math.Abs(net.nodes[i].NetworkCapacitance() - net.p[i])
		if deltaPotential > consts.DblEpsilon {
			net.nodes[i].SetNetworkCapacitance(dt * q / deltaPotential)
		} else {
			net.nodes[i].SetNetworkCapacitance(0)
		}
		row := i * n
		for j := 0; j < n; j++ {
			net.netCapDeltaPotential[row+j] -= net.p[j]
		}
		net.nodes[i].SetNetworkCapacitanceRequest(0)
	}
}

// overridePotential applies SLAVE or NORMAL-mode link overrides onto p
// (spec §4.1.1 step 6).
func (net *Network) overridePotential() {
	switch net.solverMode {
	case Slave:
		copy(net.p, net.slaveP)
		copy(net.pMinor, net.slaveP)
	case Normal:
		for _, l := range net.links {
			for port := 0; port < l.NumPorts(); port++ {
				if !l.OverrideFlag(port) {
					continue
				}
				nodeIdx := l.PortNode(port)
				if nodeIdx >= 0 && nodeIdx < net.n {
					net.p[nodeIdx] = l.PortPotential(port)
				}
			}
		}
	}
}

// outputPotentialVector copies p out to nodes and links (spec §4.1.1 step
// 7). DUMMY mode lets links compute their own potential, so nothing is
// output in that mode.
func (net *Network) outputPotentialVector() {
	if net.solverMode == Dummy {
		return
	}
	n := net.n
	for i := 0; i < n; i++ {
		net.nodes[i].SetPotential(net.p[i])
	}
	net.nodes[n].SetPotential(0)

	for _, l := range net.links {
		for port := 0; port < l.NumPorts(); port++ {
			nodeIdx := l.PortNode(port)
			if nodeIdx >= 0 && nodeIdx < n {
				l.SetPortPotential(port, net.p[nodeIdx])
			} else {
				l.SetPortPotential(port, 0)
			}
		}
	}
}

// checkSystemConvergence returns whether every node's potential has settled
// within ConvergenceTolerance of its previous minor step's value.
func (net *Network) checkSystemConvergence() bool {
	for i := 0; i < net.n; i++ {
		if math.Abs(net.p[i]-net.pMinor[i]) > net.config.ConvergenceTolerance {
			return false
		}
	}
	return true
}

// confirmSolutionAcceptance polls every non-linear link for its assessment
// of the current solution and aggregates per spec §4.1.6.
func (net *Network) confirmSolutionAcceptance(convergedStep, minorStep int) link.Vote {
	result := link.Confirm
	for _, l := range net.links {
		nl, ok := l.(link.NonLinear)
		if !ok {
			continue
		}
		linkResult := nl.ConfirmSolutionAcceptable(convergedStep, minorStep)
		if convergedStep == 0 && linkResult == link.Delay {
			linkResult = link.Confirm
		}
		if linkResult == link.Reject {
			result = link.Reject
		} else if linkResult == link.Delay && result != link.Reject {
			result = link.Delay
		}
	}
	return result
}

// resetLinksToMinorStep tells every non-linear link to restore its internal
// state after the network rejected the current minor step's solution.
func (net *Network) resetLinksToMinorStep(convergedStep, minorStep int) {
	for _, l := range net.links {
		nl, ok := l.(link.NonLinear)
		if !ok {
			continue
		}
		if !nl.ResetLastMinorStep(convergedStep, minorStep) {
			net.LinkResetStepFailCount++
			net.sink.Emit(eventsink.Warning, net.config.Name, l.Name()+" failed to reset to last minor step.")
		}
	}
}
