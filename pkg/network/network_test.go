package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa/gunns-sub009/pkg/eventsink"
	"github.com/nasa/gunns-sub009/pkg/link"
	"github.com/nasa/gunns-sub009/pkg/node"
)

// testConductor is a two-port conductance stamped between a real node (port
// 0) and ground (port 1), standing in for the teacher's resistor device in a
// network built entirely from link.Base rather than a fluid link, so the
// orchestrator's matrix assembly can be exercised independent of pkg/fluid.
type testConductor struct {
	*link.Base
	g float64
}

func newTestConductor(name string, node0 int, g float64) *testConductor {
	c := &testConductor{Base: link.NewBase(name, 2), g: g}
	c.SetPortNode(0, node0)
	c.SetPortNode(1, link.GroundNode)
	c.MarkInitialized()
	return c
}

func (c *testConductor) IsNonLinear() bool { return false }

func (c *testConductor) Step(dt float64) error {
	c.ResetAdmittance()
	c.StampAdmittance(0, 0, c.g)
	c.StampAdmittance(0, 1, -c.g)
	c.StampAdmittance(1, 0, -c.g)
	c.StampAdmittance(1, 1, c.g)
	return nil
}

// testCurrentSource is a one-port fixed-current source, used to drive a
// conductor to a known steady-state potential.
type testCurrentSource struct {
	*link.Base
	current float64
}

func newTestCurrentSource(name string, node0 int, current float64) *testCurrentSource {
	s := &testCurrentSource{Base: link.NewBase(name, 1), current: current}
	s.SetPortNode(0, node0)
	s.MarkInitialized()
	return s
}

func (s *testCurrentSource) IsNonLinear() bool          { return false }
func (s *testCurrentSource) NeedAdmittanceUpdate() bool { return false }

func (s *testCurrentSource) Step(dt float64) error {
	s.ResetAdmittance()
	s.SetSource(0, s.current)
	return nil
}

// testAlwaysDelayLink is a non-linear link that never confirms its solution,
// used to exercise the minor-step limit and non-convergence path.
type testAlwaysDelayLink struct {
	*link.Base
}

func newTestAlwaysDelayLink(name string, node0 int) *testAlwaysDelayLink {
	l := &testAlwaysDelayLink{Base: link.NewBase(name, 1)}
	l.SetPortNode(0, node0)
	l.MarkInitialized()
	return l
}

func (l *testAlwaysDelayLink) IsNonLinear() bool { return true }
func (l *testAlwaysDelayLink) Step(dt float64) error {
	l.ResetAdmittance()
	return nil
}
func (l *testAlwaysDelayLink) MinorStep(dt float64, minorStep int) error { return nil }
func (l *testAlwaysDelayLink) ConfirmSolutionAcceptable(convergedStep, minorStep int) link.Vote {
	return link.Delay
}
func (l *testAlwaysDelayLink) ResetLastMinorStep(convergedStep, minorStep int) bool { return true }

// testStaticConductor behaves exactly like testConductor but reports its
// admittance contribution as never changing, exercising the
// NeedAdmittanceUpdate gate on buildAdmittanceMatrix/decomposeSystem.
type testStaticConductor struct {
	*link.Base
	g float64
}

func newTestStaticConductor(name string, node0 int, g float64) *testStaticConductor {
	c := &testStaticConductor{Base: link.NewBase(name, 2), g: g}
	c.SetPortNode(0, node0)
	c.SetPortNode(1, link.GroundNode)
	c.MarkInitialized()
	return c
}

func (c *testStaticConductor) IsNonLinear() bool          { return false }
func (c *testStaticConductor) NeedAdmittanceUpdate() bool { return false }

func (c *testStaticConductor) Step(dt float64) error {
	c.ResetAdmittance()
	c.StampAdmittance(0, 0, c.g)
	c.StampAdmittance(0, 1, -c.g)
	c.StampAdmittance(1, 0, -c.g)
	c.StampAdmittance(1, 1, c.g)
	return nil
}

// testDelayThenConfirmLink delays for its first two minor steps and confirms
// thereafter, forcing iterateMinorSteps through several minor steps without
// ever rejecting, so the decomposition-skip path can be exercised without
// also hitting the non-convergence warning path.
type testDelayThenConfirmLink struct {
	*link.Base
	delaysLeft int
}

func newTestDelayThenConfirmLink(name string, node0, delays int) *testDelayThenConfirmLink {
	l := &testDelayThenConfirmLink{Base: link.NewBase(name, 1), delaysLeft: delays}
	l.SetPortNode(0, node0)
	l.MarkInitialized()
	return l
}

func (l *testDelayThenConfirmLink) IsNonLinear() bool          { return true }
func (l *testDelayThenConfirmLink) NeedAdmittanceUpdate() bool { return false }
func (l *testDelayThenConfirmLink) Step(dt float64) error {
	l.ResetAdmittance()
	return nil
}
func (l *testDelayThenConfirmLink) MinorStep(dt float64, minorStep int) error { return nil }
func (l *testDelayThenConfirmLink) ConfirmSolutionAcceptable(convergedStep, minorStep int) link.Vote {
	if l.delaysLeft > 0 {
		l.delaysLeft--
		return link.Delay
	}
	return link.Confirm
}
func (l *testDelayThenConfirmLink) ResetLastMinorStep(convergedStep, minorStep int) bool { return true }

func newTwoNodeNetwork(t *testing.T, cfg Config, extraLinks ...link.Link) (*Network, *node.Basic) {
	t.Helper()
	real := node.NewBasic()
	require.NoError(t, real.Initialize("node-0", 0))
	ground := node.NewBasic()
	require.NoError(t, ground.Initialize("ground", 0))

	links := append([]link.Link{}, extraLinks...)
	net, err := New(cfg, links)
	require.NoError(t, err)
	require.NoError(t, net.InitializeNodes([]node.Node{real, ground}))
	return net, real
}

func baseTestConfig() Config {
	return Config{
		Name:                      "test-net",
		ConvergenceTolerance:      1e-9,
		MinLinearizationPotential: 1e-6,
		MinorStepLimit:            1,
		DecompositionLimit:        10,
	}
}

func TestStepConvergesToSteadyStatePotentialOnALinearNetwork(t *testing.T) {
	conductor := newTestConductor("conductor", 0, 0.5)
	source := newTestCurrentSource("source", 0, 2.0)

	net, _ := newTwoNodeNetwork(t, baseTestConfig(), conductor, source)

	require.NoError(t, net.Step(1.0))
	p, err := net.Potential(0)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, p, 1e-9)
	assert.Equal(t, 1, net.MajorStepCount)
	assert.Equal(t, 0, net.ConvergenceFailCount)
}

func TestStepRejectsUseBeforeInitialization(t *testing.T) {
	net, err := New(baseTestConfig(), nil)
	require.NoError(t, err)
	assert.Error(t, net.Step(1.0))
}

func TestNewRejectsDuplicateLinkNames(t *testing.T) {
	a := newTestCurrentSource("dup", 0, 1.0)
	b := newTestCurrentSource("dup", 0, 1.0)
	_, err := New(baseTestConfig(), []link.Link{a, b})
	assert.Error(t, err)
}

func TestNewRejectsUninitializedLink(t *testing.T) {
	l := &testCurrentSource{Base: link.NewBase("uninit", 1), current: 1.0}
	l.SetPortNode(0, 0)
	_, err := New(baseTestConfig(), []link.Link{l})
	assert.Error(t, err)
}

func TestStepRevertsPotentialAndReportsWarningWhenMinorStepLimitExhausted(t *testing.T) {
	conductor := newTestConductor("conductor", 0, 0.5)
	source := newTestCurrentSource("source", 0, 2.0)
	stuck := newTestAlwaysDelayLink("stuck", 0)

	cfg := baseTestConfig()
	cfg.MinorStepLimit = 5
	net, _ := newTwoNodeNetwork(t, cfg, conductor, source, stuck)

	recorder := &eventsink.Recording{}
	net.SetEventSink(recorder)

	require.NoError(t, net.Step(1.0))
	assert.Equal(t, 1, net.ConvergenceFailCount)

	p, err := net.Potential(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	foundWarning := false
	for _, e := range recorder.Events {
		if e.Level == eventsink.Warning {
			foundWarning = true
		}
	}
	assert.True(t, foundWarning)
}

func TestCheckStepInputsDowngradesGpuModeWhenNotEnabled(t *testing.T) {
	conductor := newTestConductor("conductor", 0, 0.5)
	source := newTestCurrentSource("source", 0, 2.0)
	net, _ := newTwoNodeNetwork(t, baseTestConfig(), conductor, source)

	net.gpuMode = GpuDense
	net.config.GpuEnabled = false

	require.NoError(t, net.Step(1.0))
	assert.Equal(t, NoGPU, net.gpuMode)
}

func TestSetSlavePotentialVectorRejectsLengthMismatch(t *testing.T) {
	conductor := newTestConductor("conductor", 0, 0.5)
	source := newTestCurrentSource("source", 0, 2.0)
	net, _ := newTwoNodeNetwork(t, baseTestConfig(), conductor, source)

	assert.Error(t, net.SetSlavePotentialVector([]float64{1, 2}))
	assert.NoError(t, net.SetSlavePotentialVector([]float64{1}))
}

func TestSlaveSolverModeOverridesPotentialFromExternalVector(t *testing.T) {
	conductor := newTestConductor("conductor", 0, 0.5)
	source := newTestCurrentSource("source", 0, 2.0)
	net, _ := newTwoNodeNetwork(t, baseTestConfig(), conductor, source)

	net.SetSolverMode(Slave)
	require.NoError(t, net.SetSlavePotentialVector([]float64{7.5}))

	require.NoError(t, net.Step(1.0))
	p, err := net.Potential(0)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, p, 1e-9)
}

func TestPotentialRejectsOutOfBoundsIndex(t *testing.T) {
	conductor := newTestConductor("conductor", 0, 0.5)
	source := newTestCurrentSource("source", 0, 2.0)
	net, _ := newTwoNodeNetwork(t, baseTestConfig(), conductor, source)

	_, err := net.Potential(5)
	assert.Error(t, err)
}

func TestConfigValidateRejectsNonPositiveTolerances(t *testing.T) {
	cfg := baseTestConfig()
	cfg.ConvergenceTolerance = 0
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestIterateMinorStepsSkipsDecompositionWhenNoLinkReportsAdmittanceChange(t *testing.T) {
	conductor := newTestStaticConductor("conductor", 0, 0.5)
	source := newTestCurrentSource("source", 0, 2.0)
	delayed := newTestDelayThenConfirmLink("delayed", 0, 2)

	cfg := baseTestConfig()
	cfg.MinorStepLimit = 5
	net, _ := newTwoNodeNetwork(t, cfg, conductor, source, delayed)

	require.NoError(t, net.Step(1.0))
	assert.Equal(t, 0, net.ConvergenceFailCount)
	// Only the first minor step's rebuild should have run: every link
	// reports no admittance change, so later minor steps reuse it.
	assert.Equal(t, 1, net.DecompositionCount)
	assert.Equal(t, 1, net.MaxDecompositionCount)
	assert.Greater(t, net.MinorStepCount, 1)
}

func TestStepRecordsMathFailStepLogEntryOnNumericalError(t *testing.T) {
	conductor := newTestConductor("conductor", 0, 0.5)
	source := newTestCurrentSource("source", 0, 2.0)

	cfg := baseTestConfig()
	cfg.MinorStepLimit = 2
	cfg.DecompositionLimit = 1
	net, _ := newTwoNodeNetwork(t, cfg, conductor, source)

	err := net.Step(1.0)
	require.Error(t, err)
	require.NotEmpty(t, net.StepLog.Entries)
	last := net.StepLog.Entries[len(net.StepLog.Entries)-1]
	assert.Equal(t, "MATH_FAIL", last.Result)
}

func TestSolveRecordsSorIterationCount(t *testing.T) {
	conductor := newTestConductor("conductor", 0, 0.5)
	source := newTestCurrentSource("source", 0, 2.0)

	cfg := baseTestConfig()
	cfg.SORActive = true
	cfg.SORWeight = 1.0
	cfg.SORMaxIter = 50
	cfg.SORTolerance = 1e-9
	net, _ := newTwoNodeNetwork(t, cfg, conductor, source)

	require.NoError(t, net.Step(1.0))
	assert.Greater(t, net.SorLastIteration, 0)
	assert.Equal(t, 0, net.SorFailCount)
}
