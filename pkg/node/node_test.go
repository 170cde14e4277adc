package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa/gunns-sub009/pkg/fluid"
	"github.com/nasa/gunns-sub009/pkg/fluidprops"
)

func TestBasicInitializeRejectsBlankName(t *testing.T) {
	n := NewBasic()
	err := n.Initialize("", 100.0)
	assert.Error(t, err)
	assert.False(t, n.Initialized())
}

func TestBasicResetFlowsPreservesPotentialClearsAccumulators(t *testing.T) {
	n := NewBasic()
	require.NoError(t, n.Initialize("node-0", 101.325))

	n.CollectInflux(2.0)
	n.CollectOutflux(1.5)
	n.ScheduleOutflux(0.5)
	n.IntegrateFlows(1.0)
	assert.InDelta(t, 0.5, n.NetFlux(), 1e-12)
	assert.InDelta(t, 1.5, n.FluxThrough(), 1e-12)

	n.ResetFlows()
	assert.Equal(t, 0.0, n.Influx())
	assert.Equal(t, 0.0, n.Outflux())
	assert.Equal(t, 0.0, n.ScheduledOutflux())
	assert.InDelta(t, 101.325, n.Potential(), 1e-12)
}

func TestBasicIntegrateFlowsFluxThroughIsMin(t *testing.T) {
	n := NewBasic()
	require.NoError(t, n.Initialize("node-0", 0))
	n.CollectInflux(3.0)
	n.CollectOutflux(7.0)
	n.IntegrateFlows(1.0)
	assert.InDelta(t, -4.0, n.NetFlux(), 1e-12)
	assert.InDelta(t, 3.0, n.FluxThrough(), 1e-12)
}

func TestFluidNodeResetFlowsClearsHeatFluxAndTraceInflow(t *testing.T) {
	traceCfg, err := fluid.NewTraceCompoundsConfig([]fluid.Compound{{Name: "CO", MolecularWeight: 28.0101}})
	require.NoError(t, err)
	cfg := &fluid.Config{Types: []fluidprops.FluidType{fluidprops.GunnsGasN2}, TraceCompounds: traceCfg}
	content, err := fluid.New(cfg, &fluid.Input{Temperature: 294.0, Pressure: 101.0, MassFractions: []float64{1.0}})
	require.NoError(t, err)
	inflow, err := fluid.New(cfg, &fluid.Input{Temperature: 294.0, Pressure: 101.0, MassFractions: []float64{1.0}})
	require.NoError(t, err)

	n := NewFluidNode()
	require.NoError(t, n.Initialize("tank-1", 101.0))
	require.NoError(t, n.InitializeFluid(content, inflow, 1.0, 0.0, 1.0, 0.0))

	n.CollectHeatFlux(50.0)
	assert.InDelta(t, 50.0, n.UndampedHeatFlux(), 1e-12)
	require.NoError(t, n.Inflow().TraceCompounds().AddInflow(0, 1e-9))

	n.ResetFlows()
	assert.Equal(t, 0.0, n.UndampedHeatFlux())
	traceInflow, err := n.Inflow().TraceCompounds().Inflow(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, traceInflow)
}

func TestFluidNodeCollectInflowMixesEnthalpyWeightedAndAcceptsNegativeRate(t *testing.T) {
	cfg := &fluid.Config{Types: []fluidprops.FluidType{fluidprops.GunnsGasO2, fluidprops.GunnsGasN2}}
	content, err := fluid.New(cfg, &fluid.Input{
		Temperature: 294.0, Pressure: 101.0, Mass: 1.0,
		MassFractions: []float64{0.3, 0.7},
	})
	require.NoError(t, err)
	inflow, err := fluid.New(cfg, &fluid.Input{
		Temperature: 294.0, Pressure: 101.0, Mass: 0,
		MassFractions: []float64{0.3, 0.7},
	})
	require.NoError(t, err)

	n := NewFluidNode()
	require.NoError(t, n.Initialize("tank-1", 101.0))
	require.NoError(t, n.InitializeFluid(content, inflow, 1.0, 0.0, 1.0, 0.0))

	source, err := fluid.New(cfg, &fluid.Input{
		Temperature: 350.0, Pressure: 101.0, FlowRate: 0.01, Mass: 1.0,
		MassFractions: []float64{1.0, 0.0},
	})
	require.NoError(t, err)

	require.NoError(t, n.CollectInflow(0.01, source))
	assert.InDelta(t, 0.01, n.Influx(), 1e-12)
	assert.InDelta(t, 0.01, n.Inflow().FlowRate(), 1e-12)

	// A negative (forced outflow) rate still mixes via the same accumulator,
	// per GunnsFluidSourceBoundary's documented semantics.
	require.NoError(t, n.CollectInflow(-0.002, source))
	assert.InDelta(t, 0.008, n.Influx(), 1e-9)
	assert.InDelta(t, 350.0, n.Inflow().Temperature(), 1e-6)
}
