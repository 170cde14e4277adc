package fluidprops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMolecularWeightKnownAndUnknown(t *testing.T) {
	mw, err := MolecularWeight(GunnsGasO2)
	require.NoError(t, err)
	assert.InDelta(t, 31.9988, mw, 1e-9)

	_, err = MolecularWeight(FluidType(999))
	assert.Error(t, err)
}

func TestPhaseOfGasAndLiquid(t *testing.T) {
	gasPhase, err := PhaseOf(GunnsGasN2)
	require.NoError(t, err)
	assert.Equal(t, Gas, gasPhase)

	liquidPhase, err := PhaseOf(GunnsLiquidH2O)
	require.NoError(t, err)
	assert.Equal(t, Liquid, liquidPhase)
}

func TestLookupGasDensityScalesWithPressureAndInverselyWithTemperature(t *testing.T) {
	low, err := Lookup(GunnsGasN2, 294.0, 101.325)
	require.NoError(t, err)
	high, err := Lookup(GunnsGasN2, 294.0, 202.65)
	require.NoError(t, err)
	assert.InDelta(t, low.Density*2, high.Density, 1e-9)

	cold, err := Lookup(GunnsGasN2, 150.0, 101.325)
	require.NoError(t, err)
	assert.Greater(t, cold.Density, low.Density)
}

func TestLookupLiquidDensityIsConstant(t *testing.T) {
	a, err := Lookup(GunnsLiquidH2O, 280.0, 101.325)
	require.NoError(t, err)
	b, err := Lookup(GunnsLiquidH2O, 350.0, 500.0)
	require.NoError(t, err)
	assert.Equal(t, a.Density, b.Density)
	assert.InDelta(t, 998.2, a.Density, 1e-9)
}

func TestFluidTypeStringCoversUnknown(t *testing.T) {
	assert.Equal(t, "GUNNS_GAS_O2", GunnsGasO2.String())
	assert.Equal(t, "GUNNS_FLUID_UNKNOWN", FluidType(999).String())
}
