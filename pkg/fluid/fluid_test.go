package fluid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa/gunns-sub009/pkg/fluidprops"
)

var airConfig = &Config{Types: []fluidprops.FluidType{fluidprops.GunnsGasO2, fluidprops.GunnsGasN2}}

func TestNewRejectsNilConfigOrEmptyTypes(t *testing.T) {
	_, err := New(nil, &Input{})
	assert.Error(t, err)

	_, err = New(&Config{}, &Input{MassFractions: []float64{}})
	assert.Error(t, err)
}

func TestNewRejectsConstituentCountMismatch(t *testing.T) {
	_, err := New(airConfig, &Input{MassFractions: []float64{1.0}})
	assert.Error(t, err)
}

func TestNewRejectsMixedPhaseComposite(t *testing.T) {
	cfg := &Config{Types: []fluidprops.FluidType{fluidprops.GunnsGasO2, fluidprops.GunnsLiquidH2O}}
	_, err := New(cfg, &Input{
		Temperature: 294.0, Pressure: 101.325, Mass: 1.0,
		MassFractions: []float64{0.5, 0.5},
	})
	assert.Error(t, err)
}

func TestNewRejectsFractionsFarFromOne(t *testing.T) {
	_, err := New(airConfig, &Input{
		Temperature: 294.0, Pressure: 101.325, Mass: 1.0,
		MassFractions: []float64{0.5, 0.8},
	})
	assert.Error(t, err)
}

func TestNewNormalizesFractionsWithinTolerance(t *testing.T) {
	f, err := New(airConfig, &Input{
		Temperature: 294.0, Pressure: 101.325, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77000000001},
	})
	require.NoError(t, err)
	w0, err := f.MassFraction(fluidprops.GunnsGasO2)
	require.NoError(t, err)
	w1, err := f.MassFraction(fluidprops.GunnsGasN2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w0+w1, 1e-12)
}

func TestMoleFractionsSumToOne(t *testing.T) {
	f, err := New(airConfig, &Input{
		Temperature: 294.0, Pressure: 101.325, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77},
	})
	require.NoError(t, err)
	x0, err := f.MoleFraction(fluidprops.GunnsGasO2)
	require.NoError(t, err)
	x1, err := f.MoleFraction(fluidprops.GunnsGasN2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, x0+x1, 1e-9)
}

func TestPartialPressuresSumToTotal(t *testing.T) {
	f, err := New(airConfig, &Input{
		Temperature: 294.0, Pressure: 101.325, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77},
	})
	require.NoError(t, err)
	p0, err := f.PartialPressure(fluidprops.GunnsGasO2)
	require.NoError(t, err)
	p1, err := f.PartialPressure(fluidprops.GunnsGasN2)
	require.NoError(t, err)
	assert.InDelta(t, f.Pressure(), p0+p1, 1e-9)
}

func TestFindReturnsErrorForAbsentConstituent(t *testing.T) {
	f, err := New(airConfig, &Input{
		Temperature: 294.0, Pressure: 101.325, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77},
	})
	require.NoError(t, err)
	_, err = f.Find(fluidprops.GunnsGasCO2)
	assert.Error(t, err)
}

func TestSetMassRecomputesMolesAndConstituentMasses(t *testing.T) {
	f, err := New(airConfig, &Input{
		Temperature: 294.0, Pressure: 101.325, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77},
	})
	require.NoError(t, err)

	require.NoError(t, f.SetMass(2.0))
	assert.InDelta(t, 2.0, f.Mass(), 1e-12)
	assert.InDelta(t, 2.0/f.MolecularWeight(), f.Moles(), 1e-9)

	c, err := f.Constituent(0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0*0.23, c.Mass, 1e-9)
}

func TestAddStateConservesMassFlowWeightedEnthalpy(t *testing.T) {
	f1, err := New(airConfig, &Input{
		Temperature: 280.0, Pressure: 101.325, FlowRate: 1.0, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77},
	})
	require.NoError(t, err)
	f2, err := New(airConfig, &Input{
		Temperature: 320.0, Pressure: 101.325, FlowRate: 1.0, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77},
	})
	require.NoError(t, err)

	h1 := f1.SpecificEnthalpy()
	h2 := f2.SpecificEnthalpy()
	wantH := (1.0*h1 + 1.0*h2) / 2.0

	require.NoError(t, f1.AddState(f2, nil))
	assert.InDelta(t, 2.0, f1.FlowRate(), 1e-12)
	assert.InDelta(t, wantH, f1.SpecificEnthalpy(), 1e-6)
}

func TestAddStateRejectsZeroCombinedFlowRate(t *testing.T) {
	f1, err := New(airConfig, &Input{
		Temperature: 280.0, Pressure: 101.325, FlowRate: 1.0, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77},
	})
	require.NoError(t, err)
	f2, err := New(airConfig, &Input{
		Temperature: 320.0, Pressure: 101.325, FlowRate: -1.0, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77},
	})
	require.NoError(t, err)

	err = f1.AddState(f2, nil)
	assert.Error(t, err)
}

func TestAddStateHonorsOverrideFlowRate(t *testing.T) {
	f1, err := New(airConfig, &Input{
		Temperature: 280.0, Pressure: 101.325, FlowRate: 1.0, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77},
	})
	require.NoError(t, err)
	f2, err := New(airConfig, &Input{
		Temperature: 320.0, Pressure: 101.325, FlowRate: 1.0, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77},
	})
	require.NoError(t, err)

	override := 0.5
	require.NoError(t, f1.AddState(f2, &override))
	assert.InDelta(t, 0.5, f1.FlowRate(), 1e-12)
}

func TestAddStateMixesTraceCompoundMoleFractionsByFlow(t *testing.T) {
	tcCfg, err := NewTraceCompoundsConfig([]Compound{
		{Name: "ethanol", MolecularWeight: 46.07},
		{Name: "ammonia", MolecularWeight: 17.03},
	})
	require.NoError(t, err)

	cfg := &Config{Types: airConfig.Types, TraceCompounds: tcCfg}
	f1, err := New(cfg, &Input{
		Temperature: 280.0, Pressure: 101.325, FlowRate: 1.0, Mass: 1.0,
		MassFractions:  []float64{0.23, 0.77},
		TraceCompounds: &TraceCompoundsInput{MoleFractions: []float64{1e-6, 0.0}},
	})
	require.NoError(t, err)
	f2, err := New(cfg, &Input{
		Temperature: 320.0, Pressure: 101.325, FlowRate: 1.0, Mass: 1.0,
		MassFractions:  []float64{0.23, 0.77},
		TraceCompounds: &TraceCompoundsInput{MoleFractions: []float64{0.0, 2e-6}},
	})
	require.NoError(t, err)

	require.NoError(t, f1.AddState(f2, nil))

	x0, err := f1.TraceCompounds().MoleFraction(0)
	require.NoError(t, err)
	x1, err := f1.TraceCompounds().MoleFraction(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5e-6, x0, 1e-12)
	assert.InDelta(t, 1.0e-6, x1, 1e-12)
}

func TestComputeTemperatureInvertsComputeSpecificEnthalpy(t *testing.T) {
	f, err := New(airConfig, &Input{
		Temperature: 300.0, Pressure: 101.325, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77},
	})
	require.NoError(t, err)

	h, err := f.ComputeSpecificEnthalpy(350.0, nil)
	require.NoError(t, err)
	T, err := f.ComputeTemperature(h)
	require.NoError(t, err)
	assert.InDelta(t, 350.0, T, 1e-6)
}

func TestResetStateZeroesCompositeAndConstituentState(t *testing.T) {
	f, err := New(airConfig, &Input{
		Temperature: 294.0, Pressure: 101.325, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77},
	})
	require.NoError(t, err)

	f.ResetState()
	assert.Equal(t, 0.0, f.Temperature())
	assert.Equal(t, 0.0, f.Mass())
	c, err := f.Constituent(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.MassFraction)
}

func TestSetStateRejectsIncompatibleConstituentCounts(t *testing.T) {
	f1, err := New(airConfig, &Input{
		Temperature: 294.0, Pressure: 101.325, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77},
	})
	require.NoError(t, err)

	cfg2 := &Config{Types: []fluidprops.FluidType{fluidprops.GunnsGasO2}}
	f2, err := New(cfg2, &Input{Temperature: 294.0, Pressure: 101.325, Mass: 1.0, MassFractions: []float64{1.0}})
	require.NoError(t, err)

	assert.Error(t, f1.SetState(f2))
}

func TestGasCompositeDensityIsSumOfConstituentPartials(t *testing.T) {
	f, err := New(airConfig, &Input{
		Temperature: 294.0, Pressure: 101.325, Mass: 1.0,
		MassFractions: []float64{0.23, 0.77},
	})
	require.NoError(t, err)

	density, err := f.ComputeDensity(294.0, 101.325)
	require.NoError(t, err)
	assert.InDelta(t, f.Density(), density, 1e-9)
	assert.Greater(t, density, 0.0)
}
