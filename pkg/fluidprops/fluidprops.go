// Package fluidprops models the defined-properties libraries that spec.md
// treats as an external collaborator: lookup tables for density, viscosity,
// specific heat, thermal conductivity, and adiabatic index versus temperature
// and pressure, consumed as pure functions of (type, T, P). This is not a
// general thermophysical properties library — it carries just enough of a
// handful of common working fluids to drive the composite-fluid math and the
// two reference links named in spec.md §4.2.
package fluidprops

import "fmt"

// FluidType tags a single-species fluid constituent. Mirrors the teacher's
// use of small enums (device.SourceType, device.AnalysisMode) for closed,
// well-known sets rather than open string keys.
type FluidType int

const (
	GunnsGasO2 FluidType = iota
	GunnsGasN2
	GunnsGasCO2
	GunnsGasH2O
	GunnsGasCH4
	GunnsGasNH3
	GunnsLiquidH2O
	GunnsLiquidNH3
)

func (t FluidType) String() string {
	switch t {
	case GunnsGasO2:
		return "GUNNS_GAS_O2"
	case GunnsGasN2:
		return "GUNNS_GAS_N2"
	case GunnsGasCO2:
		return "GUNNS_GAS_CO2"
	case GunnsGasH2O:
		return "GUNNS_GAS_H2O"
	case GunnsGasCH4:
		return "GUNNS_GAS_CH4"
	case GunnsGasNH3:
		return "GUNNS_GAS_NH3"
	case GunnsLiquidH2O:
		return "GUNNS_LIQUID_H2O"
	case GunnsLiquidNH3:
		return "GUNNS_LIQUID_NH3"
	default:
		return "GUNNS_FLUID_UNKNOWN"
	}
}

// Phase is the state of matter a constituent is in.
type Phase int

const (
	Gas Phase = iota
	Liquid
	Solid
)

// Properties is a snapshot of the derived thermophysical properties of a
// single-species fluid at some (T, P).
type Properties struct {
	Density             float64 // kg/m3
	Viscosity           float64 // Pa*s
	SpecificHeat        float64 // J/kg/K
	AdiabaticIndex       float64 // --
	ThermalConductivity float64 // W/m/K
}

// fixedProps is a species whose entries are modeled as constant over the
// working range, the way a lightweight lookup table degenerates for a
// constant-property approximation. Real GUNNS property tables are bivariate
// in T and P; this registry applies a simple ideal-gas density correction and
// otherwise holds properties constant, which is sufficient for the
// conservation-law math this module actually exercises.
type fixedProps struct {
	mw      float64 // kg/kmol
	phase   Phase
	density float64 // kg/m3 at nominal conditions, ignored for gas (computed from ideal gas law)
	visc    float64
	cp      float64
	gamma   float64
	k       float64
}

var registry = map[FluidType]fixedProps{
	GunnsGasO2:     {mw: 31.9988, phase: Gas, visc: 2.07e-5, cp: 918.0, gamma: 1.4, k: 0.0266},
	GunnsGasN2:     {mw: 28.0134, phase: Gas, visc: 1.78e-5, cp: 1040.0, gamma: 1.4, k: 0.0260},
	GunnsGasCO2:    {mw: 44.0100, phase: Gas, visc: 1.49e-5, cp: 844.0, gamma: 1.289, k: 0.0168},
	GunnsGasH2O:    {mw: 18.0153, phase: Gas, visc: 1.02e-5, cp: 1864.0, gamma: 1.33, k: 0.0248},
	GunnsGasCH4:    {mw: 16.0425, phase: Gas, visc: 1.10e-5, cp: 2220.0, gamma: 1.32, k: 0.0332},
	GunnsGasNH3:    {mw: 17.0305, phase: Gas, visc: 1.00e-5, cp: 2175.0, gamma: 1.31, k: 0.0246},
	GunnsLiquidH2O: {mw: 18.0153, phase: Liquid, density: 998.2, visc: 1.002e-3, cp: 4182.0, gamma: 1.0, k: 0.598},
	GunnsLiquidNH3: {mw: 17.0305, phase: Liquid, density: 602.0, visc: 1.5e-4, cp: 4700.0, gamma: 1.0, k: 0.493},
}

// idealGasConstant is R in kPa*m3/(kmol*K).
const idealGasConstant = 8.314462618

// MolecularWeight returns the constant molecular weight of a fluid type.
func MolecularWeight(t FluidType) (float64, error) {
	p, ok := registry[t]
	if !ok {
		return 0, fmt.Errorf("fluidprops: unknown fluid type %v", t)
	}
	return p.mw, nil
}

// PhaseOf returns the phase (gas/liquid/solid) of a fluid type.
func PhaseOf(t FluidType) (Phase, error) {
	p, ok := registry[t]
	if !ok {
		return 0, fmt.Errorf("fluidprops: unknown fluid type %v", t)
	}
	return p.phase, nil
}

// Lookup returns the derived properties of fluid type t at temperature T (K)
// and pressure p (kPa). This is the pure function the rest of the module
// consumes; it never mutates global state and is safe to call concurrently.
func Lookup(t FluidType, T, P float64) (Properties, error) {
	fp, ok := registry[t]
	if !ok {
		return Properties{}, fmt.Errorf("fluidprops: unknown fluid type %v", t)
	}

	density := fp.density
	if fp.phase == Gas {
		if T <= 0 {
			T = 1.0
		}
		// Ideal gas law: rho = P*MW / (R*T), P in kPa, MW in kg/kmol.
		density = P * fp.mw / (idealGasConstant * T)
		if density < 0 {
			density = 0
		}
	}

	return Properties{
		Density:             density,
		Viscosity:           fp.visc,
		SpecificHeat:        fp.cp,
		AdiabaticIndex:      fp.gamma,
		ThermalConductivity: fp.k,
	}, nil
}
