// Package fluid implements the composite fluid (PolyFluid) constituent
// model: an ordered mixture of single-species constituents carrying
// derived thermophysical properties, plus an optional trace-compound
// sub-mixture. Grounded on original_source/aspects/fluid/fluid/PolyFluid.hh.
package fluid

import (
	"fmt"
	"math"

	"github.com/nasa/gunns-sub009/internal/consts"
	"github.com/nasa/gunns-sub009/pkg/fluidprops"
	"github.com/nasa/gunns-sub009/pkg/gerr"
)

// Constituent is a single-species member of a composite Fluid.
type Constituent struct {
	Type         fluidprops.FluidType
	MassFraction float64
	MoleFraction float64
	Mass         float64 // kg
	T            float64 // K, mirrors the composite temperature
	P            float64 // kPa, this constituent's partial pressure
	props        fluidprops.Properties
}

// Config is the construction-time configuration of a composite Fluid: the
// ordered list of constituent types and an optional trace-compound
// configuration, matching PolyFluidConfigData.
type Config struct {
	Types          []fluidprops.FluidType
	TraceCompounds *TraceCompoundsConfig
}

// Input is the construction-time state of a composite Fluid, matching
// PolyFluidInputData.
type Input struct {
	Temperature    float64 // K
	Pressure       float64 // kPa
	FlowRate       float64 // kg/s
	Mass           float64 // kg
	MassFractions  []float64
	TraceCompounds *TraceCompoundsInput
}

// Fluid is the composite fluid: ordered constituents plus composite state
// (T, P, ṁ, mass, moles) and derived properties (molecular weight, density,
// viscosity, specific heat, specific enthalpy, adiabatic index, thermal
// conductivity, Prandtl number).
type Fluid struct {
	config       *Config
	constituents []Constituent

	temperature float64
	pressure    float64
	flowRate    float64
	mass        float64
	moles       float64

	mw                  float64
	density             float64
	viscosity           float64
	specificHeat        float64
	specificEnthalpy    float64
	adiabaticIndex      float64
	thermalConductivity float64
	prandtl             float64

	phase fluidprops.Phase

	trace *TraceCompounds

	initialized bool
}

// New constructs and initializes a composite Fluid from config and input,
// performing the full sequence in spec.md §4.3: validate, verify phase
// consistency, normalize mass fractions, convert to mole fractions, derive.
func New(config *Config, input *Input) (*Fluid, error) {
	if config == nil {
		return nil, gerr.NewInitializationError("fluid", "config is nil")
	}
	if len(config.Types) == 0 {
		return nil, gerr.NewInitializationError("fluid", "constituent count must be > 0")
	}
	if input == nil || input.MassFractions == nil {
		return nil, gerr.NewInitializationError("fluid", "mass fractions are nil")
	}
	if len(config.Types) != len(input.MassFractions) {
		return nil, gerr.NewInitializationError("fluid", fmt.Sprintf("constituent count mismatch (config %d, input %d)",
			len(config.Types), len(input.MassFractions)))
	}

	f := &Fluid{
		config:       config,
		constituents: make([]Constituent, len(config.Types)),
	}

	for i, t := range config.Types {
		f.constituents[i].Type = t
		f.constituents[i].MassFraction = input.MassFractions[i]
	}

	if err := f.verifyPhaseConsistency(); err != nil {
		return nil, err
	}

	if err := f.normalizeMassFractions(); err != nil {
		return nil, err
	}

	f.temperature = input.Temperature
	f.pressure = input.Pressure
	f.flowRate = input.FlowRate
	f.mass = input.Mass

	trace, err := NewTraceCompounds(config.TraceCompounds, input.TraceCompounds)
	if err != nil {
		return nil, err
	}
	f.trace = trace

	f.massFractionsToMoleFractions()
	f.apportionMassToConstituents()
	if err := f.derive(); err != nil {
		return nil, err
	}
	f.initialized = true
	return f, nil
}

// verifyPhaseConsistency finds the phase of the first non-zero-fraction
// constituent and rejects the composite if any other non-zero-fraction
// constituent is in a different phase, per spec.md §4.3 step 2.
func (f *Fluid) verifyPhaseConsistency() error {
	found := false
	for i := range f.constituents {
		if f.constituents[i].MassFraction == 0 {
			continue
		}
		phase, err := fluidprops.PhaseOf(f.constituents[i].Type)
		if err != nil {
			return err
		}
		if !found {
			f.phase = phase
			found = true
			continue
		}
		if phase != f.phase {
			return gerr.NewInitializationError("fluid", fmt.Sprintf("mixed phases in composite (constituent %d is %v, composite is %v)",
				i, phase, f.phase))
		}
	}
	return nil
}

// normalizeMassFractions sums the configured mass fractions, rejects the
// composite if the sum strays more than FractionTolerance from 1.0, and
// otherwise divides every fraction by the sum, per spec.md §4.3 step 3.
func (f *Fluid) normalizeMassFractions() error {
	sum := 0.0
	for i := range f.constituents {
		sum += f.constituents[i].MassFraction
	}
	if math.Abs(sum-1.0) > consts.FractionTolerance {
		return gerr.NewInitializationError("fluid", fmt.Sprintf("mass fractions sum to %g, more than %g from 1.0", sum, consts.FractionTolerance))
	}
	for i := range f.constituents {
		f.constituents[i].MassFraction /= sum
	}
	return nil
}

// massFractionsToMoleFractions converts mass fractions to mole fractions via
// constituent molecular weights and computes composite MW and moles, per
// spec.md §4.3 step 4.
func (f *Fluid) massFractionsToMoleFractions() {
	sumWOverMW := 0.0
	for i := range f.constituents {
		mw, _ := fluidprops.MolecularWeight(f.constituents[i].Type)
		sumWOverMW += f.constituents[i].MassFraction / mw
	}
	if sumWOverMW <= 0 {
		f.mw = 0
	} else {
		f.mw = 1.0 / sumWOverMW
	}
	for i := range f.constituents {
		mw, _ := fluidprops.MolecularWeight(f.constituents[i].Type)
		if sumWOverMW > 0 {
			f.constituents[i].MoleFraction = (f.constituents[i].MassFraction / mw) / sumWOverMW
		}
	}
	if f.mw > 0 {
		f.moles = f.mass / f.mw
	}
}

func (f *Fluid) apportionMassToConstituents() {
	for i := range f.constituents {
		f.constituents[i].Mass = f.mass * f.constituents[i].MassFraction
	}
	if f.trace != nil {
		f.trace.updateMassFractions(f.mw)
	}
}

// derive recomputes every composite property from the current T, P, and
// constituent fractions, per spec.md §3's composite-property definitions.
func (f *Fluid) derive() error {
	if f.mw > 0 {
		f.moles = f.mass / f.mw
	}

	isGas := f.phase == fluidprops.Gas
	density := 0.0
	viscosity := 0.0
	cp := 0.0
	gamma := 0.0
	k := 0.0
	pr := 0.0

	var singleLiquidDensity float64
	for i := range f.constituents {
		c := &f.constituents[i]
		c.T = f.temperature
		c.P = c.MoleFraction * f.pressure
		props, err := fluidprops.Lookup(c.Type, c.T, c.P)
		if err != nil {
			return err
		}
		c.props = props

		if isGas {
			density += props.Density
		} else if c.MassFraction > 0 {
			singleLiquidDensity = props.Density
		}
		viscosity += c.MoleFraction * props.Viscosity
		cp += c.MassFraction * props.SpecificHeat
		gamma += c.MoleFraction * props.AdiabaticIndex
		k += c.MoleFraction * props.ThermalConductivity
	}

	if isGas {
		f.density = density
	} else {
		f.density = singleLiquidDensity
	}
	f.viscosity = viscosity
	f.specificHeat = cp
	f.adiabaticIndex = gamma
	f.thermalConductivity = k
	f.specificEnthalpy = f.temperature * cp

	if k > 0 && cp > 0 {
		pr = viscosity * cp / k
	}
	f.prandtl = pr

	if f.trace != nil {
		f.trace.updateMassFractions(f.mw)
	}
	return nil
}

// --- Accessors ---

func (f *Fluid) Initialized() bool              { return f.initialized }
func (f *Fluid) Temperature() float64           { return f.temperature }
func (f *Fluid) Pressure() float64              { return f.pressure }
func (f *Fluid) FlowRate() float64              { return f.flowRate }
func (f *Fluid) Mass() float64                  { return f.mass }
func (f *Fluid) Moles() float64                 { return f.moles }
func (f *Fluid) MolecularWeight() float64       { return f.mw }
func (f *Fluid) Density() float64               { return f.density }
func (f *Fluid) Viscosity() float64             { return f.viscosity }
func (f *Fluid) SpecificHeat() float64          { return f.specificHeat }
func (f *Fluid) SpecificEnthalpy() float64      { return f.specificEnthalpy }
func (f *Fluid) AdiabaticIndex() float64        { return f.adiabaticIndex }
func (f *Fluid) ThermalConductivity() float64   { return f.thermalConductivity }
func (f *Fluid) Prandtl() float64               { return f.prandtl }
func (f *Fluid) Phase() fluidprops.Phase        { return f.phase }
func (f *Fluid) NConstituents() int             { return len(f.constituents) }
func (f *Fluid) TraceCompounds() *TraceCompounds { return f.trace }

// Constituent returns a copy of the constituent at index i.
func (f *Fluid) Constituent(i int) (Constituent, error) {
	if i < 0 || i >= len(f.constituents) {
		return Constituent{}, gerr.NewOutOfBoundsError("fluid", fmt.Sprintf("constituent index %d out of bounds", i))
	}
	return f.constituents[i], nil
}

// Find returns the index of the constituent of the given type, or an error if
// the composite has no constituent of that type.
func (f *Fluid) Find(t fluidprops.FluidType) (int, error) {
	for i := range f.constituents {
		if f.constituents[i].Type == t {
			return i, nil
		}
	}
	return 0, gerr.NewOutOfBoundsError("fluid", fmt.Sprintf("no constituent of type %v", t))
}

func (f *Fluid) MassFraction(t fluidprops.FluidType) (float64, error) {
	i, err := f.Find(t)
	if err != nil {
		return 0, err
	}
	return f.constituents[i].MassFraction, nil
}

func (f *Fluid) MoleFraction(t fluidprops.FluidType) (float64, error) {
	i, err := f.Find(t)
	if err != nil {
		return 0, err
	}
	return f.constituents[i].MoleFraction, nil
}

func (f *Fluid) PartialPressure(t fluidprops.FluidType) (float64, error) {
	x, err := f.MoleFraction(t)
	if err != nil {
		return 0, err
	}
	return x * f.pressure, nil
}

// --- Mutators ---

// SetFlowRate sets the composite flow rate; constituent-level flow rates are
// derived on demand via ConstituentFlowRate.
func (f *Fluid) SetFlowRate(mdot float64) {
	f.flowRate = mdot
}

// ConstituentFlowRate returns constituent i's share of the composite flow
// rate, apportioned by mass fraction.
func (f *Fluid) ConstituentFlowRate(i int) (float64, error) {
	if i < 0 || i >= len(f.constituents) {
		return 0, gerr.NewOutOfBoundsError("fluid", fmt.Sprintf("constituent index %d out of bounds", i))
	}
	return f.flowRate * f.constituents[i].MassFraction, nil
}

// SetMass sets the composite mass, recomputes moles, apportions mass to
// constituents by mass fraction, and scales trace-compound masses by the
// same ratio.
func (f *Fluid) SetMass(m float64) error {
	f.mass = m
	mw := f.mw
	if mw <= 0 {
		mw = consts.MinFluidMoles
	}
	f.moles = m / mw
	f.apportionMassToConstituents()
	return f.derive()
}

// SetMole sets the composite moles, recomputes mass, and apportions to
// constituents by mole fraction.
func (f *Fluid) SetMole(n float64) error {
	f.moles = n
	f.mass = n * f.mw
	for i := range f.constituents {
		f.constituents[i].Mass = f.mass * f.constituents[i].MoleFraction * (mustMW(f.constituents[i].Type) / f.mw)
	}
	return f.derive()
}

func mustMW(t fluidprops.FluidType) float64 {
	mw, _ := fluidprops.MolecularWeight(t)
	return mw
}

// SetMassAndMassFractions validates and normalizes w, sets composite mass,
// recomputes mole fractions and MW, apportions to constituents, and
// re-derives properties.
func (f *Fluid) SetMassAndMassFractions(m float64, w []float64) error {
	if len(w) != len(f.constituents) {
		return gerr.NewInitializationError("fluid", fmt.Sprintf("mass fraction count mismatch (have %d constituents, got %d fractions)",
			len(f.constituents), len(w)))
	}
	sum := 0.0
	for _, wi := range w {
		sum += wi
	}
	if math.Abs(sum-1.0) > consts.FractionTolerance {
		return gerr.NewInitializationError("fluid", fmt.Sprintf("mass fractions sum to %g, more than %g from 1.0", sum, consts.FractionTolerance))
	}
	for i := range f.constituents {
		f.constituents[i].MassFraction = w[i] / sum
	}
	f.mass = m
	f.massFractionsToMoleFractions()
	f.apportionMassToConstituents()
	return f.derive()
}

// SetMoleAndMoleFractions is the symmetric version of
// SetMassAndMassFractions starting from mole fractions.
func (f *Fluid) SetMoleAndMoleFractions(n float64, x []float64) error {
	if len(x) != len(f.constituents) {
		return gerr.NewInitializationError("fluid", fmt.Sprintf("mole fraction count mismatch (have %d constituents, got %d fractions)",
			len(f.constituents), len(x)))
	}
	sum := 0.0
	for _, xi := range x {
		sum += xi
	}
	if math.Abs(sum-1.0) > consts.FractionTolerance {
		return gerr.NewInitializationError("fluid", fmt.Sprintf("mole fractions sum to %g, more than %g from 1.0", sum, consts.FractionTolerance))
	}
	sumXMW := 0.0
	for i := range f.constituents {
		f.constituents[i].MoleFraction = x[i] / sum
		sumXMW += f.constituents[i].MoleFraction * mustMW(f.constituents[i].Type)
	}
	f.mw = sumXMW
	f.moles = n
	f.mass = n * f.mw
	for i := range f.constituents {
		f.constituents[i].Mass = f.mass * f.constituents[i].MoleFraction * mustMW(f.constituents[i].Type) / f.mw
		if f.mass > 0 {
			f.constituents[i].MassFraction = f.constituents[i].Mass / f.mass
		}
	}
	return f.derive()
}

// SetTemperature sets the composite temperature and re-derives properties.
func (f *Fluid) SetTemperature(T float64) error {
	f.temperature = T
	return f.derive()
}

// SetPressure sets the composite pressure and re-derives properties.
func (f *Fluid) SetPressure(P float64) error {
	f.pressure = P
	return f.derive()
}

// SetConstituentMass sets a single constituent's mass without updating
// composite totals; the caller must call UpdateMass afterwards.
func (f *Fluid) SetConstituentMass(i int, m float64) error {
	if i < 0 || i >= len(f.constituents) {
		return gerr.NewOutOfBoundsError("fluid", fmt.Sprintf("constituent index %d out of bounds", i))
	}
	f.constituents[i].Mass = m
	return nil
}

// UpdateMass recomputes composite mass, moles, fractions, and properties
// from the current constituent masses.
func (f *Fluid) UpdateMass() error {
	total := 0.0
	for i := range f.constituents {
		total += f.constituents[i].Mass
	}
	f.mass = total
	if total > 0 {
		for i := range f.constituents {
			f.constituents[i].MassFraction = f.constituents[i].Mass / total
		}
	}
	f.massFractionsToMoleFractions()
	return f.derive()
}

// ResetState zeros T, P, ṁ, mass, moles, and all constituent fractions and
// masses, and resets trace compounds.
func (f *Fluid) ResetState() {
	f.temperature = 0
	f.pressure = 0
	f.flowRate = 0
	f.mass = 0
	f.moles = 0
	for i := range f.constituents {
		f.constituents[i].Mass = 0
		f.constituents[i].MassFraction = 0
		f.constituents[i].MoleFraction = 0
	}
	f.density = 0
	f.viscosity = 0
	f.specificHeat = 0
	f.specificEnthalpy = 0
	f.adiabaticIndex = 0
	f.thermalConductivity = 0
	f.prandtl = 0
	f.trace.Reset()
}

// SetState deep-copies scalar state, per-constituent fractions, properties,
// and trace compounds from another compatible composite.
func (f *Fluid) SetState(other *Fluid) error {
	if other == nil {
		return gerr.NewInitializationError("fluid", "SetState source is nil")
	}
	if len(f.constituents) != len(other.constituents) {
		return gerr.NewInitializationError("fluid", fmt.Sprintf("SetState incompatible constituent counts (%d vs %d)",
			len(f.constituents), len(other.constituents)))
	}
	f.temperature = other.temperature
	f.pressure = other.pressure
	f.flowRate = other.flowRate
	f.mass = other.mass
	f.moles = other.moles
	copy(f.constituents, other.constituents)
	f.density = other.density
	f.viscosity = other.viscosity
	f.specificHeat = other.specificHeat
	f.specificEnthalpy = other.specificEnthalpy
	f.adiabaticIndex = other.adiabaticIndex
	f.thermalConductivity = other.thermalConductivity
	f.prandtl = other.prandtl
	f.phase = other.phase
	f.mw = other.mw
	if f.trace != nil && other.trace != nil {
		return f.trace.CopyFrom(other.trace)
	}
	return nil
}

// AddState mixes another composite's flow into this one, conserving ṁ·h so
// that the combined temperature satisfies
// (ṁ1+ṁ2)*h12 = ṁ1*h1 + ṁ2*h2, and mass-weighting extensive quantities /
// mole-weighting intensive ones for everything else. overrideFlowRate, when
// non-nil, replaces the natural ṁ1+ṁ2 sum (e.g. to model a fixed outflow).
func (f *Fluid) AddState(other *Fluid, overrideFlowRate *float64) error {
	if other == nil {
		return gerr.NewInitializationError("fluid", "AddState source is nil")
	}
	m1 := f.flowRate
	m2 := other.flowRate
	combined := m1 + m2
	if math.Abs(combined) <= consts.DblEpsilon {
		return gerr.NewNumericalError("fluid", "AddState combined flow rate is zero")
	}

	h1 := f.specificEnthalpy
	h2 := other.specificEnthalpy
	hCombined := (m1*h1 + m2*h2) / combined

	p1 := f.pressure
	p2 := other.pressure
	pCombined := (m1*p1 + m2*p2) / combined
	if f.mw > 0 && other.mw > 0 {
		n1 := m1 / f.mw
		n2 := m2 / other.mw
		if nSum := n1 + n2; math.Abs(nSum) > consts.DblEpsilon {
			pCombined = (n1*p1 + n2*p2) / nSum
		}
	}

	// Combined mass fractions: mass-weighted average of the flow-rate-scaled
	// constituent contributions.
	byType := make(map[fluidprops.FluidType]float64, len(f.constituents))
	for i := range f.constituents {
		byType[f.constituents[i].Type] += m1 * f.constituents[i].MassFraction
	}
	for i := range other.constituents {
		byType[other.constituents[i].Type] += m2 * other.constituents[i].MassFraction
	}
	w := make([]float64, len(f.constituents))
	for i := range f.constituents {
		w[i] = byType[f.constituents[i].Type] / combined
	}

	f.pressure = pCombined
	if overrideFlowRate != nil {
		f.flowRate = *overrideFlowRate
	} else {
		f.flowRate = combined
	}

	for i := range f.constituents {
		f.constituents[i].MassFraction = w[i]
	}
	f.massFractionsToMoleFractions()
	f.trace.mixFlows(m1, other.trace, m2, combined)

	T, err := f.ComputeTemperature(hCombined)
	if err != nil {
		return err
	}
	f.temperature = T
	return f.derive()
}

// Edit sets composite T and total P together, distributing P to constituents
// by mole fraction, and re-derives.
func (f *Fluid) Edit(T, P float64) error {
	f.temperature = T
	f.pressure = P
	return f.derive()
}

// EditPartials sets composite T and per-constituent partial pressures; total
// P becomes the sum of the partials.
func (f *Fluid) EditPartials(T float64, partials []float64) error {
	if len(partials) != len(f.constituents) {
		return gerr.NewInitializationError("fluid", fmt.Sprintf("partial pressure count mismatch (have %d constituents, got %d)",
			len(f.constituents), len(partials)))
	}
	f.temperature = T
	total := 0.0
	for _, p := range partials {
		total += p
	}
	f.pressure = total
	if total > 0 {
		for i := range f.constituents {
			f.constituents[i].MoleFraction = partials[i] / total
		}
	}
	return f.derive()
}

// --- Consistency queries (do not mutate state) ---

// ComputeSpecificEnthalpy returns T*cp(T, P) for the current composition
// without mutating state. If p is nil, the composite's current pressure is
// used.
func (f *Fluid) ComputeSpecificEnthalpy(T float64, p *float64) (float64, error) {
	P := f.pressure
	if p != nil {
		P = *p
	}
	cp := 0.0
	for i := range f.constituents {
		props, err := fluidprops.Lookup(f.constituents[i].Type, T, f.constituents[i].MoleFraction*P)
		if err != nil {
			return 0, err
		}
		cp += f.constituents[i].MassFraction * props.SpecificHeat
	}
	return T * cp, nil
}

// ComputeTemperature inverts the specific-enthalpy relation to return T for
// the current composition and pressure. Specific heat is treated as
// (weakly) temperature dependent, so a few fixed-point iterations are used
// to converge; for the constant-cp registry this converges in one pass.
func (f *Fluid) ComputeTemperature(h float64) (float64, error) {
	T := f.temperature
	if T <= 0 {
		T = 280.0
	}
	for iter := 0; iter < 20; iter++ {
		hAtT, err := f.ComputeSpecificEnthalpy(T, nil)
		if err != nil {
			return 0, err
		}
		cp := 0.0
		for i := range f.constituents {
			props, err := fluidprops.Lookup(f.constituents[i].Type, T, f.constituents[i].MoleFraction*f.pressure)
			if err != nil {
				return 0, err
			}
			cp += f.constituents[i].MassFraction * props.SpecificHeat
		}
		if cp <= 0 {
			break
		}
		next := T + (h-hAtT)/cp
		if math.Abs(next-T) < 1.0e-10 {
			T = next
			break
		}
		T = next
	}
	return T, nil
}

// ComputeDensity returns the composite density at (T, P) for the current
// composition, without mutating state.
func (f *Fluid) ComputeDensity(T, P float64) (float64, error) {
	if f.phase != fluidprops.Gas {
		// Single-phase liquid: density is that of the dominant constituent.
		for i := range f.constituents {
			if f.constituents[i].MassFraction > 0 {
				props, err := fluidprops.Lookup(f.constituents[i].Type, T, P)
				if err != nil {
					return 0, err
				}
				return props.Density, nil
			}
		}
		return 0, nil
	}
	density := 0.0
	for i := range f.constituents {
		props, err := fluidprops.Lookup(f.constituents[i].Type, T, f.constituents[i].MoleFraction*P)
		if err != nil {
			return 0, err
		}
		density += props.Density
	}
	return density, nil
}

// ComputePressure is the inverse of ComputeDensity: given T and a target
// density, returns the total pressure for the current gas composition. Only
// defined for gas composites; liquids are treated as incompressible and
// return the composite's current pressure.
func (f *Fluid) ComputePressure(T, density float64) (float64, error) {
	if f.phase != fluidprops.Gas {
		return f.pressure, nil
	}
	// For an ideal-gas mixture, density is linear in P at fixed T and
	// composition, so compute the density at a unit pressure and scale.
	unitDensity, err := f.ComputeDensity(T, 1.0)
	if err != nil {
		return 0, err
	}
	if unitDensity <= 0 {
		return 0, gerr.NewNumericalError("fluid", fmt.Sprintf("cannot invert density to pressure at T=%g", T))
	}
	return density / unitDensity, nil
}
