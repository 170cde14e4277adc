package fluid

import (
	"fmt"
	"math"

	"github.com/nasa/gunns-sub009/pkg/fluidprops"
	"github.com/nasa/gunns-sub009/pkg/gerr"
)

// Compound identifies a single chemical species tracked at trace
// concentration alongside a bulk composite fluid.
type Compound struct {
	Name            string
	MolecularWeight float64
	// BulkType, when non-nil, is the bulk FluidType this trace compound also
	// corresponds to (e.g. trace CO2 riding alongside bulk CO2). It is
	// optional: many trace compounds (contaminants, trace gases) have no
	// bulk-fluid counterpart.
	BulkType *fluidprops.FluidType
}

// TraceCompoundsConfig declares the ordered set of compounds tracked by a
// trace-compound sub-mixture. Duplicate compound types or names are rejected
// at configuration, per spec.md §3.
type TraceCompoundsConfig struct {
	Compounds []Compound
}

func NewTraceCompoundsConfig(compounds []Compound) (*TraceCompoundsConfig, error) {
	seenName := make(map[string]bool, len(compounds))
	seenType := make(map[fluidprops.FluidType]bool, len(compounds))
	for _, c := range compounds {
		if seenName[c.Name] {
			return nil, gerr.NewInitializationError("trace compounds", fmt.Sprintf("duplicate compound name %q", c.Name))
		}
		seenName[c.Name] = true
		if c.BulkType != nil {
			if seenType[*c.BulkType] {
				return nil, gerr.NewInitializationError("trace compounds", fmt.Sprintf("duplicate bulk fluid type %v", *c.BulkType))
			}
			seenType[*c.BulkType] = true
		}
	}
	cfg := &TraceCompoundsConfig{Compounds: append([]Compound(nil), compounds...)}
	return cfg, nil
}

// TraceCompoundsInput supplies the initial mole fractions for a trace
// sub-mixture. A nil or short MoleFractions defaults missing entries to zero,
// per spec.md §3.
type TraceCompoundsInput struct {
	MoleFractions []float64
}

// TraceCompounds is the optional sub-mixture of a composite Fluid.
type TraceCompounds struct {
	config        *TraceCompoundsConfig
	moleFractions []float64
	massFractions []float64
	// inflow is the per-compound trace-only inflow accumulator a node
	// exposes to source links operating in trace-only mode (spec.md §4.2).
	inflow []float64
}

// NewTraceCompounds constructs a trace sub-mixture from config and input.
func NewTraceCompounds(config *TraceCompoundsConfig, input *TraceCompoundsInput) (*TraceCompounds, error) {
	if config == nil {
		return nil, nil
	}
	n := len(config.Compounds)
	tc := &TraceCompounds{
		config:        config,
		moleFractions: make([]float64, n),
		massFractions: make([]float64, n),
		inflow:        make([]float64, n),
	}
	if input != nil {
		for i := 0; i < n && i < len(input.MoleFractions); i++ {
			tc.moleFractions[i] = input.MoleFractions[i]
		}
	}
	return tc, nil
}

// Config returns the trace sub-mixture's configuration.
func (tc *TraceCompounds) Config() *TraceCompoundsConfig { return tc.config }

// NCompounds returns the number of tracked compounds.
func (tc *TraceCompounds) NCompounds() int {
	if tc == nil {
		return 0
	}
	return len(tc.config.Compounds)
}

// MoleFraction returns the mole fraction of the compound at index i.
func (tc *TraceCompounds) MoleFraction(i int) (float64, error) {
	if tc == nil || i < 0 || i >= len(tc.moleFractions) {
		return 0, gerr.NewOutOfBoundsError("trace compounds", fmt.Sprintf("index %d out of bounds", i))
	}
	return tc.moleFractions[i], nil
}

// SetMoleFraction sets the mole fraction of the compound at index i.
func (tc *TraceCompounds) SetMoleFraction(i int, x float64) error {
	if tc == nil || i < 0 || i >= len(tc.moleFractions) {
		return gerr.NewOutOfBoundsError("trace compounds", fmt.Sprintf("index %d out of bounds", i))
	}
	tc.moleFractions[i] = x
	return nil
}

// updateMassFractions recomputes mass fractions from mole fractions given the
// bulk composite's molecular weight, called whenever the host Fluid rederives
// its state.
func (tc *TraceCompounds) updateMassFractions(bulkMW float64) {
	if tc == nil || bulkMW <= 0 {
		return
	}
	for i, c := range tc.config.Compounds {
		tc.massFractions[i] = tc.moleFractions[i] * c.MolecularWeight / bulkMW
	}
}

// AddInflow accumulates a trace-only inflow rate contribution for compound i,
// i.e. ṁ_bulk * rate_i, per the source-boundary trace-only contract in
// spec.md §4.2.
func (tc *TraceCompounds) AddInflow(i int, rate float64) error {
	if tc == nil || i < 0 || i >= len(tc.inflow) {
		return gerr.NewOutOfBoundsError("trace compounds", fmt.Sprintf("index %d out of bounds", i))
	}
	tc.inflow[i] += rate
	return nil
}

// Inflow returns the accumulated trace-only inflow rate for compound i.
func (tc *TraceCompounds) Inflow(i int) (float64, error) {
	if tc == nil || i < 0 || i >= len(tc.inflow) {
		return 0, gerr.NewOutOfBoundsError("trace compounds", fmt.Sprintf("index %d out of bounds", i))
	}
	return tc.inflow[i], nil
}

// ResetInflow clears the trace-only inflow accumulators, called by resetFlows.
func (tc *TraceCompounds) ResetInflow() {
	if tc == nil {
		return
	}
	for i := range tc.inflow {
		tc.inflow[i] = 0.0
	}
}

// Reset zeros all trace state, used by Fluid.ResetState.
func (tc *TraceCompounds) Reset() {
	if tc == nil {
		return
	}
	for i := range tc.moleFractions {
		tc.moleFractions[i] = 0.0
		tc.massFractions[i] = 0.0
		tc.inflow[i] = 0.0
	}
}

// mixFlows combines tc's trace composition with other's, flow-weighted the
// same way Fluid.AddState combines bulk mass fractions: the receiver's mole
// fractions become (m1*x1_i + m2*x2_i)/combined for each compound. A nil
// receiver or nil other (no trace compounds configured on either side) is a
// silent no-op, matching the nil-receiver-safe style of this type's other
// methods.
func (tc *TraceCompounds) mixFlows(m1 float64, other *TraceCompounds, m2, combined float64) {
	if tc == nil || other == nil || math.Abs(combined) <= 0 {
		return
	}
	if len(tc.moleFractions) != len(other.moleFractions) {
		return
	}
	for i := range tc.moleFractions {
		tc.moleFractions[i] = (m1*tc.moleFractions[i] + m2*other.moleFractions[i]) / combined
	}
}

// CopyFrom deep-copies state from another compatible trace sub-mixture.
func (tc *TraceCompounds) CopyFrom(other *TraceCompounds) error {
	if tc == nil || other == nil {
		return nil
	}
	if len(tc.moleFractions) != len(other.moleFractions) {
		return gerr.NewInitializationError("trace compounds", fmt.Sprintf("incompatible configs (%d vs %d compounds)",
			len(tc.moleFractions), len(other.moleFractions)))
	}
	copy(tc.moleFractions, other.moleFractions)
	copy(tc.massFractions, other.massFractions)
	return nil
}
