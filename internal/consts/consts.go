// Package consts holds the small set of numerical constants the solver and
// fluid model are specified against.
package consts

const (
	// DblEpsilon is the machine epsilon used by the orchestrator for
	// conditioning, capacitance-probe, and potential-cleaning comparisons, and
	// as a near-zero threshold in the fluid and link code.
	DblEpsilon = 2.2204460492503131e-16

	// UnderflowFloor is the LDLU decomposition's underflow guard: products of
	// two operands both smaller in magnitude than this are skipped, and
	// accumulated terms smaller than this are snapped to zero.
	UnderflowFloor = 1.0e-100

	// ConditioningFactor scales the diagonal nudge added to a non-capacitive,
	// isolated node's row during conditioning.
	ConditioningFactor = 1.0e-15

	// FractionTolerance bounds how far a composite fluid's mass or mole
	// fractions may sum from 1.0 before construction/mutation is rejected.
	FractionTolerance = 1.0e-10

	// KelvinOffset converts Celsius to Kelvin. No code in this module applies
	// it; fluid property lookups take temperatures already in Kelvin.
	KelvinOffset = 273.15

	// MinFluidMoles is the floor used whenever a molecular weight would
	// otherwise be computed from a division by zero moles.
	MinFluidMoles = 1.0e-18
)
