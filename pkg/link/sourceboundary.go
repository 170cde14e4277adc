package link

import (
	"math"

	"github.com/nasa/gunns-sub009/internal/consts"
	"github.com/nasa/gunns-sub009/pkg/fluid"
	"github.com/nasa/gunns-sub009/pkg/fluidprops"
	"github.com/nasa/gunns-sub009/pkg/gerr"
	"github.com/nasa/gunns-sub009/pkg/node"
)

// hundredEpsilonLimit is the minimum |flow rate| a source boundary will
// actually transport, matching GunnsFluidSourceBoundary's m100EpsilonLimit:
// below this, PolyFluid math faults on near-zero mass/molar flow rates.
const hundredEpsilonLimit = 100.0 * consts.DblEpsilon

// SourceBoundaryConfig is the construction-time configuration of a source
// boundary link.
type SourceBoundaryConfig struct {
	FlipFlowSign       bool
	TraceCompoundsOnly bool
	// GasOnly, when true, rejects initialization against a node whose
	// contained fluid phase is not gas.
	GasOnly bool
}

// SourceBoundaryInput is the construction-time input of a source boundary
// link: the demanded flow rate and the prescribed internal fluid (including
// any trace-compound rates, specified relative to FlowDemand).
type SourceBoundaryInput struct {
	FlowDemand         float64
	InternalFluid      *fluid.Fluid
	TraceCompoundRates []float64
}

// SourceBoundary is a one-port link that forces a prescribed fluid mixture
// into or out of its attached node, or (in trace-only mode) pushes trace
// compounds directly into the node's trace-inflow accumulator without
// touching bulk fluid. Grounded on
// original_source/aspects/fluid/source/GunnsFluidSourceBoundary.cpp.
type SourceBoundary struct {
	*Base

	flipFlowSign       bool
	traceCompoundsOnly bool
	gasOnly            bool

	flowDemand         float64
	internalFluid      *fluid.Fluid
	traceCompoundRates []float64

	flowRate float64
	flux     float64

	attachedNode node.Node
	attachedFluidNode *node.Fluid
}

// NewSourceBoundary constructs and initializes a one-port source boundary
// link attached to n (port 0).
func NewSourceBoundary(name string, n *node.Fluid, config *SourceBoundaryConfig, input *SourceBoundaryInput) (*SourceBoundary, error) {
	if config == nil {
		config = &SourceBoundaryConfig{}
	}
	if input == nil || input.InternalFluid == nil {
		return nil, gerr.NewInitializationError(name, "internal fluid not specified")
	}
	if n == nil {
		return nil, gerr.NewInitializationError(name, "attached node is nil")
	}

	if config.TraceCompoundsOnly {
		if n.Content() == nil || n.Content().TraceCompounds() == nil {
			return nil, gerr.NewInitializationError(name, "network has no trace compounds for trace-compounds-only mode")
		}
		if input.TraceCompoundRates == nil {
			return nil, gerr.NewInitializationError(name, "trace compound rates not provided for trace-compounds-only mode")
		}
	}

	if config.GasOnly && n.Content() != nil && n.Content().Phase() != fluidprops.Gas {
		return nil, gerr.NewInitializationError(name, "gas-only source cannot attach to a non-gas node")
	}

	l := &SourceBoundary{
		Base:               NewBase(name, 1),
		flipFlowSign:       config.FlipFlowSign,
		traceCompoundsOnly: config.TraceCompoundsOnly,
		gasOnly:            config.GasOnly,
		flowDemand:         input.FlowDemand,
		internalFluid:      input.InternalFluid,
		traceCompoundRates: input.TraceCompoundRates,
		attachedNode:       n,
		attachedFluidNode:  n,
	}
	l.SetPortNode(0, 0)
	l.MarkInitialized()
	return l, nil
}

func (l *SourceBoundary) IsNonLinear() bool { return false }

// NeedAdmittanceUpdate always returns false: a source boundary only ever
// stamps its source vector, never its admittance contribution.
func (l *SourceBoundary) NeedAdmittanceUpdate() bool { return false }

// SetFlowDemand sets the link's demanded mass flow rate.
func (l *SourceBoundary) SetFlowDemand(mdot float64) { l.flowDemand = mdot }

// FlowDemand returns the link's demanded mass flow rate.
func (l *SourceBoundary) FlowDemand() float64 { return l.flowDemand }

// Step computes the flux delivered into the source vector for this minor
// step: flip sign and convert mass flow rate to molar flow rate using the
// internal fluid's molecular weight (zero in trace-only mode, since that mode
// never touches bulk fluid). No blockage derating is applied: the demanded
// rate passes through unscaled.
func (l *SourceBoundary) Step(dt float64) error {
	l.flowRate = l.flowDemand
	if l.flipFlowSign {
		l.flowRate = -l.flowRate
	}

	mw := l.internalFluid.MolecularWeight()
	if l.traceCompoundsOnly || mw < consts.DblEpsilon {
		l.flux = 0.0
	} else {
		l.flux = l.flowRate / mw
		l.setInternalTraceComposition()
	}

	l.ResetAdmittance()
	l.SetSource(0, l.flux)
	return nil
}

// setInternalTraceComposition applies the configured per-compound trace
// rates to the internal fluid's trace-compound mole fractions before
// TransportFlows delivers it into the attached node, so trace compounds ride
// the bulk transport the same way GunnsFluidSourceBoundary.cpp's Step
// applies tc->setMass/updateMoleFractions ahead of transportFluid().
func (l *SourceBoundary) setInternalTraceComposition() {
	if l.traceCompoundRates == nil {
		return
	}
	tc := l.internalFluid.TraceCompounds()
	if tc == nil {
		return
	}
	for i, rate := range l.traceCompoundRates {
		if i >= tc.NCompounds() {
			break
		}
		_ = tc.SetMoleFraction(i, rate)
	}
}

func (l *SourceBoundary) ProcessOutputs() {}

// TransportFlows delivers the link's flow into the attached node, following
// the minimum-mass-flow-rate transport guard and the trace-only bypass
// described in spec.md §4.2.
func (l *SourceBoundary) TransportFlows(dt float64) error {
	if l.traceCompoundsOnly {
		if math.Abs(l.flowRate) > consts.DblEpsilon && l.traceCompoundRates != nil {
			tc := l.attachedFluidNode.Inflow().TraceCompounds()
			for i, rate := range l.traceCompoundRates {
				if err := tc.AddInflow(i, l.flowRate*rate); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if math.Abs(l.flowRate) > hundredEpsilonLimit {
		return l.attachedFluidNode.CollectInflow(l.flowRate, l.internalFluid)
	}
	return nil
}

func (l *SourceBoundary) Restart() {}
