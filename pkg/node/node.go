// Package node implements the network orchestrator's basic and fluid node
// types: per-node potential, flow accumulators, network-capacitance probe
// scratch, and (for fluid nodes) a contained composite fluid. Grounded on
// original_source/core/test/UtGunnsBasicNode.cpp.
package node

import (
	"math"

	"github.com/nasa/gunns-sub009/pkg/fluid"
	"github.com/nasa/gunns-sub009/pkg/gerr"
)

// Node is the interface the network orchestrator and links address: a
// stable name, a scalar potential, and per-major-frame flow bookkeeping.
type Node interface {
	Name() string
	Initialized() bool
	Potential() float64
	SetPotential(p float64)
	CollectInflux(rate float64)
	CollectOutflux(rate float64)
	ScheduleOutflux(rate float64)
	Influx() float64
	Outflux() float64
	ScheduledOutflux() float64
	NetFlux() float64
	FluxThrough() float64
	ResetFlows()
	IntegrateFlows(dt float64)
	NetworkCapacitance() float64
	SetNetworkCapacitance(c float64)
	NetworkCapacitanceRequest() float64
	SetNetworkCapacitanceRequest(q float64)
	IslandVector() []int
	SetIslandVector(v []int)
	NetCapDeltaPotential() []float64
	SetNetCapDeltaPotential(v []float64)
}

// Basic is a node carrying only potential and flow accumulators, with no
// contained fluid — GUNNS's GunnsBasicNode.
type Basic struct {
	name        string
	initialized bool

	potential float64

	influxRate       float64
	outfluxRate      float64
	scheduledOutflux float64
	netFlux          float64
	fluxThrough      float64

	networkCapacitance        float64
	networkCapacitanceRequest float64

	islandVector         []int
	netCapDeltaPotential []float64
}

// NewBasic constructs an uninitialized basic node. Call Initialize before
// attaching it to a network.
func NewBasic() *Basic {
	return &Basic{}
}

// Initialize sets the node's name and initial potential. A blank name is an
// error; the potential is always taken from the argument, overwriting any
// value set earlier via SetPotential.
func (n *Basic) Initialize(name string, potential float64) error {
	if name == "" {
		return gerr.NewInitializationError("node", "name must not be blank")
	}
	n.name = name
	n.potential = potential
	n.initialized = true
	return nil
}

func (n *Basic) Name() string        { return n.name }
func (n *Basic) Initialized() bool   { return n.initialized }
func (n *Basic) Potential() float64  { return n.potential }
func (n *Basic) SetPotential(p float64) { n.potential = p }

func (n *Basic) CollectInflux(rate float64)  { n.influxRate += rate }
func (n *Basic) CollectOutflux(rate float64) { n.outfluxRate += rate }
func (n *Basic) ScheduleOutflux(rate float64) {
	n.scheduledOutflux += rate
}

func (n *Basic) Influx() float64           { return n.influxRate }
func (n *Basic) Outflux() float64          { return n.outfluxRate }
func (n *Basic) ScheduledOutflux() float64 { return n.scheduledOutflux }
func (n *Basic) NetFlux() float64          { return n.netFlux }
func (n *Basic) FluxThrough() float64      { return n.fluxThrough }

// ResetFlows clears all flow accumulators, called once per major frame
// before the minor-step loop runs. Potential is preserved.
func (n *Basic) ResetFlows() {
	n.influxRate = 0
	n.outfluxRate = 0
	n.scheduledOutflux = 0
}

// IntegrateFlows derives netFlux and fluxThrough from the current influx and
// outflux accumulators. dt is accepted for fluid-node overrides that
// integrate mass/energy over the step; the basic node does not use it.
func (n *Basic) IntegrateFlows(dt float64) {
	n.netFlux = n.influxRate - n.outfluxRate
	n.fluxThrough = math.Min(n.influxRate, n.outfluxRate)
}

func (n *Basic) NetworkCapacitance() float64        { return n.networkCapacitance }
func (n *Basic) SetNetworkCapacitance(c float64)    { n.networkCapacitance = c }
func (n *Basic) NetworkCapacitanceRequest() float64 { return n.networkCapacitanceRequest }

// SetNetworkCapacitanceRequest sets the node's capacitance-probe request
// value. A positive q requests a probe of that size on the next minor step;
// zero means no request. There is no default value: the original's no-arg
// overload corresponds to passing 1.0. The network clears the request once
// it has computed the capacitance.
func (n *Basic) SetNetworkCapacitanceRequest(q float64) {
	n.networkCapacitanceRequest = q
}

func (n *Basic) IslandVector() []int      { return n.islandVector }
func (n *Basic) SetIslandVector(v []int)  { n.islandVector = v }

func (n *Basic) NetCapDeltaPotential() []float64     { return n.netCapDeltaPotential }
func (n *Basic) SetNetCapDeltaPotential(v []float64) { n.netCapDeltaPotential = v }

// Fluid extends Basic with a contained composite fluid, a separate
// inflow-mixing fluid used to accumulate incoming flow before it is mixed
// into the contents, volume, thermal-damping mass, expansion scale factor,
// an undamped heat-flux collector, and an overflow-detection threshold.
type Fluid struct {
	Basic

	content      *fluid.Fluid
	inflow       *fluid.Fluid
	volume       float64
	thermalMass  float64
	expansionScaleFactor float64
	undampedHeatFlux     float64
	overflowThreshold    float64
}

// NewFluidNode constructs an uninitialized fluid node.
func NewFluidNode() *Fluid {
	return &Fluid{}
}

// InitializeFluid attaches the contained and inflow-mixing composite fluids
// and the node's volumetric/thermal configuration. Must be called after
// Basic.Initialize.
func (n *Fluid) InitializeFluid(content, inflow *fluid.Fluid, volume, thermalMass, expansionScaleFactor, overflowThreshold float64) error {
	if content == nil {
		return gerr.NewInitializationError(n.Name(), "fluid node requires a contained fluid")
	}
	n.content = content
	n.inflow = inflow
	n.volume = volume
	n.thermalMass = thermalMass
	n.expansionScaleFactor = expansionScaleFactor
	n.overflowThreshold = overflowThreshold
	return nil
}

func (n *Fluid) Content() *fluid.Fluid { return n.content }
func (n *Fluid) Inflow() *fluid.Fluid  { return n.inflow }
func (n *Fluid) Volume() float64       { return n.volume }
func (n *Fluid) ThermalMass() float64  { return n.thermalMass }
func (n *Fluid) ExpansionScaleFactor() float64 { return n.expansionScaleFactor }
func (n *Fluid) OverflowThreshold() float64    { return n.overflowThreshold }

// CollectHeatFlux accumulates heat (W) into the node's undamped heat-flux
// collector, bypassing the bulk-mixture temperature path. Used by links such
// as a fire source that deliver heat directly rather than through the
// inflow-mixing fluid's enthalpy.
func (n *Fluid) CollectHeatFlux(watts float64) {
	n.undampedHeatFlux += watts
}

func (n *Fluid) UndampedHeatFlux() float64 { return n.undampedHeatFlux }

// ResetFlows clears the basic flow accumulators and the undamped heat-flux
// collector, and resets the inflow-mixing fluid's trace-compound inflow
// accumulators.
func (n *Fluid) ResetFlows() {
	n.Basic.ResetFlows()
	n.undampedHeatFlux = 0
	if n.inflow != nil {
		n.inflow.TraceCompounds().ResetInflow()
	}
}

// CollectInflow mixes a flow of the given rate and fluid into the node's
// inflow-mixing fluid, conserving mass-flow-weighted enthalpy, and records
// the flow in the basic influx accumulator. A negative rate represents a
// forced outflow of the prescribed mixture (e.g. a source boundary link
// with flipped sign) and is mixed in the same way: GUNNS's flow-mixing
// arithmetic tolerates a negative contribution as long as the combined rate
// stays non-zero.
func (n *Fluid) CollectInflow(rate float64, source *fluid.Fluid) error {
	n.CollectInflux(rate)
	if n.inflow == nil || source == nil {
		return nil
	}
	if n.inflow.FlowRate() == 0 {
		if err := n.inflow.SetState(source); err != nil {
			return err
		}
		n.inflow.SetFlowRate(rate)
		return nil
	}
	srcAtRate := *source
	srcAtRate.SetFlowRate(rate)
	return n.inflow.AddState(&srcAtRate, nil)
}
