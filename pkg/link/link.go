// Package link implements the abstract link contract that the network
// orchestrator drives every minor step: identity, a port-to-node map, an
// admittance/source contribution, and the non-linear acceptance protocol.
// Grounded structurally on edp1096-toy-spice's pkg/device package (the
// Device interface plus optional-capability interfaces NonLinear,
// TimeDependent, ACElement) and semantically on
// original_source/aspects/fluid/source/GunnsFluidSourceBoundary.cpp and
// GunnsFluidFireSource.cpp.
package link

import (
	"fmt"

	"github.com/nasa/gunns-sub009/pkg/gerr"
)

// GroundNode is the port-node-map sentinel meaning "the terminal ground
// node", which never enters the admittance matrix.
const GroundNode = -1

// Vote is a non-linear link's assessment of the current minor-step solution.
type Vote int

const (
	Confirm Vote = iota
	Reject
	Delay
)

func (v Vote) String() string {
	switch v {
	case Confirm:
		return "CONFIRM"
	case Reject:
		return "REJECT"
	case Delay:
		return "DELAY"
	default:
		return "UNKNOWN"
	}
}

// AdmittanceEntry maps one compressed admittance slot to its (row, col)
// position in the logical P×P contribution.
type AdmittanceEntry struct {
	Row, Col int
	Value    float64
}

// Link is the contract the orchestrator drives once per minor step.
type Link interface {
	Name() string
	Initialized() bool
	NumPorts() int
	PortNode(port int) int
	SetPortNode(port, node int)
	PortPotential(port int) float64
	SetPortPotential(port int, p float64)
	OverrideFlag(port int) bool

	// Admittance returns the link's current compressed admittance
	// contribution; entries whose Row or Col resolve outside [0, N) after
	// port-node mapping are dropped by the orchestrator during assembly.
	Admittance() []AdmittanceEntry
	// Source returns the per-port source contribution, in port order.
	Source() []float64

	IsNonLinear() bool

	// NeedAdmittanceUpdate reports whether this link's admittance
	// contribution changed since the last time the orchestrator assembled
	// A, sparing it a rebuild+decompose when every link reports false.
	// Base defaults to true (always rebuild); a link whose admittance
	// never varies, or that tracks its own dirty flag, overrides it.
	NeedAdmittanceUpdate() bool

	Step(dt float64) error
	ProcessInputs()
	ProcessOutputs()
}

// NonLinear is the optional capability a non-linear link additionally
// implements: the minor-step hook and the acceptance protocol.
type NonLinear interface {
	Link
	MinorStep(dt float64, minorStep int) error
	ConfirmSolutionAcceptable(convergedStep, minorStep int) Vote
	ResetLastMinorStep(convergedStep, minorStep int) bool
}

// Restartable is the optional capability a link implements to recompute
// derived state after a checkpoint restore.
type Restartable interface {
	Restart()
}

// Base is the embeddable scaffolding every concrete link builds on, mirroring
// edp1096-toy-spice's device.BaseDevice: it owns the port-node map, the
// per-port potential and override-flag vectors, and the admittance/source
// buffers, and implements the parts of Link that never vary by link type.
type Base struct {
	name        string
	initialized bool

	portNodes     []int
	portPotential []float64
	overrideFlag  []bool

	admittance []AdmittanceEntry
	source     []float64
}

// NewBase constructs the scaffolding for a link with the given name and port
// count.
func NewBase(name string, numPorts int) *Base {
	return &Base{
		name:          name,
		portNodes:     make([]int, numPorts),
		portPotential: make([]float64, numPorts),
		overrideFlag:  make([]bool, numPorts),
		source:        make([]float64, numPorts),
	}
}

func (b *Base) Name() string      { return b.name }
func (b *Base) Initialized() bool { return b.initialized }
func (b *Base) MarkInitialized()  { b.initialized = true }
func (b *Base) NumPorts() int     { return len(b.portNodes) }

func (b *Base) PortNode(port int) int { return b.portNodes[port] }

func (b *Base) SetPortNode(port, node int) {
	b.portNodes[port] = node
}

func (b *Base) PortPotential(port int) float64 { return b.portPotential[port] }

func (b *Base) SetPortPotential(port int, p float64) {
	b.portPotential[port] = p
}

func (b *Base) OverrideFlag(port int) bool { return b.overrideFlag[port] }

func (b *Base) SetOverrideFlag(port int, v bool) { b.overrideFlag[port] = v }

func (b *Base) Admittance() []AdmittanceEntry { return b.admittance }

// ResetAdmittance clears the compressed admittance buffer; concrete links
// call this at the top of Step before re-stamping.
func (b *Base) ResetAdmittance() { b.admittance = b.admittance[:0] }

// StampAdmittance appends one (row, col, value) contribution to the
// compressed admittance buffer.
func (b *Base) StampAdmittance(row, col int, value float64) {
	b.admittance = append(b.admittance, AdmittanceEntry{Row: row, Col: col, Value: value})
}

// NeedAdmittanceUpdate defaults to true, matching the orchestrator's
// always-rebuild behavior; a link with admittance that never varies once
// stamped overrides this to spare the rebuild+decompose.
func (b *Base) NeedAdmittanceUpdate() bool { return true }

func (b *Base) Source() []float64 { return b.source }

// SetSource sets port i's source contribution.
func (b *Base) SetSource(port int, value float64) {
	b.source[port] = value
}

// ProcessInputs and ProcessOutputs default to no-ops; concrete links
// override them when they have external I/O.
func (b *Base) ProcessInputs()  {}
func (b *Base) ProcessOutputs() {}

// ValidatePortCount is a small helper concrete link constructors use to
// reject a mismatched port-node map.
func ValidatePortCount(name string, got, want int) error {
	if got != want {
		return gerr.NewInitializationError(name, fmt.Sprintf("expected %d ports, got %d", want, got))
	}
	return nil
}
