// Command nonlinear demonstrates the minor-step reject/flip/confirm protocol:
// one linear conductor plus a two-state, diode-like link that only conducts
// in the direction matching its current state, starting in the "wrong" state
// so the first minor step is rejected and the link flips before the network
// converges.
package main

import (
	"fmt"
	"log"

	"github.com/nasa/gunns-sub009/pkg/link"
	"github.com/nasa/gunns-sub009/pkg/network"
	"github.com/nasa/gunns-sub009/pkg/node"
)

// conductance is a fixed two-port admittance from a real node to ground.
type conductance struct {
	*link.Base
	g float64
}

func newConductance(name string, g float64) *conductance {
	c := &conductance{Base: link.NewBase(name, 2), g: g}
	c.SetPortNode(0, 0)
	c.SetPortNode(1, link.GroundNode)
	c.MarkInitialized()
	return c
}

func (c *conductance) IsNonLinear() bool { return false }
func (c *conductance) Step(dt float64) error {
	c.ResetAdmittance()
	c.StampAdmittance(0, 0, c.g)
	c.StampAdmittance(0, 1, -c.g)
	c.StampAdmittance(1, 0, -c.g)
	c.StampAdmittance(1, 1, c.g)
	return nil
}
func (c *conductance) ProcessInputs()  {}
func (c *conductance) ProcessOutputs() {}

// fixedSource is a constant one-port current source into the real node.
type fixedSource struct {
	*link.Base
	demand float64
}

func newFixedSource(name string, demand float64) *fixedSource {
	s := &fixedSource{Base: link.NewBase(name, 1), demand: demand}
	s.SetPortNode(0, 0)
	s.MarkInitialized()
	return s
}

func (s *fixedSource) IsNonLinear() bool { return false }
func (s *fixedSource) Step(dt float64) error {
	s.ResetAdmittance()
	s.SetSource(0, s.demand)
	return nil
}
func (s *fixedSource) ProcessInputs()  {}
func (s *fixedSource) ProcessOutputs() {}

// twoStateLink is a diode-like non-linear link: it conducts with a high
// admittance in the "forward" state and a near-zero admittance in
// "reverse", flipping state whenever its port potential drop disagrees with
// its current state, mirroring the teacher's sign-dependent diode
// conductance branch (without its exponential I-V physics, which has no
// GUNNS-domain meaning).
type twoStateLink struct {
	*link.Base
	forward bool
}

func newTwoStateLink(name string, startForward bool) *twoStateLink {
	l := &twoStateLink{Base: link.NewBase(name, 2), forward: startForward}
	l.SetPortNode(0, 0)
	l.SetPortNode(1, link.GroundNode)
	l.MarkInitialized()
	return l
}

func (l *twoStateLink) IsNonLinear() bool { return true }

func (l *twoStateLink) conductance() float64 {
	if l.forward {
		return 5.0
	}
	return 1.0e-6
}

func (l *twoStateLink) stamp() {
	g := l.conductance()
	l.ResetAdmittance()
	l.StampAdmittance(0, 0, g)
	l.StampAdmittance(0, 1, -g)
	l.StampAdmittance(1, 0, -g)
	l.StampAdmittance(1, 1, g)
}

func (l *twoStateLink) Step(dt float64) error {
	l.stamp()
	return nil
}

func (l *twoStateLink) MinorStep(dt float64, minorStep int) error {
	l.stamp()
	return nil
}

func (l *twoStateLink) potentialDrop() float64 {
	return l.PortPotential(0) - l.PortPotential(1)
}

// ConfirmSolutionAcceptable rejects whenever the current state disagrees
// with the sign of the solved potential drop: the forward state expects a
// non-negative drop, the reverse state expects a negative one.
func (l *twoStateLink) ConfirmSolutionAcceptable(convergedStep, minorStep int) link.Vote {
	drop := l.potentialDrop()
	if l.forward && drop < 0 {
		return link.Reject
	}
	if !l.forward && drop >= 0 {
		return link.Reject
	}
	return link.Confirm
}

func (l *twoStateLink) ResetLastMinorStep(convergedStep, minorStep int) bool {
	l.forward = !l.forward
	return true
}

func main() {
	fmt.Print("===== Non-linear two-link network =====\n\n")

	conductor := newConductance("conductor", 2.0)
	source := newFixedSource("source", -10.0)
	diodeLike := newTwoStateLink("diode-like", true)

	cfg := network.Config{
		Name:                      "nonlinear-demo",
		ConvergenceTolerance:      1e-9,
		MinLinearizationPotential: 1e-6,
		MinorStepLimit:            10,
		DecompositionLimit:        20,
	}
	net, err := network.New(cfg, []link.Link{conductor, source, diodeLike})
	if err != nil {
		log.Fatalf("building network: %v", err)
	}

	real := node.NewBasic()
	if err := real.Initialize("node-0", 0); err != nil {
		log.Fatalf("initializing node: %v", err)
	}
	ground := node.NewBasic()
	if err := ground.Initialize("ground", 0); err != nil {
		log.Fatalf("initializing ground: %v", err)
	}
	if err := net.InitializeNodes([]node.Node{real, ground}); err != nil {
		log.Fatalf("initializing network: %v", err)
	}

	if err := net.Step(1.0); err != nil {
		log.Fatalf("stepping network: %v", err)
	}

	fmt.Println("minor-step log:")
	for _, e := range net.StepLog.Entries {
		fmt.Printf("  step %d: %-7s decompositions=%d p[0]=%.6f\n", e.MinorStep, e.Result, e.DecompositionCount, e.Potential[0])
	}
	p, _ := net.Potential(0)
	fmt.Printf("final potential: %.6f, ended forward=%v\n", p, diodeLike.forward)
	fmt.Printf("convergence failures: %d\n", net.ConvergenceFailCount)
}
