// Command capacitivenode demonstrates the simplest orchestrator scenario: one
// non-ground node with a fixed self-admittance driven by a constant source,
// solved to steady state in a single (linear) step.
package main

import (
	"fmt"
	"log"

	"github.com/nasa/gunns-sub009/pkg/link"
	"github.com/nasa/gunns-sub009/pkg/network"
	"github.com/nasa/gunns-sub009/pkg/node"
	"github.com/nasa/gunns-sub009/pkg/util"
)

// conductance is a two-port linear admittance stamped between a real node and
// ground, standing in for a basic GUNNS conductor link.
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

// fixedSource is a one-port constant-current source.
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

func main() {
	fmt.Print("===== Single capacitive node =====\n\n")

	conductor := newConductance("conductor", 10.0)
	source := newFixedSource("source", 27.0)

	cfg := network.Config{
		Name:                      "single-node",
		ConvergenceTolerance:      1e-9,
		MinLinearizationPotential: 1e-6,
		MinorStepLimit:            1,
		DecompositionLimit:        10,
	}

	net, err := network.New(cfg, []link.Link{conductor, source})
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

	p, err := net.Potential(0)
	if err != nil {
		log.Fatalf("reading potential: %v", err)
	}

	fmt.Printf("potential    : %s (expect 2.700)\n", util.FormatValueFactor(p, "units"))
	fmt.Printf("major steps  : %d, convergence failures: %d\n", net.MajorStepCount, net.ConvergenceFailCount)
}
