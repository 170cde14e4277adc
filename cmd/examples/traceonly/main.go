// Command traceonly demonstrates a source link operating in
// trace-compounds-only mode: it injects trace-compound mass directly into a
// node's trace-inflow accumulator without touching the bulk mixture.
package main

import (
	"fmt"
	"log"

	"github.com/nasa/gunns-sub009/pkg/fluid"
	"github.com/nasa/gunns-sub009/pkg/fluidprops"
	"github.com/nasa/gunns-sub009/pkg/link"
	"github.com/nasa/gunns-sub009/pkg/network"
	"github.com/nasa/gunns-sub009/pkg/node"
	"github.com/nasa/gunns-sub009/pkg/util"
)

func main() {
	fmt.Print("===== Trace-only source =====\n\n")

	traceCfg, err := fluid.NewTraceCompoundsConfig([]fluid.Compound{
		{Name: "ethanol", MolecularWeight: 46.07},
		{Name: "ammonia", MolecularWeight: 17.03},
	})
	if err != nil {
		log.Fatalf("building trace compounds config: %v", err)
	}

	airCfg := &fluid.Config{
		Types:          []fluidprops.FluidType{fluidprops.GunnsGasO2, fluidprops.GunnsGasN2},
		TraceCompounds: traceCfg,
	}

	content, err := fluid.New(airCfg, &fluid.Input{
		Temperature:    294.0,
		Pressure:       101.3,
		Mass:           1.0,
		MassFractions:  []float64{0.23, 0.77},
		TraceCompounds: &fluid.TraceCompoundsInput{},
	})
	if err != nil {
		log.Fatalf("building node content: %v", err)
	}
	inflow, err := fluid.New(airCfg, &fluid.Input{
		Temperature:    294.0,
		Pressure:       101.3,
		Mass:           1.0,
		MassFractions:  []float64{0.23, 0.77},
		TraceCompounds: &fluid.TraceCompoundsInput{},
	})
	if err != nil {
		log.Fatalf("building node inflow: %v", err)
	}

	n := node.NewFluidNode()
	if err := n.Initialize("cabin", content.Pressure()); err != nil {
		log.Fatalf("initializing node: %v", err)
	}
	if err := n.InitializeFluid(content, inflow, 10.0, 100.0, 0.0, 0.0); err != nil {
		log.Fatalf("initializing fluid node: %v", err)
	}

	internal, err := fluid.New(airCfg, &fluid.Input{
		Temperature:    294.0,
		Pressure:       101.3,
		Mass:           1.0,
		MassFractions:  []float64{0.23, 0.77},
		TraceCompounds: &fluid.TraceCompoundsInput{},
	})
	if err != nil {
		log.Fatalf("building internal fluid: %v", err)
	}

	src, err := link.NewSourceBoundary("trace-source", n, &link.SourceBoundaryConfig{
		TraceCompoundsOnly: true,
	}, &link.SourceBoundaryInput{
		FlowDemand:         1.0,
		InternalFluid:      internal,
		TraceCompoundRates: []float64{1.0e-9, 2.0e-10},
	})
	if err != nil {
		log.Fatalf("building trace-only source: %v", err)
	}

	cfg := network.Config{
		Name:                      "trace-cabin",
		ConvergenceTolerance:      1e-9,
		MinLinearizationPotential: 1e-6,
		MinorStepLimit:            1,
		DecompositionLimit:        10,
	}
	net, err := network.New(cfg, []link.Link{src})
	if err != nil {
		log.Fatalf("building network: %v", err)
	}
	ground := node.NewBasic()
	if err := ground.Initialize("ground", 0); err != nil {
		log.Fatalf("initializing ground: %v", err)
	}
	if err := net.InitializeNodes([]node.Node{n, ground}); err != nil {
		log.Fatalf("initializing network: %v", err)
	}

	if err := net.Step(1.0); err != nil {
		log.Fatalf("stepping network: %v", err)
	}

	tc := n.Inflow().TraceCompounds()
	ethanol, _ := tc.Inflow(0)
	ammonia, _ := tc.Inflow(1)

	fmt.Printf("trace inflow ethanol : %s\n", util.FormatValueFactor(ethanol, "kg/s"))
	fmt.Printf("trace inflow ammonia : %s\n", util.FormatValueFactor(ammonia, "kg/s"))
	fmt.Printf("bulk inflow          : %s\n", util.FormatValueFactor(n.Influx(), "kg/s"))
}
