// Command firesource demonstrates a fire source link consuming O2 and
// producing CO2/H2O proportional to a commanded heat output, then
// auto-extinguishing once the attached node's O2 partial pressure falls
// below the configured minimum.
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

var airConfig = &fluid.Config{
	Types: []fluidprops.FluidType{
		fluidprops.GunnsGasO2,
		fluidprops.GunnsGasN2,
		fluidprops.GunnsGasCO2,
		fluidprops.GunnsGasH2O,
	},
}

func portDirection(flowRate float64) string {
	switch {
	case flowRate > 0:
		return "IN"
	case flowRate < 0:
		return "OUT"
	default:
		return "NONE"
	}
}

func main() {
	fmt.Print("===== Fire source with auto-extinguish =====\n\n")

	content, err := fluid.New(airConfig, &fluid.Input{
		Temperature:   294.0,
		Pressure:      101.3,
		Mass:          1.0,
		MassFractions: []float64{0.22, 0.77, 0.005, 0.005},
	})
	if err != nil {
		log.Fatalf("building node content fluid: %v", err)
	}
	inflow, err := fluid.New(airConfig, &fluid.Input{
		Temperature:   294.0,
		Pressure:      101.3,
		Mass:          1.0,
		MassFractions: []float64{0.22, 0.77, 0.005, 0.005},
	})
	if err != nil {
		log.Fatalf("building node inflow fluid: %v", err)
	}

	n := node.NewFluidNode()
	if err := n.Initialize("cabin", content.Pressure()); err != nil {
		log.Fatalf("initializing node: %v", err)
	}
	if err := n.InitializeFluid(content, inflow, 10.0, 100.0, 0.0, 0.0); err != nil {
		log.Fatalf("initializing fluid node: %v", err)
	}

	internal, err := fluid.New(airConfig, &fluid.Input{
		Temperature:   294.0,
		Pressure:      101.3,
		Mass:          1.0,
		MassFractions: []float64{0.25, 0.25, 0.25, 0.25},
	})
	if err != nil {
		log.Fatalf("building internal fluid: %v", err)
	}

	fire, err := link.NewFireSource("fire", n, internal, &link.FireSourceConfig{
		O2ConsumptionRate: 1.0e-2,
		CO2ProductionRate: 1.0e-2,
		H2OProductionRate: 1.0e-2,
		MinRequiredO2:     10.34,
	}, &link.FireSourceInput{
		MalfFireFlag: true,
		MalfFireHeat: 100.0,
	})
	if err != nil {
		log.Fatalf("building fire source: %v", err)
	}

	cfg := network.Config{
		Name:                      "fire-cabin",
		ConvergenceTolerance:      1e-9,
		MinLinearizationPotential: 1e-6,
		MinorStepLimit:            1,
		DecompositionLimit:        10,
	}
	net, err := network.New(cfg, []link.Link{fire})
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

	fmt.Println("-- step 1: O2 above threshold --")
	if err := net.Step(1.0); err != nil {
		log.Fatalf("stepping network: %v", err)
	}
	fmt.Printf("node heat flux : %s\n", util.FormatValueFactor(n.UndampedHeatFlux(), "W"))
	fmt.Printf("bulk inflow    : %s (%s)\n", util.FormatValueFactor(n.Influx(), "kg/s"), portDirection(n.Influx()-n.Outflux()))

	// Drive the node's O2 content below the fire's minimum required partial
	// pressure so step 2 exercises the auto-extinguish path.
	if err := content.SetMassAndMassFractions(1.0, []float64{0.02, 0.97, 0.005, 0.005}); err != nil {
		log.Fatalf("depleting node O2: %v", err)
	}

	fmt.Println("\n-- step 2: O2 below threshold --")
	if err := net.Step(1.0); err != nil {
		log.Fatalf("stepping network: %v", err)
	}
	fmt.Printf("node heat flux : %s\n", util.FormatValueFactor(n.UndampedHeatFlux(), "W"))
	fmt.Printf("bulk inflow    : %s (%s)\n", util.FormatValueFactor(n.Influx(), "kg/s"), portDirection(n.Influx()-n.Outflux()))
}
