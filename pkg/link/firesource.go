package link

import (
	"github.com/nasa/gunns-sub009/internal/consts"
	"github.com/nasa/gunns-sub009/pkg/fluid"
	"github.com/nasa/gunns-sub009/pkg/fluidprops"
	"github.com/nasa/gunns-sub009/pkg/gerr"
	"github.com/nasa/gunns-sub009/pkg/node"
)

// FireSourceConfig is the construction-time configuration of a fire source
// link: per-Joule consumption/production rates for O2/CO2/H2O, the minimum
// O2 partial pressure required to sustain the fire, and optional
// per-Joule trace compound production rates.
type FireSourceConfig struct {
	O2ConsumptionRate    float64 // kg/J
	CO2ProductionRate    float64 // kg/J
	H2OProductionRate    float64 // kg/J
	MinRequiredO2        float64 // kPa
	TraceCompoundRates   []float64
}

// FireSourceInput is the construction-time input of a fire source link.
type FireSourceInput struct {
	MalfFireFlag bool
	MalfFireHeat float64 // W
}

// FireSource is a one-port link that consumes O2 and produces CO2 and H2O
// at rates proportional to a user-supplied heat output, auto-extinguishing
// when O2 falls below a configured minimum at the attached node. Grounded on
// original_source/aspects/fluid/source/GunnsFluidFireSource.cpp.
type FireSource struct {
	*Base

	o2Rate  float64
	co2Rate float64
	h2oRate float64
	minO2   float64
	tcRates []float64

	malfFireFlag bool
	malfFireHeat float64

	internalFluid *fluid.Fluid
	iO2, iCO2, iH2O int

	flowO2, flowCO2, flowH2O float64
	flowRate                 float64
	flux                     float64

	n *node.Fluid
}

// NewFireSource constructs and initializes a fire source link attached to n
// (port 0). The attached node's fluid must include O2, CO2, and H2O
// constituents.
func NewFireSource(name string, n *node.Fluid, internalFluid *fluid.Fluid, config *FireSourceConfig, input *FireSourceInput) (*FireSource, error) {
	if n == nil || n.Content() == nil {
		return nil, gerr.NewInitializationError(name, "attached node has no content fluid")
	}
	if internalFluid == nil {
		return nil, gerr.NewInitializationError(name, "internal fluid not specified")
	}
	if config == nil {
		config = &FireSourceConfig{}
	}
	if input == nil {
		input = &FireSourceInput{}
	}

	iO2, err := n.Content().Find(fluidprops.GunnsGasO2)
	if err != nil {
		return nil, gerr.NewInitializationError(name, "attached node has no O2 constituent: "+err.Error())
	}
	iCO2, err := n.Content().Find(fluidprops.GunnsGasCO2)
	if err != nil {
		return nil, gerr.NewInitializationError(name, "attached node has no CO2 constituent: "+err.Error())
	}
	iH2O, err := n.Content().Find(fluidprops.GunnsGasH2O)
	if err != nil {
		return nil, gerr.NewInitializationError(name, "attached node has no H2O constituent: "+err.Error())
	}

	l := &FireSource{
		Base:          NewBase(name, 1),
		o2Rate:        config.O2ConsumptionRate,
		co2Rate:       config.CO2ProductionRate,
		h2oRate:       config.H2OProductionRate,
		minO2:         config.MinRequiredO2,
		tcRates:       config.TraceCompoundRates,
		malfFireFlag:  input.MalfFireFlag,
		malfFireHeat:  input.MalfFireHeat,
		internalFluid: internalFluid,
		iO2:           iO2,
		iCO2:          iCO2,
		iH2O:          iH2O,
		n:             n,
	}
	l.SetPortNode(0, 0)
	l.MarkInitialized()
	return l, nil
}

func (l *FireSource) IsNonLinear() bool { return false }

// NeedAdmittanceUpdate always returns false: a fire source only ever stamps
// its source vector, never its admittance contribution.
func (l *FireSource) NeedAdmittanceUpdate() bool { return false }

// SetMalfFire activates or resets the fire malfunction.
func (l *FireSource) SetMalfFire(active bool, heat float64) {
	l.malfFireFlag = active
	l.malfFireHeat = heat
}

// Step auto-extinguishes the fire if O2 at the attached node has fallen
// below the configured minimum, then computes constituent flow rates
// proportional to the commanded heat output and converts the net mass flow
// rate to the molar flux stamped into the source vector.
func (l *FireSource) Step(dt float64) error {
	o2PP, err := l.n.Content().PartialPressure(fluidprops.GunnsGasO2)
	if err != nil {
		return err
	}
	if o2PP < l.minO2 {
		l.malfFireFlag = false
	}

	l.calculateFlowRate()

	mw := l.internalFluid.MolecularWeight()
	if mw > consts.DblEpsilon {
		l.flux = l.flowRate / mw
	} else {
		l.flux = 0.0
	}

	l.ResetAdmittance()
	l.SetSource(0, l.flux)
	return nil
}

func (l *FireSource) calculateFlowRate() {
	if !l.malfFireFlag {
		l.zeroGenValues()
		return
	}
	l.flowCO2 = l.co2Rate * l.malfFireHeat
	l.flowO2 = -l.o2Rate * l.malfFireHeat
	l.flowH2O = l.h2oRate * l.malfFireHeat
	l.flowRate = l.flowCO2 + l.flowO2 + l.flowH2O
}

func (l *FireSource) zeroGenValues() {
	l.flowCO2 = 0
	l.flowO2 = 0
	l.flowH2O = 0
	l.flowRate = 0
}

func (l *FireSource) ProcessOutputs() {}

// TransportFlows delivers the fire's net bulk flow and heat to the attached
// node when active, or clears everything (including the undamped heat-flux
// collector) when extinguished.
func (l *FireSource) TransportFlows(dt float64) error {
	o2PP, err := l.n.Content().PartialPressure(fluidprops.GunnsGasO2)
	if err != nil {
		return err
	}
	if l.malfFireFlag && o2PP > l.minO2 {
		l.internalFluid.ResetState()
		if err := l.internalFluid.SetConstituentMass(l.iO2, l.flowO2); err != nil {
			return err
		}
		if err := l.internalFluid.SetConstituentMass(l.iCO2, l.flowCO2); err != nil {
			return err
		}
		if err := l.internalFluid.SetConstituentMass(l.iH2O, l.flowH2O); err != nil {
			return err
		}
		if err := l.internalFluid.UpdateMass(); err != nil {
			return err
		}
		if err := l.internalFluid.SetTemperature(l.n.Content().Temperature()); err != nil {
			return err
		}

		tc := l.internalFluid.TraceCompounds()
		if tc != nil && l.tcRates != nil {
			for i, rate := range l.tcRates {
				if err := tc.SetMoleFraction(i, rate*l.malfFireHeat); err != nil {
					return err
				}
			}
		}

		l.n.CollectHeatFlux(l.malfFireHeat)
		return l.n.CollectInflow(l.flowRate, l.internalFluid)
	}

	l.malfFireFlag = false
	l.zeroGenValues()
	l.n.CollectHeatFlux(0)
	return nil
}

func (l *FireSource) Restart() {}
