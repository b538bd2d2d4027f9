package odx

import (
	"fmt"
	"math"
)

// ConstantThrustManeuver is a finite burn at constant thrust between
// two dates. The thrust direction is fixed in the TNW local orbital
// frame and the mass flow is -T/(g0·Isp). The burn boundaries are
// announced to the integrator through switching functions so the
// derivative discontinuities never fall inside a step.
type ConstantThrustManeuver struct {
	Start, Stop Date
	Thrust      float64    // N
	Isp         float64    // s
	Dir         [3]float64 // unit direction in TNW
	Policy      EventPolicy
}

// NewConstantThrustManeuver returns a tangential burn between the two
// dates. Use a negative thrust for a retrograde burn.
func NewConstantThrustManeuver(start, stop Date, thrust, isp float64) ConstantThrustManeuver {
	if stop.Before(start) {
		panic("config maneuver must stop after it starts")
	}
	if isp <= 0 {
		panic("config Isp must be positive")
	}
	return ConstantThrustManeuver{Start: start, Stop: stop, Thrust: thrust, Isp: isp,
		Dir: [3]float64{1, 0, 0}, Policy: DefaultEventPolicy()}
}

// active returns whether the burn is firing at the given date.
func (m ConstantThrustManeuver) active(date Date) bool {
	return !date.Before(m.Start) && date.Before(m.Stop)
}

// AddContribution implements the ForceModel interface.
func (m ConstantThrustManeuver) AddContribution(date Date, pv PVCoordinates, frame *Frame, mass float64, adder DerivativesAdder) error {
	if !m.active(date) {
		return nil
	}
	if mass <= 0 {
		return fmt.Errorf("cannot thrust with mass %.3f kg", mass)
	}
	f := math.Abs(m.Thrust) / mass
	s := sign(m.Thrust)
	adder.AddAcceleration(TNW(s*f*m.Dir[0], s*f*m.Dir[1], s*f*m.Dir[2]))
	adder.AddMassRate(-math.Abs(m.Thrust) / (G0 * m.Isp))
	return nil
}

// SwitchingFunctions implements the ForceModel interface. The two
// detectors bracket the burn so the integrator restarts cleanly at
// ignition and cut-off.
func (m ConstantThrustManeuver) SwitchingFunctions() []SwitchingFunction {
	ignition := NewDateDetector(m.Start, ResetDerivatives)
	ignition.EventPolicy = m.Policy
	cutoff := NewDateDetector(m.Stop, ResetDerivatives)
	cutoff.EventPolicy = m.Policy
	return []SwitchingFunction{ignition, cutoff}
}

// ImpulsiveBurn applies an instantaneous velocity increment when its
// trigger detector fires, through the state reset path. The mass drops
// per the rocket equation.
type ImpulsiveBurn struct {
	μ       float64
	Trigger SwitchingFunction
	ΔV      [3]float64 // TNW, m/s
	Isp     float64    // s
}

// NewImpulsiveBurn returns an impulsive maneuver fired by the trigger
// detector. The trigger's own action is ignored: the burn always
// resets the state.
func NewImpulsiveBurn(μ float64, trigger SwitchingFunction, Δv [3]float64, isp float64) *ImpulsiveBurn {
	if trigger == nil {
		panic("config trigger SwitchingFunction may not be nil")
	}
	if isp <= 0 {
		panic("config Isp must be positive")
	}
	return &ImpulsiveBurn{μ: μ, Trigger: trigger, ΔV: Δv, Isp: isp}
}

// AddContribution implements the ForceModel interface. An impulsive
// burn has no continuous contribution.
func (b *ImpulsiveBurn) AddContribution(date Date, pv PVCoordinates, frame *Frame, mass float64, adder DerivativesAdder) error {
	return nil
}

// SwitchingFunctions implements the ForceModel interface.
func (b *ImpulsiveBurn) SwitchingFunctions() []SwitchingFunction {
	return []SwitchingFunction{b}
}

// G implements the SwitchingFunction interface by delegation.
func (b *ImpulsiveBurn) G(date Date, pv PVCoordinates, frame *Frame) (float64, error) {
	return b.Trigger.G(date, pv, frame)
}

// EventOccurred implements the SwitchingFunction interface.
func (b *ImpulsiveBurn) EventOccurred(date Date, pv PVCoordinates, frame *Frame) (Action, error) {
	return ResetState, nil
}

// ResetState implements the SwitchingFunction interface: it applies
// the velocity increment and the rocket equation mass drop.
func (b *ImpulsiveBurn) ResetState(s *State) error {
	pv := s.Orbit.PV(b.μ)
	tU := unit(pv.V)
	wU := unit(pv.H())
	nU := cross(wU, tU)
	v := make([]float64, 3)
	for i := 0; i < 3; i++ {
		v[i] = pv.V[i] + b.ΔV[0]*tU[i] + b.ΔV[1]*nU[i] + b.ΔV[2]*wU[i]
	}
	orbit, err := NewEquinoctialFromPV(PVCoordinates{R: pv.R, V: v}, s.Orbit.Frame(), b.μ)
	if err != nil {
		return err
	}
	Δv := math.Sqrt(b.ΔV[0]*b.ΔV[0] + b.ΔV[1]*b.ΔV[1] + b.ΔV[2]*b.ΔV[2])
	s.Orbit = orbit
	s.Mass *= math.Exp(-Δv / (G0 * b.Isp))
	return nil
}

// MaxCheckInterval implements the SwitchingFunction interface.
func (b *ImpulsiveBurn) MaxCheckInterval() float64 { return b.Trigger.MaxCheckInterval() }

// Threshold implements the SwitchingFunction interface.
func (b *ImpulsiveBurn) Threshold() float64 { return b.Trigger.Threshold() }

// MaxIterations implements the SwitchingFunction interface.
func (b *ImpulsiveBurn) MaxIterations() int { return b.Trigger.MaxIterations() }
