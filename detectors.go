package odx

import (
	"math"
)

// Default event detection policy values.
const (
	defaultMaxCheck  = 60.0 // s
	defaultThreshold = 1e-6 // s
	defaultMaxIter   = 100
)

// DefaultEventPolicy is the detection tuning used by the bundled
// detectors unless overridden.
func DefaultEventPolicy() EventPolicy {
	return EventPolicy{MaxCheck: defaultMaxCheck, Thresh: defaultThreshold, MaxIter: defaultMaxIter}
}

// DateDetector triggers when the propagation crosses a target date,
// in either time direction.
type DateDetector struct {
	EventPolicy
	NoReset
	Target Date
	Act    Action
}

// NewDateDetector returns a detector firing the given action at the
// target date.
func NewDateDetector(target Date, act Action) *DateDetector {
	return &DateDetector{EventPolicy: DefaultEventPolicy(), Target: target, Act: act}
}

// G implements the SwitchingFunction interface.
func (d *DateDetector) G(date Date, pv PVCoordinates, frame *Frame) (float64, error) {
	return date.Sub(d.Target), nil
}

// EventOccurred implements the SwitchingFunction interface.
func (d *DateDetector) EventOccurred(date Date, pv PVCoordinates, frame *Frame) (Action, error) {
	return d.Act, nil
}

// ApsideDetector triggers at periapsis or apoapsis passes, where the
// flight path angle vanishes: g = R·V changes sign at each apsis,
// rising at periapsis and falling at apoapsis.
type ApsideDetector struct {
	EventPolicy
	NoReset
	μ float64
	// PeriapsisAction and ApoapsisAction decide what to do at each
	// apsis kind; use Continue to ignore one of them.
	PeriapsisAction, ApoapsisAction Action
}

// NewPeriapsisDetector returns a detector firing the given action at
// periapsis passes only.
func NewPeriapsisDetector(μ float64, act Action) *ApsideDetector {
	return &ApsideDetector{EventPolicy: DefaultEventPolicy(), μ: μ, PeriapsisAction: act, ApoapsisAction: Continue}
}

// G implements the SwitchingFunction interface.
func (d *ApsideDetector) G(date Date, pv PVCoordinates, frame *Frame) (float64, error) {
	return dot(pv.R, pv.V), nil
}

// EventOccurred implements the SwitchingFunction interface.
func (d *ApsideDetector) EventOccurred(date Date, pv PVCoordinates, frame *Frame) (Action, error) {
	// At periapsis v² > μ/r, at apoapsis v² < μ/r.
	if dot(pv.V, pv.V) > d.μ/norm(pv.R) {
		return d.PeriapsisAction, nil
	}
	return d.ApoapsisAction, nil
}

// LongitudeDetector triggers when the true longitude crosses a target
// value, wrapping handled on (-π, π].
type LongitudeDetector struct {
	EventPolicy
	NoReset
	μ      float64
	Target float64
	Act    Action
}

// NewLongitudeDetector returns a detector firing when Lv crosses the
// target angle.
func NewLongitudeDetector(μ, target float64, act Action) *LongitudeDetector {
	return &LongitudeDetector{EventPolicy: DefaultEventPolicy(), μ: μ, Target: target, Act: act}
}

// G implements the SwitchingFunction interface.
func (d *LongitudeDetector) G(date Date, pv PVCoordinates, frame *Frame) (float64, error) {
	o, err := NewEquinoctialFromPV(pv, frame, d.μ)
	if err != nil {
		return math.NaN(), err
	}
	return wrapAngle(o.Lv() - d.Target), nil
}

// EventOccurred implements the SwitchingFunction interface.
func (d *LongitudeDetector) EventOccurred(date Date, pv PVCoordinates, frame *Frame) (Action, error) {
	// The wrapped g also changes sign where it jumps from +π to -π, half
	// a revolution away from the target: that is not a target crossing.
	o, err := NewEquinoctialFromPV(pv, frame, d.μ)
	if err != nil {
		return Continue, err
	}
	if math.Abs(wrapAngle(o.Lv()-d.Target)) > math.Pi/2 {
		return Continue, nil
	}
	return d.Act, nil
}
