package odx

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestPeriapsisStop(t *testing.T) {
	μ := Earth.GM()
	// Start at apoapsis: the first periapsis pass is half a period away.
	o := NewEquinoctialFromOE(8e6, 0.2, 28.5, 40, 70, 180, EME2000)
	s0 := NewState(J2000, o, 250)
	p := testPropagator(μ)
	p.AddEventDetector(NewPeriapsisDetector(μ, Stop))

	T := o.Period(μ)
	final, err := p.Propagate(s0, J2000.Shift(2*T))
	if err != nil {
		t.Fatalf("propagation failed: %s", err)
	}
	if !scalar.EqualWithinAbs(final.Date.Sub(J2000), T/2, 1e-3) {
		t.Fatalf("stopped at %+f s instead of T/2=%f s", final.Date.Sub(J2000), T/2)
	}
	pv := final.PV(μ)
	if math.Abs(dot(pv.R, pv.V)) > 100 {
		t.Fatalf("R·V=%g at periapsis", dot(pv.R, pv.V))
	}
	if !scalar.EqualWithinAbs(norm(pv.R), 8e6*(1-0.2), 50) {
		t.Fatalf("periapsis radius %f", norm(pv.R))
	}
}

// recDetector records its own firing dates.
type recDetector struct {
	EventPolicy
	NoReset
	target Date
	log    *[]Date
}

func (d *recDetector) G(date Date, pv PVCoordinates, frame *Frame) (float64, error) {
	return date.Sub(d.target), nil
}

func (d *recDetector) EventOccurred(date Date, pv PVCoordinates, frame *Frame) (Action, error) {
	*d.log = append(*d.log, date)
	return Continue, nil
}

func TestEventOrdering(t *testing.T) {
	μ := Earth.GM()
	s0 := NewState(J2000, NewEquinoctial(7e6, 0, 0, 0, 0, 0, EME2000), 100)
	p := testPropagator(μ)
	var fired []Date
	// Registered in reverse chronological order on purpose.
	p.AddEventDetector(&recDetector{EventPolicy: DefaultEventPolicy(), target: J2000.Shift(130), log: &fired})
	p.AddEventDetector(&recDetector{EventPolicy: DefaultEventPolicy(), target: J2000.Shift(100), log: &fired})

	if _, err := p.Propagate(s0, J2000.Shift(600)); err != nil {
		t.Fatalf("propagation failed: %s", err)
	}
	if len(fired) != 2 {
		t.Fatalf("%d events fired instead of 2", len(fired))
	}
	if !fired[0].Before(fired[1]) {
		t.Fatalf("events fired out of chronological order: %s then %s", fired[0], fired[1])
	}
	if !scalar.EqualWithinAbs(fired[0].Sub(J2000), 100, 1e-3) {
		t.Fatalf("first event at %+f s", fired[0].Sub(J2000))
	}
	if !scalar.EqualWithinAbs(fired[1].Sub(J2000), 130, 1e-3) {
		t.Fatalf("second event at %+f s", fired[1].Sub(J2000))
	}
}

func TestImpulsiveBurnResetState(t *testing.T) {
	μ := Earth.GM()
	a0 := 7e6
	s0 := NewState(J2000, NewEquinoctial(a0, 0, 0, 0, 0, 0, EME2000), 1000.0)
	p := testPropagator(μ)
	burn := NewImpulsiveBurn(μ, NewDateDetector(J2000.Shift(500), Continue), [3]float64{10, 0, 0}, 300)
	p.AddForceModel(burn)

	final, err := p.Propagate(s0, J2000.Shift(1000))
	if err != nil {
		t.Fatalf("propagation failed: %s", err)
	}
	wantMass := 1000.0 * math.Exp(-10/(G0*300))
	if !scalar.EqualWithinAbs(final.Mass, wantMass, 1e-6) {
		t.Fatalf("mass %f instead of %f", final.Mass, wantMass)
	}
	// A 10 m/s prograde kick raises the semi-major axis by 2a²vΔv/μ.
	wantΔa := 2 * a0 * a0 * math.Sqrt(μ/a0) * 10 / μ
	if !scalar.EqualWithinAbs(final.Orbit.A()-a0, wantΔa, wantΔa*0.01) {
		t.Fatalf("Δa=%f instead of %f", final.Orbit.A()-a0, wantΔa)
	}
}

func TestDateDetectorStop(t *testing.T) {
	μ := Earth.GM()
	s0 := NewState(J2000, NewEquinoctial(7e6, 0, 0, 0, 0, 0, EME2000), 100)
	p := testPropagator(μ)
	p.AddEventDetector(NewDateDetector(J2000.Shift(314.159), Stop))
	final, err := p.Propagate(s0, J2000.Shift(3600))
	if err != nil {
		t.Fatalf("propagation failed: %s", err)
	}
	if !scalar.EqualWithinAbs(final.Date.Sub(J2000), 314.159, 1e-3) {
		t.Fatalf("stopped at %+f s", final.Date.Sub(J2000))
	}
}

func TestLongitudeDetector(t *testing.T) {
	μ := Earth.GM()
	o := NewEquinoctial(7e6, 0, 0, 0, 0, 0, EME2000)
	s0 := NewState(J2000, o, 100)
	p := testPropagator(μ)
	target := 1.0 // rad
	p.AddEventDetector(NewLongitudeDetector(μ, target, Stop))
	final, err := p.Propagate(s0, J2000.Shift(o.Period(μ)))
	if err != nil {
		t.Fatalf("propagation failed: %s", err)
	}
	// Circular orbit: Lv grows at the mean motion.
	wantT := target / o.MeanMotion(μ)
	if !scalar.EqualWithinAbs(final.Date.Sub(J2000), wantT, 1e-2) {
		t.Fatalf("stopped at %+f s instead of %f s", final.Date.Sub(J2000), wantT)
	}
	if !scalar.EqualWithinAbs(final.Orbit.Lv(), target, 1e-5) {
		t.Fatalf("Lv=%f", final.Orbit.Lv())
	}
}
