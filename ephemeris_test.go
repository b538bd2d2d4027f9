package odx

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestEphemerisMidInterval(t *testing.T) {
	μ := Earth.GM()
	o := NewEquinoctialFromOE(7.2e6, 0.01, 51.6, 20, 45, 0, EME2000)
	s0 := NewState(J2000, o, 420.0)
	final := J2000.Shift(1000)

	p := testPropagator(μ)
	var eph Ephemeris
	fs, err := p.PropagateEphemeris(s0, final, &eph)
	if err != nil {
		t.Fatalf("propagation failed: %s", err)
	}
	if !eph.MinDate().Equal(J2000) || !eph.MaxDate().Equal(final) {
		t.Fatalf("ephemeris span [%s, %s]", eph.MinDate(), eph.MaxDate())
	}

	// Interior evaluation agrees with a propagation stopped there.
	mid := J2000.Shift(500)
	fromEph, err := eph.Evaluate(mid)
	if err != nil {
		t.Fatal(err)
	}
	direct, err := testPropagator(μ).Propagate(s0, mid)
	if err != nil {
		t.Fatal(err)
	}
	pvE := fromEph.PV(μ)
	pvD := direct.PV(μ)
	if !vectorsEqualWithin(pvE.R, pvD.R, 1.0) {
		t.Fatalf("mid-interval position:\n%+v\n%+v", pvE.R, pvD.R)
	}
	if !vectorsEqualWithin(pvE.V, pvD.V, 1e-3) {
		t.Fatalf("mid-interval velocity:\n%+v\n%+v", pvE.V, pvD.V)
	}

	// At the terminal sample the ephemeris reproduces the native state.
	atEnd, err := eph.Evaluate(final)
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(atEnd.Orbit.A(), fs.Orbit.A(), 1e-6) {
		t.Fatalf("terminal a: %f != %f", atEnd.Orbit.A(), fs.Orbit.A())
	}
	if !scalar.EqualWithinAbs(atEnd.Mass, fs.Mass, 1e-12) {
		t.Fatal("terminal mass mismatch")
	}
}

func TestEphemerisIdempotent(t *testing.T) {
	μ := Earth.GM()
	s0 := NewState(J2000, NewEquinoctial(7e6, 0, 0, 0, 0, 0, EME2000), 100)
	p := testPropagator(μ)
	var eph Ephemeris
	if _, err := p.PropagateEphemeris(s0, J2000.Shift(1000), &eph); err != nil {
		t.Fatal(err)
	}
	d := J2000.Shift(123.456)
	s1, err := eph.Evaluate(d)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := eph.Evaluate(d)
	if err != nil {
		t.Fatal(err)
	}
	if s1.Orbit != s2.Orbit || s1.Mass != s2.Mass {
		t.Fatal("evaluation is not idempotent")
	}
}

func TestEphemerisContinuity(t *testing.T) {
	μ := Earth.GM()
	s0 := NewState(J2000, NewEquinoctialFromOE(8e6, 0.1, 30, 0, 0, 0, EME2000), 100)
	p := testPropagator(μ)
	var eph Ephemeris
	if _, err := p.PropagateEphemeris(s0, J2000.Shift(2000), &eph); err != nil {
		t.Fatal(err)
	}
	// March across the whole span: consecutive evaluations must never
	// jump by more than the local velocity allows.
	prev, err := eph.Evaluate(J2000)
	if err != nil {
		t.Fatal(err)
	}
	const dt = 1.0
	vMax := 2 * norm(prev.PV(μ).V)
	for tt := dt; tt <= 2000; tt += dt {
		cur, err := eph.Evaluate(J2000.Shift(tt))
		if err != nil {
			t.Fatalf("evaluate at %f: %s", tt, err)
		}
		jump := 0.0
		pvP, pvC := prev.PV(μ), cur.PV(μ)
		for i := 0; i < 3; i++ {
			d := pvC.R[i] - pvP.R[i]
			jump += d * d
		}
		if j := math.Sqrt(jump); j > vMax*dt {
			t.Fatalf("discontinuity at t=%f: jump %f m", tt, j)
		}
		prev = cur
	}
}

func TestEphemerisOutOfRange(t *testing.T) {
	μ := Earth.GM()
	s0 := NewState(J2000, NewEquinoctial(7e6, 0, 0, 0, 0, 0, EME2000), 100)
	p := testPropagator(μ)
	var eph Ephemeris
	if _, err := p.PropagateEphemeris(s0, J2000.Shift(1000), &eph); err != nil {
		t.Fatal(err)
	}
	var oor *OutOfRangeError
	if _, err := eph.Evaluate(J2000.Shift(-1)); !errors.As(err, &oor) {
		t.Fatalf("expected OutOfRangeError before the span, got %v", err)
	}
	if _, err := eph.Evaluate(J2000.Shift(1001)); !errors.As(err, &oor) {
		t.Fatalf("expected OutOfRangeError after the span, got %v", err)
	}
}

func TestEphemerisBackward(t *testing.T) {
	μ := Earth.GM()
	s0 := NewState(J2000, NewEquinoctial(7e6, 0, 0, 0, 0, 0, EME2000), 100)
	p := testPropagator(μ)
	var eph Ephemeris
	if _, err := p.PropagateEphemeris(s0, J2000.Shift(-800), &eph); err != nil {
		t.Fatal(err)
	}
	if !eph.MinDate().Equal(J2000.Shift(-800)) || !eph.MaxDate().Equal(J2000) {
		t.Fatalf("backward span [%s, %s]", eph.MinDate(), eph.MaxDate())
	}
	if _, err := eph.Evaluate(J2000.Shift(-400)); err != nil {
		t.Fatalf("interior evaluation failed: %s", err)
	}
}
