package integrator

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestRK4Quadrature(t *testing.T) {
	r := NewRK4(0.1)
	y := []float64{0}
	tEnd, err := r.Integrate(func(x float64, _, yDot []float64) error {
		yDot[0] = 3 * x * x
		return nil
	}, 0, y, 2)
	if err != nil {
		t.Fatalf("integration failed: %s", err)
	}
	if tEnd != 2 {
		t.Fatalf("tEnd=%f instead of 2", tEnd)
	}
	// RK4 integrates cubics exactly up to roundoff.
	if !scalar.EqualWithinAbs(y[0], 8, 1e-10) {
		t.Fatalf("y=%.12f instead of 8", y[0])
	}
}

func TestRK4Harmonic(t *testing.T) {
	r := NewRK4(0.01)
	y := []float64{0, 1}
	if _, err := r.Integrate(harmonicSys, 0, y, math.Pi); err != nil {
		t.Fatalf("integration failed: %s", err)
	}
	if !scalar.EqualWithinAbs(y[0], 0, 1e-8) || !scalar.EqualWithinAbs(y[1], -1, 1e-8) {
		t.Fatalf("y=%+v instead of [0 -1]", y)
	}
}

func TestRK4Backward(t *testing.T) {
	r := NewRK4(0.05)
	y := []float64{math.E}
	if _, err := r.Integrate(expSys, 1, y, 0); err != nil {
		t.Fatalf("integration failed: %s", err)
	}
	if !scalar.EqualWithinAbs(y[0], 1, 1e-7) {
		t.Fatalf("y=%.12f instead of 1", y[0])
	}
}

func TestRK4EventStop(t *testing.T) {
	r := NewRK4(0.25)
	sf := &thresholdStop{level: 0.6, act: ActionStop}
	r.AddSwitchingFunction(sf, 0.1, 1e-9, 100)
	y := []float64{0}
	tEnd, err := r.Integrate(func(_ float64, _, yDot []float64) error {
		yDot[0] = 1
		return nil
	}, 0, y, 3)
	if err != nil {
		t.Fatalf("integration failed: %s", err)
	}
	if !scalar.EqualWithinAbs(tEnd, 0.6, 1e-6) {
		t.Fatalf("stopped at t=%.9f instead of 0.6", tEnd)
	}
}

func TestRK4Config(t *testing.T) {
	assertPanic(t, func() { NewRK4(0) })
	assertPanic(t, func() { NewRK4(-1) })
}

type countingFixed struct {
	times []float64
	lasts []bool
}

func (cf *countingFixed) Handle(t float64, y []float64, isLast bool) error {
	cf.times = append(cf.times, t)
	cf.lasts = append(cf.lasts, isLast)
	return nil
}

func TestStepNormalizer(t *testing.T) {
	dp := NewDormandPrince54(1e-8, 3.0, 1e-10, 1e-10)
	cf := &countingFixed{}
	dp.SetStepHandler(NewStepNormalizer(1.0, cf))
	y := []float64{0}
	if _, err := dp.Integrate(func(_ float64, _, yDot []float64) error {
		yDot[0] = 1
		return nil
	}, 0, y, 10); err != nil {
		t.Fatalf("integration failed: %s", err)
	}
	if len(cf.times) != 11 {
		t.Fatalf("handler called %d times instead of 11", len(cf.times))
	}
	for k, tk := range cf.times {
		if !scalar.EqualWithinAbs(tk, float64(k), 1e-9) {
			t.Fatalf("sample %d at t=%.12f", k, tk)
		}
		if cf.lasts[k] != (k == 10) {
			t.Fatalf("isLast wrong at sample %d", k)
		}
	}
}

func TestStepNormalizerOffGrid(t *testing.T) {
	dp := NewDormandPrince54(1e-8, 3.0, 1e-10, 1e-10)
	cf := &countingFixed{}
	dp.SetStepHandler(NewStepNormalizer(1.0, cf))
	y := []float64{0}
	if _, err := dp.Integrate(func(_ float64, _, yDot []float64) error {
		yDot[0] = 1
		return nil
	}, 0, y, 9.5); err != nil {
		t.Fatalf("integration failed: %s", err)
	}
	// Grid points 0..9 plus the final off-grid point.
	if len(cf.times) != 11 {
		t.Fatalf("handler called %d times instead of 11", len(cf.times))
	}
	if !scalar.EqualWithinAbs(cf.times[10], 9.5, 1e-9) || !cf.lasts[10] {
		t.Fatalf("final sample wrong: t=%f isLast=%v", cf.times[10], cf.lasts[10])
	}
}
