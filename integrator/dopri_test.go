package integrator

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func expSys(t float64, y, yDot []float64) error {
	yDot[0] = y[0]
	return nil
}

func harmonicSys(t float64, y, yDot []float64) error {
	yDot[0] = y[1]
	yDot[1] = -y[0]
	return nil
}

func TestDP54Exponential(t *testing.T) {
	dp := NewDormandPrince54(1e-8, 1.0, 1e-12, 1e-12)
	y := []float64{1}
	tEnd, err := dp.Integrate(expSys, 0, y, 1)
	if err != nil {
		t.Fatalf("integration failed: %s", err)
	}
	if tEnd != 1 {
		t.Fatalf("tEnd=%f instead of 1", tEnd)
	}
	if !scalar.EqualWithinAbs(y[0], math.E, 1e-8) {
		t.Fatalf("y=%.12f instead of e", y[0])
	}
}

func TestDP54Backward(t *testing.T) {
	dp := NewDormandPrince54(1e-8, 1.0, 1e-12, 1e-12)
	y := []float64{math.E}
	tEnd, err := dp.Integrate(expSys, 1, y, 0)
	if err != nil {
		t.Fatalf("integration failed: %s", err)
	}
	if tEnd != 0 {
		t.Fatalf("tEnd=%f instead of 0", tEnd)
	}
	if !scalar.EqualWithinAbs(y[0], 1, 1e-8) {
		t.Fatalf("y=%.12f instead of 1", y[0])
	}
}

type denseChecker struct {
	t    *testing.T
	prev float64
	set  bool
}

func (dc *denseChecker) HandleStep(interp StepInterpolator, isLast bool) error {
	if dc.set && interp.PreviousTime() != dc.prev {
		dc.t.Fatalf("steps not contiguous: %f != %f", interp.PreviousTime(), dc.prev)
	}
	mid := 0.5 * (interp.PreviousTime() + interp.CurrentTime())
	y := make([]float64, interp.Dim())
	interp.Interpolate(mid, y)
	if !scalar.EqualWithinAbs(y[0], math.Sin(mid), 1e-6) {
		dc.t.Fatalf("dense output off at t=%f: %.9f != %.9f", mid, y[0], math.Sin(mid))
	}
	dc.prev = interp.CurrentTime()
	dc.set = true
	return nil
}

func TestDP54DenseOutput(t *testing.T) {
	dp := NewDormandPrince54(1e-8, 0.5, 1e-10, 1e-10)
	dp.SetStepHandler(&denseChecker{t: t})
	y := []float64{0, 1} // sin solution
	if _, err := dp.Integrate(harmonicSys, 0, y, 10); err != nil {
		t.Fatalf("integration failed: %s", err)
	}
	if !scalar.EqualWithinAbs(y[0], math.Sin(10), 1e-7) {
		t.Fatalf("y=%.12f instead of sin(10)=%.12f", y[0], math.Sin(10))
	}
}

type thresholdStop struct {
	level float64
	fired []float64
	act   Action
}

func (s *thresholdStop) G(t float64, y []float64) float64 {
	return y[0] - s.level
}

func (s *thresholdStop) EventOccurred(t float64, y []float64) Action {
	s.fired = append(s.fired, t)
	return s.act
}

func (s *thresholdStop) ResetState(t float64, y []float64) {}

func TestDP54EventStop(t *testing.T) {
	dp := NewDormandPrince54(1e-8, 1.0, 1e-12, 1e-12)
	sf := &thresholdStop{level: 0.5, act: ActionStop}
	dp.AddSwitchingFunction(sf, 0.1, 1e-9, 100)
	y := []float64{0}
	tEnd, err := dp.Integrate(func(_ float64, _, yDot []float64) error {
		yDot[0] = 1
		return nil
	}, 0, y, 2)
	if err != nil {
		t.Fatalf("integration failed: %s", err)
	}
	if !scalar.EqualWithinAbs(tEnd, 0.5, 1e-6) {
		t.Fatalf("stopped at t=%.9f instead of 0.5", tEnd)
	}
	if !scalar.EqualWithinAbs(y[0], 0.5, 1e-6) {
		t.Fatalf("y=%.9f instead of 0.5", y[0])
	}
	if len(sf.fired) != 1 {
		t.Fatalf("event fired %d times", len(sf.fired))
	}
}

func TestDP54EventContinue(t *testing.T) {
	dp := NewDormandPrince54(1e-8, 1.0, 1e-12, 1e-12)
	sf := &thresholdStop{level: 0.5, act: ActionContinue}
	dp.AddSwitchingFunction(sf, 0.1, 1e-9, 100)
	y := []float64{0}
	tEnd, err := dp.Integrate(func(_ float64, _, yDot []float64) error {
		yDot[0] = 1
		return nil
	}, 0, y, 2)
	if err != nil {
		t.Fatalf("integration failed: %s", err)
	}
	if tEnd != 2 {
		t.Fatalf("tEnd=%f instead of 2", tEnd)
	}
	if len(sf.fired) != 1 {
		t.Fatalf("event fired %d times instead of once", len(sf.fired))
	}
	if !scalar.EqualWithinAbs(sf.fired[0], 0.5, 1e-6) {
		t.Fatalf("event at t=%.9f instead of 0.5", sf.fired[0])
	}
}

type sawtoothReset struct {
	fired int
}

func (s *sawtoothReset) G(t float64, y []float64) float64 {
	return y[0] - 0.5
}

func (s *sawtoothReset) EventOccurred(t float64, y []float64) Action {
	s.fired++
	return ActionMutateY
}

func (s *sawtoothReset) ResetState(t float64, y []float64) {
	y[0] = 0
}

func TestDP54EventResetState(t *testing.T) {
	dp := NewDormandPrince54(1e-8, 1.0, 1e-12, 1e-12)
	sf := &sawtoothReset{}
	dp.AddSwitchingFunction(sf, 0.05, 1e-9, 100)
	y := []float64{0}
	tEnd, err := dp.Integrate(func(_ float64, _, yDot []float64) error {
		yDot[0] = 1
		return nil
	}, 0, y, 1.8)
	if err != nil {
		t.Fatalf("integration failed: %s", err)
	}
	if tEnd != 1.8 {
		t.Fatalf("tEnd=%f instead of 1.8", tEnd)
	}
	// Resets at 0.5, 1.0 and 1.5; the state restarts from zero each time.
	if sf.fired != 3 {
		t.Fatalf("event fired %d times instead of 3", sf.fired)
	}
	if !scalar.EqualWithinAbs(y[0], 0.3, 1e-6) {
		t.Fatalf("y=%.9f instead of 0.3", y[0])
	}
}

type orderRecorder struct {
	level float64
	log   *[]float64
}

func (o *orderRecorder) G(t float64, y []float64) float64 {
	return y[0] - o.level
}

func (o *orderRecorder) EventOccurred(t float64, y []float64) Action {
	*o.log = append(*o.log, t)
	return ActionContinue
}

func (o *orderRecorder) ResetState(t float64, y []float64) {}

func TestDP54EventOrdering(t *testing.T) {
	dp := NewDormandPrince54(1e-8, 10.0, 1e-12, 1e-12)
	var fired []float64
	// Registered out of chronological order on purpose.
	dp.AddSwitchingFunction(&orderRecorder{level: 0.7, log: &fired}, 1.0, 1e-9, 100)
	dp.AddSwitchingFunction(&orderRecorder{level: 0.3, log: &fired}, 1.0, 1e-9, 100)
	y := []float64{0}
	if _, err := dp.Integrate(func(_ float64, _, yDot []float64) error {
		yDot[0] = 1
		return nil
	}, 0, y, 1); err != nil {
		t.Fatalf("integration failed: %s", err)
	}
	if len(fired) != 2 {
		t.Fatalf("fired %d events instead of 2", len(fired))
	}
	if fired[0] > fired[1] {
		t.Fatalf("events fired out of order: %v", fired)
	}
	if !scalar.EqualWithinAbs(fired[0], 0.3, 1e-6) || !scalar.EqualWithinAbs(fired[1], 0.7, 1e-6) {
		t.Fatalf("event times %v instead of [0.3 0.7]", fired)
	}
}

func TestDP54MinStepUnderflow(t *testing.T) {
	dp := NewDormandPrince54(1e-3, 1.0, 1e-14, 1e-14)
	y := []float64{1}
	// A fast exponential growth the tolerance cannot follow at the
	// minimal step, while every stage stays finite.
	_, err := dp.Integrate(func(_ float64, y, yDot []float64) error {
		yDot[0] = 1e8 * y[0]
		return nil
	}, 0, y, 1)
	if err == nil {
		t.Fatal("expected a step size underflow error")
	}
	if _, ok := err.(*Error); !ok {
		t.Fatalf("error is not an integrator.Error: %T", err)
	}
}

func TestDP54NaNSwitchingFunction(t *testing.T) {
	dp := NewDormandPrince54(1e-8, 1.0, 1e-10, 1e-10)
	dp.AddSwitchingFunction(&nanSwf{}, 0.1, 1e-9, 100)
	y := []float64{0}
	if _, err := dp.Integrate(func(_ float64, _, yDot []float64) error {
		yDot[0] = 1
		return nil
	}, 0, y, 1); err == nil {
		t.Fatal("expected a NaN search failure")
	}
}

type nanSwf struct{}

func (nanSwf) G(t float64, y []float64) float64 {
	if t > 0.2 {
		return math.NaN()
	}
	return -1
}

func (nanSwf) EventOccurred(t float64, y []float64) Action { return ActionContinue }

func (nanSwf) ResetState(t float64, y []float64) {}

func assertPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic")
		}
	}()
	f()
}

func TestDP54Config(t *testing.T) {
	assertPanic(t, func() { NewDormandPrince54(0, 1, 1e-6, 1e-6) })
	assertPanic(t, func() { NewDormandPrince54(1, 1, 1e-6, 1e-6) })
	assertPanic(t, func() { NewDormandPrince54(1e-6, 1, 0, 1e-6) })
}
