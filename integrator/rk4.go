package integrator

import (
	"math"
)

// RK4 is a fixed step fourth-order Runge-Kutta integrator. It shares
// the dense output, step handler and switching function machinery of
// the adaptive integrator but performs no error control.
type RK4 struct {
	stepCore
	step float64
}

// NewRK4 returns a new fixed step integrator. The step size is a
// magnitude, direction is inferred from the integration interval.
func NewRK4(step float64) *RK4 {
	if step <= 0 {
		panic("config StepSize must be positive")
	}
	return &RK4{step: step}
}

// Integrate implements the Integrator interface.
func (r *RK4) Integrate(sys System, t0 float64, y []float64, t1 float64) (float64, error) {
	if sys == nil {
		panic("config System may not be nil")
	}
	dir := sgn(t1 - t0)
	if dir == 0 {
		return t0, nil
	}
	n := len(y)
	k1 := make([]float64, n)
	k2 := make([]float64, n)
	k3 := make([]float64, n)
	k4 := make([]float64, n)
	yTmp := make([]float64, n)
	yNew := make([]float64, n)
	fNew := make([]float64, n)

	if err := r.primeEvents(t0, y); err != nil {
		return t0, err
	}

	t := t0
	for {
		h := r.step * dir
		last := false
		if (t+h-t1)*dir >= 0 {
			h = t1 - t
			last = true
		}

		if err := sys(t, y, k1); err != nil {
			return t, newError("derivative computation failed", t, y, err)
		}
		for i := 0; i < n; i++ {
			yTmp[i] = y[i] + 0.5*h*k1[i]
		}
		if err := sys(t+0.5*h, yTmp, k2); err != nil {
			return t, newError("derivative computation failed", t+0.5*h, yTmp, err)
		}
		for i := 0; i < n; i++ {
			yTmp[i] = y[i] + 0.5*h*k2[i]
		}
		if err := sys(t+0.5*h, yTmp, k3); err != nil {
			return t, newError("derivative computation failed", t+0.5*h, yTmp, err)
		}
		for i := 0; i < n; i++ {
			yTmp[i] = y[i] + h*k3[i]
		}
		if err := sys(t+h, yTmp, k4); err != nil {
			return t, newError("derivative computation failed", t+h, yTmp, err)
		}
		for i := 0; i < n; i++ {
			yNew[i] = y[i] + h*(k1[i]+2*k2[i]+2*k3[i]+k4[i])/6
			if math.IsNaN(yNew[i]) || math.IsInf(yNew[i], 0) {
				return t, newError("non-finite derivative", t, y, nil)
			}
		}
		if err := sys(t+h, yNew, fNew); err != nil {
			return t, newError("derivative computation failed", t+h, yNew, err)
		}

		tNext := t + h
		if last {
			tNext = t1
		}
		interp := NewHermiteInterpolator(t, tNext, y, yNew, k1, fNew)

		hit, err := r.scanStep(interp)
		if err != nil {
			return t, err
		}
		if hit != nil {
			tE, stop, err := r.handleEvent(sys, hit, interp, y, last)
			if err != nil {
				return tE, err
			}
			t = tE
			if stop || (t-t1)*dir >= 0 {
				return t, nil
			}
			continue
		}

		if r.handler != nil {
			if err := r.handler.HandleStep(interp, last); err != nil {
				return t, newError("step handler failed", t+h, yNew, err)
			}
		}
		t = tNext
		copy(y, yNew)
		if last {
			return t, nil
		}
	}
}

// handleEvent mirrors the adaptive integrator's event processing.
func (r *RK4) handleEvent(sys System, hit *eventHit, interp *HermiteInterpolator, y []float64, wasLast bool) (float64, bool, error) {
	tE := hit.t
	yE := make([]float64, len(y))
	interp.Interpolate(tE, yE)
	fEvt := make([]float64, len(y))
	if err := sys(tE, yE, fEvt); err != nil {
		return tE, false, newError("derivative computation failed", tE, yE, err)
	}

	action := hit.ev.sf.EventOccurred(tE, yE)
	stop := action == ActionStop
	if r.handler != nil {
		trunc := NewHermiteInterpolator(interp.T0, tE, interp.Y0, yE, interp.F0, fEvt)
		lastStep := stop || (wasLast && tE == interp.T1)
		if err := r.handler.HandleStep(trunc, lastStep); err != nil {
			return tE, false, newError("step handler failed", tE, yE, err)
		}
	}
	copy(y, yE)
	hit.ev.sign = sgn(hit.after)
	if action == ActionMutateY {
		hit.ev.sf.ResetState(tE, y)
		// Mutating y invalidates the stored signs of every detector,
		// including the one which fired.
		if err := r.primeEvents(tE, y); err != nil {
			return tE, false, err
		}
	}
	return tE, stop, nil
}
