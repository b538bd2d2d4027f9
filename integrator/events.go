package integrator

import (
	"math"
)

// eventState tracks one registered switching function across steps.
type eventState struct {
	sf        SwitchingFunction
	maxCheck  float64
	threshold float64
	maxIter   int
	sign      float64
}

// stepCore carries the parts shared by all concrete integrators:
// the step handler and the switching function bookkeeping.
type stepCore struct {
	handler StepHandler
	events  []*eventState
}

// AddSwitchingFunction implements the Integrator interface.
func (c *stepCore) AddSwitchingFunction(sf SwitchingFunction, maxCheck, threshold float64, maxIter int) {
	if sf == nil {
		panic("config SwitchingFunction may not be nil")
	}
	if maxCheck <= 0 || threshold <= 0 {
		panic("config maxCheck and threshold must be positive")
	}
	if maxIter <= 0 {
		maxIter = 100
	}
	c.events = append(c.events, &eventState{sf: sf, maxCheck: maxCheck, threshold: threshold, maxIter: maxIter})
}

// ClearSwitchingFunctions implements the Integrator interface.
func (c *stepCore) ClearSwitchingFunctions() {
	c.events = nil
}

// SetStepHandler implements the Integrator interface.
func (c *stepCore) SetStepHandler(handler StepHandler) {
	c.handler = handler
}

// primeEvents evaluates the sign of every detector at the start point.
func (c *stepCore) primeEvents(t float64, y []float64) error {
	for _, ev := range c.events {
		g := ev.sf.G(t, y)
		if math.IsNaN(g) {
			return newError("switching function returned NaN", t, y, nil)
		}
		ev.sign = sgn(g)
	}
	return nil
}

// eventHit is a located root, candidate for the earliest event of a step.
type eventHit struct {
	ev    *eventState
	t     float64
	after float64 // g value just past the root, carries the new sign
}

// scanStep samples every detector across the accepted step and locates
// the chronologically first root, ties going to the earliest
// registered detector. Returns nil when no detector fired.
func (c *stepCore) scanStep(interp StepInterpolator) (*eventHit, error) {
	if len(c.events) == 0 {
		return nil, nil
	}
	t0, t1 := interp.PreviousTime(), interp.CurrentTime()
	dir := sgn(t1 - t0)
	span := math.Abs(t1 - t0)
	buf := make([]float64, interp.Dim())
	var best *eventHit
	for _, ev := range c.events {
		n := int(math.Ceil(span/ev.maxCheck))
		if n < 1 {
			n = 1
		}
		ta, ga := t0, ev.sign
		for i := 1; i <= n; i++ {
			tb := t0 + float64(i)*(t1-t0)/float64(n)
			interp.Interpolate(tb, buf)
			gb := ev.sf.G(tb, buf)
			if math.IsNaN(gb) {
				return nil, newError("switching function returned NaN", tb, buf, nil)
			}
			if ga != 0 && sgn(gb) != 0 && sgn(gb) != ga {
				tE, gAfter, err := bisect(ev, interp, ta, ga, tb, gb, buf)
				if err != nil {
					return nil, err
				}
				if best == nil || (tE-best.t)*dir < 0 {
					best = &eventHit{ev: ev, t: tE, after: gAfter}
				}
				break
			}
			ta, ga = tb, sgn(gb)
		}
	}
	return best, nil
}

// bisect narrows the sign change of ev within [ta, tb] down to the
// detector threshold. Returns the root estimate on the far side of the
// sign change so the detector does not immediately re-trigger.
func bisect(ev *eventState, interp StepInterpolator, ta, ga, tb, gb float64, buf []float64) (float64, float64, error) {
	for i := 0; math.Abs(tb-ta) > ev.threshold; i++ {
		if i >= ev.maxIter {
			return 0, 0, newError("root search did not converge", tb, buf, nil)
		}
		tm := 0.5 * (ta + tb)
		interp.Interpolate(tm, buf)
		gm := ev.sf.G(tm, buf)
		if math.IsNaN(gm) {
			return 0, 0, newError("switching function returned NaN", tm, buf, nil)
		}
		if sgn(gm) == ga && sgn(gm) != 0 {
			ta = tm
		} else {
			tb, gb = tm, gm
		}
	}
	return tb, gb, nil
}
