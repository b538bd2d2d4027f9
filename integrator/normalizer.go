package integrator

import (
	"math"
)

// StepNormalizer resamples the variable step output of an integrator
// at equally spaced instants and forwards them to a FixedHandler. The
// initial point is always emitted, and the final integration point is
// emitted with isLast set even when it does not fall on the grid.
type StepNormalizer struct {
	h       float64
	handler FixedHandler
	base    float64
	count   int
	started bool
	done    bool
}

// NewStepNormalizer returns a normalizer emitting every h seconds. The
// step is a magnitude, direction follows the integration.
func NewStepNormalizer(h float64, handler FixedHandler) *StepNormalizer {
	if h <= 0 {
		panic("config StepSize must be positive")
	}
	if handler == nil {
		panic("config FixedHandler may not be nil")
	}
	return &StepNormalizer{h: h, handler: handler}
}

// HandleStep implements the StepHandler interface.
func (sn *StepNormalizer) HandleStep(interp StepInterpolator, isLast bool) error {
	t0, t1 := interp.PreviousTime(), interp.CurrentTime()
	dir := sgn(t1 - t0)
	if !sn.started {
		sn.started = true
		sn.base = t0
		sn.count = 0
	}
	buf := make([]float64, interp.Dim())
	for {
		next := sn.base + float64(sn.count)*sn.h*dir
		if (next-t1)*dir > 1e-9 {
			break
		}
		interp.Interpolate(next, buf)
		last := isLast && math.Abs(next-t1) <= 1e-9
		if err := sn.handler.Handle(next, buf, last); err != nil {
			return err
		}
		sn.count++
		if last {
			sn.done = true
		}
	}
	if isLast && !sn.done {
		interp.Interpolate(t1, buf)
		sn.done = true
		return sn.handler.Handle(t1, buf, true)
	}
	return nil
}
