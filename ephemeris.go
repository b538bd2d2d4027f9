package odx

import (
	"sort"

	"github.com/astrionics/odx/integrator"
)

// Ephemeris is the dense output of one propagation: the per-step
// Hermite segments produced by the integrator, evaluable at any date
// of the integration interval. It is immutable once the propagation
// that filled it has completed.
type Ephemeris struct {
	segs       []*integrator.HermiteInterpolator
	epoch      Date
	frame      *Frame
	μ          float64
	extraNames []string
	extraIdx   map[string][2]int
	tMin, tMax float64
	forward    bool
}

// ephemerisCollector accumulates the step interpolators during the
// integration.
type ephemerisCollector struct {
	segments []*integrator.HermiteInterpolator
}

// HandleStep implements the integrator.StepHandler interface.
func (ec *ephemerisCollector) HandleStep(interp integrator.StepInterpolator, isLast bool) error {
	h, ok := interp.(*integrator.HermiteInterpolator)
	if !ok {
		return nil
	}
	ec.segments = append(ec.segments, integrator.NewHermiteInterpolator(h.T0, h.T1, h.Y0, h.Y1, h.F0, h.F1))
	return nil
}

// initialize binds the collected segments to the orbital view. Called
// by the propagator once the integration has completed.
func (e *Ephemeris) initialize(segs []*integrator.HermiteInterpolator, epoch Date, frame *Frame, μ float64, extraNames []string, extraIdx map[string][2]int) {
	e.segs = segs
	e.epoch = epoch
	e.frame = frame
	e.μ = μ
	e.extraNames = extraNames
	e.extraIdx = extraIdx
	e.forward = true
	if len(segs) == 0 {
		e.tMin, e.tMax = 0, 0
		return
	}
	t0 := segs[0].T0
	t1 := segs[len(segs)-1].T1
	if t1 >= t0 {
		e.tMin, e.tMax = t0, t1
	} else {
		e.tMin, e.tMax = t1, t0
		e.forward = false
	}
}

// MinDate returns the inclusive lower bound of the ephemeris span.
func (e *Ephemeris) MinDate() Date {
	return e.epoch.Shift(e.tMin)
}

// MaxDate returns the inclusive upper bound of the ephemeris span.
func (e *Ephemeris) MaxDate() Date {
	return e.epoch.Shift(e.tMax)
}

// Evaluate reconstructs the state at any date within the span. It
// fails with an OutOfRangeError outside it. Evaluation is pure: two
// calls with the same date return the same state.
func (e *Ephemeris) Evaluate(date Date) (State, error) {
	t := date.Sub(e.epoch)
	const slack = 1e-9
	if len(e.segs) == 0 || t < e.tMin-slack || t > e.tMax+slack {
		return State{}, &OutOfRangeError{Date: date, Min: e.MinDate(), Max: e.MaxDate()}
	}
	// Locate the first segment whose far end covers t.
	var idx int
	if e.forward {
		idx = sort.Search(len(e.segs), func(i int) bool { return e.segs[i].T1 >= t })
	} else {
		idx = sort.Search(len(e.segs), func(i int) bool { return e.segs[i].T1 <= t })
	}
	if idx == len(e.segs) {
		idx = len(e.segs) - 1
	}
	seg := e.segs[idx]
	y := make([]float64, seg.Dim())
	seg.Interpolate(t, y)

	o := Equinoctial{a: y[0], ex: y[1], ey: y[2], hx: y[3], hy: y[4], lv: y[5], retro: 1, frame: e.frame}
	s := State{Date: date, Orbit: o, Mass: y[6]}
	if len(e.extraNames) > 0 {
		s.Extra = make(map[string][]float64, len(e.extraNames))
		for _, name := range e.extraNames {
			span := e.extraIdx[name]
			vals := make([]float64, span[1])
			copy(vals, y[span[0]:span[0]+span[1]])
			s.Extra[name] = vals
		}
	}
	return s, nil
}
