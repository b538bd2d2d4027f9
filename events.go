package odx

import (
	"fmt"
	"math"

	"github.com/astrionics/odx/integrator"
)

// propCtx is the propagation context: the value through which the
// derivative and event adapters rebuild the space dynamics view from
// the integrator's flat state vector. It also carries the sticky
// error slot: errors raised inside integrator callbacks are parked
// here and re-raised by the driver after clean unwinding.
type propCtx struct {
	p          *Propagator
	epoch      Date
	frame      *Frame
	adder      *GaussDerivatives
	extraNames []string
	extraIdx   map[string][2]int
	dim        int
	sticky     error
}

// newPropCtx lays out the state vector for the given initial state:
// the seven orbit and mass slots followed by the additional state
// arrays in deterministic name order.
func newPropCtx(p *Propagator, s0 State) *propCtx {
	ctx := &propCtx{p: p, epoch: s0.Date, frame: s0.Orbit.frame}
	ctx.extraNames = s0.extraNames()
	ctx.extraIdx = make(map[string][2]int, len(ctx.extraNames))
	offset := 7
	for _, name := range ctx.extraNames {
		n := len(s0.Extra[name])
		ctx.extraIdx[name] = [2]int{offset, n}
		offset += n
	}
	ctx.dim = offset
	ctx.adder = NewGaussDerivatives(p.μ)
	ctx.adder.extraIdx = ctx.extraIdx
	return ctx
}

// flatten maps a state to the integrator vector.
func (c *propCtx) flatten(s State) []float64 {
	y := make([]float64, c.dim)
	c.flattenInto(s, y)
	return y
}

func (c *propCtx) flattenInto(s State, y []float64) {
	o := s.Orbit
	y[0], y[1], y[2] = o.a, o.ex, o.ey
	y[3], y[4], y[5] = o.hx, o.hy, o.lv
	y[6] = s.Mass
	for name, span := range c.extraIdx {
		copy(y[span[0]:span[0]+span[1]], s.Extra[name])
	}
}

// unpack rebuilds the space dynamics view at time offset t.
func (c *propCtx) unpack(t float64, y []float64) (Date, Equinoctial, float64) {
	date := c.epoch.Shift(t)
	o := Equinoctial{a: y[0], ex: y[1], ey: y[2], hx: y[3], hy: y[4], lv: y[5], retro: 1, frame: c.frame}
	return date, o, y[6]
}

// rebuild converts the integrator vector back to a full state.
func (c *propCtx) rebuild(t float64, y []float64) State {
	date, o, mass := c.unpack(t, y)
	s := State{Date: date, Orbit: o, Mass: mass}
	if len(c.extraNames) > 0 {
		s.Extra = make(map[string][]float64, len(c.extraNames))
		for _, name := range c.extraNames {
			span := c.extraIdx[name]
			vals := make([]float64, span[1])
			copy(vals, y[span[0]:span[0]+span[1]])
			s.Extra[name] = vals
		}
	}
	return s
}

// setSticky parks the first error raised inside a callback.
func (c *propCtx) setSticky(err error, t float64, y []float64) error {
	if c.sticky == nil {
		yc := make([]float64, len(y))
		copy(yc, y)
		c.sticky = &PropagationError{Cause: err, T: t, Y: yc}
	}
	return c.sticky
}

// derivatives is the ODE system handed to the integrator: it rebuilds
// the equinoctial view, lets every force model push its contribution
// into the Gauss accumulator and finalizes with the Kepler term.
func (c *propCtx) derivatives(t float64, y, yDot []float64) error {
	if c.sticky != nil {
		return c.sticky
	}
	date, o, mass := c.unpack(t, y)
	if mass <= 0 {
		return c.setSticky(fmt.Errorf("spacecraft mass is non-positive (%g kg)", mass), t, y)
	}
	pv := o.PV(c.p.μ)
	c.adder.InitDerivatives(yDot, o)
	for _, fm := range c.p.forces {
		if err := fm.AddContribution(date, pv, c.frame, mass, c.adder); err != nil {
			return c.setSticky(err, t, y)
		}
		if err := c.adder.Err(); err != nil {
			c.adder.ClearErr()
			return c.setSticky(err, t, y)
		}
	}
	c.adder.AddKeplerContribution()
	return nil
}

// swfAdapter bridges one orbital switching function to the scalar
// over state-vector protocol of the integrator.
type swfAdapter struct {
	ctx *propCtx
	swf SwitchingFunction
}

// G implements the integrator.SwitchingFunction interface. A caught
// error parks in the sticky slot and yields NaN, which the integrator
// treats as a search failure.
func (ad *swfAdapter) G(t float64, y []float64) float64 {
	if ad.ctx.sticky != nil {
		return math.NaN()
	}
	date, o, _ := ad.ctx.unpack(t, y)
	g, err := ad.swf.G(date, o.PV(ad.ctx.p.μ), ad.ctx.frame)
	if err != nil {
		ad.ctx.setSticky(err, t, y)
		return math.NaN()
	}
	return g
}

// EventOccurred implements the integrator.SwitchingFunction interface
// and translates the orbital event action into the integrator action
// code: Continue→continue, Stop→stop, ResetDerivatives→recomputeF,
// ResetState→mutateY. The raw integrator codes are never exposed to
// force model authors.
func (ad *swfAdapter) EventOccurred(t float64, y []float64) integrator.Action {
	date, o, _ := ad.ctx.unpack(t, y)
	action, err := ad.swf.EventOccurred(date, o.PV(ad.ctx.p.μ), ad.ctx.frame)
	if err != nil {
		ad.ctx.setSticky(err, t, y)
		return integrator.ActionStop
	}
	ad.ctx.p.logger.Log("level", "info", "subsys", "events", "date", date, "action", action)
	switch action {
	case Continue:
		return integrator.ActionContinue
	case Stop:
		return integrator.ActionStop
	case ResetDerivatives:
		return integrator.ActionRecomputeF
	case ResetState:
		return integrator.ActionMutateY
	default:
		ad.ctx.setSticky(fmt.Errorf("unknown event action %d", action), t, y)
		return integrator.ActionStop
	}
}

// ResetState implements the integrator.SwitchingFunction interface:
// it applies the user mutator to the orbital state and re-flattens it
// into the integrator vector.
func (ad *swfAdapter) ResetState(t float64, y []float64) {
	s := ad.ctx.rebuild(t, y)
	if err := ad.swf.ResetState(&s); err != nil {
		ad.ctx.setSticky(err, t, y)
		return
	}
	if s.Orbit.frame != ad.ctx.frame {
		ad.ctx.setSticky(fmt.Errorf("state reset changed the reference frame"), t, y)
		return
	}
	ad.ctx.flattenInto(s, y)
}

// stepAdapter forwards native integrator steps to an orbital handler.
type stepAdapter struct {
	ctx     *propCtx
	handler StepHandler
}

// HandleStep implements the integrator.StepHandler interface.
func (sa *stepAdapter) HandleStep(interp integrator.StepInterpolator, isLast bool) error {
	buf := make([]float64, interp.Dim())
	interp.Interpolate(interp.CurrentTime(), buf)
	if err := sa.handler.HandleStep(sa.ctx.rebuild(interp.CurrentTime(), buf), isLast); err != nil {
		sa.ctx.setSticky(err, interp.CurrentTime(), buf)
		return err
	}
	return nil
}

// fixedAdapter forwards normalized fixed steps to an orbital handler.
type fixedAdapter struct {
	ctx     *propCtx
	handler FixedStepHandler
}

// Handle implements the integrator.FixedHandler interface.
func (fa *fixedAdapter) Handle(t float64, y []float64, isLast bool) error {
	if err := fa.handler.Handle(fa.ctx.rebuild(t, y), isLast); err != nil {
		fa.ctx.setSticky(err, t, y)
		return err
	}
	return nil
}

// historyAdapter streams each accepted step end state to the export
// channel.
type historyAdapter struct {
	ctx *propCtx
	ch  chan<- State
}

// HandleStep implements the integrator.StepHandler interface.
func (ha *historyAdapter) HandleStep(interp integrator.StepInterpolator, isLast bool) error {
	buf := make([]float64, interp.Dim())
	interp.Interpolate(interp.CurrentTime(), buf)
	ha.ch <- ha.ctx.rebuild(interp.CurrentTime(), buf)
	return nil
}
