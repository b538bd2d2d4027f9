// Package odx propagates spacecraft orbits numerically: equinoctial
// elements, Gauss variation-of-parameters derivatives, pluggable force
// models and switching function event detection over an adaptive
// Runge-Kutta integration with dense output.
package odx

import (
	"fmt"
	"math"
	"os"
	"sync"

	kitlog "github.com/go-kit/kit/log"

	"github.com/astrionics/odx/integrator"
)

// StepHandler is called after each successful integrator step with the
// state at the end of the step. A non nil error aborts the propagation.
type StepHandler interface {
	HandleStep(s State, isLast bool) error
}

// FixedStepHandler is called at equally spaced instants regardless of
// the internal integrator step size.
type FixedStepHandler interface {
	Handle(s State, isLast bool) error
}

type propStatus uint8

const (
	statusIdle propStatus = iota
	statusRunning
)

// Propagator integrates the spacecraft state under a pluggable set of
// force models. It owns its integrator and its derivatives accumulator;
// distinct instances are independent and may run concurrently, but a
// single instance must not be shared while a propagation is in flight.
type Propagator struct {
	μ         float64
	integ     integrator.Integrator
	forces    []ForceModel
	detectors []SwitchingFunction
	logger    kitlog.Logger
	status    propStatus
	export    *ExportConfig
	wg        sync.WaitGroup
}

// NewPropagator returns a propagator around the provided integrator.
// With no force model added, the integrated orbit follows a Keplerian
// evolution only.
func NewPropagator(μ float64, integ integrator.Integrator) *Propagator {
	if μ <= 0 {
		panic("config μ must be positive")
	}
	if integ == nil {
		panic("config Integrator may not be nil")
	}
	return &Propagator{μ: μ, integ: integ,
		logger: kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))}
}

// NewDefaultPropagator returns a propagator around an adaptive
// Dormand-Prince 5(4) integrator tuned from the configuration file, or
// its defaults.
func NewDefaultPropagator(μ float64) *Propagator {
	cfg := odxConfig()
	return NewPropagator(μ, integrator.NewDormandPrince54(cfg.minStep, cfg.maxStep, cfg.absTol, cfg.relTol))
}

// SetLogger replaces the propagation logger. A nil logger disables
// logging.
func (p *Propagator) SetLogger(l kitlog.Logger) {
	if l == nil {
		l = kitlog.NewNopLogger()
	}
	p.logger = l
}

// SetExport enables streaming of the propagated states per the export
// configuration. Streaming starts at the next Propagate call.
func (p *Propagator) SetExport(conf ExportConfig) {
	p.export = &conf
}

// AddForceModel registers a perturbing force and its switching
// functions. Only allowed while no propagation is in flight.
func (p *Propagator) AddForceModel(model ForceModel) {
	if p.status != statusIdle {
		panic("cannot add a force model during a propagation")
	}
	if model == nil {
		panic("config ForceModel may not be nil")
	}
	p.forces = append(p.forces, model)
}

// AddEventDetector registers a standalone switching function not tied
// to any force model. Only allowed while no propagation is in flight.
func (p *Propagator) AddEventDetector(sf SwitchingFunction) {
	if p.status != statusIdle {
		panic("cannot add an event detector during a propagation")
	}
	if sf == nil {
		panic("config SwitchingFunction may not be nil")
	}
	p.detectors = append(p.detectors, sf)
}

// RemoveAllForceModels drops every registered force model and event
// detector. The propagation falls back to Keplerian evolution.
func (p *Propagator) RemoveAllForceModels() {
	if p.status != statusIdle {
		panic("cannot remove force models during a propagation")
	}
	p.forces = nil
	p.detectors = nil
}

// Propagate advances the state to the final date and returns the
// terminal state (which may be earlier if an event stopped the
// propagation).
func (p *Propagator) Propagate(s0 State, final Date) (State, error) {
	return p.propagate(s0, final, nil, nil)
}

// PropagateEphemeris is Propagate, additionally filling eph with the
// dense output of the integration for later random access.
func (p *Propagator) PropagateEphemeris(s0 State, final Date, eph *Ephemeris) (State, error) {
	if eph == nil {
		panic("config Ephemeris may not be nil")
	}
	return p.propagate(s0, final, nil, eph)
}

// PropagateFixed is Propagate, sampling the handler at the instants
// s0.Date + k·step and always at the final date.
func (p *Propagator) PropagateFixed(s0 State, final Date, step float64, handler FixedStepHandler) (State, error) {
	if handler == nil {
		panic("config FixedStepHandler may not be nil")
	}
	if step <= 0 {
		panic("config step must be positive")
	}
	return p.propagate(s0, final, func(ctx *propCtx) integrator.StepHandler {
		return integrator.NewStepNormalizer(step, &fixedAdapter{ctx: ctx, handler: handler})
	}, nil)
}

// PropagateSteps is Propagate, invoking the handler after each
// successful integrator step.
func (p *Propagator) PropagateSteps(s0 State, final Date, handler StepHandler) (State, error) {
	if handler == nil {
		panic("config StepHandler may not be nil")
	}
	return p.propagate(s0, final, func(ctx *propCtx) integrator.StepHandler {
		return &stepAdapter{ctx: ctx, handler: handler}
	}, nil)
}

// propagate runs the common propagation sequence. handlerFor, when not
// nil, builds the user step handler once the context exists.
func (p *Propagator) propagate(s0 State, final Date, handlerFor func(*propCtx) integrator.StepHandler, eph *Ephemeris) (State, error) {
	if p.status != statusIdle {
		panic("propagation already in flight")
	}
	if err := validateInitialState(s0); err != nil {
		return State{}, err
	}
	if s0.Date.Equal(final) {
		return s0, nil
	}

	p.status = statusRunning
	defer func() { p.status = statusIdle }()

	ctx := newPropCtx(p, s0)
	y := ctx.flatten(s0)
	t1 := final.Sub(s0.Date)

	// Wire the switching functions into the integrator.
	p.integ.ClearSwitchingFunctions()
	for _, fm := range p.forces {
		for _, swf := range fm.SwitchingFunctions() {
			p.addAdapter(ctx, swf)
		}
	}
	for _, swf := range p.detectors {
		p.addAdapter(ctx, swf)
	}

	var handlers []integrator.StepHandler
	var collector *ephemerisCollector
	if eph != nil {
		collector = &ephemerisCollector{}
		handlers = append(handlers, collector)
	}
	if handlerFor != nil {
		handlers = append(handlers, handlerFor(ctx))
	}
	var histChan chan State
	if p.export != nil && !p.export.IsUseless() {
		histChan = make(chan State, 1000)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			StreamStates(*p.export, histChan)
		}()
		histChan <- s0
		handlers = append(handlers, &historyAdapter{ctx: ctx, ch: histChan})
	}
	switch len(handlers) {
	case 0:
		p.integ.SetStepHandler(nil)
	case 1:
		p.integ.SetStepHandler(handlers[0])
	default:
		p.integ.SetStepHandler(compositeHandler(handlers))
	}

	p.logger.Log("level", "info", "subsys", "astro", "status", "starting",
		"from", s0.Date, "to", final, "orbit", s0.Orbit, "mass(kg)", s0.Mass)

	tEnd, err := p.integ.Integrate(ctx.derivatives, 0, y, t1)
	p.integ.SetStepHandler(nil)
	if histChan != nil {
		close(histChan)
		p.wg.Wait()
	}

	// A pending propagation error takes precedence over the integrator
	// error it provoked.
	if ctx.sticky != nil {
		err = ctx.sticky
	}
	if err != nil {
		p.logger.Log("level", "error", "subsys", "astro", "status", "failed", "err", err)
		return State{}, err
	}

	finalState := ctx.rebuild(tEnd, y)
	if eph != nil {
		eph.initialize(collector.segments, s0.Date, ctx.frame, p.μ, ctx.extraNames, ctx.extraIdx)
	}
	if finalState.Mass <= 1e-3 {
		p.logger.Log("level", "critical", "subsys", "prop", "mass(kg)", finalState.Mass)
	}
	p.logger.Log("level", "info", "subsys", "astro", "status", "finished",
		"duration(s)", tEnd, "orbit", finalState.Orbit, "mass(kg)", finalState.Mass)
	return finalState, nil
}

// addAdapter registers one orbital switching function with the
// integrator through its adapter.
func (p *Propagator) addAdapter(ctx *propCtx, swf SwitchingFunction) {
	maxCheck := swf.MaxCheckInterval()
	threshold := swf.Threshold()
	if maxCheck <= 0 || threshold <= 0 {
		panic(fmt.Sprintf("switching function policy invalid: maxCheck=%g threshold=%g", maxCheck, threshold))
	}
	p.integ.AddSwitchingFunction(&swfAdapter{ctx: ctx, swf: swf}, maxCheck, threshold, swf.MaxIterations())
}

// validateInitialState rejects unusable inputs before integration.
func validateInitialState(s0 State) error {
	if s0.Orbit.frame == nil {
		return &ArgumentError{"initial orbit has no reference frame"}
	}
	if s0.Mass <= 0 {
		return &ArgumentError{fmt.Sprintf("mass is null or negative (%g kg)", s0.Mass)}
	}
	if math.IsNaN(s0.Mass) {
		return &ArgumentError{"mass is NaN"}
	}
	if s0.Orbit.retro < 0 {
		return &ArgumentError{"retrograde element encoding is not supported by the Gauss equations"}
	}
	for _, v := range []float64{s0.Orbit.a, s0.Orbit.ex, s0.Orbit.ey, s0.Orbit.hx, s0.Orbit.hy, s0.Orbit.lv} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ArgumentError{fmt.Sprintf("initial orbit has non-finite elements: %s", s0.Orbit)}
		}
	}
	if s0.Orbit.a <= 0 {
		return &ArgumentError{fmt.Sprintf("semi-major axis must be positive (%g m)", s0.Orbit.a)}
	}
	if e2 := s0.Orbit.ex*s0.Orbit.ex + s0.Orbit.ey*s0.Orbit.ey; e2 >= 1 {
		return &ArgumentError{fmt.Sprintf("eccentricity must be below 1 (e=%g)", math.Sqrt(e2))}
	}
	return nil
}

// compositeHandler fans a step out to several handlers in order.
type compositeHandler []integrator.StepHandler

// HandleStep implements the integrator.StepHandler interface.
func (c compositeHandler) HandleStep(interp integrator.StepInterpolator, isLast bool) error {
	for _, h := range c {
		if err := h.HandleStep(interp, isLast); err != nil {
			return err
		}
	}
	return nil
}
