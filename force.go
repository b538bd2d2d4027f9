package odx

// AccelerationFrame tags the local frame in which a force model
// expresses its acceleration contribution.
type AccelerationFrame uint8

const (
	// FrameInertial means the acceleration is expressed along the axes
	// of the integration frame.
	FrameInertial AccelerationFrame = iota
	// FrameTNW is the local orbital frame with T along the velocity,
	// W along the orbital momentum and N = W x T.
	FrameTNW
	// FrameQSW is the local orbital frame with Q radial outward, W
	// cross-track and S completing the direct triad in-plane.
	FrameQSW
)

func (f AccelerationFrame) String() string {
	switch f {
	case FrameInertial:
		return "inertial"
	case FrameTNW:
		return "TNW"
	case FrameQSW:
		return "QSW"
	}
	panic("cannot stringify unknown acceleration frame")
}

// Acceleration is one force contribution: a 3-vector in m/s² tagged
// with the local frame its components are expressed in.
type Acceleration struct {
	Frame AccelerationFrame
	A     [3]float64
}

// TNW builds an along-track/normal/cross-track contribution.
func TNW(t, n, w float64) Acceleration {
	return Acceleration{Frame: FrameTNW, A: [3]float64{t, n, w}}
}

// QSW builds a radial/in-plane/cross-track contribution.
func QSW(q, s, w float64) Acceleration {
	return Acceleration{Frame: FrameQSW, A: [3]float64{q, s, w}}
}

// Inertial builds a contribution along the integration frame axes.
func Inertial(x, y, z float64) Acceleration {
	return Acceleration{Frame: FrameInertial, A: [3]float64{x, y, z}}
}

// DerivativesAdder is the write-only sink force models push their
// contributions into during one derivative evaluation.
type DerivativesAdder interface {
	// AddAcceleration accumulates an acceleration contribution.
	AddAcceleration(acc Acceleration)
	// AddMassRate accumulates a mass flow in kg/s, negative for
	// depletion.
	AddMassRate(dmdt float64)
	// AddExtraRate accumulates the derivative of a named additional
	// state array. Unknown names are ignored.
	AddExtraRate(name string, dot []float64)
}

// ForceModel contributes perturbing accelerations to the propagation.
// Models are borrowed by the propagator for the duration of one
// propagate call and must be confined to it. A model used in backward
// propagation must be time-reversible or refuse the call.
type ForceModel interface {
	// AddContribution pushes the model acceleration (and possibly mass
	// flow) for the current state into the adder. mass is the current
	// spacecraft mass in kg. An error aborts the propagation and
	// surfaces as a PropagationError.
	AddContribution(date Date, pv PVCoordinates, frame *Frame, mass float64, adder DerivativesAdder) error
	// SwitchingFunctions returns the event detectors of the model, or
	// nil when it has none.
	SwitchingFunctions() []SwitchingFunction
}

// Action defines what the propagation does once an event has been
// handled by its switching function.
type Action uint8

const (
	// Continue resumes the propagation with no side effect.
	Continue Action = iota
	// Stop terminates the propagation cleanly at the event date.
	Stop
	// ResetDerivatives forces a recomputation of the derivatives
	// without changing the state.
	ResetDerivatives
	// ResetState replaces the state through the switching function's
	// ResetState mutator, then recomputes the derivatives.
	ResetState
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	case ResetDerivatives:
		return "resetDerivatives"
	case ResetState:
		return "resetState"
	}
	panic("cannot stringify unknown action")
}

// SwitchingFunction is a continuous scalar whose sign changes mark
// discrete events during the propagation.
type SwitchingFunction interface {
	// G returns the switching value at the given date and Cartesian
	// state. The propagation locates its roots.
	G(date Date, pv PVCoordinates, frame *Frame) (float64, error)
	// EventOccurred is called at each located root and decides how the
	// propagation proceeds.
	EventOccurred(date Date, pv PVCoordinates, frame *Frame) (Action, error)
	// ResetState mutates the spacecraft state in place. Only called
	// after EventOccurred returned ResetState.
	ResetState(s *State) error
	// MaxCheckInterval is the maximum integration time between two
	// samples of G, in seconds.
	MaxCheckInterval() float64
	// Threshold is the convergence tolerance of the root search, in
	// seconds.
	Threshold() float64
	// MaxIterations bounds the root search bisection.
	MaxIterations() int
}

// EventPolicy carries the detection tuning shared by most switching
// functions and provides the policy part of the interface.
type EventPolicy struct {
	MaxCheck float64
	Thresh   float64
	MaxIter  int
}

// MaxCheckInterval implements the SwitchingFunction interface.
func (p EventPolicy) MaxCheckInterval() float64 { return p.MaxCheck }

// Threshold implements the SwitchingFunction interface.
func (p EventPolicy) Threshold() float64 { return p.Thresh }

// MaxIterations implements the SwitchingFunction interface.
func (p EventPolicy) MaxIterations() int { return p.MaxIter }

// NoReset is embedded by switching functions which never ask for a
// state reset.
type NoReset struct{}

// ResetState implements the SwitchingFunction interface.
func (NoReset) ResetState(*State) error { return nil }
