package odx

import (
	"fmt"
)

// ArgumentError reports invalid inputs detected before integration
// starts. It always propagates directly to the caller.
type ArgumentError struct {
	Msg string
}

func (e *ArgumentError) Error() string {
	return "odx: " + e.Msg
}

// OrbitError reports a degenerate geometry in an orbit conversion.
type OrbitError struct {
	Msg string
}

func (e *OrbitError) Error() string {
	return "odx: " + e.Msg
}

// ConvergenceError reports an iterative solve exceeding its budget.
type ConvergenceError struct {
	What  string
	Iters int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("odx: %s did not converge within %d iterations", e.What, e.Iters)
}

// PropagationError wraps an error raised by a force model or an event
// callback during integration, with the integration context attached.
// It takes precedence over any integrator error triggered by the
// forced stop.
type PropagationError struct {
	Cause error
	T     float64
	Y     []float64
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("odx: propagation failed at t=%+.3fs: %s", e.T, e.Cause)
}

func (e *PropagationError) Unwrap() error {
	return e.Cause
}

// OutOfRangeError reports an ephemeris query outside its time span.
type OutOfRangeError struct {
	Date     Date
	Min, Max Date
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("odx: date %s outside ephemeris span [%s, %s]", e.Date, e.Min, e.Max)
}
