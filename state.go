package odx

import (
	"fmt"
	"sort"
)

// State is the complete state of a spacecraft at a date: its orbit,
// its mass and optional named additional state arrays which are
// carried along the propagation but not coupled to the dynamics by
// the core.
type State struct {
	Date  Date
	Orbit Equinoctial
	Mass  float64 // kg
	Extra map[string][]float64
}

// NewState returns a state without additional arrays.
func NewState(date Date, orbit Equinoctial, mass float64) State {
	return State{Date: date, Orbit: orbit, Mass: mass}
}

// WithExtra returns a copy of the state carrying the named array.
func (s State) WithExtra(name string, values []float64) State {
	extra := make(map[string][]float64, len(s.Extra)+1)
	for k, v := range s.Extra {
		c := make([]float64, len(v))
		copy(c, v)
		extra[k] = c
	}
	c := make([]float64, len(values))
	copy(c, values)
	extra[name] = c
	s.Extra = extra
	return s
}

// PV derives the Cartesian coordinates of the state.
func (s State) PV(μ float64) PVCoordinates {
	return s.Orbit.PV(μ)
}

// extraNames returns the additional state names in deterministic order.
func (s State) extraNames() []string {
	names := make([]string, 0, len(s.Extra))
	for name := range s.Extra {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String implements the Stringer interface.
func (s State) String() string {
	return fmt.Sprintf("%s: %s m=%.3fkg", s.Date, s.Orbit, s.Mass)
}
