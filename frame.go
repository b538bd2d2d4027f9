package odx

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PVCoordinates is an immutable position-velocity pair expressed in
// some reference frame. Position in m, velocity in m/s.
type PVCoordinates struct {
	R, V []float64
}

// NewPVCoordinates copies the provided vectors into a new pair.
func NewPVCoordinates(r, v []float64) PVCoordinates {
	pv := PVCoordinates{R: make([]float64, 3), V: make([]float64, 3)}
	copy(pv.R, r)
	copy(pv.V, v)
	return pv
}

// H returns the specific angular momentum vector R x V.
func (pv PVCoordinates) H() []float64 {
	return cross(pv.R, pv.V)
}

// AngularVelocity returns H / |R|².
func (pv PVCoordinates) AngularVelocity() []float64 {
	h := pv.H()
	r2 := dot(pv.R, pv.R)
	return []float64{h[0] / r2, h[1] / r2, h[2] / r2}
}

// String implements the Stringer interface.
func (pv PVCoordinates) String() string {
	return fmt.Sprintf("R=%+v m V=%+v m/s", pv.R, pv.V)
}

// Frame is an opaque handle on a reference frame. Frames form a tree
// rooted at EME2000; each node carries the constant rotation from
// itself to its parent. Frame instances are read-only after creation
// and safe for concurrent use.
type Frame struct {
	name     string
	parent   *Frame
	toParent *mat.Dense
}

// EME2000 is the Earth mean equator and equinox of J2000 inertial
// frame, root of the frame tree.
var EME2000 = &Frame{name: "EME2000"}

// EclipticJ2000 is the J2000 ecliptic inertial frame.
var EclipticJ2000 = NewInertialFrame("EclipticJ2000", EME2000, R1(-23.43929111*deg2rad))

// NewInertialFrame defines a new frame from the constant rotation
// toParent such that v expressed in the new frame satisfies
// vParent = toParent · v.
func NewInertialFrame(name string, parent *Frame, toParent *mat.Dense) *Frame {
	if parent == nil {
		panic("config parent Frame may not be nil")
	}
	if toParent == nil {
		panic("config rotation may not be nil")
	}
	return &Frame{name: name, parent: parent, toParent: toParent}
}

// Name returns the frame name.
func (f *Frame) Name() string {
	return f.name
}

// String implements the Stringer interface.
func (f *Frame) String() string {
	return f.name
}

// Transform rotates position-velocity pairs between two frames.
type Transform struct {
	rot *mat.Dense
}

// Apply returns the pair expressed in the destination frame.
func (t Transform) Apply(pv PVCoordinates) PVCoordinates {
	if t.rot == nil {
		return NewPVCoordinates(pv.R, pv.V)
	}
	return PVCoordinates{R: MxV33(t.rot, pv.R), V: MxV33(t.rot, pv.V)}
}

// ApplyVec rotates a single free vector (an acceleration, a
// direction) into the destination frame.
func (t Transform) ApplyVec(v []float64) []float64 {
	if t.rot == nil {
		out := make([]float64, 3)
		copy(out, v)
		return out
	}
	return MxV33(t.rot, v)
}

// TransformTo returns the transform from f to the destination frame at
// the given date. All supported frames are inertial so the date only
// matters for the contract; an error is returned when the frames do
// not share a common root.
func (f *Frame) TransformTo(to *Frame, date Date) (Transform, error) {
	if f == to {
		return Transform{}, nil
	}
	up, okF := f.rotationToRoot()
	down, okT := to.rotationToRoot()
	rootF, rootT := f, to
	for rootF.parent != nil {
		rootF = rootF.parent
	}
	for rootT.parent != nil {
		rootT = rootT.parent
	}
	if !okF || !okT || rootF != rootT {
		return Transform{}, &ArgumentError{fmt.Sprintf("frames %s and %s are not connected", f, to)}
	}
	// to root, then down into the destination frame.
	var rot mat.Dense
	var downInv mat.Dense
	downInv.CloneFrom(down.T())
	rot.Mul(&downInv, up)
	return Transform{rot: &rot}, nil
}

// rotationToRoot composes the rotation from f to the tree root.
func (f *Frame) rotationToRoot() (*mat.Dense, bool) {
	rot := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	for n := f; n.parent != nil; n = n.parent {
		if n.toParent == nil {
			return nil, false
		}
		var next mat.Dense
		next.Mul(n.toParent, rot)
		rot.CloneFrom(&next)
	}
	return rot, true
}
