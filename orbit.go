package odx

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

const (
	eccentricityε = 1e-7
	angleε        = (5e-3 / 360) * (2 * math.Pi) // 0.005 degrees
	distanceε     = 2e1                          // 20 m
	// retroε switches to the retrograde element encoding when the
	// prograde one degenerates (inclination close to π).
	retroε = 1e-6
	// keplerε is the convergence criterion of the mean to eccentric
	// longitude solve, in radians.
	keplerε = 1e-12
	// keplerMaxIter bounds the Kepler equation Newton iteration.
	keplerMaxIter = 50
)

// Equinoctial defines an orbit via its equinoctial elements, which are
// regular at zero eccentricity and zero inclination. The longitude
// argument is the true longitude Lv. The retrograde factor I is +1 for
// the prograde encoding and -1 for the retrograde one.
type Equinoctial struct {
	a, ex, ey, hx, hy, lv float64
	retro                 float64
	frame                 *Frame
}

// NewEquinoctial builds a prograde orbit from its elements. Angles in
// radians, semi-major axis in meters.
func NewEquinoctial(a, ex, ey, hx, hy, lv float64, frame *Frame) Equinoctial {
	return Equinoctial{a, ex, ey, hx, hy, lv, 1, frame}
}

// NewEquinoctialFromOE builds an orbit from the classical orbital
// elements. All angles must be in degrees, as in most references.
func NewEquinoctialFromOE(a, e, i, Ω, ω, ν float64, frame *Frame) Equinoctial {
	iR, ΩR, ωR, νR := Deg2rad(i), Deg2rad(Ω), Deg2rad(ω), Deg2rad(ν)
	t := math.Tan(iR / 2)
	return Equinoctial{a,
		e * math.Cos(ωR+ΩR), e * math.Sin(ωR+ΩR),
		t * math.Cos(ΩR), t * math.Sin(ΩR),
		νR + ωR + ΩR, 1, frame}
}

// NewEquinoctialFromPV converts a Cartesian position-velocity pair to
// equinoctial elements. It fails with an OrbitError when the angular
// momentum is degenerate (rectilinear trajectory) or the energy is not
// elliptic.
func NewEquinoctialFromPV(pv PVCoordinates, frame *Frame, μ float64) (Equinoctial, error) {
	hVec := pv.H()
	hNorm := norm(hVec)
	if hNorm < 1e-9*math.Sqrt(μ) {
		return Equinoctial{}, &OrbitError{"degenerate rectilinear trajectory, angular momentum is zero"}
	}
	r := norm(pv.R)
	v2 := dot(pv.V, pv.V)
	a := 1 / (2/r - v2/μ)
	if a <= 0 {
		return Equinoctial{}, &OrbitError{fmt.Sprintf("non-elliptic trajectory, a=%.3f m", a)}
	}

	w := []float64{hVec[0] / hNorm, hVec[1] / hNorm, hVec[2] / hNorm}
	retro := 1.0
	d := 1 + w[2]
	if d < retroε {
		retro = -1
		d = 1 - w[2]
	}
	hx := -w[1] / d
	hy := w[0] / d

	o := Equinoctial{a: a, hx: hx, hy: hy, retro: retro, frame: frame}
	f, g := o.equinoctialBasis()

	// Eccentricity vector (V x H)/μ - R/r.
	vxh := cross(pv.V, hVec)
	eVec := []float64{vxh[0]/μ - pv.R[0]/r, vxh[1]/μ - pv.R[1]/r, vxh[2]/μ - pv.R[2]/r}
	o.ex = dot(eVec, f)
	o.ey = dot(eVec, g)
	o.lv = math.Atan2(dot(pv.R, g), dot(pv.R, f))
	return o, nil
}

// A returns the semi-major axis in meters.
func (o Equinoctial) A() float64 { return o.a }

// Ex returns the first equinoctial eccentricity component.
func (o Equinoctial) Ex() float64 { return o.ex }

// Ey returns the second equinoctial eccentricity component.
func (o Equinoctial) Ey() float64 { return o.ey }

// Hx returns the first equinoctial inclination component.
func (o Equinoctial) Hx() float64 { return o.hx }

// Hy returns the second equinoctial inclination component.
func (o Equinoctial) Hy() float64 { return o.hy }

// Lv returns the true longitude argument in radians.
func (o Equinoctial) Lv() float64 { return o.lv }

// RetrogradeFactor returns I, +1 for prograde and -1 for retrograde.
func (o Equinoctial) RetrogradeFactor() float64 { return o.retro }

// Frame returns the reference frame handle of the elements.
func (o Equinoctial) Frame() *Frame { return o.frame }

// E returns the eccentricity.
func (o Equinoctial) E() float64 {
	return math.Sqrt(o.ex*o.ex + o.ey*o.ey)
}

// I returns the inclination in radians.
func (o Equinoctial) I() float64 {
	t := math.Sqrt(o.hx*o.hx + o.hy*o.hy)
	i := 2 * math.Atan(t)
	if o.retro < 0 {
		i = math.Pi - i
	}
	return i
}

// RAAN returns the right ascension of the ascending node in radians.
func (o Equinoctial) RAAN() float64 {
	return math.Atan2(o.hy, o.hx)
}

// SemiLatus returns the semi-latus rectum p = a(1-e²).
func (o Equinoctial) SemiLatus() float64 {
	return o.a * (1 - o.ex*o.ex - o.ey*o.ey)
}

// Period returns the Keplerian period in seconds for the provided μ.
func (o Equinoctial) Period(μ float64) float64 {
	return 2 * math.Pi * math.Sqrt(o.a*o.a*o.a/μ)
}

// MeanMotion returns the Keplerian mean motion in rad/s.
func (o Equinoctial) MeanMotion(μ float64) float64 {
	return math.Sqrt(μ / (o.a * o.a * o.a))
}

// equinoctialBasis returns the in-plane unit vectors f and g. Together
// with w = f x g (times I) they form the equinoctial frame.
func (o Equinoctial) equinoctialBasis() (f, g []float64) {
	c := 1 + o.hx*o.hx + o.hy*o.hy
	f = []float64{
		(1 - o.hy*o.hy + o.hx*o.hx) / c,
		2 * o.hx * o.hy / c,
		-2 * o.hy * o.retro / c,
	}
	g = []float64{
		2 * o.hx * o.hy * o.retro / c,
		(1 + o.hy*o.hy - o.hx*o.hx) * o.retro / c,
		2 * o.hx / c,
	}
	return f, g
}

// PV derives the Cartesian position-velocity pair of the elements for
// the provided gravitational parameter.
func (o Equinoctial) PV(μ float64) PVCoordinates {
	lE := TrueToEccentric(o.lv, o.ex, o.ey)
	sinLE, cosLE := math.Sincos(lE)
	b := math.Sqrt(1 - o.ex*o.ex - o.ey*o.ey)
	β := 1 / (1 + b)

	x := o.a * ((1-o.ey*o.ey*β)*cosLE + o.ex*o.ey*β*sinLE - o.ex)
	y := o.a * ((1-o.ex*o.ex*β)*sinLE + o.ex*o.ey*β*cosLE - o.ey)
	r := o.a * (1 - o.ex*cosLE - o.ey*sinLE)
	fac := math.Sqrt(μ*o.a) / r
	xDot := fac * (o.ex*o.ey*β*cosLE - (1-o.ey*o.ey*β)*sinLE)
	yDot := fac * ((1-o.ex*o.ex*β)*cosLE - o.ex*o.ey*β*sinLE)

	f, g := o.equinoctialBasis()
	return PVCoordinates{
		R: []float64{x*f[0] + y*g[0], x*f[1] + y*g[1], x*f[2] + y*g[2]},
		V: []float64{xDot*f[0] + yDot*g[0], xDot*f[1] + yDot*g[1], xDot*f[2] + yDot*g[2]},
	}
}

// EccentricLongitude returns LE.
func (o Equinoctial) EccentricLongitude() float64 {
	return TrueToEccentric(o.lv, o.ex, o.ey)
}

// MeanLongitude returns LM.
func (o Equinoctial) MeanLongitude() float64 {
	return EccentricToMean(o.EccentricLongitude(), o.ex, o.ey)
}

// TrueToEccentric converts the true longitude to the eccentric one.
func TrueToEccentric(lv, ex, ey float64) float64 {
	sinLv, cosLv := math.Sincos(lv)
	b := math.Sqrt(1 - ex*ex - ey*ey)
	return lv - 2*math.Atan((ex*sinLv-ey*cosLv)/(1+b+ex*cosLv+ey*sinLv))
}

// EccentricToTrue converts the eccentric longitude to the true one.
func EccentricToTrue(lE, ex, ey float64) float64 {
	sinLE, cosLE := math.Sincos(lE)
	b := math.Sqrt(1 - ex*ex - ey*ey)
	return lE + 2*math.Atan((ex*sinLE-ey*cosLE)/(1+b-ex*cosLE-ey*sinLE))
}

// EccentricToMean converts the eccentric longitude to the mean one
// through the generalized Kepler equation.
func EccentricToMean(lE, ex, ey float64) float64 {
	sinLE, cosLE := math.Sincos(lE)
	return lE - ex*sinLE + ey*cosLE
}

// MeanToEccentric solves the generalized Kepler equation by Newton
// iteration. It fails with a ConvergenceError when the residual does
// not drop below 1e-12 rad within 50 iterations.
func MeanToEccentric(lM, ex, ey float64) (float64, error) {
	lE := lM
	for i := 0; i < keplerMaxIter; i++ {
		sinLE, cosLE := math.Sincos(lE)
		f := lE - ex*sinLE + ey*cosLE - lM
		if math.Abs(f) <= keplerε {
			return lE, nil
		}
		fPrime := 1 - ex*cosLE - ey*sinLE
		lE -= f / fPrime
	}
	return lE, &ConvergenceError{What: "Kepler equation", Iters: keplerMaxIter}
}

// Equals returns whether two orbits are identical with free longitude.
// Use StrictlyEquals to also check the longitude.
func (o Equinoctial) Equals(o1 Equinoctial) (bool, error) {
	if o.frame != o1.frame {
		return false, errors.New("different frame")
	}
	if o.retro != o1.retro {
		return false, errors.New("different retrograde factor")
	}
	if !scalar.EqualWithinAbs(o.a, o1.a, distanceε) {
		return false, errors.New("semi major axis invalid")
	}
	if !scalar.EqualWithinAbs(o.ex, o1.ex, eccentricityε) {
		return false, errors.New("ex invalid")
	}
	if !scalar.EqualWithinAbs(o.ey, o1.ey, eccentricityε) {
		return false, errors.New("ey invalid")
	}
	if !scalar.EqualWithinAbs(o.hx, o1.hx, angleε) {
		return false, errors.New("hx invalid")
	}
	if !scalar.EqualWithinAbs(o.hy, o1.hy, angleε) {
		return false, errors.New("hy invalid")
	}
	return true, nil
}

// StrictlyEquals returns whether two orbits are identical.
func (o Equinoctial) StrictlyEquals(o1 Equinoctial) (bool, error) {
	if !scalar.EqualWithinAbs(wrapAngle(o.lv-o1.lv), 0, angleε) {
		return false, errors.New("true longitude invalid")
	}
	return o.Equals(o1)
}

// String implements the Stringer interface.
func (o Equinoctial) String() string {
	return fmt.Sprintf("a=%.1f ex=%.6f ey=%.6f hx=%.6f hy=%.6f Lv=%.4f", o.a, o.ex, o.ey, o.hx, o.hy, o.lv)
}
