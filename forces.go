package odx

import (
	"fmt"
	"math"
)

// ZonalGravity perturbs the orbit with the J2 and J3 zonal harmonics
// of the central body. The acceleration is computed in the body
// equatorial frame and rotated into the integration frame, so the
// orbit may be propagated in any connected inertial frame.
//
// Zonal gravity derives from a potential and is time-reversible, so
// backward propagation is supported.
type ZonalGravity struct {
	Body      CelestialObject
	Degree    uint8  // highest zonal degree, 2 or 3
	BodyFrame *Frame // equatorial frame of the body, nil for EME2000
}

// NewZonalGravity returns the perturbation of the given body up to the
// provided degree.
func NewZonalGravity(body CelestialObject, degree uint8) ZonalGravity {
	if degree < 2 || degree > 3 {
		panic(fmt.Sprintf("unsupported zonal degree %d", degree))
	}
	return ZonalGravity{Body: body, Degree: degree, BodyFrame: EME2000}
}

// AddContribution implements the ForceModel interface.
func (z ZonalGravity) AddContribution(date Date, pv PVCoordinates, frame *Frame, mass float64, adder DerivativesAdder) error {
	bodyFrame := z.BodyFrame
	if bodyFrame == nil {
		bodyFrame = EME2000
	}
	toBody, err := frame.TransformTo(bodyFrame, date)
	if err != nil {
		return err
	}
	r := toBody.ApplyVec(pv.R)
	x, y, zz := r[0], r[1], r[2]
	z2 := zz * zz
	z3 := z2 * zz
	r2 := x*x + y*y + z2
	r5 := math.Pow(r2, 5/2.)
	r7 := math.Pow(r2, 7/2.)

	acc := make([]float64, 3)
	accJ2 := (3 / 2.) * z.Body.J(2) * math.Pow(z.Body.Radius, 2) * z.Body.GM()
	acc[0] = accJ2 * (5*x*z2/r7 - x/r5)
	acc[1] = accJ2 * (5*y*z2/r7 - y/r5)
	acc[2] = accJ2 * (5*z3/r7 - 3*zz/r5)
	if z.Degree >= 3 {
		r9 := math.Pow(r2, 9/2.)
		z4 := z2 * z2
		accJ3 := z.Body.J(3) * math.Pow(z.Body.Radius, 3) * z.Body.GM()
		acc[0] += (5 / 2.) * accJ3 * (7*x*z3/r9 - 3*x*zz/r7)
		acc[1] += (5 / 2.) * accJ3 * (7*y*z3/r9 - 3*y*zz/r7)
		acc[2] += 0.5 * accJ3 * (35*z4/r9 - 30*z2/r7 + 3/r5)
	}

	toFrame, err := bodyFrame.TransformTo(frame, date)
	if err != nil {
		return err
	}
	a := toFrame.ApplyVec(acc)
	adder.AddAcceleration(Inertial(a[0], a[1], a[2]))
	return nil
}

// SwitchingFunctions implements the ForceModel interface.
func (z ZonalGravity) SwitchingFunctions() []SwitchingFunction {
	return nil
}

// Ephemerides provides the position-velocity of a perturbing body
// relative to the central body, in the integration frame. The provider
// is an external collaborator with externally managed lifetime.
type Ephemerides func(date Date) (PVCoordinates, error)

// ThirdBody perturbs the orbit with the point-mass attraction of a
// third body whose position comes from an external ephemeris.
type ThirdBody struct {
	Body CelestialObject
	Eph  Ephemerides
}

// NewThirdBody returns the third-body perturbation of the given body.
func NewThirdBody(body CelestialObject, eph Ephemerides) ThirdBody {
	if eph == nil {
		panic("config Ephemerides may not be nil")
	}
	return ThirdBody{Body: body, Eph: eph}
}

// AddContribution implements the ForceModel interface.
func (tb ThirdBody) AddContribution(date Date, pv PVCoordinates, frame *Frame, mass float64, adder DerivativesAdder) error {
	bodyPV, err := tb.Eph(date)
	if err != nil {
		return fmt.Errorf("third body %s: %w", tb.Body.Name, err)
	}
	// r_{b/sc} from the spacecraft to the perturbing body.
	scPert := make([]float64, 3)
	for i := 0; i < 3; i++ {
		scPert[i] = bodyPV.R[i] - pv.R[i]
	}
	pertNorm3 := math.Pow(norm(bodyPV.R), 3)
	scPertNorm3 := math.Pow(norm(scPert), 3)
	μb := tb.Body.GM()
	adder.AddAcceleration(Inertial(
		μb*(scPert[0]/scPertNorm3-bodyPV.R[0]/pertNorm3),
		μb*(scPert[1]/scPertNorm3-bodyPV.R[1]/pertNorm3),
		μb*(scPert[2]/scPertNorm3-bodyPV.R[2]/pertNorm3)))
	return nil
}

// SwitchingFunctions implements the ForceModel interface.
func (tb ThirdBody) SwitchingFunctions() []SwitchingFunction {
	return nil
}

// ExponentialDrag is a cannonball drag model over an exponential
// density profile. The drag acceleration opposes the inertial
// velocity, i.e. a non-rotating atmosphere.
//
// Drag is dissipative: it is NOT time-reversible, and backward
// propagation through this model yields a trajectory that is not the
// time-mirror of the forward one.
type ExponentialDrag struct {
	Body   CelestialObject
	ρ0     float64 // density at the reference altitude, kg/m³
	refAlt float64 // reference altitude, m
	scaleH float64 // scale height, m
	cdArea float64 // drag coefficient times cross section, m²
}

// NewExponentialDrag returns a drag model with the given density
// profile and Cd·A product.
func NewExponentialDrag(body CelestialObject, ρ0, refAlt, scaleH, cdArea float64) ExponentialDrag {
	if ρ0 < 0 || scaleH <= 0 || cdArea <= 0 {
		panic("config drag parameters must be positive")
	}
	return ExponentialDrag{Body: body, ρ0: ρ0, refAlt: refAlt, scaleH: scaleH, cdArea: cdArea}
}

// AddContribution implements the ForceModel interface.
func (d ExponentialDrag) AddContribution(date Date, pv PVCoordinates, frame *Frame, mass float64, adder DerivativesAdder) error {
	alt := norm(pv.R) - d.Body.Radius
	if alt < 0 {
		return fmt.Errorf("spacecraft below %s surface, altitude %.0f m", d.Body.Name, alt)
	}
	ρ := d.ρ0 * math.Exp(-(alt-d.refAlt)/d.scaleH)
	v2 := dot(pv.V, pv.V)
	adder.AddAcceleration(TNW(-0.5*ρ*v2*d.cdArea/mass, 0, 0))
	return nil
}

// SwitchingFunctions implements the ForceModel interface.
func (d ExponentialDrag) SwitchingFunctions() []SwitchingFunction {
	return nil
}
