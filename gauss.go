package odx

import (
	"fmt"
	"math"
)

// GaussDerivatives implements the Gauss planetary equations in
// equinoctial form. It is reset at the start of each derivative
// evaluation, populated in arbitrary order by the force models and
// finalized by the propagator with the Kepler contribution.
//
// The derivative buffer layout is {a, ex, ey, hx, hy, lv, mass}
// followed by the additional state slots.
type GaussDerivatives struct {
	μ   float64
	buf []float64

	// Current elements and reusable scalars.
	a, ex, ey, hx, hy, lv float64
	sinLv, cosLv          float64
	bigA                  float64 // sqrt(μ a)
	b                     float64 // sqrt(1 - ex² - ey²)
	c                     float64 // 1 + hx² + hy²
	w                     float64 // 1 + ex cosLv + ey sinLv

	// Local orbital bases derived from the current PV.
	qU, sU, wU []float64
	tU, nU     []float64

	extraIdx map[string][2]int
	err      error
}

// NewGaussDerivatives returns an accumulator for the given central
// body gravitational parameter.
func NewGaussDerivatives(μ float64) *GaussDerivatives {
	return &GaussDerivatives{μ: μ}
}

// InitDerivatives binds the accumulator to the caller's derivative
// buffer, zero-initializes it and precomputes the scalars reused by
// every contribution of the evaluation.
func (gd *GaussDerivatives) InitDerivatives(buf []float64, o Equinoctial) {
	for i := range buf {
		buf[i] = 0
	}
	gd.buf = buf
	gd.a, gd.ex, gd.ey = o.a, o.ex, o.ey
	gd.hx, gd.hy, gd.lv = o.hx, o.hy, o.lv
	gd.sinLv, gd.cosLv = math.Sincos(o.lv)
	gd.bigA = math.Sqrt(gd.μ * o.a)
	gd.b = math.Sqrt(1 - o.ex*o.ex - o.ey*o.ey)
	gd.c = 1 + o.hx*o.hx + o.hy*o.hy
	gd.w = 1 + o.ex*gd.cosLv + o.ey*gd.sinLv

	pv := o.PV(gd.μ)
	gd.qU = unit(pv.R)
	h := pv.H()
	gd.wU = unit(h)
	gd.sU = cross(gd.wU, gd.qU)
	gd.tU = unit(pv.V)
	gd.nU = cross(gd.wU, gd.tU)
}

// Err returns the sticky error set by a bad contribution, if any.
func (gd *GaussDerivatives) Err() error {
	return gd.err
}

// ClearErr resets the sticky error at the start of a propagation.
func (gd *GaussDerivatives) ClearErr() {
	gd.err = nil
}

// AddAcceleration implements the DerivativesAdder interface. The
// acceleration is projected onto the radial/in-plane/cross-track
// basis and multiplied by the equinoctial Gauss Jacobian, in fixed
// order for bit-exact reproducibility.
func (gd *GaussDerivatives) AddAcceleration(acc Acceleration) {
	for _, v := range acc.A {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if gd.err == nil {
				gd.err = fmt.Errorf("non-finite %s acceleration %+v", acc.Frame, acc.A)
			}
			return
		}
	}
	var aq, as, aw float64
	switch acc.Frame {
	case FrameQSW:
		aq, as, aw = acc.A[0], acc.A[1], acc.A[2]
	case FrameTNW:
		vec := []float64{
			acc.A[0]*gd.tU[0] + acc.A[1]*gd.nU[0] + acc.A[2]*gd.wU[0],
			acc.A[0]*gd.tU[1] + acc.A[1]*gd.nU[1] + acc.A[2]*gd.wU[1],
			acc.A[0]*gd.tU[2] + acc.A[1]*gd.nU[2] + acc.A[2]*gd.wU[2],
		}
		aq, as, aw = dot(vec, gd.qU), dot(vec, gd.sU), dot(vec, gd.wU)
	case FrameInertial:
		vec := acc.A[:]
		aq, as, aw = dot(vec, gd.qU), dot(vec, gd.sU), dot(vec, gd.wU)
	default:
		panic(fmt.Sprintf("unsupported acceleration frame %d", acc.Frame))
	}

	// Gauss variation of parameters in equinoctial elements, true
	// longitude formulation (Walker, Ireland & Owens 1985).
	sqPoμ := gd.a * gd.b / gd.bigA // sqrt(p/μ)
	hk := gd.hx*gd.sinLv - gd.hy*gd.cosLv

	gd.buf[0] += 2 * gd.a * gd.a / (gd.bigA * gd.b) *
		((gd.ex*gd.sinLv-gd.ey*gd.cosLv)*aq + gd.w*as)
	gd.buf[1] += sqPoμ * (aq*gd.sinLv +
		((gd.w+1)*gd.cosLv+gd.ex)*as/gd.w -
		gd.ey*hk*aw/gd.w)
	gd.buf[2] += sqPoμ * (-aq*gd.cosLv +
		((gd.w+1)*gd.sinLv+gd.ey)*as/gd.w +
		gd.ex*hk*aw/gd.w)
	gd.buf[3] += sqPoμ * gd.c * gd.cosLv / (2 * gd.w) * aw
	gd.buf[4] += sqPoμ * gd.c * gd.sinLv / (2 * gd.w) * aw
	gd.buf[5] += sqPoμ * hk / gd.w * aw
}

// AddMassRate implements the DerivativesAdder interface.
func (gd *GaussDerivatives) AddMassRate(dmdt float64) {
	if math.IsNaN(dmdt) || math.IsInf(dmdt, 0) {
		if gd.err == nil {
			gd.err = fmt.Errorf("non-finite mass rate %v", dmdt)
		}
		return
	}
	gd.buf[6] += dmdt
}

// AddExtraRate implements the DerivativesAdder interface.
func (gd *GaussDerivatives) AddExtraRate(name string, dot []float64) {
	span, ok := gd.extraIdx[name]
	if !ok {
		return
	}
	for i := 0; i < span[1] && i < len(dot); i++ {
		gd.buf[span[0]+i] += dot[i]
	}
}

// AddKeplerContribution adds the unperturbed two-body term: only the
// true longitude evolves, at rate sqrt(μ p)/r².
func (gd *GaussDerivatives) AddKeplerContribution() {
	gd.buf[5] += gd.bigA * gd.w * gd.w / (gd.a * gd.a * gd.b * gd.b * gd.b)
}
