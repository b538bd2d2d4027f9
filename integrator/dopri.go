package integrator

import (
	"math"
)

// Dormand-Prince 5(4) embedded Runge-Kutta coefficients.
var (
	dpC = []float64{0, 1. / 5, 3. / 10, 4. / 5, 8. / 9, 1, 1}
	dpA = [][]float64{
		nil,
		{1. / 5},
		{3. / 40, 9. / 40},
		{44. / 45, -56. / 15, 32. / 9},
		{19372. / 6561, -25360. / 2187, 64448. / 6561, -212. / 729},
		{9017. / 3168, -355. / 33, 46732. / 5247, 49. / 176, -5103. / 18656},
		{35. / 384, 0, 500. / 1113, 125. / 192, -2187. / 6784, 11. / 84},
	}
	// 5th order solution weights (identical to the last A row, FSAL).
	dpB = []float64{35. / 384, 0, 500. / 1113, 125. / 192, -2187. / 6784, 11. / 84, 0}
	// 4th order embedded weights for the error estimate.
	dpE = []float64{5179. / 57600, 0, 7571. / 16695, 393. / 640, -92097. / 339200, 187. / 2100, 1. / 40}
)

const (
	dpSafety    = 0.9
	dpMinFactor = 0.2
	dpMaxFactor = 5.0
)

// DormandPrince54 is an adaptive step size embedded Runge-Kutta 5(4)
// integrator with cubic Hermite dense output.
type DormandPrince54 struct {
	stepCore
	minStep, maxStep float64
	absTol, relTol   float64
}

// NewDormandPrince54 returns a new adaptive integrator. The step size
// bounds are magnitudes, direction is inferred from the integration
// interval.
func NewDormandPrince54(minStep, maxStep, absTol, relTol float64) *DormandPrince54 {
	if minStep <= 0 || maxStep <= minStep {
		panic("config must satisfy 0 < minStep < maxStep")
	}
	if absTol <= 0 || relTol < 0 {
		panic("config tolerances must be positive")
	}
	return &DormandPrince54{minStep: minStep, maxStep: maxStep, absTol: absTol, relTol: relTol}
}

// Integrate implements the Integrator interface.
func (dp *DormandPrince54) Integrate(sys System, t0 float64, y []float64, t1 float64) (float64, error) {
	if sys == nil {
		panic("config System may not be nil")
	}
	dir := sgn(t1 - t0)
	if dir == 0 {
		return t0, nil
	}
	n := len(y)
	k := make([][]float64, 7)
	for i := range k {
		k[i] = make([]float64, n)
	}
	yTmp := make([]float64, n)
	yNew := make([]float64, n)
	fE := make([]float64, n)

	if err := dp.primeEvents(t0, y); err != nil {
		return t0, err
	}

	t := t0
	h := clampMag(0.01*math.Abs(t1-t0), dp.minStep, dp.maxStep) * dir
	for {
		last := false
		if (t+h-t1)*dir >= 0 {
			h = t1 - t
			last = true
		}

		// Stage derivatives.
		if err := sys(t, y, k[0]); err != nil {
			return t, newError("derivative computation failed", t, y, err)
		}
		for s := 1; s < 7; s++ {
			for i := 0; i < n; i++ {
				sum := 0.0
				for j := 0; j < s; j++ {
					sum += dpA[s][j] * k[j][i]
				}
				yTmp[i] = y[i] + h*sum
			}
			if err := sys(t+dpC[s]*h, yTmp, k[s]); err != nil {
				return t, newError("derivative computation failed", t+dpC[s]*h, yTmp, err)
			}
		}
		for i := 0; i < n; i++ {
			sum5, sum4 := 0.0, 0.0
			for s := 0; s < 7; s++ {
				sum5 += dpB[s] * k[s][i]
				sum4 += dpE[s] * k[s][i]
			}
			yNew[i] = y[i] + h*sum5
			fE[i] = sum5 - sum4
		}

		// Scaled error norm.
		errNorm := 0.0
		for i := 0; i < n; i++ {
			sc := dp.absTol + dp.relTol*math.Max(math.Abs(y[i]), math.Abs(yNew[i]))
			r := h * fE[i] / sc
			errNorm += r * r
		}
		errNorm = math.Sqrt(errNorm / float64(n))
		if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) {
			return t, newError("non-finite derivative", t, y, nil)
		}

		if errNorm > 1 {
			if math.Abs(h) <= dp.minStep*(1+1e-12) {
				return t, newError("minimal step size reached with unmet tolerance", t, y, nil)
			}
			factor := math.Max(dpMinFactor, dpSafety*math.Pow(errNorm, -0.2))
			h = clampMag(h*factor, dp.minStep, dp.maxStep)
			continue
		}

		// Accepted step: the last stage derivative is f(t+h, yNew).
		// The final step lands exactly on t1.
		tNext := t + h
		if last {
			tNext = t1
		}
		interp := NewHermiteInterpolator(t, tNext, y, yNew, k[0], k[6])

		hit, err := dp.scanStep(interp)
		if err != nil {
			return t, err
		}
		if hit != nil {
			tE, stop, err := dp.handleEvent(sys, hit, interp, y, last)
			if err != nil {
				return tE, err
			}
			t = tE
			if stop || (t-t1)*dir >= 0 {
				return t, nil
			}
			continue
		}

		if dp.handler != nil {
			if err := dp.handler.HandleStep(interp, last); err != nil {
				return t, newError("step handler failed", t+h, yNew, err)
			}
		}
		t = tNext
		copy(y, yNew)
		if last {
			return t, nil
		}

		factor := dpMaxFactor
		if errNorm > 0 {
			factor = math.Min(dpMaxFactor, math.Max(dpMinFactor, dpSafety*math.Pow(errNorm, -0.2)))
		}
		h = clampMag(h*factor, dp.minStep, dp.maxStep)
	}
}

// handleEvent truncates the accepted step at the located root, reports
// the truncated step to the handler, applies the event action and
// leaves y at the event state. Returns the event time and whether the
// integration must stop there.
func (dp *DormandPrince54) handleEvent(sys System, hit *eventHit, interp *HermiteInterpolator, y []float64, wasLast bool) (float64, bool, error) {
	tE := hit.t
	yE := make([]float64, len(y))
	interp.Interpolate(tE, yE)
	fEvt := make([]float64, len(y))
	if err := sys(tE, yE, fEvt); err != nil {
		return tE, false, newError("derivative computation failed", tE, yE, err)
	}

	action := hit.ev.sf.EventOccurred(tE, yE)
	stop := action == ActionStop
	if dp.handler != nil {
		trunc := NewHermiteInterpolator(interp.T0, tE, interp.Y0, yE, interp.F0, fEvt)
		lastStep := stop || (wasLast && tE == interp.T1)
		if err := dp.handler.HandleStep(trunc, lastStep); err != nil {
			return tE, false, newError("step handler failed", tE, yE, err)
		}
	}
	copy(y, yE)
	hit.ev.sign = sgn(hit.after)
	if action == ActionMutateY {
		hit.ev.sf.ResetState(tE, y)
		// Mutating y invalidates the stored signs of every detector,
		// including the one which fired.
		if err := dp.primeEvents(tE, y); err != nil {
			return tE, false, err
		}
	}
	return tE, stop, nil
}
