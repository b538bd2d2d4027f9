package integrator

// HermiteInterpolator is the dense output model of one accepted step:
// a cubic Hermite polynomial matching the state and its derivative at
// both step endpoints.
type HermiteInterpolator struct {
	T0, T1         float64
	Y0, Y1, F0, F1 []float64
}

// NewHermiteInterpolator copies the endpoint data into a standalone
// interpolator.
func NewHermiteInterpolator(t0, t1 float64, y0, y1, f0, f1 []float64) *HermiteInterpolator {
	h := &HermiteInterpolator{T0: t0, T1: t1,
		Y0: make([]float64, len(y0)), Y1: make([]float64, len(y1)),
		F0: make([]float64, len(f0)), F1: make([]float64, len(f1))}
	copy(h.Y0, y0)
	copy(h.Y1, y1)
	copy(h.F0, f0)
	copy(h.F1, f1)
	return h
}

// PreviousTime implements the StepInterpolator interface.
func (h *HermiteInterpolator) PreviousTime() float64 {
	return h.T0
}

// CurrentTime implements the StepInterpolator interface.
func (h *HermiteInterpolator) CurrentTime() float64 {
	return h.T1
}

// Dim implements the StepInterpolator interface.
func (h *HermiteInterpolator) Dim() int {
	return len(h.Y0)
}

// Contains returns whether t lies within the step span, in either
// integration direction.
func (h *HermiteInterpolator) Contains(t float64) bool {
	if h.T1 >= h.T0 {
		return t >= h.T0 && t <= h.T1
	}
	return t >= h.T1 && t <= h.T0
}

// Interpolate implements the StepInterpolator interface.
func (h *HermiteInterpolator) Interpolate(t float64, out []float64) {
	dt := h.T1 - h.T0
	θ := (t - h.T0) / dt
	θ2 := θ * θ
	θ3 := θ2 * θ
	// Cubic Hermite basis functions.
	h00 := 2*θ3 - 3*θ2 + 1
	h10 := θ3 - 2*θ2 + θ
	h01 := -2*θ3 + 3*θ2
	h11 := θ3 - θ2
	for i := range out {
		out[i] = h00*h.Y0[i] + h10*dt*h.F0[i] + h01*h.Y1[i] + h11*dt*h.F1[i]
	}
}
