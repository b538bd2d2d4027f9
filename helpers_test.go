package odx

import (
	"testing"

	kitlog "github.com/go-kit/kit/log"

	"gonum.org/v1/gonum/floats/scalar"
)

// vectorsEqualWithin compares two 3-vectors component-wise.
func vectorsEqualWithin(a, b []float64, tol float64) bool {
	for i := 0; i < 3; i++ {
		if !scalar.EqualWithinAbs(a[i], b[i], tol) {
			return false
		}
	}
	return true
}

func assertPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic")
		}
	}()
	f()
}

// quiet silences a propagator's logger for the tests.
func quiet(p *Propagator) *Propagator {
	p.SetLogger(kitlog.NewNopLogger())
	return p
}
