package core

import (
	"math"
	"testing"
)

func TestPt1FilterConverges(t *testing.T) {
	var f Pt1Filter

	// Feed a constant input; the filter output must approach it.
	var out float64
	for i := 0; i < 1000; i++ {
		out = f.Apply(100.0, 10.0, 0.01)
	}

	if math.Abs(out-100.0) > 0.01 {
		t.Errorf("Pt1 filter did not converge: got %v, expected ~100", out)
	}
}

func TestPt1FilterSmoothing(t *testing.T) {
	var f Pt1Filter

	// A single step input must not pass through unattenuated.
	out := f.Apply(100.0, 2.0, 0.01)
	if out >= 100.0 || out <= 0.0 {
		t.Errorf("Pt1 filter step response out of range: %v", out)
	}

	// Lower cutoff means slower response.
	var slow Pt1Filter
	slowOut := slow.Apply(100.0, 0.5, 0.01)
	if slowOut >= out {
		t.Errorf("lower cutoff should respond slower: %v >= %v", slowOut, out)
	}
}

func TestPt1FilterReset(t *testing.T) {
	var f Pt1Filter

	f.Apply(50.0, 10.0, 0.01)
	f.Reset(7.5)

	if f.State() != 7.5 {
		t.Errorf("Reset state = %v, expected 7.5", f.State())
	}

	// Reset clears the cached time constant so a new cutoff can apply.
	out := f.Apply(7.5, 20.0, 0.01)
	if out != 7.5 {
		t.Errorf("filter at steady state moved: got %v", out)
	}
}

func TestFIRFilter(t *testing.T) {
	coeffs := []float64{5, 2, -8, -2, 3}
	f := NewFIRFilter(len(coeffs))

	// Constant signal: coefficient sum is zero, derivative must be zero.
	for i := 0; i < 10; i++ {
		f.Update(42.0)
	}
	if got := f.Apply(coeffs, 1.0); math.Abs(got) > 1e-9 {
		t.Errorf("FIR of constant signal = %v, expected 0", got)
	}

	// Linear ramp: the 5-point differentiator recovers the slope.
	// For samples k, k-1, ..., k-4 the convolution sums to 8 per unit
	// slope, hence the -kD/(8*dT) gain used by the rate controller.
	f.Reset()
	for i := 1; i <= 5; i++ {
		f.Update(float64(i))
	}
	if got := f.Apply(coeffs, 1.0/8.0); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("FIR ramp derivative = %v, expected 1", got)
	}
}

func TestFIRFilterUpdateOrder(t *testing.T) {
	f := NewFIRFilter(3)
	f.Update(1)
	f.Update(2)
	f.Update(3)

	// Newest sample carries the first coefficient.
	if got := f.Apply([]float64{1, 0, 0}, 1.0); got != 3 {
		t.Errorf("newest sample = %v, expected 3", got)
	}
	if got := f.Apply([]float64{0, 0, 1}, 1.0); got != 1 {
		t.Errorf("oldest sample = %v, expected 1", got)
	}
}
