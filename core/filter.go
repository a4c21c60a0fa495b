package core

import "math"

// Pt1Filter is a single-pole (RC) low-pass filter. The time constant
// is derived from the cutoff frequency on first use and cached until
// the filter is reset, so the cutoff must stay fixed between resets.
type Pt1Filter struct {
	state float64
	rc    float64
}

// Apply filters one sample. cutoffHz must be > 0; dt is the elapsed
// time in seconds since the previous sample.
func (f *Pt1Filter) Apply(input, cutoffHz, dt float64) float64 {
	if f.rc == 0 {
		f.rc = 1.0 / (2.0 * math.Pi * cutoffHz)
	}
	f.state += dt / (f.rc + dt) * (input - f.state)
	return f.state
}

// Reset primes the filter state with value and clears the cached time
// constant.
func (f *Pt1Filter) Reset(value float64) {
	f.state = value
	f.rc = 0
}

// State returns the current filter output without updating it.
func (f *Pt1Filter) State() float64 {
	return f.state
}

// FIRFilter is a fixed-length sliding sample window for
// finite-impulse-response filtering. Samples are stored newest first.
type FIRFilter struct {
	samples []float64
}

// NewFIRFilter returns a FIR window holding taps samples, all zero.
func NewFIRFilter(taps int) *FIRFilter {
	return &FIRFilter{samples: make([]float64, taps)}
}

// Update shifts the window and inserts a new sample at the front.
func (f *FIRFilter) Update(sample float64) {
	for i := len(f.samples) - 1; i > 0; i-- {
		f.samples[i] = f.samples[i-1]
	}
	f.samples[0] = sample
}

// Apply convolves the window with coeffs and scales the sum by gain.
// coeffs must have the same length as the window.
func (f *FIRFilter) Apply(coeffs []float64, gain float64) float64 {
	var sum float64
	for i, s := range f.samples {
		sum += s * coeffs[i]
	}
	return sum * gain
}

// Reset zeroes the sample window.
func (f *FIRFilter) Reset() {
	for i := range f.samples {
		f.samples[i] = 0
	}
}
