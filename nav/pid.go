package nav

import (
	"flightcore/core"
)

// navDtermCutHz is the fixed cutoff for the derivative low-pass inside
// the navigation PID.
const navDtermCutHz = 10.0

// PID is the generic bounded single-axis controller shared by the
// altitude, velocity and surface-tracking loops. Output limiting uses
// back-calculation anti-windup: the integrator absorbs the gap between
// the clamped and unclamped output through the tracking gain.
type PID struct {
	kP float64
	kI float64
	kD float64
	kT float64

	integrator  float64
	lastInput   float64
	dtermFilter core.Pt1Filter
}

// NewPID returns a controller with the given gains. When either kP or
// kI is effectively zero the integral path is disabled entirely so the
// tracking-gain division is never taken.
func NewPID(kP, kI, kD float64) *PID {
	p := &PID{kP: kP, kI: kI, kD: kD}

	if kI > 1e-6 && kP > 1e-6 {
		ti := kP / kI
		td := kD / kP
		p.kT = 2.0 / (ti + td)
	} else {
		p.kI = 0
		p.kT = 0
	}

	p.Reset()
	return p
}

// Apply runs one controller step: setpoint and measurement in the same
// unit, dt in seconds, output clamped to [outMin, outMax]. With
// dTermErrorTracking the derivative acts on the error instead of the
// measurement.
func (p *PID) Apply(setpoint, measurement, dt float64, outMin, outMax float64, dTermErrorTracking bool) float64 {
	err := setpoint - measurement

	newProportional := err * p.kP

	var newDerivative float64
	if dTermErrorTracking {
		newDerivative = (err - p.lastInput) / dt
		p.lastInput = err
	} else {
		newDerivative = -(measurement - p.lastInput) / dt
		p.lastInput = measurement
	}
	newDerivative = p.kD * p.dtermFilter.Apply(newDerivative, navDtermCutHz, dt)

	outVal := newProportional + p.integrator + newDerivative
	outValConstrained := core.Constrain(outVal, outMin, outMax)

	p.integrator += err*p.kI*dt + (outValConstrained-outVal)*p.kT*dt

	return outValConstrained
}

// Reset zeroes the integrator, derivative memory and filter state.
func (p *PID) Reset() {
	p.integrator = 0
	p.lastInput = 0
	p.dtermFilter.Reset(0)
}

// SetIntegrator pre-loads the integrator, used to prevent a throttle
// jump when altitude hold engages before takeoff.
func (p *PID) SetIntegrator(v float64) {
	p.integrator = v
}

// Integrator returns the current integrator value.
func (p *PID) Integrator() float64 {
	return p.integrator
}

// P is a proportional-only controller used by the position-to-velocity
// stages.
type P struct {
	KP float64
}

func absInt16(x int16) int16 {
	if x < 0 {
		return -x
	}
	return x
}
