package pid

import (
	"math"

	"flightcore/core"
)

const (
	// GyroSaturationLimit is the highest rotation rate (deg/s) the
	// gyro can measure reliably; rate targets are clamped to it.
	GyroSaturationLimit = 1800.0

	// MaxOutput bounds the per-axis controller output fed to the mixer.
	MaxOutput = 1000.0

	// kdAttenuationBreak is the relative throttle below which the
	// D-term is additionally attenuated.
	kdAttenuationBreak = 0.25

	dtermTaps = 5
)

// 5-point noise-robust forward differentiator coefficients
// (Holoborodko). Applied to the gyro signal with gain -kD/(8*dT).
var dtermCoeffs = []float64{5, 2, -8, -2, 3}

// axisState is the per-axis controller state: coefficients recomputed
// by UpdateCoefficients, the derivative window, the rate integrator
// with its dynamic anti-windup limit, and the filter stages.
type axisState struct {
	kP float64
	kI float64
	kD float64
	kT float64 // back-calculation tracking gain

	gyroRate   float64
	rateTarget float64

	dtermBuf *core.FIRFilter

	errorGyroIf      float64
	errorGyroIfLimit float64

	// Yaw-only heading lock accumulator.
	axisLockAccum float64

	angleFilter core.Pt1Filter
	ptermFilter core.Pt1Filter
	dtermFilter core.Pt1Filter
}

// TermDebug exposes the last computed P/I/D terms and setpoint per
// axis for logging and telemetry.
type TermDebug struct {
	P        [core.AxisCount]float64
	I        [core.AxisCount]float64
	D        [core.AxisCount]float64
	Setpoint [core.AxisCount]float64
}

// Input carries everything the rate controller consumes for one tick.
// All fields are written by their owning collaborator between ticks.
type Input struct {
	// GyroADC is the raw gyro reading per axis; GyroScale converts it
	// to degrees per second.
	GyroADC   [core.AxisCount]int32
	GyroScale float64

	// Attitude in decidegrees: roll and pitch centered on level, yaw
	// in [0, 3600).
	Attitude [core.AxisCount]int16

	// Commands is the shared command vector (pilot sticks on entry).
	Commands *core.Commands

	Modes  core.Mode
	Status core.Status

	// HasMag reports a usable compass.
	HasMag bool

	// NavHeading is the navigation heading-control claim this tick.
	NavHeading core.HeadingControl

	// MotorCount and MotorLimitReached come from the mixer.
	MotorCount        int
	MotorLimitReached bool
}

// Controller is the attitude/rate PID controller. One instance per
// craft; all state is explicit and survives for the life of the
// flight-control task.
type Controller struct {
	profile *Profile
	rates   *RateConfig
	rx      *RxConfig

	axes      [core.AxisCount]axisState
	tpaFactor float64
	magHold   MagHold

	// Output is the bounded per-axis correction for the mixer.
	Output [core.AxisCount]int16

	Debug TermDebug
}

// NewController returns a rate controller bound to the given tuning.
func NewController(profile *Profile, rates *RateConfig, rx *RxConfig) *Controller {
	c := &Controller{
		profile:   profile,
		rates:     rates,
		rx:        rx,
		tpaFactor: 1.0,
	}
	for axis := range c.axes {
		c.axes[axis].dtermBuf = core.NewFIRFilter(dtermTaps)
	}
	return c
}

// MagHoldTarget returns the heading-hold target in degrees.
func (c *Controller) MagHoldTarget() int16 {
	return c.magHold.Target()
}

// SetMagHoldTarget sets the heading-hold target in degrees. The
// navigation heading controller calls this when it owns the yaw axis.
func (c *Controller) SetMagHoldTarget(deg int16) {
	c.magHold.SetTarget(deg)
}

// ResetErrorAccumulators zeroes the rate integrators and the heading
// lock accumulator. Called on arming-state transitions.
func (c *Controller) ResetErrorAccumulators() {
	for axis := range c.axes {
		c.axes[axis].errorGyroIf = 0
		c.axes[axis].errorGyroIfLimit = 0
	}
	c.axes[core.AxisYaw].axisLockAccum = 0
}

// UpdateCoefficients recomputes the per-axis PID coefficients from the
// integer profile gains, applying TPA. Not tick-critical, but must run
// before the next Apply whenever throttle or the profile changed.
// rcThrottle is the raw throttle channel value.
func (c *Controller) UpdateCoefficients(rcThrottle uint16) {
	// TPA factor: no attenuation below the breakpoint, linear ramp up
	// to full configured attenuation at 2000.
	switch {
	case c.rates.DynThrPID == 0 || rcThrottle < c.rates.TPABreakpoint:
		c.tpaFactor = 1.0
	case rcThrottle < 2000:
		// Intermediate product can exceed uint16, so ramp in int.
		ramp := int(c.rates.DynThrPID) * int(rcThrottle-c.rates.TPABreakpoint) / int(2000-c.rates.TPABreakpoint)
		c.tpaFactor = float64(100-ramp) / 100.0
	default:
		c.tpaFactor = float64(100-c.rates.DynThrPID) / 100.0
	}

	// Throttle-proportional D attenuation near idle.
	relThrottle := core.Constrain((float64(rcThrottle)-float64(c.rx.MinCheck))/(float64(c.rx.MaxCheck)-float64(c.rx.MinCheck)), 0.0, 1.0)
	kdAttenuation := 1.0
	if relThrottle < kdAttenuationBreak {
		kdAttenuation = core.Constrain(relThrottle/kdAttenuationBreak+0.50, 0.0, 1.0)
	}

	for axis := 0; axis < core.AxisCount; axis++ {
		s := &c.axes[axis]
		s.kP = float64(c.profile.P[axis]) / ratePMultiplier
		s.kI = float64(c.profile.I[axis]) / rateIMultiplier
		s.kD = float64(c.profile.D[axis]) / rateDMultiplier

		if axis != core.AxisYaw {
			s.kP *= c.tpaFactor
			s.kD *= c.tpaFactor * kdAttenuation
		}

		// Back-calculation tracking gain; zero when either gain is
		// zero so the division is guarded.
		if c.profile.P[axis] != 0 && c.profile.I[axis] != 0 {
			s.kT = 2.0 / (s.kP/s.kI + s.kD/s.kP)
		} else {
			s.kT = 0
		}
	}
}

// Apply runs one control tick of period dT seconds, filling Output.
func (c *Controller) Apply(in *Input, dT float64) {
	magHoldState := c.magHold.State(in)
	if magHoldState == MagHoldUpdateHeading {
		c.magHold.SetTarget(in.Attitude[core.AxisYaw] / 10)
	}

	for axis := 0; axis < core.AxisCount; axis++ {
		s := &c.axes[axis]
		s.gyroRate = float64(in.GyroADC[axis]) * in.GyroScale

		var rateTarget float64
		if axis == core.AxisYaw && magHoldState == MagHoldEnabled {
			rateTarget = c.magHold.Rate(c.profile, in.Attitude[core.AxisYaw], dT)
		} else {
			rateTarget = StickToRate(in.Commands[axis], c.rates.Rates[axis])
		}

		s.rateTarget = core.Constrain(rateTarget, -GyroSaturationLimit, GyroSaturationLimit)
	}

	if in.Modes.Has(core.ModeAngle) || in.Modes.Has(core.ModeHorizon) {
		strength := c.horizonLevelStrength(in)
		c.applyLevel(&c.axes[core.AxisRoll], in, core.AxisRoll, strength, dT)
		c.applyLevel(&c.axes[core.AxisPitch], in, core.AxisPitch, strength, dT)
	}

	if in.Modes.Has(core.ModeHeadingLock) && magHoldState != MagHoldEnabled {
		c.applyHeadingLock(&c.axes[core.AxisYaw], in, dT)
	}

	for axis := 0; axis < core.AxisCount; axis++ {
		c.applyRate(&c.axes[axis], in, axis, dT)
	}
}

// horizonLevelStrength derives how much self-leveling to blend in:
// 1 at stick center fading to 0 as roll/pitch deflection approaches
// maximum, shaped by the LEVEL D gain.
func (c *Controller) horizonLevelStrength(in *Input) float64 {
	stickPosAil := math.Abs(float64(in.Commands[core.AxisRoll]))
	stickPosEle := math.Abs(float64(in.Commands[core.AxisPitch]))
	mostDeflected := math.Max(stickPosAil, stickPosEle)

	strength := (500 - mostDeflected) / 500
	if c.profile.D[SlotLevel] == 0 {
		return 0
	}
	return core.Constrain((strength-1)*(100.0/float64(c.profile.D[SlotLevel]))+1, 0, 1)
}

// applyLevel runs the angle/horizon self-leveling sub-controller for a
// roll or pitch axis, overriding (angle) or blending into (horizon)
// the rate target.
func (c *Controller) applyLevel(s *axisState, in *Input, axis int, horizonStrength float64, dT float64) {
	angleTarget := StickToAngle(in.Commands[axis])
	maxInclination := float64(c.profile.MaxAngleInclination[axis])
	angleError := (core.Constrain(angleTarget, -maxInclination, maxInclination) - float64(in.Attitude[axis])) / 10.0

	if in.Modes.Has(core.ModeHorizon) {
		s.rateTarget += angleError * (float64(c.profile.P[SlotLevel]) / levelPMultiplier) * horizonStrength
	} else {
		s.rateTarget = angleError * (float64(c.profile.P[SlotLevel]) / levelPMultiplier)
	}

	// Attitude updates at gyro rate; feeding it straight into the rate
	// loop doubles the effective error and lets the D-term chase every
	// attitude twitch. A low-pass on the rate target smooths the
	// self-leveling response. The LEVEL I gain doubles as the cutoff
	// frequency in Hz.
	if c.profile.I[SlotLevel] != 0 {
		s.rateTarget = s.angleFilter.Apply(s.rateTarget, float64(c.profile.I[SlotLevel]), dT)
	}
}

// applyHeadingLock holds the current heading against external
// disturbance by integrating yaw rate error while the stick is
// centered and the craft is armed.
func (c *Controller) applyHeadingLock(s *axisState, in *Input, dT float64) {
	if math.Abs(s.rateTarget) > 2 || !in.Status.Has(core.StatusArmed) {
		s.axisLockAccum = 0
		return
	}
	s.axisLockAccum += (s.rateTarget - s.gyroRate) * dT
	s.axisLockAccum = core.Constrain(s.axisLockAccum, -45, 45)
	s.rateTarget = s.axisLockAccum * (float64(c.profile.P[SlotMag]) / yawHoldPMultiplier)
}

func (c *Controller) applyRate(s *axisState, in *Input, axis int, dT float64) {
	rateError := s.rateTarget - s.gyroRate

	newPTerm := rateError * s.kP
	// Clamp yaw P on multirotor frames; servo-driven yaw has its own
	// travel limits.
	if axis == core.AxisYaw && in.MotorCount >= 4 && c.profile.YawPLimit != 0 {
		newPTerm = core.Constrain(newPTerm, -c.profile.YawPLimit, c.profile.YawPLimit)
	}
	if axis == core.AxisYaw && c.profile.YawLpfHz != 0 {
		newPTerm = s.ptermFilter.Apply(newPTerm, c.profile.YawLpfHz, dT)
	}

	var newDTerm float64
	if c.profile.D[axis] == 0 {
		// Shortcut when D is zero, common on yaw.
		newDTerm = 0
	} else {
		// Differentiate the gyro signal, not the error, so setpoint
		// steps do not spike the D-term.
		s.dtermBuf.Update(s.gyroRate)
		newDTerm = s.dtermBuf.Apply(dtermCoeffs, -s.kD/(8*dT))

		if c.profile.DtermLpfHz != 0 {
			newDTerm = s.dtermFilter.Apply(newDTerm, c.profile.DtermLpfHz, dT)
		}
	}

	attenuation := 1.0
	if in.Status.Has(core.StatusPIDAttenuate) {
		attenuation = 0.33
	}

	newOutput := (newPTerm+newDTerm)*attenuation + s.errorGyroIf
	newOutputLimited := core.Constrain(newOutput, -MaxOutput, MaxOutput)

	// Back-calculation anti-windup: the integrator absorbs the gap
	// between clamped and unclamped output through kT.
	s.errorGyroIf += rateError*s.kI*dT + (newOutputLimited-newOutput)*s.kT*dT

	if in.Status.Has(core.StatusAntiWindup) || in.MotorLimitReached {
		// Don't grow the I-term while the actuators are saturated.
		s.errorGyroIf = core.Constrain(s.errorGyroIf, -s.errorGyroIfLimit, s.errorGyroIfLimit)
	} else {
		s.errorGyroIfLimit = math.Abs(s.errorGyroIf)
	}

	c.Output[axis] = int16(newOutputLimited)

	c.Debug.P[axis] = newPTerm
	c.Debug.I[axis] = s.errorGyroIf
	c.Debug.D[axis] = newDTerm
	c.Debug.Setpoint[axis] = s.rateTarget
}
