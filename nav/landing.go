package nav

import (
	"math"

	"flightcore/core"
)

// landDetectorTriggerMs is how long the candidate landed condition
// must hold continuously before touchdown is confirmed.
const landDetectorTriggerMs = 2000

// LandingDetector confirms touchdown from movement, throttle and
// optionally the surface sensor. Descent must have been observed at
// least once since arming the detector, because the descend stage
// starts at near-zero velocity.
type LandingDetector struct {
	landingTimer       uint32
	hasHadSomeVelocity bool
}

// Reset re-arms the detector at the given time.
func (d *LandingDetector) Reset(currentTime uint32) {
	d.landingTimer = currentTime
	d.hasHadSomeVelocity = false
}

// Update evaluates the landed condition at currentTime and reports
// whether touchdown is confirmed. adjustedThrottle is the
// navigation-corrected throttle, not the raw stick.
func (d *LandingDetector) Update(currentTime uint32, state *PositionState, cfg *Config, adjustedThrottle int16) bool {
	// Wait until the craft has actually descended before trusting the
	// low-movement condition.
	if !d.hasHadSomeVelocity && state.Actual.Vel[core.Z] < -25.0 {
		d.hasHadSomeVelocity = true
	}

	verticalMovement := math.Abs(state.Actual.Vel[core.Z]) > 25.0
	horizontalMovement := state.Actual.VelXY > 100.0
	minimalThrust := adjustedThrottle < int16(cfg.MinFlyThrottle)

	possibleLandingDetected := d.hasHadSomeVelocity && minimalThrust && !verticalMovement && !horizontalMovement

	// A surface sensor adds an extra safety condition: within 5cm of
	// its ground reference.
	if state.Flags.HasValidSurfaceSensor && state.Actual.Surface >= 0 && state.Actual.SurfaceMin >= 0 {
		possibleLandingDetected = possibleLandingDetected && state.Actual.Surface <= state.Actual.SurfaceMin+5.0
	}

	if !possibleLandingDetected {
		d.landingTimer = currentTime
		return false
	}

	return core.DeltaMicros(currentTime, d.landingTimer) >= core.MicrosFromMillis(landDetectorTriggerMs)
}

// EmergencyLandingController forces a descent when navigation has
// failed. It reuses the altitude cascade with a fixed descent-rate
// target while an altitude reference exists, and falls back to a fixed
// throttle with no sensor dependency at all when it does not.
type EmergencyLandingController struct {
	state *PositionState
	cfg   *Config
	alt   *AltitudeController

	prevTimeUpdate         uint32
	prevTimePositionUpdate uint32
}

// NewEmergencyLandingController shares the altitude controller so the
// two use one throttle filter and one set of integrators.
func NewEmergencyLandingController(state *PositionState, cfg *Config, alt *AltitudeController) *EmergencyLandingController {
	return &EmergencyLandingController{state: state, cfg: cfg, alt: alt}
}

// Apply zeroes the rotational axes and commands the descent.
func (c *EmergencyLandingController) Apply(currentTime uint32, cmd *core.Commands) {
	deltaMicros := core.DeltaMicros(currentTime, c.prevTimeUpdate)
	c.prevTimeUpdate = currentTime

	// Attempt to stabilize.
	cmd[core.AxisRoll] = 0
	cmd[core.AxisPitch] = 0
	cmd[core.AxisYaw] = 0

	if !c.state.Flags.HasValidAltitudeSensor {
		// Sensors are gone; land on a fixed throttle regardless.
		if c.cfg.FailsafeThrottle != 0 {
			cmd[core.AxisThrottle] = int16(c.cfg.FailsafeThrottle)
		} else {
			cmd[core.AxisThrottle] = int16(c.cfg.MinThrottle)
		}
		return
	}

	// Altitude reference available: run the regular altitude cascade
	// with a forced descent-rate target.
	if deltaMicros > core.MicrosFromHz(minPositionUpdateRateHz) {
		c.prevTimePositionUpdate = currentTime
		c.alt.Reset()
		return
	}

	if c.state.Flags.VerticalPositionDataNew {
		deltaMicrosPositionUpdate := core.DeltaMicros(currentTime, c.prevTimePositionUpdate)
		c.prevTimePositionUpdate = currentTime

		if deltaMicrosPositionUpdate < core.MicrosFromHz(minPositionUpdateRateHz) {
			c.state.UpdateAltitudeTargetFromClimbRate(-c.cfg.EmergDescentRate, ClimbRateResetSurfaceTarget)
			c.alt.updateVelocityTarget(deltaMicrosPositionUpdate)
			c.alt.updateThrottleAdjustment(deltaMicrosPositionUpdate)
		} else {
			c.alt.Reset()
		}

		c.state.Flags.VerticalPositionDataConsumed = true
	}

	cmd[core.AxisThrottle] = core.Constrain(int16(c.cfg.HoverThrottle)+c.state.RCAdjustment[core.AxisThrottle], int16(c.cfg.MinThrottle), int16(c.cfg.MaxThrottle))
}
