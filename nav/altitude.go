package nav

import (
	"flightcore/core"
)

// ClimbRateMode tells UpdateAltitudeTargetFromClimbRate what to do
// with the surface-tracking setpoint while moving the altitude target.
type ClimbRateMode uint8

const (
	// ClimbRateUpdateSurfaceTarget moves the surface setpoint along
	// with the climb.
	ClimbRateUpdateSurfaceTarget ClimbRateMode = iota
	// ClimbRateKeepSurfaceTarget leaves the surface setpoint alone.
	ClimbRateKeepSurfaceTarget
	// ClimbRateResetSurfaceTarget drops the surface setpoint.
	ClimbRateResetSurfaceTarget
)

// UpdateAltitudeTargetFromClimbRate recomputes the desired altitude so
// that the position-to-velocity P stage yields the requested climb
// rate in cm/s.
func (s *PositionState) UpdateAltitudeTargetFromClimbRate(climbRate float64, mode ClimbRateMode) {
	if mode == ClimbRateResetSurfaceTarget {
		s.Desired.Surface = -1
	} else if s.Flags.IsTerrainFollowEnabled {
		if s.Actual.Surface >= 0 && s.Flags.HasValidSurfaceSensor && mode == ClimbRateUpdateSurfaceTarget {
			s.Desired.Surface = core.Constrain(s.Actual.Surface+climbRate/(s.pids.pos[core.Z].KP*s.pids.surface.kP), 1.0, surfaceMaxDistance)
		}
	} else {
		s.Desired.Surface = -1
	}

	s.Desired.Pos[core.Z] = s.Actual.Pos[core.Z] + climbRate/s.pids.pos[core.Z].KP
}

// AltitudeController is the multicopter altitude hold cascade:
// position error to velocity target to throttle adjustment, with an
// optional surface-tracking override of the altitude setpoint.
type AltitudeController struct {
	state *PositionState
	cfg   *Config

	prevTimeUpdate         uint32
	prevTimePositionUpdate uint32

	throttleFilter core.Pt1Filter

	// Stick position that maps to zero climb rate.
	throttleRCZero int16

	prepareForTakeoffOnReset bool

	// Throttle after navigation adjustment, recorded for the landing
	// detector (the raw command vector holds pilot input when the
	// detector runs).
	adjustedThrottle int16
}

// NewAltitudeController wires the cascade to its blackboard and
// config.
func NewAltitudeController(state *PositionState, cfg *Config) *AltitudeController {
	return &AltitudeController{
		state:          state,
		cfg:            cfg,
		throttleRCZero: 1500,
	}
}

// AdjustedThrottle returns the last navigation-corrected throttle.
func (c *AltitudeController) AdjustedThrottle() int16 {
	return c.adjustedThrottle
}

// updateSurfaceTrackingSetpoint recalculates the altitude target from
// the surface-distance error when terrain following is active.
func (c *AltitudeController) updateSurfaceTrackingSetpoint(deltaMicros uint32) {
	s := c.state
	if !s.Flags.IsTerrainFollowEnabled || s.Desired.Surface < 0 {
		return
	}

	if s.Actual.Surface >= 0 && s.Flags.HasValidSurfaceSensor {
		// Asymmetric bounds: overshooting terrain clearance is safer
		// than undershooting it.
		targetAltitudeError := s.pids.surface.Apply(s.Desired.Surface, s.Actual.Surface, core.SecondsFromMicros(deltaMicros), -5.0, 35.0, false)
		s.Desired.Pos[core.Z] = s.Actual.Pos[core.Z] + targetAltitudeError
	} else {
		// Surface reading lost, possibly above sensor range; descend
		// until it comes back.
		s.UpdateAltitudeTargetFromClimbRate(-20.0, ClimbRateKeepSurfaceTarget)
	}
}

// updateVelocityTarget runs the position-to-velocity stage: altitude
// error through the Z position gain, hard-limited to 20 m/s and
// rate-limited to 250 cm/s^2 so setpoint steps do not slam the
// throttle loop.
func (c *AltitudeController) updateVelocityTarget(deltaMicros uint32) {
	s := c.state

	altitudeError := s.Desired.Pos[core.Z] - s.Actual.Pos[core.Z]
	targetVel := core.Constrain(altitudeError*s.pids.pos[core.Z].KP, -2000.0, 2000.0)

	maxVelDifference := core.SecondsFromMicros(deltaMicros) * 250.0
	s.Desired.Vel[core.Z] = core.Constrain(targetVel, s.Desired.Vel[core.Z]-maxVelDifference, s.Desired.Vel[core.Z]+maxVelDifference)
}

// updateThrottleAdjustment runs the velocity-to-throttle stage. The
// output bounds are the distance from hover throttle to the ESC range
// ends, which also caps integral windup.
func (c *AltitudeController) updateThrottleAdjustment(deltaMicros uint32) {
	s := c.state
	dt := core.SecondsFromMicros(deltaMicros)

	thrAdjustmentMin := float64(int(c.cfg.MinThrottle) - int(c.cfg.HoverThrottle))
	thrAdjustmentMax := float64(int(c.cfg.MaxThrottle) - int(c.cfg.HoverThrottle))

	adj := s.pids.vel[core.Z].Apply(s.Desired.Vel[core.Z], s.Actual.Vel[core.Z], dt, thrAdjustmentMin, thrAdjustmentMax, false)
	adj = c.throttleFilter.Apply(adj, navThrottleCutoffHz, dt)
	adj = core.Constrain(adj, thrAdjustmentMin, thrAdjustmentMax)

	s.RCAdjustment[core.AxisThrottle] = int16(adj)
}

// AdjustFromRCInput maps throttle stick deflection beyond the deadband
// to a climb-rate target. Reports whether the pilot is adjusting
// altitude.
func (c *AltitudeController) AdjustFromRCInput(cmd *core.Commands) bool {
	rcThrottleAdjustment := cmd[core.AxisThrottle] - c.throttleRCZero

	if absInt16(rcThrottleAdjustment) > c.cfg.AltHoldDeadband {
		var rcClimbRate float64

		// Two different scalings so full stick reaches the same climb
		// rate in both directions regardless of where zero sits.
		if rcThrottleAdjustment > 0 {
			rcClimbRate = float64(rcThrottleAdjustment) * c.cfg.MaxManualClimbRate / float64(int(c.cfg.MaxThrottle)-int(c.throttleRCZero))
		} else {
			rcClimbRate = float64(rcThrottleAdjustment) * c.cfg.MaxManualClimbRate / float64(int(c.throttleRCZero)-int(c.cfg.MinThrottle))
		}

		c.state.UpdateAltitudeTargetFromClimbRate(rcClimbRate, ClimbRateUpdateSurfaceTarget)
		return true
	}

	// Stick released: freeze the target at zero climb rate, exactly
	// where the pilot let go.
	if c.state.Flags.IsAdjustingAltitude {
		c.state.UpdateAltitudeTargetFromClimbRate(0, ClimbRateUpdateSurfaceTarget)
	}
	return false
}

// Setup captures the stick zero point when altitude hold engages.
// rcThrottle is the current raw throttle command; throttleLow reports
// an idle/pre-arm throttle stick.
func (c *AltitudeController) Setup(rcThrottle int16, throttleLow bool) {
	if c.cfg.UseThrMidForAltHold || throttleLow {
		c.throttleRCZero = int16(c.cfg.ThrottleMid)
	} else {
		c.throttleRCZero = rcThrottle
	}

	// Keep the full deadband usable inside the throttle range.
	c.throttleRCZero = core.Constrain(c.throttleRCZero,
		int16(c.cfg.MinThrottle)+c.cfg.AltHoldDeadband+10,
		int16(c.cfg.MaxThrottle)-c.cfg.AltHoldDeadband-10)

	// Arm the takeoff integrator preload so engaging the controller
	// at idle throttle cannot jump the craft off the ground.
	if throttleLow {
		c.prepareForTakeoffOnReset = true
	}
}

// Reset reinitializes the cascade: zeroed integrators and filter, the
// velocity target resynced to the measured climb rate. Safe to call
// repeatedly; two consecutive resets leave identical state.
func (c *AltitudeController) Reset() {
	s := c.state

	s.pids.vel[core.Z].Reset()
	s.pids.surface.Reset()
	c.throttleFilter.Reset(0)
	s.Desired.Vel[core.Z] = s.Actual.Vel[core.Z]
	s.RCAdjustment[core.AxisThrottle] = 0

	// Start deep into negative throttle adjustment for a pending
	// takeoff. Too much on purpose: the cascade unwinds it smoothly,
	// and it guarantees no jump at spool-up.
	if c.prepareForTakeoffOnReset {
		s.pids.vel[core.Z].SetIntegrator(-500.0)
	}
}

// Apply runs one altitude control tick and writes the throttle axis of
// the command vector. A gap longer than the minimum update interval
// resets the cascade instead of integrating across it.
func (c *AltitudeController) Apply(currentTime uint32, cmd *core.Commands) {
	deltaMicros := core.DeltaMicros(currentTime, c.prevTimeUpdate)
	c.prevTimeUpdate = currentTime

	if deltaMicros > core.MicrosFromHz(minPositionUpdateRateHz) {
		c.prevTimePositionUpdate = currentTime
		c.Reset()
		return
	}

	if c.state.Flags.VerticalPositionDataNew {
		deltaMicrosPositionUpdate := core.DeltaMicros(currentTime, c.prevTimePositionUpdate)
		c.prevTimePositionUpdate = currentTime

		if deltaMicrosPositionUpdate < core.MicrosFromHz(minPositionUpdateRateHz) {
			c.updateSurfaceTrackingSetpoint(deltaMicrosPositionUpdate)
			c.updateVelocityTarget(deltaMicrosPositionUpdate)
			c.updateThrottleAdjustment(deltaMicrosPositionUpdate)
			c.prepareForTakeoffOnReset = false
		} else {
			// Position update missed its slot; resync rather than act
			// on a stale measurement.
			c.Reset()
		}

		c.state.Flags.VerticalPositionDataConsumed = true
	}

	cmd[core.AxisThrottle] = core.Constrain(int16(c.cfg.HoverThrottle)+c.state.RCAdjustment[core.AxisThrottle], int16(c.cfg.MinThrottle), int16(c.cfg.MaxThrottle))
	c.adjustedThrottle = cmd[core.AxisThrottle]
}
