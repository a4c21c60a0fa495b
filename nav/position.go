package nav

import (
	"math"

	"flightcore/core"
	"flightcore/pid"
)

// maxAccelChangeRate is the jerk limit on the acceleration target in
// cm/s^3 (about 100 deg/s of bank change). Keeps the outer loop from
// exciting the much faster attitude loop.
// TODO: Verify if we need jerk limiting after all
const maxAccelChangeRate = 1700.0

// PositionController is the multicopter horizontal position hold
// cascade: position error to velocity target to acceleration target to
// bank angles.
type PositionController struct {
	state *PositionState
	cfg   *Config

	prevTimeUpdate         uint32
	prevTimePositionUpdate uint32

	accFilterX core.Pt1Filter
	accFilterY core.Pt1Filter

	lastAccelTargetX float64
	lastAccelTargetY float64
}

// NewPositionController wires the cascade to its blackboard and
// config.
func NewPositionController(state *PositionState, cfg *Config) *PositionController {
	return &PositionController{state: state, cfg: cfg}
}

// Reset clears the velocity PIDs, acceleration history and outputs.
func (c *PositionController) Reset() {
	for axis := 0; axis < 2; axis++ {
		c.state.pids.vel[axis].Reset()
		c.state.RCAdjustment[axis] = 0
	}
	c.accFilterX.Reset(0)
	c.accFilterY.Reset(0)
	c.lastAccelTargetX = 0
	c.lastAccelTargetY = 0
}

// AdjustFromRCInput handles pilot roll/pitch input during position
// hold. In cruise mode the input moves the position target; in atti
// mode the caller passes the sticks through to the attitude loop.
// Reports whether the pilot is adjusting position.
func (c *PositionController) AdjustFromRCInput(cmd *core.Commands) bool {
	rcPitchAdjustment := core.ApplyDeadband(cmd[core.AxisPitch], c.cfg.PosHoldDeadband)
	rcRollAdjustment := core.ApplyDeadband(cmd[core.AxisRoll], c.cfg.PosHoldDeadband)

	if rcPitchAdjustment != 0 || rcRollAdjustment != 0 {
		if c.cfg.ControlMode() == ControlModeCruise {
			rcVelX := float64(rcPitchAdjustment) * c.cfg.MaxManualSpeed / 500
			rcVelY := float64(rcRollAdjustment) * c.cfg.MaxManualSpeed / 500

			// Rotate the commanded velocity from body to earth frame.
			neuVelX := rcVelX*c.state.Actual.CosYaw - rcVelY*c.state.Actual.SinYaw
			neuVelY := rcVelX*c.state.Actual.SinYaw + rcVelY*c.state.Actual.CosYaw

			// Place the target so the position P stage reproduces the
			// commanded velocity.
			c.state.Desired.Pos[core.X] = c.state.Actual.Pos[core.X] + neuVelX/c.state.pids.pos[core.X].KP
			c.state.Desired.Pos[core.Y] = c.state.Actual.Pos[core.Y] + neuVelY/c.state.pids.pos[core.Y].KP
		}
		return true
	}

	// Sticks released: park exactly where the braking distance runs
	// out.
	if c.state.Flags.IsAdjustingPosition {
		stopX, stopY := c.state.InitialHoldPosition()
		c.state.Desired.Pos[core.X] = stopX
		c.state.Desired.Pos[core.Y] = stopY
	}
	return false
}

// InitialHoldPosition projects the hold target ahead of the craft by
// its stopping distance at the current velocity.
func (s *PositionState) InitialHoldPosition() (x, y float64) {
	x = s.Actual.Pos[core.X] + s.Actual.Vel[core.X]*s.posDecelerationTime
	y = s.Actual.Pos[core.Y] + s.Actual.Vel[core.Y]*s.posDecelerationTime
	return x, y
}

// velocityHeadingAttenuation scales the velocity target down when the
// craft points away from its track so it turns first and accelerates
// later. Only effective on autonomous waypoint legs.
func (c *PositionController) velocityHeadingAttenuation(flags ControlFlags) float64 {
	if !flags.Has(ControlAutoWP) {
		return 1.0
	}

	headingError := core.Constrain(core.WrapCentiDeg180(c.state.Desired.Yaw-c.state.Actual.Yaw), -9000, 9000)
	velScaling := math.Cos(core.CentiDegToRad(float64(headingError)))

	return core.Constrain(velScaling*velScaling, 0.05, 1.0)
}

// velocityExpoAttenuation blends a linear and a cubic velocity
// response per the configured response expo.
func (c *PositionController) velocityExpoAttenuation(velTotal, velMax float64) float64 {
	velScale := core.Constrain(velTotal/velMax, 0.01, 1.0)
	return 1.0 - c.state.posResponseExpo*(1.0-velScale*velScale)
}

// updateVelocityTarget runs the position-to-velocity stage for X/Y,
// clamping the velocity magnitude while preserving its direction.
func (c *PositionController) updateVelocityTarget(flags ControlFlags) {
	s := c.state

	posErrorX := s.Desired.Pos[core.X] - s.Actual.Pos[core.X]
	posErrorY := s.Desired.Pos[core.Y] - s.Actual.Pos[core.Y]

	newVelX := posErrorX * s.pids.pos[core.X].KP
	newVelY := posErrorY * s.pids.pos[core.Y].KP

	maxSpeed := s.ActiveWaypointSpeed(c.cfg, flags)

	newVelTotal := math.Sqrt(newVelX*newVelX + newVelY*newVelY)
	if newVelTotal > maxSpeed {
		newVelX = maxSpeed * (newVelX / newVelTotal)
		newVelY = maxSpeed * (newVelY / newVelTotal)
		newVelTotal = maxSpeed
	}

	velHeadFactor := c.velocityHeadingAttenuation(flags)
	velExpoFactor := c.velocityExpoAttenuation(newVelTotal, maxSpeed)
	s.Desired.Vel[core.X] = newVelX * velHeadFactor * velExpoFactor
	s.Desired.Vel[core.Y] = newVelY * velHeadFactor * velExpoFactor
}

// updateAccelTarget runs the velocity-to-acceleration stage and
// converts the result to bank angles.
func (c *PositionController) updateAccelTarget(deltaMicros uint32, maxAccelLimit float64) {
	s := c.state
	dt := core.SecondsFromMicros(deltaMicros)

	velErrorX := s.Desired.Vel[core.X] - s.Actual.Vel[core.X]
	velErrorY := s.Desired.Vel[core.Y] - s.Actual.Vel[core.Y]

	// Apportion the total acceleration budget between the axes in
	// proportion to their share of the velocity error; an even 45
	// degree split when the error is near zero.
	var accelLimitX, accelLimitY float64
	velErrorMagnitude := math.Sqrt(velErrorX*velErrorX + velErrorY*velErrorY)
	if velErrorMagnitude > 0.1 {
		accelLimitX = maxAccelLimit / velErrorMagnitude * math.Abs(velErrorX)
		accelLimitY = maxAccelLimit / velErrorMagnitude * math.Abs(velErrorY)
	} else {
		accelLimitX = maxAccelLimit / 1.414213
		accelLimitY = accelLimitX
	}

	// Jerk-limit against the previous tick's acceleration target, not
	// the raw PID output.
	maxAccelChange := dt * maxAccelChangeRate
	accelLimitXMin := core.Constrain(c.lastAccelTargetX-maxAccelChange, -accelLimitX, accelLimitX)
	accelLimitXMax := core.Constrain(c.lastAccelTargetX+maxAccelChange, -accelLimitX, accelLimitX)
	accelLimitYMin := core.Constrain(c.lastAccelTargetY-maxAccelChange, -accelLimitY, accelLimitY)
	accelLimitYMax := core.Constrain(c.lastAccelTargetY+maxAccelChange, -accelLimitY, accelLimitY)

	// The limits above plus the PID's own output clamp guarantee the
	// acceleration target stays inside the budget.
	newAccelX := s.pids.vel[core.X].Apply(s.Desired.Vel[core.X], s.Actual.Vel[core.X], dt, accelLimitXMin, accelLimitXMax, false)
	newAccelY := s.pids.vel[core.Y].Apply(s.Desired.Vel[core.Y], s.Actual.Vel[core.Y], dt, accelLimitYMin, accelLimitYMax, false)

	c.lastAccelTargetX = newAccelX
	c.lastAccelTargetY = newAccelY

	accelN := c.accFilterX.Apply(newAccelX, navAccelCutoffHz, dt)
	accelE := c.accFilterY.Apply(newAccelY, navAccelCutoffHz, dt)

	// Rotate the earth-frame acceleration into the craft's
	// forward/right frame.
	accelForward := accelN*s.Actual.CosYaw + accelE*s.Actual.SinYaw
	accelRight := -accelN*s.Actual.SinYaw + accelE*s.Actual.CosYaw

	desiredPitch := math.Atan2(accelForward, gravityCmss)
	desiredRoll := math.Atan2(accelRight*math.Cos(desiredPitch), gravityCmss)

	maxBankAngle := int16(c.cfg.MaxBankAngle * 10)
	s.RCAdjustment[core.AxisRoll] = core.Constrain(int16(core.RadToDeciDeg(desiredRoll)), -maxBankAngle, maxBankAngle)
	s.RCAdjustment[core.AxisPitch] = core.Constrain(int16(core.RadToDeciDeg(desiredPitch)), -maxBankAngle, maxBankAngle)
}

// Apply runs one position control tick and writes the roll and pitch
// axes of the command vector, unless pilot input bypasses the
// controller or the position sensor is invalid (in which case sticks
// pass through untouched).
func (c *PositionController) Apply(flags ControlFlags, currentTime uint32, cmd *core.Commands) {
	deltaMicros := core.DeltaMicros(currentTime, c.prevTimeUpdate)
	c.prevTimeUpdate = currentTime

	// Pilot authority in atti mode: sticks go straight to the
	// attitude loop while the pilot is adjusting.
	bypass := c.cfg.ControlMode() == ControlModeAtti && c.state.Flags.IsAdjustingPosition

	if deltaMicros > core.MicrosFromHz(minPositionUpdateRateHz) {
		c.prevTimePositionUpdate = currentTime
		c.Reset()
		return
	}

	if c.state.Flags.HasValidPositionSensor {
		if c.state.Flags.HorizontalPositionDataNew {
			deltaMicrosPositionUpdate := core.DeltaMicros(currentTime, c.prevTimePositionUpdate)
			c.prevTimePositionUpdate = currentTime

			if !bypass {
				if deltaMicrosPositionUpdate < core.MicrosFromHz(minPositionUpdateRateHz) {
					c.updateVelocityTarget(flags)
					c.updateAccelTarget(deltaMicrosPositionUpdate, maxAccelerationXY)
				} else {
					c.Reset()
				}
			}

			c.state.Flags.HorizontalPositionDataConsumed = true
		}
	} else {
		// No position reference: zero the adjustments and hand the
		// sticks back to the pilot.
		c.state.RCAdjustment[core.AxisPitch] = 0
		c.state.RCAdjustment[core.AxisRoll] = 0
		bypass = true
	}

	if !bypass {
		cmd[core.AxisPitch] = pid.AngleToCommand(float64(c.state.RCAdjustment[core.AxisPitch]))
		cmd[core.AxisRoll] = pid.AngleToCommand(float64(c.state.RCAdjustment[core.AxisRoll]))
	}
}
