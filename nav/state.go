package nav

import (
	"flightcore/core"
	"flightcore/pid"
)

// Shared controller constants. Timing thresholds derive from the
// minimum acceptable position update rate: anything older is treated
// as stale and resets the affected controller.
const (
	minPositionUpdateRateHz = 5

	navThrottleCutoffHz = 4.0
	navAccelCutoffHz    = 2.0

	// maxAccelerationXY is the total horizontal acceleration budget in
	// cm/s^2 apportioned between the X and Y axes.
	maxAccelerationXY = 980.0

	gravityCmss = 980.665

	// surfaceMaxDistance is the ceiling for surface-tracking setpoints
	// in cm.
	surfaceMaxDistance = 40.0
)

// ControlFlags declares which axes navigation owns this tick. The
// orchestrator is the only writer of the command vector axes these
// flags claim.
type ControlFlags uint8

const (
	// ControlAlt - navigation owns the throttle axis.
	ControlAlt ControlFlags = 1 << iota
	// ControlPos - navigation owns roll/pitch.
	ControlPos
	// ControlYaw - navigation owns the heading.
	ControlYaw
	// ControlEmergency - emergency landing overrides everything.
	ControlEmergency
	// ControlAutoWP - autonomous waypoint leg is being flown.
	ControlAutoWP
)

// Has reports whether all flags in f are set.
func (c ControlFlags) Has(f ControlFlags) bool {
	return c&f == f
}

// UserControlMode selects how pilot sticks interact with position
// hold.
type UserControlMode uint8

const (
	// ControlModeAtti - stick input bypasses the position controller
	// and goes straight to the attitude loop.
	ControlModeAtti UserControlMode = iota
	// ControlModeCruise - stick input moves the position target.
	ControlModeCruise
)

// DesiredState is the navigation setpoint block. Only the controller
// that owns the active navigation mode mutates it.
type DesiredState struct {
	Pos core.Vec3
	Vel core.Vec3

	// Yaw in centidegrees.
	Yaw int32

	// Surface is the desired height above terrain in cm; negative
	// means no surface target.
	Surface float64
}

// ActualState is the estimator's view of the craft. It is written
// exclusively by the estimator between ticks and read-only to the
// controllers.
type ActualState struct {
	Pos core.Vec3
	Vel core.Vec3

	// VelXY is the horizontal speed magnitude in cm/s.
	VelXY float64

	// Yaw in centidegrees, with its rotation terms precomputed once
	// per estimator update.
	Yaw    int32
	CosYaw float64
	SinYaw float64

	// Surface and SurfaceMin are the proximity sensor reading and its
	// ground reference in cm; negative when unavailable.
	Surface    float64
	SurfaceMin float64
}

// Flags carries the sensor-validity and adjustment state shared
// between the controllers and the mode arbitration logic.
type Flags struct {
	HasValidPositionSensor bool
	HasValidAltitudeSensor bool
	HasValidSurfaceSensor  bool

	IsTerrainFollowEnabled bool

	IsAdjustingAltitude bool
	IsAdjustingPosition bool
	IsAdjustingHeading  bool

	VerticalPositionDataNew        bool
	VerticalPositionDataConsumed   bool
	HorizontalPositionDataNew      bool
	HorizontalPositionDataConsumed bool
}

// Waypoint is a single mission leg. Speed zero or out of range falls
// back to the configured maximum.
type Waypoint struct {
	Pos   core.Vec3
	Speed float64 // cm/s
}

// pidSet groups the navigation PID sub-states: P-only position stages
// and full PIDs for velocity and surface tracking.
type pidSet struct {
	pos     [3]P
	vel     [3]*PID
	surface *PID
}

// PositionState is the navigation blackboard: desired vs actual state,
// the PID sub-states, control flags and the per-axis output
// adjustments handed to the command vector.
type PositionState struct {
	Desired DesiredState
	Actual  ActualState
	Flags   Flags

	// RCAdjustment is the controller output per command axis:
	// decidegree bank angles on roll/pitch, throttle delta on
	// throttle.
	RCAdjustment [core.CommandAxisCount]int16

	Waypoints      []Waypoint
	ActiveWaypoint int

	pids pidSet

	// posResponseExpo shapes the velocity response curve (0 linear,
	// 1 fully cubic); posDecelerationTime sizes the braking distance
	// when sticks are released in position hold. Both derive from the
	// POS tuning slot.
	posResponseExpo     float64
	posDecelerationTime float64
}

// NewPositionState derives the navigation PID gains from the tuning
// profile the same way the rate controller derives its own.
func NewPositionState(profile *pid.Profile) *PositionState {
	s := &PositionState{}

	s.posDecelerationTime = float64(profile.I[pid.SlotPos]) / 100.0
	s.posResponseExpo = core.Constrain(float64(profile.D[pid.SlotPos])/100.0, 0.0, 1.0)

	for axis := 0; axis < 2; axis++ {
		s.pids.pos[axis] = P{KP: float64(profile.P[pid.SlotPos]) / 100.0}
		s.pids.vel[axis] = NewPID(
			float64(profile.P[pid.SlotPosRate])/100.0,
			float64(profile.I[pid.SlotPosRate])/100.0,
			float64(profile.D[pid.SlotPosRate])/100.0,
		)
	}

	s.pids.pos[core.Z] = P{KP: float64(profile.P[pid.SlotAlt]) / 100.0}
	s.pids.vel[core.Z] = NewPID(
		float64(profile.P[pid.SlotVel])/100.0,
		float64(profile.I[pid.SlotVel])/100.0,
		float64(profile.D[pid.SlotVel])/100.0,
	)

	s.pids.surface = NewPID(2.0, 1.0, 0.0)

	s.Desired.Surface = -1
	s.Actual.Surface = -1
	s.Actual.SurfaceMin = -1
	s.Actual.CosYaw = 1

	return s
}

// ActiveWaypointSpeed returns the speed for the current mission leg,
// falling back to the configured maximum outside the valid window.
func (s *PositionState) ActiveWaypointSpeed(cfg *Config, flags ControlFlags) float64 {
	speed := cfg.MaxSpeed

	if flags.Has(ControlAutoWP) && len(s.Waypoints) > 0 && s.ActiveWaypoint >= 0 && s.ActiveWaypoint < len(s.Waypoints) {
		wpSpeed := s.Waypoints[s.ActiveWaypoint].Speed
		if wpSpeed >= 50 && wpSpeed <= cfg.MaxSpeed {
			speed = wpSpeed
		}
	}

	return speed
}
