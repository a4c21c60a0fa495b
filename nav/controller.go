package nav

import (
	"flightcore/core"
	"flightcore/pid"
)

// HeadingTarget is the yaw hand-off point between navigation and the
// rate loop: navigation sets the heading, the rate controller's
// heading hold flies it.
type HeadingTarget interface {
	SetMagHoldTarget(deg int16)
}

// Multicopter ties the navigation controllers together and arbitrates
// which controller writes each command-vector axis per tick. It is the
// single orchestration point; no controller overwrites another's axis.
type Multicopter struct {
	State *PositionState

	cfg     *Config
	heading HeadingTarget

	Alt       *AltitudeController
	Pos       *PositionController
	Emergency *EmergencyLandingController
	Landing   LandingDetector
}

// NewMulticopter builds the full navigation control cascade from one
// tuning profile and nav config.
func NewMulticopter(profile *pid.Profile, cfg *Config, heading HeadingTarget) *Multicopter {
	state := NewPositionState(profile)
	alt := NewAltitudeController(state, cfg)

	return &Multicopter{
		State:     state,
		cfg:       cfg,
		heading:   heading,
		Alt:       alt,
		Pos:       NewPositionController(state, cfg),
		Emergency: NewEmergencyLandingController(state, cfg, alt),
	}
}

// Apply runs the controllers the navigation state flags claim this
// tick. Emergency landing preempts everything else.
func (m *Multicopter) Apply(flags ControlFlags, currentTime uint32, cmd *core.Commands) {
	if flags.Has(ControlEmergency) {
		m.Emergency.Apply(currentTime, cmd)
		return
	}

	if flags.Has(ControlAlt) {
		m.Alt.Apply(currentTime, cmd)
	}
	if flags.Has(ControlPos) {
		m.Pos.Apply(flags, currentTime, cmd)
	}
	if flags.Has(ControlYaw) {
		m.applyHeadingController()
	}
}

// ProcessRCAdjustments lets the pilot nudge the active setpoints and
// records the "adjusting" signals mode arbitration consumes.
func (m *Multicopter) ProcessRCAdjustments(flags ControlFlags, cmd *core.Commands) {
	if flags.Has(ControlEmergency) {
		m.State.Flags.IsAdjustingAltitude = false
		m.State.Flags.IsAdjustingPosition = false
		m.State.Flags.IsAdjustingHeading = false
		return
	}

	if flags.Has(ControlAlt) {
		m.State.Flags.IsAdjustingAltitude = m.Alt.AdjustFromRCInput(cmd)
	}
	if flags.Has(ControlPos) {
		m.State.Flags.IsAdjustingPosition = m.Pos.AdjustFromRCInput(cmd)
	}
	if flags.Has(ControlYaw) {
		m.State.Flags.IsAdjustingHeading = m.AdjustHeadingFromRCInput(cmd)
	}
}

// AdjustHeadingFromRCInput releases the desired heading to follow the
// actual heading while the pilot deflects the yaw stick.
func (m *Multicopter) AdjustHeadingFromRCInput(cmd *core.Commands) bool {
	if absInt16(cmd[core.AxisYaw]) > m.cfg.PosHoldDeadband {
		m.State.Desired.Yaw = m.State.Actual.Yaw
		return true
	}
	return false
}

// HeadingControlState reports navigation's claim on the yaw axis for
// the rate controller's heading-hold arbitration.
func (m *Multicopter) HeadingControlState(flags ControlFlags) core.HeadingControl {
	if !flags.Has(ControlYaw) {
		return core.HeadingControlNone
	}
	if m.State.Flags.IsAdjustingHeading {
		return core.HeadingControlManual
	}
	return core.HeadingControlAuto
}

// ResetHeadingController re-targets the heading hold at the current
// heading.
func (m *Multicopter) ResetHeadingController() {
	m.heading.SetMagHoldTarget(int16(m.State.Actual.Yaw / 100))
}

// applyHeadingController hands the desired heading to the rate loop's
// heading hold.
func (m *Multicopter) applyHeadingController() {
	m.heading.SetMagHoldTarget(int16(m.State.Desired.Yaw / 100))
}

// IsLandingDetected evaluates the touchdown heuristic against the
// navigation-corrected throttle.
func (m *Multicopter) IsLandingDetected(currentTime uint32) bool {
	return m.Landing.Update(currentTime, m.State, m.cfg, m.Alt.AdjustedThrottle())
}
