package core

// Flight dynamics axis indices, shared by the gyro, attitude and
// command vectors.
const (
	AxisRoll = iota
	AxisPitch
	AxisYaw
	AxisThrottle

	AxisCount        = 3 // rotational axes only
	CommandAxisCount = 4
)

// Earth/local frame axis indices for navigation vectors.
const (
	X = iota
	Y
	Z
)

// Vec3 is a 3D vector indexed by the X/Y/Z axis constants.
type Vec3 [3]float64

// Commands is the shared command vector. Pilot stick values are
// written in by the RC layer between ticks; during a tick each
// controller that is authoritative for an axis overwrites that axis.
// Exactly one writer per axis per tick.
type Commands [CommandAxisCount]int16

// Mode is a set of pilot-selected flight mode flags.
type Mode uint16

const (
	ModeAngle Mode = 1 << iota
	ModeHorizon
	ModeHeadingLock
	ModeMagHold
)

// Has reports whether all flags in f are set.
func (m Mode) Has(f Mode) bool {
	return m&f == f
}

// Status is a set of vehicle state flags maintained outside the
// control core (arming logic, mixer, estimator).
type Status uint16

const (
	StatusArmed Status = 1 << iota
	StatusSmallAngle
	StatusAntiWindup
	StatusPIDAttenuate
)

// Has reports whether all flags in f are set.
func (s Status) Has(f Status) bool {
	return s&f == f
}

// HeadingControl describes who is steering the heading this tick.
type HeadingControl uint8

const (
	// HeadingControlNone - navigation does not request heading control.
	HeadingControlNone HeadingControl = iota
	// HeadingControlManual - navigation active but pilot steers yaw.
	HeadingControlManual
	// HeadingControlAuto - navigation owns the heading.
	HeadingControlAuto
)
