package pid

import (
	"flightcore/core"
)

// MagHoldState is the heading-hold controller state.
type MagHoldState uint8

const (
	// MagHoldDisabled - no usable compass or attitude outside the
	// small-angle envelope.
	MagHoldDisabled MagHoldState = iota
	// MagHoldUpdateHeading - track the current heading continuously.
	MagHoldUpdateHeading
	// MagHoldEnabled - hold the target heading.
	MagHoldEnabled
)

const (
	magHoldErrorLpfHz = 2.0

	// Yaw stick readings below this count as centered for heading hold.
	magHoldYawStickThreshold = 15
)

// MagHold is the magnetometer heading-hold sub-controller: a P
// controller on heading error producing a yaw rate target for the rate
// loop.
type MagHold struct {
	target     int16 // degrees
	rateFilter core.Pt1Filter
}

// Target returns the held heading in degrees.
func (m *MagHold) Target() int16 {
	return m.target
}

// SetTarget sets the held heading in degrees.
func (m *MagHold) SetTarget(deg int16) {
	m.target = deg
}

// State determines the controller state for this tick. Navigation's
// heading-control claim is checked first: it can force the hold on
// (auto heading) or keep it tracking (manual yaw during navigation)
// regardless of the pilot's mode switches.
func (m *MagHold) State(in *Input) MagHoldState {
	if !in.HasMag || !in.Status.Has(core.StatusSmallAngle) {
		return MagHoldDisabled
	}

	switch in.NavHeading {
	case core.HeadingControlAuto:
		return MagHoldEnabled
	case core.HeadingControlManual:
		return MagHoldUpdateHeading
	}

	if absInt16(in.Commands[core.AxisYaw]) < magHoldYawStickThreshold && in.Modes.Has(core.ModeMagHold) {
		return MagHoldEnabled
	}
	return MagHoldUpdateHeading
}

// Rate returns the yaw rate in deg/s needed to close the heading
// error. The error is wrapped to [-180, 180) so the craft always takes
// the short way around; the output is decoupled from manual yaw rates
// and instead capped by the profile's hold rate limit, then smoothed
// at 2Hz so small errors are corrected briskly and large ones gently.
func (m *MagHold) Rate(profile *Profile, yawDeciDeg int16, dT float64) float64 {
	err := core.WrapDeg180(float64(m.target) - float64(yawDeciDeg)/10.0)

	rate := err * float64(profile.P[SlotMag]) / 30.0
	rate = core.Constrain(rate, -profile.MagHoldRateLimit, profile.MagHoldRateLimit)
	rate = m.rateFilter.Apply(rate, magHoldErrorLpfHz, dT)

	return rate
}

func absInt16(x int16) int16 {
	if x < 0 {
		return -x
	}
	return x
}
