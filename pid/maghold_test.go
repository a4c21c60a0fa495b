package pid

import (
	"math"
	"testing"

	"flightcore/core"
)

func TestMagHoldState(t *testing.T) {
	testCases := []struct {
		name     string
		hasMag   bool
		status   core.Status
		modes    core.Mode
		nav      core.HeadingControl
		yawStick int16
		expected MagHoldState
	}{
		{"no compass", false, core.StatusSmallAngle, core.ModeMagHold, core.HeadingControlNone, 0, MagHoldDisabled},
		{"tilted past small angle", true, 0, core.ModeMagHold, core.HeadingControlNone, 0, MagHoldDisabled},
		{"nav auto heading", true, core.StatusSmallAngle, 0, core.HeadingControlAuto, 0, MagHoldEnabled},
		{"nav manual yaw", true, core.StatusSmallAngle, core.ModeMagHold, core.HeadingControlManual, 0, MagHoldUpdateHeading},
		{"pilot hold, stick centered", true, core.StatusSmallAngle, core.ModeMagHold, core.HeadingControlNone, 0, MagHoldEnabled},
		{"pilot hold, stick deflected", true, core.StatusSmallAngle, core.ModeMagHold, core.HeadingControlNone, 100, MagHoldUpdateHeading},
		{"mode off", true, core.StatusSmallAngle, 0, core.HeadingControlNone, 0, MagHoldUpdateHeading},
	}

	for _, tc := range testCases {
		var m MagHold
		cmd := core.Commands{0, 0, tc.yawStick, 1500}
		in := &Input{
			Commands:   &cmd,
			Status:     tc.status,
			Modes:      tc.modes,
			HasMag:     tc.hasMag,
			NavHeading: tc.nav,
		}
		if got := m.State(in); got != tc.expected {
			t.Errorf("%s: state = %d, expected %d", tc.name, got, tc.expected)
		}
	}
}

func TestMagHoldRateTakesShortWay(t *testing.T) {
	profile := DefaultProfile()

	testCases := []struct {
		name       string
		target     int16 // degrees
		yawDeciDeg int16
		expected   float64 // converged rate, deg/s
	}{
		// Target 350, heading 10: the error wraps to -20, not +340.
		{"wrap across north", 350, 100, -40},
		{"no wrap", 100, 900, 20},
		{"aligned", 90, 900, 0},
	}

	for _, tc := range testCases {
		var m MagHold
		m.SetTarget(tc.target)

		var rate float64
		for i := 0; i < 1000; i++ {
			rate = m.Rate(profile, tc.yawDeciDeg, 0.01)
		}

		if math.Abs(rate-tc.expected) > 0.1 {
			t.Errorf("%s: rate = %v, expected %v", tc.name, rate, tc.expected)
		}
	}
}

func TestMagHoldRateLimited(t *testing.T) {
	profile := DefaultProfile()
	var m MagHold
	m.SetTarget(0)

	var rate float64
	for i := 0; i < 1000; i++ {
		rate = m.Rate(profile, 1700, 0.01) // 170 degrees of error
	}

	if math.Abs(rate) > profile.MagHoldRateLimit {
		t.Errorf("rate %v exceeds limit %v", rate, profile.MagHoldRateLimit)
	}
}

func TestMagHoldUpdatesTargetWhileTracking(t *testing.T) {
	c := newTestController()
	cmd := core.Commands{}
	in := newTestInput(&cmd)
	in.HasMag = true
	in.Attitude[core.AxisYaw] = 1230 // 123 degrees

	// No hold mode active: the target tracks the current heading.
	c.Apply(in, 0.01)
	if got := c.MagHoldTarget(); got != 123 {
		t.Errorf("target = %d, expected 123", got)
	}

	// Engaging the hold freezes the target.
	in.Modes = core.ModeMagHold
	in.Attitude[core.AxisYaw] = 1400
	c.Apply(in, 0.01)
	if got := c.MagHoldTarget(); got != 123 {
		t.Errorf("target = %d after engaging hold, expected 123", got)
	}
}
