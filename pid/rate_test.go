package pid

import (
	"math"
	"testing"

	"flightcore/core"
)

func newTestController() *Controller {
	profile := DefaultProfile()
	rates := &RateConfig{Rates: [3]uint8{40, 40, 40}}
	c := NewController(profile, rates, DefaultRxConfig())
	c.UpdateCoefficients(1500)
	return c
}

func newTestInput(cmd *core.Commands) *Input {
	return &Input{
		GyroScale:  1.0,
		Commands:   cmd,
		Status:     core.StatusArmed | core.StatusSmallAngle,
		MotorCount: 4,
	}
}

func TestOutputAlwaysBounded(t *testing.T) {
	testCases := []struct {
		name string
		gyro [core.AxisCount]int32
		cmd  core.Commands
	}{
		{"extreme gyro", [core.AxisCount]int32{100000, -100000, 100000}, core.Commands{}},
		{"extreme sticks", [core.AxisCount]int32{}, core.Commands{500, -500, 500, 2000}},
		{"both", [core.AxisCount]int32{-100000, 100000, -100000}, core.Commands{-500, 500, -500, 1000}},
	}

	for _, tc := range testCases {
		c := newTestController()
		in := newTestInput(&tc.cmd)
		in.GyroADC = tc.gyro

		for i := 0; i < 100; i++ {
			c.Apply(in, 0.001)
		}

		for axis := 0; axis < core.AxisCount; axis++ {
			if c.Output[axis] < -1000 || c.Output[axis] > 1000 {
				t.Errorf("%s: axis %d output %d outside [-1000, 1000]", tc.name, axis, c.Output[axis])
			}
		}
	}
}

func TestRateTargetSaturationClamp(t *testing.T) {
	c := newTestController()
	// Rate 255 with full stick asks for (255+20)*500/50 = 2750dps.
	c.rates.Rates = [3]uint8{255, 255, 255}
	cmd := core.Commands{500, 500, 500, 1500}
	in := newTestInput(&cmd)

	c.Apply(in, 0.001)

	for axis := 0; axis < core.AxisCount; axis++ {
		if math.Abs(c.Debug.Setpoint[axis]) > GyroSaturationLimit {
			t.Errorf("axis %d setpoint %v exceeds gyro saturation limit", axis, c.Debug.Setpoint[axis])
		}
	}
}

func TestIntegratorAntiWindup(t *testing.T) {
	c := newTestController()
	cmd := core.Commands{400, 0, 0, 1500}
	in := newTestInput(&cmd)

	// Let the integrator grow without saturation.
	for i := 0; i < 50; i++ {
		c.Apply(in, 0.01)
	}
	preSaturation := math.Abs(c.Debug.I[core.AxisRoll])
	if preSaturation == 0 {
		t.Fatal("integrator did not accumulate")
	}

	// With the mixer saturated the integrator must never exceed its
	// last pre-saturation bound.
	in.MotorLimitReached = true
	for i := 0; i < 500; i++ {
		c.Apply(in, 0.01)
		if got := math.Abs(c.Debug.I[core.AxisRoll]); got > preSaturation+1e-9 {
			t.Fatalf("integrator %v grew beyond pre-saturation bound %v", got, preSaturation)
		}
	}
}

func TestHeadingLockAccumulatorScenario(t *testing.T) {
	c := newTestController()
	cmd := core.Commands{}
	in := newTestInput(&cmd)
	in.Modes = core.ModeHeadingLock

	// Stick centered, armed, gyro quiet for one second.
	for i := 0; i < 100; i++ {
		c.Apply(in, 0.01)

		accum := c.axes[core.AxisYaw].axisLockAccum
		if accum < -45 || accum > 45 {
			t.Fatalf("tick %d: heading lock accumulator %v outside [-45, 45]", i, accum)
		}
	}

	if got := math.Abs(c.Debug.Setpoint[core.AxisYaw]); got > 1.0 {
		t.Errorf("yaw rate target %v did not converge toward 0", got)
	}
}

func TestHeadingLockOpposesDisturbance(t *testing.T) {
	c := newTestController()
	cmd := core.Commands{}
	in := newTestInput(&cmd)
	in.Modes = core.ModeHeadingLock
	in.GyroADC[core.AxisYaw] = 20 // constant disturbance rotation

	for i := 0; i < 100; i++ {
		c.Apply(in, 0.01)
	}

	// The accumulator integrates the opposite sign of the disturbance
	// so the requested rate turns the craft back.
	if got := c.Debug.Setpoint[core.AxisYaw]; got >= 0 {
		t.Errorf("yaw rate target %v should oppose positive disturbance", got)
	}
}

func TestHeadingLockResetsOnStickInput(t *testing.T) {
	c := newTestController()
	cmd := core.Commands{}
	in := newTestInput(&cmd)
	in.Modes = core.ModeHeadingLock
	in.GyroADC[core.AxisYaw] = 20

	for i := 0; i < 100; i++ {
		c.Apply(in, 0.01)
	}
	if c.axes[core.AxisYaw].axisLockAccum == 0 {
		t.Fatal("accumulator should be non-zero after disturbance")
	}

	cmd[core.AxisYaw] = 100
	c.Apply(in, 0.01)
	if c.axes[core.AxisYaw].axisLockAccum != 0 {
		t.Errorf("accumulator %v not reset by stick input", c.axes[core.AxisYaw].axisLockAccum)
	}

	// Disarming resets it as well.
	cmd[core.AxisYaw] = 0
	c.Apply(in, 0.01)
	in.Status = core.StatusSmallAngle
	c.Apply(in, 0.01)
	if c.axes[core.AxisYaw].axisLockAccum != 0 {
		t.Errorf("accumulator %v not reset when disarmed", c.axes[core.AxisYaw].axisLockAccum)
	}
}

func TestAngleModeLevels(t *testing.T) {
	c := newTestController()
	cmd := core.Commands{}
	in := newTestInput(&cmd)
	in.Modes = core.ModeAngle
	in.Attitude[core.AxisRoll] = 300 // 30 degrees right

	c.Apply(in, 0.01)

	// Stick centered and rolled right: the rate target must command a
	// leveling rotation to the left.
	if got := c.Debug.Setpoint[core.AxisRoll]; got >= 0 {
		t.Errorf("roll rate target %v should level a positive tilt", got)
	}
}

func TestHorizonStrengthFades(t *testing.T) {
	c := newTestController()

	cmdCentered := core.Commands{}
	inCentered := newTestInput(&cmdCentered)
	centered := c.horizonLevelStrength(inCentered)

	cmdDeflected := core.Commands{450, 0, 0, 1500}
	inDeflected := newTestInput(&cmdDeflected)
	deflected := c.horizonLevelStrength(inDeflected)

	if centered != 1 {
		t.Errorf("horizon strength at center stick = %v, expected 1", centered)
	}
	if deflected >= centered {
		t.Errorf("horizon strength %v should fade with deflection", deflected)
	}

	cmdFull := core.Commands{500, 0, 0, 1500}
	inFull := newTestInput(&cmdFull)
	if got := c.horizonLevelStrength(inFull); got != 0 {
		t.Errorf("horizon strength at full deflection = %v, expected 0", got)
	}
}

func TestTPAAttenuatesRollPitchOnly(t *testing.T) {
	profile := DefaultProfile()
	rates := &RateConfig{Rates: [3]uint8{40, 40, 40}, DynThrPID: 50, TPABreakpoint: 1500}
	c := NewController(profile, rates, DefaultRxConfig())

	c.UpdateCoefficients(1000)
	rollKPLow := c.axes[core.AxisRoll].kP
	yawKPLow := c.axes[core.AxisYaw].kP

	c.UpdateCoefficients(2000)
	rollKPHigh := c.axes[core.AxisRoll].kP
	yawKPHigh := c.axes[core.AxisYaw].kP

	if rollKPHigh >= rollKPLow {
		t.Errorf("roll kP %v not attenuated at high throttle (low %v)", rollKPHigh, rollKPLow)
	}
	if yawKPHigh != yawKPLow {
		t.Errorf("yaw kP changed by TPA: %v != %v", yawKPHigh, yawKPLow)
	}

	// 50% attenuation at full throttle.
	if math.Abs(rollKPHigh-rollKPLow*0.5) > 1e-9 {
		t.Errorf("roll kP at full throttle = %v, expected %v", rollKPHigh, rollKPLow*0.5)
	}
}

func TestTPARampMidThrottleWideBand(t *testing.T) {
	// A low breakpoint with strong attenuation makes the ramp's
	// intermediate product exceed uint16 range. 80% of the way through
	// the band at DynThrPID 100 must give tpaFactor 0.20.
	profile := DefaultProfile()
	rates := &RateConfig{Rates: [3]uint8{40, 40, 40}, DynThrPID: 100, TPABreakpoint: 1000}
	c := NewController(profile, rates, DefaultRxConfig())

	c.UpdateCoefficients(1000)
	rollKPLow := c.axes[core.AxisRoll].kP

	c.UpdateCoefficients(1800)
	rollKPMid := c.axes[core.AxisRoll].kP

	if math.Abs(rollKPMid-rollKPLow*0.20) > 1e-9 {
		t.Errorf("roll kP at 1800 = %v, expected %v", rollKPMid, rollKPLow*0.20)
	}
}

func TestTrackingGainGuardedAgainstZeroGains(t *testing.T) {
	profile := DefaultProfile()
	profile.P[SlotYaw] = 0
	profile.I[SlotYaw] = 0
	rates := &RateConfig{Rates: [3]uint8{40, 40, 40}}
	c := NewController(profile, rates, DefaultRxConfig())

	c.UpdateCoefficients(1500)

	if c.axes[core.AxisYaw].kT != 0 {
		t.Errorf("yaw kT = %v, expected 0 with zero gains", c.axes[core.AxisYaw].kT)
	}
	if math.IsNaN(c.axes[core.AxisYaw].kT) || math.IsInf(c.axes[core.AxisYaw].kT, 0) {
		t.Error("yaw kT is not finite")
	}
}

func TestResetErrorAccumulators(t *testing.T) {
	c := newTestController()
	cmd := core.Commands{400, 400, 400, 1500}
	in := newTestInput(&cmd)
	in.Modes = core.ModeHeadingLock

	for i := 0; i < 50; i++ {
		c.Apply(in, 0.01)
	}

	c.ResetErrorAccumulators()

	for axis := 0; axis < core.AxisCount; axis++ {
		if c.axes[axis].errorGyroIf != 0 || c.axes[axis].errorGyroIfLimit != 0 {
			t.Errorf("axis %d integrator state not cleared", axis)
		}
	}
	if c.axes[core.AxisYaw].axisLockAccum != 0 {
		t.Error("heading lock accumulator not cleared")
	}
}

func TestStickRateMapping(t *testing.T) {
	testCases := []struct {
		stick    int16
		rate     uint8
		expected float64
	}{
		{500, 0, 200},    // full stick, lowest rate: 200dps
		{500, 100, 1200}, // full stick, highest rate: 1200dps
		{-500, 0, -200},
		{0, 50, 0},
	}

	for i, tc := range testCases {
		if got := StickToRate(tc.stick, tc.rate); math.Abs(got-tc.expected) > 1e-9 {
			t.Errorf("Test case %d: StickToRate(%d, %d) = %v, expected %v", i, tc.stick, tc.rate, got, tc.expected)
		}
	}
}
