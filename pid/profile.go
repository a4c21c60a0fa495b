package pid

// Tuning slot indices into the Profile gain arrays. The same ten-slot
// layout the configurator exposes: three rate axes, then the
// navigation and leveling slots.
const (
	SlotRoll = iota
	SlotPitch
	SlotYaw
	SlotAlt
	SlotPos
	SlotPosRate
	SlotNavRate
	SlotLevel
	SlotMag
	SlotVel
	SlotCount
)

// Integer gains are divided down to float coefficients with these
// multipliers before use.
const (
	ratePMultiplier    = 40.0
	rateIMultiplier    = 10.0
	rateDMultiplier    = 4000.0
	levelPMultiplier   = 40.0
	yawHoldPMultiplier = 80.0
)

// Profile is the per-tick-immutable tuning parameter set. Owned by the
// configuration layer; the controllers only read it.
type Profile struct {
	P [SlotCount]uint8 `json:"p"`
	I [SlotCount]uint8 `json:"i"`
	D [SlotCount]uint8 `json:"d"`

	// Filter cutoffs in Hz. Zero disables the filter stage.
	DtermLpfHz float64 `json:"dterm_lpf_hz"`
	YawLpfHz   float64 `json:"yaw_lpf_hz"`

	// YawPLimit clamps the yaw P-term on multirotor frames. Zero
	// disables the clamp.
	YawPLimit float64 `json:"yaw_p_limit"`

	// MaxAngleInclination is the permitted tilt per axis (roll, pitch)
	// in decidegrees for the self-leveling modes.
	MaxAngleInclination [2]int16 `json:"max_angle_inclination"`

	// MagHoldRateLimit caps the yaw rate the heading-hold controller
	// may request, in degrees per second.
	MagHoldRateLimit float64 `json:"mag_hold_rate_limit"`
}

// DefaultProfile returns a conservative multirotor tune.
func DefaultProfile() *Profile {
	p := &Profile{
		DtermLpfHz:          40,
		YawPLimit:           300,
		MaxAngleInclination: [2]int16{300, 300},
		MagHoldRateLimit:    90,
	}
	p.P[SlotRoll], p.I[SlotRoll], p.D[SlotRoll] = 40, 30, 23
	p.P[SlotPitch], p.I[SlotPitch], p.D[SlotPitch] = 40, 30, 23
	p.P[SlotYaw], p.I[SlotYaw], p.D[SlotYaw] = 85, 45, 0
	p.P[SlotLevel], p.I[SlotLevel], p.D[SlotLevel] = 20, 15, 75
	p.P[SlotMag] = 60
	p.P[SlotAlt] = 50
	p.P[SlotVel], p.I[SlotVel], p.D[SlotVel] = 100, 50, 10
	p.P[SlotPos], p.I[SlotPos], p.D[SlotPos] = 65, 120, 10
	p.P[SlotPosRate], p.I[SlotPosRate], p.D[SlotPosRate] = 180, 15, 100
	return p
}

// RateConfig maps stick deflection to rotation rate and configures
// throttle-based PID attenuation (TPA).
type RateConfig struct {
	// Rates holds the per-axis rate setting; stick deflection maps to
	// (rate+20)*stick/50 deg/s, i.e. 200-1200 dps full deflection.
	Rates [3]uint8 `json:"rates"`

	// DynThrPID is the TPA strength in percent. Zero disables TPA.
	DynThrPID uint8 `json:"tpa_rate"`

	// TPABreakpoint is the raw throttle value attenuation starts at.
	TPABreakpoint uint16 `json:"tpa_breakpoint"`
}

// RxConfig describes the raw RC channel ranges the receiver delivers.
type RxConfig struct {
	MidRC    uint16 `json:"midrc"`
	MinCheck uint16 `json:"mincheck"`
	MaxCheck uint16 `json:"maxcheck"`
}

// DefaultRxConfig matches the usual 1000-2000us pulse range.
func DefaultRxConfig() *RxConfig {
	return &RxConfig{MidRC: 1500, MinCheck: 1100, MaxCheck: 1900}
}

// StickToAngle converts a centered stick command to a target
// inclination in decidegrees.
func StickToAngle(stick int16) float64 {
	return float64(stick) * 2.0
}

// AngleToCommand converts a target inclination in decidegrees to a
// centered stick command.
func AngleToCommand(angleDeciDeg float64) int16 {
	return int16(angleDeciDeg / 2.0)
}

// StickToRate converts a centered stick command to a rotation rate
// target in degrees per second for the given rate setting.
func StickToRate(stick int16, rate uint8) float64 {
	// Full deflection maps to 200dps at rate 0 up to 1200dps at 100.
	return float64(int(rate)+20) * float64(stick) / 50.0
}

// RateToCommand is the inverse of StickToRate.
func RateToCommand(rateDPS float64, rate uint8) float64 {
	return (rateDPS * 50.0) / float64(int(rate)+20)
}
