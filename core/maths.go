package core

import (
	"cmp"
	"math"
)

// Constrain clamps v to the inclusive range [lo, hi].
func Constrain[T cmp.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ApplyDeadband returns 0 when value is inside the deadband, otherwise
// the value shrunk towards zero by the deadband width. This keeps the
// response continuous at the deadband edge.
func ApplyDeadband(value, deadband int16) int16 {
	if value > -deadband && value < deadband {
		return 0
	}
	if value >= 0 {
		return value - deadband
	}
	return value + deadband
}

// WrapDeg180 wraps an angle in degrees to the [-180, 180) interval.
func WrapDeg180(angle float64) float64 {
	for angle >= 180 {
		angle -= 360
	}
	for angle < -180 {
		angle += 360
	}
	return angle
}

// WrapCentiDeg180 wraps an angle in centidegrees to [-18000, 18000).
func WrapCentiDeg180(angle int32) int32 {
	for angle >= 18000 {
		angle -= 36000
	}
	for angle < -18000 {
		angle += 36000
	}
	return angle
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// CentiDegToRad converts centidegrees to radians.
func CentiDegToRad(cd float64) float64 {
	return cd * math.Pi / 18000
}

// RadToDeciDeg converts radians to decidegrees.
func RadToDeciDeg(rad float64) float64 {
	return rad * 1800 / math.Pi
}
