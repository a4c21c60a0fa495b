package core

// Control loop timing uses free-running 32-bit microsecond counters.
// The counter wraps roughly every 71 minutes; all elapsed-time math
// must therefore go through DeltaMicros, whose unsigned subtraction
// stays correct across the wrap.

// DeltaMicros returns the elapsed microseconds from prev to now.
func DeltaMicros(now, prev uint32) uint32 {
	return now - prev
}

// SecondsFromMicros converts a microsecond interval to seconds.
func SecondsFromMicros(us uint32) float64 {
	return float64(us) * 1e-6
}

// MicrosFromHz returns the interval in microseconds of a rate in Hz.
func MicrosFromHz(hz uint32) uint32 {
	return 1000000 / hz
}

// MicrosFromMillis converts milliseconds to microseconds.
func MicrosFromMillis(ms uint32) uint32 {
	return ms * 1000
}
