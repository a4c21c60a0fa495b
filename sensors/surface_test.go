package sensors

import (
	"testing"

	"tinygo.org/x/drivers/vl53l1x"
)

type stubToF struct {
	distanceMm uint16
	status     vl53l1x.RangeStatus
	stopped    bool
}

func (s *stubToF) Read(blocking bool) uint16   { return s.distanceMm }
func (s *stubToF) Status() vl53l1x.RangeStatus { return s.status }
func (s *stubToF) StopContinuous()             { s.stopped = true }

func TestRangefinderSurface(t *testing.T) {
	testCases := []struct {
		name       string
		distanceMm uint16
		status     vl53l1x.RangeStatus
		expected   float64
	}{
		{"normal reading", 250, vl53l1x.RangeValid, 25},
		{"minimum range", 40, vl53l1x.RangeValid, 4},
		{"too close", 30, vl53l1x.RangeValid, -1},
		{"out of range", 5000, vl53l1x.RangeValid, -1},
		{"signal failure", 250, vl53l1x.SignalFail, -1},
		{"timed out", 0, vl53l1x.None, -1},
	}

	for _, tc := range testCases {
		r := &Rangefinder{dev: &stubToF{distanceMm: tc.distanceMm, status: tc.status}}
		if got := r.Surface(); got != tc.expected {
			t.Errorf("%s: surface = %v, expected %v", tc.name, got, tc.expected)
		}
	}
}

func TestRangefinderClose(t *testing.T) {
	stub := &stubToF{}
	r := &Rangefinder{dev: stub}
	r.Close()
	if !stub.stopped {
		t.Error("Close did not stop continuous ranging")
	}
}
