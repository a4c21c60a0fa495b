package sensors

import (
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/vl53l1x"
)

// Usable range of the time-of-flight sensor in mm. Readings outside
// it are reported as no-surface.
const (
	surfaceMinRangeMm = 40
	surfaceMaxRangeMm = 4000
)

// tofSensor is the slice of the rangefinder driver API the adapter
// needs. Read returns the latest distance in mm, Status its validity.
type tofSensor interface {
	Read(blocking bool) uint16
	Status() vl53l1x.RangeStatus
	StopContinuous()
}

// Rangefinder is the downward-facing time-of-flight sensor feeding
// surface tracking and the landing detector.
type Rangefinder struct {
	dev tofSensor
}

// NewVL53L1X configures a VL53L1X on the given bus in continuous
// ranging mode: 50ms timing budget, 2.8V I/O.
func NewVL53L1X(bus drivers.I2C) (*Rangefinder, error) {
	dev := vl53l1x.New(bus)
	if !dev.Connected() {
		return nil, fmt.Errorf("vl53l1x not responding on bus")
	}

	if !dev.Configure(true) {
		return nil, fmt.Errorf("vl53l1x configuration failed")
	}
	dev.SetMeasurementTimingBudget(50000)
	dev.StartContinuous(50)

	return &Rangefinder{dev: &dev}, nil
}

// Surface returns the distance to ground in cm, or -1 when the
// reading is outside the sensor's usable range or the measurement
// failed.
func (r *Rangefinder) Surface() float64 {
	mm := r.dev.Read(false)
	if r.dev.Status() != vl53l1x.RangeValid {
		return -1
	}
	if mm < surfaceMinRangeMm || mm > surfaceMaxRangeMm {
		return -1
	}
	return float64(mm) / 10.0
}

// Close stops continuous ranging.
func (r *Rangefinder) Close() {
	r.dev.StopContinuous()
}
