// Package sensors adapts the inertial hardware drivers to the units
// the control loops consume.
package sensors

import (
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/lsm6ds3tr"

	"flightcore/core"
)

// Driver readings come back in microdegrees-per-second and micro-g;
// these scales convert them to deg/s and g.
const (
	GyroScale  = 1e-6
	accelScale = 1e-6
)

// inertialSensor is the slice of the driver API the adapter needs.
type inertialSensor interface {
	ReadRotation() (x, y, z int32, err error)
	ReadAcceleration() (x, y, z int32, err error)
}

// Sample is one inertial measurement: raw gyro counts per axis plus
// the acceleration vector in g. GyroScale converts the counts to deg/s
// in the rate loop.
type Sample struct {
	GyroADC [core.AxisCount]int32
	Accel   core.Vec3
}

// IMU reads the inertial sensor and maps its axes onto the roll,
// pitch and yaw convention of the controllers.
type IMU struct {
	dev inertialSensor
}

// NewLSM6DS3TR configures an LSM6DS3TR on the given bus. The gyro
// range covers the full rate envelope the controllers accept, the
// accelerometer range survives hard maneuvering.
func NewLSM6DS3TR(bus drivers.I2C) (*IMU, error) {
	dev := lsm6ds3tr.New(bus)

	err := dev.Configure(lsm6ds3tr.Configuration{
		AccelRange:      lsm6ds3tr.ACCEL_8G,
		AccelSampleRate: lsm6ds3tr.ACCEL_SR_1666,
		GyroRange:       lsm6ds3tr.GYRO_2000DPS,
		GyroSampleRate:  lsm6ds3tr.GYRO_SR_1666,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure lsm6ds3tr: %w", err)
	}
	if !dev.Connected() {
		return nil, fmt.Errorf("lsm6ds3tr not responding on bus")
	}

	return &IMU{dev: dev}, nil
}

// Read fills a sample from the sensor.
func (m *IMU) Read(s *Sample) error {
	gx, gy, gz, err := m.dev.ReadRotation()
	if err != nil {
		return fmt.Errorf("failed to read gyro: %w", err)
	}
	ax, ay, az, err := m.dev.ReadAcceleration()
	if err != nil {
		return fmt.Errorf("failed to read accelerometer: %w", err)
	}

	// Sensor X is the roll axis, Y pitch, Z yaw.
	s.GyroADC[core.AxisRoll] = gx
	s.GyroADC[core.AxisPitch] = gy
	s.GyroADC[core.AxisYaw] = gz

	s.Accel[core.X] = float64(ax) * accelScale
	s.Accel[core.Y] = float64(ay) * accelScale
	s.Accel[core.Z] = float64(az) * accelScale

	return nil
}
