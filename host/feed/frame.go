// Package feed implements the binary telemetry feed the flight
// controller emits: framed, checksummed state estimate and RC command
// records the navigation loop consumes.
package feed

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"flightcore/core"
	"flightcore/nav"
)

// Frame layout: sync byte, type, payload length, payload, CRC16 over
// type+length+payload, little-endian.
const (
	syncByte = 0xA5

	// FrameState carries one estimator state sample.
	FrameState = 0x01
	// FrameRC carries one RC command vector.
	FrameRC = 0x02
)

// Estimator validity flags in StateFrame.Flags.
const (
	FlagPositionValid = 1 << iota
	FlagAltitudeValid
	FlagSurfaceValid
)

// StateFrame is one estimator sample on the wire. Attitude in
// decidegrees, position in cm, velocity in cm/s, gyro in raw sensor
// counts.
type StateFrame struct {
	TimeUs   uint32
	Attitude [3]int16
	Gyro     [3]int32
	Pos      [3]int32
	Vel      [3]int16
	Surface  int16
	SurfMin  int16
	Flags    uint8
}

// RCFrame is one pilot command vector on the wire.
type RCFrame struct {
	Roll     int16
	Pitch    int16
	Yaw      int16
	Throttle int16
}

// crc16 matches the checksum the controller firmware computes.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b = b ^ uint8(crc&0xFF)
		b = b ^ (b << 4)
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}

// encodeFrame wraps a payload in the frame envelope.
func encodeFrame(frameType byte, payload []byte) []byte {
	buf := make([]byte, 0, len(payload)+5)
	buf = append(buf, syncByte, frameType, byte(len(payload)))
	buf = append(buf, payload...)
	crc := crc16(buf[1:])
	return binary.LittleEndian.AppendUint16(buf, crc)
}

// EncodeState serializes a state frame.
func EncodeState(f *StateFrame) []byte {
	var payload bytes.Buffer
	binary.Write(&payload, binary.LittleEndian, f)
	return encodeFrame(FrameState, payload.Bytes())
}

// EncodeRC serializes an RC frame.
func EncodeRC(f *RCFrame) []byte {
	var payload bytes.Buffer
	binary.Write(&payload, binary.LittleEndian, f)
	return encodeFrame(FrameRC, payload.Bytes())
}

// ReadFrame reads the next valid frame, skipping garbage until a sync
// byte and discarding frames whose checksum does not match. Returns
// the frame type and payload.
func ReadFrame(r *bufio.Reader) (byte, []byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, nil, err
		}
		if b != syncByte {
			continue
		}

		header := make([]byte, 2)
		if _, err := io.ReadFull(r, header); err != nil {
			return 0, nil, err
		}
		frameType, length := header[0], int(header[1])

		body := make([]byte, length+2)
		if _, err := io.ReadFull(r, body); err != nil {
			return 0, nil, err
		}

		payload := body[:length]
		wireCRC := binary.LittleEndian.Uint16(body[length:])

		check := make([]byte, 0, length+2)
		check = append(check, frameType, byte(length))
		check = append(check, payload...)
		if crc16(check) != wireCRC {
			// Corrupt frame; resync on the next sync byte.
			continue
		}

		return frameType, payload, nil
	}
}

// DecodeState parses a state frame payload.
func DecodeState(payload []byte) (*StateFrame, error) {
	var f StateFrame
	if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, &f); err != nil {
		return nil, fmt.Errorf("failed to decode state frame: %w", err)
	}
	return &f, nil
}

// DecodeRC parses an RC frame payload.
func DecodeRC(payload []byte) (*RCFrame, error) {
	var f RCFrame
	if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, &f); err != nil {
		return nil, fmt.Errorf("failed to decode rc frame: %w", err)
	}
	return &f, nil
}

// ApplyTo publishes the sample onto the navigation blackboard: actual
// state, sensor validity and the data-new flags the controllers
// consume.
func (f *StateFrame) ApplyTo(state *nav.PositionState) {
	yaw := int32(f.Attitude[core.AxisYaw]) * 10
	yawRad := core.CentiDegToRad(float64(yaw))

	state.Actual.Yaw = yaw
	state.Actual.CosYaw = math.Cos(yawRad)
	state.Actual.SinYaw = math.Sin(yawRad)

	for i := 0; i < 3; i++ {
		state.Actual.Pos[i] = float64(f.Pos[i])
		state.Actual.Vel[i] = float64(f.Vel[i])
	}
	state.Actual.VelXY = math.Sqrt(state.Actual.Vel[core.X]*state.Actual.Vel[core.X] +
		state.Actual.Vel[core.Y]*state.Actual.Vel[core.Y])

	state.Actual.Surface = float64(f.Surface)
	state.Actual.SurfaceMin = float64(f.SurfMin)

	state.Flags.HasValidPositionSensor = f.Flags&FlagPositionValid != 0
	state.Flags.HasValidAltitudeSensor = f.Flags&FlagAltitudeValid != 0
	state.Flags.HasValidSurfaceSensor = f.Flags&FlagSurfaceValid != 0

	state.Flags.VerticalPositionDataNew = true
	state.Flags.VerticalPositionDataConsumed = false
	state.Flags.HorizontalPositionDataNew = true
	state.Flags.HorizontalPositionDataConsumed = false
}

// ApplyTo copies the pilot commands into the shared command vector.
func (f *RCFrame) ApplyTo(cmd *core.Commands) {
	cmd[core.AxisRoll] = f.Roll
	cmd[core.AxisPitch] = f.Pitch
	cmd[core.AxisYaw] = f.Yaw
	cmd[core.AxisThrottle] = f.Throttle
}
