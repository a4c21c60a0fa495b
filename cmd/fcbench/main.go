// fcbench runs the flight stabilization stack against a telemetry
// feed, either live from a flight controller's serial port or replayed
// from a recording, and reports the control outputs.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"flightcore/core"
	"flightcore/host/feed"
	"flightcore/host/serial"
	"flightcore/nav"
	"flightcore/pid"
	"flightcore/sensors"
)

var (
	device     = flag.String("device", "", "Serial device of the telemetry feed")
	baud       = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	replay     = flag.String("replay", "", "Replay a recorded feed file instead of a live device")
	configPath = flag.String("config", "", "Navigation config JSON file")
	navigate   = flag.Bool("nav", false, "Run the navigation cascade (altitude/position/heading hold)")
	verbose    = flag.Bool("verbose", false, "Print every control tick")
)

func main() {
	flag.Parse()

	cfg := nav.DefaultConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to read config: %v\n", err)
			os.Exit(1)
		}
		cfg, err = nav.LoadConfig(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	var src io.ReadCloser
	var err error
	switch {
	case *replay != "":
		src, err = os.Open(*replay)
	case *device != "":
		linkCfg := serial.DefaultConfig(*device)
		linkCfg.Baud = *baud
		src, err = serial.Open(linkCfg)
	default:
		fmt.Fprintln(os.Stderr, "Error: either -device or -replay is required")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open feed: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	profile := pid.DefaultProfile()
	rates := &pid.RateConfig{Rates: [3]uint8{40, 40, 40}}
	rate := pid.NewController(profile, rates, pid.DefaultRxConfig())
	mc := nav.NewMulticopter(profile, cfg, rate)

	navFlags := nav.ControlFlags(0)
	if *navigate {
		navFlags = nav.ControlAlt | nav.ControlPos | nav.ControlYaw
	}

	fmt.Printf("Running control stack (nav=%v)...\n", *navigate)
	ticks, landed := run(bufio.NewReader(src), rate, mc, navFlags)
	fmt.Printf("Processed %d control ticks\n", ticks)
	if landed {
		fmt.Println("Landing detected")
	}
}

// run consumes the feed until it ends, driving one control tick per
// state frame. Returns the tick count and whether touchdown was
// detected.
func run(r *bufio.Reader, rate *pid.Controller, mc *nav.Multicopter, navFlags nav.ControlFlags) (int, bool) {
	var cmd core.Commands
	var rc feed.RCFrame
	var lastTime uint32
	ticks, landed := 0, false

	for {
		frameType, payload, err := feed.ReadFrame(r)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ticks, landed
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Feed read failed: %v\n", err)
			os.Exit(1)
		}

		switch frameType {
		case feed.FrameRC:
			f, err := feed.DecodeRC(payload)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
				continue
			}
			rc = *f

		case feed.FrameState:
			f, err := feed.DecodeState(payload)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
				continue
			}

			if ticks == 0 {
				lastTime = f.TimeUs
			}
			dT := core.SecondsFromMicros(core.DeltaMicros(f.TimeUs, lastTime))
			lastTime = f.TimeUs

			rc.ApplyTo(&cmd)
			f.ApplyTo(mc.State)

			mc.ProcessRCAdjustments(navFlags, &cmd)
			mc.Apply(navFlags, f.TimeUs, &cmd)

			in := &pid.Input{
				GyroADC:    f.Gyro,
				GyroScale:  sensors.GyroScale,
				Attitude:   f.Attitude,
				Commands:   &cmd,
				Modes:      core.ModeAngle,
				Status:     core.StatusArmed | core.StatusSmallAngle,
				HasMag:     true,
				NavHeading: mc.HeadingControlState(navFlags),
				MotorCount: 4,
			}

			rate.UpdateCoefficients(uint16(cmd[core.AxisThrottle]))
			if dT > 0 {
				rate.Apply(in, dT)
			}
			ticks++

			if navFlags != 0 && mc.IsLandingDetected(f.TimeUs) {
				landed = true
			}

			if *verbose {
				fmt.Printf("t=%dus out=[%5d %5d %5d] thr=%4d\n",
					f.TimeUs, rate.Output[core.AxisRoll], rate.Output[core.AxisPitch],
					rate.Output[core.AxisYaw], cmd[core.AxisThrottle])
			}
		}
	}
}
