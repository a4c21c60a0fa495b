package nav

import (
	"encoding/json"
	"fmt"
)

// Config holds the navigation tuning and the throttle range of the
// ESCs. Owned by the configuration layer; controllers only read it.
type Config struct {
	// Speeds in cm/s.
	MaxSpeed           float64 `json:"max_speed"`
	MaxManualSpeed     float64 `json:"max_manual_speed"`
	MaxManualClimbRate float64 `json:"max_manual_climb_rate"`
	EmergDescentRate   float64 `json:"emerg_descent_rate"`

	// Throttle values in raw command units.
	MinThrottle      uint16 `json:"min_throttle"`
	MaxThrottle      uint16 `json:"max_throttle"`
	HoverThrottle    uint16 `json:"mc_hover_throttle"`
	MinFlyThrottle   uint16 `json:"mc_min_fly_throttle"`
	FailsafeThrottle uint16 `json:"failsafe_throttle"`

	// MaxBankAngle limits position controller output, in degrees.
	MaxBankAngle float64 `json:"mc_max_bank_angle"`

	// Stick deadbands in command units.
	AltHoldDeadband int16 `json:"alt_hold_deadband"`
	PosHoldDeadband int16 `json:"pos_hold_deadband"`

	// UseThrMidForAltHold forces the altitude-hold stick zero to mid
	// throttle instead of the throttle at engagement.
	UseThrMidForAltHold bool `json:"use_thr_mid_for_althold"`

	// ThrottleMid is the mid-stick throttle command used when
	// UseThrMidForAltHold applies or throttle is low at engagement.
	ThrottleMid uint16 `json:"throttle_mid"`

	// UserControlMode: "atti" passes sticks through to the attitude
	// loop while adjusting; "cruise" moves the position target.
	UserControlMode string `json:"user_control_mode"`
}

// LoadConfig parses a JSON configuration and fills in defaults for
// anything left unset.
func LoadConfig(jsonData []byte) (*Config, error) {
	var cfg Config

	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse nav config: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.MinThrottle >= cfg.MaxThrottle {
		return nil, fmt.Errorf("invalid throttle range: min %d >= max %d", cfg.MinThrottle, cfg.MaxThrottle)
	}

	return &cfg, nil
}

// applyDefaults fills missing configuration values with a conservative
// multirotor setup.
func applyDefaults(cfg *Config) {
	if cfg.MaxSpeed == 0 {
		cfg.MaxSpeed = 300.0 // 3 m/s
	}
	if cfg.MaxManualSpeed == 0 {
		cfg.MaxManualSpeed = 500.0
	}
	if cfg.MaxManualClimbRate == 0 {
		cfg.MaxManualClimbRate = 200.0
	}
	if cfg.EmergDescentRate == 0 {
		cfg.EmergDescentRate = 500.0
	}
	if cfg.MinThrottle == 0 {
		cfg.MinThrottle = 1150
	}
	if cfg.MaxThrottle == 0 {
		cfg.MaxThrottle = 1850
	}
	if cfg.HoverThrottle == 0 {
		cfg.HoverThrottle = 1500
	}
	if cfg.MinFlyThrottle == 0 {
		cfg.MinFlyThrottle = 1200
	}
	if cfg.MaxBankAngle == 0 {
		cfg.MaxBankAngle = 30.0
	}
	if cfg.AltHoldDeadband == 0 {
		cfg.AltHoldDeadband = 50
	}
	if cfg.PosHoldDeadband == 0 {
		cfg.PosHoldDeadband = 20
	}
	if cfg.ThrottleMid == 0 {
		cfg.ThrottleMid = 1500
	}
	if cfg.UserControlMode == "" {
		cfg.UserControlMode = "atti"
	}
}

// DefaultConfig returns the default multirotor navigation setup.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// ControlMode returns the parsed user control mode.
func (c *Config) ControlMode() UserControlMode {
	if c.UserControlMode == "cruise" {
		return ControlModeCruise
	}
	return ControlModeAtti
}
