// Package config loads the supervisor's YAML configuration tree.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Cruise controls operator set-speed arbitration.
type Cruise struct {
	Min              float64 `yaml:"min_kph"`
	Max              float64 `yaml:"max_kph"`
	DeltaKm          float64 `yaml:"delta_km"`
	DeltaMi          float64 `yaml:"delta_mi"`
	IsMetric         bool    `yaml:"is_metric"`
	PCMForcedKph     float64 `yaml:"pcm_forced_kph"`
	MinSetSpeedClu   float64 `yaml:"min_set_speed_clu"`
	SmoothingPerTick float64 `yaml:"smoothing_per_tick"` // defaults to 0.01; a loaded YAML file can override it
}

// Curve controls curvature-derived speed limiting.
type Curve struct {
	Enabled             bool    `yaml:"enabled"`
	RecomputeEveryTicks int     `yaml:"recompute_every_ticks"` // 20 ticks = 5 Hz
	TrajectorySize      int     `yaml:"trajectory_size"`
	WindowLength        int     `yaml:"window_length"`
	MinCurveSpeedMs     float64 `yaml:"min_curve_speed_ms"`
	SccCurvatureFactor  float64 `yaml:"scc_curvature_factor"`
}

// Lead controls lead-vehicle safe-speed clamping.
type Lead struct {
	SpeedConvToClu float64 `yaml:"speed_conv_to_clu"`
}

// RoadLimit controls the road-speed-limit advisory clamp.
type RoadLimit struct {
	MinApplyKph float64 `yaml:"min_apply_kph"`
}

// SafetyConfig is one panda's expected safety model/param, used for the
// controlsMismatch cross-check in the event collector.
type SafetyConfig struct {
	SafetyModel string `yaml:"safety_model"`
	SafetyParam int    `yaml:"safety_param"`
}

// Alerts controls the cross-tick alert manager.
type Alerts struct {
	GlobalRatePerMin  float64 `yaml:"global_rate_per_min"`
	PerKindRatePerMin float64 `yaml:"per_kind_rate_per_min"`
	Burst             int     `yaml:"burst"`
}

// Persist names the on-disk locations for the two persistent parameter
// writes the supervisor makes.
type Persist struct {
	ParamsCachePath   string `yaml:"params_cache_path"`
	ControlsReadyPath string `yaml:"controls_ready_path"`
}

// Debug controls simulation/joystick/test toggles.
type Debug struct {
	JoystickMode bool `yaml:"joystick_mode"`
	Simulation   bool `yaml:"simulation"`
	NoSensor     bool `yaml:"no_sensor"`
	NoCANTimeout bool `yaml:"no_can_timeout"`
	Replay       bool `yaml:"replay"`
}

// Root is the full supervisor configuration tree.
type Root struct {
	Cruise        Cruise         `yaml:"cruise"`
	Curve         Curve          `yaml:"curve"`
	Lead          Lead           `yaml:"lead"`
	RoadLimit     RoadLimit      `yaml:"road_limit"`
	SafetyConfigs []SafetyConfig `yaml:"safety_configs"`
	Alerts        Alerts         `yaml:"alerts"`
	Persist       Persist        `yaml:"persist"`
	Debug         Debug          `yaml:"debug"`

	LdwEnabled                bool `yaml:"ldw_enabled"`
	CommunityFeaturesToggle   bool `yaml:"community_features_toggle"`
	OpenControlsEnabledToggle bool `yaml:"open_controls_enabled_toggle"`
	Passive                   bool `yaml:"passive"`
}

// Default returns a config tree with the constants named in spec.md baked
// in, to be overridden by whatever the loaded YAML sets.
func Default() Root {
	return Root{
		Cruise: Cruise{
			Min:              8.05, // ~5 mph
			Max:              151.0,
			DeltaKm:          1.0,
			DeltaMi:          1.6,
			PCMForcedKph:     30.0,
			MinSetSpeedClu:   8.05,
			SmoothingPerTick: 0.01,
		},
		Curve: Curve{
			Enabled:             true,
			RecomputeEveryTicks: 20,
			TrajectorySize:      33,
			WindowLength:        10,
			MinCurveSpeedMs:     5.0,
			SccCurvatureFactor:  1.0,
		},
		Lead: Lead{
			SpeedConvToClu: 3.6,
		},
		RoadLimit: RoadLimit{
			MinApplyKph: 30.0,
		},
		Alerts: Alerts{
			GlobalRatePerMin:  120,
			PerKindRatePerMin: 12,
			Burst:             4,
		},
		Persist: Persist{
			ParamsCachePath:   "data/car_params_cache.json",
			ControlsReadyPath: "data/controls_ready.json",
		},
		LdwEnabled: true,
	}
}

// Load reads and parses a YAML config file, overlaying it onto Default().
func Load(path string) (Root, error) {
	root := Default()
	if path == "" {
		return root, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return root, nil
		}
		return root, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return root, fmt.Errorf("parse config %s: %w", path, err)
	}
	return root, nil
}
