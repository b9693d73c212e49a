package trackkit

import (
	"fmt"

	"github.com/spf13/viper"
)

// FeatureNoiseConfig is the per-feature-name process/measurement noise
// override consulted by the Kalman matrix builder (spec.md §4.7).
type FeatureNoiseConfig struct {
	ProcessNoisePosition float64
	ProcessNoiseVelocity float64
	MeasurementNoise     float64
}

// Config is the numeric configuration surface for a session: time step,
// per-feature noise, assignment gating, tracker thresholds. Mirrors the
// teacher's own `_smdconfig` + viper-scenario-file pattern in shape, not in
// domain content (no SPICE/ephemeris knobs here).
type Config struct {
	DT float64 // time step between consecutive frames, in the filter's own units

	DefaultProcessNoisePosition float64
	DefaultProcessNoiseVelocity float64
	StaticProcessNoiseScale     float64
	DefaultMeasurementNoise     float64
	FeatureNoise                map[string]FeatureNoiseConfig

	MaxAssignmentDistance    float64 // Mahalanobis gating threshold
	AssignmentCostScale      float64 // integer scale factor for Munkres

	MaxIterations int // iterative smoothing tracker cap (spec.md default 3)

	CostScaleFactor          float64 // min-cost-flow integer scaling (default 100)
	CheapAssignmentThreshold float64 // meta-node extension threshold, Mahalanobis units (default 5.0)
	MaxPredictionHorizon     int     // max frame gap a min-cost-flow arc may span (default 50)

	OutlierWarmupFrames  int     // frames discarded before flagging (default 3)
	OutlierChiSquared    float64 // chi-squared threshold (default ~11.34, 99th pct for ~3 DoF)
	OutlierMagnitudeK    float64 // mean + k*std alternative strategy (default 3.0)
	OutlierGroupName     string  // name of the group outliers are collected into

	MergeGapThreshold  int // interval construction: merge gap <= this many frames
	MinIntervalLength  int // interval construction: discard shorter intervals
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		DT:                          1.0,
		DefaultProcessNoisePosition: 10.0,
		DefaultProcessNoiseVelocity: 1.0,
		StaticProcessNoiseScale:     1.0,
		DefaultMeasurementNoise:     5.0,
		FeatureNoise:                make(map[string]FeatureNoiseConfig),
		MaxAssignmentDistance:       3.0,
		AssignmentCostScale:         1000.0,
		MaxIterations:               3,
		CostScaleFactor:             100.0,
		CheapAssignmentThreshold:    5.0,
		MaxPredictionHorizon:        50,
		OutlierWarmupFrames:         3,
		OutlierChiSquared:           11.34,
		OutlierMagnitudeK:           3.0,
		OutlierGroupName:            "outliers",
		MergeGapThreshold:           1,
		MinIntervalLength:           1,
	}
}

// LoadConfig reads a TOML scenario file into Config via viper, starting
// from DefaultConfig so an incomplete scenario file still yields sane
// values — the same shape as the teacher's cmd/od scenario loader.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("trackkit: reading config %q: %w", path, err)
	}

	if v.IsSet("filter.dt") {
		cfg.DT = v.GetFloat64("filter.dt")
	}
	if v.IsSet("filter.process_noise_position") {
		cfg.DefaultProcessNoisePosition = v.GetFloat64("filter.process_noise_position")
	}
	if v.IsSet("filter.process_noise_velocity") {
		cfg.DefaultProcessNoiseVelocity = v.GetFloat64("filter.process_noise_velocity")
	}
	if v.IsSet("filter.static_process_noise_scale") {
		cfg.StaticProcessNoiseScale = v.GetFloat64("filter.static_process_noise_scale")
	}
	if v.IsSet("filter.measurement_noise") {
		cfg.DefaultMeasurementNoise = v.GetFloat64("filter.measurement_noise")
	}
	if raw, ok := v.Get("filter.feature_noise").(map[string]interface{}); ok {
		for name, v2 := range raw {
			if m, ok := v2.(map[string]interface{}); ok {
				fc := FeatureNoiseConfig{
					ProcessNoisePosition: cfg.DefaultProcessNoisePosition,
					ProcessNoiseVelocity: cfg.DefaultProcessNoiseVelocity,
					MeasurementNoise:     cfg.DefaultMeasurementNoise,
				}
				if f, ok := m["process_noise_position"].(float64); ok {
					fc.ProcessNoisePosition = f
				}
				if f, ok := m["process_noise_velocity"].(float64); ok {
					fc.ProcessNoiseVelocity = f
				}
				if f, ok := m["measurement_noise"].(float64); ok {
					fc.MeasurementNoise = f
				}
				cfg.FeatureNoise[name] = fc
			}
		}
	}
	if v.IsSet("assignment.max_distance") {
		cfg.MaxAssignmentDistance = v.GetFloat64("assignment.max_distance")
	}
	if v.IsSet("assignment.cost_scale") {
		cfg.AssignmentCostScale = v.GetFloat64("assignment.cost_scale")
	}
	if v.IsSet("tracker.max_iterations") {
		cfg.MaxIterations = v.GetInt("tracker.max_iterations")
	}
	if v.IsSet("tracker.cost_scale_factor") {
		cfg.CostScaleFactor = v.GetFloat64("tracker.cost_scale_factor")
	}
	if v.IsSet("tracker.cheap_assignment_threshold") {
		cfg.CheapAssignmentThreshold = v.GetFloat64("tracker.cheap_assignment_threshold")
	}
	if v.IsSet("tracker.max_prediction_horizon") {
		cfg.MaxPredictionHorizon = v.GetInt("tracker.max_prediction_horizon")
	}
	if v.IsSet("outlier.warmup_frames") {
		cfg.OutlierWarmupFrames = v.GetInt("outlier.warmup_frames")
	}
	if v.IsSet("outlier.chi_squared") {
		cfg.OutlierChiSquared = v.GetFloat64("outlier.chi_squared")
	}
	if v.IsSet("outlier.magnitude_k") {
		cfg.OutlierMagnitudeK = v.GetFloat64("outlier.magnitude_k")
	}
	if v.IsSet("outlier.group_name") {
		cfg.OutlierGroupName = v.GetString("outlier.group_name")
	}
	if v.IsSet("interval.merge_gap_threshold") {
		cfg.MergeGapThreshold = v.GetInt("interval.merge_gap_threshold")
	}
	if v.IsSet("interval.min_interval_length") {
		cfg.MinIntervalLength = v.GetInt("interval.min_interval_length")
	}
	return cfg, nil
}
