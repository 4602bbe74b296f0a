package confluence

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the factor point values and upgrade thresholds.
// These are tuning parameters, not contracts: defaults are placeholders
// pending feedback-loop data from the signal store.
// ⭐ SSOT: 스코어링 가중치는 이 설정에서만
type Config struct {
	Factors    Factors    `yaml:"factors" json:"factors"`
	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`
}

// Factors lists the point value of each corroborating factor.
type Factors struct {
	// 5-day trend: abs(trend) >= threshold contributes TrendPoints in
	// the trend's direction.
	TrendThresholdPct float64 `yaml:"trend_threshold_pct" json:"trend_threshold_pct"`
	TrendPoints       int     `yaml:"trend_points" json:"trend_points"`

	// Nearest institutional level: support adds, resistance subtracts,
	// only when the level's size clears the floor.
	LevelSizeFloor int64 `yaml:"level_size_floor" json:"level_size_floor"`
	LevelPoints    int   `yaml:"level_points" json:"level_points"`

	// Mega-cap stability is a bullish-only factor.
	MegaCapPoints int `yaml:"mega_cap_points" json:"mega_cap_points"`

	// Elevated relative volume corroborates whichever direction the
	// trend points; flat trend means volume contributes nothing.
	VolumeThreshold float64 `yaml:"volume_threshold" json:"volume_threshold"`
	VolumePoints    int     `yaml:"volume_points" json:"volume_points"`

	// Panic volatility regime is a bearish-only factor.
	PanicRegimePoints int `yaml:"panic_regime_points" json:"panic_regime_points"`
}

// Thresholds maps a net score to the action ladder.
// net >= UpgradeHigh lifts AVOID/WATCH to LONG; UpgradeLow..UpgradeHigh-1
// lifts AVOID to WATCH; the bearish side is symmetric.
type Thresholds struct {
	UpgradeLow  int `yaml:"upgrade_low" json:"upgrade_low"`
	UpgradeHigh int `yaml:"upgrade_high" json:"upgrade_high"`
}

// Default returns the built-in placeholder weights.
func Default() Config {
	return Config{
		Factors: Factors{
			TrendThresholdPct: 5.0,
			TrendPoints:       2,
			LevelSizeFloor:    1_000_000,
			LevelPoints:       2,
			MegaCapPoints:     1,
			VolumeThreshold:   1.5,
			VolumePoints:      1,
			PanicRegimePoints: 1,
		},
		Thresholds: Thresholds{
			UpgradeLow:  2,
			UpgradeHigh: 4,
		},
	}
}

// Load reads a YAML weights file. Unknown fields fail immediately so a
// typo in a tuning file cannot silently fall back to defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse confluence config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadOrDefault loads path when non-empty, otherwise returns Default().
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate rejects configurations that would make scoring meaningless.
func (c *Config) Validate() error {
	if c.Thresholds.UpgradeLow < 1 {
		return fmt.Errorf("thresholds.upgrade_low must be >= 1")
	}
	if c.Thresholds.UpgradeHigh <= c.Thresholds.UpgradeLow {
		return fmt.Errorf("thresholds.upgrade_high (%d) must exceed upgrade_low (%d)",
			c.Thresholds.UpgradeHigh, c.Thresholds.UpgradeLow)
	}
	if c.Factors.TrendThresholdPct <= 0 {
		return fmt.Errorf("factors.trend_threshold_pct must be positive")
	}
	if c.Factors.TrendPoints < 0 || c.Factors.LevelPoints < 0 ||
		c.Factors.MegaCapPoints < 0 || c.Factors.VolumePoints < 0 ||
		c.Factors.PanicRegimePoints < 0 {
		return fmt.Errorf("factor points must be non-negative")
	}
	return nil
}
