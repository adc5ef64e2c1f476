// Package config loads the engine tuning file.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-pestmap/internal/colorramp"
	"github.com/joeblew999/plat-pestmap/internal/idw"
	"github.com/joeblew999/plat-pestmap/internal/raster"
	"github.com/joeblew999/plat-pestmap/internal/surface"
)

// Config is the effective engine configuration.
type Config struct {
	Interpolation Interpolation `yaml:"interpolation"`
	Render        Render        `yaml:"render"`
	// ValueField selects the prediction field fed to the interpolator.
	ValueField surface.Field `yaml:"value_field"`
	// BoundaryPath and RegionsPath override the embedded data when set.
	BoundaryPath string `yaml:"boundary_path,omitempty"`
	RegionsPath  string `yaml:"regions_path,omitempty"`
}

// Interpolation tunes the IDW weights.
type Interpolation struct {
	Power float64 `yaml:"power"`
	Snap  float64 `yaml:"snap"` // degrees
}

// Render tunes the rasterizer and its cache.
type Render struct {
	StepBase  float64        `yaml:"step_base"`
	Alpha     int            `yaml:"alpha"`
	Ramp      colorramp.Kind `yaml:"ramp"`
	Timeout   time.Duration  `yaml:"timeout"`
	CacheSize int            `yaml:"cache_size"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Interpolation: Interpolation{Power: idw.DefaultPower, Snap: idw.DefaultSnap},
		Render: Render{
			StepBase:  raster.DefaultStepBase,
			Alpha:     raster.DefaultAlpha,
			Ramp:      colorramp.KindDiscrete,
			Timeout:   3 * time.Second,
			CacheSize: 128,
		},
		ValueField: surface.FieldRiskLevel,
	}
}

// Parse decodes YAML over the defaults, so missing keys keep their default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads path. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var err error
	if !(c.Interpolation.Power > 0) || math.IsInf(c.Interpolation.Power, 0) {
		err = multierr.Append(err, fmt.Errorf("interpolation.power %v must be positive", c.Interpolation.Power))
	}
	if !(c.Interpolation.Snap >= 0) || math.IsInf(c.Interpolation.Snap, 0) {
		err = multierr.Append(err, fmt.Errorf("interpolation.snap %v must not be negative", c.Interpolation.Snap))
	}
	if !(c.Render.StepBase > 0) {
		err = multierr.Append(err, fmt.Errorf("render.step_base %v must be positive", c.Render.StepBase))
	}
	if c.Render.Alpha < 1 || c.Render.Alpha > 255 {
		err = multierr.Append(err, fmt.Errorf("render.alpha %d out of range 1-255", c.Render.Alpha))
	}
	if _, rerr := colorramp.New(c.Render.Ramp); rerr != nil {
		err = multierr.Append(err, rerr)
	}
	if c.Render.Timeout <= 0 {
		err = multierr.Append(err, errors.New("render.timeout must be positive"))
	}
	if c.Render.CacheSize < 0 {
		err = multierr.Append(err, fmt.Errorf("render.cache_size %d must not be negative", c.Render.CacheSize))
	}
	if _, ferr := surface.ParseField(string(c.ValueField)); ferr != nil {
		err = multierr.Append(err, ferr)
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Marshal renders the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
