// Package config provides configuration loading and access for the wave-field engine.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all engine and driver configuration parameters.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Ocean     OceanConfig     `yaml:"ocean"`
	Spectrum  SpectrumConfig  `yaml:"spectrum"`
	Probes    ProbesConfig    `yaml:"probes"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Server    ServerConfig    `yaml:"server"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// EngineConfig holds the fixed capacities and scheduling parameters of the query engine.
type EngineConfig struct {
	QueryCapacity       int `yaml:"query_capacity"`       // Slots in the shared position/result buffers
	MaxWaveComponents   int `yaml:"max_wave_components"`  // Spectral lines the store can hold
	InversionIterations int `yaml:"inversion_iterations"` // Fixed-point steps for true-height queries
	Workers             int `yaml:"workers"`              // Evaluation goroutines (0 = GOMAXPROCS)
	BatchSize           int `yaml:"batch_size"`           // Minimum slots per work chunk
	CompactThreshold    int `yaml:"compact_threshold"`    // Compact when gap slots exceed this (0 = never)
}

// OceanConfig holds the global surface parameters.
type OceanConfig struct {
	SeaLevel         float64 `yaml:"sea_level"`
	Gravity          float64 `yaml:"gravity"`
	WindDirectionDeg float64 `yaml:"wind_direction_deg"`
	DT               float64 `yaml:"dt"`
}

// SpectrumConfig describes the octave wave description ingested every tick.
type SpectrumConfig struct {
	Octaves             int       `yaml:"octaves"`
	ComponentsPerOctave int       `yaml:"components_per_octave"`
	MinWavelength       float64   `yaml:"min_wavelength"`
	MaxWavelength       float64   `yaml:"max_wavelength"`
	WindSpeed           float64   `yaml:"wind_speed"`       // Drives the peak of the power curve
	AmplitudeScale      float64   `yaml:"amplitude_scale"`  // Global multiplier on component amplitude
	DirectionSpread     float64   `yaml:"direction_spread"` // Max angular offset from wind, degrees
	ChopScales          []float64 `yaml:"chop_scales"`      // Per octave
	GravityScales       []float64 `yaml:"gravity_scales"`   // Per octave
	Seed                int64     `yaml:"seed"`
}

// ProbesConfig holds parameters for the floating sample probes driven by the headless runner.
type ProbesConfig struct {
	Count          int     `yaml:"count"`
	PointsPerProbe int     `yaml:"points_per_probe"`
	Area           float64 `yaml:"area"`          // Side length of the square the probes drift in
	Radius         float64 `yaml:"radius"`        // Radius of the local sample ring
	DriftSpeed     float64 `yaml:"drift_speed"`   // World units per second
	ResizeChance   float64 `yaml:"resize_chance"` // Per tick probability that a probe changes its sample count
	ChurnChance    float64 `yaml:"churn_chance"`  // Per tick probability that one probe is replaced
	Freeboard      float64 `yaml:"freeboard"`     // Deck height above still water
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow  int `yaml:"perf_window"`  // Ticks per perf averaging window
	LogInterval int `yaml:"log_interval"` // Ticks between perf log lines
}

// ServerConfig holds the optional websocket broadcast settings.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	BroadcastEvery int    `yaml:"broadcast_every"` // Ticks between frames
	MaxProbesFrame int    `yaml:"max_probes_frame"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32        float32 // Ocean.DT as float32
	SeaLevel32  float32 // Ocean.SeaLevel as float32
	Gravity32   float32 // Ocean.Gravity as float32
	WindDir32   float32 // Ocean.WindDirectionDeg as float32
	NumSpectral int     // Spectrum.Octaves * Spectrum.ComponentsPerOctave
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// validate rejects configurations the engine cannot be initialized with.
func (c *Config) validate() error {
	if c.Engine.QueryCapacity <= 0 {
		return fmt.Errorf("engine.query_capacity must be positive, got %d", c.Engine.QueryCapacity)
	}
	if c.Engine.MaxWaveComponents <= 0 {
		return fmt.Errorf("engine.max_wave_components must be positive, got %d", c.Engine.MaxWaveComponents)
	}
	if c.Spectrum.MinWavelength <= 0 || c.Spectrum.MaxWavelength < c.Spectrum.MinWavelength {
		return fmt.Errorf("spectrum wavelengths out of order: min=%g max=%g",
			c.Spectrum.MinWavelength, c.Spectrum.MaxWavelength)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Ocean.DT)
	c.Derived.SeaLevel32 = float32(c.Ocean.SeaLevel)
	c.Derived.Gravity32 = float32(c.Ocean.Gravity)
	c.Derived.WindDir32 = float32(c.Ocean.WindDirectionDeg)
	c.Derived.NumSpectral = c.Spectrum.Octaves * c.Spectrum.ComponentsPerOctave

	if c.Engine.InversionIterations <= 0 {
		c.Engine.InversionIterations = 4
	}
	if c.Engine.BatchSize <= 0 {
		c.Engine.BatchSize = 32
	}

	// Per-octave scales default to 1 when the file lists fewer entries than octaves
	c.Spectrum.ChopScales = padScales(c.Spectrum.ChopScales, c.Spectrum.Octaves)
	c.Spectrum.GravityScales = padScales(c.Spectrum.GravityScales, c.Spectrum.Octaves)
}

func padScales(scales []float64, n int) []float64 {
	for len(scales) < n {
		scales = append(scales, 1.0)
	}
	return scales
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
