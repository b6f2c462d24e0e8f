// Package config loads the driver's run configuration from a YAML file,
// grounded on reinforcement.FromYaml's viper -> yaml.v3 round trip:
// viper handles locating and parsing the file, and a second yaml.v3 pass
// unmarshals the typed payload, so the config schema isn't coupled to
// viper's loose map-based decoding.
package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// outerConfig mirrors reinforcement.OuterConfig's kind/def envelope, letting
// the same loader shape be reused if other config "kinds" are added later.
type outerConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// DriverConfig holds every parameter of a driver run (spec §6).
type DriverConfig struct {
	// NStates is n, the number of active machine states.
	NStates int `yaml:"n_states"`
	// MaxRuntimeSteps is the per-machine step budget T.
	MaxRuntimeSteps uint64 `yaml:"max_runtime_steps"`
	// UseReducedEnumeration selects the symmetry-reduced enumerator over
	// the raw one.
	UseReducedEnumeration bool `yaml:"use_reduced_enumeration"`
	// BlankSymbol is the tape's initial fill value, 0 or 1.
	BlankSymbol int `yaml:"blank_symbol"`
	// EnableEscapeeFilter toggles the escapee runtime filter.
	EnableEscapeeFilter bool `yaml:"enable_escapee_filter"`
	// EnablePeriod2Filter toggles the period-2 runtime filter.
	EnablePeriod2Filter bool `yaml:"enable_period2_filter"`
	// BatchSize is the number of machines per driver batch.
	BatchSize uint64 `yaml:"batch_size"`
	// NumMachinesToRun, if nonzero, truncates the enumeration to its first
	// N codes instead of running it to completion (spec §6).
	NumMachinesToRun uint64 `yaml:"num_machines_to_run"`
	// NumProcesses is the number of worker goroutines in the driver pool;
	// 0 means "use every available core" (spec §6).
	NumProcesses int `yaml:"num_processes"`
	// CheckpointIntervalSeconds is how often the driver persists progress.
	CheckpointIntervalSeconds int `yaml:"checkpoint_interval_seconds"`
	// CheckpointPath is where checkpoints are written and resumed from; a
	// blank value disables checkpointing.
	CheckpointPath string `yaml:"checkpoint_path"`
	// SaveRawCounts, if set, persists the pre-normalisation counts
	// alongside the finalised distribution.
	SaveRawCounts bool `yaml:"save_raw_counts"`
	// OutputPath is where the finalised distribution JSON is written.
	OutputPath string `yaml:"output_path"`
	// LogLevel selects the verbosity of internal/logging output.
	LogLevel string `yaml:"log_level"`
}

// ConfigurationError reports a DriverConfig that failed validation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: field %q: %s", e.Field, e.Reason)
}

// CheckpointInterval returns CheckpointIntervalSeconds as a time.Duration.
func (c *DriverConfig) CheckpointInterval() time.Duration {
	return time.Duration(c.CheckpointIntervalSeconds) * time.Second
}

// ResolvedNumProcesses returns NumProcesses, substituting every available
// core (runtime.NumCPU()) for the "0 = all cores" sentinel (spec §6).
func (c *DriverConfig) ResolvedNumProcesses() int {
	if c.NumProcesses == 0 {
		return runtime.NumCPU()
	}
	return c.NumProcesses
}

// Validate checks the constraints spec.md §6 places on a driver config.
func (c *DriverConfig) Validate() error {
	switch {
	case c.NStates <= 0:
		return &ConfigurationError{"n_states", "must be positive"}
	case c.MaxRuntimeSteps == 0:
		return &ConfigurationError{"max_runtime_steps", "must be positive"}
	case c.BlankSymbol != 0 && c.BlankSymbol != 1:
		return &ConfigurationError{"blank_symbol", "must be 0 or 1"}
	case c.BatchSize == 0:
		return &ConfigurationError{"batch_size", "must be positive"}
	case c.NumProcesses < 0:
		return &ConfigurationError{"num_processes", "must not be negative"}
	case c.OutputPath == "":
		return &ConfigurationError{"output_path", "must be set"}
	}
	return nil
}

// Load reads and validates a DriverConfig from a YAML file at path.
func Load(path string) (*DriverConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	outer := &outerConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, fmt.Errorf("config: unmarshal envelope: %w", err)
	}

	raw, err := yaml.Marshal(outer.Def)
	if err != nil {
		return nil, fmt.Errorf("config: re-marshal def: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal driver config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *DriverConfig {
	return &DriverConfig{
		NumProcesses:              1,
		BatchSize:                 1000,
		CheckpointIntervalSeconds: 30,
		EnableEscapeeFilter:       true,
		EnablePeriod2Filter:       true,
		LogLevel:                  "info",
	}
}
