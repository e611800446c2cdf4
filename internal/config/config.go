package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Strategy names accepted by Config.Strategy.
const (
	StrategyReference = "reference"
	StrategyBatched   = "batched"
)

// Config holds the merge configuration.
type Config struct {
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`
	Mesh      string `json:"mesh"`
	Blocks    string `json:"blocks,omitempty"` // block list; empty uses the assets default
	Workers   int    `json:"workers"`
	Strategy  string `json:"strategy"` // "reference" or "batched"
	LogLevel  string `json:"log_level"`

	// Mesh transforms, applied in field order. Nil vectors are skipped.
	Center    bool  `json:"center"`
	ScaleTo   *Vec3 `json:"scale_to,omitempty"`
	Scale     *Vec3 `json:"scale,omitempty"`
	Rotate    *Vec3 `json:"rotate,omitempty"` // degrees about x, then y, then z
	Translate *Vec3 `json:"translate,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers:  4,
		Strategy: StrategyReference,
		LogLevel: "info",
	}
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["input"] {
		cfg.InputDir = fromFile.InputDir
	}
	if !explicitFlags["output"] {
		cfg.OutputDir = fromFile.OutputDir
	}
	if !explicitFlags["mesh"] {
		cfg.Mesh = fromFile.Mesh
	}
	if !explicitFlags["blocks"] {
		cfg.Blocks = fromFile.Blocks
	}
	if !explicitFlags["workers"] {
		cfg.Workers = fromFile.Workers
	}
	if !explicitFlags["strategy"] {
		cfg.Strategy = fromFile.Strategy
	}
	if !explicitFlags["log-level"] {
		cfg.LogLevel = fromFile.LogLevel
	}
	if !explicitFlags["center"] {
		cfg.Center = fromFile.Center
	}
	if !explicitFlags["scale-to"] {
		cfg.ScaleTo = fromFile.ScaleTo
	}
	if !explicitFlags["scale"] {
		cfg.Scale = fromFile.Scale
	}
	if !explicitFlags["rotate"] {
		cfg.Rotate = fromFile.Rotate
	}
	if !explicitFlags["translate"] {
		cfg.Translate = fromFile.Translate
	}
}

// Validate reports every missing or out of range setting.
func (c *Config) Validate() error {
	var errs []error
	if c.InputDir == "" {
		errs = append(errs, errors.New("input directory required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory required"))
	}
	if c.Mesh == "" {
		errs = append(errs, errors.New("mesh file required"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	switch c.Strategy {
	case StrategyReference, StrategyBatched:
	default:
		errs = append(errs, fmt.Errorf("unknown strategy %q", c.Strategy))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

// Vec3 is a vector setting written as "x,y,z" on the command line and as a
// JSON array in files.
type Vec3 [3]float32

// ParseVec3 parses "x,y,z". Whitespace around the components is ignored.
func ParseVec3(s string) (Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Vec3{}, fmt.Errorf("vector %q: want x,y,z", s)
	}
	var v Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return Vec3{}, fmt.Errorf("vector %q: %w", s, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

func (v Vec3) String() string {
	return fmt.Sprintf("%g,%g,%g", v[0], v[1], v[2])
}

// VecFlag adapts an optional vector setting to flag.Value.
type VecFlag struct {
	P **Vec3
}

func (f VecFlag) String() string {
	if f.P == nil || *f.P == nil {
		return ""
	}
	return (*f.P).String()
}

func (f VecFlag) Set(s string) error {
	v, err := ParseVec3(s)
	if err != nil {
		return err
	}
	*f.P = &v
	return nil
}
