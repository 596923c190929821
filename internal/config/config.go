// Package config loads patrol search parameters from YAML and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/signalsfoundry/patrol-search/core"
	"github.com/signalsfoundry/patrol-search/internal/search"
	"gopkg.in/yaml.v3"
)

// Point is a YAML coordinate pair.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Board is the YAML arena size.
type Board struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Phase is a YAML phase table entry.
type Phase struct {
	Speed float64 `yaml:"speed"`
	Start int     `yaml:"start"`
	End   int     `yaml:"end"`
}

// Config is the on-disk search configuration. Keys missing from the file
// keep their reference scenario values.
type Config struct {
	Duration        int     `yaml:"duration"`
	Board           Board   `yaml:"board"`
	Start           Point   `yaml:"start"`
	SensorRadius    float64 `yaml:"sensor_radius"`
	StepLength      float64 `yaml:"step_length"`
	TrialsPerMove   int     `yaml:"trials_per_move"`
	Batches         int     `yaml:"batches"`
	RepeatsPerBatch int     `yaml:"repeats_per_batch"`
	MaxDetections   float64 `yaml:"max_detections"`
	Seed            uint64  `yaml:"seed"`
	Workers         int     `yaml:"workers"`
	Phases          []Phase `yaml:"phases"`
}

// Default returns the reference scenario configuration.
func Default() Config {
	pc := core.DefaultConfig()
	so := search.DefaultOptions()
	return Config{
		Duration:        pc.Duration,
		Board:           Board{Width: pc.Arena.Width, Height: pc.Arena.Height},
		Start:           Point{X: pc.Start.X, Y: pc.Start.Y},
		SensorRadius:    pc.SensorRadius,
		StepLength:      pc.StepLength,
		TrialsPerMove:   pc.TrialsPerMove,
		Batches:         so.Batches,
		RepeatsPerBatch: so.RepeatsPerBatch,
		MaxDetections:   so.MaxDetections,
	}
}

// Load reads path, falls back to defaults for unset fields, applies
// environment overrides and validates the result. An empty path loads the
// defaults alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
		parsed, err := Parse(bytes.NewReader(data))
		if err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
		cfg = parsed
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults, so absent keys keep their
// default and explicit values, zeros included, reach Validate. Unknown keys
// are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides the seed and worker count from PATROL_SEED and
// PATROL_WORKERS when set.
func (c *Config) ApplyEnv() error {
	if raw := os.Getenv("PATROL_SEED"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("PATROL_SEED: %w", err)
		}
		c.Seed = seed
	}
	if raw := os.Getenv("PATROL_WORKERS"); raw != "" {
		workers, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("PATROL_WORKERS: %w", err)
		}
		c.Workers = workers
	}
	return nil
}

// Validate checks both the planner and the search parameters, including
// that max_detections covers every track the board offers.
func (c Config) Validate() error {
	planner, err := core.NewPlanner(c.Planner())
	if err != nil {
		return err
	}
	so := c.Search()
	if err := so.Validate(); err != nil {
		return err
	}
	return so.CheckCapacity(planner)
}

// Planner converts the file form into planner parameters.
func (c Config) Planner() core.Config {
	pc := core.Config{
		Arena:         core.Arena{Width: c.Board.Width, Height: c.Board.Height},
		Start:         core.Point{X: c.Start.X, Y: c.Start.Y},
		SensorRadius:  c.SensorRadius,
		StepLength:    c.StepLength,
		TrialsPerMove: c.TrialsPerMove,
		Duration:      c.Duration,
	}
	for _, ph := range c.Phases {
		pc.Phases = append(pc.Phases, core.Phase{Speed: core.SpeedClass(ph.Speed), Start: ph.Start, End: ph.End})
	}
	return pc
}

// Search converts the file form into search options.
func (c Config) Search() search.Options {
	return search.Options{
		Batches:         c.Batches,
		RepeatsPerBatch: c.RepeatsPerBatch,
		MaxDetections:   c.MaxDetections,
		Workers:         c.Workers,
		Seed:            c.Seed,
	}
}
