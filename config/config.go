// Package config holds the engine configuration surface: task retention,
// interrupt expiry and the ReAct iteration knobs. Values load from YAML and
// fall back to defaults field by field.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30m"
// or from plain nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("invalid duration value")
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ReAct holds the reasoning-loop knobs. MaxIterations is the engine-wide
// hard cap; DefaultWorkflowIterations applies to definitions that set no cap
// of their own. The two are independent and independently configurable.
type ReAct struct {
	MaxIterations             int      `yaml:"maxIterations"`
	DefaultWorkflowIterations int      `yaml:"defaultWorkflowIterations"`
	MaxDuration               Duration `yaml:"maxDuration"`
}

// Engine is the top-level configuration.
type Engine struct {
	MaxTasks        int      `yaml:"maxTasks"`
	TaskTTL         Duration `yaml:"taskTtl"`
	CleanupInterval Duration `yaml:"cleanupInterval"`
	InterruptTTL    Duration `yaml:"interruptTtl"`
	ReAct           ReAct    `yaml:"react"`
}

// Default returns the built-in configuration.
func Default() Engine {
	return Engine{
		MaxTasks:        1000,
		TaskTTL:         Duration(24 * time.Hour),
		CleanupInterval: Duration(10 * time.Minute),
		InterruptTTL:    Duration(time.Hour),
		ReAct: ReAct{
			MaxIterations:             200,
			DefaultWorkflowIterations: 10,
		},
	}
}

// Load reads a YAML file over the defaults. Fields absent from the file keep
// their default values.
func Load(path string) (Engine, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.normalized(), nil
}

// normalized replaces non-positive knobs with their defaults.
func (e Engine) normalized() Engine {
	def := Default()
	if e.MaxTasks <= 0 {
		e.MaxTasks = def.MaxTasks
	}
	if e.TaskTTL <= 0 {
		e.TaskTTL = def.TaskTTL
	}
	if e.CleanupInterval <= 0 {
		e.CleanupInterval = def.CleanupInterval
	}
	if e.InterruptTTL <= 0 {
		e.InterruptTTL = def.InterruptTTL
	}
	if e.ReAct.MaxIterations <= 0 {
		e.ReAct.MaxIterations = def.ReAct.MaxIterations
	}
	if e.ReAct.DefaultWorkflowIterations <= 0 {
		e.ReAct.DefaultWorkflowIterations = def.ReAct.DefaultWorkflowIterations
	}
	return e
}
