// Package workflow holds the declarative definition types shared by the
// executors: step-based and ReAct workflow definitions, the tagged input
// value forms, discovery configuration, and step results. Definitions are
// immutable once loaded; the executors only read them.
package workflow

import "time"

// Type discriminates the two workflow variants.
type Type string

// Workflow variants.
const (
	TypeSteps Type = "steps"
	TypeReAct Type = "react"
)

// ErrorPolicy controls how the step executor reacts to a failed step.
type ErrorPolicy string

// Error policies.
const (
	OnErrorStop     ErrorPolicy = "stop"
	OnErrorContinue ErrorPolicy = "continue"
)

// ExecutionMode selects the ReAct loop's tool binding strategy.
type ExecutionMode string

// Execution modes.
const (
	ModeReAct      ExecutionMode = "react"
	ModeSingleTurn ExecutionMode = "single-turn"
)

// FilterMode selects how a discovered tool or agent set is filtered.
type FilterMode string

// Filter modes.
const (
	FilterAll     FilterMode = "all"
	FilterInclude FilterMode = "include"
	FilterExclude FilterMode = "exclude"
	FilterNone    FilterMode = "none"
)

// InputField declares one workflow input with an optional default substituted
// before execution when the caller omits the field.
type InputField struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type,omitempty" json:"type,omitempty"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Default  any    `yaml:"default,omitempty" json:"default,omitempty"`
}

// Step is a single unit in a step-based workflow: either one agent invocation
// (Agent set) or a parallel group (Parallel set). Input values are literals,
// "{{...}}" template strings, or {from, path} reference maps.
type Step struct {
	ID        string         `yaml:"id" json:"id"`
	Agent     string         `yaml:"agent,omitempty" json:"agent,omitempty"`
	Input     map[string]any `yaml:"input,omitempty" json:"input,omitempty"`
	Condition string         `yaml:"condition,omitempty" json:"condition,omitempty"`
	Parallel  []Step         `yaml:"parallel,omitempty" json:"parallel,omitempty"`
}

// IsParallel reports whether the step is a parallel group.
func (s Step) IsParallel() bool { return len(s.Parallel) > 0 }

// ToolDiscoveryConfig selects and filters the tool sources offered to a ReAct
// run. An empty Sources list means every source (mcp, knowledge, function,
// builtin).
type ToolDiscoveryConfig struct {
	Sources []string   `yaml:"sources,omitempty" json:"sources,omitempty"`
	Mode    FilterMode `yaml:"mode,omitempty" json:"mode,omitempty"`
	Include []string   `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude []string   `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// AgentDiscoveryConfig filters the agents offered to a ReAct run as callable
// tools. It never touches the tool sources.
type AgentDiscoveryConfig struct {
	Mode    FilterMode `yaml:"mode,omitempty" json:"mode,omitempty"`
	Include []string   `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude []string   `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// ReActConfig configures the autonomous reasoning loop variant.
type ReActConfig struct {
	Goal          string               `yaml:"goal" json:"goal"`
	SystemPrompt  string               `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	Model         string               `yaml:"model" json:"model"`
	Mode          ExecutionMode        `yaml:"mode,omitempty" json:"mode,omitempty"`
	Tools         ToolDiscoveryConfig  `yaml:"tools,omitempty" json:"tools,omitempty"`
	Agents        AgentDiscoveryConfig `yaml:"agents,omitempty" json:"agents,omitempty"`
	MaxIterations int                  `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`
	MaxDuration   time.Duration        `yaml:"max_duration,omitempty" json:"max_duration,omitempty"`
	Output        string               `yaml:"output,omitempty" json:"output,omitempty"`
}

// Definition is an externally supplied, immutable workflow description.
// Steps/Output/OnError apply to the steps variant, ReAct to the react variant.
type Definition struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Type        Type           `yaml:"type" json:"type"`
	Input       []InputField   `yaml:"input,omitempty" json:"input,omitempty"`
	Steps       []Step         `yaml:"steps,omitempty" json:"steps,omitempty"`
	Output      map[string]any `yaml:"output,omitempty" json:"output,omitempty"`
	OnError     ErrorPolicy    `yaml:"on_error,omitempty" json:"on_error,omitempty"`
	ReAct       *ReActConfig   `yaml:"react,omitempty" json:"react,omitempty"`
}

// StepResult is the immutable outcome of one step: the agent output plus
// execution metadata. Skipped marks the synthetic no-op produced by a false
// condition.
type StepResult struct {
	Output   any            `json:"output"`
	Agent    string         `json:"agent,omitempty"`
	Duration time.Duration  `json:"duration"`
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Skipped  bool           `json:"skipped,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
