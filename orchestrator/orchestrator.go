// Package orchestrator is the run facade over the two workflow executors and
// direct agent invocation. It validates inputs against the workflow's
// declared fields, dispatches on workflow type, and normalizes every outcome
// into a RunResult so the task layer never sees executor-specific shapes.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/ddalcu/agent-orcha-sub003/agent"
	"github.com/ddalcu/agent-orcha-sub003/flow"
	"github.com/ddalcu/agent-orcha-sub003/logging"
	"github.com/ddalcu/agent-orcha-sub003/react"
	"github.com/ddalcu/agent-orcha-sub003/workflow"
)

// WorkflowProvider resolves workflow names to definitions.
type WorkflowProvider interface {
	Get(name string) (*workflow.Definition, bool)
	Names() []string
}

// StaticWorkflows is an in-memory WorkflowProvider over a fixed set.
type StaticWorkflows map[string]*workflow.Definition

// Get implements WorkflowProvider.
func (s StaticWorkflows) Get(name string) (*workflow.Definition, bool) {
	d, ok := s[name]
	return d, ok
}

// Names implements WorkflowProvider.
func (s StaticWorkflows) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	return names
}

// RunResult is the normalized outcome of any run operation.
type RunResult struct {
	// Output is the run's product. For interrupted workflows it is a map
	// carrying interrupted, question and threadId keys.
	Output any `json:"output"`

	// Metadata carries run statistics such as duration and step counts.
	Metadata map[string]any `json:"metadata,omitempty"`

	// StepResults holds per-step outcomes for step-based workflows.
	StepResults map[string]workflow.StepResult `json:"stepResults,omitempty"`
}

// Interrupted reports whether this result represents a paused workflow, and
// returns the question and thread id when it does.
func (r *RunResult) Interrupted() (question, threadID string, ok bool) {
	m, isMap := r.Output.(map[string]any)
	if !isMap {
		return "", "", false
	}
	flagged, _ := m["interrupted"].(bool)
	if !flagged {
		return "", "", false
	}
	question, _ = m["question"].(string)
	threadID, _ = m["threadId"].(string)
	return question, threadID, true
}

// Options configures the orchestrator.
type Options struct {
	Logger logging.Logger
}

// Orchestrator runs agents and workflows by name.
type Orchestrator struct {
	workflows WorkflowProvider
	agents    agent.Provider
	executor  agent.Executor
	steps     *flow.Executor
	react     *react.Executor
	logger    logging.Logger
}

// New creates an orchestrator over the given providers and executors.
func New(workflows WorkflowProvider, agents agent.Provider, executor agent.Executor, steps *flow.Executor, reactExec *react.Executor, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{Logger: logging.NewDefaultSlogLogger()}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Orchestrator{
		workflows: workflows,
		agents:    agents,
		executor:  executor,
		steps:     steps,
		react:     reactExec,
		logger:    opts.Logger,
	}
}

// RunAgent invokes a named agent directly with the given input. The session
// id travels on the context so the agent instance can scope its memory.
func (o *Orchestrator) RunAgent(ctx context.Context, name string, input map[string]any, sessionID string) (*RunResult, error) {
	def, ok := o.agents.Get(name)
	if !ok {
		return nil, fmt.Errorf("agent %s not found", name)
	}
	inst, err := o.executor.CreateInstance(def)
	if err != nil {
		return nil, fmt.Errorf("create agent %s: %w", name, err)
	}
	res, err := inst.Invoke(agent.WithSession(ctx, sessionID), input)
	if err != nil {
		return nil, err
	}
	return &RunResult{Output: res.Output, Metadata: res.Metadata}, nil
}

// RunWorkflow runs a named workflow, dispatching on its type. Input is
// validated against the definition's declared fields before execution.
func (o *Orchestrator) RunWorkflow(ctx context.Context, name string, input map[string]any, sink workflow.Sink) (*RunResult, error) {
	def, ok := o.workflows.Get(name)
	if !ok {
		return nil, fmt.Errorf("workflow %s not found", name)
	}
	if err := validateInput(def, input); err != nil {
		return nil, err
	}

	switch def.Type {
	case workflow.TypeReAct:
		return o.runReAct(ctx, def, input, sink)
	case workflow.TypeSteps, "":
		return o.runSteps(ctx, def, input, sink)
	default:
		return nil, fmt.Errorf("workflow %s has unknown type %q", name, def.Type)
	}
}

// ResumeWorkflow resumes a paused ReAct thread with the user's answer.
func (o *Orchestrator) ResumeWorkflow(ctx context.Context, threadID, answer string, sink workflow.Sink) (*RunResult, error) {
	res, err := o.react.ResumeWithAnswer(ctx, threadID, answer, sink)
	if err != nil {
		return nil, err
	}
	return normalizeReAct(res), nil
}

func (o *Orchestrator) runSteps(ctx context.Context, def *workflow.Definition, input map[string]any, sink workflow.Sink) (*RunResult, error) {
	res, err := o.steps.Execute(ctx, def, input, sink)
	if err != nil {
		return nil, err
	}
	return &RunResult{
		Output: res.Output,
		Metadata: map[string]any{
			"duration":      res.Duration.String(),
			"stepsExecuted": res.StepsExecuted,
			"success":       res.Success,
		},
		StepResults: res.StepResults,
	}, nil
}

func (o *Orchestrator) runReAct(ctx context.Context, def *workflow.Definition, input map[string]any, sink workflow.Sink) (*RunResult, error) {
	res, err := o.react.Execute(ctx, def, input, sink)
	if err != nil {
		return nil, err
	}
	return normalizeReAct(res), nil
}

// normalizeReAct maps a ReAct result into the facade shape. A paused run
// surfaces as a marker map so callers can route it without importing the
// executor.
func normalizeReAct(res *react.Result) *RunResult {
	meta := map[string]any{
		"duration":   res.Duration.String(),
		"iterations": res.Iterations,
	}
	if res.Interrupted {
		return &RunResult{
			Output: map[string]any{
				"interrupted": true,
				"question":    res.Question,
				"threadId":    res.ThreadID,
			},
			Metadata: meta,
		}
	}
	return &RunResult{Output: res.Output, Metadata: meta}
}

// validateInput rejects runs missing required declared fields. Fields with a
// default are never required to be present.
func validateInput(def *workflow.Definition, input map[string]any) error {
	for _, field := range def.Input {
		if !field.Required || field.Default != nil {
			continue
		}
		if v, ok := input[field.Name]; !ok || v == nil {
			return fmt.Errorf("workflow %s requires input field %s", def.Name, field.Name)
		}
	}
	return nil
}
