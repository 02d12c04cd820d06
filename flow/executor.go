// Package flow implements the step-based workflow executor: an ordered list
// of agent steps and parallel step groups with templated data-flow between
// them.
package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ddalcu/agent-orcha-sub003/agent"
	"github.com/ddalcu/agent-orcha-sub003/logging"
	"github.com/ddalcu/agent-orcha-sub003/workflow"
)

// Options holds configuration overrides passed to NewExecutor.
type Options struct {
	Logger logging.Logger
}

// Executor runs step-based workflow definitions. It is stateless between
// executions and safe for concurrent use; each Execute call owns its own
// workflow context.
type Executor struct {
	agents   agent.Provider
	executor agent.Executor
	logger   logging.Logger
}

// NewExecutor creates a step executor over an agent provider and executor.
func NewExecutor(agents agent.Provider, executor agent.Executor, optFns ...func(o *Options)) *Executor {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{agents: agents, executor: executor, logger: opts.Logger}
}

// Result is the settled outcome of one step-based execution.
type Result struct {
	Output        map[string]string              `json:"output"`
	StepResults   map[string]workflow.StepResult `json:"stepResults"`
	Duration      time.Duration                  `json:"duration"`
	StepsExecuted int                            `json:"stepsExecuted"`
	Success       bool                           `json:"success"`
}

// Execute runs the definition's steps in declaration order. A nil sink is
// legal; progress events are purely observational. When a required step
// fails under the stop policy, the partial result is returned together with
// a non-nil error describing the failing step.
func (e *Executor) Execute(ctx context.Context, def *workflow.Definition, input map[string]any, sink workflow.Sink) (*Result, error) {
	start := time.Now()
	total := countSteps(def.Steps)

	ec := &execContext{
		input: applyDefaults(def.Input, input),
		steps: make(map[string]workflow.StepResult),
	}

	sink.Emit(workflow.Event{
		Type:    workflow.EventWorkflowStart,
		Message: fmt.Sprintf("Starting workflow %s", def.Name),
		Total:   total,
	})

	e.logger.Info("flow.start", "workflow", def.Name, "steps", total)

	result := &Result{
		Output:      map[string]string{},
		StepResults: ec.steps,
	}

	current := 0
	for _, step := range def.Steps {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if step.IsParallel() {
			current = e.runParallelGroup(ctx, step, ec, sink, current, total, start)
			continue
		}

		sink.Emit(workflow.Event{
			Type:    workflow.EventStepStart,
			Message: fmt.Sprintf("Starting step %s", step.ID),
			Elapsed: time.Since(start).Milliseconds(),
			Step:    step.ID,
			Current: current + 1,
			Total:   total,
		})

		sr := e.runStep(ctx, step, ec)
		ec.steps[step.ID] = sr
		current++
		result.StepsExecuted = current

		e.emitStepSettled(sink, step.ID, sr, current, total, start)

		if !sr.Success && errorPolicy(def) == workflow.OnErrorStop {
			err := fmt.Errorf("step %s failed: %s", step.ID, sr.Error)
			result.Duration = time.Since(start)
			sink.Emit(workflow.Event{
				Type:    workflow.EventWorkflowError,
				Message: err.Error(),
				Elapsed: result.Duration.Milliseconds(),
				Current: current,
				Total:   total,
			})
			e.logger.Error("flow.failed", "workflow", def.Name, "step", step.ID, "error", sr.Error)
			return result, err
		}
	}

	result.StepsExecuted = current
	result.Output = ec.resolveOutputs(def.Output)
	result.Duration = time.Since(start)
	result.Success = true

	sink.Emit(workflow.Event{
		Type:    workflow.EventWorkflowComplete,
		Message: fmt.Sprintf("Workflow %s completed", def.Name),
		Elapsed: result.Duration.Milliseconds(),
		Current: current,
		Total:   total,
	})

	e.logger.Info("flow.complete", "workflow", def.Name, "steps", current, "duration_ms", result.Duration.Milliseconds())

	return result, nil
}

// runParallelGroup executes every member step concurrently and merges the
// results into the context as one batch once all settle. A failure in one
// member does not cancel siblings and never halts the workflow.
func (e *Executor) runParallelGroup(ctx context.Context, group workflow.Step, ec *execContext, sink workflow.Sink, current, total int, start time.Time) int {
	members := group.Parallel

	for _, member := range members {
		sink.Emit(workflow.Event{
			Type:    workflow.EventStepStart,
			Message: fmt.Sprintf("Starting step %s", member.ID),
			Elapsed: time.Since(start).Milliseconds(),
			Step:    member.ID,
			Current: current + 1,
			Total:   total,
		})
	}

	results := make([]workflow.StepResult, len(members))
	var wg sync.WaitGroup
	for i, member := range members {
		wg.Add(1)
		go func(idx int, st workflow.Step) {
			defer wg.Done()
			results[idx] = e.runStep(ctx, st, ec)
		}(i, member)
	}
	wg.Wait()

	// Batch merge after all settle; the context is only written between
	// group boundaries, so members read it without locking.
	for i, member := range members {
		ec.steps[member.ID] = results[i]
		current++
		e.emitStepSettled(sink, member.ID, results[i], current, total, start)
	}

	return current
}

// runStep executes a single agent step: condition check, input resolution,
// agent invocation. Definition and execution errors are recorded as failed
// results, never raised.
func (e *Executor) runStep(ctx context.Context, step workflow.Step, ec *execContext) workflow.StepResult {
	if step.Condition != "" {
		cond := ec.interpolate(step.Condition)
		if cond != "true" {
			e.logger.Debug("flow.step.skipped", "step", step.ID, "condition", cond)
			return workflow.StepResult{
				Output:  fmt.Sprintf("Step %s skipped: condition evaluated to %q", step.ID, cond),
				Success: true,
				Skipped: true,
			}
		}
	}

	def, ok := e.agents.Get(step.Agent)
	if !ok {
		return workflow.StepResult{
			Agent:   step.Agent,
			Success: false,
			Error:   fmt.Sprintf("agent %q not found", step.Agent),
		}
	}

	instance, err := e.executor.CreateInstance(def)
	if err != nil {
		return workflow.StepResult{
			Agent:   step.Agent,
			Success: false,
			Error:   fmt.Sprintf("create agent instance: %v", err),
		}
	}

	input := ec.resolveInputs(step.Input)

	stepStart := time.Now()
	res, err := instance.Invoke(ctx, input)
	elapsed := time.Since(stepStart)

	if err != nil {
		e.logger.Warn("flow.step.failed", "step", step.ID, "agent", step.Agent, "error", err.Error())
		return workflow.StepResult{
			Agent:    step.Agent,
			Duration: elapsed,
			Success:  false,
			Error:    err.Error(),
		}
	}

	return workflow.StepResult{
		Output:   res.Output,
		Agent:    step.Agent,
		Duration: elapsed,
		Success:  true,
		Metadata: res.Metadata,
	}
}

func (e *Executor) emitStepSettled(sink workflow.Sink, stepID string, sr workflow.StepResult, current, total int, start time.Time) {
	ev := workflow.Event{
		Elapsed: time.Since(start).Milliseconds(),
		Step:    stepID,
		Current: current,
		Total:   total,
	}
	if sr.Success {
		ev.Type = workflow.EventStepComplete
		ev.Message = fmt.Sprintf("Step %s completed", stepID)
	} else {
		ev.Type = workflow.EventStepError
		ev.Message = fmt.Sprintf("Step %s failed: %s", stepID, sr.Error)
	}
	sink.Emit(ev)
}

// applyDefaults substitutes declared defaults for input fields the caller
// omitted. The caller's map is never mutated.
func applyDefaults(fields []workflow.InputField, input map[string]any) map[string]any {
	resolved := make(map[string]any, len(input))
	for k, v := range input {
		resolved[k] = v
	}
	for _, f := range fields {
		if f.Default == nil {
			continue
		}
		if _, ok := resolved[f.Name]; !ok {
			resolved[f.Name] = f.Default
		}
	}
	return resolved
}

func errorPolicy(def *workflow.Definition) workflow.ErrorPolicy {
	if def.OnError == "" {
		return workflow.OnErrorStop
	}
	return def.OnError
}

// countSteps counts agent steps, flattening parallel groups.
func countSteps(steps []workflow.Step) int {
	n := 0
	for _, s := range steps {
		if s.IsParallel() {
			n += len(s.Parallel)
		} else {
			n++
		}
	}
	return n
}
