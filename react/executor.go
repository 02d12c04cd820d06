// Package react runs goal-driven workflows as an iterative reason-and-act
// loop: the model is invoked with the available tools bound, requested tool
// calls are executed in order, and their results are fed back until the model
// answers without calling tools or a cap is reached. A tool may pause the
// loop by returning an interrupt signal; the executor snapshots the thread
// and resumes it later with the user's answer.
package react

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/ddalcu/agent-orcha-sub003/internal/util"
	"github.com/ddalcu/agent-orcha-sub003/interrupt"
	"github.com/ddalcu/agent-orcha-sub003/logging"
	"github.com/ddalcu/agent-orcha-sub003/model"
	"github.com/ddalcu/agent-orcha-sub003/tool"
	"github.com/ddalcu/agent-orcha-sub003/workflow"
)

const (
	// DefaultMaxIterations is the engine-wide hard cap on loop turns.
	DefaultMaxIterations = 200

	// DefaultWorkflowIterations applies when a definition sets no cap.
	DefaultWorkflowIterations = 10

	// lastMessageTemplate is the only productive output template form; it
	// selects the final assistant message. Anything else passes through as
	// a literal.
	lastMessageTemplate = "{{messages.last.content}}"

	// finalAnswerPrompt is appended in single-turn mode once the first
	// round of tools has run, steering the model to answer directly.
	finalAnswerPrompt = "All tool results are available above. Produce a final answer now. Do not request any more tool calls."
)

var goalRe = regexp.MustCompile(`\{\{\s*input\.([^{}\s]+)\s*\}\}`)

// Options configures the ReAct executor.
type Options struct {
	// MaxIterations is the hard ceiling no workflow may exceed.
	MaxIterations int

	// DefaultIterations is used when a definition leaves its cap unset.
	DefaultIterations int

	// MaxDuration bounds the wall-clock time of a run segment when the
	// definition sets no bound of its own; a definition bound is clamped to
	// it. Zero means unbounded.
	MaxDuration time.Duration

	// Logger receives loop diagnostics.
	Logger logging.Logger
}

// Executor drives ReAct workflows.
type Executor struct {
	discovery         *tool.Discovery
	interrupts        *interrupt.Manager
	models            model.Factory
	threads           *threadStore
	maxIterations     int
	defaultIterations int
	maxDuration       time.Duration
	logger            logging.Logger
}

// NewExecutor creates a ReAct executor over the given tool discovery,
// interrupt manager and model factory.
func NewExecutor(discovery *tool.Discovery, interrupts *interrupt.Manager, models model.Factory, optFns ...func(o *Options)) *Executor {
	opts := Options{
		MaxIterations:     DefaultMaxIterations,
		DefaultIterations: DefaultWorkflowIterations,
		Logger:            logging.NewDefaultSlogLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.DefaultIterations <= 0 {
		opts.DefaultIterations = DefaultWorkflowIterations
	}
	return &Executor{
		discovery:         discovery,
		interrupts:        interrupts,
		models:            models,
		threads:           newThreadStore(),
		maxIterations:     opts.MaxIterations,
		defaultIterations: opts.DefaultIterations,
		maxDuration:       opts.MaxDuration,
		logger:            opts.Logger,
	}
}

// Result is the outcome of one ReAct run or resume.
type Result struct {
	// Output is the extracted final output. Empty when Interrupted.
	Output string

	// Interrupted reports that the run paused waiting for user input.
	Interrupted bool

	// Question is the pending question when Interrupted.
	Question string

	// ThreadID identifies the paused thread for ResumeWithAnswer. It is
	// assigned on every run and stable across pause and resume.
	ThreadID string

	// Iterations is the number of model turns taken.
	Iterations int

	// Duration is the wall-clock time of this run segment.
	Duration time.Duration
}

// Execute runs a ReAct workflow definition to completion or interruption.
func (e *Executor) Execute(ctx context.Context, def *workflow.Definition, input map[string]any, sink workflow.Sink) (*Result, error) {
	cfg := def.ReAct
	if cfg == nil {
		return nil, fmt.Errorf("workflow %s has no react configuration", def.Name)
	}

	chatModel, err := e.models.Create(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("create model for workflow %s: %w", def.Name, err)
	}

	tools := e.discoverAll(ctx, cfg)
	goal := interpolateGoal(cfg.Goal, input)

	messages := make([]model.Message, 0, 2)
	if cfg.SystemPrompt != "" {
		messages = append(messages, model.SystemMessage(cfg.SystemPrompt))
	}
	messages = append(messages, model.UserMessage(goal))

	threadID := util.NewID()

	start := time.Now()
	sink.Emit(workflow.Event{
		Type:    workflow.EventWorkflowStart,
		Message: fmt.Sprintf("Starting workflow: %s", def.Name),
	})

	return e.runLoop(ctx, def, cfg, chatModel, tools, messages, threadID, sink, false, start)
}

// ResumeWithAnswer resumes a paused thread, feeding the user's answer back as
// the result of the tool call that triggered the interrupt. The interrupt
// record is marked resolved before the loop restarts.
func (e *Executor) ResumeWithAnswer(ctx context.Context, threadID, answer string, sink workflow.Sink) (*Result, error) {
	snap, ok := e.threads.get(threadID)
	if !ok {
		return nil, fmt.Errorf("no paused thread %s", threadID)
	}
	cfg := snap.definition.ReAct

	chatModel, err := e.models.Create(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("create model for workflow %s: %w", snap.definition.Name, err)
	}

	tools := e.discoverAll(ctx, cfg)

	messages := snap.messages
	if snap.pendingCallID != "" {
		messages = append(messages, model.ToolMessage(snap.pendingCallID, snap.pendingCallName, answer))
	} else {
		messages = append(messages, model.UserMessage(answer))
	}

	e.interrupts.Resolve(threadID, answer)

	// A resumed thread has by definition already executed tools.
	return e.runLoop(ctx, snap.definition, cfg, chatModel, tools, messages, threadID, sink, true, time.Now())
}

// HasThread reports whether a paused thread exists for the given id.
func (e *Executor) HasThread(threadID string) bool {
	_, ok := e.threads.get(threadID)
	return ok
}

// runLoop is the shared reason-and-act loop behind Execute and resume.
// toolsExecuted carries across resumes so single-turn workflows never run a
// second round of tools.
func (e *Executor) runLoop(ctx context.Context, def *workflow.Definition, cfg *workflow.ReActConfig, chatModel model.ChatModel, tools map[string]tool.Tool, messages []model.Message, threadID string, sink workflow.Sink, toolsExecuted bool, start time.Time) (*Result, error) {
	limit := e.iterationLimit(cfg)
	maxDur := e.durationLimit(cfg)
	defs := toolDefinitions(tools)
	singleTurn := cfg.Mode == workflow.ModeSingleTurn
	finalPromptAdded := false
	iterations := 0

	logger := e.logger
	logger.Debug("react loop starting", "workflow", def.Name, "thread", threadID, "tools", len(defs), "limit", limit)

	for i := 0; i < limit; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if maxDur > 0 && time.Since(start) > maxDur {
			logger.Warn("react loop exceeded max duration", "workflow", def.Name, "elapsed", time.Since(start))
			break
		}

		m := chatModel
		if !singleTurn || !toolsExecuted {
			m = chatModel.BindTools(defs)
		} else if !finalPromptAdded {
			messages = append(messages, model.SystemMessage(finalAnswerPrompt))
			finalPromptAdded = true
		}

		resp, err := m.Invoke(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("model invocation failed: %w", err)
		}
		iterations++
		messages = append(messages, resp.Message)

		calls := resp.Message.ToolCalls
		if len(calls) == 0 {
			break
		}
		if singleTurn && toolsExecuted {
			// One round of tools is the budget; further requests are
			// ignored and the transcript stands as the answer.
			logger.Debug("single-turn workflow requested more tools, stopping", "workflow", def.Name)
			break
		}

		for _, call := range calls {
			out, callErr := e.executeCall(ctx, tools, call)

			var sig *interrupt.Signal
			if errors.As(callErr, &sig) {
				e.threads.save(threadID, snapshot{
					definition:      def,
					messages:        messages,
					pendingCallID:   call.ID,
					pendingCallName: call.Name,
				})
				state := e.interrupts.Add(threadID, def.Name, sig.Question)
				sink.Emit(workflow.Event{
					Type:    workflow.EventInterrupt,
					Message: sig.Question,
					Elapsed: time.Since(start).Milliseconds(),
					Interrupt: &workflow.InterruptInfo{
						ThreadID:  threadID,
						Question:  sig.Question,
						Timestamp: state.CreatedAt,
					},
				})
				logger.Info("workflow interrupted", "workflow", def.Name, "thread", threadID, "question", sig.Question)
				return &Result{
					Interrupted: true,
					Question:    sig.Question,
					ThreadID:    threadID,
					Iterations:  iterations,
					Duration:    time.Since(start),
				}, nil
			}

			if callErr != nil {
				out = "Error: " + callErr.Error()
			}
			messages = append(messages, model.ToolMessage(call.ID, call.Name, out))
		}
		toolsExecuted = true
	}

	output := extractOutput(cfg.Output, messages)

	// Completed threads are discarded along with any stale interrupt.
	e.threads.remove(threadID)
	e.interrupts.Remove(threadID)

	sink.Emit(workflow.Event{
		Type:    workflow.EventWorkflowComplete,
		Message: fmt.Sprintf("Workflow complete: %s", def.Name),
		Elapsed: time.Since(start).Milliseconds(),
	})
	logger.Debug("react loop finished", "workflow", def.Name, "iterations", iterations)

	return &Result{
		Output:     output,
		ThreadID:   threadID,
		Iterations: iterations,
		Duration:   time.Since(start),
	}, nil
}

// executeCall runs one requested tool call. An unknown tool or bad arguments
// produce an error result for the transcript rather than aborting the loop.
func (e *Executor) executeCall(ctx context.Context, tools map[string]tool.Tool, call model.ToolCall) (string, error) {
	tl, ok := tools[call.Name]
	if !ok {
		return "", fmt.Errorf("tool %q is not available", call.Name)
	}

	args := make(map[string]any)
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return "", fmt.Errorf("invalid arguments for tool %q: %w", call.Name, err)
		}
	}

	e.logger.Debug("executing tool", "tool", call.Name)
	return tl.Call(ctx, args)
}

// discoverAll merges discovered tools and agent-wrapped tools into one
// callable set. Agents win name collisions since their names carry the
// agent_ prefix and cannot clash in practice.
func (e *Executor) discoverAll(ctx context.Context, cfg *workflow.ReActConfig) map[string]tool.Tool {
	merged := make(map[string]tool.Tool)
	for name, tl := range e.discovery.DiscoverTools(ctx, cfg.Tools) {
		merged[name] = tl
	}
	for name, tl := range e.discovery.DiscoverAgents(ctx, cfg.Agents) {
		merged[name] = tl
	}
	return merged
}

// iterationLimit resolves the effective cap: the definition's value when set,
// the default otherwise, never above the engine maximum.
func (e *Executor) iterationLimit(cfg *workflow.ReActConfig) int {
	limit := cfg.MaxIterations
	if limit <= 0 {
		limit = e.defaultIterations
	}
	if limit > e.maxIterations {
		limit = e.maxIterations
	}
	return limit
}

// durationLimit resolves the effective wall-clock bound: the definition's
// value when set, the engine-wide value otherwise, never above the engine
// bound. Zero means unbounded.
func (e *Executor) durationLimit(cfg *workflow.ReActConfig) time.Duration {
	limit := cfg.MaxDuration
	if limit <= 0 {
		return e.maxDuration
	}
	if e.maxDuration > 0 && limit > e.maxDuration {
		limit = e.maxDuration
	}
	return limit
}

// toolDefinitions converts the tool set into model bindings, sorted by name
// so binding order is deterministic.
func toolDefinitions(tools map[string]tool.Tool) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, tl := range tools {
		defs = append(defs, model.ToolDefinition{
			Name:        tl.Name(),
			Description: tl.Description(),
			Parameters:  tl.Parameters(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// interpolateGoal substitutes {{input.<field>}} placeholders in a single
// pass. Unknown fields resolve to the empty string.
func interpolateGoal(goal string, input map[string]any) string {
	return goalRe.ReplaceAllStringFunc(goal, func(match string) string {
		sub := goalRe.FindStringSubmatch(match)
		if len(sub) != 2 {
			return ""
		}
		v, ok := input[sub[1]]
		if !ok || v == nil {
			return ""
		}
		if s, isStr := v.(string); isStr {
			return s
		}
		return fmt.Sprintf("%v", v)
	})
}

// extractOutput maps the output template onto the transcript. Only the
// last-message form is productive; other templates are returned verbatim.
// The scan skips trailing tool results so a run stopped at the iteration cap
// right after a tool round still yields the last assistant content.
func extractOutput(tmpl string, messages []model.Message) string {
	if tmpl == "" || tmpl == lastMessageTemplate {
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i].Role == model.RoleAssistant {
				return messages[i].Content
			}
		}
		return ""
	}
	return tmpl
}
