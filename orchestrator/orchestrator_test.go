package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddalcu/agent-orcha-sub003/agent"
	"github.com/ddalcu/agent-orcha-sub003/flow"
	"github.com/ddalcu/agent-orcha-sub003/interrupt"
	"github.com/ddalcu/agent-orcha-sub003/logging"
	"github.com/ddalcu/agent-orcha-sub003/model"
	"github.com/ddalcu/agent-orcha-sub003/react"
	"github.com/ddalcu/agent-orcha-sub003/tool"
	"github.com/ddalcu/agent-orcha-sub003/workflow"
)

func newTestOrchestrator(t *testing.T, workflows StaticWorkflows, mock *model.MockChatModel) *Orchestrator {
	t.Helper()

	agents := agent.NewStaticProvider(
		&agent.Definition{Name: "researcher"},
		&agent.Definition{Name: "asker"},
	)
	executor := agent.ExecutorFunc(func(def *agent.Definition) (agent.Instance, error) {
		return agent.InstanceFunc(func(ctx context.Context, input map[string]any) (*agent.Result, error) {
			meta := map[string]any{"agent": def.Name}
			if session, ok := agent.Session(ctx); ok {
				meta["session"] = session
			}
			return &agent.Result{
				Output:   "done by " + def.Name,
				Metadata: meta,
			}, nil
		}), nil
	})

	registry := tool.NewRegistry(func(o *tool.RegistryOptions) {
		o.Logger = logging.NoOpLogger{}
	})
	discovery := tool.NewDiscovery(registry, func(o *tool.DiscoveryOptions) {
		o.Logger = logging.NoOpLogger{}
	})

	steps := flow.NewExecutor(agents, executor, func(o *flow.Options) {
		o.Logger = logging.NoOpLogger{}
	})

	factory := model.FactoryFunc(func(string) (model.ChatModel, error) {
		return mock, nil
	})
	reactExec := react.NewExecutor(discovery, interrupt.NewManager(), factory, func(o *react.Options) {
		o.Logger = logging.NoOpLogger{}
	})

	return New(workflows, agents, executor, steps, reactExec, func(o *Options) {
		o.Logger = logging.NoOpLogger{}
	})
}

func TestRunAgent(t *testing.T) {
	o := newTestOrchestrator(t, StaticWorkflows{}, model.NewMockChatModel("m"))

	res, err := o.RunAgent(context.Background(), "researcher", map[string]any{"topic": "x"}, "")
	require.NoError(t, err)
	assert.Equal(t, "done by researcher", res.Output)
	assert.Equal(t, "researcher", res.Metadata["agent"])

	_, err = o.RunAgent(context.Background(), "ghost", nil, "")
	assert.Error(t, err)
}

func TestRunAgent_SessionReachesInstance(t *testing.T) {
	o := newTestOrchestrator(t, StaticWorkflows{}, model.NewMockChatModel("m"))

	res, err := o.RunAgent(context.Background(), "researcher", nil, "sess-7")
	require.NoError(t, err)
	assert.Equal(t, "sess-7", res.Metadata["session"])

	// No session id means the instance sees none.
	res, err = o.RunAgent(context.Background(), "researcher", nil, "")
	require.NoError(t, err)
	assert.NotContains(t, res.Metadata, "session")
}

func TestRunWorkflow_UnknownName(t *testing.T) {
	o := newTestOrchestrator(t, StaticWorkflows{}, model.NewMockChatModel("m"))
	_, err := o.RunWorkflow(context.Background(), "missing", nil, nil)
	assert.Error(t, err)
}

func TestRunWorkflow_RequiredInput(t *testing.T) {
	workflows := StaticWorkflows{
		"steps": {
			Name: "steps",
			Type: workflow.TypeSteps,
			Input: []workflow.InputField{
				{Name: "topic", Required: true},
				{Name: "lang", Required: true, Default: "en"},
			},
			Steps: []workflow.Step{{ID: "s", Agent: "researcher"}},
		},
	}
	o := newTestOrchestrator(t, workflows, model.NewMockChatModel("m"))

	_, err := o.RunWorkflow(context.Background(), "steps", map[string]any{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic")

	// A required field with a default never blocks the run.
	_, err = o.RunWorkflow(context.Background(), "steps", map[string]any{"topic": "x"}, nil)
	assert.NoError(t, err)
}

func TestRunWorkflow_StepsResult(t *testing.T) {
	workflows := StaticWorkflows{
		"publish": {
			Name:   "publish",
			Type:   workflow.TypeSteps,
			Steps:  []workflow.Step{{ID: "s", Agent: "researcher"}},
			Output: map[string]any{"body": "{{steps.s.output}}"},
		},
	}
	o := newTestOrchestrator(t, workflows, model.NewMockChatModel("m"))

	res, err := o.RunWorkflow(context.Background(), "publish", nil, nil)
	require.NoError(t, err)

	out, ok := res.Output.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "done by researcher", out["body"])
	assert.Equal(t, 1, res.Metadata["stepsExecuted"])
	assert.Equal(t, true, res.Metadata["success"])
	assert.Contains(t, res.StepResults, "s")

	_, _, paused := res.Interrupted()
	assert.False(t, paused)
}

func TestRunWorkflow_ReActInterruptAndResume(t *testing.T) {
	workflows := StaticWorkflows{
		"triage": {
			Name: "triage",
			Type: workflow.TypeReAct,
			ReAct: &workflow.ReActConfig{
				Goal:  "sort this out",
				Model: "default",
				Tools: workflow.ToolDiscoveryConfig{Sources: []string{"builtin"}},
			},
		},
	}
	mock := model.NewMockChatModel("m",
		model.MockTurn{Response: model.ToolCallResponse("",
			model.ToolCall{ID: "c1", Name: "ask_user", Arguments: `{"question":"Q?"}`})},
		model.MockTurn{Response: model.TextResponse("sorted")},
	)
	o := newTestOrchestrator(t, workflows, mock)

	res, err := o.RunWorkflow(context.Background(), "triage", nil, nil)
	require.NoError(t, err)

	question, threadID, paused := res.Interrupted()
	require.True(t, paused)
	assert.Equal(t, "Q?", question)
	require.NotEmpty(t, threadID)

	resumed, err := o.ResumeWorkflow(context.Background(), threadID, "option A", nil)
	require.NoError(t, err)
	_, _, stillPaused := resumed.Interrupted()
	assert.False(t, stillPaused)
	assert.Equal(t, "sorted", resumed.Output)
}

func TestRunWorkflow_UnknownType(t *testing.T) {
	workflows := StaticWorkflows{
		"odd": {Name: "odd", Type: "mystery"},
	}
	o := newTestOrchestrator(t, workflows, model.NewMockChatModel("m"))
	_, err := o.RunWorkflow(context.Background(), "odd", nil, nil)
	assert.Error(t, err)
}
