package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddalcu/agent-orcha-sub003/agent"
	"github.com/ddalcu/agent-orcha-sub003/config"
	"github.com/ddalcu/agent-orcha-sub003/logging"
	"github.com/ddalcu/agent-orcha-sub003/model"
	"github.com/ddalcu/agent-orcha-sub003/orchestrator"
	"github.com/ddalcu/agent-orcha-sub003/task"
	"github.com/ddalcu/agent-orcha-sub003/workflow"
)

func TestEngine_EndToEndWorkflowTask(t *testing.T) {
	agents := agent.NewStaticProvider(&agent.Definition{Name: "writer"})
	executor := agent.ExecutorFunc(func(def *agent.Definition) (agent.Instance, error) {
		return agent.InstanceFunc(func(_ context.Context, input map[string]any) (*agent.Result, error) {
			return &agent.Result{Output: "written"}, nil
		}), nil
	})

	e := New(func(o *Options) {
		o.Agents = agents
		o.AgentExecutor = executor
		o.Workflows = orchestrator.StaticWorkflows{
			"draft": {
				Name:   "draft",
				Type:   workflow.TypeSteps,
				Steps:  []workflow.Step{{ID: "w", Agent: "writer"}},
				Output: map[string]any{"text": "{{steps.w.output}}"},
			},
		}
		o.Logger = logging.NoOpLogger{}
	})
	defer e.Close()

	submitted := e.Tasks.SubmitWorkflow("draft", nil, nil)
	e.Tasks.Wait()

	done, ok := e.Store.Get(submitted.ID)
	require.True(t, ok)
	assert.Equal(t, task.StatusCompleted, done.Status)

	out, ok := done.Result.Output.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "written", out["text"])
}

func TestEngine_PauseAndRespondRoundTrip(t *testing.T) {
	models := model.NewRegistry()
	mock := model.NewMockChatModel("m",
		model.MockTurn{Response: model.ToolCallResponse("",
			model.ToolCall{ID: "c1", Name: "ask_user", Arguments: `{"question":"Which region?"}`})},
		model.MockTurn{Response: model.TextResponse("deployed to eu-west")},
	)
	models.Register("default", func() (model.ChatModel, error) { return mock, nil })

	e := New(func(o *Options) {
		o.Models = models
		o.Workflows = orchestrator.StaticWorkflows{
			"deploy": {
				Name: "deploy",
				Type: workflow.TypeReAct,
				ReAct: &workflow.ReActConfig{
					Goal:  "deploy the service",
					Model: "default",
					Tools: workflow.ToolDiscoveryConfig{Sources: []string{"builtin"}},
				},
			},
		}
		o.Logger = logging.NoOpLogger{}
	})
	defer e.Close()

	submitted := e.Tasks.SubmitWorkflow("deploy", nil, nil)
	e.Tasks.Wait()

	paused, _ := e.Store.Get(submitted.ID)
	require.Equal(t, task.StatusInputRequired, paused.Status)
	require.NotNil(t, paused.InputRequest)
	assert.Equal(t, "Which region?", paused.InputRequest.Question)

	// The pause is also visible through the interrupt manager.
	st, ok := e.Interrupts.Get(paused.InputRequest.ThreadID)
	require.True(t, ok)
	assert.Equal(t, "deploy", st.Workflow)

	resumed := e.Tasks.Respond(submitted.ID, "eu-west", nil)
	require.NotNil(t, resumed)
	e.Tasks.Wait()

	done, _ := e.Store.Get(submitted.ID)
	assert.Equal(t, task.StatusCompleted, done.Status)
	assert.Equal(t, "deployed to eu-west", done.Result.Output)
}

func TestEngine_BuildsComponentTaggedLogger(t *testing.T) {
	buf := &bytes.Buffer{}

	e := New(func(o *Options) {
		o.Log = &logging.LoggerConfig{Level: logging.LogLevelDebug, Format: "json", Output: buf}
	})
	e.Start()
	e.Close()

	var sawEngine bool
	dec := json.NewDecoder(buf)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		if entry["msg"] == "engine started" {
			sawEngine = true
			assert.Equal(t, "engine", entry["component"])
		}
	}
	assert.True(t, sawEngine)
}

func TestEngine_ConfigFlowsIntoComponents(t *testing.T) {
	cfg := config.Default()
	cfg.MaxTasks = 2
	cfg.CleanupInterval = config.Duration(time.Hour)

	e := New(func(o *Options) {
		o.Config = cfg
		o.Logger = logging.NoOpLogger{}
	})
	defer e.Close()

	e.Store.Create(task.KindAgent, "a", nil, "")
	e.Store.Create(task.KindAgent, "b", nil, "")
	e.Store.Create(task.KindAgent, "c", nil, "")
	assert.Equal(t, 2, e.Store.Len())
}
