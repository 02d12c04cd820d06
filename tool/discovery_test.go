package tool

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddalcu/agent-orcha-sub003/agent"
	"github.com/ddalcu/agent-orcha-sub003/logging"
	"github.com/ddalcu/agent-orcha-sub003/workflow"
)

// fakeMCP serves canned tools per server; a server can be scripted to fail.
type fakeMCP struct {
	servers map[string][]Tool
	failing map[string]bool
}

func (f *fakeMCP) ServerNames() []string {
	names := make([]string, 0, len(f.servers))
	for n := range f.servers {
		names = append(names, n)
	}
	return names
}

func (f *fakeMCP) ToolsByServer(_ context.Context, server string) ([]Tool, error) {
	if f.failing[server] {
		return nil, fmt.Errorf("server %s unreachable", server)
	}
	return f.servers[server], nil
}

var _ MCPProvider = (*fakeMCP)(nil)

type listFunctions struct{ tools []Tool }

func (l *listFunctions) List() []Tool { return l.tools }

func (l *listFunctions) Get(name string) (Tool, bool) {
	for _, t := range l.tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

func namedTool(name string) Tool {
	return NewFunctionTool(name, "test tool "+name,
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) { return name, nil },
	)
}

func names(tools map[string]Tool) []string {
	out := make([]string, 0, len(tools))
	for n := range tools {
		out = append(out, n)
	}
	return out
}

func newTestDiscovery(optFns ...func(o *RegistryOptions)) *Discovery {
	base := func(o *RegistryOptions) {
		o.Logger = logging.NoOpLogger{}
	}
	registry := NewRegistry(append([]func(o *RegistryOptions){base}, optFns...)...)
	return NewDiscovery(registry, func(o *DiscoveryOptions) {
		o.Logger = logging.NoOpLogger{}
	})
}

// -------------------- DiscoverTools --------------------

func TestDiscoverTools_DefaultSourcesIncludeBuiltins(t *testing.T) {
	d := newTestDiscovery()

	tools := d.DiscoverTools(context.Background(), workflow.ToolDiscoveryConfig{})
	assert.Contains(t, tools, "ask_user")
	assert.Contains(t, tools, "current_time")
	assert.Contains(t, tools, "echo")
}

func TestDiscoverTools_ModeNoneAlwaysEmpty(t *testing.T) {
	d := newTestDiscovery(func(o *RegistryOptions) {
		o.Functions = &listFunctions{tools: []Tool{namedTool("alpha")}}
	})

	tools := d.DiscoverTools(context.Background(), workflow.ToolDiscoveryConfig{
		Sources: []string{"function", "builtin"},
		Mode:    workflow.FilterNone,
	})
	assert.Empty(t, tools)
}

func TestDiscoverTools_IncludeMode(t *testing.T) {
	d := newTestDiscovery(func(o *RegistryOptions) {
		o.Functions = &listFunctions{tools: []Tool{namedTool("alpha"), namedTool("beta")}}
	})

	tools := d.DiscoverTools(context.Background(), workflow.ToolDiscoveryConfig{
		Sources: []string{"function"},
		Mode:    workflow.FilterInclude,
		Include: []string{"alpha"},
	})
	assert.ElementsMatch(t, []string{"alpha"}, names(tools))
}

func TestDiscoverTools_ExcludeMode(t *testing.T) {
	d := newTestDiscovery(func(o *RegistryOptions) {
		o.Functions = &listFunctions{tools: []Tool{namedTool("alpha"), namedTool("beta")}}
	})

	tools := d.DiscoverTools(context.Background(), workflow.ToolDiscoveryConfig{
		Sources: []string{"function"},
		Mode:    workflow.FilterExclude,
		Exclude: []string{"beta"},
	})
	assert.ElementsMatch(t, []string{"alpha"}, names(tools))
}

func TestDiscoverTools_AllModeWithExcludeList(t *testing.T) {
	d := newTestDiscovery(func(o *RegistryOptions) {
		o.Functions = &listFunctions{tools: []Tool{namedTool("alpha"), namedTool("beta")}}
	})

	tools := d.DiscoverTools(context.Background(), workflow.ToolDiscoveryConfig{
		Sources: []string{"function"},
		Mode:    workflow.FilterAll,
		Exclude: []string{"alpha"},
	})
	assert.ElementsMatch(t, []string{"beta"}, names(tools))
}

func TestDiscoverTools_SourceFailureIsIsolated(t *testing.T) {
	d := newTestDiscovery(func(o *RegistryOptions) {
		o.MCP = &fakeMCP{
			servers: map[string][]Tool{
				"good": {namedTool("from_good")},
				"bad":  {namedTool("from_bad")},
			},
			failing: map[string]bool{"bad": true},
		}
		o.Functions = &listFunctions{tools: []Tool{namedTool("fn")}}
	})

	tools := d.DiscoverTools(context.Background(), workflow.ToolDiscoveryConfig{
		Sources: []string{"mcp", "function"},
	})
	// The failing server contributes nothing and aborts nothing.
	assert.ElementsMatch(t, []string{"from_good", "fn"}, names(tools))
}

func TestDiscoverTools_UnknownSourceYieldsNothing(t *testing.T) {
	d := newTestDiscovery()

	tools := d.DiscoverTools(context.Background(), workflow.ToolDiscoveryConfig{
		Sources: []string{"bogus"},
	})
	assert.Empty(t, tools)
}

// -------------------- DiscoverAgents --------------------

func TestDiscoverAgents_WrapsAndFilters(t *testing.T) {
	provider := agent.NewStaticProvider(
		&agent.Definition{Name: "researcher", Description: "Finds sources"},
		&agent.Definition{Name: "writer"},
	)
	executor := agent.ExecutorFunc(func(def *agent.Definition) (agent.Instance, error) {
		return agent.InstanceFunc(func(_ context.Context, input map[string]any) (*agent.Result, error) {
			return &agent.Result{Output: "ran " + def.Name}, nil
		}), nil
	})

	registry := NewRegistry(func(o *RegistryOptions) { o.Logger = logging.NoOpLogger{} })
	d := NewDiscovery(registry, func(o *DiscoveryOptions) {
		o.Agents = provider
		o.AgentExecutor = executor
		o.Logger = logging.NoOpLogger{}
	})

	all := d.DiscoverAgents(context.Background(), workflow.AgentDiscoveryConfig{})
	assert.ElementsMatch(t, []string{"agent_researcher", "agent_writer"}, names(all))

	// Include lists match plain agent names.
	some := d.DiscoverAgents(context.Background(), workflow.AgentDiscoveryConfig{
		Mode:    workflow.FilterInclude,
		Include: []string{"researcher"},
	})
	require.Len(t, some, 1)

	out, err := some["agent_researcher"].Call(context.Background(), map[string]any{"input": "go"})
	require.NoError(t, err)
	assert.Equal(t, "ran researcher", out)
}

func TestDiscoverAgents_NoProviderIsEmpty(t *testing.T) {
	d := newTestDiscovery()
	assert.Empty(t, d.DiscoverAgents(context.Background(), workflow.AgentDiscoveryConfig{}))
}
