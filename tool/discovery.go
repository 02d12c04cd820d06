package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ddalcu/agent-orcha-sub003/agent"
	"github.com/ddalcu/agent-orcha-sub003/logging"
	"github.com/ddalcu/agent-orcha-sub003/workflow"
)

// defaultSources is the full source set consulted when a discovery config
// names none.
var defaultSources = []string{"mcp", "knowledge", "function", "builtin"}

// DiscoveryOptions configures a Discovery.
type DiscoveryOptions struct {
	Agents        agent.Provider
	AgentExecutor agent.Executor
	Logger        logging.Logger
}

// Discovery performs bulk tool and agent discovery for ReAct workflows. It
// gathers every available tool from the configured sources, then applies one
// filter pass. Failures discovering from any single source are isolated:
// logged, skipped, and never abort discovery from the remaining sources.
type Discovery struct {
	registry      *Registry
	agents        agent.Provider
	agentExecutor agent.Executor
	logger        logging.Logger
}

// NewDiscovery creates a Discovery over the given registry.
func NewDiscovery(registry *Registry, optFns ...func(o *DiscoveryOptions)) *Discovery {
	opts := DiscoveryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Discovery{
		registry:      registry,
		agents:        opts.Agents,
		agentExecutor: opts.AgentExecutor,
		logger:        opts.Logger,
	}
}

// DiscoverTools gathers every tool from each configured source and filters
// the concatenated set according to the config mode. The returned map is
// keyed by tool name; later sources win name collisions.
func (d *Discovery) DiscoverTools(ctx context.Context, cfg workflow.ToolDiscoveryConfig) map[string]Tool {
	sources := cfg.Sources
	if len(sources) == 0 {
		sources = defaultSources
	}

	gathered := map[string]Tool{}
	for _, source := range sources {
		for _, t := range d.gather(ctx, source) {
			gathered[t.Name()] = t
		}
	}

	filtered := filterByName(gathered, cfg.Mode, cfg.Include, cfg.Exclude)

	d.logger.Debug("discovery.tools", "gathered", len(gathered), "filtered", len(filtered), "mode", string(cfg.Mode))

	return filtered
}

// gather collects every available tool from one source, isolating failures.
func (d *Discovery) gather(ctx context.Context, source string) []Tool {
	var out []Tool
	switch source {
	case "mcp":
		if d.registry.mcp == nil {
			return nil
		}
		for _, server := range d.registry.mcp.ServerNames() {
			tools, err := d.registry.mcp.ToolsByServer(ctx, server)
			if err != nil {
				d.logger.Warn("discovery.mcp_server_failed", "server", server, "error", err.Error())
				continue
			}
			out = append(out, tools...)
		}
	case "knowledge":
		if d.registry.knowledge == nil {
			return nil
		}
		for _, name := range d.registry.knowledge.ListConfigs() {
			out = append(out, d.registry.resolveKnowledge(ctx, name)...)
		}
	case "function":
		if d.registry.functions == nil {
			return nil
		}
		out = append(out, d.registry.functions.List()...)
	case "builtin":
		for _, t := range d.registry.builtins {
			out = append(out, t)
		}
	default:
		d.logger.Warn("discovery.unknown_source", "source", source)
	}
	return out
}

// DiscoverAgents returns the provider's agents wrapped as callable
// agent_<name> tools, filtered identically to tool discovery. It never
// touches the tool sources.
func (d *Discovery) DiscoverAgents(ctx context.Context, cfg workflow.AgentDiscoveryConfig) map[string]Tool {
	_ = ctx
	if d.agents == nil || d.agentExecutor == nil {
		return map[string]Tool{}
	}

	wrapped := map[string]Tool{}
	for _, name := range d.agents.Names() {
		def, ok := d.agents.Get(name)
		if !ok {
			continue
		}
		t := newAgentTool(def, d.agentExecutor)
		wrapped[t.Name()] = t
	}

	return filterByName(wrapped, cfg.Mode, cfg.Include, cfg.Exclude)
}

// filterByName applies one filter pass to a gathered set. Include/exclude
// lists match both the tool name and its agent_-stripped form so agent
// filters can be written against plain agent names.
func filterByName(tools map[string]Tool, mode workflow.FilterMode, include, exclude []string) map[string]Tool {
	switch mode {
	case workflow.FilterNone:
		return map[string]Tool{}
	case workflow.FilterInclude:
		keep := toSet(include)
		out := map[string]Tool{}
		for name, t := range tools {
			if keep[name] || keep[trimAgentPrefix(name)] {
				out[name] = t
			}
		}
		return out
	case workflow.FilterExclude:
		drop := toSet(exclude)
		out := map[string]Tool{}
		for name, t := range tools {
			if drop[name] || drop[trimAgentPrefix(name)] {
				continue
			}
			out[name] = t
		}
		return out
	default: // FilterAll or unset: everything, optionally minus an exclude list
		if len(exclude) == 0 {
			return tools
		}
		drop := toSet(exclude)
		out := map[string]Tool{}
		for name, t := range tools {
			if drop[name] || drop[trimAgentPrefix(name)] {
				continue
			}
			out[name] = t
		}
		return out
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func trimAgentPrefix(name string) string {
	const prefix = "agent_"
	if len(name) > len(prefix) && name[:len(prefix)] == prefix {
		return name[len(prefix):]
	}
	return name
}

// agentTool exposes a platform agent as a callable tool named agent_<name>.
type agentTool struct {
	def      *agent.Definition
	executor agent.Executor
}

func newAgentTool(def *agent.Definition, executor agent.Executor) *agentTool {
	return &agentTool{def: def, executor: executor}
}

func (t *agentTool) Name() string { return "agent_" + t.def.Name }

func (t *agentTool) Description() string {
	if t.def.Description != "" {
		return fmt.Sprintf("Invoke the %s agent. %s", t.def.Name, t.def.Description)
	}
	return fmt.Sprintf("Invoke the %s agent with an input payload.", t.def.Name)
}

func (t *agentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{
				"type":        "string",
				"description": "The task or question to hand to the agent",
			},
		},
		"required": []string{"input"},
	}
}

func (t *agentTool) Call(ctx context.Context, args map[string]any) (string, error) {
	instance, err := t.executor.CreateInstance(t.def)
	if err != nil {
		return "", fmt.Errorf("create agent instance %s: %w", t.def.Name, err)
	}
	res, err := instance.Invoke(ctx, args)
	if err != nil {
		return "", err
	}
	if s, ok := res.Output.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(res.Output)
	if err != nil {
		return fmt.Sprintf("%v", res.Output), nil
	}
	return string(b), nil
}
