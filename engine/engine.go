// Package engine assembles the orchestration core from its parts: model
// registry, tool registry and discovery, the two workflow executors, the
// interrupt manager and the task layer, all tuned by one config.Engine. It is
// the single entry point an embedding application needs.
package engine

import (
	"github.com/ddalcu/agent-orcha-sub003/agent"
	"github.com/ddalcu/agent-orcha-sub003/config"
	"github.com/ddalcu/agent-orcha-sub003/flow"
	"github.com/ddalcu/agent-orcha-sub003/interrupt"
	"github.com/ddalcu/agent-orcha-sub003/logging"
	"github.com/ddalcu/agent-orcha-sub003/model"
	"github.com/ddalcu/agent-orcha-sub003/orchestrator"
	"github.com/ddalcu/agent-orcha-sub003/react"
	"github.com/ddalcu/agent-orcha-sub003/task"
	"github.com/ddalcu/agent-orcha-sub003/tool"
)

// Options configures an Engine. Every service dependency is optional; the
// defaults are empty in-memory implementations suitable for development and
// tests.
type Options struct {
	// Config tunes task retention, interrupt expiry and iteration caps.
	// Defaults to config.Default().
	Config config.Engine

	// Workflows resolves workflow names. Defaults to an empty static set.
	Workflows orchestrator.WorkflowProvider

	// Agents resolves agent names. Defaults to an empty static provider.
	Agents agent.Provider

	// AgentExecutor turns agent definitions into runnable instances.
	AgentExecutor agent.Executor

	// Models resolves model configuration names. Defaults to an empty
	// registry; ReAct workflows then fail at model creation.
	Models model.Factory

	// MCP exposes connected MCP servers to tool discovery.
	MCP tool.MCPProvider

	// Knowledge exposes knowledge stores to tool discovery.
	Knowledge tool.KnowledgeProvider

	// Functions exposes user function tools to tool discovery.
	Functions tool.FunctionProvider

	// Log configures the engine-built structured logger. Ignored when
	// Logger is set.
	Log *logging.LoggerConfig

	// Logger receives structured diagnostics from every component. When
	// nil, an EngineLogger is built from Log and every component gets a
	// child logger tagged with its component name.
	Logger logging.Logger
}

// Engine is the assembled orchestration core.
type Engine struct {
	Orchestrator *orchestrator.Orchestrator
	Tasks        *task.Manager
	Store        *task.Store
	Interrupts   *interrupt.Manager
	Registry     *tool.Registry
	Discovery    *tool.Discovery

	logger logging.Logger
}

// New wires an Engine from the given options.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:    config.Default(),
		Workflows: orchestrator.StaticWorkflows{},
		Agents:    agent.NewStaticProvider(),
		Models:    model.NewRegistry(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(opts.Log)
	}
	component := func(name string) logging.Logger {
		if el, ok := logger.(*logging.EngineLogger); ok {
			return el.WithComponent(name)
		}
		return logger
	}

	interrupts := interrupt.NewManager(func(o *interrupt.ManagerOptions) {
		o.TTL = cfg.InterruptTTL.Std()
		o.Logger = component("interrupts")
	})

	registry := tool.NewRegistry(func(o *tool.RegistryOptions) {
		o.MCP = opts.MCP
		o.Knowledge = opts.Knowledge
		o.Functions = opts.Functions
		o.Logger = component("tools")
	})

	discovery := tool.NewDiscovery(registry, func(o *tool.DiscoveryOptions) {
		o.Agents = opts.Agents
		o.AgentExecutor = opts.AgentExecutor
		o.Logger = component("discovery")
	})

	steps := flow.NewExecutor(opts.Agents, opts.AgentExecutor, func(o *flow.Options) {
		o.Logger = component("flow")
	})

	reactExec := react.NewExecutor(discovery, interrupts, opts.Models, func(o *react.Options) {
		o.MaxIterations = cfg.ReAct.MaxIterations
		o.DefaultIterations = cfg.ReAct.DefaultWorkflowIterations
		o.MaxDuration = cfg.ReAct.MaxDuration.Std()
		o.Logger = component("react")
	})

	orch := orchestrator.New(opts.Workflows, opts.Agents, opts.AgentExecutor, steps, reactExec, func(o *orchestrator.Options) {
		o.Logger = component("orchestrator")
	})

	store := task.NewStore(func(o *task.StoreOptions) {
		o.MaxTasks = cfg.MaxTasks
		o.TTL = cfg.TaskTTL.Std()
		o.CleanupInterval = cfg.CleanupInterval.Std()
		o.Logger = component("tasks")
	})

	tasks := task.NewManager(store, orch, func(o *task.ManagerOptions) {
		o.Logger = component("tasks")
	})

	return &Engine{
		Orchestrator: orch,
		Tasks:        tasks,
		Store:        store,
		Interrupts:   interrupts,
		Registry:     registry,
		Discovery:    discovery,
		logger:       component("engine"),
	}
}

// Start launches background maintenance, currently the task store's periodic
// cleanup sweep.
func (e *Engine) Start() {
	e.Store.Start()
	e.logger.Info("engine started")
}

// Close stops background maintenance and waits for in-flight task runs to
// settle.
func (e *Engine) Close() {
	e.Tasks.Wait()
	e.Store.Close()
	e.logger.Info("engine stopped")
}
