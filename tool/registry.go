package tool

import (
	"context"
	"strings"
	"sync"

	"github.com/ddalcu/agent-orcha-sub003/logging"
)

// MCPProvider exposes the tools of connected MCP servers.
type MCPProvider interface {
	ServerNames() []string
	ToolsByServer(ctx context.Context, server string) ([]Tool, error)
}

// KnowledgeStore is one initialized knowledge store, serving its
// search-and-graph tools.
type KnowledgeStore interface {
	Tools() []Tool
}

// KnowledgeProvider resolves named knowledge store configurations.
type KnowledgeProvider interface {
	ListConfigs() []string
	Get(name string) (KnowledgeStore, bool)
	Initialize(ctx context.Context, name string) (KnowledgeStore, error)
}

// FunctionProvider serves user-supplied function tools.
type FunctionProvider interface {
	List() []Tool
	Get(name string) (Tool, bool)
}

// RegistryOptions configures a Registry. Every provider is optional; a
// reference into a missing provider resolves to no tools.
type RegistryOptions struct {
	MCP       MCPProvider
	Knowledge KnowledgeProvider
	Functions FunctionProvider
	Builtins  map[string]Tool
	Sandbox   map[string]Tool
	Project   map[string]Tool
	Logger    logging.Logger
}

// Registry resolves declarative tool references ("<source>:<name>" or a bare
// builtin name) into zero or more Tool instances. Resolution never fails the
// caller: unknown sources and names log a warning and yield no tools.
type Registry struct {
	mcp       MCPProvider
	knowledge KnowledgeProvider
	functions FunctionProvider
	builtins  map[string]Tool
	sandbox   map[string]Tool
	project   map[string]Tool
	logger    logging.Logger

	mu sync.Mutex // serializes lazy knowledge store initialization
}

// NewRegistry creates a Registry. The builtin set defaults to Builtins().
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{
		Builtins: Builtins(),
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		mcp:       opts.MCP,
		knowledge: opts.Knowledge,
		functions: opts.Functions,
		builtins:  opts.Builtins,
		sandbox:   opts.Sandbox,
		project:   opts.Project,
		logger:    opts.Logger,
	}
}

// Builtins returns the registry's builtin tool map.
func (r *Registry) Builtins() map[string]Tool { return r.builtins }

// Resolve dispatches a single reference on its source prefix. A bare name is
// treated as a builtin reference.
func (r *Registry) Resolve(ctx context.Context, ref string) []Tool {
	source, name := splitRef(ref)

	switch source {
	case "builtin":
		if t, ok := r.builtins[name]; ok {
			return []Tool{t}
		}
		r.logger.Warn("tool.resolve.unknown_builtin", "name", name)
	case "mcp":
		return r.resolveMCP(ctx, name)
	case "knowledge":
		return r.resolveKnowledge(ctx, name)
	case "function":
		if r.functions == nil {
			r.logger.Warn("tool.resolve.no_function_provider", "name", name)
			return nil
		}
		if t, ok := r.functions.Get(name); ok {
			return []Tool{t}
		}
		r.logger.Warn("tool.resolve.unknown_function", "name", name)
	case "sandbox":
		if t, ok := r.sandbox[name]; ok {
			return []Tool{t}
		}
		r.logger.Warn("tool.resolve.unknown_sandbox_tool", "name", name)
	case "project":
		if t, ok := r.project[name]; ok {
			return []Tool{t}
		}
		r.logger.Warn("tool.resolve.unknown_project_tool", "name", name)
	default:
		r.logger.Warn("tool.resolve.unknown_source", "source", source, "ref", ref)
	}
	return nil
}

// resolveMCP returns every tool of the named server.
func (r *Registry) resolveMCP(ctx context.Context, server string) []Tool {
	if r.mcp == nil {
		r.logger.Warn("tool.resolve.no_mcp_provider", "server", server)
		return nil
	}
	tools, err := r.mcp.ToolsByServer(ctx, server)
	if err != nil {
		r.logger.Warn("tool.resolve.mcp_error", "server", server, "error", err.Error())
		return nil
	}
	return tools
}

// resolveKnowledge returns the search-and-graph tools of the named store,
// initializing it first if it has not been loaded yet.
func (r *Registry) resolveKnowledge(ctx context.Context, name string) []Tool {
	if r.knowledge == nil {
		r.logger.Warn("tool.resolve.no_knowledge_provider", "store", name)
		return nil
	}

	r.mu.Lock()
	store, ok := r.knowledge.Get(name)
	if !ok {
		var err error
		store, err = r.knowledge.Initialize(ctx, name)
		if err != nil {
			r.mu.Unlock()
			r.logger.Warn("tool.resolve.knowledge_init_error", "store", name, "error", err.Error())
			return nil
		}
	}
	r.mu.Unlock()

	return store.Tools()
}

// splitRef splits "<source>:<name>" on the first colon; a bare name maps to
// the builtin source.
func splitRef(ref string) (source, name string) {
	if i := strings.Index(ref, ":"); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return "builtin", ref
}
