// Package mcp adapts connected Model Context Protocol client sessions to the
// tool.MCPProvider interface, exposing every tool of every configured server
// in the engine's uniform tool form.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ddalcu/agent-orcha-sub003/logging"
	"github.com/ddalcu/agent-orcha-sub003/tool"
)

// defaultCacheTTL bounds how long a server's tool list is reused before being
// fetched again. Tools are constructed fresh on each discovery pass beyond
// this window.
const defaultCacheTTL = 30 * time.Second

// ProviderOptions configures a Provider.
type ProviderOptions struct {
	CacheTTL time.Duration
	Logger   logging.Logger
}

// Provider implements tool.MCPProvider over a fixed map of named client
// sessions. List results are cached per server for a short window so a burst
// of discovery passes does not hammer the servers.
type Provider struct {
	sessions map[string]*sdk.ClientSession
	cacheTTL time.Duration
	logger   logging.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	tools []tool.Tool
	at    time.Time
}

// NewProvider wraps already-connected sessions keyed by server name.
func NewProvider(sessions map[string]*sdk.ClientSession, optFns ...func(o *ProviderOptions)) *Provider {
	opts := ProviderOptions{
		CacheTTL: defaultCacheTTL,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{
		sessions: sessions,
		cacheTTL: opts.CacheTTL,
		logger:   opts.Logger,
		cache:    make(map[string]cacheEntry),
	}
}

// ServerNames implements tool.MCPProvider; names are sorted for stable iteration.
func (p *Provider) ServerNames() []string {
	names := make([]string, 0, len(p.sessions))
	for n := range p.sessions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ToolsByServer implements tool.MCPProvider.
func (p *Provider) ToolsByServer(ctx context.Context, server string) ([]tool.Tool, error) {
	session, ok := p.sessions[server]
	if !ok {
		return nil, fmt.Errorf("unknown mcp server %q", server)
	}

	p.mu.Lock()
	entry, ok := p.cache[server]
	p.mu.Unlock()
	if ok && time.Since(entry.at) < p.cacheTTL {
		return entry.tools, nil
	}

	res, err := session.ListTools(ctx, &sdk.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("list tools on %s: %w", server, err)
	}

	tools := make([]tool.Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		tools = append(tools, &serverTool{
			session:     session,
			server:      server,
			name:        t.Name,
			description: t.Description,
			schema:      schemaToMap(t.InputSchema),
			logger:      p.logger,
		})
	}

	p.mu.Lock()
	p.cache[server] = cacheEntry{tools: tools, at: time.Now()}
	p.mu.Unlock()

	p.logger.Debug("mcp.tools.listed", "server", server, "count", len(tools))

	return tools, nil
}

// schemaToMap converts the SDK's schema representation into the plain map
// form the rest of the engine expects. A nil or unmarshalable schema degrades
// to an open object schema.
func schemaToMap(schema any) map[string]any {
	fallback := map[string]any{"type": "object", "properties": map[string]any{}}
	if schema == nil {
		return fallback
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return fallback
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return fallback
	}
	return out
}

// serverTool is one remote MCP tool bound to its session.
type serverTool struct {
	session     *sdk.ClientSession
	server      string
	name        string
	description string
	schema      map[string]any
	logger      logging.Logger
}

func (t *serverTool) Name() string { return t.name }

func (t *serverTool) Description() string { return t.description }

func (t *serverTool) Parameters() map[string]any { return t.schema }

// Call invokes the remote tool and flattens its text content blocks into a
// single string result.
func (t *serverTool) Call(ctx context.Context, args map[string]any) (string, error) {
	start := time.Now()
	res, err := t.session.CallTool(ctx, &sdk.CallToolParams{Name: t.name, Arguments: args})
	if err != nil {
		t.logger.Warn("mcp.tool.call_failed", "server", t.server, "tool", t.name, "error", err.Error())
		return "", tool.NewToolError(t.name, err.Error(), "EXECUTION_ERROR")
	}

	text := flattenContent(res.Content)
	if res.IsError {
		return "", tool.NewToolError(t.name, text, "EXECUTION_ERROR")
	}

	t.logger.Debug("mcp.tool.called", "server", t.server, "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return text, nil
}

func flattenContent(content []sdk.Content) string {
	var out string
	for _, c := range content {
		if tc, ok := c.(*sdk.TextContent); ok {
			if out != "" {
				out += "\n"
			}
			out += tc.Text
		}
	}
	return out
}
