// Package agent declares the contracts this core consumes from the agent
// subsystem: a Provider resolving names to definitions, an Executor turning
// definitions into runnable instances, and the Instance invoke operation.
// The prompt/tool loop behind Instance is out of scope here; the executors
// treat it as an opaque, already-validated collaborator.
package agent

import (
	"context"
	"sort"
	"sync"
)

// Definition describes a single agent as loaded by the platform.
type Definition struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Model       string         `yaml:"model,omitempty" json:"model,omitempty"`
	Instruction string         `yaml:"instruction,omitempty" json:"instruction,omitempty"`
	Tools       []string       `yaml:"tools,omitempty" json:"tools,omitempty"`
	Metadata    map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Result is the settled outcome of one agent invocation.
type Result struct {
	Output   any            `json:"output"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Instance is a runnable agent produced by an Executor.
type Instance interface {
	Invoke(ctx context.Context, input map[string]any) (*Result, error)
}

// InstanceFunc adapts a plain function to the Instance interface.
type InstanceFunc func(ctx context.Context, input map[string]any) (*Result, error)

// Invoke implements Instance.
func (f InstanceFunc) Invoke(ctx context.Context, input map[string]any) (*Result, error) {
	return f(ctx, input)
}

type sessionKey struct{}

// WithSession returns a context carrying the session identifier for an agent
// invocation. An empty id leaves the context unchanged.
func WithSession(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// Session returns the session identifier carried by ctx, if any.
func Session(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(sessionKey{}).(string)
	return s, ok
}

// Provider resolves agent names to definitions.
type Provider interface {
	Get(name string) (*Definition, bool)
	Names() []string
}

// Executor turns a definition into a runnable instance.
type Executor interface {
	CreateInstance(def *Definition) (Instance, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(def *Definition) (Instance, error)

// CreateInstance implements Executor.
func (f ExecutorFunc) CreateInstance(def *Definition) (Instance, error) { return f(def) }

// StaticProvider is an in-memory Provider backed by a fixed definition set.
type StaticProvider struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewStaticProvider creates a provider serving the given definitions.
func NewStaticProvider(defs ...*Definition) *StaticProvider {
	p := &StaticProvider{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		p.defs[d.Name] = d
	}
	return p
}

// Add registers or replaces a definition.
func (p *StaticProvider) Add(def *Definition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defs[def.Name] = def
}

// Get implements Provider.
func (p *StaticProvider) Get(name string) (*Definition, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.defs[name]
	return d, ok
}

// Names implements Provider; names are returned sorted for stable iteration.
func (p *StaticProvider) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.defs))
	for n := range p.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
