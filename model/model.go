package model

import (
	"context"
	"fmt"
	"sync"
)

// Role identifies the author of a Message.
type Role string

// Message roles understood by every ChatModel implementation.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// Message is one turn in a conversation transcript. Assistant turns may carry
// ToolCalls; tool turns answer a specific call via ToolCallID.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// SystemMessage builds a system turn.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage builds a user turn.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// AssistantMessage builds an assistant turn.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage builds a tool result turn answering the given call.
func ToolMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, Name: name}
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the assistant turn produced by one model invocation.
type Response struct {
	Message      Message     `json:"message"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// ChatModel is the minimal interface the executors need to drive generation.
// BindTools returns a derived model that offers the given tools on every
// invocation; the receiver is left untouched.
type ChatModel interface {
	Invoke(ctx context.Context, messages []Message) (*Response, error)
	BindTools(tools []ToolDefinition) ChatModel
	Info() Info
}

// Factory resolves a named model configuration into a usable ChatModel.
type Factory interface {
	Create(configName string) (ChatModel, error)
}

// FactoryFunc adapts a plain function to the Factory interface.
type FactoryFunc func(configName string) (ChatModel, error)

// Create implements Factory.
func (f FactoryFunc) Create(configName string) (ChatModel, error) { return f(configName) }

// Registry is a Factory backed by named constructors. Builders run on every
// Create call so each caller gets a fresh client.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]func() (ChatModel, error)
}

// NewRegistry creates an empty model registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]func() (ChatModel, error))}
}

// Register associates a config name with a ChatModel constructor.
func (r *Registry) Register(name string, builder func() (ChatModel, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = builder
}

// Create implements Factory.
func (r *Registry) Create(configName string) (ChatModel, error) {
	r.mu.RLock()
	builder, ok := r.builders[configName]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown model configuration %q", configName)
	}
	return builder()
}
