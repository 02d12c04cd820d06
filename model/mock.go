package model

import (
	"context"
	"fmt"
	"sync"
)

// MockTurn is one scripted exchange for a MockChatModel: either a canned
// response or an error.
type MockTurn struct {
	Response *Response
	Err      error
}

// MockCall records one Invoke for later inspection: the transcript it saw and
// the tools bound at the time.
type MockCall struct {
	Messages []Message
	Tools    []ToolDefinition
}

// MockChatModel is a lightweight in-memory ChatModel useful for tests. Turns
// are consumed in order; once exhausted, Invoke returns a plain "done"
// assistant turn. Calls (including bound tools per call) are recorded on the
// shared root so derived tool-bound copies report into the same history.
type MockChatModel struct {
	mu    *sync.Mutex
	info  Info
	turns *[]MockTurn
	calls *[]MockCall
	tools []ToolDefinition
}

// NewMockChatModel constructs a MockChatModel with basic tool support enabled.
func NewMockChatModel(name string, turns ...MockTurn) *MockChatModel {
	t := append([]MockTurn(nil), turns...)
	return &MockChatModel{
		mu:    &sync.Mutex{},
		info:  Info{Name: name, Provider: "mock", SupportsTools: true},
		turns: &t,
		calls: &[]MockCall{},
	}
}

// AddTurn appends a scripted turn.
func (m *MockChatModel) AddTurn(turn MockTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.turns = append(*m.turns, turn)
}

// Calls returns a copy of the recorded invocations.
func (m *MockChatModel) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), *m.calls...)
}

// Invoke implements ChatModel by consuming the next scripted turn.
func (m *MockChatModel) Invoke(_ context.Context, messages []Message) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	*m.calls = append(*m.calls, MockCall{
		Messages: append([]Message(nil), messages...),
		Tools:    append([]ToolDefinition(nil), m.tools...),
	})

	if len(*m.turns) == 0 {
		return &Response{Message: AssistantMessage("done"), FinishReason: "stop"}, nil
	}
	next := (*m.turns)[0]
	*m.turns = (*m.turns)[1:]
	if next.Err != nil {
		return nil, next.Err
	}
	if next.Response == nil {
		return nil, fmt.Errorf("mock turn has neither response nor error")
	}
	return next.Response, nil
}

// BindTools implements ChatModel; the copy shares turn and call state with
// the root so scripted conversations survive rebinding.
func (m *MockChatModel) BindTools(tools []ToolDefinition) ChatModel {
	return &MockChatModel{
		mu:    m.mu,
		info:  m.info,
		turns: m.turns,
		calls: m.calls,
		tools: append([]ToolDefinition(nil), tools...),
	}
}

// Info implements ChatModel.
func (m *MockChatModel) Info() Info { return m.info }

// ToolCallResponse is a convenience for scripting an assistant turn that
// requests the given tool calls.
func ToolCallResponse(content string, calls ...ToolCall) *Response {
	return &Response{
		Message:      Message{Role: RoleAssistant, Content: content, ToolCalls: calls},
		FinishReason: "tool_calls",
	}
}

// TextResponse is a convenience for scripting a final assistant turn.
func TextResponse(content string) *Response {
	return &Response{Message: AssistantMessage(content), FinishReason: "stop"}
}
