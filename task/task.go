// Package task provides the asynchronous execution layer: a bounded
// in-memory store of task records with TTL cleanup, and a manager that runs
// agents and workflows in the background while callers poll or cancel by id.
package task

import "time"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusSubmitted     Status = "submitted"
	StatusWorking       Status = "working"
	StatusInputRequired Status = "input-required"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusCanceled      Status = "canceled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Kind identifies what a task executes.
type Kind string

const (
	KindAgent    Kind = "agent"
	KindWorkflow Kind = "workflow"
	KindLLM      Kind = "llm"
)

// Result is the settled output of a completed task.
type Result struct {
	Output   any            `json:"output"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// InputRequest records the question a paused task is waiting on.
type InputRequest struct {
	Question  string    `json:"question"`
	ThreadID  string    `json:"threadId"`
	Timestamp time.Time `json:"timestamp"`
}

// Task is one tracked unit of background work.
type Task struct {
	ID           string         `json:"id"`
	Kind         Kind           `json:"kind"`
	Name         string         `json:"name"`
	Status       Status         `json:"status"`
	Input        map[string]any `json:"input,omitempty"`
	SessionID    string         `json:"sessionId,omitempty"`
	Result       *Result        `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	InputRequest *InputRequest  `json:"inputRequest,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
}

// clone returns a shallow copy so callers never hold store-internal pointers
// to the mutable record.
func (t *Task) clone() *Task {
	cp := *t
	return &cp
}
