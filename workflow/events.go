package workflow

import "time"

// EventType discriminates progress events emitted during execution.
type EventType string

// Progress event types.
const (
	EventWorkflowStart    EventType = "workflow_start"
	EventStepStart        EventType = "step_start"
	EventStepComplete     EventType = "step_complete"
	EventStepError        EventType = "step_error"
	EventWorkflowComplete EventType = "workflow_complete"
	EventWorkflowError    EventType = "workflow_error"
	EventInterrupt        EventType = "interrupt"
)

// InterruptInfo accompanies an interrupt event so streaming consumers can
// surface the pending question and resume key.
type InterruptInfo struct {
	ThreadID  string    `json:"threadId"`
	Question  string    `json:"question"`
	Timestamp time.Time `json:"timestamp"`
}

// Event is one observational progress notification. Events never affect
// control flow; executors produce identical results with or without a sink.
type Event struct {
	Type      EventType      `json:"type"`
	Message   string         `json:"message"`
	Elapsed   int64          `json:"elapsed"` // milliseconds since workflow start
	Step      string         `json:"step,omitempty"`
	Current   int            `json:"current,omitempty"`
	Total     int            `json:"total,omitempty"`
	Interrupt *InterruptInfo `json:"interrupt,omitempty"`
}

// Sink receives progress events. A nil Sink is always legal.
type Sink func(Event)

// Emit sends ev if the sink is non-nil.
func (s Sink) Emit(ev Event) {
	if s != nil {
		s(ev)
	}
}
