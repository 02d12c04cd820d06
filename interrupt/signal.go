// Package interrupt implements the human-in-the-loop pause machinery: the
// Signal a tool raises to suspend a ReAct run, and the Manager that persists
// pause state across the pause/resume boundary.
package interrupt

import "fmt"

// Signal is the dedicated pause control-flow value. It implements error so it
// can travel an ordinary error return path, but it is not a failure: every
// layer that must snapshot state on pause detects it with errors.As and
// handles it explicitly. Question is what the human is asked; Payload carries
// optional structured context for the caller.
type Signal struct {
	Question string
	Payload  map[string]any
}

// Error implements the error interface.
func (s *Signal) Error() string {
	return fmt.Sprintf("execution interrupted: %s", s.Question)
}

// NewSignal builds a Signal for the given question.
func NewSignal(question string) *Signal {
	return &Signal{Question: question}
}
