package util

import "github.com/google/uuid"

// NewID returns a random identifier suitable for tasks, threads and tool calls.
func NewID() string { return uuid.NewString() }
