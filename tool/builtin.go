package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/ddalcu/agent-orcha-sub003/interrupt"
)

// NewAskUserTool returns the builtin human-in-the-loop tool. Calling it does
// not produce a result: it raises the pause Signal, which suspends the
// enclosing ReAct run until a human answers through the task layer.
func NewAskUserTool() Tool {
	return NewFunctionTool(
		"ask_user",
		"Ask the human operator a question and pause until they answer. "+
			"Use this when required information cannot be obtained any other way.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question to ask the human operator",
				},
			},
			"required": []string{"question"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			question, _ := args["question"].(string)
			if question == "" {
				question = "Input required to continue."
			}
			return nil, &interrupt.Signal{Question: question, Payload: args}
		},
	)
}

// NewCurrentTimeTool returns a builtin reporting the current time, mostly
// useful as an always-available smoke-test tool.
func NewCurrentTimeTool() Tool {
	return NewFunctionTool(
		"current_time",
		"Get the current date and time in RFC 3339 format.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) {
			return time.Now().Format(time.RFC3339), nil
		},
	)
}

// NewEchoTool returns a builtin that repeats its input, handy for wiring
// checks in workflow definitions.
func NewEchoTool() Tool {
	return NewFunctionTool(
		"echo",
		"Echo the provided text back unchanged.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string", "description": "Text to echo"},
			},
			"required": []string{"text"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			return fmt.Sprintf("%v", args["text"]), nil
		},
	)
}

// Builtins returns the always-present platform tool set.
func Builtins() map[string]Tool {
	tools := map[string]Tool{}
	for _, t := range []Tool{NewAskUserTool(), NewCurrentTimeTool(), NewEchoTool()} {
		tools[t.Name()] = t
	}
	return tools
}
