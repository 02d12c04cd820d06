// Package model defines the ChatModel abstraction the executors generate
// against: a normalized message transcript, vendor-neutral tool calls, and a
// Factory resolving named configurations to concrete providers. Provider
// adapters live in the openai and anthropic subpackages.
package model
