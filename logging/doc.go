// Package logging defines the engine's logging abstraction: the minimal
// Logger interface every component accepts, adapters over log/slog, and the
// contextual EngineLogger used by the runtime itself.
package logging
