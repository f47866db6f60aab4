package api

import (
	"github.com/prplworks/cpeforge/tool"
	"github.com/prplworks/cpeforge/types"
)

// Agent is the capability surface every crew member exposes. Implementations
// are immutable after construction; configuration is read through these
// methods rather than mutated at runtime.
type Agent interface {
	// Name returns the agent's identifier, stable across runs. It is used
	// for logging, message attribution, and agent handoff.
	Name() string

	// Model returns the model configuration this agent completes with.
	Model() Model

	// Tools returns the functions this agent may invoke.
	Tools() []tool.Definition

	// ParallelToolCalls reports whether independent tool calls from one
	// completion may run concurrently.
	ParallelToolCalls() bool

	// Instructions returns the raw instruction template, before any context
	// variable expansion. Durable executors ship this across process
	// boundaries and render it on the worker.
	Instructions() string

	// RenderInstructions produces the system instructions for a run,
	// expanding context variable references in the instruction template.
	RenderInstructions(types.ContextVars) (string, error)
}
