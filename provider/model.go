package provider

import (
	"context"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"github.com/prplworks/cpeforge/internal/shorttermmemory"
	"github.com/prplworks/cpeforge/tool"
)

// Provider abstracts a chat-completion backend. Implementations stream their
// progress as StreamEvent values on the returned channel and close it when the
// completion finishes.
type Provider interface {
	ChatCompletion(context.Context, CompletionParams) (<-chan StreamEvent, error)
}

// CompletionParams carries everything a provider needs for one completion.
type CompletionParams struct {
	// RunID identifies the run this completion belongs to.
	RunID uuid.UUID

	// Instructions is the rendered system prompt.
	Instructions string

	// Thread is the conversation history for this run.
	Thread *shorttermmemory.Aggregator

	// Stream asks for incremental chunks rather than a single response.
	Stream bool

	// ResponseSchema, when set, constrains the final assistant message to a
	// JSON document matching the schema.
	ResponseSchema *StructuredOutput

	// Model names the model to complete with. The interface mirrors
	// api.Model without importing it.
	Model interface {
		Name() string
		Provider() Provider
	}

	// Tools lists the functions the model may call.
	Tools []tool.Definition

	_ struct{}
}

// StructuredOutput describes a named JSON schema for constrained responses.
type StructuredOutput struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
}
