// Package provider abstracts chat-completion backends behind a single
// streaming interface. A Provider turns CompletionParams into a channel of
// StreamEvent values: Delim marks stream boundaries, Chunk carries incremental
// fragments, Response carries a finished message together with a memory
// checkpoint, and Error carries a failure with its run context.
//
// All four event types serialize to type-tagged JSON so they can cross process
// boundaries, for example through a message broker or a durable workflow
// history.
package provider
