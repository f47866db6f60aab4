// Package events defines the observable surface of a crew run.
//
// It has two halves. Hook is the callback interface the executors drive while
// a run progresses: user prompts, streamed chunks, tool calls and their
// responses, and errors. CompositeHook fans events out to several hooks and
// LoggingHook writes them to slog.
//
// The second half is a set of serializable event types (Delim, Chunk,
// Request, Response, Result, Error) that mirror provider stream events with
// sender attribution added. ToJSON and FromJSON move them across process
// boundaries, dispatching on the embedded type tags, which is what the broker
// implementations publish and consume.
package events
