package cpeforge

import (
	"context"

	"github.com/prplworks/cpeforge/events"
)

// Hook extends events.Hook with result delivery and lifecycle completion for
// a full crew run. T is the type the final task's output unmarshals into.
type Hook[T any] interface {
	events.Hook
	OnResult(context.Context, T)
	OnClose(context.Context)
}
