package framework

import (
	"context"
	"sync"

	"github.com/prplworks/cpeforge/events"
	"github.com/prplworks/cpeforge/messages"
)

// runHook fans events out to the caller's hooks and captures the final
// report of the run.
type runHook struct {
	inner events.Hook

	mu     sync.Mutex
	result string
	err    error
	done   bool
}

func newRunHook(hooks ...events.Hook) *runHook {
	return &runHook{inner: events.NewCompositeHook(hooks...)}
}

func (h *runHook) OnUserPrompt(ctx context.Context, msg messages.Message[messages.UserMessage]) {
	h.inner.OnUserPrompt(ctx, msg)
}

func (h *runHook) OnAssistantChunk(ctx context.Context, msg messages.Message[messages.AssistantMessage]) {
	h.inner.OnAssistantChunk(ctx, msg)
}

func (h *runHook) OnToolCallChunk(ctx context.Context, msg messages.Message[messages.ToolCallMessage]) {
	h.inner.OnToolCallChunk(ctx, msg)
}

func (h *runHook) OnAssistantMessage(ctx context.Context, msg messages.Message[messages.AssistantMessage]) {
	h.inner.OnAssistantMessage(ctx, msg)
}

func (h *runHook) OnToolCallMessage(ctx context.Context, msg messages.Message[messages.ToolCallMessage]) {
	h.inner.OnToolCallMessage(ctx, msg)
}

func (h *runHook) OnToolCallResponse(ctx context.Context, msg messages.Message[messages.ToolResponse]) {
	h.inner.OnToolCallResponse(ctx, msg)
}

func (h *runHook) OnError(ctx context.Context, err error) {
	h.mu.Lock()
	if h.err == nil {
		h.err = err
	}
	h.mu.Unlock()
	h.inner.OnError(ctx, err)
}

func (h *runHook) OnResult(_ context.Context, result string) {
	h.mu.Lock()
	h.result = result
	h.done = true
	h.mu.Unlock()
}

func (h *runHook) OnClose(context.Context) {}

func (h *runHook) report() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

func (h *runHook) failure() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		// A delivered result outranks transient errors from earlier turns.
		return nil
	}
	return h.err
}
