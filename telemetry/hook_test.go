package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/prplworks/cpeforge/events"
	"github.com/prplworks/cpeforge/messages"
	"github.com/prplworks/cpeforge/pkg/uuidx"
)

func newTestHook() *Hook {
	return NewHookWithRegistry(prometheus.NewRegistry())
}

func TestHookCountsRun(t *testing.T) {
	h := newTestHook()
	ctx := context.Background()
	runID := uuidx.New()

	prompt := messages.New().WithSender("User").UserPrompt("analyze the fleet")
	prompt.RunID = runID
	h.OnUserPrompt(ctx, prompt)
	h.OnUserPrompt(ctx, prompt) // same run counts once

	assert.Equal(t, 1.0, testutil.ToFloat64(h.runsStarted))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.messagesTotal.WithLabelValues("user_prompt", "User")))

	var assistant messages.Message[messages.AssistantMessage]
	assistant.RunID = runID
	assistant.Sender = "network_optimization_specialist"
	h.OnAssistantMessage(ctx, assistant)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.runsCompleted.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.messagesTotal.WithLabelValues("assistant_message", "network_optimization_specialist")))

	// Run state is cleared once completed.
	h.mu.Lock()
	assert.Empty(t, h.started)
	h.mu.Unlock()
}

func TestHookTracksEveryCrewStep(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHookWithRegistry(reg)
	ctx := context.Background()

	// replay the message sequence a two step crew run produces: each step
	// stamps its own command id on the prompt and the matching completion
	for _, sender := range []string{"network_optimization_specialist", "cpe_ecosystem_director"} {
		runID := uuidx.New()

		prompt := messages.New().WithSender("User").UserPrompt("analyze the fleet")
		prompt.RunID = runID
		h.OnUserPrompt(ctx, prompt)

		var assistant messages.Message[messages.AssistantMessage]
		assistant.RunID = runID
		assistant.Sender = sender
		h.OnAssistantMessage(ctx, assistant)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(h.runsStarted))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.runsCompleted.WithLabelValues("success")))

	mfs, err := reg.Gather()
	assert.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "cpeforge_run_duration_seconds" {
			assert.EqualValues(t, 2, mf.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}

	h.mu.Lock()
	assert.Empty(t, h.started)
	h.mu.Unlock()
}

func TestHookRecordsFailedRun(t *testing.T) {
	h := newTestHook()
	ctx := context.Background()
	runID := uuidx.New()

	prompt := messages.New().WithSender("User").UserPrompt("analyze the fleet")
	prompt.RunID = runID
	h.OnUserPrompt(ctx, prompt)

	h.OnError(ctx, events.Error{RunID: runID, Sender: "network_optimization_specialist", Err: errors.New("provider unavailable")})

	assert.Equal(t, 1.0, testutil.ToFloat64(h.errorsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.runsCompleted.WithLabelValues("failure")))

	h.mu.Lock()
	assert.Empty(t, h.started)
	h.mu.Unlock()
}

func TestHookCountsToolCalls(t *testing.T) {
	h := newTestHook()
	ctx := context.Background()

	var toolCall messages.Message[messages.ToolCallMessage]
	toolCall.Sender = "predictive_maintenance_engineer"
	h.OnToolCallMessage(ctx, toolCall)
	h.OnToolCallMessage(ctx, toolCall)

	var response messages.Message[messages.ToolResponse]
	response.Sender = "predictive_maintenance_engineer"
	h.OnToolCallResponse(ctx, response)

	assert.Equal(t, 2.0, testutil.ToFloat64(h.toolCalls.WithLabelValues("predictive_maintenance_engineer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.messagesTotal.WithLabelValues("tool_call_response", "predictive_maintenance_engineer")))
}

func TestHookCountsErrors(t *testing.T) {
	h := newTestHook()

	h.OnError(context.Background(), errors.New("provider unavailable"))
	h.OnError(context.Background(), errors.New("tool failed"))

	assert.Equal(t, 2.0, testutil.ToFloat64(h.errorsTotal))
}

func TestHookChunks(t *testing.T) {
	h := newTestHook()
	ctx := context.Background()

	var chunk messages.Message[messages.AssistantMessage]
	chunk.Sender = "network_optimization_specialist"
	h.OnAssistantChunk(ctx, chunk)

	var toolChunk messages.Message[messages.ToolCallMessage]
	toolChunk.Sender = "network_optimization_specialist"
	h.OnToolCallChunk(ctx, toolChunk)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.messagesTotal.WithLabelValues("assistant_chunk", "network_optimization_specialist")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.messagesTotal.WithLabelValues("tool_call_chunk", "network_optimization_specialist")))
}
