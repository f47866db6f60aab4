// Package telemetry exposes crew activity as Prometheus metrics through an
// events hook that composes with the run's other hooks.
package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/prplworks/cpeforge/events"
	"github.com/prplworks/cpeforge/messages"
)

var _ events.Hook = (*Hook)(nil)

// Hook counts crew events and observes run durations. It is safe for
// concurrent use and may be shared between runs.
type Hook struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   prometheus.Histogram
	messagesTotal *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	errorsTotal   prometheus.Counter

	mu      sync.Mutex
	started map[string]time.Time // start time per run id
}

// NewHook creates a hook on the default registerer.
func NewHook() *Hook {
	return NewHookWithRegistry(prometheus.DefaultRegisterer)
}

// NewHookWithRegistry creates a hook using the supplied registerer.
func NewHookWithRegistry(registry prometheus.Registerer) *Hook {
	return &Hook{
		runsStarted: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "cpeforge_runs_started_total",
			Help: "Total number of crew runs started",
		}),
		runsCompleted: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "cpeforge_runs_completed_total",
			Help: "Total number of crew runs completed",
		}, []string{"outcome"}),
		runDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "cpeforge_run_duration_seconds",
			Help:    "Duration of crew runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		messagesTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "cpeforge_messages_total",
			Help: "Messages observed during crew runs",
		}, []string{"kind", "sender"}),
		toolCalls: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "cpeforge_tool_calls_total",
			Help: "Tool calls requested by agents",
		}, []string{"sender"}),
		errorsTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "cpeforge_errors_total",
			Help: "Errors surfaced during crew runs",
		}),
		started: make(map[string]time.Time),
	}
}

func (h *Hook) OnUserPrompt(_ context.Context, msg messages.Message[messages.UserMessage]) {
	key := msg.RunID.String()

	h.mu.Lock()
	if _, ok := h.started[key]; !ok {
		h.started[key] = time.Now()
		h.runsStarted.Inc()
	}
	h.mu.Unlock()

	h.messagesTotal.WithLabelValues("user_prompt", msg.Sender).Inc()
}

func (h *Hook) OnAssistantChunk(_ context.Context, msg messages.Message[messages.AssistantMessage]) {
	h.messagesTotal.WithLabelValues("assistant_chunk", msg.Sender).Inc()
}

func (h *Hook) OnToolCallChunk(_ context.Context, msg messages.Message[messages.ToolCallMessage]) {
	h.messagesTotal.WithLabelValues("tool_call_chunk", msg.Sender).Inc()
}

func (h *Hook) OnAssistantMessage(_ context.Context, msg messages.Message[messages.AssistantMessage]) {
	h.messagesTotal.WithLabelValues("assistant_message", msg.Sender).Inc()
	h.completeRun(msg.RunID.String(), "success")
}

func (h *Hook) OnToolCallMessage(_ context.Context, msg messages.Message[messages.ToolCallMessage]) {
	h.messagesTotal.WithLabelValues("tool_call_message", msg.Sender).Inc()
	h.toolCalls.WithLabelValues(msg.Sender).Inc()
}

func (h *Hook) OnToolCallResponse(_ context.Context, msg messages.Message[messages.ToolResponse]) {
	h.messagesTotal.WithLabelValues("tool_call_response", msg.Sender).Inc()
}

func (h *Hook) OnError(_ context.Context, err error) {
	h.errorsTotal.Inc()

	// executor errors arrive as events.Error and carry the run they belong to
	var ee events.Error
	if errors.As(err, &ee) {
		h.completeRun(ee.RunID.String(), "failure")
	}
}

func (h *Hook) completeRun(key, outcome string) {
	h.mu.Lock()
	start, ok := h.started[key]
	if ok {
		delete(h.started, key)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	h.runDuration.Observe(time.Since(start).Seconds())
	h.runsCompleted.WithLabelValues(outcome).Inc()
}
