package cpeforge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/prplworks/cpeforge/agent"
	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/messages"
	"github.com/prplworks/cpeforge/provider"
	"github.com/prplworks/cpeforge/types"
)

// scriptedProvider replies with a canned assistant message per completion
// call, in order.
type scriptedProvider struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func (s *scriptedProvider) ChatCompletion(ctx context.Context, params provider.CompletionParams) (<-chan provider.StreamEvent, error) {
	s.mu.Lock()
	reply := s.replies[s.calls%len(s.replies)]
	s.calls++
	s.mu.Unlock()

	ch := make(chan provider.StreamEvent, 1)
	ch <- provider.Response[messages.AssistantMessage]{
		RunID: params.RunID,
		Response: messages.AssistantMessage{
			Content: messages.AssistantContentOrParts{Content: reply},
		},
		Checkpoint: params.Thread.Checkpoint(),
	}
	close(ch)
	return ch, nil
}

// recordingProvider additionally captures the thread it is handed on every
// completion call.
type recordingProvider struct {
	scriptedProvider
	threads [][]string
}

func (r *recordingProvider) ChatCompletion(ctx context.Context, params provider.CompletionParams) (<-chan provider.StreamEvent, error) {
	var seen []string
	for msg := range params.Thread.MessagesIter() {
		switch payload := msg.Payload.(type) {
		case messages.UserMessage:
			seen = append(seen, "user:"+payload.Content.Content)
		case messages.AssistantMessage:
			seen = append(seen, "assistant:"+payload.Content.Content)
		}
	}
	r.mu.Lock()
	r.threads = append(r.threads, seen)
	r.mu.Unlock()

	return r.scriptedProvider.ChatCompletion(ctx, params)
}

type scriptedModel struct {
	prov provider.Provider
}

func (scriptedModel) Name() string                  { return "scripted_model" }
func (m scriptedModel) Provider() provider.Provider { return m.prov }

// crewHook records results and prompts for assertions.
type crewHook[T any] struct {
	mu      sync.Mutex
	prompts []messages.Message[messages.UserMessage]
	results []T
	errs    []error
	closed  chan struct{}
}

func newCrewHook[T any]() *crewHook[T] {
	return &crewHook[T]{closed: make(chan struct{})}
}

func (h *crewHook[T]) OnUserPrompt(_ context.Context, msg messages.Message[messages.UserMessage]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prompts = append(h.prompts, msg)
}

func (h *crewHook[T]) OnAssistantChunk(context.Context, messages.Message[messages.AssistantMessage]) {
}
func (h *crewHook[T]) OnToolCallChunk(context.Context, messages.Message[messages.ToolCallMessage]) {}
func (h *crewHook[T]) OnAssistantMessage(context.Context, messages.Message[messages.AssistantMessage]) {
}
func (h *crewHook[T]) OnToolCallMessage(context.Context, messages.Message[messages.ToolCallMessage]) {
}
func (h *crewHook[T]) OnToolCallResponse(context.Context, messages.Message[messages.ToolResponse]) {}

func (h *crewHook[T]) OnError(_ context.Context, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

func (h *crewHook[T]) OnResult(_ context.Context, result T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, result)
}

func (h *crewHook[T]) OnClose(context.Context) {
	close(h.closed)
}

func newScriptedAgent(name string, replies ...string) api.Agent {
	return agent.New(
		agent.Name(name),
		agent.Model(scriptedModel{prov: &scriptedProvider{replies: replies}}),
		agent.Instructions("You analyze customer premises equipment"),
	)
}

func TestStep(t *testing.T) {
	t.Run("string task", func(t *testing.T) {
		step := Step("network_optimizer", "analyze the fleet")
		assert.Equal(t, "network_optimizer", step.agentName)
		assert.Equal(t, stringTask("analyze the fleet"), step.task)
	})

	t.Run("message task", func(t *testing.T) {
		msg := messages.New().WithSender("operator").UserPrompt("check device cpe-001")
		step := Step("maintenance_predictor", msg)
		assert.Equal(t, "maintenance_predictor", step.agentName)
		assert.Equal(t, messageTask(msg), step.task)
	})
}

func TestNew(t *testing.T) {
	netOpt := newScriptedAgent("network_optimizer", "done")
	predictor := newScriptedAgent("maintenance_predictor", "done")

	crew := New(
		Name("fleet_operator"),
		Agents(netOpt, predictor),
		Steps(
			Step(netOpt.Name(), "analyze"),
			Step(predictor.Name(), "predict"),
		),
	)

	assert.Equal(t, "fleet_operator", crew.name)
	assert.Len(t, crew.steps, 2)

	got, found := crew.agents.Get("maintenance_predictor")
	require.True(t, found)
	assert.Equal(t, predictor, got)
}

func TestNewDefaults(t *testing.T) {
	crew := New()
	assert.Equal(t, "User", crew.name)
	assert.Empty(t, crew.steps)
}

func TestCrewRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("runs steps in order and resolves the final result", func(t *testing.T) {
		netOpt := newScriptedAgent("network_optimizer", "optimization report ready")
		predictor := newScriptedAgent("maintenance_predictor", "all devices healthy")

		crew := New(
			Agents(netOpt, predictor),
			Steps(
				Step(netOpt.Name(), "analyze network performance for region eu-west"),
				Step(predictor.Name(), "schedule maintenance for devices at risk"),
			),
		)

		hook := newCrewHook[string]()
		require.NoError(t, crew.Run(ctx, Local(hook)))

		select {
		case <-hook.closed:
		default:
			t.Fatal("hook was not closed")
		}

		hook.mu.Lock()
		defer hook.mu.Unlock()
		require.Empty(t, hook.errs)
		require.Len(t, hook.results, 1)
		assert.Equal(t, "all devices healthy", hook.results[0])

		require.Len(t, hook.prompts, 2)
		assert.Equal(t, "User", hook.prompts[0].Sender)
		assert.Equal(t, "analyze network performance for region eu-west", hook.prompts[0].Payload.Content.Content)
		assert.Equal(t, "schedule maintenance for devices at risk", hook.prompts[1].Payload.Content.Content)
	})

	t.Run("later steps see earlier step output", func(t *testing.T) {
		prov := &recordingProvider{
			scriptedProvider: scriptedProvider{replies: []string{"network analysis result", "consolidated report"}},
		}
		model := scriptedModel{prov: prov}
		analyst := agent.New(
			agent.Name("network_optimizer"),
			agent.Model(model),
			agent.Instructions("You analyze customer premises equipment"),
		)
		director := agent.New(
			agent.Name("ecosystem_director"),
			agent.Model(model),
			agent.Instructions("You consolidate analyses"),
		)

		crew := New(
			Agents(analyst, director),
			Steps(
				Step(analyst.Name(), "analyze the fleet"),
				Step(director.Name(), "consolidate the preceding analyses into the final report"),
			),
		)

		hook := newCrewHook[string]()
		require.NoError(t, crew.Run(ctx, Local(hook)))

		prov.mu.Lock()
		defer prov.mu.Unlock()
		require.Len(t, prov.threads, 2)
		assert.Equal(t, []string{"user:analyze the fleet"}, prov.threads[0])
		assert.Equal(t, []string{
			"user:analyze the fleet",
			"assistant:network analysis result",
			"user:consolidate the preceding analyses into the final report",
		}, prov.threads[1])
	})

	t.Run("stamps the command run id on prompts", func(t *testing.T) {
		netOpt := newScriptedAgent("network_optimizer", "optimization report ready")
		predictor := newScriptedAgent("maintenance_predictor", "all devices healthy")

		crew := New(
			Agents(netOpt, predictor),
			Steps(
				Step(netOpt.Name(), "analyze network performance"),
				Step(predictor.Name(), "schedule maintenance"),
			),
		)

		hook := newCrewHook[string]()
		require.NoError(t, crew.Run(ctx, Local(hook)))

		hook.mu.Lock()
		defer hook.mu.Unlock()
		require.Len(t, hook.prompts, 2)
		assert.NotEqual(t, uuid.Nil, hook.prompts[0].RunID)
		assert.NotEqual(t, uuid.Nil, hook.prompts[1].RunID)
		assert.NotEqual(t, hook.prompts[0].RunID, hook.prompts[1].RunID)
	})

	t.Run("keeps the prepared message sender", func(t *testing.T) {
		netOpt := newScriptedAgent("network_optimizer", "ack")
		crew := New(
			Agents(netOpt),
			Steps(Step(netOpt.Name(), messages.New().WithSender("noc").UserPrompt("reboot cpe-042"))),
		)

		hook := newCrewHook[string]()
		require.NoError(t, crew.Run(ctx, Local(hook)))

		hook.mu.Lock()
		defer hook.mu.Unlock()
		require.Len(t, hook.prompts, 1)
		assert.Equal(t, "noc", hook.prompts[0].Sender)
	})

	t.Run("fails when the agent is not registered", func(t *testing.T) {
		crew := New(
			Steps(Step("ghost_agent", "do something")),
		)

		hook := newCrewHook[string]()
		err := crew.Run(ctx, Local(hook))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "agent ghost_agent not found")
	})
}

func TestJSONSchema(t *testing.T) {
	assert.Nil(t, jsonSchema[string]())
	assert.Nil(t, jsonSchema[gjson.Result]())

	type maintenanceSchedule struct {
		DeviceID string `json:"device_id"`
		Priority int    `json:"priority"`
	}
	schema := jsonSchema[maintenanceSchedule]()
	require.NotNil(t, schema)
	_, hasDeviceID := schema.Properties.Get("device_id")
	assert.True(t, hasDeviceID)
}

func TestStructuredOutput(t *testing.T) {
	type healthReport struct {
		Score float64 `json:"score"`
	}

	t.Run("sets the schema for struct targets", func(t *testing.T) {
		hook := newCrewHook[healthReport]()
		rc := Local(hook, StructuredOutput[healthReport]("health_report", "fleet health summary"))
		require.NotNil(t, rc.responseSchema)
		assert.Equal(t, "health_report", rc.responseSchema.Name)
		assert.Equal(t, "fleet health summary", rc.responseSchema.Description)
	})

	t.Run("noop for string targets", func(t *testing.T) {
		hook := newCrewHook[string]()
		rc := Local(hook, StructuredOutput[string]("raw", "raw text"))
		assert.Nil(t, rc.responseSchema)
	})
}

func TestExecutionContextOptions(t *testing.T) {
	hook := newCrewHook[string]()
	rc := Local(hook,
		WithContextVars(types.ContextVars{"region": "eu-west"}),
		Streaming(true),
		WithMaxTurns(5),
	)

	assert.Equal(t, types.ContextVars{"region": "eu-west"}, rc.contextVars)
	assert.True(t, rc.stream)
	assert.Equal(t, 5, rc.maxTurns)
}

func TestDeferredPromise(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards the completed value", func(t *testing.T) {
		hook := newCrewHook[string]()
		rc := Local(hook)

		rc.promise.Complete("fleet optimized")
		rc.onClose(ctx)

		hook.mu.Lock()
		defer hook.mu.Unlock()
		require.Len(t, hook.results, 1)
		assert.Equal(t, "fleet optimized", hook.results[0])
		assert.Empty(t, hook.errs)
	})

	t.Run("forwards the error", func(t *testing.T) {
		hook := newCrewHook[string]()
		rc := Local(hook)

		rc.promise.Error(assert.AnError)
		rc.onClose(ctx)

		hook.mu.Lock()
		defer hook.mu.Unlock()
		assert.Empty(t, hook.results)
		require.Len(t, hook.errs, 1)
	})

	t.Run("first outcome wins", func(t *testing.T) {
		hook := newCrewHook[string]()
		rc := Local(hook)

		rc.promise.Complete("first")
		rc.promise.Complete("second")
		rc.promise.Error(assert.AnError)
		rc.onClose(ctx)

		hook.mu.Lock()
		defer hook.mu.Unlock()
		require.Len(t, hook.results, 1)
		assert.Equal(t, "first", hook.results[0])
		assert.Empty(t, hook.errs)
	})
}
