package executor

import (
	"context"
	"sync"
	"time"

	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/events"
	"github.com/prplworks/cpeforge/internal/broker"
	"github.com/prplworks/cpeforge/messages"
	"github.com/prplworks/cpeforge/provider"
	"github.com/prplworks/cpeforge/tool"
	"github.com/prplworks/cpeforge/types"
)

// Mock Provider

type mockProvider struct {
	provider.Provider
	responses          []provider.StreamEvent
	err                error
	lastParams         provider.CompletionParams
	streamCh           chan provider.StreamEvent
	chatCompletionHook func() // signals when ChatCompletion is called
}

func (m *mockProvider) ChatCompletion(ctx context.Context, params provider.CompletionParams) (<-chan provider.StreamEvent, error) {
	if m.err != nil {
		return nil, m.err
	}

	m.lastParams = params

	if m.chatCompletionHook != nil {
		m.chatCompletionHook()
	}

	if m.streamCh != nil {
		return m.streamCh, nil
	}

	ch := make(chan provider.StreamEvent, len(m.responses))
	for _, resp := range m.responses {
		ch <- resp
	}
	close(ch)
	return ch, nil
}

// Mock Agent

type mockAgent struct {
	api.Agent
	testName  string
	testModel testModel
	testTools []tool.Definition
}

func (m *mockAgent) Name() string {
	if m.testName == "" {
		return "mock_agent"
	}
	return m.testName
}

func (m *mockAgent) Model() api.Model {
	return m.testModel
}

func (m *mockAgent) Instructions() string {
	return "mock instructions"
}

func (m *mockAgent) Tools() []tool.Definition {
	return m.testTools
}

func (m *mockAgent) ParallelToolCalls() bool {
	return false
}

func (m *mockAgent) RenderInstructions(cv types.ContextVars) (string, error) {
	return m.Instructions(), nil
}

// Mock Hook

type mockHook struct {
	events.Hook
	onAssistantMessage func(ctx context.Context, msg messages.Message[messages.AssistantMessage])
	onToolCallResponse func(ctx context.Context, msg messages.Message[messages.ToolResponse])
	onError            func(ctx context.Context, err error)
}

func (h *mockHook) OnUserPrompt(ctx context.Context, msg messages.Message[messages.UserMessage]) {}

func (h *mockHook) OnAssistantChunk(ctx context.Context, msg messages.Message[messages.AssistantMessage]) {
}

func (h *mockHook) OnToolCallChunk(ctx context.Context, msg messages.Message[messages.ToolCallMessage]) {
}

func (h *mockHook) OnAssistantMessage(ctx context.Context, msg messages.Message[messages.AssistantMessage]) {
	if h.onAssistantMessage != nil {
		h.onAssistantMessage(ctx, msg)
	}
}

func (h *mockHook) OnToolCallMessage(ctx context.Context, msg messages.Message[messages.ToolCallMessage]) {
}

func (h *mockHook) OnToolCallResponse(ctx context.Context, msg messages.Message[messages.ToolResponse]) {
	if h.onToolCallResponse != nil {
		h.onToolCallResponse(ctx, msg)
	}
}

func (h *mockHook) OnError(ctx context.Context, err error) {
	if h.onError != nil {
		h.onError(ctx, err)
	}
}

// Mock Subscription

type mockSubscription struct {
	broker.Subscription
}

func (m *mockSubscription) Unsubscribe() {}

// Mock Topic

type mockTopic struct {
	broker.Topic[string]
	mu         sync.RWMutex
	published  []events.Event
	hook       events.ResultHook[string]
	eventsChan chan events.Event
	subscribe  func(ctx context.Context, hook events.ResultHook[string]) (broker.Subscription, error)
}

func (m *mockTopic) Publish(ctx context.Context, event events.Event) error {
	m.mu.Lock()
	m.published = append(m.published, event)
	m.mu.Unlock()

	if m.eventsChan != nil {
		m.eventsChan <- event
	}
	return nil
}

func (m *mockTopic) Subscribe(ctx context.Context, hook events.ResultHook[string]) (broker.Subscription, error) {
	if m.subscribe != nil {
		return m.subscribe(ctx, hook)
	}
	m.mu.Lock()
	m.hook = hook
	m.mu.Unlock()
	return &mockSubscription{}, nil
}

// waitForEvent waits for an event that matches the given predicate
func (m *mockTopic) waitForEvent(timeout time.Duration, predicate func(events.Event) bool) (events.Event, error) {
	m.mu.Lock()
	if m.eventsChan == nil {
		m.eventsChan = make(chan events.Event, 100)
	}
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	m.mu.RLock()
	for _, event := range m.published {
		if predicate(event) {
			m.mu.RUnlock()
			return event, nil
		}
	}
	m.mu.RUnlock()

	for {
		select {
		case event := <-m.eventsChan:
			if predicate(event) {
				return event, nil
			}
		case <-timer.C:
			return nil, nil
		}
	}
}

// Mock Broker

type mockBroker struct {
	broker.Broker[string]
	mu     sync.RWMutex
	topics map[string]*mockTopic
}

func newMockBroker() *mockBroker {
	return &mockBroker{
		topics: make(map[string]*mockTopic),
	}
}

func (m *mockBroker) Topic(_ context.Context, id string) broker.Topic[string] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.topics[id]; ok {
		return t
	}

	t := &mockTopic{
		eventsChan: make(chan events.Event, 100),
	}
	m.topics[id] = t
	return t
}

// Test Model

type testModel struct {
	provider provider.Provider
}

func (m testModel) Provider() provider.Provider { return m.provider }
func (m testModel) String() string              { return "test_model" }
func (m testModel) Name() string                { return "test_model" }

// Helper Functions

func newTestAgent() *mockAgent {
	responseCh := make(chan provider.StreamEvent, 1)
	prov := &mockProvider{
		streamCh: responseCh,
		responses: []provider.StreamEvent{
			provider.Response[messages.AssistantMessage]{
				Response: messages.AssistantMessage{
					Content: messages.AssistantContentOrParts{
						Content: "test result",
					},
				},
			},
		},
	}
	return &mockAgent{
		testName:  "test_agent",
		testModel: testModel{provider: prov},
		testTools: []tool.Definition{
			{
				Name:     "test_tool",
				Function: func() string { return "result" },
			},
		},
	}
}
