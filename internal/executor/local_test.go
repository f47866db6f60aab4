package executor

import (
	"context"
	"encoding"
	"fmt"
	"testing"
	"time"

	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/internal/shorttermmemory"
	"github.com/prplworks/cpeforge/messages"
	"github.com/prplworks/cpeforge/pkg/uuidx"
	"github.com/prplworks/cpeforge/tool"
	"github.com/prplworks/cpeforge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolCallsFor(agent api.Agent, hook *mockHook, calls ...messages.ToolCallData) toolCallParams {
	return toolCallParams{
		runID:     uuidx.New(),
		agent:     agent,
		mem:       shorttermmemory.New(),
		hook:      hook,
		toolCalls: messages.ToolCallMessage{ToolCalls: calls},
	}
}

func TestBuildArgList(t *testing.T) {
	params := map[string]string{
		"param0": "device_id",
		"param1": "severity",
	}

	t.Run("empty arguments", func(t *testing.T) {
		got := buildArgList("{}", map[string]string{"param0": "device_id"})
		assert.Empty(t, got)
	})

	t.Run("positional mapping", func(t *testing.T) {
		got := buildArgList(`{"device_id": "cpe-0042", "severity": "high"}`, params)
		require.Len(t, got, 2)
		assert.Equal(t, "cpe-0042", fmt.Sprintf("%v", got[0].Interface()))
		assert.Equal(t, "high", fmt.Sprintf("%v", got[1].Interface()))
	})

	t.Run("non string values keep their type", func(t *testing.T) {
		got := buildArgList(`{"fleet_size": 48, "dry_run": true}`, map[string]string{
			"param0": "fleet_size",
			"param1": "dry_run",
		})
		require.Len(t, got, 2)
		assert.Equal(t, "48", fmt.Sprintf("%v", got[0].Interface()))
		assert.Equal(t, "true", fmt.Sprintf("%v", got[1].Interface()))
	})
}

func TestCallFunction(t *testing.T) {
	tests := []struct {
		name        string
		fn          interface{}
		contextVars types.ContextVars
		wantValue   string
		wantErr     bool
	}{
		{
			name:      "string return",
			fn:        func() string { return "fleet healthy" },
			wantValue: "fleet healthy",
		},
		{
			name:      "int return",
			fn:        func() int { return 48 },
			wantValue: "48",
		},
		{
			name:      "float return",
			fn:        func() float64 { return 0.85 },
			wantValue: "0.85",
		},
		{
			name:    "error return",
			fn:      func() error { return assert.AnError },
			wantErr: true,
		},
		{
			name: "context vars injected",
			fn: func(cv types.ContextVars) string {
				return fmt.Sprintf("%v", cv["prediction_threshold"])
			},
			contextVars: types.ContextVars{"prediction_threshold": 0.7},
			wantValue:   "0.7",
		},
		{
			name: "time return",
			fn: func() time.Time {
				return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
			},
			wantValue: "2023-01-01T00:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := callFunction(tt.fn, nil, tt.contextVars)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, result.Value)
		})
	}
}

type reportMarshaler struct {
	fail bool
}

func (r reportMarshaler) MarshalText() ([]byte, error) {
	if r.fail {
		return nil, fmt.Errorf("marshal error")
	}
	return []byte("maintenance window scheduled"), nil
}

func TestCallFunctionWithComplexTypes(t *testing.T) {
	t.Run("text marshaler", func(t *testing.T) {
		result, err := callFunction(func() encoding.TextMarshaler {
			return reportMarshaler{}
		}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "maintenance window scheduled", result.Value)
	})

	t.Run("text marshaler error", func(t *testing.T) {
		_, err := callFunction(func() encoding.TextMarshaler {
			return reportMarshaler{fail: true}
		}, nil, nil)
		assert.Error(t, err)
	})

	t.Run("struct return serializes to json", func(t *testing.T) {
		type window struct {
			DeviceID string
			Hours    int
		}
		result, err := callFunction(func() window {
			return window{DeviceID: "cpe-0042", Hours: 4}
		}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, `{"DeviceID":"cpe-0042","Hours":4}`, result.Value)
	})
}

func TestHandleToolCalls(t *testing.T) {
	t.Run("single tool call", func(t *testing.T) {
		l := NewLocal()
		agent := newTestAgent()

		params := toolCallsFor(agent, &mockHook{},
			messages.ToolCallData{Name: "test_tool", Arguments: "{}"},
		)

		nextAgent, err := l.handleToolCalls(context.Background(), params)
		require.NoError(t, err)
		assert.Nil(t, nextAgent)
	})

	t.Run("unknown tool", func(t *testing.T) {
		l := NewLocal()

		params := toolCallsFor(newTestAgent(), &mockHook{},
			messages.ToolCallData{Name: "decommission_device", Arguments: "{}"},
		)

		_, err := l.handleToolCalls(context.Background(), params)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown tool")
	})

	t.Run("malformed arguments are tolerated", func(t *testing.T) {
		l := NewLocal()

		params := toolCallsFor(newTestAgent(), &mockHook{},
			messages.ToolCallData{Name: "test_tool", Arguments: "not json"},
		)

		// buildArgList ignores what it cannot parse
		_, err := l.handleToolCalls(context.Background(), params)
		require.NoError(t, err)
	})
}

func TestHandleToolCallsHandoff(t *testing.T) {
	l := NewLocal()

	escalationAgent := newTestAgent()
	escalationAgent.testName = "ecosystem_coordinator"

	var executed []string
	agent := &mockAgent{
		testName:  "test_agent",
		testModel: testModel{provider: &mockProvider{}},
		testTools: []tool.Definition{
			{
				Name: "check_health",
				Function: func() string {
					executed = append(executed, "check_health")
					return "degraded"
				},
			},
			{
				Name: "escalate",
				Function: func() api.Agent {
					executed = append(executed, "escalate")
					return escalationAgent
				},
			},
		},
	}

	t.Run("handoff wins over regular tools", func(t *testing.T) {
		executed = nil

		params := toolCallsFor(agent, &mockHook{},
			messages.ToolCallData{Name: "check_health", Arguments: "{}"},
			messages.ToolCallData{Name: "escalate", Arguments: "{}"},
		)

		nextAgent, err := l.handleToolCalls(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, escalationAgent, nextAgent)
		assert.Equal(t, []string{"escalate"}, executed,
			"handoff should run first and suppress the remaining tools")
	})

	t.Run("first handoff in call order wins", func(t *testing.T) {
		secondAgent := newTestAgent()
		secondAgent.testName = "second"

		var order []string
		multi := &mockAgent{
			testName:  "test_agent",
			testModel: testModel{provider: &mockProvider{}},
			testTools: []tool.Definition{
				{
					Name: "route_west",
					Function: func() api.Agent {
						order = append(order, "route_west")
						return escalationAgent
					},
				},
				{
					Name: "route_east",
					Function: func() api.Agent {
						order = append(order, "route_east")
						return secondAgent
					},
				},
			},
		}

		params := toolCallsFor(multi, &mockHook{},
			messages.ToolCallData{Name: "route_east", Arguments: "{}"},
			messages.ToolCallData{Name: "route_west", Arguments: "{}"},
		)

		nextAgent, err := l.handleToolCalls(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, secondAgent, nextAgent)
		assert.Equal(t, []string{"route_east"}, order)
	})

	t.Run("regular tools keep call order", func(t *testing.T) {
		var order []string
		seq := &mockAgent{
			testName:  "test_agent",
			testModel: testModel{provider: &mockProvider{}},
			testTools: []tool.Definition{
				{
					Name: "read_sensors",
					Function: func() string {
						order = append(order, "read_sensors")
						return "ok"
					},
				},
				{
					Name: "score_health",
					Function: func() string {
						order = append(order, "score_health")
						return "ok"
					},
				},
			},
		}

		params := toolCallsFor(seq, &mockHook{},
			messages.ToolCallData{Name: "score_health", Arguments: "{}"},
			messages.ToolCallData{Name: "read_sensors", Arguments: "{}"},
		)

		nextAgent, err := l.handleToolCalls(context.Background(), params)
		require.NoError(t, err)
		assert.Nil(t, nextAgent)
		assert.Equal(t, []string{"score_health", "read_sensors"}, order)
	})
}

func TestHandleToolCallsContextVars(t *testing.T) {
	t.Run("injected into tool functions", func(t *testing.T) {
		l := NewLocal()

		agent := newTestAgent()
		agent.testTools = []tool.Definition{
			{
				Name: "current_region",
				Function: func(cv types.ContextVars) string {
					return cv["region"].(string)
				},
			},
		}

		responses := make(chan string, 1)
		hook := &mockHook{
			onToolCallResponse: func(ctx context.Context, msg messages.Message[messages.ToolResponse]) {
				responses <- msg.Payload.Content
			},
		}

		params := toolCallsFor(agent, hook,
			messages.ToolCallData{Name: "current_region", Arguments: "{}"},
		)
		params.contextVars = types.ContextVars{"region": "eu-west"}

		nextAgent, err := l.handleToolCalls(context.Background(), params)
		require.NoError(t, err)
		assert.Nil(t, nextAgent)

		select {
		case response := <-responses:
			assert.Equal(t, "eu-west", response)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for tool response")
		}
	})

	t.Run("returned vars flow into later tools", func(t *testing.T) {
		l := NewLocal()

		var seen []string
		agent := &mockAgent{
			testName:  "test_agent",
			testModel: testModel{provider: &mockProvider{}},
			testTools: []tool.Definition{
				{
					Name: "detect_fleet",
					Function: func() types.ContextVars {
						return types.ContextVars{"fleet": "cpe-lab", "size": "48"}
					},
				},
				{
					Name: "rename_fleet",
					Function: func(cv types.ContextVars) string {
						seen = append(seen, cv["fleet"].(string))
						cv["fleet"] = "cpe-prod"
						return "ok"
					},
					Parameters: map[string]string{"param0": "cv"},
				},
				{
					Name: "report_fleet",
					Function: func(cv types.ContextVars) string {
						seen = append(seen, cv["fleet"].(string), cv["size"].(string))
						return "ok"
					},
					Parameters: map[string]string{"param0": "cv"},
				},
			},
		}

		params := toolCallsFor(agent, &mockHook{},
			messages.ToolCallData{Name: "detect_fleet", Arguments: "{}"},
			messages.ToolCallData{Name: "rename_fleet", Arguments: `{"cv": {}}`},
			messages.ToolCallData{Name: "report_fleet", Arguments: `{"cv": {}}`},
		)

		nextAgent, err := l.handleToolCalls(context.Background(), params)
		require.NoError(t, err)
		assert.Nil(t, nextAgent)
		assert.Equal(t, []string{"cpe-lab", "cpe-prod", "48"}, seen,
			"updates from one tool should be visible to the next")
	})
}
