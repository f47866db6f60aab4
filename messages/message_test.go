package messages

import (
	"errors"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestInstructions(t *testing.T) {
	i := InstructionsMessage{Content: "follow the compliance checklist"}
	i.message()
	assert.Equal(t, "follow the compliance checklist", i.Content)
}

func TestUserMessage(t *testing.T) {
	content := ContentOrParts{Content: "analyze this device"}
	u := UserMessage{Content: content}
	u.message()
	u.request()
	assert.Equal(t, content, u.Content)
}

func TestAssistantMessage(t *testing.T) {
	content := AssistantContentOrParts{Content: "analysis complete"}
	a := AssistantMessage{Content: content, Refusal: "not this time"}
	a.message()
	a.response()
	assert.Equal(t, content, a.Content)
	assert.Equal(t, "not this time", a.Refusal)
}

func TestToolCallMessage(t *testing.T) {
	tc := ToolCallMessage{
		ToolCalls: []ToolCallData{
			{ID: "call-1", Name: "analyze_network_performance", Arguments: `{"device":"cpe-01"}`},
		},
	}
	tc.message()
	tc.response()
	require.Len(t, tc.ToolCalls, 1)
	assert.Equal(t, "analyze_network_performance", tc.ToolCalls[0].Name)
}

func TestToolResponse(t *testing.T) {
	tr := ToolResponse{ToolName: "process_sensor_data", ToolCallID: "call-2", Content: `{"health":0.91}`}
	tr.message()
	tr.request()
	assert.Equal(t, "call-2", tr.ToolCallID)
}

func TestRetry(t *testing.T) {
	r := Retry{Error: errors.New("timeout"), ToolName: "validate_deployment", ToolCallID: "call-3"}
	r.message()
	r.request()
	assert.EqualError(t, r.Error, "timeout")
}

func TestBuilder_UserPrompt(t *testing.T) {
	msg := New().WithSender("network optimizer").UserPrompt("check qos profiles")

	assert.Equal(t, "network optimizer", msg.Sender)
	assert.Equal(t, "check qos profiles", msg.Payload.Content.Content)
	assert.False(t, time.Time(msg.Timestamp).IsZero())
}

func TestBuilder_UserPromptMultipart(t *testing.T) {
	msg := New().UserPromptMultipart(
		TextContentPart{Text: "inspect this topology"},
		ImageContentPart{URL: "https://example.com/topology.png"},
	)

	require.Len(t, msg.Payload.Content.Parts, 2)
	assert.IsType(t, TextContentPart{}, msg.Payload.Content.Parts[0])
	assert.IsType(t, ImageContentPart{}, msg.Payload.Content.Parts[1])
}

func TestBuilder_Instructions(t *testing.T) {
	msg := New().Instructions("you curate community contributions")
	assert.Equal(t, "you curate community contributions", msg.Payload.Content)
}

func TestBuilder_AssistantRefusal(t *testing.T) {
	msg := New().AssistantRefusal("cannot modify production devices")
	assert.Equal(t, "cannot modify production devices", msg.Payload.Content.Refusal)
}

func TestBuilder_ToolError(t *testing.T) {
	err := errors.New("device unreachable")
	msg := New().ToolError(err, "call-9", "analyze_network_performance")

	assert.Equal(t, err, msg.Payload.Error)
	assert.Equal(t, "call-9", msg.Payload.ToolCallID)
}

func TestBuilder_WithTimestamp(t *testing.T) {
	ts := strfmt.DateTime(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	msg := New().WithTimestamp(ts).UserPrompt("hello")
	assert.Equal(t, ts.String(), msg.Timestamp.String())
}

func TestMessage_MarshalRoundTrip(t *testing.T) {
	runID := uuid.New()
	turnID := uuid.New()
	meta := gjson.Parse(`{"channel":"lab"}`)

	msg := New().WithSender("predictor").WithMetadata(meta).UserPrompt("forecast failures")
	msg.RunID = runID
	msg.TurnID = turnID

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	assert.Equal(t, runID.String(), gjson.GetBytes(data, "run_id").String())
	assert.Equal(t, "forecast failures", gjson.GetBytes(data, "payload.content").String())
	assert.Equal(t, "lab", gjson.GetBytes(data, "meta.channel").String())

	var decoded Message[UserMessage]
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, runID, decoded.RunID)
	assert.Equal(t, turnID, decoded.TurnID)
	assert.Equal(t, "predictor", decoded.Sender)
	assert.Equal(t, "forecast failures", decoded.Payload.Content.Content)
	assert.Equal(t, "lab", decoded.Meta.Get("channel").String())
}

func TestMessage_ErasedPayloadRoundTrip(t *testing.T) {
	src := New().WithSender("deployer").ToolCall([]ToolCallData{
		{ID: "call-5", Name: "validate_deployment", Arguments: `{"spec":"svc.yaml"}`},
	})
	erased := Message[ModelMessage]{
		RunID:     uuid.New(),
		TurnID:    uuid.New(),
		Payload:   src.Payload,
		Sender:    src.Sender,
		Timestamp: src.Timestamp,
	}

	data, err := json.Marshal(erased)
	require.NoError(t, err)
	assert.Equal(t, "tool_call", gjson.GetBytes(data, "payload.type").String())

	var decoded Message[ModelMessage]
	require.NoError(t, json.Unmarshal(data, &decoded))
	payload, ok := decoded.Payload.(ToolCallMessage)
	require.True(t, ok)
	require.Len(t, payload.ToolCalls, 1)
	assert.Equal(t, "validate_deployment", payload.ToolCalls[0].Name)
}

func TestMessage_UnmarshalInvalid(t *testing.T) {
	var msg Message[UserMessage]
	require.Error(t, msg.UnmarshalJSON([]byte(`{not json`)))
	require.Error(t, msg.UnmarshalJSON([]byte(`{"run_id":"not-a-uuid"}`)))
}

func TestContentParts_RoundTrip(t *testing.T) {
	parts := ContentOrParts{Parts: []ContentPart{
		TextContentPart{Text: "latency report"},
		ImageContentPart{URL: "https://example.com/graph.png"},
		ImageContentPart{URL: "https://example.com/rack.png", Detail: "high"},
	}}

	data, err := json.Marshal(parts)
	require.NoError(t, err)
	assert.Equal(t, "text", gjson.GetBytes(data, "0.type").String())
	assert.Equal(t, "image", gjson.GetBytes(data, "1.type").String())
	assert.False(t, gjson.GetBytes(data, "1.detail").Exists())
	assert.Equal(t, "high", gjson.GetBytes(data, "2.detail").String())

	var decoded ContentOrParts
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Parts, 3)
	assert.Equal(t, parts.Parts[0], decoded.Parts[0])
	assert.Equal(t, parts.Parts[1], decoded.Parts[1])
	assert.Equal(t, parts.Parts[2], decoded.Parts[2])
}

func TestAssistantContentParts_RoundTrip(t *testing.T) {
	parts := AssistantContentOrParts{Parts: []AssistantContentPart{
		TextContentPart{Text: "all checks passed"},
		RefusalContentPart{Refusal: "no direct device access"},
	}}

	data, err := json.Marshal(parts)
	require.NoError(t, err)

	var decoded AssistantContentOrParts
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Parts, 2)
	assert.Equal(t, parts.Parts[0], decoded.Parts[0])
	assert.Equal(t, parts.Parts[1], decoded.Parts[1])
}
