package messages

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ModelMessage marks every payload type that can travel through a
// conversation thread.
type ModelMessage interface {
	message()
}

// Request marks payloads that flow toward the model (user prompts, tool
// responses).
type Request interface {
	ModelMessage
	request()
}

// Response marks payloads produced by the model (assistant messages, tool
// calls).
type Response interface {
	ModelMessage
	response()
}

// Message wraps a payload with its run identity and provenance.
type Message[T ModelMessage] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Payload   T               `json:"payload"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

// MarshalJSON flattens the envelope: identity fields plus the payload under
// "payload". Meta is embedded raw when present.
func (m Message[T]) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	out := []byte(`{}`)
	if out, err = sjson.SetBytes(out, "run_id", m.RunID.String()); err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "turn_id", m.TurnID.String()); err != nil {
		return nil, err
	}
	if out, err = sjson.SetRawBytes(out, "payload", payload); err != nil {
		return nil, err
	}
	if m.Sender != "" {
		if out, err = sjson.SetBytes(out, "sender", m.Sender); err != nil {
			return nil, err
		}
	}
	if !time.Time(m.Timestamp).IsZero() {
		if out, err = sjson.SetBytes(out, "timestamp", m.Timestamp.String()); err != nil {
			return nil, err
		}
	}
	if m.Meta.Exists() {
		if out, err = sjson.SetRawBytes(out, "meta", []byte(m.Meta.Raw)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *Message[T]) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}
	jv := gjson.ParseBytes(data)

	if runID := jv.Get("run_id"); runID.Exists() {
		if err := m.RunID.UnmarshalText([]byte(runID.String())); err != nil {
			return fmt.Errorf("invalid run_id: %w", err)
		}
	}
	if turnID := jv.Get("turn_id"); turnID.Exists() {
		if err := m.TurnID.UnmarshalText([]byte(turnID.String())); err != nil {
			return fmt.Errorf("invalid turn_id: %w", err)
		}
	}
	if payload := jv.Get("payload"); payload.Exists() {
		if reflect.TypeFor[T]().Kind() == reflect.Interface {
			decoded, err := DecodeModelMessage([]byte(payload.Raw))
			if err != nil {
				return err
			}
			typed, ok := decoded.(T)
			if !ok {
				return fmt.Errorf("payload type %q does not satisfy %T", payload.Get("type").String(), m.Payload)
			}
			m.Payload = typed
		} else if err := json.Unmarshal([]byte(payload.Raw), &m.Payload); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
	}
	m.Sender = jv.Get("sender").String()
	if ts := jv.Get("timestamp"); ts.Exists() {
		if err := m.Timestamp.UnmarshalText([]byte(ts.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}
	if meta := jv.Get("meta"); meta.Exists() {
		m.Meta = meta
	}
	return nil
}

// DecodeModelMessage decodes a payload document by its embedded type tag.
func DecodeModelMessage(raw []byte) (ModelMessage, error) {
	switch tpe := gjson.GetBytes(raw, "type").String(); tpe {
	case "instructions":
		var p InstructionsMessage
		return p, json.Unmarshal(raw, &p)
	case "user":
		var p UserMessage
		return p, json.Unmarshal(raw, &p)
	case "assistant":
		var p AssistantMessage
		return p, json.Unmarshal(raw, &p)
	case "tool_call":
		var p ToolCallMessage
		return p, json.Unmarshal(raw, &p)
	case "tool_response":
		var p ToolResponse
		return p, json.Unmarshal(raw, &p)
	case "retry":
		var p Retry
		return p, json.Unmarshal(raw, &p)
	default:
		return nil, fmt.Errorf("unknown message type %q", tpe)
	}
}

// InstructionsMessage carries rendered system instructions.
type InstructionsMessage struct {
	Content string `json:"content"`
	_       struct{}
}

func (InstructionsMessage) message() {}

func (i InstructionsMessage) MarshalJSON() ([]byte, error) {
	return sjson.SetBytes([]byte(`{"type":"instructions"}`), "content", i.Content)
}

func (i *InstructionsMessage) UnmarshalJSON(data []byte) error {
	jv, err := typedPayload(data, "instructions")
	if err != nil {
		return err
	}
	i.Content = jv.Get("content").String()
	return nil
}

// UserMessage is a prompt from the user or the crew driver.
type UserMessage struct {
	Content ContentOrParts `json:"content"`
	_       struct{}
}

func (UserMessage) message() {}
func (UserMessage) request() {}

func (u UserMessage) MarshalJSON() ([]byte, error) {
	content, err := json.Marshal(u.Content)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes([]byte(`{"type":"user"}`), "content", content)
}

func (u *UserMessage) UnmarshalJSON(data []byte) error {
	jv, err := typedPayload(data, "user")
	if err != nil {
		return err
	}
	if content := jv.Get("content"); content.Exists() {
		return u.Content.UnmarshalJSON([]byte(content.Raw))
	}
	return nil
}

// AssistantMessage is a completed model response.
type AssistantMessage struct {
	Content AssistantContentOrParts `json:"content"`
	Refusal string                  `json:"refusal,omitempty"`
	_       struct{}
}

func (AssistantMessage) message()  {}
func (AssistantMessage) response() {}

func (a AssistantMessage) MarshalJSON() ([]byte, error) {
	content, err := json.Marshal(a.Content)
	if err != nil {
		return nil, err
	}
	out, err := sjson.SetRawBytes([]byte(`{"type":"assistant"}`), "content", content)
	if err != nil {
		return nil, err
	}
	if a.Refusal != "" {
		return sjson.SetBytes(out, "refusal", a.Refusal)
	}
	return out, nil
}

func (a *AssistantMessage) UnmarshalJSON(data []byte) error {
	jv, err := typedPayload(data, "assistant")
	if err != nil {
		return err
	}
	if content := jv.Get("content"); content.Exists() {
		if err := a.Content.UnmarshalJSON([]byte(content.Raw)); err != nil {
			return err
		}
	}
	a.Refusal = jv.Get("refusal").String()
	return nil
}

// ToolCallData identifies one requested tool invocation.
type ToolCallData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCallMessage is the model asking for one or more tool invocations.
type ToolCallMessage struct {
	ToolCalls []ToolCallData `json:"tool_calls"`
	_         struct{}
}

func (ToolCallMessage) message()  {}
func (ToolCallMessage) response() {}

func (tc ToolCallMessage) MarshalJSON() ([]byte, error) {
	calls, err := json.Marshal(tc.ToolCalls)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes([]byte(`{"type":"tool_call"}`), "tool_calls", calls)
}

func (tc *ToolCallMessage) UnmarshalJSON(data []byte) error {
	jv, err := typedPayload(data, "tool_call")
	if err != nil {
		return err
	}
	if calls := jv.Get("tool_calls"); calls.Exists() {
		return json.Unmarshal([]byte(calls.Raw), &tc.ToolCalls)
	}
	return nil
}

// ToolResponse carries a tool's result back into the thread.
type ToolResponse struct {
	ToolName   string `json:"tool_name"`
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	_          struct{}
}

func (ToolResponse) message() {}
func (ToolResponse) request() {}

func (tr ToolResponse) MarshalJSON() ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{"type":"tool_response"}`), "tool_name", tr.ToolName)
	if err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "tool_call_id", tr.ToolCallID); err != nil {
		return nil, err
	}
	return sjson.SetBytes(out, "content", tr.Content)
}

func (tr *ToolResponse) UnmarshalJSON(data []byte) error {
	jv, err := typedPayload(data, "tool_response")
	if err != nil {
		return err
	}
	tr.ToolName = jv.Get("tool_name").String()
	tr.ToolCallID = jv.Get("tool_call_id").String()
	tr.Content = jv.Get("content").String()
	return nil
}

// Retry reports a failed tool invocation that the model may re-attempt.
type Retry struct {
	Error      error  `json:"-"`
	ToolName   string `json:"tool_name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	_          struct{}
}

func (Retry) message() {}
func (Retry) request() {}

func (r Retry) MarshalJSON() ([]byte, error) {
	out := []byte(`{"type":"retry"}`)
	var err error
	if r.Error != nil {
		if out, err = sjson.SetBytes(out, "error", r.Error.Error()); err != nil {
			return nil, err
		}
	}
	if r.ToolName != "" {
		if out, err = sjson.SetBytes(out, "tool_name", r.ToolName); err != nil {
			return nil, err
		}
	}
	if r.ToolCallID != "" {
		if out, err = sjson.SetBytes(out, "tool_call_id", r.ToolCallID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Retry) UnmarshalJSON(data []byte) error {
	jv, err := typedPayload(data, "retry")
	if err != nil {
		return err
	}
	if errMsg := jv.Get("error"); errMsg.Exists() {
		r.Error = errors.New(errMsg.String())
	}
	r.ToolName = jv.Get("tool_name").String()
	r.ToolCallID = jv.Get("tool_call_id").String()
	return nil
}

func typedPayload(data []byte, expected string) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("invalid json: %s", data)
	}
	jv := gjson.ParseBytes(data)
	if tpe := jv.Get("type"); tpe.Exists() && tpe.String() != expected {
		return jv, fmt.Errorf("invalid message type %q, expected %q", tpe.String(), expected)
	}
	return jv, nil
}

// New starts a message builder stamped with the current time.
func New() messageBuilder { //nolint:revive // builder type intentionally unexported
	return messageBuilder{timestamp: strfmt.DateTime(time.Now())}
}

type messageBuilder struct {
	sender    string
	timestamp strfmt.DateTime
	metadata  gjson.Result
}

// WithSender sets the sender recorded on built messages.
func (b messageBuilder) WithSender(sender string) messageBuilder {
	b.sender = sender
	return b
}

// WithTimestamp overrides the builder timestamp.
func (b messageBuilder) WithTimestamp(ts strfmt.DateTime) messageBuilder {
	b.timestamp = ts
	return b
}

// WithMetadata attaches raw JSON metadata to built messages.
func (b messageBuilder) WithMetadata(meta gjson.Result) messageBuilder {
	b.metadata = meta
	return b
}

// Instructions builds an instructions message.
func (b messageBuilder) Instructions(content string) Message[InstructionsMessage] {
	return envelope(b, InstructionsMessage{Content: content})
}

// UserPrompt builds a plain-text user message.
func (b messageBuilder) UserPrompt(content string) Message[UserMessage] {
	return envelope(b, UserMessage{Content: ContentOrParts{Content: content}})
}

// UserPromptMultipart builds a user message from typed content parts.
func (b messageBuilder) UserPromptMultipart(parts ...ContentPart) Message[UserMessage] {
	return envelope(b, UserMessage{Content: ContentOrParts{Parts: parts}})
}

// AssistantMessage builds a plain-text assistant message.
func (b messageBuilder) AssistantMessage(content string) Message[AssistantMessage] {
	return envelope(b, AssistantMessage{Content: AssistantContentOrParts{Content: content}})
}

// AssistantRefusal builds an assistant refusal.
func (b messageBuilder) AssistantRefusal(refusal string) Message[AssistantMessage] {
	return envelope(b, AssistantMessage{Content: AssistantContentOrParts{Refusal: refusal}})
}

// ToolCall builds a tool-call message.
func (b messageBuilder) ToolCall(calls []ToolCallData) Message[ToolCallMessage] {
	return envelope(b, ToolCallMessage{ToolCalls: calls})
}

// ToolResponse builds a tool response for the given call.
func (b messageBuilder) ToolResponse(callID, toolName, content string) Message[ToolResponse] {
	return envelope(b, ToolResponse{ToolCallID: callID, ToolName: toolName, Content: content})
}

// ToolError builds a retryable tool failure for the given call.
func (b messageBuilder) ToolError(err error, callID, toolName string) Message[Retry] {
	return envelope(b, Retry{Error: err, ToolCallID: callID, ToolName: toolName})
}

func envelope[T ModelMessage](b messageBuilder, payload T) Message[T] {
	return Message[T]{
		Payload:   payload,
		Sender:    b.sender,
		Timestamp: b.timestamp,
		Meta:      b.metadata,
	}
}
