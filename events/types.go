package events

import (
	"errors"
	"fmt"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prplworks/cpeforge/messages"
	"github.com/prplworks/cpeforge/provider"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Event is the union of serializable run events that travel over a broker.
type Event interface {
	event()
}

// FromStreamEvent lifts a provider stream event into a broker event, stamping
// the sending agent.
func FromStreamEvent(e provider.StreamEvent, sender string) Event {
	switch event := e.(type) {
	case provider.Delim:
		return Delim(event)
	case provider.Chunk[messages.ToolCallMessage]:
		return Chunk[messages.ToolCallMessage]{
			RunID:     event.RunID,
			TurnID:    event.TurnID,
			Chunk:     event.Chunk,
			Sender:    sender,
			Timestamp: event.Timestamp,
			Meta:      event.Meta,
		}
	case provider.Chunk[messages.AssistantMessage]:
		return Chunk[messages.AssistantMessage]{
			RunID:     event.RunID,
			TurnID:    event.TurnID,
			Chunk:     event.Chunk,
			Sender:    sender,
			Timestamp: event.Timestamp,
			Meta:      event.Meta,
		}
	case provider.Response[messages.ToolCallMessage]:
		return Response[messages.ToolCallMessage]{
			RunID:     event.RunID,
			TurnID:    event.TurnID,
			Response:  event.Response,
			Sender:    sender,
			Timestamp: event.Timestamp,
			Meta:      event.Meta,
		}
	case provider.Response[messages.AssistantMessage]:
		return Response[messages.AssistantMessage]{
			RunID:     event.RunID,
			TurnID:    event.TurnID,
			Response:  event.Response,
			Sender:    sender,
			Timestamp: event.Timestamp,
			Meta:      event.Meta,
		}
	case provider.Error:
		return Error{
			RunID:     event.RunID,
			TurnID:    event.TurnID,
			Err:       event.Err,
			Sender:    sender,
			Timestamp: event.Timestamp,
			Meta:      event.Meta,
		}
	default:
		panic(fmt.Sprintf("unknown event type: %T", event))
	}
}

type Delim struct {
	RunID  uuid.UUID `json:"run_id"`
	TurnID uuid.UUID `json:"turn_id"`
	Delim  string    `json:"delim"`
}

func (Delim) event() {}

type Chunk[T messages.Response] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Chunk     T               `json:"chunk"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

func (Chunk[T]) event() {}

type Request[T messages.Request] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Message   T               `json:"message"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

func (Request[T]) event() {}

type Response[T messages.Response] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Response  T               `json:"response"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

func (Response[T]) event() {}

// Result carries the final outcome of a run to subscribers.
type Result[T any] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Result    T               `json:"result"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

func (Result[T]) event() {}

type Error struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Err       error           `json:"error"`
	Sender    string          `json:"sender,omitempty"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

func (Error) event() {}

func (e Error) Error() string {
	return fmt.Sprintf("run_id: %s, turn_id: %s, sender: %s, timestamp: %s, error: %v", e.RunID, e.TurnID, e.Sender, e.Timestamp, e.Err)
}

// ToJSON serializes any event to its type-tagged wire form.
func ToJSON(event Event) ([]byte, error) {
	switch ev := event.(type) {
	case interface{ MarshalJSON() ([]byte, error) }:
		return ev.MarshalJSON()
	default:
		return nil, fmt.Errorf("unsupported event type: %T", event)
	}
}

// FromJSON restores an event from its wire form, dispatching on the outer
// event type and the embedded message type.
func FromJSON(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json: %s", data)
	}
	jv := gjson.ParseBytes(data)

	switch tpe := jv.Get("type").String(); tpe {
	case "delim":
		var d Delim
		return d, d.UnmarshalJSON(data)
	case "chunk":
		switch inner := jv.Get("chunk.type").String(); inner {
		case "assistant":
			var c Chunk[messages.AssistantMessage]
			return c, c.UnmarshalJSON(data)
		case "tool_call":
			var c Chunk[messages.ToolCallMessage]
			return c, c.UnmarshalJSON(data)
		default:
			return nil, fmt.Errorf("unknown chunk type %q", inner)
		}
	case "request":
		switch inner := jv.Get("message.type").String(); inner {
		case "user":
			var r Request[messages.UserMessage]
			return r, r.UnmarshalJSON(data)
		case "tool_response":
			var r Request[messages.ToolResponse]
			return r, r.UnmarshalJSON(data)
		default:
			return nil, fmt.Errorf("unknown request message type %q", inner)
		}
	case "response":
		switch inner := jv.Get("response.type").String(); inner {
		case "assistant":
			var r Response[messages.AssistantMessage]
			return r, r.UnmarshalJSON(data)
		case "tool_call":
			var r Response[messages.ToolCallMessage]
			return r, r.UnmarshalJSON(data)
		default:
			return nil, fmt.Errorf("unknown response type %q", inner)
		}
	case "result":
		var r Result[gjson.Result]
		return r, r.UnmarshalJSON(data)
	case "error":
		var e Error
		return e, e.UnmarshalJSON(data)
	default:
		return nil, fmt.Errorf("unknown event type %q", tpe)
	}
}

func encodeIdentity(eventType string, runID, turnID uuid.UUID) ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{}`), "type", eventType)
	if err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "run_id", runID.String()); err != nil {
		return nil, err
	}
	return sjson.SetBytes(out, "turn_id", turnID.String())
}

func encodeTrailer(out []byte, sender string, ts strfmt.DateTime, meta gjson.Result) ([]byte, error) {
	var err error
	if sender != "" {
		if out, err = sjson.SetBytes(out, "sender", sender); err != nil {
			return nil, err
		}
	}
	if !ts.IsZero() {
		if out, err = sjson.SetBytes(out, "timestamp", ts.String()); err != nil {
			return nil, err
		}
	}
	if meta.Exists() {
		if out, err = sjson.SetRawBytes(out, "meta", []byte(meta.Raw)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeIdentity(data []byte, eventType string, runID, turnID *uuid.UUID) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("invalid json: %s", data)
	}
	jv := gjson.ParseBytes(data)

	if tpe := jv.Get("type"); !tpe.Exists() || tpe.String() != eventType {
		return jv, fmt.Errorf("missing or invalid type, expected %q", eventType)
	}
	id := jv.Get("run_id")
	if !id.Exists() {
		return jv, errors.New("missing required field 'run_id'")
	}
	if err := runID.UnmarshalText([]byte(id.String())); err != nil {
		return jv, fmt.Errorf("invalid run_id: %w", err)
	}
	id = jv.Get("turn_id")
	if !id.Exists() {
		return jv, errors.New("missing required field 'turn_id'")
	}
	if err := turnID.UnmarshalText([]byte(id.String())); err != nil {
		return jv, fmt.Errorf("invalid turn_id: %w", err)
	}
	return jv, nil
}

func decodeTrailer(jv gjson.Result, sender *string, ts *strfmt.DateTime, meta *gjson.Result) error {
	*sender = jv.Get("sender").String()
	if timestamp := jv.Get("timestamp"); timestamp.Exists() {
		if err := ts.UnmarshalText([]byte(timestamp.String())); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
	}
	if m := jv.Get("meta"); m.Exists() {
		*meta = m
	}
	return nil
}

func (d Delim) MarshalJSON() ([]byte, error) {
	out, err := encodeIdentity("delim", d.RunID, d.TurnID)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(out, "delim", d.Delim)
}

func (d *Delim) UnmarshalJSON(data []byte) error {
	jv, err := decodeIdentity(data, "delim", &d.RunID, &d.TurnID)
	if err != nil {
		return err
	}
	delim := jv.Get("delim")
	if !delim.Exists() {
		return errors.New("missing required field 'delim'")
	}
	d.Delim = delim.String()
	return nil
}

func (c Chunk[T]) MarshalJSON() ([]byte, error) {
	out, err := encodeIdentity("chunk", c.RunID, c.TurnID)
	if err != nil {
		return nil, err
	}
	chunkBytes, err := json.Marshal(c.Chunk)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chunk: %w", err)
	}
	if out, err = sjson.SetRawBytes(out, "chunk", chunkBytes); err != nil {
		return nil, err
	}
	return encodeTrailer(out, c.Sender, c.Timestamp, c.Meta)
}

func (c *Chunk[T]) UnmarshalJSON(data []byte) error {
	jv, err := decodeIdentity(data, "chunk", &c.RunID, &c.TurnID)
	if err != nil {
		return err
	}
	chunk := jv.Get("chunk")
	if !chunk.Exists() {
		return errors.New("missing required field 'chunk'")
	}
	if err := json.Unmarshal([]byte(chunk.Raw), &c.Chunk); err != nil {
		return fmt.Errorf("invalid chunk: %w", err)
	}
	return decodeTrailer(jv, &c.Sender, &c.Timestamp, &c.Meta)
}

func (r Request[T]) MarshalJSON() ([]byte, error) {
	out, err := encodeIdentity("request", r.RunID, r.TurnID)
	if err != nil {
		return nil, err
	}
	msgBytes, err := json.Marshal(r.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	if out, err = sjson.SetRawBytes(out, "message", msgBytes); err != nil {
		return nil, err
	}
	return encodeTrailer(out, r.Sender, r.Timestamp, r.Meta)
}

func (r *Request[T]) UnmarshalJSON(data []byte) error {
	jv, err := decodeIdentity(data, "request", &r.RunID, &r.TurnID)
	if err != nil {
		return err
	}
	message := jv.Get("message")
	if !message.Exists() {
		return errors.New("missing required field 'message'")
	}
	if !message.IsObject() {
		return fmt.Errorf("invalid message: %s", message.Raw)
	}
	if err := json.Unmarshal([]byte(message.Raw), &r.Message); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	return decodeTrailer(jv, &r.Sender, &r.Timestamp, &r.Meta)
}

func (r Response[T]) MarshalJSON() ([]byte, error) {
	out, err := encodeIdentity("response", r.RunID, r.TurnID)
	if err != nil {
		return nil, err
	}
	respBytes, err := json.Marshal(r.Response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	if out, err = sjson.SetRawBytes(out, "response", respBytes); err != nil {
		return nil, err
	}
	return encodeTrailer(out, r.Sender, r.Timestamp, r.Meta)
}

func (r *Response[T]) UnmarshalJSON(data []byte) error {
	jv, err := decodeIdentity(data, "response", &r.RunID, &r.TurnID)
	if err != nil {
		return err
	}
	response := jv.Get("response")
	if !response.Exists() {
		return errors.New("missing required field 'response'")
	}
	if !response.IsObject() {
		return fmt.Errorf("invalid response: %s", response.Raw)
	}
	if err := json.Unmarshal([]byte(response.Raw), &r.Response); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return decodeTrailer(jv, &r.Sender, &r.Timestamp, &r.Meta)
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	out, err := encodeIdentity("result", r.RunID, r.TurnID)
	if err != nil {
		return nil, err
	}
	resBytes, err := json.Marshal(r.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	if out, err = sjson.SetRawBytes(out, "result", resBytes); err != nil {
		return nil, err
	}
	return encodeTrailer(out, r.Sender, r.Timestamp, r.Meta)
}

func (r *Result[T]) UnmarshalJSON(data []byte) error {
	jv, err := decodeIdentity(data, "result", &r.RunID, &r.TurnID)
	if err != nil {
		return err
	}
	result := jv.Get("result")
	if !result.Exists() {
		return errors.New("missing required field 'result'")
	}
	if _, ok := any(r.Result).(gjson.Result); ok {
		r.Result = any(result).(T)
	} else if err := json.Unmarshal([]byte(result.Raw), &r.Result); err != nil {
		return fmt.Errorf("invalid result: %w", err)
	}
	return decodeTrailer(jv, &r.Sender, &r.Timestamp, &r.Meta)
}

func (e Error) MarshalJSON() ([]byte, error) {
	out, err := encodeIdentity("error", e.RunID, e.TurnID)
	if err != nil {
		return nil, err
	}
	if e.Err != nil {
		if out, err = sjson.SetBytes(out, "error", e.Err.Error()); err != nil {
			return nil, err
		}
	}
	return encodeTrailer(out, e.Sender, e.Timestamp, e.Meta)
}

func (e *Error) UnmarshalJSON(data []byte) error {
	jv, err := decodeIdentity(data, "error", &e.RunID, &e.TurnID)
	if err != nil {
		return err
	}
	errMsg := jv.Get("error")
	if !errMsg.Exists() {
		return errors.New("missing required field 'error'")
	}
	e.Err = errors.New(errMsg.String())
	return decodeTrailer(jv, &e.Sender, &e.Timestamp, &e.Meta)
}
