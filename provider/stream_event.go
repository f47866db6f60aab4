package provider

import (
	"errors"
	"fmt"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prplworks/cpeforge/internal/shorttermmemory"
	"github.com/prplworks/cpeforge/messages"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// StreamEvent is the union of events a provider emits during a completion.
type StreamEvent interface {
	streamEvent()
}

// Delim marks the start or end of a streamed segment.
type Delim struct {
	RunID  uuid.UUID `json:"run_id"`
	TurnID uuid.UUID `json:"turn_id"`
	Delim  string    `json:"delim"`
}

func (Delim) streamEvent() {}

// Chunk is an incremental piece of a streamed response.
type Chunk[T messages.Response] struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Chunk     T               `json:"chunk"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

func (Chunk[T]) streamEvent() {}

// Response is a completed model response together with the memory checkpoint
// taken when it was produced.
type Response[T messages.Response] struct {
	RunID      uuid.UUID                  `json:"run_id"`
	TurnID     uuid.UUID                  `json:"turn_id"`
	Checkpoint shorttermmemory.Checkpoint `json:"checkpoint"`
	Response   T                          `json:"response"`
	Timestamp  strfmt.DateTime            `json:"timestamp,omitempty"`
	Meta       gjson.Result               `json:"meta,omitempty"`
}

func (Response[T]) streamEvent() {}

// Error reports a provider failure for the run.
type Error struct {
	RunID     uuid.UUID       `json:"run_id"`
	TurnID    uuid.UUID       `json:"turn_id"`
	Err       error           `json:"error"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

func (Error) streamEvent() {}

func (e Error) Error() string {
	return fmt.Sprintf("run_id: %s, turn_id: %s, timestamp: %s, error: %v", e.RunID, e.TurnID, e.Timestamp, e.Err)
}

// ChunkToMessage copies a chunk's identity and payload into a message
// envelope. The payload types must agree.
func ChunkToMessage[T messages.Response, M messages.ModelMessage](dst *messages.Message[M], src Chunk[T]) {
	dst.RunID = src.RunID
	dst.TurnID = src.TurnID
	dst.Timestamp = src.Timestamp
	dst.Meta = src.Meta
	payload, ok := any(src.Chunk).(M)
	if !ok {
		panic(fmt.Sprintf("invalid chunk type: %T", src.Chunk))
	}
	dst.Payload = payload
}

// ResponseToMessage copies a response's identity and payload into a message
// envelope. The payload types must agree.
func ResponseToMessage[T messages.Response, M messages.ModelMessage](dst *messages.Message[M], src Response[T]) {
	dst.RunID = src.RunID
	dst.TurnID = src.TurnID
	dst.Timestamp = src.Timestamp
	dst.Meta = src.Meta
	payload, ok := any(src.Response).(M)
	if !ok {
		panic(fmt.Sprintf("invalid response type: %T", src.Response))
	}
	dst.Payload = payload
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

func encodeTrailer(out []byte, ts strfmt.DateTime, meta gjson.Result) ([]byte, error) {
	var err error
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

func decodeTrailer(jv gjson.Result, ts *strfmt.DateTime, meta *gjson.Result) error {
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
	return encodeTrailer(out, c.Timestamp, c.Meta)
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
	return decodeTrailer(jv, &c.Timestamp, &c.Meta)
}

func (r Response[T]) MarshalJSON() ([]byte, error) {
	out, err := encodeIdentity("response", r.RunID, r.TurnID)
	if err != nil {
		return nil, err
	}
	cpj, err := json.Marshal(r.Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if out, err = sjson.SetRawBytes(out, "checkpoint", cpj); err != nil {
		return nil, err
	}
	responseBytes, err := json.Marshal(r.Response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	if out, err = sjson.SetRawBytes(out, "response", responseBytes); err != nil {
		return nil, err
	}
	return encodeTrailer(out, r.Timestamp, r.Meta)
}

func (r *Response[T]) UnmarshalJSON(data []byte) error {
	jv, err := decodeIdentity(data, "response", &r.RunID, &r.TurnID)
	if err != nil {
		return err
	}
	checkpoint := jv.Get("checkpoint")
	if !checkpoint.Exists() {
		return errors.New("missing required field 'checkpoint'")
	}
	if err := json.Unmarshal([]byte(checkpoint.Raw), &r.Checkpoint); err != nil {
		return fmt.Errorf("invalid checkpoint: %w", err)
	}
	response := jv.Get("response")
	if !response.Exists() {
		return errors.New("missing required field 'response'")
	}
	if err := json.Unmarshal([]byte(response.Raw), &r.Response); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return decodeTrailer(jv, &r.Timestamp, &r.Meta)
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
	return encodeTrailer(out, e.Timestamp, e.Meta)
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
	return decodeTrailer(jv, &e.Timestamp, &e.Meta)
}
