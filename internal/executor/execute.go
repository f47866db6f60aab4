package executor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/events"
	"github.com/prplworks/cpeforge/internal/shorttermmemory"
	"github.com/prplworks/cpeforge/pkg/stdx"
	"github.com/prplworks/cpeforge/pkg/uuidx"
	"github.com/prplworks/cpeforge/provider"
	"github.com/prplworks/cpeforge/types"
	"github.com/tidwall/gjson"
)

// Structured Outputs accepts a subset of JSON schema, these reflector flags
// keep the generated schema inside that subset.
var reflector = jsonschema.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
}

// ToJSONSchema reflects T into the schema form the model providers accept
// for structured output.
func ToJSONSchema[T any]() *jsonschema.Schema {
	var v T
	return reflector.Reflect(v)
}

// RunCommand is a single agent turn handed to an Executor: the agent, the
// conversation thread it operates on, and the hook observing its events.
type RunCommand struct {
	id               uuid.UUID
	Agent            api.Agent
	Thread           *shorttermmemory.Aggregator
	StructuredOutput *provider.StructuredOutput
	Stream           bool
	MaxTurns         int
	ContextVariables types.ContextVars
	Hook             events.Hook
}

func NewRunCommand(agent api.Agent, thread *shorttermmemory.Aggregator, hook events.Hook) (RunCommand, error) {
	var err error
	if agent == nil {
		err = errors.Join(err, errors.New("agent is required"))
	}
	if thread == nil {
		err = errors.Join(err, errors.New("thread is required"))
	}
	if hook == nil {
		err = errors.Join(err, errors.New("hook is required"))
	}
	if err != nil {
		return RunCommand{}, err
	}

	return RunCommand{
		id:       uuidx.New(),
		Agent:    agent,
		Thread:   thread,
		Hook:     hook,
		MaxTurns: math.MaxInt,
	}, nil
}

func (r *RunCommand) Validate() error {
	if r.Agent == nil {
		return fmt.Errorf("agent cannot be nil")
	}
	if r.Thread == nil {
		return fmt.Errorf("thread cannot be nil")
	}
	if r.Hook == nil {
		return fmt.Errorf("hook cannot be nil")
	}
	return nil
}

// initializeContextVars clones the command's variables so tool mutations in
// one turn never leak back into the caller's map.
func (r *RunCommand) initializeContextVars() types.ContextVars {
	if r.ContextVariables == nil {
		return nil
	}
	return maps.Clone(r.ContextVariables)
}

func (r *RunCommand) ID() uuid.UUID {
	return r.id
}

func (r RunCommand) WithStream(stream bool) RunCommand {
	r.Stream = stream
	return r
}

func (r RunCommand) WithMaxTurns(maxTurns int) RunCommand {
	r.MaxTurns = maxTurns
	return r
}

func (r RunCommand) WithContextVariables(contextVariables types.ContextVars) RunCommand {
	r.ContextVariables = contextVariables
	return r
}

func (r RunCommand) WithStructuredOutput(output *provider.StructuredOutput) RunCommand {
	r.StructuredOutput = output
	return r
}

// DefaultUnmarshal picks the decoder for a run result. gjson results and
// plain strings pass through untouched, everything else goes through JSON.
func DefaultUnmarshal[T any]() func([]byte) (T, error) {
	var t T
	if _, ok := any(t).(gjson.Result); ok {
		return func(data []byte) (T, error) {
			return any(gjson.ParseBytes(data)).(T), nil
		}
	}
	if reflect.TypeFor[T]().Kind() == reflect.String {
		return func(data []byte) (T, error) {
			return any(string(data)).(T), nil
		}
	}
	return func(data []byte) (T, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return v, err
		}
		return v, nil
	}
}

// Promise is the write side of a pending run result.
type Promise interface {
	Complete(string)
	Error(error)
}

// Future is the read side, Get blocks until the run settles.
type Future[T any] interface {
	Get() (T, error)
}

// CompletableFuture joins both sides for the party that owns the run.
type CompletableFuture[T any] interface {
	Future[T]
	Promise
}

type futState struct {
	value string
	err   error
}

type futResult[T any] struct {
	result T
	err    error
	done   bool
}

type future[T any] struct {
	unmarshal func([]byte) (T, error)
	ch        chan futState
	result    atomic.Value // holds *futResult[T]
	once      sync.Once
	mu        sync.Mutex
}

func NewFuture[T any](unmarshal func([]byte) (T, error)) CompletableFuture[T] {
	f := &future[T]{
		unmarshal: unmarshal,
		ch:        make(chan futState, 1),
	}
	f.result.Store(&futResult[T]{})
	return f
}

func (f *future[T]) Get() (T, error) {
	res := f.result.Load().(*futResult[T])
	if res.done {
		return res.result, res.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// another Get may have settled while we waited for the lock
	res = f.result.Load().(*futResult[T])
	if res.done {
		return res.result, res.err
	}

	r := <-f.ch
	settled := futResult[T]{done: true}
	if r.err != nil {
		settled.result = stdx.Zero[T]()
		settled.err = r.err
	} else {
		settled.result, settled.err = f.unmarshal([]byte(r.value))
	}
	f.result.Store(&settled)
	return settled.result, settled.err
}

func (f *future[T]) Complete(data string) {
	f.once.Do(func() {
		f.ch <- futState{value: data}
	})
}

func (f *future[T]) Error(err error) {
	f.once.Do(func() {
		f.ch <- futState{err: err}
	})
}

// Executor drives agent turns to completion, resolving tool calls and agent
// handoffs along the way.
type Executor interface {
	Run(context.Context, RunCommand, Promise) error
	handleToolCalls(ctx context.Context, params toolCallParams) (api.Agent, error)
}
