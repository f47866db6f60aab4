package cpeforge

import (
	"context"
	"reflect"

	"github.com/fogfish/opts"
	"github.com/invopop/jsonschema"
	"github.com/nats-io/nats.go"
	"github.com/tidwall/gjson"
	"go.temporal.io/sdk/client"

	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/events"
	"github.com/prplworks/cpeforge/internal/broker"
	"github.com/prplworks/cpeforge/internal/executor"
	"github.com/prplworks/cpeforge/internal/shorttermmemory"
	"github.com/prplworks/cpeforge/pkg/natsx"
	"github.com/prplworks/cpeforge/pkg/tprl"
	"github.com/prplworks/cpeforge/provider"
	"github.com/prplworks/cpeforge/types"
)

// ExecutionContext carries everything a crew run needs: the executor that
// drives each step, the hook receiving events, and the promise the final
// step resolves.
type ExecutionContext struct {
	executor       executor.Executor
	hook           events.Hook
	promise        executor.Promise
	responseSchema *provider.StructuredOutput
	contextVars    types.ContextVars
	onClose        func(context.Context)
	stream         bool
	maxTurns       int
}

var (
	WithContextVars = opts.ForName[ExecutionContext, types.ContextVars]("contextVars")
	Streaming       = opts.ForName[ExecutionContext, bool]("stream")
	WithMaxTurns    = opts.ForName[ExecutionContext, int]("maxTurns")
)

// StructuredOutput constrains the final step's response to the JSON schema
// derived from T. It is a no-op for string and gjson.Result targets.
func StructuredOutput[T any](name, description string) opts.Option[ExecutionContext] {
	return opts.Type[ExecutionContext](func(s *ExecutionContext) error {
		schema := jsonSchema[T]()
		if schema != nil {
			s.responseSchema = &provider.StructuredOutput{
				Name:        name,
				Description: description,
				Schema:      schema,
			}
		}
		return nil
	})
}

func jsonSchema[T any]() *jsonschema.Schema {
	var schema *jsonschema.Schema
	var isGjsonResult bool
	var t T
	_, isGjsonResult = any(t).(gjson.Result)
	isString := reflect.TypeFor[T]().Kind() == reflect.String

	if !isGjsonResult && !isString {
		schema = executor.ToJSONSchema[T]()
	}

	return schema
}

// Local builds an execution context that runs every step in process.
func Local[T any](hook Hook[T], options ...opts.Option[ExecutionContext]) ExecutionContext {
	fut := executor.NewFuture(executor.DefaultUnmarshal[T]())
	dp := &deferredPromise[T]{
		promise: fut,
		hook:    hook,
	}

	execCtx := ExecutionContext{
		executor: executor.NewLocal(),
		hook:     hook,
		promise:  dp,
		onClose: func(ctx context.Context) {
			dp.Forward(ctx)
			hook.OnClose(ctx)
		},
	}

	if err := opts.Apply(&execCtx, options); err != nil {
		panic(err)
	}

	return execCtx
}

// Durable builds an execution context that hands each step to a Temporal
// workflow. Streamed events come back over NATS, so the connection must
// reach the same cluster the workers publish to.
func Durable[T any](c client.Client, nc *nats.Conn, hook Hook[T], options ...opts.Option[ExecutionContext]) ExecutionContext {
	fut := executor.NewFuture(executor.DefaultUnmarshal[T]())
	dp := &deferredPromise[T]{
		promise: fut,
		hook:    hook,
	}

	execCtx := ExecutionContext{
		executor: executor.NewTemporalProxy(c, broker.NATS[string](nc)),
		hook:     hook,
		promise:  dp,
		onClose: func(ctx context.Context) {
			dp.Forward(ctx)
			hook.OnClose(ctx)
		},
	}

	if err := opts.Apply(&execCtx, options); err != nil {
		panic(err)
	}

	return execCtx
}

// DurableFromEnv is a convenience wrapper around Durable that dials both
// backends from the environment: Temporal at TEMPORAL_ADDRESS and NATS at
// NATS_URL. The Temporal client is lazy, so only the NATS connection is
// established here.
func DurableFromEnv[T any](hook Hook[T], options ...opts.Option[ExecutionContext]) (ExecutionContext, error) {
	tc, err := tprl.NewClient()
	if err != nil {
		return ExecutionContext{}, err
	}
	nc, err := natsx.NewClient()
	if err != nil {
		tc.Close()
		return ExecutionContext{}, err
	}
	return Durable(tc, nc, hook, options...), nil
}

func (e *ExecutionContext) createCommand(agent api.Agent, mem *shorttermmemory.Aggregator) (executor.RunCommand, error) {
	cmd, err := executor.NewRunCommand(agent, mem, e.hook)
	if err != nil {
		return executor.RunCommand{}, err
	}
	if len(e.contextVars) > 0 {
		cmd = cmd.WithContextVariables(e.contextVars)
	}
	if e.responseSchema != nil {
		cmd = cmd.WithStructuredOutput(e.responseSchema)
	}
	if e.stream {
		cmd = cmd.WithStream(e.stream)
	}
	if e.maxTurns > 0 {
		cmd = cmd.WithMaxTurns(e.maxTurns)
	}
	return cmd, nil
}
