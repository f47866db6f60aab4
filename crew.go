package cpeforge

import (
	"context"
	"fmt"
	"slices"

	"github.com/alphadose/haxmap"
	"github.com/fogfish/opts"

	"github.com/prplworks/cpeforge/api"
	"github.com/prplworks/cpeforge/internal/executor"
	"github.com/prplworks/cpeforge/internal/shorttermmemory"
	"github.com/prplworks/cpeforge/messages"
	"github.com/prplworks/cpeforge/provider"
)

// Crew is an ordered pipeline of conversation steps over a set of agents.
// Steps share one conversation memory, so later agents see the results of
// earlier ones; only the final step resolves the caller's promise.
type Crew struct {
	name   string
	agents *haxmap.Map[string, api.Agent]
	steps  []ConversationStep
}

// Agents registers the agents a crew can dispatch steps to.
func Agents(agent api.Agent, extraAgents ...api.Agent) opts.Option[Crew] {
	return opts.Type[Crew](func(o *Crew) error {
		o.agents.Set(agent.Name(), agent)
		for elem := range slices.Values(extraAgents) {
			o.agents.Set(elem.Name(), elem)
		}
		return nil
	})
}

// Steps appends conversation steps in execution order.
func Steps(step ConversationStep, extraSteps ...ConversationStep) opts.Option[Crew] {
	return opts.Type[Crew](func(o *Crew) error {
		o.steps = append(o.steps, step)
		o.steps = append(o.steps, extraSteps...)
		return nil
	})
}

// Name sets the sender name attached to user prompts, "User" by default.
var Name = opts.ForName[Crew, string]("name")

func New(options ...opts.Option[Crew]) *Crew {
	p := &Crew{
		name:   "User",
		agents: haxmap.New[string, api.Agent](),
	}
	if err := opts.Apply(p, options); err != nil {
		panic(err)
	}
	return p
}

// Run executes the steps in order. Intermediate steps report into a noop
// promise; the last step gets the caller's promise and response schema.
func (p *Crew) Run(ctx context.Context, rc ExecutionContext) error {
	defer rc.onClose(ctx)

	memory := shorttermmemory.New()
	maxItems := len(p.steps) - 1

	for i, step := range p.steps {
		var promise executor.Promise
		var schema *provider.StructuredOutput
		if i < maxItems {
			promise = noopPromise{}
		} else {
			promise = rc.promise
			schema = rc.responseSchema
		}

		if err := p.runStep(ctx, step.agentName, step.task, memory, ExecutionContext{
			executor:       rc.executor,
			hook:           rc.hook,
			promise:        promise,
			contextVars:    rc.contextVars,
			onClose:        rc.onClose,
			responseSchema: schema,
			stream:         rc.stream,
			maxTurns:       rc.maxTurns,
		}); err != nil {
			return err
		}
	}

	return nil
}

func (p *Crew) runStep(ctx context.Context, agentName string, prompt task, memory *shorttermmemory.Aggregator, rc ExecutionContext) error {
	agent, found := p.agents.Get(agentName)
	if !found {
		return fmt.Errorf("agent %s not found", agentName)
	}

	// fork the shared thread so the step sees every prior step's output,
	// then fold its own messages back for the steps after it
	state := memory.Fork()

	var message messages.Message[messages.UserMessage]
	switch tsk := prompt.(type) {
	case stringTask:
		message = messages.New().WithSender(p.name).UserPrompt(string(tsk))
	case messageTask:
		message = messages.Message[messages.UserMessage](tsk)
	default:
		return fmt.Errorf("unknown task type %T", tsk)
	}

	cmd, err := rc.createCommand(agent, state)
	if err != nil {
		return err
	}

	message.RunID = cmd.ID()
	state.AddUserPrompt(message)
	rc.hook.OnUserPrompt(ctx, message)

	if err := rc.executor.Run(ctx, cmd, rc.promise); err != nil {
		return err
	}
	memory.Join(state)
	return nil
}
