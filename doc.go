/*
Package cpeforge orchestrates crews of AI agents that analyze, maintain, and
evolve fleets of customer premises equipment (CPE).

The package implements the orchestration layer other packages plug into:

  - Agents: Autonomous entities with instructions and callable tools
  - Crews: Ordered conversation steps that coordinate agent interactions
  - Tools: Go functions exposed to agents through reflection
  - Events: Streamed observations of a run in progress
  - Memory: Conversation state retained across turns within a step

# Basic Usage

A typical run creates agents, assembles them into a crew, and executes the
steps against a local or durable executor:

	netOptAgent := agent.New(
		agent.Name("network_optimization_specialist"),
		agent.Model(openai.GPT4oMini()),
		agent.Instructions("You analyze CPE network performance data"),
		agent.Tools(analyzeTool),
	)

	crew := cpeforge.New(
		cpeforge.Agents(netOptAgent),
		cpeforge.Steps(
			cpeforge.Step(netOptAgent.Name(), "Analyze the device fleet in region eu-west"),
		),
	)

	if err := crew.Run(ctx, cpeforge.Local(hook)); err != nil {
		// Handle error
	}

The hook receives every event of the run and, once the final step completes,
the unmarshaled result. cpeforge.Durable builds the same execution context on
top of a Temporal client, with events streamed back over NATS.

# Architecture

1. Crews (crew.go)
  - Run steps sequentially, each against a fresh conversation
  - Resolve the caller's promise from the final step only

2. Execution contexts (execution.go)
  - Bind an executor, hook, and promise for a run
  - Carry context variables, streaming, turn limits, and response schemas

3. Promises (promise.go)
  - Buffer the final result until the run closes
  - Propagate errors to both the future and the hook

4. Tasks (task.go)
  - Accept plain strings or prepared user messages
  - Attribute prompts to the configured sender name

# Integration

cpeforge integrates with several backend systems:

  - NATS for message brokering
  - Temporal for durable workflow execution
  - OpenAI compatible model providers

Higher level packages build on this core: framework wires the five standard
CPE crews, config loads operator settings, and cmd/cpeforge exposes the CLI.

# Thread Safety

Agents can be shared across goroutines. Hooks must be safe for concurrent
use, every event of a streamed run may arrive on a different goroutine.
Context is used for cancellation and deadlines throughout.
*/
package cpeforge
