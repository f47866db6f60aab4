// Package executor drives agent runs: it feeds the conversation thread to the
// model provider, dispatches tool calls, follows agent handoffs, and settles
// the run result through a Future/Promise pair.
//
// Two implementations exist. Local runs everything in-process with a reactor
// loop over the provider's event stream. Temporal splits the same loop into
// durable workflow steps, running completions and tool calls as activities and
// agent handoffs as child workflows, with events relayed over a broker topic.
//
// A RunCommand captures everything one run needs:
//
//	cmd, err := NewRunCommand(agent, thread, hook)
//	if err != nil {
//	    return err
//	}
//	cmd = cmd.WithMaxTurns(5).WithContextVariables(vars)
//
//	fut := NewFuture(DefaultUnmarshal[MaintenanceSchedule]())
//	if err := executor.Run(ctx, cmd, fut); err != nil {
//	    return err
//	}
//	schedule, err := fut.Get()
//
// Tool functions are invoked through reflection. Arguments are decoded from
// the model's JSON by position, and parameters of type types.ContextVars are
// injected by the executor rather than supplied by the model. A tool that
// returns an api.Agent transfers control of the run to that agent.
package executor
