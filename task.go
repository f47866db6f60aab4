package cpeforge

import (
	"fmt"

	"github.com/prplworks/cpeforge/messages"
)

type task interface {
	task()
}

type stringTask string

func (s stringTask) task() {}

type messageTask messages.Message[messages.UserMessage]

func (m messageTask) task() {}

// ConversationStep binds a task to the agent that should carry it out.
type ConversationStep struct {
	agentName string
	task      task
}

// Task constrains the values a step accepts: a plain prompt string or a
// fully formed user message.
type Task interface {
	~string | messages.Message[messages.UserMessage]
}

// Step creates a conversation step for the named agent.
func Step[T Task](agentName string, tsk T) ConversationStep {
	var t task
	switch xt := any(tsk).(type) {
	case string:
		t = stringTask(xt)
	case messages.Message[messages.UserMessage]:
		t = messageTask(xt)
	default:
		panic(fmt.Sprintf("invalid task type: %T", xt))
	}
	return ConversationStep{
		agentName: agentName,
		task:      t,
	}
}
