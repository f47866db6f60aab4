// Package msgfmt renders run events as colorized console output.
package msgfmt

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	cpeforge "github.com/prplworks/cpeforge"
	"github.com/prplworks/cpeforge/messages"
)

// Console returns a hook that pretty prints the events of a run to w as they
// arrive, and a channel that delivers the final result once the run closes.
// The channel is closed without a value when the run fails.
func Console[T any](w io.Writer) (cpeforge.Hook[T], <-chan T) {
	h := &consoleHook[T]{w: w, result: make(chan T, 1)}
	return h, h.result
}

type consoleHook[T any] struct {
	w      io.Writer
	result chan T

	mu         sync.Mutex
	content    string
	lastSender string
}

func (c *consoleHook[T]) OnUserPrompt(ctx context.Context, msg messages.Message[messages.UserMessage]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w)
}

func (c *consoleHook[T]) OnAssistantChunk(ctx context.Context, msg messages.Message[messages.AssistantMessage]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.Sender != "" {
		c.lastSender = msg.Sender
	}

	if msg.Payload.Content.Content != "" {
		if c.content == "" && c.lastSender != "" {
			fmt.Fprint(c.w, color.MagentaString(c.lastSender)+": ")
			c.lastSender = ""
		}

		fmt.Fprint(c.w, msg.Payload.Content.Content)
		c.content += msg.Payload.Content.Content
	}
}

func (c *consoleHook[T]) OnToolCallChunk(ctx context.Context, msg messages.Message[messages.ToolCallMessage]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.Sender != "" {
		c.lastSender = msg.Sender
	}

	for _, tc := range msg.Payload.ToolCalls {
		if tc.Name == "" {
			continue
		}
		args := strings.ReplaceAll(tc.Arguments, ": ", "=")
		fmt.Fprintf(c.w, "%s%s\n", color.YellowString(tc.Name), args)
	}
}

func (c *consoleHook[T]) OnAssistantMessage(ctx context.Context, msg messages.Message[messages.AssistantMessage]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// When the content already streamed as chunks, just terminate the line.
	if c.content != "" {
		fmt.Fprintln(c.w)
		c.content = ""
		return
	}

	sender := msg.Sender
	if sender == "" {
		sender = "Assistant"
	}
	fmt.Fprintf(c.w, "%s: %s\n", color.MagentaString(sender), msg.Payload.Content.Content)
}

func (c *consoleHook[T]) OnToolCallMessage(ctx context.Context, msg messages.Message[messages.ToolCallMessage]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.content != "" {
		fmt.Fprintln(c.w)
		c.content = ""
		return
	}

	for _, tc := range msg.Payload.ToolCalls {
		args := strings.ReplaceAll(tc.Arguments, ": ", "=")
		fmt.Fprintf(c.w, "%s%s\n", color.YellowString(tc.Name), args)
	}
}

func (c *consoleHook[T]) OnToolCallResponse(ctx context.Context, msg messages.Message[messages.ToolResponse]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sender := msg.Sender
	if sender == "" {
		sender = "Tool"
	}
	fmt.Fprintf(c.w, "%s: %s\n", color.YellowString(sender), msg.Payload.Content)
}

func (c *consoleHook[T]) OnError(ctx context.Context, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "Error: %v\n", err)
}

func (c *consoleHook[T]) OnResult(ctx context.Context, result T) {
	select {
	case c.result <- result:
	default:
	}
}

func (c *consoleHook[T]) OnClose(ctx context.Context) {
	close(c.result)
}
