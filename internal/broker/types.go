package broker

import (
	"context"

	"github.com/prplworks/cpeforge/events"
)

type Broker[T any] interface {
	Topic(context.Context, string) Topic[T]
}

type Topic[T any] interface {
	Publish(context.Context, events.Event) error
	Subscribe(context.Context, events.ResultHook[T]) (Subscription, error)
}

type Subscription interface {
	ID() string
	Unsubscribe()
}
