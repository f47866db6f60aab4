package cpeforge

import (
	"context"
	"sync"

	"github.com/prplworks/cpeforge/internal/executor"
)

// Future is the read side of a crew run. Get blocks until the final step
// produced a result or the run failed.
type Future[T any] interface {
	// can't type alias this (yet) because of the type parameter

	Get() (T, error)
}

// deferredPromise buffers the outcome of the final step until the run is
// closed, then forwards it to the inner future and the hook. Only the first
// Complete or Error call wins.
type deferredPromise[T any] struct {
	promise executor.CompletableFuture[T]
	hook    Hook[T]
	mu      sync.Mutex
	value   string
	err     error
	once    sync.Once
}

func (d *deferredPromise[T]) Forward(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		d.promise.Error(d.err)
		d.hook.OnError(ctx, d.err)
		return
	}

	d.promise.Complete(d.value)
	res, err := d.promise.Get()
	if err != nil {
		d.hook.OnError(ctx, err)
		return
	}
	d.hook.OnResult(ctx, res)
}

func (d *deferredPromise[T]) Complete(result string) {
	d.once.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.value = result
	})
}

func (d *deferredPromise[T]) Error(err error) {
	d.once.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.err = err
	})
}

// noopPromise swallows results of intermediate steps. Only the final step of
// a crew run reports through the real promise.
type noopPromise struct{}

func (noopPromise) Complete(string) {}
func (noopPromise) Error(error)     {}
