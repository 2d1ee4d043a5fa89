// Package hooks is the in-process publish/subscribe bus for campaign
// lifecycle events (send, open, click) and the default analytics
// forwarding behind it.
package hooks

import (
	"context"
	"errors"
	"sync"
)

// Payload accompanies every lifecycle event.
type Payload struct {
	Campaign string `json:"campaign"`
}

// Listener handles one lifecycle event. Listener errors propagate to the
// emitter's caller.
type Listener func(ctx context.Context, shop string, p Payload) error

// Bus holds three independent ordered listener lists. It is an explicit
// value passed to whoever emits or subscribes; nothing registers itself
// at package init.
type Bus struct {
	mu    sync.RWMutex
	send  []Listener
	open  []Listener
	click []Listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// OnSend registers a listener for send events.
func (b *Bus) OnSend(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = append(b.send, l)
}

// OnOpen registers a listener for open events.
func (b *Bus) OnOpen(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = append(b.open, l)
}

// OnClick registers a listener for click events.
func (b *Bus) OnClick(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.click = append(b.click, l)
}

// EmitSend fans a send event out to all send listeners.
func (b *Bus) EmitSend(ctx context.Context, shop string, p Payload) error {
	return b.emit(ctx, b.snapshot(&b.send), shop, p)
}

// EmitOpen fans an open event out to all open listeners.
func (b *Bus) EmitOpen(ctx context.Context, shop string, p Payload) error {
	return b.emit(ctx, b.snapshot(&b.open), shop, p)
}

// EmitClick fans a click event out to all click listeners.
func (b *Bus) EmitClick(ctx context.Context, shop string, p Payload) error {
	return b.emit(ctx, b.snapshot(&b.click), shop, p)
}

func (b *Bus) snapshot(list *[]Listener) []Listener {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Listener, len(*list))
	copy(out, *list)
	return out
}

// emit runs every listener concurrently and waits for all of them;
// failures are joined rather than short-circuited so one slow listener
// cannot hide another's error.
func (b *Bus) emit(ctx context.Context, listeners []Listener, shop string, p Payload) error {
	if len(listeners) == 0 {
		return nil
	}
	errs := make([]error, len(listeners))
	var wg sync.WaitGroup
	for i, l := range listeners {
		wg.Add(1)
		go func(i int, l Listener) {
			defer wg.Done()
			errs[i] = l(ctx, shop, p)
		}(i, l)
	}
	wg.Wait()
	return errors.Join(errs...)
}
