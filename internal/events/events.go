// Package events is a small named-callback registry used by the canvas and
// the brush to notify host code.
package events

import (
	"log/slog"
	"slices"
	"sync"
)

// Handler receives the event name and its payload.
type Handler[E any] func(name string, ev E)

// Unsubscribe removes a previously registered handler. Calling it more than
// once is harmless.
type Unsubscribe func()

type entry[E any] struct {
	id uint64
	fn Handler[E]
}

// Map holds the handlers for a fixed set of event names.
type Map[E any] struct {
	mu       sync.Mutex
	handlers map[string][]entry[E]
	nextID   uint64
}

// NewMap creates a registry accepting only the given event names.
func NewMap[E any](names ...string) *Map[E] {
	m := &Map[E]{handlers: make(map[string][]entry[E], len(names))}
	for _, n := range names {
		m.handlers[n] = nil
	}
	return m
}

// Names returns the accepted event names in sorted order.
func (m *Map[E]) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.handlers))
	for n := range m.handlers {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// On registers fn for name. An unknown name is logged and yields a no-op
// unsubscribe.
func (m *Map[E]) On(name string, fn Handler[E]) Unsubscribe {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, ok := m.handlers[name]
	if !ok {
		slog.Error("subscribe to unknown event", "event", name)
		return func() {}
	}

	m.nextID++
	id := m.nextID
	m.handlers[name] = append(list, entry[E]{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.handlers[name] = slices.DeleteFunc(m.handlers[name], func(e entry[E]) bool {
			return e.id == id
		})
	}
}

// Fire calls every handler registered for name in registration order.
// Handlers run without the registry lock held, so they may subscribe or
// unsubscribe.
func (m *Map[E]) Fire(name string, ev E) {
	m.mu.Lock()
	list, ok := m.handlers[name]
	fns := make([]Handler[E], len(list))
	for i, e := range list {
		fns[i] = e.fn
	}
	m.mu.Unlock()

	if !ok {
		slog.Error("fire unknown event", "event", name)
		return
	}
	for _, fn := range fns {
		fn(name, ev)
	}
}
