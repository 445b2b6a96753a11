package webview

import "sync"

// emitter fans a value out to registered handlers in registration order.
type emitter[T any] struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func(T)
}

func (e *emitter[T]) on(fn func(T)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[int]func(T))
	}
	id := e.next
	e.next++
	e.handlers[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.handlers, id)
		e.mu.Unlock()
	}
}

func (e *emitter[T]) fire(v T) {
	e.mu.Lock()
	fns := make([]func(T), 0, len(e.handlers))
	for i := 0; i < e.next; i++ {
		if fn, ok := e.handlers[i]; ok {
			fns = append(fns, fn)
		}
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (e *emitter[T]) clear() {
	e.mu.Lock()
	e.handlers = nil
	e.mu.Unlock()
}
