// Package event is the in-process dispatcher that decouples services from
// their side effects: placing an order fires OrderPlaced, and the welcome
// mail, websocket broadcast, and metrics listeners each react on their own.
package event

import "sync"

// Event names fired by the store services.
const (
	UserRegistered     = "user.registered"
	OrderPlaced        = "order.placed"
	OrderStatusChanged = "order.status_changed"
)

// Handler receives the payload of one fired event.
type Handler func(payload interface{})

var (
	mu       sync.RWMutex
	handlers = map[string][]Handler{}
)

// Listen subscribes handler to the named event.
func Listen(event string, handler Handler) {
	mu.Lock()
	handlers[event] = append(handlers[event], handler)
	mu.Unlock()
}

// snapshot copies the handler list so Fire never holds the lock while
// running listeners.
func snapshot(event string) []Handler {
	mu.RLock()
	defer mu.RUnlock()
	return append([]Handler(nil), handlers[event]...)
}

// Fire runs every listener for event, in registration order, on the
// caller's goroutine.
func Fire(event string, payload interface{}) {
	for _, h := range snapshot(event) {
		h(payload)
	}
}

// FireAsync starts each listener on its own goroutine and returns without
// waiting.
func FireAsync(event string, payload interface{}) {
	for _, h := range snapshot(event) {
		go h(payload)
	}
}

// Flush drops all listeners. Tests use it to isolate themselves.
func Flush() {
	mu.Lock()
	handlers = map[string][]Handler{}
	mu.Unlock()
}
