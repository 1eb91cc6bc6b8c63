package events

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Registry fans notifications out to a set of listeners. It is itself a
// Listener. Listeners are compared by identity and must be pointers.
type Registry struct {
	log *zap.Logger

	mu        sync.RWMutex
	listeners []Listener
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{log: log.Named("registry")}
}

// Register adds l. It returns false if l was already registered or is not a
// pointer.
func (r *Registry) Register(l Listener) bool {
	if !isPointer(l) {
		r.log.Warn("Ignoring listener that is not a pointer", zap.String("listener", fmt.Sprintf("%T", l)))
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.listeners {
		if existing == l {
			return false
		}
	}

	r.listeners = append(r.listeners, l)
	return true
}

// Unregister removes l. It returns false if l was not registered.
func (r *Registry) Unregister(l Listener) bool {
	if !isPointer(l) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.listeners {
		if existing == l {
			r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
			return true
		}
	}

	return false
}

// isPointer reports whether l can be compared by identity.
func isPointer(l Listener) bool {
	return l != nil && reflect.ValueOf(l).Kind() == reflect.Ptr
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.listeners)
}

func (r *Registry) PlayerStateChanged(pid, attribute, value string) {
	r.each("PlayerStateChanged", func(l Listener) {
		l.PlayerStateChanged(pid, attribute, value)
	})
}

func (r *Registry) PlayerMediaChanged(pid string, media map[string]string) {
	r.each("PlayerMediaChanged", func(l Listener) {
		l.PlayerMediaChanged(pid, copyMap(media))
	})
}

func (r *Registry) BridgeEvent(ev BridgeEvent) {
	r.each("BridgeEvent", func(l Listener) {
		l.BridgeEvent(ev)
	})
}

// each calls notify for every listener registered at the time of the call.
// A panicking listener is logged and does not stop the others.
func (r *Registry) each(method string, notify func(l Listener)) {
	r.mu.RLock()
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, l := range listeners {
		r.safely(method, l, notify)
	}
}

func (r *Registry) safely(method string, l Listener, notify func(l Listener)) {
	defer func() {
		if v := recover(); v != nil {
			r.log.Error("listener panicked",
				zap.String("method", method),
				zap.String("listener", fmt.Sprintf("%T", l)),
				zap.Any("panic", v))
		}
	}()

	notify(l)
}

func copyMap(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}

	return c
}

var _ Listener = (*Registry)(nil)
