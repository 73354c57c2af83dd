// Package registry keeps status subscribers keyed by a stable handle. A
// subscriber that stops sending heartbeats is swept, and one that fails a
// delivery is dropped.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	applog "caraudio/internal/log"
)

// DefaultTimeout is how long a subscriber may stay silent before Sweep
// removes it.
const DefaultTimeout = 30 * time.Second

// ErrUnknownHandle is returned for handles that are not registered.
var ErrUnknownHandle = errors.New("unknown subscriber handle")

// Handle identifies one subscription.
type Handle = uuid.UUID

// Subscriber receives published values.
type Subscriber interface {
	Deliver(v any) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(v any) error

func (f SubscriberFunc) Deliver(v any) error { return f(v) }

// Closer is implemented by subscribers that hold a connection. Close is
// called once the subscriber is removed.
type Closer interface {
	Close() error
}

type entry struct {
	sub      Subscriber
	lastSeen time.Time
}

// Registry is safe for concurrent use.
type Registry struct {
	Timeout time.Duration

	mu      sync.RWMutex
	entries map[Handle]*entry
	now     func() time.Time
}

// New returns an empty Registry. A timeout <= 0 selects DefaultTimeout.
func New(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{
		Timeout: timeout,
		entries: make(map[Handle]*entry),
		now:     time.Now,
	}
}

// Subscribe adds s and returns its handle.
func (r *Registry) Subscribe(s Subscriber) Handle {
	h := uuid.New()
	r.mu.Lock()
	r.entries[h] = &entry{sub: s, lastSeen: r.now()}
	n := len(r.entries)
	r.mu.Unlock()
	applog.Debugf("registry: subscribed %s, total: %d", h, n)
	return h
}

// Heartbeat marks h as alive.
func (r *Registry) Heartbeat(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[h]
	if !ok {
		return ErrUnknownHandle
	}
	e.lastSeen = r.now()
	return nil
}

// Unsubscribe removes h. Removing an unknown handle is a no-op.
func (r *Registry) Unsubscribe(h Handle) {
	r.mu.Lock()
	e, ok := r.entries[h]
	delete(r.entries, h)
	n := len(r.entries)
	r.mu.Unlock()
	if !ok {
		return
	}
	closeSubscriber(e.sub)
	applog.Debugf("registry: unsubscribed %s, total: %d", h, n)
}

// Sweep removes every subscriber silent for longer than Timeout and returns
// their handles.
func (r *Registry) Sweep() []Handle {
	cutoff := r.now().Add(-r.Timeout)
	var stale []Handle
	var subs []Subscriber

	r.mu.Lock()
	for h, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, h)
			subs = append(subs, e.sub)
			delete(r.entries, h)
		}
	}
	r.mu.Unlock()

	for i, s := range subs {
		applog.Infof("registry: %s timed out", stale[i])
		closeSubscriber(s)
	}
	return stale
}

// Publish delivers v to every subscriber. Subscribers whose delivery fails
// are removed. It returns the number of successful deliveries.
func (r *Registry) Publish(v any) int {
	r.mu.RLock()
	targets := make(map[Handle]Subscriber, len(r.entries))
	for h, e := range r.entries {
		targets[h] = e.sub
	}
	r.mu.RUnlock()

	delivered := 0
	for h, s := range targets {
		if err := s.Deliver(v); err != nil {
			applog.Warnf("registry: delivery to %s failed: %v", h, err)
			r.Unsubscribe(h)
			continue
		}
		delivered++
	}
	return delivered
}

// Len returns the number of subscribers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close removes every subscriber.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[Handle]*entry)
	r.mu.Unlock()
	for _, e := range entries {
		closeSubscriber(e.sub)
	}
}

func closeSubscriber(s Subscriber) {
	if c, ok := s.(Closer); ok {
		if err := c.Close(); err != nil {
			applog.Debugf("registry: close: %v", err)
		}
	}
}
