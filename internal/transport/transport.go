// Package transport delivers arbiter status to the outside world.
package transport

// Transport defines a generic interface for sending status snapshots or
// events. Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}
