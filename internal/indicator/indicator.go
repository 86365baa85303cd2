// Package indicator defines the discrete presentation events the core
// emits (connectivity and sync-state transitions) and a WebSocket server
// that broadcasts them to external UIs. How an event is rendered —
// badge, banner text, color — is the consumer's business.
package indicator

import "time"

// State is one of the discrete indicator states a UI renders.
type State string

const (
	// StateConnected signals the device is online with nothing in flight.
	StateConnected State = "connected"
	// StateOffline signals connectivity was lost; queued work is retained.
	StateOffline State = "offline"
	// StateSyncing signals a drain attempt is in progress.
	StateSyncing State = "syncing"
	// StateSynced signals the last attempt confirmed all sent mutations.
	StateSynced State = "synced"
	// StateSyncFailed signals the last attempt failed; the queue is intact.
	StateSyncFailed State = "sync_failed"
)

// Event is one indicator transition. Pending carries the queue depth so
// badge counts don't need a separate query.
type Event struct {
	State     State     `json:"state"`
	Pending   int       `json:"pending"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink consumes indicator events. Implementations must not block.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Publish implements Sink.
func (f SinkFunc) Publish(e Event) { f(e) }

// Nop returns a Sink that discards events.
func Nop() Sink { return SinkFunc(func(Event) {}) }

// Multi fans one event out to several sinks.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			s.Publish(e)
		}
	})
}
