// Package events provides a publish/subscribe event bus for operational
// observability. Its Source constants name the node's tick loop,
// broker adapters and connection watchers as publishers, with
// subscribers such as a status endpoint or log sink; none of those
// packages publishes onto a Bus in this module. The bus is nil-safe: calling Publish on
// a nil *Bus is a no-op, so components do not need guard checks.
package events

import (
	"sync"
	"time"
)

// Source constants identify which component published an event.
const (
	// SourceNode identifies events from the node's tick loop.
	SourceNode = "node"
	// SourceAdapter identifies events from a broker adapter.
	SourceAdapter = "adapter"
	// SourceConnWatch identifies events from a connection watcher.
	SourceConnWatch = "connwatch"
)

// Kind constants describe the type of event within a source.
const (
	// KindBirthPublished signals a BIRTH certificate was sent.
	// Data: publishable, bd_seq.
	KindBirthPublished = "birth_published"
	// KindDataPublished signals a DATA payload was sent.
	// Data: publishable, seq, metric_count.
	KindDataPublished = "data_published"
	// KindPublishFailed signals a publish was reported undelivered.
	// Data: publishable, topic.
	KindPublishFailed = "publish_failed"
	// KindCommandReceived signals an inbound NCMD/DCMD message.
	// Data: topic, metric.
	KindCommandReceived = "command_received"
	// KindRebirthRequested signals the Node Control/Rebirth command fired.
	KindRebirthRequested = "rebirth_requested"

	// KindAdapterConnected signals a broker adapter finished connecting.
	// Data: broker.
	KindAdapterConnected = "adapter_connected"
	// KindAdapterDisconnected signals a broker adapter lost its connection.
	// Data: broker, error.
	KindAdapterDisconnected = "adapter_disconnected"
	// KindAdapterActivated signals a broker adapter became the node's
	// active publishing path (primary-host failover).
	// Data: broker.
	KindAdapterActivated = "adapter_activated"

	// KindServiceReady signals a watched service became reachable.
	// Data: service.
	KindServiceReady = "service_ready"
	// KindServiceDown signals a watched service became unreachable.
	// Data: service, error.
	KindServiceDown = "service_down"
)

// Event represents a single operational event published by a component.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"ts"`
	// Source identifies the component that published the event.
	Source string `json:"source"`
	// Kind describes the type of event within the source.
	Kind string `json:"kind"`
	// Data holds event-specific key/value pairs.
	Data map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast event bus. Subscribers receive events
// on buffered channels; slow subscribers miss events rather than
// blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	// recvToSend maps the receive-only channel returned by Subscribe
	// back to the bidirectional channel stored in subs. This allows
	// Unsubscribe to accept <-chan Event (the caller's view) without
	// an illegal type conversion.
	recvToSend map[<-chan Event]chan Event
}

// New creates a new event bus ready for use.
func New() *Bus {
	return &Bus{
		subs:       make(map[chan Event]struct{}),
		recvToSend: make(map[<-chan Event]chan Event),
	}
}

// Publish sends an event to all subscribers. Non-blocking: if a
// subscriber's channel is full, the event is dropped for that
// subscriber. Safe to call on a nil receiver (no-op).
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is full — drop the event rather than block.
		}
	}
}

// Subscribe returns a channel that receives published events. The
// caller must eventually call Unsubscribe to avoid resource leaks.
// bufSize controls the channel buffer; 64 is a reasonable default for
// WebSocket consumers.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes the channel. Safe to
// call with a channel that is already unsubscribed (no-op).
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
