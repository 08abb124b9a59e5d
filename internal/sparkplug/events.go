package sparkplug

import "sync"

// EventKind tags an Event with the condition it reports.
type EventKind int

const (
	EventMessage EventKind = iota
	EventConnected
	EventDisconnected
	EventActive
	EventDeactive
	EventDelivered
	EventUndelivered
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "Message"
	case EventConnected:
		return "Connected"
	case EventDisconnected:
		return "Disconnected"
	case EventActive:
		return "Active"
	case EventDeactive:
		return "Deactive"
	case EventDelivered:
		return "Delivered"
	case EventUndelivered:
		return "Undelivered"
	default:
		return "Unknown"
	}
}

// MessagePayload is the owned copy of an inbound MQTT message carried
// by a Message event.
type MessagePayload struct {
	Topic   string
	Payload []byte
}

// Event is a tagged record produced by a BrokerAdapter and consumed by
// the Node's tick loop. Source identifies which adapter produced it so
// the Node can correlate Connected/Active/Disconnected transitions and
// primary-host state per adapter.
type Event struct {
	Source  BrokerAdapter
	Kind    EventKind
	Message *MessagePayload  // set only for EventMessage
	Request *PublishRequest  // set only for Delivered/Undelivered
}

// EventQueue is a thread-safe FIFO of adapter events. Producers are
// adapter callback goroutines (possibly many); the consumer is the
// Node's single tick. Per-adapter event order is preserved by pushing
// in callback-arrival order and draining strictly FIFO; cross-adapter
// order may interleave arbitrarily since pushes from different
// adapters race for the same lock.
type EventQueue struct {
	mu    sync.Mutex
	items []Event
}

// NewEventQueue creates an empty EventQueue.
func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

// Push appends an event. Safe for concurrent use by many producers.
func (q *EventQueue) Push(e Event) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
}

// Drain removes and visits every currently queued event in FIFO order.
// Single-consumer: only the Node's tick loop should call Drain. Events
// pushed while Drain is running are not visited until the next call.
func (q *EventQueue) Drain(visit func(Event)) {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	for _, e := range items {
		visit(e)
	}
}

// Len returns the number of currently queued events (diagnostics only).
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
