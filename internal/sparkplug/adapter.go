package sparkplug

import "context"

// PublishRequest describes one outbound publish a Node hands to its
// active BrokerAdapter: a fully built topic and payload, plus the QoS
// the adapter should use. Retain is always false for the births and
// data a Node publishes; the primary-host STATE topic is only ever
// subscribed to, never published.
type PublishRequest struct {
	// ID correlates a Delivered/Undelivered event back to the
	// publishable that originated the request; adapters must echo it
	// unchanged on the Event they emit for this request and otherwise
	// treat it as opaque.
	ID      uint64
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// BrokerAdapter is the transport-facing collaborator a Node drives
// through its lifecycle: configure once, connect/disconnect as the
// Node starts and stops, and optionally hold primary-host activation
// so only one of several configured adapters is ever "active" (i.e.
// eligible to publish) at a time.
//
// All methods except Configure are expected to be non-blocking: a
// Connect call kicks off connection in the background and reports
// progress through Event values pushed onto the adapter's own
// EventQueue, not through a blocking return.
type BrokerAdapter interface {
	// Configure validates and stores adapter-specific settings
	// (broker URL, credentials, client id, etc). Called once from
	// Node.Enable; returning an error aborts Node.Enable.
	Configure(cfg AdapterSettings) error

	// Connect begins connecting to the broker. Non-blocking; delivers
	// an EventConnected once the connection is up. Node.Execute calls
	// Connect again on every tick while IsConnected reports false.
	Connect(ctx context.Context) error

	// Disconnect tears down the connection. It does not publish a
	// death certificate itself; Node.Stop deactivates each adapter
	// before disconnecting it.
	Disconnect(ctx context.Context) error

	// Activate marks this adapter as the one the Node should publish
	// through, and arranges subscriptions for command topics. The Node
	// activates an adapter in both modes: the first to connect in
	// Single mode, the one whose primary host is online in
	// PrimaryHost mode.
	Activate(ctx context.Context) error

	// Deactivate marks this adapter as no longer eligible to publish.
	Deactivate(ctx context.Context) error

	// Request submits req for publication. Non-blocking; delivery
	// outcome arrives later as EventDelivered or EventUndelivered.
	Request(req PublishRequest) error

	// IsConnected reports the adapter's last known connection state.
	IsConnected() bool

	// Events returns the queue this adapter pushes lifecycle and
	// inbound-message events onto. Each adapter owns its queue; a
	// Node drains every registered adapter's queue each tick.
	Events() *EventQueue
}

// AdapterSettings carries the subset of adapter configuration a Node
// passes through to BrokerAdapter.Configure without interpreting it
// itself — the concrete fields live with the concrete adapter
// implementation, but the group ID, node ID and node death topic are
// universal enough that every Sparkplug-speaking adapter needs them.
type AdapterSettings struct {
	GroupID        string
	NodeID         string
	NodeDeathTopic string
	PrimaryHost    string // empty if this node doesn't track a primary host

	// WillPayload builds the encoded DEATH payload the adapter must
	// register as its transport-level LWT at connect time, advancing
	// bdSeq by exactly one each call. The adapter calls this once per
	// connection attempt, never caching the result across reconnects.
	WillPayload func() ([]byte, error)

	// Extra carries adapter-specific settings (broker URL, TLS,
	// credentials) as an opaque map so this package stays ignorant of
	// any one transport's configuration shape.
	Extra map[string]any
}
