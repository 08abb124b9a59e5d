package sparkplug

import "time"

// MetricDesc describes one metric's contribution to a payload about to
// be encoded. It is the structured form the core builds and hands to a
// [PayloadCodec]; the codec never sees Metric or Property directly.
type MetricDesc struct {
	Name       string
	Alias      uint64
	Type       MetricType
	Value      any
	Timestamp  time.Time
	Properties *PropertySetDesc // nil if the metric has no properties
}

// PropertyDesc describes one property's contribution to a PropertySet.
type PropertyDesc struct {
	Name   string
	Type   MetricType
	Value  any
	Nested *PropertySetDesc // non-nil for a nested PropertySet property
}

// PropertySetDesc is an ordered collection of properties.
type PropertySetDesc struct {
	Properties []PropertyDesc
}

// PayloadDesc is the structured description of a Sparkplug B payload
// about to be encoded, or the result of decoding one. Seq is nil for
// payloads that don't carry a sequence number (the DEATH/will
// payload); BdSeq is nil unless the payload is a BIRTH or DEATH.
type PayloadDesc struct {
	Timestamp time.Time
	Seq       *uint64
	BdSeq     *uint64
	Metrics   []MetricDesc
}

// PayloadCodec encodes structured payload descriptions into Sparkplug B
// protobuf bytes and decodes them back. It is an opaque external
// collaborator: the core never constructs wire bytes itself. See
// internal/sparkplugpb for the default implementation.
type PayloadCodec interface {
	// Encode serializes desc. Implementations must return an error if
	// the encoded size exceeds their configured maximum (default 512
	// bytes) — the core handles this like an Undelivered outcome (the
	// publishable is marked published) rather than treating it as fatal.
	Encode(desc PayloadDesc) ([]byte, error)
	// Decode parses previously encoded bytes back into a PayloadDesc.
	Decode(data []byte) (PayloadDesc, error)
}

// Clock is a monotonic/wall time source, injected so tests can control
// timestamps and sequence-adjacent timing deterministically.
type Clock interface {
	// NowMs returns the current wall-clock time in epoch milliseconds.
	NowMs() int64
}

// SystemClock is the default Clock backed by time.Now.
type SystemClock struct{}

// NowMs implements Clock.
func (SystemClock) NowMs() int64 {
	return time.Now().UnixMilli()
}
