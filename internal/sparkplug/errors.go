package sparkplug

import "errors"

// Enable-time configuration errors, returned synchronously from
// [Node.Enable].
var (
	// ErrInvalidTopics is returned when GroupID or NodeID is empty.
	ErrInvalidTopics = errors.New("sparkplug: group_id and node_id must both be non-empty")
	// ErrNoAdapters is returned when no BrokerAdapter has been added.
	ErrNoAdapters = errors.New("sparkplug: at least one broker adapter must be added before enabling")
	// ErrAdapterConfigFail wraps the first adapter Configure failure.
	ErrAdapterConfigFail = errors.New("sparkplug: adapter configuration failed")

	// ErrDuplicateMetric is returned by AddMetric when the name already
	// exists on the Publishable.
	ErrDuplicateMetric = errors.New("sparkplug: duplicate metric name")

	// ErrWrongType is returned by Metric.SetValue when the supplied
	// value's Go type doesn't match the metric's declared MetricType.
	ErrWrongType = errors.New("sparkplug: value type does not match metric data type")

	// ErrNotStarted is returned by operations that require an enabled
	// Node.
	ErrNotStarted = errors.New("sparkplug: node has not been enabled")

	// ErrPayloadTooLarge is returned by a PayloadCodec when an encoded
	// payload would exceed its configured size ceiling (§6/§7
	// ProtocolError/DeliveryError; Scenario S6).
	ErrPayloadTooLarge = errors.New("sparkplug: encoded payload exceeds maximum size")
)
