package sparkplug

import (
	"log/slog"
	"time"
)

// PublishableState is one of the three states a Publishable cycles
// through: Idle (waiting for its countdown), CanPublish (countdown
// elapsed and at least one metric dirty), Publishing (a publish is in
// flight with the active adapter).
type PublishableState int

const (
	StateIdle PublishableState = iota
	StateCanPublish
	StatePublishing
)

func (s PublishableState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCanPublish:
		return "CanPublish"
	case StatePublishing:
		return "Publishing"
	default:
		return "Unknown"
	}
}

// publishable is the common base embedded by both Node and Device (C3
// in the design overview). Go has no inheritance, so Node and Device
// embed *publishable and the core operates on the small interface in
// publishable_iface.go wherever it needs to treat either uniformly.
type publishable struct {
	name            string
	publishPeriodMs int32
	countdownMs     int32
	state           PublishableState

	metricOrder []string
	metrics     map[string]*Metric

	logger *slog.Logger
}

func newPublishable(name string, publishPeriodMs int32, logger *slog.Logger) *publishable {
	if publishPeriodMs <= 0 {
		publishPeriodMs = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &publishable{
		name:            name,
		publishPeriodMs: publishPeriodMs,
		countdownMs:     publishPeriodMs,
		state:           StateIdle,
		metrics:         make(map[string]*Metric),
		logger:          logger,
	}
}

// Name returns the publishable's configured name (may be empty for a
// Node).
func (p *publishable) Name() string { return p.name }

// State returns the current PublishableState.
func (p *publishable) State() PublishableState { return p.state }

// AddMetric appends a metric, rejecting a duplicate name within this
// publishable.
func (p *publishable) AddMetric(m *Metric) error {
	if _, exists := p.metrics[m.Name()]; exists {
		return ErrDuplicateMetric
	}
	p.metricOrder = append(p.metricOrder, m.Name())
	p.metrics[m.Name()] = m
	return nil
}

// Metric looks up a metric by name in O(name length) via map lookup.
func (p *publishable) Metric(name string) (*Metric, bool) {
	m, ok := p.metrics[name]
	return m, ok
}

// Metrics returns the publishable's metrics in registration order.
func (p *publishable) Metrics() []*Metric {
	out := make([]*Metric, 0, len(p.metricOrder))
	for _, name := range p.metricOrder {
		out = append(out, p.metrics[name])
	}
	return out
}

// update decrements the countdown by elapsedMs and transitions
// Idle→CanPublish when it reaches zero. While Publishing or
// CanPublish, the timer is stalled and the full period is returned
// without re-arming.
func (p *publishable) update(elapsedMs int32) int32 {
	if p.state == StatePublishing || p.state == StateCanPublish {
		return p.publishPeriodMs
	}

	p.countdownMs -= elapsedMs
	if p.countdownMs <= 0 {
		p.state = StateCanPublish
		p.countdownMs = p.publishPeriodMs
	}

	return p.countdownMs
}

// canPublish reports whether the publishable is ready to publish: in
// CanPublish state with at least one dirty metric.
func (p *publishable) canPublish() bool {
	if p.state != StateCanPublish {
		return false
	}
	for _, name := range p.metricOrder {
		if p.metrics[name].IsDirty() {
			return true
		}
	}
	return false
}

// publishing transitions to the Publishing state.
func (p *publishable) publishing() {
	p.state = StatePublishing
}

// published transitions back to Idle and clears dirty on every
// contained metric.
func (p *publishable) published() {
	p.state = StateIdle
	for _, name := range p.metricOrder {
		p.metrics[name].published()
	}
}

// resetAfterFailedPublish returns to Idle without clearing any dirty
// metric, so a publish request the adapter refused is retried on a
// later tick instead of being silently dropped.
func (p *publishable) resetAfterFailedPublish() {
	p.state = StateIdle
}

// buildPayload assembles a PayloadDesc from the publishable's metrics.
// BIRTH forces a full dump (every metric, regardless of dirty state);
// DATA includes only dirty metrics. The timestamp and seq fields are
// left for the caller (Node/adapter) to fill in, since sequencing is a
// Node-wide concern.
func (p *publishable) buildPayload(isBirth bool, now time.Time) PayloadDesc {
	desc := PayloadDesc{Timestamp: now}
	for _, name := range p.metricOrder {
		if md, ok := p.metrics[name].addToPayload(isBirth); ok {
			desc.Metrics = append(desc.Metrics, md)
		}
	}
	return desc
}

// handleCommand decodes a command payload and dispatches each metric it
// names to Metric.OnCommand. Unknown metric names are ignored silently.
func (p *publishable) handleCommand(codec PayloadCodec, data []byte) {
	desc, err := codec.Decode(data)
	if err != nil {
		p.logger.Debug("sparkplug: discarding malformed command payload",
			"publishable", p.name, "error", err)
		return
	}
	for _, md := range desc.Metrics {
		m, ok := p.metrics[md.Name]
		if !ok {
			continue
		}
		m.OnCommand(md.Value)
	}
}
