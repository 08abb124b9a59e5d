package sparkplug

import (
	"log/slog"

	"github.com/hollowoak/sparkplug-edge/internal/metrics"
)

// CommandHandler reacts to an inbound command for a single metric. It
// receives the metric being commanded and the decoded value carried by
// the command payload. Implementations must not panic — handler
// panics are recovered in Metric.OnCommand,
// but a well-behaved handler returns promptly and without panicking.
type CommandHandler func(metric *Metric, value any)

// Metric is a typed named value with a dirty flag, change timestamp,
// optional properties, and an optional command handler.
type Metric struct {
	name      string
	typ       MetricType
	value     any
	alias     uint64
	dirty     bool
	changedAt int64 // epoch ms
	properties []*Property
	handler   CommandHandler

	clock  Clock
	logger *slog.Logger
}

// NewMetric allocates a Metric. dirty is false immediately after
// construction.
func NewMetric(name string, typ MetricType, value any, opts ...MetricOption) *Metric {
	m := &Metric{
		name:  name,
		typ:   typ,
		value: value,
		clock: SystemClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// MetricOption configures optional Metric fields at construction.
type MetricOption func(*Metric)

// WithAlias sets the metric's reserved 64-bit alias id.
func WithAlias(alias uint64) MetricOption {
	return func(m *Metric) { m.alias = alias }
}

// WithClock overrides the metric's time source (tests only).
func WithClock(c Clock) MetricOption {
	return func(m *Metric) { m.clock = c }
}

// WithLogger overrides the metric's logger.
func WithLogger(l *slog.Logger) MetricOption {
	return func(m *Metric) { m.logger = l }
}

// WithProperties attaches initial properties at construction.
func WithProperties(props ...*Property) MetricOption {
	return func(m *Metric) { m.properties = append(m.properties, props...) }
}

// Name returns the metric's name.
func (m *Metric) Name() string { return m.name }

// Type returns the metric's declared Sparkplug data type.
func (m *Metric) Type() MetricType { return m.typ }

// Value returns the metric's current value.
func (m *Metric) Value() any { return m.value }

// IsDirty reports whether the metric has an unpublished change.
func (m *Metric) IsDirty() bool { return m.dirty }

// SetValue compares newValue to the current value. If the type doesn't
// match the metric's declared MetricType, ErrWrongType is returned and
// nothing changes. If the value differs from the current one, or the
// metric is already dirty, the value and changedAt are updated and
// dirty is set: setting the same value is a no-op with respect to
// dirty unless the metric was already dirty, in which case changedAt
// is refreshed anyway.
func (m *Metric) SetValue(newValue any) error {
	if !valueMatchesType(m.typ, newValue) {
		return ErrWrongType
	}
	if m.dirty || newValue != m.value {
		m.value = newValue
		m.changedAt = m.clock.NowMs()
		m.dirty = true
	}
	return nil
}

// AddProperty attaches a property to the metric.
func (m *Metric) AddProperty(p *Property) {
	m.properties = append(m.properties, p)
}

// Properties returns the metric's properties in registration order.
func (m *Metric) Properties() []*Property { return m.properties }

// SetCommandHandler installs a command handler. Registering a handler
// is observable: a "writable" boolean property is added if not already
// present.
func (m *Metric) SetCommandHandler(h CommandHandler) {
	m.handler = h
	for _, p := range m.properties {
		if p.name == "writable" {
			return
		}
	}
	m.AddProperty(NewProperty("writable", TypeBoolean, true))
}

// OnCommand dispatches an inbound command value to the installed
// handler. Fails soft (does nothing) if no handler is installed.
// Handler panics are recovered and logged rather than propagated.
func (m *Metric) OnCommand(value any) {
	if m.handler == nil {
		return
	}
	metrics.CommandsReceivedTotal.WithLabelValues(m.name).Inc()
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("sparkplug metric command handler panicked",
				"metric", m.name, "panic", r)
		}
	}()
	m.handler(m, value)
}

// published clears the dirty flag and marks all owned properties
// published.
func (m *Metric) published() {
	m.dirty = false
	for _, p := range m.properties {
		p.published()
	}
}

// addToPayload contributes this metric's descriptor to metrics if it
// should be emitted: always for a birth, otherwise only if dirty. The
// metric itself doesn't talk to the codec; it hands the caller
// (Publishable.buildPayload) a MetricDesc to include or not, so a
// malformed property set can be skipped without aborting the
// enclosing publish.
func (m *Metric) addToPayload(isBirth bool) (MetricDesc, bool) {
	if !isBirth && !m.dirty {
		return MetricDesc{}, false
	}

	ts := m.changedAt
	if isBirth {
		ts = m.clock.NowMs()
	}

	desc := MetricDesc{
		Name:      m.name,
		Alias:     m.alias,
		Type:      m.typ,
		Value:     m.value,
		Timestamp: msToTime(ts),
	}

	if len(m.properties) > 0 {
		set := &PropertySet{properties: m.properties}
		if propSet, ok := set.toDesc(isBirth); ok {
			desc.Properties = &propSet
		}
	}

	return desc, true
}
