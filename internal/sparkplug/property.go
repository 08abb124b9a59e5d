package sparkplug

// Property is a typed named attribute attached to a Metric. Its shape
// mirrors Metric but its dirty bit tracks only whether it has been
// published at least once since its last change — it is not tied to
// value-equality semantics the way Metric.SetValue is.
type Property struct {
	name   string
	typ    MetricType
	value  any
	dirty  bool
	nested *PropertySet // non-nil for a nested property set
}

// NewProperty creates a Property holding an initial value of the given
// type. Properties start dirty so the first payload that includes
// their owning metric always contributes them.
func NewProperty(name string, typ MetricType, value any) *Property {
	return &Property{name: name, typ: typ, value: value, dirty: true}
}

// NewNestedProperty creates a Property whose payload is a recursively
// nested PropertySet rather than a scalar value.
func NewNestedProperty(name string, set *PropertySet) *Property {
	return &Property{name: name, nested: set, dirty: true}
}

// Name returns the property's name.
func (p *Property) Name() string { return p.name }

// SetValue updates the property's value, marking it dirty.
func (p *Property) SetValue(value any) {
	p.value = value
	p.dirty = true
}

// published clears the property's dirty bit (and recursively, any
// nested set's). Called when the owning Metric is marked published.
func (p *Property) published() {
	p.dirty = false
	if p.nested != nil {
		p.nested.published()
	}
}

// addToDesc builds this property's descriptor, gated the same way
// Metric.addToPayload gates a metric: on a BIRTH every property
// contributes regardless of its dirty bit, but on a non-birth publish
// a clean property is skipped entirely. A nested set only contributes
// when at least one of its own properties is present.
func (p *Property) addToDesc(isBirth bool) (PropertyDesc, bool) {
	if !isBirth && !p.dirty {
		return PropertyDesc{}, false
	}
	if p.nested != nil {
		nestedDesc, ok := p.nested.toDesc(isBirth)
		if !ok {
			return PropertyDesc{}, false
		}
		return PropertyDesc{Name: p.name, Nested: &nestedDesc}, true
	}
	return PropertyDesc{Name: p.name, Type: p.typ, Value: p.value}, true
}

// PropertySet is an ordered collection of Properties. It is itself
// usable as a nested Property payload: a Property whose payload is a
// recursively nested set.
type PropertySet struct {
	properties []*Property
}

// NewPropertySet creates an empty PropertySet.
func NewPropertySet() *PropertySet {
	return &PropertySet{}
}

// Add appends a property to the set.
func (s *PropertySet) Add(p *Property) {
	s.properties = append(s.properties, p)
}

// published clears dirty on every contained property.
func (s *PropertySet) published() {
	for _, p := range s.properties {
		p.published()
	}
}

// toDesc builds a PropertySetDesc from the set's properties, returning
// false if none contributed (empty nested sets are omitted entirely).
func (s *PropertySet) toDesc(isBirth bool) (PropertySetDesc, bool) {
	var desc PropertySetDesc
	for _, p := range s.properties {
		if d, ok := p.addToDesc(isBirth); ok {
			desc.Properties = append(desc.Properties, d)
		}
	}
	return desc, len(desc.Properties) > 0
}
