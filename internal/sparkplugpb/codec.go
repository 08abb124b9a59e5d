package sparkplugpb

import (
	"fmt"
	"math"

	"github.com/hollowoak/sparkplug-edge/internal/sparkplug"
	"google.golang.org/protobuf/encoding/protowire"
)

// Payload field numbers.
const (
	fPayloadTimestamp = 1
	fPayloadMetric    = 2
	fPayloadSeq       = 3
)

// Metric field numbers.
const (
	fMetricName      = 1
	fMetricAlias     = 2
	fMetricTimestamp = 3
	fMetricDatatype  = 4
	fMetricIsNull    = 7
	fMetricProps     = 9
	fMetricIntValue  = 10
	fMetricLongValue = 11
	fMetricFloat     = 12
	fMetricDouble    = 13
	fMetricBool      = 14
	fMetricString    = 15
)

// PropertySet field numbers.
const (
	fPropSetKeys   = 1
	fPropSetValues = 2
)

// PropertyValue field numbers (mirrors Metric's value oneof, plus a
// nested-set slot).
const (
	fPropType      = 1
	fPropIsNull    = 2
	fPropIntValue  = 3
	fPropLongValue = 4
	fPropFloat     = 5
	fPropDouble    = 6
	fPropBool      = 7
	fPropString    = 8
	fPropSetValue  = 9
)

// MaxPayloadBytes bounds the encoded size Codec will accept, matching
// the default ceiling named by the sparkplug.PayloadCodec contract.
const MaxPayloadBytes = 512

// Codec implements sparkplug.PayloadCodec against the Sparkplug B /
// Eclipse Tahu protobuf wire format, encoding and decoding by hand with
// protowire rather than generated message types.
type Codec struct {
	// MaxBytes overrides MaxPayloadBytes if non-zero.
	MaxBytes int
}

var _ sparkplug.PayloadCodec = (*Codec)(nil)

// New returns a Codec with the default 512-byte payload ceiling.
func New() *Codec {
	return &Codec{}
}

func (c *Codec) maxBytes() int {
	if c.MaxBytes > 0 {
		return c.MaxBytes
	}
	return MaxPayloadBytes
}

// Encode serializes desc into Sparkplug B protobuf bytes.
func (c *Codec) Encode(desc sparkplug.PayloadDesc) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fPayloadTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(desc.Timestamp.UnixMilli()))

	if desc.Seq != nil {
		b = protowire.AppendTag(b, fPayloadSeq, protowire.VarintType)
		b = protowire.AppendVarint(b, *desc.Seq)
	}

	for _, md := range desc.Metrics {
		mb, err := encodeMetric(md)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fPayloadMetric, protowire.BytesType)
		b = protowire.AppendBytes(b, mb)
	}

	if len(b) > c.maxBytes() {
		return nil, fmt.Errorf("sparkplugpb: encoded payload is %d bytes, exceeds max %d: %w", len(b), c.maxBytes(), sparkplug.ErrPayloadTooLarge)
	}
	return b, nil
}

func encodeMetric(md sparkplug.MetricDesc) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fMetricName, protowire.BytesType)
	b = protowire.AppendString(b, md.Name)

	if md.Alias != 0 {
		b = protowire.AppendTag(b, fMetricAlias, protowire.VarintType)
		b = protowire.AppendVarint(b, md.Alias)
	}

	b = protowire.AppendTag(b, fMetricTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(md.Timestamp.UnixMilli()))

	b = protowire.AppendTag(b, fMetricDatatype, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(toWireType(md.Type)))

	if md.Value == nil {
		b = protowire.AppendTag(b, fMetricIsNull, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	} else {
		vb, err := appendMetricValue(b, md.Type, md.Value)
		if err != nil {
			return nil, fmt.Errorf("sparkplugpb: metric %q: %w", md.Name, err)
		}
		b = vb
	}

	if md.Properties != nil {
		pb := encodePropertySet(*md.Properties)
		b = protowire.AppendTag(b, fMetricProps, protowire.BytesType)
		b = protowire.AppendBytes(b, pb)
	}

	return b, nil
}

func appendMetricValue(b []byte, t sparkplug.MetricType, v any) ([]byte, error) {
	switch t {
	case sparkplug.TypeInt8, sparkplug.TypeInt16, sparkplug.TypeInt32,
		sparkplug.TypeUInt8, sparkplug.TypeUInt16, sparkplug.TypeUInt32:
		iv, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fMetricIntValue, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(iv)))
	case sparkplug.TypeInt64, sparkplug.TypeUInt64, sparkplug.TypeDateTime:
		iv, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fMetricLongValue, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(iv))
	case sparkplug.TypeFloat:
		f, ok := v.(float32)
		if !ok {
			return nil, fmt.Errorf("expected float32, got %T", v)
		}
		b = protowire.AppendTag(b, fMetricFloat, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(f))
	case sparkplug.TypeDouble:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("expected float64, got %T", v)
		}
		b = protowire.AppendTag(b, fMetricDouble, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(f))
	case sparkplug.TypeBoolean:
		bv, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		b = protowire.AppendTag(b, fMetricBool, protowire.VarintType)
		if bv {
			b = protowire.AppendVarint(b, 1)
		} else {
			b = protowire.AppendVarint(b, 0)
		}
	case sparkplug.TypeString:
		sv, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		b = protowire.AppendTag(b, fMetricString, protowire.BytesType)
		b = protowire.AppendString(b, sv)
	default:
		return nil, fmt.Errorf("unsupported metric type %v", t)
	}
	return b, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected an integer value, got %T", v)
	}
}

func encodePropertySet(set sparkplug.PropertySetDesc) []byte {
	var keys []byte
	var values []byte
	for _, p := range set.Properties {
		keys = protowire.AppendTag(keys, fPropSetKeys, protowire.BytesType)
		keys = protowire.AppendString(keys, p.Name)

		values = protowire.AppendTag(values, fPropSetValues, protowire.BytesType)
		values = protowire.AppendBytes(values, encodePropertyValue(p))
	}
	return append(keys, values...)
}

func encodePropertyValue(p sparkplug.PropertyDesc) []byte {
	var b []byte
	if p.Nested != nil {
		b = protowire.AppendTag(b, fPropType, protowire.VarintType)
		b = protowire.AppendVarint(b, dtPropertySet)
		nested := encodePropertySet(*p.Nested)
		b = protowire.AppendTag(b, fPropSetValue, protowire.BytesType)
		b = protowire.AppendBytes(b, nested)
		return b
	}

	b = protowire.AppendTag(b, fPropType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(toWireType(p.Type)))

	if p.Value == nil {
		b = protowire.AppendTag(b, fPropIsNull, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
		return b
	}

	vb, err := appendPropertyValue(b, p.Type, p.Value)
	if err != nil {
		// Malformed property values are dropped rather than aborting
		// the whole payload; the caller already decided to include
		// this property, so failing here would lose an otherwise
		// valid metric.
		return b
	}
	return vb
}

func appendPropertyValue(b []byte, t sparkplug.MetricType, v any) ([]byte, error) {
	switch t {
	case sparkplug.TypeInt8, sparkplug.TypeInt16, sparkplug.TypeInt32,
		sparkplug.TypeUInt8, sparkplug.TypeUInt16, sparkplug.TypeUInt32:
		iv, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fPropIntValue, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(iv)))
	case sparkplug.TypeInt64, sparkplug.TypeUInt64, sparkplug.TypeDateTime:
		iv, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fPropLongValue, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(iv))
	case sparkplug.TypeFloat:
		f, ok := v.(float32)
		if !ok {
			return nil, fmt.Errorf("expected float32, got %T", v)
		}
		b = protowire.AppendTag(b, fPropFloat, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(f))
	case sparkplug.TypeDouble:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("expected float64, got %T", v)
		}
		b = protowire.AppendTag(b, fPropDouble, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(f))
	case sparkplug.TypeBoolean:
		bv, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		b = protowire.AppendTag(b, fPropBool, protowire.VarintType)
		if bv {
			b = protowire.AppendVarint(b, 1)
		} else {
			b = protowire.AppendVarint(b, 0)
		}
	case sparkplug.TypeString:
		sv, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		b = protowire.AppendTag(b, fPropString, protowire.BytesType)
		b = protowire.AppendString(b, sv)
	default:
		return nil, fmt.Errorf("unsupported property type %v", t)
	}
	return b, nil
}
