package sparkplugpb

import (
	"fmt"
	"time"

	"github.com/hollowoak/sparkplug-edge/internal/sparkplug"
	"google.golang.org/protobuf/encoding/protowire"
)

// Decode parses previously encoded Sparkplug B protobuf bytes.
func (c *Codec) Decode(data []byte) (sparkplug.PayloadDesc, error) {
	var desc sparkplug.PayloadDesc

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return desc, fmt.Errorf("sparkplugpb: malformed tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fPayloadTimestamp:
			v, n, err := consumeVarint(data)
			if err != nil {
				return desc, err
			}
			desc.Timestamp = time.UnixMilli(int64(v)).UTC()
			data = data[n:]
		case fPayloadSeq:
			v, n, err := consumeVarint(data)
			if err != nil {
				return desc, err
			}
			seq := v
			desc.Seq = &seq
			data = data[n:]
		case fPayloadMetric:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return desc, err
			}
			md, err := decodeMetric(raw)
			if err != nil {
				return desc, err
			}
			desc.Metrics = append(desc.Metrics, md)
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return desc, err
			}
			data = data[n:]
		}
	}

	return desc, nil
}

func decodeMetric(data []byte) (sparkplug.MetricDesc, error) {
	var md sparkplug.MetricDesc
	var wireType uint32
	var isNull bool

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return md, fmt.Errorf("sparkplugpb: malformed metric tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fMetricName:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return md, err
			}
			md.Name = s
			data = data[n:]
		case fMetricAlias:
			v, n, err := consumeVarint(data)
			if err != nil {
				return md, err
			}
			md.Alias = v
			data = data[n:]
		case fMetricTimestamp:
			v, n, err := consumeVarint(data)
			if err != nil {
				return md, err
			}
			md.Timestamp = time.UnixMilli(int64(v)).UTC()
			data = data[n:]
		case fMetricDatatype:
			v, n, err := consumeVarint(data)
			if err != nil {
				return md, err
			}
			wireType = uint32(v)
			md.Type = fromWireType(wireType)
			data = data[n:]
		case fMetricIsNull:
			_, n, err := consumeVarint(data)
			if err != nil {
				return md, err
			}
			isNull = true
			data = data[n:]
		case fMetricProps:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return md, err
			}
			set, err := decodePropertySet(raw)
			if err != nil {
				return md, err
			}
			md.Properties = &set
			data = data[n:]
		case fMetricIntValue:
			v, n, err := consumeVarint(data)
			if err != nil {
				return md, err
			}
			md.Value = intValueAs(md.Type, int64(int32(uint32(v))))
			data = data[n:]
		case fMetricLongValue:
			v, n, err := consumeVarint(data)
			if err != nil {
				return md, err
			}
			md.Value = longValueAs(md.Type, v)
			data = data[n:]
		case fMetricFloat:
			v, n, err := consumeFixed32(data)
			if err != nil {
				return md, err
			}
			md.Value = float32FromBits(v)
			data = data[n:]
		case fMetricDouble:
			v, n, err := consumeFixed64(data)
			if err != nil {
				return md, err
			}
			md.Value = float64FromBits(v)
			data = data[n:]
		case fMetricBool:
			v, n, err := consumeVarint(data)
			if err != nil {
				return md, err
			}
			md.Value = v != 0
			data = data[n:]
		case fMetricString:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return md, err
			}
			md.Value = s
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return md, err
			}
			data = data[n:]
		}
	}

	if isNull {
		md.Value = nil
	}
	return md, nil
}

func decodePropertySet(data []byte) (sparkplug.PropertySetDesc, error) {
	var keys []string
	var values []sparkplug.PropertyDesc

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return sparkplug.PropertySetDesc{}, fmt.Errorf("sparkplugpb: malformed property set tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fPropSetKeys:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return sparkplug.PropertySetDesc{}, err
			}
			keys = append(keys, s)
			data = data[n:]
		case fPropSetValues:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return sparkplug.PropertySetDesc{}, err
			}
			pd, err := decodePropertyValue(raw)
			if err != nil {
				return sparkplug.PropertySetDesc{}, err
			}
			values = append(values, pd)
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return sparkplug.PropertySetDesc{}, err
			}
			data = data[n:]
		}
	}

	var set sparkplug.PropertySetDesc
	for i := range values {
		if i < len(keys) {
			values[i].Name = keys[i]
		}
		set.Properties = append(set.Properties, values[i])
	}
	return set, nil
}

func decodePropertyValue(data []byte) (sparkplug.PropertyDesc, error) {
	var pd sparkplug.PropertyDesc
	var isNull bool

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return pd, fmt.Errorf("sparkplugpb: malformed property value tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fPropType:
			v, n, err := consumeVarint(data)
			if err != nil {
				return pd, err
			}
			pd.Type = fromWireType(uint32(v))
			data = data[n:]
		case fPropIsNull:
			_, n, err := consumeVarint(data)
			if err != nil {
				return pd, err
			}
			isNull = true
			data = data[n:]
		case fPropSetValue:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return pd, err
			}
			nested, err := decodePropertySet(raw)
			if err != nil {
				return pd, err
			}
			pd.Nested = &nested
			data = data[n:]
		case fPropIntValue:
			v, n, err := consumeVarint(data)
			if err != nil {
				return pd, err
			}
			pd.Value = intValueAs(pd.Type, int64(int32(uint32(v))))
			data = data[n:]
		case fPropLongValue:
			v, n, err := consumeVarint(data)
			if err != nil {
				return pd, err
			}
			pd.Value = longValueAs(pd.Type, v)
			data = data[n:]
		case fPropFloat:
			v, n, err := consumeFixed32(data)
			if err != nil {
				return pd, err
			}
			pd.Value = float32FromBits(v)
			data = data[n:]
		case fPropDouble:
			v, n, err := consumeFixed64(data)
			if err != nil {
				return pd, err
			}
			pd.Value = float64FromBits(v)
			data = data[n:]
		case fPropBool:
			v, n, err := consumeVarint(data)
			if err != nil {
				return pd, err
			}
			pd.Value = v != 0
			data = data[n:]
		case fPropString:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return pd, err
			}
			pd.Value = s
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return pd, err
			}
			data = data[n:]
		}
	}

	if isNull {
		pd.Value = nil
	}
	return pd, nil
}
