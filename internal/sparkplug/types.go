package sparkplug

import "fmt"

// MetricType enumerates the closed set of Sparkplug B data types this
// runtime supports. The set is fixed by the Sparkplug B spec, so unlike
// the original C++ port's per-type class hierarchy
// (src/metrics/simple/*.h), a single Metric type carries a MetricType
// tag and a Go `any` value checked against it.
type MetricType int

const (
	TypeInt8 MetricType = iota
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUInt8
	TypeUInt16
	TypeUInt32
	TypeUInt64
	TypeFloat
	TypeDouble
	TypeBoolean
	TypeString
	TypeDateTime
)

// String implements fmt.Stringer for log output.
func (t MetricType) String() string {
	switch t {
	case TypeInt8:
		return "Int8"
	case TypeInt16:
		return "Int16"
	case TypeInt32:
		return "Int32"
	case TypeInt64:
		return "Int64"
	case TypeUInt8:
		return "UInt8"
	case TypeUInt16:
		return "UInt16"
	case TypeUInt32:
		return "UInt32"
	case TypeUInt64:
		return "UInt64"
	case TypeFloat:
		return "Float"
	case TypeDouble:
		return "Double"
	case TypeBoolean:
		return "Boolean"
	case TypeString:
		return "String"
	case TypeDateTime:
		return "DateTime"
	default:
		return fmt.Sprintf("MetricType(%d)", int(t))
	}
}

// valueMatchesType reports whether v is the Go type expected for t.
func valueMatchesType(t MetricType, v any) bool {
	switch t {
	case TypeInt8:
		_, ok := v.(int8)
		return ok
	case TypeInt16:
		_, ok := v.(int16)
		return ok
	case TypeInt32:
		_, ok := v.(int32)
		return ok
	case TypeInt64:
		_, ok := v.(int64)
		return ok
	case TypeUInt8:
		_, ok := v.(uint8)
		return ok
	case TypeUInt16:
		_, ok := v.(uint16)
		return ok
	case TypeUInt32:
		_, ok := v.(uint32)
		return ok
	case TypeUInt64:
		_, ok := v.(uint64)
		return ok
	case TypeFloat:
		_, ok := v.(float32)
		return ok
	case TypeDouble:
		_, ok := v.(float64)
		return ok
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeDateTime:
		_, ok := v.(int64) // epoch millis, per Sparkplug B wire convention
		return ok
	default:
		return false
	}
}
