package sparkplugpb

import "github.com/hollowoak/sparkplug-edge/internal/sparkplug"

// Tahu Sparkplug B DataType enum values (org.eclipse.tahu.protobuf.Payload.Metric.DataType).
const (
	dtUnknown  = 0
	dtInt8     = 1
	dtInt16    = 2
	dtInt32    = 3
	dtInt64    = 4
	dtUInt8    = 5
	dtUInt16   = 6
	dtUInt32   = 7
	dtUInt64   = 8
	dtFloat    = 9
	dtDouble   = 10
	dtBoolean  = 11
	dtString   = 12
	dtDateTime = 13
	dtPropertySet = 20
)

func toWireType(t sparkplug.MetricType) uint32 {
	switch t {
	case sparkplug.TypeInt8:
		return dtInt8
	case sparkplug.TypeInt16:
		return dtInt16
	case sparkplug.TypeInt32:
		return dtInt32
	case sparkplug.TypeInt64:
		return dtInt64
	case sparkplug.TypeUInt8:
		return dtUInt8
	case sparkplug.TypeUInt16:
		return dtUInt16
	case sparkplug.TypeUInt32:
		return dtUInt32
	case sparkplug.TypeUInt64:
		return dtUInt64
	case sparkplug.TypeFloat:
		return dtFloat
	case sparkplug.TypeDouble:
		return dtDouble
	case sparkplug.TypeBoolean:
		return dtBoolean
	case sparkplug.TypeString:
		return dtString
	case sparkplug.TypeDateTime:
		return dtDateTime
	default:
		return dtUnknown
	}
}

func fromWireType(wt uint32) sparkplug.MetricType {
	switch wt {
	case dtInt8:
		return sparkplug.TypeInt8
	case dtInt16:
		return sparkplug.TypeInt16
	case dtInt32:
		return sparkplug.TypeInt32
	case dtInt64:
		return sparkplug.TypeInt64
	case dtUInt8:
		return sparkplug.TypeUInt8
	case dtUInt16:
		return sparkplug.TypeUInt16
	case dtUInt32:
		return sparkplug.TypeUInt32
	case dtUInt64:
		return sparkplug.TypeUInt64
	case dtFloat:
		return sparkplug.TypeFloat
	case dtDouble:
		return sparkplug.TypeDouble
	case dtBoolean:
		return sparkplug.TypeBoolean
	case dtString:
		return sparkplug.TypeString
	case dtDateTime:
		return sparkplug.TypeDateTime
	default:
		return sparkplug.TypeString
	}
}
