package sparkplugpb

import (
	"fmt"
	"math"

	"github.com/hollowoak/sparkplug-edge/internal/sparkplug"
	"google.golang.org/protobuf/encoding/protowire"
)

func consumeVarint(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("sparkplugpb: malformed varint: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeFixed32(b []byte) (uint32, int, error) {
	v, n := protowire.ConsumeFixed32(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("sparkplugpb: malformed fixed32: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeFixed64(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("sparkplugpb: malformed fixed64: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeBytes(b []byte, typ protowire.Type) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("sparkplugpb: expected length-delimited field, got wire type %d", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("sparkplugpb: malformed bytes field: %w", protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeString(b []byte, typ protowire.Type) (string, int, error) {
	raw, n, err := consumeBytes(b, typ)
	if err != nil {
		return "", 0, err
	}
	return string(raw), n, nil
}

func skipField(b []byte, typ protowire.Type) (int, error) {
	n := protowire.ConsumeFieldValue(0, typ, b)
	if n < 0 {
		return 0, fmt.Errorf("sparkplugpb: malformed field: %w", protowire.ParseError(n))
	}
	return n, nil
}

func float32FromBits(bits uint32) float32 {
	return math.Float32frombits(bits)
}

func float64FromBits(bits uint64) float64 {
	return math.Float64frombits(bits)
}

// intValueAs re-casts a 32-bit wire value to the Go type the declared
// MetricType expects.
func intValueAs(t sparkplug.MetricType, v int64) any {
	switch t {
	case sparkplug.TypeInt8:
		return int8(v)
	case sparkplug.TypeInt16:
		return int16(v)
	case sparkplug.TypeUInt8:
		return uint8(v)
	case sparkplug.TypeUInt16:
		return uint16(v)
	case sparkplug.TypeUInt32:
		return uint32(v)
	default:
		return int32(v)
	}
}

// longValueAs re-casts a 64-bit wire value to the Go type the declared
// MetricType expects.
func longValueAs(t sparkplug.MetricType, v uint64) any {
	switch t {
	case sparkplug.TypeUInt64:
		return v
	case sparkplug.TypeDateTime:
		return int64(v)
	default:
		return int64(v)
	}
}
