// Package sparkplugpb implements sparkplug.PayloadCodec against the
// Eclipse Tahu Sparkplug B Payload message, encoding and decoding the
// protobuf wire format directly with protowire rather than through
// generated message types, since no .proto compilation step runs as
// part of building this module.
//
// Wire layout (field numbers per the Tahu org.eclipse.tahu.protobuf.Payload
// message):
//
//	1  timestamp   uint64  (varint)
//	2  metrics     Metric  (repeated, length-delimited)
//	3  seq         uint64  (varint)
//	4  uuid        string  (unused here)
//	5  body        bytes   (unused here)
//
// Metric message:
//
//	1  name        string
//	2  alias       uint64
//	3  timestamp   uint64
//	4  datatype    uint32
//	5  is_historical bool   (unused here)
//	6  is_transient  bool   (unused here)
//	7  is_null       bool
//	8  metadata      bytes  (unused here)
//	9  properties    PropertySet
//	10 int_value     uint32
//	11 long_value    uint64
//	12 float_value   float32
//	13 double_value  double
//	14 boolean_value bool
//	15 string_value  string
//	16 bytes_value   bytes   (unused here)
//	17 dataset_value bytes   (unused here)
//	18 template_value bytes  (unused here)
//
// bdSeq rides along as an ordinary metric named "bdSeq" of datatype
// Int64 (per Sparkplug B convention), so PayloadDesc.BdSeq is folded
// into the metric list rather than needing its own wire field.
package sparkplugpb
