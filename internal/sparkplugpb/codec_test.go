package sparkplugpb

import (
	"testing"
	"time"

	"github.com/hollowoak/sparkplug-edge/internal/sparkplug"
)

func TestRoundTripScalarMetrics(t *testing.T) {
	seq := uint64(3)
	bd := uint64(7)
	desc := sparkplug.PayloadDesc{
		Timestamp: time.UnixMilli(1_700_000_000_000).UTC(),
		Seq:       &seq,
		BdSeq:     &bd,
		Metrics: []sparkplug.MetricDesc{
			{Name: "Temp", Type: sparkplug.TypeInt32, Value: int32(21), Timestamp: time.UnixMilli(1).UTC()},
			{Name: "Active", Type: sparkplug.TypeBoolean, Value: true, Timestamp: time.UnixMilli(2).UTC()},
			{Name: "Label", Type: sparkplug.TypeString, Value: "ok", Timestamp: time.UnixMilli(3).UTC()},
			{Name: "Ratio", Type: sparkplug.TypeDouble, Value: 0.5, Timestamp: time.UnixMilli(4).UTC()},
		},
	}

	codec := New()
	raw, err := codec.Encode(desc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.Seq == nil || *got.Seq != seq {
		t.Fatalf("seq mismatch: got %v, want %d", got.Seq, seq)
	}
	if len(got.Metrics) != len(desc.Metrics) {
		t.Fatalf("expected %d metrics, got %d", len(desc.Metrics), len(got.Metrics))
	}

	byName := map[string]sparkplug.MetricDesc{}
	for _, m := range got.Metrics {
		byName[m.Name] = m
	}

	if byName["Temp"].Value != int32(21) {
		t.Errorf("Temp = %v, want int32(21)", byName["Temp"].Value)
	}
	if byName["Active"].Value != true {
		t.Errorf("Active = %v, want true", byName["Active"].Value)
	}
	if byName["Label"].Value != "ok" {
		t.Errorf("Label = %v, want \"ok\"", byName["Label"].Value)
	}
	if byName["Ratio"].Value != 0.5 {
		t.Errorf("Ratio = %v, want 0.5", byName["Ratio"].Value)
	}
}

func TestRoundTripPropertySet(t *testing.T) {
	desc := sparkplug.PayloadDesc{
		Timestamp: time.Now(),
		Metrics: []sparkplug.MetricDesc{
			{
				Name:      "Setpoint",
				Type:      sparkplug.TypeInt32,
				Value:     int32(10),
				Timestamp: time.Now(),
				Properties: &sparkplug.PropertySetDesc{
					Properties: []sparkplug.PropertyDesc{
						{Name: "writable", Type: sparkplug.TypeBoolean, Value: true},
						{Name: "units", Type: sparkplug.TypeString, Value: "C"},
					},
				},
			},
		},
	}

	codec := New()
	raw, err := codec.Encode(desc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(got.Metrics) != 1 || got.Metrics[0].Properties == nil {
		t.Fatal("expected one metric with a property set")
	}
	props := got.Metrics[0].Properties.Properties
	if len(props) != 2 {
		t.Fatalf("expected 2 properties, got %d", len(props))
	}
	byName := map[string]sparkplug.PropertyDesc{}
	for _, p := range props {
		byName[p.Name] = p
	}
	if byName["writable"].Value != true {
		t.Errorf("writable = %v, want true", byName["writable"].Value)
	}
	if byName["units"].Value != "C" {
		t.Errorf("units = %v, want \"C\"", byName["units"].Value)
	}
}

func TestEncodeRejectsOversizePayload(t *testing.T) {
	desc := sparkplug.PayloadDesc{
		Timestamp: time.Now(),
		Metrics: []sparkplug.MetricDesc{
			{Name: "Blob", Type: sparkplug.TypeString, Value: string(make([]byte, 1024)), Timestamp: time.Now()},
		},
	}
	codec := &Codec{MaxBytes: 64}
	if _, err := codec.Encode(desc); err == nil {
		t.Fatal("expected an error for an oversize payload")
	}
}
