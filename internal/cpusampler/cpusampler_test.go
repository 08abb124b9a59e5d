package cpusampler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hollowoak/sparkplug-edge/internal/sparkplug"
)

func newTestNode(t *testing.T) *sparkplug.Node {
	t.Helper()
	return sparkplug.NewNode(sparkplug.NodeOptions{GroupID: "G", NodeID: "N"})
}

func writeStat(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "stat")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestNewDiscoversCoresFromStatLines(t *testing.T) {
	path := writeStat(t,
		"cpu  100 0 100 800 0 0 0",
		"cpu0 50 0 50 400 0 0 0",
		"cpu1 50 0 50 400 0 0 0",
		"intr 12345",
	)

	s, err := New(path, 1000, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	devices := s.Devices()
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2 (the aggregate line must not appear as a Device)", len(devices))
	}
	names := []string{devices[0].Name(), devices[1].Name()}
	want := []string{"cpu0", "cpu1"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("device[%d] name = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestAttachTotalRegistersNodeMetrics(t *testing.T) {
	path := writeStat(t, "cpu 100 0 100 800 0 0 0")
	s, err := New(path, 1000, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	n := newTestNode(t)
	if err := s.AttachTotal(n); err != nil {
		t.Fatalf("AttachTotal: %v", err)
	}
	if _, ok := n.Metric("usage"); !ok {
		t.Error("expected a Node-level usage metric after AttachTotal")
	}
	if _, ok := n.Metric("idle"); !ok {
		t.Error("expected a Node-level idle metric after AttachTotal")
	}
}

func TestSampleFirstReadingIsZero(t *testing.T) {
	path := writeStat(t, "cpu 100 0 100 800 0 0 0")

	s, err := New(path, 1000, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Sample(); err != nil {
		t.Fatalf("Sample: %v", err)
	}

	usage, _ := s.total.usage.Value().(float64)
	if usage != 0.0 {
		t.Errorf("first sample usage = %v, want 0.0", usage)
	}
}

func TestSampleComputesDelta(t *testing.T) {
	path := writeStat(t, "cpu 100 0 100 800 0 0 0")
	s, err := New(path, 1000, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Sample(); err != nil {
		t.Fatalf("Sample: %v", err)
	}

	// Advance: +100 busy, +0 idle => 100% usage over the delta.
	if err := os.WriteFile(path, []byte("cpu 150 0 150 800 0 0 0\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := s.Sample(); err != nil {
		t.Fatalf("Sample: %v", err)
	}

	usage, _ := s.total.usage.Value().(float64)
	if usage != 100.0 {
		t.Errorf("usage = %v, want 100.0", usage)
	}
	idle, _ := s.total.idle.Value().(float64)
	if idle != 0.0 {
		t.Errorf("idle = %v, want 0.0", idle)
	}
}

func TestSamplePerCoreDelta(t *testing.T) {
	path := writeStat(t,
		"cpu  100 0 100 800 0 0 0",
		"cpu0 50 0 50 400 0 0 0",
	)
	s, err := New(path, 1000, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Sample(); err != nil {
		t.Fatalf("Sample: %v", err)
	}

	if err := os.WriteFile(path, []byte(
		"cpu  150 0 150 800 0 0 0\ncpu0 100 0 50 400 0 0 0\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := s.Sample(); err != nil {
		t.Fatalf("Sample: %v", err)
	}

	usage, _ := s.perCore[0].usage.Value().(float64)
	if usage != 100.0 {
		t.Errorf("cpu0 usage = %v, want 100.0", usage)
	}
}

func TestSampleOverflowResetsToZero(t *testing.T) {
	path := writeStat(t, "cpu 1000 0 1000 8000 0 0 0")
	s, err := New(path, 1000, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Sample(); err != nil {
		t.Fatalf("Sample: %v", err)
	}

	// Counter appears to go backwards (e.g. wrapped) — must not panic
	// or report a negative percentage.
	if err := os.WriteFile(path, []byte("cpu 10 0 10 80 0 0 0\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := s.Sample(); err != nil {
		t.Fatalf("Sample: %v", err)
	}

	usage, _ := s.total.usage.Value().(float64)
	if usage != 0.0 {
		t.Errorf("usage after overflow = %v, want 0.0", usage)
	}
}

func TestSampleCoreCountChangeErrors(t *testing.T) {
	path := writeStat(t, "cpu 100 0 100 800 0 0 0", "cpu0 100 0 100 800 0 0 0")
	s, err := New(path, 1000, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := os.WriteFile(path, []byte("cpu 100 0 100 800 0 0 0\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := s.Sample(); err == nil {
		t.Fatal("expected an error when the cpu line count changes")
	}
}

func TestNewMissingFile(t *testing.T) {
	if _, err := New("/nonexistent/proc/stat", 1000, nil); err == nil {
		t.Fatal("expected an error for a missing stat file")
	}
}
