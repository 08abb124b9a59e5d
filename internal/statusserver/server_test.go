package statusserver

import (
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/hollowoak/sparkplug-edge/internal/sparkplug"
)

func testNode(t *testing.T) *sparkplug.Node {
	t.Helper()
	n := sparkplug.NewNode(sparkplug.NodeOptions{
		GroupID: "G",
		NodeID:  "N",
		Codec:   nil,
	})
	return n
}

func TestHandleHealth(t *testing.T) {
	s := NewServer(Config{Address: "", Port: 8080}, testNode(t), nil, slog.Default())

	r := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, r)

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %q, want %q", body["status"], "healthy")
	}
}

func TestHandleStatusReportsInactiveBeforeEnable(t *testing.T) {
	s := NewServer(Config{Address: "", Port: 8080}, testNode(t), nil, slog.Default())

	r := httptest.NewRequest("GET", "/status", nil)
	w := httptest.NewRecorder()
	s.handleStatus(w, r)

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if active, _ := body["active"].(bool); active {
		t.Error("expected active=false before any adapter reports Active")
	}
	if body["mode"] != "Single" {
		t.Errorf("mode = %v, want %q", body["mode"], "Single")
	}
}

func TestHandleVersionReturnsBuildInfo(t *testing.T) {
	s := NewServer(Config{Address: "", Port: 8080}, testNode(t), nil, slog.Default())

	r := httptest.NewRequest("GET", "/version", nil)
	w := httptest.NewRecorder()
	s.handleVersion(w, r)

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["go_version"]; !ok {
		t.Error("expected go_version in version response")
	}
}
