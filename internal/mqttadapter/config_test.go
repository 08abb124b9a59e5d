package mqttadapter

import "testing"

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	if got := cfg.clientIDPrefix(); got != defaultClientIDPrefix {
		t.Errorf("clientIDPrefix() = %q, want %q", got, defaultClientIDPrefix)
	}
	if got := cfg.keepAlive(); got != defaultKeepAlive {
		t.Errorf("keepAlive() = %d, want %d", got, defaultKeepAlive)
	}
	if got := cfg.connectTimeout(); got != defaultConnectTimeout {
		t.Errorf("connectTimeout() = %v, want %v", got, defaultConnectTimeout)
	}
	if got := cfg.maxRetries(); got != defaultMaxRetries {
		t.Errorf("maxRetries() = %d, want %d", got, defaultMaxRetries)
	}
}

func TestConfigOverrides(t *testing.T) {
	cfg := Config{
		ClientIDPrefix: "edge-",
		KeepAlive:      60,
		MaxRetries:     3,
	}
	if got := cfg.clientIDPrefix(); got != "edge-" {
		t.Errorf("clientIDPrefix() = %q, want %q", got, "edge-")
	}
	if got := cfg.keepAlive(); got != 60 {
		t.Errorf("keepAlive() = %d, want 60", got)
	}
	if got := cfg.maxRetries(); got != 3 {
		t.Errorf("maxRetries() = %d, want 3", got)
	}
}

func TestTopicHelpers(t *testing.T) {
	if got, want := nodeCommandTopic("Plant", "Line1"), "spBv1.0/Plant/NCMD/Line1"; got != want {
		t.Errorf("nodeCommandTopic() = %q, want %q", got, want)
	}
	if got, want := deviceCommandWildcard("Plant", "Line1"), "spBv1.0/Plant/DCMD/Line1/+"; got != want {
		t.Errorf("deviceCommandWildcard() = %q, want %q", got, want)
	}
	if got, want := primaryHostStateTopic("SCADA"), "spBv1.0/STATE/SCADA"; got != want {
		t.Errorf("primaryHostStateTopic() = %q, want %q", got, want)
	}
}
