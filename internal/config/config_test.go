package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hollowoak/sparkplug-edge/internal/sparkplug"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 9999\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_SearchPath(t *testing.T) {
	dir := t.TempDir()
	orig := searchPathsFunc
	searchPathsFunc = func() []string {
		return []string{filepath.Join(dir, "config.yaml")}
	}
	defer func() { searchPathsFunc = orig }()

	_, err := FindConfig("")
	if err == nil {
		t.Fatal(`FindConfig("") with no config files should error`)
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 8080\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf(`FindConfig("") error: %v`, err)
	}
	if got != "config.yaml" {
		t.Errorf(`FindConfig("") = %q, want %q`, got, "config.yaml")
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte(
		"node:\n  group_id: G\n  node_id: N\nbrokers:\n  - url: tcp://localhost:1883\n    password: ${SPARKPLUG_TEST_PASS}\n"), 0600)
	os.Setenv("SPARKPLUG_TEST_PASS", "secret123")
	defer os.Unsetenv("SPARKPLUG_TEST_PASS")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Brokers[0].Password != "secret123" {
		t.Errorf("password = %q, want %q", cfg.Brokers[0].Password, "secret123")
	}
}

func TestLoad_RequiresGroupAndNodeID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("brokers:\n  - url: tcp://localhost:1883\n"), 0600)

	if _, err := Load(path); err == nil {
		t.Fatal("expected a validation error for a missing node identity")
	}
}

func TestLoad_RequiresAtLeastOneBroker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("node:\n  group_id: G\n  node_id: N\n"), 0600)

	if _, err := Load(path); err == nil {
		t.Fatal("expected a validation error for no brokers configured")
	}
}

func TestApplyDefaults_DeviceInheritsNodeInterval(t *testing.T) {
	cfg := Default()
	cfg.Node.PublishIntervalMs = 2500
	cfg.Node.Devices = []DeviceConfig{{Name: "Pump1"}, {Name: "Pump2", PublishIntervalMs: 500}}
	cfg.applyDefaults()

	if cfg.Node.Devices[0].PublishIntervalMs != 2500 {
		t.Errorf("Pump1 interval = %d, want inherited 2500", cfg.Node.Devices[0].PublishIntervalMs)
	}
	if cfg.Node.Devices[1].PublishIntervalMs != 500 {
		t.Errorf("Pump2 interval = %d, want explicit 500", cfg.Node.Devices[1].PublishIntervalMs)
	}
}

func TestApplyDefaults_BrokerDefaults(t *testing.T) {
	cfg := Default()
	cfg.Brokers = []BrokerConfig{{URL: "tcp://localhost:1883"}}
	cfg.applyDefaults()

	b := cfg.Brokers[0]
	if b.KeepAliveSec != 15 {
		t.Errorf("KeepAliveSec = %d, want 15", b.KeepAliveSec)
	}
	if b.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", b.MaxRetries)
	}
	if b.ClientIDPrefix != "sparkplug-" {
		t.Errorf("ClientIDPrefix = %q, want %q", b.ClientIDPrefix, "sparkplug-")
	}
}

func TestEnabledCommandBits(t *testing.T) {
	n := NodeConfig{EnabledCommands: []string{"rebirth", "Reboot", " next_server ", "bogus"}}
	got := n.EnabledCommandBits()
	want := sparkplug.CommandRebirth | sparkplug.CommandReboot | sparkplug.CommandNextServer
	if got != want {
		t.Errorf("EnabledCommandBits() = %v, want %v", got, want)
	}
}

func TestValidate_PortOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Listen.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an out-of-range listen port")
	}
}

func TestValidate_MetricsPortIgnoredWhenDisabled(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Enabled = false
	cfg.Metrics.Port = -1
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled metrics should skip port validation, got: %v", err)
	}
}

func TestValidate_BrokerMissingURL(t *testing.T) {
	cfg := Default()
	cfg.Brokers = []BrokerConfig{{Name: "bad"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a broker with no URL")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "deafening"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unrecognized log level")
	}
}

func TestDefault_PassesValidation(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() should already be valid, got: %v", err)
	}
}
