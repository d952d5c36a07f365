package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBridgeConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	var cfg BridgeConfig
	cfg.SetDefaults()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.SessionRecordPath == "" {
		t.Error("SessionRecordPath should default to a non-empty path")
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout)
	}
	if cfg.Lifecycle.StartupProtectionWindow != 5*time.Second {
		t.Errorf("Lifecycle.StartupProtectionWindow = %v, want 5s", cfg.Lifecycle.StartupProtectionWindow)
	}
	if cfg.Lifecycle.ReloadRecoveryRetries != 3 {
		t.Errorf("Lifecycle.ReloadRecoveryRetries = %d, want 3", cfg.Lifecycle.ReloadRecoveryRetries)
	}
}

func TestBridgeConfig_SetDefaults_PreservesExistingValues(t *testing.T) {
	t.Parallel()

	cfg := BridgeConfig{
		Port:              9999,
		LogLevel:          "debug",
		SessionRecordPath: "/tmp/custom-session.json",
		ShutdownTimeout:   10 * time.Second,
		Lifecycle: LifecycleConfig{
			ReloadRecoveryRetries: 7,
		},
	}
	cfg.SetDefaults()

	if cfg.Port != 9999 {
		t.Errorf("Port was overwritten: got %d, want 9999", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel was overwritten: got %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.SessionRecordPath != "/tmp/custom-session.json" {
		t.Errorf("SessionRecordPath was overwritten: got %q", cfg.SessionRecordPath)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout was overwritten: got %v", cfg.ShutdownTimeout)
	}
	if cfg.Lifecycle.ReloadRecoveryRetries != 7 {
		t.Errorf("Lifecycle.ReloadRecoveryRetries was overwritten: got %d, want 7", cfg.Lifecycle.ReloadRecoveryRetries)
	}
	// Untouched lifecycle fields still get filled in.
	if cfg.Lifecycle.PortRetryTimeout != 5*time.Second {
		t.Errorf("Lifecycle.PortRetryTimeout = %v, want 5s", cfg.Lifecycle.PortRetryTimeout)
	}
}

func TestFrontendConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	var cfg FrontendConfig
	cfg.SetDefaults()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Discovery.InitialAttempts != 1 {
		t.Errorf("Discovery.InitialAttempts = %d, want 1", cfg.Discovery.InitialAttempts)
	}
	if cfg.Discovery.InitialInterval != time.Second {
		t.Errorf("Discovery.InitialInterval = %v, want 1s", cfg.Discovery.InitialInterval)
	}
	if cfg.Discovery.ExtendedInterval != 10*time.Second {
		t.Errorf("Discovery.ExtendedInterval = %v, want 10s", cfg.Discovery.ExtendedInterval)
	}
}

func TestFrontendConfig_SetDefaults_PreservesExistingValues(t *testing.T) {
	t.Parallel()

	cfg := FrontendConfig{
		LogLevel:   "warn",
		HealthAddr: "127.0.0.1:9876",
		Discovery: DiscoveryConfig{
			InitialAttempts: 3,
		},
	}
	cfg.SetDefaults()

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel was overwritten: got %q, want %q", cfg.LogLevel, "warn")
	}
	if cfg.HealthAddr != "127.0.0.1:9876" {
		t.Errorf("HealthAddr was overwritten: got %q", cfg.HealthAddr)
	}
	if cfg.Discovery.InitialAttempts != 3 {
		t.Errorf("Discovery.InitialAttempts was overwritten: got %d, want 3", cfg.Discovery.InitialAttempts)
	}
	if cfg.Discovery.ProbeTimeout != 500*time.Millisecond {
		t.Errorf("Discovery.ProbeTimeout = %v, want 500ms", cfg.Discovery.ProbeTimeout)
	}
}

func TestDefaultSessionRecordPath_EndsInSessionFile(t *testing.T) {
	t.Parallel()
	path := defaultSessionRecordPath()
	if !strings.HasSuffix(filepath.Base(path), "session.json") {
		t.Errorf("defaultSessionRecordPath() = %q, expected a file name ending in session.json", path)
	}
}

func TestFindConfigFile_EmptyWhenNoHomeConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	got := findConfigFile("bridge")
	if got != "" {
		t.Errorf("findConfigFile(bridge) = %q, want empty in a fresh HOME", got)
	}
}

func TestFindConfigFile_MatchesHomeYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	bridgeDir := filepath.Join(dir, ".mcp-bridge")
	if err := os.MkdirAll(bridgeDir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	cfgPath := filepath.Join(bridgeDir, "mcp-bridge.yaml")
	if err := os.WriteFile(cfgPath, []byte("bridge:\n  port: 7777\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got := findConfigFile("bridge")
	if got != cfgPath {
		t.Errorf("findConfigFile(bridge) = %q, want %q", got, cfgPath)
	}
}
