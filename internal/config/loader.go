package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is this module's environment-variable prefix for
// viper.AutomaticEnv overrides.
const envPrefix = "MCP_BRIDGE"

func defaultSessionRecordPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "mcp-bridge-session.json")
	}
	return filepath.Join(home, ".mcp-bridge", "session.json")
}

// newViper builds a Viper instance configured to read configFile (or
// search standard locations when empty) and to accept MCP_BRIDGE_-
// prefixed environment overrides for nested keys, mirroring the
// teacher's InitViper/bindNestedEnvKeys pair.
func newViper(section, configFile string) *viper.Viper {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else if found := findConfigFile(section); found != "" {
		v.SetConfigFile(found)
	} else {
		v.SetConfigName("mcp-bridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func findConfigFile(section string) string {
	home, _ := os.UserHomeDir()
	dirs := []string{".", filepath.Join(home, ".mcp-bridge"), "/etc/mcp-bridge"}
	for _, dir := range dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "mcp-bridge"+ext)
			if _, err := os.Stat(path); err == nil {
				_ = section
				return path
			}
		}
	}
	return ""
}

// LoadBridgeConfig reads the bridge section of the config file (or
// environment-only, if no file is found), applies defaults, and
// validates.
func LoadBridgeConfig(configFile string) (*BridgeConfig, error) {
	v := newViper("bridge", configFile)
	bindBridgeEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read bridge config: %w", err)
		}
	}

	var cfg BridgeConfig
	if err := v.UnmarshalKey("bridge", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal bridge config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid bridge config: %w", err)
	}
	return &cfg, nil
}

// LoadFrontendConfig is LoadBridgeConfig's counterpart for the
// front-end process.
func LoadFrontendConfig(configFile string) (*FrontendConfig, error) {
	v := newViper("frontend", configFile)
	bindFrontendEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read frontend config: %w", err)
		}
	}

	var cfg FrontendConfig
	if err := v.UnmarshalKey("frontend", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal frontend config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid frontend config: %w", err)
	}
	return &cfg, nil
}

func bindBridgeEnvKeys(v *viper.Viper) {
	_ = v.BindEnv("bridge.port")
	_ = v.BindEnv("bridge.log_level")
	_ = v.BindEnv("bridge.dev_mode")
	_ = v.BindEnv("bridge.session_record_path")
	_ = v.BindEnv("bridge.shutdown_timeout")
	_ = v.BindEnv("bridge.diagnostics_addr")
	_ = v.BindEnv("bridge.lifecycle.startup_protection_window")
	_ = v.BindEnv("bridge.lifecycle.port_retry_timeout")
	_ = v.BindEnv("bridge.lifecycle.port_retry_step")
	_ = v.BindEnv("bridge.lifecycle.reload_recovery_delay")
	_ = v.BindEnv("bridge.lifecycle.reload_recovery_retries")
	_ = v.BindEnv("bridge.lifecycle.reload_recovery_backoff")
	_ = v.BindEnv("bridge.lifecycle.reconnection_timeout")
	_ = v.BindEnv("bridge.lifecycle.auto_start_on_reload")
}

func bindFrontendEnvKeys(v *viper.Viper) {
	_ = v.BindEnv("frontend.log_level")
	_ = v.BindEnv("frontend.dev_mode")
	_ = v.BindEnv("frontend.keepalive_enabled")
	_ = v.BindEnv("frontend.health_addr")
	_ = v.BindEnv("frontend.discovery.initial_attempts")
	_ = v.BindEnv("frontend.discovery.initial_interval")
	_ = v.BindEnv("frontend.discovery.extended_interval")
	_ = v.BindEnv("frontend.discovery.probe_timeout")
	_ = v.BindEnv("frontend.discovery.cycle_deadline")
}
